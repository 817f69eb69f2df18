package entities

import (
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestTagsRoundTrip(t *testing.T) {
	tags, err := NormalizeTags([]string{" urgent ", "client"})
	if err != nil {
		t.Fatal(err)
	}
	stored := JoinTags(tags)
	if stored != "urgent,client" {
		t.Errorf("JoinTags() = %q", stored)
	}
	if got := SplitTags(stored); !reflect.DeepEqual(got, tags) {
		t.Errorf("SplitTags() = %v, want %v", got, tags)
	}
	if got := SplitTags(""); got == nil || len(got) != 0 {
		t.Errorf("SplitTags(\"\") = %#v, want empty non-nil slice", got)
	}
}

func TestNormalizeTagsLimits(t *testing.T) {
	tests := []struct {
		name string
		tags []string
	}{
		{"too many", strings.Split("a,b,c,d,e,f,g,h,i,j,k", ",")},
		{"too long", []string{strings.Repeat("x", MaxTagLength+1)}},
		{"empty", []string{"  "}},
		{"separator", []string{"a,b"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NormalizeTags(tt.tags); !errors.Is(err, ErrInvalidTags) {
				t.Errorf("NormalizeTags(%v) err = %v", tt.tags, err)
			}
		})
	}
}

func TestNormalizeChannelValue(t *testing.T) {
	tests := []struct {
		channel ChannelType
		value   string
		want    string
		err     error
	}{
		{ChannelWhatsApp, "+34 600-123-456", "+34 600-123-456", nil},
		{ChannelWhatsApp, "34600123456", "", ErrInvalidChannelVal},
		{ChannelWhatsApp, "+12345", "", ErrInvalidChannelVal},
		{ChannelEmail, " Ana@Example.COM ", "ana@example.com", nil},
		{ChannelEmail, "ana@localhost", "", ErrInvalidChannelVal},
		{ChannelTelegram, "@ana_rojas", "@ana_rojas", nil},
		{ChannelTelegram, "@ana", "", ErrInvalidChannelVal},
		{ChannelTelegram, "ana_rojas", "", ErrInvalidChannelVal},
		{"sms", "+34600123456", "", ErrInvalidChannel},
	}
	for _, tt := range tests {
		got, err := NormalizeChannelValue(tt.channel, tt.value)
		if !errors.Is(err, tt.err) {
			t.Errorf("NormalizeChannelValue(%s, %q) err = %v, want %v", tt.channel, tt.value, err, tt.err)
			continue
		}
		if got != tt.want {
			t.Errorf("NormalizeChannelValue(%s, %q) = %q, want %q", tt.channel, tt.value, got, tt.want)
		}
	}
}

func TestOverdueOnlyForPendingPastTasks(t *testing.T) {
	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)

	pending := &Task{Status: TaskStatusPending, ScheduledDatetime: past, Tags: "a,b"}
	pending.Decorate(now)
	if !pending.IsOverdue {
		t.Error("pending task in the past should be overdue")
	}
	if !reflect.DeepEqual(pending.TagsList, []string{"a", "b"}) {
		t.Errorf("TagsList = %v", pending.TagsList)
	}

	inProgress := &Task{Status: TaskStatusInProgress, ScheduledDatetime: past}
	if inProgress.OverdueAt(now) {
		t.Error("only pending tasks become overdue")
	}
	future := &Task{Status: TaskStatusPending, ScheduledDatetime: now.Add(time.Hour)}
	if future.OverdueAt(now) {
		t.Error("future task must not be overdue")
	}
}

func TestApplyStatusStampsFields(t *testing.T) {
	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

	task := &Task{Status: TaskStatusPending}
	if err := task.ApplyStatus(TaskStatusSent, now); err != nil {
		t.Fatal(err)
	}
	if !task.IsSent || task.SentAt == nil || !task.SentAt.Equal(now) {
		t.Errorf("sent fields not stamped: %+v", task)
	}

	if err := task.ApplyStatus(TaskStatusDone, now); err != nil {
		t.Fatal(err)
	}
	if task.CompletedAt == nil {
		t.Error("CompletedAt should be set when finished")
	}

	if err := task.ApplyStatus("archived", now); !errors.Is(err, ErrInvalidStatus) {
		t.Errorf("unknown status err = %v", err)
	}

	task.Cancel()
	if task.Status != TaskStatusCancelled || task.IsActive {
		t.Errorf("Cancel() left %s active=%v", task.Status, task.IsActive)
	}
}

func TestUserCanView(t *testing.T) {
	self := &User{ID: uuid.New(), Role: UserRoleUser}
	admin := &User{ID: uuid.New(), Role: UserRoleAdmin}
	other := uuid.New()

	if !self.CanView(self.ID) || self.CanView(other) {
		t.Error("users may only view themselves")
	}
	if !admin.CanView(other) {
		t.Error("admins may view anyone")
	}
}

func TestStatusLabels(t *testing.T) {
	for _, st := range TaskStatuses {
		if !st.IsValid() || st.Label() == string(st) {
			t.Errorf("status %q should be valid with a display label", st)
		}
	}
	if TaskStatus("archived").IsValid() {
		t.Error("unknown status must be invalid")
	}
}
