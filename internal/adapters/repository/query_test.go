package repository

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/taskmaster/autotasks/internal/domain/entities"
	"github.com/taskmaster/autotasks/internal/ports"
)

func TestConditionsNumberPlaceholders(t *testing.T) {
	c := &conditions{}
	if c.where() != "" {
		t.Errorf("empty where() = %q", c.where())
	}

	c.add("a = $%d", 1)
	c.add("(b ILIKE $%[1]d OR c ILIKE $%[1]d)", "%x%")

	if got, want := c.where(), "WHERE a = $1 AND (b ILIKE $2 OR c ILIKE $2)"; got != want {
		t.Errorf("where() = %q, want %q", got, want)
	}

	clause, args := c.page(20, 40)
	if clause != "LIMIT $3 OFFSET $4" {
		t.Errorf("page() clause = %q", clause)
	}
	if !reflect.DeepEqual(args, []interface{}{1, "%x%", 20, 40}) {
		t.Errorf("page() args = %v", args)
	}
	if len(c.args) != 2 {
		t.Error("page() must not modify the condition args")
	}
}

func TestLikePatternEscapesWildcards(t *testing.T) {
	if got := likePattern(`50%_off\`); got != `%50\%\_off\\%` {
		t.Errorf("likePattern() = %q", got)
	}
}

func TestTaskConditions(t *testing.T) {
	userID := uuid.New()
	status := entities.TaskStatusPending
	sent := false
	tags := "urgent, client"
	from := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)

	c := taskConditions(ports.TaskFilter{
		UserID:   userID,
		Status:   &status,
		IsSent:   &sent,
		Tags:     &tags,
		DateFrom: &from,
	})

	want := "WHERE t.user_id = $1 AND t.is_active = $2 AND t.status = $3 AND t.is_sent = $4 AND t.tags ILIKE $5 AND t.tags ILIKE $6 AND t.scheduled_datetime >= $7"
	if got := c.where(); got != want {
		t.Errorf("where() =\n%s\nwant\n%s", got, want)
	}
	if c.args[4] != "%urgent%" || c.args[5] != "%client%" {
		t.Errorf("tag args = %v", c.args[4:6])
	}
}

func TestIsUniqueViolation(t *testing.T) {
	err := &pq.Error{Code: "23505", Constraint: "users_email_key"}

	if !isUniqueViolation(err, "users_email_key") {
		t.Error("expected a match on the named constraint")
	}
	if !isUniqueViolation(err, "") {
		t.Error("an empty constraint matches any unique violation")
	}
	if isUniqueViolation(err, "users_username_key") {
		t.Error("different constraint must not match")
	}
	if isUniqueViolation(errors.New("boom"), "") {
		t.Error("non-postgres errors never match")
	}
}
