package services

import (
	"context"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/taskmaster/autotasks/internal/domain/entities"
)

func TestKeywordInterpreterSchedule(t *testing.T) {
	// Thursday
	now := time.Date(2024, 3, 14, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		text string
		want time.Time
	}{
		{"Llamar a Ana", time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)},
		{"Llamar a Ana hoy a las 18:45", time.Date(2024, 3, 14, 18, 45, 0, 0, time.UTC)},
		{"Llamar a Ana hoy 9am", time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC)},
		{"Call Ana tomorrow at 3pm", time.Date(2024, 3, 15, 15, 0, 0, 0, time.UTC)},
		{"Reunión el lunes", time.Date(2024, 3, 18, 10, 0, 0, 0, time.UTC)},
		{"Reunión el jueves 08:15", time.Date(2024, 3, 21, 8, 15, 0, 0, time.UTC)},
		{"Meeting friday 12am", time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			in, _, err := NewKeywordInterpreter().Interpret(context.Background(), tt.text, entities.InputText, now)
			if err != nil {
				t.Fatal(err)
			}
			if got := in.Tasks[0].ScheduledDatetime; !got.Equal(tt.want) {
				t.Errorf("scheduled = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestKeywordInterpreterTitleAndTags(t *testing.T) {
	now := time.Date(2024, 3, 14, 12, 0, 0, 0, time.UTC)
	text := "#ventas Enviar cotización a Luis. Incluir descuento #ventas #urgente"

	in, summary, err := NewKeywordInterpreter().Interpret(context.Background(), text, entities.InputText, now)
	if err != nil {
		t.Fatal(err)
	}

	draft := in.Tasks[0]
	if draft.Title != "Enviar cotización a Luis" {
		t.Errorf("Title = %q", draft.Title)
	}
	if !reflect.DeepEqual(draft.Tags, []string{"ventas", "urgente"}) {
		t.Errorf("Tags = %v", draft.Tags)
	}
	if draft.Description == nil || *draft.Description != text {
		t.Errorf("Description = %v", draft.Description)
	}
	if draft.ContactIDs == nil || len(draft.ContactIDs) != 0 {
		t.Errorf("ContactIDs = %#v, want empty list", draft.ContactIDs)
	}
	if !strings.Contains(summary, draft.Title) {
		t.Errorf("summary = %q", summary)
	}

	short, _, _ := NewKeywordInterpreter().Interpret(context.Background(), "#x ok", entities.InputText, now)
	if short.Tasks[0].Title != fallbackTitle {
		t.Errorf("short title = %q, want fallback", short.Tasks[0].Title)
	}

	if _, _, err := NewKeywordInterpreter().Interpret(context.Background(), "   ", entities.InputText, now); err == nil {
		t.Error("blank input should fail")
	}
}
