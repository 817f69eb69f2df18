package services

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/taskmaster/autotasks/internal/domain/entities"
	"github.com/taskmaster/autotasks/internal/ports"
)

const (
	defaultHour    = 10
	maxTitleLength = 200
	fallbackTitle  = "Generated task"
)

var (
	hashtagPattern  = regexp.MustCompile(`#(\w+)`)
	clockPattern    = regexp.MustCompile(`\b([01]?\d|2[0-3]):([0-5]\d)\b`)
	meridiemPattern = regexp.MustCompile(`(?i)\b(1[0-2]|0?[1-9])\s*(am|pm)\b`)
	sentenceEnd     = regexp.MustCompile(`[.!?\n]`)
)

var weekdays = map[string]time.Weekday{
	"domingo": time.Sunday, "sunday": time.Sunday,
	"lunes": time.Monday, "monday": time.Monday,
	"martes": time.Tuesday, "tuesday": time.Tuesday,
	"miercoles": time.Wednesday, "miércoles": time.Wednesday, "wednesday": time.Wednesday,
	"jueves": time.Thursday, "thursday": time.Thursday,
	"viernes": time.Friday, "friday": time.Friday,
	"sabado": time.Saturday, "sábado": time.Saturday, "saturday": time.Saturday,
}

// KeywordInterpreter is a deterministic Interpreter. It reads the day from
// words like "mañana" or a weekday name, the time from "15:30" or "3pm", and
// tags from #hashtags. Anything it cannot place defaults to tomorrow at 10:00.
type KeywordInterpreter struct{}

var _ ports.Interpreter = KeywordInterpreter{}

func NewKeywordInterpreter() KeywordInterpreter {
	return KeywordInterpreter{}
}

func (KeywordInterpreter) Interpret(_ context.Context, text string, _ entities.InputType, now time.Time) (*entities.AIInterpretation, string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, "", fmt.Errorf("nothing to interpret")
	}

	when := schedule(strings.ToLower(text), now)
	draft := entities.DraftTask{
		Title:             draftTitle(text),
		Description:       &text,
		ScheduledDatetime: when,
		Tags:              hashtags(text),
		ContactIDs:        []int64{},
	}

	summary := fmt.Sprintf("Interpreted 1 task %q scheduled for %s", draft.Title, when.Format("Mon 2 Jan 15:04"))
	return &entities.AIInterpretation{Tasks: []entities.DraftTask{draft}}, summary, nil
}

// schedule picks the first future moment matching the day and time words in text
func schedule(text string, now time.Time) time.Time {
	hour, minute := clock(text)
	day := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())

	words := strings.FieldsFunc(text, func(r rune) bool {
		return r == ' ' || r == ',' || r == '.' || r == '!' || r == '?'
	})

	for _, w := range words {
		switch w {
		case "hoy", "today":
			if day.After(now) {
				return day
			}
			return day.AddDate(0, 0, 1)
		case "mañana", "manana", "tomorrow":
			return day.AddDate(0, 0, 1)
		}
		if wd, ok := weekdays[w]; ok {
			ahead := (int(wd) - int(now.Weekday()) + 7) % 7
			if ahead == 0 {
				ahead = 7
			}
			return day.AddDate(0, 0, ahead)
		}
	}

	return day.AddDate(0, 0, 1)
}

func clock(text string) (int, int) {
	if m := clockPattern.FindStringSubmatch(text); m != nil {
		h, _ := strconv.Atoi(m[1])
		mm, _ := strconv.Atoi(m[2])
		return h, mm
	}
	if m := meridiemPattern.FindStringSubmatch(text); m != nil {
		h, _ := strconv.Atoi(m[1])
		h %= 12
		if strings.EqualFold(m[2], "pm") {
			h += 12
		}
		return h, 0
	}
	return defaultHour, 0
}

// draftTitle is the first sentence without hashtags, cut to the title limit
func draftTitle(text string) string {
	title := hashtagPattern.ReplaceAllString(text, "")
	if loc := sentenceEnd.FindStringIndex(title); loc != nil {
		title = title[:loc[0]]
	}
	title = strings.Join(strings.Fields(title), " ")

	if utf8.RuneCountInString(title) > maxTitleLength {
		title = string([]rune(title)[:maxTitleLength])
	}
	if utf8.RuneCountInString(title) < 3 {
		return fallbackTitle
	}
	return title
}

// hashtags returns the valid distinct #tags in text, up to the tag limit
func hashtags(text string) []string {
	seen := map[string]bool{}
	tags := []string{}
	for _, m := range hashtagPattern.FindAllStringSubmatch(text, -1) {
		tag := m[1]
		if seen[tag] || len(tag) > entities.MaxTagLength {
			continue
		}
		seen[tag] = true
		tags = append(tags, tag)
		if len(tags) == entities.MaxTags {
			break
		}
	}
	return tags
}
