package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParsePriority(t *testing.T) {
	assert.Equal(t, PriorityHigh, ParsePriority(" high "))
	assert.Equal(t, PriorityLow, ParsePriority("LOW"))
	assert.Equal(t, PriorityMedium, ParsePriority("medium"))
	assert.Equal(t, PriorityMedium, ParsePriority(""))
	assert.Equal(t, PriorityMedium, ParsePriority("urgent"))
}

func TestEvent_AllDay(t *testing.T) {
	day := time.Date(2025, 11, 24, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		start time.Time
		end   time.Time
		want  bool
	}{
		{"midnight to 23:59", day, day.Add(23*time.Hour + 59*time.Minute), true},
		{"two whole days", day, day.AddDate(0, 0, 2), true},
		{"multi-day ending 23:59", day, day.AddDate(0, 0, 1).Add(23*time.Hour + 59*time.Minute), true},
		{"timed", day.Add(9 * time.Hour), day.Add(10 * time.Hour), false},
		{"midnight for an hour", day, day.Add(time.Hour), false},
		{"zero length", day, day, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := Event{Start: tt.start, End: tt.end}
			assert.Equal(t, tt.want, ev.AllDay())
		})
	}
}

func TestEvent_ReminderAndDuration(t *testing.T) {
	start := time.Date(2025, 11, 24, 9, 0, 0, 0, time.UTC)
	ev := Event{Start: start, End: start.Add(90 * time.Minute)}

	assert.Equal(t, 90*time.Minute, ev.Duration())
	assert.Equal(t, 0, ev.Reminder())

	n := 15
	ev.ReminderMinutes = &n
	assert.Equal(t, 15, ev.Reminder())
}
