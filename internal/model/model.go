package model

import (
	"strings"
	"time"
)

// Priority is the urgency attached to an extracted event.
type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityMedium Priority = "MEDIUM"
	PriorityHigh   Priority = "HIGH"
)

// ParsePriority accepts the enum names case-insensitively. Anything else
// is MEDIUM.
func ParsePriority(s string) Priority {
	switch Priority(strings.ToUpper(strings.TrimSpace(s))) {
	case PriorityLow:
		return PriorityLow
	case PriorityHigh:
		return PriorityHigh
	default:
		return PriorityMedium
	}
}

const (
	// UntitledEvent is used when no title can be extracted.
	UntitledEvent = "Untitled Event"

	DefaultReminderMinutes = 15
	MaxDescriptionLength   = 500
)

// Event is one calendar entry extracted from free text. Values are built
// fresh per parse call and handed to the caller; nothing mutates them
// afterwards.
//
// Start and End are always set and End is never before Start.
type Event struct {
	// UID is the calendar identifier when the event came from an ICS file.
	// Empty for events extracted from text; writers assign one.
	UID string

	Title       string
	Start       time.Time
	End         time.Time
	Location    string // empty when unknown
	Description string // empty when unknown; at most MaxDescriptionLength runes
	Priority    Priority

	// ReminderMinutes is the alarm offset before Start; nil disables the alarm.
	ReminderMinutes *int

	// Recurrence is an RFC 5545 RRULE value without the "RRULE:" prefix.
	Recurrence string

	// Confidence is an informational [0,1] score of how many fields were
	// actually extracted rather than defaulted.
	Confidence float64
}

// Duration returns End - Start.
func (e Event) Duration() time.Duration {
	return e.End.Sub(e.Start)
}

// AllDay reports whether the event spans whole days: it starts at midnight
// and either ends at 23:59 or a whole number of days later.
func (e Event) AllDay() bool {
	if e.Start.Hour() != 0 || e.Start.Minute() != 0 || e.Start.Second() != 0 {
		return false
	}
	if e.End.Hour() == 23 && e.End.Minute() == 59 {
		return true
	}
	d := e.Duration()
	return d > 0 && d%(24*time.Hour) == 0
}

// Reminder returns the reminder offset in minutes, or 0 when disabled.
func (e Event) Reminder() int {
	if e.ReminderMinutes == nil {
		return 0
	}
	return *e.ReminderMinutes
}

// Occurrence represents a single concrete instance of an event
// (after recurrence expansion and timezone normalization).
type Occurrence struct {
	// InstanceKey uniquely identifies a single occurrence of a recurring
	// event, derived from the local start time.
	InstanceKey string

	UID         string
	Title       string
	Description string
	Location    string
	Priority    Priority

	AllDay bool

	// Start / End are in the requested display timezone.
	Start time.Time
	End   time.Time
}
