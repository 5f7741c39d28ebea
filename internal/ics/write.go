package ics

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/google/uuid"

	appLog "easyics/internal/log"
	"easyics/internal/model"
)

var (
	// ErrNoEvents is returned when asked to serialize an empty list.
	ErrNoEvents = errors.New("no events to export")

	// ErrInvalidEvent wraps per-event validation failures.
	ErrInvalidEvent = errors.New("invalid event")
)

const (
	uidDomain = "easy-ics.local"

	defaultProductID    = "-//Easy ICS//Easy ICS v1.0//EN"
	defaultCalendarName = "Easy ICS Calendar"
)

// WriteOptions controls the calendar header and generated identifiers.
type WriteOptions struct {
	ProductID    string // PRODID
	CalendarName string // X-WR-CALNAME

	// Now stamps DTSTAMP/CREATED/LAST-MODIFIED. Defaults to time.Now.
	Now func() time.Time

	// NewUID generates UIDs for events that have none.
	NewUID func() string
}

func (o *WriteOptions) normalize() {
	if o.ProductID == "" {
		o.ProductID = defaultProductID
	}
	if o.CalendarName == "" {
		o.CalendarName = defaultCalendarName
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.NewUID == nil {
		o.NewUID = func() string { return uuid.NewString() + "@" + uidDomain }
	}
}

// RFCPriority maps a priority onto the RFC 5545 1..9 scale.
func RFCPriority(p model.Priority) int {
	switch p {
	case model.PriorityHigh:
		return 1
	case model.PriorityLow:
		return 9
	default:
		return 5
	}
}

// PriorityFromRFC is the inverse of RFCPriority: 1-4 HIGH, 6-9 LOW,
// anything else (including undefined 0) MEDIUM.
func PriorityFromRFC(n int) model.Priority {
	switch {
	case n >= 1 && n <= 4:
		return model.PriorityHigh
	case n >= 6 && n <= 9:
		return model.PriorityLow
	default:
		return model.PriorityMedium
	}
}

// Build assembles a VCALENDAR for events. Every event is validated first;
// nothing is built when one of them is invalid.
func Build(events []model.Event, opts WriteOptions) (*ical.Calendar, error) {
	if len(events) == 0 {
		return nil, ErrNoEvents
	}
	for i, ev := range events {
		if err := validate(ev); err != nil {
			return nil, fmt.Errorf("event %d: %w", i, err)
		}
	}
	opts.normalize()

	cal := ical.NewCalendarFor("Easy ICS")
	cal.SetProductId(opts.ProductID)
	cal.SetCalscale("GREGORIAN")
	cal.SetMethod(ical.MethodPublish)
	cal.SetXWRCalName(opts.CalendarName)

	stamp := opts.Now().UTC()
	for _, ev := range events {
		addEvent(cal, ev, stamp, opts.NewUID)
	}
	return cal, nil
}

func validate(ev model.Event) error {
	if ev.Start.IsZero() {
		return fmt.Errorf("%w: missing start time", ErrInvalidEvent)
	}
	if ev.End.IsZero() {
		return fmt.Errorf("%w: missing end time", ErrInvalidEvent)
	}
	if ev.End.Before(ev.Start) {
		return fmt.Errorf("%w: end %s is before start %s", ErrInvalidEvent,
			ev.End.Format(time.RFC3339), ev.Start.Format(time.RFC3339))
	}
	return nil
}

func addEvent(cal *ical.Calendar, ev model.Event, stamp time.Time, newUID func() string) {
	uid := ev.UID
	if uid == "" {
		uid = newUID()
	}
	title := strings.TrimSpace(ev.Title)
	if title == "" {
		title = model.UntitledEvent
	}

	ve := cal.AddEvent(uid)
	ve.SetDtStampTime(stamp)
	ve.SetCreatedTime(stamp)
	ve.SetModifiedAt(stamp)

	if ev.AllDay() {
		startDay := midnight(ev.Start)
		// DTEND is exclusive for DATE values.
		endDay := midnight(ev.End)
		if !ev.End.Equal(endDay) || !endDay.After(startDay) {
			endDay = endDay.AddDate(0, 0, 1)
		}
		ve.SetAllDayStartAt(startDay)
		ve.SetAllDayEndAt(endDay)
	} else {
		ve.SetStartAt(ev.Start)
		ve.SetEndAt(ev.End)
	}

	ve.SetSummary(title)
	if ev.Location != "" {
		ve.SetLocation(ev.Location)
	}
	if ev.Description != "" {
		ve.SetDescription(ev.Description)
	}
	ve.SetStatus(ical.ObjectStatusConfirmed)
	ve.SetPriority(RFCPriority(ev.Priority))

	if ev.Recurrence != "" {
		ve.AddRrule(strings.TrimPrefix(ev.Recurrence, "RRULE:"))
	}

	if n := ev.Reminder(); n > 0 {
		alarm := ve.AddAlarm()
		alarm.SetAction(ical.ActionDisplay)
		alarm.SetTrigger(fmt.Sprintf("-PT%dM", n))
		alarm.SetDescription(title)
	}
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// Write serializes events as an RFC 5545 calendar (CRLF line endings).
func Write(w io.Writer, events []model.Event, opts WriteOptions) error {
	cal, err := Build(events, opts)
	if err != nil {
		return err
	}
	if err := cal.SerializeTo(w, ical.WithNewLineWindows); err != nil {
		return fmt.Errorf("serialize calendar: %w", err)
	}
	appLog.Info("ics generated", "event_count", len(events))
	return nil
}

// Generate is Write into a string.
func Generate(events []model.Event, opts WriteOptions) (string, error) {
	var b strings.Builder
	if err := Write(&b, events, opts); err != nil {
		return "", err
	}
	return b.String(), nil
}
