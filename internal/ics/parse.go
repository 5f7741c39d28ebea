package ics

import (
	"bytes"
	"errors"
	"regexp"
	"strconv"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	appLog "easyics/internal/log"
	"easyics/internal/model"
)

// ErrEmptyBody is returned when there is no ICS payload to parse.
var ErrEmptyBody = errors.New("empty ICS body")

// ParsedEvent is a VEVENT read back from an ICS payload, with the fields
// recurrence expansion needs on top of the event itself.
type ParsedEvent struct {
	model.Event

	AllDay bool

	ExDates []time.Time

	// RecurrenceID is set when this VEVENT overrides one instance of a
	// recurring event with the same UID.
	RecurrenceID *time.Time
}

// IsOverride reports whether the event replaces a single recurring instance.
func (p ParsedEvent) IsOverride() bool {
	return p.RecurrenceID != nil
}

// Parse reads every VEVENT in body. Broken VEVENTs are logged and skipped;
// only an unreadable calendar is an error.
//
// RRULE/EXDATE/RECURRENCE-ID are recorded but not expanded; see
// ExpandOccurrences.
func Parse(body []byte) ([]ParsedEvent, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, ErrEmptyBody
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		appLog.Error("ics parse failed", err)
		return nil, err
	}

	events := make([]ParsedEvent, 0)
	for i, comp := range cal.Events() {
		ev, perr := parseVEvent(comp)
		if perr != nil {
			appLog.Error("ics vevent parse failed", perr, "index", i)
			continue
		}
		events = append(events, ev)
	}

	appLog.Info("ics parse completed", "event_count", len(events))
	return events, nil
}

// ParseEvents returns the base events of body, dropping per-instance
// overrides.
func ParseEvents(body []byte) ([]model.Event, error) {
	parsed, err := Parse(body)
	if err != nil {
		return nil, err
	}
	out := make([]model.Event, 0, len(parsed))
	for _, p := range parsed {
		if p.IsOverride() {
			continue
		}
		out = append(out, p.Event)
	}
	return out, nil
}

func parseVEvent(ve *ical.VEvent) (ParsedEvent, error) {
	var out ParsedEvent

	uidProp := ve.GetProperty(ical.ComponentPropertyUniqueId)
	if uidProp == nil || uidProp.Value == "" {
		return out, errors.New("missing UID")
	}
	out.UID = uidProp.Value

	out.Title = propValue(ve, ical.ComponentPropertySummary)
	if strings.TrimSpace(out.Title) == "" {
		out.Title = model.UntitledEvent
	}
	out.Description = propValue(ve, ical.ComponentPropertyDescription)
	out.Location = propValue(ve, ical.ComponentPropertyLocation)

	// VALUE=DATE or a value without a time part means all-day.
	if p := ve.GetProperty(ical.ComponentPropertyDtStart); p != nil {
		if vs := p.ICalParameters["VALUE"]; len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
			out.AllDay = true
		}
		if !strings.Contains(p.Value, "T") {
			out.AllDay = true
		}
	}

	var err error
	if out.AllDay {
		out.Start, err = ve.GetAllDayStartAt()
	} else {
		out.Start, err = ve.GetStartAt()
	}
	if err != nil {
		return out, err
	}

	if out.AllDay {
		out.End, err = ve.GetAllDayEndAt()
	} else {
		out.End, err = ve.GetEndAt()
	}
	switch {
	case err != nil && out.AllDay:
		out.End = out.Start.AddDate(0, 0, 1)
	case err != nil:
		out.End = out.Start
	case out.End.Before(out.Start):
		out.End = out.Start
	}

	out.Priority = model.PriorityMedium
	if v := propValue(ve, ical.ComponentPropertyPriority); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			out.Priority = PriorityFromRFC(n)
		}
	}

	out.Recurrence = propValue(ve, ical.ComponentPropertyRrule)

	for _, p := range ve.GetProperties(ical.ComponentPropertyExdate) {
		for _, part := range strings.Split(p.Value, ",") {
			if t, err := parseICSTime(part, tzidOf(p.ICalParameters)); err == nil {
				out.ExDates = append(out.ExDates, t)
			}
		}
	}

	if p := ve.GetProperty(ical.ComponentPropertyRecurrenceId); p != nil {
		if t, err := parseICSTime(p.Value, tzidOf(p.ICalParameters)); err == nil {
			out.RecurrenceID = &t
		}
	}

	for _, alarm := range ve.Alarms() {
		p := alarm.GetProperty(ical.ComponentPropertyTrigger)
		if p == nil {
			continue
		}
		if n, ok := triggerMinutes(p.Value); ok {
			out.ReminderMinutes = &n
			break
		}
	}

	return out, nil
}

func propValue(ve *ical.VEvent, prop ical.ComponentProperty) string {
	if p := ve.GetProperty(prop); p != nil {
		return p.Value
	}
	return ""
}

func tzidOf(params map[string][]string) *time.Location {
	tz := params["TZID"]
	if len(tz) == 0 {
		return nil
	}
	loc, err := time.LoadLocation(tz[0])
	if err != nil {
		return nil
	}
	return loc
}

// parseICSTime parses a bare DATE or DATE-TIME value as found in EXDATE
// and RECURRENCE-ID. Floating values use loc, or time.Local when nil.
func parseICSTime(v string, loc *time.Location) (time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, errors.New("empty time value")
	}
	if loc == nil {
		loc = time.Local
	}

	// UTC form, e.g. 20250101T090000Z
	if strings.HasSuffix(v, "Z") {
		return time.Parse("20060102T150405Z", v)
	}
	if strings.Contains(v, "T") {
		return time.ParseInLocation("20060102T150405", v, loc)
	}
	return time.ParseInLocation("20060102", v, loc)
}

var triggerRe = regexp.MustCompile(`^-P(?:(\d+)W)?(?:(\d+)D)?(?:T(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?)?$`)

// triggerMinutes reads a relative "before start" TRIGGER such as -PT15M or
// -P1D. Triggers after the start are not reminders and report false.
func triggerMinutes(v string) (int, bool) {
	m := triggerRe.FindStringSubmatch(strings.ToUpper(strings.TrimSpace(v)))
	if m == nil {
		return 0, false
	}
	num := func(s string) int {
		n, _ := strconv.Atoi(s)
		return n
	}
	minutes := num(m[1])*7*24*60 + num(m[2])*24*60 + num(m[3])*60 + num(m[4]) + num(m[5])/60
	if minutes <= 0 {
		return 0, false
	}
	return minutes, true
}
