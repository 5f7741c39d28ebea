package parser

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"easyics/internal/config"
	appLog "easyics/internal/log"
	"easyics/internal/model"
	"easyics/internal/nldate"
)

var (
	// ErrEmptyInput is returned by Parse for empty or whitespace-only text.
	ErrEmptyInput = errors.New("text is empty")

	// ErrUnknownTimezone wraps failures to resolve an IANA zone name.
	ErrUnknownTimezone = errors.New("unknown timezone")
)

// Confidence weights per extracted field.
const (
	confidenceStart    = 0.3
	confidenceDuration = 0.2
	confidenceEnd      = 0.2
	confidenceLocation = 0.15
	confidenceTitle    = 0.15
)

// Options configures a Parser. The zero value is usable: regex-only date
// extraction, UTC, one hour default duration and a 15 minute reminder.
type Options struct {
	// Natural is the optional natural-language date capability.
	Natural NaturalParser

	// Now is the clock used for relative dates and the default year.
	Now func() time.Time

	// DefaultLocation applies when Parse is called without a timezone.
	DefaultLocation *time.Location

	DefaultDuration time.Duration

	// ReminderMinutes is attached to every event. nil means
	// model.DefaultReminderMinutes; a pointer to 0 disables reminders.
	ReminderMinutes *int

	MaxDescriptionLength int
}

// Parser turns free text into events. It holds no per-call state and is
// safe for concurrent use.
type Parser struct {
	dates           *DateTimeExtractor
	defaultLoc      *time.Location
	defaultDuration time.Duration
	reminder        *int
	maxDescription  int
}

// New builds a Parser from opts, filling in defaults.
func New(opts Options) *Parser {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.DefaultLocation == nil {
		opts.DefaultLocation = time.UTC
	}
	if opts.DefaultDuration <= 0 {
		opts.DefaultDuration = time.Hour
	}
	if opts.ReminderMinutes == nil {
		r := model.DefaultReminderMinutes
		opts.ReminderMinutes = &r
	}
	if opts.MaxDescriptionLength <= 0 {
		opts.MaxDescriptionLength = model.MaxDescriptionLength
	}

	return &Parser{
		dates:           NewDateTimeExtractor(opts.Natural, opts.Now),
		defaultLoc:      opts.DefaultLocation,
		defaultDuration: opts.DefaultDuration,
		reminder:        opts.ReminderMinutes,
		maxDescription:  opts.MaxDescriptionLength,
	}
}

// NewFromConfig builds a Parser from application configuration. The
// natural-language capability is wired in when cfg enables it.
func NewFromConfig(cfg *config.Config) (*Parser, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	loc, err := ResolveLocation(cfg.Timezone, time.UTC)
	if err != nil {
		return nil, err
	}

	opts := Options{
		DefaultLocation:      loc,
		DefaultDuration:      time.Duration(cfg.DefaultDurationMinutes) * time.Minute,
		MaxDescriptionLength: cfg.MaxDescriptionLength,
	}
	reminder := cfg.ReminderMinutes
	opts.ReminderMinutes = &reminder
	if cfg.NaturalLanguageEnabled() {
		opts.Natural = nldate.New(cfg.Languages)
	}
	return New(opts), nil
}

var (
	defaultOnce   sync.Once
	defaultParser *Parser
)

// Default returns a process-wide Parser built from the default
// configuration on first use.
func Default() *Parser {
	defaultOnce.Do(func() {
		p, err := NewFromConfig(config.DefaultConfig())
		if err != nil {
			appLog.Error("default parser config rejected; using regex-only parser", err)
			p = New(Options{})
		}
		defaultParser = p
	})
	return defaultParser
}

// ResolveLocation loads an IANA zone by name. An empty name yields
// fallback.
func ResolveLocation(name string, fallback *time.Location) (*time.Location, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		if fallback == nil {
			return time.UTC, nil
		}
		return fallback, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %v", ErrUnknownTimezone, name, err)
	}
	return loc, nil
}

// Location returns the zone used when Parse receives no timezone.
func (p *Parser) Location() *time.Location {
	return p.defaultLoc
}

// Parse extracts events from text. timezone is an optional IANA name;
// timestamps are produced in that zone.
//
// Segmentation runs on the raw text, then each fragment is normalized and
// extracted independently. Fragments without a date are dropped, as is a
// fragment that fails. An empty result is not an error.
func (p *Parser) Parse(text, timezone string) ([]model.Event, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyInput
	}
	loc, err := ResolveLocation(timezone, p.defaultLoc)
	if err != nil {
		return nil, err
	}

	fragments := Segment(text)
	events := make([]model.Event, 0, len(fragments))
	for i, fragment := range fragments {
		ev, ok, err := p.parseFragment(fragment, loc)
		if err != nil {
			appLog.Error("fragment extraction failed", err, "fragment", i)
			continue
		}
		if !ok {
			continue
		}
		events = append(events, ev)
	}

	appLog.Info("parsed text",
		"fragment_count", len(fragments),
		"event_count", len(events),
		"timezone", loc.String(),
	)
	return events, nil
}

func (p *Parser) parseFragment(raw string, loc *time.Location) (ev model.Event, ok bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
			ok = false
		}
	}()

	cleaned := Normalize(raw)
	if cleaned == "" {
		return model.Event{}, false, nil
	}

	var confidence float64

	start, end := p.dates.ExtractRange(cleaned, loc)
	if start.IsZero() {
		// Headers and chatter between list items carry no date.
		appLog.Debug("fragment has no date; skipped", "text", ExtractDescription(cleaned, 40))
		return model.Event{}, false, nil
	}
	confidence += confidenceStart

	duration, hasDuration := ExtractDuration(cleaned)
	switch {
	case end.IsZero() && hasDuration:
		end = start.Add(duration)
		confidence += confidenceDuration
	case end.IsZero():
		end = start.Add(p.defaultDuration)
	case end.Before(start):
		appLog.Debug("extracted end precedes start; using default duration",
			"start", start.Format(time.RFC3339), "end", end.Format(time.RFC3339))
		end = start.Add(p.defaultDuration)
	default:
		confidence += confidenceDuration
	}
	confidence += confidenceEnd

	title := ExtractTitle(normalizeLines(raw))
	if title == "" {
		title = model.UntitledEvent
	} else {
		confidence += confidenceTitle
	}

	location := ExtractLocation(cleaned)
	if location != "" {
		confidence += confidenceLocation
	}

	reminder := *p.reminder
	ev = model.Event{
		Title:       title,
		Start:       start,
		End:         end,
		Location:    location,
		Description: ExtractDescription(cleaned, p.maxDescription),
		Priority:    ExtractPriority(cleaned),
		Recurrence:  ExtractRecurrence(cleaned),
		Confidence:  math.Min(1, math.Round(confidence*100)/100),
	}
	if reminder > 0 {
		ev.ReminderMinutes = &reminder
	}

	appLog.Debug("extracted event",
		"title", ev.Title,
		"start", ev.Start.Format(time.RFC3339),
		"end", ev.End.Format(time.RFC3339),
		"priority", string(ev.Priority),
		"confidence", ev.Confidence,
	)
	return ev, true, nil
}

// normalizeLines cleans each line but keeps the line structure the title
// heuristic relies on.
func normalizeLines(raw string) string {
	lines := strings.Split(strings.ReplaceAll(raw, "\r\n", "\n"), "\n")
	out := lines[:0]
	for _, l := range lines {
		if l = Normalize(l); l != "" {
			out = append(out, l)
		}
	}
	return strings.Join(out, "\n")
}
