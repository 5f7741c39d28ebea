package web

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"easyics/internal/config"
	"easyics/internal/ics"
	appLog "easyics/internal/log"
	"easyics/internal/model"
	"easyics/internal/parser"
)

// ErrBadRequest marks request payloads the client has to fix.
var ErrBadRequest = errors.New("bad request")

const (
	noEventsMessage = "No events could be extracted"
	parsedMessage   = "Text parsing success"

	defaultOccurrenceDays = 7
	maxOccurrenceDays     = 366
)

// EventDTO is the JSON shape of an event on the wire. Times are ISO-8601.
type EventDTO struct {
	UID             string  `json:"uid,omitempty"`
	Title           string  `json:"title"`
	StartTime       string  `json:"start_time"`
	EndTime         string  `json:"end_time"`
	Location        string  `json:"location,omitempty"`
	Description     string  `json:"description,omitempty"`
	Priority        string  `json:"priority,omitempty"`
	ReminderMinutes *int    `json:"reminder_minutes,omitempty"`
	Recurrence      string  `json:"recurrence,omitempty"`
	AllDay          bool    `json:"all_day"`
	DurationHours   float64 `json:"duration_hours"`
	Confidence      float64 `json:"confidence,omitempty"`
}

// ParseTextRequest is the JSON body accepted by /api/upload/text.
type ParseTextRequest struct {
	Text     string `json:"text"`
	Timezone string `json:"timezone"`
}

// EventsResponse is returned by the text and ICS upload endpoints.
type EventsResponse struct {
	Success  bool       `json:"success"`
	Events   []EventDTO `json:"events"`
	Count    int        `json:"count"`
	Timezone string     `json:"timezone"`
	Message  string     `json:"message"`
}

// DownloadRequest is the JSON body accepted by /api/download_ics.
type DownloadRequest struct {
	Events   []EventDTO `json:"events"`
	Timezone string     `json:"timezone,omitempty"`
}

// OccurrencesRequest is the JSON body accepted by /api/occurrences.
type OccurrencesRequest struct {
	Events   []EventDTO `json:"events"`
	Days     int        `json:"days"`
	Timezone string     `json:"timezone,omitempty"`
	// From defaults to the start of the current day.
	From string `json:"from,omitempty"`
}

// OccurrenceDTO is a JSON-friendly view of one expanded occurrence.
type OccurrenceDTO struct {
	UID         string    `json:"uid"`
	InstanceKey string    `json:"instance_key"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Location    string    `json:"location,omitempty"`
	Priority    string    `json:"priority"`
	AllDay      bool      `json:"all_day"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
}

// OccurrencesResponse is returned by /api/occurrences.
type OccurrencesResponse struct {
	Occurrences     []OccurrenceDTO `json:"occurrences"`
	TruncatedUIDs   []string        `json:"truncated_uids,omitempty"`
	RangeStart      time.Time       `json:"range_start"`
	RangeEnd        time.Time       `json:"range_end"`
	DisplayTimeZone string          `json:"display_timezone"`
}

// HealthResponse is returned by /api/check_health.
type HealthResponse struct {
	Status          string `json:"status"`
	NaturalLanguage bool   `json:"natural_language"`
}

// Service holds the operations shared by the HTTP server and the Lambda
// handler. It is stateless apart from its configuration.
type Service struct {
	cfg    *config.Config
	parser *parser.Parser
	now    func() time.Time
}

// NewService builds a Service. A nil parser is built from cfg.
func NewService(cfg *config.Config, p *parser.Parser) (*Service, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	cfg.Normalize()
	if p == nil {
		var err error
		p, err = parser.NewFromConfig(cfg)
		if err != nil {
			return nil, err
		}
	}
	return &Service{cfg: cfg, parser: p, now: time.Now}, nil
}

// Health reports liveness and whether natural-language dates are on.
func (s *Service) Health() HealthResponse {
	return HealthResponse{
		Status:          "healthy",
		NaturalLanguage: s.cfg.NaturalLanguageEnabled(),
	}
}

// ParseText runs the extraction pipeline. An empty result is a successful
// response with count 0.
func (s *Service) ParseText(text, timezone string) (EventsResponse, error) {
	events, err := s.parser.Parse(text, timezone)
	if err != nil {
		return EventsResponse{}, err
	}

	resp := EventsResponse{
		Success:  true,
		Events:   ToDTOs(events),
		Count:    len(events),
		Timezone: timezone,
		Message:  parsedMessage,
	}
	if resp.Timezone == "" {
		resp.Timezone = s.parser.Location().String()
	}
	if len(events) == 0 {
		resp.Message = noEventsMessage
	}
	return resp, nil
}

// BuildICS serializes the requested events into a calendar.
func (s *Service) BuildICS(req DownloadRequest) (string, error) {
	if len(req.Events) == 0 {
		return "", fmt.Errorf("%w: events list cannot be empty", ErrBadRequest)
	}
	events, err := s.fromDTOs(req.Events, req.Timezone)
	if err != nil {
		return "", err
	}
	return ics.Generate(events, s.writeOptions())
}

// ImportICS reads a calendar upload back into events.
func (s *Service) ImportICS(body []byte, timezone string) (EventsResponse, error) {
	loc, err := parser.ResolveLocation(timezone, s.parser.Location())
	if err != nil {
		return EventsResponse{}, err
	}
	events, err := ics.ParseEvents(body)
	if err != nil {
		if errors.Is(err, ics.ErrEmptyBody) {
			return EventsResponse{}, err
		}
		return EventsResponse{}, fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	for i := range events {
		events[i].Start = events[i].Start.In(loc)
		events[i].End = events[i].End.In(loc)
	}

	resp := EventsResponse{
		Success:  true,
		Events:   ToDTOs(events),
		Count:    len(events),
		Timezone: loc.String(),
		Message:  "ICS import success",
	}
	if len(events) == 0 {
		resp.Message = noEventsMessage
	}
	return resp, nil
}

// Occurrences expands the requested events over a window of days.
func (s *Service) Occurrences(req OccurrencesRequest) (OccurrencesResponse, error) {
	loc, err := parser.ResolveLocation(req.Timezone, s.parser.Location())
	if err != nil {
		return OccurrencesResponse{}, err
	}
	events, err := s.fromDTOs(req.Events, loc.String())
	if err != nil {
		return OccurrencesResponse{}, err
	}

	days := req.Days
	if days <= 0 {
		days = defaultOccurrenceDays
	}
	if days > maxOccurrenceDays {
		days = maxOccurrenceDays
	}

	from := s.now().In(loc)
	from = time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, loc)
	if req.From != "" {
		from, err = parseEventTime(req.From, loc)
		if err != nil {
			return OccurrencesResponse{}, fmt.Errorf("%w: from: %v", ErrBadRequest, err)
		}
	}
	to := from.AddDate(0, 0, days)

	res, err := ics.ExpandOccurrences(ics.FromEvents(events), ics.ExpandConfig{
		DisplayLocation: loc,
		RangeStart:      from,
		RangeEnd:        to,
	})
	if err != nil {
		return OccurrencesResponse{}, err
	}

	dtos := make([]OccurrenceDTO, 0, len(res.Occurrences))
	for _, occ := range res.Occurrences {
		dtos = append(dtos, OccurrenceDTO{
			UID:         occ.UID,
			InstanceKey: occ.InstanceKey,
			Title:       occ.Title,
			Description: occ.Description,
			Location:    occ.Location,
			Priority:    string(occ.Priority),
			AllDay:      occ.AllDay,
			Start:       occ.Start,
			End:         occ.End,
		})
	}

	appLog.Info("occurrences expanded",
		"event_count", len(events),
		"occurrence_count", len(dtos),
		"days", days,
	)
	return OccurrencesResponse{
		Occurrences:     dtos,
		TruncatedUIDs:   res.TruncatedEvents,
		RangeStart:      from,
		RangeEnd:        to,
		DisplayTimeZone: loc.String(),
	}, nil
}

func (s *Service) writeOptions() ics.WriteOptions {
	return ics.WriteOptions{
		ProductID:    s.cfg.Calendar.ProductID,
		CalendarName: s.cfg.Calendar.Name,
		Now:          s.now,
	}
}

// StatusFor maps a service error onto an HTTP status code.
func StatusFor(err error) int {
	switch {
	case err == nil:
		return 200
	case errors.Is(err, parser.ErrEmptyInput),
		errors.Is(err, parser.ErrUnknownTimezone),
		errors.Is(err, ErrBadRequest),
		errors.Is(err, ics.ErrNoEvents),
		errors.Is(err, ics.ErrInvalidEvent),
		errors.Is(err, ics.ErrEmptyBody):
		return 400
	default:
		return 500
	}
}

// ErrorMessage returns the client-facing text for err. Internal failures
// are not echoed.
func ErrorMessage(err error) string {
	if errors.Is(err, parser.ErrEmptyInput) {
		return "Content cannot be empty"
	}
	if StatusFor(err) == 500 {
		return "internal error"
	}
	return err.Error()
}

// ToDTOs converts events to their wire form.
func ToDTOs(events []model.Event) []EventDTO {
	out := make([]EventDTO, 0, len(events))
	for _, ev := range events {
		out = append(out, EventDTO{
			UID:             ev.UID,
			Title:           ev.Title,
			StartTime:       ev.Start.Format(time.RFC3339),
			EndTime:         ev.End.Format(time.RFC3339),
			Location:        ev.Location,
			Description:     ev.Description,
			Priority:        string(ev.Priority),
			ReminderMinutes: ev.ReminderMinutes,
			Recurrence:      ev.Recurrence,
			AllDay:          ev.AllDay(),
			DurationHours:   math.Round(ev.Duration().Hours()*100) / 100,
			Confidence:      ev.Confidence,
		})
	}
	return out
}

// fromDTOs validates wire events. Times without an offset are read in
// timezone (or the configured default).
func (s *Service) fromDTOs(dtos []EventDTO, timezone string) ([]model.Event, error) {
	loc, err := parser.ResolveLocation(timezone, s.parser.Location())
	if err != nil {
		return nil, err
	}

	events := make([]model.Event, 0, len(dtos))
	for i, d := range dtos {
		start, err := parseEventTime(d.StartTime, loc)
		if err != nil {
			return nil, fmt.Errorf("%w: event %d: time format incorrect: %v", ErrBadRequest, i, err)
		}
		end, err := parseEventTime(d.EndTime, loc)
		if err != nil {
			return nil, fmt.Errorf("%w: event %d: time format incorrect: %v", ErrBadRequest, i, err)
		}
		if end.Before(start) {
			return nil, fmt.Errorf("%w: event %d: end_time is before start_time", ErrBadRequest, i)
		}

		events = append(events, model.Event{
			UID:             strings.TrimSpace(d.UID),
			Title:           strings.TrimSpace(d.Title),
			Start:           start,
			End:             end,
			Location:        d.Location,
			Description:     d.Description,
			Priority:        model.ParsePriority(d.Priority),
			ReminderMinutes: d.ReminderMinutes,
			Recurrence:      strings.TrimSpace(d.Recurrence),
			Confidence:      d.Confidence,
		})
	}
	return events, nil
}

var eventTimeLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// parseEventTime accepts RFC 3339 or a naive ISO-8601 value read in loc.
func parseEventTime(v string, loc *time.Location) (time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, errors.New("empty time")
	}
	if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
		return t.In(loc), nil
	}
	for _, layout := range eventTimeLayouts {
		if t, err := time.ParseInLocation(layout, v, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse %q", v)
}
