// Package nldate adapts go-dateparser to the parser's natural-language
// date capability ("明天下午2点", "next Monday 10am").
package nldate

import (
	"strings"
	"time"

	dps "github.com/markusmobius/go-dateparser"

	appLog "easyics/internal/log"
)

// Parser is safe for concurrent use.
type Parser struct {
	languages []string
	dp        *dps.Parser
}

// New returns a Parser restricted to the given language codes. Empty
// means English and Chinese.
func New(languages []string) *Parser {
	langs := make([]string, 0, len(languages))
	for _, l := range languages {
		if l = strings.ToLower(strings.TrimSpace(l)); l != "" {
			langs = append(langs, l)
		}
	}
	if len(langs) == 0 {
		langs = []string{"en", "zh"}
	}
	return &Parser{
		languages: langs,
		dp:        &dps.Parser{},
	}
}

// Languages returns the configured language codes.
func (p *Parser) Languages() []string {
	return append([]string(nil), p.languages...)
}

// ParseNatural interprets text relative to now in loc, preferring dates
// in the current period. Any parser failure is reported as ok=false.
func (p *Parser) ParseNatural(text string, loc *time.Location, now time.Time) (time.Time, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return time.Time{}, false
	}
	if loc == nil {
		loc = time.UTC
	}

	cfg := &dps.Configuration{
		Languages:           p.languages,
		CurrentTime:         now.In(loc),
		DefaultTimezone:     loc,
		PreferredDateSource: dps.CurrentPeriod,
	}
	dt, err := p.dp.Parse(cfg, text)
	if err != nil {
		appLog.Debug("natural date parse missed", "error", err)
		return time.Time{}, false
	}
	if dt.Time.IsZero() {
		return time.Time{}, false
	}
	return dt.Time.In(loc), true
}
