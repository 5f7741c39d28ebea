package parser

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	appLog "easyics/internal/log"
)

// NaturalParser is an optional natural-language date capability
// ("明天下午2点", "next Monday 10am"). Implementations must be safe for
// concurrent use and report ok=false instead of failing.
type NaturalParser interface {
	ParseNatural(text string, loc *time.Location, now time.Time) (t time.Time, ok bool)
}

const monthNames = `Jan(?:uary)?|Feb(?:ruary)?|Mar(?:ch)?|Apr(?:il)?|May|Jun(?:e)?|Jul(?:y)?|` +
	`Aug(?:ust)?|Sep(?:t(?:ember)?)?|Oct(?:ober)?|Nov(?:ember)?|Dec(?:ember)?`

var monthByPrefix = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March,
	"apr": time.April, "may": time.May, "jun": time.June,
	"jul": time.July, "aug": time.August, "sep": time.September,
	"oct": time.October, "nov": time.November, "dec": time.December,
}

const (
	// [T ]HH:MM with optional "at" and am/pm.
	clockSuffix = `(?:(?:T|\s+|,\s*)(?:at\s+)?(?P<hour>\d{1,2}):(?P<minute>\d{2})(?:\s*(?P<meridiem>[ap]\.?m\b\.?))?)?`

	// HH:MM, HH点, HH点半, HH点MM分, optionally after 上午/下午/晚上.
	cnClockSuffix = `(?:\s*(?P<meridiem>上午|下午|晚上|中午|早上)?\s*(?P<hour>\d{1,2})` +
		`(?:[:：](?P<minute>\d{2})|[点时](?:(?P<half>半)|(?P<cnminute>\d{1,2})分?)?))?`

	isoDate = `\d{4}[-/]\d{1,2}[-/]\d{1,2}`
	cnDate  = `\d{2,4}年\d{1,2}月\d{1,2}[日号]?`

	rangeSep = `\s*(?:-|~|～|到|至|to)\s*`
)

type datePattern struct {
	name string
	re   *regexp.Regexp
}

// dateCascade is evaluated in order; the first pattern whose first match
// forms a valid calendar date wins.
var dateCascade = []datePattern{
	{
		name: "iso",
		re:   regexp.MustCompile(`(?i)(?P<year>\d{4})[-/](?P<month>\d{1,2})[-/](?P<day>\d{1,2})` + clockSuffix),
	},
	{
		name: "day_first",
		re:   regexp.MustCompile(`(?i)\b(?P<day>\d{1,2})[-/](?P<month>\d{1,2})[-/](?P<year>\d{4})` + clockSuffix),
	},
	{
		name: "month_first",
		re:   regexp.MustCompile(`(?i)\b(?P<month>\d{1,2})[-/](?P<day>\d{1,2})[-/](?P<year>\d{4})` + clockSuffix),
	},
	{
		name: "month_name_day",
		re: regexp.MustCompile(`(?i)\b(?P<month_name>` + monthNames + `)\.?\s+(?P<day>\d{1,2})(?:st|nd|rd|th)?\b` +
			`(?:,?\s+(?P<year>\d{4})\b)?` + clockSuffix),
	},
	{
		name: "day_month_name",
		re: regexp.MustCompile(`(?i)\b(?P<day>\d{1,2})(?:st|nd|rd|th)?\s+(?:of\s+)?(?P<month_name>` + monthNames + `)\b\.?` +
			`(?:,?\s+(?P<year>\d{4})\b)?` + clockSuffix),
	},
	{
		name: "cn_full",
		re:   regexp.MustCompile(`(?P<year>\d{2,4})年(?P<month>\d{1,2})月(?P<day>\d{1,2})[日号]?` + cnClockSuffix),
	},
	{
		name: "cn_month_day",
		re:   regexp.MustCompile(`(?P<month>\d{1,2})月(?P<day>\d{1,2})[日号]?` + cnClockSuffix),
	},
}

var (
	dateRangeRe = regexp.MustCompile(`(?i)(?P<start>` + isoDate + `|` + cnDate + `)` + rangeSep +
		`(?P<end>` + isoDate + `|` + cnDate + `)`)
	timeRangeRe = regexp.MustCompile(`(?i)(\d{1,2}):(\d{2})` + rangeSep + `(\d{1,2}):(\d{2})`)
	clockRe     = regexp.MustCompile(`(\d{1,2}):(\d{2})`)
)

const weekdayNames = `(?:mon|tues|wednes|thurs|fri|satur|sun)day`

// Relative date phrases embedded in a sentence, each with an optional
// time of day. A located phrase is handed to the natural-language parser
// on its own when the whole fragment is not understood.
var relativePhraseRes = []*regexp.Regexp{
	regexp.MustCompile(`(?:今天|今晚|明天|大后天|后天|下?(?:周|星期|礼拜)[一二三四五六日天])` +
		`(?:\s*(?:上午|下午|晚上|中午|早上)?\s*\d{1,2}\s*(?:[:：]\d{2}|[点时](?:半|\d{1,2}分?)?))?`),
	regexp.MustCompile(`(?i)\b(?:today|tonight|tomorrow|(?:next|this)\s+` + weekdayNames + `|` + weekdayNames +
		`|in\s+\d+\s+(?:days?|weeks?))` +
		`(?:,?\s+(?:at\s+)?\d{1,2}(?::\d{2}(?:\s*[ap]\.?m\b\.?)?|\s*[ap]\.?m\b\.?))?`),
}

// relativePhrases returns the relative date phrases found in text, in
// pattern order, excluding text itself.
func relativePhrases(text string) []string {
	var out []string
	for _, re := range relativePhraseRes {
		for _, m := range re.FindAllString(text, -1) {
			if m = strings.TrimSpace(m); m != "" && m != strings.TrimSpace(text) {
				out = append(out, m)
			}
		}
	}
	return out
}

// How far past a date range a clock time still belongs to it.
const trailingTimeWindow = 20

// ParseSimpleDate runs the regex cascade over text and returns the first
// valid date found, in loc. Missing hour/minute default to 0 and a missing
// year to defaultYear.
func ParseSimpleDate(text string, defaultYear int, loc *time.Location) (time.Time, bool) {
	if text == "" {
		return time.Time{}, false
	}
	if loc == nil {
		loc = time.UTC
	}
	for _, p := range dateCascade {
		m := p.re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		if t, ok := buildDateTime(p.re, m, defaultYear, loc); ok {
			appLog.Debug("date pattern matched", "pattern", p.name, "match", m[0])
			return t, true
		}
	}
	return time.Time{}, false
}

func groups(re *regexp.Regexp, m []string) map[string]string {
	out := make(map[string]string, len(m))
	for i, name := range re.SubexpNames() {
		if name != "" && m[i] != "" {
			out[name] = m[i]
		}
	}
	return out
}

func buildDateTime(re *regexp.Regexp, m []string, defaultYear int, loc *time.Location) (time.Time, bool) {
	g := groups(re, m)

	year := defaultYear
	if s, ok := g["year"]; ok {
		year, _ = strconv.Atoi(s)
		if year < 100 {
			year += 2000
		}
	}

	var month time.Month
	switch {
	case g["month"] != "":
		n, _ := strconv.Atoi(g["month"])
		month = time.Month(n)
	case g["month_name"] != "":
		name := strings.ToLower(g["month_name"])
		month = monthByPrefix[name[:3]]
	}

	day, _ := strconv.Atoi(g["day"])
	hour, _ := strconv.Atoi(g["hour"])

	minute := 0
	switch {
	case g["minute"] != "":
		minute, _ = strconv.Atoi(g["minute"])
	case g["cnminute"] != "":
		minute, _ = strconv.Atoi(g["cnminute"])
	case g["half"] != "":
		minute = 30
	}
	hour = applyMeridiem(hour, g["meridiem"])

	if !validClock(hour, minute) {
		return time.Time{}, false
	}
	return validDate(year, month, day, hour, minute, loc)
}

// validDate rejects dates time.Date would silently normalize (Feb 30,
// month 13).
func validDate(year int, month time.Month, day, hour, minute int, loc *time.Location) (time.Time, bool) {
	if month < time.January || month > time.December || day < 1 || day > 31 {
		return time.Time{}, false
	}
	t := time.Date(year, month, day, hour, minute, 0, 0, loc)
	if t.Year() != year || t.Month() != month || t.Day() != day {
		return time.Time{}, false
	}
	return t, true
}

func validClock(hour, minute int) bool {
	return hour >= 0 && hour <= 23 && minute >= 0 && minute <= 59
}

func applyMeridiem(hour int, meridiem string) int {
	m := strings.ToLower(strings.ReplaceAll(meridiem, ".", ""))
	switch m {
	case "pm", "下午", "晚上":
		if hour < 12 {
			return hour + 12
		}
	case "中午":
		if hour < 11 {
			return hour + 12
		}
	case "am":
		if hour == 12 {
			return 0
		}
	}
	return hour
}

// DateTimeExtractor finds a start/end pair in a fragment. The natural
// language capability is optional; without it only the regex cascade runs.
type DateTimeExtractor struct {
	natural NaturalParser
	now     func() time.Time
}

// NewDateTimeExtractor builds an extractor. natural may be nil; now
// defaults to time.Now.
func NewDateTimeExtractor(natural NaturalParser, now func() time.Time) *DateTimeExtractor {
	if now == nil {
		now = time.Now
	}
	return &DateTimeExtractor{natural: natural, now: now}
}

// ExtractDateTime returns the fragment's anchor: the natural-language
// parser's reading of the whole text or, failing that, of a relative phrase
// located inside it; else the regex cascade's.
func (x *DateTimeExtractor) ExtractDateTime(text string, loc *time.Location) (time.Time, bool) {
	if text == "" {
		return time.Time{}, false
	}
	if loc == nil {
		loc = time.UTC
	}
	now := x.now().In(loc)

	if x.natural != nil {
		if t, ok := x.parseNatural(text, loc, now); ok {
			return t.In(loc), true
		}
		for _, phrase := range relativePhrases(text) {
			if t, ok := x.parseNatural(phrase, loc, now); ok {
				return t.In(loc), true
			}
		}
	}
	return ParseSimpleDate(text, now.Year(), loc)
}

// parseNatural shields the pipeline from a misbehaving capability.
func (x *DateTimeExtractor) parseNatural(text string, loc *time.Location, now time.Time) (t time.Time, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			appLog.Warn("natural date parser panicked; using regex cascade", "panic", r)
			t, ok = time.Time{}, false
		}
	}()
	t, ok = x.natural.ParseNatural(text, loc, now)
	if ok && t.IsZero() {
		return time.Time{}, false
	}
	return t, ok
}

// ExtractRange extracts (start, end) from one fragment. A zero start means
// nothing parsed; a zero end means only a single point was found and the
// caller picks the duration.
//
// Order:
//  1. explicit date range ("2025-11-24 - 2025-11-25"), with a trailing
//     clock time attached to the start and a bare end date meaning 23:59;
//  2. anchor date plus a clock range ("14:30-15:30"), rolling the end to
//     the next day when it would precede the start;
//  3. the anchor alone.
func (x *DateTimeExtractor) ExtractRange(fragment string, loc *time.Location) (start, end time.Time) {
	if fragment == "" {
		return time.Time{}, time.Time{}
	}
	if loc == nil {
		loc = time.UTC
	}

	if s, e, ok := x.extractDateRange(fragment, loc); ok {
		return s, e
	}

	anchor, ok := x.ExtractDateTime(fragment, loc)
	if !ok {
		return time.Time{}, time.Time{}
	}

	if m := timeRangeRe.FindStringSubmatch(fragment); m != nil {
		sh, sm := atoi(m[1]), atoi(m[2])
		eh, em := atoi(m[3]), atoi(m[4])
		if validClock(sh, sm) && validClock(eh, em) {
			s := atClock(anchor, sh, sm)
			e := atClock(anchor, eh, em)
			if e.Before(s) {
				e = e.AddDate(0, 0, 1)
			}
			return s, e
		}
	}

	return anchor, time.Time{}
}

func (x *DateTimeExtractor) extractDateRange(fragment string, loc *time.Location) (time.Time, time.Time, bool) {
	idx := dateRangeRe.FindStringSubmatchIndex(fragment)
	if idx == nil {
		return time.Time{}, time.Time{}, false
	}
	startText := fragment[idx[2]:idx[3]]
	endText := fragment[idx[4]:idx[5]]

	year := x.now().In(loc).Year()
	start, ok := ParseSimpleDate(startText, year, loc)
	if !ok {
		return time.Time{}, time.Time{}, false
	}
	end, ok := ParseSimpleDate(endText, year, loc)
	if !ok {
		return time.Time{}, time.Time{}, false
	}

	tail := fragment[idx[1]:min(idx[1]+trailingTimeWindow, len(fragment))]
	if m := timeRangeRe.FindStringSubmatch(tail); m != nil {
		sh, sm := atoi(m[1]), atoi(m[2])
		eh, em := atoi(m[3]), atoi(m[4])
		if validClock(sh, sm) && validClock(eh, em) {
			start = atClock(start, sh, sm)
			end = atClock(end, eh, em)
		}
	} else if m := clockRe.FindStringSubmatch(tail); m != nil {
		if h, mm := atoi(m[1]), atoi(m[2]); validClock(h, mm) {
			start = atClock(start, h, mm)
		}
	}

	if end.Hour() == 0 && end.Minute() == 0 {
		end = atClock(end, 23, 59)
	}
	return start, end, true
}

func atClock(t time.Time, hour, minute int) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), hour, minute, 0, 0, t.Location())
}

func atoi(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return -1
	}
	return n
}
