package parser

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"easyics/internal/model"
)

const (
	maxTitleLength    = 100
	maxLocationLength = 200

	meridiemPattern = `[ap]\.?m\b\.?`
)

var (
	// Removed from titles, longest forms first.
	titleNoise = []*regexp.Regexp{
		dateRangeRe,
		regexp.MustCompile(`\d{4}[-/]\d{1,2}[-/]\d{1,2}`),
		regexp.MustCompile(cnDate),
		regexp.MustCompile(`(?i)\d{1,2}:\d{2}(?:\s*` + meridiemPattern + `)?` + rangeSep + `\d{1,2}:\d{2}(?:\s*` + meridiemPattern + `)?`),
		regexp.MustCompile(`(?i)(?:\bat\s+)?\b\d{1,2}(?::\d{2})?\s*` + meridiemPattern),
		clockRe,
	}
	spaceBeforeMarkRe = regexp.MustCompile(`\s+([,;:.])`)
	markRunRe         = regexp.MustCompile(`([,;:])(?:\s*[,;:])+`)

	titleBeforeRe = regexp.MustCompile(`([^:。.!\n?]{5,100}?)[\s:：]*\d{4}[-/年]`)

	// Tried in order. The English labels are case-insensitive.
	locationPatterns = []*regexp.Regexp{
		regexp.MustCompile(`会议地点[:：]\s*([^\n,，。;；.]+)`),
		regexp.MustCompile(`(?i)meeting\s+location\s*:\s*([^\n,，。;；.]+)`),
		regexp.MustCompile(`地点[:：]\s*([^\n,，。;；.]+)`),
		regexp.MustCompile(`(?i)location\s*:\s*([^\n,，。;；.]+)`),
		regexp.MustCompile(`地址[:：]\s*([^\n,，。;；.]+)`),
	}

	durationHoursRe   = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(?:个?小时|(?:hours?|hrs?|h)\b)`)
	durationMinutesRe = regexp.MustCompile(`(?i)(\d+)\s*(?:分钟|(?:minutes?|mins?)\b)`)
)

var (
	highPriorityKeywords = []string{"urgent", "asap", "important", "emergency", "紧急", "重要", "立即", "马上"}
	lowPriorityKeywords  = []string{"optional", "whenever", "when available", "flexible", "可选", "随意", "灵活"}
)

// ExtractTitle returns the fragment's first line when it is short, with
// numeric dates and clock times removed; otherwise the text leading up to
// the first "YYYY-"/"YYYY年" marker, cleaned the same way. A candidate
// without any letters is rejected. Empty when neither applies.
func ExtractTitle(fragment string) string {
	first, _, _ := strings.Cut(strings.TrimSpace(fragment), "\n")
	first = strings.TrimSpace(first)
	if first != "" && utf8.RuneCountInString(first) < maxTitleLength {
		if title := stripDates(first); hasLetter(title) {
			return title
		}
	}

	if m := titleBeforeRe.FindStringSubmatch(fragment); m != nil {
		if title := stripDates(m[1]); hasLetter(title) {
			return title
		}
	}
	return ""
}

func hasLetter(s string) bool {
	return strings.IndexFunc(s, unicode.IsLetter) >= 0
}

func stripDates(line string) string {
	for _, re := range titleNoise {
		line = re.ReplaceAllString(line, " ")
	}
	line = whitespaceRe.ReplaceAllString(line, " ")
	line = spaceBeforeMarkRe.ReplaceAllString(line, "$1")
	line = markRunRe.ReplaceAllString(line, "$1")
	return strings.Trim(line, " ,;:-~")
}

// ExtractLocation looks for an explicit location label. Results of
// maxLocationLength runes or more are rejected.
func ExtractLocation(fragment string) string {
	for _, re := range locationPatterns {
		m := re.FindStringSubmatch(fragment)
		if m == nil {
			continue
		}
		loc := strings.TrimSpace(m[1])
		if loc != "" && utf8.RuneCountInString(loc) < maxLocationLength {
			return loc
		}
	}
	return ""
}

// ExtractDescription returns the cleaned fragment capped at limit runes.
// A non-positive limit means model.MaxDescriptionLength.
func ExtractDescription(fragment string, limit int) string {
	if limit <= 0 {
		limit = model.MaxDescriptionLength
	}
	text := strings.TrimSpace(fragment)
	if utf8.RuneCountInString(text) <= limit {
		return text
	}
	return string([]rune(text)[:limit])
}

// ExtractPriority maps urgency keywords to a priority. High keywords win
// over low ones.
func ExtractPriority(fragment string) model.Priority {
	lower := strings.ToLower(fragment)
	for _, kw := range highPriorityKeywords {
		if strings.Contains(lower, kw) {
			return model.PriorityHigh
		}
	}
	for _, kw := range lowPriorityKeywords {
		if strings.Contains(lower, kw) {
			return model.PriorityLow
		}
	}
	return model.PriorityMedium
}

// ExtractDuration finds an explicit length such as "2小时", "1.5 hours" or
// "30分钟". Hours take precedence over minutes.
func ExtractDuration(fragment string) (time.Duration, bool) {
	if m := durationHoursRe.FindStringSubmatch(fragment); m != nil {
		h, err := strconv.ParseFloat(m[1], 64)
		if err == nil && h > 0 {
			return time.Duration(math.Round(h*60)) * time.Minute, true
		}
	}
	if m := durationMinutesRe.FindStringSubmatch(fragment); m != nil {
		n, err := strconv.Atoi(m[1])
		if err == nil && n > 0 {
			return time.Duration(n) * time.Minute, true
		}
	}
	return 0, false
}
