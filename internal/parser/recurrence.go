package parser

import (
	"regexp"

	"github.com/teambition/rrule-go"

	appLog "easyics/internal/log"
)

type recurrenceRule struct {
	freq rrule.Frequency
	re   *regexp.Regexp
}

// Most specific first: "every week" must not be read as "every day".
var recurrenceRules = []recurrenceRule{
	{freq: rrule.YEARLY, re: regexp.MustCompile(`(?i)\b(?:every\s+year|yearly|annually)\b|每年`)},
	{freq: rrule.MONTHLY, re: regexp.MustCompile(`(?i)\b(?:every\s+month|monthly)\b|每个?月`)},
	{freq: rrule.WEEKLY, re: regexp.MustCompile(`(?i)\b(?:every\s+week|weekly|every\s+(?:mon|tues|wednes|thurs|fri|satur|sun)day|(?:mon|tues|wednes|thurs|fri|satur|sun)days)\b|每周|每星期|每个?礼拜`)},
	{freq: rrule.DAILY, re: regexp.MustCompile(`(?i)\b(?:every\s+day|daily)\b|每天|每日`)},
}

var weekdayPatterns = []struct {
	day rrule.Weekday
	re  *regexp.Regexp
}{
	{rrule.MO, regexp.MustCompile(`(?i)\bmondays?\b|(?:周|星期|礼拜)一`)},
	{rrule.TU, regexp.MustCompile(`(?i)\btuesdays?\b|(?:周|星期|礼拜)二`)},
	{rrule.WE, regexp.MustCompile(`(?i)\bwednesdays?\b|(?:周|星期|礼拜)三`)},
	{rrule.TH, regexp.MustCompile(`(?i)\bthursdays?\b|(?:周|星期|礼拜)四`)},
	{rrule.FR, regexp.MustCompile(`(?i)\bfridays?\b|(?:周|星期|礼拜)五`)},
	{rrule.SA, regexp.MustCompile(`(?i)\bsaturdays?\b|(?:周|星期|礼拜)六`)},
	{rrule.SU, regexp.MustCompile(`(?i)\bsundays?\b|(?:周|星期|礼拜)[日天]`)},
}

// ExtractRecurrence detects a repeat phrase and returns the matching RRULE
// value (no "RRULE:" prefix), e.g. "FREQ=WEEKLY;BYDAY=MO,WE". Empty when
// the fragment does not recur.
func ExtractRecurrence(fragment string) string {
	for _, rule := range recurrenceRules {
		if !rule.re.MatchString(fragment) {
			continue
		}
		opt := rrule.ROption{Freq: rule.freq}
		if rule.freq == rrule.WEEKLY {
			opt.Byweekday = weekdaysIn(fragment)
		}
		value := opt.RRuleString()
		if _, err := rrule.StrToRRule(value); err != nil {
			appLog.Warn("discarding invalid recurrence", "rrule", value, "error", err)
			return ""
		}
		return value
	}
	return ""
}

func weekdaysIn(fragment string) []rrule.Weekday {
	var days []rrule.Weekday
	for _, wp := range weekdayPatterns {
		if wp.re.MatchString(fragment) {
			days = append(days, wp.day)
		}
	}
	return days
}
