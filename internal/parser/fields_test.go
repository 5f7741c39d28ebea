package parser

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"

	"easyics/internal/model"
)

func TestExtractTitle(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"first line without date", "Team sync 2025-11-22\nmore details", "Team sync"},
		{"first line plain", "Dentist appointment", "Dentist appointment"},
		{"date only first line falls back", "2025-11-22\nPlanning 2025-11-23", "Planning"},
		{"chinese", "项目评审\n2025年11月22日 下午3点", "项目评审"},
		{"clock with meridiem", "Dinner on Nov 28th 7:30 pm", "Dinner on Nov 28th"},
		{"at with meridiem", "Call Sam at 3pm", "Call Sam"},
		{"time range with meridiem", "Workshop 9:00 am - 11:00 a.m.", "Workshop"},
		{"date range only", "2025-11-24-2025-11-25", ""},
		{"digits only fallback", "2025-11-24 10:00\n12345 2025-11-25", ""},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractTitle(tt.in))
		})
	}
}

func TestExtractTitle_LongFirstLineUsesTextBeforeDate(t *testing.T) {
	long := strings.Repeat("x", 120)
	in := long + "\nBudget review: 2025-11-22"
	assert.Equal(t, "Budget review", ExtractTitle(in))
}

func TestExtractLocation(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"english label", "Team Meeting, Location: Conference Room A, Date: 2025/11/24", "Conference Room A"},
		{"english label upper case", "LOCATION: HQ", "HQ"},
		{"meeting location", "meeting location: Room 5; bring laptop", "Room 5"},
		{"chinese label", "地点：北京。明天见", "北京"},
		{"chinese meeting label", "会议地点:3楼会议室,下午", "3楼会议室"},
		{"chinese address", "地址：朝阳区建国路", "朝阳区建国路"},
		{"no label", "Lunch with Alex at noon", ""},
		{"empty value", "Location: , tomorrow", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractLocation(tt.in))
		})
	}
}

func TestExtractLocation_RejectsOverlong(t *testing.T) {
	assert.Empty(t, ExtractLocation("Location: "+strings.Repeat("a", 250)))
}

func TestExtractDescription(t *testing.T) {
	assert.Equal(t, "short", ExtractDescription("  short ", 0))
	assert.Equal(t, "", ExtractDescription("   ", 0))

	long := strings.Repeat("会", 600)
	got := ExtractDescription(long, 0)
	assert.Equal(t, model.MaxDescriptionLength, utf8.RuneCountInString(got))
	assert.True(t, utf8.ValidString(got))

	assert.Equal(t, "abc", ExtractDescription("abcdef", 3))
}

func TestExtractPriority(t *testing.T) {
	tests := []struct {
		in   string
		want model.Priority
	}{
		{"urgent meeting", model.PriorityHigh},
		{"URGENT: call back", model.PriorityHigh},
		{"reply ASAP", model.PriorityHigh},
		{"紧急会议", model.PriorityHigh},
		{"重要客户拜访", model.PriorityHigh},
		{"optional catch-up", model.PriorityLow},
		{"coffee whenever", model.PriorityLow},
		{"可选培训", model.PriorityLow},
		{"team sync", model.PriorityMedium},
		{"important but optional", model.PriorityHigh},
		{"", model.PriorityMedium},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractPriority(tt.in))
		})
	}
}

func TestExtractDuration(t *testing.T) {
	tests := []struct {
		in     string
		want   time.Duration
		wantOK bool
	}{
		{"开会2小时", 2 * time.Hour, true},
		{"讨论3个小时", 3 * time.Hour, true},
		{"workshop 1.5 hours", 90 * time.Minute, true},
		{"pairing 2h", 2 * time.Hour, true},
		{"休息30分钟", 30 * time.Minute, true},
		{"standup 15 min", 15 * time.Minute, true},
		{"call for 45 minutes", 45 * time.Minute, true},
		{"team sync", 0, false},
		{"0 hours", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ExtractDuration(tt.in)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
