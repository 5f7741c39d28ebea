package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/teambition/rrule-go"
)

func TestExtractRecurrence(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Standup every day at 9", "FREQ=DAILY"},
		{"每天早上跑步", "FREQ=DAILY"},
		{"weekly sync", "FREQ=WEEKLY"},
		{"每周一例会", "FREQ=WEEKLY;BYDAY=MO"},
		{"Every Friday review", "FREQ=WEEKLY;BYDAY=FR"},
		{"weekly sync on Monday and Wednesday", "FREQ=WEEKLY;BYDAY=MO,WE"},
		{"Mondays and Thursdays gym", "FREQ=WEEKLY;BYDAY=MO,TH"},
		{"monthly report", "FREQ=MONTHLY"},
		{"每个月的账单", "FREQ=MONTHLY"},
		{"annually renew domain", "FREQ=YEARLY"},
		{"每年生日聚会", "FREQ=YEARLY"},
		{"one-off dentist appointment", ""},
		{"下周三开会", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractRecurrence(tt.in))
		})
	}
}

func TestExtractRecurrence_ProducesParsableRule(t *testing.T) {
	value := ExtractRecurrence("每周二、周四 瑜伽")
	require.Equal(t, "FREQ=WEEKLY;BYDAY=TU,TH", value)

	r, err := rrule.StrToRRule(value)
	require.NoError(t, err)
	assert.Equal(t, rrule.WEEKLY, r.OrigOptions.Freq)
}
