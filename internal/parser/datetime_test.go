package parser

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, 11, 20, 8, 30, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

type mockNatural struct {
	mock.Mock
}

func (m *mockNatural) ParseNatural(text string, loc *time.Location, now time.Time) (time.Time, bool) {
	args := m.Called(text, loc, now)
	return args.Get(0).(time.Time), args.Bool(1)
}

type panickingNatural struct{}

func (panickingNatural) ParseNatural(string, *time.Location, time.Time) (time.Time, bool) {
	panic("boom")
}

func date(y int, m time.Month, d, h, min int) time.Time {
	return time.Date(y, m, d, h, min, 0, 0, time.UTC)
}

func TestParseSimpleDate_Cascade(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want time.Time
	}{
		{"iso", "2025-11-22", date(2025, 11, 22, 0, 0)},
		{"iso slash with time", "2025/11/22 14:30", date(2025, 11, 22, 14, 30)},
		{"iso T separator", "2025-11-22T09:05", date(2025, 11, 22, 9, 5)},
		{"day first", "22/11/2025", date(2025, 11, 22, 0, 0)},
		{"day first wins when ambiguous", "03/04/2025", date(2025, 4, 3, 0, 0)},
		{"month first when day first is invalid", "11/22/2025 18:00", date(2025, 11, 22, 18, 0)},
		{"month name", "Nov 22nd, 2025 at 3:15 pm", date(2025, 11, 22, 15, 15)},
		{"month name without year", "December 25", date(2026, 12, 25, 0, 0)},
		{"day then month name", "22 November 2025 10:00", date(2025, 11, 22, 10, 0)},
		{"day of month name", "1st of March, 2025", date(2025, 3, 1, 0, 0)},
		{"chinese full date", "2025年11月22日 下午3点半", date(2025, 11, 22, 15, 30)},
		{"chinese full date colon", "2025年11月22日 14：05", date(2025, 11, 22, 14, 5)},
		{"chinese two digit year", "25年3月1日", date(2025, 3, 1, 0, 0)},
		{"chinese month day", "11月22日14:00", date(2026, 11, 22, 14, 0)},
		{"chinese minutes", "3月8号上午9点15分", date(2026, 3, 8, 9, 15)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseSimpleDate(tt.in, 2026, time.UTC)
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseSimpleDate_RejectsInvalid(t *testing.T) {
	for _, in := range []string{"", "2025-02-30", "2025-13-01", "31/02/2025", "no date here", "2025-11-22 25:00"} {
		t.Run(in, func(t *testing.T) {
			_, ok := ParseSimpleDate(in, 2025, time.UTC)
			assert.False(t, ok)
		})
	}
}

func TestExtractRange(t *testing.T) {
	x := NewDateTimeExtractor(nil, clock)

	tests := []struct {
		name      string
		in        string
		wantStart time.Time
		wantEnd   time.Time
	}{
		{
			name:      "time range on anchor date",
			in:        "2025-11-22 14:30-15:30",
			wantStart: date(2025, 11, 22, 14, 30),
			wantEnd:   date(2025, 11, 22, 15, 30),
		},
		{
			name:      "date range end of day",
			in:        "2025-11-24-2025-11-25",
			wantStart: date(2025, 11, 24, 0, 0),
			wantEnd:   date(2025, 11, 25, 23, 59),
		},
		{
			name:      "date range with trailing time",
			in:        "Date: 2025/11/24-2025/11/25, 14:30, urgent",
			wantStart: date(2025, 11, 24, 14, 30),
			wantEnd:   date(2025, 11, 25, 23, 59),
		},
		{
			name:      "date range with trailing time range",
			in:        "2025-11-24 to 2025-11-26 09:00-17:00",
			wantStart: date(2025, 11, 24, 9, 0),
			wantEnd:   date(2025, 11, 26, 17, 0),
		},
		{
			name:      "chinese date range",
			in:        "2025年11月24日到2025年11月25日",
			wantStart: date(2025, 11, 24, 0, 0),
			wantEnd:   date(2025, 11, 25, 23, 59),
		},
		{
			name:      "overnight rollover",
			in:        "Deploy 2025-11-22 23:00-01:00",
			wantStart: date(2025, 11, 22, 23, 0),
			wantEnd:   date(2025, 11, 23, 1, 0),
		},
		{
			name:      "single point",
			in:        "Lunch on 2025-11-22 12:15",
			wantStart: date(2025, 11, 22, 12, 15),
		},
		{
			name: "nothing parses",
			in:   "just some random text",
		},
		{
			name: "empty",
			in:   "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end := x.ExtractRange(tt.in, time.UTC)
			assert.Equal(t, tt.wantStart, start)
			assert.Equal(t, tt.wantEnd, end)
		})
	}
}

func TestExtractRange_UsesLocation(t *testing.T) {
	loc := time.FixedZone("UTC+8", 8*3600)
	x := NewDateTimeExtractor(nil, clock)

	start, end := x.ExtractRange("2025-11-22 14:30-15:30", loc)
	assert.Equal(t, loc, start.Location())
	assert.Equal(t, 14, start.Hour())
	assert.Equal(t, time.Hour, end.Sub(start))
}

func TestExtractRange_NaturalFirst(t *testing.T) {
	tomorrow := date(2025, 11, 21, 0, 0)

	nl := &mockNatural{}
	nl.On("ParseNatural", "明天 14:00-15:00", time.UTC, fixedNow).Return(tomorrow, true).Once()

	x := NewDateTimeExtractor(nl, clock)
	start, end := x.ExtractRange("明天 14:00-15:00", time.UTC)

	assert.Equal(t, date(2025, 11, 21, 14, 0), start)
	assert.Equal(t, date(2025, 11, 21, 15, 0), end)
	nl.AssertExpectations(t)
}

func TestExtractRange_NaturalMissFallsBackToRegex(t *testing.T) {
	nl := &mockNatural{}
	nl.On("ParseNatural", mock.Anything, mock.Anything, mock.Anything).Return(time.Time{}, false)

	x := NewDateTimeExtractor(nl, clock)
	start, end := x.ExtractRange("Review 22/11/2025 10:00", time.UTC)

	assert.Equal(t, date(2025, 11, 22, 10, 0), start)
	assert.True(t, end.IsZero())
	nl.AssertNumberOfCalls(t, "ParseNatural", 1)
}

func TestExtractRange_NaturalPanicFallsBackToRegex(t *testing.T) {
	x := NewDateTimeExtractor(panickingNatural{}, clock)

	start, _ := x.ExtractRange("2025-11-22 09:00", time.UTC)
	assert.Equal(t, date(2025, 11, 22, 9, 0), start)
}

func TestExtractRange_DateRangeSkipsNatural(t *testing.T) {
	nl := &mockNatural{}
	x := NewDateTimeExtractor(nl, clock)

	start, end := x.ExtractRange("2025-11-24-2025-11-25", time.UTC)
	assert.Equal(t, date(2025, 11, 24, 0, 0), start)
	assert.Equal(t, date(2025, 11, 25, 23, 59), end)
	nl.AssertNotCalled(t, "ParseNatural", mock.Anything, mock.Anything, mock.Anything)
}

func TestExtractRange_NaturalReadsEmbeddedPhrase(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		phrase string
	}{
		{"chinese", "明天下午2点开会", "明天下午2点"},
		{"english", "Dentist tomorrow at 2pm, bring the forms", "tomorrow at 2pm"},
		{"weekday", "Planning next Monday 14:00 in room B", "next Monday 14:00"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			want := date(2025, 11, 21, 14, 0)

			nl := &mockNatural{}
			nl.On("ParseNatural", tt.phrase, time.UTC, fixedNow).Return(want, true).Once()
			nl.On("ParseNatural", mock.Anything, time.UTC, fixedNow).Return(time.Time{}, false)

			x := NewDateTimeExtractor(nl, clock)
			start, end := x.ExtractRange(tt.text, time.UTC)

			assert.Equal(t, want, start)
			assert.True(t, end.IsZero())
			nl.AssertCalled(t, "ParseNatural", tt.text, time.UTC, fixedNow)
			nl.AssertCalled(t, "ParseNatural", tt.phrase, time.UTC, fixedNow)
		})
	}
}

func TestRelativePhrases(t *testing.T) {
	assert.Equal(t, []string{"明天下午2点"}, relativePhrases("明天下午2点开会"))
	assert.Equal(t, []string{"下周三"}, relativePhrases("下周三交报告"))
	assert.Equal(t, []string{"tomorrow at 9:30 am"}, relativePhrases("Standup tomorrow at 9:30 am sharp"))
	assert.Equal(t, []string{"in 3 days"}, relativePhrases("Ship it in 3 days"))
	assert.Empty(t, relativePhrases("tomorrow"))
	assert.Empty(t, relativePhrases("Review 2025-11-24 10:00"))
}
