package nldate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_DefaultsLanguages(t *testing.T) {
	assert.Equal(t, []string{"en", "zh"}, New(nil).Languages())
	assert.Equal(t, []string{"en"}, New([]string{" EN ", ""}).Languages())
}

func TestParseNatural_EmptyText(t *testing.T) {
	_, ok := New(nil).ParseNatural("   ", time.UTC, time.Now())
	assert.False(t, ok)
}

func TestParseNatural_Relative(t *testing.T) {
	loc := time.FixedZone("UTC+8", 8*3600)
	now := time.Date(2025, 11, 20, 9, 0, 0, 0, loc)

	got, ok := New([]string{"en"}).ParseNatural("tomorrow", loc, now)
	require.True(t, ok)
	assert.Equal(t, loc, got.Location())
	assert.Equal(t, 21, got.Day())
}

func TestParseNatural_Absolute(t *testing.T) {
	now := time.Date(2025, 11, 20, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		langs []string
		text  string
	}{
		{"english", []string{"en"}, "24 November 2025"},
		{"chinese", []string{"zh"}, "2025年11月24日"},
		{"default languages", nil, "November 24, 2025"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := New(tt.langs).ParseNatural(tt.text, time.UTC, now)
			require.True(t, ok)
			assert.Equal(t, 2025, got.Year())
			assert.Equal(t, time.November, got.Month())
			assert.Equal(t, 24, got.Day())
		})
	}
}

func TestParseNatural_Gibberish(t *testing.T) {
	_, ok := New(nil).ParseNatural("qwxz plorb", time.UTC, time.Now())
	assert.False(t, ok)
}
