package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDateOfKeepsLocalDay(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*60*60)
	late := time.Date(2025, 3, 10, 1, 30, 0, 0, loc) // still the 9th in UTC

	got := DateOf(late)
	require.Equal(t, time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), got)
}

func TestDaysBetween(t *testing.T) {
	base := time.Date(2025, 3, 1, 23, 59, 0, 0, time.UTC)

	require.Equal(t, 0, DaysBetween(base, base))
	require.Equal(t, 1, DaysBetween(base, base.Add(2*time.Minute)))
	require.Equal(t, 8, DaysBetween(base, base.AddDate(0, 0, 8)))
	require.Equal(t, -3, DaysBetween(base, base.AddDate(0, 0, -3)))
}

func TestIsSupportedLanguage(t *testing.T) {
	require.True(t, IsSupportedLanguage("en"))
	require.True(t, IsSupportedLanguage("ru"))
	require.False(t, IsSupportedLanguage("de"))
	require.False(t, IsSupportedLanguage(""))
}
