package db

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"calorie-bot/internal/models"
)

func TestMemoryDB_Language(t *testing.T) {
	db := NewMemoryDB()
	ctx := context.Background()

	lang, err := db.GetLanguage(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, models.DefaultLanguage, lang)

	require.NoError(t, db.SetLanguage(ctx, 1, models.LangRussian))
	lang, err = db.GetLanguage(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, models.LangRussian, lang)

	require.NoError(t, db.SetLanguage(ctx, 1, models.LangEnglish))
	lang, _ = db.GetLanguage(ctx, 1)
	require.Equal(t, models.LangEnglish, lang)
}

func TestMemoryDB_DailyTotal(t *testing.T) {
	db := NewMemoryDB()
	ctx := context.Background()
	today := time.Date(2025, 5, 4, 13, 0, 0, 0, time.UTC)
	yesterday := today.AddDate(0, 0, -1)

	require.NoError(t, db.AppendFoodEntry(ctx, 1, 300, today))
	require.NoError(t, db.AppendFoodEntry(ctx, 1, 450, today.Add(2*time.Hour)))
	require.NoError(t, db.AppendFoodEntry(ctx, 1, 999, yesterday))
	require.NoError(t, db.AppendFoodEntry(ctx, 2, 100, today))

	total, err := db.DailyTotal(ctx, 1, today)
	require.NoError(t, err)
	require.Equal(t, 750, total)

	total, err = db.DailyTotal(ctx, 3, today)
	require.NoError(t, err)
	require.Zero(t, total)

	entries := db.Entries(1)
	require.Len(t, entries, 3)
	require.Equal(t, "13:00:00", entries[0].TimeOfDay)
}

func TestMemoryDB_AllDailyTotals(t *testing.T) {
	db := NewMemoryDB()
	ctx := context.Background()
	today := time.Date(2025, 5, 4, 9, 0, 0, 0, time.UTC)

	require.NoError(t, db.AppendFoodEntry(ctx, 2, 200, today.AddDate(0, 0, -2)))
	require.NoError(t, db.AppendFoodEntry(ctx, 1, 500, today))
	require.NoError(t, db.RecordFirstUse(ctx, 3, today))
	require.NoError(t, db.SetLanguage(ctx, 4, models.LangRussian)) // no activity

	totals, err := db.AllDailyTotals(ctx, today)
	require.NoError(t, err)
	require.Equal(t, []models.DailyTotal{
		{UserID: 1, Total: 500},
		{UserID: 2, Total: 0},
		{UserID: 3, Total: 0},
	}, totals)
}

func TestMemoryDB_FirstUseIsWrittenOnce(t *testing.T) {
	db := NewMemoryDB()
	ctx := context.Background()
	first := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)

	got, err := db.GetFirstUse(ctx, 1)
	require.NoError(t, err)
	require.Nil(t, got)

	require.NoError(t, db.RecordFirstUse(ctx, 1, first))
	require.NoError(t, db.RecordFirstUse(ctx, 1, first.AddDate(0, 0, 5)))

	got, err = db.GetFirstUse(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, models.DateOf(first), *got)
}

func TestMemoryDB_LastDonationPrompt(t *testing.T) {
	db := NewMemoryDB()
	ctx := context.Background()
	day := time.Date(2025, 1, 9, 0, 0, 0, 0, time.UTC)

	// no stats row yet: ignored
	require.NoError(t, db.SetLastDonationPrompt(ctx, 1, day))
	got, err := db.GetLastDonationPrompt(ctx, 1)
	require.NoError(t, err)
	require.Nil(t, got)

	require.NoError(t, db.RecordFirstUse(ctx, 1, day.AddDate(0, 0, -8)))
	require.NoError(t, db.SetLastDonationPrompt(ctx, 1, day))
	got, err = db.GetLastDonationPrompt(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, day, *got)
}
