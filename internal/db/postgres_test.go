package db

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"calorie-bot/config"
	"calorie-bot/internal/models"
)

// newTestPostgres connects to the database named by TEST_DB_HOST and friends.
// The tests are skipped when it is not set.
func newTestPostgres(t *testing.T) *PostgresDB {
	t.Helper()
	host := os.Getenv("TEST_DB_HOST")
	if host == "" {
		t.Skip("TEST_DB_HOST not set")
	}

	cfg := config.Database{
		Host:         host,
		Port:         envOr("TEST_DB_PORT", "5432"),
		User:         envOr("TEST_DB_USER", "postgres"),
		Password:     envOr("TEST_DB_PASSWORD", "postgres"),
		DBName:       envOr("TEST_DB_NAME", "calorie_bot_test"),
		SSLMode:      "disable",
		MaxOpenConns: 4,
		MaxIdleConns: 1,
		ConnLifetime: time.Minute,
	}
	db, err := NewPostgresDB(cfg)
	require.NoError(t, err)
	t.Cleanup(db.Close)
	return db
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// testUser returns a user id unlikely to clash and removes its rows afterwards.
func testUser(t *testing.T, db *PostgresDB) int64 {
	id := time.Now().UnixNano()
	t.Cleanup(func() {
		_, _ = db.pool.Exec(context.Background(), `DELETE FROM users WHERE user_id = $1`, id)
	})
	return id
}

func TestPostgres_Language(t *testing.T) {
	db := newTestPostgres(t)
	ctx := context.Background()
	user := testUser(t, db)

	lang, err := db.GetLanguage(ctx, user)
	require.NoError(t, err)
	require.Equal(t, models.DefaultLanguage, lang)

	require.NoError(t, db.SetLanguage(ctx, user, models.LangRussian))
	lang, err = db.GetLanguage(ctx, user)
	require.NoError(t, err)
	require.Equal(t, models.LangRussian, lang)
}

func TestPostgres_EntriesAndTotals(t *testing.T) {
	db := newTestPostgres(t)
	ctx := context.Background()
	user := testUser(t, db)
	today := time.Date(2025, 6, 10, 13, 45, 0, 0, time.UTC)

	require.NoError(t, db.AppendFoodEntry(ctx, user, 300, today))
	require.NoError(t, db.AppendFoodEntry(ctx, user, 450, today.Add(time.Hour)))
	require.NoError(t, db.AppendFoodEntry(ctx, user, 999, today.AddDate(0, 0, -1)))

	total, err := db.DailyTotal(ctx, user, today)
	require.NoError(t, err)
	require.Equal(t, 750, total)

	totals, err := db.AllDailyTotals(ctx, today)
	require.NoError(t, err)
	require.Contains(t, totals, models.DailyTotal{UserID: user, Total: 750})

	totals, err = db.AllDailyTotals(ctx, today.AddDate(0, 0, 5))
	require.NoError(t, err)
	require.Contains(t, totals, models.DailyTotal{UserID: user, Total: 0})
}

func TestPostgres_UserStats(t *testing.T) {
	db := newTestPostgres(t)
	ctx := context.Background()
	user := testUser(t, db)
	first := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

	got, err := db.GetFirstUse(ctx, user)
	require.NoError(t, err)
	require.Nil(t, got)

	require.NoError(t, db.RecordFirstUse(ctx, user, first))
	require.NoError(t, db.RecordFirstUse(ctx, user, first.AddDate(0, 0, 3)))
	got, err = db.GetFirstUse(ctx, user)
	require.NoError(t, err)
	require.Equal(t, models.DateOf(first), *got)

	last, err := db.GetLastDonationPrompt(ctx, user)
	require.NoError(t, err)
	require.Nil(t, last)

	prompt := first.AddDate(0, 0, 1)
	require.NoError(t, db.SetLastDonationPrompt(ctx, user, prompt))
	last, err = db.GetLastDonationPrompt(ctx, user)
	require.NoError(t, err)
	require.Equal(t, models.DateOf(prompt), *last)
}
