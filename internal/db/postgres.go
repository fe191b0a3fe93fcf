package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgtype"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"calorie-bot/config"
	"calorie-bot/internal/models"
)

type PostgresDB struct {
	pool *pgxpool.Pool
}

func NewPostgresDB(cfg config.Database) (*PostgresDB, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s pool_max_conns=%d",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode, cfg.MaxOpenConns,
	)

	poolConfig, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DB connection string: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxOpenConns)
	poolConfig.MinConns = int32(cfg.MaxIdleConns)
	poolConfig.MaxConnLifetime = cfg.ConnLifetime
	poolConfig.MaxConnIdleTime = 15 * time.Minute

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.ConnectConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db := &PostgresDB{pool: pool}
	if err := db.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return db, nil
}

func (db *PostgresDB) Close() {
	if db.pool != nil {
		db.pool.Close()
	}
}

func (db *PostgresDB) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			user_id BIGINT PRIMARY KEY,
			language VARCHAR(8) NOT NULL DEFAULT 'en',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS food_diary (
			id BIGSERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL REFERENCES users(user_id) ON DELETE CASCADE,
			calories INTEGER NOT NULL CHECK (calories > 0),
			date DATE NOT NULL,
			time TIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_food_diary_user_date ON food_diary(user_id, date)`,
		`CREATE TABLE IF NOT EXISTS user_stats (
			user_id BIGINT PRIMARY KEY REFERENCES users(user_id) ON DELETE CASCADE,
			first_use_date DATE NOT NULL,
			last_donation_prompt DATE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
	}

	for _, stmt := range stmts {
		if _, err := db.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

func ensureUser(ctx context.Context, tx pgx.Tx, userID int64) error {
	_, err := tx.Exec(ctx, `INSERT INTO users (user_id) VALUES ($1) ON CONFLICT (user_id) DO NOTHING`, userID)
	return err
}

// GetLanguage returns the stored language or DefaultLanguage for unknown users.
func (db *PostgresDB) GetLanguage(ctx context.Context, userID int64) (string, error) {
	var lang string
	err := db.pool.QueryRow(ctx, `SELECT language FROM users WHERE user_id = $1`, userID).Scan(&lang)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.DefaultLanguage, nil
	}
	if err != nil {
		return "", fmt.Errorf("get language: %w", err)
	}
	return lang, nil
}

func (db *PostgresDB) SetLanguage(ctx context.Context, userID int64, lang string) error {
	query := `
        INSERT INTO users (user_id, language)
        VALUES ($1, $2)
        ON CONFLICT (user_id) DO UPDATE
        SET language = EXCLUDED.language
    `
	if _, err := db.pool.Exec(ctx, query, userID, lang); err != nil {
		return fmt.Errorf("set language: %w", err)
	}
	return nil
}

// AppendFoodEntry stores calories eaten at the given moment. The calendar
// day and time of day are taken from at as is.
func (db *PostgresDB) AppendFoodEntry(ctx context.Context, userID int64, calories int, at time.Time) error {
	err := db.pool.BeginFunc(ctx, func(tx pgx.Tx) error {
		if err := ensureUser(ctx, tx, userID); err != nil {
			return err
		}
		_, err := tx.Exec(ctx,
			`INSERT INTO food_diary (user_id, calories, date, time) VALUES ($1, $2, $3, $4)`,
			userID, calories, models.DateOf(at), at.Format(models.TimeLayout),
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("append food entry: %w", err)
	}
	return nil
}

func (db *PostgresDB) DailyTotal(ctx context.Context, userID int64, date time.Time) (int, error) {
	var total int
	err := db.pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(calories), 0) FROM food_diary WHERE user_id = $1 AND date = $2`,
		userID, models.DateOf(date),
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("daily total: %w", err)
	}
	return total, nil
}

// AllDailyTotals lists every user with recorded activity (a food entry or a
// first use date) together with their total for date, zero when nothing was
// logged that day.
func (db *PostgresDB) AllDailyTotals(ctx context.Context, date time.Time) ([]models.DailyTotal, error) {
	query := `
        SELECT u.user_id, COALESCE(SUM(f.calories) FILTER (WHERE f.date = $1), 0)
        FROM (SELECT user_id FROM food_diary UNION SELECT user_id FROM user_stats) u
        LEFT JOIN food_diary f ON f.user_id = u.user_id
        GROUP BY u.user_id
        ORDER BY u.user_id
    `
	rows, err := db.pool.Query(ctx, query, models.DateOf(date))
	if err != nil {
		return nil, fmt.Errorf("all daily totals: %w", err)
	}
	defer rows.Close()

	var out []models.DailyTotal
	for rows.Next() {
		var t models.DailyTotal
		if err := rows.Scan(&t.UserID, &t.Total); err != nil {
			return nil, fmt.Errorf("all daily totals: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// RecordFirstUse stores date as the first use date unless one already exists.
func (db *PostgresDB) RecordFirstUse(ctx context.Context, userID int64, date time.Time) error {
	err := db.pool.BeginFunc(ctx, func(tx pgx.Tx) error {
		if err := ensureUser(ctx, tx, userID); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `
            INSERT INTO user_stats (user_id, first_use_date)
            VALUES ($1, $2)
            ON CONFLICT (user_id) DO NOTHING
        `, userID, models.DateOf(date))
		return err
	})
	if err != nil {
		return fmt.Errorf("record first use: %w", err)
	}
	return nil
}

func (db *PostgresDB) GetFirstUse(ctx context.Context, userID int64) (*time.Time, error) {
	return db.statsDate(ctx, `SELECT first_use_date FROM user_stats WHERE user_id = $1`, userID)
}

func (db *PostgresDB) GetLastDonationPrompt(ctx context.Context, userID int64) (*time.Time, error) {
	return db.statsDate(ctx, `SELECT last_donation_prompt FROM user_stats WHERE user_id = $1`, userID)
}

func (db *PostgresDB) SetLastDonationPrompt(ctx context.Context, userID int64, date time.Time) error {
	_, err := db.pool.Exec(ctx,
		`UPDATE user_stats SET last_donation_prompt = $2 WHERE user_id = $1`,
		userID, models.DateOf(date),
	)
	if err != nil {
		return fmt.Errorf("set last donation prompt: %w", err)
	}
	return nil
}

// statsDate reads a nullable DATE column; both a missing row and NULL give nil.
func (db *PostgresDB) statsDate(ctx context.Context, query string, userID int64) (*time.Time, error) {
	var d pgtype.Date
	err := db.pool.QueryRow(ctx, query, userID).Scan(&d)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read user stats: %w", err)
	}
	if d.Status != pgtype.Present {
		return nil, nil
	}
	t := models.DateOf(d.Time)
	return &t, nil
}
