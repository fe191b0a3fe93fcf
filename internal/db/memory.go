package db

import (
	"context"
	"sort"
	"sync"
	"time"

	"calorie-bot/internal/models"
)

// MemoryDB keeps everything in process memory. It backs the "memory" storage
// driver and the tests.
type MemoryDB struct {
	mu      sync.Mutex
	users   map[int64]*models.User
	entries []models.FoodEntry
	nextID  int64
}

func NewMemoryDB() *MemoryDB {
	return &MemoryDB{users: make(map[int64]*models.User)}
}

func (m *MemoryDB) Close() {}

// user returns the record for userID, creating it. Callers hold mu.
func (m *MemoryDB) user(userID int64) *models.User {
	u, ok := m.users[userID]
	if !ok {
		u = &models.User{ID: userID, Language: models.DefaultLanguage}
		m.users[userID] = u
	}
	return u
}

func (m *MemoryDB) GetLanguage(ctx context.Context, userID int64) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if u, ok := m.users[userID]; ok {
		return u.Language, nil
	}
	return models.DefaultLanguage, nil
}

func (m *MemoryDB) SetLanguage(ctx context.Context, userID int64, lang string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.user(userID).Language = lang
	return nil
}

func (m *MemoryDB) AppendFoodEntry(ctx context.Context, userID int64, calories int, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.user(userID)
	m.nextID++
	m.entries = append(m.entries, models.FoodEntry{
		ID:        m.nextID,
		UserID:    userID,
		Calories:  calories,
		Date:      models.DateOf(at),
		TimeOfDay: at.Format(models.TimeLayout),
	})
	return nil
}

func (m *MemoryDB) DailyTotal(ctx context.Context, userID int64, date time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	day := models.DateOf(date)
	total := 0
	for _, e := range m.entries {
		if e.UserID == userID && e.Date.Equal(day) {
			total += e.Calories
		}
	}
	return total, nil
}

func (m *MemoryDB) AllDailyTotals(ctx context.Context, date time.Time) ([]models.DailyTotal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	day := models.DateOf(date)
	totals := make(map[int64]int)
	for _, e := range m.entries {
		if _, ok := totals[e.UserID]; !ok {
			totals[e.UserID] = 0
		}
		if e.Date.Equal(day) {
			totals[e.UserID] += e.Calories
		}
	}
	for id, u := range m.users {
		if _, ok := totals[id]; !ok && u.FirstUseDate != nil {
			totals[id] = 0
		}
	}

	out := make([]models.DailyTotal, 0, len(totals))
	for id, total := range totals {
		out = append(out, models.DailyTotal{UserID: id, Total: total})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

func (m *MemoryDB) RecordFirstUse(ctx context.Context, userID int64, date time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u := m.user(userID)
	if u.FirstUseDate == nil {
		d := models.DateOf(date)
		u.FirstUseDate = &d
	}
	return nil
}

func (m *MemoryDB) GetFirstUse(ctx context.Context, userID int64) (*time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if u, ok := m.users[userID]; ok && u.FirstUseDate != nil {
		d := *u.FirstUseDate
		return &d, nil
	}
	return nil, nil
}

func (m *MemoryDB) GetLastDonationPrompt(ctx context.Context, userID int64) (*time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if u, ok := m.users[userID]; ok && u.LastDonationPrompt != nil {
		d := *u.LastDonationPrompt
		return &d, nil
	}
	return nil, nil
}

// SetLastDonationPrompt only applies to users with a first use date, like the
// Postgres user_stats row it mirrors.
func (m *MemoryDB) SetLastDonationPrompt(ctx context.Context, userID int64, date time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if u, ok := m.users[userID]; ok && u.FirstUseDate != nil {
		d := models.DateOf(date)
		u.LastDonationPrompt = &d
	}
	return nil
}

// Entries returns a copy of the stored food entries of userID.
func (m *MemoryDB) Entries(userID int64) []models.FoodEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []models.FoodEntry
	for _, e := range m.entries {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	return out
}
