package models

import "time"

const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04:05"
)

// FoodEntry is one logged meal. Date holds a calendar day (see DateOf).
type FoodEntry struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Calories  int       `json:"calories"`
	Date      time.Time `json:"date"`
	TimeOfDay string    `json:"time"`
}

// DailyTotal is the calorie sum for one user on one day.
type DailyTotal struct {
	UserID int64 `json:"user_id"`
	Total  int   `json:"total"`
}

// DateOf strips the clock from t, keeping the calendar day as seen in t's
// location. The result is midnight UTC so dates compare with ==.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the number of calendar days from a to b.
func DaysBetween(a, b time.Time) int {
	return int(DateOf(b).Sub(DateOf(a)).Hours() / 24)
}
