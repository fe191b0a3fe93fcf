// Package donation holds the rule for when a user is shown the donation prompt.
package donation

import (
	"time"

	"calorie-bot/internal/models"
)

const (
	firstPromptDay = 1
	interval       = 7
)

// ShouldPrompt reports whether the donation prompt is due today. Users are
// prompted once on the day after their first use, then at most once every
// seven days once the first week is over. Users without a first use date are
// never prompted.
func ShouldPrompt(firstUse, lastPrompt *time.Time, today time.Time) bool {
	if firstUse == nil {
		return false
	}

	sinceFirstUse := models.DaysBetween(*firstUse, today)
	if sinceFirstUse == firstPromptDay {
		return true
	}
	if sinceFirstUse <= interval {
		return false
	}
	if lastPrompt == nil {
		return true
	}
	return models.DaysBetween(*lastPrompt, today) >= interval
}
