// internal/models/user.go
package models

import (
	"time"
)

const (
	LangEnglish = "en"
	LangRussian = "ru"

	DefaultLanguage = LangEnglish
)

// SupportedLanguages lists the language codes offered in the language menu.
var SupportedLanguages = []string{LangEnglish, LangRussian}

func IsSupportedLanguage(code string) bool {
	for _, l := range SupportedLanguages {
		if l == code {
			return true
		}
	}
	return false
}

type User struct {
	ID                 int64      `json:"id"`
	Language           string     `json:"language"`
	FirstUseDate       *time.Time `json:"first_use_date,omitempty"`
	LastDonationPrompt *time.Time `json:"last_donation_prompt,omitempty"`
}
