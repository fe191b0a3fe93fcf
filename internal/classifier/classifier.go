// Package classifier decides whether free text that matched no button or
// command should be analysed as a meal description.
package classifier

import (
	"strings"
	"unicode"
)

// LooksLikeFood reports whether text has more than one word or contains a
// digit. A single word such as "pizza" is not treated as food.
func LooksLikeFood(text string) bool {
	if len(strings.Fields(text)) > 1 {
		return true
	}
	return strings.IndexFunc(text, unicode.IsDigit) >= 0
}
