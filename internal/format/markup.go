// Package format turns the light markdown returned by the analysis model into
// the HTML subset Telegram accepts.
package format

import (
	"html"
	"strings"
)

// NutritionHTML escapes text and converts **bold**, _italic_ and "* " / "- "
// bullets. Unbalanced markers are left as they are.
func NutritionHTML(text string) string {
	text = html.EscapeString(text)
	text = wrapPairs(text, "**", "<b>", "</b>")

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		line = strings.TrimSpace(line)
		if isBullet(line) {
			line = "• " + strings.TrimSpace(line[1:])
		}
		lines[i] = wrapPairs(line, "_", "<i>", "</i>")
	}
	return strings.Join(lines, "\n")
}

func isBullet(line string) bool {
	if len(line) < 2 || (line[0] != '*' && line[0] != '-') {
		return false
	}
	return line[1] == ' ' || line[1] == '\t'
}

// wrapPairs replaces every complete pair of marker with open/close tags.
func wrapPairs(s, marker, open, shut string) string {
	parts := strings.Split(s, marker)
	if len(parts) < 3 {
		return s
	}

	var b strings.Builder
	last := len(parts) - 1
	// an even number of parts means the final marker has no partner
	if len(parts)%2 == 0 {
		last--
	}
	for i := 0; i <= last; i++ {
		if i%2 == 1 {
			b.WriteString(open + parts[i] + shut)
		} else {
			b.WriteString(parts[i])
		}
	}
	for i := last + 1; i < len(parts); i++ {
		b.WriteString(marker + parts[i])
	}
	return b.String()
}
