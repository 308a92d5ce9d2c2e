package utils

import (
	"strings"

	"github.com/mozillazg/go-unidecode"
)

// Slugify turns a display title into an ASCII url segment
// ("Amélie" -> "amelie", "Spider-Man: No Way Home" -> "spider-man-no-way-home").
func Slugify(title string) string {
	ascii := strings.ToLower(unidecode.Unidecode(title))

	var b strings.Builder
	b.Grow(len(ascii))
	lastDash := true
	for _, r := range ascii {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		case !lastDash:
			b.WriteByte('-')
			lastDash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
