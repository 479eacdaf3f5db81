// utils/text.go
package utils

import (
	"strings"

	"github.com/gosimple/slug"
	"golang.org/x/text/unicode/norm"
)

// CleanText trims surrounding whitespace and NFC-normalises user input so
// visually identical titles compare equal.
func CleanText(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

// Slugify derives a URL-friendly handle from a bounty title.
func Slugify(title string) string {
	return slug.Make(title)
}
