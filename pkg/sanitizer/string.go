package sanitizer

import (
	"strings"
	"unicode"
)

// stripControl drops control runes but keeps whitespace for collapseSpaces.
func stripControl(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) && !unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

var displayName = Pipeline{stripControl, collapseSpaces}

// TrimAndNormalize trims s and collapses every whitespace run to one space.
func TrimAndNormalize(s string) string {
	return displayName.Apply(s)
}

// NormalizeName cleans a room or team display name.
func NormalizeName(name string) string {
	return displayName.Apply(name)
}

// NormalizeNameForComparison folds case so "Room A" and "room  a" collide.
func NormalizeNameForComparison(name string) string {
	return strings.ToLower(displayName.Apply(name))
}
