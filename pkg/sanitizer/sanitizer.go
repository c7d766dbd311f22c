package sanitizer

import (
	"strings"
	"unicode"
)

// Strategy is one string cleaning step.
type Strategy func(string) string

// Pipeline runs strategies in order.
type Pipeline []Strategy

func (p Pipeline) Apply(s string) string {
	for _, fn := range p {
		s = fn(s)
	}
	return s
}

func dropControl(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
}

func dropSpaces(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

// NormalizeID cleans an opaque identifier. Case is preserved since room and
// team IDs come from the catalog verbatim.
func NormalizeID(id string) string {
	p := Pipeline{
		strings.TrimSpace,
		dropControl,
		dropSpaces,
	}
	return p.Apply(id)
}

// SanitizeSlice cleans every value, dropping empties and duplicates while
// keeping order.
func SanitizeSlice(values []string, strategy Strategy) []string {
	seen := make(map[string]struct{})
	out := []string{}

	for _, v := range values {
		s := strategy(v)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}

	return out
}
