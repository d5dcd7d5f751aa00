package core

import (
	"strings"
	"unicode"
)

// fallbackName replaces a selection with nothing usable in a file name.
const fallbackName = "sin_nombre"

// ExportFilename returns <prefix><selection>.xlsx with the selection
// made safe for a file name. Letters outside ASCII are kept.
func ExportFilename(prefix, selection string) string {
	return prefix + sanitizeFilename(selection) + ".xlsx"
}

func sanitizeFilename(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case strings.ContainsRune(`/\:*?"<>|`, r), unicode.IsControl(r):
			b.WriteRune('_')
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		default:
			b.WriteRune(r)
		}
	}

	name := strings.Trim(b.String(), " .")
	name = strings.Join(strings.Fields(name), " ")
	if name == "" {
		return fallbackName
	}
	return name
}
