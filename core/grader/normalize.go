package grader

import (
	"strings"
	"unicode"
)

// arabic letter variants folded to one canonical letter
var arabicFolds = strings.NewReplacer(
	"أ", "ا", "إ", "ا", "آ", "ا",
	"ى", "ي",
	"ة", "ه",
	"ؤ", "و", "ئ", "و",
)

// Normalize maps a free-text answer to its canonical comparable form:
// lower case, single spaces, only word characters, spaces and Arabic letters,
// with Arabic letter variants folded. It never fails; blank input gives "".
func Normalize(s string) string {
	s = strings.ToLower(s)
	s = collapseSpaces(s)
	s = strings.Map(func(r rune) rune {
		if isKept(r) {
			return r
		}
		return -1
	}, s)
	s = arabicFolds.Replace(s)
	// stripping can leave doubled spaces behind ("a - b"), tidy them up
	return collapseSpaces(s)
}

func collapseSpaces(s string) string {
	return strings.Join(strings.FieldsFunc(s, isSpace), " ")
}

// isSpace matches the whitespace class used by browsers' regex engines.
func isSpace(r rune) bool {
	if r == '\uFEFF' {
		return true
	}
	return r != '\u0085' && unicode.IsSpace(r)
}

func isKept(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
		return true
	case r >= '\u0600' && r <= '\u06FF':
		return true
	}
	return isSpace(r)
}

func isBlank(s string) bool {
	return strings.TrimFunc(s, isSpace) == ""
}
