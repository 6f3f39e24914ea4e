package facematch

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// RemoveDiacritics removes diacritical marks from a string (e.g., "Jiří" -> "Jiri").
func RemoveDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, _ := transform.String(t, s)
	return result
}

// NormalizePersonName normalizes a name for comparison (lowercase, no diacritics, spaces for dashes).
func NormalizePersonName(name string) string {
	name = RemoveDiacritics(name)
	name = strings.ToLower(name)
	name = strings.ReplaceAll(name, "-", " ")
	return strings.TrimSpace(name)
}

// MatchesStudentQuery reports whether a search query selects a student.
// The query matches a substring of the normalized full name or the exact student ID.
// An empty query matches everyone.
func MatchesStudentQuery(firstName, lastName, studentID, query string) bool {
	if query == "" {
		return true
	}
	if studentID == query {
		return true
	}
	q := NormalizePersonName(query)
	if q == "" {
		return false
	}
	return strings.Contains(NormalizePersonName(firstName+" "+lastName), q)
}
