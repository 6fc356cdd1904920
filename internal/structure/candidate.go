package structure

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// MaxCandidateLen bounds a cleaned candidate; longer lines are prose.
const MaxCandidateLen = 500

var (
	// extRe matches a trailing short extension such as ".ts" or ".sqlite".
	extRe = regexp.MustCompile(`\.[A-Za-z0-9]{1,6}$`)

	// bareRe matches a bare segment/segment shape without spaces.
	bareRe = regexp.MustCompile(`^[\w.@-]+(/[\w.@-]+)+/?$`)

	// listMarkerRe matches bullets ("-", "*", "+", "•") and ordinals ("1.", "1)").
	listMarkerRe = regexp.MustCompile(`^\s*(?:[-*+•]|\d+[.)])\s+`)
)

// hasSeparator reports whether s contains a forward or back slash.
func hasSeparator(s string) bool {
	return strings.ContainsAny(s, `/\`)
}

// HasExtension reports whether name ends in a 1-6 character alphanumeric extension.
func HasExtension(name string) bool {
	return extRe.MatchString(name)
}

// IsCandidate is the line filter: a line may describe a path if it contains
// a separator, ends in a short extension, or has a bare seg/seg shape.
func IsCandidate(line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}
	return hasSeparator(line) || HasExtension(line) || bareRe.MatchString(line)
}

// Clean strips list markers and surrounding backticks from a candidate line.
// The second result is false when nothing usable is left: the cleaned text
// must be non-empty, shorter than MaxCandidateLen characters, and still contain a separator.
func Clean(line string) (string, bool) {
	s := strings.TrimSpace(line)
	s = listMarkerRe.ReplaceAllString(s, "")
	s = strings.TrimSpace(s)
	s = strings.Trim(s, "`")
	s = strings.TrimSpace(s)

	if s == "" || utf8.RuneCountInString(s) >= MaxCandidateLen || !hasSeparator(s) {
		return "", false
	}
	return s, true
}
