package structure

import (
	"regexp"
	"strings"
)

var (
	multiSlashRe = regexp.MustCompile(`/{2,}`)
	driveRe      = regexp.MustCompile(`^[A-Za-z]:`)
)

// Normalizer canonicalizes a path string. It holds only immutable
// configuration, so Normalize is a pure function of its input.
type Normalizer struct {
	prefixes []string
}

// NewNormalizer returns a Normalizer that also strips the given project-root
// prefixes. Prefixes are themselves written in normalized form.
func NewNormalizer(rootPrefixes []string) Normalizer {
	var clean []string
	for _, p := range rootPrefixes {
		p = strings.TrimLeft(strings.ReplaceAll(strings.TrimSpace(p), `\`, "/"), "/")
		if p != "" {
			clean = append(clean, p)
		}
	}
	return Normalizer{prefixes: clean}
}

// Normalize applies the rewrite steps until the string stops changing, which
// makes Normalize(Normalize(s)) == Normalize(s) for every s. Each step either
// shortens the string or removes a backslash, so the loop terminates.
func (n Normalizer) Normalize(s string) string {
	for {
		next := n.step(s)
		if next == s {
			return s
		}
		s = next
	}
}

func (n Normalizer) step(s string) string {
	s = strings.ReplaceAll(s, `\`, "/")
	s = strings.TrimSpace(s)
	switch {
	case strings.HasPrefix(s, "./"):
		s = s[2:]
	case strings.HasPrefix(s, "/"):
		s = s[1:]
	}
	s = multiSlashRe.ReplaceAllString(s, "/")
	s = driveRe.ReplaceAllString(s, "")
	for _, p := range n.prefixes {
		if strings.HasPrefix(s, p) {
			s = s[len(p):]
			break
		}
	}
	return strings.TrimSpace(s)
}
