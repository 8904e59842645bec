// Package match selects the search-result candidate that actually is the
// queried book, or declares that none is. A wrong pick silently corrupts
// the aggregate average, so the matcher prefers reporting no match over
// guessing.
package match

import (
	"regexp"
	"strings"
	"unicode"

	"bookhub/pkg/models"
)

// multiCountRe catches bundle notation like "3종", "2종 세트".
var multiCountRe = regexp.MustCompile(`\d+\s*종`)

type Matcher struct {
	markers  []string
	minScore float64
}

// New builds a Matcher with the given exclusion-marker list and minimum
// token-containment score. Markers are matched case-insensitively as
// substrings of the candidate title.
func New(markers []string, minScore float64) *Matcher {
	lowered := make([]string, 0, len(markers))
	for _, m := range markers {
		m = strings.ToLower(strings.TrimSpace(m))
		if m != "" {
			lowered = append(lowered, m)
		}
	}
	return &Matcher{markers: lowered, minScore: minScore}
}

// Tokenize splits a query on whitespace and lowercases the tokens.
func Tokenize(query string) []string {
	fields := strings.Fields(query)
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		tokens = append(tokens, strings.ToLower(f))
	}
	return tokens
}

// squash lowercases and removes all whitespace, so "밝은밤" and "밝은 밤"
// compare equal.
func squash(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		if unicode.IsSpace(r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Excluded reports whether a title names a bundle, box set, or special
// edition rather than the book itself.
func (m *Matcher) Excluded(title string) bool {
	lower := strings.ToLower(title)
	for _, marker := range m.markers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return multiCountRe.MatchString(lower)
}

// Score is the fraction of query tokens contained in the candidate's
// title+author, whitespace-insensitively.
func (m *Matcher) Score(tokens []string, c models.RawCandidate) float64 {
	if len(tokens) == 0 {
		return 0
	}
	haystack := squash(c.Title)
	if c.Author != "" {
		haystack += squash(c.Author)
	}
	matched := 0
	for _, t := range tokens {
		if strings.Contains(haystack, squash(t)) {
			matched++
		}
	}
	return float64(matched) / float64(len(tokens))
}

// Match picks the best non-excluded candidate for the query. Ties keep
// the earlier candidate: sources return results in their own relevance
// order. Returns false when no candidate reaches the minimum score.
func (m *Matcher) Match(query string, candidates []models.RawCandidate) (models.RawCandidate, bool) {
	tokens := Tokenize(query)
	if len(tokens) == 0 {
		return models.RawCandidate{}, false
	}

	var best models.RawCandidate
	bestScore := -1.0

	for _, c := range candidates {
		if strings.TrimSpace(c.Title) == "" {
			continue
		}
		if m.Excluded(c.Title) {
			continue
		}
		if score := m.Score(tokens, c); score > bestScore {
			bestScore = score
			best = c
		}
	}

	if bestScore < m.minScore {
		return models.RawCandidate{}, false
	}
	return best, true
}

// FirstEligible returns the first candidate that is not excluded,
// without scoring. Used for identifier lookups, where the source has
// already resolved the exact book and token containment is meaningless.
func (m *Matcher) FirstEligible(candidates []models.RawCandidate) (models.RawCandidate, bool) {
	for _, c := range candidates {
		if strings.TrimSpace(c.Title) == "" {
			continue
		}
		if m.Excluded(c.Title) {
			continue
		}
		return c, true
	}
	return models.RawCandidate{}, false
}
