package usecase

import "strings"

// FilterResult is the verdict for one message text.
type FilterResult struct {
	Matched       bool
	FoundKeywords []string
}

// KeywordFilter decides whether a message text matches the configured
// keywords. Matching is case-insensitive substring containment against
// the union of global and per-group keywords. The filter is pure: no
// I/O, no state, deterministic, never fails.
type KeywordFilter struct{}

// NewKeywordFilter creates a keyword filter.
func NewKeywordFilter() *KeywordFilter {
	return &KeywordFilter{}
}

// Evaluate checks text against the global keywords followed by the
// group's custom keywords. FoundKeywords keeps that order and may
// repeat a term when two configured spellings both match. An empty
// keyword union never matches.
func (f *KeywordFilter) Evaluate(text string, global, custom []string) FilterResult {
	lower := strings.ToLower(text)

	var found []string
	for _, kw := range global {
		if strings.Contains(lower, strings.ToLower(kw)) {
			found = append(found, kw)
		}
	}
	for _, kw := range custom {
		if strings.Contains(lower, strings.ToLower(kw)) {
			found = append(found, kw)
		}
	}

	return FilterResult{
		Matched:       len(found) > 0,
		FoundKeywords: found,
	}
}
