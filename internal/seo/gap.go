package seo

import (
	"slices"
	"strings"
)

// DefaultDifficulty is assumed when the provider has no difficulty for a keyword.
const DefaultDifficulty = 50

// KeywordSet is a set of lower-cased keywords.
type KeywordSet map[string]struct{}

// NewKeywordSet builds a set from the user's tracked keywords.
func NewKeywordSet(keywords []string) KeywordSet {
	set := make(KeywordSet, len(keywords))
	for _, k := range keywords {
		set[strings.ToLower(k)] = struct{}{}
	}
	return set
}

// Contains reports whether keyword is in the set, ignoring case.
func (s KeywordSet) Contains(keyword string) bool {
	_, ok := s[strings.ToLower(keyword)]
	return ok
}

// GapResult partitions a competitor's keywords against the user's set.
type GapResult struct {
	Gaps     []CompetitorKeyword `json:"gaps"`
	Overlaps []CompetitorKeyword `json:"overlaps"`
}

// OpportunityScore weighs volume against difficulty:
// volume * (100 - difficulty) / 100, with a missing difficulty counted as 50.
func OpportunityScore(k CompetitorKeyword) float64 {
	difficulty := DefaultDifficulty
	if k.KeywordDifficulty != nil {
		difficulty = *k.KeywordDifficulty
	}
	return float64(k.SearchVolume) * float64(100-difficulty) / 100
}

// AnalyzeGap splits competitor keywords into gaps (not tracked by the user) and
// overlaps (tracked by both). Matching is exact after lower-casing. Gaps are
// ordered by descending opportunity score; equal scores keep input order.
func AnalyzeGap(user KeywordSet, competitor []CompetitorKeyword) GapResult {
	result := GapResult{
		Gaps:     []CompetitorKeyword{},
		Overlaps: []CompetitorKeyword{},
	}

	for _, k := range competitor {
		if user.Contains(k.Keyword) {
			result.Overlaps = append(result.Overlaps, k)
			continue
		}
		score := OpportunityScore(k)
		k.OpportunityScore = &score
		result.Gaps = append(result.Gaps, k)
	}

	slices.SortStableFunc(result.Gaps, func(a, b CompetitorKeyword) int {
		sa, sb := *a.OpportunityScore, *b.OpportunityScore
		switch {
		case sa > sb:
			return -1
		case sa < sb:
			return 1
		}
		return 0
	})

	return result
}
