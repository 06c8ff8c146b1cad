package seo

import "strings"

// Keyword idea sources.
const (
	SourceSEO     = "seo"
	SourceAds     = "ads"
	SourceRelated = "related"
)

// IdeaSource is one provider's list of keyword ideas.
type IdeaSource struct {
	Name  string
	Items []KeywordMetrics
}

// KeywordIdea is a merged keyword suggestion with the sources that produced it.
type KeywordIdea struct {
	KeywordMetrics
	Source  string   `json:"source"`
	Sources []string `json:"sources"`
}

// MergeKeywordIdeas deduplicates ideas case-insensitively across sources in order.
// The first occurrence fixes the keyword text and primary source; later duplicates
// raise search volume and CPC to the maximum seen and fill a missing difficulty.
// At most limit ideas are returned (limit <= 0 means no cap).
func MergeKeywordIdeas(sources []IdeaSource, limit int) []KeywordIdea {
	index := make(map[string]int)
	var merged []KeywordIdea

	for _, src := range sources {
		for _, item := range src.Items {
			key := strings.ToLower(strings.TrimSpace(item.Keyword))
			if key == "" {
				continue
			}

			i, ok := index[key]
			if !ok {
				index[key] = len(merged)
				merged = append(merged, KeywordIdea{
					KeywordMetrics: item,
					Source:         src.Name,
					Sources:        []string{src.Name},
				})
				continue
			}

			existing := &merged[i]
			existing.Sources = append(existing.Sources, src.Name)
			if item.SearchVolume > existing.SearchVolume {
				existing.SearchVolume = item.SearchVolume
			}
			if item.CPC > existing.CPC {
				existing.CPC = item.CPC
			}
			if existing.KeywordDifficulty == nil && item.KeywordDifficulty != nil {
				existing.KeywordDifficulty = item.KeywordDifficulty
			}
			if existing.Competition == nil && item.Competition != nil {
				existing.Competition = item.Competition
			}
		}
	}

	if limit > 0 && len(merged) > limit {
		merged = merged[:limit]
	}
	return merged
}
