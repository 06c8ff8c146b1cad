package seo

import (
	"fmt"
	"math/rand"
	"strings"
	"testing"
)

func intPtr(v int) *int { return &v }

func kw(keyword string, volume int, difficulty *int) CompetitorKeyword {
	return CompetitorKeyword{Keyword: keyword, SearchVolume: volume, KeywordDifficulty: difficulty}
}

func keywords(list []CompetitorKeyword) []string {
	out := make([]string, len(list))
	for i, k := range list {
		out[i] = k.Keyword
	}
	return out
}

func TestOpportunityScore(t *testing.T) {
	tests := []struct {
		name string
		k    CompetitorKeyword
		want float64
	}{
		{"low difficulty", kw("a", 1000, intPtr(20)), 800},
		{"high difficulty", kw("b", 1000, intPtr(80)), 200},
		{"null difficulty defaults to 50", kw("c", 1000, nil), 500},
		{"zero difficulty is kept", kw("d", 1000, intPtr(0)), 1000},
		{"max difficulty", kw("e", 1000, intPtr(100)), 0},
		{"zero volume", kw("f", 0, intPtr(10)), 0},
		{"fractional", kw("g", 15, intPtr(50)), 7.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := OpportunityScore(tt.k); got != tt.want {
				t.Errorf("OpportunityScore() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAnalyzeGap_ExactCaseInsensitiveMatch(t *testing.T) {
	user := NewKeywordSet([]string{"SEO Tools", "rank tracker"})
	competitor := []CompetitorKeyword{
		kw("seo tools", 100, nil),
		kw("seo tool", 100, nil),
		kw("Rank Tracker", 50, nil),
		kw("rank trackers", 50, nil),
	}

	got := AnalyzeGap(user, competitor)

	if overlaps := keywords(got.Overlaps); strings.Join(overlaps, "|") != "seo tools|Rank Tracker" {
		t.Errorf("Overlaps = %v, want [seo tools Rank Tracker]", overlaps)
	}
	if gaps := keywords(got.Gaps); strings.Join(gaps, "|") != "seo tool|rank trackers" {
		t.Errorf("Gaps = %v, want [seo tool rank trackers]", gaps)
	}
}

func TestAnalyzeGap_OrdersByOpportunity(t *testing.T) {
	got := AnalyzeGap(NewKeywordSet(nil), []CompetitorKeyword{
		kw("hard", 1000, intPtr(80)),
		kw("easy", 1000, intPtr(20)),
		kw("unknown", 1000, nil),
	})

	want := []string{"easy", "unknown", "hard"}
	if gaps := keywords(got.Gaps); strings.Join(gaps, "|") != strings.Join(want, "|") {
		t.Errorf("Gaps order = %v, want %v", gaps, want)
	}
	if got.Gaps[0].OpportunityScore == nil || *got.Gaps[0].OpportunityScore != 800 {
		t.Errorf("first gap score = %v, want 800", got.Gaps[0].OpportunityScore)
	}
}

func TestAnalyzeGap_TiesKeepInputOrder(t *testing.T) {
	got := AnalyzeGap(NewKeywordSet(nil), []CompetitorKeyword{
		kw("first", 100, intPtr(50)),
		kw("bigger", 400, intPtr(50)),
		kw("second", 100, nil),
		kw("third", 200, intPtr(75)),
	})

	want := []string{"bigger", "first", "second", "third"}
	if gaps := keywords(got.Gaps); strings.Join(gaps, "|") != strings.Join(want, "|") {
		t.Errorf("Gaps order = %v, want %v", gaps, want)
	}
}

func TestAnalyzeGap_EmptyInputs(t *testing.T) {
	got := AnalyzeGap(NewKeywordSet(nil), nil)
	if got.Gaps == nil || got.Overlaps == nil {
		t.Error("AnalyzeGap() should return empty, non-nil slices")
	}
	if len(got.Gaps) != 0 || len(got.Overlaps) != 0 {
		t.Errorf("AnalyzeGap() = %+v, want empty", got)
	}
}

func TestAnalyzeGap_Partition(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	vocab := []string{"seo", "SEO", "tools", "Tools", "rank", "audit", "links", "Links"}

	for run := 0; run < 200; run++ {
		var userKeywords []string
		for n := rng.Intn(6); n > 0; n-- {
			userKeywords = append(userKeywords, vocab[rng.Intn(len(vocab))])
		}
		var competitor []CompetitorKeyword
		for n := rng.Intn(10); n > 0; n-- {
			competitor = append(competitor, kw(
				fmt.Sprintf("%s %s", vocab[rng.Intn(len(vocab))], vocab[rng.Intn(len(vocab))]),
				rng.Intn(5000), nil,
			))
		}
		user := NewKeywordSet(userKeywords)
		got := AnalyzeGap(user, competitor)

		if len(got.Gaps)+len(got.Overlaps) != len(competitor) {
			t.Fatalf("run %d: %d gaps + %d overlaps != %d competitor keywords",
				run, len(got.Gaps), len(got.Overlaps), len(competitor))
		}
		for _, g := range got.Gaps {
			if user.Contains(g.Keyword) {
				t.Fatalf("run %d: gap %q is tracked by the user", run, g.Keyword)
			}
		}
		for _, o := range got.Overlaps {
			if !user.Contains(o.Keyword) {
				t.Fatalf("run %d: overlap %q is not tracked by the user", run, o.Keyword)
			}
		}
		for i := 1; i < len(got.Gaps); i++ {
			if *got.Gaps[i-1].OpportunityScore < *got.Gaps[i].OpportunityScore {
				t.Fatalf("run %d: gaps not sorted descending at %d", run, i)
			}
		}
	}
}
