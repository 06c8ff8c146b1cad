package seo

import "testing"

func TestFindRank(t *testing.T) {
	items := []OrganicResult{
		{URL: "https://www.competitor.com/page", RankAbsolute: 1},
		{URL: "", RankAbsolute: 2},
		{URL: "https://blog.example.com/post", RankAbsolute: 3},
		{URL: "https://example.com/", RankAbsolute: 4},
	}

	tests := []struct {
		name   string
		domain string
		want   int
	}{
		{"first match wins", "example.com", 3},
		{"exact host", "competitor.com", 1},
		{"case insensitive", "Example.COM", 3},
		{"not found", "missing.com", 0},
		{"empty domain", "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FindRank(items, tt.domain)
			if tt.want == 0 {
				if got != nil {
					t.Errorf("FindRank(%q) = %+v, want nil", tt.domain, got)
				}
				return
			}
			if got == nil || got.RankAbsolute != tt.want {
				t.Errorf("FindRank(%q) = %+v, want rank %d", tt.domain, got, tt.want)
			}
		})
	}
}
