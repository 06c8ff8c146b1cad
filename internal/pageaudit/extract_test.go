package pageaudit

import (
	"context"
	"errors"
	"math"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

const samplePage = `<!doctype html>
<html lang="en">
<head>
  <title>Best SEO Tools for 2025</title>
  <meta name="description" content="A practical comparison of seo tools for small teams.">
  <meta name="viewport" content="width=device-width, initial-scale=1">
  <meta name="robots" content="index, follow">
  <meta property="og:title" content="Best SEO Tools">
  <link rel="canonical" href="https://example.com/seo-tools">
  <script type="application/ld+json">{"@context":"https://schema.org","@type":"Article","headline":"x"}</script>
  <script type="application/ld+json">{"@graph":[{"@type":["BreadcrumbList","Thing"]},{"@type":"Article"}]}</script>
  <script type="application/ld+json">not json</script>
</head>
<body>
  <h1>SEO Tools compared</h1>
  <h2>Rank trackers</h2>
  <h2>Backlink checkers</h2>
  <p>Choosing seo tools is hard. These tools help you track rankings and find links.</p>
  <p>We tested every one of them over three months.</p>
  <img src="/a.png" alt="dashboard">
  <img src="/b.png">
  <img src="/c.png" alt="  ">
  <a href="/pricing">Pricing</a>
  <a href="https://www.example.com/blog">Blog</a>
  <a href="https://other.org/review" rel="nofollow">Review</a>
  <a href="mailto:hi@example.com">Mail</a>
  <script>var ignored = "seo tools seo tools";</script>
</body>
</html>`

func TestExtract(t *testing.T) {
	r, err := Extract(samplePage, "https://example.com/seo-tools", "SEO tools")
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}

	if r.Title != "Best SEO Tools for 2025" {
		t.Errorf("Title = %q", r.Title)
	}
	if !strings.HasPrefix(r.MetaDescription, "A practical comparison") {
		t.Errorf("MetaDescription = %q", r.MetaDescription)
	}
	if r.CanonicalURL != "https://example.com/seo-tools" {
		t.Errorf("CanonicalURL = %q", r.CanonicalURL)
	}
	if len(r.H1) != 1 || len(r.H2) != 2 || r.H2[1] != "Backlink checkers" {
		t.Errorf("H1 = %v, H2 = %v", r.H1, r.H2)
	}
	if r.ParagraphCount != 2 {
		t.Errorf("ParagraphCount = %d, want 2", r.ParagraphCount)
	}
	if len(r.Images) != 3 || r.ImagesNoAlt != 2 {
		t.Errorf("images = %d, without alt = %d; want 3, 2", len(r.Images), r.ImagesNoAlt)
	}
	if len(r.InternalLinks) != 2 || len(r.ExternalLinks) != 2 {
		t.Errorf("internal = %+v, external = %+v", r.InternalLinks, r.ExternalLinks)
	}
	if r.ExternalLinks[0].Rel != "nofollow" {
		t.Errorf("ExternalLinks[0].Rel = %q", r.ExternalLinks[0].Rel)
	}
	if !r.HasMetaViewport || !r.HasMetaRobots || r.MetaRobots != "index, follow" || !r.HasOGTags || r.HasTwitterTags {
		t.Errorf("meta flags = %+v", r)
	}
	if strings.Join(r.SchemaTypes, ",") != "Article,BreadcrumbList" {
		t.Errorf("SchemaTypes = %v", r.SchemaTypes)
	}
	if r.Language != "en" {
		t.Errorf("Language = %q, want en", r.Language)
	}

	k := r.Keyword
	if k == nil {
		t.Fatal("Keyword analysis missing")
	}
	if !k.InTitle || !k.InH1 || !k.InMeta || k.InURL {
		t.Errorf("Keyword = %+v", k)
	}
	// body text: h1 + h2s + paragraphs, script removed
	if k.Count != 2 {
		t.Errorf("Count = %d, want 2", k.Count)
	}
	wantDensity := float64(k.Count) / float64(r.WordCount) * 100
	if math.Abs(k.Density-wantDensity) > 1e-9 {
		t.Errorf("Density = %v, want %v", k.Density, wantDensity)
	}
	if strings.Contains(strings.Join(r.H1, " "), "ignored") || r.WordCount > 40 {
		t.Errorf("WordCount = %d includes script text?", r.WordCount)
	}
}

func TestExtract_NoKeyword(t *testing.T) {
	r, err := Extract("<html><body><p>hello</p></body></html>", "https://x.com/", "  ")
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if r.Keyword != nil {
		t.Errorf("Keyword = %+v, want nil", r.Keyword)
	}
}

func TestIsInternal(t *testing.T) {
	base, _ := url.Parse("https://www.example.com/page")
	tests := []struct {
		href string
		want bool
	}{
		{"/about", true},
		{"contact", true},
		{"#top", true},
		{"https://example.com/x", true},
		{"http://WWW.example.com", true},
		{"https://blog.example.com", false},
		{"https://other.com", false},
		{"mailto:a@example.com", false},
		{"javascript:void(0)", false},
	}
	for _, tt := range tests {
		if got := isInternal(base, tt.href); got != tt.want {
			t.Errorf("isInternal(%q) = %v, want %v", tt.href, got, tt.want)
		}
	}
}

func TestIssues(t *testing.T) {
	tests := []struct {
		name string
		html string
		want []string
	}{
		{
			name: "bare page",
			html: `<html><body><img src="a"><p>x</p></body></html>`,
			want: []string{
				"1 images missing alt text",
				"Missing meta description",
				"Missing viewport meta tag",
				"No H1 heading found",
				"No canonical URL set",
				"No Schema.org markup found",
			},
		},
		{
			name: "two h1",
			html: `<html><head><meta name="description" content="d"><meta name="viewport" content="w">
				<link rel="canonical" href="/c"><script type="application/ld+json">{"@type":"WebPage"}</script></head>
				<body><h1>a</h1><h1>b</h1></body></html>`,
			want: []string{"Multiple H1 headings (should be one)"},
		},
		{
			name: "clean",
			html: samplePage,
			want: []string{"2 images missing alt text"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := Extract(tt.html, "https://example.com/", "")
			if err != nil {
				t.Fatal(err)
			}
			if got := r.Issues(); strings.Join(got, "|") != strings.Join(tt.want, "|") {
				t.Errorf("Issues() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAudit(t *testing.T) {
	r, err := Extract(samplePage, "https://example.com/seo-tools", "seo tools")
	if err != nil {
		t.Fatal(err)
	}
	uid := uuid.New()
	now := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)

	a := r.Audit(uid, nil, now)
	if a.UserID != uid || a.ProjectID != nil || !a.AnalyzedAt.Equal(now) {
		t.Errorf("Audit() ids = %+v", a)
	}
	if a.ImagesTotal != 3 || a.ImagesWithoutAlt != 2 || a.InternalLinksCount != 2 {
		t.Errorf("Audit() counts = %+v", a)
	}
	if a.TargetKeyword == nil || *a.TargetKeyword != "seo tools" || !a.KeywordInTitle || a.KeywordInURL {
		t.Errorf("Audit() keyword = %v, in title %v, in url %v", a.TargetKeyword, a.KeywordInTitle, a.KeywordInURL)
	}
}

type fakeRenderer struct {
	page *Page
	err  error
}

func (f fakeRenderer) Render(context.Context, string) (*Page, error) { return f.page, f.err }

func TestAnalyzer(t *testing.T) {
	a := NewAnalyzer(fakeRenderer{page: &Page{URL: "https://example.com/final", HTML: samplePage}})
	r, err := a.Analyze(context.Background(), "https://example.com/start", "")
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if r.URL != "https://example.com/final" {
		t.Errorf("URL = %q, want final URL", r.URL)
	}

	boom := errors.New("chrome crashed")
	if _, err := NewAnalyzer(fakeRenderer{err: boom}).Analyze(context.Background(), "https://x", ""); !errors.Is(err, boom) {
		t.Errorf("Analyze() error = %v, want %v", err, boom)
	}
}
