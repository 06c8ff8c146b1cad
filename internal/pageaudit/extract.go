package pageaudit

import (
	"encoding/json"
	"fmt"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/abadojack/whatlanggo"
	"github.com/google/uuid"

	"seodesk/internal/models"
)

// Image is an <img> on the page.
type Image struct {
	Src string `json:"src"`
	Alt string `json:"alt"`
}

// Link is an <a href> on the page.
type Link struct {
	Href string `json:"href"`
	Text string `json:"text"`
	Rel  string `json:"rel,omitempty"`
}

// KeywordAnalysis reports where the target keyword appears.
type KeywordAnalysis struct {
	Keyword string  `json:"keyword"`
	InTitle bool    `json:"in_title"`
	InH1    bool    `json:"in_h1"`
	InMeta  bool    `json:"in_meta"`
	InURL   bool    `json:"in_url"`
	Count   int     `json:"count"`
	Density float64 `json:"density"`
}

// Report is everything extracted from one page.
type Report struct {
	URL             string           `json:"url"`
	Title           string           `json:"title"`
	MetaDescription string           `json:"meta_description"`
	CanonicalURL    string           `json:"canonical_url"`
	H1              []string         `json:"h1"`
	H2              []string         `json:"h2"`
	WordCount       int              `json:"word_count"`
	ParagraphCount  int              `json:"paragraph_count"`
	Images          []Image          `json:"images"`
	ImagesNoAlt     int              `json:"images_without_alt"`
	InternalLinks   []Link           `json:"internal_links"`
	ExternalLinks   []Link           `json:"external_links"`
	HasMetaViewport bool             `json:"has_meta_viewport"`
	HasMetaRobots   bool             `json:"has_meta_robots"`
	MetaRobots      string           `json:"meta_robots"`
	HasOGTags       bool             `json:"has_og_tags"`
	HasTwitterTags  bool             `json:"has_twitter_tags"`
	SchemaTypes     []string         `json:"schema_types"`
	Language        string           `json:"language"`
	Keyword         *KeywordAnalysis `json:"keyword,omitempty"`
}

// Extract parses html served at pageURL. keyword may be empty.
func Extract(html, pageURL, keyword string) (*Report, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("parse page url: %w", err)
	}

	r := &Report{
		URL:           pageURL,
		Title:         strings.TrimSpace(doc.Find("title").First().Text()),
		H1:            texts(doc.Find("h1")),
		H2:            texts(doc.Find("h2")),
		Images:        []Image{},
		InternalLinks: []Link{},
		ExternalLinks: []Link{},
		SchemaTypes:   []string{},
	}
	r.MetaDescription, _ = doc.Find(`meta[name="description"]`).First().Attr("content")
	r.CanonicalURL, _ = doc.Find(`link[rel="canonical"]`).First().Attr("href")

	robots := doc.Find(`meta[name="robots"]`).First()
	r.HasMetaRobots = robots.Length() > 0
	r.MetaRobots, _ = robots.Attr("content")
	r.HasMetaViewport = doc.Find(`meta[name="viewport"]`).Length() > 0
	r.HasOGTags = doc.Find(`meta[property^="og:"]`).Length() > 0
	r.HasTwitterTags = doc.Find(`meta[name^="twitter:"]`).Length() > 0
	r.ParagraphCount = doc.Find("p").Length()

	doc.Find("img").Each(func(_ int, s *goquery.Selection) {
		src, _ := s.Attr("src")
		alt, _ := s.Attr("alt")
		alt = strings.TrimSpace(alt)
		if alt == "" {
			r.ImagesNoAlt++
		}
		r.Images = append(r.Images, Image{Src: src, Alt: alt})
	})

	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		rel, _ := s.Attr("rel")
		link := Link{Href: href, Text: strings.TrimSpace(s.Text()), Rel: rel}
		if isInternal(base, href) {
			r.InternalLinks = append(r.InternalLinks, link)
		} else {
			r.ExternalLinks = append(r.ExternalLinks, link)
		}
	})

	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, s *goquery.Selection) {
		for _, t := range schemaTypes(s.Text()) {
			if !slices.Contains(r.SchemaTypes, t) {
				r.SchemaTypes = append(r.SchemaTypes, t)
			}
		}
	})

	body := doc.Find("body").Clone()
	body.Find("script, style, noscript").Remove()
	text := strings.Join(strings.Fields(body.Text()), " ")
	words := strings.Fields(text)
	r.WordCount = len(words)

	sample := text
	if len(words) > 100 {
		sample = strings.Join(words[:100], " ")
	}
	if detect := strings.TrimSpace(r.Title + " " + r.MetaDescription + " " + sample); detect != "" {
		r.Language = whatlanggo.Detect(detect).Lang.Iso6391()
	}

	if kw := strings.TrimSpace(keyword); kw != "" {
		count := countFold(text, kw)
		ka := &KeywordAnalysis{
			Keyword: kw,
			InTitle: countFold(r.Title, kw) > 0,
			InMeta:  countFold(r.MetaDescription, kw) > 0,
			InURL:   countFold(pageURL, kw) > 0,
			Count:   count,
		}
		for _, h := range r.H1 {
			if countFold(h, kw) > 0 {
				ka.InH1 = true
				break
			}
		}
		if len(words) > 0 {
			ka.Density = float64(count) / float64(len(words)) * 100
		}
		r.Keyword = ka
	}

	return r, nil
}

// Issues lists the problems worth fixing, in a fixed order.
func (r *Report) Issues() []string {
	issues := []string{}
	if r.ImagesNoAlt > 0 {
		issues = append(issues, fmt.Sprintf("%d images missing alt text", r.ImagesNoAlt))
	}
	if r.MetaDescription == "" {
		issues = append(issues, "Missing meta description")
	}
	if !r.HasMetaViewport {
		issues = append(issues, "Missing viewport meta tag")
	}
	switch {
	case len(r.H1) == 0:
		issues = append(issues, "No H1 heading found")
	case len(r.H1) > 1:
		issues = append(issues, "Multiple H1 headings (should be one)")
	}
	if r.CanonicalURL == "" {
		issues = append(issues, "No canonical URL set")
	}
	if len(r.SchemaTypes) == 0 {
		issues = append(issues, "No Schema.org markup found")
	}
	return issues
}

// Audit converts the report to its stored form.
func (r *Report) Audit(userID uuid.UUID, projectID *uuid.UUID, now time.Time) *models.PageAudit {
	a := &models.PageAudit{
		UserID:             userID,
		ProjectID:          projectID,
		URL:                r.URL,
		Title:              r.Title,
		MetaDescription:    r.MetaDescription,
		H1:                 r.H1,
		H2:                 r.H2,
		CanonicalURL:       r.CanonicalURL,
		WordCount:          r.WordCount,
		ParagraphCount:     r.ParagraphCount,
		ImagesTotal:        len(r.Images),
		ImagesWithoutAlt:   r.ImagesNoAlt,
		InternalLinksCount: len(r.InternalLinks),
		ExternalLinksCount: len(r.ExternalLinks),
		HasMetaViewport:    r.HasMetaViewport,
		MetaRobots:         r.MetaRobots,
		HasOGTags:          r.HasOGTags,
		HasTwitterTags:     r.HasTwitterTags,
		SchemaTypes:        r.SchemaTypes,
		Language:           r.Language,
		AnalyzedAt:         now,
	}
	if k := r.Keyword; k != nil {
		kw := k.Keyword
		a.TargetKeyword = &kw
		a.KeywordInTitle = k.InTitle
		a.KeywordInH1 = k.InH1
		a.KeywordInMeta = k.InMeta
		a.KeywordInURL = k.InURL
		a.KeywordDensity = k.Density
	}
	return a
}

func texts(sel *goquery.Selection) []string {
	out := []string{}
	sel.Each(func(_ int, s *goquery.Selection) {
		out = append(out, strings.TrimSpace(s.Text()))
	})
	return out
}

// isInternal treats relative links and links to the same host, with or
// without www., as internal.
func isInternal(base *url.URL, href string) bool {
	u, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return false
	}
	if u.Scheme != "" && u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	if u.Host == "" {
		return true
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.") ==
		strings.TrimPrefix(strings.ToLower(base.Hostname()), "www.")
}

// schemaTypes returns the @type values of a JSON-LD block, including @graph
// entries. Only the first type of an array counts.
func schemaTypes(raw string) []string {
	var doc any
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &doc); err != nil {
		return nil
	}

	var out []string
	var walk func(v any)
	walk = func(v any) {
		switch node := v.(type) {
		case []any:
			for _, item := range node {
				walk(item)
			}
		case map[string]any:
			switch t := node["@type"].(type) {
			case string:
				out = append(out, t)
			case []any:
				if len(t) > 0 {
					if s, ok := t[0].(string); ok {
						out = append(out, s)
					}
				}
			}
			if graph, ok := node["@graph"]; ok {
				walk(graph)
			}
		}
	}
	walk(doc)
	return out
}

func countFold(s, sub string) int {
	return strings.Count(strings.ToLower(s), strings.ToLower(sub))
}
