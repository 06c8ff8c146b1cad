package dataforseo

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"seodesk/internal/cache"
	"seodesk/internal/seo"
)

// newTestServer serves body for every request and records the last request payload.
func newTestServer(t *testing.T, status int, body string) (*httptest.Server, *atomic.Int32, *[]map[string]any) {
	t.Helper()
	var calls atomic.Int32
	var lastPayload []map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		user, pass, ok := r.BasicAuth()
		if !ok || user != "login" || pass != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		data, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(data, &lastPayload)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv, &calls, &lastPayload
}

func newTestClient(srv *httptest.Server, opts ...Option) *Client {
	return NewClient("login", "secret", append([]Option{WithBaseURL(srv.URL)}, opts...)...)
}

const serpBody = `{
  "status_code": 20000,
  "status_message": "Ok.",
  "tasks": [{
    "status_code": 20000,
    "result": [{
      "keyword": "seo tools",
      "se_results_count": 12345,
      "items": [
        {"type": "featured_snippet", "rank_group": 1, "rank_absolute": 1, "domain": "snippet.com", "url": "https://snippet.com/"},
        {"type": "organic", "rank_group": 1, "rank_absolute": 2, "domain": "ahrefs.com", "url": "https://ahrefs.com/", "title": "Ahrefs"},
        {"type": "organic", "rank_group": 2, "rank_absolute": 3, "domain": "moz.com", "url": "https://moz.com/tools", "title": "Moz"}
      ]
    }]
  }]
}`

func TestSERP(t *testing.T) {
	srv, _, payload := newTestServer(t, http.StatusOK, serpBody)
	c := newTestClient(srv)

	serp, err := c.SERP(context.Background(), SERPRequest{Keyword: "seo tools"})
	if err != nil {
		t.Fatalf("SERP() error = %v", err)
	}

	if serp.ResultsCount != 12345 {
		t.Errorf("ResultsCount = %d, want 12345", serp.ResultsCount)
	}
	if len(serp.Items) != 2 {
		t.Fatalf("len(Items) = %d, want 2 organic items", len(serp.Items))
	}
	if serp.Items[0].Domain != "ahrefs.com" || serp.Items[1].RankAbsolute != 3 {
		t.Errorf("Items = %+v", serp.Items)
	}

	p := (*payload)[0]
	if p["device"] != "desktop" {
		t.Errorf("device = %v, want desktop", p["device"])
	}
	if p["depth"] != float64(100) {
		t.Errorf("depth = %v, want 100", p["depth"])
	}
	if p["location_code"] != float64(2840) || p["language_code"] != "en" {
		t.Errorf("locale = %v/%v, want 2840/en", p["location_code"], p["language_code"])
	}
}

func TestTopOrganic_TruncatesToDepth(t *testing.T) {
	srv, _, _ := newTestServer(t, http.StatusOK, serpBody)
	c := newTestClient(srv)

	items, err := c.TopOrganic(context.Background(), "seo tools", seo.Locale{}, 1)
	if err != nil {
		t.Fatalf("TopOrganic() error = %v", err)
	}
	if len(items) != 1 || items[0].Domain != "ahrefs.com" {
		t.Errorf("TopOrganic() = %+v, want only ahrefs.com", items)
	}
}

func TestEmbeddedErrorStatus(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
	}{
		{
			name:       "envelope error",
			body:       `{"status_code": 40100, "status_message": "You are not authorized", "tasks": []}`,
			wantStatus: 40100,
		},
		{
			name:       "task error",
			body:       `{"status_code": 20000, "tasks": [{"status_code": 40501, "status_message": "Invalid Field", "result": null}]}`,
			wantStatus: 40501,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _, _ := newTestServer(t, http.StatusOK, tt.body)
			c := newTestClient(srv)

			_, err := c.Backlinks(context.Background(), "example.com", 10)
			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("Backlinks() error = %v, want *APIError", err)
			}
			if apiErr.StatusCode != tt.wantStatus {
				t.Errorf("StatusCode = %d, want %d", apiErr.StatusCode, tt.wantStatus)
			}
			if apiErr.HTTPStatus != http.StatusOK {
				t.Errorf("HTTPStatus = %d, want 200", apiErr.HTTPStatus)
			}
		})
	}
}

func TestHTTPError(t *testing.T) {
	srv, _, _ := newTestServer(t, http.StatusInternalServerError, `{"status_code": 50000, "status_message": "Internal Error."}`)
	c := newTestClient(srv)

	_, err := c.ReferringDomains(context.Background(), "example.com", 10)
	if !IsAPIError(err) {
		t.Fatalf("ReferringDomains() error = %v, want APIError", err)
	}
	var apiErr *APIError
	errors.As(err, &apiErr)
	if apiErr.HTTPStatus != http.StatusInternalServerError || apiErr.Message != "Internal Error." {
		t.Errorf("APIError = %+v", apiErr)
	}
}

func TestBadCredentials(t *testing.T) {
	srv, _, _ := newTestServer(t, http.StatusOK, serpBody)
	c := NewClient("login", "wrong", WithBaseURL(srv.URL))

	_, err := c.SERP(context.Background(), SERPRequest{Keyword: "x"})
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.HTTPStatus != http.StatusUnauthorized {
		t.Errorf("SERP() error = %v, want HTTP 401 APIError", err)
	}
}

func TestReferringDomains_FieldVariants(t *testing.T) {
	body := `{"status_code": 20000, "tasks": [{"status_code": 20000, "result": [{"items": [
		{"domain": "Blog.Example.com", "backlinks": 12, "rank": 400},
		{"domain_from": "news.site", "backlinks": 3, "rank": 250},
		{"backlinks": 1, "rank": 10}
	]}]}]}`
	srv, _, payload := newTestServer(t, http.StatusOK, body)
	c := newTestClient(srv)

	got, err := c.ReferringDomains(context.Background(), "competitor.com", 0)
	if err != nil {
		t.Fatalf("ReferringDomains() error = %v", err)
	}

	want := []seo.ReferringDomain{
		{Domain: "blog.example.com", Backlinks: 12, Rank: 400},
		{Domain: "news.site", Backlinks: 3, Rank: 250},
	}
	if len(got) != len(want) {
		t.Fatalf("ReferringDomains() = %+v, want %+v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("ReferringDomains()[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}
	if (*payload)[0]["limit"] != float64(1000) {
		t.Errorf("limit = %v, want default 1000", (*payload)[0]["limit"])
	}
}

func TestRankedKeywords(t *testing.T) {
	body := `{"status_code": 20000, "tasks": [{"status_code": 20000, "result": [{"items": [
		{
			"keyword_data": {
				"keyword": "rank tracker",
				"keyword_info": {"search_volume": 2400, "competition_level": "HIGH", "cpc": 4.5},
				"keyword_properties": {"keyword_difficulty": 0}
			},
			"ranked_serp_element": {"serp_item": {"rank_absolute": 4, "url": "https://c.com/rt", "title": "RT", "etv": 120.5}}
		},
		{
			"keyword_data": {"keyword": "no metrics", "keyword_info": {}, "keyword_properties": {}},
			"ranked_serp_element": {"serp_item": {}}
		},
		{"keyword_data": {"keyword": ""}}
	]}]}]}`
	srv, _, payload := newTestServer(t, http.StatusOK, body)
	c := newTestClient(srv)

	got, err := c.RankedKeywords(context.Background(), RankedKeywordsRequest{Target: "c.com", Limit: 100})
	if err != nil {
		t.Fatalf("RankedKeywords() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}

	first := got[0]
	if first.Position == nil || *first.Position != 4 {
		t.Errorf("Position = %v, want 4", first.Position)
	}
	if first.Competition == nil || *first.Competition != "high" {
		t.Errorf("Competition = %v, want high", first.Competition)
	}
	if first.KeywordDifficulty == nil || *first.KeywordDifficulty != 0 {
		t.Errorf("KeywordDifficulty = %v, want explicit 0", first.KeywordDifficulty)
	}
	if first.ETV != 120.5 || first.CPC != 4.5 || first.SearchVolume != 2400 {
		t.Errorf("metrics = %+v", first)
	}

	second := got[1]
	if second.Position != nil || second.KeywordDifficulty != nil || second.URL != nil || second.Competition != nil {
		t.Errorf("missing fields should be nil: %+v", second)
	}

	p := (*payload)[0]
	order, _ := p["order_by"].([]any)
	if len(order) != 1 || order[0] != DefaultRankedKeywordOrder {
		t.Errorf("order_by = %v, want default", p["order_by"])
	}
	types, _ := p["item_types"].([]any)
	if len(types) != 1 || types[0] != "organic" {
		t.Errorf("item_types = %v, want [organic]", p["item_types"])
	}
}

func TestKeywordMetrics(t *testing.T) {
	body := `{"status_code": 20000, "tasks": [{"status_code": 20000, "result": [
		{"keyword": "seo", "search_volume": 90500, "competition": "MEDIUM", "cpc": 7.25},
		{"keyword": "rare term", "search_volume": null, "competition": null, "cpc": null}
	]}]}`
	srv, _, _ := newTestServer(t, http.StatusOK, body)
	c := newTestClient(srv)

	got, err := c.KeywordMetrics(context.Background(), []string{"seo", "rare term"}, seo.Locale{})
	if err != nil {
		t.Fatalf("KeywordMetrics() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].SearchVolume != 90500 || *got[0].Competition != "medium" || got[0].CPC != 7.25 {
		t.Errorf("got[0] = %+v", got[0])
	}
	if got[1].SearchVolume != 0 || got[1].Competition != nil || got[1].CPC != 0 {
		t.Errorf("got[1] = %+v, want zero metrics", got[1])
	}
}

func TestBacklinks(t *testing.T) {
	body := `{"status_code": 20000, "tasks": [{"status_code": 20000, "result": [{"items": [
		{"url_from": "https://a.com/p", "url_to": "https://me.com/", "anchor": "me", "rank": 310, "dofollow": true, "first_seen": "2024-01-02 00:00:00 +00:00"},
		{"url_from": "", "url_to": "https://me.com/"}
	]}]}]}`
	srv, _, payload := newTestServer(t, http.StatusOK, body)
	c := newTestClient(srv)

	got, err := c.Backlinks(context.Background(), "me.com", 0)
	if err != nil {
		t.Fatalf("Backlinks() error = %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("len = %d, want 1", len(got))
	}
	if !got[0].Dofollow || got[0].DomainRank == nil || *got[0].DomainRank != 310 {
		t.Errorf("Backlinks()[0] = %+v", got[0])
	}
	if (*payload)[0]["mode"] != "as_is" {
		t.Errorf("mode = %v, want as_is", (*payload)[0]["mode"])
	}
}

func TestCache_ServesRepeatRequests(t *testing.T) {
	srv, calls, _ := newTestServer(t, http.StatusOK, serpBody)
	mr := miniredis.RunT(t)
	store, err := cache.NewRedisCache("redis://" + mr.Addr())
	if err != nil {
		t.Fatalf("NewRedisCache() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })

	c := newTestClient(srv, WithCache(store, time.Hour))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := c.SERP(ctx, SERPRequest{Keyword: "seo tools"}); err != nil {
			t.Fatalf("SERP() call %d error = %v", i, err)
		}
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("upstream calls = %d, want 1", got)
	}

	if _, err := c.SERP(ctx, SERPRequest{Keyword: "other"}); err != nil {
		t.Fatalf("SERP() error = %v", err)
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("upstream calls = %d, want 2 for a different payload", got)
	}

	mr.FastForward(2 * time.Hour)
	if _, err := c.SERP(ctx, SERPRequest{Keyword: "seo tools"}); err != nil {
		t.Fatalf("SERP() error = %v", err)
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("upstream calls = %d, want 3 after expiry", got)
	}
}

func TestCache_SkipsErrors(t *testing.T) {
	srv, calls, _ := newTestServer(t, http.StatusOK, `{"status_code": 40200, "status_message": "Payment Required."}`)
	mr := miniredis.RunT(t)
	store, err := cache.NewRedisCache("redis://" + mr.Addr())
	if err != nil {
		t.Fatalf("NewRedisCache() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })

	c := newTestClient(srv, WithCache(store, time.Hour))
	for i := 0; i < 2; i++ {
		if _, err := c.SERP(context.Background(), SERPRequest{Keyword: "x"}); err == nil {
			t.Fatal("expected error")
		}
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("upstream calls = %d, want 2 (errors are not cached)", got)
	}
}

func TestWithRateLimit(t *testing.T) {
	c := NewClient("a", "b", WithRateLimit(0))
	if c.limiter != nil {
		t.Error("WithRateLimit(0) should disable limiting")
	}

	c = NewClient("a", "b", WithRateLimit(5))
	if c.limiter == nil || c.limiter.Burst() != 5 {
		t.Errorf("limiter = %v, want burst 5", c.limiter)
	}

	srv, _, _ := newTestServer(t, http.StatusOK, serpBody)
	c = newTestClient(srv, WithRateLimit(0.001))
	// burst of 1 is consumed by the first call, the second must wait past the deadline
	if _, err := c.SERP(context.Background(), SERPRequest{Keyword: "a"}); err != nil {
		t.Fatalf("first SERP() error = %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := c.SERP(ctx, SERPRequest{Keyword: "b"}); err == nil {
		t.Error("expected rate limiter error")
	}
}
