package gsc

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"seodesk/internal/models"
)

type fakeGoogle struct {
	tokenResponse string
	lastQuery     map[string]any
	lastAuth      string
	refreshCalls  int
}

func (f *fakeGoogle) handler(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		path := r.URL.EscapedPath()

		switch {
		case path == "/token":
			_ = r.ParseForm()
			if r.Form.Get("grant_type") == "refresh_token" {
				f.refreshCalls++
			}
			_, _ = io.WriteString(w, f.tokenResponse)

		case path == "/api/sites":
			f.lastAuth = r.Header.Get("Authorization")
			_, _ = io.WriteString(w, `{"siteEntry":[{"siteUrl":"https://example.com/","permissionLevel":"siteOwner"}]}`)

		case strings.HasPrefix(path, "/api/sites/") && strings.HasSuffix(path, "/searchAnalytics/query"):
			f.lastAuth = r.Header.Get("Authorization")
			if strings.Contains(path, "forbidden") {
				w.WriteHeader(http.StatusForbidden)
				_, _ = io.WriteString(w, `{"error":{"code":403,"message":"User does not have sufficient permission"}}`)
				return
			}
			data, _ := io.ReadAll(r.Body)
			if err := json.Unmarshal(data, &f.lastQuery); err != nil {
				t.Errorf("bad query body: %v", err)
			}
			_, _ = io.WriteString(w, `{"rows":[
				{"keys":["seo tools","https://example.com/tools","2025-01-02","DESKTOP","usa"],"clicks":12,"impressions":340,"ctr":0.035,"position":4.2},
				{"keys":["short"],"clicks":1,"impressions":1,"ctr":1,"position":1}
			]}`)

		default:
			http.NotFound(w, r)
		}
	})
}

func newTestClient(t *testing.T, f *fakeGoogle) *Client {
	t.Helper()
	srv := httptest.NewServer(f.handler(t))
	t.Cleanup(srv.Close)

	return NewClient("client-id", "client-secret", "http://localhost/api/gsc/callback",
		WithBaseURL(srv.URL+"/api"),
		WithEndpoint(oauth2.Endpoint{AuthURL: srv.URL + "/auth", TokenURL: srv.URL + "/token"}),
		WithHTTPClient(srv.Client()),
	)
}

func TestAuthURL(t *testing.T) {
	c := NewClient("client-id", "secret", "http://localhost/api/gsc/callback")
	u, err := url.Parse(c.AuthURL("project-123"))
	if err != nil {
		t.Fatalf("AuthURL() not a URL: %v", err)
	}
	q := u.Query()

	checks := map[string]string{
		"access_type":  "offline",
		"prompt":       "consent",
		"state":        "project-123",
		"scope":        Scope,
		"client_id":    "client-id",
		"redirect_uri": "http://localhost/api/gsc/callback",
	}
	for k, want := range checks {
		if got := q.Get(k); got != want {
			t.Errorf("AuthURL() %s = %q, want %q", k, got, want)
		}
	}
}

func TestExchange(t *testing.T) {
	f := &fakeGoogle{tokenResponse: `{"access_token":"at","refresh_token":"rt","token_type":"Bearer","expires_in":3600}`}
	c := newTestClient(t, f)

	tok, err := c.Exchange(context.Background(), "code")
	if err != nil {
		t.Fatalf("Exchange() error = %v", err)
	}
	if tok.AccessToken != "at" || tok.RefreshToken != "rt" {
		t.Errorf("Exchange() = %+v", tok)
	}
	if tok.Expiry.Before(time.Now()) {
		t.Errorf("Expiry = %v, want future", tok.Expiry)
	}
}

func TestEnsureFresh(t *testing.T) {
	tests := []struct {
		name          string
		expiry        time.Duration
		refreshToken  string
		response      string
		wantRefreshed bool
		wantAccess    string
		wantRefresh   string
		wantErr       error
	}{
		{
			name:         "not expired",
			expiry:       time.Hour,
			refreshToken: "old-rt",
			response:     `{"access_token":"new","token_type":"Bearer","expires_in":3600}`,
			wantAccess:   "stored",
			wantRefresh:  "old-rt",
		},
		{
			name:          "expired keeps refresh token",
			expiry:        -time.Minute,
			refreshToken:  "old-rt",
			response:      `{"access_token":"new","token_type":"Bearer","expires_in":3600}`,
			wantRefreshed: true,
			wantAccess:    "new",
			wantRefresh:   "old-rt",
		},
		{
			name:          "expired rotates refresh token",
			expiry:        -time.Minute,
			refreshToken:  "old-rt",
			response:      `{"access_token":"new","refresh_token":"new-rt","token_type":"Bearer","expires_in":3600}`,
			wantRefreshed: true,
			wantAccess:    "new",
			wantRefresh:   "new-rt",
		},
		{
			name:        "expired without refresh token",
			expiry:      -time.Minute,
			response:    `{}`,
			wantAccess:  "stored",
			wantErr:     ErrNoRefreshToken,
			wantRefresh: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &fakeGoogle{tokenResponse: tt.response}
			c := newTestClient(t, f)
			tok := &models.GSCToken{
				AccessToken:  "stored",
				RefreshToken: tt.refreshToken,
				TokenExpiry:  time.Now().Add(tt.expiry),
			}

			refreshed, err := c.EnsureFresh(context.Background(), tok)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("EnsureFresh() error = %v, want %v", err, tt.wantErr)
			}
			if refreshed != tt.wantRefreshed {
				t.Errorf("EnsureFresh() refreshed = %v, want %v", refreshed, tt.wantRefreshed)
			}
			if tok.AccessToken != tt.wantAccess {
				t.Errorf("AccessToken = %q, want %q", tok.AccessToken, tt.wantAccess)
			}
			if tok.RefreshToken != tt.wantRefresh {
				t.Errorf("RefreshToken = %q, want %q", tok.RefreshToken, tt.wantRefresh)
			}
			if !tt.wantRefreshed && f.refreshCalls != 0 {
				t.Errorf("refresh calls = %d, want 0", f.refreshCalls)
			}
			if tt.wantRefreshed && !tok.TokenExpiry.After(time.Now()) {
				t.Errorf("TokenExpiry = %v, want future", tok.TokenExpiry)
			}
		})
	}
}

func TestSites(t *testing.T) {
	f := &fakeGoogle{}
	c := newTestClient(t, f)

	sites, err := c.Sites(context.Background(), &oauth2.Token{AccessToken: "at", Expiry: time.Now().Add(time.Hour)})
	if err != nil {
		t.Fatalf("Sites() error = %v", err)
	}
	if len(sites) != 1 || sites[0].SiteURL != "https://example.com/" {
		t.Errorf("Sites() = %+v", sites)
	}
	if f.lastAuth != "Bearer at" {
		t.Errorf("Authorization = %q, want Bearer at", f.lastAuth)
	}
}

func TestSearchAnalytics_Error(t *testing.T) {
	c := newTestClient(t, &fakeGoogle{})

	_, err := c.SearchAnalytics(context.Background(), &oauth2.Token{AccessToken: "at", Expiry: time.Now().Add(time.Hour)},
		"https://forbidden.example/", "2025-01-01", "2025-01-31")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("SearchAnalytics() error = %v, want *APIError", err)
	}
	if apiErr.Status != http.StatusForbidden || !strings.Contains(apiErr.Message, "permission") {
		t.Errorf("APIError = %+v", apiErr)
	}
}

func TestToGSCRows(t *testing.T) {
	pid := uuid.New()
	rows := ToGSCRows(pid, []Row{
		{Keys: []string{"q", "https://p", "2025-01-02", "MOBILE", "gbr"}, Clicks: 3, Impressions: 10, CTR: 0.3, Position: 2.5},
		{Keys: []string{"q", "https://p"}},
	})
	if len(rows) != 1 {
		t.Fatalf("ToGSCRows() len = %d, want 1", len(rows))
	}
	want := models.GSCRow{
		ProjectID: pid, Query: "q", Page: "https://p", Date: "2025-01-02", Device: "MOBILE", Country: "gbr",
		Clicks: 3, Impressions: 10, CTR: 0.3, Position: 2.5,
	}
	if rows[0] != want {
		t.Errorf("ToGSCRows()[0] = %+v, want %+v", rows[0], want)
	}
}

func TestDateRange(t *testing.T) {
	now := time.Date(2025, 3, 10, 15, 0, 0, 0, time.UTC)
	tests := []struct {
		days      int
		wantStart string
		wantEnd   string
	}{
		{30, "2025-02-07", "2025-03-09"},
		{7, "2025-03-02", "2025-03-09"},
	}
	for _, tt := range tests {
		start, end := DateRange(now, tt.days)
		if start != tt.wantStart || end != tt.wantEnd {
			t.Errorf("DateRange(%d) = %s..%s, want %s..%s", tt.days, start, end, tt.wantStart, tt.wantEnd)
		}
	}
}

type fakeStore struct {
	updated  *models.GSCToken
	upserted []models.GSCRow
}

func (s *fakeStore) UpdateGSCAccessToken(_ context.Context, t *models.GSCToken) error {
	cp := *t
	s.updated = &cp
	return nil
}

func (s *fakeStore) UpsertGSCRows(_ context.Context, rows []models.GSCRow) (int, error) {
	s.upserted = append(s.upserted, rows...)
	return len(rows), nil
}

func TestSync(t *testing.T) {
	f := &fakeGoogle{tokenResponse: `{"access_token":"fresh","token_type":"Bearer","expires_in":3600}`}
	c := newTestClient(t, f)
	c.now = func() time.Time { return time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC) }

	store := &fakeStore{}
	tok := &models.GSCToken{
		ProjectID:    uuid.New(),
		AccessToken:  "stale",
		RefreshToken: "rt",
		TokenExpiry:  time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		SiteURL:      "https://example.com/",
	}

	res, err := c.Sync(context.Background(), store, tok, 7)
	if err != nil {
		t.Fatalf("Sync() error = %v", err)
	}

	if store.updated == nil || store.updated.AccessToken != "fresh" || store.updated.RefreshToken != "rt" {
		t.Errorf("refreshed token not persisted: %+v", store.updated)
	}
	if f.lastAuth != "Bearer fresh" {
		t.Errorf("Authorization = %q, want Bearer fresh", f.lastAuth)
	}
	if res.RowsFetched != 2 || res.RowsInserted != 1 {
		t.Errorf("Sync() = %+v, want 2 fetched / 1 inserted", res)
	}
	if res.StartDate != "2025-03-02" || res.EndDate != "2025-03-09" {
		t.Errorf("date range = %s..%s", res.StartDate, res.EndDate)
	}
	if f.lastQuery["rowLimit"] != float64(RowLimit) {
		t.Errorf("rowLimit = %v, want %d", f.lastQuery["rowLimit"], RowLimit)
	}
	dims, _ := f.lastQuery["dimensions"].([]any)
	if len(dims) != 5 || dims[0] != "query" || dims[4] != "country" {
		t.Errorf("dimensions = %v", f.lastQuery["dimensions"])
	}
	if len(store.upserted) != 1 || store.upserted[0].ProjectID != tok.ProjectID {
		t.Errorf("upserted = %+v", store.upserted)
	}
}
