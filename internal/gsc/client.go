// Package gsc connects projects to Google Search Console: the OAuth2 consent
// flow, token refresh and the search analytics REST API.
package gsc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"

	"seodesk/internal/metrics"
	"seodesk/internal/models"
)

const (
	// Scope grants read access to Search Console data.
	Scope = "https://www.googleapis.com/auth/webmasters.readonly"

	DefaultBaseURL = "https://searchconsole.googleapis.com/webmasters/v3"

	// RowLimit is the maximum rows the API returns per query.
	RowLimit = 25000

	providerName = "gsc"
)

// Dimensions are requested in this order; Row.Keys follows it.
var Dimensions = []string{"query", "page", "date", "device", "country"}

// ErrNoRefreshToken is returned when an expired token cannot be refreshed.
var ErrNoRefreshToken = errors.New("gsc: token expired and no refresh token stored")

// Client wraps the OAuth2 config and the REST endpoints.
type Client struct {
	oauth   *oauth2.Config
	baseURL string
	http    *http.Client
	now     func() time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the REST API root.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimSuffix(u, "/") }
}

// WithEndpoint overrides the OAuth2 endpoint.
func WithEndpoint(ep oauth2.Endpoint) Option {
	return func(c *Client) { c.oauth.Endpoint = ep }
}

// WithHTTPClient sets the transport used for token and API requests.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// NewClient creates a client for the given OAuth2 application.
func NewClient(clientID, clientSecret, redirectURL string, opts ...Option) *Client {
	c := &Client{
		oauth: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Endpoint:     endpoints.Google,
			Scopes:       []string{Scope},
		},
		baseURL: DefaultBaseURL,
		http:    &http.Client{Timeout: 60 * time.Second},
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) ctx(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, c.http)
}

// AuthURL returns the consent URL. Offline access with forced consent makes
// Google return a refresh token on every grant.
func (c *Client) AuthURL(state string) string {
	return c.oauth.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

// Exchange trades an authorization code for tokens.
func (c *Client) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	tok, err := c.oauth.Exchange(c.ctx(ctx), code)
	if err != nil {
		return nil, fmt.Errorf("exchange code: %w", err)
	}
	return tok, nil
}

// EnsureFresh refreshes t in place when its expiry has passed and reports
// whether it did. The previous refresh token is kept when Google omits one.
// Callers persist t when refreshed is true.
func (c *Client) EnsureFresh(ctx context.Context, t *models.GSCToken) (refreshed bool, err error) {
	if t.TokenExpiry.After(c.now()) {
		return false, nil
	}
	if t.RefreshToken == "" {
		return false, ErrNoRefreshToken
	}

	src := c.oauth.TokenSource(c.ctx(ctx), &oauth2.Token{RefreshToken: t.RefreshToken})
	tok, err := src.Token()
	if err != nil {
		return false, fmt.Errorf("refresh token: %w", err)
	}

	t.AccessToken = tok.AccessToken
	if tok.RefreshToken != "" {
		t.RefreshToken = tok.RefreshToken
	}
	t.TokenExpiry = tok.Expiry
	slog.Debug("gsc token refreshed", "project_id", t.ProjectID, "expiry", t.TokenExpiry)
	return true, nil
}

// Token converts a stored token for API calls.
func Token(t *models.GSCToken) *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		Expiry:       t.TokenExpiry,
		TokenType:    "Bearer",
	}
}

// Site is a Search Console property.
type Site struct {
	SiteURL         string `json:"siteUrl"`
	PermissionLevel string `json:"permissionLevel"`
}

// Sites lists the properties the token can read.
func (c *Client) Sites(ctx context.Context, tok *oauth2.Token) ([]Site, error) {
	var out struct {
		SiteEntry []Site `json:"siteEntry"`
	}
	if err := c.call(ctx, tok, http.MethodGet, "/sites", nil, &out); err != nil {
		return nil, err
	}
	return out.SiteEntry, nil
}

// Row is one search analytics row; Keys follow Dimensions.
type Row struct {
	Keys        []string `json:"keys"`
	Clicks      float64  `json:"clicks"`
	Impressions float64  `json:"impressions"`
	CTR         float64  `json:"ctr"`
	Position    float64  `json:"position"`
}

// SearchAnalytics queries rows for site between start and end (YYYY-MM-DD, inclusive).
func (c *Client) SearchAnalytics(ctx context.Context, tok *oauth2.Token, site, start, end string) ([]Row, error) {
	req := map[string]any{
		"startDate":  start,
		"endDate":    end,
		"dimensions": Dimensions,
		"rowLimit":   RowLimit,
	}
	var out struct {
		Rows []Row `json:"rows"`
	}
	path := "/sites/" + url.PathEscape(site) + "/searchAnalytics/query"
	if err := c.call(ctx, tok, http.MethodPost, path, req, &out); err != nil {
		return nil, err
	}
	return out.Rows, nil
}

// APIError is a non-2xx Search Console response.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("gsc: HTTP %d: %s", e.Status, e.Message)
}

func (c *Client) call(ctx context.Context, tok *oauth2.Token, method, path string, in, out any) (err error) {
	start := time.Now()
	defer func() { metrics.ObserveProviderRequest(providerName, path, err, start) }()

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	httpClient := c.oauth.Client(c.ctx(ctx), tok)
	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("gsc request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		var env struct {
			Error struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		if json.Unmarshal(data, &env) == nil && env.Error.Message != "" {
			apiErr.Message = env.Error.Message
		}
		return apiErr
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// ToGSCRows maps API rows to storage rows. Rows with fewer keys than
// Dimensions are dropped.
func ToGSCRows(projectID uuid.UUID, rows []Row) []models.GSCRow {
	out := make([]models.GSCRow, 0, len(rows))
	for _, r := range rows {
		if len(r.Keys) < len(Dimensions) {
			continue
		}
		out = append(out, models.GSCRow{
			ProjectID:   projectID,
			Query:       r.Keys[0],
			Page:        r.Keys[1],
			Date:        r.Keys[2],
			Device:      r.Keys[3],
			Country:     r.Keys[4],
			Clicks:      int(r.Clicks),
			Impressions: int(r.Impressions),
			CTR:         r.CTR,
			Position:    r.Position,
		})
	}
	return out
}

// DateRange returns the days-long window ending yesterday, formatted YYYY-MM-DD.
func DateRange(now time.Time, days int) (start, end string) {
	endDay := now.UTC().AddDate(0, 0, -1)
	startDay := endDay.AddDate(0, 0, -days)
	return startDay.Format(time.DateOnly), endDay.Format(time.DateOnly)
}
