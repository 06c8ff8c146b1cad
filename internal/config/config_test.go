package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("APP_URL", "")
	t.Setenv("DATAFORSEO_RATE_LIMIT", "")

	cfg := Load()
	if cfg.BaseURL != "http://localhost:3000" {
		t.Errorf("BaseURL = %q", cfg.BaseURL)
	}
	if cfg.CallbackURL() != "http://localhost:3000/api/outreach/webhook-callback" {
		t.Errorf("CallbackURL() = %q", cfg.CallbackURL())
	}
	if cfg.DataForSEORateLimit != 2 {
		t.Errorf("DataForSEORateLimit = %v, want 2", cfg.DataForSEORateLimit)
	}
	if cfg.PageTimeout != 30*time.Second {
		t.Errorf("PageTimeout = %v, want 30s", cfg.PageTimeout)
	}
}

func TestLoad_AppURLDrivesRedirects(t *testing.T) {
	t.Setenv("APP_URL", "https://seo.example.com")
	t.Setenv("GOOGLE_REDIRECT_URI", "")
	t.Setenv("OIDC_REDIRECT_URL", "")

	cfg := Load()
	if cfg.GoogleRedirectURL != "https://seo.example.com/api/gsc/callback" {
		t.Errorf("GoogleRedirectURL = %q", cfg.GoogleRedirectURL)
	}
	if cfg.OIDCRedirectURL != "https://seo.example.com/auth/callback" {
		t.Errorf("OIDCRedirectURL = %q", cfg.OIDCRedirectURL)
	}
}

func TestLoad_ParsesNumbers(t *testing.T) {
	t.Setenv("DATAFORSEO_RATE_LIMIT", "0.5")
	t.Setenv("DATAFORSEO_CACHE_TTL", "10m")
	t.Setenv("PAGE_TIMEOUT", "bogus")

	cfg := Load()
	if cfg.DataForSEORateLimit != 0.5 {
		t.Errorf("DataForSEORateLimit = %v, want 0.5", cfg.DataForSEORateLimit)
	}
	if cfg.DataForSEOCacheTTL != 10*time.Minute {
		t.Errorf("DataForSEOCacheTTL = %v, want 10m", cfg.DataForSEOCacheTTL)
	}
	if cfg.PageTimeout != 30*time.Second {
		t.Errorf("PageTimeout = %v, want fallback 30s", cfg.PageTimeout)
	}
}

func TestConfig_Predicates(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		dev  bool
		dfs  bool
		gsc  bool
	}{
		{"empty", Config{}, false, false, false},
		{"dev", Config{Env: "dev"}, true, false, false},
		{"development with creds", Config{Env: "development", DataForSEOLogin: "a", DataForSEOPassword: "b"}, true, true, false},
		{"gsc only", Config{Env: "production", GoogleClientID: "id", GoogleClientSecret: "s"}, false, false, true},
		{"half creds", Config{DataForSEOLogin: "a"}, false, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cfg.IsDev(); got != tt.dev {
				t.Errorf("IsDev() = %v, want %v", got, tt.dev)
			}
			if got := tt.cfg.HasDataForSEO(); got != tt.dfs {
				t.Errorf("HasDataForSEO() = %v, want %v", got, tt.dfs)
			}
			if got := tt.cfg.HasGSC(); got != tt.gsc {
				t.Errorf("HasGSC() = %v, want %v", got, tt.gsc)
			}
		})
	}
}
