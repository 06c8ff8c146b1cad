package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/google/uuid"

	"seodesk/internal/assistant"
	"seodesk/internal/jobs"
	"seodesk/internal/models"
)

type fakeChatter struct {
	reply   *assistant.Reply
	err     error
	gotUser uuid.UUID
	gotMsgs []assistant.Message
}

func (f *fakeChatter) Chat(_ context.Context, userID uuid.UUID, history []assistant.Message) (*assistant.Reply, error) {
	f.gotUser = userID
	f.gotMsgs = history
	return f.reply, f.err
}

type fakeHistory struct {
	messages []models.ChatMessage
	limit    int
}

func (f *fakeHistory) ListChatHistory(_ context.Context, _ uuid.UUID, limit int) ([]models.ChatMessage, error) {
	f.limit = limit
	return f.messages, nil
}

func TestChat(t *testing.T) {
	user := testUser()

	tests := []struct {
		name       string
		chatter    *fakeChatter
		body       string
		wantStatus int
		wantError  string
	}{
		{
			name: "answer",
			chatter: &fakeChatter{reply: &assistant.Reply{
				Message:   "You rank 3rd.",
				ToolCalls: 2,
				Usage:     &schema.TokenUsage{TotalTokens: 120},
			}},
			body:       `{"messages":[{"role":"user","content":"How do I rank?"}]}`,
			wantStatus: http.StatusOK,
		},
		{
			name:       "validation error",
			chatter:    &fakeChatter{err: assistant.ErrLastNotUser},
			body:       `{"messages":[{"role":"assistant","content":"hi"}]}`,
			wantStatus: http.StatusBadRequest,
			wantError:  assistant.ErrLastNotUser.Error(),
		},
		{
			name:       "model failure",
			chatter:    &fakeChatter{err: errors.New("generate: timeout")},
			body:       `{"messages":[{"role":"user","content":"hi"}]}`,
			wantStatus: http.StatusBadGateway,
			wantError:  "the assistant could not answer",
		},
		{
			name:       "bad json",
			chatter:    &fakeChatter{},
			body:       `{`,
			wantStatus: http.StatusBadRequest,
			wantError:  "invalid request body",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newTestApp(user)
			app.Post("/api/chat", NewChatHandler(tt.chatter, &fakeHistory{}).Chat)

			status, env := doRequest(t, app, http.MethodPost, "/api/chat", tt.body, nil)
			if status != tt.wantStatus {
				t.Fatalf("status = %d (%s), want %d", status, env.Error, tt.wantStatus)
			}
			if env.Error != tt.wantError {
				t.Errorf("error = %q, want %q", env.Error, tt.wantError)
			}
			if status != http.StatusOK {
				return
			}
			if tt.chatter.gotUser != user.ID || len(tt.chatter.gotMsgs) != 1 {
				t.Errorf("Chat called with user %v and %d messages", tt.chatter.gotUser, len(tt.chatter.gotMsgs))
			}
			var reply assistant.Reply
			decodeData(t, env, &reply)
			if reply.Message != "You rank 3rd." || reply.ToolCalls != 2 {
				t.Errorf("reply = %+v", reply)
			}
		})
	}
}

func TestChat_NotConfigured(t *testing.T) {
	app := newTestApp(testUser())
	app.Post("/api/chat", NewChatHandler(nil, &fakeHistory{}).Chat)

	status, _ := doRequest(t, app, http.MethodPost, "/api/chat", `{"messages":[]}`, nil)
	if status != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", status)
	}
}

func TestChatHistory(t *testing.T) {
	history := &fakeHistory{messages: []models.ChatMessage{
		{Role: models.ChatRoleUser, Content: "q"},
		{Role: models.ChatRoleAssistant, Content: "a"},
	}}
	app := newTestApp(testUser())
	app.Get("/api/chat/history", NewChatHandler(nil, history).History)

	status, env := doRequest(t, app, http.MethodGet, "/api/chat/history", "", nil)
	if status != http.StatusOK {
		t.Fatalf("status = %d, want 200", status)
	}
	var got []models.ChatMessage
	decodeData(t, env, &got)
	if len(got) != 2 || got[0].Content != "q" {
		t.Errorf("history = %+v", got)
	}
	if history.limit != assistant.HistoryLimit {
		t.Errorf("limit = %d, want %d", history.limit, assistant.HistoryLimit)
	}
}

type fakeRankRunner struct {
	result *jobs.RankCheckResult
	err    error
	calls  int
}

func (f *fakeRankRunner) RunOnce(context.Context) (*jobs.RankCheckResult, error) {
	f.calls++
	return f.result, f.err
}

type fakeSyncRunner struct {
	result *jobs.GSCSyncResult
	err    error
}

func (f *fakeSyncRunner) RunOnce(context.Context) (*jobs.GSCSyncResult, error) {
	return f.result, f.err
}

func TestCronHandler(t *testing.T) {
	ranks := &fakeRankRunner{result: &jobs.RankCheckResult{KeywordsChecked: 4, TotalChecked: 3, TotalErrors: 1, Timestamp: time.Now()}}
	h := NewCronHandler(ranks, &fakeSyncRunner{err: errors.New("list tokens: db down")})
	app := newTestApp(nil)
	app.Get("/ranks", h.DailyRankCheck)
	app.Get("/gsc", h.GSCSync)

	status, env := doRequest(t, app, http.MethodGet, "/ranks", "", nil)
	if status != http.StatusOK || ranks.calls != 1 {
		t.Fatalf("status = %d calls = %d, want 200 and 1", status, ranks.calls)
	}
	var result jobs.RankCheckResult
	decodeData(t, env, &result)
	if result.TotalChecked != 3 || result.TotalErrors != 1 {
		t.Errorf("result = %+v", result)
	}

	status, env = doRequest(t, app, http.MethodGet, "/gsc", "", nil)
	if status != http.StatusInternalServerError || env.Details != "list tokens: db down" {
		t.Errorf("got %d %+v, want 500 with details", status, env)
	}

	unconfigured := NewCronHandler(nil, nil)
	app2 := newTestApp(nil)
	app2.Get("/ranks", unconfigured.DailyRankCheck)
	app2.Get("/gsc", unconfigured.GSCSync)
	for _, path := range []string{"/ranks", "/gsc"} {
		if status, _ := doRequest(t, app2, http.MethodGet, path, "", nil); status != http.StatusServiceUnavailable {
			t.Errorf("%s status = %d, want 503", path, status)
		}
	}
}

type fakePinger struct{ err error }

func (f fakePinger) Ping(context.Context) error { return f.err }

func TestHealthHandler(t *testing.T) {
	down := errors.New("down")

	tests := []struct {
		name       string
		db         Pinger
		redis      Pinger
		wantStatus int
		want       models.HealthResponse
	}{
		{"all up", fakePinger{}, fakePinger{}, http.StatusOK, models.HealthResponse{Status: "ok", Database: "ok", Redis: "ok"}},
		{"no redis", fakePinger{}, nil, http.StatusOK, models.HealthResponse{Status: "ok", Database: "ok"}},
		{"db down", fakePinger{err: down}, nil, http.StatusServiceUnavailable, models.HealthResponse{Status: "degraded", Database: "unreachable"}},
		{"redis down", fakePinger{}, fakePinger{err: down}, http.StatusServiceUnavailable, models.HealthResponse{Status: "degraded", Database: "ok", Redis: "unreachable"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newTestApp(nil)
			app.Get("/healthz", NewHealthHandler(tt.db, tt.redis).Check)

			req, _ := http.NewRequest(http.MethodGet, "/healthz", nil)
			resp, err := app.Test(req)
			if err != nil {
				t.Fatalf("app.Test() error = %v", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != tt.wantStatus {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}
			var got models.HealthResponse
			if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if got != tt.want {
				t.Errorf("body = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestAnalyzePage_RejectsUnsafeURLs(t *testing.T) {
	app := newTestApp(testUser())
	app.Post("/api/analyze-page", NewAuditHandler(nil, nil).Analyze)

	tests := []struct {
		name    string
		body    string
		wantMsg string
	}{
		{"missing url", `{}`, "URL is required"},
		{"bad scheme", `{"url":"file:///etc/passwd"}`, "URL must use http:// or https:// scheme"},
		{"private address", `{"url":"http://127.0.0.1:8080/admin"}`, "URL points to a private or reserved IP address"},
		{"metadata address", `{"url":"http://169.254.169.254/latest"}`, "URL points to a private or reserved IP address"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, env := doRequest(t, app, http.MethodPost, "/api/analyze-page", tt.body, nil)
			if status != http.StatusBadRequest || env.Error != tt.wantMsg {
				t.Errorf("got %d %q, want 400 %q", status, env.Error, tt.wantMsg)
			}
		})
	}
}
