package outreach

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"seodesk/internal/metrics"
)

// SecretHeader carries the shared secret on workflow callbacks.
const SecretHeader = "X-Webhook-Secret"

// WebhookPayload is the campaign document posted to the workflow engine.
type WebhookPayload struct {
	CampaignID  string          `json:"campaign_id"`
	Keyword     string          `json:"keyword"`
	KeywordID   *string         `json:"keyword_id"`
	ProjectID   string          `json:"project_id"`
	YourDomain  string          `json:"your_domain"`
	CallbackURL string          `json:"callback_url"`
	Targets     []WebhookTarget `json:"targets"`
	CreatedAt   time.Time       `json:"created_at"`
}

// WebhookTarget is one target in the payload. TargetID is the persisted record ID.
type WebhookTarget struct {
	TargetID        *string       `json:"target_id"`
	Domain          string        `json:"domain"`
	TargetURL       string        `json:"target_url"`
	TargetScore     float64       `json:"target_score"`
	Metrics         TargetMetrics `json:"metrics"`
	WhyTargeted     string        `json:"why_targeted"`
	OutreachAngle   string        `json:"outreach_angle"`
	PitchHook       string        `json:"pitch_hook"`
	ResearchPrompts []string      `json:"research_prompts"`
}

// WebhookResponse is the engine's answer to a fired webhook.
type WebhookResponse struct {
	Status int
	Body   json.RawMessage
}

// OK reports whether the engine accepted the campaign.
func (r *WebhookResponse) OK() bool {
	return r.Status >= 200 && r.Status < 300
}

// Webhook delivers campaign payloads.
type Webhook interface {
	Fire(ctx context.Context, url string, payload *WebhookPayload) (*WebhookResponse, error)
}

// HTTPWebhook posts payloads as JSON.
type HTTPWebhook struct {
	client *http.Client
	secret string
}

// NewHTTPWebhook creates a webhook sender. A non-empty secret is sent in SecretHeader.
func NewHTTPWebhook(timeout time.Duration, secret string) *HTTPWebhook {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPWebhook{client: &http.Client{Timeout: timeout}, secret: secret}
}

// Fire posts payload to url. Transport failures return an error; any HTTP
// response, successful or not, is returned with its body.
func (w *HTTPWebhook) Fire(ctx context.Context, url string, payload *WebhookPayload) (resp *WebhookResponse, err error) {
	defer func() {
		outcome := "ok"
		if err != nil || !resp.OK() {
			outcome = "error"
		}
		metrics.OutreachWebhooks.WithLabelValues("outbound", outcome).Inc()
	}()

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if w.secret != "" {
		req.Header.Set(SecretHeader, w.secret)
	}

	httpResp, err := w.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fire webhook: %w", err)
	}
	defer httpResp.Body.Close()

	data, _ := io.ReadAll(io.LimitReader(httpResp.Body, 1<<20))
	return &WebhookResponse{Status: httpResp.StatusCode, Body: jsonOrWrapped(data)}, nil
}

// jsonOrWrapped returns data when it is valid JSON, otherwise an object
// carrying it as text, so it can be stored in a jsonb column.
func jsonOrWrapped(data []byte) json.RawMessage {
	if len(bytes.TrimSpace(data)) == 0 {
		return json.RawMessage("{}")
	}
	if json.Valid(data) {
		return json.RawMessage(data)
	}
	wrapped, _ := json.Marshal(map[string]string{"body": string(data)})
	return wrapped
}
