package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// API names recorded in usage rows.
const (
	APIDataForSEO   = "dataforseo"
	APIPageAnalyzer = "page_analyzer"
	APIAssistant    = "assistant"
)

// APIUsage records credits consumed by a call to an external provider.
type APIUsage struct {
	ID          uuid.UUID       `json:"id"`
	UserID      *uuid.UUID      `json:"user_id"`
	APIName     string          `json:"api_name"`
	Endpoint    string          `json:"endpoint"`
	CreditsUsed int             `json:"credits_used"`
	RequestData json.RawMessage `json:"request_data,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// UsageTotal is the aggregated credit consumption for one API and endpoint.
type UsageTotal struct {
	APIName  string
	Endpoint string
	Credits  int64
	Calls    int64
}
