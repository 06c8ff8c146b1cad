package assistant

import (
	"context"
	"fmt"
	"time"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
)

// NewOpenAIModel creates an OpenAI-compatible chat model.
func NewOpenAIModel(ctx context.Context, baseURL, apiKey, modelName string, timeout time.Duration) (model.ToolCallingChatModel, error) {
	cm, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
		BaseURL: baseURL,
		APIKey:  apiKey,
		Model:   modelName,
		Timeout: timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("init chat model: %w", err)
	}
	return cm, nil
}
