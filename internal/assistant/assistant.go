// Package assistant runs the SEO chat assistant: an LLM tool-calling loop
// over the signed-in user's projects, rankings, backlinks and Search Console
// data.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"seodesk/internal/models"
)

// MaxToolRounds bounds how many times the model may ask for tools in one chat.
const MaxToolRounds = 8

// HistoryLimit is how many past messages the history endpoint returns.
const HistoryLimit = 50

const systemPrompt = `You are an SEO assistant inside an SEO management tool. Use the provided tools to look up ` +
	`the user's projects, keywords, rankings, backlinks and Search Console data before answering. ` +
	`Project and keyword IDs are UUIDs; call get_user_projects first when you do not know them. ` +
	`Be concise and give concrete, actionable recommendations.`

var (
	ErrNoMessages     = errors.New("messages array is required")
	ErrInvalidRole    = errors.New("message role must be user or assistant")
	ErrLastNotUser    = errors.New("last message must be from the user")
	ErrTooManyRounds  = fmt.Errorf("model requested tools more than %d times", MaxToolRounds)
	ErrEmptyModelTurn = errors.New("model returned an empty response")
)

// Message is one turn of the conversation sent by the client.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Reply is the assistant's final answer.
type Reply struct {
	Message   string             `json:"message"`
	ToolCalls int                `json:"tool_calls"`
	Usage     *schema.TokenUsage `json:"usage,omitempty"`
}

// Assistant answers chat messages with a tool-calling chat model.
type Assistant struct {
	model     model.ToolCallingChatModel
	store     Store
	analyzer  PageAnalyzer
	maxRounds int
	logger    *slog.Logger
	now       func() time.Time
}

// New binds the tool schemas to cm. analyzer may be nil, in which case
// analyze_page_seo reports an error to the model.
func New(cm model.ToolCallingChatModel, store Store, analyzer PageAnalyzer) (*Assistant, error) {
	bound, err := cm.WithTools(Tools())
	if err != nil {
		return nil, fmt.Errorf("bind tools: %w", err)
	}
	return &Assistant{
		model:     bound,
		store:     store,
		analyzer:  analyzer,
		maxRounds: MaxToolRounds,
		logger:    slog.Default(),
		now:       time.Now,
	}, nil
}

// Chat runs the conversation for userID until the model answers in text.
func (a *Assistant) Chat(ctx context.Context, userID uuid.UUID, history []Message) (*Reply, error) {
	msgs, err := prompt(history)
	if err != nil {
		return nil, err
	}

	reply := &Reply{}
	for round := 0; ; round++ {
		resp, err := a.model.Generate(ctx, msgs)
		if err != nil {
			return nil, fmt.Errorf("generate: %w", err)
		}
		if resp == nil {
			return nil, ErrEmptyModelTurn
		}
		if resp.ResponseMeta != nil && resp.ResponseMeta.Usage != nil {
			reply.Usage = addUsage(reply.Usage, resp.ResponseMeta.Usage)
		}

		if len(resp.ToolCalls) == 0 {
			reply.Message = resp.Content
			break
		}
		if round >= a.maxRounds {
			return nil, ErrTooManyRounds
		}

		a.logger.Debug("assistant tool round", "user_id", userID, "round", round+1, "calls", len(resp.ToolCalls))
		results := a.runTools(ctx, userID, resp.ToolCalls)
		msgs = append(msgs, resp)
		for i, call := range resp.ToolCalls {
			msgs = append(msgs, schema.ToolMessage(results[i], call.ID, schema.WithToolName(call.Function.Name)))
		}
		reply.ToolCalls += len(resp.ToolCalls)
	}

	a.saveHistory(ctx, userID, history[len(history)-1].Content, reply.Message)
	return reply, nil
}

// runTools executes every call of one round concurrently. Results keep the
// order of calls.
func (a *Assistant) runTools(ctx context.Context, userID uuid.UUID, calls []schema.ToolCall) []string {
	results := make([]string, len(calls))
	g, gctx := errgroup.WithContext(ctx)
	for i, call := range calls {
		g.Go(func() error {
			results[i] = a.execute(gctx, userID, call)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (a *Assistant) saveHistory(ctx context.Context, userID uuid.UUID, question, answer string) {
	for _, m := range []*models.ChatMessage{
		{UserID: userID, Role: models.ChatRoleUser, Content: question},
		{UserID: userID, Role: models.ChatRoleAssistant, Content: answer},
	} {
		if err := a.store.SaveChatMessage(ctx, m); err != nil {
			a.logger.Warn("failed to save chat history", "user_id", userID, "error", err)
			return
		}
	}
}

func prompt(history []Message) ([]*schema.Message, error) {
	if len(history) == 0 {
		return nil, ErrNoMessages
	}
	msgs := make([]*schema.Message, 0, len(history)+1)
	msgs = append(msgs, schema.SystemMessage(systemPrompt))
	for _, m := range history {
		switch m.Role {
		case models.ChatRoleUser:
			msgs = append(msgs, schema.UserMessage(m.Content))
		case models.ChatRoleAssistant:
			msgs = append(msgs, schema.AssistantMessage(m.Content, nil))
		default:
			return nil, ErrInvalidRole
		}
	}
	if history[len(history)-1].Role != models.ChatRoleUser {
		return nil, ErrLastNotUser
	}
	return msgs, nil
}

func addUsage(total, u *schema.TokenUsage) *schema.TokenUsage {
	if total == nil {
		total = &schema.TokenUsage{}
	}
	total.PromptTokens += u.PromptTokens
	total.CompletionTokens += u.CompletionTokens
	total.TotalTokens += u.TotalTokens
	return total
}
