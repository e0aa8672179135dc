// internal/provider/anthropic.go
package provider

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/jason-s-yu/taverna/internal/models"
)

const AnthropicBaseURL = "https://api.anthropic.com/"

// AnthropicMessages speaks the messages API, where the system prompt lives
// in its own field instead of the message list.
type AnthropicMessages struct {
	baseURL string
	client  *http.Client
	opts    Options
}

func NewAnthropicMessages(baseURL string, client *http.Client, opts Options) *AnthropicMessages {
	return &AnthropicMessages{baseURL: baseURL, client: client, opts: opts}
}

// hoistSystem splits system messages from the conversation.
func hoistSystem(messages []models.ContextMessage) (string, []anthropic.MessageParam) {
	var system []string
	chat := make([]anthropic.MessageParam, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case models.RoleSystem:
			system = append(system, m.Content)
		case models.RoleAssistant:
			chat = append(chat, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		default:
			chat = append(chat, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		}
	}
	return strings.Join(system, "\n\n"), chat
}

func (a *AnthropicMessages) Generate(ctx context.Context, req Request) (Result, error) {
	clientOpts := []option.RequestOption{
		option.WithAPIKey(req.APIKey),
		option.WithBaseURL(a.baseURL),
		option.WithMaxRetries(0),
	}
	if a.client != nil {
		clientOpts = append(clientOpts, option.WithHTTPClient(a.client))
	}
	client := anthropic.NewClient(clientOpts...)

	system, chat := hoistSystem(withFinalInstruction(req.Messages))
	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(req.Model),
		MaxTokens:   int64(a.opts.MaxTokens),
		Temperature: anthropic.Float(float64(a.opts.Temperature)),
		Messages:    chat,
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}

	msg, err := client.Messages.New(ctx, params)
	if err != nil {
		return Result{}, anthropicError(req.Model, err)
	}

	res := Result{ModelUsed: string(msg.Model)}
	if res.ModelUsed == "" {
		res.ModelUsed = req.Model
	}
	for _, block := range msg.Content {
		if block.Type == "text" {
			res.Narrative = block.Text
			break
		}
	}
	return res, nil
}

func anthropicError(model string, err error) error {
	var apierr *anthropic.Error
	if errors.As(err, &apierr) {
		return &ProviderError{Provider: Anthropic, Model: model, Status: apierr.StatusCode, Message: apiErrorMessage(apierr.RawJSON(), err), Err: err}
	}
	return &ProviderError{Provider: Anthropic, Model: model, Message: err.Error(), Err: err}
}
