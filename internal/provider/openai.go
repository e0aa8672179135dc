// internal/provider/openai.go
package provider

import (
	"context"
	"errors"
	"net/http"

	"github.com/jason-s-yu/taverna/internal/models"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const (
	OpenAIBaseURL   = "https://api.openai.com/v1/"
	DeepSeekBaseURL = "https://api.deepseek.com/v1/"
)

// ChatCompletions speaks the chat-completions API shared by OpenAI and
// DeepSeek. A client is built per call because the key is supplied per call.
type ChatCompletions struct {
	id      ID
	baseURL string
	client  *http.Client
	opts    Options
}

func NewChatCompletions(id ID, baseURL string, client *http.Client, opts Options) *ChatCompletions {
	return &ChatCompletions{id: id, baseURL: baseURL, client: client, opts: opts}
}

// chatMessages maps the context onto chat-completions roles.
func chatMessages(messages []models.ContextMessage) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case models.RoleSystem:
			out = append(out, openai.SystemMessage(m.Content))
		case models.RoleAssistant:
			out = append(out, openai.AssistantMessage(m.Content))
		default:
			out = append(out, openai.UserMessage(m.Content))
		}
	}
	return out
}

func (c *ChatCompletions) Generate(ctx context.Context, req Request) (Result, error) {
	clientOpts := []option.RequestOption{
		option.WithAPIKey(req.APIKey),
		option.WithBaseURL(c.baseURL),
		option.WithMaxRetries(0),
	}
	if c.client != nil {
		clientOpts = append(clientOpts, option.WithHTTPClient(c.client))
	}
	client := openai.NewClient(clientOpts...)

	resp, err := client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(req.Model),
		Messages:    chatMessages(withFinalInstruction(req.Messages)),
		MaxTokens:   openai.Int(int64(c.opts.MaxTokens)),
		Temperature: openai.Float(float64(c.opts.Temperature)),
	})
	if err != nil {
		return Result{}, chatError(c.id, req.Model, err)
	}

	res := Result{ModelUsed: resp.Model}
	if res.ModelUsed == "" {
		res.ModelUsed = req.Model
	}
	if len(resp.Choices) > 0 {
		res.Narrative = resp.Choices[0].Message.Content
	}
	return res, nil
}

func chatError(id ID, model string, err error) error {
	var apierr *openai.Error
	if errors.As(err, &apierr) {
		msg := apierr.Message
		if msg == "" {
			msg = apiErrorMessage(apierr.RawJSON(), err)
		}
		return &ProviderError{Provider: id, Model: model, Status: apierr.StatusCode, Message: msg, Err: err}
	}
	return &ProviderError{Provider: id, Model: model, Message: err.Error(), Err: err}
}
