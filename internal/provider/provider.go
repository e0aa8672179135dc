// internal/provider/provider.go
package provider

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/jason-s-yu/taverna/internal/models"
)

// FinalInstruction is appended after the caller's context on every call.
const FinalInstruction = "Gere APENAS o bloco de narração em português (validação da ação, consequência no mundo, progressão da cena e direcionamento ao próximo jogador). Sem meta-comentários."

// Options tune every vendor call.
type Options struct {
	MaxTokens   int
	Temperature float32
	Timeout     time.Duration
}

// DefaultOptions are tuned for short creative narration.
func DefaultOptions() Options {
	return Options{MaxTokens: 800, Temperature: 0.7, Timeout: 60 * time.Second}
}

// Request is one narration call. APIKey is used for this call only.
type Request struct {
	Messages []models.ContextMessage
	APIKey   string
	Model    string
}

// Result carries the narration and the model the vendor reports having used.
type Result struct {
	Narrative string `json:"narrative"`
	ModelUsed string `json:"model"`
}

// Provider is one vendor binding.
type Provider interface {
	Generate(ctx context.Context, req Request) (Result, error)
}

// Adapter routes calls to a vendor binding. It holds no credentials and never retries.
type Adapter struct {
	providers map[ID]Provider
	opts      Options
}

// NewAdapter wires the four vendor bindings. A nil client gets one bounded by opts.Timeout.
func NewAdapter(opts Options, client *http.Client) *Adapter {
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}
	a := &Adapter{providers: map[ID]Provider{}, opts: opts}
	a.Register(OpenAI, NewChatCompletions(OpenAI, OpenAIBaseURL, client, opts))
	a.Register(DeepSeek, NewChatCompletions(DeepSeek, DeepSeekBaseURL, client, opts))
	a.Register(Anthropic, NewAnthropicMessages(AnthropicBaseURL, client, opts))
	a.Register(Gemini, NewGeminiBinding(opts))
	return a
}

// Register installs or replaces the binding for id.
func (a *Adapter) Register(id ID, p Provider) {
	a.providers[id] = p
}

// Generate calls the vendor named by providerID, falling back to the default
// vendor for unknown ids and to the vendor's default model for an empty model.
func (a *Adapter) Generate(ctx context.Context, messages []models.ContextMessage, apiKey, model, providerID string) (Result, error) {
	id := NormalizeID(providerID)
	model = strings.TrimSpace(model)
	if model == "" {
		model = DefaultModel(id)
	}
	if strings.TrimSpace(apiKey) == "" {
		return Result{}, &ProviderError{Provider: id, Model: model, Message: ErrMissingAPIKey.Error(), Err: ErrMissingAPIKey}
	}

	p, ok := a.providers[id]
	if !ok {
		p = a.providers[DefaultProvider]
	}

	if a.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.opts.Timeout)
		defer cancel()
	}

	res, err := p.Generate(ctx, Request{Messages: messages, APIKey: apiKey, Model: model})
	if err != nil {
		var perr *ProviderError
		if errors.As(err, &perr) {
			return Result{ModelUsed: perr.Model}, err
		}
		return Result{ModelUsed: model}, &ProviderError{Provider: id, Model: model, Message: err.Error(), Err: err}
	}
	if res.ModelUsed == "" {
		res.ModelUsed = model
	}
	res.Narrative = strings.TrimSpace(res.Narrative)
	if res.Narrative == "" {
		return res, &ProviderError{Provider: id, Model: res.ModelUsed, Message: ErrEmptyNarrative.Error(), Err: ErrEmptyNarrative}
	}
	return res, nil
}

// withFinalInstruction returns the caller's context followed by the fixed closing instruction.
func withFinalInstruction(messages []models.ContextMessage) []models.ContextMessage {
	out := make([]models.ContextMessage, 0, len(messages)+1)
	out = append(out, messages...)
	return append(out, models.ContextMessage{Role: models.RoleUser, Content: FinalInstruction})
}
