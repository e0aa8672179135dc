// internal/provider/gemini.go
package provider

import (
	"context"
	"errors"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/jason-s-yu/taverna/internal/models"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// GeminiBinding calls Google's generative language API through the genai SDK.
// A client is built per call because the key is supplied per call.
type GeminiBinding struct {
	opts       Options
	clientOpts []option.ClientOption
}

func NewGeminiBinding(opts Options, clientOpts ...option.ClientOption) *GeminiBinding {
	return &GeminiBinding{opts: opts, clientOpts: clientOpts}
}

func (g *GeminiBinding) Generate(ctx context.Context, req Request) (Result, error) {
	opts := append([]option.ClientOption{option.WithAPIKey(req.APIKey)}, g.clientOpts...)
	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return Result{}, &ProviderError{Provider: Gemini, Model: req.Model, Message: err.Error(), Err: err}
	}
	defer client.Close()

	model := client.GenerativeModel(req.Model)
	model.SetMaxOutputTokens(int32(g.opts.MaxTokens))
	model.SetTemperature(g.opts.Temperature)

	system, history := buildGeminiHistory(req.Messages)
	if system != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(system)}}
	}

	chat := model.StartChat()
	chat.History = history
	resp, err := chat.SendMessage(ctx, genai.Text(FinalInstruction))
	if err != nil {
		return Result{}, geminiError(req.Model, err)
	}
	return Result{Narrative: getText(resp), ModelUsed: req.Model}, nil
}

// buildGeminiHistory hoists system messages into the system instruction and
// maps assistant turns onto the "model" role.
func buildGeminiHistory(messages []models.ContextMessage) (string, []*genai.Content) {
	var system []string
	history := make([]*genai.Content, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case models.RoleSystem:
			system = append(system, m.Content)
		case models.RoleAssistant:
			history = append(history, &genai.Content{Role: "model", Parts: []genai.Part{genai.Text(m.Content)}})
		default:
			history = append(history, &genai.Content{Role: "user", Parts: []genai.Part{genai.Text(m.Content)}})
		}
	}
	return strings.Join(system, "\n\n"), history
}

func geminiError(model string, err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		msg := gerr.Message
		if msg == "" {
			msg = parseErrorEnvelope([]byte(gerr.Body))
		}
		return &ProviderError{Provider: Gemini, Model: model, Status: gerr.Code, Message: msg, Err: err}
	}
	return &ProviderError{Provider: Gemini, Model: model, Message: err.Error(), Err: err}
}

func getText(resp *genai.GenerateContentResponse) string {
	var text string
	if resp != nil && len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil {
		for _, part := range resp.Candidates[0].Content.Parts {
			if txt, ok := part.(genai.Text); ok {
				text += string(txt)
			}
		}
	}
	return text
}
