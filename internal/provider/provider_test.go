// internal/provider/provider_test.go
package provider

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/jason-s-yu/taverna/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testContext = []models.ContextMessage{
	{Role: models.RoleSystem, Content: "You are the narrator."},
	{Role: models.RoleAssistant, Content: "Intro"},
	{Role: models.RoleUser, Content: "[Alice] (Ação): abre a porta"},
}

type fakeProvider struct {
	res   Result
	err   error
	calls []Request
}

func (f *fakeProvider) Generate(_ context.Context, req Request) (Result, error) {
	f.calls = append(f.calls, req)
	return f.res, f.err
}

// chatWire is the chat-completions body as it reaches the vendor.
type chatWire struct {
	Model       string  `json:"model"`
	MaxTokens   int     `json:"max_tokens"`
	Temperature float64 `json:"temperature"`
	Messages    []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

// anthropicWire is the messages API body as it reaches the vendor.
type anthropicWire struct {
	Model       string  `json:"model"`
	MaxTokens   int     `json:"max_tokens"`
	Temperature float64 `json:"temperature"`
	System      []struct {
		Text string `json:"text"`
	} `json:"system"`
	Messages []struct {
		Role    string `json:"role"`
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	} `json:"messages"`
}

// blockingProvider waits until the call's context ends.
type blockingProvider struct{}

func (blockingProvider) Generate(ctx context.Context, _ Request) (Result, error) {
	<-ctx.Done()
	return Result{}, ctx.Err()
}

func TestChatCompletionsRequestShape(t *testing.T) {
	var got chatWire
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		assert.Equal(t, http.MethodPost, r.Method)
		assert.True(t, strings.HasSuffix(r.URL.Path, "/chat/completions"), r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"chatcmpl-1","object":"chat.completion","model":"gpt-4o-mini-2024-07-18","choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"  A porta range.  "}}]}`))
	}))
	defer srv.Close()

	a := NewAdapter(DefaultOptions(), srv.Client())
	a.Register(OpenAI, NewChatCompletions(OpenAI, srv.URL+"/v1/", srv.Client(), DefaultOptions()))

	res, err := a.Generate(context.Background(), testContext, "sk-test", "gpt-4o-mini", "openai")
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, "A porta range.", res.Narrative)
	assert.Equal(t, "gpt-4o-mini-2024-07-18", res.ModelUsed, "vendor substituted model is surfaced")

	assert.Equal(t, "gpt-4o-mini", got.Model)
	assert.Equal(t, 800, got.MaxTokens)
	assert.InDelta(t, 0.7, got.Temperature, 0.0001)
	require.Len(t, got.Messages, len(testContext)+1)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, "assistant", got.Messages[1].Role)
	last := got.Messages[len(got.Messages)-1]
	assert.Equal(t, "user", last.Role)
	assert.Equal(t, FinalInstruction, last.Content)
}

func TestChatCompletionsErrorEnvelope(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"message":"Rate limit reached","type":"requests","param":null,"code":"rate_limit_exceeded"}}`))
	}))
	defer srv.Close()

	a := NewAdapter(DefaultOptions(), srv.Client())
	a.Register(DeepSeek, NewChatCompletions(DeepSeek, srv.URL+"/v1/", srv.Client(), DefaultOptions()))

	_, err := a.Generate(context.Background(), testContext, "bad", "", "deepseek")
	var perr *ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, 1, calls, "the adapter never retries")
	assert.Equal(t, DeepSeek, perr.Provider)
	assert.Equal(t, "deepseek-chat", perr.Model, "empty model resolves to the vendor default")
	assert.Equal(t, http.StatusTooManyRequests, perr.Status)
	assert.Equal(t, "Rate limit reached", perr.Message)
}

func TestAnthropicHoistsSystem(t *testing.T) {
	var got anthropicWire
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/v1/messages"), r.URL.Path)
		assert.Equal(t, "sk-ant", r.Header.Get("X-Api-Key"))
		assert.NotEmpty(t, r.Header.Get("Anthropic-Version"))
		assert.Empty(t, r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"msg_1","type":"message","role":"assistant","model":"claude-3-5-sonnet-20241022","stop_reason":"end_turn","content":[{"type":"text","text":"O vento sopra."}],"usage":{"input_tokens":10,"output_tokens":5}}`))
	}))
	defer srv.Close()

	a := NewAdapter(DefaultOptions(), srv.Client())
	a.Register(Anthropic, NewAnthropicMessages(srv.URL+"/", srv.Client(), DefaultOptions()))

	res, err := a.Generate(context.Background(), testContext, "sk-ant", "claude-3-5-sonnet-20241022", "anthropic")
	require.NoError(t, err)
	assert.Equal(t, "O vento sopra.", res.Narrative)
	assert.Equal(t, "claude-3-5-sonnet-20241022", res.ModelUsed)

	require.Len(t, got.System, 1)
	assert.Equal(t, "You are the narrator.", got.System[0].Text)
	require.Len(t, got.Messages, 3)
	for _, m := range got.Messages {
		assert.NotEqual(t, "system", m.Role)
	}
	assert.Equal(t, "assistant", got.Messages[0].Role)
	require.Len(t, got.Messages[2].Content, 1)
	assert.Equal(t, FinalInstruction, got.Messages[2].Content[0].Text)
	assert.Equal(t, 800, got.MaxTokens)
	assert.InDelta(t, 0.7, got.Temperature, 0.0001)
}

func TestAnthropicErrorEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"type":"error","error":{"type":"authentication_error","message":"invalid x-api-key"}}`))
	}))
	defer srv.Close()

	a := NewAdapter(DefaultOptions(), srv.Client())
	a.Register(Anthropic, NewAnthropicMessages(srv.URL+"/", srv.Client(), DefaultOptions()))

	_, err := a.Generate(context.Background(), testContext, "bad", "claude-3-5-haiku-20241022", "anthropic")
	var perr *ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, Anthropic, perr.Provider)
	assert.Equal(t, http.StatusUnauthorized, perr.Status)
	assert.Equal(t, "invalid x-api-key", perr.Message)
}

func TestHoistSystem(t *testing.T) {
	system, chat := hoistSystem([]models.ContextMessage{
		{Role: models.RoleSystem, Content: "a"},
		{Role: models.RoleUser, Content: "hi"},
		{Role: models.RoleSystem, Content: "b"},
	})
	assert.Equal(t, "a\n\nb", system)
	assert.Len(t, chat, 1)
}

func TestAdapterFallsBackToDefaultVendor(t *testing.T) {
	a := NewAdapter(DefaultOptions(), nil)
	fake := &fakeProvider{res: Result{Narrative: "ok"}}
	a.Register(OpenAI, fake)

	res, err := a.Generate(context.Background(), testContext, "key", "", "mistral")
	require.NoError(t, err)
	assert.Equal(t, "ok", res.Narrative)
	assert.Equal(t, "gpt-4o-mini", res.ModelUsed)
	require.Len(t, fake.calls, 1)
	assert.Equal(t, "key", fake.calls[0].APIKey)
}

func TestAdapterFailures(t *testing.T) {
	t.Run("missing key", func(t *testing.T) {
		a := NewAdapter(DefaultOptions(), nil)
		fake := &fakeProvider{}
		a.Register(OpenAI, fake)
		_, err := a.Generate(context.Background(), testContext, " ", "gpt-4o", "openai")
		assert.ErrorIs(t, err, ErrMissingAPIKey)
		assert.Empty(t, fake.calls)
	})

	t.Run("empty narrative", func(t *testing.T) {
		a := NewAdapter(DefaultOptions(), nil)
		a.Register(OpenAI, &fakeProvider{res: Result{Narrative: "   ", ModelUsed: "gpt-4o"}})
		res, err := a.Generate(context.Background(), testContext, "key", "gpt-4o", "openai")
		assert.ErrorIs(t, err, ErrEmptyNarrative)
		assert.Equal(t, "gpt-4o", res.ModelUsed)
	})

	t.Run("plain error is wrapped", func(t *testing.T) {
		a := NewAdapter(DefaultOptions(), nil)
		boom := errors.New("connection reset")
		a.Register(OpenAI, &fakeProvider{err: boom})
		_, err := a.Generate(context.Background(), testContext, "key", "gpt-4o", "openai")
		var perr *ProviderError
		require.ErrorAs(t, err, &perr)
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, OpenAI, perr.Provider)
	})

	t.Run("timeout", func(t *testing.T) {
		opts := DefaultOptions()
		opts.Timeout = 50 * time.Millisecond
		a := NewAdapter(opts, nil)
		a.Register(OpenAI, blockingProvider{})

		start := time.Now()
		_, err := a.Generate(context.Background(), testContext, "key", "gpt-4o", "openai")
		var perr *ProviderError
		require.ErrorAs(t, err, &perr)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.Less(t, time.Since(start), 2*time.Second)
	})
}

func TestParseErrorEnvelope(t *testing.T) {
	assert.Equal(t, "nested", parseErrorEnvelope([]byte(`{"error":{"message":"nested"}}`)))
	assert.Equal(t, "flat", parseErrorEnvelope([]byte(`{"error":"flat"}`)))
	assert.Equal(t, "top", parseErrorEnvelope([]byte(`{"message":"top"}`)))
	assert.Equal(t, "Bad Gateway", parseErrorEnvelope([]byte("Bad Gateway\n")))
	assert.Equal(t, "unknown error", parseErrorEnvelope(nil))

	assert.Equal(t, "inner", apiErrorMessage(`{"type":"error","error":{"message":"inner"}}`, assert.AnError))
	assert.Equal(t, assert.AnError.Error(), apiErrorMessage(" ", assert.AnError))
}

func TestBuildGeminiHistory(t *testing.T) {
	system, history := buildGeminiHistory(testContext)
	assert.Equal(t, "You are the narrator.", system)
	require.Len(t, history, 2)
	assert.Equal(t, "model", history[0].Role)
	assert.Equal(t, []genai.Part{genai.Text("Intro")}, history[0].Parts)
	assert.Equal(t, "user", history[1].Role)
}

func TestGetText(t *testing.T) {
	assert.Equal(t, "", getText(nil))
	resp := &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
		Content: &genai.Content{Parts: []genai.Part{genai.Text("A "), genai.Text("cena.")}},
	}}}
	assert.Equal(t, "A cena.", getText(resp))
}

func TestResolveSettings(t *testing.T) {
	assert.Equal(t, models.AISettings{Provider: "openai", Model: "gpt-4o-mini"}, ResolveSettings(models.AISettings{}))
	assert.Equal(t, models.AISettings{Provider: "gemini", Model: "gemini-1.5-pro"},
		ResolveSettings(models.AISettings{Provider: "Gemini", Model: "gemini-1.5-pro"}))
	assert.Equal(t, models.AISettings{Provider: "anthropic", Model: "claude-3-5-sonnet-20241022"},
		ResolveSettings(models.AISettings{Provider: "anthropic", Model: "gpt-4o"}))
	assert.Equal(t, models.AISettings{Provider: "openai", Model: "gpt-4"},
		ResolveSettings(models.AISettings{Provider: "llama", Model: "gpt-4"}))

	c := Catalog()
	require.Len(t, c, 4)
	c[0].Models[0] = "mutated"
	assert.Equal(t, "gpt-4o-mini", Catalog()[0].Models[0])
}
