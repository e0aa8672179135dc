// internal/provider/catalog.go
package provider

import (
	"strings"

	"github.com/jason-s-yu/taverna/internal/models"
)

// ID names a model vendor.
type ID string

const (
	OpenAI    ID = "openai"
	Gemini    ID = "gemini"
	Anthropic ID = "anthropic"
	DeepSeek  ID = "deepseek"
)

// DefaultProvider serves requests naming an unknown vendor.
const DefaultProvider = OpenAI

// Info is a catalog entry shown in the host's AI settings.
type Info struct {
	ID           ID       `json:"id"`
	Label        string   `json:"label"`
	Models       []string `json:"models"`
	DefaultModel string   `json:"defaultModel"`
}

var catalog = []Info{
	{
		ID:           OpenAI,
		Label:        "OpenAI (GPT)",
		Models:       []string{"gpt-4o-mini", "gpt-4o", "gpt-4-turbo", "gpt-4", "gpt-3.5-turbo"},
		DefaultModel: "gpt-4o-mini",
	},
	{
		ID:    Gemini,
		Label: "Google Gemini",
		Models: []string{
			"gemini-2.0-flash",
			"gemini-2.0-flash-lite",
			"gemini-3-flash-preview",
			"gemini-3-pro-preview",
			"gemini-1.5-flash",
			"gemini-1.5-flash-8b",
			"gemini-1.5-pro",
			"gemini-1.0-pro",
		},
		DefaultModel: "gemini-2.0-flash",
	},
	{
		ID:    Anthropic,
		Label: "Anthropic (Claude)",
		Models: []string{
			"claude-sonnet-4-20250514",
			"claude-3-5-sonnet-20241022",
			"claude-3-5-haiku-20241022",
			"claude-3-opus-20240229",
		},
		DefaultModel: "claude-3-5-sonnet-20241022",
	},
	{
		ID:           DeepSeek,
		Label:        "DeepSeek",
		Models:       []string{"deepseek-chat", "deepseek-reasoner"},
		DefaultModel: "deepseek-chat",
	},
}

// Catalog lists the supported vendors and their models.
func Catalog() []Info {
	out := make([]Info, len(catalog))
	for i, c := range catalog {
		c.Models = append([]string(nil), c.Models...)
		out[i] = c
	}
	return out
}

func lookup(id ID) (Info, bool) {
	for _, c := range catalog {
		if c.ID == id {
			return c, true
		}
	}
	return Info{}, false
}

// NormalizeID maps free-form input onto a known vendor, defaulting to OpenAI.
func NormalizeID(s string) ID {
	id := ID(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := lookup(id); ok {
		return id
	}
	return DefaultProvider
}

// DefaultModel is the model used when none is chosen for the vendor.
func DefaultModel(id ID) string {
	if c, ok := lookup(NormalizeID(string(id))); ok {
		return c.DefaultModel
	}
	return "gpt-4o-mini"
}

// ResolveSettings normalizes a room's AI settings: unknown vendors fall back
// to the default, and models outside the vendor's catalog to its default model.
func ResolveSettings(s models.AISettings) models.AISettings {
	id := NormalizeID(s.Provider)
	c, _ := lookup(id)
	model := strings.TrimSpace(s.Model)
	for _, m := range c.Models {
		if m == model {
			return models.AISettings{Provider: string(id), Model: model}
		}
	}
	return models.AISettings{Provider: string(id), Model: c.DefaultModel}
}
