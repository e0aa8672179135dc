// internal/provider/errors.go
package provider

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrEmptyNarrative is returned when a vendor answers successfully with no text.
	ErrEmptyNarrative = errors.New("provider returned an empty narrative")
	// ErrMissingAPIKey is returned when no credential was supplied for the call.
	ErrMissingAPIKey = errors.New("api key is required")
)

// ProviderError describes a failed vendor call in one readable message.
type ProviderError struct {
	Provider ID
	Model    string
	Status   int // HTTP status, 0 when the request never completed
	Message  string
	Err      error
}

func (e *ProviderError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s (%s): status %d: %s", e.Provider, e.Model, e.Status, e.Message)
	}
	return fmt.Sprintf("%s (%s): %s", e.Provider, e.Model, e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// parseErrorEnvelope extracts the human readable message from a vendor error
// body: error.message, then a string error, then message, then the raw body.
func parseErrorEnvelope(body []byte) string {
	var env struct {
		Error   json.RawMessage `json:"error"`
		Message string          `json:"message"`
	}
	if err := json.Unmarshal(body, &env); err == nil {
		if len(env.Error) > 0 {
			var nested struct {
				Message string `json:"message"`
			}
			if json.Unmarshal(env.Error, &nested) == nil && nested.Message != "" {
				return nested.Message
			}
			var flat string
			if json.Unmarshal(env.Error, &flat) == nil && flat != "" {
				return flat
			}
		}
		if env.Message != "" {
			return env.Message
		}
	}
	raw := strings.TrimSpace(string(body))
	if raw == "" {
		return "unknown error"
	}
	return raw
}

// apiErrorMessage reads the vendor envelope an SDK error carries, falling back
// to the SDK's own rendering when the body is empty.
func apiErrorMessage(raw string, err error) string {
	if strings.TrimSpace(raw) == "" {
		return err.Error()
	}
	return parseErrorEnvelope([]byte(raw))
}
