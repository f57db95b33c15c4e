package ai

import (
	"encoding/json"
	"fmt"
)

// Turn is one role-tagged message sent to the completion provider. Content
// is used for plain text; Parts takes precedence when set (vision turns
// mixing text and image URLs).
type Turn struct {
	Role    string
	Content string
	Parts   []ContentPart
}

type ContentPart struct {
	Type     string    `json:"type"` // "text" or "image_url"
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`
}

type ImageURL struct {
	URL string `json:"url"`
}

func TextTurn(role, content string) Turn {
	return Turn{Role: role, Content: content}
}

func (t Turn) MarshalJSON() ([]byte, error) {
	if len(t.Parts) > 0 {
		return json.Marshal(struct {
			Role    string        `json:"role"`
			Content []ContentPart `json:"content"`
		}{t.Role, t.Parts})
	}
	return json.Marshal(struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}{t.Role, t.Content})
}

// Fragment is one incremental piece of streamed output. The terminal
// fragment carries an empty Content and the provider finish reason.
type Fragment struct {
	Content      string
	FinishReason string
}

// Result of a non-streaming completion.
type Result struct {
	Content          string
	Model            string
	TotalTokens      int
	PromptTokens     int
	CompletionTokens int
	FinishReason     string
}

// ProviderError is a provider-reported failure with its HTTP status.
type ProviderError struct {
	StatusCode int
	Message    string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider error: %s (status %d)", e.Message, e.StatusCode)
}

// Options tunes a completion request. Zero values fall back to defaults.
type Options struct {
	Temperature      *float64
	MaxTokens        int
	TopP             *float64
	FrequencyPenalty float64
	PresencePenalty  float64
}

const (
	defaultTemperature = 0.7
	defaultMaxTokens   = 1000
	defaultTopP        = 1.0
)

func (o Options) temperature() float64 {
	if o.Temperature != nil {
		return *o.Temperature
	}
	return defaultTemperature
}

func (o Options) maxTokens() int {
	if o.MaxTokens > 0 {
		return o.MaxTokens
	}
	return defaultMaxTokens
}

func (o Options) topP() float64 {
	if o.TopP != nil {
		return *o.TopP
	}
	return defaultTopP
}
