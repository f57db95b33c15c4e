// Package ai wraps an OpenAI-compatible chat completion API: single-shot
// completions, SSE token streams, token/cost estimation and a retry helper.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Provider is the surface the streaming relay depends on.
type Provider interface {
	Complete(ctx context.Context, turns []Turn, model string, opts Options) (*Result, error)
	StreamComplete(ctx context.Context, turns []Turn, model string, opts Options) (*Stream, error)
}

type Client struct {
	apiKey       string
	apiURL       string
	client       *http.Client
	streamClient *http.Client // no timeout for SSE streaming
}

func NewClient(apiKey, apiURL string) *Client {
	return &Client{
		apiKey: apiKey,
		apiURL: apiURL,
		client: &http.Client{
			Timeout: 120 * time.Second,
		},
		streamClient: &http.Client{
			Timeout: 0,
		},
	}
}

func (c *Client) buildRequest(ctx context.Context, turns []Turn, model string, opts Options, stream bool) (*http.Request, error) {
	payload := map[string]interface{}{
		"model":             model,
		"messages":          turns,
		"temperature":       opts.temperature(),
		"max_tokens":        opts.maxTokens(),
		"top_p":             opts.topP(),
		"frequency_penalty": opts.FrequencyPenalty,
		"presence_penalty":  opts.PresencePenalty,
		"stream":            stream,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode completion request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	if stream {
		req.Header.Set("Accept", "text/event-stream")
	}
	return req, nil
}

// providerError decodes the error body of a failed provider response.
func providerError(resp *http.Response) *ProviderError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	var payload struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	msg := "completion request failed"
	if err := json.Unmarshal(body, &payload); err == nil && payload.Error.Message != "" {
		msg = payload.Error.Message
	}
	return &ProviderError{StatusCode: resp.StatusCode, Message: msg}
}

// Complete performs a non-streaming completion.
func (c *Client) Complete(ctx context.Context, turns []Turn, model string, opts Options) (*Result, error) {
	req, err := c.buildRequest(ctx, turns, model, opts, false)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("completion call failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, providerError(resp)
	}

	var payload struct {
		Model   string `json:"model"`
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
			FinishReason string `json:"finish_reason"`
		} `json:"choices"`
		Usage struct {
			TotalTokens      int `json:"total_tokens"`
			PromptTokens     int `json:"prompt_tokens"`
			CompletionTokens int `json:"completion_tokens"`
		} `json:"usage"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode completion response: %w", err)
	}
	if len(payload.Choices) == 0 {
		return nil, &ProviderError{StatusCode: resp.StatusCode, Message: "completion returned no choices"}
	}

	return &Result{
		Content:          payload.Choices[0].Message.Content,
		Model:            payload.Model,
		TotalTokens:      payload.Usage.TotalTokens,
		PromptTokens:     payload.Usage.PromptTokens,
		CompletionTokens: payload.Usage.CompletionTokens,
		FinishReason:     payload.Choices[0].FinishReason,
	}, nil
}

// StreamComplete opens a token stream. The caller drives pacing via
// Stream.Recv and must Close the stream when done.
func (c *Client) StreamComplete(ctx context.Context, turns []Turn, model string, opts Options) (*Stream, error) {
	req, err := c.buildRequest(ctx, turns, model, opts, true)
	if err != nil {
		return nil, err
	}

	resp, err := c.streamClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("streaming call failed: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, providerError(resp)
	}

	return newStream(resp.Body), nil
}
