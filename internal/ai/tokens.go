package ai

import (
	"context"
	"errors"
	"time"
)

// tokensPerMessageOverhead covers the provider's per-message framing.
const tokensPerMessageOverhead = 4

// EstimateTokens approximates the token count of text as ceil(len/4).
// This is a heuristic, not a tokenizer; it is only used when the provider
// does not report exact usage (streaming mode).
func EstimateTokens(text string) int {
	return (len(text) + 3) / 4
}

// EstimateTurnTokens approximates the total tokens of a turn list,
// including per-message overhead.
func EstimateTurnTokens(turns []Turn) int {
	total := 0
	for _, t := range turns {
		if len(t.Parts) > 0 {
			for _, p := range t.Parts {
				total += EstimateTokens(p.Text)
			}
		} else {
			total += EstimateTokens(t.Content)
		}
		total += tokensPerMessageOverhead
	}
	return total
}

// WithRetry retries fn with exponential backoff. Provider-reported auth
// (401) and bad-request (400) failures are surfaced immediately; anything
// else is retried until maxAttempts, returning the last error. Not used on
// the streaming path.
func WithRetry[T any](ctx context.Context, fn func() (T, error), maxAttempts int, baseDelay time.Duration) (T, error) {
	var zero T
	var lastErr error

	for attempt := 0; attempt < maxAttempts; attempt++ {
		result, err := fn()
		if err == nil {
			return result, nil
		}
		lastErr = err

		var provErr *ProviderError
		if errors.As(err, &provErr) {
			if provErr.StatusCode == 401 || provErr.StatusCode == 400 {
				return zero, err
			}
		}

		if attempt < maxAttempts-1 {
			delay := baseDelay * (1 << attempt)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return zero, ctx.Err()
			}
		}
	}

	if lastErr == nil {
		lastErr = errors.New("max retries exceeded")
	}
	return zero, lastErr
}
