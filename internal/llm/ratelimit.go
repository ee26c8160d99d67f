package llm

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// throttled spaces out model requests with a token bucket. Prompt rendering is
// local and is not throttled.
type throttled struct {
	Provider
	bucket *rate.Limiter
}

// WithRateLimit wraps p so that at most rps requests per second (burst requests at
// once) reach the provider. rps <= 0 disables throttling.
func WithRateLimit(p Provider, rps float64, burst int) Provider {
	if rps <= 0 {
		return p
	}
	if burst < 1 {
		burst = 1
	}
	return &throttled{Provider: p, bucket: rate.NewLimiter(rate.Limit(rps), burst)}
}

func (t *throttled) Chat(ctx context.Context, messages []Message) (string, error) {
	if err := t.wait(ctx); err != nil {
		return "", err
	}
	return t.Provider.Chat(ctx, messages)
}

func (t *throttled) ChatWithVision(ctx context.Context, prompt string, images [][]byte, systemPrompt string) (string, error) {
	if err := t.wait(ctx); err != nil {
		return "", err
	}
	return t.Provider.ChatWithVision(ctx, prompt, images, systemPrompt)
}

func (t *throttled) wait(ctx context.Context) error {
	if err := t.bucket.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}
	return nil
}
