// Package remote talks to the model that answers questions.
package remote

import (
	"context"
	"fmt"
	"time"
)

// Inferencer turns an encoded prompt into the model's raw reply.
type Inferencer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Func adapts a plain function to Inferencer.
type Func func(ctx context.Context, prompt string) (string, error)

func (f Func) Complete(ctx context.Context, prompt string) (string, error) { return f(ctx, prompt) }

const (
	ProviderHTTP   = "http"
	ProviderGemini = "gemini"
)

type Config struct {
	Provider string
	// Endpoint is the chat URL for the http provider.
	Endpoint string
	// Model and APIKey are used by the gemini provider.
	Model   string
	APIKey  string
	Timeout time.Duration
}

func New(ctx context.Context, cfg Config) (Inferencer, error) {
	switch cfg.Provider {
	case ProviderHTTP, "":
		return NewHTTPClient(cfg)
	case ProviderGemini:
		return NewGeminiClient(ctx, cfg)
	}
	return nil, fmt.Errorf("unknown provider: %s (available: http, gemini)", cfg.Provider)
}

// WithTimeout bounds every call to inner. A zero timeout leaves calls unbounded.
func WithTimeout(inner Inferencer, timeout time.Duration) Inferencer {
	if timeout <= 0 {
		return inner
	}
	return Func(func(ctx context.Context, prompt string) (string, error) {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		return inner.Complete(ctx, prompt)
	})
}
