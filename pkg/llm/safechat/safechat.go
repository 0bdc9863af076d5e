package safechat

import (
	"context"
	"errors"
	"fmt"
	"time"

	"offline-llm-be/pkg/llm"
)

// ErrModelLoadTimeout is returned when the backend kept reporting a loading
// state past the retry budget.
var ErrModelLoadTimeout = errors.New("model did not load in time")

const (
	DefaultLoadRetries = 10
	DefaultLoadDelay   = 2 * time.Second
)

// Invoker wraps an LLMProvider with two independent resilience behaviors:
// bounded retries while the requested model is still loading, and a single
// fallback to the default model when a non-default model fails outright.
type Invoker struct {
	provider     llm.LLMProvider
	defaultModel string
	loadRetries  int
	loadDelay    time.Duration
}

func NewInvoker(provider llm.LLMProvider, defaultModel string) *Invoker {
	return &Invoker{
		provider:     provider,
		defaultModel: defaultModel,
		loadRetries:  DefaultLoadRetries,
		loadDelay:    DefaultLoadDelay,
	}
}

// WithRetryPolicy overrides the load-retry budget and delay. Zero values
// keep the current setting.
func (i *Invoker) WithRetryPolicy(retries int, delay time.Duration) *Invoker {
	if retries > 0 {
		i.loadRetries = retries
	}
	if delay > 0 {
		i.loadDelay = delay
	}
	return i
}

func (i *Invoker) DefaultModel() string {
	return i.defaultModel
}

// Chat invokes the provider with the given model, falling back to the
// default model on a hard failure. A fallback attempt is itself subject to
// the load-retry behavior.
func (i *Invoker) Chat(ctx context.Context, model string, history []llm.Message, opts ...llm.Option) (string, error) {
	if model == "" {
		model = i.defaultModel
	}

	reply, err := i.chatWithLoadRetry(ctx, model, history, opts...)
	if err == nil {
		return reply, nil
	}

	// Load-timeout is fatal for the request; fallback only covers hard
	// failures of a non-default model.
	if errors.Is(err, ErrModelLoadTimeout) || model == i.defaultModel {
		return "", err
	}

	reply, fbErr := i.chatWithLoadRetry(ctx, i.defaultModel, history, opts...)
	if fbErr != nil {
		return "", fmt.Errorf("model %q failed (%v); fallback %q failed: %w", model, err, i.defaultModel, fbErr)
	}
	return reply, nil
}

func (i *Invoker) chatWithLoadRetry(ctx context.Context, model string, history []llm.Message, opts ...llm.Option) (string, error) {
	callOpts := append([]llm.Option{llm.WithModel(model)}, opts...)

	var lastErr error
	for attempt := 0; attempt <= i.loadRetries; attempt++ {
		reply, err := i.provider.Chat(ctx, history, callOpts...)
		if err == nil {
			return reply, nil
		}
		if !errors.Is(err, llm.ErrModelLoading) {
			return "", err
		}
		lastErr = err
		if attempt == i.loadRetries {
			break
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(i.loadDelay):
		}
	}
	return "", fmt.Errorf("%w: model %q after %d attempts: %v", ErrModelLoadTimeout, model, i.loadRetries+1, lastErr)
}
