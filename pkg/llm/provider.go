package llm

import (
	"context"
	"errors"
)

// ErrModelLoading indicates the backend accepted the request but the model
// is still being loaded into memory. Callers may retry the same call.
var ErrModelLoading = errors.New("model is still loading")

// ErrUpstream marks a hard failure from the chat backend after all recovery
// attempts. Services wrap terminal chat errors with it so the HTTP layer can
// report a bad gateway.
var ErrUpstream = errors.New("chat backend failure")

// Message represents a chat message in a provider-agnostic format
type Message struct {
	Role    string // "user", "assistant", "system"
	Content string
}

// ModelInfo describes one model available on the backend.
type ModelInfo struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Option allows for optional parameters like Temperature, MaxTokens, etc.
type Option func(*Options)

type Options struct {
	Temperature float64
	MaxTokens   int
	Model       string // Override default model
}

func WithTemperature(temp float64) Option {
	return func(o *Options) {
		o.Temperature = temp
	}
}

func WithModel(model string) Option {
	return func(o *Options) {
		o.Model = model
	}
}

func WithMaxTokens(n int) Option {
	return func(o *Options) {
		o.MaxTokens = n
	}
}

// LLMProvider defines the contract for any chat backend
type LLMProvider interface {
	// Chat sends a chat history to the model and returns the response.
	// Returns ErrModelLoading (possibly wrapped) while the requested model
	// is warming up.
	Chat(ctx context.Context, history []Message, options ...Option) (string, error)

	// Generate sends a single prompt to the model (convenience method)
	Generate(ctx context.Context, prompt string, options ...Option) (string, error)
}

// ModelLister is implemented by backends that can enumerate their models.
type ModelLister interface {
	ListModels(ctx context.Context) ([]ModelInfo, error)
}
