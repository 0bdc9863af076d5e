package embedding

import (
	"context"
	"errors"
)

// ErrUnavailable indicates the embedding backend cannot be reached or is
// missing its model artifact. Callers surface this as a service-unavailable
// condition instead of degrading to empty results.
var ErrUnavailable = errors.New("embedding backend unavailable")

// Task types hint the provider about the retrieval role of the text.
const (
	TaskDocument = "RETRIEVAL_DOCUMENT"
	TaskQuery    = "RETRIEVAL_QUERY"
)

type EmbeddingResponseEmbedding struct {
	Values []float32 `json:"values"`
}

type EmbeddingResponse struct {
	Embedding EmbeddingResponseEmbedding `json:"embedding"`
}

// EmbeddingProvider defines the interface for generating text embeddings
type EmbeddingProvider interface {
	Generate(ctx context.Context, text string, taskType string) (*EmbeddingResponse, error)
}
