package rerank

import (
	"context"
	"errors"
)

// ErrUnavailable indicates the reranking backend cannot be reached or its
// model artifact is missing. Requests fail on it rather than answering from
// unranked context.
var ErrUnavailable = errors.New("reranker unavailable")

// Reranker reorders candidate passages by relevance to the query and
// truncates to topK. The returned slice is ordered most-to-least relevant
// and never longer than the input.
type Reranker interface {
	Rerank(ctx context.Context, query string, docs []string, topK int) ([]string, error)
}
