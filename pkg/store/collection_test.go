package store

import (
	"context"
	"testing"

	"offline-llm-be/pkg/embedding"

	"github.com/stretchr/testify/assert"
)

// fixedEmbedder returns canned unit vectors per text so ranking is
// deterministic without a live backend.
type fixedEmbedder struct {
	vectors map[string][]float32
}

func (f *fixedEmbedder) Generate(_ context.Context, text string, _ string) (*embedding.EmbeddingResponse, error) {
	vec, ok := f.vectors[text]
	if !ok {
		vec = []float32{0, 0, 1}
	}
	return &embedding.EmbeddingResponse{
		Embedding: embedding.EmbeddingResponseEmbedding{Values: vec},
	}, nil
}

func newTestCollection(t *testing.T) *Collection {
	t.Helper()
	emb := &fixedEmbedder{vectors: map[string][]float32{
		"apples are red":   {1, 0, 0},
		"oranges are sour": {0.98, 0.199, 0},
		"go is a language": {0, 0, 1},
		"fruit":            {0.8, 0, 0.6},
	}}
	c, err := OpenCollection(t.TempDir(), "test", emb)
	if err != nil {
		t.Fatalf("open collection: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestSearchEmptyCollection(t *testing.T) {
	c := newTestCollection(t)

	_, err := c.Search(context.Background(), "fruit", 5, SearchSimilarity)

	assert.ErrorIs(t, err, ErrEmptyCollection)
}

func TestAddAndSearchRoundTrip(t *testing.T) {
	c := newTestCollection(t)
	page := 2
	err := c.AddPassages(context.Background(), []Passage{
		{Text: "apples are red", Source: "fruits.txt", Page: &page},
		{Text: "oranges are sour", Source: "fruits.txt"},
		{Text: "go is a language", Source: "lang.txt"},
	})
	assert.NoError(t, err)

	results, err := c.Search(context.Background(), "fruit", 2, SearchSimilarity)

	assert.NoError(t, err)
	assert.Len(t, results, 2)
	assert.Equal(t, "apples are red", results[0].Text)
	assert.Equal(t, "oranges are sour", results[1].Text)
	if assert.NotNil(t, results[0].Page) {
		assert.Equal(t, 2, *results[0].Page)
	}
	assert.Nil(t, results[1].Page)
}

func TestSearchKLargerThanCollection(t *testing.T) {
	c := newTestCollection(t)
	err := c.AddPassages(context.Background(), []Passage{
		{Text: "apples are red", Source: "fruits.txt"},
	})
	assert.NoError(t, err)

	results, err := c.Search(context.Background(), "fruit", 10, SearchSimilarity)

	assert.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestDiversitySearchReturnsK(t *testing.T) {
	c := newTestCollection(t)
	err := c.AddPassages(context.Background(), []Passage{
		{Text: "apples are red", Source: "a"},
		{Text: "oranges are sour", Source: "b"},
		{Text: "go is a language", Source: "c"},
	})
	assert.NoError(t, err)

	results, err := c.Search(context.Background(), "fruit", 2, SearchDiversity)

	assert.NoError(t, err)
	assert.Len(t, results, 2)
	// The most relevant passage always comes first; the second pick trades
	// relevance for diversity, so the near-duplicate orange vector loses to
	// the orthogonal one.
	assert.Equal(t, "apples are red", results[0].Text)
	assert.Equal(t, "go is a language", results[1].Text)
}

func TestHasSource(t *testing.T) {
	c := newTestCollection(t)
	err := c.AddPassages(context.Background(), []Passage{
		{Text: "apples are red", Source: "fruits.txt"},
	})
	assert.NoError(t, err)

	has, err := c.HasSource(context.Background(), "fruits.txt")
	assert.NoError(t, err)
	assert.True(t, has)

	has, err = c.HasSource(context.Background(), "unknown.txt")
	assert.NoError(t, err)
	assert.False(t, has)
}
