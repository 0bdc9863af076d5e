package service

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"testing"
	"time"

	"offline-llm-be/internal/config"
	"offline-llm-be/internal/constant"
	"offline-llm-be/internal/dto"
	"offline-llm-be/internal/session"
	"offline-llm-be/pkg/embedding"
	"offline-llm-be/pkg/llm"
	"offline-llm-be/pkg/llm/safechat"
	"offline-llm-be/pkg/rerank"
	"offline-llm-be/pkg/store"

	"github.com/stretchr/testify/assert"
)

type noopLogger struct{}

func (noopLogger) Debug(string, string, map[string]interface{}) {}
func (noopLogger) Info(string, string, map[string]interface{})  {}
func (noopLogger) Warn(string, string, map[string]interface{})  {}
func (noopLogger) Error(string, string, map[string]interface{}) {}
func (noopLogger) Sync() error                                  { return nil }

type hashEmbedder struct{}

func (hashEmbedder) Generate(_ context.Context, text string, _ string) (*embedding.EmbeddingResponse, error) {
	h := fnv.New32a()
	h.Write([]byte(text))
	seed := h.Sum32()

	values := make([]float32, 8)
	var norm float32
	for i := range values {
		seed = seed*1664525 + 1013904223
		values[i] = float32(seed%1000) / 1000.0
		norm += values[i] * values[i]
	}
	mag := float32(math.Sqrt(float64(norm)))
	for i := range values {
		values[i] /= mag
	}
	return &embedding.EmbeddingResponse{
		Embedding: embedding.EmbeddingResponseEmbedding{Values: values},
	}, nil
}

// passthroughReranker keeps input order, truncates to topK, and records what
// it was asked to rank. A scripted result overrides the passthrough.
type passthroughReranker struct {
	gotDocs  []string
	gotTopK  int
	scripted []string
	err      error
}

func (r *passthroughReranker) Rerank(_ context.Context, _ string, docs []string, topK int) ([]string, error) {
	r.gotDocs = docs
	r.gotTopK = topK
	if r.err != nil {
		return nil, r.err
	}
	if r.scripted != nil {
		return r.scripted, nil
	}
	if len(docs) > topK {
		docs = docs[:topK]
	}
	return docs, nil
}

// scriptedProvider returns a fixed reply and records the history it saw.
type scriptedProvider struct {
	reply      string
	err        error
	gotHistory []llm.Message
}

func (p *scriptedProvider) Chat(_ context.Context, history []llm.Message, _ ...llm.Option) (string, error) {
	p.gotHistory = history
	if p.err != nil {
		return "", p.err
	}
	return p.reply, nil
}

func (p *scriptedProvider) Generate(ctx context.Context, prompt string, opts ...llm.Option) (string, error) {
	return p.Chat(ctx, []llm.Message{{Role: constant.ChatMessageRoleUser, Content: prompt}}, opts...)
}

type qaFixture struct {
	svc       *qaService
	permanent *store.Collection
	registry  *session.Registry
	reranker  *passthroughReranker
	provider  *scriptedProvider
}

func newQAFixture(t *testing.T) *qaFixture {
	t.Helper()

	permanent, err := store.OpenCollection(t.TempDir(), "persist", hashEmbedder{})
	assert.NoError(t, err)
	t.Cleanup(func() { permanent.Close() })

	registry, err := session.NewRegistry(t.TempDir(), hashEmbedder{})
	assert.NoError(t, err)

	reranker := &passthroughReranker{}
	provider := &scriptedProvider{reply: "Paris"}
	invoker := safechat.NewInvoker(provider, "default-model").WithRetryPolicy(1, time.Millisecond)

	svc := NewQAService(permanent, registry, reranker, invoker, config.RagConfig{
		BaseK:            10,
		RerankTopK:       3,
		ContextCharLimit: 2000,
	}, noopLogger{}).(*qaService)

	return &qaFixture{
		svc:       svc,
		permanent: permanent,
		registry:  registry,
		reranker:  reranker,
		provider:  provider,
	}
}

func TestRetrievalK(t *testing.T) {
	tests := []struct {
		name     string
		baseK    int
		factor   int
		question string
		want     int
	}{
		{name: "factor disabled", baseK: 10, factor: 0, question: "what is the capital of France", want: 10},
		{name: "widens with question length", baseK: 5, factor: 3, question: "what is the capital of France", want: 7},
		{name: "short question adds nothing", baseK: 5, factor: 100, question: "why", want: 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &qaService{cfg: config.RagConfig{BaseK: tt.baseK, DynamicKFactor: tt.factor}}
			assert.Equal(t, tt.want, s.retrievalK(tt.question))
		})
	}
}

func TestDocQAEmptyPermanentCollection(t *testing.T) {
	f := newQAFixture(t)

	_, err := f.svc.DocQA(context.Background(), &dto.DocQARequest{Question: "anything"})

	assert.ErrorIs(t, err, store.ErrEmptyCollection)
}

func TestDocQAAnswersWithSources(t *testing.T) {
	f := newQAFixture(t)
	ctx := context.Background()
	page := 4

	err := f.permanent.AddPassages(ctx, []store.Passage{
		{Text: "the capital of France is Paris", Source: "geo.txt", Page: &page},
		{Text: "go is a compiled language", Source: "geo.txt"},
	})
	assert.NoError(t, err)

	res, err := f.svc.DocQA(ctx, &dto.DocQARequest{Question: "what is the capital of France?"})

	assert.NoError(t, err)
	assert.Equal(t, "Paris", res.Answer)
	assert.Equal(t, 3, f.reranker.gotTopK)
	assert.Len(t, res.Sources, 2)
	for _, src := range res.Sources {
		if src.Snippet == "the capital of France is Paris" {
			assert.NotNil(t, src.PageNumber)
			assert.Equal(t, 4, *src.PageNumber)
		} else {
			assert.Nil(t, src.PageNumber)
		}
	}

	// Single user message carrying context and question.
	assert.Len(t, f.provider.gotHistory, 1)
	prompt := f.provider.gotHistory[0].Content
	assert.Contains(t, prompt, "the capital of France is Paris")
	assert.Contains(t, prompt, "QUESTION: what is the capital of France?")
}

func TestDocQACitesOnlyRerankedPassages(t *testing.T) {
	f := newQAFixture(t)
	ctx := context.Background()
	f.reranker.scripted = []string{"c1"}
	f.provider.reply = "ans"

	err := f.permanent.AddPassages(ctx, []store.Passage{
		{Text: "c1", Source: "kb.txt"},
		{Text: "c2", Source: "kb.txt"},
	})
	assert.NoError(t, err)

	res, err := f.svc.DocQA(ctx, &dto.DocQARequest{Question: "q"})

	assert.NoError(t, err)
	assert.Equal(t, "ans", res.Answer)
	assert.Equal(t, []dto.SourceDTO{{PageNumber: nil, Snippet: "c1"}}, res.Sources)
}

func TestAnswerShortCircuitsOnNoCandidates(t *testing.T) {
	f := newQAFixture(t)

	res, err := f.svc.answer(context.Background(), "anything", "", nil)

	assert.NoError(t, err)
	assert.Equal(t, constant.AnswerUnknown, res.Answer)
	assert.Empty(t, res.Sources)
	assert.NotNil(t, res.Sources)
	assert.Nil(t, f.provider.gotHistory)
}

func TestRerankFailurePropagates(t *testing.T) {
	f := newQAFixture(t)
	ctx := context.Background()
	f.reranker.err = rerank.ErrUnavailable

	err := f.permanent.AddPassages(ctx, []store.Passage{{Text: "some fact", Source: "a.txt"}})
	assert.NoError(t, err)

	_, err = f.svc.DocQA(ctx, &dto.DocQARequest{Question: "anything"})

	assert.ErrorIs(t, err, rerank.ErrUnavailable)
	assert.Nil(t, f.provider.gotHistory)
}

func TestSessionQAMergesSessionCandidatesFirst(t *testing.T) {
	f := newQAFixture(t)
	ctx := context.Background()

	err := f.permanent.AddPassages(ctx, []store.Passage{{Text: "permanent fact", Source: "kb.txt"}})
	assert.NoError(t, err)
	err = f.registry.AddPassages(ctx, "s1", []store.Passage{{Text: "session fact", Source: "uploaded"}})
	assert.NoError(t, err)

	res, err := f.svc.SessionQA(ctx, &dto.SessionQARequest{SessionId: "s1", Question: "anything"}, true)

	assert.NoError(t, err)
	assert.Equal(t, "Paris", res.Answer)
	assert.Equal(t, []string{"session fact", "permanent fact"}, f.reranker.gotDocs)
}

func TestSessionQAWithoutPersistentKB(t *testing.T) {
	f := newQAFixture(t)
	ctx := context.Background()

	err := f.permanent.AddPassages(ctx, []store.Passage{{Text: "permanent fact", Source: "kb.txt"}})
	assert.NoError(t, err)
	err = f.registry.AddPassages(ctx, "s1", []store.Passage{{Text: "session fact", Source: "uploaded"}})
	assert.NoError(t, err)

	_, err = f.svc.SessionQA(ctx, &dto.SessionQARequest{SessionId: "s1", Question: "anything"}, false)

	assert.NoError(t, err)
	assert.Equal(t, []string{"session fact"}, f.reranker.gotDocs)
}

func TestSessionQAUnknownSession(t *testing.T) {
	f := newQAFixture(t)

	_, err := f.svc.SessionQA(context.Background(), &dto.SessionQARequest{SessionId: "ghost", Question: "anything"}, true)

	assert.ErrorIs(t, err, session.ErrNotFound)
}

func TestDocQAToleratesUnknownSession(t *testing.T) {
	f := newQAFixture(t)
	ctx := context.Background()

	err := f.permanent.AddPassages(ctx, []store.Passage{{Text: "permanent fact", Source: "kb.txt"}})
	assert.NoError(t, err)

	res, err := f.svc.DocQA(ctx, &dto.DocQARequest{Question: "anything", SessionId: "ghost"})

	assert.NoError(t, err)
	assert.Equal(t, "Paris", res.Answer)
}

func TestSessionQAWaitsForSessionLock(t *testing.T) {
	f := newQAFixture(t)
	ctx := context.Background()

	err := f.registry.AddPassages(ctx, "s1", []store.Passage{{Text: "session fact", Source: "uploaded"}})
	assert.NoError(t, err)

	// Holding the session lock stands in for a purge in progress; the query
	// must not touch the collection until it is released.
	mu := f.registry.Lock("s1")
	mu.Lock()

	done := make(chan error, 1)
	go func() {
		_, err := f.svc.SessionQA(ctx, &dto.SessionQARequest{SessionId: "s1", Question: "anything"}, false)
		done <- err
	}()

	select {
	case <-done:
		t.Fatal("query ran while the session lock was held")
	case <-time.After(50 * time.Millisecond):
	}

	mu.Unlock()
	assert.NoError(t, <-done)
}

func TestDocQASessionWideningWaitsForSessionLock(t *testing.T) {
	f := newQAFixture(t)
	ctx := context.Background()

	err := f.permanent.AddPassages(ctx, []store.Passage{{Text: "permanent fact", Source: "kb.txt"}})
	assert.NoError(t, err)
	err = f.registry.AddPassages(ctx, "s1", []store.Passage{{Text: "session fact", Source: "uploaded"}})
	assert.NoError(t, err)

	mu := f.registry.Lock("s1")
	mu.Lock()

	done := make(chan error, 1)
	go func() {
		_, err := f.svc.DocQA(ctx, &dto.DocQARequest{Question: "anything", SessionId: "s1"})
		done <- err
	}()

	select {
	case <-done:
		t.Fatal("query ran while the session lock was held")
	case <-time.After(50 * time.Millisecond):
	}

	mu.Unlock()
	assert.NoError(t, <-done)
}

func TestQALoadTimeoutIsNotMaskedAsUpstream(t *testing.T) {
	f := newQAFixture(t)
	ctx := context.Background()
	f.provider.err = llm.ErrModelLoading

	err := f.permanent.AddPassages(ctx, []store.Passage{{Text: "some fact", Source: "a.txt"}})
	assert.NoError(t, err)

	_, err = f.svc.DocQA(ctx, &dto.DocQARequest{Question: "anything"})

	assert.ErrorIs(t, err, safechat.ErrModelLoadTimeout)
	assert.NotErrorIs(t, err, llm.ErrUpstream)
}

func TestQAHardFailureWrappedAsUpstream(t *testing.T) {
	f := newQAFixture(t)
	ctx := context.Background()
	f.provider.err = assert.AnError

	err := f.permanent.AddPassages(ctx, []store.Passage{{Text: "some fact", Source: "a.txt"}})
	assert.NoError(t, err)

	_, err = f.svc.DocQA(ctx, &dto.DocQARequest{Question: "anything"})

	assert.ErrorIs(t, err, llm.ErrUpstream)
}

func TestBuildPromptTruncatesContext(t *testing.T) {
	s := &qaService{cfg: config.RagConfig{ContextCharLimit: 20}}

	prompt := s.buildPrompt("q", []string{strings.Repeat("a", 50)})

	assert.NotContains(t, prompt, strings.Repeat("a", 21))
	assert.Contains(t, prompt, strings.Repeat("a", 20))
	assert.Contains(t, prompt, "QUESTION: q")
}
