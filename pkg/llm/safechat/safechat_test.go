package safechat

import (
	"context"
	"errors"
	"testing"
	"time"

	"offline-llm-be/pkg/llm"

	"github.com/stretchr/testify/assert"
)

// stubProvider scripts per-model behavior for one test.
type stubProvider struct {
	replies  map[string]string
	failures map[string]error
	loading  map[string]int // remaining "still loading" responses per model
	calls    []string
}

func (s *stubProvider) Chat(_ context.Context, _ []llm.Message, opts ...llm.Option) (string, error) {
	options := &llm.Options{}
	for _, opt := range opts {
		opt(options)
	}
	model := options.Model
	s.calls = append(s.calls, model)

	if n, ok := s.loading[model]; ok && n > 0 {
		s.loading[model] = n - 1
		return "", llm.ErrModelLoading
	}
	if err, ok := s.failures[model]; ok {
		return "", err
	}
	return s.replies[model], nil
}

func (s *stubProvider) Generate(ctx context.Context, prompt string, opts ...llm.Option) (string, error) {
	return s.Chat(ctx, []llm.Message{{Role: "user", Content: prompt}}, opts...)
}

func newInvoker(p llm.LLMProvider) *Invoker {
	return NewInvoker(p, "default-model").WithRetryPolicy(10, time.Millisecond)
}

func TestChatFallsBackToDefaultModel(t *testing.T) {
	p := &stubProvider{
		replies:  map[string]string{"default-model": "fallback answer"},
		failures: map[string]error{"custom": errors.New("boom")},
	}

	reply, err := newInvoker(p).Chat(context.Background(), "custom", []llm.Message{{Role: "user", Content: "hi"}})

	assert.NoError(t, err)
	assert.Equal(t, "fallback answer", reply)
	assert.Equal(t, []string{"custom", "default-model"}, p.calls)
}

func TestChatDefaultModelFailurePropagates(t *testing.T) {
	boom := errors.New("boom")
	p := &stubProvider{failures: map[string]error{"default-model": boom}}

	_, err := newInvoker(p).Chat(context.Background(), "default-model", nil)

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"default-model"}, p.calls)
}

func TestChatBothModelsFailing(t *testing.T) {
	p := &stubProvider{failures: map[string]error{
		"custom":        errors.New("custom down"),
		"default-model": errors.New("default down"),
	}}

	_, err := newInvoker(p).Chat(context.Background(), "custom", nil)

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "default down")
}

func TestChatRetriesWhileModelLoads(t *testing.T) {
	p := &stubProvider{
		replies: map[string]string{"default-model": "warmed up"},
		loading: map[string]int{"default-model": 3},
	}

	reply, err := newInvoker(p).Chat(context.Background(), "", nil)

	assert.NoError(t, err)
	assert.Equal(t, "warmed up", reply)
	// 3 loading responses plus the completed one
	assert.Len(t, p.calls, 4)
}

func TestChatLoadTimeoutPastBudget(t *testing.T) {
	p := &stubProvider{loading: map[string]int{"default-model": 100}}
	inv := NewInvoker(p, "default-model").WithRetryPolicy(2, time.Millisecond)

	_, err := inv.Chat(context.Background(), "default-model", nil)

	assert.ErrorIs(t, err, ErrModelLoadTimeout)
	assert.Len(t, p.calls, 3)
}

func TestChatLoadTimeoutNotMaskedByFallback(t *testing.T) {
	p := &stubProvider{loading: map[string]int{"custom": 100}}
	inv := NewInvoker(p, "default-model").WithRetryPolicy(2, time.Millisecond)

	_, err := inv.Chat(context.Background(), "custom", nil)

	assert.ErrorIs(t, err, ErrModelLoadTimeout)
	// No fallback call: the model exists, it just never finished loading.
	for _, m := range p.calls {
		assert.Equal(t, "custom", m)
	}
}

func TestChatEmptyModelUsesDefault(t *testing.T) {
	p := &stubProvider{replies: map[string]string{"default-model": "ok"}}

	reply, err := newInvoker(p).Chat(context.Background(), "", nil)

	assert.NoError(t, err)
	assert.Equal(t, "ok", reply)
}
