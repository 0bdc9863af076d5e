package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"offline-llm-be/internal/config"
	"offline-llm-be/internal/constant"
	"offline-llm-be/internal/dto"
	"offline-llm-be/internal/pkg/logger"
	"offline-llm-be/internal/session"
	"offline-llm-be/pkg/llm"
	"offline-llm-be/pkg/llm/safechat"
	"offline-llm-be/pkg/rerank"
	"offline-llm-be/pkg/store"
	"offline-llm-be/pkg/tokenizer"
)

type IQAService interface {
	DocQA(ctx context.Context, req *dto.DocQARequest) (*dto.QAResponse, error)
	SessionQA(ctx context.Context, req *dto.SessionQARequest, persistent bool) (*dto.QAResponse, error)
}

type qaService struct {
	permanent *store.Collection
	registry  *session.Registry
	reranker  rerank.Reranker
	invoker   *safechat.Invoker
	cfg       config.RagConfig
	logger    logger.ILogger
}

func NewQAService(
	permanent *store.Collection,
	registry *session.Registry,
	reranker rerank.Reranker,
	invoker *safechat.Invoker,
	cfg config.RagConfig,
	log logger.ILogger,
) IQAService {
	return &qaService{
		permanent: permanent,
		registry:  registry,
		reranker:  reranker,
		invoker:   invoker,
		cfg:       cfg,
		logger:    log,
	}
}

// retrievalK widens the candidate pool for long questions. With the factor
// disabled the pool stays at the configured base.
func (s *qaService) retrievalK(question string) int {
	k := s.cfg.BaseK
	if s.cfg.DynamicKFactor > 0 {
		k += tokenizer.CountTokens(question) / s.cfg.DynamicKFactor
	}
	return k
}

// DocQA answers a question from the permanent knowledge base, optionally
// widened with the caller's session collection when one exists.
func (s *qaService) DocQA(ctx context.Context, req *dto.DocQARequest) (*dto.QAResponse, error) {
	k := s.retrievalK(req.Question)

	candidates, err := s.permanent.Search(ctx, req.Question, k, store.SearchSimilarity)
	if err != nil {
		return nil, err
	}

	// An unknown or empty session is not an error here; the permanent KB
	// already answered the retrieval. The per-session lock keeps the reaper
	// from closing the collection while the search runs.
	if req.SessionId != "" {
		mu := s.registry.Lock(req.SessionId)
		mu.Lock()
		sessionDocs, err := s.registry.Query(ctx, req.SessionId, req.Question, k, store.SearchSimilarity)
		mu.Unlock()
		if err != nil && !errors.Is(err, session.ErrNotFound) && !errors.Is(err, store.ErrEmptyCollection) {
			return nil, err
		}
		candidates = append(candidates, sessionDocs...)
	}

	return s.answer(ctx, req.Question, req.Model, candidates)
}

// SessionQA answers from the session's collection, widened with the
// permanent knowledge base unless the caller opted out. The session must
// exist; its idle clock restarts on success.
// The per-session lock is held for the whole turn, so the reaper cannot
// purge the session mid-request.
func (s *qaService) SessionQA(ctx context.Context, req *dto.SessionQARequest, persistent bool) (*dto.QAResponse, error) {
	k := s.retrievalK(req.Question)

	mu := s.registry.Lock(req.SessionId)
	mu.Lock()
	defer mu.Unlock()

	sessionDocs, err := s.registry.Query(ctx, req.SessionId, req.Question, k/2, store.SearchSimilarity)
	if err != nil && !errors.Is(err, store.ErrEmptyCollection) {
		return nil, err
	}

	candidates := sessionDocs
	if persistent {
		permanentDocs, err := s.permanent.Search(ctx, req.Question, k, store.SearchSimilarity)
		if err != nil && !errors.Is(err, store.ErrEmptyCollection) {
			return nil, err
		}
		candidates = append(candidates, permanentDocs...)
	}

	res, err := s.answer(ctx, req.Question, req.Model, candidates)
	if err != nil {
		return nil, err
	}
	s.registry.Touch(req.SessionId)
	return res, nil
}

// answer runs the shared tail of the pipeline: rerank, prompt assembly,
// model invocation, and source attribution.
func (s *qaService) answer(ctx context.Context, question, model string, candidates []store.Passage) (*dto.QAResponse, error) {
	if len(candidates) == 0 {
		return &dto.QAResponse{Answer: constant.AnswerUnknown, Sources: []dto.SourceDTO{}}, nil
	}

	texts := make([]string, len(candidates))
	for i, p := range candidates {
		texts[i] = p.Text
	}

	topChunks, err := s.reranker.Rerank(ctx, question, texts, s.cfg.RerankTopK)
	if err != nil {
		return nil, err
	}

	prompt := s.buildPrompt(question, topChunks)

	answer, err := s.invoker.Chat(ctx, model, []llm.Message{
		{Role: constant.ChatMessageRoleUser, Content: prompt},
	})
	if err != nil {
		if errors.Is(err, safechat.ErrModelLoadTimeout) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", llm.ErrUpstream, err)
	}

	s.logger.Info("qa", "Answered question from context", map[string]interface{}{
		"candidates": len(candidates),
		"reranked":   len(topChunks),
	})

	return &dto.QAResponse{
		Answer:  answer,
		Sources: attributeSources(topChunks, candidates),
	}, nil
}

func (s *qaService) buildPrompt(question string, chunks []string) string {
	ctx := strings.Join(chunks, constant.ContextSeparator)
	if runes := []rune(ctx); len(runes) > s.cfg.ContextCharLimit {
		ctx = string(runes[:s.cfg.ContextCharLimit])
	}
	return fmt.Sprintf(constant.QAPromptTemplate, ctx, question)
}

// attributeSources maps reranked chunk texts back to their originating
// passages to recover page numbers. A chunk with no matching passage keeps a
// nil page rather than failing the request.
func attributeSources(chunks []string, candidates []store.Passage) []dto.SourceDTO {
	byText := make(map[string]store.Passage, len(candidates))
	for _, p := range candidates {
		if _, seen := byText[p.Text]; !seen {
			byText[p.Text] = p
		}
	}

	sources := make([]dto.SourceDTO, 0, len(chunks))
	for _, chunk := range chunks {
		src := dto.SourceDTO{Snippet: chunk}
		if p, ok := byText[chunk]; ok {
			src.PageNumber = p.Page
		}
		sources = append(sources, src)
	}
	return sources
}
