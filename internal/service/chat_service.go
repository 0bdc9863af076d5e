package service

import (
	"context"
	"errors"
	"fmt"

	"offline-llm-be/internal/constant"
	"offline-llm-be/internal/dto"
	"offline-llm-be/internal/pkg/logger"
	"offline-llm-be/internal/session"
	"offline-llm-be/pkg/events"
	"offline-llm-be/pkg/llm"
	"offline-llm-be/pkg/llm/safechat"
)

type IChatService interface {
	SendChat(ctx context.Context, req *dto.SendChatRequest) (*dto.SendChatResponse, error)
	Proofread(ctx context.Context, req *dto.ProofreadRequest) (*dto.ProofreadResponse, error)
}

type chatService struct {
	registry  *session.Registry
	histories *session.Histories
	invoker   *safechat.Invoker
	publisher events.Publisher
	logger    logger.ILogger
}

func NewChatService(
	registry *session.Registry,
	histories *session.Histories,
	invoker *safechat.Invoker,
	publisher events.Publisher,
	log logger.ILogger,
) IChatService {
	return &chatService{
		registry:  registry,
		histories: histories,
		invoker:   invoker,
		publisher: publisher,
		logger:    log,
	}
}

// SendChat runs one conversational turn. A missing session ID starts a new
// session; the caller gets the ID back for the rest of the conversation.
// The per-session lock serializes turns against each other and the reaper.
func (s *chatService) SendChat(ctx context.Context, req *dto.SendChatRequest) (*dto.SendChatResponse, error) {
	sessionID := req.SessionId
	fresh := sessionID == ""
	if fresh {
		sessionID = session.NewSessionID()
	}

	mu := s.registry.Lock(sessionID)
	mu.Lock()
	defer mu.Unlock()

	model := req.Model
	if model == "" {
		model = s.invoker.DefaultModel()
	}

	history := s.histories.Messages(sessionID, model)
	turn := append(append([]llm.Message{}, history...), llm.Message{
		Role:    constant.ChatMessageRoleUser,
		Content: req.Message,
	})

	reply, err := s.invoker.Chat(ctx, model, turn, llm.WithTemperature(0.4))
	if err != nil {
		if errors.Is(err, safechat.ErrModelLoadTimeout) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", llm.ErrUpstream, err)
	}

	s.histories.AppendTurn(sessionID, req.Message, reply)
	s.registry.Touch(sessionID)

	if fresh && s.publisher != nil {
		if err := s.publisher.Publish(ctx, events.NewSessionCreated(sessionID)); err != nil {
			s.logger.Warn("chat", "Failed to publish session created event", map[string]interface{}{
				"session_id": sessionID,
				"error":      err.Error(),
			})
		}
	}

	return &dto.SendChatResponse{
		SessionId: sessionID,
		Reply:     reply,
		Model:     model,
	}, nil
}

// Proofread is a stateless single-shot correction; no session is involved.
func (s *chatService) Proofread(ctx context.Context, req *dto.ProofreadRequest) (*dto.ProofreadResponse, error) {
	corrected, err := s.invoker.Chat(ctx, req.Model, []llm.Message{
		{Role: constant.ChatMessageRoleSystem, Content: constant.ProofreadSystemPrompt},
		{Role: constant.ChatMessageRoleUser, Content: req.Text},
	})
	if err != nil {
		if errors.Is(err, safechat.ErrModelLoadTimeout) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", llm.ErrUpstream, err)
	}
	return &dto.ProofreadResponse{Corrected: corrected}, nil
}
