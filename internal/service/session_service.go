package service

import (
	"context"

	"offline-llm-be/internal/dto"
	"offline-llm-be/internal/pkg/logger"
	"offline-llm-be/internal/session"
	"offline-llm-be/pkg/events"
	"offline-llm-be/pkg/ingestion"
)

type ISessionService interface {
	Upload(ctx context.Context, sessionID, fileName string, data []byte) (*dto.UploadResponse, error)
	Purge(ctx context.Context, sessionID string) error
}

type sessionService struct {
	registry       *session.Registry
	histories      *session.Histories
	loader         ingestion.DocumentLoader
	eventPublisher events.Publisher
	logger         logger.ILogger
}

func NewSessionService(
	registry *session.Registry,
	histories *session.Histories,
	loader ingestion.DocumentLoader,
	eventPublisher events.Publisher,
	log logger.ILogger,
) ISessionService {
	return &sessionService{
		registry:       registry,
		histories:      histories,
		loader:         loader,
		eventPublisher: eventPublisher,
		logger:         log,
	}
}

// Upload ingests a document into the session's collection, creating the
// collection on first upload.
func (s *sessionService) Upload(ctx context.Context, sessionID, fileName string, data []byte) (*dto.UploadResponse, error) {
	passages, err := s.loader.LoadBytes(data, fileName)
	if err != nil {
		if s.eventPublisher != nil {
			_ = s.eventPublisher.Publish(ctx, events.NewDocumentRejected(fileName, err.Error()))
		}
		return nil, err
	}

	mu := s.registry.Lock(sessionID)
	mu.Lock()
	defer mu.Unlock()

	if err := s.registry.AddPassages(ctx, sessionID, passages); err != nil {
		return nil, err
	}

	s.logger.Info("session", "Ingested document into session", map[string]interface{}{
		"session_id": sessionID,
		"file":       fileName,
		"chunks":     len(passages),
	})
	if s.eventPublisher != nil {
		if err := s.eventPublisher.Publish(ctx, events.NewDocumentIndexed(fileName, len(passages), false)); err != nil {
			s.logger.Warn("session", "Failed to publish indexed event", map[string]interface{}{
				"session_id": sessionID,
				"error":      err.Error(),
			})
		}
	}

	return &dto.UploadResponse{
		SessionId: sessionID,
		FileName:  fileName,
		Chunks:    len(passages),
	}, nil
}

// Purge tears down the session entirely: collection, transcript, idle
// tracking. Unknown sessions report ErrNotFound.
func (s *sessionService) Purge(ctx context.Context, sessionID string) error {
	if !s.histories.Exists(sessionID) {
		if _, err := s.registry.Get(sessionID); err != nil {
			return err
		}
	}

	mu := s.registry.Lock(sessionID)
	mu.Lock()
	defer mu.Unlock()

	if err := s.registry.Purge(sessionID); err != nil {
		return err
	}
	s.histories.Drop(sessionID)

	s.logger.Info("session", "Purged session", map[string]interface{}{
		"session_id": sessionID,
	})
	if s.eventPublisher != nil {
		if err := s.eventPublisher.Publish(ctx, events.NewSessionPurged(sessionID, false)); err != nil {
			s.logger.Warn("session", "Failed to publish purge event", map[string]interface{}{
				"session_id": sessionID,
				"error":      err.Error(),
			})
		}
	}
	return nil
}
