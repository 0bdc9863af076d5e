package service

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"offline-llm-be/internal/dto"
	"offline-llm-be/internal/pkg/logger"
	"offline-llm-be/pkg/events"
	"offline-llm-be/pkg/ingestion"
	"offline-llm-be/pkg/store"
)

type IKnowledgeService interface {
	// BootIngest walks the docs directory and publishes one index job per
	// document not yet present in the permanent knowledge base.
	BootIngest(ctx context.Context) (int, error)

	// IndexFile synchronously loads, splits, embeds, and stores one document
	// into the permanent knowledge base.
	IndexFile(ctx context.Context, path string) (int, error)

	// IndexBytes ingests an in-memory document into the permanent knowledge
	// base. Already-indexed sources are skipped, reported via the bool.
	IndexBytes(ctx context.Context, data []byte, source string) (int, bool, error)
}

type knowledgeService struct {
	permanent        *store.Collection
	loader           ingestion.DocumentLoader
	publisherService IPublisherService
	eventPublisher   events.Publisher
	docsDir          string
	logger           logger.ILogger
}

func NewKnowledgeService(
	permanent *store.Collection,
	loader ingestion.DocumentLoader,
	publisherService IPublisherService,
	eventPublisher events.Publisher,
	docsDir string,
	log logger.ILogger,
) IKnowledgeService {
	return &knowledgeService{
		permanent:        permanent,
		loader:           loader,
		publisherService: publisherService,
		eventPublisher:   eventPublisher,
		docsDir:          docsDir,
		logger:           log,
	}
}

func (s *knowledgeService) BootIngest(ctx context.Context) (int, error) {
	entries, err := os.ReadDir(s.docsDir)
	if err != nil {
		if os.IsNotExist(err) {
			s.logger.Info("knowledge", "Docs directory absent, skipping boot ingestion", map[string]interface{}{
				"dir": s.docsDir,
			})
			return 0, nil
		}
		return 0, fmt.Errorf("read docs dir %q: %w", s.docsDir, err)
	}

	published := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		source := entry.Name()
		indexed, err := s.permanent.HasSource(ctx, source)
		if err != nil {
			return published, err
		}
		if indexed {
			s.logger.Debug("knowledge", "Source already indexed, skipping", map[string]interface{}{
				"source": source,
			})
			continue
		}

		payload, err := json.Marshal(dto.IndexDocumentMessage{
			Path: filepath.Join(s.docsDir, source),
		})
		if err != nil {
			return published, err
		}
		if err := s.publisherService.Publish(ctx, payload); err != nil {
			return published, fmt.Errorf("publish index job for %q: %w", source, err)
		}
		published++
	}

	s.logger.Info("knowledge", "Boot ingestion jobs published", map[string]interface{}{
		"jobs": published,
	})
	return published, nil
}

func (s *knowledgeService) IndexFile(ctx context.Context, path string) (int, error) {
	passages, err := s.loader.Load(path)
	if err != nil {
		s.publishRejected(ctx, filepath.Base(path), err)
		return 0, err
	}

	if err := s.permanent.AddPassages(ctx, passages); err != nil {
		return 0, err
	}

	s.publishIndexed(ctx, filepath.Base(path), len(passages))
	return len(passages), nil
}

func (s *knowledgeService) IndexBytes(ctx context.Context, data []byte, source string) (int, bool, error) {
	indexed, err := s.permanent.HasSource(ctx, source)
	if err != nil {
		return 0, false, err
	}
	if indexed {
		return 0, true, nil
	}

	passages, err := s.loader.LoadBytes(data, source)
	if err != nil {
		s.publishRejected(ctx, source, err)
		return 0, false, err
	}

	if err := s.permanent.AddPassages(ctx, passages); err != nil {
		return 0, false, err
	}

	s.publishIndexed(ctx, source, len(passages))
	return len(passages), false, nil
}

func (s *knowledgeService) publishIndexed(ctx context.Context, source string, chunks int) {
	if s.eventPublisher == nil {
		return
	}
	if err := s.eventPublisher.Publish(ctx, events.NewDocumentIndexed(source, chunks, true)); err != nil {
		s.logger.Warn("knowledge", "Failed to publish indexed event", map[string]interface{}{
			"source": source,
			"error":  err.Error(),
		})
	}
}

func (s *knowledgeService) publishRejected(ctx context.Context, source string, cause error) {
	if s.eventPublisher == nil {
		return
	}
	if err := s.eventPublisher.Publish(ctx, events.NewDocumentRejected(source, cause.Error())); err != nil {
		s.logger.Warn("knowledge", "Failed to publish rejected event", map[string]interface{}{
			"source": source,
			"error":  err.Error(),
		})
	}
}
