package service

import (
	"context"
	"encoding/json"

	"offline-llm-be/internal/dto"
	"offline-llm-be/internal/pkg/logger"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

type IConsumerService interface {
	Consume(ctx context.Context) error
}

type consumerService struct {
	pubSub           *gochannel.GoChannel
	topicName        string
	knowledgeService IKnowledgeService
	logger           logger.ILogger
}

func NewConsumerService(
	pubSub *gochannel.GoChannel,
	topicName string,
	knowledgeService IKnowledgeService,
	log logger.ILogger,
) IConsumerService {
	return &consumerService{
		pubSub:           pubSub,
		topicName:        topicName,
		knowledgeService: knowledgeService,
		logger:           log,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.pubSub.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

// processMessage indexes one document. Every outcome acks: a document that
// cannot be ingested is logged and skipped so it never blocks the rest of
// the queue.
func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	defer msg.Ack()

	var payload dto.IndexDocumentMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		cs.logger.Error("consumer", "Failed to unmarshal index job", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}

	chunks, err := cs.knowledgeService.IndexFile(ctx, payload.Path)
	if err != nil {
		cs.logger.Error("consumer", "Failed to index document", map[string]interface{}{
			"path":  payload.Path,
			"error": err.Error(),
		})
		return
	}

	cs.logger.Info("consumer", "Indexed document", map[string]interface{}{
		"path":   payload.Path,
		"chunks": chunks,
	})
}
