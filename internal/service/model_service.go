package service

import (
	"context"

	"offline-llm-be/internal/dto"
	"offline-llm-be/internal/pkg/logger"
	"offline-llm-be/pkg/llm"
)

type IModelService interface {
	ListModels(ctx context.Context) (*dto.ListModelsResponse, error)
	Ping(ctx context.Context) *dto.PingResponse
}

type modelService struct {
	lister       llm.ModelLister
	defaultModel string
	logger       logger.ILogger
}

func NewModelService(lister llm.ModelLister, defaultModel string, log logger.ILogger) IModelService {
	return &modelService{
		lister:       lister,
		defaultModel: defaultModel,
		logger:       log,
	}
}

// ListModels enumerates the backend's models. A down backend yields an empty
// list, not an error; clients use the list for a picker and must still work
// when the backend is warming up.
func (s *modelService) ListModels(ctx context.Context) (*dto.ListModelsResponse, error) {
	infos, err := s.lister.ListModels(ctx)
	if err != nil {
		s.logger.Warn("models", "Model listing failed, returning empty list", map[string]interface{}{
			"error": err.Error(),
		})
		return &dto.ListModelsResponse{Models: []dto.ModelDTO{}}, nil
	}

	models := make([]dto.ModelDTO, 0, len(infos))
	for _, info := range infos {
		models = append(models, dto.ModelDTO{
			Name:        info.Name,
			Description: info.Description,
			Default:     info.Name == s.defaultModel,
		})
	}
	return &dto.ListModelsResponse{Models: models}, nil
}

func (s *modelService) Ping(ctx context.Context) *dto.PingResponse {
	infos, err := s.lister.ListModels(ctx)
	if err != nil {
		return &dto.PingResponse{Status: "degraded", Models: 0}
	}
	return &dto.PingResponse{Status: "ok", Models: len(infos)}
}
