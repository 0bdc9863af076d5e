package service

import (
	"context"
	"testing"

	"offline-llm-be/pkg/llm"

	"github.com/stretchr/testify/assert"
)

type stubLister struct {
	models []llm.ModelInfo
	err    error
}

func (s stubLister) ListModels(context.Context) ([]llm.ModelInfo, error) {
	return s.models, s.err
}

func TestListModelsMarksDefault(t *testing.T) {
	svc := NewModelService(stubLister{models: []llm.ModelInfo{
		{Name: "llama3:8b-instruct-q4_K_M", Description: "llama, 8B Q4_K_M"},
		{Name: "mistral:7b-instruct"},
	}}, "llama3:8b-instruct-q4_K_M", noopLogger{})

	res, err := svc.ListModels(context.Background())

	assert.NoError(t, err)
	assert.Len(t, res.Models, 2)
	assert.True(t, res.Models[0].Default)
	assert.False(t, res.Models[1].Default)
}

func TestListModelsBackendDownYieldsEmptyList(t *testing.T) {
	svc := NewModelService(stubLister{err: assert.AnError}, "default", noopLogger{})

	res, err := svc.ListModels(context.Background())

	assert.NoError(t, err)
	assert.NotNil(t, res.Models)
	assert.Empty(t, res.Models)
}

func TestPing(t *testing.T) {
	up := NewModelService(stubLister{models: []llm.ModelInfo{{Name: "a"}}}, "a", noopLogger{})
	down := NewModelService(stubLister{err: assert.AnError}, "a", noopLogger{})

	assert.Equal(t, "ok", up.Ping(context.Background()).Status)
	assert.Equal(t, 1, up.Ping(context.Background()).Models)
	assert.Equal(t, "degraded", down.Ping(context.Background()).Status)
}
