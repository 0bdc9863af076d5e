package controller

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http/httptest"
	"testing"

	"offline-llm-be/internal/dto"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
)

type stubSessionService struct {
	gotSessionID string
	gotFileName  string
	gotContent   []byte
}

func (s *stubSessionService) Upload(_ context.Context, sessionID, fileName string, data []byte) (*dto.UploadResponse, error) {
	s.gotSessionID = sessionID
	s.gotFileName = fileName
	s.gotContent = data
	return &dto.UploadResponse{SessionId: sessionID, FileName: fileName, Chunks: 1}, nil
}

func (s *stubSessionService) Purge(context.Context, string) error { return nil }

func TestUploadPassesWholeFileToService(t *testing.T) {
	svc := &stubSessionService{}
	app := fiber.New()
	NewSessionController(svc).RegisterRoutes(app.Group("/api"))

	payload := bytes.Repeat([]byte("chunk of text "), 4096)

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("file", "doc.txt")
	assert.NoError(t, err)
	_, err = part.Write(payload)
	assert.NoError(t, err)
	assert.NoError(t, w.Close())

	req := httptest.NewRequest(fiber.MethodPost, "/api/session/v1/s1/upload", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())

	res, err := app.Test(req)
	assert.NoError(t, err)
	defer res.Body.Close()

	assert.Equal(t, fiber.StatusOK, res.StatusCode)
	assert.Equal(t, "s1", svc.gotSessionID)
	assert.Equal(t, "doc.txt", svc.gotFileName)
	assert.Equal(t, payload, svc.gotContent)
}

func TestUploadWithoutFileFails(t *testing.T) {
	app := fiber.New()
	NewSessionController(&stubSessionService{}).RegisterRoutes(app.Group("/api"))

	req := httptest.NewRequest(fiber.MethodPost, "/api/session/v1/s1/upload", nil)

	res, err := app.Test(req)
	assert.NoError(t, err)
	defer res.Body.Close()

	assert.Equal(t, fiber.StatusBadRequest, res.StatusCode)
}
