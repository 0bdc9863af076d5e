package service

import (
	"context"
	"time"

	"offline-llm-be/internal/config"
	"offline-llm-be/internal/dto"
	"offline-llm-be/internal/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

type IAdminService interface {
	Login(ctx context.Context, req *dto.AdminLoginRequest) (*dto.AdminLoginResponse, error)
	Upload(ctx context.Context, fileName string, data []byte) (*dto.AdminUploadResponse, error)
}

type adminService struct {
	cfg              config.AdminConfig
	knowledgeService IKnowledgeService
	logger           logger.ILogger
}

func NewAdminService(cfg config.AdminConfig, knowledgeService IKnowledgeService, log logger.ILogger) IAdminService {
	return &adminService{
		cfg:              cfg,
		knowledgeService: knowledgeService,
		logger:           log,
	}
}

// Login compares the shared credential against its configured bcrypt hash
// and issues a short-lived admin token. No hash configured means the admin
// surface is disabled.
func (s *adminService) Login(_ context.Context, req *dto.AdminLoginRequest) (*dto.AdminLoginResponse, error) {
	if s.cfg.CredentialHash == "" {
		return nil, fiber.NewError(fiber.StatusForbidden, "Admin access is disabled")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(s.cfg.CredentialHash), []byte(req.Credential)); err != nil {
		s.logger.Warn("admin", "Rejected admin login attempt", nil)
		return nil, fiber.NewError(fiber.StatusUnauthorized, "Invalid credential")
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"role": "admin",
		"iat":  now.Unix(),
		"exp":  now.Add(s.cfg.TokenTTL).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.JwtSecret))
	if err != nil {
		return nil, err
	}

	return &dto.AdminLoginResponse{
		Token:     signed,
		ExpiresIn: int64(s.cfg.TokenTTL.Seconds()),
	}, nil
}

// Upload ingests a document into the permanent knowledge base. Re-uploading
// an already-indexed source is a no-op reported as skipped.
func (s *adminService) Upload(ctx context.Context, fileName string, data []byte) (*dto.AdminUploadResponse, error) {
	chunks, skipped, err := s.knowledgeService.IndexBytes(ctx, data, fileName)
	if err != nil {
		return nil, err
	}
	return &dto.AdminUploadResponse{
		FileName: fileName,
		Chunks:   chunks,
		Skipped:  skipped,
	}, nil
}
