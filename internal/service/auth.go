package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"sponsortree-backend/internal/domain"
	"sponsortree-backend/internal/security"
)

var ErrLoginNotConfigured = errors.New("members page password not configured")

type authService struct {
	passwordHash string
	tokens       security.TokenManager
}

func NewAuthService(passwordHash string, tokens security.TokenManager) AuthService {
	return &authService{passwordHash: passwordHash, tokens: tokens}
}

func (s *authService) Login(ctx context.Context, password string) (string, time.Time, error) {
	if s.passwordHash == "" {
		return "", time.Time{}, ErrLoginNotConfigured
	}
	if password == "" {
		return "", time.Time{}, fmt.Errorf("%w: missing password", domain.ErrInvalidInput)
	}
	if !security.CheckSecret(s.passwordHash, password) {
		return "", time.Time{}, domain.ErrUnauthorized
	}
	return s.tokens.GenerateAdminToken()
}
