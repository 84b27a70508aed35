package service_test

import (
	"context"
	"testing"
	"time"

	"sponsortree-backend/internal/domain"
	"sponsortree-backend/internal/security"
	"sponsortree-backend/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthService_Login(t *testing.T) {
	ctx := context.Background()
	hash, err := security.HashSecret("letmein")
	require.NoError(t, err)

	t.Run("Success", func(t *testing.T) {
		tokens := new(MockTokenManager)
		expires := time.Now().Add(6 * time.Hour)
		tokens.On("GenerateAdminToken").Return("jwt-token", expires, nil)

		token, exp, err := service.NewAuthService(hash, tokens).Login(ctx, "letmein")
		require.NoError(t, err)
		assert.Equal(t, "jwt-token", token)
		assert.Equal(t, expires, exp)
	})

	t.Run("WrongPassword", func(t *testing.T) {
		tokens := new(MockTokenManager)
		_, _, err := service.NewAuthService(hash, tokens).Login(ctx, "nope")
		assert.ErrorIs(t, err, domain.ErrUnauthorized)
		tokens.AssertNotCalled(t, "GenerateAdminToken")
	})

	t.Run("NotConfigured", func(t *testing.T) {
		_, _, err := service.NewAuthService("", new(MockTokenManager)).Login(ctx, "x")
		assert.ErrorIs(t, err, service.ErrLoginNotConfigured)
	})
}
