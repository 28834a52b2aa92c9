package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dennislaw/svd-console/internal/apiclient"
	"github.com/dennislaw/svd-console/internal/platform/httpx"
	"github.com/dennislaw/svd-console/internal/shared"
)

// Authenticator exchanges credentials for a backend access token.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (apiclient.LoginResult, error)
}

// Service wraps authentication business rules.
type Service struct {
	api Authenticator
}

// NewService constructs a new Service.
func NewService(api Authenticator) *Service {
	return &Service{api: api}
}

// Authenticate validates email/password credentials against the backend.
func (s *Service) Authenticate(ctx context.Context, email, password string) (string, shared.Identity, error) {
	result, err := s.api.Login(ctx, strings.TrimSpace(email), password)
	if err != nil {
		if errors.Is(err, httpx.ErrUnauthorized) || errors.Is(err, httpx.ErrValidation) || errors.Is(err, httpx.ErrForbidden) {
			return "", shared.Identity{}, shared.ErrInvalidCredentials
		}
		return "", shared.Identity{}, fmt.Errorf("auth: login: %w", err)
	}
	identity := IdentityFromRecord(result.User)
	if identity.Email == "" {
		identity.Email = strings.TrimSpace(email)
	}
	return result.Token, identity, nil
}
