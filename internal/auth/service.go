// Package auth owns the session lifecycle: login, signup, restore, logout.
// Credentials are verified by the backend; the gateway never stores or hashes
// a password.
package auth

import (
	"context"
	"errors"

	"github.com/bazaar-app/bazaar-gateway/internal/backend"
	"github.com/bazaar-app/bazaar-gateway/internal/shared"
)

// API is the slice of the backend client the auth flow needs.
type API interface {
	Login(ctx context.Context, email, password string) (backend.AuthResult, error)
	Signup(ctx context.Context, req backend.SignupRequest) (backend.AuthResult, error)
	Me(ctx context.Context, token string) (backend.User, error)
}

// Service wraps authentication business rules.
type Service struct {
	api API
}

// NewService constructs a new Service.
func NewService(api API) *Service {
	return &Service{api: api}
}

// Authenticate validates email/password credentials against the backend.
func (s *Service) Authenticate(ctx context.Context, email, password string) (backend.AuthResult, error) {
	result, err := s.api.Login(ctx, email, password)
	if err != nil {
		if errors.Is(err, backend.ErrUnauthorized) || errors.Is(err, backend.ErrRejected) {
			return backend.AuthResult{}, shared.ErrInvalidCredentials
		}
		return backend.AuthResult{}, err
	}
	return result, nil
}

// Register creates a new account and returns its first session.
func (s *Service) Register(ctx context.Context, req backend.SignupRequest) (backend.AuthResult, error) {
	return s.api.Signup(ctx, req)
}

// Current validates the stored token and returns the account behind it.
func (s *Service) Current(ctx context.Context, token string) (backend.User, error) {
	user, err := s.api.Me(ctx, token)
	if err != nil {
		if errors.Is(err, backend.ErrUnauthorized) {
			return backend.User{}, shared.ErrSessionExpired
		}
		return backend.User{}, err
	}
	return user, nil
}
