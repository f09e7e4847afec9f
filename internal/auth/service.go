package auth

import (
	"context"
	"errors"
	"log/slog"

	"golang.org/x/crypto/bcrypt"

	"github.com/campushr/campushr/internal/shared"
)

// Service handles login and logout.
type Service struct {
	logger *slog.Logger
	repo   Repository
	tokens *TokenStore
}

// NewService constructs the auth service.
func NewService(logger *slog.Logger, repo Repository, tokens *TokenStore) *Service {
	return &Service{logger: logger, repo: repo, tokens: tokens}
}

// Login verifies credentials and issues a bearer token. Unknown email
// and wrong password both report ErrInvalidCredentials so the response
// does not leak which accounts exist.
func (s *Service) Login(ctx context.Context, email, password string) (string, shared.Identity, error) {
	account, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return "", shared.Identity{}, shared.ErrInvalidCredentials
		}
		return "", shared.Identity{}, err
	}
	if !account.Active {
		return "", shared.Identity{}, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return "", shared.Identity{}, shared.ErrInvalidCredentials
	}

	identity := shared.Identity{
		AccountID: account.ID,
		Email:     account.Email,
		Admin:     account.Admin,
	}
	if account.TeacherID != nil {
		identity.TeacherID = *account.TeacherID
	}

	token, err := s.tokens.Issue(ctx, identity)
	if err != nil {
		return "", shared.Identity{}, err
	}
	s.logger.Info("login", slog.Int64("account_id", account.ID))
	return token, identity, nil
}

// Logout revokes the token.
func (s *Service) Logout(ctx context.Context, token string) error {
	return s.tokens.Revoke(ctx, token)
}

// Resolve returns the identity behind a bearer token.
func (s *Service) Resolve(ctx context.Context, token string) (shared.Identity, error) {
	return s.tokens.Resolve(ctx, token)
}
