package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/toyz/fastpress/pkg/fastpress"
	"github.com/toyz/fastpress/pkg/fastpress/security"
)

// Service implements login, signup and the refresh session lifecycle.
type Service struct {
	store  Store
	tokens *security.Tokens
	now    func() time.Time
}

func NewService(store Store, tokens *security.Tokens) *Service {
	return &Service{store: store, tokens: tokens, now: time.Now}
}

// Login returns the user when the password matches.
func (s *Service) Login(ctx context.Context, email, password string) (*User, error) {
	u, err := s.store.FindUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, err
	}
	if !security.ComparePassword(u.Password, password) {
		return nil, ErrInvalidPassword
	}
	return u, nil
}

// Signup creates a user with a hashed password.
func (s *Service) Signup(ctx context.Context, email, password, name string) (*User, error) {
	email = normalizeEmail(email)
	_, err := s.store.FindUserByEmail(ctx, email)
	switch {
	case err == nil:
		return nil, ErrEmailInUse
	case !errors.Is(err, ErrUserNotFound):
		return nil, err
	}

	hash, err := security.HashPassword(password)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	u := &User{
		ID:        uuid.NewString(),
		Email:     email,
		Password:  hash,
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.CreateUser(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// GenerateAccessToken issues an access token for an existing user.
func (s *Service) GenerateAccessToken(ctx context.Context, userID string) (security.Token, error) {
	if _, err := s.store.FindUserByID(ctx, userID); err != nil {
		return security.Token{}, err
	}
	return s.tokens.IssueAccess(userID)
}

// GenerateRefreshToken issues a refresh token and stores it in a session. An
// existing session with sessionID is rotated, otherwise a new one is created.
func (s *Service) GenerateRefreshToken(ctx context.Context, userID, sessionID string) (security.Token, *Session, error) {
	if _, err := s.store.FindUserByID(ctx, userID); err != nil {
		return security.Token{}, nil, err
	}
	tok, err := s.tokens.IssueRefresh(userID)
	if err != nil {
		return security.Token{}, nil, err
	}

	if sessionID != "" {
		sess, err := s.store.FindSession(ctx, sessionID)
		switch {
		case err == nil && sess.UserID == userID:
			sess.Token = tok.Value
			sess.ExpiresAt = tok.ExpiresAt
			if err := s.store.UpdateSession(ctx, sess); err != nil {
				return security.Token{}, nil, err
			}
			return tok, sess, nil
		case err != nil && !errors.Is(err, ErrSessionNotFound):
			return security.Token{}, nil, err
		}
	}

	sess := &Session{
		ID:        uuid.NewString(),
		Token:     tok.Value,
		UserID:    userID,
		ExpiresAt: tok.ExpiresAt,
	}
	if err := s.store.CreateSession(ctx, sess); err != nil {
		return security.Token{}, nil, err
	}
	return tok, sess, nil
}

// ValidateRefreshToken verifies the token and returns the owner of its session.
func (s *Service) ValidateRefreshToken(ctx context.Context, token string) (*User, error) {
	if _, err := s.tokens.Verify(token); err != nil {
		return nil, err
	}
	sess, err := s.store.FindSessionByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if !sess.ExpiresAt.IsZero() && s.now().After(sess.ExpiresAt) {
		return nil, fmt.Errorf("%w: expired", ErrSessionNotFound)
	}
	return s.store.FindUserByID(ctx, sess.UserID)
}

// Logout deletes the session holding token. Unknown tokens are ignored.
func (s *Service) Logout(ctx context.Context, token string) error {
	err := s.store.DeleteSessionByToken(ctx, token)
	if errors.Is(err, ErrSessionNotFound) {
		return nil
	}
	return err
}

// FindUserByID loads the principal for the auth middleware.
func (s *Service) FindUserByID(ctx context.Context, id string) (*fastpress.Principal, error) {
	u, err := s.store.FindUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return u.Principal(), nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
