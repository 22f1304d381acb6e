package services

import (
	"fmt"
	"log/slog"
	"time"

	"chat-relay/auth"
	"chat-relay/domain"
	"chat-relay/errors"
	"chat-relay/repositories"
)

type IAuthService interface {
	Register(username, password string) (repositories.User, error)
	Login(username, password string) (LoginResult, error)
	Logout(token string) error
	Verify(token string) (domain.User, error)
}

// LoginResult carries the issued session token back to the transport layer.
type LoginResult struct {
	Token     string
	User      domain.User
	ExpiresAt time.Time
}

type AuthService struct {
	users    repositories.IUserRepository
	sessions repositories.ISessionRepository
	tokens   auth.TokenManager
	log      *slog.Logger
}

func NewAuthService(
	users repositories.IUserRepository,
	sessions repositories.ISessionRepository,
	tokens auth.TokenManager,
	log *slog.Logger,
) *AuthService {
	return &AuthService{users: users, sessions: sessions, tokens: tokens, log: log}
}

// Register creates a new account. Validation runs before the expensive
// hash; the repository enforces username uniqueness.
func (s *AuthService) Register(username, password string) (repositories.User, error) {
	req := auth.RegisterRequest{Username: username, Password: password}
	if err := auth.ValidateRegister(req); err != nil {
		return repositories.User{}, err
	}

	hashed, err := auth.HashPassword(password)
	if err != nil {
		return repositories.User{}, fmt.Errorf("hashing failed: %w", err)
	}

	user, err := s.users.CreateUser(username, hashed)
	if err != nil {
		return repositories.User{}, err
	}

	s.log.Info("user registered", "username", username, "user_id", user.ID)
	return user, nil
}

// Login verifies credentials, revokes any prior sessions for the identity,
// and issues a fresh token backed by a persisted session record.
func (s *AuthService) Login(username, password string) (LoginResult, error) {
	user, err := s.users.GetUserByUsername(username)
	if err != nil {
		// Generic error to prevent user enumeration.
		return LoginResult{}, errors.ErrInvalidCredentials
	}

	match, err := auth.ComparePassword(password, user.PasswordHash)
	if err != nil || !match {
		return LoginResult{}, errors.ErrInvalidCredentials
	}

	if err := s.sessions.RevokeUserSessions(user.ID); err != nil {
		s.log.Warn("revoking prior sessions failed", "username", username, "error", err)
	}

	token, sessionID, expiresAt, err := s.tokens.Generate(user.ID, user.Username)
	if err != nil {
		return LoginResult{}, errors.ErrTokenGeneration
	}

	err = s.sessions.CreateSession(repositories.Session{
		ID:        sessionID,
		UserID:    user.ID,
		Username:  user.Username,
		CreatedAt: time.Now().UTC(),
		ExpiresAt: expiresAt,
	})
	if err != nil {
		return LoginResult{}, err
	}

	s.log.Info("session created", "username", username)
	return LoginResult{
		Token:     token,
		User:      domain.User{ID: user.ID, Username: user.Username, CreatedAt: user.CreatedAt},
		ExpiresAt: expiresAt,
	}, nil
}

// Logout revokes the session behind the token. An invalid or already
// revoked token still logs out cleanly; the session is gone either way.
func (s *AuthService) Logout(token string) error {
	claims, err := s.tokens.Validate(token)
	if err != nil {
		return nil
	}
	return s.sessions.RevokeSession(claims.ID)
}

// Verify resolves a session token to its bound identity. The signature and
// expiry check alone is not enough: the persisted session record must still
// exist, so logout actually revokes.
func (s *AuthService) Verify(token string) (domain.User, error) {
	claims, err := s.tokens.Validate(token)
	if err != nil {
		return domain.User{}, fmt.Errorf("%w: %v", errors.ErrInvalidToken, err)
	}

	if _, err := s.sessions.GetActiveSession(claims.ID); err != nil {
		return domain.User{}, fmt.Errorf("%w: %v", errors.ErrInvalidToken, err)
	}

	return domain.User{ID: claims.UserID, Username: claims.Username}, nil
}
