package services

import (
	stderrors "errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"chat-relay/auth"
	"chat-relay/errors"
	"chat-relay/mocks"
	"chat-relay/repositories"
)

type authFixture struct {
	users    *mocks.MockIUserRepository
	sessions *mocks.MockISessionRepository
	tokens   auth.TokenManager
	service  *AuthService
}

func newAuthFixture(t *testing.T) *authFixture {
	ctrl := gomock.NewController(t)
	f := &authFixture{
		users:    mocks.NewMockIUserRepository(ctrl),
		sessions: mocks.NewMockISessionRepository(ctrl),
		tokens:   auth.NewTokenManager("test-secret", time.Hour),
	}
	f.service = NewAuthService(f.users, f.sessions, f.tokens, slog.New(slog.DiscardHandler))
	return f
}

func TestAuthService_Register(t *testing.T) {
	req := require.New(t)

	// Given a repository accepting the new account
	f := newAuthFixture(t)
	var storedHash string
	f.users.EXPECT().CreateUser("alice", gomock.Any()).
		DoAndReturn(func(username, passwordHash string) (repositories.User, error) {
			storedHash = passwordHash
			return repositories.User{ID: "u1", Username: username, PasswordHash: passwordHash}, nil
		})

	// When registering
	user, err := f.service.Register("alice", "sekret123")

	// Then the account exists and the password was stored hashed
	req.NoError(err)
	req.Equal("alice", user.Username)
	req.NotEqual("sekret123", storedHash)

	match, err := auth.ComparePassword("sekret123", storedHash)
	req.NoError(err)
	req.True(match)
}

func TestAuthService_RegisterInvalidUsername(t *testing.T) {
	req := require.New(t)

	// Given a username below the minimum length; the repository must not
	// be touched
	f := newAuthFixture(t)

	_, err := f.service.Register("al", "sekret123")

	req.ErrorIs(err, errors.ErrInvalidUsername)
}

func TestAuthService_RegisterShortPassword(t *testing.T) {
	req := require.New(t)

	f := newAuthFixture(t)

	_, err := f.service.Register("alice", "12345")

	req.ErrorIs(err, errors.ErrInvalidPassword)
}

func TestAuthService_RegisterDuplicate(t *testing.T) {
	req := require.New(t)

	f := newAuthFixture(t)
	f.users.EXPECT().CreateUser("alice", gomock.Any()).
		Return(repositories.User{}, errors.ErrUserAlreadyExists)

	_, err := f.service.Register("alice", "sekret123")

	req.ErrorIs(err, errors.ErrUserAlreadyExists)
}

func TestAuthService_LoginIssuesRevocableSession(t *testing.T) {
	req := require.New(t)

	// Given alice registered with a known password
	f := newAuthFixture(t)
	hash, err := auth.HashPassword("sekret123")
	req.NoError(err)
	f.users.EXPECT().GetUserByUsername("alice").
		Return(repositories.User{ID: "u1", Username: "alice", PasswordHash: hash}, nil)

	// Then login first revokes every prior session, then persists the new one
	var created repositories.Session
	gomock.InOrder(
		f.sessions.EXPECT().RevokeUserSessions("u1").Return(nil),
		f.sessions.EXPECT().CreateSession(gomock.Any()).
			DoAndReturn(func(session repositories.Session) error {
				created = session
				return nil
			}),
	)

	// When logging in
	result, err := f.service.Login("alice", "sekret123")

	// Then the token parses back to the persisted session
	req.NoError(err)
	req.Equal("alice", result.User.Username)

	claims, err := f.tokens.Validate(result.Token)
	req.NoError(err)
	req.Equal(created.ID, claims.ID)
	req.Equal("u1", created.UserID)
	req.WithinDuration(result.ExpiresAt, created.ExpiresAt, time.Second)
}

func TestAuthService_LoginWrongPassword(t *testing.T) {
	req := require.New(t)

	f := newAuthFixture(t)
	hash, err := auth.HashPassword("sekret123")
	req.NoError(err)
	f.users.EXPECT().GetUserByUsername("alice").
		Return(repositories.User{ID: "u1", Username: "alice", PasswordHash: hash}, nil)

	_, err = f.service.Login("alice", "wrong")

	req.ErrorIs(err, errors.ErrInvalidCredentials)
}

func TestAuthService_LoginUnknownUser(t *testing.T) {
	req := require.New(t)

	// Unknown users and wrong passwords are indistinguishable to callers
	f := newAuthFixture(t)
	f.users.EXPECT().GetUserByUsername("ghost").
		Return(repositories.User{}, errors.ErrUserNotFound)

	_, err := f.service.Login("ghost", "whatever")

	req.ErrorIs(err, errors.ErrInvalidCredentials)
}

func TestAuthService_LoginToleratesRevocationFailure(t *testing.T) {
	req := require.New(t)

	// Given prior-session revocation failing
	f := newAuthFixture(t)
	hash, err := auth.HashPassword("sekret123")
	req.NoError(err)
	f.users.EXPECT().GetUserByUsername("alice").
		Return(repositories.User{ID: "u1", Username: "alice", PasswordHash: hash}, nil)
	f.sessions.EXPECT().RevokeUserSessions("u1").Return(stderrors.New("iterator broke"))
	f.sessions.EXPECT().CreateSession(gomock.Any()).Return(nil)

	// When logging in
	_, err = f.service.Login("alice", "sekret123")

	// Then login still succeeds
	req.NoError(err)
}

func TestAuthService_LogoutRevokesSession(t *testing.T) {
	req := require.New(t)

	// Given a valid token
	f := newAuthFixture(t)
	token, sessionID, _, err := f.tokens.Generate("u1", "alice")
	req.NoError(err)
	f.sessions.EXPECT().RevokeSession(sessionID).Return(nil)

	// When logging out
	req.NoError(f.service.Logout(token))
}

func TestAuthService_LogoutInvalidTokenIsNoOp(t *testing.T) {
	req := require.New(t)

	// Given garbage instead of a token; no revocation is attempted
	f := newAuthFixture(t)

	req.NoError(f.service.Logout("not-a-token"))
}

func TestAuthService_VerifyResolvesIdentity(t *testing.T) {
	req := require.New(t)

	// Given a token whose session is still live
	f := newAuthFixture(t)
	token, sessionID, _, err := f.tokens.Generate("u1", "alice")
	req.NoError(err)
	f.sessions.EXPECT().GetActiveSession(sessionID).
		Return(repositories.Session{ID: sessionID, UserID: "u1", Username: "alice"}, nil)

	// When verifying
	user, err := f.service.Verify(token)

	req.NoError(err)
	req.Equal("u1", user.ID)
	req.Equal("alice", user.Username)
}

func TestAuthService_VerifyRejectsRevokedSession(t *testing.T) {
	req := require.New(t)

	// Given a cryptographically valid token whose session was revoked
	f := newAuthFixture(t)
	token, sessionID, _, err := f.tokens.Generate("u1", "alice")
	req.NoError(err)
	f.sessions.EXPECT().GetActiveSession(sessionID).
		Return(repositories.Session{}, errors.ErrSessionRevoked)

	// When verifying
	_, err = f.service.Verify(token)

	// Then logout actually took effect
	req.ErrorIs(err, errors.ErrInvalidToken)
}

func TestAuthService_VerifyRejectsGarbage(t *testing.T) {
	req := require.New(t)

	f := newAuthFixture(t)

	_, err := f.service.Verify("nope")

	req.ErrorIs(err, errors.ErrInvalidToken)
}
