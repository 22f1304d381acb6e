//go:generate go run go.uber.org/mock/mockgen -source=session.go -destination=../mocks/mock_session_repository.go -package=mocks
package repositories

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"time"

	"chat-relay/errors"

	"github.com/dgraph-io/badger/v4"
)

type ISessionRepository interface {
	CreateSession(session Session) error
	GetActiveSession(sessionID string) (Session, error)
	RevokeSession(sessionID string) error
	RevokeUserSessions(userID string) error
}

// Session is the persisted record behind a signed token. Its absence means
// the token was revoked or expired; token validation consults it so logout
// takes effect before the cryptographic expiry.
type Session struct {
	ID        string    `json:"id"` // token jti
	UserID    string    `json:"user_id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

type SessionRepository struct {
	db *badger.DB
}

func NewSessionRepository(db *badger.DB) ISessionRepository {
	return &SessionRepository{db: db}
}

func sessionKey(sessionID string) []byte {
	return []byte("session:" + sessionID)
}

// userSessionKey indexes sessions per user so a login can revoke every
// previous session for that identity.
func userSessionKey(userID, sessionID string) []byte {
	return []byte(fmt.Sprintf("usersession:%s:%s", userID, sessionID))
}

// CreateSession stores the record with a TTL matching the token expiry, so
// stale sessions vanish without a reaper.
func (s *SessionRepository) CreateSession(session Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal failed: %w", err)
	}

	ttl := time.Until(session.ExpiresAt)
	if ttl <= 0 {
		return errors.ErrSessionRevoked
	}

	return s.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry(sessionKey(session.ID), data).WithTTL(ttl)
		if err := txn.SetEntry(entry); err != nil {
			return err
		}
		index := badger.NewEntry(userSessionKey(session.UserID, session.ID), nil).WithTTL(ttl)
		return txn.SetEntry(index)
	})
}

func (s *SessionRepository) GetActiveSession(sessionID string) (Session, error) {
	var session Session

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(sessionKey(sessionID))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &session)
		})
	})
	if stderrors.Is(err, badger.ErrKeyNotFound) {
		return Session{}, errors.ErrSessionRevoked
	}
	if err != nil {
		return Session{}, err
	}
	return session, nil
}

func (s *SessionRepository) RevokeSession(sessionID string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(sessionKey(sessionID))
		if stderrors.Is(err, badger.ErrKeyNotFound) {
			// Revoking an absent session is a no-op, matching idempotent logout.
			return nil
		}
		if err != nil {
			return err
		}

		var session Session
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &session)
		}); err != nil {
			return err
		}

		if err := txn.Delete(userSessionKey(session.UserID, session.ID)); err != nil {
			return err
		}
		return txn.Delete(sessionKey(sessionID))
	})
}

// RevokeUserSessions deletes every live session for a user. Called at login
// so one identity never accumulates valid tokens.
func (s *SessionRepository) RevokeUserSessions(userID string) error {
	prefix := []byte("usersession:" + userID + ":")

	return s.db.Update(func(txn *badger.Txn) error {
		options := badger.DefaultIteratorOptions
		options.PrefetchValues = false
		it := txn.NewIterator(options)

		var sessionIDs []string
		prefixLen := len(prefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			key := it.Item().KeyCopy(nil)
			sessionIDs = append(sessionIDs, string(key[prefixLen:]))
		}
		it.Close()

		for _, id := range sessionIDs {
			if err := txn.Delete(sessionKey(id)); err != nil {
				return err
			}
			if err := txn.Delete(userSessionKey(userID, id)); err != nil {
				return err
			}
		}
		return nil
	})
}
