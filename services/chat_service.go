package services

import (
	"context"
	stderrors "errors"
	"log/slog"
	"time"

	"chat-relay/domain"
	"chat-relay/errors"
	"chat-relay/repositories"

	"github.com/samber/lo"
)

// PresenceView is the read-only slice of the registry the chat service
// needs to decorate user listings.
type PresenceView interface {
	IsOnline(username string) bool
}

type IChatService interface {
	Append(message domain.Message) error
	UserExists(username string) (bool, error)
	GlobalHistory() ([]domain.Message, error)
	SearchMessages(ctx context.Context, query string, limit int) ([]repositories.SearchHit, error)
	ListUsers() ([]UserView, error)
}

// UserView is one row of the authenticated user listing.
type UserView struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	IsOnline  bool      `json:"is_online"`
	CreatedAt time.Time `json:"created_at"`
}

type ChatService struct {
	messages repositories.IMessageRepository
	users    repositories.IUserRepository
	presence PresenceView
	log      *slog.Logger
}

func NewChatService(
	messages repositories.IMessageRepository,
	users repositories.IUserRepository,
	presence PresenceView,
	log *slog.Logger,
) *ChatService {
	return &ChatService{messages: messages, users: users, presence: presence, log: log}
}

// Append durably records a message; the router relies on this happening
// before any delivery.
func (s *ChatService) Append(message domain.Message) error {
	return s.messages.StoreMessage(repositories.DiskMessage{
		ID:        message.ID,
		Content:   message.Content,
		Sender:    message.Sender,
		Recipient: message.Recipient,
		Scope:     string(message.Scope),
		Lang:      message.Lang,
		At:        message.CreatedAt,
	})
}

func (s *ChatService) UserExists(username string) (bool, error) {
	_, err := s.users.GetUserByUsername(username)
	if stderrors.Is(err, errors.ErrUserNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// GlobalHistory returns recent global messages in chronological order.
func (s *ChatService) GlobalHistory() ([]domain.Message, error) {
	stored, err := s.messages.GetGlobalMessages()
	if err != nil {
		return nil, err
	}
	return lo.Map(stored, func(m repositories.DiskMessage, _ int) domain.Message {
		return domain.Message{
			ID:        m.ID,
			Content:   m.Content,
			Sender:    m.Sender,
			Recipient: m.Recipient,
			Scope:     domain.Scope(m.Scope),
			Lang:      m.Lang,
			CreatedAt: m.At,
		}
	}), nil
}

func (s *ChatService) SearchMessages(ctx context.Context, query string, limit int) ([]repositories.SearchHit, error) {
	return s.messages.Search(ctx, query, limit)
}

// ListUsers returns every account with its live online flag.
func (s *ChatService) ListUsers() ([]UserView, error) {
	users, err := s.users.ListUsers()
	if err != nil {
		return nil, err
	}
	return lo.Map(users, func(u repositories.User, _ int) UserView {
		return UserView{
			ID:        u.ID,
			Username:  u.Username,
			IsOnline:  s.presence.IsOnline(u.Username),
			CreatedAt: u.CreatedAt,
		}
	}), nil
}
