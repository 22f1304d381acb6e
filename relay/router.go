//go:generate go run go.uber.org/mock/mockgen -source=router.go -destination=../mocks/mock_router_deps.go -package=mocks
package relay

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"chat-relay/domain"
	"chat-relay/moderation"
	"chat-relay/observability"

	"github.com/abadojack/whatlanggo"
	"github.com/google/uuid"
)

// TokenVerifier resolves an opaque session token into the bound identity.
// Purely read-only against persisted session state; safe for concurrent use.
type TokenVerifier interface {
	Verify(token string) (domain.User, error)
}

// MessageStore durably appends a chat message. A failed append is reported
// to the sender and the message is never delivered.
type MessageStore interface {
	Append(message domain.Message) error
}

// UserDirectory answers whether a named identity is registered, used to
// validate private-message recipients.
type UserDirectory interface {
	UserExists(username string) (bool, error)
}

// Router drives the per-connection protocol state machine:
// Connecting -> Authenticated -> Serving -> Closed. One Serve call owns one
// connection; all envelope construction and routing stays local to that
// call, and the registry is the only shared touchpoint.
type Router struct {
	registry         *Registry
	broadcaster      *Broadcaster
	verifier         TokenVerifier
	store            MessageStore
	users            UserDirectory
	moderator        *moderation.Moderator
	stats            *observability.Stats
	maxContentLength int
	log              *slog.Logger
}

func NewRouter(
	registry *Registry,
	broadcaster *Broadcaster,
	verifier TokenVerifier,
	store MessageStore,
	users UserDirectory,
	moderator *moderation.Moderator,
	stats *observability.Stats,
	maxContentLength int,
	log *slog.Logger,
) *Router {
	return &Router{
		registry:         registry,
		broadcaster:      broadcaster,
		verifier:         verifier,
		store:            store,
		users:            users,
		moderator:        moderator,
		stats:            stats,
		maxContentLength: maxContentLength,
		log:              log,
	}
}

// Serve runs the state machine for one connection until disconnect,
// transport failure, or eviction. Authentication failure closes the
// transport with a distinguishing code before any presence entry exists.
// Teardown is a single path: remove the entry, and only if one was actually
// removed (an eviction may have raced us), announce the departure.
func (r *Router) Serve(ctx context.Context, conn Conn, token string) {
	user, err := r.verifier.Verify(token)
	if err != nil {
		r.log.Warn("authentication failed", "addr", conn.RemoteAddr(), "error", err)
		_ = conn.Close(CloseInvalidSession, "invalid or expired session token")
		return
	}

	_, evicted := r.registry.Admit(user, conn)
	r.stats.ConnectionAdmitted()
	if evicted {
		r.stats.Eviction()
	}
	r.broadcaster.AnnouncePresence(fmt.Sprintf("%s joined the chat", user.Username))

	defer func() {
		if removed, ok := r.registry.Remove(conn); ok {
			_ = conn.Close(CloseNormal, "")
			r.broadcaster.AnnouncePresence(fmt.Sprintf("%s left the chat", removed.Username))
		}
	}()

	for {
		raw, err := conn.Receive()
		if err != nil {
			if ctx.Err() == nil {
				r.log.Debug("connection closed", "username", user.Username, "error", err)
			}
			return
		}

		frame, err := domain.ParseFrame(raw)
		if err != nil {
			_ = conn.Send(domain.NewErrorEnvelope("Invalid message format"))
			continue
		}

		switch frame.Type {
		case domain.FrameChat:
			r.handleChat(user, conn, frame)
		case domain.FrameTyping:
			r.handleTyping(user, conn, frame)
		case domain.FrameRequestUserList:
			// On-demand refresh for a client that suspects it missed an update.
			r.broadcaster.AnnouncePresence("")
		}
	}
}

// handleChat validates, persists, then delivers. Persist-before-deliver is
// strict: no recipient ever observes a message that is not already durably
// recorded.
func (r *Router) handleChat(user domain.User, conn Conn, frame domain.Frame) {
	if r.maxContentLength > 0 && len(frame.Content) > r.maxContentLength {
		_ = conn.Send(domain.NewErrorEnvelope("Message too long"))
		return
	}

	var recipient *string
	if frame.Recipient != "" {
		exists, err := r.users.UserExists(frame.Recipient)
		if err != nil {
			// A lookup failure is not an unknown user; never report it as one.
			r.log.Error("recipient lookup failed", "recipient", frame.Recipient, "error", err)
			_ = conn.Send(domain.NewErrorEnvelope("Failed to resolve recipient"))
			return
		}
		if !exists {
			_ = conn.Send(domain.NewErrorEnvelope(fmt.Sprintf("User %s not found", frame.Recipient)))
			return
		}
		recipient = &frame.Recipient
	}

	content, censoredWords := r.moderator.Censor(frame.Content)
	if len(censoredWords) > 0 {
		r.log.Info("content censored", "sender", user.Username, "words", censoredWords)
	}

	info := whatlanggo.Detect(content)
	message := domain.Message{
		ID:        uuid.New(),
		Content:   content,
		Sender:    user.Username,
		Recipient: recipient,
		Scope:     domain.ScopeOf(recipient),
		Lang:      info.Lang.Iso6391(),
		CreatedAt: time.Now().UTC(),
	}

	if err := r.store.Append(message); err != nil {
		r.log.Error("message append failed", "sender", user.Username, "error", err)
		_ = conn.Send(domain.NewErrorEnvelope("Failed to save message"))
		return
	}
	r.stats.MessageRelayed()

	envelope := domain.NewChatEnvelope(message)
	if recipient == nil {
		// Global messages are not echoed back to their sender.
		r.broadcaster.Broadcast(envelope, conn)
		return
	}

	delivered := r.broadcaster.SendTo(*recipient, envelope)
	_ = conn.Send(domain.NewChatSentEnvelope(message, delivered))
}

// handleTyping relays ephemeral typing indicators; nothing is persisted and
// senders never see their own echo.
func (r *Router) handleTyping(user domain.User, conn Conn, frame domain.Frame) {
	var recipient *string
	if frame.Recipient != "" {
		recipient = &frame.Recipient
	}
	envelope := domain.NewTypingEnvelope(user.Username, frame.IsTyping, recipient)

	if recipient != nil {
		r.broadcaster.SendTo(*recipient, envelope)
		return
	}
	r.broadcaster.Broadcast(envelope, conn)
}
