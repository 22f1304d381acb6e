package relay

import (
	"fmt"
	"log/slog"
	"time"

	"chat-relay/domain"
	"chat-relay/observability"
)

// Broadcaster delivers envelopes to all or one of the live connections,
// tolerating per-connection send failure. A dead connection discovered
// during a send is treated exactly like an explicit disconnect: its entry is
// removed and a presence update goes out.
type Broadcaster struct {
	registry *Registry
	stats    *observability.Stats
	log      *slog.Logger
}

func NewBroadcaster(registry *Registry, stats *observability.Stats, log *slog.Logger) *Broadcaster {
	return &Broadcaster{registry: registry, stats: stats, log: log}
}

// SendTo delivers one envelope to the identity's live connection. It returns
// false without error when the identity is offline. A transport failure also
// returns false and triggers the self-healing removal.
func (b *Broadcaster) SendTo(username string, envelope domain.Envelope) bool {
	conn, ok := b.registry.Lookup(username)
	if !ok {
		b.log.Debug("recipient not connected", "username", username)
		return false
	}
	if err := conn.Send(envelope); err != nil {
		b.log.Warn("send failed", "username", username, "error", err)
		b.stats.SendFailure()
		b.discard(conn)
		return false
	}
	return true
}

// Broadcast attempts delivery to every connection live at call start except
// the excluded one. It iterates a snapshot, so joins mid-broadcast do not
// receive the envelope and departures do not disturb the sweep. Failed
// connections are collected and removed exactly once after the sweep.
func (b *Broadcaster) Broadcast(envelope domain.Envelope, exclude Conn) {
	entries := b.registry.Snapshot()
	b.stats.Broadcast()

	var failed []Conn
	for _, entry := range entries {
		if entry.Conn == exclude {
			continue
		}
		if err := entry.Conn.Send(envelope); err != nil {
			b.log.Warn("broadcast send failed",
				"username", entry.User.Username,
				"error", err)
			b.stats.SendFailure()
			failed = append(failed, entry.Conn)
		}
	}

	// Remove and close every failed connection before any announcement goes
	// out, so the departure broadcasts never re-attempt a connection already
	// known dead.
	var departed []string
	for _, conn := range failed {
		user, removed := b.registry.Remove(conn)
		if !removed {
			continue
		}
		_ = conn.Close(CloseNormal, "send failure")
		departed = append(departed, user.Username)
	}
	for _, username := range departed {
		b.AnnouncePresence(fmt.Sprintf("%s disconnected", username))
	}
}

// AnnouncePresence broadcasts the current online snapshot to everyone.
// Invoked after every admission and removal so all clients converge on the
// same view; the reason is a human-readable note, empty for on-demand
// refreshes.
func (b *Broadcaster) AnnouncePresence(reason string) {
	online := b.registry.ListOnline()
	envelope := domain.NewPresenceUpdateEnvelope(online, reason, time.Now().UTC())
	b.Broadcast(envelope, nil)
}

// discard converts a send failure into a disconnect: remove the entry (at
// most once, Remove is idempotent), close the dead handle best-effort, and
// announce the departure.
func (b *Broadcaster) discard(conn Conn) {
	user, removed := b.registry.Remove(conn)
	if !removed {
		return
	}
	_ = conn.Close(CloseNormal, "send failure")
	b.AnnouncePresence(fmt.Sprintf("%s disconnected", user.Username))
}
