package relay

import (
	"testing"

	"github.com/stretchr/testify/require"

	"chat-relay/domain"
	"chat-relay/observability"
)

func newTestBroadcaster() (*Registry, *Broadcaster, *observability.Stats) {
	registry := NewRegistry(discardLogger())
	stats := observability.NewStats()
	return registry, NewBroadcaster(registry, stats, discardLogger()), stats
}

func admit(registry *Registry, username, addr string) *fakeConn {
	conn := newFakeConn(addr)
	registry.Admit(domain.User{ID: username, Username: username}, conn)
	return conn
}

func TestBroadcaster_BroadcastExcludesSender(t *testing.T) {
	req := require.New(t)

	// Given three connected users
	registry, broadcaster, _ := newTestBroadcaster()
	alice := admit(registry, "alice", "a")
	bob := admit(registry, "bob", "b")
	carol := admit(registry, "carol", "c")

	// When broadcasting with alice excluded
	envelope := domain.NewErrorEnvelope("ping")
	broadcaster.Broadcast(envelope, alice)

	// Then everyone but alice receives it
	req.Empty(alice.sentEnvelopes())
	req.Len(bob.sentEnvelopes(), 1)
	req.Len(carol.sentEnvelopes(), 1)
}

func TestBroadcaster_SendToOfflineRecipient(t *testing.T) {
	req := require.New(t)

	// Given nobody named mallory is connected
	_, broadcaster, _ := newTestBroadcaster()

	// When sending to her
	delivered := broadcaster.SendTo("mallory", domain.NewErrorEnvelope("hi"))

	// Then delivery reports false without failing
	req.False(delivered)
}

func TestBroadcaster_SendFailureRemovesConnection(t *testing.T) {
	req := require.New(t)

	// Given bob's transport is dead
	registry, broadcaster, stats := newTestBroadcaster()
	alice := admit(registry, "alice", "a")
	bob := admit(registry, "bob", "b")
	bob.breakSend()

	// When sending to bob
	delivered := broadcaster.SendTo("bob", domain.NewErrorEnvelope("hi"))

	// Then the send fails, bob is removed and closed, and the survivors
	// get a presence update announcing his departure
	req.False(delivered)
	req.False(registry.IsOnline("bob"))
	req.True(bob.isClosed())

	snapshot := stats.Snapshot(registry.Count())
	req.Equal(uint64(1), snapshot.SendFailures)

	updates := alice.envelopesOfKind(domain.KindPresenceUpdate)
	req.Len(updates, 1)
	update := updates[0].(domain.PresenceUpdateEnvelope)
	req.Equal([]string{"alice"}, update.Online)
	req.NotNil(update.Reason)
	req.Equal("bob disconnected", *update.Reason)
}

func TestBroadcaster_BroadcastSweepsFailedConnectionsOnce(t *testing.T) {
	req := require.New(t)

	// Given two dead connections among four
	registry, broadcaster, stats := newTestBroadcaster()
	alice := admit(registry, "alice", "a")
	bob := admit(registry, "bob", "b")
	carol := admit(registry, "carol", "c")
	dave := admit(registry, "dave", "d")
	bob.breakSend()
	dave.breakSend()

	// When broadcasting to everyone
	broadcaster.Broadcast(domain.NewErrorEnvelope("ping"), nil)

	// Then the healthy connections got the envelope, the dead ones were
	// removed after the sweep, and the survivors converge on the new view
	req.NotEmpty(alice.sentEnvelopes())
	req.NotEmpty(carol.sentEnvelopes())
	req.False(registry.IsOnline("bob"))
	req.False(registry.IsOnline("dave"))
	req.Equal([]string{"alice", "carol"}, registry.ListOnline())

	snapshot := stats.Snapshot(registry.Count())
	req.Equal(uint64(2), snapshot.SendFailures)
	req.Equal(2, snapshot.ActiveConnections)

	// Both dead connections were removed before any departure announcement,
	// so every announcement already carries the final online view
	updates := alice.envelopesOfKind(domain.KindPresenceUpdate)
	req.Len(updates, 2)
	for _, envelope := range updates {
		req.Equal([]string{"alice", "carol"}, envelope.(domain.PresenceUpdateEnvelope).Online)
	}
}

func TestBroadcaster_AnnouncePresenceCarriesSnapshotAndReason(t *testing.T) {
	req := require.New(t)

	// Given two connected users
	registry, broadcaster, _ := newTestBroadcaster()
	alice := admit(registry, "alice", "a")
	admit(registry, "bob", "b")

	// When announcing with a reason
	broadcaster.AnnouncePresence("bob joined the chat")

	// Then every client receives the full sorted snapshot and the reason
	updates := alice.envelopesOfKind(domain.KindPresenceUpdate)
	req.Len(updates, 1)
	update := updates[0].(domain.PresenceUpdateEnvelope)
	req.Equal([]string{"alice", "bob"}, update.Online)
	req.NotNil(update.Reason)
	req.Equal("bob joined the chat", *update.Reason)
}

func TestBroadcaster_AnnouncePresenceEmptyReasonOmitted(t *testing.T) {
	req := require.New(t)

	// Given one connected user
	registry, broadcaster, _ := newTestBroadcaster()
	alice := admit(registry, "alice", "a")

	// When announcing an on-demand refresh
	broadcaster.AnnouncePresence("")

	// Then the update carries no reason at all
	updates := alice.envelopesOfKind(domain.KindPresenceUpdate)
	req.Len(updates, 1)
	req.Nil(updates[0].(domain.PresenceUpdateEnvelope).Reason)
}
