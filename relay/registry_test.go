package relay

import (
	"fmt"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"chat-relay/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestRegistry_AdmitFirstConnection(t *testing.T) {
	req := require.New(t)

	// Given an empty registry
	registry := NewRegistry(discardLogger())
	conn := newFakeConn("10.0.0.1:5000")

	// When admitting alice
	entry, evicted := registry.Admit(domain.User{ID: "u1", Username: "alice"}, conn)

	// Then she is online with no eviction
	req.False(evicted)
	req.Equal("alice", entry.User.Username)
	req.True(registry.IsOnline("alice"))
	req.Equal(1, registry.Count())
}

func TestRegistry_ReconnectEvictsPriorConnection(t *testing.T) {
	req := require.New(t)

	// Given alice already connected
	registry := NewRegistry(discardLogger())
	user := domain.User{ID: "u1", Username: "alice"}
	first := newFakeConn("10.0.0.1:5000")
	second := newFakeConn("10.0.0.1:5001")
	registry.Admit(user, first)

	// When she connects again
	_, evicted := registry.Admit(user, second)

	// Then the old connection is displaced and closed, and exactly one
	// entry remains, bound to the new connection
	req.True(evicted)
	req.Equal(1, registry.Count())
	req.True(first.isClosed())
	req.Equal(CloseNormal, first.closedWith())

	current, ok := registry.Lookup("alice")
	req.True(ok)
	req.Same(second, current.(*fakeConn))
}

func TestRegistry_RemoveIsIdempotent(t *testing.T) {
	req := require.New(t)

	// Given alice connected
	registry := NewRegistry(discardLogger())
	conn := newFakeConn("10.0.0.1:5000")
	registry.Admit(domain.User{ID: "u1", Username: "alice"}, conn)

	// When removing the connection twice
	user, first := registry.Remove(conn)
	_, second := registry.Remove(conn)

	// Then only the first removal reports success
	req.True(first)
	req.Equal("alice", user.Username)
	req.False(second)
	req.False(registry.IsOnline("alice"))
}

func TestRegistry_RemoveEvictedConnectionIsNoOp(t *testing.T) {
	req := require.New(t)

	// Given alice reconnected, displacing her first connection
	registry := NewRegistry(discardLogger())
	user := domain.User{ID: "u1", Username: "alice"}
	first := newFakeConn("10.0.0.1:5000")
	second := newFakeConn("10.0.0.1:5001")
	registry.Admit(user, first)
	registry.Admit(user, second)

	// When the evicted connection's teardown runs Remove
	_, removed := registry.Remove(first)

	// Then it is a no-op and the live entry survives
	req.False(removed)
	req.True(registry.IsOnline("alice"))
	req.Equal(1, registry.Count())
}

func TestRegistry_ListOnlineIsSorted(t *testing.T) {
	req := require.New(t)

	// Given three users admitted out of order
	registry := NewRegistry(discardLogger())
	for _, name := range []string{"carol", "alice", "bob"} {
		registry.Admit(domain.User{ID: name, Username: name}, newFakeConn(name))
	}

	// When listing the online snapshot
	online := registry.ListOnline()

	// Then the order is stable and sorted
	req.Equal([]string{"alice", "bob", "carol"}, online)
}

func TestRegistry_ConcurrentAdmitsSingleIdentity(t *testing.T) {
	req := require.New(t)

	// Given many goroutines racing to connect as the same identity
	registry := NewRegistry(discardLogger())
	user := domain.User{ID: "u1", Username: "alice"}

	var wg sync.WaitGroup
	conns := make([]*fakeConn, 32)
	for i := range conns {
		conns[i] = newFakeConn(fmt.Sprintf("10.0.0.1:%d", 5000+i))
		wg.Add(1)
		go func(c *fakeConn) {
			defer wg.Done()
			registry.Admit(user, c)
		}(conns[i])
	}
	wg.Wait()

	// Then exactly one entry remains and it belongs to one of the racers
	req.Equal(1, registry.Count())
	winner, ok := registry.Lookup("alice")
	req.True(ok)

	open := 0
	for _, c := range conns {
		if !c.isClosed() {
			open++
			req.Same(c, winner.(*fakeConn))
		}
	}
	req.Equal(1, open)
}

func TestRegistry_ConcurrentAdmitRemoveDistinctIdentities(t *testing.T) {
	req := require.New(t)

	// Given concurrent join and leave traffic across distinct identities
	registry := NewRegistry(discardLogger())

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			name := fmt.Sprintf("user%02d", i)
			conn := newFakeConn(name)
			registry.Admit(domain.User{ID: name, Username: name}, conn)
			if i%2 == 0 {
				registry.Remove(conn)
			}
		}(i)
	}
	wg.Wait()

	// Then only the identities that never left remain online
	req.Equal(8, registry.Count())
	for i := 0; i < 16; i++ {
		name := fmt.Sprintf("user%02d", i)
		req.Equal(i%2 != 0, registry.IsOnline(name))
	}
}
