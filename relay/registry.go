package relay

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"chat-relay/domain"
)

// Entry records that an identity currently has a live connection.
type Entry struct {
	User       domain.User
	Conn       Conn
	AdmittedAt time.Time
}

// Registry owns the set of live connections and is the single source of
// truth for "who is online right now". It enforces at most one entry per
// identity: admitting a second connection for an already-present identity
// atomically evicts the first.
//
// One mutex guards both maps. Lookups and mutations are bounded and
// synchronous; the evicted connection is closed after the lock is released
// so the registry never suspends while holding it.
type Registry struct {
	mu     sync.Mutex
	byUser map[string]*Entry
	byConn map[Conn]string
	log    *slog.Logger
}

func NewRegistry(log *slog.Logger) *Registry {
	return &Registry{
		byUser: make(map[string]*Entry),
		byConn: make(map[Conn]string),
		log:    log,
	}
}

// Admit installs a presence entry for the user. If the identity already has
// a live entry, the stale one is removed in the same critical section, so no
// observer ever sees two entries (or none) for the identity during a
// reconnect. The evicted flag tells the caller a prior connection was
// displaced; its handle is closed here, best-effort.
func (r *Registry) Admit(user domain.User, conn Conn) (entry *Entry, evicted bool) {
	var stale Conn

	r.mu.Lock()
	if old, ok := r.byUser[user.Username]; ok {
		delete(r.byConn, old.Conn)
		stale = old.Conn
	}
	entry = &Entry{User: user, Conn: conn, AdmittedAt: time.Now().UTC()}
	r.byUser[user.Username] = entry
	r.byConn[conn] = user.Username
	total := len(r.byUser)
	r.mu.Unlock()

	if stale != nil {
		// The handle is being discarded regardless; close errors are swallowed.
		_ = stale.Close(CloseNormal, "replaced by a newer connection")
	}

	r.log.Info("connection admitted",
		"username", user.Username,
		"addr", conn.RemoteAddr(),
		"evicted", stale != nil,
		"online", total)
	return entry, stale != nil
}

// Remove deletes the entry matching the given connection, if any. It is a
// no-op for connections that were already removed or evicted, which makes
// teardown idempotent when an explicit disconnect races an eviction.
func (r *Registry) Remove(conn Conn) (domain.User, bool) {
	r.mu.Lock()
	username, ok := r.byConn[conn]
	if !ok {
		r.mu.Unlock()
		return domain.User{}, false
	}
	delete(r.byConn, conn)
	entry := r.byUser[username]
	var user domain.User
	if entry != nil && entry.Conn == conn {
		user = entry.User
		delete(r.byUser, username)
	}
	total := len(r.byUser)
	r.mu.Unlock()

	r.log.Info("connection removed", "username", username, "online", total)
	return user, true
}

func (r *Registry) IsOnline(username string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.byUser[username]
	return ok
}

// Lookup returns the live connection for an identity, if present.
func (r *Registry) Lookup(username string) (Conn, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.byUser[username]
	if !ok {
		return nil, false
	}
	return entry.Conn, true
}

// ListOnline returns the usernames currently present, sorted so the order
// is stable within a single snapshot.
func (r *Registry) ListOnline() []string {
	r.mu.Lock()
	online := make([]string, 0, len(r.byUser))
	for username := range r.byUser {
		online = append(online, username)
	}
	r.mu.Unlock()

	sort.Strings(online)
	return online
}

// Snapshot copies the live entries for iteration outside the lock.
func (r *Registry) Snapshot() []*Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	entries := make([]*Entry, 0, len(r.byUser))
	for _, entry := range r.byUser {
		entries = append(entries, entry)
	}
	return entries
}

// Count reports how many identities are online.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byUser)
}
