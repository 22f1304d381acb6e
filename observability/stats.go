// Package observability aggregates relay counters for the stats endpoint.
package observability

import "sync/atomic"

// Stats collects monotonic relay counters. All methods are safe for
// concurrent use; gauges derived from live state (active connections) are
// sampled at render time by the caller.
type Stats struct {
	connectionsTotal atomic.Uint64
	evictions        atomic.Uint64
	messagesRelayed  atomic.Uint64
	broadcasts       atomic.Uint64
	sendFailures     atomic.Uint64
}

func NewStats() *Stats {
	return &Stats{}
}

func (s *Stats) ConnectionAdmitted() { s.connectionsTotal.Add(1) }
func (s *Stats) Eviction()           { s.evictions.Add(1) }
func (s *Stats) MessageRelayed()     { s.messagesRelayed.Add(1) }
func (s *Stats) Broadcast()          { s.broadcasts.Add(1) }
func (s *Stats) SendFailure()        { s.sendFailures.Add(1) }

// Snapshot renders the counters alongside the sampled connection gauge.
type Snapshot struct {
	ActiveConnections int    `json:"active_connections"`
	ConnectionsTotal  uint64 `json:"connections_total"`
	Evictions         uint64 `json:"evictions"`
	MessagesRelayed   uint64 `json:"messages_relayed"`
	Broadcasts        uint64 `json:"broadcasts"`
	SendFailures      uint64 `json:"send_failures"`
}

func (s *Stats) Snapshot(activeConnections int) Snapshot {
	return Snapshot{
		ActiveConnections: activeConnections,
		ConnectionsTotal:  s.connectionsTotal.Load(),
		Evictions:         s.evictions.Load(),
		MessagesRelayed:   s.messagesRelayed.Load(),
		Broadcasts:        s.broadcasts.Load(),
		SendFailures:      s.sendFailures.Load(),
	}
}
