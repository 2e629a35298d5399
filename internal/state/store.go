// v1
// internal/state/store.go

package state

import (
	"sync"

	"github.com/vpp-edge/metersim/internal/telemetry"
)

// Snapshot is an immutable copy of the shared state as of one replay tick.
type Snapshot struct {
	LastPayload   *telemetry.Payload
	RowIndex      int
	TotalRows     int
	MQTTConnected bool
	PublishCount  uint64
	LastError     string
}

// Store owns the mutable state shared between the replay loop, the broker
// event callbacks and the status handlers. One mutex guards every field;
// the unit of consistency is the lock acquisition. The lock is held only
// for in-memory copies, never across I/O.
type Store struct {
	mu          sync.Mutex
	lastPayload *telemetry.Payload
	rowIndex    int
	totalRows   int
	connected   bool
	published   uint64
	lastErr     string
}

func New(totalRows int) *Store {
	return &Store{totalRows: totalRows}
}

// SetProgress records the payload and cursor of the tick that just ran.
func (s *Store) SetProgress(p telemetry.Payload, rowIndex int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := p
	s.lastPayload = &cp
	s.rowIndex = rowIndex
}

// MarkConnected flips the connection flag on and clears the last error.
func (s *Store) MarkConnected() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = true
	s.lastErr = ""
}

// MarkDisconnected flips the connection flag off. The last error is left
// untouched; transport reconnection is transparent.
func (s *Store) MarkDisconnected() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = false
}

// RecordError notes a failed connection attempt for observability.
func (s *Store) RecordError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.lastErr = err.Error()
	}
}

// IncPublished counts one acknowledged publish.
func (s *Store) IncPublished() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.published++
}

// Connected reports the current connection flag.
func (s *Store) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

// Snapshot copies out every field under the lock. The returned payload is a
// private copy, never a live-mutable reference.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{
		RowIndex:      s.rowIndex,
		TotalRows:     s.totalRows,
		MQTTConnected: s.connected,
		PublishCount:  s.published,
		LastError:     s.lastErr,
	}
	if s.lastPayload != nil {
		cp := *s.lastPayload
		snap.LastPayload = &cp
	}
	return snap
}
