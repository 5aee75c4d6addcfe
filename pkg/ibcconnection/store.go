package ibcconnection

import (
	"fmt"
	"sync"
	"time"

	"github.com/ibcx/tm-ibc-core/pkg/ics23"
	"github.com/ibcx/tm-ibc-core/pkg/lightclient"
)

// ClientReader is the subset of the light client the connection machine uses to
// evaluate handshake proofs: membership checks against a counterparty's
// root at a given height, delegating to ics23 internally.
type ClientReader interface {
	VerifyMembership(clientID string, height lightclient.Height, key, value []byte, proof *ics23.CommitmentProof) bool
}

// Machine owns the connection_id -> ConnectionEnd table, plus the
// bookkeeping needed to enforce the delay period
// (how long the local client has held a ConsensusState for a given proof
// height).
type Machine struct {
	mu               sync.Mutex
	connections      map[string]*ConnectionEnd
	counter          uint64
	heightObservedAt map[string]time.Time // "height" -> first-seen wall time
	now              func() time.Time
}

// NewMachine creates an empty connection machine.
func NewMachine(now func() time.Time) *Machine {
	if now == nil {
		now = time.Now
	}
	return &Machine{
		connections:      make(map[string]*ConnectionEnd),
		heightObservedAt: make(map[string]time.Time),
		now:              now,
	}
}

func (m *Machine) nextConnectionID() string {
	id := m.counter
	m.counter++
	return fmt.Sprintf("connection-%d", id)
}

// ObserveHeight records the first wall-clock time the local client held a
// ConsensusState for height, used by the delay-period check.
func (m *Machine) ObserveHeight(height string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.heightObservedAt[height]; !ok {
		m.heightObservedAt[height] = m.now()
	}
}

// delayElapsed reports whether delayPeriod has passed since height was
// first observed by the local client.
func (m *Machine) delayElapsed(height string, delayPeriod time.Duration) bool {
	observed, ok := m.heightObservedAt[height]
	if !ok {
		return false
	}
	return m.now().Sub(observed) >= delayPeriod
}

// Get returns the ConnectionEnd for id.
func (m *Machine) Get(id string) (ConnectionEnd, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.connections[id]
	if !ok {
		return ConnectionEnd{}, false
	}
	return *c, true
}
