// Copyright 2025 Certen Protocol
//
// Package ibcconnection drives the ICS-03 connection handshake:
// INIT -> TRYOPEN -> OPEN, keyed by connection_id.
package ibcconnection

import (
	"time"

	"github.com/ibcx/tm-ibc-core/pkg/ics23"
	"github.com/ibcx/tm-ibc-core/pkg/lightclient"
)

// State is a connection's handshake state.
type State int

const (
	StateInit State = iota
	StateTryOpen
	StateOpen
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "INIT"
	case StateTryOpen:
		return "TRYOPEN"
	case StateOpen:
		return "OPEN"
	default:
		return "UNKNOWN"
	}
}

// Counterparty identifies the remote side of a connection.
type Counterparty struct {
	ClientID         string
	ConnectionID     string // empty until known
	CommitmentPrefix []byte
}

// ConnectionEnd is one per connection_id.
type ConnectionEnd struct {
	State        State
	ClientID     string
	Counterparty Counterparty
	Versions     []string
	DelayPeriod  time.Duration
}

// Proofs bundles the three ICS-23 proofs required at each handshake step,
// plus the values each proof must be
// shown to commit to. ClientStateValue/ConsensusStateValue are the
// counterparty's own encoding of its client state and consensus state at
// ProofHeight; without them a proof can only be length-checked, not
// cryptographically verified against the local light client's root.
type Proofs struct {
	ConnectionProof     *ics23.CommitmentProof
	ClientStateProof    *ics23.CommitmentProof
	ConsensusStateProof *ics23.CommitmentProof
	ClientStateValue    []byte
	ConsensusStateValue []byte
	ProofHeight         lightclient.Height
}
