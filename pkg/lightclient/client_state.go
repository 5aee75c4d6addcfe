package lightclient

import (
	"time"

	"github.com/ibcx/tm-ibc-core/pkg/ics23"
)

// ClientState is the per-client configuration and trust parameters.
type ClientState struct {
	ChainID                      string
	TrustLevel                   Fraction
	TrustPeriod                  time.Duration
	UnbondingPeriod              time.Duration
	MaxClockDrift                time.Duration
	LatestHeight                 Height
	ProofSpec                    ics23.ProofSpec
	AllowUpdateAfterExpiry       bool
	AllowUpdateAfterMisbehaviour bool
}

// ConsensusState is the trusted state retained per (client, height): the
// commitment root proofs evaluate against, the header timestamp, and the
// hash binding the validator set that must sign the next header.
type ConsensusState struct {
	Timestamp          time.Time
	Root               [32]byte
	NextValidatorsHash [32]byte
}
