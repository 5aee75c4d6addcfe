// Copyright 2025 Certen Protocol
//
// create_client, update_client and the proof-delegation / pruning
// operations of the light client.
package lightclient

import (
	"crypto/ed25519"
	"log"
	"time"

	"github.com/ibcx/tm-ibc-core/pkg/ics23"
)

// Client is the light client contract surface. It is total: every
// operation other than CreateClient returns a bool/value rather than an
// error, and never mutates state on a rejected update.
type Client struct {
	store  *Store
	logger *log.Logger
	now    func() time.Time
}

// NewClient creates a Client backed by a fresh Store. now defaults to
// time.Now but can be overridden for deterministic tests.
func NewClient(now func() time.Time) *Client {
	if now == nil {
		now = time.Now
	}
	return &Client{
		store:  NewStore(),
		logger: log.New(log.Writer(), "[lightclient] ", log.LstdFlags),
		now:    now,
	}
}

// CreateClientParams bundles create_client's inputs.
type CreateClientParams struct {
	ChainID                      string
	TrustLevel                   Fraction
	TrustPeriod                  time.Duration
	UnbondingPeriod              time.Duration
	MaxClockDrift                time.Duration
	ProofSpec                    ics23.ProofSpec
	AllowUpdateAfterExpiry       bool
	AllowUpdateAfterMisbehaviour bool
	InitialHeader                Header
}

// CreateClient implements create_client. Invalid parameters are the one
// place this package fails fatally: callers embedding it in a contract
// runtime should abort the host transaction on a non-nil error here.
func (c *Client) CreateClient(p CreateClientParams) (clientID string, err error) {
	if p.ChainID == "" {
		return "", ErrEmptyChainID
	}
	if p.InitialHeader.ValidatorSet == nil || len(p.InitialHeader.ValidatorSet.Validators) == 0 {
		return "", ErrEmptyValidatorSet
	}
	if p.InitialHeader.Height.IsZero() {
		return "", ErrZeroHeight
	}
	if p.TrustPeriod == 0 || p.UnbondingPeriod == 0 {
		return "", ErrZeroPeriod
	}
	if p.TrustPeriod >= p.UnbondingPeriod {
		return "", ErrTrustPeriodTooLong
	}
	if !p.TrustLevel.Valid() {
		return "", ErrInvalidTrustLevel
	}
	for _, v := range p.InitialHeader.ValidatorSet.Validators {
		if v.PubKey.Algo != PubKeyAlgoEd25519 || len(v.PubKey.Bytes) != ed25519.PublicKeySize {
			return "", ErrUnsupportedValidatorAlgo
		}
	}

	c.store.mu.Lock()
	defer c.store.mu.Unlock()

	id := c.store.nextClientID()
	state := ClientState{
		ChainID:                      p.ChainID,
		TrustLevel:                   p.TrustLevel,
		TrustPeriod:                  p.TrustPeriod,
		UnbondingPeriod:              p.UnbondingPeriod,
		MaxClockDrift:                p.MaxClockDrift,
		LatestHeight:                 p.InitialHeader.Height,
		ProofSpec:                    p.ProofSpec,
		AllowUpdateAfterExpiry:       p.AllowUpdateAfterExpiry,
		AllowUpdateAfterMisbehaviour: p.AllowUpdateAfterMisbehaviour,
	}
	cs := ConsensusState{
		Timestamp:          p.InitialHeader.Time,
		Root:               p.InitialHeader.AppHash,
		NextValidatorsHash: p.InitialHeader.NextValidatorsHash,
	}

	c.store.clients[id] = &clientRecord{
		state:           state,
		consensusStates: map[Height]ConsensusState{p.InitialHeader.Height: cs},
	}
	return id, nil
}

// UpdateClient implements update_client: verifies header against the
// trusted consensus state at latest_height, then stores a new
// ConsensusState and advances latest_height. Returns false on any
// verification failure without mutating state.
func (c *Client) UpdateClient(clientID string, header Header) bool {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()

	rec, ok := c.store.clients[clientID]
	if !ok {
		c.logger.Printf("update_client: unknown client %s", clientID)
		return false
	}

	trusted, ok := rec.consensusStates[rec.state.LatestHeight]
	if !ok {
		c.logger.Printf("update_client: missing trusted consensus state for %s at %s", clientID, rec.state.LatestHeight)
		return false
	}

	if err := c.verifyHeader(rec.state, trusted, header); err != nil {
		c.logger.Printf("update_client: rejected header for %s at %s: %v", clientID, header.Height, err)
		return false
	}

	rec.consensusStates[header.Height] = ConsensusState{
		Timestamp:          header.Time,
		Root:               header.AppHash,
		NextValidatorsHash: header.NextValidatorsHash,
	}
	rec.state.LatestHeight = header.Height
	c.logger.Printf("update_client: %s accepted height %s root=%s", clientID, header.Height, hexRoot(header.AppHash))
	return true
}

// verifyHeader runs the acceptance checks in order, returning the first
// violated rule's sentinel error.
func (c *Client) verifyHeader(state ClientState, trusted ConsensusState, header Header) error {
	if header.ChainID != state.ChainID {
		return ErrWrongChainID
	}
	if !header.Height.GT(state.LatestHeight) {
		return ErrHeightNotIncreasing
	}
	if header.Time.Before(trusted.Timestamp) {
		return ErrTimeNotIncreasing
	}

	hostTime := c.now()
	if hostTime.After(trusted.Timestamp.Add(state.TrustPeriod)) && !state.AllowUpdateAfterExpiry {
		return ErrExpired
	}
	if header.Time.After(hostTime.Add(state.MaxClockDrift)) {
		return ErrClockDrift
	}
	if validatorSetHash(header.ValidatorSet) != header.ValidatorsHash {
		return ErrValidatorsHashMismatch
	}
	if _, err := verifyCommitVotingPower(header.ValidatorSet, state.ChainID, header.Commit); err != nil {
		return err
	}

	// Bisection rule: header.TrustedValidators claims to be the set the
	// trusted consensus state bound for the next header. That claim is only
	// as good as its hash, so bind it to NextValidatorsHash before counting
	// any overlap against it.
	if validatorSetHash(header.TrustedValidators) != trusted.NextValidatorsHash {
		return ErrTrustedValidatorsMismatch
	}
	if err := verifyBisectionOverlap(state.TrustLevel, header.TrustedValidators, header.ValidatorSet); err != nil {
		return err
	}

	return nil
}

// VerifyMembership implements verify_membership: looks up the
// ConsensusState at (client_id, height) and delegates to ics23 with its
// root and the client's proof spec.
func (c *Client) VerifyMembership(clientID string, height Height, key, value []byte, proof *ics23.CommitmentProof) bool {
	cs, spec, ok := c.consensusStateAndSpec(clientID, height)
	if !ok {
		return false
	}
	return ics23.VerifyMembership(spec, cs.Root[:], key, value, proof)
}

// VerifyNonMembership implements verify_non_membership analogously.
func (c *Client) VerifyNonMembership(clientID string, height Height, key []byte, proof *ics23.CommitmentProof) bool {
	cs, spec, ok := c.consensusStateAndSpec(clientID, height)
	if !ok {
		return false
	}
	return ics23.VerifyNonMembership(spec, cs.Root[:], key, proof)
}

func (c *Client) consensusStateAndSpec(clientID string, height Height) (ConsensusState, ics23.ProofSpec, bool) {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()

	rec, ok := c.store.clients[clientID]
	if !ok {
		return ConsensusState{}, ics23.ProofSpec{}, false
	}
	cs, ok := rec.consensusStates[height]
	if !ok {
		return ConsensusState{}, ics23.ProofSpec{}, false
	}
	return cs, rec.state.ProofSpec, true
}

// GetClientState returns the client's current ClientState.
func (c *Client) GetClientState(clientID string) (ClientState, bool) {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	rec, ok := c.store.clients[clientID]
	if !ok {
		return ClientState{}, false
	}
	return rec.state, true
}

// GetConsensusState returns the ConsensusState at (clientID, height).
func (c *Client) GetConsensusState(clientID string, height Height) (ConsensusState, bool) {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	rec, ok := c.store.clients[clientID]
	if !ok {
		return ConsensusState{}, false
	}
	cs, ok := rec.consensusStates[height]
	return cs, ok
}

// GetLatestHeight returns the greatest height ever accepted for clientID.
func (c *Client) GetLatestHeight(clientID string) (Height, bool) {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	rec, ok := c.store.clients[clientID]
	if !ok {
		return Height{}, false
	}
	return rec.state.LatestHeight, true
}

// PruneExpiredConsensusState removes the entry at height iff
// host_time > consensus.timestamp + trust_period. Never prunes
// latest_height.
func (c *Client) PruneExpiredConsensusState(clientID string, height Height) bool {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()

	rec, ok := c.store.clients[clientID]
	if !ok {
		return false
	}
	if height == rec.state.LatestHeight {
		return false
	}
	cs, ok := rec.consensusStates[height]
	if !ok {
		return false
	}
	if !c.now().After(cs.Timestamp.Add(rec.state.TrustPeriod)) {
		return false
	}
	delete(rec.consensusStates, height)
	return true
}
