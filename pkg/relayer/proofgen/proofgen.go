// Copyright 2025 Certen Protocol
//
// Package proofgen generates ICS-23 commitment proofs for packet-lifecycle
// queries and caches them with a short TTL keyed by (chain, purpose, port,
// channel, sequence).
package proofgen

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ibcx/tm-ibc-core/pkg/lightclient"
	"github.com/ibcx/tm-ibc-core/pkg/relayer/chainadapter"
)

// Purpose identifies which value a cached proof attests: a packet-lifecycle
// entry, or a connection/client-state/consensus-state/channel handshake
// proof.
type Purpose string

const (
	PurposeCommitment       Purpose = "commitment"
	PurposeAck              Purpose = "ack"
	PurposeReceipt          Purpose = "receipt"
	PurposeNextSequenceRecv Purpose = "next_sequence_recv"
	PurposeConnection       Purpose = "connection"
	PurposeClientState      Purpose = "client_state"
	PurposeConsensusState   Purpose = "consensus_state"
	PurposeChannel          Purpose = "channel"
)

type cacheKey struct {
	chainID string
	purpose Purpose
	port    string
	channel string
	seq     uint64
	id      string // connection_id or client_id, for handshake-proof purposes
	height  lightclient.Height
}

type cachedProof struct {
	result    chainadapter.ProofResult
	expiresAt time.Time
}

// Generator queries a chain adapter for a value and its ICS-23 proof,
// caching the result for ttl.
type Generator struct {
	mu      sync.Mutex
	cache   map[cacheKey]cachedProof
	ttl     time.Duration
	clients map[string]chainadapter.Adapter
}

// New creates a Generator with the given TTL and the set of chain adapters
// it may be asked to query, keyed by chain id.
func New(ttl time.Duration, adapters ...chainadapter.Adapter) *Generator {
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	clients := make(map[string]chainadapter.Adapter, len(adapters))
	for _, a := range adapters {
		clients[a.ChainID()] = a
	}
	return &Generator{cache: make(map[cacheKey]cachedProof), ttl: ttl, clients: clients}
}

func (g *Generator) get(key cacheKey) (chainadapter.ProofResult, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	entry, ok := g.cache[key]
	if !ok || time.Now().After(entry.expiresAt) {
		return chainadapter.ProofResult{}, false
	}
	return entry.result, true
}

func (g *Generator) put(key cacheKey, result chainadapter.ProofResult) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.cache[key] = cachedProof{result: result, expiresAt: time.Now().Add(g.ttl)}
}

func (g *Generator) query(ctx context.Context, chainID string, purpose Purpose, port, channel string, seq uint64) (chainadapter.ProofResult, error) {
	key := cacheKey{chainID: chainID, purpose: purpose, port: port, channel: channel, seq: seq}
	if result, ok := g.get(key); ok {
		return result, nil
	}

	adapter, ok := g.clients[chainID]
	if !ok {
		return chainadapter.ProofResult{}, fmt.Errorf("proofgen: no adapter registered for chain %q", chainID)
	}

	q := chainadapter.CommitmentQuery{Port: port, Channel: channel, Sequence: seq}
	var (
		result chainadapter.ProofResult
		err    error
	)
	switch purpose {
	case PurposeCommitment:
		result, err = adapter.QueryPacketCommitment(ctx, q)
	case PurposeAck:
		result, err = adapter.QueryPacketAck(ctx, q)
	case PurposeReceipt:
		result, err = adapter.QueryPacketReceipt(ctx, q)
	case PurposeNextSequenceRecv:
		result, err = adapter.QueryNextSequenceRecv(ctx, port, channel)
	case PurposeChannel:
		result, err = adapter.QueryChannel(ctx, port, channel)
	default:
		return chainadapter.ProofResult{}, fmt.Errorf("proofgen: unknown purpose %q", purpose)
	}
	if err != nil {
		return chainadapter.ProofResult{}, err
	}
	g.put(key, result)
	return result, nil
}

// queryByID is query's counterpart for handshake proofs keyed by a
// connection_id or client_id (and, for consensus state, a height) rather
// than a (port, channel, sequence) packet key.
func (g *Generator) queryByID(ctx context.Context, chainID string, purpose Purpose, id string, height lightclient.Height) (chainadapter.ProofResult, error) {
	key := cacheKey{chainID: chainID, purpose: purpose, id: id, height: height}
	if result, ok := g.get(key); ok {
		return result, nil
	}

	adapter, ok := g.clients[chainID]
	if !ok {
		return chainadapter.ProofResult{}, fmt.Errorf("proofgen: no adapter registered for chain %q", chainID)
	}

	var (
		result chainadapter.ProofResult
		err    error
	)
	switch purpose {
	case PurposeConnection:
		result, err = adapter.QueryConnection(ctx, id)
	case PurposeClientState:
		result, err = adapter.QueryClientState(ctx, id)
	case PurposeConsensusState:
		result, err = adapter.QueryConsensusState(ctx, id, height)
	default:
		return chainadapter.ProofResult{}, fmt.Errorf("proofgen: unknown purpose %q", purpose)
	}
	if err != nil {
		return chainadapter.ProofResult{}, err
	}
	g.put(key, result)
	return result, nil
}

// CommitmentProof returns a (possibly cached) membership proof for a packet
// commitment on chainID.
func (g *Generator) CommitmentProof(ctx context.Context, chainID, port, channel string, seq uint64) (chainadapter.ProofResult, error) {
	return g.query(ctx, chainID, PurposeCommitment, port, channel, seq)
}

// AckProof returns a (possibly cached) membership proof for a packet
// acknowledgement on chainID.
func (g *Generator) AckProof(ctx context.Context, chainID, port, channel string, seq uint64) (chainadapter.ProofResult, error) {
	return g.query(ctx, chainID, PurposeAck, port, channel, seq)
}

// ReceiptProof returns a (possibly cached) proof for a packet receipt on
// chainID (its absence is the non-membership proof timeout_packet needs for
// unordered channels).
func (g *Generator) ReceiptProof(ctx context.Context, chainID, port, channel string, seq uint64) (chainadapter.ProofResult, error) {
	return g.query(ctx, chainID, PurposeReceipt, port, channel, seq)
}

// NextSequenceRecvProof returns a (possibly cached) proof of
// next_sequence_recv on chainID (the membership proof an ordered-channel
// timeout needs).
func (g *Generator) NextSequenceRecvProof(ctx context.Context, chainID, port, channel string) (chainadapter.ProofResult, error) {
	return g.query(ctx, chainID, PurposeNextSequenceRecv, port, channel, 0)
}

// ConnectionProof returns a (possibly cached) membership proof for a
// connection end on chainID, used by open_try/open_ack/open_confirm.
func (g *Generator) ConnectionProof(ctx context.Context, chainID, connectionID string) (chainadapter.ProofResult, error) {
	return g.queryByID(ctx, chainID, PurposeConnection, connectionID, lightclient.Height{})
}

// ClientStateProof returns a (possibly cached) membership proof for a
// client's state on chainID.
func (g *Generator) ClientStateProof(ctx context.Context, chainID, clientID string) (chainadapter.ProofResult, error) {
	return g.queryByID(ctx, chainID, PurposeClientState, clientID, lightclient.Height{})
}

// ConsensusStateProof returns a (possibly cached) membership proof for a
// client's consensus state at height on chainID.
func (g *Generator) ConsensusStateProof(ctx context.Context, chainID, clientID string, height lightclient.Height) (chainadapter.ProofResult, error) {
	return g.queryByID(ctx, chainID, PurposeConsensusState, clientID, height)
}

// ChannelProof returns a (possibly cached) membership proof for a channel
// end on chainID.
func (g *Generator) ChannelProof(ctx context.Context, chainID, port, channel string) (chainadapter.ProofResult, error) {
	return g.query(ctx, chainID, PurposeChannel, port, channel, 0)
}

// Invalidate drops any cached entry for the given key, used after a
// submission that is known to change the underlying value.
func (g *Generator) Invalidate(chainID string, purpose Purpose, port, channel string, seq uint64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.cache, cacheKey{chainID: chainID, purpose: purpose, port: port, channel: channel, seq: seq})
}
