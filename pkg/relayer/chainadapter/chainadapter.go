// Copyright 2025 Certen Protocol
//
// Package chainadapter defines the per-chain capability surface the relayer
// drives: connect once, expose narrow typed methods over the underlying
// RPC/SDK client, behind one interface so the relay engine is
// chain-agnostic.
package chainadapter

import (
	"context"

	"github.com/ibcx/tm-ibc-core/pkg/ibcchannel"
	"github.com/ibcx/tm-ibc-core/pkg/ics23"
	"github.com/ibcx/tm-ibc-core/pkg/lightclient"
)

// RelayEvent is a canonical IBC event observed on a chain, parsed by the
// event monitor from the chain's native event/log representation.
type RelayEvent struct {
	Type   ibcchannel.EventType
	Packet ibcchannel.Packet
	Ack    []byte
	Height lightclient.Height
	TxHash string
}

// CommitmentQuery identifies a single packet-lifecycle key to query on a
// chain (commitment, receipt, ack, or next_sequence_recv, depending on the
// call site).
type CommitmentQuery struct {
	Port     string
	Channel  string
	Sequence uint64
}

// ProofResult bundles a queried value with its ICS-23 membership/
// non-membership proof at a given height.
type ProofResult struct {
	Value       []byte
	Proof       *ics23.CommitmentProof
	ProofHeight lightclient.Height
}

// Adapter is the per-chain trait the relayer drives: height/event queries,
// packet-lifecycle queries with proofs, and IBC-specific transaction
// submission.
type Adapter interface {
	ChainID() string

	// GetHeight returns the chain's current height.
	GetHeight(ctx context.Context) (lightclient.Height, error)

	// GetHeader returns the signed header at height, in the form
	// update_client consumes. The packet processor fetches this from the
	// source chain before updating the destination's light client.
	GetHeader(ctx context.Context, height lightclient.Height) (lightclient.Header, error)

	// GetEvents returns canonical IBC events observed in [from, to].
	GetEvents(ctx context.Context, from, to lightclient.Height) ([]RelayEvent, error)

	// SubscribeEvents streams events as they occur; the returned channel is
	// closed when ctx is cancelled or the subscription ends.
	SubscribeEvents(ctx context.Context) (<-chan RelayEvent, error)

	// QueryPacketCommitment, QueryPacketAck, QueryPacketReceipt and
	// QueryNextSequenceRecv return the requested value with its ICS-23
	// proof at the chain's latest queryable height.
	QueryPacketCommitment(ctx context.Context, q CommitmentQuery) (ProofResult, error)
	QueryPacketAck(ctx context.Context, q CommitmentQuery) (ProofResult, error)
	QueryPacketReceipt(ctx context.Context, q CommitmentQuery) (ProofResult, error)
	QueryNextSequenceRecv(ctx context.Context, port, channel string) (ProofResult, error)

	// QueryConnection, QueryClientState, QueryConsensusState and
	// QueryChannel return the handshake-proof values the relayer's
	// handshake coordinator attaches to each non-init connection/channel
	// step.
	QueryConnection(ctx context.Context, connectionID string) (ProofResult, error)
	QueryClientState(ctx context.Context, clientID string) (ProofResult, error)
	QueryConsensusState(ctx context.Context, clientID string, height lightclient.Height) (ProofResult, error)
	QueryChannel(ctx context.Context, port, channel string) (ProofResult, error)

	// SubmitTx submits an arbitrary chain transaction and returns its hash.
	SubmitTx(ctx context.Context, tx []byte) (string, error)

	// UpdateClient submits a light client header update for clientID.
	UpdateClient(ctx context.Context, clientID string, header lightclient.Header) (string, error)

	// RecvPacket, AckPacket and TimeoutPacket submit the corresponding IBC
	// message, carrying the packet plus its proof from the counterparty.
	RecvPacket(ctx context.Context, p ibcchannel.Packet, proof ProofResult) (string, error)
	AckPacket(ctx context.Context, p ibcchannel.Packet, ack ibcchannel.Acknowledgement, proof ProofResult) (string, error)
	TimeoutPacket(ctx context.Context, p ibcchannel.Packet, proof ProofResult) (string, error)
}
