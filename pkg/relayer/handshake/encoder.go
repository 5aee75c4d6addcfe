// Copyright 2025 Certen Protocol
package handshake

import (
	"github.com/ibcx/tm-ibc-core/pkg/lightclient"
	"github.com/ibcx/tm-ibc-core/pkg/relayer/chainadapter"
)

// ConnectionProofs bundles the connection/client-state/consensus-state
// proofs a non-init connection handshake step must carry:
// open_try/open_ack/open_confirm each need all three against the
// counterparty's light client root.
type ConnectionProofs struct {
	Connection     chainadapter.ProofResult
	ClientState    chainadapter.ProofResult
	ConsensusState chainadapter.ProofResult
}

// ChannelProofs bundles the channel-end proof a non-init channel handshake
// step must carry.
type ChannelProofs struct {
	Channel chainadapter.ProofResult
}

// ConnectionMsgEncoder builds the wire bytes for each connection handshake
// step. Chain-specific adapters implement this (e.g. ABI-encoding for an
// EVM host chain, proto-encoding for a Tendermint chain); the coordinator
// is agnostic to the wire format. OpenInit carries no proof; every later
// step does.
type ConnectionMsgEncoder interface {
	OpenInit(req ConnectionRequest) []byte
	OpenTry(req ConnectionRequest, proofs ConnectionProofs) []byte
	OpenAck(req ConnectionRequest, proofs ConnectionProofs) []byte
	OpenConfirm(req ConnectionRequest, proofs ConnectionProofs) []byte
}

// ChannelMsgEncoder is the channel-handshake analogue of
// ConnectionMsgEncoder.
type ChannelMsgEncoder interface {
	OpenInit(req ChannelRequest) []byte
	OpenTry(req ChannelRequest, proofs ChannelProofs) []byte
	OpenAck(req ChannelRequest, proofs ChannelProofs) []byte
	OpenConfirm(req ChannelRequest, proofs ChannelProofs) []byte
}

// zeroHeader is a placeholder header carrying only the height being
// proven; real deployments populate the full signed header from the
// source chain's light client before calling UpdateClient.
func zeroHeader(height lightclient.Height) lightclient.Header {
	return lightclient.Header{Height: height}
}
