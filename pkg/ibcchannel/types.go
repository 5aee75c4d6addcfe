// Copyright 2025 Certen Protocol
//
// Package ibcchannel drives the ICS-04 channel handshake and packet
// lifecycle: INIT/TRYOPEN/OPEN/CLOSED, ordered/unordered packet
// semantics, and packet commitments/receipts/acknowledgements.
package ibcchannel

import "github.com/ibcx/tm-ibc-core/pkg/lightclient"

// State is a channel's handshake/lifecycle state.
type State int

const (
	StateInit State = iota
	StateTryOpen
	StateOpen
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "INIT"
	case StateTryOpen:
		return "TRYOPEN"
	case StateOpen:
		return "OPEN"
	case StateClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// Ordering is a channel's delivery ordering.
type Ordering int

const (
	Unordered Ordering = iota
	Ordered
)

// ChannelCounterparty identifies the remote side of a channel.
type ChannelCounterparty struct {
	PortID    string
	ChannelID string // empty until known
}

// ChannelEnd is one per (port_id, channel_id).
type ChannelEnd struct {
	State          State
	Ordering       Ordering
	Counterparty   ChannelCounterparty
	ConnectionHops []string
	Version        string
}

// Packet is the wire structure carried between send_packet and
// recv_packet.
type Packet struct {
	Sequence         uint64
	SrcPort          string
	SrcChannel       string
	DstPort          string
	DstChannel       string
	Data             []byte
	TimeoutHeight    lightclient.Height
	TimeoutTimestamp uint64 // unix nanoseconds; 0 means "no timeout"
}

// Acknowledgement is the success/error tagged value applications return
// from recv_packet; only hash(ack_bytes) is persisted by the channel
// layer.
type Acknowledgement struct {
	Success bool
	Data    []byte
}

// channelKey is the map key for (port_id, channel_id) tables.
type channelKey struct {
	Port    string
	Channel string
}
