// Copyright 2025 Certen Protocol
//
// The ICS-04 channel handshake: it mirrors the connection handshake but
// proves the counterparty's ChannelEnd under the channelEnds storage path
// instead of a ConnectionEnd, and requires connection_hops[0] to reference
// an OPEN connection.
package ibcchannel

import (
	"github.com/ibcx/tm-ibc-core/pkg/ibcconnection"
	"github.com/ibcx/tm-ibc-core/pkg/ics23"
	"github.com/ibcx/tm-ibc-core/pkg/lightclient"
)

// checkConnectionHop validates that connection_hops[0] references an OPEN
// connection and returns it; callers use its ClientID to pick the light
// client for proof checks. The connection's counterparty is not compared.
// Called with m.mu held.
func (m *Machine) checkConnectionHop(connectionHops []string) (ibcconnection.ConnectionEnd, error) {
	if m.conns == nil || len(connectionHops) == 0 {
		return ibcconnection.ConnectionEnd{}, ErrConnectionNotOpen
	}
	conn, ok := m.conns.Get(connectionHops[0])
	if !ok || conn.State != ibcconnection.StateOpen {
		return ibcconnection.ConnectionEnd{}, ErrConnectionNotOpen
	}
	return conn, nil
}

// verifyCounterpartyChannel proves the counterparty holds expected under
// its channelEnds path at proofHeight, through the light client tracking
// the counterparty. Called with m.mu held.
func (m *Machine) verifyCounterpartyChannel(conn ibcconnection.ConnectionEnd, cpPort, cpChannel string, expected ChannelEnd, proof *ics23.CommitmentProof, proofHeight lightclient.Height) error {
	if m.client == nil {
		return ErrProofVerificationFailed
	}
	encoded := encodeChannelEnd(expected)
	if !m.client.VerifyMembership(conn.ClientID, proofHeight, channelEndKey(cpPort, cpChannel), encoded, proof) {
		return ErrProofVerificationFailed
	}
	return nil
}

// encodeChannelEnd is the deterministic encoding used as the value side of
// a channel-end membership proof, mirroring ibcconnection's
// encodeConnectionEnd.
func encodeChannelEnd(c ChannelEnd) []byte {
	ordering := "UNORDERED"
	if c.Ordering == Ordered {
		ordering = "ORDERED"
	}
	return []byte(c.State.String() + "|" + ordering + "|" + c.Counterparty.PortID + "|" + c.Counterparty.ChannelID + "|" + c.Version)
}

func newChannelState(end ChannelEnd) *perChannelState {
	return &perChannelState{
		end:               end,
		nextSequenceSend:  1,
		nextSequenceRecv:  1,
		nextSequenceAck:   1,
		packetCommitments: make(map[uint64][32]byte),
		packetReceipts:    make(map[uint64]struct{}),
		packetAcks:        make(map[uint64][32]byte),
	}
}

// OpenInit implements channel open_init.
func (m *Machine) OpenInit(port, channel string, ordering Ordering, connectionHops []string, counterpartyPort string, version string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, err := m.checkConnectionHop(connectionHops); err != nil {
		return err
	}
	key := channelKey{Port: port, Channel: channel}
	if _, exists := m.channels[key]; exists {
		return ErrWrongState
	}
	m.channels[key] = newChannelState(ChannelEnd{
		State:          StateInit,
		Ordering:       ordering,
		Counterparty:   ChannelCounterparty{PortID: counterpartyPort},
		ConnectionHops: connectionHops,
		Version:        version,
	})
	return nil
}

// OpenTry implements channel open_try: the proof must show the counterparty
// holds an INIT ChannelEnd at (counterparty.PortID, counterparty.ChannelID)
// whose own counterparty is this port, with matching ordering.
func (m *Machine) OpenTry(port, channel string, ordering Ordering, connectionHops []string, counterparty ChannelCounterparty, version, counterpartyVersion string, proof *ics23.CommitmentProof, proofHeight lightclient.Height) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	conn, err := m.checkConnectionHop(connectionHops)
	if err != nil {
		return err
	}
	expected := ChannelEnd{
		State:        StateInit,
		Ordering:     ordering,
		Counterparty: ChannelCounterparty{PortID: port},
		Version:      counterpartyVersion,
	}
	if err := m.verifyCounterpartyChannel(conn, counterparty.PortID, counterparty.ChannelID, expected, proof, proofHeight); err != nil {
		return err
	}

	key := channelKey{Port: port, Channel: channel}
	m.channels[key] = newChannelState(ChannelEnd{
		State:          StateTryOpen,
		Ordering:       ordering,
		Counterparty:   counterparty,
		ConnectionHops: connectionHops,
		Version:        version,
	})
	return nil
}

// OpenAck implements channel open_ack: requires INIT locally, plus proof
// the counterparty reached TRYOPEN referencing this channel.
func (m *Machine) OpenAck(port, channel, counterpartyChannelID, version string, proof *ics23.CommitmentProof, proofHeight lightclient.Height) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.get(port, channel)
	if !ok {
		return ErrUnknownChannel
	}
	if s.end.State != StateInit {
		return ErrWrongState
	}
	conn, err := m.checkConnectionHop(s.end.ConnectionHops)
	if err != nil {
		return err
	}
	expected := ChannelEnd{
		State:        StateTryOpen,
		Ordering:     s.end.Ordering,
		Counterparty: ChannelCounterparty{PortID: port, ChannelID: channel},
		Version:      version,
	}
	if err := m.verifyCounterpartyChannel(conn, s.end.Counterparty.PortID, counterpartyChannelID, expected, proof, proofHeight); err != nil {
		return err
	}

	s.end.Counterparty.ChannelID = counterpartyChannelID
	s.end.Version = version
	s.end.State = StateOpen
	return nil
}

// OpenConfirm implements channel open_confirm: requires TRYOPEN locally,
// plus proof the counterparty is OPEN.
func (m *Machine) OpenConfirm(port, channel string, proof *ics23.CommitmentProof, proofHeight lightclient.Height) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.get(port, channel)
	if !ok {
		return ErrUnknownChannel
	}
	if s.end.State != StateTryOpen {
		return ErrWrongState
	}
	conn, err := m.checkConnectionHop(s.end.ConnectionHops)
	if err != nil {
		return err
	}
	expected := ChannelEnd{
		State:        StateOpen,
		Ordering:     s.end.Ordering,
		Counterparty: ChannelCounterparty{PortID: port, ChannelID: channel},
		Version:      s.end.Version,
	}
	if err := m.verifyCounterpartyChannel(conn, s.end.Counterparty.PortID, s.end.Counterparty.ChannelID, expected, proof, proofHeight); err != nil {
		return err
	}
	s.end.State = StateOpen
	return nil
}

// CloseChannel moves an OPEN channel to CLOSED. Channels are never
// destroyed; CLOSED is terminal.
func (m *Machine) CloseChannel(port, channel string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.get(port, channel)
	if !ok {
		return ErrUnknownChannel
	}
	if s.end.State != StateOpen {
		return ErrWrongState
	}
	s.end.State = StateClosed
	return nil
}
