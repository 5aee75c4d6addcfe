// Copyright 2025 Certen Protocol
//
// The packet lifecycle calls. Each receive/acknowledge/timeout call
// verifies its ICS-23 proof against the light client tracking the
// counterparty chain before touching any channel state.
package ibcchannel

import (
	"encoding/binary"

	"github.com/ibcx/tm-ibc-core/pkg/ics23"
	"github.com/ibcx/tm-ibc-core/pkg/lightclient"
)

// SendPacket implements send_packet, returning the assigned sequence.
func (m *Machine) SendPacket(srcPort, srcChannel string, timeoutHeight lightclient.Height, timeoutTimestamp uint64, data []byte) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.get(srcPort, srcChannel)
	if !ok {
		return 0, ErrUnknownChannel
	}
	if s.end.State != StateOpen {
		return 0, ErrChannelNotOpen
	}
	if timeoutHeight.IsZero() && timeoutTimestamp == 0 {
		return 0, ErrNoTimeoutSpecified
	}

	sequence := s.nextSequenceSend
	s.nextSequenceSend++

	p := Packet{
		Sequence:         sequence,
		SrcPort:          srcPort,
		SrcChannel:       srcChannel,
		DstPort:          s.end.Counterparty.PortID,
		DstChannel:       s.end.Counterparty.ChannelID,
		Data:             data,
		TimeoutHeight:    timeoutHeight,
		TimeoutTimestamp: timeoutTimestamp,
	}
	s.packetCommitments[sequence] = commitPacket(p)

	m.sink.Emit(Event{Type: EventSendPacket, Packet: p})
	return sequence, nil
}

func (m *Machine) notElapsed(p Packet) bool {
	if m.now == nil {
		return true
	}
	height, unixNano := m.now()
	if !p.TimeoutHeight.IsZero() && !height.LT(p.TimeoutHeight) {
		return false
	}
	if p.TimeoutTimestamp != 0 && unixNano >= p.TimeoutTimestamp {
		return false
	}
	return true
}

// RecvPacket implements recv_packet: the proof must show, at proofHeight on
// the source chain, a commitment under the source's commitment path equal
// to this packet's expected commitment.
func (m *Machine) RecvPacket(p Packet, proof *ics23.CommitmentProof, proofHeight lightclient.Height) (Acknowledgement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.get(p.DstPort, p.DstChannel)
	if !ok {
		return Acknowledgement{}, ErrUnknownChannel
	}
	if s.end.State != StateOpen {
		return Acknowledgement{}, ErrChannelNotOpen
	}
	if !m.notElapsed(p) {
		return Acknowledgement{}, ErrPacketAlreadyTimedOut
	}

	conn, err := m.checkConnectionHop(s.end.ConnectionHops)
	if err != nil {
		return Acknowledgement{}, err
	}
	if m.client == nil {
		return Acknowledgement{}, ErrProofVerificationFailed
	}
	commitment := commitPacket(p)
	if !m.client.VerifyMembership(conn.ClientID, proofHeight, commitmentKey(p.SrcPort, p.SrcChannel, p.Sequence), commitment[:], proof) {
		return Acknowledgement{}, ErrProofVerificationFailed
	}

	switch s.end.Ordering {
	case Ordered:
		if p.Sequence != s.nextSequenceRecv {
			return Acknowledgement{}, ErrUnexpectedSequence
		}
		s.nextSequenceRecv++
	default:
		if _, exists := s.packetReceipts[p.Sequence]; exists {
			return Acknowledgement{}, ErrReceiptAlreadyExists
		}
		s.packetReceipts[p.Sequence] = struct{}{}
	}

	var ack Acknowledgement
	if m.app != nil {
		ack = m.app.OnRecvPacket(p)
	}
	ackBytes := EncodeAcknowledgement(ack)
	s.packetAcks[p.Sequence] = hashAck(ackBytes)

	m.sink.Emit(Event{Type: EventRecvPacket, Packet: p})
	m.sink.Emit(Event{Type: EventWriteAcknowledgement, Packet: p, Ack: ackBytes})
	return ack, nil
}

// AcknowledgePacket implements acknowledge_packet: the proof must show the
// counterparty stores hash(ack_bytes) under the ack path for p.Sequence at
// proofHeight.
func (m *Machine) AcknowledgePacket(p Packet, ack Acknowledgement, proof *ics23.CommitmentProof, proofHeight lightclient.Height) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.get(p.SrcPort, p.SrcChannel)
	if !ok {
		return ErrUnknownChannel
	}
	if _, exists := s.packetCommitments[p.Sequence]; !exists {
		return ErrCommitmentNotFound
	}

	conn, err := m.checkConnectionHop(s.end.ConnectionHops)
	if err != nil {
		return err
	}
	if m.client == nil {
		return ErrProofVerificationFailed
	}
	expected := hashAck(EncodeAcknowledgement(ack))
	if !m.client.VerifyMembership(conn.ClientID, proofHeight, ackKey(p.DstPort, p.DstChannel, p.Sequence), expected[:], proof) {
		return ErrProofVerificationFailed
	}

	if s.end.Ordering == Ordered {
		if p.Sequence != s.nextSequenceAck {
			return ErrUnexpectedSequence
		}
		s.nextSequenceAck++
	}

	delete(s.packetCommitments, p.Sequence)

	if m.app != nil {
		m.app.OnAcknowledgementPacket(p, ack)
	}
	m.sink.Emit(Event{Type: EventAcknowledgePacket, Packet: p, Ack: EncodeAcknowledgement(ack)})
	return nil
}

// TimeoutPacket implements timeout_packet. For an UNORDERED channel the
// proof is a non-membership proof that no receipt exists at the
// counterparty; for ORDERED it is a membership proof of the counterparty's
// next_sequence_recv, which must still be at or below p.Sequence. The
// timeout itself must have elapsed at proofHeight: either the proof height
// has reached p.TimeoutHeight, or the counterparty's consensus timestamp at
// proofHeight has reached p.TimeoutTimestamp.
func (m *Machine) TimeoutPacket(p Packet, proof *ics23.CommitmentProof, proofHeight lightclient.Height, nextSequenceRecv uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.get(p.SrcPort, p.SrcChannel)
	if !ok {
		return ErrUnknownChannel
	}
	if _, exists := s.packetCommitments[p.Sequence]; !exists {
		return ErrCommitmentNotFound
	}

	conn, err := m.checkConnectionHop(s.end.ConnectionHops)
	if err != nil {
		return err
	}
	if m.client == nil {
		return ErrProofVerificationFailed
	}

	if s.end.Ordering == Ordered {
		if nextSequenceRecv > p.Sequence {
			return ErrTimeoutNotElapsed
		}
		var seqValue [8]byte
		binary.BigEndian.PutUint64(seqValue[:], nextSequenceRecv)
		if !m.client.VerifyMembership(conn.ClientID, proofHeight, nextSequenceRecvKey(p.DstPort, p.DstChannel), seqValue[:], proof) {
			return ErrProofVerificationFailed
		}
	} else {
		if !m.client.VerifyNonMembership(conn.ClientID, proofHeight, receiptKey(p.DstPort, p.DstChannel, p.Sequence), proof) {
			return ErrProofVerificationFailed
		}
	}

	heightElapsed := !p.TimeoutHeight.IsZero() && proofHeight.GTE(p.TimeoutHeight)
	timeElapsed := false
	if p.TimeoutTimestamp != 0 {
		if cs, ok := m.client.GetConsensusState(conn.ClientID, proofHeight); ok {
			timeElapsed = uint64(cs.Timestamp.UnixNano()) >= p.TimeoutTimestamp
		}
	}
	if !heightElapsed && !timeElapsed {
		return ErrTimeoutNotElapsed
	}

	delete(s.packetCommitments, p.Sequence)

	if m.app != nil {
		m.app.OnTimeoutPacket(p)
	}
	m.sink.Emit(Event{Type: EventTimeoutPacket, Packet: p})
	return nil
}
