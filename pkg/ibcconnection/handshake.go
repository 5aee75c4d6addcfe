// Copyright 2025 Certen Protocol
//
// The four ICS-03 handshake calls. Guard violations leave state
// unchanged and return a sentinel error; no panics.
package ibcconnection

import (
	"time"

	"github.com/ibcx/tm-ibc-core/pkg/lightclient"
)

func secondsToDuration(seconds int64) time.Duration {
	return time.Duration(seconds) * time.Second
}

// storage keys follow the lowercase, slash-separated IBC path convention.
func connectionKey(connectionID string) []byte {
	return []byte("connections/" + connectionID)
}

// clientStateKey and consensusStateKey are the counterparty-side storage
// paths open_try/open_ack/open_confirm verify the counterparty's
// client-state and consensus-state proofs against.
func clientStateKey(clientID string) []byte {
	return []byte("clients/" + clientID + "/clientState")
}

func consensusStateKey(clientID string, height lightclient.Height) []byte {
	return []byte("clients/" + clientID + "/consensusStates/" + height.String())
}

// OpenInit implements open_init: counterparty.connection_id must be empty.
func (m *Machine) OpenInit(clientID string, counterpartyPrefix []byte, counterpartyClientID string, versions []string, delaySeconds int64) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextConnectionID()
	m.connections[id] = &ConnectionEnd{
		State:    StateInit,
		ClientID: clientID,
		Counterparty: Counterparty{
			ClientID:         counterpartyClientID,
			ConnectionID:     "",
			CommitmentPrefix: counterpartyPrefix,
		},
		Versions:    versions,
		DelayPeriod: secondsToDuration(delaySeconds),
	}
	return id, nil
}

// OpenTry implements open_try: the counterparty connection proof (an INIT
// end stored under connections/{counterparty.ConnectionID}, referencing our
// client_id), its client-state proof, and its consensus-state proof at our
// expected height must all verify against the local light client's root for
// the counterparty's client. prevID, if non-empty, reuses an existing
// connection_id created by a racing open_init; otherwise a new id is
// assigned.
func (m *Machine) OpenTry(client ClientReader, prevID string, counterparty Counterparty, version string, proofs Proofs, localClientID string, expectedCounterpartyConnEnd *ConnectionEnd) (string, error) {
	if err := verifyCounterpartyConnection(client, counterparty.ClientID, counterparty.ConnectionID, proofs, expectedCounterpartyConnEnd); err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var id string
	if prevID != "" {
		if existing, ok := m.connections[prevID]; ok {
			existing.State = StateTryOpen
			existing.Counterparty = counterparty
			existing.Versions = []string{version}
			return prevID, nil
		}
		id = prevID
	} else {
		id = m.nextConnectionID()
	}

	m.connections[id] = &ConnectionEnd{
		State:        StateTryOpen,
		ClientID:     localClientID,
		Counterparty: counterparty,
		Versions:     []string{version},
		DelayPeriod:  0,
	}
	return id, nil
}

// OpenAck implements open_ack: requires INIT, proofs of the counterparty's
// TRYOPEN state referencing our connection_id, and the negotiated version
// narrowed to the local version set.
func (m *Machine) OpenAck(client ClientReader, connectionID, counterpartyConnID, version string, proofs Proofs, expectedCounterpartyConnEnd *ConnectionEnd) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	conn, ok := m.connections[connectionID]
	if !ok {
		return ErrUnknownConnection
	}
	if conn.State != StateInit {
		return ErrWrongState
	}
	if !containsVersion(conn.Versions, version) {
		return ErrVersionNotSupported
	}
	if conn.DelayPeriod > 0 && !m.delayElapsed(proofs.ProofHeight.String(), conn.DelayPeriod) {
		return ErrDelayPeriodNotElapsed
	}
	if err := verifyCounterpartyConnection(client, conn.Counterparty.ClientID, counterpartyConnID, proofs, expectedCounterpartyConnEnd); err != nil {
		return err
	}

	conn.Counterparty.ConnectionID = counterpartyConnID
	conn.Versions = []string{version}
	conn.State = StateOpen
	return nil
}

// OpenConfirm implements open_confirm: requires TRYOPEN plus proof the
// counterparty is OPEN.
func (m *Machine) OpenConfirm(client ClientReader, connectionID string, proofs Proofs, expectedCounterpartyConnEnd *ConnectionEnd) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	conn, ok := m.connections[connectionID]
	if !ok {
		return ErrUnknownConnection
	}
	if conn.State != StateTryOpen {
		return ErrWrongState
	}
	if conn.DelayPeriod > 0 && !m.delayElapsed(proofs.ProofHeight.String(), conn.DelayPeriod) {
		return ErrDelayPeriodNotElapsed
	}
	if err := verifyCounterpartyConnection(client, conn.Counterparty.ClientID, conn.Counterparty.ConnectionID, proofs, expectedCounterpartyConnEnd); err != nil {
		return err
	}
	conn.State = StateOpen
	return nil
}

// verifyCounterpartyConnection checks all three required proofs, the
// connection end, the counterparty's client state, and its consensus state
// at ProofHeight, against the local light client's root for the
// counterparty's client_id. The connection end lives under the
// counterparty's connection_id, not its client_id. Every proof must pass
// client.VerifyMembership; a missing or forged proof fails the whole step.
func verifyCounterpartyConnection(client ClientReader, counterpartyClientID, counterpartyConnID string, proofs Proofs, expected *ConnectionEnd) error {
	if expected == nil {
		return ErrProofVerificationFailed
	}
	encoded := encodeConnectionEnd(*expected)

	if !client.VerifyMembership(counterpartyClientID, proofs.ProofHeight, connectionKey(counterpartyConnID), encoded, proofs.ConnectionProof) {
		return ErrProofVerificationFailed
	}
	if !client.VerifyMembership(counterpartyClientID, proofs.ProofHeight, clientStateKey(counterpartyClientID), proofs.ClientStateValue, proofs.ClientStateProof) {
		return ErrProofVerificationFailed
	}
	if !client.VerifyMembership(counterpartyClientID, proofs.ProofHeight, consensusStateKey(counterpartyClientID, proofs.ProofHeight), proofs.ConsensusStateValue, proofs.ConsensusStateProof) {
		return ErrProofVerificationFailed
	}
	return nil
}

func containsVersion(versions []string, v string) bool {
	for _, existing := range versions {
		if existing == v {
			return true
		}
	}
	return false
}

// encodeConnectionEnd is a small deterministic encoding used purely as the
// "value" side of a membership proof; the wire format itself is opaque to
// this layer.
func encodeConnectionEnd(c ConnectionEnd) []byte {
	return []byte(c.State.String() + "|" + c.ClientID + "|" + c.Counterparty.ConnectionID)
}

