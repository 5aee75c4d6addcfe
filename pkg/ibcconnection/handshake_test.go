package ibcconnection

import (
	"bytes"
	"testing"
	"time"

	"github.com/ibcx/tm-ibc-core/pkg/ics23"
	"github.com/ibcx/tm-ibc-core/pkg/lightclient"
)

// alwaysVerifies is a stub ClientReader used by
// TestOpenAckRejectsUnverifiedProof and TestOpenAckWaitsForDelayPeriod, where
// proof content is irrelevant to the behavior under test.
type alwaysVerifies bool

func (a alwaysVerifies) VerifyMembership(string, lightclient.Height, []byte, []byte, *ics23.CommitmentProof) bool {
	return bool(a)
}

// existenceProof wraps (key, value) in a CommitmentProof shaped so
// membershipStub can tell a genuine proof of that exact key/value from a
// forged one, without needing a real Merkle tree; full ICS-23 path
// verification is covered by pkg/ics23's own test suite.
func existenceProof(key, value []byte) *ics23.CommitmentProof {
	return &ics23.CommitmentProof{Existence: &ics23.ExistenceProof{Key: key, Value: value}}
}

// membershipStub is a ClientReader that verifies membership the way
// pkg/ics23 ultimately does: proof.Existence must carry exactly the queried
// key and value. This is strict enough that a forged client-state or
// consensus-state proof (wrong value, or no Existence at all) is rejected
// independently of whether the connection-end proof verifies.
type membershipStub struct{}

func (membershipStub) VerifyMembership(clientID string, height lightclient.Height, key, value []byte, proof *ics23.CommitmentProof) bool {
	if proof == nil || proof.Existence == nil {
		return false
	}
	return bytes.Equal(proof.Existence.Key, key) && bytes.Equal(proof.Existence.Value, value)
}

func TestConnectionHandshakeHappyPath(t *testing.T) {
	m := NewMachine(nil)

	idA, err := m.OpenInit("07-tendermint-0", []byte("ibc"), "07-tendermint-1", []string{"1.0"}, 0)
	if err != nil {
		t.Fatalf("open_init: %v", err)
	}
	conn, _ := m.Get(idA)
	if conn.State != StateInit {
		t.Fatalf("expected INIT after open_init, got %s", conn.State)
	}

	height := lightclient.Height{RevisionNumber: 0, RevisionHeight: 100}
	clientStateValue := []byte("client-state-bytes")
	consensusStateValue := []byte("consensus-state-bytes")

	expectedInit := &ConnectionEnd{State: StateInit, ClientID: "07-tendermint-1", Counterparty: Counterparty{ConnectionID: ""}}
	tryProofs := Proofs{
		ConnectionProof:     existenceProof(connectionKey(idA), encodeConnectionEnd(*expectedInit)),
		ClientStateProof:    existenceProof(clientStateKey("07-tendermint-0"), clientStateValue),
		ConsensusStateProof: existenceProof(consensusStateKey("07-tendermint-0", height), consensusStateValue),
		ClientStateValue:    clientStateValue,
		ConsensusStateValue: consensusStateValue,
		ProofHeight:         height,
	}

	idB, err := m.OpenTry(membershipStub{}, "", Counterparty{ClientID: "07-tendermint-0", ConnectionID: idA}, "1.0", tryProofs, "07-tendermint-1", expectedInit)
	if err != nil {
		t.Fatalf("open_try: %v", err)
	}
	connB, _ := m.Get(idB)
	if connB.State != StateTryOpen {
		t.Fatalf("expected TRYOPEN after open_try, got %s", connB.State)
	}

	expectedTry := &ConnectionEnd{State: StateTryOpen, ClientID: "07-tendermint-0", Counterparty: Counterparty{ConnectionID: idA}}
	ackProofs := Proofs{
		ConnectionProof:     existenceProof(connectionKey(idB), encodeConnectionEnd(*expectedTry)),
		ClientStateProof:    existenceProof(clientStateKey("07-tendermint-1"), clientStateValue),
		ConsensusStateProof: existenceProof(consensusStateKey("07-tendermint-1", height), consensusStateValue),
		ClientStateValue:    clientStateValue,
		ConsensusStateValue: consensusStateValue,
		ProofHeight:         height,
	}
	if err := m.OpenAck(membershipStub{}, idA, idB, "1.0", ackProofs, expectedTry); err != nil {
		t.Fatalf("open_ack: %v", err)
	}
	connA, _ := m.Get(idA)
	if connA.State != StateOpen {
		t.Fatalf("expected OPEN after open_ack, got %s", connA.State)
	}
	if len(connA.Versions) != 1 || connA.Versions[0] != "1.0" {
		t.Fatalf("expected versions narrowed to [1.0], got %v", connA.Versions)
	}

	expectedOpen := &ConnectionEnd{State: StateOpen, ClientID: "07-tendermint-0", Counterparty: Counterparty{ConnectionID: idB}}
	confirmProofs := Proofs{
		ConnectionProof:     existenceProof(connectionKey(idA), encodeConnectionEnd(*expectedOpen)),
		ClientStateProof:    existenceProof(clientStateKey("07-tendermint-0"), clientStateValue),
		ConsensusStateProof: existenceProof(consensusStateKey("07-tendermint-0", height), consensusStateValue),
		ClientStateValue:    clientStateValue,
		ConsensusStateValue: consensusStateValue,
		ProofHeight:         height,
	}
	if err := m.OpenConfirm(membershipStub{}, idB, confirmProofs, expectedOpen); err != nil {
		t.Fatalf("open_confirm: %v", err)
	}
	connB, _ = m.Get(idB)
	if connB.State != StateOpen {
		t.Fatalf("expected OPEN after open_confirm, got %s", connB.State)
	}
}

func TestOpenAckRejectsUnverifiedProof(t *testing.T) {
	m := NewMachine(nil)
	idA, _ := m.OpenInit("07-tendermint-0", nil, "07-tendermint-1", []string{"1.0"}, 0)
	proofs := Proofs{ConnectionProof: &ics23.CommitmentProof{}, ClientStateProof: &ics23.CommitmentProof{}, ConsensusStateProof: &ics23.CommitmentProof{}}
	expected := &ConnectionEnd{State: StateTryOpen, ClientID: "07-tendermint-0"}

	if err := m.OpenAck(alwaysVerifies(false), idA, "connection-9", "1.0", proofs, expected); err == nil {
		t.Fatal("expected open_ack to fail when the counterparty proof does not verify")
	}
	conn, _ := m.Get(idA)
	if conn.State != StateInit {
		t.Fatal("state must be unchanged after a rejected open_ack")
	}
}

// TestOpenTryRejectsForgedClientStateProof covers the case a
// nil-check left open: a connection-end proof that verifies cleanly must
// not let a forged client-state proof (one committing to a different value
// than what's claimed) slip through.
func TestOpenTryRejectsForgedClientStateProof(t *testing.T) {
	m := NewMachine(nil)
	height := lightclient.Height{RevisionHeight: 1}
	expected := &ConnectionEnd{State: StateInit, ClientID: "07-tendermint-1"}

	proofs := Proofs{
		ConnectionProof:     existenceProof(connectionKey("connection-0"), encodeConnectionEnd(*expected)),
		ClientStateProof:    existenceProof(clientStateKey("07-tendermint-0"), []byte("real-client-state")),
		ConsensusStateProof: existenceProof(consensusStateKey("07-tendermint-0", height), []byte("real-consensus-state")),
		ClientStateValue:    []byte("forged-client-state"),
		ConsensusStateValue: []byte("real-consensus-state"),
		ProofHeight:         height,
	}

	if _, err := m.OpenTry(membershipStub{}, "", Counterparty{ClientID: "07-tendermint-0", ConnectionID: "connection-0"}, "1.0", proofs, "07-tendermint-1", expected); err != ErrProofVerificationFailed {
		t.Fatalf("expected open_try to reject a forged client-state proof, got %v", err)
	}
}

// TestOpenTryRejectsForgedConsensusStateProof is the consensus-state analog
// of TestOpenTryRejectsForgedClientStateProof.
func TestOpenTryRejectsForgedConsensusStateProof(t *testing.T) {
	m := NewMachine(nil)
	height := lightclient.Height{RevisionHeight: 1}
	expected := &ConnectionEnd{State: StateInit, ClientID: "07-tendermint-1"}

	proofs := Proofs{
		ConnectionProof:     existenceProof(connectionKey("connection-0"), encodeConnectionEnd(*expected)),
		ClientStateProof:    existenceProof(clientStateKey("07-tendermint-0"), []byte("real-client-state")),
		ConsensusStateProof: existenceProof(consensusStateKey("07-tendermint-0", height), []byte("real-consensus-state")),
		ClientStateValue:    []byte("real-client-state"),
		ConsensusStateValue: []byte("forged-consensus-state"),
		ProofHeight:         height,
	}

	if _, err := m.OpenTry(membershipStub{}, "", Counterparty{ClientID: "07-tendermint-0", ConnectionID: "connection-0"}, "1.0", proofs, "07-tendermint-1", expected); err != ErrProofVerificationFailed {
		t.Fatalf("expected open_try to reject a forged consensus-state proof, got %v", err)
	}
}

func TestOpenAckWaitsForDelayPeriod(t *testing.T) {
	start := time.Unix(5000, 0)
	now := start
	m := NewMachine(func() time.Time { return now })

	idA, err := m.OpenInit("07-tendermint-0", nil, "07-tendermint-1", []string{"1.0"}, 10)
	if err != nil {
		t.Fatal(err)
	}
	proofs := Proofs{ProofHeight: lightclient.Height{RevisionHeight: 42}}
	expected := &ConnectionEnd{State: StateTryOpen, ClientID: "07-tendermint-1"}

	if err := m.OpenAck(alwaysVerifies(true), idA, "connection-7", "1.0", proofs, expected); err != ErrDelayPeriodNotElapsed {
		t.Fatalf("expected ErrDelayPeriodNotElapsed before the height was held long enough, got %v", err)
	}

	m.ObserveHeight(proofs.ProofHeight.String())
	now = start.Add(11 * time.Second)
	if err := m.OpenAck(alwaysVerifies(true), idA, "connection-7", "1.0", proofs, expected); err != nil {
		t.Fatalf("expected open_ack to succeed once the delay elapsed, got %v", err)
	}
	conn, _ := m.Get(idA)
	if conn.State != StateOpen || conn.Counterparty.ConnectionID != "connection-7" {
		t.Fatalf("expected OPEN with counterparty connection-7, got %+v", conn)
	}
}

func TestDelayPeriodElapsed(t *testing.T) {
	start := time.Unix(1000, 0)
	now := start
	m := NewMachine(func() time.Time { return now })

	m.ObserveHeight("0-100")
	if m.delayElapsed("0-100", 5*time.Second) {
		t.Fatal("expected delay not yet elapsed")
	}
	now = start.Add(6 * time.Second)
	if !m.delayElapsed("0-100", 5*time.Second) {
		t.Fatal("expected delay to have elapsed")
	}
}
