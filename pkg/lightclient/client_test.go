package lightclient

import (
	"crypto/ed25519"
	"testing"
	"time"

	"github.com/ibcx/tm-ibc-core/pkg/ics23"
)

// testValidator produces a single Ed25519 validator and the key needed to
// sign commits on its behalf.
func testValidator(t *testing.T, power int64) (Validator, ed25519.PrivateKey) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatal(err)
	}
	var addr [20]byte
	copy(addr[:], pub[:20])
	pk := PubKey{Algo: PubKeyAlgoEd25519, Bytes: append([]byte{}, pub...)}
	return Validator{Address: addr, PubKey: pk, VotingPower: power}, priv
}

func signHeader(t *testing.T, chainID string, height Height, blockHash [32]byte, v Validator, priv ed25519.PrivateKey, ts time.Time) CommitSig {
	t.Helper()
	msg, err := canonicalVoteBytes(chainID, height, 0, blockHash, ts)
	if err != nil {
		t.Fatal(err)
	}
	sig := ed25519.Sign(priv, msg)
	return CommitSig{ValidatorAddress: v.Address, Signature: sig, Timestamp: ts}
}

// TestCreateAndUpdate walks a create followed by one accepted update.
func TestCreateAndUpdate(t *testing.T) {
	v, priv := testValidator(t, 100)
	vs := &ValidatorSet{Validators: []Validator{v}}

	now := time.Date(2026, 1, 1, 0, 0, 10, 0, time.UTC)
	client := NewClient(func() time.Time { return now })

	height100 := Height{RevisionNumber: 0, RevisionHeight: 100}
	blockHash100 := [32]byte{1}
	commit100 := &Commit{Height: height100, Round: 0, BlockHash: blockHash100, Signatures: []CommitSig{
		signHeader(t, "test-chain", height100, blockHash100, v, priv, now),
	}}
	header100 := Header{
		ChainID:            "test-chain",
		Height:             height100,
		Time:               now,
		AppHash:            [32]byte{0xAA},
		ValidatorsHash:     validatorSetHash(vs),
		NextValidatorsHash: validatorSetHash(vs),
		ValidatorSet:       vs,
		TrustedValidators:  vs,
		Commit:             commit100,
	}

	clientID, err := client.CreateClient(CreateClientParams{
		ChainID:         "test-chain",
		TrustLevel:      DefaultTrustLevel,
		TrustPeriod:     86400 * time.Second,
		UnbondingPeriod: 1814400 * time.Second,
		MaxClockDrift:   600 * time.Second,
		ProofSpec:       ics23.IAVLProofSpec,
		InitialHeader:   header100,
	})
	if err != nil {
		t.Fatalf("create_client: %v", err)
	}

	later := now.Add(5 * time.Second)
	height101 := Height{RevisionNumber: 0, RevisionHeight: 101}
	blockHash101 := [32]byte{2}
	commit101 := &Commit{Height: height101, Round: 0, BlockHash: blockHash101, Signatures: []CommitSig{
		signHeader(t, "test-chain", height101, blockHash101, v, priv, later),
	}}
	header101 := Header{
		ChainID:            "test-chain",
		Height:             height101,
		Time:               later,
		AppHash:            [32]byte{0xBB},
		ValidatorsHash:     validatorSetHash(vs),
		NextValidatorsHash: validatorSetHash(vs),
		ValidatorSet:       vs,
		TrustedValidators:  vs,
		Commit:             commit101,
	}

	client.now = func() time.Time { return later }
	if !client.UpdateClient(clientID, header101) {
		t.Fatal("expected update_client to accept a validly signed header")
	}

	latest, ok := client.GetLatestHeight(clientID)
	if !ok || latest != height101 {
		t.Fatalf("expected latest height %s, got %s (ok=%v)", height101, latest, ok)
	}
	if _, ok := client.GetConsensusState(clientID, height100); !ok {
		t.Fatal("expected consensus state at height 100 to be retained")
	}
	if _, ok := client.GetConsensusState(clientID, height101); !ok {
		t.Fatal("expected consensus state at height 101 to be retained")
	}
}

// TestCreateClientRejectsUnsupportedAlgo: create_client must refuse any
// validator whose public key isn't Ed25519 (e.g. Secp256k1), never
// silently accept it.
func TestCreateClientRejectsUnsupportedAlgo(t *testing.T) {
	v, _ := testValidator(t, 100)
	v.PubKey = PubKey{Algo: PubKeyAlgoSecp256k1, Bytes: make([]byte, 33)}
	vs := &ValidatorSet{Validators: []Validator{v}}

	now := time.Now()
	client := NewClient(func() time.Time { return now })

	header := Header{
		ChainID:            "c",
		Height:             Height{RevisionHeight: 1},
		Time:               now,
		AppHash:            [32]byte{1},
		ValidatorsHash:     validatorSetHash(vs),
		NextValidatorsHash: validatorSetHash(vs),
		ValidatorSet:       vs,
		TrustedValidators:  vs,
	}

	_, err := client.CreateClient(CreateClientParams{
		ChainID: "c", TrustLevel: DefaultTrustLevel,
		TrustPeriod: time.Hour, UnbondingPeriod: 2 * time.Hour, MaxClockDrift: time.Minute,
		ProofSpec: ics23.IAVLProofSpec, InitialHeader: header,
	})
	if err != ErrUnsupportedValidatorAlgo {
		t.Fatalf("expected ErrUnsupportedValidatorAlgo, got %v", err)
	}
}

// TestUpdateClientRejectsInsufficientPower: a commit whose signature does
// not verify leaves the signed power short of 2/3, which must be a hard
// rejection, never lenient.
func TestUpdateClientRejectsInsufficientPower(t *testing.T) {
	v, _ := testValidator(t, 100)
	_, otherPriv := testValidator(t, 0)
	vs := &ValidatorSet{Validators: []Validator{v}}

	now := time.Now()
	client := NewClient(func() time.Time { return now })

	height1 := Height{RevisionHeight: 1}
	blockHash := [32]byte{9}
	commit1 := &Commit{Height: height1, BlockHash: blockHash, Signatures: []CommitSig{
		signHeader(t, "c", height1, blockHash, v, otherPriv, now), // wrong key, won't verify
	}}
	header1 := Header{
		ChainID: "c", Height: height1, Time: now, AppHash: [32]byte{1},
		ValidatorsHash: validatorSetHash(vs), NextValidatorsHash: validatorSetHash(vs),
		ValidatorSet: vs, TrustedValidators: vs, Commit: commit1,
	}

	clientID, err := client.CreateClient(CreateClientParams{
		ChainID: "c", TrustLevel: DefaultTrustLevel,
		TrustPeriod: time.Hour, UnbondingPeriod: 2 * time.Hour, MaxClockDrift: time.Minute,
		ProofSpec: ics23.IAVLProofSpec, InitialHeader: header1,
	})
	if err != nil {
		t.Fatalf("create_client: %v", err)
	}

	height2 := Height{RevisionHeight: 2}
	blockHash2 := [32]byte{10}
	commit2 := &Commit{Height: height2, BlockHash: blockHash2, Signatures: []CommitSig{
		{ValidatorAddress: v.Address, Signature: make([]byte, ed25519.SignatureSize)}, // garbage signature
	}}
	header2 := Header{
		ChainID: "c", Height: height2, Time: now, AppHash: [32]byte{2},
		ValidatorsHash: validatorSetHash(vs), NextValidatorsHash: validatorSetHash(vs),
		ValidatorSet: vs, TrustedValidators: vs, Commit: commit2,
	}

	before, _ := client.GetClientState(clientID)
	if client.UpdateClient(clientID, header2) {
		t.Fatal("expected update_client to reject a header with insufficient signed voting power")
	}
	after, _ := client.GetClientState(clientID)
	if before.LatestHeight != after.LatestHeight {
		t.Fatal("state must be unchanged after a rejected update")
	}
}

func TestPruneNeverRemovesLatestHeight(t *testing.T) {
	v, priv := testValidator(t, 100)
	vs := &ValidatorSet{Validators: []Validator{v}}
	now := time.Now()
	client := NewClient(func() time.Time { return now })

	height1 := Height{RevisionHeight: 1}
	blockHash := [32]byte{3}
	commit := &Commit{Height: height1, BlockHash: blockHash, Signatures: []CommitSig{
		signHeader(t, "c", height1, blockHash, v, priv, now),
	}}
	header := Header{
		ChainID: "c", Height: height1, Time: now, AppHash: [32]byte{1},
		ValidatorsHash: validatorSetHash(vs), NextValidatorsHash: validatorSetHash(vs),
		ValidatorSet: vs, TrustedValidators: vs, Commit: commit,
	}
	clientID, err := client.CreateClient(CreateClientParams{
		ChainID: "c", TrustLevel: DefaultTrustLevel,
		TrustPeriod: time.Second, UnbondingPeriod: time.Hour, MaxClockDrift: time.Minute,
		ProofSpec: ics23.IAVLProofSpec, InitialHeader: header,
	})
	if err != nil {
		t.Fatal(err)
	}

	client.now = func() time.Time { return now.Add(time.Hour) }
	if client.PruneExpiredConsensusState(clientID, height1) {
		t.Fatal("expected pruning latest_height to be refused")
	}
}
