// Copyright 2025 Certen Protocol
//
// Header verification for the Tendermint light client: canonical vote
// encoding, validator-set hashing, and Ed25519 commit verification.
package lightclient

import (
	"bytes"
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"
)

const precommitType = 2 // SignedMsgType PRECOMMIT per Tendermint wire format

// canonicalBlockID is the subset of block_id fields signed over:
// block_id.hash is the uppercase hex of SHA-256 of the canonical block
// bytes, and parts are always the zero value for a single-part commit.
type canonicalBlockID struct {
	Hash  string             `json:"hash"`
	Parts canonicalPartsetID `json:"parts"`
}

type canonicalPartsetID struct {
	Hash  string `json:"hash"`
	Total int    `json:"total"`
}

// canonicalVote is the deterministic JSON preimage validators sign for a
// PRECOMMIT.
type canonicalVote struct {
	ChainID   string           `json:"@chain_id"`
	Type      string           `json:"@type"`
	BlockID   canonicalBlockID `json:"block_id"`
	Height    string           `json:"height"`
	Round     string           `json:"round"`
	Timestamp string           `json:"timestamp"`
	VoteType  int              `json:"type"`
}

// canonicalVoteBytes builds the exact UTF-8 byte sequence validators sign
// for the commit of (height, round, blockHash) on chainID.
func canonicalVoteBytes(chainID string, height Height, round int32, blockHash [32]byte, ts time.Time) ([]byte, error) {
	blockBytes := make([]byte, 8+32)
	binary.BigEndian.PutUint64(blockBytes[:8], height.RevisionHeight)
	copy(blockBytes[8:], blockHash[:])
	idHash := sha256.Sum256(blockBytes)

	cv := canonicalVote{
		ChainID: chainID,
		Type:    "/tendermint.types.CanonicalVote",
		BlockID: canonicalBlockID{
			Hash:  fmt.Sprintf("%X", idHash[:]),
			Parts: canonicalPartsetID{Hash: "", Total: 0},
		},
		Height:    strconv.FormatUint(height.RevisionHeight, 10),
		Round:     strconv.FormatInt(int64(round), 10),
		Timestamp: ts.UTC().Format(time.RFC3339Nano),
		VoteType:  precommitType,
	}
	return json.Marshal(cv)
}

// verifyCommitSignature checks one validator's signature over the canonical
// vote bytes using Ed25519. Any other algorithm tag fails closed: it is
// create_client's job to have already rejected non-Ed25519 validators, so
// reaching this point with one is itself a bug, not a signature to verify.
func verifyCommitSignature(pubKey PubKey, msg, sig []byte) bool {
	if pubKey.Algo != PubKeyAlgoEd25519 || len(pubKey.Bytes) != ed25519.PublicKeySize {
		return false
	}
	if len(sig) != ed25519.SignatureSize {
		return false
	}
	return ed25519.Verify(pubKey.Bytes, msg, sig)
}

// validatorSetHash sorts validators by address ascending, hashes each
// validator's canonical bytes (address, pub_key, voting_power as
// fixed-width big-endian), concatenates the per-validator SHA-256s, and
// hashes once more.
func validatorSetHash(vs *ValidatorSet) [32]byte {
	if vs == nil || len(vs.Validators) == 0 {
		return [32]byte{}
	}
	sorted := append([]Validator{}, vs.Validators...)
	sort.Slice(sorted, func(i, j int) bool {
		return bytes.Compare(sorted[i].Address[:], sorted[j].Address[:]) < 0
	})

	var concatenated bytes.Buffer
	for _, v := range sorted {
		var buf bytes.Buffer
		buf.Write(v.Address[:])
		buf.Write(v.PubKey.Bytes)
		var power [8]byte
		binary.BigEndian.PutUint64(power[:], uint64(v.VotingPower))
		buf.Write(power[:])
		h := sha256.Sum256(buf.Bytes())
		concatenated.Write(h[:])
	}
	return sha256.Sum256(concatenated.Bytes())
}

// verifyCommitVotingPower sums the voting power of validators whose
// signature is present and verifies, and requires it to exceed 2/3 of the
// total.
func verifyCommitVotingPower(vs *ValidatorSet, chainID string, commit *Commit) (signedPower int64, err error) {
	if vs == nil || commit == nil {
		return 0, ErrMalformedHeader
	}

	for _, sig := range commit.Signatures {
		if len(sig.Signature) == 0 {
			continue
		}
		v, ok := vs.byAddress(sig.ValidatorAddress)
		if !ok {
			continue
		}
		// Re-derive canonical vote bytes with this signature's timestamp,
		// since timestamp is part of the signed preimage.
		signed, err := canonicalVoteBytes(chainID, commit.Height, commit.Round, commit.BlockHash, sig.Timestamp)
		if err != nil {
			return 0, err
		}
		if verifyCommitSignature(v.PubKey, signed, sig.Signature) {
			signedPower += v.VotingPower
		}
	}

	total := vs.TotalVotingPower()
	if total == 0 || signedPower*3 <= total*2 {
		return signedPower, ErrInsufficientVotingPower
	}
	return signedPower, nil
}

// verifyBisectionOverlap enforces the bisection rule: the voting power of
// the previouslyTrusted validators that also appear in headerTrusted must be
// at least trust_level * previouslyTrusted's total power, counted on the
// previouslyTrusted side. UpdateClient passes header.TrustedValidators
// (already bound to the trusted NextValidatorsHash) as previouslyTrusted and
// header.ValidatorSet as headerTrusted.
func verifyBisectionOverlap(trustLevel Fraction, previouslyTrusted, headerTrusted *ValidatorSet) error {
	if previouslyTrusted == nil || headerTrusted == nil {
		return ErrMalformedHeader
	}
	prevTotal := previouslyTrusted.TotalVotingPower()
	required := trustLevel.Of(prevTotal)

	var overlap int64
	for _, v := range previouslyTrusted.Validators {
		if _, ok := headerTrusted.byAddress(v.Address); ok {
			overlap += v.VotingPower
		}
	}
	if overlap < required {
		return ErrInsufficientTrustOverlap
	}
	return nil
}

// hexRoot renders a commitment root for log lines; never part of a
// verification decision.
func hexRoot(r [32]byte) string {
	return hex.EncodeToString(r[:])
}
