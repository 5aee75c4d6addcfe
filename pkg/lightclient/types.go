package lightclient

import "time"

// PubKeyAlgo identifies a validator's public-key algorithm. Secp256k1
// validators are representable but not verifiable; see PubKey.
type PubKeyAlgo uint8

const (
	PubKeyAlgoEd25519 PubKeyAlgo = iota
	PubKeyAlgoSecp256k1
)

// PubKey is a validator's tagged public key. Tagging the algorithm lets
// create_client construct a Secp256k1 validator and then hard-reject it,
// rather than having no representation for an unsupported algorithm to
// reject in the first place.
type PubKey struct {
	Algo  PubKeyAlgo
	Bytes []byte
}

// Validator is a single Tendermint/CometBFT validator. Address is derived
// from PubKey (see header.go); VotingPower is that validator's weight in
// the set.
type Validator struct {
	Address     [20]byte
	PubKey      PubKey
	VotingPower int64
}

// ValidatorSet is an ordered collection of validators with convenience
// helpers for hashing and total-power computation.
type ValidatorSet struct {
	Validators []Validator
}

// TotalVotingPower sums VotingPower across every validator in the set.
func (vs *ValidatorSet) TotalVotingPower() int64 {
	var total int64
	for _, v := range vs.Validators {
		total += v.VotingPower
	}
	return total
}

// byAddress looks up a validator by address, returning (validator, true) or
// the zero value and false.
func (vs *ValidatorSet) byAddress(addr [20]byte) (Validator, bool) {
	for _, v := range vs.Validators {
		if v.Address == addr {
			return v, true
		}
	}
	return Validator{}, false
}

// CommitSig is one validator's (possibly absent) signature over a commit.
// A zero-length Signature means the validator did not sign this commit.
type CommitSig struct {
	ValidatorAddress [20]byte
	Signature        []byte
	Timestamp        time.Time
}

// Commit is the aggregate of validator signatures for a block at a height.
type Commit struct {
	Height     Height
	Round      int32
	BlockHash  [32]byte
	Signatures []CommitSig
}

// Header is a signed block header as accepted by update_client. ValidatorSet
// is the set that produced Commit; NextValidatorsHash binds the set that
// must sign the *next* header; TrustedValidators is the validator set the
// header claims was previously trusted, used for the bisection overlap
// check.
type Header struct {
	ChainID            string
	Height             Height
	Time               time.Time
	AppHash            [32]byte
	ValidatorsHash     [32]byte
	NextValidatorsHash [32]byte
	ValidatorSet       *ValidatorSet
	TrustedValidators  *ValidatorSet
	Commit             *Commit
}
