package lightclient

import "errors"

// Sentinel errors. create_client rejects invalid parameters with a returned
// error that the caller is expected to treat as fatal;
// every other operation is total and these errors are surfaced as a plain
// bool false to the caller.
var (
	ErrEmptyChainID              = errors.New("lightclient: chain_id must not be empty")
	ErrEmptyValidatorSet         = errors.New("lightclient: validator set must not be empty")
	ErrZeroHeight                = errors.New("lightclient: height must not be zero")
	ErrInvalidTrustLevel         = errors.New("lightclient: trust level must satisfy 0 < num <= den")
	ErrTrustPeriodTooLong        = errors.New("lightclient: trust_period must be less than unbonding_period")
	ErrZeroPeriod                = errors.New("lightclient: trust_period and unbonding_period must be nonzero")
	ErrUnsupportedValidatorAlgo  = errors.New("lightclient: validator uses an unsupported signature algorithm")
	ErrUnknownClient             = errors.New("lightclient: unknown client_id")
	ErrUnknownConsensusState     = errors.New("lightclient: no consensus state at requested height")
	ErrMalformedHeader           = errors.New("lightclient: malformed header")
	ErrWrongChainID              = errors.New("lightclient: header chain_id does not match client")
	ErrHeightNotIncreasing       = errors.New("lightclient: header height must be greater than latest trusted height")
	ErrTimeNotIncreasing         = errors.New("lightclient: header time must not precede trusted time")
	ErrExpired                   = errors.New("lightclient: trusted consensus state has expired")
	ErrClockDrift                = errors.New("lightclient: header time exceeds max clock drift")
	ErrValidatorsHashMismatch    = errors.New("lightclient: validator set hash does not match header")
	ErrTrustedValidatorsMismatch = errors.New("lightclient: trusted validators do not hash to next_validators_hash")
	ErrInsufficientVotingPower   = errors.New("lightclient: signed voting power does not exceed 2/3 of total")
	ErrInsufficientTrustOverlap  = errors.New("lightclient: trusted validator overlap below trust level")
)
