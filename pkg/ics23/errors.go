package ics23

import "errors"

// Sentinel errors for the proof verifier. The verifier is total: these are
// used internally to short-circuit verification, never
// propagated past verify_membership/verify_non_membership, which always
// return a plain bool.
var (
	ErrMalformedProof    = errors.New("ics23: malformed proof")
	ErrUnsupportedHashOp = errors.New("ics23: unsupported hash operation")
	ErrUnsupportedLength = errors.New("ics23: unsupported length operation")
	ErrKeyMismatch       = errors.New("ics23: proof key does not match")
	ErrValueMismatch     = errors.New("ics23: proof value does not match")
	ErrNeighbourOrder    = errors.New("ics23: neighbour ordering violated")
	ErrRootMismatch      = errors.New("ics23: computed root does not match expected root")
	ErrMissingNeighbour  = errors.New("ics23: at least one neighbour is required")
)
