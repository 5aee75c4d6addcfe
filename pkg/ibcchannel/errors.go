package ibcchannel

import "errors"

// Sentinel errors. Every guard violation leaves state unchanged.
var (
	ErrUnknownChannel          = errors.New("ibcchannel: unknown (port, channel)")
	ErrChannelNotOpen          = errors.New("ibcchannel: channel is not OPEN")
	ErrWrongState              = errors.New("ibcchannel: channel is not in the required state")
	ErrNoTimeoutSpecified      = errors.New("ibcchannel: at least one of timeout_height or timeout_timestamp must be nonzero")
	ErrWrongDestination        = errors.New("ibcchannel: packet destination does not match this channel")
	ErrPacketAlreadyTimedOut   = errors.New("ibcchannel: packet has already timed out")
	ErrProofVerificationFailed = errors.New("ibcchannel: proof verification failed")
	ErrUnexpectedSequence      = errors.New("ibcchannel: unexpected packet sequence")
	ErrReceiptAlreadyExists    = errors.New("ibcchannel: receipt already exists for this sequence")
	ErrCommitmentNotFound      = errors.New("ibcchannel: no packet commitment for this sequence")
	ErrTimeoutNotElapsed       = errors.New("ibcchannel: timeout has not elapsed")
	ErrConnectionNotOpen       = errors.New("ibcchannel: connection_hops[0] is not an OPEN connection")
)
