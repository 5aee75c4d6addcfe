package ibcconnection

import "errors"

// Sentinel errors. Any guard violation leaves connection state unchanged.
var (
	ErrUnknownConnection       = errors.New("ibcconnection: unknown connection_id")
	ErrUnknownClient           = errors.New("ibcconnection: unknown client_id")
	ErrCounterpartyAlreadySet  = errors.New("ibcconnection: counterparty connection_id already set")
	ErrWrongState              = errors.New("ibcconnection: connection is not in the required state")
	ErrProofVerificationFailed = errors.New("ibcconnection: counterparty proof verification failed")
	ErrVersionNotSupported     = errors.New("ibcconnection: version not in local version set")
	ErrDelayPeriodNotElapsed   = errors.New("ibcconnection: delay period has not elapsed")
)
