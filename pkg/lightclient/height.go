// Copyright 2025 Certen Protocol
//
// Package lightclient implements a Tendermint/CometBFT light client:
// it tracks a remote chain's consensus by accepting signed block headers,
// enforcing trust-level and timing rules, and retaining a height-to-root
// mapping for ICS-23 proof verification.
package lightclient

import "fmt"

// Height is a (revision_number, revision_height) pair, compared
// lexicographically. The zero value (0,0) is the sentinel "no timeout".
type Height struct {
	RevisionNumber uint64
	RevisionHeight uint64
}

// ZeroHeight is the "no timeout" sentinel.
var ZeroHeight = Height{}

// IsZero reports whether h is the sentinel (0,0).
func (h Height) IsZero() bool {
	return h.RevisionNumber == 0 && h.RevisionHeight == 0
}

// LT reports whether h is strictly less than o.
func (h Height) LT(o Height) bool {
	if h.RevisionNumber != o.RevisionNumber {
		return h.RevisionNumber < o.RevisionNumber
	}
	return h.RevisionHeight < o.RevisionHeight
}

// LTE reports whether h is less than or equal to o.
func (h Height) LTE(o Height) bool {
	return h == o || h.LT(o)
}

// GT reports whether h is strictly greater than o.
func (h Height) GT(o Height) bool {
	return o.LT(h)
}

// GTE reports whether h is greater than or equal to o.
func (h Height) GTE(o Height) bool {
	return h == o || h.GT(o)
}

// String renders "revision-height", matching the IBC convention.
func (h Height) String() string {
	return fmt.Sprintf("%d-%d", h.RevisionNumber, h.RevisionHeight)
}
