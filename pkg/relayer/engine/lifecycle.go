// Copyright 2025 Certen Protocol
//
// Package engine owns the packet lifecycle map and drives packets from
// Detected through Relayed to a terminal Acknowledged/TimedOut/Failed
// state.
package engine

import (
	"fmt"
	"time"

	"github.com/ibcx/tm-ibc-core/pkg/ibcchannel"
)

// LifecycleState is a packet's position in the relay pipeline.
type LifecycleState string

const (
	StateDetected     LifecycleState = "detected"
	StateRelaying     LifecycleState = "relaying"
	StateRelayed      LifecycleState = "relayed"
	StateAcknowledged LifecycleState = "acknowledged"
	StateTimingOut    LifecycleState = "timing_out"
	StateTimedOut     LifecycleState = "timed_out"
	StateFailed       LifecycleState = "failed"
)

// PacketKey uniquely identifies a packet by its source-side coordinates.
type PacketKey struct {
	SourceChain   string
	SourcePort    string
	SourceChannel string
	Sequence      uint64
}

func (k PacketKey) String() string {
	return fmt.Sprintf("%s/%s/%s/%d", k.SourceChain, k.SourcePort, k.SourceChannel, k.Sequence)
}

// PacketLifecycle tracks one packet's progress through the relay pipeline.
type PacketLifecycle struct {
	Key           PacketKey
	CorrelationID string
	Packet        ibcchannel.Packet
	DestChain     string
	State         LifecycleState
	Attempts      int
	LastError     string
	DetectedAt    time.Time
	UpdatedAt     time.Time
	NextRetryAt   time.Time
}
