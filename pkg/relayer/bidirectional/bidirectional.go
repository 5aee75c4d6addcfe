// Copyright 2025 Certen Protocol
//
// Package bidirectional enforces a per-channel relay window and, for
// ORDERED channels, a bound on how far a new sequence may run ahead of the
// lowest unacked in-flight sequence (at most the window, or one when the
// window is unbounded), plus batching of ready sequences.
package bidirectional

import (
	"sort"
	"sync"

	"github.com/ibcx/tm-ibc-core/pkg/ibcchannel"
)

// ChannelID identifies a channel for windowing purposes.
type ChannelID struct {
	Port    string
	Channel string
}

type channelState struct {
	ordering      ibcchannel.Ordering
	window        int
	inFlight      map[uint64]struct{}
	lowestUnacked uint64 // ORDERED only: smallest sequence not yet acked
	hasLowest     bool
}

// Manager tracks, per channel, which sequences are currently "in flight"
// (submitted but not yet acked/timed-out) and decides whether a new
// sequence may be submitted now.
type Manager struct {
	mu       sync.Mutex
	channels map[ChannelID]*channelState
}

// New creates an empty Manager.
func New() *Manager {
	return &Manager{channels: make(map[ChannelID]*channelState)}
}

// Register declares a channel's ordering and window size. Window <= 0 means
// unbounded.
func (m *Manager) Register(id ChannelID, ordering ibcchannel.Ordering, window int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.channels[id] = &channelState{ordering: ordering, window: window, inFlight: make(map[uint64]struct{})}
}

// CanSubmit reports whether sequence may be submitted now: it must not
// already be in flight, must respect the channel's window, and, for
// ORDERED channels, must not get ahead of the lowest unacked sequence by
// more than the window (by more than one when the window is unbounded).
func (m *Manager) CanSubmit(id ChannelID, sequence uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.channels[id]
	if !ok {
		return true
	}
	if _, inFlight := s.inFlight[sequence]; inFlight {
		return false
	}
	if s.window > 0 && len(s.inFlight) >= s.window {
		return false
	}
	if s.ordering == ibcchannel.Ordered && s.hasLowest {
		if sequence > s.lowestUnacked && int(sequence-s.lowestUnacked) > maxInt(s.window, 1) {
			return false
		}
	}
	return true
}

// MarkSubmitted records sequence as in flight on id.
func (m *Manager) MarkSubmitted(id ChannelID, sequence uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.channels[id]
	if !ok {
		return
	}
	s.inFlight[sequence] = struct{}{}
	if s.ordering == ibcchannel.Ordered && (!s.hasLowest || sequence < s.lowestUnacked) {
		s.lowestUnacked = sequence
		s.hasLowest = true
	}
}

// MarkResolved removes sequence from in-flight tracking (ack or timeout)
// and, for ORDERED channels, advances the lowest-unacked watermark.
func (m *Manager) MarkResolved(id ChannelID, sequence uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.channels[id]
	if !ok {
		return
	}
	delete(s.inFlight, sequence)
	if s.ordering == ibcchannel.Ordered && s.hasLowest && sequence == s.lowestUnacked {
		s.hasLowest = false
		for seq := range s.inFlight {
			if !s.hasLowest || seq < s.lowestUnacked {
				s.lowestUnacked = seq
				s.hasLowest = true
			}
		}
	}
}

// Window describes the current in-flight interval [low, high] for an
// ORDERED channel.
func (m *Manager) Window(id ChannelID) (low, high uint64, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, found := m.channels[id]
	if !found || len(s.inFlight) == 0 {
		return 0, 0, false
	}
	seqs := make([]uint64, 0, len(s.inFlight))
	for seq := range s.inFlight {
		seqs = append(seqs, seq)
	}
	sort.Slice(seqs, func(i, j int) bool { return seqs[i] < seqs[j] })
	return seqs[0], seqs[len(seqs)-1], true
}

// Batch returns up to n submittable sequences from candidates, in
// ascending order, respecting CanSubmit and the channel's window. Sequences
// chosen earlier in the batch count against the window for sequences
// chosen later, as if each were marked submitted in turn.
func (m *Manager) Batch(id ChannelID, candidates []uint64, n int) []uint64 {
	sorted := append([]uint64(nil), candidates...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	var batch []uint64
	for _, seq := range sorted {
		if len(batch) >= n {
			break
		}
		if !m.CanSubmit(id, seq) {
			continue
		}
		windowCap, inFlight := m.windowFor(id)
		if windowCap > 0 && inFlight+len(batch) >= windowCap {
			break
		}
		batch = append(batch, seq)
	}
	return batch
}

func (m *Manager) windowFor(id ChannelID) (window, inFlight int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.channels[id]
	if !ok {
		return 0, 0
	}
	return s.window, len(s.inFlight)
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
