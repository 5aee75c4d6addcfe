package bidirectional

import (
	"testing"

	"github.com/ibcx/tm-ibc-core/pkg/ibcchannel"
)

func TestStrictOrderedWindowIsAnInterval(t *testing.T) {
	// in-flight sequences form a bounded interval on a strict channel.
	m := New()
	id := ChannelID{Port: "transfer", Channel: "channel-0"}
	m.Register(id, ibcchannel.Ordered, 3)

	for _, seq := range []uint64{1, 2, 3} {
		if !m.CanSubmit(id, seq) {
			t.Fatalf("expected sequence %d to be submittable within window", seq)
		}
		m.MarkSubmitted(id, seq)
	}

	if m.CanSubmit(id, 4) {
		t.Fatal("expected sequence 4 to be blocked: window is full")
	}

	low, high, ok := m.Window(id)
	if !ok || low != 1 || high != 3 {
		t.Fatalf("expected window [1,3], got [%d,%d] (ok=%v)", low, high, ok)
	}

	m.MarkResolved(id, 1)
	if !m.CanSubmit(id, 4) {
		t.Fatal("expected sequence 4 to become submittable after sequence 1 resolves")
	}
}

func TestUnorderedChannelHasNoStrictSequencing(t *testing.T) {
	m := New()
	id := ChannelID{Port: "transfer", Channel: "channel-1"}
	m.Register(id, ibcchannel.Unordered, 0)

	for _, seq := range []uint64{5, 9, 100} {
		if !m.CanSubmit(id, seq) {
			t.Fatalf("expected unordered channel to allow out-of-order sequence %d", seq)
		}
		m.MarkSubmitted(id, seq)
	}
}

func TestBatchRespectsWindow(t *testing.T) {
	m := New()
	id := ChannelID{Port: "transfer", Channel: "channel-0"}
	m.Register(id, ibcchannel.Ordered, 2)

	batch := m.Batch(id, []uint64{3, 1, 2}, 5)
	if len(batch) != 2 || batch[0] != 1 || batch[1] != 2 {
		t.Fatalf("expected batch [1,2] capped by window=2, got %v", batch)
	}
}
