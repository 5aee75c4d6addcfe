package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ibcx/tm-ibc-core/pkg/ibcchannel"
	"github.com/ibcx/tm-ibc-core/pkg/relayer/chainadapter"
	"github.com/ibcx/tm-ibc-core/pkg/relayer/proofgen"
)

type stubProcessor struct {
	relayErr error
	relayed  int
}

func (s *stubProcessor) RelayToDestination(ctx context.Context, source, dest chainadapter.Adapter, l *PacketLifecycle, proofs *proofgen.Generator) error {
	s.relayed++
	return s.relayErr
}
func (s *stubProcessor) RelayAck(ctx context.Context, source, dest chainadapter.Adapter, l *PacketLifecycle, ack ibcchannel.Acknowledgement, proofs *proofgen.Generator) error {
	return nil
}
func (s *stubProcessor) RelayTimeout(ctx context.Context, source, dest chainadapter.Adapter, l *PacketLifecycle, proofs *proofgen.Generator) error {
	return nil
}

func TestOnDetectedIsIdempotent(t *testing.T) {
	e := New(DefaultConfig(), &stubProcessor{}, proofgen.New(time.Second), nil, nil)
	key := PacketKey{SourceChain: "chain-a", SourcePort: "transfer", SourceChannel: "channel-0", Sequence: 1}
	packet := ibcchannel.Packet{Sequence: 1}

	first := e.OnDetected(key, packet, "chain-b")
	second := e.OnDetected(key, packet, "chain-b")
	if first != second {
		t.Fatal("expected OnDetected to return the same lifecycle pointer for a repeated key")
	}
	if first.State != StateDetected {
		t.Fatalf("expected StateDetected, got %s", first.State)
	}
}

func TestRelayOneSucceeds(t *testing.T) {
	proc := &stubProcessor{}
	e := New(DefaultConfig(), proc, proofgen.New(time.Second), nil, nil)
	key := PacketKey{SourceChain: "chain-a", SourcePort: "transfer", SourceChannel: "channel-0", Sequence: 1}
	e.OnDetected(key, ibcchannel.Packet{Sequence: 1}, "chain-b")

	if err := e.RelayOne(context.Background(), nil, nil, key); err != nil {
		t.Fatalf("RelayOne: %v", err)
	}
	l, ok := e.Get(key)
	if !ok || l.State != StateRelayed {
		t.Fatalf("expected StateRelayed, got %v (ok=%v)", l, ok)
	}
	if proc.relayed != 1 {
		t.Fatalf("expected processor to be invoked once, got %d", proc.relayed)
	}
}

func TestRelayOneRetriesThenFails(t *testing.T) {
	proc := &stubProcessor{relayErr: errors.New("destination unavailable")}
	cfg := Config{MaxRetries: 2, RetryDelay: time.Millisecond}
	e := New(cfg, proc, proofgen.New(time.Second), nil, nil)
	key := PacketKey{SourceChain: "chain-a", SourcePort: "transfer", SourceChannel: "channel-0", Sequence: 1}
	e.OnDetected(key, ibcchannel.Packet{Sequence: 1}, "chain-b")

	if err := e.RelayOne(context.Background(), nil, nil, key); err == nil {
		t.Fatal("expected first attempt to return the processor's error")
	}
	l, _ := e.Get(key)
	if l.State != StateDetected {
		t.Fatalf("expected state to revert to Detected after attempt 1, got %s", l.State)
	}

	if err := e.RelayOne(context.Background(), nil, nil, key); err == nil {
		t.Fatal("expected second attempt to return the processor's error")
	}
	l, _ = e.Get(key)
	if l.State != StateFailed {
		t.Fatalf("expected StateFailed after exhausting MaxRetries=%d, got %s (attempts=%d)", cfg.MaxRetries, l.State, l.Attempts)
	}
}

func TestOnAcknowledgedAndOnTimedOut(t *testing.T) {
	e := New(DefaultConfig(), &stubProcessor{}, proofgen.New(time.Second), nil, nil)
	ackKey := PacketKey{SourceChain: "chain-a", SourcePort: "transfer", SourceChannel: "channel-0", Sequence: 1}
	toKey := PacketKey{SourceChain: "chain-a", SourcePort: "transfer", SourceChannel: "channel-0", Sequence: 2}
	e.OnDetected(ackKey, ibcchannel.Packet{Sequence: 1}, "chain-b")
	e.OnDetected(toKey, ibcchannel.Packet{Sequence: 2}, "chain-b")

	e.OnAcknowledged(ackKey)
	e.OnTimedOut(toKey)

	l1, _ := e.Get(ackKey)
	l2, _ := e.Get(toKey)
	if l1.State != StateAcknowledged {
		t.Fatalf("expected StateAcknowledged, got %s", l1.State)
	}
	if l2.State != StateTimedOut {
		t.Fatalf("expected StateTimedOut, got %s", l2.State)
	}
}

func TestGCRemovesOldTerminalEntriesOnly(t *testing.T) {
	e := New(Config{MaxCompletedAge: time.Hour}, &stubProcessor{}, proofgen.New(time.Second), nil, nil)
	oldKey := PacketKey{SourceChain: "chain-a", SourcePort: "transfer", SourceChannel: "channel-0", Sequence: 1}
	freshKey := PacketKey{SourceChain: "chain-a", SourcePort: "transfer", SourceChannel: "channel-0", Sequence: 2}

	e.OnDetected(oldKey, ibcchannel.Packet{Sequence: 1}, "chain-b")
	e.OnAcknowledged(oldKey)
	l, _ := e.Get(oldKey)
	l.UpdatedAt = time.Now().Add(-2 * time.Hour)

	e.OnDetected(freshKey, ibcchannel.Packet{Sequence: 2}, "chain-b")
	e.OnAcknowledged(freshKey)

	removed := e.GC()
	if removed != 1 {
		t.Fatalf("expected exactly one entry removed, got %d", removed)
	}
	if _, ok := e.Get(oldKey); ok {
		t.Fatal("expected old acknowledged entry to be garbage collected")
	}
	if _, ok := e.Get(freshKey); !ok {
		t.Fatal("expected fresh acknowledged entry to survive GC")
	}
}
