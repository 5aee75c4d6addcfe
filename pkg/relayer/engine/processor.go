// Copyright 2025 Certen Protocol
//
// DefaultProcessor is the packet processor. RelayToDestination fetches the
// commitment proof from source, submits update_client on dest if needed,
// then submits recv_packet on dest; RelayAck and RelayTimeout fetch their
// proofs from dest, submit update_client on source if needed, then submit
// acknowledge_packet/timeout_packet on source.
package engine

import (
	"context"
	"fmt"
	"sync"

	"github.com/ibcx/tm-ibc-core/pkg/ibcchannel"
	"github.com/ibcx/tm-ibc-core/pkg/relayer/chainadapter"
	"github.com/ibcx/tm-ibc-core/pkg/relayer/proofgen"
)

// ClientTracker reports whether a light client on dest already covers
// source's latest height, so the processor only submits update_client when
// necessary, and records heights it has submitted.
type ClientTracker interface {
	NeedsUpdate(clientID string, sourceHeight uint64) bool
	ClientIDFor(sourceChain, destChain string) string
	MarkUpdated(clientID string, height uint64)
}

// MemoryClientTracker is the stock ClientTracker: a (source, dest) pair to
// client-id registry plus the highest height submitted per client.
type MemoryClientTracker struct {
	mu      sync.Mutex
	clients map[chainPair]string
	updated map[string]uint64
}

type chainPair struct {
	source, dest string
}

// NewMemoryClientTracker creates an empty tracker.
func NewMemoryClientTracker() *MemoryClientTracker {
	return &MemoryClientTracker{
		clients: make(map[chainPair]string),
		updated: make(map[string]uint64),
	}
}

// RegisterPair declares that clientID on dest tracks source.
func (t *MemoryClientTracker) RegisterPair(sourceChain, destChain, clientID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.clients[chainPair{source: sourceChain, dest: destChain}] = clientID
}

func (t *MemoryClientTracker) ClientIDFor(sourceChain, destChain string) string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.clients[chainPair{source: sourceChain, dest: destChain}]
}

func (t *MemoryClientTracker) NeedsUpdate(clientID string, sourceHeight uint64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return sourceHeight > t.updated[clientID]
}

func (t *MemoryClientTracker) MarkUpdated(clientID string, height uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if height > t.updated[clientID] {
		t.updated[clientID] = height
	}
}

// DefaultProcessor is the stock Processor.
type DefaultProcessor struct {
	clients ClientTracker
}

// NewDefaultProcessor wires a DefaultProcessor to its client tracker.
func NewDefaultProcessor(clients ClientTracker) *DefaultProcessor {
	return &DefaultProcessor{clients: clients}
}

func (p *DefaultProcessor) ensureClientUpdated(ctx context.Context, source, dest chainadapter.Adapter) error {
	if p.clients == nil {
		return nil
	}
	clientID := p.clients.ClientIDFor(source.ChainID(), dest.ChainID())
	if clientID == "" {
		return nil
	}
	height, err := source.GetHeight(ctx)
	if err != nil {
		return fmt.Errorf("query source height: %w", err)
	}
	if !p.clients.NeedsUpdate(clientID, height.RevisionHeight) {
		return nil
	}
	header, err := source.GetHeader(ctx, height)
	if err != nil {
		return fmt.Errorf("fetch source header at %s: %w", height, err)
	}
	if _, err := dest.UpdateClient(ctx, clientID, header); err != nil {
		return fmt.Errorf("submit update_client for %s on %s: %w", clientID, dest.ChainID(), err)
	}
	p.clients.MarkUpdated(clientID, height.RevisionHeight)
	return nil
}

// RelayToDestination fetches the commitment proof from source and submits
// recv_packet on dest.
func (p *DefaultProcessor) RelayToDestination(ctx context.Context, source, dest chainadapter.Adapter, l *PacketLifecycle, proofs *proofgen.Generator) error {
	if err := p.ensureClientUpdated(ctx, source, dest); err != nil {
		return err
	}
	proof, err := proofs.CommitmentProof(ctx, source.ChainID(), l.Packet.SrcPort, l.Packet.SrcChannel, l.Packet.Sequence)
	if err != nil {
		return fmt.Errorf("fetch commitment proof: %w", err)
	}
	if _, err := dest.RecvPacket(ctx, l.Packet, proof); err != nil {
		return fmt.Errorf("submit recv_packet: %w", err)
	}
	return nil
}

// RelayAck fetches the ack proof from dest and submits acknowledge_packet
// on source.
func (p *DefaultProcessor) RelayAck(ctx context.Context, source, dest chainadapter.Adapter, l *PacketLifecycle, ack ibcchannel.Acknowledgement, proofs *proofgen.Generator) error {
	if err := p.ensureClientUpdated(ctx, dest, source); err != nil {
		return err
	}
	proof, err := proofs.AckProof(ctx, dest.ChainID(), l.Packet.DstPort, l.Packet.DstChannel, l.Packet.Sequence)
	if err != nil {
		return fmt.Errorf("fetch ack proof: %w", err)
	}
	if _, err := source.AckPacket(ctx, l.Packet, ack, proof); err != nil {
		return fmt.Errorf("submit acknowledge_packet: %w", err)
	}
	return nil
}

// RelayTimeout fetches the packet-receipt proof from dest (whose absence is
// the non-membership proof unordered channels need) and submits
// timeout_packet on source. The next-sequence-recv proof is not used:
// ordered channels get the same receipt proof.
func (p *DefaultProcessor) RelayTimeout(ctx context.Context, source, dest chainadapter.Adapter, l *PacketLifecycle, proofs *proofgen.Generator) error {
	if err := p.ensureClientUpdated(ctx, dest, source); err != nil {
		return err
	}
	proof, err := proofs.ReceiptProof(ctx, dest.ChainID(), l.Packet.DstPort, l.Packet.DstChannel, l.Packet.Sequence)
	if err != nil {
		return fmt.Errorf("fetch receipt proof: %w", err)
	}
	if _, err := source.TimeoutPacket(ctx, l.Packet, proof); err != nil {
		return fmt.Errorf("submit timeout_packet: %w", err)
	}
	return nil
}
