// Copyright 2025 Certen Protocol
//
// Package scanner periodically reconciles configured (port, channel) pairs
// against the counterparty chain, catching packets whose events were
// missed while the relayer was offline.
package scanner

import (
	"context"
	"log"
	"os"
	"sync"
	"time"

	"github.com/ibcx/tm-ibc-core/pkg/relayer/chainadapter"
)

// ChannelPair is one (port, channel) to reconcile, plus the counterparty's
// matching (port, channel).
type ChannelPair struct {
	SourcePort       string
	SourceChannel    string
	CounterpartyPort string
	CounterpartyChan string
}

// MissingPacket is a commitment found on the source without a matching
// receipt/ack on the counterparty.
type MissingPacket struct {
	Pair     ChannelPair
	Sequence uint64
}

// Config controls the scan cadence.
type Config struct {
	ScanInterval time.Duration
	Pairs        []ChannelPair
}

// Scanner periodically walks Config.Pairs looking for orphaned commitments.
type Scanner struct {
	mu     sync.RWMutex
	source chainadapter.Adapter
	dest   chainadapter.Adapter
	cfg    Config

	state  string
	stopCh chan struct{}
	doneCh chan struct{}
	logger *log.Logger
}

// New wires a Scanner between the source and destination chain adapters.
func New(source, dest chainadapter.Adapter, cfg Config) *Scanner {
	return &Scanner{
		source: source,
		dest:   dest,
		cfg:    cfg,
		state:  "stopped",
		logger: log.New(os.Stdout, "[Scanner-"+source.ChainID()+"->"+dest.ChainID()+"] ", log.LstdFlags),
	}
}

// Start runs the scan loop in a background goroutine until Stop is called.
func (s *Scanner) Start(ctx context.Context, onMissing func(MissingPacket)) {
	s.mu.Lock()
	if s.state == "running" {
		s.mu.Unlock()
		return
	}
	s.state = "running"
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	s.mu.Unlock()

	go s.run(ctx, onMissing)
}

// Stop signals the scan loop to exit and waits for it to finish.
func (s *Scanner) Stop() {
	s.mu.Lock()
	if s.state != "running" {
		s.mu.Unlock()
		return
	}
	close(s.stopCh)
	done := s.doneCh
	s.state = "stopped"
	s.mu.Unlock()
	<-done
}

func (s *Scanner) run(ctx context.Context, onMissing func(MissingPacket)) {
	defer close(s.doneCh)
	ticker := time.NewTicker(s.cfg.ScanInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.scanOnce(ctx, onMissing)
		}
	}
}

func (s *Scanner) scanOnce(ctx context.Context, onMissing func(MissingPacket)) {
	for _, pair := range s.cfg.Pairs {
		seqResult, err := s.dest.QueryNextSequenceRecv(ctx, pair.CounterpartyPort, pair.CounterpartyChan)
		if err != nil {
			s.logger.Printf("scan %s/%s: query next_sequence_recv on counterparty failed: %v", pair.SourcePort, pair.SourceChannel, err)
			continue
		}
		nextRecv := decodeSequence(seqResult.Value)

		for seq := uint64(1); seq < nextRecv+64; seq++ {
			commitment, err := s.source.QueryPacketCommitment(ctx, chainadapter.CommitmentQuery{Port: pair.SourcePort, Channel: pair.SourceChannel, Sequence: seq})
			if err != nil || len(commitment.Value) == 0 {
				continue
			}
			receipt, err := s.dest.QueryPacketReceipt(ctx, chainadapter.CommitmentQuery{Port: pair.CounterpartyPort, Channel: pair.CounterpartyChan, Sequence: seq})
			if err == nil && len(receipt.Value) > 0 {
				continue
			}
			ack, err := s.dest.QueryPacketAck(ctx, chainadapter.CommitmentQuery{Port: pair.CounterpartyPort, Channel: pair.CounterpartyChan, Sequence: seq})
			if err == nil && len(ack.Value) > 0 {
				continue
			}
			onMissing(MissingPacket{Pair: pair, Sequence: seq})
		}
	}
}

func decodeSequence(value []byte) uint64 {
	var n uint64
	for _, b := range value {
		n = n<<8 | uint64(b)
	}
	return n
}
