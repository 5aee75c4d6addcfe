// Copyright 2025 Certen Protocol
//
// Package monitor watches a chain adapter for canonical IBC events,
// preferring a streaming subscription and falling back to polling.
package monitor

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/ibcx/tm-ibc-core/pkg/relayer/chainadapter"
)

// Config controls the polling fallback.
type Config struct {
	PollInterval  time.Duration
	BlocksPerPoll uint64
}

// DefaultConfig polls every 5s, 20 blocks at a time.
func DefaultConfig() Config {
	return Config{PollInterval: 5 * time.Second, BlocksPerPoll: 20}
}

// Monitor streams RelayEvents for one chain.
type Monitor struct {
	adapter chainadapter.Adapter
	cfg     Config
	logger  *log.Logger
}

// New wires a Monitor to its chain adapter.
func New(adapter chainadapter.Adapter, cfg Config) *Monitor {
	return &Monitor{
		adapter: adapter,
		cfg:     cfg,
		logger:  log.New(os.Stdout, "[Monitor-"+adapter.ChainID()+"] ", log.LstdFlags),
	}
}

// Run blocks, emitting events to out until ctx is cancelled. It first
// attempts a streaming subscription; if that fails it falls back to
// polling GetEvents over a moving block window.
func (m *Monitor) Run(ctx context.Context, out chan<- chainadapter.RelayEvent) error {
	sub, err := m.adapter.SubscribeEvents(ctx)
	if err == nil {
		m.logger.Printf("subscribed to live event stream")
		return m.drainSubscription(ctx, sub, out)
	}
	m.logger.Printf("subscription unavailable (%v), falling back to polling every %s", err, m.cfg.PollInterval)
	return m.poll(ctx, out)
}

func (m *Monitor) drainSubscription(ctx context.Context, sub <-chan chainadapter.RelayEvent, out chan<- chainadapter.RelayEvent) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-sub:
			if !ok {
				m.logger.Printf("subscription closed, falling back to polling")
				return m.poll(ctx, out)
			}
			select {
			case out <- ev:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

func (m *Monitor) poll(ctx context.Context, out chan<- chainadapter.RelayEvent) error {
	ticker := time.NewTicker(m.cfg.PollInterval)
	defer ticker.Stop()

	last, err := m.adapter.GetHeight(ctx)
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			current, err := m.adapter.GetHeight(ctx)
			if err != nil {
				m.logger.Printf("poll: get height failed: %v", err)
				continue
			}
			if current.RevisionHeight <= last.RevisionHeight {
				continue
			}
			to := current
			if max := last.RevisionHeight + m.cfg.BlocksPerPoll; to.RevisionHeight > max {
				to.RevisionHeight = max
			}
			events, err := m.adapter.GetEvents(ctx, last, to)
			if err != nil {
				m.logger.Printf("poll: get events [%s,%s] failed: %v", last, to, err)
				continue
			}
			for _, ev := range events {
				select {
				case out <- ev:
				case <-ctx.Done():
					return ctx.Err()
				}
			}
			last.RevisionHeight = to.RevisionHeight + 1
		}
	}
}
