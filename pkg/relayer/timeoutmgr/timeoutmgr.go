// Copyright 2025 Certen Protocol
//
// Package timeoutmgr periodically walks the engine's lifecycle map for
// Relayed-but-unacked packets whose timeout has elapsed on the destination
// chain, applying a grace period to avoid racing an in-flight ack, and hands
// each eligible packet to a caller-supplied callback. The package does not
// submit timeout_packet itself.
package timeoutmgr

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/ibcx/tm-ibc-core/pkg/lightclient"
	"github.com/ibcx/tm-ibc-core/pkg/relayer/chainadapter"
	"github.com/ibcx/tm-ibc-core/pkg/relayer/engine"
)

// Config controls the walk cadence and the grace period.
type Config struct {
	CheckInterval time.Duration
	GracePeriod   time.Duration
}

// DefaultConfig checks every 30s and acts on a packet only once 10s have
// passed since its last state change (its UpdatedAt).
func DefaultConfig() Config {
	return Config{CheckInterval: 30 * time.Second, GracePeriod: 10 * time.Second}
}

// DestHeightSource reports a destination chain's current height, used to
// decide whether a packet's timeout_height has elapsed there.
type DestHeightSource interface {
	GetHeight(ctx context.Context) (lightclient.Height, error)
}

// Manager walks eng.Snapshot() on a timer and hands eligible packets to
// the onEligible callback passed to Run.
type Manager struct {
	eng    *engine.Engine
	dests  map[string]chainadapter.Adapter
	cfg    Config
	logger *log.Logger
}

// New wires a Manager to the relay engine and the set of destination chain
// adapters it must query for elapsed timeouts, keyed by chain id.
func New(eng *engine.Engine, dests map[string]chainadapter.Adapter, cfg Config) *Manager {
	return &Manager{
		eng:    eng,
		dests:  dests,
		cfg:    cfg,
		logger: log.New(os.Stdout, "[TimeoutManager] ", log.LstdFlags),
	}
}

// Run blocks, walking the lifecycle map every CheckInterval until ctx is
// cancelled.
func (m *Manager) Run(ctx context.Context, onEligible func(*engineLifecycleRef)) {
	ticker := time.NewTicker(m.cfg.CheckInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.sweep(ctx, onEligible)
		}
	}
}

// engineLifecycleRef aliases the engine's lifecycle type so callers outside
// this package don't need to import engine just to receive the callback.
type engineLifecycleRef = engine.PacketLifecycle

func (m *Manager) sweep(ctx context.Context, onEligible func(*engineLifecycleRef)) {
	now := time.Now()
	for _, l := range m.eng.Snapshot() {
		if l.State != engine.StateRelayed {
			continue
		}
		dest, ok := m.dests[l.DestChain]
		if !ok {
			continue
		}
		destHeight, err := dest.GetHeight(ctx)
		if err != nil {
			m.logger.Printf("get height for %s: %v", l.DestChain, err)
			continue
		}
		if !m.elapsed(l, destHeight, now) {
			continue
		}
		onEligible(l)
	}
}

func (m *Manager) elapsed(l *engineLifecycleRef, destHeight lightclient.Height, now time.Time) bool {
	heightElapsed := !l.Packet.TimeoutHeight.IsZero() && destHeight.GTE(l.Packet.TimeoutHeight)
	timeElapsed := l.Packet.TimeoutTimestamp != 0 && uint64(now.UnixNano()) >= l.Packet.TimeoutTimestamp
	if !heightElapsed && !timeElapsed {
		return false
	}
	return now.Sub(l.UpdatedAt) >= m.cfg.GracePeriod
}
