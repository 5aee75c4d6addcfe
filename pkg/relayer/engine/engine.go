// Copyright 2025 Certen Protocol
package engine

import (
	"context"
	"log"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ibcx/tm-ibc-core/pkg/ibcchannel"
	"github.com/ibcx/tm-ibc-core/pkg/relayer/chainadapter"
	"github.com/ibcx/tm-ibc-core/pkg/relayer/proofgen"
)

// Config bounds retry behavior and completed-entry retention.
type Config struct {
	MaxRetries      int
	RetryDelay      time.Duration
	MaxCompletedAge time.Duration
}

// DefaultConfig uses a 5s base delay, sized for cross-chain settlement
// latencies.
func DefaultConfig() Config {
	return Config{MaxRetries: 8, RetryDelay: 5 * time.Second, MaxCompletedAge: 24 * time.Hour}
}

// Metrics are the relay engine's prometheus counters, registered against
// the default registry.
type Metrics struct {
	Detected     prometheus.Counter
	Relayed      prometheus.Counter
	Acknowledged prometheus.Counter
	TimedOut     prometheus.Counter
	Failed       prometheus.Counter
	RetryTotal   prometheus.Counter
}

// NewMetrics registers the relay engine's counters under the "ibc_relayer"
// namespace.
func NewMetrics() *Metrics {
	factory := promauto.With(prometheus.DefaultRegisterer)
	mk := func(name, help string) prometheus.Counter {
		return factory.NewCounter(prometheus.CounterOpts{
			Namespace: "ibc_relayer",
			Subsystem: "packets",
			Name:      name,
			Help:      help,
		})
	}
	return &Metrics{
		Detected:     mk("detected_total", "packets observed via send_packet events"),
		Relayed:      mk("relayed_total", "packets submitted to the destination chain"),
		Acknowledged: mk("acknowledged_total", "packets that reached Acknowledged"),
		TimedOut:     mk("timed_out_total", "packets that reached TimedOut"),
		Failed:       mk("failed_total", "packets that exhausted their retry budget"),
		RetryTotal:   mk("retries_total", "submission retries across all packets"),
	}
}

// Processor submits a single relay step for a packet. Engine.RelayOne calls
// RelayToDestination after marking the packet Relaying, with the engine's
// lock released; the engine does not call RelayAck or RelayTimeout.
type Processor interface {
	RelayToDestination(ctx context.Context, source, dest chainadapter.Adapter, l *PacketLifecycle, proofs *proofgen.Generator) error
	RelayAck(ctx context.Context, source, dest chainadapter.Adapter, l *PacketLifecycle, ack ibcchannel.Acknowledgement, proofs *proofgen.Generator) error
	RelayTimeout(ctx context.Context, source, dest chainadapter.Adapter, l *PacketLifecycle, proofs *proofgen.Generator) error
}

// Engine owns PacketKey -> PacketLifecycle and drives relay attempts
// through a Processor. A failed attempt is recorded with an
// exponential-backoff NextRetryAt until Config.MaxRetries attempts have
// failed; the engine does not re-run attempts itself.
type Engine struct {
	mu        sync.Mutex
	lifecycle map[PacketKey]*PacketLifecycle

	cfg       Config
	metrics   *Metrics
	processor Processor
	proofs    *proofgen.Generator
	store     Store
	logger    *log.Logger
}

// Store persists the lifecycle map so a restart does not lose in-flight
// packets. See store_postgres.go for the lib/pq-backed implementation.
type Store interface {
	Save(ctx context.Context, l *PacketLifecycle) error
	Load(ctx context.Context) ([]*PacketLifecycle, error)
}

// New wires an Engine to its processor, proof generator, metrics, and
// persistence store.
func New(cfg Config, processor Processor, proofs *proofgen.Generator, metrics *Metrics, store Store) *Engine {
	if metrics == nil {
		metrics = NewMetrics()
	}
	return &Engine{
		lifecycle: make(map[PacketKey]*PacketLifecycle),
		cfg:       cfg,
		metrics:   metrics,
		processor: processor,
		proofs:    proofs,
		store:     store,
		logger:    log.New(os.Stdout, "[RelayEngine] ", log.LstdFlags),
	}
}

// Restore loads persisted lifecycles from the store into memory, used on
// startup.
func (e *Engine) Restore(ctx context.Context) error {
	if e.store == nil {
		return nil
	}
	entries, err := e.store.Load(ctx)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, l := range entries {
		e.lifecycle[l.Key] = l
	}
	e.logger.Printf("restored %d in-flight packet lifecycles", len(entries))
	return nil
}

// OnDetected inserts a packet observed via a send_packet event as
// Detected; the caller schedules the relay.
func (e *Engine) OnDetected(key PacketKey, packet ibcchannel.Packet, destChain string) *PacketLifecycle {
	e.mu.Lock()
	defer e.mu.Unlock()

	if existing, ok := e.lifecycle[key]; ok {
		return existing
	}
	now := nowFunc()
	l := &PacketLifecycle{
		Key:           key,
		CorrelationID: uuid.New().String(),
		Packet:        packet,
		DestChain:     destChain,
		State:         StateDetected,
		DetectedAt:    now,
		UpdatedAt:     now,
	}
	e.lifecycle[key] = l
	e.metrics.Detected.Inc()
	return l
}

// Get returns the lifecycle for key, if tracked.
func (e *Engine) Get(key PacketKey) (*PacketLifecycle, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	l, ok := e.lifecycle[key]
	return l, ok
}

// Snapshot returns a copy of every tracked lifecycle, for the timeout
// manager and bidirectional manager to walk.
func (e *Engine) Snapshot() []*PacketLifecycle {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]*PacketLifecycle, 0, len(e.lifecycle))
	for _, l := range e.lifecycle {
		out = append(out, l)
	}
	return out
}

// RelayOne makes one relay attempt for a tracked packet. On success the
// packet is Relayed; on error the attempt is counted and the packet returns
// to Detected with NextRetryAt set by exponential backoff, or becomes
// Failed once Attempts reaches Config.MaxRetries. It does not retry by
// itself.
func (e *Engine) RelayOne(ctx context.Context, source, dest chainadapter.Adapter, key PacketKey) error {
	l, ok := e.Get(key)
	if !ok {
		return nil
	}

	e.mu.Lock()
	l.State = StateRelaying
	l.UpdatedAt = nowFunc()
	e.mu.Unlock()

	err := e.processor.RelayToDestination(ctx, source, dest, l, e.proofs)

	e.mu.Lock()
	defer e.mu.Unlock()
	if err != nil {
		l.Attempts++
		l.LastError = err.Error()
		e.metrics.RetryTotal.Inc()
		if l.Attempts >= e.cfg.MaxRetries {
			l.State = StateFailed
			e.metrics.Failed.Inc()
			e.logger.Printf("packet %s failed permanently after %d attempts: %v", key, l.Attempts, err)
			e.persist(ctx, l)
			return err
		}
		l.State = StateDetected
		l.NextRetryAt = nowFunc().Add(backoff(e.cfg.RetryDelay, l.Attempts))
		e.persist(ctx, l)
		return err
	}

	l.State = StateRelayed
	l.UpdatedAt = nowFunc()
	e.metrics.Relayed.Inc()
	e.persist(ctx, l)
	return nil
}

// OnAcknowledged moves a packet to Acknowledged on an acknowledge_packet
// event at the source.
func (e *Engine) OnAcknowledged(key PacketKey) {
	e.mu.Lock()
	defer e.mu.Unlock()
	l, ok := e.lifecycle[key]
	if !ok {
		return
	}
	l.State = StateAcknowledged
	l.UpdatedAt = nowFunc()
	e.metrics.Acknowledged.Inc()
	e.persist(context.Background(), l)
}

// OnTimedOut moves a packet to TimedOut after timeout_packet has been
// submitted on the source.
func (e *Engine) OnTimedOut(key PacketKey) {
	e.mu.Lock()
	defer e.mu.Unlock()
	l, ok := e.lifecycle[key]
	if !ok {
		return
	}
	l.State = StateTimedOut
	l.UpdatedAt = nowFunc()
	e.metrics.TimedOut.Inc()
	e.persist(context.Background(), l)
}

// GC removes Acknowledged/TimedOut/Failed entries older than
// Config.MaxCompletedAge.
func (e *Engine) GC() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	cutoff := nowFunc().Add(-e.cfg.MaxCompletedAge)
	removed := 0
	for k, l := range e.lifecycle {
		terminal := l.State == StateAcknowledged || l.State == StateTimedOut || l.State == StateFailed
		if terminal && l.UpdatedAt.Before(cutoff) {
			delete(e.lifecycle, k)
			removed++
		}
	}
	return removed
}

func (e *Engine) persist(ctx context.Context, l *PacketLifecycle) {
	if e.store == nil {
		return
	}
	if err := e.store.Save(ctx, l); err != nil {
		e.logger.Printf("persist lifecycle %s: %v", l.Key, err)
	}
}

// backoff computes an exponential delay capped at 10x base.
func backoff(base time.Duration, attempt int) time.Duration {
	d := base
	for i := 0; i < attempt && i < 4; i++ {
		d *= 2
	}
	max := base * 10
	if d > max {
		d = max
	}
	return d
}

var nowFunc = time.Now
