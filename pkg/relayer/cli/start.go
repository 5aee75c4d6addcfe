// Copyright 2025 Certen Protocol
package cli

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ibcx/tm-ibc-core/pkg/ibcchannel"
	"github.com/ibcx/tm-ibc-core/pkg/relayer/bidirectional"
	"github.com/ibcx/tm-ibc-core/pkg/relayer/chainadapter"
	"github.com/ibcx/tm-ibc-core/pkg/relayer/config"
	"github.com/ibcx/tm-ibc-core/pkg/relayer/engine"
	"github.com/ibcx/tm-ibc-core/pkg/relayer/keystore"
	"github.com/ibcx/tm-ibc-core/pkg/relayer/monitor"
	"github.com/ibcx/tm-ibc-core/pkg/relayer/proofgen"
	"github.com/ibcx/tm-ibc-core/pkg/relayer/scanner"
	"github.com/ibcx/tm-ibc-core/pkg/relayer/timeoutmgr"
)

// startCmd runs the full relay loop: one monitor per configured chain, one
// scanner per configured channel pair, one bidirectional window manager
// shared by all pairs, a shared engine + timeout manager, draining in-flight
// work on
// SIGINT/SIGTERM.
func startCmd() *cobra.Command {
	var drainTimeout time.Duration
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Run the relay loop until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			backend, err := loadSigningBackend(cfg)
			if err != nil {
				return err
			}

			adapters := make(map[string]chainadapter.Adapter, len(cfg.Chains))
			for _, c := range cfg.Chains {
				if _, ok := backend.Get(c.ChainID); !ok {
					return wrapConfigErr(fmt.Errorf("no signer key loaded for chain %s (keystore or %s_%s)", c.ChainID, cfg.EnvKeyPrefix, c.ChainID))
				}
				a, err := buildAdapter(c)
				if err != nil {
					return fmt.Errorf("build adapter for %s: %w", c.ChainID, err)
				}
				adapters[c.ChainID] = a
			}

			allAdapters := make([]chainadapter.Adapter, 0, len(adapters))
			for _, a := range adapters {
				allAdapters = append(allAdapters, a)
			}
			proofs := proofgen.New(cfg.ProofCacheTTL, allAdapters...)

			store, err := openStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}

			clients := engine.NewMemoryClientTracker()
			for _, pair := range cfg.Channels {
				if pair.DestClientID != "" {
					clients.RegisterPair(pair.SourceChain, pair.DestChain, pair.DestClientID)
				}
			}
			eng := engine.New(
				engine.Config{MaxRetries: cfg.MaxRetries, RetryDelay: cfg.RetryDelay, MaxCompletedAge: cfg.MaxCompletedAge},
				engine.NewDefaultProcessor(clients),
				proofs,
				engine.NewMetrics(),
				store,
			)
			if err := eng.Restore(cmd.Context()); err != nil {
				return fmt.Errorf("restore lifecycle store: %w", err)
			}

			bidi := bidirectional.New()
			for _, pair := range cfg.Channels {
				ordering := ibcchannel.Unordered
				if pair.Ordered {
					ordering = ibcchannel.Ordered
				}
				bidi.Register(bidirectional.ChannelID{Port: pair.SourcePort, Channel: pair.SourceChannel}, ordering, pair.Window)
			}

			tmCfg := timeoutmgr.DefaultConfig()
			tm := timeoutmgr.New(eng, adapters, tmCfg)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			logger := log.New(os.Stdout, "[Relayer] ", log.LstdFlags)
			var wg sync.WaitGroup
			sem := make(chan struct{}, maxInt(cfg.MaxParallelPackets, 1))

			events := make(chan relayEventFromChain, 256)
			for chainID, a := range adapters {
				wg.Add(1)
				go func(chainID string, a chainadapter.Adapter) {
					defer wg.Done()
					m := monitor.New(a, monitor.Config{PollInterval: cfg.PollInterval, BlocksPerPoll: 20})
					out := make(chan chainadapter.RelayEvent, 64)
					go func() {
						if err := m.Run(ctx, out); err != nil && ctx.Err() == nil {
							logger.Printf("monitor for %s stopped: %v", chainID, err)
						}
					}()
					for {
						select {
						case <-ctx.Done():
							return
						case ev, ok := <-out:
							if !ok {
								return
							}
							select {
							case events <- relayEventFromChain{chainID: chainID, event: ev}:
							case <-ctx.Done():
								return
							}
						}
					}
				}(chainID, a)
			}

			for _, pair := range cfg.Channels {
				source, ok := adapters[pair.SourceChain]
				if !ok {
					continue
				}
				dest, ok := adapters[pair.DestChain]
				if !ok {
					continue
				}
				s := scanner.New(source, dest, scanner.Config{
					ScanInterval: cfg.ScanInterval,
					Pairs: []scanner.ChannelPair{{
						SourcePort:       pair.SourcePort,
						SourceChannel:    pair.SourceChannel,
						CounterpartyPort: pair.DestPort,
						CounterpartyChan: pair.DestChannel,
					}},
				})
				s.Start(ctx, func(mp scanner.MissingPacket) {
					logger.Printf("scanner found orphaned commitment %s/%s seq=%d", mp.Pair.SourcePort, mp.Pair.SourceChannel, mp.Sequence)
				})
				defer s.Stop()
			}

			wg.Add(1)
			go func() {
				defer wg.Done()
				tm.Run(ctx, func(l *engine.PacketLifecycle) {
					logger.Printf("packet %s eligible for timeout", l.Key)
				})
			}()

			destChain := make(map[srcChannelKey]string, len(cfg.Channels))
			for _, pair := range cfg.Channels {
				destChain[srcChannelKey{chain: pair.SourceChain, port: pair.SourcePort, channel: pair.SourceChannel}] = pair.DestChain
			}

			wg.Add(1)
			go func() {
				defer wg.Done()
				dispatchLoop(ctx, eng, adapters, destChain, bidi, events, sem, logger)
			}()

			// periodic liveness summary over the lifecycle map.
			wg.Add(1)
			go func() {
				defer wg.Done()
				ticker := time.NewTicker(time.Minute)
				defer ticker.Stop()
				for {
					select {
					case <-ctx.Done():
						return
					case <-ticker.C:
						counts := make(map[engine.LifecycleState]int)
						for _, l := range eng.Snapshot() {
							counts[l.State]++
						}
						logger.Printf("lifecycles: detected=%d relaying=%d relayed=%d acknowledged=%d timed_out=%d failed=%d (gc removed %d)",
							counts[engine.StateDetected], counts[engine.StateRelaying], counts[engine.StateRelayed],
							counts[engine.StateAcknowledged], counts[engine.StateTimedOut], counts[engine.StateFailed], eng.GC())
					}
				}
			}()

			<-ctx.Done()
			logger.Printf("shutdown signal received, draining in-flight work (timeout %s)", drainTimeout)
			drained := make(chan struct{})
			go func() { wg.Wait(); close(drained) }()
			select {
			case <-drained:
				logger.Printf("drain complete")
			case <-time.After(drainTimeout):
				logger.Printf("drain timeout exceeded, exiting")
			}
			return nil
		},
	}
	cmd.Flags().Duration("drain-timeout", 30*time.Second, "maximum time to wait for in-flight work on shutdown")
	cmd.PreRunE = func(cmd *cobra.Command, args []string) error {
		drainTimeout, _ = cmd.Flags().GetDuration("drain-timeout")
		return nil
	}
	return cmd
}

type relayEventFromChain struct {
	chainID string
	event   chainadapter.RelayEvent
}

// srcChannelKey identifies a configured (source chain, port, channel)
// triple, used to look up the configured destination chain for a
// send_packet event observed on its source.
type srcChannelKey struct {
	chain, port, channel string
}

// dispatchLoop consumes events from every monitor, preserving per-chain
// order, and hands each to the engine, bounding concurrent relays via
// sem.
func dispatchLoop(ctx context.Context, eng *engine.Engine, adapters map[string]chainadapter.Adapter, destChain map[srcChannelKey]string, bidi *bidirectional.Manager, events <-chan relayEventFromChain, sem chan struct{}, logger *log.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case wrapped, ok := <-events:
			if !ok {
				return
			}
			handleEvent(ctx, eng, adapters, destChain, bidi, wrapped, sem, logger)
		}
	}
}

func handleEvent(ctx context.Context, eng *engine.Engine, adapters map[string]chainadapter.Adapter, destChain map[srcChannelKey]string, bidi *bidirectional.Manager, wrapped relayEventFromChain, sem chan struct{}, logger *log.Logger) {
	ev := wrapped.event
	chID := bidirectional.ChannelID{Port: ev.Packet.SrcPort, Channel: ev.Packet.SrcChannel}
	key := engine.PacketKey{SourceChain: wrapped.chainID, SourcePort: ev.Packet.SrcPort, SourceChannel: ev.Packet.SrcChannel, Sequence: ev.Packet.Sequence}

	switch ev.Type {
	case ibcchannel.EventSendPacket:
		destID, ok := destChain[srcChannelKey{chain: wrapped.chainID, port: ev.Packet.SrcPort, channel: ev.Packet.SrcChannel}]
		if !ok {
			logger.Printf("send_packet on %s/%s has no configured destination, skipping", ev.Packet.SrcPort, ev.Packet.SrcChannel)
			return
		}
		eng.OnDetected(key, ev.Packet, destID)
		if !bidi.CanSubmit(chID, ev.Packet.Sequence) {
			return
		}
		source, ok := adapters[wrapped.chainID]
		if !ok {
			return
		}
		dest, ok := adapters[destID]
		if !ok {
			return
		}
		bidi.MarkSubmitted(chID, ev.Packet.Sequence)
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			return
		}
		go func() {
			defer func() { <-sem }()
			if err := eng.RelayOne(ctx, source, dest, key); err != nil {
				logger.Printf("relay %s failed: %v", key, err)
			}
		}()
	case ibcchannel.EventAcknowledgePacket:
		eng.OnAcknowledged(key)
		bidi.MarkResolved(chID, ev.Packet.Sequence)
	case ibcchannel.EventTimeoutPacket:
		eng.OnTimedOut(key)
		bidi.MarkResolved(chID, ev.Packet.Sequence)
	}
}

func loadSigningBackend(cfg config.RelayerConfig) (keystore.Backend, error) {
	if cfg.KeystoreDir != "" {
		password := os.Getenv(EnvKeystorePassword)
		if password != "" {
			fb, err := keystore.NewFileBackend(cfg.KeystoreDir, password)
			if err != nil {
				return nil, wrapConfigErr(fmt.Errorf("load keystore: %w", err))
			}
			return fb, loadEnvOverrides(fb, cfg)
		}
	}
	mb := keystore.NewMemoryBackend()
	return mb, loadEnvOverrides(mb, cfg)
}

func loadEnvOverrides(backend keystore.Backend, cfg config.RelayerConfig) error {
	chainIDs := make([]string, 0, len(cfg.Chains))
	for _, c := range cfg.Chains {
		chainIDs = append(chainIDs, c.ChainID)
	}
	return keystore.LoadFromEnv(backend, cfg.EnvKeyPrefix, chainIDs)
}

// openStore prefers Postgres when database_url is configured, falls back to
// an embedded goleveldb store under lifecycle_store_dir, and otherwise runs
// with no persistence (in-flight packets are lost on restart).
func openStore(ctx context.Context, cfg config.RelayerConfig) (engine.Store, error) {
	if cfg.DatabaseURL != "" {
		return engine.NewPostgresStore(ctx, cfg.DatabaseURL)
	}
	if cfg.LifecycleStoreDir != "" {
		return engine.NewLocalStore(cfg.LifecycleStoreDir)
	}
	return nil, nil
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
