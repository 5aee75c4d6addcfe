// Copyright 2025 Certen Protocol
//
// Package handshake drives the four-phase connection and channel
// handshakes across a pair of chains: given a desired connection or
// channel, it generates the required proofs via proofgen and submits each
// step in turn.
package handshake

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/ibcx/tm-ibc-core/pkg/lightclient"
	"github.com/ibcx/tm-ibc-core/pkg/relayer/chainadapter"
	"github.com/ibcx/tm-ibc-core/pkg/relayer/proofgen"
)

// ConnectionRequest describes a desired connection between two chains.
type ConnectionRequest struct {
	ChainA, ChainB           chainadapter.Adapter
	ClientIDOnA, ClientIDOnB string
}

// ChannelRequest describes a desired channel riding an already-open
// connection.
type ChannelRequest struct {
	ChainA, ChainB chainadapter.Adapter
	ConnectionID   string
	PortA, PortB   string
	Version        string
	Ordered        bool
}

// Coordinator drives handshakes end to end.
type Coordinator struct {
	proofs *proofgen.Generator
	logger *log.Logger
}

// New wires a Coordinator to the shared proof generator.
func New(proofs *proofgen.Generator) *Coordinator {
	return &Coordinator{
		proofs: proofs,
		logger: log.New(os.Stdout, "[HandshakeCoordinator] ", log.LstdFlags),
	}
}

// DriveConnection executes open_init on A, open_try on B, open_ack on A,
// open_confirm on B, fetching each step's required proofs from the
// opposite chain as it goes. The encode argument builds each step's message
// bytes, which each chainadapter.Adapter's SubmitTx submits as given.
func (c *Coordinator) DriveConnection(ctx context.Context, req ConnectionRequest, encode ConnectionMsgEncoder) error {
	c.logger.Printf("connection handshake %s <-> %s: phase 1 (open_init on %s)", req.ChainA.ChainID(), req.ChainB.ChainID(), req.ChainA.ChainID())
	if _, err := req.ChainA.SubmitTx(ctx, encode.OpenInit(req)); err != nil {
		return fmt.Errorf("open_init on %s: %w", req.ChainA.ChainID(), err)
	}

	c.logger.Printf("phase 2 (open_try on %s)", req.ChainB.ChainID())
	heightA, err := req.ChainA.GetHeight(ctx)
	if err != nil {
		return fmt.Errorf("get height on %s: %w", req.ChainA.ChainID(), err)
	}
	if _, err := req.ChainB.UpdateClient(ctx, req.ClientIDOnB, zeroHeader(heightA)); err != nil {
		return fmt.Errorf("update_client on %s: %w", req.ChainB.ChainID(), err)
	}
	tryProofs, err := c.connectionProofs(ctx, req.ChainA, req.ClientIDOnA, heightA)
	if err != nil {
		return fmt.Errorf("generate open_try proofs from %s: %w", req.ChainA.ChainID(), err)
	}
	if _, err := req.ChainB.SubmitTx(ctx, encode.OpenTry(req, tryProofs)); err != nil {
		return fmt.Errorf("open_try on %s: %w", req.ChainB.ChainID(), err)
	}

	c.logger.Printf("phase 3 (open_ack on %s)", req.ChainA.ChainID())
	heightB, err := req.ChainB.GetHeight(ctx)
	if err != nil {
		return fmt.Errorf("get height on %s: %w", req.ChainB.ChainID(), err)
	}
	if _, err := req.ChainA.UpdateClient(ctx, req.ClientIDOnA, zeroHeader(heightB)); err != nil {
		return fmt.Errorf("update_client on %s: %w", req.ChainA.ChainID(), err)
	}
	ackProofs, err := c.connectionProofs(ctx, req.ChainB, req.ClientIDOnB, heightB)
	if err != nil {
		return fmt.Errorf("generate open_ack proofs from %s: %w", req.ChainB.ChainID(), err)
	}
	if _, err := req.ChainA.SubmitTx(ctx, encode.OpenAck(req, ackProofs)); err != nil {
		return fmt.Errorf("open_ack on %s: %w", req.ChainA.ChainID(), err)
	}

	c.logger.Printf("phase 4 (open_confirm on %s)", req.ChainB.ChainID())
	heightA2, err := req.ChainA.GetHeight(ctx)
	if err != nil {
		return fmt.Errorf("get height on %s: %w", req.ChainA.ChainID(), err)
	}
	confirmProofs, err := c.connectionProofs(ctx, req.ChainA, req.ClientIDOnA, heightA2)
	if err != nil {
		return fmt.Errorf("generate open_confirm proofs from %s: %w", req.ChainA.ChainID(), err)
	}
	if _, err := req.ChainB.SubmitTx(ctx, encode.OpenConfirm(req, confirmProofs)); err != nil {
		return fmt.Errorf("open_confirm on %s: %w", req.ChainB.ChainID(), err)
	}

	c.logger.Printf("connection handshake %s <-> %s complete", req.ChainA.ChainID(), req.ChainB.ChainID())
	return nil
}

// connectionProofs fetches the connection/client-state/consensus-state
// proofs of clientID's chain at height via the shared proof generator,
// bundling them for the encoder to attach to the next handshake step.
func (c *Coordinator) connectionProofs(ctx context.Context, chain chainadapter.Adapter, clientID string, height lightclient.Height) (ConnectionProofs, error) {
	conn, err := c.proofs.ConnectionProof(ctx, chain.ChainID(), clientID)
	if err != nil {
		return ConnectionProofs{}, err
	}
	clientState, err := c.proofs.ClientStateProof(ctx, chain.ChainID(), clientID)
	if err != nil {
		return ConnectionProofs{}, err
	}
	consensusState, err := c.proofs.ConsensusStateProof(ctx, chain.ChainID(), clientID, height)
	if err != nil {
		return ConnectionProofs{}, err
	}
	return ConnectionProofs{Connection: conn, ClientState: clientState, ConsensusState: consensusState}, nil
}

// DriveChannel executes the channel-level four-phase handshake, analogous
// to DriveConnection but riding req.ConnectionID.
func (c *Coordinator) DriveChannel(ctx context.Context, req ChannelRequest, encode ChannelMsgEncoder) error {
	c.logger.Printf("channel handshake %s <-> %s: phase 1 (open_init on %s)", req.ChainA.ChainID(), req.ChainB.ChainID(), req.ChainA.ChainID())
	if _, err := req.ChainA.SubmitTx(ctx, encode.OpenInit(req)); err != nil {
		return fmt.Errorf("channel open_init on %s: %w", req.ChainA.ChainID(), err)
	}

	c.logger.Printf("phase 2 (open_try on %s)", req.ChainB.ChainID())
	tryProofs, err := c.channelProofs(ctx, req.ChainA, req.PortA)
	if err != nil {
		return fmt.Errorf("generate channel open_try proofs from %s: %w", req.ChainA.ChainID(), err)
	}
	if _, err := req.ChainB.SubmitTx(ctx, encode.OpenTry(req, tryProofs)); err != nil {
		return fmt.Errorf("channel open_try on %s: %w", req.ChainB.ChainID(), err)
	}

	c.logger.Printf("phase 3 (open_ack on %s)", req.ChainA.ChainID())
	ackProofs, err := c.channelProofs(ctx, req.ChainB, req.PortB)
	if err != nil {
		return fmt.Errorf("generate channel open_ack proofs from %s: %w", req.ChainB.ChainID(), err)
	}
	if _, err := req.ChainA.SubmitTx(ctx, encode.OpenAck(req, ackProofs)); err != nil {
		return fmt.Errorf("channel open_ack on %s: %w", req.ChainA.ChainID(), err)
	}

	c.logger.Printf("phase 4 (open_confirm on %s)", req.ChainB.ChainID())
	confirmProofs, err := c.channelProofs(ctx, req.ChainA, req.PortA)
	if err != nil {
		return fmt.Errorf("generate channel open_confirm proofs from %s: %w", req.ChainA.ChainID(), err)
	}
	if _, err := req.ChainB.SubmitTx(ctx, encode.OpenConfirm(req, confirmProofs)); err != nil {
		return fmt.Errorf("channel open_confirm on %s: %w", req.ChainB.ChainID(), err)
	}

	c.logger.Printf("channel handshake %s <-> %s complete", req.ChainA.ChainID(), req.ChainB.ChainID())
	return nil
}

// channelProofs fetches the channel-end proof for port on chain via the
// shared proof generator. ChannelRequest carries no separately-assigned
// channel id (mirroring how ConnectionRequest has none either), so the
// port name doubles as the channel's lookup key, consistent with this
// module's existing identifier conventions.
func (c *Coordinator) channelProofs(ctx context.Context, chain chainadapter.Adapter, port string) (ChannelProofs, error) {
	ch, err := c.proofs.ChannelProof(ctx, chain.ChainID(), port, port)
	if err != nil {
		return ChannelProofs{}, err
	}
	return ChannelProofs{Channel: ch}, nil
}
