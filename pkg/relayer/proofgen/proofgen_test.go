package proofgen

import (
	"context"
	"testing"
	"time"

	"github.com/ibcx/tm-ibc-core/pkg/ibcchannel"
	"github.com/ibcx/tm-ibc-core/pkg/lightclient"
	"github.com/ibcx/tm-ibc-core/pkg/relayer/chainadapter"
)

// countingAdapter counts how many times each query hits the underlying
// chain, so the tests can observe cache behavior.
type countingAdapter struct {
	chainID string
	queries int
}

func (c *countingAdapter) ChainID() string { return c.chainID }
func (c *countingAdapter) GetHeight(ctx context.Context) (lightclient.Height, error) {
	return lightclient.Height{RevisionHeight: 1}, nil
}
func (c *countingAdapter) GetHeader(ctx context.Context, height lightclient.Height) (lightclient.Header, error) {
	return lightclient.Header{Height: height}, nil
}
func (c *countingAdapter) GetEvents(ctx context.Context, from, to lightclient.Height) ([]chainadapter.RelayEvent, error) {
	return nil, nil
}
func (c *countingAdapter) SubscribeEvents(ctx context.Context) (<-chan chainadapter.RelayEvent, error) {
	return nil, nil
}
func (c *countingAdapter) query() (chainadapter.ProofResult, error) {
	c.queries++
	return chainadapter.ProofResult{Value: []byte{0x01}, ProofHeight: lightclient.Height{RevisionHeight: uint64(c.queries)}}, nil
}
func (c *countingAdapter) QueryPacketCommitment(ctx context.Context, q chainadapter.CommitmentQuery) (chainadapter.ProofResult, error) {
	return c.query()
}
func (c *countingAdapter) QueryPacketAck(ctx context.Context, q chainadapter.CommitmentQuery) (chainadapter.ProofResult, error) {
	return c.query()
}
func (c *countingAdapter) QueryPacketReceipt(ctx context.Context, q chainadapter.CommitmentQuery) (chainadapter.ProofResult, error) {
	return c.query()
}
func (c *countingAdapter) QueryNextSequenceRecv(ctx context.Context, port, channel string) (chainadapter.ProofResult, error) {
	return c.query()
}
func (c *countingAdapter) QueryConnection(ctx context.Context, connectionID string) (chainadapter.ProofResult, error) {
	return c.query()
}
func (c *countingAdapter) QueryClientState(ctx context.Context, clientID string) (chainadapter.ProofResult, error) {
	return c.query()
}
func (c *countingAdapter) QueryConsensusState(ctx context.Context, clientID string, height lightclient.Height) (chainadapter.ProofResult, error) {
	return c.query()
}
func (c *countingAdapter) QueryChannel(ctx context.Context, port, channel string) (chainadapter.ProofResult, error) {
	return c.query()
}
func (c *countingAdapter) SubmitTx(ctx context.Context, tx []byte) (string, error) {
	return "", nil
}
func (c *countingAdapter) UpdateClient(ctx context.Context, clientID string, header lightclient.Header) (string, error) {
	return "", nil
}
func (c *countingAdapter) RecvPacket(ctx context.Context, p ibcchannel.Packet, proof chainadapter.ProofResult) (string, error) {
	return "", nil
}
func (c *countingAdapter) AckPacket(ctx context.Context, p ibcchannel.Packet, ack ibcchannel.Acknowledgement, proof chainadapter.ProofResult) (string, error) {
	return "", nil
}
func (c *countingAdapter) TimeoutPacket(ctx context.Context, p ibcchannel.Packet, proof chainadapter.ProofResult) (string, error) {
	return "", nil
}

func TestCommitmentProofIsCached(t *testing.T) {
	a := &countingAdapter{chainID: "chain-a"}
	g := New(time.Minute, a)

	first, err := g.CommitmentProof(context.Background(), "chain-a", "transfer", "channel-0", 1)
	if err != nil {
		t.Fatalf("first query: %v", err)
	}
	second, err := g.CommitmentProof(context.Background(), "chain-a", "transfer", "channel-0", 1)
	if err != nil {
		t.Fatalf("second query: %v", err)
	}
	if a.queries != 1 {
		t.Fatalf("expected one chain query for a repeated key within the TTL, got %d", a.queries)
	}
	if first.ProofHeight != second.ProofHeight {
		t.Fatalf("expected the cached result to be returned verbatim")
	}
}

func TestDistinctKeysAreNotShared(t *testing.T) {
	a := &countingAdapter{chainID: "chain-a"}
	g := New(time.Minute, a)

	if _, err := g.CommitmentProof(context.Background(), "chain-a", "transfer", "channel-0", 1); err != nil {
		t.Fatal(err)
	}
	if _, err := g.AckProof(context.Background(), "chain-a", "transfer", "channel-0", 1); err != nil {
		t.Fatal(err)
	}
	if _, err := g.CommitmentProof(context.Background(), "chain-a", "transfer", "channel-0", 2); err != nil {
		t.Fatal(err)
	}
	if a.queries != 3 {
		t.Fatalf("expected three chain queries for three distinct keys, got %d", a.queries)
	}
}

func TestInvalidateForcesRequery(t *testing.T) {
	a := &countingAdapter{chainID: "chain-a"}
	g := New(time.Minute, a)

	if _, err := g.CommitmentProof(context.Background(), "chain-a", "transfer", "channel-0", 1); err != nil {
		t.Fatal(err)
	}
	g.Invalidate("chain-a", PurposeCommitment, "transfer", "channel-0", 1)
	if _, err := g.CommitmentProof(context.Background(), "chain-a", "transfer", "channel-0", 1); err != nil {
		t.Fatal(err)
	}
	if a.queries != 2 {
		t.Fatalf("expected invalidation to force a second chain query, got %d", a.queries)
	}
}

func TestUnknownChainIsAnError(t *testing.T) {
	g := New(time.Minute)
	if _, err := g.CommitmentProof(context.Background(), "nope", "transfer", "channel-0", 1); err == nil {
		t.Fatal("expected an error for an unregistered chain")
	}
}
