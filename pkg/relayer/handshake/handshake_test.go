package handshake

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/ibcx/tm-ibc-core/pkg/ibcchannel"
	"github.com/ibcx/tm-ibc-core/pkg/lightclient"
	"github.com/ibcx/tm-ibc-core/pkg/relayer/chainadapter"
	"github.com/ibcx/tm-ibc-core/pkg/relayer/proofgen"
)

type fakeAdapter struct {
	chainID string
	submits []string
}

func (f *fakeAdapter) ChainID() string { return f.chainID }
func (f *fakeAdapter) GetHeight(ctx context.Context) (lightclient.Height, error) {
	return lightclient.Height{RevisionHeight: 1}, nil
}
func (f *fakeAdapter) GetHeader(ctx context.Context, height lightclient.Height) (lightclient.Header, error) {
	return lightclient.Header{Height: height}, nil
}
func (f *fakeAdapter) GetEvents(ctx context.Context, from, to lightclient.Height) ([]chainadapter.RelayEvent, error) {
	return nil, nil
}
func (f *fakeAdapter) SubscribeEvents(ctx context.Context) (<-chan chainadapter.RelayEvent, error) {
	return nil, nil
}
func (f *fakeAdapter) QueryPacketCommitment(ctx context.Context, q chainadapter.CommitmentQuery) (chainadapter.ProofResult, error) {
	return chainadapter.ProofResult{}, nil
}
func (f *fakeAdapter) QueryPacketAck(ctx context.Context, q chainadapter.CommitmentQuery) (chainadapter.ProofResult, error) {
	return chainadapter.ProofResult{}, nil
}
func (f *fakeAdapter) QueryPacketReceipt(ctx context.Context, q chainadapter.CommitmentQuery) (chainadapter.ProofResult, error) {
	return chainadapter.ProofResult{}, nil
}
func (f *fakeAdapter) QueryNextSequenceRecv(ctx context.Context, port, channel string) (chainadapter.ProofResult, error) {
	return chainadapter.ProofResult{}, nil
}
func (f *fakeAdapter) QueryConnection(ctx context.Context, connectionID string) (chainadapter.ProofResult, error) {
	return chainadapter.ProofResult{Value: []byte("connection:" + connectionID)}, nil
}
func (f *fakeAdapter) QueryClientState(ctx context.Context, clientID string) (chainadapter.ProofResult, error) {
	return chainadapter.ProofResult{Value: []byte("client_state:" + clientID)}, nil
}
func (f *fakeAdapter) QueryConsensusState(ctx context.Context, clientID string, height lightclient.Height) (chainadapter.ProofResult, error) {
	return chainadapter.ProofResult{Value: []byte("consensus_state:" + clientID)}, nil
}
func (f *fakeAdapter) QueryChannel(ctx context.Context, port, channel string) (chainadapter.ProofResult, error) {
	return chainadapter.ProofResult{Value: []byte("channel:" + port + "/" + channel)}, nil
}
func (f *fakeAdapter) SubmitTx(ctx context.Context, tx []byte) (string, error) {
	f.submits = append(f.submits, string(tx))
	return "0xdeadbeef", nil
}
func (f *fakeAdapter) UpdateClient(ctx context.Context, clientID string, header lightclient.Header) (string, error) {
	return "0xdeadbeef", nil
}
func (f *fakeAdapter) RecvPacket(ctx context.Context, p ibcchannel.Packet, proof chainadapter.ProofResult) (string, error) {
	return "", nil
}
func (f *fakeAdapter) AckPacket(ctx context.Context, p ibcchannel.Packet, ack ibcchannel.Acknowledgement, proof chainadapter.ProofResult) (string, error) {
	return "", nil
}
func (f *fakeAdapter) TimeoutPacket(ctx context.Context, p ibcchannel.Packet, proof chainadapter.ProofResult) (string, error) {
	return "", nil
}

type fixedConnectionEncoder struct{}

func (fixedConnectionEncoder) OpenInit(req ConnectionRequest) []byte { return []byte("open_init") }
func (fixedConnectionEncoder) OpenTry(req ConnectionRequest, proofs ConnectionProofs) []byte {
	return []byte("open_try:" + string(proofs.Connection.Value))
}
func (fixedConnectionEncoder) OpenAck(req ConnectionRequest, proofs ConnectionProofs) []byte {
	return []byte("open_ack:" + string(proofs.Connection.Value))
}
func (fixedConnectionEncoder) OpenConfirm(req ConnectionRequest, proofs ConnectionProofs) []byte {
	return []byte("open_confirm:" + string(proofs.Connection.Value))
}

type fixedChannelEncoder struct{}

func (fixedChannelEncoder) OpenInit(req ChannelRequest) []byte { return []byte("chan_open_init") }
func (fixedChannelEncoder) OpenTry(req ChannelRequest, proofs ChannelProofs) []byte {
	return []byte("chan_open_try:" + string(proofs.Channel.Value))
}
func (fixedChannelEncoder) OpenAck(req ChannelRequest, proofs ChannelProofs) []byte {
	return []byte("chan_open_ack:" + string(proofs.Channel.Value))
}
func (fixedChannelEncoder) OpenConfirm(req ChannelRequest, proofs ChannelProofs) []byte {
	return []byte("chan_open_confirm:" + string(proofs.Channel.Value))
}

func TestDriveConnectionSubmitsAllFourSteps(t *testing.T) {
	a := &fakeAdapter{chainID: "chain-a"}
	b := &fakeAdapter{chainID: "chain-b"}
	c := New(proofgen.New(time.Second, a, b))

	req := ConnectionRequest{ChainA: a, ChainB: b, ClientIDOnA: "07-tendermint-0", ClientIDOnB: "07-tendermint-0"}
	if err := c.DriveConnection(context.Background(), req, fixedConnectionEncoder{}); err != nil {
		t.Fatalf("DriveConnection: %v", err)
	}

	if len(a.submits) != 2 { // open_init, open_ack
		t.Fatalf("expected chain A to submit 2 txs (open_init, open_ack), got %v", a.submits)
	}
	if len(b.submits) != 2 { // open_try, open_confirm
		t.Fatalf("expected chain B to submit 2 txs (open_try, open_confirm), got %v", b.submits)
	}
	if a.submits[0] != "open_init" || a.submits[1] != "open_ack:connection:07-tendermint-0" {
		t.Fatalf("unexpected chain A submission order: %v", a.submits)
	}
	if b.submits[0] != "open_try:connection:07-tendermint-0" || b.submits[1] != "open_confirm:connection:07-tendermint-0" {
		t.Fatalf("unexpected chain B submission order: %v", b.submits)
	}
}

func TestDriveChannelSubmitsAllFourSteps(t *testing.T) {
	a := &fakeAdapter{chainID: "chain-a"}
	b := &fakeAdapter{chainID: "chain-b"}
	c := New(proofgen.New(time.Second, a, b))

	req := ChannelRequest{ChainA: a, ChainB: b, ConnectionID: "connection-0", PortA: "transfer", PortB: "transfer", Version: "ics20-1"}
	if err := c.DriveChannel(context.Background(), req, fixedChannelEncoder{}); err != nil {
		t.Fatalf("DriveChannel: %v", err)
	}

	if len(a.submits) != 2 || len(b.submits) != 2 {
		t.Fatalf("expected 2 submissions per chain, got a=%v b=%v", a.submits, b.submits)
	}
	if a.submits[1] != "chan_open_ack:channel:transfer/transfer" {
		t.Fatalf("expected open_ack to carry the channel proof, got %v", a.submits[1])
	}
	if b.submits[0] != "chan_open_try:channel:transfer/transfer" || b.submits[1] != "chan_open_confirm:channel:transfer/transfer" {
		t.Fatalf("expected open_try/open_confirm to carry the channel proof, got %v", b.submits)
	}
}

// TestDriveConnectionFailsWhenProofQueryErrors ensures a proof-generation
// failure aborts the handshake instead of silently submitting a step with
// no proof attached.
type erroringProofAdapter struct {
	fakeAdapter
}

func (e *erroringProofAdapter) QueryConnection(ctx context.Context, connectionID string) (chainadapter.ProofResult, error) {
	return chainadapter.ProofResult{}, fmt.Errorf("connection query failed")
}

func TestDriveConnectionFailsWhenProofQueryErrors(t *testing.T) {
	a := &erroringProofAdapter{fakeAdapter{chainID: "chain-a"}}
	b := &fakeAdapter{chainID: "chain-b"}
	c := New(proofgen.New(time.Second, a, b))

	req := ConnectionRequest{ChainA: a, ChainB: b, ClientIDOnA: "07-tendermint-0", ClientIDOnB: "07-tendermint-0"}
	if err := c.DriveConnection(context.Background(), req, fixedConnectionEncoder{}); err == nil {
		t.Fatal("expected DriveConnection to fail when a handshake proof cannot be generated")
	}
	if len(b.submits) != 0 {
		t.Fatalf("expected open_try to never be submitted without its proof, got %v", b.submits)
	}
}
