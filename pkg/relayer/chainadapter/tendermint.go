// Copyright 2025 Certen Protocol
package chainadapter

import (
	"context"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	abci "github.com/cometbft/cometbft/abci/types"
	cmted "github.com/cometbft/cometbft/crypto/ed25519"
	rpcclient "github.com/cometbft/cometbft/rpc/client"
	cmthttp "github.com/cometbft/cometbft/rpc/client/http"
	coretypes "github.com/cometbft/cometbft/rpc/core/types"
	cmttypes "github.com/cometbft/cometbft/types"

	"github.com/ibcx/tm-ibc-core/pkg/ibcchannel"
	"github.com/ibcx/tm-ibc-core/pkg/ics23"
	"github.com/ibcx/tm-ibc-core/pkg/lightclient"
)

// TendermintAdapter drives a CometBFT/Tendermint chain over its RPC HTTP
// client.
type TendermintAdapter struct {
	chainID string
	client  *cmthttp.HTTP
	logger  *log.Logger
}

// NewTendermintAdapter dials rpcAddr (e.g. "tcp://127.0.0.1:26657").
func NewTendermintAdapter(chainID, rpcAddr string) (*TendermintAdapter, error) {
	client, err := cmthttp.New(rpcAddr, "/websocket")
	if err != nil {
		return nil, fmt.Errorf("create cometbft rpc client: %w", err)
	}
	return &TendermintAdapter{
		chainID: chainID,
		client:  client,
		logger:  log.New(os.Stdout, fmt.Sprintf("[TendermintAdapter-%s] ", chainID), log.LstdFlags),
	}, nil
}

func (a *TendermintAdapter) ChainID() string { return a.chainID }

func (a *TendermintAdapter) GetHeight(ctx context.Context) (lightclient.Height, error) {
	status, err := a.client.Status(ctx)
	if err != nil {
		return lightclient.Height{}, fmt.Errorf("query status: %w", err)
	}
	return lightclient.Height{RevisionNumber: revisionFromChainID(a.chainID), RevisionHeight: uint64(status.SyncInfo.LatestBlockHeight)}, nil
}

// GetHeader fetches the signed header and validator set at height and maps
// them into the light client's header form, the shape UpdateClient submits.
func (a *TendermintAdapter) GetHeader(ctx context.Context, height lightclient.Height) (lightclient.Header, error) {
	h := int64(height.RevisionHeight)
	commit, err := a.client.Commit(ctx, &h)
	if err != nil {
		return lightclient.Header{}, fmt.Errorf("query commit at height %d: %w", h, err)
	}
	vals, err := a.client.Validators(ctx, &h, nil, nil)
	if err != nil {
		return lightclient.Header{}, fmt.Errorf("query validators at height %d: %w", h, err)
	}

	header := lightclient.Header{
		ChainID: commit.Header.ChainID,
		Height:  height,
		Time:    commit.Header.Time,
	}
	copy(header.AppHash[:], commit.Header.AppHash)
	copy(header.ValidatorsHash[:], commit.Header.ValidatorsHash)
	copy(header.NextValidatorsHash[:], commit.Header.NextValidatorsHash)

	vs := &lightclient.ValidatorSet{}
	for _, v := range vals.Validators {
		var lv lightclient.Validator
		copy(lv.Address[:], v.Address)
		algo := lightclient.PubKeyAlgoEd25519
		if v.PubKey.Type() != cmted.KeyType {
			algo = lightclient.PubKeyAlgoSecp256k1
		}
		lv.PubKey = lightclient.PubKey{Algo: algo, Bytes: v.PubKey.Bytes()}
		lv.VotingPower = v.VotingPower
		vs.Validators = append(vs.Validators, lv)
	}
	header.ValidatorSet = vs
	header.TrustedValidators = vs

	c := &lightclient.Commit{Height: height, Round: commit.Commit.Round}
	copy(c.BlockHash[:], commit.Commit.BlockID.Hash)
	for _, sig := range commit.Commit.Signatures {
		var cs lightclient.CommitSig
		copy(cs.ValidatorAddress[:], sig.ValidatorAddress)
		cs.Signature = sig.Signature
		cs.Timestamp = sig.Timestamp
		c.Signatures = append(c.Signatures, cs)
	}
	header.Commit = c
	return header, nil
}

// GetEvents scans block results in [from, to] for canonical IBC events.
func (a *TendermintAdapter) GetEvents(ctx context.Context, from, to lightclient.Height) ([]RelayEvent, error) {
	var events []RelayEvent
	for h := from.RevisionHeight; h <= to.RevisionHeight; h++ {
		height := int64(h)
		results, err := a.client.BlockResults(ctx, &height)
		if err != nil {
			return nil, fmt.Errorf("block results at height %d: %w", h, err)
		}
		events = append(events, parseBlockResultEvents(results, h)...)
	}
	return events, nil
}

// SubscribeEvents opens a websocket subscription for tx events and decodes
// the canonical IBC event types out of them as they arrive.
func (a *TendermintAdapter) SubscribeEvents(ctx context.Context) (<-chan RelayEvent, error) {
	query := "tm.event='Tx'"
	out, err := a.client.Subscribe(ctx, fmt.Sprintf("relayer-%s", a.chainID), query)
	if err != nil {
		return nil, fmt.Errorf("subscribe to %s: %w", query, err)
	}
	events := make(chan RelayEvent, 64)
	go func() {
		defer close(events)
		for {
			select {
			case <-ctx.Done():
				return
			case result, ok := <-out:
				if !ok {
					return
				}
				txData, ok := result.Data.(cmttypes.EventDataTx)
				if !ok {
					continue
				}
				for _, ev := range txData.Result.Events {
					relayEvent, ok := parseRelayEvent(ev.Type, ev.Attributes, uint64(txData.Height))
					if !ok {
						continue
					}
					select {
					case events <- relayEvent:
					case <-ctx.Done():
						return
					}
				}
			}
		}
	}()
	return events, nil
}

// queryWithProof performs a proven ABCI query. The IBC store query handler
// returns the proof in either the length-delimited binary or the JSON wire
// form; UnmarshalCommitmentProof accepts both.
func (a *TendermintAdapter) queryWithProof(ctx context.Context, path string, key []byte) (ProofResult, error) {
	result, err := a.client.ABCIQueryWithOptions(ctx, path, key, rpcclient.ABCIQueryOptions{Prove: true})
	if err != nil {
		return ProofResult{}, fmt.Errorf("abci query %s: %w", path, err)
	}
	if result.Response.Code != 0 {
		return ProofResult{}, fmt.Errorf("abci query %s rejected: %s", path, result.Response.Log)
	}
	if result.Response.ProofOps == nil || len(result.Response.ProofOps.Ops) == 0 {
		return ProofResult{}, fmt.Errorf("abci query %s: no proof returned", path)
	}
	proof, err := ics23.UnmarshalCommitmentProof(result.Response.ProofOps.Ops[len(result.Response.ProofOps.Ops)-1].Data)
	if err != nil {
		return ProofResult{}, fmt.Errorf("decode proof for %s: %w", path, err)
	}
	return ProofResult{
		Value:       result.Response.Value,
		Proof:       proof,
		ProofHeight: lightclient.Height{RevisionNumber: revisionFromChainID(a.chainID), RevisionHeight: uint64(result.Response.Height)},
	}, nil
}

func (a *TendermintAdapter) QueryPacketCommitment(ctx context.Context, q CommitmentQuery) (ProofResult, error) {
	return a.queryWithProof(ctx, "/store/ibc/key", commitmentStoreKey(q.Port, q.Channel, q.Sequence))
}

func (a *TendermintAdapter) QueryPacketAck(ctx context.Context, q CommitmentQuery) (ProofResult, error) {
	return a.queryWithProof(ctx, "/store/ibc/key", ackStoreKey(q.Port, q.Channel, q.Sequence))
}

func (a *TendermintAdapter) QueryPacketReceipt(ctx context.Context, q CommitmentQuery) (ProofResult, error) {
	return a.queryWithProof(ctx, "/store/ibc/key", receiptStoreKey(q.Port, q.Channel, q.Sequence))
}

func (a *TendermintAdapter) QueryNextSequenceRecv(ctx context.Context, port, channel string) (ProofResult, error) {
	return a.queryWithProof(ctx, "/store/ibc/key", nextSeqRecvStoreKey(port, channel))
}

func (a *TendermintAdapter) QueryConnection(ctx context.Context, connectionID string) (ProofResult, error) {
	return a.queryWithProof(ctx, "/store/ibc/key", connectionStoreKey(connectionID))
}

func (a *TendermintAdapter) QueryClientState(ctx context.Context, clientID string) (ProofResult, error) {
	return a.queryWithProof(ctx, "/store/ibc/key", clientStateStoreKey(clientID))
}

func (a *TendermintAdapter) QueryConsensusState(ctx context.Context, clientID string, height lightclient.Height) (ProofResult, error) {
	return a.queryWithProof(ctx, "/store/ibc/key", consensusStateStoreKey(clientID, height))
}

func (a *TendermintAdapter) QueryChannel(ctx context.Context, port, channel string) (ProofResult, error) {
	return a.queryWithProof(ctx, "/store/ibc/key", channelStoreKey(port, channel))
}

func (a *TendermintAdapter) SubmitTx(ctx context.Context, tx []byte) (string, error) {
	result, err := a.client.BroadcastTxSync(ctx, tx)
	if err != nil {
		return "", fmt.Errorf("broadcast tx: %w", err)
	}
	if result.Code != 0 {
		return "", fmt.Errorf("tx rejected: %s", result.Log)
	}
	return result.Hash.String(), nil
}

func (a *TendermintAdapter) UpdateClient(ctx context.Context, clientID string, header lightclient.Header) (string, error) {
	return a.SubmitTx(ctx, encodeUpdateClientMsg(clientID, header))
}

func (a *TendermintAdapter) RecvPacket(ctx context.Context, p ibcchannel.Packet, proof ProofResult) (string, error) {
	return a.SubmitTx(ctx, encodeRecvPacketMsg(p, proof))
}

func (a *TendermintAdapter) AckPacket(ctx context.Context, p ibcchannel.Packet, ack ibcchannel.Acknowledgement, proof ProofResult) (string, error) {
	return a.SubmitTx(ctx, encodeAckPacketMsg(p, ack, proof))
}

func (a *TendermintAdapter) TimeoutPacket(ctx context.Context, p ibcchannel.Packet, proof ProofResult) (string, error) {
	return a.SubmitTx(ctx, encodeTimeoutPacketMsg(p, proof))
}

// revisionFromChainID extracts the IBC revision number from a
// "chain-N"-style chain id, defaulting to 0 when absent.
func revisionFromChainID(chainID string) uint64 {
	idx := strings.LastIndex(chainID, "-")
	if idx < 0 {
		return 0
	}
	var n uint64
	if _, err := fmt.Sscanf(chainID[idx+1:], "%d", &n); err != nil {
		return 0
	}
	return n
}

func commitmentStoreKey(port, channel string, seq uint64) []byte {
	return []byte(fmt.Sprintf("commitments/ports/%s/channels/%s/sequences/%d", port, channel, seq))
}

func ackStoreKey(port, channel string, seq uint64) []byte {
	return []byte(fmt.Sprintf("acks/ports/%s/channels/%s/sequences/%d", port, channel, seq))
}

func receiptStoreKey(port, channel string, seq uint64) []byte {
	return []byte(fmt.Sprintf("receipts/ports/%s/channels/%s/sequences/%d", port, channel, seq))
}

func nextSeqRecvStoreKey(port, channel string) []byte {
	return []byte(fmt.Sprintf("nextSequenceRecv/ports/%s/channels/%s", port, channel))
}

func connectionStoreKey(connectionID string) []byte {
	return []byte("connections/" + connectionID)
}

func clientStateStoreKey(clientID string) []byte {
	return []byte("clients/" + clientID + "/clientState")
}

func consensusStateStoreKey(clientID string, height lightclient.Height) []byte {
	return []byte(fmt.Sprintf("clients/%s/consensusStates/%s", clientID, height))
}

func channelStoreKey(port, channel string) []byte {
	return []byte(fmt.Sprintf("channelEnds/ports/%s/channels/%s", port, channel))
}

func parseBlockResultEvents(results *coretypes.ResultBlockResults, height uint64) []RelayEvent {
	var out []RelayEvent
	for _, txResult := range results.TxsResults {
		for _, ev := range txResult.Events {
			if relayEvent, ok := parseRelayEvent(ev.Type, ev.Attributes, height); ok {
				out = append(out, relayEvent)
			}
		}
	}
	return out
}

func decodeIBCEvent(eventType string, height uint64) (RelayEvent, bool) {
	var et ibcchannel.EventType
	switch eventType {
	case string(ibcchannel.EventSendPacket):
		et = ibcchannel.EventSendPacket
	case string(ibcchannel.EventRecvPacket):
		et = ibcchannel.EventRecvPacket
	case string(ibcchannel.EventAcknowledgePacket):
		et = ibcchannel.EventAcknowledgePacket
	case string(ibcchannel.EventTimeoutPacket):
		et = ibcchannel.EventTimeoutPacket
	default:
		return RelayEvent{}, false
	}
	return RelayEvent{Type: et, Height: lightclient.Height{RevisionHeight: height}}, true
}

// parseRelayEvent decodes a canonical IBC event's attributes into a typed
// RelayEvent (packet fields plus base64-encoded packet_data/packet_ack).
func parseRelayEvent(eventType string, attrs []abci.EventAttribute, height uint64) (RelayEvent, bool) {
	ev, ok := decodeIBCEvent(eventType, height)
	if !ok {
		return RelayEvent{}, false
	}
	for _, attr := range attrs {
		switch attr.Key {
		case "packet_sequence":
			ev.Packet.Sequence, _ = strconv.ParseUint(attr.Value, 10, 64)
		case "packet_src_port":
			ev.Packet.SrcPort = attr.Value
		case "packet_src_channel":
			ev.Packet.SrcChannel = attr.Value
		case "packet_dst_port":
			ev.Packet.DstPort = attr.Value
		case "packet_dst_channel":
			ev.Packet.DstChannel = attr.Value
		case "packet_data":
			ev.Packet.Data, _ = base64.StdEncoding.DecodeString(attr.Value)
		case "packet_timeout_height":
			ev.Packet.TimeoutHeight = parseHeightString(attr.Value)
		case "packet_timeout_timestamp":
			ev.Packet.TimeoutTimestamp, _ = strconv.ParseUint(attr.Value, 10, 64)
		case "packet_ack":
			ev.Ack, _ = base64.StdEncoding.DecodeString(attr.Value)
		}
	}
	return ev, true
}

// parseHeightString decodes the "revision-height" rendering of a Height.
func parseHeightString(s string) lightclient.Height {
	idx := strings.LastIndex(s, "-")
	if idx < 0 {
		return lightclient.Height{}
	}
	rev, err := strconv.ParseUint(s[:idx], 10, 64)
	if err != nil {
		return lightclient.Height{}
	}
	h, err := strconv.ParseUint(s[idx+1:], 10, 64)
	if err != nil {
		return lightclient.Height{}
	}
	return lightclient.Height{RevisionNumber: rev, RevisionHeight: h}
}

func encodeUpdateClientMsg(clientID string, header lightclient.Header) []byte {
	return []byte(fmt.Sprintf("update_client:%s:%s", clientID, hex.EncodeToString(header.ValidatorsHash[:])))
}

func encodeRecvPacketMsg(p ibcchannel.Packet, proof ProofResult) []byte {
	return []byte(fmt.Sprintf("recv_packet:%s/%s/%d:height=%s:proof=%s",
		p.DstPort, p.DstChannel, p.Sequence, proof.ProofHeight, encodeProofHex(proof.Proof)))
}

func encodeAckPacketMsg(p ibcchannel.Packet, ack ibcchannel.Acknowledgement, proof ProofResult) []byte {
	return []byte(fmt.Sprintf("acknowledge_packet:%s/%s/%d:height=%s:proof=%s",
		p.SrcPort, p.SrcChannel, p.Sequence, proof.ProofHeight, encodeProofHex(proof.Proof)))
}

func encodeTimeoutPacketMsg(p ibcchannel.Packet, proof ProofResult) []byte {
	return []byte(fmt.Sprintf("timeout_packet:%s/%s/%d:height=%s:proof=%s",
		p.SrcPort, p.SrcChannel, p.Sequence, proof.ProofHeight, encodeProofHex(proof.Proof)))
}

// encodeProofHex hex-encodes a proof's JSON wire form, the same
// representation queryWithProof decodes it from, so the destination chain
// can unmarshal it symmetrically.
func encodeProofHex(proof *ics23.CommitmentProof) string {
	if proof == nil {
		return ""
	}
	data, err := json.Marshal(proof)
	if err != nil {
		return ""
	}
	return hex.EncodeToString(data)
}
