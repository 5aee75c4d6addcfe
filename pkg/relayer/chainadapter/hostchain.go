// Copyright 2025 Certen Protocol
package chainadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"time"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/ibcx/tm-ibc-core/pkg/ibcchannel"
	"github.com/ibcx/tm-ibc-core/pkg/ics23"
	"github.com/ibcx/tm-ibc-core/pkg/lightclient"
)

// ibcLogTopic is the event signature hash the host-chain IBC contract emits
// for every canonical IBC event, carrying the JSON-encoded payload in the
// log data.
var ibcLogTopic = crypto.Keccak256Hash([]byte("IBCEvent(string,bytes)"))

// HostChainAdapter drives an EVM host chain holding the counterparty IBC
// module as a contract.
type HostChainAdapter struct {
	chainID  string
	client   *ethclient.Client
	contract common.Address
}

// NewHostChainAdapter dials url and targets the IBC contract at contract.
func NewHostChainAdapter(chainID, url string, contract common.Address) (*HostChainAdapter, error) {
	client, err := ethclient.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connect to host chain %s: %w", chainID, err)
	}
	return &HostChainAdapter{chainID: chainID, client: client, contract: contract}, nil
}

func (a *HostChainAdapter) ChainID() string { return a.chainID }

func (a *HostChainAdapter) GetHeight(ctx context.Context) (lightclient.Height, error) {
	header, err := a.client.HeaderByNumber(ctx, nil)
	if err != nil {
		return lightclient.Height{}, fmt.Errorf("get host chain header: %w", err)
	}
	return lightclient.Height{RevisionNumber: 0, RevisionHeight: header.Number.Uint64()}, nil
}

// GetHeader maps the EVM block header at height into the light client's
// header form: the state root plays the commitment-root role and there is
// no validator commit to carry.
func (a *HostChainAdapter) GetHeader(ctx context.Context, height lightclient.Height) (lightclient.Header, error) {
	header, err := a.client.HeaderByNumber(ctx, new(big.Int).SetUint64(height.RevisionHeight))
	if err != nil {
		return lightclient.Header{}, fmt.Errorf("get host chain header at %d: %w", height.RevisionHeight, err)
	}
	out := lightclient.Header{
		ChainID: a.chainID,
		Height:  height,
		Time:    time.Unix(int64(header.Time), 0).UTC(),
	}
	copy(out.AppHash[:], header.Root[:])
	return out, nil
}

func (a *HostChainAdapter) GetEvents(ctx context.Context, from, to lightclient.Height) ([]RelayEvent, error) {
	query := ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(from.RevisionHeight),
		ToBlock:   new(big.Int).SetUint64(to.RevisionHeight),
		Addresses: []common.Address{a.contract},
		Topics:    [][]common.Hash{{ibcLogTopic}},
	}
	logs, err := a.client.FilterLogs(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("filter host chain logs: %w", err)
	}
	out := make([]RelayEvent, 0, len(logs))
	for _, l := range logs {
		ev, ok := decodeHostChainLog(l)
		if ok {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (a *HostChainAdapter) SubscribeEvents(ctx context.Context) (<-chan RelayEvent, error) {
	query := ethereum.FilterQuery{
		Addresses: []common.Address{a.contract},
		Topics:    [][]common.Hash{{ibcLogTopic}},
	}
	logsCh := make(chan types.Log, 64)
	sub, err := a.client.SubscribeFilterLogs(ctx, query, logsCh)
	if err != nil {
		return nil, fmt.Errorf("subscribe host chain logs: %w", err)
	}
	events := make(chan RelayEvent, 64)
	go func() {
		defer close(events)
		defer sub.Unsubscribe()
		for {
			select {
			case <-ctx.Done():
				return
			case err := <-sub.Err():
				if err != nil {
					return
				}
			case l := <-logsCh:
				if ev, ok := decodeHostChainLog(l); ok {
					select {
					case events <- ev:
					case <-ctx.Done():
						return
					}
				}
			}
		}
	}()
	return events, nil
}

func decodeHostChainLog(l types.Log) (RelayEvent, bool) {
	var payload struct {
		Kind   string            `json:"kind"`
		Packet ibcchannel.Packet `json:"packet"`
	}
	if err := json.Unmarshal(l.Data, &payload); err != nil {
		return RelayEvent{}, false
	}
	et, ok := decodeIBCEvent(payload.Kind, l.BlockNumber)
	if !ok {
		return RelayEvent{}, false
	}
	et.Packet = payload.Packet
	et.TxHash = l.TxHash.Hex()
	return et, true
}

// callContract runs a read-only contract call via CallContract and returns
// the raw return data, used for state/proof queries.
func (a *HostChainAdapter) callContract(ctx context.Context, data []byte) ([]byte, error) {
	msg := ethereum.CallMsg{To: &a.contract, Data: data}
	return a.client.CallContract(ctx, msg, nil)
}

func (a *HostChainAdapter) queryWithProof(ctx context.Context, key []byte) (ProofResult, error) {
	raw, err := a.callContract(ctx, key)
	if err != nil {
		return ProofResult{}, fmt.Errorf("query host chain contract: %w", err)
	}
	var result struct {
		Value []byte                `json:"value"`
		Proof ics23.CommitmentProof `json:"proof"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return ProofResult{}, fmt.Errorf("decode host chain proof response: %w", err)
	}
	height, err := a.GetHeight(ctx)
	if err != nil {
		return ProofResult{}, err
	}
	return ProofResult{Value: result.Value, Proof: &result.Proof, ProofHeight: height}, nil
}

func (a *HostChainAdapter) QueryPacketCommitment(ctx context.Context, q CommitmentQuery) (ProofResult, error) {
	return a.queryWithProof(ctx, commitmentStoreKey(q.Port, q.Channel, q.Sequence))
}

func (a *HostChainAdapter) QueryPacketAck(ctx context.Context, q CommitmentQuery) (ProofResult, error) {
	return a.queryWithProof(ctx, ackStoreKey(q.Port, q.Channel, q.Sequence))
}

func (a *HostChainAdapter) QueryPacketReceipt(ctx context.Context, q CommitmentQuery) (ProofResult, error) {
	return a.queryWithProof(ctx, receiptStoreKey(q.Port, q.Channel, q.Sequence))
}

func (a *HostChainAdapter) QueryNextSequenceRecv(ctx context.Context, port, channel string) (ProofResult, error) {
	return a.queryWithProof(ctx, nextSeqRecvStoreKey(port, channel))
}

func (a *HostChainAdapter) QueryConnection(ctx context.Context, connectionID string) (ProofResult, error) {
	return a.queryWithProof(ctx, connectionStoreKey(connectionID))
}

func (a *HostChainAdapter) QueryClientState(ctx context.Context, clientID string) (ProofResult, error) {
	return a.queryWithProof(ctx, clientStateStoreKey(clientID))
}

func (a *HostChainAdapter) QueryConsensusState(ctx context.Context, clientID string, height lightclient.Height) (ProofResult, error) {
	return a.queryWithProof(ctx, consensusStateStoreKey(clientID, height))
}

func (a *HostChainAdapter) QueryChannel(ctx context.Context, port, channel string) (ProofResult, error) {
	return a.queryWithProof(ctx, channelStoreKey(port, channel))
}

func (a *HostChainAdapter) SubmitTx(ctx context.Context, tx []byte) (string, error) {
	var signed types.Transaction
	if err := signed.UnmarshalBinary(tx); err != nil {
		return "", fmt.Errorf("decode signed tx: %w", err)
	}
	if err := a.client.SendTransaction(ctx, &signed); err != nil {
		return "", fmt.Errorf("send tx: %w", err)
	}
	return signed.Hash().Hex(), nil
}

func (a *HostChainAdapter) UpdateClient(ctx context.Context, clientID string, header lightclient.Header) (string, error) {
	return "", fmt.Errorf("host chain adapter: update_client must be submitted via a pre-signed transaction from SubmitTx")
}

func (a *HostChainAdapter) RecvPacket(ctx context.Context, p ibcchannel.Packet, proof ProofResult) (string, error) {
	return "", fmt.Errorf("host chain adapter: recv_packet must be submitted via a pre-signed transaction from SubmitTx")
}

func (a *HostChainAdapter) AckPacket(ctx context.Context, p ibcchannel.Packet, ack ibcchannel.Acknowledgement, proof ProofResult) (string, error) {
	return "", fmt.Errorf("host chain adapter: acknowledge_packet must be submitted via a pre-signed transaction from SubmitTx")
}

func (a *HostChainAdapter) TimeoutPacket(ctx context.Context, p ibcchannel.Packet, proof ProofResult) (string, error) {
	return "", fmt.Errorf("host chain adapter: timeout_packet must be submitted via a pre-signed transaction from SubmitTx")
}
