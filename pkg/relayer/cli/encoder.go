// Copyright 2025 Certen Protocol
package cli

import (
	"encoding/json"

	"github.com/ibcx/tm-ibc-core/pkg/relayer/handshake"
)

// jsonConnectionEncoder and jsonChannelEncoder render each handshake step
// as a JSON envelope. A production deployment would substitute a
// chain-specific proto or ABI encoder satisfying the same
// handshake.ConnectionMsgEncoder/ChannelMsgEncoder interfaces.
type jsonConnectionEncoder struct{}

type connectionMsg struct {
	Step        string                      `json:"step"`
	ClientIDOnA string                      `json:"client_id_on_a"`
	ClientIDOnB string                      `json:"client_id_on_b"`
	Proofs      *handshake.ConnectionProofs `json:"proofs,omitempty"`
}

func (jsonConnectionEncoder) OpenInit(req handshake.ConnectionRequest) []byte {
	return marshalOrPanic(connectionMsg{Step: "connection_open_init", ClientIDOnA: req.ClientIDOnA, ClientIDOnB: req.ClientIDOnB})
}

func (jsonConnectionEncoder) OpenTry(req handshake.ConnectionRequest, proofs handshake.ConnectionProofs) []byte {
	return marshalOrPanic(connectionMsg{Step: "connection_open_try", ClientIDOnA: req.ClientIDOnA, ClientIDOnB: req.ClientIDOnB, Proofs: &proofs})
}

func (jsonConnectionEncoder) OpenAck(req handshake.ConnectionRequest, proofs handshake.ConnectionProofs) []byte {
	return marshalOrPanic(connectionMsg{Step: "connection_open_ack", ClientIDOnA: req.ClientIDOnA, ClientIDOnB: req.ClientIDOnB, Proofs: &proofs})
}

func (jsonConnectionEncoder) OpenConfirm(req handshake.ConnectionRequest, proofs handshake.ConnectionProofs) []byte {
	return marshalOrPanic(connectionMsg{Step: "connection_open_confirm", ClientIDOnA: req.ClientIDOnA, ClientIDOnB: req.ClientIDOnB, Proofs: &proofs})
}

type jsonChannelEncoder struct{}

type channelMsg struct {
	Step         string                   `json:"step"`
	ConnectionID string                   `json:"connection_id"`
	PortA        string                   `json:"port_a"`
	PortB        string                   `json:"port_b"`
	Version      string                   `json:"version"`
	Ordered      bool                     `json:"ordered"`
	Proofs       *handshake.ChannelProofs `json:"proofs,omitempty"`
}

func (jsonChannelEncoder) encode(step string, req handshake.ChannelRequest, proofs *handshake.ChannelProofs) []byte {
	return marshalOrPanic(channelMsg{
		Step:         step,
		ConnectionID: req.ConnectionID,
		PortA:        req.PortA,
		PortB:        req.PortB,
		Version:      req.Version,
		Ordered:      req.Ordered,
		Proofs:       proofs,
	})
}

func (e jsonChannelEncoder) OpenInit(req handshake.ChannelRequest) []byte {
	return e.encode("channel_open_init", req, nil)
}

func (e jsonChannelEncoder) OpenTry(req handshake.ChannelRequest, proofs handshake.ChannelProofs) []byte {
	return e.encode("channel_open_try", req, &proofs)
}

func (e jsonChannelEncoder) OpenAck(req handshake.ChannelRequest, proofs handshake.ChannelProofs) []byte {
	return e.encode("channel_open_ack", req, &proofs)
}

func (e jsonChannelEncoder) OpenConfirm(req handshake.ChannelRequest, proofs handshake.ChannelProofs) []byte {
	return e.encode("channel_open_confirm", req, &proofs)
}

func marshalOrPanic(v interface{}) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return data
}
