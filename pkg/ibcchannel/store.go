package ibcchannel

import (
	"fmt"
	"sync"

	"github.com/ibcx/tm-ibc-core/pkg/ibcconnection"
	"github.com/ibcx/tm-ibc-core/pkg/ics23"
	"github.com/ibcx/tm-ibc-core/pkg/lightclient"
)

// ClientReader is the subset of the light client the channel machine
// depends on to evaluate packet/handshake proofs and timeout timestamps
// against the counterparty's consensus states.
type ClientReader interface {
	VerifyMembership(clientID string, height lightclient.Height, key, value []byte, proof *ics23.CommitmentProof) bool
	VerifyNonMembership(clientID string, height lightclient.Height, key []byte, proof *ics23.CommitmentProof) bool
	GetConsensusState(clientID string, height lightclient.Height) (lightclient.ConsensusState, bool)
}

// ConnectionReader is the subset of the connection machine the channel
// machine depends on to check that connection_hops[0] references an OPEN
// connection. The connection's counterparty is not compared.
type ConnectionReader interface {
	Get(connectionID string) (ibcconnection.ConnectionEnd, bool)
}

// App is the application bound to a channel: it processes inbound packet
// data into an acknowledgement, and is notified of ack/timeout outcomes.
// ICS-20 and other application protocols implement this interface
// externally.
type App interface {
	OnRecvPacket(p Packet) Acknowledgement
	OnAcknowledgementPacket(p Packet, ack Acknowledgement)
	OnTimeoutPacket(p Packet)
}

type perChannelState struct {
	end               ChannelEnd
	nextSequenceSend  uint64
	nextSequenceRecv  uint64
	nextSequenceAck   uint64
	packetCommitments map[uint64][32]byte
	packetReceipts    map[uint64]struct{}
	packetAcks        map[uint64][32]byte
}

// Machine owns the (port,channel) -> ChannelEnd table plus the per-channel
// sequence counters and packet commitment/receipt/ack tables.
type Machine struct {
	mu       sync.Mutex
	channels map[channelKey]*perChannelState
	app      App
	sink     EventSink
	client   ClientReader
	conns    ConnectionReader
	now      func() (height lightclient.Height, unixNano uint64)
}

// NewMachine wires the channel machine to its application callback, event
// sink, light client, and connection table.
func NewMachine(app App, sink EventSink, client ClientReader, conns ConnectionReader, now func() (lightclient.Height, uint64)) *Machine {
	if sink == nil {
		sink = NopSink{}
	}
	return &Machine{
		channels: make(map[channelKey]*perChannelState),
		app:      app,
		sink:     sink,
		client:   client,
		conns:    conns,
		now:      now,
	}
}

func (m *Machine) get(port, channel string) (*perChannelState, bool) {
	s, ok := m.channels[channelKey{Port: port, Channel: channel}]
	return s, ok
}

// Get returns the ChannelEnd for (port, channel).
func (m *Machine) Get(port, channel string) (ChannelEnd, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.get(port, channel)
	if !ok {
		return ChannelEnd{}, false
	}
	return s.end, true
}

// Sequences returns the three counters for (port, channel); all three
// start at 1 on a freshly opened channel.
func (m *Machine) Sequences(port, channel string) (send, recv, ack uint64, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, found := m.get(port, channel)
	if !found {
		return 0, 0, 0, false
	}
	return s.nextSequenceSend, s.nextSequenceRecv, s.nextSequenceAck, true
}

// HasCommitment reports whether packet_commitments[sequence] exists.
func (m *Machine) HasCommitment(port, channel string, sequence uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.get(port, channel)
	if !ok {
		return false
	}
	_, ok = s.packetCommitments[sequence]
	return ok
}

// storage keys follow the lowercase, slash-separated IBC path convention.
func commitmentKey(port, channel string, seq uint64) []byte {
	return []byte(fmt.Sprintf("commitments/ports/%s/channels/%s/sequences/%d", port, channel, seq))
}

func ackKey(port, channel string, seq uint64) []byte {
	return []byte(fmt.Sprintf("acks/ports/%s/channels/%s/sequences/%d", port, channel, seq))
}

func receiptKey(port, channel string, seq uint64) []byte {
	return []byte(fmt.Sprintf("receipts/ports/%s/channels/%s/sequences/%d", port, channel, seq))
}

func nextSequenceRecvKey(port, channel string) []byte {
	return []byte(fmt.Sprintf("nextSequenceRecv/ports/%s/channels/%s", port, channel))
}

func channelEndKey(port, channel string) []byte {
	return []byte(fmt.Sprintf("channelEnds/ports/%s/channels/%s", port, channel))
}
