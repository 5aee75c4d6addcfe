// Copyright 2025 Certen Protocol
//
// Packet commitment hashing.
package ibcchannel

import (
	"crypto/sha256"
	"encoding/binary"
)

// commitPacket computes the canonical IBC packet commitment:
//
//	SHA-256(be64(timeout_timestamp) || be64(timeout_height.revision_number) ||
//	        be64(timeout_height.revision_height) || SHA-256(data))
func commitPacket(p Packet) [32]byte {
	dataHash := sha256.Sum256(p.Data)

	var buf [8*3 + 32]byte
	binary.BigEndian.PutUint64(buf[0:8], p.TimeoutTimestamp)
	binary.BigEndian.PutUint64(buf[8:16], p.TimeoutHeight.RevisionNumber)
	binary.BigEndian.PutUint64(buf[16:24], p.TimeoutHeight.RevisionHeight)
	copy(buf[24:], dataHash[:])

	return sha256.Sum256(buf[:])
}

// hashAck computes the persisted acknowledgement hash; only
// hash(ack_bytes) is ever stored.
func hashAck(ackBytes []byte) [32]byte {
	return sha256.Sum256(ackBytes)
}

// EncodeAcknowledgement produces the opaque on-wire bytes for an
// Acknowledgement. The tag byte distinguishes success from error but the
// channel layer never inspects it once hashed.
func EncodeAcknowledgement(ack Acknowledgement) []byte {
	tag := byte(0)
	if ack.Success {
		tag = 1
	}
	out := make([]byte, 0, len(ack.Data)+1)
	out = append(out, tag)
	return append(out, ack.Data...)
}
