// Copyright 2025 Certen Protocol
//
// Wire codec for CommitmentProof. Proofs arrive either as deterministic
// length-delimited binary (protobuf wire compatible, field numbers matching
// the ICS-23 schema) or as JSON; the verifier accepts both.
package ics23

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
)

// field numbers from the ICS-23 proto schema.
const (
	fieldProofExist      = 1
	fieldProofNonExist   = 2
	fieldProofBatch      = 3
	fieldProofCompressed = 4

	fieldExistKey   = 1
	fieldExistValue = 2
	fieldExistLeaf  = 3
	fieldExistPath  = 4

	fieldNonExistKey   = 1
	fieldNonExistLeft  = 2
	fieldNonExistRight = 3

	fieldLeafHash         = 1
	fieldLeafPrehashKey   = 2
	fieldLeafPrehashValue = 3
	fieldLeafLength       = 4
	fieldLeafPrefix       = 5

	fieldInnerHash   = 1
	fieldInnerPrefix = 2
	fieldInnerSuffix = 3

	fieldBatchEntries = 1

	fieldCompressedEntries = 1
	fieldCompressedLookup  = 2
)

const (
	wireVarint = 0
	wireBytes  = 2
)

// UnmarshalCommitmentProof decodes data into a CommitmentProof, accepting
// both the binary and the JSON wire form. JSON is detected by a leading
// '{' after optional whitespace.
func UnmarshalCommitmentProof(data []byte) (*CommitmentProof, error) {
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var proof CommitmentProof
		if err := json.Unmarshal(trimmed, &proof); err != nil {
			return nil, fmt.Errorf("decode json proof: %w", err)
		}
		return &proof, nil
	}
	return unmarshalProofBinary(data)
}

// fieldReader walks a length-delimited binary message field by field.
type fieldReader struct {
	buf []byte
	pos int
}

func (r *fieldReader) done() bool { return r.pos >= len(r.buf) }

// next returns the next field's number, wire type, and payload. Varint
// fields return the value in num form via val; bytes fields return the
// delimited payload.
func (r *fieldReader) next() (field int, wire int, val uint64, payload []byte, err error) {
	tag, n := binary.Uvarint(r.buf[r.pos:])
	if n <= 0 {
		return 0, 0, 0, nil, ErrMalformedProof
	}
	r.pos += n
	field = int(tag >> 3)
	wire = int(tag & 0x7)
	switch wire {
	case wireVarint:
		val, n = binary.Uvarint(r.buf[r.pos:])
		if n <= 0 {
			return 0, 0, 0, nil, ErrMalformedProof
		}
		r.pos += n
		return field, wire, val, nil, nil
	case wireBytes:
		length, n := binary.Uvarint(r.buf[r.pos:])
		if n <= 0 {
			return 0, 0, 0, nil, ErrMalformedProof
		}
		r.pos += n
		end := r.pos + int(length)
		if end < r.pos || end > len(r.buf) {
			return 0, 0, 0, nil, ErrMalformedProof
		}
		payload = r.buf[r.pos:end]
		r.pos = end
		return field, wire, 0, payload, nil
	default:
		return 0, 0, 0, nil, ErrMalformedProof
	}
}

func unmarshalProofBinary(data []byte) (*CommitmentProof, error) {
	r := &fieldReader{buf: data}
	proof := &CommitmentProof{}
	for !r.done() {
		field, wire, _, payload, err := r.next()
		if err != nil {
			return nil, err
		}
		if wire != wireBytes {
			return nil, ErrMalformedProof
		}
		switch field {
		case fieldProofExist:
			ep, err := unmarshalExistence(payload)
			if err != nil {
				return nil, err
			}
			proof.Existence = ep
		case fieldProofNonExist:
			np, err := unmarshalNonExistence(payload)
			if err != nil {
				return nil, err
			}
			proof.NonExistence = np
		case fieldProofBatch:
			entries, err := unmarshalBatch(payload)
			if err != nil {
				return nil, err
			}
			proof.Batch = entries
		case fieldProofCompressed:
			cp, err := unmarshalCompressed(payload)
			if err != nil {
				return nil, err
			}
			proof.Compressed = cp
		default:
			return nil, ErrMalformedProof
		}
	}
	return proof, nil
}

func unmarshalExistence(data []byte) (*ExistenceProof, error) {
	r := &fieldReader{buf: data}
	ep := &ExistenceProof{}
	for !r.done() {
		field, wire, _, payload, err := r.next()
		if err != nil {
			return nil, err
		}
		if wire != wireBytes {
			return nil, ErrMalformedProof
		}
		switch field {
		case fieldExistKey:
			ep.Key = append([]byte(nil), payload...)
		case fieldExistValue:
			ep.Value = append([]byte(nil), payload...)
		case fieldExistLeaf:
			leaf, err := unmarshalLeafOp(payload)
			if err != nil {
				return nil, err
			}
			ep.Leaf = leaf
		case fieldExistPath:
			op, err := unmarshalInnerOp(payload)
			if err != nil {
				return nil, err
			}
			ep.Path = append(ep.Path, op)
		default:
			return nil, ErrMalformedProof
		}
	}
	return ep, nil
}

func unmarshalNonExistence(data []byte) (*NonExistenceProof, error) {
	r := &fieldReader{buf: data}
	np := &NonExistenceProof{}
	for !r.done() {
		field, wire, _, payload, err := r.next()
		if err != nil {
			return nil, err
		}
		if wire != wireBytes {
			return nil, ErrMalformedProof
		}
		switch field {
		case fieldNonExistKey:
			np.Key = append([]byte(nil), payload...)
		case fieldNonExistLeft:
			ep, err := unmarshalExistence(payload)
			if err != nil {
				return nil, err
			}
			np.Left = ep
		case fieldNonExistRight:
			ep, err := unmarshalExistence(payload)
			if err != nil {
				return nil, err
			}
			np.Right = ep
		default:
			return nil, ErrMalformedProof
		}
	}
	return np, nil
}

func unmarshalLeafOp(data []byte) (LeafOp, error) {
	r := &fieldReader{buf: data}
	leaf := LeafOp{}
	for !r.done() {
		field, wire, val, payload, err := r.next()
		if err != nil {
			return LeafOp{}, err
		}
		switch {
		case field == fieldLeafHash && wire == wireVarint:
			leaf.Hash = HashOp(val)
		case field == fieldLeafPrehashKey && wire == wireVarint:
			leaf.PrehashKey = HashOp(val)
		case field == fieldLeafPrehashValue && wire == wireVarint:
			leaf.PrehashValue = HashOp(val)
		case field == fieldLeafLength && wire == wireVarint:
			leaf.Length = LengthOp(val)
		case field == fieldLeafPrefix && wire == wireBytes:
			leaf.Prefix = append([]byte(nil), payload...)
		default:
			return LeafOp{}, ErrMalformedProof
		}
	}
	return leaf, nil
}

func unmarshalInnerOp(data []byte) (InnerOp, error) {
	r := &fieldReader{buf: data}
	op := InnerOp{}
	for !r.done() {
		field, wire, val, payload, err := r.next()
		if err != nil {
			return InnerOp{}, err
		}
		switch {
		case field == fieldInnerHash && wire == wireVarint:
			op.Hash = HashOp(val)
		case field == fieldInnerPrefix && wire == wireBytes:
			op.Prefix = append([]byte(nil), payload...)
		case field == fieldInnerSuffix && wire == wireBytes:
			op.Suffix = append([]byte(nil), payload...)
		default:
			return InnerOp{}, ErrMalformedProof
		}
	}
	return op, nil
}

func unmarshalBatch(data []byte) ([]BatchEntry, error) {
	r := &fieldReader{buf: data}
	var entries []BatchEntry
	for !r.done() {
		field, wire, _, payload, err := r.next()
		if err != nil {
			return nil, err
		}
		if field != fieldBatchEntries || wire != wireBytes {
			return nil, ErrMalformedProof
		}
		entry, err := unmarshalBatchEntry(payload)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func unmarshalBatchEntry(data []byte) (BatchEntry, error) {
	r := &fieldReader{buf: data}
	entry := BatchEntry{}
	for !r.done() {
		field, wire, _, payload, err := r.next()
		if err != nil {
			return BatchEntry{}, err
		}
		if wire != wireBytes {
			return BatchEntry{}, ErrMalformedProof
		}
		switch field {
		case fieldProofExist:
			ep, err := unmarshalExistence(payload)
			if err != nil {
				return BatchEntry{}, err
			}
			entry.Existence = ep
		case fieldProofNonExist:
			np, err := unmarshalNonExistence(payload)
			if err != nil {
				return BatchEntry{}, err
			}
			entry.NonExistence = np
		default:
			return BatchEntry{}, ErrMalformedProof
		}
	}
	return entry, nil
}

func unmarshalCompressed(data []byte) (*CompressedBatchProof, error) {
	r := &fieldReader{buf: data}
	cp := &CompressedBatchProof{}
	for !r.done() {
		field, wire, _, payload, err := r.next()
		if err != nil {
			return nil, err
		}
		if wire != wireBytes {
			return nil, ErrMalformedProof
		}
		switch field {
		case fieldCompressedEntries:
			entry, err := unmarshalCompressedEntry(payload)
			if err != nil {
				return nil, err
			}
			cp.Entries = append(cp.Entries, entry)
		case fieldCompressedLookup:
			op, err := unmarshalInnerOp(payload)
			if err != nil {
				return nil, err
			}
			cp.LookupInner = append(cp.LookupInner, op)
		default:
			return nil, ErrMalformedProof
		}
	}
	return cp, nil
}

func unmarshalCompressedEntry(data []byte) (CompressedBatchEntry, error) {
	r := &fieldReader{buf: data}
	entry := CompressedBatchEntry{}
	for !r.done() {
		field, wire, _, payload, err := r.next()
		if err != nil {
			return CompressedBatchEntry{}, err
		}
		if wire != wireBytes {
			return CompressedBatchEntry{}, ErrMalformedProof
		}
		switch field {
		case fieldProofExist:
			ep, err := unmarshalCompressedExistence(payload)
			if err != nil {
				return CompressedBatchEntry{}, err
			}
			entry.Existence = ep
		case fieldProofNonExist:
			np, err := unmarshalCompressedNonExistence(payload)
			if err != nil {
				return CompressedBatchEntry{}, err
			}
			entry.NonExistence = np
		default:
			return CompressedBatchEntry{}, ErrMalformedProof
		}
	}
	return entry, nil
}

func unmarshalCompressedExistence(data []byte) (*CompressedExistenceProof, error) {
	r := &fieldReader{buf: data}
	ep := &CompressedExistenceProof{}
	for !r.done() {
		field, wire, _, payload, err := r.next()
		if err != nil {
			return nil, err
		}
		if wire != wireBytes {
			return nil, ErrMalformedProof
		}
		switch field {
		case fieldExistKey:
			ep.Key = append([]byte(nil), payload...)
		case fieldExistValue:
			ep.Value = append([]byte(nil), payload...)
		case fieldExistLeaf:
			leaf, err := unmarshalLeafOp(payload)
			if err != nil {
				return nil, err
			}
			ep.Leaf = leaf
		case fieldExistPath:
			// packed repeated int32 indices into the lookup table.
			pr := &fieldReader{buf: payload}
			for pr.pos < len(pr.buf) {
				idx, n := binary.Uvarint(pr.buf[pr.pos:])
				if n <= 0 {
					return nil, ErrMalformedProof
				}
				pr.pos += n
				ep.Path = append(ep.Path, int32(idx))
			}
		default:
			return nil, ErrMalformedProof
		}
	}
	return ep, nil
}

func unmarshalCompressedNonExistence(data []byte) (*CompressedNonExistenceProof, error) {
	r := &fieldReader{buf: data}
	np := &CompressedNonExistenceProof{}
	for !r.done() {
		field, wire, _, payload, err := r.next()
		if err != nil {
			return nil, err
		}
		if wire != wireBytes {
			return nil, ErrMalformedProof
		}
		switch field {
		case fieldNonExistKey:
			np.Key = append([]byte(nil), payload...)
		case fieldNonExistLeft:
			ep, err := unmarshalCompressedExistence(payload)
			if err != nil {
				return nil, err
			}
			np.Left = ep
		case fieldNonExistRight:
			ep, err := unmarshalCompressedExistence(payload)
			if err != nil {
				return nil, err
			}
			np.Right = ep
		default:
			return nil, ErrMalformedProof
		}
	}
	return np, nil
}

// fieldWriter builds the deterministic binary form: fields are emitted in
// ascending field-number order with minimal varints, so equal proofs encode
// to equal bytes.
type fieldWriter struct {
	buf bytes.Buffer
}

func (w *fieldWriter) varint(field int, val uint64) {
	var tmp [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(tmp[:], uint64(field)<<3|wireVarint)
	w.buf.Write(tmp[:n])
	n = binary.PutUvarint(tmp[:], val)
	w.buf.Write(tmp[:n])
}

func (w *fieldWriter) bytes(field int, payload []byte) {
	var tmp [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(tmp[:], uint64(field)<<3|wireBytes)
	w.buf.Write(tmp[:n])
	n = binary.PutUvarint(tmp[:], uint64(len(payload)))
	w.buf.Write(tmp[:n])
	w.buf.Write(payload)
}

// MarshalCommitmentProof encodes proof in the deterministic binary form
// UnmarshalCommitmentProof accepts.
func MarshalCommitmentProof(proof *CommitmentProof) ([]byte, error) {
	if proof == nil {
		return nil, ErrMalformedProof
	}
	w := &fieldWriter{}
	switch {
	case proof.Existence != nil:
		w.bytes(fieldProofExist, marshalExistence(proof.Existence))
	case proof.NonExistence != nil:
		w.bytes(fieldProofNonExist, marshalNonExistence(proof.NonExistence))
	case proof.Batch != nil:
		batch := &fieldWriter{}
		for _, entry := range proof.Batch {
			batch.bytes(fieldBatchEntries, marshalBatchEntry(entry))
		}
		w.bytes(fieldProofBatch, batch.buf.Bytes())
	case proof.Compressed != nil:
		w.bytes(fieldProofCompressed, marshalCompressed(proof.Compressed))
	default:
		return nil, ErrMalformedProof
	}
	return w.buf.Bytes(), nil
}

func marshalExistence(ep *ExistenceProof) []byte {
	w := &fieldWriter{}
	w.bytes(fieldExistKey, ep.Key)
	w.bytes(fieldExistValue, ep.Value)
	w.bytes(fieldExistLeaf, marshalLeafOp(ep.Leaf))
	for _, op := range ep.Path {
		w.bytes(fieldExistPath, marshalInnerOp(op))
	}
	return w.buf.Bytes()
}

func marshalNonExistence(np *NonExistenceProof) []byte {
	w := &fieldWriter{}
	w.bytes(fieldNonExistKey, np.Key)
	if np.Left != nil {
		w.bytes(fieldNonExistLeft, marshalExistence(np.Left))
	}
	if np.Right != nil {
		w.bytes(fieldNonExistRight, marshalExistence(np.Right))
	}
	return w.buf.Bytes()
}

func marshalBatchEntry(entry BatchEntry) []byte {
	w := &fieldWriter{}
	if entry.Existence != nil {
		w.bytes(fieldProofExist, marshalExistence(entry.Existence))
	} else if entry.NonExistence != nil {
		w.bytes(fieldProofNonExist, marshalNonExistence(entry.NonExistence))
	}
	return w.buf.Bytes()
}

func marshalLeafOp(leaf LeafOp) []byte {
	w := &fieldWriter{}
	w.varint(fieldLeafHash, uint64(leaf.Hash))
	w.varint(fieldLeafPrehashKey, uint64(leaf.PrehashKey))
	w.varint(fieldLeafPrehashValue, uint64(leaf.PrehashValue))
	w.varint(fieldLeafLength, uint64(leaf.Length))
	if len(leaf.Prefix) > 0 {
		w.bytes(fieldLeafPrefix, leaf.Prefix)
	}
	return w.buf.Bytes()
}

func marshalInnerOp(op InnerOp) []byte {
	w := &fieldWriter{}
	w.varint(fieldInnerHash, uint64(op.Hash))
	if len(op.Prefix) > 0 {
		w.bytes(fieldInnerPrefix, op.Prefix)
	}
	if len(op.Suffix) > 0 {
		w.bytes(fieldInnerSuffix, op.Suffix)
	}
	return w.buf.Bytes()
}

func marshalCompressed(cp *CompressedBatchProof) []byte {
	w := &fieldWriter{}
	for _, entry := range cp.Entries {
		w.bytes(fieldCompressedEntries, marshalCompressedEntry(entry))
	}
	for _, op := range cp.LookupInner {
		w.bytes(fieldCompressedLookup, marshalInnerOp(op))
	}
	return w.buf.Bytes()
}

func marshalCompressedEntry(entry CompressedBatchEntry) []byte {
	w := &fieldWriter{}
	if entry.Existence != nil {
		w.bytes(fieldProofExist, marshalCompressedExistence(entry.Existence))
	} else if entry.NonExistence != nil {
		np := &fieldWriter{}
		np.bytes(fieldNonExistKey, entry.NonExistence.Key)
		if entry.NonExistence.Left != nil {
			np.bytes(fieldNonExistLeft, marshalCompressedExistence(entry.NonExistence.Left))
		}
		if entry.NonExistence.Right != nil {
			np.bytes(fieldNonExistRight, marshalCompressedExistence(entry.NonExistence.Right))
		}
		w.bytes(fieldProofNonExist, np.buf.Bytes())
	}
	return w.buf.Bytes()
}

func marshalCompressedExistence(ep *CompressedExistenceProof) []byte {
	w := &fieldWriter{}
	w.bytes(fieldExistKey, ep.Key)
	w.bytes(fieldExistValue, ep.Value)
	w.bytes(fieldExistLeaf, marshalLeafOp(ep.Leaf))
	if len(ep.Path) > 0 {
		packed := &fieldWriter{}
		var tmp [binary.MaxVarintLen64]byte
		for _, idx := range ep.Path {
			n := binary.PutUvarint(tmp[:], uint64(uint32(idx)))
			packed.buf.Write(tmp[:n])
		}
		w.bytes(fieldExistPath, packed.buf.Bytes())
	}
	return w.buf.Bytes()
}
