package ics23

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
)

func applyHash(op HashOp, data []byte) ([]byte, error) {
	switch op {
	case HashOpNoHash:
		out := make([]byte, len(data))
		copy(out, data)
		return out, nil
	case HashOpSHA256:
		h := sha256.Sum256(data)
		return h[:], nil
	default:
		return nil, ErrUnsupportedHashOp
	}
}

// encodeVarint writes x as a protobuf-style unsigned varint.
func encodeVarint(x uint64) []byte {
	buf := make([]byte, binary.MaxVarintLen64)
	n := binary.PutUvarint(buf, x)
	return buf[:n]
}

// leafPreimage builds the bytes of a leaf node and returns their hash under
// leaf.Hash, which is the leaf node's hash. For LengthVarProto the bytes are
//
//	prefix || varint(len(key)) || key || varint(len(prehash(value))) || prehash(value)
//
// for LengthNoPrefix, key and value (each optionally prehashed) are
// concatenated with no length prefixes.
func leafPreimage(leaf LeafOp, key, value []byte) ([]byte, error) {
	pkey, err := applyHash(leaf.PrehashKey, key)
	if err != nil {
		return nil, err
	}
	pval, err := applyHash(leaf.PrehashValue, value)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.Write(leaf.Prefix)

	switch leaf.Length {
	case LengthVarProto:
		buf.Write(encodeVarint(uint64(len(pkey))))
		buf.Write(pkey)
		buf.Write(encodeVarint(uint64(len(pval))))
		buf.Write(pval)
	case LengthNoPrefix:
		buf.Write(pkey)
		buf.Write(pval)
	default:
		return nil, ErrUnsupportedLength
	}

	return applyHash(leaf.Hash, buf.Bytes())
}

// foldPath starts from the leaf hash and applies each InnerOp in order:
// h := hash(prefix || h || suffix). Returns the final folded hash.
func foldPath(start []byte, path []InnerOp) ([]byte, error) {
	h := start
	for _, op := range path {
		var buf bytes.Buffer
		buf.Write(op.Prefix)
		buf.Write(h)
		buf.Write(op.Suffix)
		next, err := applyHash(op.Hash, buf.Bytes())
		if err != nil {
			return nil, err
		}
		h = next
	}
	return h, nil
}

// calculateRoot computes the proof's implied root: leaf hash folded through
// the inner-op path. It never returns an error on unsupported ops discovered
// at the leaf or path stage other than via the sentinel errors, all of which
// the caller (verify.go) translates into a plain `false`.
func calculateRoot(ep *ExistenceProof) ([]byte, error) {
	leafHash, err := leafPreimage(ep.Leaf, ep.Key, ep.Value)
	if err != nil {
		return nil, err
	}
	return foldPath(leafHash, ep.Path)
}
