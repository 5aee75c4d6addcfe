package ics23

import "crypto/sha256"

// buildTestIAVLTree constructs a minimal binary Merkle tree over sorted
// (key,value) pairs using the IAVL leaf/inner conventions from spec.go, and
// returns the root plus an ExistenceProof for every leaf. Inner nodes hash
//
//	varint(height) || varint(size) || varint(version) || 0x20 || left || 0x20 || right
//
// so every emitted InnerOp prefix starts with the three metadata bytes and
// the first 0x20 length byte, the four bytes that
// IAVLProofSpec.InnerSpec.MinPrefixLength requires, and each 32-byte child
// hash is preceded by its 0x20 length byte. It
// exists only to produce self-consistent fixtures for the property tests;
// it does not attempt real AVL balancing since the verifier only cares
// about the proof shape, not how the tree producing it was balanced.
type testLeaf struct {
	key, value []byte
	hash       []byte
}

// innerMeta is the height/size/version varint metadata for an inner node at
// the given level above the leaves. Values stay below 0x80 so each encodes
// as a single varint byte; size is fixed since the verifier never reads it.
func innerMeta(level int) []byte {
	return []byte{byte(2 * level), 0x04, 0x02}
}

const childLenByte = 0x20 // length prefix of a 32-byte child hash

func buildTestIAVLTree(pairs [][2]string) (root []byte, proofs map[string]*ExistenceProof) {
	leaves := make([]testLeaf, len(pairs))
	for i, kv := range pairs {
		key, value := []byte(kv[0]), []byte(kv[1])
		h, err := leafPreimage(IAVLProofSpec.LeafSpec, key, value)
		if err != nil {
			panic(err)
		}
		leaves[i] = testLeaf{key: key, value: value, hash: h}
	}

	level := make([][]byte, len(leaves))
	for i, l := range leaves {
		level[i] = l.hash
	}

	// paths[i] accumulates the InnerOps for leaf i as we climb levels.
	paths := make([][]InnerOp, len(leaves))

	depth := 0
	for len(level) > 1 {
		depth++
		meta := innerMeta(depth)

		var next [][]byte
		for i := 0; i < len(level); i += 2 {
			left := level[i]
			if i+1 >= len(level) {
				// Lone node at this level carries up unchanged; no new
				// InnerOp for any leaf under it.
				next = append(next, left)
				continue
			}
			right := level[i+1]

			preimage := make([]byte, 0, len(meta)+2+len(left)+len(right))
			preimage = append(preimage, meta...)
			preimage = append(preimage, childLenByte)
			preimage = append(preimage, left...)
			preimage = append(preimage, childLenByte)
			preimage = append(preimage, right...)
			parentHash := sha256.Sum256(preimage)
			next = append(next, parentHash[:])

			leftPrefix := make([]byte, 0, len(meta)+1)
			leftPrefix = append(leftPrefix, meta...)
			leftPrefix = append(leftPrefix, childLenByte)
			leftSuffix := append([]byte{childLenByte}, right...)

			rightPrefix := make([]byte, 0, len(meta)+2+len(left))
			rightPrefix = append(rightPrefix, meta...)
			rightPrefix = append(rightPrefix, childLenByte)
			rightPrefix = append(rightPrefix, left...)
			rightPrefix = append(rightPrefix, childLenByte)

			// Record inner ops for every original leaf under this pair.
			for leafIdx := range leaves {
				// Determine if leafIdx currently sits at position i or i+1
				// of `level` by re-deriving its current hash from its
				// accumulated path so far.
				cur, err := foldPath(leaves[leafIdx].hash, paths[leafIdx])
				if err != nil {
					panic(err)
				}
				switch {
				case bytesEqual(cur, left):
					paths[leafIdx] = append(paths[leafIdx], InnerOp{Hash: HashOpSHA256, Prefix: leftPrefix, Suffix: leftSuffix})
				case bytesEqual(cur, right):
					paths[leafIdx] = append(paths[leafIdx], InnerOp{Hash: HashOpSHA256, Prefix: rightPrefix, Suffix: nil})
				}
			}
		}
		level = next
	}

	proofs = make(map[string]*ExistenceProof, len(leaves))
	for i, l := range leaves {
		proofs[string(l.key)] = &ExistenceProof{
			Key:   l.key,
			Value: l.value,
			Leaf:  IAVLProofSpec.LeafSpec,
			Path:  paths[i],
		}
	}
	return level[0], proofs
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
