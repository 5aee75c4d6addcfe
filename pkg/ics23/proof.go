package ics23

// InnerOp is one step of an existence proof's path from leaf to root.
type InnerOp struct {
	Hash   HashOp
	Prefix []byte
	Suffix []byte
}

// ExistenceProof proves that (Key, Value) is present under Root once Path
// is folded starting from the leaf preimage.
type ExistenceProof struct {
	Key   []byte
	Value []byte
	Leaf  LeafOp
	Path  []InnerOp
}

// NonExistenceProof proves Key is absent by bracketing it between two
// neighbouring existence proofs. Either neighbour may be nil at a tree
// boundary, but not both.
type NonExistenceProof struct {
	Key   []byte
	Left  *ExistenceProof
	Right *ExistenceProof
}

// BatchEntry is a tagged union: exactly one of Existence/NonExistence is set.
type BatchEntry struct {
	Existence    *ExistenceProof
	NonExistence *NonExistenceProof
}

// CommitmentProof is the ICS-23 proof union. Exactly one
// field is populated for a given proof instance.
type CommitmentProof struct {
	Existence    *ExistenceProof
	NonExistence *NonExistenceProof
	Batch        []BatchEntry
	Compressed   *CompressedBatchProof
}

// CompressedBatchProof shares an inner-op lookup table across entries,
// indexed by int32 positions in each entry's path.
type CompressedBatchProof struct {
	Entries     []CompressedBatchEntry
	LookupInner []InnerOp
}

// CompressedBatchEntry mirrors BatchEntry but references LookupInner by index.
type CompressedBatchEntry struct {
	Existence    *CompressedExistenceProof
	NonExistence *CompressedNonExistenceProof
}

// CompressedExistenceProof is an ExistenceProof whose Path is a list of
// indices into the batch's shared LookupInner table.
type CompressedExistenceProof struct {
	Key   []byte
	Value []byte
	Leaf  LeafOp
	Path  []int32
}

// CompressedNonExistenceProof is the compressed analogue of NonExistenceProof.
type CompressedNonExistenceProof struct {
	Key   []byte
	Left  *CompressedExistenceProof
	Right *CompressedExistenceProof
}

func decompressExistence(p *CompressedExistenceProof, table []InnerOp) (*ExistenceProof, error) {
	if p == nil {
		return nil, nil
	}
	path := make([]InnerOp, 0, len(p.Path))
	for _, idx := range p.Path {
		if idx < 0 || int(idx) >= len(table) {
			return nil, ErrMalformedProof
		}
		path = append(path, table[idx])
	}
	return &ExistenceProof{Key: p.Key, Value: p.Value, Leaf: p.Leaf, Path: path}, nil
}

// Decompress expands a CompressedBatchProof into an equivalent batch of
// ordinary entries.
func (c *CompressedBatchProof) Decompress() ([]BatchEntry, error) {
	out := make([]BatchEntry, 0, len(c.Entries))
	for _, e := range c.Entries {
		var entry BatchEntry
		switch {
		case e.Existence != nil:
			ex, err := decompressExistence(e.Existence, c.LookupInner)
			if err != nil {
				return nil, err
			}
			entry.Existence = ex
		case e.NonExistence != nil:
			left, err := decompressExistence(e.NonExistence.Left, c.LookupInner)
			if err != nil {
				return nil, err
			}
			right, err := decompressExistence(e.NonExistence.Right, c.LookupInner)
			if err != nil {
				return nil, err
			}
			entry.NonExistence = &NonExistenceProof{Key: e.NonExistence.Key, Left: left, Right: right}
		default:
			return nil, ErrMalformedProof
		}
		out = append(out, entry)
	}
	return out, nil
}
