package ics23

// VerifyBatch checks every entry in a batch proof against the same root.
// An entry failing verification counts as a failure of the whole batch.
func VerifyBatch(spec ProofSpec, root []byte, items map[string][]byte, proof *CommitmentProof) bool {
	if proof == nil {
		return false
	}

	entries := proof.Batch
	if proof.Compressed != nil {
		decompressed, err := proof.Compressed.Decompress()
		if err != nil {
			return false
		}
		entries = decompressed
	}
	if len(entries) == 0 {
		return false
	}

	for _, entry := range entries {
		switch {
		case entry.Existence != nil:
			value, ok := items[string(entry.Existence.Key)]
			if !ok {
				return false
			}
			if verifyExistence(spec, root, entry.Existence.Key, value, entry.Existence) != nil {
				return false
			}
		case entry.NonExistence != nil:
			if _, present := items[string(entry.NonExistence.Key)]; present {
				return false
			}
			if verifyNonExistenceNeighbours(spec, root, entry.NonExistence.Key, entry.NonExistence) != nil {
				return false
			}
		default:
			return false
		}
	}
	return true
}
