package chainutil

// MerkleRoot computes the CBMT-style Merkle root over leaves, where each
// leaf is already a hash (a transaction hash, not raw transaction bytes).
// Unlike the duplicate-last-node convention, an odd node at any level is
// promoted unchanged to the next level rather than paired with a copy of
// itself (see DESIGN.md for the rationale).
//
// leaves must be non-empty; a block always carries at least its coinbase
// transaction.
func MerkleRoot(leaves [][]byte) []byte {
	if len(leaves) == 0 {
		panic("chainutil: MerkleRoot called with no leaves")
	}
	level := make([][]byte, len(leaves))
	copy(level, leaves)

	for len(level) > 1 {
		var next [][]byte
		for i := 0; i < len(level); i += 2 {
			if i+1 < len(level) {
				next = append(next, Sha256(append(append([]byte{}, level[i]...), level[i+1]...)))
			} else {
				// Odd one out: promote it unchanged instead of hashing
				// it against a duplicate of itself.
				next = append(next, level[i])
			}
		}
		level = next
	}
	return level[0]
}
