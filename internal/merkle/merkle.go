// Package merkle builds the commitment roots stored on batches.
package merkle

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashLeaf hashes one market identifier into a leaf.
func HashLeaf(data string) [32]byte {
	return sha256.Sum256([]byte(data))
}

// Root combines leaves pairwise left-to-right, duplicating the last leaf
// when a level has an odd count, until one node remains. An empty input
// yields the zero root. Callers must pass leaves in canonical (ascending
// lexicographic) order of their source identifiers for roots to be
// reproducible.
func Root(leaves [][32]byte) [32]byte {
	if len(leaves) == 0 {
		return [32]byte{}
	}

	level := make([][32]byte, len(leaves))
	copy(level, leaves)

	for len(level) > 1 {
		next := make([][32]byte, 0, (len(level)+1)/2)
		for i := 0; i < len(level); i += 2 {
			left := level[i]
			right := left
			if i+1 < len(level) {
				right = level[i+1]
			}
			h := sha256.New()
			h.Write(left[:])
			h.Write(right[:])
			var combined [32]byte
			copy(combined[:], h.Sum(nil))
			next = append(next, combined)
		}
		level = next
	}

	return level[0]
}

// RootHex is Root over hashed identifiers, hex-encoded for storage.
func RootHex(ids []string) string {
	leaves := make([][32]byte, 0, len(ids))
	for _, id := range ids {
		leaves = append(leaves, HashLeaf(id))
	}
	root := Root(leaves)
	return hex.EncodeToString(root[:])
}
