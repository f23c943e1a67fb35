package merkle

import (
	"crypto/sha256"
	"encoding/hex"
	"testing"
)

func TestRoot_Empty(t *testing.T) {
	root := Root(nil)
	if root != [32]byte{} {
		t.Fatalf("empty input should yield zero root, got %x", root)
	}
}

func TestRoot_SingleLeafIsLeaf(t *testing.T) {
	leaf := HashLeaf("m1")
	root := Root([][32]byte{leaf})
	if root != leaf {
		t.Fatalf("single-leaf root = %x, want leaf %x", root, leaf)
	}
}

func TestRoot_TwoLeaves(t *testing.T) {
	l1 := HashLeaf("m1")
	l2 := HashLeaf("m2")
	h := sha256.New()
	h.Write(l1[:])
	h.Write(l2[:])
	var want [32]byte
	copy(want[:], h.Sum(nil))

	got := Root([][32]byte{l1, l2})
	if got != want {
		t.Fatalf("root = %x, want %x", got, want)
	}
}

func TestRoot_OddCountDuplicatesLastLeaf(t *testing.T) {
	l1 := HashLeaf("m1")
	l2 := HashLeaf("m2")
	l3 := HashLeaf("m3")

	// Three leaves must hash identically to four with the last duplicated.
	got := Root([][32]byte{l1, l2, l3})
	want := Root([][32]byte{l1, l2, l3, l3})
	if got != want {
		t.Fatalf("odd-count root = %x, want duplicated-last %x", got, want)
	}
}

func TestRoot_Deterministic(t *testing.T) {
	ids := []string{"m1", "m2", "m3"}
	first := RootHex(ids)
	for i := 0; i < 10; i++ {
		if again := RootHex(ids); again != first {
			t.Fatalf("root changed across runs: %s vs %s", first, again)
		}
	}
}

func TestRoot_DoesNotMutateInput(t *testing.T) {
	l1 := HashLeaf("m1")
	l2 := HashLeaf("m2")
	l3 := HashLeaf("m3")
	leaves := [][32]byte{l1, l2, l3}
	_ = Root(leaves)
	if leaves[0] != l1 || leaves[1] != l2 || leaves[2] != l3 {
		t.Fatalf("input slice was mutated")
	}
}

func TestRootHex_SingleLeafMatchesSha256(t *testing.T) {
	sum := sha256.Sum256([]byte("m1"))
	if got := RootHex([]string{"m1"}); got != hex.EncodeToString(sum[:]) {
		t.Fatalf("single-leaf hex root = %s, want sha256(m1)", got)
	}
}
