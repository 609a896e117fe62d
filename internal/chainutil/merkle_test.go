package chainutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMerkleRootSingleLeafIsLeafItself(t *testing.T) {
	leaf := []byte("only-transaction-hash")
	assert.Equal(t, leaf, MerkleRoot([][]byte{leaf}))
}

func TestMerkleRootEvenPairCombines(t *testing.T) {
	a, b := []byte("a"), []byte("b")
	want := Sha256(append(append([]byte{}, a...), b...))
	assert.Equal(t, want, MerkleRoot([][]byte{a, b}))
}

func TestMerkleRootOddPromotesOrphanInsteadOfDuplicating(t *testing.T) {
	a, b, c := []byte("a"), []byte("b"), []byte("c")
	// level 1: [hash(a,b), c promoted]
	// root: hash(hash(a,b), c)
	ab := Sha256(append(append([]byte{}, a...), b...))
	want := Sha256(append(append([]byte{}, ab...), c...))
	assert.Equal(t, want, MerkleRoot([][]byte{a, b, c}))
}

func TestMerkleRootDeterministic(t *testing.T) {
	leaves := [][]byte{[]byte("x"), []byte("y"), []byte("z")}
	assert.Equal(t, MerkleRoot(leaves), MerkleRoot(leaves))
}

func TestMerkleRootPanicsOnEmpty(t *testing.T) {
	assert.Panics(t, func() { MerkleRoot(nil) })
}
