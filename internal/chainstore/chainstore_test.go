package chainstore

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utxochain/ledger/internal/txn"
)

func fakePubKeyHash(b byte) []byte {
	h := make([]byte, 20)
	for i := range h {
		h[i] = b
	}
	return h
}

func TestCreateWipesExistingChain(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "chain")
	c, err := Create(dir, fakePubKeyHash(1))
	require.NoError(t, err)

	coinbase, err := txn.NewCoinbaseTx(fakePubKeyHash(1), "")
	require.NoError(t, err)
	_, err = c.MineBlock([]*txn.Transaction{coinbase})
	require.NoError(t, err)
	require.NoError(t, c.Close())

	reinit, err := Create(dir, fakePubKeyHash(2))
	require.NoError(t, err)
	defer reinit.Close()

	height, err := reinit.BestHeight()
	require.NoError(t, err)
	assert.Equal(t, 0, height)

	genesis, err := reinit.GetBlock(reinit.Tip())
	require.NoError(t, err)
	outs := genesis.Transactions[0].Outputs
	require.Len(t, outs, 1)
	assert.Equal(t, fakePubKeyHash(2), outs[0].PubKeyHash)
}

func TestOpenRequiresExistingChain(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestCreateThenOpenSeesGenesisTip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "chain")
	c, err := Create(dir, fakePubKeyHash(1))
	require.NoError(t, err)
	tip := c.Tip()
	require.NoError(t, c.Close())

	reopened, err := Open(dir)
	require.NoError(t, err)
	defer reopened.Close()
	assert.Equal(t, tip, reopened.Tip())

	height, err := reopened.BestHeight()
	require.NoError(t, err)
	assert.Equal(t, 0, height)
}

func TestMineBlockAdvancesTipAndHeight(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "chain")
	c, err := Create(dir, fakePubKeyHash(1))
	require.NoError(t, err)
	defer c.Close()

	coinbase, err := txn.NewCoinbaseTx(fakePubKeyHash(1), "")
	require.NoError(t, err)

	mined, err := c.MineBlock([]*txn.Transaction{coinbase})
	require.NoError(t, err)
	assert.Equal(t, 1, mined.Height)
	assert.Equal(t, c.Tip(), mined.Hash)

	height, err := c.BestHeight()
	require.NoError(t, err)
	assert.Equal(t, 1, height)
}

func TestIteratorWalksBackToGenesis(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "chain")
	c, err := Create(dir, fakePubKeyHash(1))
	require.NoError(t, err)
	defer c.Close()

	coinbase, err := txn.NewCoinbaseTx(fakePubKeyHash(1), "")
	require.NoError(t, err)
	_, err = c.MineBlock([]*txn.Transaction{coinbase})
	require.NoError(t, err)

	it := c.Iterator()
	var heights []int
	for {
		b, err := it.Next()
		require.NoError(t, err)
		if b == nil {
			break
		}
		heights = append(heights, b.Height)
	}
	assert.Equal(t, []int{1, 0}, heights)
}

func TestFindTransactionLocatesCoinbase(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "chain")
	c, err := Create(dir, fakePubKeyHash(1))
	require.NoError(t, err)
	defer c.Close()

	genesis, err := c.GetBlock(c.Tip())
	require.NoError(t, err)
	wantID := genesis.Transactions[0].ID

	got, err := c.FindTransaction(wantID)
	require.NoError(t, err)
	assert.Equal(t, wantID, got.ID)
}

func TestFindTransactionMissingErrors(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "chain")
	c, err := Create(dir, fakePubKeyHash(1))
	require.NoError(t, err)
	defer c.Close()

	_, err = c.FindTransaction("0000000000000000000000000000000000000000000000000000000000000000")
	assert.Error(t, err)
}
