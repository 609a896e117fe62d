package block

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utxochain/ledger/internal/txn"
)

func fakeCoinbase(t *testing.T, memo string) *txn.Transaction {
	t.Helper()
	pubKeyHash := make([]byte, 20)
	tx, err := txn.NewCoinbaseTx(pubKeyHash, memo)
	require.NoError(t, err)
	return tx
}

func TestNewGenesisBlockMeetsDifficulty(t *testing.T) {
	coinbase := fakeCoinbase(t, "genesis")
	b, err := NewGenesisBlock(coinbase)
	require.NoError(t, err)

	assert.Equal(t, "", b.PrevBlockHash)
	assert.Equal(t, 0, b.Height)
	assert.True(t, strings.HasPrefix(b.Hash, strings.Repeat("0", TargetHexLen)))
}

func TestNewGenesisBlockValidates(t *testing.T) {
	coinbase := fakeCoinbase(t, "genesis")
	b, err := NewGenesisBlock(coinbase)
	require.NoError(t, err)

	ok, err := b.Validate()
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestNewBlockLinksToPrevHash(t *testing.T) {
	coinbase := fakeCoinbase(t, "genesis")
	genesis, err := NewGenesisBlock(coinbase)
	require.NoError(t, err)

	next, err := NewBlock([]*txn.Transaction{fakeCoinbase(t, "next")}, genesis.Hash, genesis.Height+1)
	require.NoError(t, err)

	assert.Equal(t, genesis.Hash, next.PrevBlockHash)
	assert.Equal(t, 1, next.Height)
	ok, err := next.Validate()
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestValidateDetectsTamperedNonce(t *testing.T) {
	b, err := NewGenesisBlock(fakeCoinbase(t, "genesis"))
	require.NoError(t, err)

	b.Nonce++
	ok, err := b.Validate()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSerializeDeserializeRoundTrip(t *testing.T) {
	b, err := NewGenesisBlock(fakeCoinbase(t, "genesis"))
	require.NoError(t, err)

	data, err := b.Serialize()
	require.NoError(t, err)

	got, err := Deserialize(data)
	require.NoError(t, err)
	assert.Equal(t, b.Hash, got.Hash)
	assert.Equal(t, b.Nonce, got.Nonce)
}

func TestNewBlockRejectsEmptyTransactionList(t *testing.T) {
	_, err := NewBlock(nil, "", 0)
	require.Error(t, err)
}
