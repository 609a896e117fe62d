package txn

import (
	"crypto/ed25519"
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newKeypair(t *testing.T) (ed25519.PublicKey, ed25519.PrivateKey) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	return pub, priv
}

func pubKeyHashOf(pub ed25519.PublicKey) []byte {
	h := make([]byte, 20)
	copy(h, pub[:20])
	return h
}

func TestIsCoinbase(t *testing.T) {
	pub, _ := newKeypair(t)
	cb, err := NewCoinbaseTx(pubKeyHashOf(pub), "")
	require.NoError(t, err)
	assert.True(t, cb.IsCoinbase())

	tx := &Transaction{
		Inputs:  []TxInput{{Txid: "abc", VoutIndex: 0}},
		Outputs: []TxOutput{NewTxOutput(10, pubKeyHashOf(pub))},
	}
	assert.False(t, tx.IsCoinbase())
}

func TestCoinbaseTxDistinctIDsForSameAddress(t *testing.T) {
	pub, _ := newKeypair(t)
	a, err := NewCoinbaseTx(pubKeyHashOf(pub), "")
	require.NoError(t, err)
	b, err := NewCoinbaseTx(pubKeyHashOf(pub), "")
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestHashClearsIDBeforeHashing(t *testing.T) {
	pub, _ := newKeypair(t)
	tx, err := NewCoinbaseTx(pubKeyHashOf(pub), "memo")
	require.NoError(t, err)

	withID := tx.Hash()
	tx.ID = ""
	withoutID := tx.Hash()
	assert.Equal(t, withID, withoutID)
}

func TestSerializeDeserializeRoundTrip(t *testing.T) {
	pub, _ := newKeypair(t)
	tx, err := NewCoinbaseTx(pubKeyHashOf(pub), "memo")
	require.NoError(t, err)

	data := tx.Serialize()
	got, err := DeserializeTransaction(data)
	require.NoError(t, err)
	assert.Equal(t, tx.ID, got.ID)
	assert.Equal(t, tx.Outputs, got.Outputs)
}

func TestTrimmedCopyClearsSignaturesAndKeys(t *testing.T) {
	pub, priv := newKeypair(t)
	prevPub, _ := newKeypair(t)

	coinbase, err := NewCoinbaseTx(pubKeyHashOf(prevPub), "")
	require.NoError(t, err)
	prevTxs := map[string]*Transaction{coinbase.ID: coinbase}

	spend := &Transaction{
		Inputs:  []TxInput{{Txid: coinbase.ID, VoutIndex: 0, PubKey: pub}},
		Outputs: []TxOutput{NewTxOutput(Reward, pubKeyHashOf(pub))},
	}
	spend.ID = spend.Hash()
	require.NoError(t, Sign(spend, priv, prevTxs))

	trimmed := spend.TrimmedCopy()
	for _, in := range trimmed.Inputs {
		assert.Nil(t, in.PubKey)
		assert.Nil(t, in.Signature)
	}
}

func TestSignThenVerifySucceeds(t *testing.T) {
	prevPub, prevPriv := newKeypair(t)
	pub, _ := newKeypair(t)

	coinbase, err := NewCoinbaseTx(pubKeyHashOf(prevPub), "")
	require.NoError(t, err)

	spend := &Transaction{
		Inputs:  []TxInput{{Txid: coinbase.ID, VoutIndex: 0, PubKey: prevPub}},
		Outputs: []TxOutput{NewTxOutput(Reward, pubKeyHashOf(pub))},
	}
	spend.ID = spend.Hash()

	prevTxs := map[string]*Transaction{coinbase.ID: coinbase}
	require.NoError(t, Sign(spend, prevPriv, prevTxs))

	ok, err := Verify(spend, prevTxs)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestVerifyFailsOnTamperedOutput(t *testing.T) {
	prevPub, prevPriv := newKeypair(t)
	pub, _ := newKeypair(t)

	coinbase, err := NewCoinbaseTx(pubKeyHashOf(prevPub), "")
	require.NoError(t, err)

	spend := &Transaction{
		Inputs:  []TxInput{{Txid: coinbase.ID, VoutIndex: 0, PubKey: prevPub}},
		Outputs: []TxOutput{NewTxOutput(Reward, pubKeyHashOf(pub))},
	}
	spend.ID = spend.Hash()
	prevTxs := map[string]*Transaction{coinbase.ID: coinbase}
	require.NoError(t, Sign(spend, prevPriv, prevTxs))

	spend.Outputs[0].Value = Reward * 2

	ok, err := Verify(spend, prevTxs)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerifyCoinbaseAlwaysSucceeds(t *testing.T) {
	pub, _ := newKeypair(t)
	cb, err := NewCoinbaseTx(pubKeyHashOf(pub), "")
	require.NoError(t, err)

	ok, err := Verify(cb, nil)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSignMissingPrevTxErrors(t *testing.T) {
	pub, priv := newKeypair(t)
	spend := &Transaction{
		Inputs:  []TxInput{{Txid: "deadbeef", VoutIndex: 0, PubKey: pub}},
		Outputs: []TxOutput{NewTxOutput(1, pubKeyHashOf(pub))},
	}
	spend.ID = spend.Hash()

	err := Sign(spend, priv, map[string]*Transaction{})
	require.Error(t, err)
}
