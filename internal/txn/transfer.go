package txn

import (
	"crypto/ed25519"
	"encoding/hex"

	"github.com/utxochain/ledger/internal/ledgerr"
)

// SpendableFinder selects enough unspent outputs locked to pubKeyHash to
// cover amount. Implemented by the UTXO set.
type SpendableFinder interface {
	FindSpendableOutputs(pubKeyHash []byte, amount int64) (accumulated int64, picks map[string][]int, err error)
}

// TransactionSigner signs tx's inputs against the chain's transaction
// history. Implemented by the chain store, which gathers the referenced
// prior transactions before delegating to Sign.
type TransactionSigner interface {
	SignTransaction(tx *Transaction, priv ed25519.PrivateKey) error
}

// NewTransferTx builds, signs, and returns a transaction moving amount
// from the wallet holding fromPubKey to toPubKeyHash, implementing the
// spec's new_utxo: select spendable outputs, fail with ErrInsufficientFunds
// if they fall short, emit a payment output and (if any remainder) a change
// output back to the sender, then sign every input.
func NewTransferTx(fromPubKeyHash []byte, fromPubKey []byte, priv ed25519.PrivateKey, toPubKeyHash []byte, amount int64, finder SpendableFinder, signer TransactionSigner) (*Transaction, error) {
	accumulated, picks, err := finder.FindSpendableOutputs(fromPubKeyHash, amount)
	if err != nil {
		return nil, err
	}
	if accumulated < amount {
		return nil, ledgerr.Wrapf(ledgerr.ErrInsufficientFunds, "have %d, need %d", accumulated, amount)
	}

	var inputs []TxInput
	for txidHex, vouts := range picks {
		if _, err := hex.DecodeString(txidHex); err != nil {
			return nil, ledgerr.Wrapf(ledgerr.ErrSerialization, "malformed txid %q in spendable outputs: %v", txidHex, err)
		}
		for _, vout := range vouts {
			inputs = append(inputs, TxInput{
				Txid:      txidHex,
				VoutIndex: vout,
				PubKey:    fromPubKey,
			})
		}
	}

	outputs := []TxOutput{NewTxOutput(amount, toPubKeyHash)}
	if accumulated > amount {
		outputs = append(outputs, NewTxOutput(accumulated-amount, fromPubKeyHash))
	}

	tx := &Transaction{Inputs: inputs, Outputs: outputs}
	tx.ID = tx.Hash()

	if err := signer.SignTransaction(tx, priv); err != nil {
		return nil, err
	}
	return tx, nil
}
