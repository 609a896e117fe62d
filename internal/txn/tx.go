// Package txn implements the UTXO transaction model: inputs, outputs, the
// coinbase special case, and the trim + per-input rehash + sign/verify
// ritual that binds a signature to the referenced prior output.
package txn

import (
	"bytes"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/gob"
	"fmt"
	"strings"

	"github.com/utxochain/ledger/internal/chainutil"
	"github.com/utxochain/ledger/internal/ledgerr"
	"github.com/utxochain/ledger/internal/logging"
)

var log = logging.For("txn")

// Reward is the fixed coinbase output value.
const Reward = 100

// TxInput references a prior output by (txid, vout index). The coinbase
// sentinel has an empty Txid and VoutIndex -1; its PubKey field carries
// arbitrary reward memo bytes plus 32 random bytes (so that two coinbases
// paying the same address in the same block have distinct ids), and its
// Signature is empty.
type TxInput struct {
	Txid      string
	VoutIndex int
	PubKey    []byte
	Signature []byte
}

// TxOutput is an integer value locked to a 20-byte public-key hash.
type TxOutput struct {
	Value      int64
	PubKeyHash []byte
}

// IsLockedWithKey reports whether pubKeyHash can spend this output.
func (o TxOutput) IsLockedWithKey(pubKeyHash []byte) bool {
	return bytes.Equal(o.PubKeyHash, pubKeyHash)
}

// NewTxOutput builds an output paying amount to the address's decoded
// public-key hash.
func NewTxOutput(amount int64, pubKeyHash []byte) TxOutput {
	return TxOutput{Value: amount, PubKeyHash: pubKeyHash}
}

// Transaction is a signed transfer: a non-empty set of inputs spending
// prior outputs, and a non-empty set of new outputs.
type Transaction struct {
	ID      string
	Inputs  []TxInput
	Outputs []TxOutput
}

// IsCoinbase reports whether tx is the block-reward special case: exactly
// one input with an empty Txid and VoutIndex -1.
func (tx *Transaction) IsCoinbase() bool {
	return len(tx.Inputs) == 1 && tx.Inputs[0].Txid == "" && tx.Inputs[0].VoutIndex == -1
}

// Hash returns the hex SHA-256 of tx's canonical serialization with its ID
// field cleared first: the id can't be part of its own preimage.
func (tx *Transaction) Hash() string {
	txCopy := *tx
	txCopy.ID = ""
	return chainutil.Sha256Hex(txCopy.serialize())
}

// serialize gob-encodes the transaction verbatim, including whatever
// signatures and public keys are currently set on its inputs. This is the
// single canonical encoder used both for on-disk storage and for hash
// preimages (after the caller clears whichever fields the construction in
// progress requires).
func (tx Transaction) serialize() []byte {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(tx); err != nil {
		// Every field here is a plain slice/string/int; encoding can only
		// fail on a gob wiring bug, which is a programming error.
		panic(ledgerr.Wrapf(ledgerr.ErrSerialization, "encoding transaction: %v", err))
	}
	return buf.Bytes()
}

// Serialize returns tx's canonical on-disk byte form.
func (tx Transaction) Serialize() []byte {
	return tx.serialize()
}

// DeserializeTransaction reverses Serialize.
func DeserializeTransaction(data []byte) (*Transaction, error) {
	var tx Transaction
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&tx); err != nil {
		return nil, ledgerr.Wrapf(ledgerr.ErrSerialization, "decoding transaction: %v", err)
	}
	return &tx, nil
}

// NewCoinbaseTx mints the block-reward transaction paying to's public-key
// hash. memo becomes part of the input's PubKey field alongside 32 bytes
// of randomness; without that randomness two coinbases paying the same
// address in the same block would collide on id.
func NewCoinbaseTx(toPubKeyHash []byte, memo string) (*Transaction, error) {
	if memo == "" {
		memo = fmt.Sprintf("reward to %x", toPubKeyHash)
	}

	nonce := make([]byte, 32)
	if _, err := rand.Read(nonce); err != nil {
		return nil, ledgerr.Wrap(err, "generating coinbase nonce")
	}

	in := TxInput{
		Txid:      "",
		VoutIndex: -1,
		PubKey:    append([]byte(memo), nonce...),
		Signature: nil,
	}
	out := NewTxOutput(Reward, toPubKeyHash)

	tx := &Transaction{Inputs: []TxInput{in}, Outputs: []TxOutput{out}}
	tx.ID = tx.Hash()
	return tx, nil
}

// TrimmedCopy returns a copy of tx with every input's signature and public
// key cleared, preserving everything else. This is the starting point for
// both Sign and Verify.
func (tx *Transaction) TrimmedCopy() Transaction {
	inputs := make([]TxInput, len(tx.Inputs))
	for i, in := range tx.Inputs {
		inputs[i] = TxInput{Txid: in.Txid, VoutIndex: in.VoutIndex}
	}
	outputs := make([]TxOutput, len(tx.Outputs))
	copy(outputs, tx.Outputs)
	return Transaction{ID: tx.ID, Inputs: inputs, Outputs: outputs}
}

// Sign implements the trim + per-input pub-key swap + rehash ritual:
// for each input, it temporarily sets the trimmed copy's pub key to the
// referenced output's locking hash, rehashes, signs that hash, and stores
// the 64-byte signature back on the original transaction's input. Coinbase
// transactions are not signed. prevTxs must map every referenced txid to
// its transaction (a coinbase included); a missing entry is ErrMissingPrevTx.
func Sign(tx *Transaction, priv ed25519.PrivateKey, prevTxs map[string]*Transaction) error {
	if tx.IsCoinbase() {
		return nil
	}

	for _, in := range tx.Inputs {
		if prevTxs[in.Txid] == nil {
			return ledgerr.Wrapf(ledgerr.ErrMissingPrevTx, "input references unknown tx %s", in.Txid)
		}
	}

	txCopy := tx.TrimmedCopy()

	for i, in := range txCopy.Inputs {
		prevTx := prevTxs[in.Txid]
		if in.VoutIndex < 0 || in.VoutIndex >= len(prevTx.Outputs) {
			return ledgerr.Wrapf(ledgerr.ErrMissingPrevTx, "input references out-of-range vout %d of %s", in.VoutIndex, in.Txid)
		}

		txCopy.Inputs[i].Signature = nil
		txCopy.Inputs[i].PubKey = prevTx.Outputs[in.VoutIndex].PubKeyHash
		txCopy.ID = txCopy.Hash()
		txCopy.Inputs[i].PubKey = nil

		sig := ed25519.Sign(priv, []byte(txCopy.ID))
		tx.Inputs[i].Signature = sig
	}

	log.WithField("txid", tx.ID).Debug("signed transaction")
	return nil
}

// Verify mirrors Sign: for each input it reconstructs the same rehashed id
// and checks that the stored signature verifies against the stored public
// key. Coinbase transactions always verify. Returns ErrMissingPrevTx if a
// referenced prior transaction is absent.
func Verify(tx *Transaction, prevTxs map[string]*Transaction) (bool, error) {
	if tx.IsCoinbase() {
		return true, nil
	}

	for _, in := range tx.Inputs {
		if prevTxs[in.Txid] == nil {
			return false, ledgerr.Wrapf(ledgerr.ErrMissingPrevTx, "input references unknown tx %s", in.Txid)
		}
	}

	txCopy := tx.TrimmedCopy()

	for i, in := range tx.Inputs {
		prevTx := prevTxs[in.Txid]
		if in.VoutIndex < 0 || in.VoutIndex >= len(prevTx.Outputs) {
			return false, ledgerr.Wrapf(ledgerr.ErrMissingPrevTx, "input references out-of-range vout %d of %s", in.VoutIndex, in.Txid)
		}

		txCopy.Inputs[i].Signature = nil
		txCopy.Inputs[i].PubKey = prevTx.Outputs[in.VoutIndex].PubKeyHash
		txCopy.ID = txCopy.Hash()
		txCopy.Inputs[i].PubKey = nil

		if !ed25519.Verify(ed25519.PublicKey(in.PubKey), []byte(txCopy.ID), in.Signature) {
			return false, nil
		}
	}
	return true, nil
}

// String renders tx for debugging / printchain output.
func (tx Transaction) String() string {
	var lines []string
	lines = append(lines, fmt.Sprintf("--- Transaction %s:", tx.ID))
	for i, in := range tx.Inputs {
		lines = append(lines, fmt.Sprintf("     Input %d:", i))
		lines = append(lines, fmt.Sprintf("       Prev TXID:    %s", in.Txid))
		lines = append(lines, fmt.Sprintf("       Out Index:    %d", in.VoutIndex))
		lines = append(lines, fmt.Sprintf("       Signature:    %x", in.Signature))
		lines = append(lines, fmt.Sprintf("       PubKey:       %x", in.PubKey))
	}
	for i, out := range tx.Outputs {
		lines = append(lines, fmt.Sprintf("     Output %d:", i))
		lines = append(lines, fmt.Sprintf("       Value:        %d", out.Value))
		lines = append(lines, fmt.Sprintf("       PubKeyHash:   %x", out.PubKeyHash))
	}
	return strings.Join(lines, "\n")
}
