// Package block implements the canonical block shape and the
// proof-of-work mining loop that assigns it an identity: a block's hash
// must begin with TargetHexLen '0' hex digits.
package block

import (
	"bytes"
	"encoding/gob"
	"strings"
	"time"

	"github.com/utxochain/ledger/internal/chainutil"
	"github.com/utxochain/ledger/internal/ledgerr"
	"github.com/utxochain/ledger/internal/logging"
	"github.com/utxochain/ledger/internal/txn"
)

var log = logging.For("block")

// TargetHexLen is the proof-of-work difficulty: a block's hash must begin
// with this many '0' hex digits.
const TargetHexLen = 4

// Block is one entry in the chain: an ordered transaction list, a link to
// the prior block, and the proof-of-work nonce/hash that give it identity.
type Block struct {
	Timestamp     int64
	Transactions  []*txn.Transaction
	PrevBlockHash string // empty for genesis
	Hash          string
	Height        int
	Nonce         int64
}

// NewBlock mines a block over txs on top of prevHash at height, searching
// the nonce space until the resulting hash meets TargetHexLen. Mining is
// synchronous, CPU-bound, and never fails except on a serialization bug.
func NewBlock(txs []*txn.Transaction, prevHash string, height int) (*Block, error) {
	if len(txs) == 0 {
		return nil, ledgerr.Wrap(ledgerr.ErrSerialization, "block must contain at least one (coinbase) transaction")
	}

	b := &Block{
		Timestamp:     time.Now().UnixMilli(),
		Transactions:  txs,
		PrevBlockHash: prevHash,
		Height:        height,
	}

	merkleRoot, err := b.merkleRoot()
	if err != nil {
		return nil, err
	}

	var nonce int64
	var hashHex string
	for {
		hashHex = computeHash(b.PrevBlockHash, b.Timestamp, merkleRoot, nonce)
		if strings.HasPrefix(hashHex, strings.Repeat("0", TargetHexLen)) {
			break
		}
		nonce++
	}

	b.Nonce = nonce
	b.Hash = hashHex

	log.WithField("height", height).WithField("hash", hashHex).WithField("nonce", nonce).Info("mined block")
	return b, nil
}

// NewGenesisBlock mines the chain's first block, containing only coinbase.
func NewGenesisBlock(coinbase *txn.Transaction) (*Block, error) {
	return NewBlock([]*txn.Transaction{coinbase}, "", 0)
}

// merkleRoot computes the Merkle root over this block's transactions, in
// list order. Each leaf is the raw ASCII bytes of the transaction's hex
// id, not the decoded hex.
func (b *Block) merkleRoot() ([]byte, error) {
	leaves := make([][]byte, 0, len(b.Transactions))
	for _, tx := range b.Transactions {
		if tx.ID == "" {
			return nil, ledgerr.Wrap(ledgerr.ErrSerialization, "transaction has no id")
		}
		leaves = append(leaves, []byte(tx.ID))
	}
	return chainutil.MerkleRoot(leaves), nil
}

// computeHash computes the hex SHA-256 of the canonical preimage
// (prevHash, timestamp, merkleRoot, TargetHexLen, nonce).
func computeHash(prevHash string, timestamp int64, merkleRoot []byte, nonce int64) string {
	preimage := bytes.Join([][]byte{
		[]byte(prevHash),
		chainutil.Int64ToBytes(timestamp),
		merkleRoot,
		chainutil.Int64ToBytes(int64(TargetHexLen)),
		chainutil.Int64ToBytes(nonce),
	}, nil)
	return chainutil.Sha256Hex(preimage)
}

// Validate recomputes b's hash from its stored fields and reports whether
// it both matches b.Hash and meets the difficulty target. Verification is
// a single hash computation, unlike mining's brute-force search.
func (b *Block) Validate() (bool, error) {
	merkleRoot, err := b.merkleRoot()
	if err != nil {
		return false, err
	}
	recomputed := computeHash(b.PrevBlockHash, b.Timestamp, merkleRoot, b.Nonce)
	return recomputed == b.Hash && strings.HasPrefix(recomputed, strings.Repeat("0", TargetHexLen)), nil
}

// Serialize returns the block's canonical on-disk byte form.
func (b *Block) Serialize() ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(b); err != nil {
		return nil, ledgerr.Wrapf(ledgerr.ErrSerialization, "encoding block: %v", err)
	}
	return buf.Bytes(), nil
}

// Deserialize reverses Serialize.
func Deserialize(data []byte) (*Block, error) {
	var b Block
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&b); err != nil {
		return nil, ledgerr.Wrapf(ledgerr.ErrSerialization, "decoding block: %v", err)
	}
	return &b, nil
}
