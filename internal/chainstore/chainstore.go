// Package chainstore persists the block chain in a badger "blocks"
// keyspace and exposes the chain-wide operations that need to see every
// block: tip tracking, mining, transaction lookup, and signing.
package chainstore

import (
	"crypto/ed25519"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dgraph-io/badger/v4"

	"github.com/utxochain/ledger/internal/block"
	"github.com/utxochain/ledger/internal/ledgerr"
	"github.com/utxochain/ledger/internal/logging"
	"github.com/utxochain/ledger/internal/txn"
)

var log = logging.For("chainstore")

// tipKey holds the hash of the chain's current head block.
var tipKey = []byte("lh")

const genesisMemo = "genesis"

// ChainStore is the persistent block chain: a badger database keyed by
// block hash, plus the tip pointer under tipKey.
type ChainStore struct {
	tip []byte
	db  *badger.DB
}

// Exists reports whether a chain database is already present at path.
func Exists(path string) bool {
	_, err := os.Stat(filepath.Join(path, "MANIFEST"))
	return !os.IsNotExist(err)
}

// Create (re)initializes the chain at path, wiping any existing blocks
// keyspace contents and mining a fresh genesis block with a coinbase
// paying minerPubKeyHash.
func Create(path string, minerPubKeyHash []byte) (*ChainStore, error) {
	existed := Exists(path)

	db, err := openDB(path)
	if err != nil {
		return nil, err
	}

	if existed {
		if err := db.DropAll(); err != nil {
			return nil, ledgerr.Wrapf(ledgerr.ErrStorageFailure, "wiping chain at %s: %v", path, err)
		}
	}

	coinbase, err := txn.NewCoinbaseTx(minerPubKeyHash, genesisMemo)
	if err != nil {
		return nil, err
	}
	genesis, err := block.NewGenesisBlock(coinbase)
	if err != nil {
		return nil, err
	}
	encoded, err := genesis.Serialize()
	if err != nil {
		return nil, err
	}

	err = db.Update(func(dbTxn *badger.Txn) error {
		if err := dbTxn.Set([]byte(genesis.Hash), encoded); err != nil {
			return err
		}
		return dbTxn.Set(tipKey, []byte(genesis.Hash))
	})
	if err != nil {
		return nil, ledgerr.Wrapf(ledgerr.ErrStorageFailure, "persisting genesis block: %v", err)
	}

	log.WithField("hash", genesis.Hash).Info("created chain")
	return &ChainStore{tip: []byte(genesis.Hash), db: db}, nil
}

// Open resumes an existing chain at path.
func Open(path string) (*ChainStore, error) {
	if !Exists(path) {
		return nil, ledgerr.Wrapf(ledgerr.ErrNotInitialized, "no chain at %s", path)
	}
	db, err := openDB(path)
	if err != nil {
		return nil, err
	}

	var tip []byte
	err = db.View(func(dbTxn *badger.Txn) error {
		item, err := dbTxn.Get(tipKey)
		if err != nil {
			return err
		}
		tip, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, ledgerr.Wrapf(ledgerr.ErrStorageFailure, "reading chain tip: %v", err)
	}
	return &ChainStore{tip: tip, db: db}, nil
}

// Close releases the underlying database handle.
func (c *ChainStore) Close() error {
	return c.db.Close()
}

// BestHeight returns the height of the current tip block.
func (c *ChainStore) BestHeight() (int, error) {
	b, err := c.getBlock(c.tip)
	if err != nil {
		return 0, err
	}
	return b.Height, nil
}

// Tip returns the current tip block's hash.
func (c *ChainStore) Tip() string {
	return string(c.tip)
}

// GetBlock retrieves the block stored under hash.
func (c *ChainStore) GetBlock(hash string) (*block.Block, error) {
	return c.getBlock([]byte(hash))
}

func (c *ChainStore) getBlock(hash []byte) (*block.Block, error) {
	var b *block.Block
	err := c.db.View(func(dbTxn *badger.Txn) error {
		item, err := dbTxn.Get(hash)
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			decoded, derr := block.Deserialize(val)
			if derr != nil {
				return derr
			}
			b = decoded
			return nil
		})
	})
	if err != nil {
		return nil, ledgerr.Wrapf(ledgerr.ErrStorageFailure, "reading block %x: %v", hash, err)
	}
	return b, nil
}

// MineBlock verifies every non-coinbase transaction, mines a new block on
// top of the current tip containing them, persists it, and advances the
// tip.
func (c *ChainStore) MineBlock(txs []*txn.Transaction) (*block.Block, error) {
	for _, tx := range txs {
		ok, err := c.VerifyTransaction(tx)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ledgerr.Wrapf(ledgerr.ErrInvalidTransaction, "transaction %s failed verification", tx.ID)
		}
	}

	lastBlock, err := c.getBlock(c.tip)
	if err != nil {
		return nil, err
	}

	newBlock, err := block.NewBlock(txs, lastBlock.Hash, lastBlock.Height+1)
	if err != nil {
		return nil, err
	}
	encoded, err := newBlock.Serialize()
	if err != nil {
		return nil, err
	}

	err = c.db.Update(func(dbTxn *badger.Txn) error {
		if err := dbTxn.Set([]byte(newBlock.Hash), encoded); err != nil {
			return err
		}
		return dbTxn.Set(tipKey, []byte(newBlock.Hash))
	})
	if err != nil {
		return nil, ledgerr.Wrapf(ledgerr.ErrStorageFailure, "persisting block %s: %v", newBlock.Hash, err)
	}
	c.tip = []byte(newBlock.Hash)

	log.WithField("height", newBlock.Height).WithField("hash", newBlock.Hash).Info("mined and appended block")
	return newBlock, nil
}

// Iterator walks the chain from its tip back to genesis. It snapshots the
// tip at creation, so it is safe to hold across later appends.
type Iterator struct {
	currentHash []byte
	store       *ChainStore
}

// Iterator returns a fresh reverse-chronological iterator starting at the
// chain's current tip.
func (c *ChainStore) Iterator() *Iterator {
	return &Iterator{currentHash: c.tip, store: c}
}

// Next returns the next block walking backward from the tip, or nil once
// genesis has been returned.
func (it *Iterator) Next() (*block.Block, error) {
	if it.currentHash == nil {
		return nil, nil
	}
	b, err := it.store.getBlock(it.currentHash)
	if err != nil {
		return nil, err
	}
	if b.PrevBlockHash == "" {
		it.currentHash = nil
	} else {
		it.currentHash = []byte(b.PrevBlockHash)
	}
	return b, nil
}

// FindTransaction scans the chain for the transaction with the given id.
func (c *ChainStore) FindTransaction(id string) (*txn.Transaction, error) {
	it := c.Iterator()
	for {
		b, err := it.Next()
		if err != nil {
			return nil, err
		}
		if b == nil {
			break
		}
		for _, tx := range b.Transactions {
			if tx.ID == id {
				return tx, nil
			}
		}
	}
	return nil, ledgerr.Wrapf(ledgerr.ErrMissingPrevTx, "transaction %s not found", id)
}

func (c *ChainStore) gatherPrevTxs(tx *txn.Transaction) (map[string]*txn.Transaction, error) {
	prevTxs := make(map[string]*txn.Transaction)
	for _, in := range tx.Inputs {
		if in.Txid == "" {
			continue
		}
		prevTx, err := c.FindTransaction(in.Txid)
		if err != nil {
			return nil, err
		}
		prevTxs[in.Txid] = prevTx
	}
	return prevTxs, nil
}

// SignTransaction gathers every transaction tx's inputs reference and
// signs tx against them. Implements txn.TransactionSigner.
func (c *ChainStore) SignTransaction(tx *txn.Transaction, priv ed25519.PrivateKey) error {
	prevTxs, err := c.gatherPrevTxs(tx)
	if err != nil {
		return err
	}
	return txn.Sign(tx, priv, prevTxs)
}

// VerifyTransaction reports whether tx's signatures are valid against the
// transactions it references.
func (c *ChainStore) VerifyTransaction(tx *txn.Transaction) (bool, error) {
	if tx.IsCoinbase() {
		return true, nil
	}
	prevTxs, err := c.gatherPrevTxs(tx)
	if err != nil {
		return false, err
	}
	return txn.Verify(tx, prevTxs)
}

func retryLocked(dir string, opts badger.Options) (*badger.DB, error) {
	lockPath := filepath.Join(dir, "LOCK")
	if err := os.Remove(lockPath); err != nil {
		return nil, fmt.Errorf("removing stale lock file: %w", err)
	}
	return badger.Open(opts)
}

func openDB(path string) (*badger.DB, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	db, err := badger.Open(opts)
	if err == nil {
		return db, nil
	}
	if strings.Contains(err.Error(), "LOCK") {
		if db, rerr := retryLocked(path, opts); rerr == nil {
			log.Warn("recovered stale badger lock")
			return db, nil
		}
	}
	return nil, ledgerr.Wrapf(ledgerr.ErrStorageFailure, "opening chain store at %s: %v", path, err)
}
