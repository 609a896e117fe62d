// Package utxoset maintains the unspent-transaction-output index: a
// separate badger keyspace keyed "<txid>-<vout>" that lets wallet balance
// and coin selection avoid scanning the whole chain.
package utxoset

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"strconv"
	"strings"

	"github.com/dgraph-io/badger/v4"

	"github.com/utxochain/ledger/internal/block"
	"github.com/utxochain/ledger/internal/ledgerr"
	"github.com/utxochain/ledger/internal/logging"
	"github.com/utxochain/ledger/internal/txn"
)

var log = logging.For("utxoset")

// Iterator matches chainstore.Iterator's shape without this package
// needing to import chainstore, keeping the dependency one-directional.
type Iterator interface {
	Next() (*block.Block, error)
}

// Set is the persistent UTXO index, backed by its own badger database.
type Set struct {
	db *badger.DB
}

// Open opens (creating if absent) the UTXO index at path.
func Open(path string) (*Set, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, ledgerr.Wrapf(ledgerr.ErrStorageFailure, "opening utxo index at %s: %v", path, err)
	}
	return &Set{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Set) Close() error {
	return s.db.Close()
}

func key(txid string, vout int) []byte {
	return []byte(fmt.Sprintf("%s-%d", txid, vout))
}

func splitKey(k []byte) (txid string, vout int, err error) {
	s := string(k)
	idx := strings.LastIndex(s, "-")
	if idx < 0 {
		return "", 0, fmt.Errorf("malformed utxo key %q", s)
	}
	vout, err = strconv.Atoi(s[idx+1:])
	if err != nil {
		return "", 0, fmt.Errorf("malformed utxo key %q: %w", s, err)
	}
	return s[:idx], vout, nil
}

// FindSpendableOutputs selects enough outputs locked to pubKeyHash to
// cover amount, stopping as soon as the accumulated value meets it.
// Implements txn.SpendableFinder.
func (s *Set) FindSpendableOutputs(pubKeyHash []byte, amount int64) (int64, map[string][]int, error) {
	var accumulated int64
	picks := make(map[string][]int)

	err := s.db.View(func(dbTxn *badger.Txn) error {
		it := dbTxn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Rewind(); it.Valid() && accumulated < amount; it.Next() {
			item := it.Item()
			txid, vout, kerr := splitKey(item.KeyCopy(nil))
			if kerr != nil {
				return kerr
			}
			err := item.Value(func(val []byte) error {
				out, derr := decodeOutput(val)
				if derr != nil {
					return derr
				}
				if out.IsLockedWithKey(pubKeyHash) {
					accumulated += out.Value
					picks[txid] = append(picks[txid], vout)
				}
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, nil, ledgerr.Wrapf(ledgerr.ErrStorageFailure, "selecting spendable outputs: %v", err)
	}
	return accumulated, picks, nil
}

// FindUTXO returns every unspent output locked to pubKeyHash.
func (s *Set) FindUTXO(pubKeyHash []byte) ([]txn.TxOutput, error) {
	var outs []txn.TxOutput
	err := s.db.View(func(dbTxn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		it := dbTxn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				out, derr := decodeOutput(val)
				if derr != nil {
					return derr
				}
				if out.IsLockedWithKey(pubKeyHash) {
					outs = append(outs, out)
				}
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, ledgerr.Wrapf(ledgerr.ErrStorageFailure, "scanning utxo set: %v", err)
	}
	return outs, nil
}

// CountTransactions returns the number of distinct transactions that still
// have at least one unspent output in the index.
func (s *Set) CountTransactions() (int, error) {
	txids := make(map[string]struct{})
	err := s.db.View(func(dbTxn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := dbTxn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			txid, _, kerr := splitKey(it.Item().KeyCopy(nil))
			if kerr != nil {
				return kerr
			}
			txids[txid] = struct{}{}
		}
		return nil
	})
	if err != nil {
		return 0, ledgerr.Wrapf(ledgerr.ErrStorageFailure, "counting utxo set: %v", err)
	}
	return len(txids), nil
}

// All dumps every raw (txid, vout) -> output entry currently indexed, in
// undefined order. Backs the printutxo debug command.
func (s *Set) All() (map[string]txn.TxOutput, error) {
	entries := make(map[string]txn.TxOutput)
	err := s.db.View(func(dbTxn *badger.Txn) error {
		it := dbTxn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			k := string(item.KeyCopy(nil))
			err := item.Value(func(val []byte) error {
				out, derr := decodeOutput(val)
				if derr != nil {
					return derr
				}
				entries[k] = out
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, ledgerr.Wrapf(ledgerr.ErrStorageFailure, "dumping utxo set: %v", err)
	}
	return entries, nil
}

// Reindex rebuilds the index from scratch by walking every block the
// chain holds, tracking which outputs were later spent, then writing
// only the survivors.
func (s *Set) Reindex(chain Iterator) error {
	if err := s.clear(); err != nil {
		return err
	}

	type spent struct{ txid string; vout int }
	spentSet := make(map[spent]bool)
	unspent := make(map[spent]txn.TxOutput)

	for {
		b, err := chain.Next()
		if err != nil {
			return err
		}
		if b == nil {
			break
		}
		for _, tx := range b.Transactions {
			for vout, out := range tx.Outputs {
				k := spent{tx.ID, vout}
				if !spentSet[k] {
					unspent[k] = out
				}
			}
			if tx.IsCoinbase() {
				continue
			}
			for _, in := range tx.Inputs {
				k := spent{in.Txid, in.VoutIndex}
				spentSet[k] = true
				delete(unspent, k)
			}
		}
	}

	err := s.db.Update(func(dbTxn *badger.Txn) error {
		for k, out := range unspent {
			encoded, eerr := encodeOutput(out)
			if eerr != nil {
				return eerr
			}
			if err := dbTxn.Set(key(k.txid, k.vout), encoded); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return ledgerr.Wrapf(ledgerr.ErrStorageFailure, "writing reindexed utxo set: %v", err)
	}

	log.WithField("count", len(unspent)).Info("reindexed utxo set")
	return nil
}

// Update applies the outputs/inputs of a newly mined block to the index:
// insert every new output, then delete every output its inputs spend. The
// insert-then-delete order matters when a transaction spends an output
// created by an earlier transaction in the same block: that output is
// inserted and then removed, rather than left behind.
func (s *Set) Update(b *block.Block) error {
	err := s.db.Update(func(dbTxn *badger.Txn) error {
		for _, tx := range b.Transactions {
			for vout, out := range tx.Outputs {
				encoded, eerr := encodeOutput(out)
				if eerr != nil {
					return eerr
				}
				if err := dbTxn.Set(key(tx.ID, vout), encoded); err != nil {
					return err
				}
			}
		}
		for _, tx := range b.Transactions {
			if tx.IsCoinbase() {
				continue
			}
			for _, in := range tx.Inputs {
				if err := dbTxn.Delete(key(in.Txid, in.VoutIndex)); err != nil && err != badger.ErrKeyNotFound {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return ledgerr.Wrapf(ledgerr.ErrStorageFailure, "updating utxo set for block %s: %v", b.Hash, err)
	}
	return nil
}

func (s *Set) clear() error {
	var keys [][]byte
	err := s.db.View(func(dbTxn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := dbTxn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		return nil
	})
	if err != nil {
		return ledgerr.Wrapf(ledgerr.ErrStorageFailure, "listing utxo set for clear: %v", err)
	}
	return s.db.Update(func(dbTxn *badger.Txn) error {
		for _, k := range keys {
			if err := dbTxn.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
}

func encodeOutput(out txn.TxOutput) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(out); err != nil {
		return nil, ledgerr.Wrapf(ledgerr.ErrSerialization, "encoding utxo output: %v", err)
	}
	return buf.Bytes(), nil
}

func decodeOutput(data []byte) (txn.TxOutput, error) {
	var out txn.TxOutput
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&out); err != nil {
		return out, ledgerr.Wrapf(ledgerr.ErrSerialization, "decoding utxo output: %v", err)
	}
	return out, nil
}
