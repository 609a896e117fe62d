package wallet

import (
	"bytes"
	"encoding/gob"

	"github.com/dgraph-io/badger/v4"

	"github.com/utxochain/ledger/internal/ledgerr"
	"github.com/utxochain/ledger/internal/logging"
)

var log = logging.For("wallet")

// Store is the persistent address -> Wallet map, backed by the "wallets"
// badger keyspace.
type Store struct {
	db *badger.DB
}

// OpenStore opens (creating if absent) the wallets keyspace at path.
func OpenStore(path string) (*Store, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, ledgerr.Wrapf(ledgerr.ErrStorageFailure, "opening wallet store at %s: %v", path, err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Create generates a new wallet, persists it under its address, and
// returns the address.
func (s *Store) Create() (string, error) {
	w, err := New()
	if err != nil {
		return "", err
	}
	addr := w.Address()
	if err := s.put(addr, w); err != nil {
		return "", err
	}
	log.WithField("address", addr).Info("created wallet")
	return addr, nil
}

// Get retrieves the wallet stored under addr, or nil if no such wallet
// exists.
func (s *Store) Get(addr string) (*Wallet, error) {
	var w *Wallet
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(addr))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			decoded, derr := decodeWallet(val)
			if derr != nil {
				return derr
			}
			w = decoded
			return nil
		})
	})
	if err != nil {
		return nil, ledgerr.Wrapf(ledgerr.ErrStorageFailure, "reading wallet %s: %v", addr, err)
	}
	return w, nil
}

// Addresses returns every address held in the store.
func (s *Store) Addresses() ([]string, error) {
	var addrs []string
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			addrs = append(addrs, string(it.Item().KeyCopy(nil)))
		}
		return nil
	})
	if err != nil {
		return nil, ledgerr.Wrapf(ledgerr.ErrStorageFailure, "listing wallet addresses: %v", err)
	}
	return addrs, nil
}

func (s *Store) put(addr string, w *Wallet) error {
	encoded, err := encodeWallet(w)
	if err != nil {
		return err
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(addr), encoded)
	})
	if err != nil {
		return ledgerr.Wrapf(ledgerr.ErrStorageFailure, "writing wallet %s: %v", addr, err)
	}
	return nil
}

type walletRecord struct {
	Seed       [32]byte
	PrivateKey []byte
	PublicKey  []byte
}

func encodeWallet(w *Wallet) ([]byte, error) {
	var buf bytes.Buffer
	rec := walletRecord{Seed: w.Seed, PrivateKey: w.PrivateKey, PublicKey: w.PublicKey}
	if err := gob.NewEncoder(&buf).Encode(rec); err != nil {
		return nil, ledgerr.Wrapf(ledgerr.ErrSerialization, "encoding wallet: %v", err)
	}
	return buf.Bytes(), nil
}

func decodeWallet(data []byte) (*Wallet, error) {
	var rec walletRecord
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&rec); err != nil {
		return nil, ledgerr.Wrapf(ledgerr.ErrSerialization, "decoding wallet: %v", err)
	}
	return &Wallet{Seed: rec.Seed, PrivateKey: rec.PrivateKey, PublicKey: rec.PublicKey}, nil
}
