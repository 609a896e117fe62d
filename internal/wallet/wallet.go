// Package wallet implements key generation, address derivation, and the
// persistent address-to-keypair store, derived from a 32-byte seed via
// Ed25519 (seed -> (secret, public)).
package wallet

import (
	"crypto/ed25519"
	"crypto/rand"

	"github.com/utxochain/ledger/internal/address"
	"github.com/utxochain/ledger/internal/chainutil"
	"github.com/utxochain/ledger/internal/ledgerr"
)

// Wallet is a (secret seed, keypair) pair. The seed is kept so the wallet
// can be re-derived or re-serialized deterministically; PrivateKey and
// PublicKey are the derived signing key and its 32-byte public half.
type Wallet struct {
	Seed       [32]byte
	PrivateKey ed25519.PrivateKey
	PublicKey  ed25519.PublicKey
}

// New generates a fresh wallet from 32 bytes of crypto/rand.
func New() (*Wallet, error) {
	var seed [32]byte
	if _, err := rand.Read(seed[:]); err != nil {
		return nil, ledgerr.Wrap(err, "generating wallet seed")
	}
	return FromSeed(seed)
}

// FromSeed deterministically derives a wallet from a 32-byte secret seed.
func FromSeed(seed [32]byte) (*Wallet, error) {
	priv := ed25519.NewKeyFromSeed(seed[:])
	pub, ok := priv.Public().(ed25519.PublicKey)
	if !ok {
		return nil, ledgerr.Wrap(ledgerr.ErrSerialization, "deriving ed25519 public key")
	}
	return &Wallet{Seed: seed, PrivateKey: priv, PublicKey: pub}, nil
}

// PubKeyHash returns RIPEMD160(SHA256(PublicKey)).
func (w *Wallet) PubKeyHash() []byte {
	return chainutil.HashPubKey(w.PublicKey)
}

// Address returns the wallet's textual address: the encoding of its
// public-key hash. Two wallets with equal public keys have equal addresses.
func (w *Wallet) Address() string {
	return address.Encode(w.PubKeyHash())
}
