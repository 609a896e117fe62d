// Package ledgerr defines the sentinel error kinds shared by every layer of
// the ledger (chain store, UTXO index, transaction signing, CLI). Callers
// compare against these with errors.Is; the command layer maps them to
// process exit codes.
package ledgerr

import "github.com/pkg/errors"

var (
	// ErrNotInitialized is returned when the chain store is opened before
	// a chain has been created.
	ErrNotInitialized = errors.New("chain not initialized")

	// ErrInvalidTransaction is returned by MineBlock when a transaction in the
	// batch fails verification against the chain.
	ErrInvalidTransaction = errors.New("invalid transaction")

	// ErrInsufficientFunds is returned by NewTransferTx when the sender's
	// spendable outputs fall short of the requested amount.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrMissingPrevTx is returned by Sign/Verify when a transaction input
	// references a prior transaction that could not be located.
	ErrMissingPrevTx = errors.New("referenced prior transaction not found")

	// ErrAddressDecode is returned by the address codec on a malformed
	// address (bad checksum, wrong length, invalid base58 alphabet).
	ErrAddressDecode = errors.New("malformed address")

	// ErrStorageFailure wraps an underlying key-value store failure.
	ErrStorageFailure = errors.New("storage failure")

	// ErrSerialization wraps a canonical encoder/decoder failure. Treated
	// as a programming error by callers: it should never occur in
	// practice for values the ledger itself constructed.
	ErrSerialization = errors.New("serialization failure")
)

// Wrap attaches msg as context to cause while preserving cause as the
// root so errors.Is(result, cause) still succeeds.
func Wrap(cause error, msg string) error {
	return errors.Wrap(cause, msg)
}

// Wrapf is Wrap with fmt-style formatting.
func Wrapf(cause error, format string, args ...interface{}) error {
	return errors.Wrapf(cause, format, args...)
}

// Is reports whether err or any error it wraps matches target, delegating
// to errors.Is across the Wrap/Wrapf chain.
func Is(err, target error) bool {
	return errors.Is(err, target)
}
