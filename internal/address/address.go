// Package address implements the Base58Check-style textual encoding of a
// 20-byte public-key hash. It is a pure codec: encode/decode of the
// 20-byte body, with a version byte and a 4-byte checksum for
// transcription-error detection. It has no notion of keys or signatures.
package address

import (
	"bytes"

	"github.com/mr-tron/base58"

	"github.com/utxochain/ledger/internal/chainutil"
	"github.com/utxochain/ledger/internal/ledgerr"
)

const (
	// Version is the single network version byte this deployment uses.
	// There is only one network here (no testnet/mainnet split), so the
	// value is arbitrary but fixed.
	Version = byte(0x00)

	checksumLength = 4
	bodyLength     = 20
)

// Encode renders a 20-byte public-key hash as a checked, Base58 address.
func Encode(pubKeyHash []byte) string {
	versioned := append([]byte{Version}, pubKeyHash...)
	checksum := chainutil.Checksum(versioned)
	full := append(versioned, checksum...)
	return base58.Encode(full)
}

// Decode recovers the 20-byte public-key hash body from an address,
// validating its version byte and checksum. Returns ledgerr.ErrAddressDecode
// (wrapped with detail) on any structural or checksum mismatch.
func Decode(addr string) ([]byte, error) {
	full, err := base58.Decode(addr)
	if err != nil {
		return nil, ledgerr.Wrapf(ledgerr.ErrAddressDecode, "base58 decode %q: %v", addr, err)
	}
	if len(full) != 1+bodyLength+checksumLength {
		return nil, ledgerr.Wrapf(ledgerr.ErrAddressDecode, "address %q has wrong length %d", addr, len(full))
	}

	version := full[0]
	body := full[1 : 1+bodyLength]
	wantChecksum := full[1+bodyLength:]

	if version != Version {
		return nil, ledgerr.Wrapf(ledgerr.ErrAddressDecode, "address %q has unknown version byte %x", addr, version)
	}

	gotChecksum := chainutil.Checksum(append([]byte{version}, body...))
	if !bytes.Equal(gotChecksum, wantChecksum) {
		return nil, ledgerr.Wrapf(ledgerr.ErrAddressDecode, "address %q failed checksum", addr)
	}

	return body, nil
}

// Valid reports whether addr decodes cleanly, without returning the body.
func Valid(addr string) bool {
	_, err := Decode(addr)
	return err == nil
}
