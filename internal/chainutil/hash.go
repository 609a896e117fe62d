// Package chainutil holds the hash primitives and Merkle summarization
// shared by the transaction, block, and wallet layers. None of it is
// specific to any one of them; all of it is load-bearing for cross-layer
// determinism.
package chainutil

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"

	"golang.org/x/crypto/ripemd160" //nolint:staticcheck // pkh primitive, not a security-sensitive hash choice here
)

// Sha256 returns the raw 32-byte SHA-256 digest of data.
func Sha256(data []byte) []byte {
	sum := sha256.Sum256(data)
	return sum[:]
}

// Sha256Hex returns the lowercase hex SHA-256 digest of data.
func Sha256Hex(data []byte) string {
	return hex.EncodeToString(Sha256(data))
}

// HashPubKey returns RIPEMD160(SHA256(pubKey)), the 20-byte public-key hash
// used in both outputs (the locking condition) and addresses (the identity).
func HashPubKey(pubKey []byte) []byte {
	shaHash := sha256.Sum256(pubKey)

	hasher := ripemd160.New()
	if _, err := hasher.Write(shaHash[:]); err != nil {
		// ripemd160.Write never fails for an in-memory hash.Hash; a
		// failure here means something is badly wrong with the runtime.
		panic(err)
	}
	return hasher.Sum(nil)
}

// Checksum returns the first 4 bytes of SHA256(SHA256(payload)), used by the
// address codec to detect transcription errors.
func Checksum(payload []byte) []byte {
	first := sha256.Sum256(payload)
	second := sha256.Sum256(first[:])
	return second[:4]
}

// Int64ToBytes encodes n as 8 big-endian bytes. Used only inside hash
// preimages (proof-of-work, nonce), never for on-disk storage, where gob
// owns the encoding.
func Int64ToBytes(n int64) []byte {
	buf := new(bytes.Buffer)
	// binary.Write on a fixed-width int64 into a bytes.Buffer cannot fail.
	_ = binary.Write(buf, binary.BigEndian, n)
	return buf.Bytes()
}
