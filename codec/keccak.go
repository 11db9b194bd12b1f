// Package codec implements the byte primitives shared by every other
// verification layer: Keccak-256 hashing and a canonical RLP encoder/decoder
// exposing the exact API the trie and header verifiers need.
package codec

import "golang.org/x/crypto/sha3"

// Keccak256 returns the Keccak-256 (pre-NIST SHA-3) digest of the
// concatenation of data. This is the hash used throughout the proof chain,
// not the final SHA-3 standard.
func Keccak256(data ...[]byte) []byte {
	h := sha3.NewLegacyKeccak256()
	for _, d := range data {
		h.Write(d)
	}
	return h.Sum(nil)
}

// Keccak256Hash is Keccak256 with its result copied into a fixed 32-byte
// array, for callers that want a comparable value.
func Keccak256Hash(data ...[]byte) [32]byte {
	var out [32]byte
	copy(out[:], Keccak256(data...))
	return out
}
