package verify

import (
	"bytes"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/example/trustrpc/codec"
	"github.com/example/trustrpc/trie"
)

// VerifyStorageProof verifies an eth_getProof storageProof entry against an
// account's storageRoot (not the block's stateRoot — storage lives in its
// own trie, unlike the teacher's RSK unified trie where an account's
// storage proof hangs off the same root as the account itself). The
// witnessed value is returned RLP-decoded as a big.Int, matching
// eth_getStorageAt's canonical representation of a zero-trimmed 32-byte
// word; a nil result with a nil error means the slot is unset (reads as
// zero).
func VerifyStorageProof(storageRoot common.Hash, slot common.Hash, proof [][]byte) (*big.Int, error) {
	key := codec.Keccak256(slot.Bytes())
	exists, value, err := trie.FetchProof(storageRoot, key, proof)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, nil
	}
	n, err := decodeStorageValue(value)
	if err != nil {
		return nil, err
	}
	return n, nil
}

// decodeStorageValue unwraps the RLP string encoding a storage trie leaf
// holds its value in (trimmed big-endian integer bytes).
func decodeStorageValue(raw []byte) (*big.Int, error) {
	_, _, payload, err := codec.Decode(raw, 0)
	if err != nil {
		return nil, err
	}
	return new(big.Int).SetBytes(payload), nil
}

// VerifyStorageValue verifies a storage proof and additionally checks the
// witnessed value equals expected, the shape eth_getStorageAt callers need
// when a server hands back both a claimed value and its proof.
func VerifyStorageValue(storageRoot common.Hash, slot common.Hash, expected *big.Int, proof [][]byte) (bool, error) {
	got, err := VerifyStorageProof(storageRoot, slot, proof)
	if err != nil {
		return false, err
	}
	if got == nil {
		return expected == nil || expected.Sign() == 0, nil
	}
	if expected == nil {
		return false, nil
	}
	return bytes.Equal(got.Bytes(), expected.Bytes()), nil
}
