package verify

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/trustrpc/codec"
	"github.com/example/trustrpc/trie"
)

func encodeAccount(nonce uint64, balance *big.Int, storageRoot, codeHash common.Hash) []byte {
	return codec.EncodeList(
		codec.EncodeUint(nonce),
		codec.EncodeBigInt(balance),
		codec.EncodeBytes(storageRoot.Bytes()),
		codec.EncodeBytes(codeHash.Bytes()),
	)
}

// accountLeaf builds a single-leaf trie (root == the leaf node itself) so
// account proof tests don't need to exercise the branch-walking logic
// already covered in package trie.
func accountLeaf(key []byte, value []byte) (common.Hash, []byte) {
	nibbles := trie.ToNibbles(key)
	nibbles = nibbles[:len(nibbles)-1]
	node := codec.EncodeList(codec.EncodeBytes(hexPrefixLeaf(nibbles)), codec.EncodeBytes(value))
	return common.BytesToHash(codec.Keccak256(node)), node
}

// hexPrefixLeaf applies the even-length leaf hex-prefix encoding; account
// keys are always full 32-byte keccak hashes (64 nibbles, even), so the odd
// case never arises here.
func hexPrefixLeaf(nibbles []byte) []byte {
	out := []byte{0x20}
	for i := 0; i < len(nibbles); i += 2 {
		out = append(out, nibbles[i]<<4|nibbles[i+1])
	}
	return out
}

func TestVerifyAccountProofExisting(t *testing.T) {
	addr := common.HexToAddress("0xaaaa")
	key := codec.Keccak256(addr.Bytes())
	codeHash := common.HexToHash("0xbeef")
	value := encodeAccount(3, big.NewInt(1000), emptyRootHash, codeHash)

	root, node := accountLeaf(key, value)

	acc, err := VerifyAccountProof(root, addr, [][]byte{node})
	require.NoError(t, err)
	require.NotNil(t, acc)
	assert.Equal(t, uint64(3), acc.Nonce)
	assert.Equal(t, 0, big.NewInt(1000).Cmp(acc.Balance))
	assert.Equal(t, codeHash, acc.CodeHash)
	assert.False(t, acc.IsEmptyAccount())
}

func TestVerifyAccountProofNonExistent(t *testing.T) {
	addr := common.HexToAddress("0xaaaa")
	otherAddr := common.HexToAddress("0xbbbb")
	key := codec.Keccak256(otherAddr.Bytes())
	value := encodeAccount(0, big.NewInt(0), common.Hash{}, common.Hash{})
	root, node := accountLeaf(key, value)

	acc, err := VerifyAccountProof(root, addr, [][]byte{node})
	require.NoError(t, err)
	assert.Nil(t, acc)

	absent, err := VerifyAccountNonExistence(root, addr, [][]byte{node})
	require.NoError(t, err)
	assert.True(t, absent)
}

func TestVerifyAccountNonExistenceRejectsPresentAccount(t *testing.T) {
	addr := common.HexToAddress("0xaaaa")
	key := codec.Keccak256(addr.Bytes())
	value := encodeAccount(1, big.NewInt(1), emptyRootHash, emptyCodeHash)
	root, node := accountLeaf(key, value)

	absent, err := VerifyAccountNonExistence(root, addr, [][]byte{node})
	require.NoError(t, err)
	assert.False(t, absent)
}

func TestDecodeAccountEmptyFieldsUseCanonicalMarkers(t *testing.T) {
	// storageRoot and codeHash as empty RLP strings, not 32 zero bytes
	value := codec.EncodeList(codec.EncodeUint(0), codec.EncodeBigInt(big.NewInt(0)), codec.EncodeBytes(nil), codec.EncodeBytes(nil))
	acc, err := decodeAccount(value)
	require.NoError(t, err)
	assert.Equal(t, emptyRootHash, acc.StorageRoot)
	assert.Equal(t, emptyCodeHash, acc.CodeHash)
	assert.True(t, acc.IsEmptyAccount())
}
