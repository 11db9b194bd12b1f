package verify

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/trustrpc/codec"
)

func TestVerifyNodeListProof(t *testing.T) {
	registry := common.HexToAddress("0xf00d")
	slot := common.HexToHash("0x01")

	storageRoot, storageNode := storageLeaf(slot, big.NewInt(3))
	accValue := encodeAccount(1, big.NewInt(0), storageRoot, emptyCodeHash)
	stateRoot, accNode := accountLeaf(codec.Keccak256(registry.Bytes()), accValue)

	values, err := VerifyNodeListProof(stateRoot, registry, [][]byte{accNode}, []NodeListWitness{
		{Slot: slot, Proof: [][]byte{storageNode}},
	})
	require.NoError(t, err)
	require.Contains(t, values, slot)
	assert.Equal(t, 0, big.NewInt(3).Cmp(values[slot]))
}

func TestVerifyNodeListProofRejectsNonExistentRegistry(t *testing.T) {
	registry := common.HexToAddress("0xf00d")
	other := common.HexToAddress("0xbeef")
	accValue := encodeAccount(0, big.NewInt(0), emptyRootHash, emptyCodeHash)
	stateRoot, accNode := accountLeaf(codec.Keccak256(other.Bytes()), accValue)

	_, err := VerifyNodeListProof(stateRoot, registry, [][]byte{accNode}, nil)
	assert.Error(t, err)
}
