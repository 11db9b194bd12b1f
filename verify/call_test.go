package verify

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/trustrpc/codec"
	"github.com/example/trustrpc/evm"
)

// sloadAndReturnCode reads storage slot 0 and returns it: SLOAD, PUSH1 0,
// MSTORE, PUSH1 32, PUSH1 0, RETURN.
var sloadAndReturnCode = []byte{
	0x60, 0x00, // PUSH1 0
	0x54,       // SLOAD
	0x60, 0x00, // PUSH1 0
	0x52,       // MSTORE
	0x60, 0x20, // PUSH1 32
	0x60, 0x00, // PUSH1 0
	0xf3, // RETURN
}

func TestVerifyCallMatchesProvenStorage(t *testing.T) {
	h := newTestHeader()
	contract := common.HexToAddress("0xc0ffee")
	slot := common.Hash{}

	codeHash := common.BytesToHash(codec.Keccak256(sloadAndReturnCode))
	storageRoot, storageProof := storageLeaf(slot, big.NewInt(42))

	// a contract's storageRoot isn't the block's state root — it's a
	// field inside the proven account, pointing at its own trie.
	accValue := encodeAccount(0, big.NewInt(0), storageRoot, codeHash)
	stateRoot, accProof := accountLeaf(codec.Keccak256(contract.Bytes()), accValue)

	witnesses := map[common.Address]ContractWitness{
		contract: {
			AccountProof: [][]byte{accProof},
			Code:         sloadAndReturnCode,
			StorageProofs: map[common.Hash][][]byte{
				slot: {storageProof},
			},
		},
	}

	oracle, err := BuildCallOracle(h, stateRoot, witnesses, nil)
	require.NoError(t, err)

	msg := evm.CallMessage{To: &contract, Gas: 1_000_000}
	want := make([]byte, 32)
	big.NewInt(42).FillBytes(want)

	err = VerifyCall(oracle, msg, want, 0)
	require.NoError(t, err)

	bad := make([]byte, 32)
	big.NewInt(7).FillBytes(bad)
	err = VerifyCall(oracle, msg, bad, 0)
	assert.ErrorIs(t, err, ErrCallOutputMismatch)
}

func TestBuildCallOracleRejectsBadCodeHash(t *testing.T) {
	h := newTestHeader()
	contract := common.HexToAddress("0xc0ffee")
	codeHash := common.BytesToHash(codec.Keccak256(sloadAndReturnCode))
	accValue := encodeAccount(0, big.NewInt(0), emptyRootHash, codeHash)
	stateRoot, accProof := accountLeaf(codec.Keccak256(contract.Bytes()), accValue)

	witnesses := map[common.Address]ContractWitness{
		contract: {
			AccountProof: [][]byte{accProof},
			Code:         []byte{0x00}, // wrong code
		},
	}

	_, err := BuildCallOracle(h, stateRoot, witnesses, nil)
	assert.ErrorIs(t, err, ErrCodeHashMismatch)
}

func TestCallOracleRejectsUnprovenAccount(t *testing.T) {
	h := newTestHeader()
	oracle, err := BuildCallOracle(h, common.Hash{}, map[common.Address]ContractWitness{}, nil)
	require.NoError(t, err)

	_, err = oracle.GetBalance(common.HexToAddress("0xdead"))
	assert.ErrorIs(t, err, ErrUnprovenAccount)
}
