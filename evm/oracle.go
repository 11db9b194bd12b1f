package evm

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// StateOracle is the capability interface the interpreter calls out to for
// anything that isn't pure computation: account balances, code, storage
// slots, and block context. A real client backs it with proof-verified
// reads (the same account/storage verifiers component F exposes); tests
// back it with an in-memory map. This is the "capability-oriented state
// oracle" redesign spec.md calls for in place of a full state database.
type StateOracle interface {
	GetBalance(addr common.Address) (*big.Int, error)
	GetCodeHash(addr common.Address) (common.Hash, error)
	GetCode(addr common.Address) ([]byte, error)
	GetCodeSize(addr common.Address) (int, error)
	GetStorageAt(addr common.Address, key common.Hash) (common.Hash, error)
	GetBlockHash(number uint64) (common.Hash, error)

	BlockContext() BlockContext
}

// BlockContext carries the environment values opcodes like COINBASE,
// TIMESTAMP, and CHAINID read.
type BlockContext struct {
	Coinbase   common.Address
	Timestamp  uint64
	Number     uint64
	Difficulty *big.Int
	GasLimit   uint64
	ChainID    *big.Int
	BaseFee    *big.Int
}

// CallMessage is the input to a top-level or nested call.
type CallMessage struct {
	From     common.Address
	To       *common.Address // nil for CREATE/CREATE2
	Value    *big.Int
	GasPrice *big.Int
	Gas      uint64
	Data     []byte
}
