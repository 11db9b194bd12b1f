package verify

import (
	"bytes"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/example/trustrpc/chainspec"
	"github.com/example/trustrpc/codec"
	"github.com/example/trustrpc/evm"
)

var (
	ErrUnprovenAccount    = errors.New("verify: evm touched an account with no supplied proof")
	ErrCodeHashMismatch   = errors.New("verify: supplied code does not hash to the proven account's codeHash")
	ErrCallRequiresTarget = errors.New("verify: eth_call verification requires a non-nil target address")
	ErrCallReverted       = errors.New("verify: local replay reverted")
	ErrCallOutputMismatch = errors.New("verify: local replay output does not match claimed result")
	ErrUnprovenBlockHash  = errors.New("verify: evm read a block hash with no supplied witness")
)

// ContractWitness bundles everything VerifyCall needs to let the EVM
// safely read one address: its account proof, optionally its code (when
// the call path executes it), and a storage proof per slot the caller
// expects to be read. Every field the EVM actually touches must have a
// witness here ahead of time — spec.md's eth_call row requires "account
// proof for target contract plus storage and code proofs for every
// slot/contract the EVM touches," not a lazy fetch-as-you-go model.
type ContractWitness struct {
	AccountProof  [][]byte
	Code          []byte
	StorageProofs map[common.Hash][][]byte
}

// CallOracle implements evm.StateOracle entirely from pre-verified proof
// material, so an eth_call replay can never read anything a server wasn't
// made to prove. Constructed once via BuildCallOracle per call.
type CallOracle struct {
	ctx         evm.BlockContext
	accounts    map[common.Address]*Account
	codes       map[common.Address][]byte
	storage     map[common.Address]map[common.Hash]*big.Int
	blockHashes map[uint64]common.Hash
}

// BuildCallOracle verifies every supplied witness against stateRoot (and,
// for storage, against each account's own proven storageRoot) before
// exposing them through the oracle interface.
func BuildCallOracle(header *Header, stateRoot common.Hash, witnesses map[common.Address]ContractWitness, blockHashes map[uint64]common.Hash) (*CallOracle, error) {
	o := &CallOracle{
		ctx:         blockContextFromHeader(header),
		accounts:    make(map[common.Address]*Account, len(witnesses)),
		codes:       make(map[common.Address][]byte, len(witnesses)),
		storage:     make(map[common.Address]map[common.Hash]*big.Int, len(witnesses)),
		blockHashes: blockHashes,
	}
	for addr, w := range witnesses {
		acc, err := VerifyAccountProof(stateRoot, addr, w.AccountProof)
		if err != nil {
			return nil, err
		}
		if acc == nil {
			acc = &Account{Balance: big.NewInt(0), StorageRoot: emptyRootHash, CodeHash: emptyCodeHash}
		}
		if len(w.Code) > 0 {
			if common.BytesToHash(codec.Keccak256(w.Code)) != acc.CodeHash {
				return nil, ErrCodeHashMismatch
			}
			o.codes[addr] = w.Code
		}
		slots := make(map[common.Hash]*big.Int, len(w.StorageProofs))
		for slot, proof := range w.StorageProofs {
			v, err := VerifyStorageProof(acc.StorageRoot, slot, proof)
			if err != nil {
				return nil, err
			}
			slots[slot] = v
		}
		o.accounts[addr] = acc
		o.storage[addr] = slots
	}
	return o, nil
}

func blockContextFromHeader(h *Header) evm.BlockContext {
	return evm.BlockContext{
		Coinbase:   h.Coinbase,
		Timestamp:  h.Timestamp,
		Number:     h.Number.Uint64(),
		Difficulty: h.Difficulty,
		GasLimit:   h.GasLimit,
		BaseFee:    h.BaseFee,
	}
}

func (o *CallOracle) GetBalance(addr common.Address) (*big.Int, error) {
	acc, ok := o.accounts[addr]
	if !ok {
		return nil, ErrUnprovenAccount
	}
	return acc.Balance, nil
}

func (o *CallOracle) GetCodeHash(addr common.Address) (common.Hash, error) {
	acc, ok := o.accounts[addr]
	if !ok {
		return common.Hash{}, ErrUnprovenAccount
	}
	return acc.CodeHash, nil
}

func (o *CallOracle) GetCode(addr common.Address) ([]byte, error) {
	if _, ok := o.accounts[addr]; !ok {
		return nil, ErrUnprovenAccount
	}
	return o.codes[addr], nil
}

func (o *CallOracle) GetCodeSize(addr common.Address) (int, error) {
	code, err := o.GetCode(addr)
	if err != nil {
		return 0, err
	}
	return len(code), nil
}

func (o *CallOracle) GetStorageAt(addr common.Address, key common.Hash) (common.Hash, error) {
	slots, ok := o.storage[addr]
	if !ok {
		return common.Hash{}, ErrUnprovenAccount
	}
	v, ok := slots[key]
	if !ok || v == nil {
		return common.Hash{}, nil
	}
	var out common.Hash
	v.FillBytes(out[:])
	return out, nil
}

func (o *CallOracle) GetBlockHash(number uint64) (common.Hash, error) {
	h, ok := o.blockHashes[number]
	if !ok {
		return common.Hash{}, ErrUnprovenBlockHash
	}
	return h, nil
}

func (o *CallOracle) BlockContext() evm.BlockContext { return o.ctx }

// GetNonce satisfies the EVM's optional nonce-reading capability
// interface (see evm.oracleNonceOrZero), letting CREATE's address
// derivation use a proven nonce instead of defaulting to zero.
func (o *CallOracle) GetNonce(addr common.Address) (uint64, error) {
	acc, ok := o.accounts[addr]
	if !ok {
		return 0, ErrUnprovenAccount
	}
	return acc.Nonce, nil
}

// VerifyCall replays msg against oracle and confirms the output matches
// claimedOutput, implementing spec.md's eth_call row: "re-execute the
// call locally and compare output." eip gates the gas-repricing EIPs
// active at the block being replayed, so an out-of-gas replay fails the
// same way the real node's execution would have.
func VerifyCall(oracle *CallOracle, msg evm.CallMessage, claimedOutput []byte, eip chainspec.EipFlags) error {
	if msg.To == nil {
		return ErrCallRequiresTarget
	}
	code, err := oracle.GetCode(*msg.To)
	if err != nil {
		return err
	}
	res, err := evm.Run(code, msg, oracle, false, eip)
	if err != nil {
		return err
	}
	if res.Reverted {
		return ErrCallReverted
	}
	if !bytes.Equal(res.ReturnData, claimedOutput) {
		return ErrCallOutputMismatch
	}
	return nil
}
