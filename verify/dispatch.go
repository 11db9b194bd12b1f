package verify

import (
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/example/trustrpc/chainspec"
	"github.com/example/trustrpc/evm"
)

// Request carries every field any single method verifier might need.
// Only the fields relevant to Request.Method are populated by the caller
// (the rpcctx/client layer, which owns parsing the in3 proof envelope
// embedded in a raw JSON-RPC response) — this keeps MethodVerifier a
// single uniform function type dispatched from one map, per spec.md
// §4.D/§4.H, instead of one bespoke call signature per method.
type Request struct {
	Method string

	HeaderRaw []byte
	BlockHash common.Hash
	IncludeTx bool
	RawTxs    [][]byte

	Spec                 *chainspec.ChainSpec
	Attestations         []Attestation
	AttestationThreshold int

	TxIndex uint64
	RawTx   []byte
	TxHash  common.Hash
	From    common.Address
	TxProof [][]byte

	ReceiptProof [][]byte

	StateRoot    common.Hash
	Address      common.Address
	AccountProof [][]byte

	Slot                 common.Hash
	StorageProof         [][]byte
	ExpectedStorageValue *big.Int

	LogWitnesses []LogWitness
	Filter       LogFilter
	BlockNumber  uint64

	Oracle     *CallOracle
	CallMsg    evm.CallMessage
	CallOutput []byte

	ReturnedHash common.Hash

	Registry  common.Address
	NodeSlots []NodeListWitness
}

// MethodVerifier checks one JSON-RPC method's proof obligation and
// returns the trust-established value a caller can safely hand back to
// the application (an *Account, a *Receipt, a decoded log slice, ...).
type MethodVerifier func(*Request) (any, error)

var ErrUnknownMethod = errors.New("verify: no verifier registered for this method")

// Dispatch is the map/table spec.md's §4.D/§4.H call for: one verifier
// function per method, looked up by the raw JSON-RPC method string.
var Dispatch = map[string]MethodVerifier{
	"eth_getBlockByNumber":      verifyBlockMethod,
	"eth_getBlockByHash":        verifyBlockMethod,
	"eth_getTransactionByHash":  verifyTransactionMethod,
	"eth_getTransactionReceipt": verifyReceiptMethod,
	"eth_getBalance":            verifyBalanceMethod,
	"eth_getCode":                verifyCodeMethod,
	"eth_getTransactionCount":    verifyTransactionCountMethod,
	"eth_getStorageAt":           verifyStorageAtMethod,
	"eth_getLogs":                verifyLogsMethod,
	"eth_call":                   verifyCallMethod,
	"eth_sendRawTransaction":     verifySendRawMethod,
	"in3_nodeList":               verifyNodeListMethod,
}

func verifyBlockMethod(r *Request) (any, error) {
	h, err := VerifyBlockHeader(r.HeaderRaw, r.BlockHash)
	if err != nil {
		return nil, err
	}
	if r.Spec != nil {
		if err := VerifyHeaderConsensus(h, r.Spec, r.Attestations, r.AttestationThreshold); err != nil {
			return nil, err
		}
	}
	if r.IncludeTx {
		if err := VerifyIncludedTransactions(h, r.RawTxs); err != nil {
			return nil, err
		}
	}
	return h, nil
}

func verifyTransactionMethod(r *Request) (any, error) {
	if err := VerifyTransactionProof(r.StateRoot, r.TxIndex, r.RawTx, r.TxHash, r.From, r.TxProof); err != nil {
		return nil, err
	}
	return DecodeTransaction(r.RawTx)
}

func verifyReceiptMethod(r *Request) (any, error) {
	return VerifyReceiptProof(r.StateRoot, r.TxIndex, r.ReceiptProof)
}

func verifyBalanceMethod(r *Request) (any, error) {
	acc, err := verifyAccountOrEmpty(r)
	if err != nil {
		return nil, err
	}
	return acc.Balance, nil
}

func verifyCodeMethod(r *Request) (any, error) {
	acc, err := verifyAccountOrEmpty(r)
	if err != nil {
		return nil, err
	}
	return acc.CodeHash, nil
}

func verifyTransactionCountMethod(r *Request) (any, error) {
	acc, err := verifyAccountOrEmpty(r)
	if err != nil {
		return nil, err
	}
	return acc.Nonce, nil
}

func verifyAccountOrEmpty(r *Request) (*Account, error) {
	acc, err := VerifyAccountProof(r.StateRoot, r.Address, r.AccountProof)
	if err != nil {
		return nil, err
	}
	if acc == nil {
		acc = &Account{Balance: big.NewInt(0), StorageRoot: emptyRootHash, CodeHash: emptyCodeHash}
	}
	return acc, nil
}

func verifyStorageAtMethod(r *Request) (any, error) {
	acc, err := verifyAccountOrEmpty(r)
	if err != nil {
		return nil, err
	}
	if r.ExpectedStorageValue != nil {
		ok, err := VerifyStorageValue(acc.StorageRoot, r.Slot, r.ExpectedStorageValue, r.StorageProof)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrHashMismatch
		}
		return r.ExpectedStorageValue, nil
	}
	return VerifyStorageProof(acc.StorageRoot, r.Slot, r.StorageProof)
}

func verifyLogsMethod(r *Request) (any, error) {
	var out []Log
	for _, w := range r.LogWitnesses {
		receipt, err := VerifyLogWitness(w)
		if err != nil {
			return nil, err
		}
		for _, log := range receipt.Logs {
			if MatchesFilter(log, r.BlockNumber, r.BlockHash, r.Filter) {
				out = append(out, log)
			}
		}
	}
	return out, nil
}

func verifyCallMethod(r *Request) (any, error) {
	eip := chainspec.EipFlags(0)
	if r.Spec != nil {
		eip = r.Spec.ActiveEip(r.Oracle.BlockContext().Number)
	}
	if err := VerifyCall(r.Oracle, r.CallMsg, r.CallOutput, eip); err != nil {
		return nil, err
	}
	return r.CallOutput, nil
}

func verifySendRawMethod(r *Request) (any, error) {
	if err := VerifySendRawTransaction(r.RawTx, r.ReturnedHash); err != nil {
		return nil, err
	}
	return r.ReturnedHash, nil
}

func verifyNodeListMethod(r *Request) (any, error) {
	return VerifyNodeListProof(r.StateRoot, r.Registry, r.AccountProof, r.NodeSlots)
}
