package client

import (
	"encoding/json"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/example/trustrpc/chainspec"
	"github.com/example/trustrpc/verify"
)

// ErrNoEnvelope means a response carried no "in3" proof envelope at
// all, so there is nothing for a verifier to check against.
var ErrNoEnvelope = errors.New("client: response has no in3 proof envelope")

// ErrRPC wraps a JSON-RPC error object a node returned instead of a
// result.
type ErrRPC struct {
	Code    int
	Message string
}

func (e *ErrRPC) Error() string { return e.Message }

// unverified lists methods whose first well-formed node answer this
// client passes through rather than Merkle-verifying (no majority vote
// is taken), because the value they return is
// node policy rather than chain state with a proof obligation —
// spec.md names only the methods in verify.Dispatch as having a proof
// requirement; eth_gasPrice is the one convenience wrapper this client
// exposes outside that set.
var unverified = map[string]bool{
	"eth_gasPrice": true,
}

// blockResultHash is the minimal shape this client reads off of an
// eth_getBlockByNumber/ByHash JSON result: the node's claimed hash,
// which VerifyBlockHeader cross-checks the embedded RLP header against.
type blockResultHash struct {
	Hash common.Hash `json:"hash"`
}

// verifierContext carries everything outside of the raw response bytes
// that a method verifier needs apart from the request params (which are
// passed to the verifier per call): the active chain spec, the
// attestation threshold this Client was configured with, and the
// registry contract address in3_nodeList proofs are checked against.
type verifierContext struct {
	spec                 *chainspec.ChainSpec
	attestationThreshold int
	registryAddr         common.Address
}

// buildVerifier closes over ctx and returns an rpcctx.Verifier: parse
// the response envelope, build a verify.Request for method, and run it
// through verify.Dispatch.
func (vc *verifierContext) buildVerifier() func(method string, params json.RawMessage, raw []byte) (any, error) {
	return func(method string, params json.RawMessage, raw []byte) (any, error) {
		var resp rawResponse
		if err := json.Unmarshal(raw, &resp); err != nil {
			return nil, err
		}
		if resp.Error != nil {
			return nil, &ErrRPC{Code: resp.Error.Code, Message: resp.Error.Message}
		}
		if unverified[method] {
			var v hexutil.Big
			if err := json.Unmarshal(resp.Result, &v); err != nil {
				return nil, err
			}
			return (*big.Int)(&v), nil
		}
		verifier, ok := verify.Dispatch[method]
		if !ok {
			return nil, verify.ErrUnknownMethod
		}
		if resp.In3 == nil {
			return nil, ErrNoEnvelope
		}

		req, err := vc.buildRequest(method, params, resp.Result, resp.In3)
		if err != nil {
			return nil, err
		}
		return verifier(req)
	}
}

func (vc *verifierContext) buildRequest(method string, params json.RawMessage, result json.RawMessage, env *envelope) (*verify.Request, error) {
	req := &verify.Request{
		Method:               method,
		HeaderRaw:            env.Block,
		Spec:                 vc.spec,
		Attestations:         env.attestations(),
		AttestationThreshold: vc.attestationThreshold,
	}

	switch method {
	case "eth_getBlockByNumber", "eth_getBlockByHash":
		var br blockResultHash
		if len(result) > 0 {
			_ = json.Unmarshal(result, &br)
		}
		req.BlockHash = br.Hash
		var includeTx bool
		var args []json.RawMessage
		if err := json.Unmarshal(params, &args); err == nil && len(args) >= 2 {
			_ = json.Unmarshal(args[1], &includeTx)
		}
		req.IncludeTx = includeTx

	case "eth_getBalance", "eth_getCode", "eth_getTransactionCount", "eth_getStorageAt":
		acc := env.firstAccount()
		if acc == nil {
			return nil, ErrNoEnvelope
		}
		req.Address = acc.Address
		req.AccountProof = decodeHexList(acc.AccountProof)
		header, err := verify.VerifyBlockHeader(env.Block, req.BlockHash)
		if err == nil {
			req.StateRoot = header.StateRoot
		}
		if method == "eth_getStorageAt" {
			slot, err := storageSlotFromParams(params)
			if err != nil {
				return nil, err
			}
			req.Slot = slot
			if sp := acc.storageWitness(slot); sp != nil {
				req.StorageProof = decodeHexList(sp.Proof)
				req.ExpectedStorageValue = sp.expectedStorageValue()
			}
		}

	case "eth_getLogs":
		for _, blk := range env.LogProof {
			header, err := verify.DecodeHeader(blk.Block)
			if err != nil {
				continue
			}
			for _, r := range blk.Receipts {
				req.LogWitnesses = append(req.LogWitnesses, verify.LogWitness{
					TxRoot:       header.TxRoot,
					ReceiptRoot:  header.ReceiptRoot,
					TxIndex:      uint64(r.TxIndex),
					RawTx:        r.RawTx,
					TxProof:      decodeHexList(r.TxProof),
					ReceiptProof: decodeHexList(r.Proof),
				})
			}
		}
		filter, err := logFilterFromParams(params)
		if err != nil {
			return nil, err
		}
		req.Filter = filter

	case "in3_nodeList":
		acc := env.firstAccount()
		if acc == nil {
			return nil, ErrNoEnvelope
		}
		req.Registry = vc.registryAddr
		req.AccountProof = decodeHexList(acc.AccountProof)
		header, err := verify.VerifyBlockHeader(env.Block, req.BlockHash)
		if err == nil {
			req.StateRoot = header.StateRoot
		}
		for _, sp := range acc.StorageProof {
			req.NodeSlots = append(req.NodeSlots, verify.NodeListWitness{
				Slot:  sp.Key,
				Proof: decodeHexList(sp.Proof),
			})
		}

	case "eth_getTransactionByHash", "eth_getTransactionReceipt":
		// Both ride on the same per-block witness shape eth_getLogs
		// uses (one block header plus one receipt reference), since a
		// single-transaction proof is just that array trimmed to one
		// entry.
		if len(env.LogProof) == 0 || len(env.LogProof[0].Receipts) == 0 {
			return nil, ErrNoEnvelope
		}
		blk := env.LogProof[0]
		ref := blk.Receipts[0]
		header, err := verify.DecodeHeader(blk.Block)
		if err != nil {
			return nil, err
		}
		req.TxIndex = uint64(ref.TxIndex)
		req.TxHash = ref.TxHash
		req.RawTx = ref.RawTx
		if method == "eth_getTransactionByHash" {
			req.StateRoot = header.TxRoot
			req.TxProof = decodeHexList(ref.TxProof)
			var res struct {
				From common.Address `json:"from"`
			}
			_ = json.Unmarshal(result, &res)
			req.From = res.From
		} else {
			req.StateRoot = header.ReceiptRoot
			req.ReceiptProof = decodeHexList(ref.Proof)
		}

	case "eth_sendRawTransaction":
		var rawTx hexutil.Bytes
		var args []json.RawMessage
		if err := json.Unmarshal(params, &args); err == nil && len(args) >= 1 {
			_ = json.Unmarshal(args[0], &rawTx)
		}
		req.RawTx = rawTx
		var returnedHash common.Hash
		_ = json.Unmarshal(result, &returnedHash)
		req.ReturnedHash = returnedHash
	}

	return req, nil
}

func storageSlotFromParams(params json.RawMessage) (common.Hash, error) {
	var args []json.RawMessage
	if err := json.Unmarshal(params, &args); err != nil || len(args) < 2 {
		return common.Hash{}, errors.New("client: eth_getStorageAt requires address and slot params")
	}
	var slot common.Hash
	if err := json.Unmarshal(args[1], &slot); err != nil {
		return common.Hash{}, err
	}
	return slot, nil
}

func logFilterFromParams(params json.RawMessage) (verify.LogFilter, error) {
	var args []json.RawMessage
	if err := json.Unmarshal(params, &args); err != nil || len(args) < 1 {
		return verify.LogFilter{}, errors.New("client: eth_getLogs requires a filter object param")
	}
	var raw struct {
		Address   []common.Address `json:"address"`
		FromBlock *hexutil.Big     `json:"fromBlock"`
		ToBlock   *hexutil.Big     `json:"toBlock"`
		BlockHash *common.Hash     `json:"blockHash"`
		Topics    []*[]common.Hash `json:"topics"`
	}
	if err := json.Unmarshal(args[0], &raw); err != nil {
		return verify.LogFilter{}, err
	}
	f := verify.LogFilter{Addresses: raw.Address, BlockHash: raw.BlockHash, Topics: raw.Topics}
	if raw.FromBlock != nil {
		f.FromBlock = (*big.Int)(raw.FromBlock)
	}
	if raw.ToBlock != nil {
		f.ToBlock = (*big.Int)(raw.ToBlock)
	}
	return f, nil
}
