package client

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/example/trustrpc/chainspec"
	"github.com/example/trustrpc/filter"
	"github.com/example/trustrpc/hostiface"
	"github.com/example/trustrpc/registry"
	"github.com/example/trustrpc/rpcctx"
	"github.com/example/trustrpc/verify"
)

// batchTransportAdapter adapts a host-supplied hostiface.Transport
// (batched, many URLs per call) onto rpcctx.Transport's single-url
// Send signature by calling it with a one-element batch.
type batchTransportAdapter struct {
	t hostiface.Transport
}

func (a batchTransportAdapter) Send(ctx context.Context, url string, body []byte) ([]byte, error) {
	resps, err := a.t.Send(ctx, []hostiface.Request{{URL: url, Body: body}})
	if err != nil {
		return nil, err
	}
	if len(resps) == 0 {
		return nil, fmt.Errorf("client: transport returned no response for %s", url)
	}
	return resps[0].Body, resps[0].Err
}

// Options configures NewClient. Zero-value fields fall back to
// rpcctx's own defaults (see rpcctx.Config.withDefaults).
type Options struct {
	ChainID              uint64
	MinDeposit           uint64
	RequestCount         int
	RetryBudget          int
	AttestationThreshold int
	Registry             common.Address
	Spec                 *chainspec.ChainSpec

	Transport hostiface.Transport
	Cache     hostiface.Cache
}

// Client is the public API facade: one chain's node registry, send
// loop, and filter table, wired together.
type Client struct {
	chain   *registry.Chain
	rpcCtx  *rpcctx.Context
	filters *filter.Registry
	cache   hostiface.Cache
	spec    *chainspec.ChainSpec
}

// NewClient builds a Client for one chain. The node list is empty
// until Bootstrap or SeedNodes populates it.
func NewClient(opts Options) *Client {
	return newClient(opts, resolveTransport(opts.Transport))
}

// resolveTransport wraps a host-supplied hostiface.Transport for
// rpcctx, or falls back to a plain net/http transport if none was
// given.
func resolveTransport(t hostiface.Transport) rpcctx.Transport {
	if t != nil {
		return batchTransportAdapter{t}
	}
	return hostiface.RPCCtxTransport{HTTP: hostiface.NewHTTPTransport(nil)}
}

// newClient builds a Client around an already-resolved rpcctx.Transport,
// letting tests substitute a stub transport without going through the
// hostiface.Transport batching adapter.
func newClient(opts Options, transport rpcctx.Transport) *Client {
	return newClientWithConfig(opts, transport, rpcctx.Config{RequestCount: opts.RequestCount, RetryBudget: opts.RetryBudget})
}

// newClientWithConfig is newClient plus an explicit rpcctx.Config, used
// by FromConfig to carry a loaded config.Config's timeout/retry/blacklist
// settings through instead of re-deriving rpcctx's own defaults.
func newClientWithConfig(opts Options, transport rpcctx.Transport, cfg rpcctx.Config) *Client {
	chain := registry.NewChain(opts.ChainID, opts.MinDeposit)

	vc := &verifierContext{
		spec:                 opts.Spec,
		attestationThreshold: opts.AttestationThreshold,
		registryAddr:         opts.Registry,
	}

	c := &Client{
		chain:   chain,
		filters: filter.New(),
		cache:   opts.Cache,
		spec:    opts.Spec,
	}
	c.rpcCtx = rpcctx.New(chain, transport, vc.buildVerifier(), c.preHandle, cfg)
	return c
}

// SeedNodes installs an initial node list directly, bypassing
// Bootstrap's cache/network fetch — used by tests and by hosts that
// already know their bootnodes.
func (c *Client) SeedNodes(lastBlock uint64, nodes []registry.Node) {
	c.chain.SetNodes(lastBlock, nodes)
}

// Bootstrap restores a cached node list if one is available, per
// spec.md §4.G's "on startup load the cached list from the persistent
// cache; if missing or outdated, issue an in3_nodeList RPC". Fetching
// from the network when the cache misses is the caller's
// responsibility via RPC("in3_nodeList", ...) once at least one
// bootnode has been seeded, since this client has no node to ask until
// then.
func (c *Client) Bootstrap() error {
	if c.cache == nil {
		return nil
	}
	_, err := hostiface.LoadNodeList(c.cache, c.chain)
	return err
}

// Persist snapshots the current node list and liveness state to the
// configured cache, if any.
func (c *Client) Persist(contract common.Address) error {
	if c.cache == nil {
		return nil
	}
	return hostiface.SaveNodeList(c.cache, contract, c.chain)
}

// preHandle intercepts methods this client answers locally rather than
// dispatching to a node: eth_chainId is answered from the chain id this
// client was built for. Every other method goes to the network.
func (c *Client) preHandle(method string, params json.RawMessage) (any, bool, error) {
	switch method {
	case "eth_chainId":
		return hexutil.Uint64(c.chain.ChainID), true, nil
	default:
		return nil, false, nil
	}
}

// RPC sends method/params through the verify-and-retry loop and
// returns the decoded, trust-established result.
func (c *Client) RPC(ctx context.Context, method string, params json.RawMessage) (any, error) {
	return c.rpcCtx.Call(ctx, method, params)
}

// RPCCtx is the same call, named to mirror spec.md's rpc_ctx for
// callers that want to be explicit they're taking the raw verified
// value tree rather than a convenience-wrapped type.
func (c *Client) RPCCtx(ctx context.Context, method string, params json.RawMessage) (any, error) {
	return c.RPC(ctx, method, params)
}

func marshalParams(args ...any) json.RawMessage {
	data, err := json.Marshal(args)
	if err != nil {
		return json.RawMessage("[]")
	}
	return data
}

func blockNumArg(number *big.Int) string {
	if number == nil {
		return "latest"
	}
	return hexutil.EncodeBig(number)
}

// GetBlockByNumber verifies and returns the header at number (or the
// latest header, if number is nil).
func (c *Client) GetBlockByNumber(ctx context.Context, number *big.Int, includeTx bool) (*verify.Header, error) {
	result, err := c.RPC(ctx, "eth_getBlockByNumber", marshalParams(blockNumArg(number), includeTx))
	if err != nil {
		return nil, err
	}
	h, ok := result.(*verify.Header)
	if !ok {
		return nil, fmt.Errorf("client: unexpected result type %T for eth_getBlockByNumber", result)
	}
	return h, nil
}

// GetBalance verifies and returns account's wei balance at the given
// block.
func (c *Client) GetBalance(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error) {
	result, err := c.RPC(ctx, "eth_getBalance", marshalParams(account, blockNumArg(blockNumber)))
	if err != nil {
		return nil, err
	}
	bal, ok := result.(*big.Int)
	if !ok {
		return nil, fmt.Errorf("client: unexpected result type %T for eth_getBalance", result)
	}
	return bal, nil
}

// GetCode verifies and returns account's code hash at the given block
// (this client verifies the account leaf, not a full code-copy proof,
// so callers receive the codeHash rather than the bytecode itself).
func (c *Client) GetCode(ctx context.Context, account common.Address, blockNumber *big.Int) (common.Hash, error) {
	result, err := c.RPC(ctx, "eth_getCode", marshalParams(account, blockNumArg(blockNumber)))
	if err != nil {
		return common.Hash{}, err
	}
	hash, ok := result.(common.Hash)
	if !ok {
		return common.Hash{}, fmt.Errorf("client: unexpected result type %T for eth_getCode", result)
	}
	return hash, nil
}

// GetStorageAt verifies and returns the value at slot in account's
// storage at the given block.
func (c *Client) GetStorageAt(ctx context.Context, account common.Address, slot common.Hash, blockNumber *big.Int) (*big.Int, error) {
	result, err := c.RPC(ctx, "eth_getStorageAt", marshalParams(account, slot, blockNumArg(blockNumber)))
	if err != nil {
		return nil, err
	}
	val, ok := result.(*big.Int)
	if !ok {
		return nil, fmt.Errorf("client: unexpected result type %T for eth_getStorageAt", result)
	}
	return val, nil
}

// BlockNumber returns the chain's current head number, read from the
// latest header as verified by GetBlockByNumber(nil, false) (this client
// does not issue eth_blockNumber itself, since that value has no proof
// obligation of its own).
func (c *Client) BlockNumber(ctx context.Context) (uint64, error) {
	h, err := c.GetBlockByNumber(ctx, nil, false)
	if err != nil {
		return 0, err
	}
	return h.Number.Uint64(), nil
}

// GasPrice is a convenience pass-through to eth_gasPrice. Gas price
// has no Merkle proof obligation (it is the node's own policy, not
// chain state), so this client returns the first well-formed node
// answer without verifying it: the verifier lists eth_gasPrice in its
// unverified method set.
func (c *Client) GasPrice(ctx context.Context) (*big.Int, error) {
	result, err := c.RPC(ctx, "eth_gasPrice", marshalParams())
	if err != nil {
		return nil, err
	}
	switch v := result.(type) {
	case *big.Int:
		return v, nil
	case hexutil.Big:
		return (*big.Int)(&v), nil
	default:
		return nil, fmt.Errorf("client: unexpected result type %T for eth_gasPrice", result)
	}
}

// GetLogs verifies and returns every log matching filter.
func (c *Client) GetLogs(ctx context.Context, f verify.LogFilter) ([]verify.Log, error) {
	arg := map[string]any{
		"address": f.Addresses,
		"topics":  f.Topics,
	}
	if f.BlockHash != nil {
		arg["blockHash"] = f.BlockHash
	} else {
		arg["fromBlock"] = blockNumArg(f.FromBlock)
		arg["toBlock"] = blockNumArg(f.ToBlock)
	}
	result, err := c.RPC(ctx, "eth_getLogs", marshalParams(arg))
	if err != nil {
		return nil, err
	}
	logs, ok := result.([]verify.Log)
	if !ok {
		return nil, fmt.Errorf("client: unexpected result type %T for eth_getLogs", result)
	}
	return logs, nil
}

// Call verifies and returns the result of a read-only contract call at
// the given block.
func (c *Client) Call(ctx context.Context, msg map[string]any, blockNumber *big.Int) ([]byte, error) {
	result, err := c.RPC(ctx, "eth_call", marshalParams(msg, blockNumArg(blockNumber)))
	if err != nil {
		return nil, err
	}
	out, ok := result.([]byte)
	if !ok {
		return nil, fmt.Errorf("client: unexpected result type %T for eth_call", result)
	}
	return out, nil
}

// receiptPollInterval is how long WaitForReceipt waits between polls
// once a node reports the transaction isn't mined yet.
const receiptPollInterval = 2 * time.Second

// WaitForReceipt polls eth_getTransactionReceipt for txHash until a
// verified receipt is available or ctx is cancelled.
func (c *Client) WaitForReceipt(ctx context.Context, txHash common.Hash) (*verify.Receipt, error) {
	for {
		result, err := c.RPC(ctx, "eth_getTransactionReceipt", marshalParams(txHash))
		if err == nil {
			if r, ok := result.(*verify.Receipt); ok {
				return r, nil
			}
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(receiptPollInterval):
		}
	}
}
