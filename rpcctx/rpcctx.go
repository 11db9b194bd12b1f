// Package rpcctx drives one logical JSON-RPC request to completion:
// pick nodes from a registry.Chain, fan a request out to them in
// parallel, verify each response against the method's proof
// obligation, and retry with replacement nodes until a verified
// response is obtained or the retry budget is spent.
package rpcctx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/example/trustrpc/registry"
	"github.com/example/trustrpc/rlog"
)

// Transport sends a raw JSON-RPC request body to the node at url and
// returns the raw response body. Implementations live in hostiface;
// rpcctx only depends on this narrow interface, following the
// teacher's ethclient.Client shape (a thin RPC-call wrapper) without
// depending on its concrete HTTP/WS machinery.
type Transport interface {
	Send(ctx context.Context, url string, body []byte) ([]byte, error)
}

// Verifier checks one response's embedded proof envelope against
// method and the request params that produced it, returning the
// trust-established value on success. Concrete verifiers are built by
// the client package on top of verify.Dispatch; rpcctx stays agnostic
// of the proof envelope's JSON shape, which is chain- and
// method-specific.
type Verifier func(method string, params json.RawMessage, raw []byte) (any, error)

// PreHandle lets a caller intercept a method before any node is
// contacted — local signing of eth_sendTransaction into a raw signed
// transaction, or answering a local-only method (e.g. net_version from
// cached chain config) without a round trip. Returning handled=false
// falls through to the normal send loop.
type PreHandle func(method string, params json.RawMessage) (result any, handled bool, err error)

// Config tunes one Context's retry behavior. Zero-value fields fall
// back to the teacher's RSKTxMgrConfig-style defaults via
// Config.withDefaults.
type Config struct {
	NetworkTimeout time.Duration
	RetryInterval  time.Duration
	RetryBudget    int
	RequestCount   int
	BlacklistShort time.Duration
	BlacklistLong  time.Duration
}

func (c Config) withDefaults() Config {
	if c.NetworkTimeout == 0 {
		c.NetworkTimeout = 10 * time.Second
	}
	if c.RetryInterval == 0 {
		c.RetryInterval = time.Second
	}
	if c.RetryBudget == 0 {
		c.RetryBudget = 5
	}
	if c.RequestCount == 0 {
		c.RequestCount = 1
	}
	if c.BlacklistShort == 0 {
		c.BlacklistShort = 30 * time.Second
	}
	if c.BlacklistLong == 0 {
		c.BlacklistLong = 10 * time.Minute
	}
	return c
}

// request is the JSON-RPC envelope sent to every selected node.
type request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int             `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
}

// response is the JSON-RPC envelope expected back from a node.
type response struct {
	ID     int             `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// Context drives send rounds for one chain's node list.
type Context struct {
	chain     *registry.Chain
	transport Transport
	verify    Verifier
	preHandle PreHandle
	cfg       Config
}

// New builds a Context. verifier and preHandle may be nil; a nil
// preHandle means every method goes to the network.
func New(chain *registry.Chain, transport Transport, verifier Verifier, preHandle PreHandle, cfg Config) *Context {
	return &Context{
		chain:     chain,
		transport: transport,
		verify:    verifier,
		preHandle: preHandle,
		cfg:       cfg.withDefaults(),
	}
}

// ErrExhausted is returned when the retry budget is spent without a
// single verified response.
var ErrExhausted = errors.New("rpcctx: retry budget exhausted without a verified response")

// Call drives method to completion per spec.md §4.H: pre_handle short
// circuit, then send/verify/retry rounds against the node registry.
func (c *Context) Call(ctx context.Context, method string, params json.RawMessage) (any, error) {
	if c.preHandle != nil {
		if result, handled, err := c.preHandle(method, params); handled {
			return result, err
		}
	}

	reqID := uuid.New().String()
	log := rlog.ForRequest(reqID).With("method", method)

	body, err := json.Marshal(request{JSONRPC: "2.0", ID: 1, Method: method, Params: params})
	if err != nil {
		return nil, err
	}

	var lastErr error

	for round := 0; round < c.cfg.RetryBudget; round++ {
		picked, err := c.chain.Select(c.cfg.RequestCount, time.Now())
		if err != nil {
			return nil, err
		}

		results := c.dispatchRound(ctx, picked, body)

		for _, r := range results {
			if r.err != nil {
				c.chain.Blacklist(r.nodeIndex, c.cfg.BlacklistShort, time.Now())
				log.Debug("node request failed", "node", c.chain.Nodes[r.nodeIndex].URL, "round", round, "err", r.err)
				lastErr = r.err
				continue
			}
			c.chain.RecordResponseTime(r.nodeIndex, r.elapsed)

			value, verr := c.verifyResponse(method, params, r.raw)
			if verr != nil {
				c.chain.Blacklist(r.nodeIndex, c.cfg.BlacklistLong, time.Now())
				log.Warn("verification failed", "node", c.chain.Nodes[r.nodeIndex].URL, "round", round, "err", verr)
				lastErr = verr
				continue
			}
			return value, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.cfg.RetryInterval):
		}
	}

	log.Error("retry budget exhausted", "rounds", c.cfg.RetryBudget, "lastErr", lastErr)
	if lastErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrExhausted, lastErr)
	}
	return nil, ErrExhausted
}

func (c *Context) verifyResponse(method string, params json.RawMessage, raw []byte) (any, error) {
	var env response
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, err
	}
	if env.Error != nil {
		return nil, env.Error
	}
	if c.verify == nil {
		return env.Result, nil
	}
	return c.verify(method, params, raw)
}

type sendResult struct {
	nodeIndex int
	raw       []byte
	elapsed   time.Duration
	err       error
}

// dispatchRound fans the request out to every picked node in parallel
// and collects a result (or timeout error) per node, following the
// teacher's bounded-fan-out idiom with errgroup in place of hand-rolled
// WaitGroup/channel plumbing.
func (c *Context) dispatchRound(ctx context.Context, picked []int, body []byte) []sendResult {
	results := make([]sendResult, len(picked))
	g, gctx := errgroup.WithContext(ctx)

	for i, nodeIndex := range picked {
		i, nodeIndex := i, nodeIndex
		g.Go(func() error {
			url := c.chain.Nodes[nodeIndex].URL
			callCtx, cancel := context.WithTimeout(gctx, c.cfg.NetworkTimeout)
			defer cancel()

			start := time.Now()
			raw, err := c.transport.Send(callCtx, url, body)
			results[i] = sendResult{nodeIndex: nodeIndex, raw: raw, elapsed: time.Since(start), err: err}
			return nil
		})
	}
	_ = g.Wait()
	return results
}
