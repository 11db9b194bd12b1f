package rpcctx

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/trustrpc/registry"
)

type fakeTransport struct {
	responses map[string][]byte
	errs      map[string]error
	calls     int
}

func (f *fakeTransport) Send(ctx context.Context, url string, body []byte) ([]byte, error) {
	f.calls++
	if err, ok := f.errs[url]; ok {
		return nil, err
	}
	return f.responses[url], nil
}

func twoNodeChain() *registry.Chain {
	c := registry.NewChain(1, 0)
	c.SetNodes(10, []registry.Node{
		{URL: "node-a", Capacity: 1, Deposit: 1},
		{URL: "node-b", Capacity: 1, Deposit: 1},
	})
	return c
}

func TestCallReturnsVerifiedValueOnFirstRound(t *testing.T) {
	chain := twoNodeChain()
	tr := &fakeTransport{responses: map[string][]byte{
		"node-a": []byte(`{"id":1,"result":"0x1"}`),
		"node-b": []byte(`{"id":1,"result":"0x1"}`),
	}}
	verifier := func(method string, params json.RawMessage, raw []byte) (any, error) {
		return "verified", nil
	}
	c := New(chain, tr, verifier, nil, Config{RequestCount: 1, RetryInterval: time.Millisecond})

	got, err := c.Call(context.Background(), "eth_getBalance", nil)
	require.NoError(t, err)
	assert.Equal(t, "verified", got)
}

func TestCallBlacklistsNodeOnVerificationFailureAndRetries(t *testing.T) {
	chain := registry.NewChain(1, 0)
	chain.SetNodes(10, []registry.Node{
		{URL: "bad", Capacity: 1, Deposit: 1},
		{URL: "good", Capacity: 1, Deposit: 1},
	})
	tr := &fakeTransport{responses: map[string][]byte{
		"bad":  []byte(`{"id":1,"result":"0xbad"}`),
		"good": []byte(`{"id":1,"result":"0xgood"}`),
	}}
	verifier := func(method string, params json.RawMessage, raw []byte) (any, error) {
		if string(raw) == `{"id":1,"result":"0xbad"}` {
			return nil, errors.New("proof mismatch")
		}
		return "good-value", nil
	}
	c := New(chain, tr, verifier, nil, Config{RequestCount: 1, RetryInterval: time.Millisecond, RetryBudget: 5})

	// Force deterministic node selection order by blacklisting "bad" isn't
	// known up front; run enough rounds that both nodes get a chance and
	// the loop must recover after one bad verification.
	got, err := c.Call(context.Background(), "eth_getBalance", nil)
	require.NoError(t, err)
	assert.Equal(t, "good-value", got)
}

func TestCallReturnsErrExhaustedWhenTransportAlwaysFails(t *testing.T) {
	chain := twoNodeChain()
	tr := &fakeTransport{errs: map[string]error{
		"node-a": errors.New("connection refused"),
		"node-b": errors.New("connection refused"),
	}}
	c := New(chain, tr, nil, nil, Config{RequestCount: 1, RetryInterval: time.Millisecond, RetryBudget: 2})

	_, err := c.Call(context.Background(), "eth_getBalance", nil)
	assert.ErrorIs(t, err, ErrExhausted)
}

func TestCallPreHandleShortCircuitsNetwork(t *testing.T) {
	chain := twoNodeChain()
	tr := &fakeTransport{}
	preHandle := func(method string, params json.RawMessage) (any, bool, error) {
		if method == "net_version" {
			return "1", true, nil
		}
		return nil, false, nil
	}
	c := New(chain, tr, nil, preHandle, Config{})

	got, err := c.Call(context.Background(), "net_version", nil)
	require.NoError(t, err)
	assert.Equal(t, "1", got)
	assert.Equal(t, 0, tr.calls)
}

func TestCallPropagatesRPCError(t *testing.T) {
	chain := registry.NewChain(1, 0)
	chain.SetNodes(10, []registry.Node{{URL: "n", Capacity: 1, Deposit: 1}})
	tr := &fakeTransport{responses: map[string][]byte{
		"n": []byte(`{"id":1,"error":{"code":-32000,"message":"boom"}}`),
	}}
	c := New(chain, tr, nil, nil, Config{RequestCount: 1, RetryInterval: time.Millisecond, RetryBudget: 1})

	_, err := c.Call(context.Background(), "eth_getBalance", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}
