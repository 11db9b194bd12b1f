package client

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/example/trustrpc/codec"
	"github.com/example/trustrpc/hostiface"
	"github.com/example/trustrpc/registry"
)

// encodeTestHeader RLP-encodes a minimal header using the same field
// order verify.Header.encode does, so tests can produce a block blob
// and its hash without needing an exported constructor from verify.
func encodeTestHeader(number uint64, stateRoot, txRoot, receiptRoot common.Hash) []byte {
	fields := [][]byte{
		codec.EncodeBytes(common.Hash{}.Bytes()),
		codec.EncodeBytes(common.Hash{}.Bytes()),
		codec.EncodeBytes(common.Address{}.Bytes()),
		codec.EncodeBytes(stateRoot.Bytes()),
		codec.EncodeBytes(txRoot.Bytes()),
		codec.EncodeBytes(receiptRoot.Bytes()),
		codec.EncodeBytes(make([]byte, 256)),
		codec.EncodeBigInt(big.NewInt(1)),
		codec.EncodeBigInt(new(big.Int).SetUint64(number)),
		codec.EncodeUint(8000000),
		codec.EncodeUint(21000),
		codec.EncodeUint(1700000000),
		codec.EncodeBytes(nil),
		codec.EncodeBytes(common.Hash{}.Bytes()),
		codec.EncodeBytes(make([]byte, 8)),
	}
	return codec.EncodeList(fields...)
}

func headerHash(raw []byte) common.Hash {
	return common.BytesToHash(codec.Keccak256(raw))
}

// fakeTransport answers every Send with a canned, per-method full
// JSON-RPC response body, mirroring rpcctx_test.go's stub transport
// pattern one layer up. Each entry is the complete response object
// (result/error/in3), not just a result value.
type fakeTransport struct {
	responses map[string]json.RawMessage
	calls     int
}

func (f *fakeTransport) Send(ctx context.Context, url string, body []byte) ([]byte, error) {
	f.calls++
	var req struct {
		Method string          `json:"method"`
		Params json.RawMessage `json:"params"`
	}
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, err
	}
	resp, ok := f.responses[req.Method]
	if !ok {
		return nil, fmt.Errorf("fakeTransport: no stub for %s", req.Method)
	}
	return resp, nil
}

// rpcResult wraps a bare result value into a full JSON-RPC response
// body with no proof envelope, for methods this client never verifies.
func rpcResult(t *testing.T, result any) json.RawMessage {
	t.Helper()
	resultJSON, err := json.Marshal(result)
	require.NoError(t, err)
	full, err := json.Marshal(map[string]json.RawMessage{"result": resultJSON})
	require.NoError(t, err)
	return full
}

func newTestClient(t *testing.T, transport *fakeTransport) *Client {
	t.Helper()
	c := newClient(Options{ChainID: 7, RequestCount: 1, RetryBudget: 1}, transport)
	c.SeedNodes(0, []registry.Node{{URL: "http://node-0", Capacity: 1}})
	return c
}

func TestNewClientAnswersChainIDLocally(t *testing.T) {
	c := newTestClient(t, &fakeTransport{responses: map[string]json.RawMessage{}})
	result, err := c.RPC(context.Background(), "eth_chainId", json.RawMessage("[]"))
	require.NoError(t, err)
	require.EqualValues(t, 7, result)
}

func TestGasPricePassesThroughUnverified(t *testing.T) {
	transport := &fakeTransport{responses: map[string]json.RawMessage{
		"eth_gasPrice": rpcResult(t, "0x3b9aca00"),
	}}
	c := newTestClient(t, transport)

	price, err := c.GasPrice(context.Background())
	require.NoError(t, err)
	require.Equal(t, big.NewInt(1000000000), price)
}

func TestGetBlockByNumberVerifiesHeaderHash(t *testing.T) {
	raw := encodeTestHeader(42, common.Hash{}, common.Hash{}, common.Hash{})
	hash := headerHash(raw)

	resultJSON, err := json.Marshal(map[string]any{"hash": hash})
	require.NoError(t, err)

	env := envelope{Block: raw}
	envJSON, err := json.Marshal(env)
	require.NoError(t, err)

	full, err := json.Marshal(map[string]json.RawMessage{
		"result": resultJSON,
		"in3":    envJSON,
	})
	require.NoError(t, err)

	transport := &fakeTransport{responses: map[string]json.RawMessage{
		"eth_getBlockByNumber": full,
	}}
	c := newTestClient(t, transport)

	header, err := c.GetBlockByNumber(context.Background(), big.NewInt(42), false)
	require.NoError(t, err)
	require.Equal(t, uint64(42), header.Number.Uint64())
}

func TestUninstallFilterRemovesRegisteredFilter(t *testing.T) {
	raw := encodeTestHeader(1, common.Hash{}, common.Hash{}, common.Hash{})
	hash := headerHash(raw)
	resultJSON, _ := json.Marshal(map[string]any{"hash": hash})
	envJSON, _ := json.Marshal(envelope{Block: raw})
	full, _ := json.Marshal(map[string]json.RawMessage{"result": resultJSON, "in3": envJSON})

	transport := &fakeTransport{responses: map[string]json.RawMessage{
		"eth_getBlockByNumber": full,
	}}
	c := newTestClient(t, transport)

	id, err := c.NewBlockFilter(context.Background())
	require.NoError(t, err)
	require.True(t, c.UninstallFilter(id))
	require.False(t, c.UninstallFilter(id))
}

func TestBootstrapAndPersistRoundTripThroughCache(t *testing.T) {
	cache := hostiface.NewMemCache()
	c := NewClient(Options{ChainID: 9, Cache: cache})
	c.SeedNodes(10, []registry.Node{{URL: "http://node-0", Capacity: 1, Address: common.HexToAddress("0xAB")}})

	contract := common.HexToAddress("0xCC")
	require.NoError(t, c.Persist(contract))

	fresh := NewClient(Options{ChainID: 9, Cache: cache})
	require.NoError(t, fresh.Bootstrap())
	require.Len(t, fresh.chain.Nodes, 1)
	require.Equal(t, "http://node-0", fresh.chain.Nodes[0].URL)
}
