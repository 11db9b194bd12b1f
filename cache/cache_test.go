package cache

import (
	"bytes"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/trustrpc/registry"
)

func sampleSnapshot() Snapshot {
	return Snapshot{
		Contract:  common.HexToAddress("0xabc0000000000000000000000000000000000a"),
		LastBlock: 123456,
		Nodes: []registry.Node{
			{URL: "https://node1.example.org", Address: common.HexToAddress("0x01"), Deposit: 1000, Props: 65535, Capacity: 1, Index: 0},
			{URL: "https://node2.example.org", Address: common.HexToAddress("0x02"), Deposit: 2000, Props: 65535, Capacity: 2, Index: 1},
		},
		Weights: []registry.WeightState{
			{ResponseCount: 5, AvgResponseMillis: 250},
			{BlacklistedUntil: time.Unix(1700000000, 0), ResponseCount: 0, AvgResponseMillis: 0},
		},
	}
}

func TestStoreLoadRoundTrip(t *testing.T) {
	snap := sampleSnapshot()

	var buf bytes.Buffer
	require.NoError(t, Store(&buf, snap))

	got, err := Load(buf.Bytes())
	require.NoError(t, err)

	assert.Equal(t, snap.Contract, got.Contract)
	assert.Equal(t, snap.LastBlock, got.LastBlock)
	require.Len(t, got.Nodes, 2)
	assert.Equal(t, snap.Nodes[0].URL, got.Nodes[0].URL)
	assert.Equal(t, snap.Nodes[1].Capacity, got.Nodes[1].Capacity)
	assert.Equal(t, snap.Nodes[1].Deposit, got.Nodes[1].Deposit)

	require.Len(t, got.Weights, 2)
	assert.Equal(t, uint32(5), got.Weights[0].ResponseCount)
	assert.Equal(t, uint32(250), got.Weights[0].AvgResponseMillis)
	assert.True(t, got.Weights[0].BlacklistedUntil.IsZero())
	assert.Equal(t, snap.Weights[1].BlacklistedUntil.Unix(), got.Weights[1].BlacklistedUntil.Unix())
}

func TestLoadRejectsVersionMismatch(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Store(&buf, sampleSnapshot()))
	blob := buf.Bytes()
	blob[0] = 2

	_, err := Load(blob)
	assert.ErrorIs(t, err, ErrVersionMismatch)
}

func TestLoadRejectsTruncatedBlob(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Store(&buf, sampleSnapshot()))
	blob := buf.Bytes()[:len(buf.Bytes())-3]

	_, err := Load(blob)
	assert.ErrorIs(t, err, ErrTruncated)
}

func TestLoadRejectsEmptyBlob(t *testing.T) {
	_, err := Load(nil)
	assert.ErrorIs(t, err, ErrTruncated)
}

func TestKeyFormatsChainIDAsHex(t *testing.T) {
	assert.Equal(t, "nodelist_1", Key(1))
	assert.Equal(t, "nodelist_ff", Key(255))
}

func TestStoreRejectsMismatchedLengths(t *testing.T) {
	snap := sampleSnapshot()
	snap.Weights = snap.Weights[:1]

	var buf bytes.Buffer
	err := Store(&buf, snap)
	assert.Error(t, err)
}

func TestRoundTripBridgesThroughRegistryWeightState(t *testing.T) {
	chain := registry.NewChain(1, 0)
	chain.SetNodes(100, []registry.Node{
		{URL: "https://a.example.org", Address: common.HexToAddress("0x0a"), Deposit: 10, Props: 65535, Capacity: 1, Index: 0},
	})
	chain.RecordResponseTime(0, 200*time.Millisecond)
	chain.RecordResponseTime(0, 300*time.Millisecond)

	snap := Snapshot{
		Contract:  common.HexToAddress("0xdead"),
		LastBlock: chain.LastBlock,
		Nodes:     chain.Nodes,
		Weights:   chain.ExportWeightState(),
	}

	var buf bytes.Buffer
	require.NoError(t, Store(&buf, snap))

	got, err := Load(buf.Bytes())
	require.NoError(t, err)

	restored := registry.NewChain(1, 0)
	restored.SetNodes(got.LastBlock, got.Nodes)
	restored.ApplyWeightState(got.Weights)

	picked, err := restored.Select(1, time.Now())
	require.NoError(t, err)
	assert.Equal(t, []int{0}, picked)
}
