package registry

import (
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func threeNodeChain() *Chain {
	c := NewChain(1, 0)
	c.SetNodes(100, []Node{
		{URL: "http://a", Capacity: 1, Deposit: 10},
		{URL: "http://b", Capacity: 1, Deposit: 10},
		{URL: "http://c", Capacity: 1, Deposit: 10},
	})
	return c
}

func TestSelectReturnsAllNodesWhenFewerThanRequested(t *testing.T) {
	c := threeNodeChain()
	picked, err := c.Select(5, time.Now())
	require.NoError(t, err)
	assert.Len(t, picked, 3)
}

func TestSelectPicksDistinctSubset(t *testing.T) {
	c := threeNodeChain()
	picked, err := c.Select(2, time.Now())
	require.NoError(t, err)
	assert.Len(t, picked, 2)
	assert.NotEqual(t, picked[0], picked[1])
}

func TestSelectSkipsBelowMinDeposit(t *testing.T) {
	c := NewChain(1, 20)
	c.SetNodes(100, []Node{
		{URL: "http://a", Capacity: 1, Deposit: 10},
		{URL: "http://b", Capacity: 1, Deposit: 30},
	})
	picked, err := c.Select(5, time.Now())
	require.NoError(t, err)
	require.Len(t, picked, 1)
	assert.Equal(t, "http://b", c.Nodes[picked[0]].URL)
}

func TestSelectSkipsBlacklistedNodes(t *testing.T) {
	c := threeNodeChain()
	now := time.Now()
	c.Blacklist(0, time.Minute, now)
	picked, err := c.Select(5, now)
	require.NoError(t, err)
	require.Len(t, picked, 2)
	for _, i := range picked {
		assert.NotEqual(t, 0, i)
	}
}

func TestSelectLivenessOverrideClearsBlacklistWhenMajorityDown(t *testing.T) {
	c := threeNodeChain()
	now := time.Now()
	c.Blacklist(0, time.Minute, now)
	c.Blacklist(1, time.Minute, now)
	picked, err := c.Select(5, now)
	require.NoError(t, err)
	assert.Len(t, picked, 3)
}

func TestSelectReturnsErrNoNodesFoundWhenEmpty(t *testing.T) {
	c := NewChain(1, 0)
	_, err := c.Select(1, time.Now())
	assert.ErrorIs(t, err, ErrNoNodesFound)
}

func TestRecordResponseTimeLowersEffectiveAverageBelowDefault(t *testing.T) {
	c := threeNodeChain()
	for i := 0; i < 5; i++ {
		c.RecordResponseTime(0, 100*time.Millisecond)
	}
	live, _ := c.liveNodes(time.Now())
	var w0 float64
	for _, cand := range live {
		if cand.index == 0 {
			w0 = cand.weight
		}
	}
	assert.Greater(t, w0, effectiveWeight(c.Nodes[1], c.weights[1]))
}

func TestFromResultAppliesDefaults(t *testing.T) {
	nodes, err := FromResult([]RawNode{
		{URL: "http://x", Address: common.HexToAddress("0x01")},
	})
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	assert.Equal(t, uint32(1), nodes[0].Capacity)
	assert.Equal(t, uint64(65535), nodes[0].Props)
}

func TestFromResultRejectsMissingURL(t *testing.T) {
	_, err := FromResult([]RawNode{{Address: common.HexToAddress("0x01")}})
	assert.ErrorIs(t, err, ErrMissingURL)
}

func TestCrossCheckDepositsDetectsMismatch(t *testing.T) {
	nodes := []Node{{URL: "http://a", Deposit: 10}}
	assert.NoError(t, CrossCheckDeposits(nodes, map[int]uint64{0: 10}))
	assert.ErrorIs(t, CrossCheckDeposits(nodes, map[int]uint64{0: 11}), ErrDepositMismatch)
}
