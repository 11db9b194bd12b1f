package chainspec

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMainnetLoadsAndValidates(t *testing.T) {
	spec, err := Mainnet()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), spec.NetworkID)
}

func TestActiveEipReturnsLargestBlockNotExceedingQuery(t *testing.T) {
	spec, err := Mainnet()
	require.NoError(t, err)

	assert.Equal(t, EipFlags(0), spec.ActiveEip(0))
	assert.Equal(t, EipFlags(0), spec.ActiveEip(2462999))
	assert.Equal(t, EipFlags(4), spec.ActiveEip(2463000))
	assert.Equal(t, EipFlags(4095), spec.ActiveEip(20000000))
}

func TestActiveEipFlagsAreMonotonicallyAccumulating(t *testing.T) {
	spec, err := Mainnet()
	require.NoError(t, err)

	var prev EipFlags
	for _, b := range []uint64{0, 2463000, 2675000, 4370000, 7280000, 9069000} {
		cur := spec.ActiveEip(b)
		assert.Equal(t, prev, prev&cur, "flags must only accumulate, never clear, at block %d", b)
		prev = cur
	}
}

func TestActiveConsensusReturnsGoverningTransition(t *testing.T) {
	spec, err := Mainnet()
	require.NoError(t, err)

	got := spec.ActiveConsensus(100)
	assert.Equal(t, ConsensusPoW, got.Kind)
}

func TestValidateRejectsEmptySpec(t *testing.T) {
	s := &ChainSpec{}
	assert.ErrorIs(t, s.Validate(), ErrEmptySpec)
}

func TestValidateRejectsNonGenesisFirstTransition(t *testing.T) {
	s := &ChainSpec{
		EipTransitions:       []EipTransition{{BlockNumber: 5}},
		ConsensusTransitions: []ConsensusTransition{{BlockNumber: 0, Kind: ConsensusPoW}},
	}
	assert.ErrorIs(t, s.Validate(), ErrMissingGenesisTransition)
}

func TestValidatorSetBuildsMembershipMap(t *testing.T) {
	a := common.HexToAddress("0x01")
	b := common.HexToAddress("0x02")
	tr := ConsensusTransition{Kind: ConsensusPoAClique, Validators: []common.Address{a, b}}

	set := tr.ValidatorSet()
	assert.True(t, set[a])
	assert.True(t, set[b])
	assert.False(t, set[common.HexToAddress("0x03")])
}

func TestLoadRejectsUnsortedTransitions(t *testing.T) {
	data := []byte(`{
		"networkId": 1,
		"eipTransitions": [{"blockNumber":0,"flags":0},{"blockNumber":100,"flags":1},{"blockNumber":50,"flags":2}],
		"consensusTransitions": [{"blockNumber":0,"kind":"pow"}]
	}`)
	_, err := Load(data)
	assert.Error(t, err)
}
