package verify

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/trustrpc/chainspec"
	"github.com/example/trustrpc/codec"
)

func TestDispatchEthGetBalance(t *testing.T) {
	addr := common.HexToAddress("0xaaaa")
	value := encodeAccount(0, big.NewInt(7), emptyRootHash, emptyCodeHash)
	root, node := accountLeaf(codec.Keccak256(addr.Bytes()), value)

	fn, ok := Dispatch["eth_getBalance"]
	require.True(t, ok)

	got, err := fn(&Request{StateRoot: root, Address: addr, AccountProof: [][]byte{node}})
	require.NoError(t, err)
	bal, ok := got.(*big.Int)
	require.True(t, ok)
	assert.Equal(t, 0, big.NewInt(7).Cmp(bal))
}

func TestDispatchUnknownMethodNotRegistered(t *testing.T) {
	_, ok := Dispatch["totally_unknown_method"]
	assert.False(t, ok)
}

func TestDispatchEthGetBlockByNumberChecksActiveConsensus(t *testing.T) {
	h := newTestHeader()
	raw := h.encode(h.ExtraData)

	spec := &chainspec.ChainSpec{
		EipTransitions:       []chainspec.EipTransition{{BlockNumber: 0}},
		ConsensusTransitions: []chainspec.ConsensusTransition{{BlockNumber: 0, Kind: chainspec.ConsensusPoW}},
	}

	fn := Dispatch["eth_getBlockByNumber"]
	got, err := fn(&Request{HeaderRaw: raw, BlockHash: h.Hash(), Spec: spec})
	require.NoError(t, err)
	_, ok := got.(*Header)
	require.True(t, ok)
}

func TestDispatchEthSendRawTransaction(t *testing.T) {
	raw := []byte("raw-tx")
	hash := common.BytesToHash(codec.Keccak256(raw))
	fn := Dispatch["eth_sendRawTransaction"]

	_, err := fn(&Request{RawTx: raw, ReturnedHash: hash})
	require.NoError(t, err)

	_, err = fn(&Request{RawTx: raw, ReturnedHash: common.HexToHash("0xdead")})
	assert.Error(t, err)
}
