package verify

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/trustrpc/codec"
)

func TestVerifyLogWitnessSucceeds(t *testing.T) {
	rawTx := []byte("tx-bytes")
	txIndex := uint64(1)
	txRoot, txNode := accountLeaf(codec.EncodeUint(txIndex), rawTx)

	r := &Receipt{Status: 1, CumulativeGasUsed: 50, Logs: []Log{
		{Address: common.HexToAddress("0xcafe"), Topics: []common.Hash{common.HexToHash("0x01")}},
	}}
	receiptRoot, receiptNode := accountLeaf(codec.EncodeUint(txIndex), encodeReceipt(r))

	w := LogWitness{
		TxRoot: txRoot, ReceiptRoot: receiptRoot, TxIndex: txIndex,
		RawTx: rawTx, TxProof: [][]byte{txNode}, ReceiptProof: [][]byte{receiptNode},
	}
	got, err := VerifyLogWitness(w)
	require.NoError(t, err)
	require.Len(t, got.Logs, 1)
	assert.Equal(t, r.Logs[0].Address, got.Logs[0].Address)
}

func TestMatchesFilterAddressAndTopics(t *testing.T) {
	addr := common.HexToAddress("0xcafe")
	other := common.HexToAddress("0xbeef")
	topic0 := common.HexToHash("0x01")
	log := Log{Address: addr, Topics: []common.Hash{topic0}}

	assert.True(t, MatchesFilter(log, 10, common.Hash{}, LogFilter{}))
	assert.True(t, MatchesFilter(log, 10, common.Hash{}, LogFilter{Addresses: []common.Address{addr}}))
	assert.False(t, MatchesFilter(log, 10, common.Hash{}, LogFilter{Addresses: []common.Address{other}}))

	wantTopic := []common.Hash{topic0}
	assert.True(t, MatchesFilter(log, 10, common.Hash{}, LogFilter{Topics: []*[]common.Hash{&wantTopic}}))

	wrongTopic := []common.Hash{common.HexToHash("0x02")}
	assert.False(t, MatchesFilter(log, 10, common.Hash{}, LogFilter{Topics: []*[]common.Hash{&wrongTopic}}))

	assert.False(t, MatchesFilter(log, 10, common.Hash{}, LogFilter{FromBlock: big.NewInt(11)}))
	assert.True(t, MatchesFilter(log, 10, common.Hash{}, LogFilter{FromBlock: big.NewInt(5), ToBlock: big.NewInt(15)}))
}
