package verify

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/trustrpc/codec"
)

func encodeLog(l Log) []byte {
	topics := make([][]byte, len(l.Topics))
	for i, t := range l.Topics {
		topics[i] = codec.EncodeBytes(t.Bytes())
	}
	return codec.EncodeList(
		codec.EncodeBytes(l.Address.Bytes()),
		codec.EncodeList(topics...),
		codec.EncodeBytes(l.Data),
	)
}

func encodeReceipt(r *Receipt) []byte {
	logs := make([][]byte, len(r.Logs))
	for i, l := range r.Logs {
		logs[i] = encodeLog(l)
	}
	return codec.EncodeList(
		codec.EncodeUint(r.Status),
		codec.EncodeUint(r.CumulativeGasUsed),
		codec.EncodeBytes(r.Bloom[:]),
		codec.EncodeList(logs...),
	)
}

func TestDecodeReceiptRoundtrip(t *testing.T) {
	r := &Receipt{
		Status:            1,
		CumulativeGasUsed: 21000,
		Logs: []Log{
			{
				Address: common.HexToAddress("0xcafe"),
				Topics:  []common.Hash{common.HexToHash("0x01")},
				Data:    []byte("hello"),
			},
		},
	}
	raw := encodeReceipt(r)

	decoded, err := DecodeReceipt(raw)
	require.NoError(t, err)
	assert.Equal(t, r.Status, decoded.Status)
	assert.Equal(t, r.CumulativeGasUsed, decoded.CumulativeGasUsed)
	require.Len(t, decoded.Logs, 1)
	assert.Equal(t, r.Logs[0].Address, decoded.Logs[0].Address)
	assert.Equal(t, r.Logs[0].Topics, decoded.Logs[0].Topics)
	assert.Equal(t, r.Logs[0].Data, decoded.Logs[0].Data)
}

func TestVerifyReceiptProofSucceeds(t *testing.T) {
	r := &Receipt{Status: 1, CumulativeGasUsed: 100}
	raw := encodeReceipt(r)
	txIndex := uint64(2)
	root, node := accountLeaf(codec.EncodeUint(txIndex), raw)

	got, err := VerifyReceiptProof(root, txIndex, [][]byte{node})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), got.Status)
	assert.Equal(t, uint64(100), got.CumulativeGasUsed)
}

func TestVerifyReceiptProofMissingFails(t *testing.T) {
	r := &Receipt{Status: 1, CumulativeGasUsed: 100}
	raw := encodeReceipt(r)
	root, node := accountLeaf(codec.EncodeUint(uint64(2)), raw)

	_, err := VerifyReceiptProof(root, uint64(3), [][]byte{node})
	assert.Error(t, err)
}
