package abi

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSignatureSimple(t *testing.T) {
	s, err := ParseSignature("balanceOf(address):uint256")
	require.NoError(t, err)
	assert.Equal(t, "balanceOf", s.Name)
	require.Len(t, s.Inputs, 1)
	assert.Equal(t, KindAddress, s.Inputs[0].Kind)
	require.Len(t, s.Outputs, 1)
	assert.Equal(t, KindUint, s.Outputs[0].Kind)
	assert.Equal(t, 32, s.Outputs[0].TypeLen)
	assert.Equal(t, "balanceOf(address)", s.Canonical())
}

func TestParseSignatureTupleAndArray(t *testing.T) {
	s, err := ParseSignature("batch((uint256,bool)[],address)")
	require.NoError(t, err)
	require.Len(t, s.Inputs, 2)
	assert.Equal(t, KindTuple, s.Inputs[0].Kind)
	assert.Equal(t, -1, s.Inputs[0].ArrayLen)
	require.Len(t, s.Inputs[0].Components, 2)
	assert.Equal(t, KindUint, s.Inputs[0].Components[0].Kind)
	assert.Equal(t, KindBool, s.Inputs[0].Components[1].Kind)
}

func TestEncodeDecodeStaticArgs(t *testing.T) {
	s, err := ParseSignature("balanceOf(address):uint256")
	require.NoError(t, err)

	addr := common.HexToAddress("0x000000000000000000000000000000deadbeef")
	data, err := Encode(s, addr)
	require.NoError(t, err)

	assert.Len(t, data, 4+32)
	selector := data[:4]
	assert.NotEmpty(t, selector)

	ret := make([]byte, 32)
	big.NewInt(123456).FillBytes(ret)
	out, err := Decode(s, ret)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, big.NewInt(123456), out[0])
}

func TestEncodeDecodeDynamicBytes(t *testing.T) {
	s, err := ParseSignature("setData(bytes):()")
	require.NoError(t, err)
	payload := []byte("hello world")
	data, err := Encode(s, payload)
	require.NoError(t, err)

	// Output round trip: a function returning (bytes).
	outSig, err := ParseSignature("getData():(bytes)")
	require.NoError(t, err)
	// The encoded tail of data (after the 4-byte selector) is exactly the
	// head+tail region a (bytes) return value would also produce.
	out, err := Decode(outSig, data[4:])
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, payload, out[0])
}

func TestEncodeDecodeDynamicArray(t *testing.T) {
	s, err := ParseSignature("sum(uint256[]):uint256")
	require.NoError(t, err)
	values := []any{big.NewInt(1), big.NewInt(2), big.NewInt(3)}
	data, err := Encode(s, values)
	require.NoError(t, err)
	assert.True(t, len(data) > 4)

	outSig, err := ParseSignature("values():(uint256[])")
	require.NoError(t, err)
	out, err := Decode(outSig, data[4:])
	require.NoError(t, err)
	require.Len(t, out, 1)
	decoded := out[0].([]any)
	require.Len(t, decoded, 3)
	assert.Equal(t, big.NewInt(1), decoded[0])
	assert.Equal(t, big.NewInt(3), decoded[2])
}

func TestEncodeNegativeInt(t *testing.T) {
	s, err := ParseSignature("setOffset(int256):()")
	require.NoError(t, err)
	data, err := Encode(s, big.NewInt(-1))
	require.NoError(t, err)
	word := data[4:36]
	for _, b := range word {
		assert.Equal(t, byte(0xff), b)
	}
}
