package abi

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Decode parses an eth_call return value against sig.Outputs.
func Decode(sig *Signature, data []byte) ([]any, error) {
	return decodeTuple(sig.Outputs, data)
}

// decodeTuple decodes a sequence of tokens from a shared region: data[0:]
// is the head (one word per token, or a static block for non-dynamic
// array/tuple tokens), followed by the tail dynamic entries point into.
// It is reused for top-level inputs/outputs, tuple components, and fixed-
// or dynamic-size array elements alike.
func decodeTuple(toks []Token, data []byte) ([]any, error) {
	out := make([]any, len(toks))
	headPos := 0
	for i, t := range toks {
		if isDynamic(t) {
			if headPos+32 > len(data) {
				return nil, fmt.Errorf("arg %d: truncated head", i)
			}
			offset := decodeUintWord(data[headPos : headPos+32])
			if offset > uint64(len(data)) {
				return nil, fmt.Errorf("arg %d: offset %d out of range", i, offset)
			}
			v, err := decodeDynamicContent(t, data[offset:])
			if err != nil {
				return nil, fmt.Errorf("arg %d: %w", i, err)
			}
			out[i] = v
			headPos += 32
			continue
		}
		size := wordsFor(t) * 32
		if headPos+size > len(data) {
			return nil, fmt.Errorf("arg %d: truncated head", i)
		}
		v, err := decodeStaticValue(t, data[headPos:headPos+size])
		if err != nil {
			return nil, fmt.Errorf("arg %d: %w", i, err)
		}
		out[i] = v
		headPos += size
	}
	return out, nil
}

// decodeDynamicContent interprets the tail region a dynamic token's head
// offset pointed to.
func decodeDynamicContent(t Token, data []byte) (any, error) {
	switch {
	case t.ArrayLen < 0:
		if len(data) < 32 {
			return nil, fmt.Errorf("truncated array length")
		}
		n := decodeUintWord(data[:32])
		elem := t
		elem.ArrayLen = 0
		elemToks := make([]Token, n)
		for i := range elemToks {
			elemToks[i] = elem
		}
		return decodeTuple(elemToks, data[32:])
	case t.ArrayLen > 0:
		elem := t
		elem.ArrayLen = 0
		elemToks := make([]Token, t.ArrayLen)
		for i := range elemToks {
			elemToks[i] = elem
		}
		return decodeTuple(elemToks, data)
	case t.Kind == KindTuple:
		return decodeTuple(t.Components, data)
	case t.Kind == KindBytes || t.Kind == KindString:
		if len(data) < 32 {
			return nil, fmt.Errorf("truncated length")
		}
		n := decodeUintWord(data[:32])
		if uint64(len(data)) < 32+n {
			return nil, fmt.Errorf("truncated data")
		}
		raw := make([]byte, n)
		copy(raw, data[32:32+n])
		if t.Kind == KindString {
			return string(raw), nil
		}
		return raw, nil
	default:
		return nil, fmt.Errorf("unsupported dynamic kind %d", t.Kind)
	}
}

// decodeStaticValue decodes a token known not to be dynamic from its
// fixed-size chunk.
func decodeStaticValue(t Token, chunk []byte) (any, error) {
	if t.ArrayLen > 0 {
		elem := t
		elem.ArrayLen = 0
		elemToks := make([]Token, t.ArrayLen)
		for i := range elemToks {
			elemToks[i] = elem
		}
		return decodeTuple(elemToks, chunk)
	}
	switch t.Kind {
	case KindTuple:
		return decodeTuple(t.Components, chunk)
	case KindUint:
		return new(big.Int).SetBytes(chunk[:32]), nil
	case KindInt:
		return decodeSignedInt(chunk[:32]), nil
	case KindAddress:
		var a common.Address
		copy(a[:], chunk[12:32])
		return a, nil
	case KindBool:
		return chunk[31] != 0, nil
	case KindBytes:
		out := make([]byte, t.TypeLen)
		copy(out, chunk[:t.TypeLen])
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported static kind %d", t.Kind)
	}
}

func decodeSignedInt(b []byte) *big.Int {
	n := new(big.Int).SetBytes(b)
	if len(b) > 0 && b[0]&0x80 != 0 {
		mod := new(big.Int).Lsh(big.NewInt(1), uint(len(b)*8))
		n.Sub(n, mod)
	}
	return n
}

func decodeUintWord(b []byte) uint64 {
	var n uint64
	for _, c := range b[len(b)-8:] {
		n = n<<8 | uint64(c)
	}
	return n
}
