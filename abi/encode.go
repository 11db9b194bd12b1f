package abi

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/example/trustrpc/codec"
)

// Encode builds the call data for sig applied to args: the 4-byte
// selector (first 4 bytes of Keccak-256 of the canonical signature)
// followed by the head/tail encoding of args against sig.Inputs.
func Encode(sig *Signature, args ...any) ([]byte, error) {
	selector := codec.Keccak256([]byte(sig.Canonical()))[:4]
	body, err := encodeTuple(sig.Inputs, args)
	if err != nil {
		return nil, fmt.Errorf("abi: encoding %s: %w", sig.Name, err)
	}
	return append(selector, body...), nil
}

// encodeTuple head/tail-encodes values against toks, the standard
// Solidity ABI scheme: static entries go inline, dynamic entries leave a
// 32-byte offset pointer in the head and their content in the tail.
func encodeTuple(toks []Token, values []any) ([]byte, error) {
	if len(toks) != len(values) {
		return nil, fmt.Errorf("expected %d values, got %d", len(toks), len(values))
	}
	type part struct {
		static []byte
		tail   []byte
		dyn    bool
	}
	parts := make([]part, len(toks))
	headSize := 0
	for i, t := range toks {
		inline, tail, dyn, err := encodeToken(t, values[i])
		if err != nil {
			return nil, fmt.Errorf("arg %d (%s): %w", i, t.canonical(), err)
		}
		parts[i] = part{inline, tail, dyn}
		if dyn {
			headSize += 32
		} else {
			headSize += len(inline)
		}
	}

	var head, tailBuf []byte
	tailOffset := headSize
	for _, p := range parts {
		if p.dyn {
			head = append(head, encodeUintWord(uint64(tailOffset))...)
			tailBuf = append(tailBuf, p.tail...)
			tailOffset += len(p.tail)
		} else {
			head = append(head, p.static...)
		}
	}
	return append(head, tailBuf...), nil
}

// encodeToken dispatches on whether t is an array before falling through
// to encodeScalar for the element type.
func encodeToken(t Token, v any) (inline, tail []byte, dyn bool, err error) {
	if t.ArrayLen != 0 {
		return encodeArray(t, v)
	}
	return encodeScalar(t, v)
}

func encodeArray(t Token, v any) (inline, tail []byte, dyn bool, err error) {
	values, ok := v.([]any)
	if !ok {
		return nil, nil, false, fmt.Errorf("expected []any for array type, got %T", v)
	}
	elem := t
	elem.ArrayLen = 0

	if t.ArrayLen >= 0 && len(values) != t.ArrayLen {
		return nil, nil, false, fmt.Errorf("expected %d elements, got %d", t.ArrayLen, len(values))
	}

	elemToks := make([]Token, len(values))
	for i := range elemToks {
		elemToks[i] = elem
	}
	body, err := encodeTuple(elemToks, values)
	if err != nil {
		return nil, nil, false, err
	}

	if t.ArrayLen < 0 {
		tail = append(encodeUintWord(uint64(len(values))), body...)
		return nil, tail, true, nil
	}
	if isDynamic(elem) {
		return nil, body, true, nil
	}
	return body, nil, false, nil
}

func encodeScalar(t Token, v any) (inline, tail []byte, dyn bool, err error) {
	switch t.Kind {
	case KindTuple:
		values, ok := v.([]any)
		if !ok {
			return nil, nil, false, fmt.Errorf("expected []any for tuple, got %T", v)
		}
		body, err := encodeTuple(t.Components, values)
		if err != nil {
			return nil, nil, false, err
		}
		if isDynamic(t) {
			return nil, body, true, nil
		}
		return body, nil, false, nil
	case KindUint, KindInt:
		b, err := encodeInt(t, v)
		return b, nil, false, err
	case KindAddress:
		b, err := encodeAddress(v)
		return b, nil, false, err
	case KindBool:
		b, err := encodeBool(v)
		return b, nil, false, err
	case KindBytes:
		if t.TypeLen > 0 {
			b, err := encodeFixedBytes(t, v)
			return b, nil, false, err
		}
		b, err := encodeBytesValue(toBytes(v))
		if err != nil {
			return nil, nil, false, err
		}
		return nil, b, true, nil
	case KindString:
		s, ok := v.(string)
		if !ok {
			return nil, nil, false, fmt.Errorf("expected string, got %T", v)
		}
		b, err := encodeBytesValue([]byte(s))
		if err != nil {
			return nil, nil, false, err
		}
		return nil, b, true, nil
	default:
		return nil, nil, false, fmt.Errorf("unsupported kind %d", t.Kind)
	}
}

// encodeBytesValue encodes a dynamic "bytes"/"string" payload as a
// length word followed by the data, right-padded to a 32-byte boundary.
func encodeBytesValue(b []byte) ([]byte, error) {
	out := encodeUintWord(uint64(len(b)))
	padded := make([]byte, wordSize(len(b))*32)
	copy(padded, b)
	return append(out, padded...), nil
}

func encodeFixedBytes(t Token, v any) ([]byte, error) {
	b := toBytes(v)
	if len(b) > t.TypeLen {
		return nil, fmt.Errorf("bytes%d: value too long (%d bytes)", t.TypeLen, len(b))
	}
	out := make([]byte, 32)
	copy(out, b) // left-aligned, zero-padded on the right
	return out, nil
}

func encodeAddress(v any) ([]byte, error) {
	var addr common.Address
	switch x := v.(type) {
	case common.Address:
		addr = x
	case []byte:
		if len(x) != 20 {
			return nil, fmt.Errorf("address must be 20 bytes, got %d", len(x))
		}
		copy(addr[:], x)
	case string:
		addr = common.HexToAddress(x)
	default:
		return nil, fmt.Errorf("unsupported address value type %T", v)
	}
	out := make([]byte, 32)
	copy(out[12:], addr[:])
	return out, nil
}

func encodeBool(v any) ([]byte, error) {
	b, ok := v.(bool)
	if !ok {
		return nil, fmt.Errorf("expected bool, got %T", v)
	}
	out := make([]byte, 32)
	if b {
		out[31] = 1
	}
	return out, nil
}

func encodeInt(t Token, v any) ([]byte, error) {
	n := toBigInt(v)
	if n == nil {
		return nil, fmt.Errorf("unsupported integer value type %T", v)
	}
	out := make([]byte, 32)
	if n.Sign() < 0 {
		// two's complement over 256 bits
		mod := new(big.Int).Lsh(big.NewInt(1), 256)
		n = new(big.Int).Add(mod, n)
	}
	b := n.Bytes()
	if len(b) > 32 {
		return nil, fmt.Errorf("integer overflows 256 bits")
	}
	copy(out[32-len(b):], b)
	return out, nil
}

func encodeUintWord(x uint64) []byte {
	out := make([]byte, 32)
	for i := 0; i < 8; i++ {
		out[31-i] = byte(x >> (8 * i))
	}
	return out
}

func wordSize(n int) int {
	return (n + 31) / 32
}

func toBytes(v any) []byte {
	switch x := v.(type) {
	case []byte:
		return x
	case common.Hash:
		return x[:]
	case string:
		return []byte(x)
	default:
		return nil
	}
}

func toBigInt(v any) *big.Int {
	switch x := v.(type) {
	case *big.Int:
		return x
	case int64:
		return big.NewInt(x)
	case int:
		return big.NewInt(int64(x))
	case uint64:
		return new(big.Int).SetUint64(x)
	case uint:
		return new(big.Int).SetUint64(uint64(x))
	default:
		return nil
	}
}
