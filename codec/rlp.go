package codec

import (
	"errors"
	"math/big"
)

// Kind distinguishes an RLP item's shape: a string payload (KindValue) or a
// list of further items (KindList). RLP itself carries no notion of whether
// a list was embedded inline or referenced by hash — that distinction is
// meaningful only to a caller walking a specific structure (see the trie
// package's resolveChild, which treats a child slot's KindList as an
// embedded node and a 32-byte KindValue as a hash reference).
type Kind int

const (
	KindValue Kind = iota
	KindList
)

var (
	ErrTruncated   = errors.New("codec: rlp input truncated")
	ErrInvalidSize = errors.New("codec: rlp size prefix invalid")
)

// EncodeUint returns the minimal big-endian RLP string encoding of x. Zero
// encodes as the empty string, matching RLP's canonical integer rule.
func EncodeUint(x uint64) []byte {
	if x == 0 {
		return EncodeBytes(nil)
	}
	b := big.NewInt(0).SetUint64(x).Bytes()
	return EncodeBytes(b)
}

// EncodeBigInt returns the minimal big-endian RLP string encoding of x.
// A nil or zero x encodes as the empty string.
func EncodeBigInt(x *big.Int) []byte {
	if x == nil || x.Sign() == 0 {
		return EncodeBytes(nil)
	}
	return EncodeBytes(x.Bytes())
}

// EncodeBytes returns the RLP string encoding of b.
func EncodeBytes(b []byte) []byte {
	if len(b) == 1 && b[0] < 0x80 {
		return []byte{b[0]}
	}
	return append(encodeLength(len(b), 0x80, 0xb7), b...)
}

// EncodeList returns the RLP list encoding wrapping the already-encoded
// items in elems, concatenated in order.
func EncodeList(elems ...[]byte) []byte {
	var payload []byte
	for _, e := range elems {
		payload = append(payload, e...)
	}
	return append(encodeLength(len(payload), 0xc0, 0xf7), payload...)
}

// encodeLength builds the RLP length prefix for a payload of size n, using
// shortBase for the 0-55 byte form and longBase for the long form.
func encodeLength(n int, shortBase, longBase byte) []byte {
	if n <= 55 {
		return []byte{shortBase + byte(n)}
	}
	lenBytes := minimalBigEndian(uint64(n))
	out := make([]byte, 0, 1+len(lenBytes))
	out = append(out, longBase+byte(len(lenBytes)))
	out = append(out, lenBytes...)
	return out
}

func minimalBigEndian(x uint64) []byte {
	if x == 0 {
		return nil
	}
	var buf [8]byte
	i := 8
	for x > 0 {
		i--
		buf[i] = byte(x)
		x >>= 8
	}
	return buf[i:]
}

// Decode parses a single RLP item starting at buf[idx]. It returns the item
// kind, the slice of buf holding the item's raw payload (the string bytes
// for a value, or the concatenated encoded children for a list), and the
// index of the byte following the item.
func Decode(buf []byte, idx int) (kind Kind, slice []byte, next int, err error) {
	if idx >= len(buf) {
		return 0, nil, 0, ErrTruncated
	}
	b := buf[idx]
	switch {
	case b < 0x80:
		return KindValue, buf[idx : idx+1], idx + 1, nil
	case b < 0xb8:
		n := int(b - 0x80)
		start := idx + 1
		end := start + n
		if end > len(buf) {
			return 0, nil, 0, ErrTruncated
		}
		return KindValue, buf[start:end], end, nil
	case b < 0xc0:
		lenOfLen := int(b - 0xb7)
		start := idx + 1
		if start+lenOfLen > len(buf) {
			return 0, nil, 0, ErrTruncated
		}
		n, err := decodeLength(buf[start : start+lenOfLen])
		if err != nil {
			return 0, nil, 0, err
		}
		dataStart := start + lenOfLen
		end := dataStart + n
		if end > len(buf) {
			return 0, nil, 0, ErrTruncated
		}
		return KindValue, buf[dataStart:end], end, nil
	case b < 0xf8:
		n := int(b - 0xc0)
		start := idx + 1
		end := start + n
		if end > len(buf) {
			return 0, nil, 0, ErrTruncated
		}
		return KindList, buf[start:end], end, nil
	default:
		lenOfLen := int(b - 0xf7)
		start := idx + 1
		if start+lenOfLen > len(buf) {
			return 0, nil, 0, ErrTruncated
		}
		n, err := decodeLength(buf[start : start+lenOfLen])
		if err != nil {
			return 0, nil, 0, err
		}
		dataStart := start + lenOfLen
		end := dataStart + n
		if end > len(buf) {
			return 0, nil, 0, ErrTruncated
		}
		return KindList, buf[dataStart:end], end, nil
	}
}

func decodeLength(b []byte) (int, error) {
	if len(b) == 0 || b[0] == 0 {
		return 0, ErrInvalidSize
	}
	var n uint64
	for _, c := range b {
		n = n<<8 | uint64(c)
	}
	if n > uint64(^uint(0)>>1) {
		return 0, ErrInvalidSize
	}
	return int(n), nil
}

// DecodeInList treats buf[idx:] as an RLP list and returns the raw slice of
// its elementIndex'th element (0-based), mirroring the original reference
// client's rlp_decode(node, i, &val) convention used when walking trie and
// header nodes field by field.
func DecodeInList(buf []byte, idx int, elementIndex int) ([]byte, error) {
	kind, list, _, err := Decode(buf, idx)
	if err != nil {
		return nil, err
	}
	if kind != KindList {
		return nil, errors.New("codec: not a list")
	}
	pos := 0
	for i := 0; ; i++ {
		if pos >= len(list) {
			return nil, errors.New("codec: list index out of range")
		}
		_, elem, next, err := Decode(list, pos)
		if err != nil {
			return nil, err
		}
		if i == elementIndex {
			return elem, nil
		}
		pos = next
	}
}

// NthItem decodes the n'th element (0-based) of the RLP list payload in
// list (as returned by Decode's slice for a KindList item). It returns the
// element's kind, its raw encoded span (header and payload both, needed to
// re-decode an embedded child node in place), and its decoded payload.
func NthItem(list []byte, n int) (kind Kind, raw []byte, payload []byte, err error) {
	pos := 0
	for i := 0; ; i++ {
		if pos >= len(list) {
			return 0, nil, nil, errors.New("codec: list index out of range")
		}
		k, elem, next, err := Decode(list, pos)
		if err != nil {
			return 0, nil, nil, err
		}
		if i == n {
			return k, list[pos:next], elem, nil
		}
		pos = next
	}
}

// ListLen returns the number of elements in the RLP list encoded at
// buf[idx:], used by the trie verifier to dispatch on node shape (2, 17, or
// other element counts).
func ListLen(buf []byte, idx int) (int, error) {
	kind, list, _, err := Decode(buf, idx)
	if err != nil {
		return 0, err
	}
	if kind != KindList {
		return 0, errors.New("codec: not a list")
	}
	count := 0
	pos := 0
	for pos < len(list) {
		_, _, next, err := Decode(list, pos)
		if err != nil {
			return 0, err
		}
		pos = next
		count++
	}
	return count, nil
}

// DecodeBytes decodes buf as a single RLP string value and returns its
// payload; it is an error for buf to encode a list.
func DecodeBytes(buf []byte) ([]byte, error) {
	kind, slice, next, err := Decode(buf, 0)
	if err != nil {
		return nil, err
	}
	if kind != KindValue {
		return nil, errors.New("codec: expected value, got list")
	}
	if next != len(buf) {
		return nil, errors.New("codec: trailing bytes after value")
	}
	return slice, nil
}

// DecodeUint decodes a minimal big-endian RLP string as a uint64.
func DecodeUint(buf []byte) (uint64, error) {
	b, err := DecodeBytes(buf)
	if err != nil {
		return 0, err
	}
	if len(b) > 8 {
		return 0, errors.New("codec: uint overflow")
	}
	var n uint64
	for _, c := range b {
		n = n<<8 | uint64(c)
	}
	return n, nil
}

// DecodeBigInt decodes a minimal big-endian RLP string as a *big.Int.
func DecodeBigInt(buf []byte) (*big.Int, error) {
	b, err := DecodeBytes(buf)
	if err != nil {
		return nil, err
	}
	return new(big.Int).SetBytes(b), nil
}
