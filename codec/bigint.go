package codec

import "math/big"

// TrimLeadingZeros strips leading zero bytes from b, the shape RLP requires
// for canonical integers. A nil or all-zero input returns nil.
func TrimLeadingZeros(b []byte) []byte {
	i := 0
	for i < len(b) && b[i] == 0 {
		i++
	}
	if i == len(b) {
		return nil
	}
	return b[i:]
}

// Uint64ToMinimalBytes converts val to a trimmed big-endian byte slice,
// matching the teacher's receipt/transaction gas-field encoding
// (uint64ToBytes in rskblocks/receipt.go): zero encodes as nil.
func Uint64ToMinimalBytes(val uint64) []byte {
	if val == 0 {
		return nil
	}
	return new(big.Int).SetUint64(val).Bytes()
}

// MinimalBytesToUint64 is the inverse of Uint64ToMinimalBytes.
func MinimalBytesToUint64(b []byte) uint64 {
	if len(b) == 0 {
		return 0
	}
	return new(big.Int).SetBytes(b).Uint64()
}
