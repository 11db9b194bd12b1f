package evm

import (
	"crypto/sha256"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/crypto/ripemd160"

	"github.com/example/trustrpc/sig"
)

// precompileAddresses are the addresses 0x01-0x08 that dispatch to native
// implementations instead of interpreted bytecode. BN128 curve ops
// (0x06-0x08) are deliberately unsupported: implementing alt_bn128 pairing
// from scratch is out of scope for a proof-verification client (SPEC_FULL
// Non-goals), so calls to those addresses fail closed rather than silently
// returning a wrong result.
var precompileAddresses = map[common.Address]bool{
	common.BytesToAddress([]byte{1}): true,
	common.BytesToAddress([]byte{2}): true,
	common.BytesToAddress([]byte{3}): true,
	common.BytesToAddress([]byte{4}): true,
	common.BytesToAddress([]byte{5}): true,
	common.BytesToAddress([]byte{6}): true,
	common.BytesToAddress([]byte{7}): true,
	common.BytesToAddress([]byte{8}): true,
}

// IsPrecompile reports whether addr is one of the reserved precompile
// addresses 0x01-0x08.
func IsPrecompile(addr common.Address) bool {
	return precompileAddresses[addr]
}

// RunPrecompile executes the precompile at addr against input, returning
// its output. ECADD, ECMUL, and ECPAIRING (0x06-0x08) return
// ErrUnsupportedCall.
func RunPrecompile(addr common.Address, input []byte) ([]byte, error) {
	switch addr[19] {
	case 1:
		return precompileECRecover(input)
	case 2:
		return precompileSHA256(input)
	case 3:
		return precompileRipemd160(input)
	case 4:
		return precompileIdentity(input)
	case 5:
		return precompileModExp(input)
	case 6, 7, 8:
		return nil, ErrUnsupportedCall
	default:
		return nil, ErrUnsupportedCall
	}
}

// precompileECRecover mirrors the ECRECOVER precompile: input is
// hash(32) || v(32) || r(32) || s(32), output is the recovered address
// left-padded to 32 bytes, or all-zero on failure.
func precompileECRecover(input []byte) ([]byte, error) {
	buf := make([]byte, 128)
	copy(buf, input)

	var hash [32]byte
	copy(hash[:], buf[0:32])

	vBig := new(big.Int).SetBytes(buf[32:64])
	if !vBig.IsUint64() {
		return make([]byte, 32), nil
	}
	rawV, _ := sig.NormalizeV(vBig)

	var c sig.Compact
	copy(c.R[:], buf[64:96])
	copy(c.S[:], buf[96:128])
	c.V = rawV
	if err := c.Validate(); err != nil {
		return make([]byte, 32), nil
	}

	addr, err := sig.RecoverAddress(hash, c)
	if err != nil {
		return make([]byte, 32), nil
	}
	out := make([]byte, 32)
	copy(out[12:], addr[:])
	return out, nil
}

func precompileSHA256(input []byte) ([]byte, error) {
	h := sha256.Sum256(input)
	return h[:], nil
}

// precompileRipemd160 hashes with golang.org/x/crypto/ripemd160 and
// left-pads the 20-byte digest to 32 bytes as the precompile spec
// requires.
func precompileRipemd160(input []byte) ([]byte, error) {
	h := ripemd160.New()
	h.Write(input)
	digest := h.Sum(nil)
	out := make([]byte, 32)
	copy(out[12:], digest)
	return out, nil
}

func precompileIdentity(input []byte) ([]byte, error) {
	out := make([]byte, len(input))
	copy(out, input)
	return out, nil
}

// precompileModExp implements EIP-198 modular exponentiation: base^exp
// mod modulus, with the three operand lengths given as 32-byte
// big-endian integers at the head of input.
func precompileModExp(input []byte) ([]byte, error) {
	buf := make([]byte, 96)
	copy(buf, input)
	baseLen := new(big.Int).SetBytes(buf[0:32]).Uint64()
	expLen := new(big.Int).SetBytes(buf[32:64]).Uint64()
	modLen := new(big.Int).SetBytes(buf[64:96]).Uint64()

	body := input[96:]
	readSlice := func(offset, length uint64) []byte {
		out := make([]byte, length)
		if offset < uint64(len(body)) {
			copy(out, body[offset:])
		}
		return out
	}

	base := new(big.Int).SetBytes(readSlice(0, baseLen))
	exp := new(big.Int).SetBytes(readSlice(baseLen, expLen))
	mod := new(big.Int).SetBytes(readSlice(baseLen+expLen, modLen))

	var result *big.Int
	if mod.Sign() == 0 {
		result = new(big.Int)
	} else {
		result = new(big.Int).Exp(base, exp, mod)
	}

	out := make([]byte, modLen)
	result.FillBytes(out)
	return out, nil
}
