// Package sig recovers secp256k1 signers from block seals and transaction
// signatures. It is a thin, spec-shaped wrapper over
// github.com/ethereum/go-ethereum/crypto — recovery itself is reused
// directly from go-ethereum, matching the teacher's blanket reliance on
// go-ethereum for anything crypto-adjacent; what this package adds is the
// compact-signature parsing, V normalization, and malleability checks a
// trust-minimized client needs to validate a signature before trusting
// whatever it recovers.
package sig

import (
	"crypto/ecdsa"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

var (
	ErrInvalidLength = errors.New("sig: signature must be 65 bytes")
	ErrInvalidV      = errors.New("sig: invalid recovery id")
	ErrInvalidR      = errors.New("sig: r out of range [1, n-1]")
	ErrInvalidS      = errors.New("sig: s out of range [1, n-1]")
	ErrMalleable     = errors.New("sig: s is in the upper half of the curve order")
	ErrHashLength    = errors.New("sig: message hash must be 32 bytes")
)

var (
	secp256k1N     = crypto.S256().Params().N
	secp256k1HalfN = new(big.Int).Rsh(secp256k1N, 1)
)

// Compact is a 65-byte ECDSA signature: R (32) || S (32) || V (1), with V
// the raw recovery id (0 or 1).
type Compact struct {
	R [32]byte
	S [32]byte
	V byte
}

// ParseCompact parses a 65-byte R||S||V signature.
func ParseCompact(b []byte) (Compact, error) {
	var c Compact
	if len(b) != 65 {
		return c, ErrInvalidLength
	}
	copy(c.R[:], b[:32])
	copy(c.S[:], b[32:64])
	c.V = b[64]
	return c, nil
}

// Bytes encodes the signature back to R||S||V form, as go-ethereum's
// recovery functions expect.
func (c Compact) Bytes() []byte {
	out := make([]byte, 65)
	copy(out[:32], c.R[:])
	copy(out[32:64], c.S[:])
	out[64] = c.V
	return out
}

func (c Compact) r() *big.Int { return new(big.Int).SetBytes(c.R[:]) }
func (c Compact) s() *big.Int { return new(big.Int).SetBytes(c.S[:]) }

// Validate checks that r and s lie in [1, n-1], that s is in the lower
// half of the curve order (EIP-2, rejecting the malleable counterpart
// signature), and that v is a raw recovery id.
func (c Compact) Validate() error {
	if c.V > 1 {
		return ErrInvalidV
	}
	r, s := c.r(), c.s()
	if r.Sign() <= 0 || r.Cmp(secp256k1N) >= 0 {
		return ErrInvalidR
	}
	if s.Sign() <= 0 || s.Cmp(secp256k1N) >= 0 {
		return ErrInvalidS
	}
	if s.Cmp(secp256k1HalfN) > 0 {
		return ErrMalleable
	}
	return nil
}

// NormalizeV converts an on-wire V value to a raw recovery id (0 or 1) and
// the EIP-155 chain id it encodes, if any (zero for legacy/raw V values).
//
//	0, 1           -> already raw
//	27, 28         -> legacy Ethereum (v - 27)
//	35+2*chainID.. -> EIP-155
func NormalizeV(v *big.Int) (rawV byte, chainID *big.Int) {
	if v.IsInt64() {
		n := v.Int64()
		switch {
		case n == 0 || n == 1:
			return byte(n), new(big.Int)
		case n == 27 || n == 28:
			return byte(n - 27), new(big.Int)
		}
	}
	if v.Cmp(big.NewInt(35)) >= 0 {
		diff := new(big.Int).Sub(v, big.NewInt(35))
		bit := new(big.Int).And(diff, big.NewInt(1)).Uint64()
		id := new(big.Int).Rsh(diff, 1)
		return byte(bit), id
	}
	return 0, new(big.Int)
}

// RecoverAddress recovers the signer address from a 32-byte hash and
// compact signature, rejecting malformed or malleable signatures before
// attempting recovery.
func RecoverAddress(hash [32]byte, c Compact) (common.Address, error) {
	if err := c.Validate(); err != nil {
		return common.Address{}, err
	}
	pub, err := crypto.SigToPub(hash[:], c.Bytes())
	if err != nil {
		return common.Address{}, err
	}
	return crypto.PubkeyToAddress(*pub), nil
}

// RecoverPublicKey recovers the uncompressed public key from a 32-byte
// hash and compact signature.
func RecoverPublicKey(hash [32]byte, c Compact) (*ecdsa.PublicKey, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return crypto.SigToPub(hash[:], c.Bytes())
}

// RecoverSealer recovers the address that produced a PoA block seal: the
// signature sits in the last 65 bytes of extraData (Clique/Aura style) and
// signs the Keccak-256 hash of the header with that seal stripped.
func RecoverSealer(sealHash [32]byte, seal []byte) (common.Address, error) {
	c, err := ParseCompact(seal)
	if err != nil {
		return common.Address{}, err
	}
	return RecoverAddress(sealHash, c)
}

// VerifyProofOfWork checks that a header hash meets the target difficulty
// implied by its compact difficulty bits, without validating the full PoW
// chain (see SPEC_FULL.md Non-goals: ethash/mix-digest verification is out
// of scope for a trust-minimized client that already checks signer sets).
func VerifyProofOfWork(hash [32]byte, difficulty *big.Int) bool {
	if difficulty == nil || difficulty.Sign() <= 0 {
		return false
	}
	target := new(big.Int).Div(secp256k1TwoTo256, difficulty)
	h := new(big.Int).SetBytes(hash[:])
	return h.Cmp(target) <= 0
}

var secp256k1TwoTo256 = new(big.Int).Lsh(big.NewInt(1), 256)
