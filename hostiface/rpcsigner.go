package hostiface

import (
	"crypto/ecdsa"
	"errors"

	"github.com/ethereum/go-ethereum/crypto"
)

// ErrNoSigner is returned by a nil-key LocalSigner, for hosts that
// never intend to attest.
var ErrNoSigner = errors.New("hostiface: no signing key configured")

// LocalSigner signs attestation digests with an in-process ecdsa key,
// the same secp256k1 curve and compact-signature format sig.Compact
// parses on the verification side.
type LocalSigner struct {
	key *ecdsa.PrivateKey
}

// NewLocalSigner wraps an existing key. A nil key is allowed; Sign
// then always returns ErrNoSigner.
func NewLocalSigner(key *ecdsa.PrivateKey) *LocalSigner {
	return &LocalSigner{key: key}
}

// Sign implements Signer using go-ethereum's crypto.Sign, returning a
// 65-byte [R || S || V] compact signature.
func (s *LocalSigner) Sign(digest [32]byte) ([65]byte, error) {
	var out [65]byte
	if s.key == nil {
		return out, ErrNoSigner
	}
	sig, err := crypto.Sign(digest[:], s.key)
	if err != nil {
		return out, err
	}
	copy(out[:], sig)
	return out, nil
}
