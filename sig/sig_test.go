package sig

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecoverAddressRoundtrip(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	want := crypto.PubkeyToAddress(key.PublicKey)

	var hash [32]byte
	copy(hash[:], crypto.Keccak256([]byte("message")))

	sigBytes, err := crypto.Sign(hash[:], key)
	require.NoError(t, err)

	c, err := ParseCompact(sigBytes)
	require.NoError(t, err)

	got, err := RecoverAddress(hash, c)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestValidateRejectsZeroR(t *testing.T) {
	c := Compact{V: 0}
	copy(c.S[:], []byte{1})
	err := c.Validate()
	assert.ErrorIs(t, err, ErrInvalidR)
}

func TestValidateRejectsMalleableS(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	var hash [32]byte
	copy(hash[:], crypto.Keccak256([]byte("message")))
	sigBytes, err := crypto.Sign(hash[:], key)
	require.NoError(t, err)

	c, err := ParseCompact(sigBytes)
	require.NoError(t, err)

	n := crypto.S256().Params().N
	s := c.s()
	s.Sub(n, s)
	var flipped [32]byte
	sBytes := s.Bytes()
	copy(flipped[32-len(sBytes):], sBytes)
	c.S = flipped
	c.V ^= 1

	err = c.Validate()
	assert.ErrorIs(t, err, ErrMalleable)
}

func TestNormalizeV(t *testing.T) {
	cases := []struct {
		in      int64
		rawV    byte
		chainID int64
	}{
		{0, 0, 0},
		{1, 1, 0},
		{27, 0, 0},
		{28, 1, 0},
		{37, 0, 1}, // 35 + 2*1 + 0
		{38, 1, 1}, // 35 + 2*1 + 1
	}
	for _, tc := range cases {
		rawV, chainID := NormalizeV(big.NewInt(tc.in))
		assert.Equal(t, tc.rawV, rawV, "v=%d", tc.in)
		assert.Equal(t, big.NewInt(tc.chainID), chainID, "v=%d", tc.in)
	}
}

func TestRecoverSealer(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	want := crypto.PubkeyToAddress(key.PublicKey)

	var hash [32]byte
	copy(hash[:], crypto.Keccak256([]byte("header")))
	seal, err := crypto.Sign(hash[:], key)
	require.NoError(t, err)

	got, err := RecoverSealer(hash, seal)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}
