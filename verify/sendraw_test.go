package verify

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"

	"github.com/example/trustrpc/codec"
)

func TestVerifySendRawTransaction(t *testing.T) {
	raw := []byte("signed-tx-bytes")
	hash := common.BytesToHash(codec.Keccak256(raw))

	assert.NoError(t, VerifySendRawTransaction(raw, hash))
	assert.ErrorIs(t, VerifySendRawTransaction(raw, common.HexToHash("0xdead")), ErrHashMismatch)
}
