package errcode

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorUnwrapsCause(t *testing.T) {
	cause := errors.New("dial tcp: timeout")
	err := TransportError("node unreachable", cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, Transport, err.Tier)
	assert.Equal(t, RPCError, err.Code)
}

func TestTrustErrorDefaultsToTrustTier(t *testing.T) {
	err := TrustError("proof did not reconstruct state root", nil)
	assert.Equal(t, Trust, err.Tier)
	assert.Equal(t, Unknown, err.Code)
}

func TestCodeStringMatchesIN3Naming(t *testing.T) {
	assert.Equal(t, "EVERS", VersionErr.String())
	assert.Equal(t, "EFIND", NotFound.String())
	assert.Equal(t, "ENOTSUP", Unsupported.String())
}

func TestErrorMessageIncludesCodeTierAndCause(t *testing.T) {
	err := New(InvalidData, Trust, "bad shape", errors.New("missing field"))
	msg := err.Error()
	assert.Contains(t, msg, "EINVALDT")
	assert.Contains(t, msg, "trust")
	assert.Contains(t, msg, "missing field")
}
