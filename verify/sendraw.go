package verify

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/example/trustrpc/codec"
)

// VerifySendRawTransaction implements spec.md's eth_sendRawTransaction
// row: the only obligation is that the hash a server hands back is
// actually the hash of what was submitted, since the node has no way to
// otherwise attest that it actually broadcast the transaction.
func VerifySendRawTransaction(rawTx []byte, returnedHash common.Hash) error {
	if common.BytesToHash(codec.Keccak256(rawTx)) != returnedHash {
		return ErrHashMismatch
	}
	return nil
}
