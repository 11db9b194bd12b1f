package verify

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// NodeListWitness is one storage-backed entry read from the registry
// contract, identified by its slot.
type NodeListWitness struct {
	Slot  common.Hash
	Proof [][]byte
}

// VerifyNodeListProof implements spec.md's in3_nodeList row: "Verify as
// an account proof against the registry contract's storage." The
// registry contract's existence and storageRoot are established first
// (an ordinary account proof), then every storage slot the response
// claims to read from is verified against that proven storageRoot.
// Decoding the per-slot values into node records (url, deposit, weight,
// ...) is the registry package's concern (component G) — this only
// establishes that the raw slot values themselves are trustworthy.
func VerifyNodeListProof(stateRoot common.Hash, registry common.Address, accountProof [][]byte, slots []NodeListWitness) (map[common.Hash]*big.Int, error) {
	acc, err := VerifyAccountProof(stateRoot, registry, accountProof)
	if err != nil {
		return nil, err
	}
	if acc == nil {
		return nil, ErrInsufficientProof
	}
	values := make(map[common.Hash]*big.Int, len(slots))
	for _, s := range slots {
		v, err := VerifyStorageProof(acc.StorageRoot, s.Slot, s.Proof)
		if err != nil {
			return nil, err
		}
		values[s.Slot] = v
	}
	return values, nil
}
