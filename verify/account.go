package verify

import (
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/example/trustrpc/codec"
	"github.com/example/trustrpc/trie"
)

// emptyCodeHash and emptyRootHash are the standard Ethereum/EIP-161
// markers for "this account has no code" and "this trie is empty",
// printed in spec.md §4.D as the constants a non-existence proof must
// match against.
var (
	emptyCodeHash = common.HexToHash("0xc5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470")
	emptyRootHash = common.HexToHash("0x56e81f171bcc55a6ff8345e692c0f86e5b48e01b996cadc001622fb5e363b421")
)

// Account is the RLP-decoded state trie leaf value: [nonce, balance,
// storageRoot, codeHash].
type Account struct {
	Nonce       uint64
	Balance     *big.Int
	StorageRoot common.Hash
	CodeHash    common.Hash
}

var ErrMalformedAccount = errors.New("verify: malformed account RLP")

// decodeAccount parses the 4-field account value from a state trie leaf.
func decodeAccount(raw []byte) (*Account, error) {
	n, err := codec.ListLen(raw, 0)
	if err != nil {
		return nil, err
	}
	if n != 4 {
		return nil, ErrMalformedAccount
	}
	_, list, _, err := codec.Decode(raw, 0)
	if err != nil {
		return nil, err
	}
	_, _, nonceB, err := codec.NthItem(list, 0)
	if err != nil {
		return nil, err
	}
	_, _, balB, err := codec.NthItem(list, 1)
	if err != nil {
		return nil, err
	}
	_, _, rootB, err := codec.NthItem(list, 2)
	if err != nil {
		return nil, err
	}
	_, _, codeB, err := codec.NthItem(list, 3)
	if err != nil {
		return nil, err
	}
	a := &Account{
		Nonce:   bytesToUint64(nonceB),
		Balance: new(big.Int).SetBytes(balB),
	}
	if len(rootB) == 0 {
		a.StorageRoot = emptyRootHash
	} else {
		a.StorageRoot = common.BytesToHash(rootB)
	}
	if len(codeB) == 0 {
		a.CodeHash = emptyCodeHash
	} else {
		a.CodeHash = common.BytesToHash(codeB)
	}
	return a, nil
}

// IsEmptyAccount reports whether an account matches every EIP-161 "never
// existed" marker: zero nonce, zero balance, empty code, empty storage.
func (a *Account) IsEmptyAccount() bool {
	return a.Nonce == 0 && a.Balance.Sign() == 0 &&
		a.CodeHash == emptyCodeHash && a.StorageRoot == emptyRootHash
}

// VerifyAccountProof verifies an eth_getProof accountProof against
// stateRoot, returning the decoded account when present. A nil Account
// with a nil error means the proof establishes non-existence.
func VerifyAccountProof(stateRoot common.Hash, address common.Address, proof [][]byte) (*Account, error) {
	key := codec.Keccak256(address.Bytes())
	exists, value, err := trie.FetchProof(stateRoot, key, proof)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, nil
	}
	return decodeAccount(value)
}

// VerifyAccountNonExistence confirms that address has no entry in the
// trie rooted at stateRoot.
func VerifyAccountNonExistence(stateRoot common.Hash, address common.Address, proof [][]byte) (bool, error) {
	key := codec.Keccak256(address.Bytes())
	exists, _, err := trie.FetchProof(stateRoot, key, proof)
	if err != nil {
		return false, err
	}
	return !exists, nil
}
