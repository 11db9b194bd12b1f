// Package trie verifies Ethereum-style hexary Merkle-Patricia proofs: given
// a trusted state/storage/receipts/transactions root, a key, and the list of
// trie nodes a server claims form the path to that key, it confirms the
// nodes hash together to the root and witness exactly the expected value
// (or, when expected is nil, witness that no value exists for that key).
//
// The walk itself is grounded on the reference client's trie_verify_proof /
// check_node (eth_nano/merkle.c); node lookup is grounded on the teacher's
// nodeMap-by-hash approach (rskblocks/proof_helper.go), generalized from
// RSK's binary left/right branching to standard Ethereum's 16-ary branch
// node shape.
package trie

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/example/trustrpc/codec"
)

// MaxDepth bounds the number of nodes walked for a single proof, guarding
// against cyclic or adversarially long node chains (MERKLE_DEPTH_MAX in the
// reference client).
const MaxDepth = 64

var (
	ErrRootMismatch  = errors.New("trie: root not present in proof")
	ErrDepthExceeded = errors.New("trie: proof exceeds maximum depth")
	ErrMalformedNode = errors.New("trie: malformed node")
)

// VerifyProof checks that proof is a valid Merkle-Patricia path from root to
// key. When expected is non-nil, the witnessed value must equal it exactly.
// When expected is nil, the proof must witness that no value exists at key.
// It returns whether the proof is valid and, if valid and a value was
// witnessed, that value.
func VerifyProof(root common.Hash, key []byte, proof [][]byte, expected []byte) (bool, []byte, error) {
	hasValue, value, err := walk(root, key, proof)
	if err != nil {
		return false, nil, err
	}
	return finish(hasValue, value, expected)
}

// FetchProof walks proof the same way VerifyProof does but returns whatever
// value is witnessed (or none) without asserting it against an expectation.
// Callers that need the raw account/storage/receipt value rather than a
// yes/no equality check (component F's per-method verifiers) use this
// instead of threading a sentinel through VerifyProof's expected parameter.
func FetchProof(root common.Hash, key []byte, proof [][]byte) (exists bool, value []byte, err error) {
	return walk(root, key, proof)
}

func walk(root common.Hash, key []byte, proof [][]byte) (hasValue bool, value []byte, err error) {
	nodesByHash := make(map[common.Hash][]byte, len(proof))
	for _, raw := range proof {
		nodesByHash[common.BytesToHash(codec.Keccak256(raw))] = raw
	}

	current, ok := nodesByHash[root]
	if !ok {
		return false, nil, ErrRootMismatch
	}

	path := ToNibbles(key)
	pos := 0

	for depth := 0; ; depth++ {
		if depth >= MaxDepth {
			return false, nil, ErrDepthExceeded
		}

		kind, list, _, err := codec.Decode(current, 0)
		if err != nil {
			return false, nil, fmt.Errorf("trie: decoding node: %w", err)
		}
		if kind != codec.KindList {
			return false, nil, ErrMalformedNode
		}
		n, err := codec.ListLen(current, 0)
		if err != nil {
			return false, nil, fmt.Errorf("trie: counting node elements: %w", err)
		}

		switch n {
		case 17:
			if path[pos] == pathEnd {
				vkind, _, payload, err := codec.NthItem(list, 16)
				if err != nil {
					return false, nil, fmt.Errorf("trie: branch value: %w", err)
				}
				if vkind != codec.KindValue {
					return false, nil, ErrMalformedNode
				}
				return len(payload) > 0, payload, nil
			}

			nibble := path[pos]
			ckind, raw, payload, err := codec.NthItem(list, int(nibble))
			if err != nil {
				return false, nil, fmt.Errorf("trie: branch child: %w", err)
			}
			pos++

			child, has, err := resolveChild(ckind, raw, payload, nodesByHash)
			if err != nil {
				return false, nil, err
			}
			if !has {
				return false, nil, nil
			}
			current = child

		case 2:
			pkind, _, pathBytes, err := codec.NthItem(list, 0)
			if err != nil {
				return false, nil, fmt.Errorf("trie: leaf/extension path: %w", err)
			}
			if pkind != codec.KindValue {
				return false, nil, ErrMalformedNode
			}
			isLeaf, nodePath := decodeHexPrefix(pathBytes)

			remaining := path[pos:]
			if remaining[len(remaining)-1] == pathEnd {
				remaining = remaining[:len(remaining)-1]
			}
			matched := commonPrefixLen(nodePath, remaining)
			if matched != len(nodePath) {
				return false, nil, nil
			}
			pos += len(nodePath)

			vkind, raw, payload, err := codec.NthItem(list, 1)
			if err != nil {
				return false, nil, fmt.Errorf("trie: leaf/extension value: %w", err)
			}

			if isLeaf {
				if path[pos] != pathEnd {
					return false, nil, nil
				}
				if vkind != codec.KindValue {
					return false, nil, ErrMalformedNode
				}
				return len(payload) > 0, payload, nil
			}

			child, has, err := resolveChild(vkind, raw, payload, nodesByHash)
			if err != nil {
				return false, nil, err
			}
			if !has {
				return false, nil, nil
			}
			current = child

		default:
			return false, nil, nil
		}
	}
}

// resolveChild dereferences a branch or extension node's child slot. A
// KindList payload is an embedded node (too small to have been hashed
// separately) and is used as-is, raw span included, without rehashing. A
// 32-byte KindValue payload is a hash reference resolved against the proof's
// node set. Anything else (empty slot, or a value of the wrong length)
// means no child exists at this path.
func resolveChild(kind codec.Kind, raw []byte, payload []byte, nodesByHash map[common.Hash][]byte) ([]byte, bool, error) {
	switch kind {
	case codec.KindList:
		return raw, true, nil
	case codec.KindValue:
		if len(payload) == 0 {
			return nil, false, nil
		}
		if len(payload) != common.HashLength {
			return nil, false, nil
		}
		child, ok := nodesByHash[common.BytesToHash(payload)]
		if !ok {
			return nil, false, ErrRootMismatch
		}
		return child, true, nil
	default:
		return nil, false, ErrMalformedNode
	}
}

// finish resolves the terminal outcome of a walk: hasValue indicates
// whether a value was witnessed at the queried key. A walk that proves
// non-existence succeeds only when expected is nil; a walk that witnesses a
// value succeeds only when it matches expected exactly.
func finish(hasValue bool, value, expected []byte) (bool, []byte, error) {
	if !hasValue {
		return expected == nil, nil, nil
	}
	if expected == nil {
		return false, nil, nil
	}
	return bytes.Equal(value, expected), value, nil
}
