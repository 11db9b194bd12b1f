package trie

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/trustrpc/codec"
)

func TestDeriveRootSingleEntryMatchesLeafNode(t *testing.T) {
	key := []byte{0xAB, 0xCD}
	value := []byte("hello")

	got := DeriveRoot([][]byte{key}, [][]byte{value})

	node := leafNode(bytesToNibbles(key), value)
	want := common.BytesToHash(codec.Keccak256(node))
	assert.Equal(t, want, got)
}

func TestDeriveRootTwoEntriesBranches(t *testing.T) {
	k1, k2 := []byte{0x1F}, []byte{0x2F}
	v1, v2 := []byte("one"), []byte("two")

	got := DeriveRoot([][]byte{k1, k2}, [][]byte{v1, v2})

	leaf1 := leafNode([]byte{0xF}, v1)
	leaf2 := leafNode([]byte{0xF}, v2)
	var children [16][]byte
	children[1] = childRef(leaf1)
	children[2] = childRef(leaf2)
	branch := branchNode(children, nil)
	want := common.BytesToHash(codec.Keccak256(branch))

	assert.Equal(t, want, got)
}

func TestDeriveRootRoundtripsThroughFetchProof(t *testing.T) {
	keys := [][]byte{codec.EncodeUint(0), codec.EncodeUint(1), codec.EncodeUint(2)}
	values := [][]byte{[]byte("a"), []byte("bb"), []byte("ccc")}

	root := DeriveRoot(keys, values)

	for i, k := range keys {
		proof := collectProofNodes(t, root, k, keys, values)
		exists, got, err := FetchProof(root, k, proof)
		require.NoError(t, err)
		assert.True(t, exists)
		assert.Equal(t, values[i], got)
	}
}

// collectProofNodes rebuilds every node of the trie DeriveRoot produced
// (there's no builder-side node store to harvest nodes from, so this
// reconstructs them the same way DeriveRoot did) and returns the full set,
// which is sufficient for FetchProof to resolve any key's path.
func collectProofNodes(t *testing.T, root common.Hash, _ []byte, keys, values [][]byte) [][]byte {
	t.Helper()
	entries := make([]entry, len(keys))
	for i := range keys {
		entries[i] = entry{path: bytesToNibbles(keys[i]), value: values[i]}
	}
	var nodes [][]byte
	rootNode := encodeNode(entries)
	nodes = append(nodes, rootNode) // always included: the root is hashed regardless of size
	collectNodes(entries, &nodes)
	return nodes
}

func collectNodes(entries []entry, out *[][]byte) []byte {
	enc := encodeNode(entries)
	if len(enc) >= 32 {
		*out = append(*out, enc)
	}
	if len(entries) == 1 {
		return enc
	}
	prefix := sharedPrefix(entries)
	if len(prefix) > 0 {
		stripped := make([]entry, len(entries))
		for i, e := range entries {
			stripped[i] = entry{path: e.path[len(prefix):], value: e.value}
		}
		collectBranchNodes(stripped, out)
		return enc
	}
	collectBranchNodes(entries, out)
	return enc
}

func collectBranchNodes(entries []entry, out *[][]byte) {
	var buckets [16][]entry
	for _, e := range entries {
		if len(e.path) == 0 {
			continue
		}
		n := e.path[0]
		buckets[n] = append(buckets[n], entry{path: e.path[1:], value: e.value})
	}
	for i := 0; i < 16; i++ {
		if len(buckets[i]) > 0 {
			collectNodes(buckets[i], out)
		}
	}
}
