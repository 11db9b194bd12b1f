package trie

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/example/trustrpc/codec"
)

// entry is one (key, value) pair awaiting insertion into a freshly built
// trie. path holds the key's nibbles with no pathEnd sentinel — an empty
// path means "the value terminates here."
type entry struct {
	path  []byte
	value []byte
}

// DeriveRoot computes the Merkle-Patricia root of a one-shot trie built
// from keys/values, without persisting any node — spec.md's "building its
// tx-trie root" obligation for eth_getBlockByNumber/ByHash's includeTx
// case needs the client to reconstruct a root from scratch and compare it
// to the header's, not just walk a proof someone else built (that's what
// VerifyProof/FetchProof are for). Grounded on the same node-shape rules
// verify.go's walk decodes (17-element branch, 2-element leaf/extension,
// hex-prefix path encoding), run in the opposite direction: insert instead
// of descend.
func DeriveRoot(keys, values [][]byte) common.Hash {
	if len(keys) == 0 {
		return emptyTrieRoot()
	}
	entries := make([]entry, len(keys))
	for i := range keys {
		entries[i] = entry{path: bytesToNibbles(keys[i]), value: values[i]}
	}
	return common.BytesToHash(codec.Keccak256(encodeNode(entries)))
}

func emptyTrieRoot() common.Hash {
	return common.BytesToHash(codec.Keccak256(codec.EncodeBytes(nil)))
}

// encodeNode returns the raw RLP encoding of the node representing
// entries: a leaf when exactly one remains, otherwise an extension over
// their shared prefix (if any) wrapping a 16-way branch.
func encodeNode(entries []entry) []byte {
	if len(entries) == 1 {
		return codec.EncodeList(
			codec.EncodeBytes(encodeHexPrefix(entries[0].path, true)),
			codec.EncodeBytes(entries[0].value),
		)
	}

	prefix := sharedPrefix(entries)
	if len(prefix) > 0 {
		stripped := make([]entry, len(entries))
		for i, e := range entries {
			stripped[i] = entry{path: e.path[len(prefix):], value: e.value}
		}
		branch := encodeBranch(stripped)
		return codec.EncodeList(
			codec.EncodeBytes(encodeHexPrefix(prefix, false)),
			childRef(branch),
		)
	}
	return encodeBranch(entries)
}

// encodeBranch partitions entries by their leading nibble into 16 buckets
// (plus a terminal value slot for any entry whose path is already empty)
// and encodes the resulting 17-element branch node.
func encodeBranch(entries []entry) []byte {
	var buckets [16][]entry
	var terminal []byte
	for _, e := range entries {
		if len(e.path) == 0 {
			terminal = e.value
			continue
		}
		n := e.path[0]
		buckets[n] = append(buckets[n], entry{path: e.path[1:], value: e.value})
	}

	elems := make([][]byte, 17)
	for i := 0; i < 16; i++ {
		if len(buckets[i]) == 0 {
			elems[i] = codec.EncodeBytes(nil)
			continue
		}
		elems[i] = childRef(encodeNode(buckets[i]))
	}
	elems[16] = codec.EncodeBytes(terminal)
	return codec.EncodeList(elems...)
}

// childRef is the RLP item a parent node uses to reference child: the
// encoded node itself when short enough to embed, otherwise its Keccak256
// hash — matching resolveChild's read-side rule in verify.go.
func childRef(encoded []byte) []byte {
	if len(encoded) < 32 {
		return encoded
	}
	return codec.EncodeBytes(codec.Keccak256(encoded))
}

// sharedPrefix returns the longest nibble prefix common to every entry.
func sharedPrefix(entries []entry) []byte {
	prefix := entries[0].path
	for _, e := range entries[1:] {
		n := commonPrefixLen(prefix, e.path)
		prefix = prefix[:n]
		if len(prefix) == 0 {
			break
		}
	}
	return append([]byte(nil), prefix...)
}

// encodeHexPrefix is the inverse of decodeHexPrefix: packs nibbles into
// compact bytes with the leaf/odd-length flag nibble prepended.
func encodeHexPrefix(nibbles []byte, leaf bool) []byte {
	flag := byte(0)
	if leaf {
		flag |= 0x20
	}
	odd := len(nibbles)%2 == 1
	var out []byte
	if odd {
		flag |= 0x10
		flag |= nibbles[0]
		out = append(out, flag)
		nibbles = nibbles[1:]
	} else {
		out = append(out, flag)
	}
	for i := 0; i < len(nibbles); i += 2 {
		out = append(out, nibbles[i]<<4|nibbles[i+1])
	}
	return out
}
