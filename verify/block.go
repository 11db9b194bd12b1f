package verify

import (
	"errors"

	"github.com/ethereum/go-ethereum/common"

	"github.com/example/trustrpc/chainspec"
	"github.com/example/trustrpc/codec"
	"github.com/example/trustrpc/trie"
)

var ErrTxRootMismatch = errors.New("verify: reconstructed transactions root does not match header")

// ErrUnsupportedConsensus means the active ChainSpec entry names an
// engine this client cannot validate (PoA-Aura, for instance). PoW
// headers do not produce it: VerifyHeaderConsensus accepts them without
// a seal check.
var ErrUnsupportedConsensus = errors.New("verify: unsupported consensus engine for this chain spec entry")

// VerifyBlockHeader decodes raw and confirms it hashes to blockHash — the
// shared first half of every eth_getBlockByNumber/ByHash response, before
// any method-specific proof obligation is checked. Consensus validation
// runs separately via VerifyHeaderConsensus once the caller knows which
// engine and validator set is active at this block's number.
func VerifyBlockHeader(raw []byte, blockHash common.Hash) (*Header, error) {
	h, err := DecodeHeader(raw)
	if err != nil {
		return nil, err
	}
	if h.Hash() != blockHash {
		return nil, ErrHashMismatch
	}
	return h, nil
}

// VerifyHeaderConsensus validates h against whichever consensus engine
// spec reports active at h.Number, per spec.md §4.C's "validate consensus
// according to the ChainSpec entry active at number". PoW headers are
// accepted on attestation count alone (spec.md §9 excludes full PoW
// validation from this client's scope); PoA-Clique checks the embedded
// seal against the active validator set; PoA-Aura is not yet supported
// by this client.
func VerifyHeaderConsensus(h *Header, spec *chainspec.ChainSpec, attestations []Attestation, attestationThreshold int) error {
	number := h.Number.Uint64()
	active := spec.ActiveConsensus(number)
	switch active.Kind {
	case chainspec.ConsensusPoAClique:
		if err := VerifyClique(h, active.ValidatorSet()); err != nil {
			return err
		}
	case chainspec.ConsensusPoW:
		// full PoW validation is out of scope; fall through to the
		// attestation check shared by every engine below.
	default:
		return ErrUnsupportedConsensus
	}
	if attestationThreshold > 0 {
		if !VerifyAttestations(h.Hash(), number, attestations, active.ValidatorSet(), attestationThreshold) {
			return ErrInsufficientProof
		}
	}
	return nil
}

// VerifyIncludedTransactions implements the includeTx half of
// eth_getBlockByNumber/ByHash: rebuild the transactions trie from the
// full list of raw transactions a server claims are in the block, in
// their returned order, and confirm the resulting root matches the
// header's txRoot. Unlike the other per-method verifiers this isn't a
// proof check against a server-supplied node set — the server handed
// over the whole transaction list, so the client reconstructs the root
// itself rather than trusting a claimed one.
func VerifyIncludedTransactions(header *Header, rawTxs [][]byte) error {
	keys := make([][]byte, len(rawTxs))
	for i := range rawTxs {
		keys[i] = codec.EncodeUint(uint64(i))
	}
	root := trie.DeriveRoot(keys, rawTxs)
	if root != header.TxRoot {
		return ErrTxRootMismatch
	}
	return nil
}
