package verify

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/example/trustrpc/codec"
	"github.com/example/trustrpc/trie"
)

// LogWitness is everything needed to confirm one receipt's logs actually
// belong to the block a server claims: a tx-trie proof (the transaction
// really executed at txIndex) and a receipts-trie proof (its receipt,
// with the logs, really attaches at the same index) — spec.md's
// eth_getLogs row: "tx-trie proof AND receipts-trie proof" per
// referenced receipt.
type LogWitness struct {
	TxRoot       common.Hash
	ReceiptRoot  common.Hash
	TxIndex      uint64
	RawTx        []byte
	TxProof      [][]byte
	ReceiptProof [][]byte
}

// VerifyLogWitness confirms w's transaction and receipt are both genuinely
// part of the block and returns the decoded receipt for local filtering.
func VerifyLogWitness(w LogWitness) (*Receipt, error) {
	key := codec.EncodeUint(w.TxIndex)
	ok, _, err := trie.VerifyProof(w.TxRoot, key, w.TxProof, w.RawTx)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInsufficientProof
	}
	return VerifyReceiptProof(w.ReceiptRoot, w.TxIndex, w.ReceiptProof)
}

// LogFilter mirrors an eth_getLogs request's matching params. A nil slice
// for Addresses or a nil entry in Topics means "any" (wildcard); a
// non-nil Topics entry matches if the log's topic at that position is any
// of the listed hashes (OR semantics), per spec.md's topic matching rules.
type LogFilter struct {
	Addresses []common.Address
	FromBlock *big.Int // nil means no lower bound
	ToBlock   *big.Int // nil means no upper bound
	BlockHash *common.Hash
	Topics    []*[]common.Hash
}

// MatchesFilter reports whether log, observed at blockNumber/blockHash,
// satisfies filter.
func MatchesFilter(log Log, blockNumber uint64, blockHash common.Hash, filter LogFilter) bool {
	if len(filter.Addresses) > 0 && !containsAddress(filter.Addresses, log.Address) {
		return false
	}
	if filter.BlockHash != nil && *filter.BlockHash != blockHash {
		return false
	}
	n := new(big.Int).SetUint64(blockNumber)
	if filter.FromBlock != nil && n.Cmp(filter.FromBlock) < 0 {
		return false
	}
	if filter.ToBlock != nil && n.Cmp(filter.ToBlock) > 0 {
		return false
	}
	for i, want := range filter.Topics {
		if want == nil {
			continue // wildcard
		}
		if i >= len(log.Topics) {
			return false
		}
		if !containsHash(*want, log.Topics[i]) {
			return false
		}
	}
	return true
}

func containsAddress(set []common.Address, a common.Address) bool {
	for _, x := range set {
		if x == a {
			return true
		}
	}
	return false
}

func containsHash(set []common.Hash, h common.Hash) bool {
	for _, x := range set {
		if x == h {
			return true
		}
	}
	return false
}
