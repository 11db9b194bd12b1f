package verify

import (
	"errors"

	"github.com/ethereum/go-ethereum/common"

	"github.com/example/trustrpc/codec"
	"github.com/example/trustrpc/trie"
)

// Log is a single contract event entry inside a receipt.
type Log struct {
	Address common.Address
	Topics  []common.Hash
	Data    []byte
}

// Receipt is the standard post-Byzantium Ethereum receipt: [status,
// cumulativeGasUsed, logsBloom, logs]. Grounded on teacher's
// `rskblocks/receipt.go` (`receiptRLP`, `EncodeRLP`/`DecodeRLP`), whose
// 6-field RSK layout (postState, cumulativeGasUsed, bloom, logs, gasUsed,
// status) collapses to the standard 4-field one — this client only ever
// reads receipts a server already computed, so RSK's own encode-side gas
// bookkeeping has nothing to reuse.
type Receipt struct {
	Status            uint64 // 1 success, 0 failure (post-Byzantium)
	CumulativeGasUsed uint64
	Bloom             [256]byte
	Logs              []Log
}

var ErrMalformedReceipt = errors.New("verify: malformed receipt RLP")

// DecodeReceipt parses a raw receipt value witnessed from a receipts-trie
// proof.
func DecodeReceipt(raw []byte) (*Receipt, error) {
	n, err := codec.ListLen(raw, 0)
	if err != nil {
		return nil, err
	}
	if n != 4 {
		return nil, ErrMalformedReceipt
	}
	_, list, _, err := codec.Decode(raw, 0)
	if err != nil {
		return nil, err
	}

	_, _, statusB, err := codec.NthItem(list, 0)
	if err != nil {
		return nil, err
	}
	_, _, gasB, err := codec.NthItem(list, 1)
	if err != nil {
		return nil, err
	}
	_, _, bloomB, err := codec.NthItem(list, 2)
	if err != nil {
		return nil, err
	}
	logsKind, logsList, _, err := codec.NthItem(list, 3)
	if err != nil {
		return nil, err
	}
	if logsKind != codec.KindList {
		return nil, ErrMalformedReceipt
	}

	r := &Receipt{
		Status:            bytesToUint64(statusB),
		CumulativeGasUsed: bytesToUint64(gasB),
	}
	copy(r.Bloom[:], bloomB)

	logCount, err := codec.ListLen(logsList, 0)
	if err != nil {
		return nil, err
	}
	r.Logs = make([]Log, 0, logCount)
	for i := 0; i < logCount; i++ {
		lkind, lraw, _, err := codec.NthItem(logsList, i)
		if err != nil {
			return nil, err
		}
		if lkind != codec.KindList {
			return nil, ErrMalformedReceipt
		}
		log, err := decodeLog(lraw)
		if err != nil {
			return nil, err
		}
		r.Logs = append(r.Logs, *log)
	}
	return r, nil
}

func decodeLog(raw []byte) (*Log, error) {
	n, err := codec.ListLen(raw, 0)
	if err != nil {
		return nil, err
	}
	if n != 3 {
		return nil, ErrMalformedReceipt
	}
	_, list, _, err := codec.Decode(raw, 0)
	if err != nil {
		return nil, err
	}
	_, _, addrB, err := codec.NthItem(list, 0)
	if err != nil {
		return nil, err
	}
	topicsKind, topicsList, _, err := codec.NthItem(list, 1)
	if err != nil {
		return nil, err
	}
	if topicsKind != codec.KindList {
		return nil, ErrMalformedReceipt
	}
	_, _, dataB, err := codec.NthItem(list, 2)
	if err != nil {
		return nil, err
	}

	topicCount, err := codec.ListLen(topicsList, 0)
	if err != nil {
		return nil, err
	}
	topics := make([]common.Hash, topicCount)
	for i := 0; i < topicCount; i++ {
		_, _, tB, err := codec.NthItem(topicsList, i)
		if err != nil {
			return nil, err
		}
		topics[i] = common.BytesToHash(tB)
	}

	return &Log{
		Address: common.BytesToAddress(addrB),
		Topics:  topics,
		Data:    append([]byte(nil), dataB...),
	}, nil
}

// VerifyReceiptProof checks a receipts-trie inclusion proof at txIndex
// against receiptRoot and returns the decoded receipt. Matches spec.md's
// eth_getTransactionReceipt verifier: "Header + receipts-trie proof at
// txIndex."
func VerifyReceiptProof(receiptRoot common.Hash, txIndex uint64, proof [][]byte) (*Receipt, error) {
	key := codec.EncodeUint(txIndex)
	exists, value, err := trie.FetchProof(receiptRoot, key, proof)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrInsufficientProof
	}
	return DecodeReceipt(value)
}
