package verify

import (
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/example/trustrpc/codec"
	"github.com/example/trustrpc/sig"
	"github.com/example/trustrpc/trie"
)

// Transaction is the standard Ethereum legacy transaction: [nonce,
// gasPrice, gasLimit, to, value, data, v, r, s]. Grounded on teacher's
// `rskblocks/transaction.go` field layout, dropping its
// signed-external-vs-internal (REMASC) dual encoding branch — that
// distinguishes RSK's own consensus transactions from user-submitted
// ones, a distinction this client never needs since it only ever
// verifies transactions a server claims are part of a block.
type Transaction struct {
	Nonce    uint64
	GasPrice *big.Int
	GasLimit uint64
	To       *common.Address // nil means contract creation
	Value    *big.Int
	Data     []byte
	V        *big.Int
	R        *big.Int
	S        *big.Int
}

var ErrMalformedTransaction = errors.New("verify: malformed transaction RLP")

// DecodeTransaction parses a raw legacy-encoded transaction.
func DecodeTransaction(raw []byte) (*Transaction, error) {
	n, err := codec.ListLen(raw, 0)
	if err != nil {
		return nil, err
	}
	if n != 9 {
		return nil, ErrMalformedTransaction
	}
	_, list, _, err := codec.Decode(raw, 0)
	if err != nil {
		return nil, err
	}
	field := func(i int) ([]byte, error) {
		_, _, payload, err := codec.NthItem(list, i)
		return payload, err
	}

	vals := make([][]byte, 9)
	for i := range vals {
		v, err := field(i)
		if err != nil {
			return nil, err
		}
		vals[i] = v
	}

	tx := &Transaction{
		Nonce:    bytesToUint64(vals[0]),
		GasPrice: new(big.Int).SetBytes(vals[1]),
		GasLimit: bytesToUint64(vals[2]),
		Value:    new(big.Int).SetBytes(vals[4]),
		Data:     append([]byte(nil), vals[5]...),
		V:        new(big.Int).SetBytes(vals[6]),
		R:        new(big.Int).SetBytes(vals[7]),
		S:        new(big.Int).SetBytes(vals[8]),
	}
	if len(vals[3]) > 0 {
		to := common.BytesToAddress(vals[3])
		tx.To = &to
	}
	return tx, nil
}

// Hash returns the Keccak256 hash of the transaction's full signed
// encoding — what eth_getTransactionByHash calls the tx hash.
func (tx *Transaction) Hash() common.Hash {
	return common.BytesToHash(codec.Keccak256(tx.encode(tx.V, tx.R, tx.S)))
}

// signingHash is the EIP-155 hash a sender actually signs: the same 9
// fields but with v/r/s replaced by (chainID, 0, 0) when chainID is
// known, or omitted entirely for pre-EIP-155 transactions.
func (tx *Transaction) signingHash(chainID *big.Int) common.Hash {
	if chainID == nil || chainID.Sign() == 0 {
		fields := tx.baseFields()
		return common.BytesToHash(codec.Keccak256(codec.EncodeList(fields...)))
	}
	fields := tx.baseFields()
	fields = append(fields, codec.EncodeBigInt(chainID), codec.EncodeBytes(nil), codec.EncodeBytes(nil))
	return common.BytesToHash(codec.Keccak256(codec.EncodeList(fields...)))
}

func (tx *Transaction) baseFields() [][]byte {
	to := []byte{}
	if tx.To != nil {
		to = tx.To.Bytes()
	}
	return [][]byte{
		codec.EncodeUint(tx.Nonce),
		codec.EncodeBigInt(tx.GasPrice),
		codec.EncodeUint(tx.GasLimit),
		codec.EncodeBytes(to),
		codec.EncodeBigInt(tx.Value),
		codec.EncodeBytes(tx.Data),
	}
}

func (tx *Transaction) encode(v, r, s *big.Int) []byte {
	fields := append(tx.baseFields(), codec.EncodeBigInt(v), codec.EncodeBigInt(r), codec.EncodeBigInt(s))
	return codec.EncodeList(fields...)
}

// RecoverSender recovers the address that signed tx, accounting for
// EIP-155's chainID-extended V encoding.
func (tx *Transaction) RecoverSender() (common.Address, error) {
	rawV, chainID := sig.NormalizeV(tx.V)
	var r, s [32]byte
	tx.R.FillBytes(r[:])
	tx.S.FillBytes(s[:])
	c := sig.Compact{R: r, S: s, V: rawV}
	return sig.RecoverAddress(tx.signingHash(chainID), c)
}

// VerifyTransactionProof checks a transaction-trie inclusion proof at
// txIndex against txRoot, then confirms the raw transaction hashes to
// txHash and that its signature recovers to from. Matches spec.md's
// eth_getTransactionByHash verifier: "Header + tx-trie proof at txIndex;
// verify signature recovers from; verify hash == keccak(rawTx)."
func VerifyTransactionProof(txRoot common.Hash, txIndex uint64, rawTx []byte, txHash common.Hash, from common.Address, proof [][]byte) error {
	key := codec.EncodeUint(txIndex)
	ok, _, err := trie.VerifyProof(txRoot, key, proof, rawTx)
	if err != nil {
		return err
	}
	if !ok {
		return ErrInsufficientProof
	}
	tx, err := DecodeTransaction(rawTx)
	if err != nil {
		return err
	}
	if tx.Hash() != txHash {
		return ErrHashMismatch
	}
	sender, err := tx.RecoverSender()
	if err != nil {
		return err
	}
	if sender != from {
		return ErrSenderMismatch
	}
	return nil
}

var (
	ErrHashMismatch   = errors.New("verify: transaction hash does not match claimed hash")
	ErrSenderMismatch = errors.New("verify: recovered sender does not match claimed sender")
)
