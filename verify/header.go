// Package verify implements the per-method and per-header trust checks
// that let a response from an untrusted RPC endpoint be accepted or
// rejected: block header decode/hash/consensus validation, and one
// verifier per JSON-RPC method dispatched through dispatch.go.
package verify

import (
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/example/trustrpc/codec"
	"github.com/example/trustrpc/sig"
)

// Header is the standard Ethereum block header: the 15 mandatory fields
// plus the two post-London/Shanghai optional fields. Field order and
// RLP construction are grounded on the teacher's BlockHeader.getEncoded,
// generalized from RSK's merged-mining field set to the plain Ethereum
// field set.
type Header struct {
	ParentHash  common.Hash
	UncleHash   common.Hash
	Coinbase    common.Address
	StateRoot   common.Hash
	TxRoot      common.Hash
	ReceiptRoot common.Hash
	Bloom       [256]byte
	Difficulty  *big.Int
	Number      *big.Int
	GasLimit    uint64
	GasUsed     uint64
	Timestamp   uint64
	ExtraData   []byte
	MixDigest   common.Hash
	Nonce       [8]byte

	BaseFee         *big.Int     // non-nil once the active EIP set includes London
	WithdrawalsRoot *common.Hash // non-nil once the active EIP set includes Shanghai
}

var (
	ErrBadHeaderFieldCount = errors.New("verify: header has unexpected field count")
	ErrMissingSeal         = errors.New("verify: extraData too short to hold a seal signature")
	ErrUnknownSigner       = errors.New("verify: recovered signer is not in the active validator set")
	ErrInsufficientProof   = errors.New("verify: neither consensus seal nor attestation threshold satisfied")
)

// cliqueExtraSeal is the fixed trailing signature length Clique reserves
// in a header's extraData, matching crypto.SignatureLength (65 bytes).
const cliqueExtraSeal = 65

// DecodeHeader parses a 15, 16, or 17-field RLP header.
func DecodeHeader(raw []byte) (*Header, error) {
	n, err := codec.ListLen(raw, 0)
	if err != nil {
		return nil, err
	}
	if n < 15 || n > 17 {
		return nil, ErrBadHeaderFieldCount
	}
	_, list, _, err := codec.Decode(raw, 0)
	if err != nil {
		return nil, err
	}

	field := func(i int) ([]byte, error) {
		_, _, payload, err := codec.NthItem(list, i)
		return payload, err
	}

	h := &Header{}
	vals := make([][]byte, 15)
	for i := range vals {
		v, err := field(i)
		if err != nil {
			return nil, err
		}
		vals[i] = v
	}

	h.ParentHash = common.BytesToHash(vals[0])
	h.UncleHash = common.BytesToHash(vals[1])
	h.Coinbase = common.BytesToAddress(vals[2])
	h.StateRoot = common.BytesToHash(vals[3])
	h.TxRoot = common.BytesToHash(vals[4])
	h.ReceiptRoot = common.BytesToHash(vals[5])
	copy(h.Bloom[:], vals[6])
	h.Difficulty = new(big.Int).SetBytes(vals[7])
	h.Number = new(big.Int).SetBytes(vals[8])
	h.GasLimit = bytesToUint64(vals[9])
	h.GasUsed = bytesToUint64(vals[10])
	h.Timestamp = bytesToUint64(vals[11])
	h.ExtraData = append([]byte(nil), vals[12]...)
	h.MixDigest = common.BytesToHash(vals[13])
	copy(h.Nonce[:], vals[14])

	if n >= 16 {
		v, err := field(15)
		if err != nil {
			return nil, err
		}
		h.BaseFee = new(big.Int).SetBytes(v)
	}
	if n == 17 {
		v, err := field(16)
		if err != nil {
			return nil, err
		}
		wr := common.BytesToHash(v)
		h.WithdrawalsRoot = &wr
	}
	return h, nil
}

func bytesToUint64(b []byte) uint64 {
	var n uint64
	for _, c := range b {
		n = n<<8 | uint64(c)
	}
	return n
}

// Hash returns the Keccak256 hash of the header's canonical RLP encoding.
func (h *Header) Hash() common.Hash {
	return common.BytesToHash(codec.Keccak256(h.encode(h.ExtraData)))
}

// sealHash returns the hash signed by a Clique sealer: identical encoding
// to Hash, except extraData has its trailing seal signature stripped.
func (h *Header) sealHash() (common.Hash, error) {
	if len(h.ExtraData) < cliqueExtraSeal {
		return common.Hash{}, ErrMissingSeal
	}
	unsealed := h.ExtraData[:len(h.ExtraData)-cliqueExtraSeal]
	return common.BytesToHash(codec.Keccak256(h.encode(unsealed))), nil
}

// encode builds the RLP field list using extraData in place of h.ExtraData,
// so Hash and sealHash can share the same field-ordering logic.
func (h *Header) encode(extraData []byte) []byte {
	fields := [][]byte{
		codec.EncodeBytes(h.ParentHash.Bytes()),
		codec.EncodeBytes(h.UncleHash.Bytes()),
		codec.EncodeBytes(h.Coinbase.Bytes()),
		codec.EncodeBytes(h.StateRoot.Bytes()),
		codec.EncodeBytes(h.TxRoot.Bytes()),
		codec.EncodeBytes(h.ReceiptRoot.Bytes()),
		codec.EncodeBytes(h.Bloom[:]),
		codec.EncodeBigInt(h.Difficulty),
		codec.EncodeBigInt(h.Number),
		codec.EncodeUint(h.GasLimit),
		codec.EncodeUint(h.GasUsed),
		codec.EncodeUint(h.Timestamp),
		codec.EncodeBytes(extraData),
		codec.EncodeBytes(h.MixDigest.Bytes()),
		codec.EncodeBytes(h.Nonce[:]),
	}
	if h.BaseFee != nil {
		fields = append(fields, codec.EncodeBigInt(h.BaseFee))
	}
	if h.WithdrawalsRoot != nil {
		fields = append(fields, codec.EncodeBytes(h.WithdrawalsRoot.Bytes()))
	}
	return codec.EncodeList(fields...)
}

// RecoverCliqueSigner extracts the address that sealed header under
// Clique's extraData-embedded-signature convention, grounded on
// go-ethereum/consensus/clique's ecrecover: the signed hash is the
// header's own encoding with the trailing 65-byte seal stripped from
// extraData, and the signature itself is that trailing slice.
func RecoverCliqueSigner(h *Header) (common.Address, error) {
	digest, err := h.sealHash()
	if err != nil {
		return common.Address{}, err
	}
	seal := h.ExtraData[len(h.ExtraData)-cliqueExtraSeal:]
	return sig.RecoverSealer(digest, seal)
}

// VerifyClique checks that header was sealed by a member of validators.
func VerifyClique(h *Header, validators map[common.Address]bool) error {
	signer, err := RecoverCliqueSigner(h)
	if err != nil {
		return err
	}
	if !validators[signer] {
		return ErrUnknownSigner
	}
	return nil
}

// Attestation is a single node's signature over (blockHash, blockNumber),
// the mechanism spec.md describes for accepting a header without
// tracing full chain consensus.
type Attestation struct {
	Signer common.Address
	Sig    sig.Compact
}

// attestationDigest hashes (blockHash, blockNumber) the same way nodes
// sign it: RLP([blockHash, blockNumber]) over Keccak256, matching the
// codec-first convention used throughout this module instead of ad hoc
// concatenation.
func attestationDigest(blockHash common.Hash, blockNumber uint64) [32]byte {
	enc := codec.EncodeList(codec.EncodeBytes(blockHash.Bytes()), codec.EncodeUint(blockNumber))
	var out [32]byte
	copy(out[:], codec.Keccak256(enc))
	return out
}

// VerifyAttestations recovers a signer per attestation, checks it is a
// known registry member, and reports whether distinct-signer count meets
// threshold. Malformed or unrecoverable attestations are skipped rather
// than rejecting the whole batch, since a single bad attestation from an
// untrusted transport should not sink otherwise-sufficient support.
func VerifyAttestations(blockHash common.Hash, blockNumber uint64, attestations []Attestation, known map[common.Address]bool, threshold int) bool {
	digest := attestationDigest(blockHash, blockNumber)
	seen := make(map[common.Address]bool, len(attestations))
	for _, a := range attestations {
		addr, err := sig.RecoverAddress(digest, a.Sig)
		if err != nil {
			continue
		}
		if !known[addr] {
			continue
		}
		seen[addr] = true
	}
	return len(seen) >= threshold
}
