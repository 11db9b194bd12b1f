// Package client is the public API facade: Client.RPC/RPCCtx and its
// convenience wrappers, built on top of rpcctx for the send/retry loop,
// registry for node selection, chainspec for consensus/fork gating,
// filter for the eth_newFilter family, and verify for the actual proof
// checking. This file parses the "in3" proof envelope a server embeds
// in its JSON-RPC response into the verify.Request shape verify.Dispatch
// consumes.
package client

import (
	"encoding/json"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/example/trustrpc/sig"
	"github.com/example/trustrpc/verify"
)

// hexBytes unmarshals both "0x..." strings and raw JSON strings into
// raw bytes, the way the teacher's ethclient wraps RPC fields in
// hexutil.Bytes rather than hand-rolling its own hex decoding.
type hexBytes = hexutil.Bytes

// envelopeSignature is one node's attestation over the envelope's own
// block: VerifyAttestations always recomputes the digest from that
// block's hash and number, so a signature carries only its r/s/v.
type envelopeSignature struct {
	R hexutil.Big    `json:"r"`
	S hexutil.Big    `json:"s"`
	V hexutil.Uint64 `json:"v"`
}

type envelopeStorageProof struct {
	Key   common.Hash `json:"key"`
	Value hexutil.Big `json:"value"`
	Proof []hexBytes  `json:"proof"`
}

type envelopeAccount struct {
	Address      common.Address         `json:"address"`
	AccountProof []hexBytes             `json:"accountProof"`
	StorageProof []envelopeStorageProof `json:"storageProof"`
}

type envelopeReceiptRef struct {
	TxIndex  hexutil.Uint64 `json:"txIndex"`
	TxProof  []hexBytes     `json:"txProof"`
	Proof    []hexBytes     `json:"proof"`
	TxHash   common.Hash    `json:"txHash"`
	RawTx    hexBytes       `json:"rawTx"`
}

type envelopeLogProofBlock struct {
	Block    hexBytes             `json:"block"`
	Receipts []envelopeReceiptRef `json:"receipts"`
}

// envelope is the "in3" object spec.md §6 defines, bit-exact field
// names so a real in3-speaking server's JSON unmarshals directly.
type envelope struct {
	Block        hexBytes              `json:"block"`
	Signatures   []envelopeSignature   `json:"signatures"`
	Accounts     []envelopeAccount     `json:"accounts"`
	LogProof     []envelopeLogProofBlock `json:"logProof"`
	TxIndex      hexutil.Uint64        `json:"txIndex"`
	MerkleProof  []hexBytes            `json:"merkleProof"`
}

// rawResponse is one JSON-RPC response with its embedded proof
// envelope, the shape a node posts back over the wire.
type rawResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	In3 *envelope `json:"in3"`
}

func decodeHexList(items []hexBytes) [][]byte {
	out := make([][]byte, len(items))
	for i, it := range items {
		out[i] = it
	}
	return out
}

// attestations converts the envelope's signatures into verify.Attestation
// values, recovering nothing yet — VerifyHeaderConsensus/VerifyAttestations
// does the actual signature recovery and threshold check.
func (e *envelope) attestations() []verify.Attestation {
	out := make([]verify.Attestation, 0, len(e.Signatures))
	for _, s := range e.Signatures {
		var compact sig.Compact
		rb, sb := s.R.ToInt().Bytes(), s.S.ToInt().Bytes()
		copy(compact.R[32-len(rb):], rb)
		copy(compact.S[32-len(sb):], sb)
		compact.V = byte(s.V)
		out = append(out, verify.Attestation{Sig: compact})
	}
	return out
}

// firstAccount returns the envelope's first (and, for every method this
// client issues, only) account witness, or nil if none was supplied.
func (e *envelope) firstAccount() *envelopeAccount {
	if len(e.Accounts) == 0 {
		return nil
	}
	return &e.Accounts[0]
}

// storageWitness finds the storage proof for slot within acc, if the
// server included one.
func (a *envelopeAccount) storageWitness(slot common.Hash) *envelopeStorageProof {
	for i := range a.StorageProof {
		if a.StorageProof[i].Key == slot {
			return &a.StorageProof[i]
		}
	}
	return nil
}

// expectedStorageValue returns sp's claimed value as a *big.Int, the
// value VerifyStorageValue cross-checks the proof against.
func (sp *envelopeStorageProof) expectedStorageValue() *big.Int {
	return sp.Value.ToInt()
}
