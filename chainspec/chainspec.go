// Package chainspec resolves, for a given block number, which EIPs are
// active and which consensus engine governs header validation. A
// ChainSpec is an ordered list of transitions; lookups return the
// entry with the largest activation block not exceeding the query.
package chainspec

import (
	"encoding/json"
	"errors"
	"sort"

	"github.com/ethereum/go-ethereum/common"
)

// EipFlags is a bitmask of the opcode/behavior-gating EIPs spec.md §4.E
// lists. Flags only ever accumulate across transitions — never cleared
// — matching "EIPs only activate, never deactivate".
type EipFlags uint32

const (
	EipRevert              EipFlags = 1 << iota // EIP-140: REVERT opcode
	EipShiftInstructions                         // EIP-145: SHL/SHR/SAR
	EipGasCostSchedule                           // EIP-150
	EipReplayProtection                          // EIP-155: chainId in signatures
	EipExpCost                                   // EIP-160
	EipCodeSizeLimit                             // EIP-170
	EipPrecompiles                               // EIP-196..198
	EipReturnData                                // EIP-211: RETURNDATASIZE/COPY
	EipStaticCall                                // EIP-214
	EipCreate2                                   // EIP-1014
	EipExtCodeHash                               // EIP-1052
	EipNetGasMetering                            // EIP-1283
)

// EipTransition activates a cumulative EipFlags set starting at BlockNumber.
type EipTransition struct {
	BlockNumber uint64   `json:"blockNumber"`
	Flags       EipFlags `json:"flags"`
}

// ConsensusKind identifies which engine validates a header.
type ConsensusKind string

const (
	ConsensusPoW       ConsensusKind = "pow"
	ConsensusPoAAura   ConsensusKind = "poa-aura"
	ConsensusPoAClique ConsensusKind = "poa-clique"
)

// ConsensusTransition switches the active consensus engine (and, for
// PoA engines, the active validator set) starting at BlockNumber.
type ConsensusTransition struct {
	BlockNumber uint64           `json:"blockNumber"`
	Kind        ConsensusKind    `json:"kind"`
	Validators  []common.Address `json:"validators,omitempty"`
	Contract    *common.Address  `json:"contract,omitempty"`
}

// ChainSpec is an ordered-by-BlockNumber set of EIP and consensus
// transitions for one chain.
type ChainSpec struct {
	NetworkID            uint64                `json:"networkId"`
	AccountStartNonce    uint64                `json:"accountStartNonce"`
	EipTransitions       []EipTransition       `json:"eipTransitions"`
	ConsensusTransitions []ConsensusTransition `json:"consensusTransitions"`
}

// ErrEmptySpec means the spec has no transitions at all, violating the
// "first entry has blockNumber = 0" invariant.
var ErrEmptySpec = errors.New("chainspec: spec has no transitions")

// ErrMissingGenesisTransition means the first transition does not start at 0.
var ErrMissingGenesisTransition = errors.New("chainspec: first transition must activate at block 0")

// Validate checks the sorted-by-BlockNumber and genesis-entry invariants.
func (s *ChainSpec) Validate() error {
	if len(s.EipTransitions) == 0 || len(s.ConsensusTransitions) == 0 {
		return ErrEmptySpec
	}
	if s.EipTransitions[0].BlockNumber != 0 || s.ConsensusTransitions[0].BlockNumber != 0 {
		return ErrMissingGenesisTransition
	}
	if !sort.SliceIsSorted(s.EipTransitions, func(i, j int) bool {
		return s.EipTransitions[i].BlockNumber < s.EipTransitions[j].BlockNumber
	}) {
		return errors.New("chainspec: eip transitions must be sorted by blockNumber")
	}
	if !sort.SliceIsSorted(s.ConsensusTransitions, func(i, j int) bool {
		return s.ConsensusTransitions[i].BlockNumber < s.ConsensusTransitions[j].BlockNumber
	}) {
		return errors.New("chainspec: consensus transitions must be sorted by blockNumber")
	}
	return nil
}

// ActiveEip returns the EipFlags of the largest-block transition with
// BlockNumber <= block.
func (s *ChainSpec) ActiveEip(block uint64) EipFlags {
	active := s.EipTransitions[0].Flags
	for _, t := range s.EipTransitions {
		if t.BlockNumber > block {
			break
		}
		active = t.Flags
	}
	return active
}

// ActiveConsensus returns the consensus transition governing block.
func (s *ChainSpec) ActiveConsensus(block uint64) ConsensusTransition {
	active := s.ConsensusTransitions[0]
	for _, t := range s.ConsensusTransitions {
		if t.BlockNumber > block {
			break
		}
		active = t
	}
	return active
}

// ValidatorSet returns the active PoA validator set as a membership
// map, the shape verify.VerifyClique/VerifyAttestations expect.
func (t ConsensusTransition) ValidatorSet() map[common.Address]bool {
	set := make(map[common.Address]bool, len(t.Validators))
	for _, v := range t.Validators {
		set[v] = true
	}
	return set
}

// Load parses a chainspec from its standard JSON representation.
func Load(data []byte) (*ChainSpec, error) {
	var s ChainSpec
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}
