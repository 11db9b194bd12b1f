// Package registry tracks, per chain, the set of nodes a client may
// query and the weighted-random scheme used to pick a subset of them
// for a request round.
package registry

import (
	"errors"
	"math/rand"
	"time"

	"github.com/ethereum/go-ethereum/common"
	lru "github.com/hashicorp/golang-lru/v2"
)

const defaultAvgResponseMillis = 500

// Node is one entry of a chain's node list, as filled from a verified
// in3_nodeList response.
type Node struct {
	URL      string
	Address  common.Address
	Deposit  uint64
	Props    uint64
	Capacity uint32
	Index    uint32
}

// weight is a node's live selection state: its blacklist timer and its
// rolling response-time samples. Held parallel to the Chain's node
// slice by index, mirroring the C source's in3_node_weight_t array.
type weight struct {
	blacklistedUntil time.Time
	samples          *lru.Cache[int, time.Duration]
	sampleSeq        int
}

const responseWindow = 20

// Chain is the node list and weighting state for one chain id.
type Chain struct {
	ChainID    uint64
	LastBlock  uint64
	Nodes      []Node
	weights    []*weight
	minDeposit uint64
	rand       *rand.Rand
}

// NewChain builds an empty registry for chainID. Nodes are installed
// with SetNodes once a verified in3_nodeList response is available.
func NewChain(chainID uint64, minDeposit uint64) *Chain {
	return &Chain{
		ChainID:    chainID,
		minDeposit: minDeposit,
		rand:       rand.New(rand.NewSource(1)),
	}
}

// SetNodes replaces the chain's node list wholesale, resetting all
// weighting state (blacklist timers, response samples) the way a
// fresh in3_nodeList fetch does.
func (c *Chain) SetNodes(lastBlock uint64, nodes []Node) {
	c.LastBlock = lastBlock
	c.Nodes = nodes
	c.weights = make([]*weight, len(nodes))
	for i := range c.weights {
		cache, _ := lru.New[int, time.Duration](responseWindow)
		c.weights[i] = &weight{samples: cache}
	}
}

// RecordResponseTime feeds a round-trip sample for node i into its
// rolling average. The node's blacklist timer is left unchanged.
func (c *Chain) RecordResponseTime(i int, d time.Duration) {
	if i < 0 || i >= len(c.weights) {
		return
	}
	w := c.weights[i]
	w.samples.Add(w.sampleSeq, d)
	w.sampleSeq++
}

// Blacklist marks node i unusable until now+until, as the send loop
// does on a JSON-parse failure or verification failure for that node's
// response.
func (c *Chain) Blacklist(i int, until time.Duration, now time.Time) {
	if i < 0 || i >= len(c.weights) {
		return
	}
	c.weights[i].blacklistedUntil = now.Add(until)
}

// WeightState is a persistable snapshot of one node's liveness state,
// the bridge between this package's LRU-backed rolling average and the
// cache package's flat on-disk counter pair (the persistent format
// predates the rolling window and only ever stored one lifetime
// average).
type WeightState struct {
	BlacklistedUntil  time.Time
	ResponseCount     uint32
	AvgResponseMillis uint32
}

// ExportWeightState snapshots every node's liveness state, parallel to
// Nodes, for persistence via the cache package.
func (c *Chain) ExportWeightState() []WeightState {
	out := make([]WeightState, len(c.weights))
	for i, w := range c.weights {
		keys := w.samples.Keys()
		out[i] = WeightState{
			BlacklistedUntil:  w.blacklistedUntil,
			ResponseCount:     uint32(len(keys)),
			AvgResponseMillis: uint32(w.avgResponseMillis()),
		}
	}
	return out
}

// ApplyWeightState restores liveness state captured by
// ExportWeightState — called right after SetNodes so len(states)
// matches len(c.Nodes). A non-zero AvgResponseMillis/ResponseCount pair
// seeds the rolling window with a single sample equal to the persisted
// average rather than reconstructing the original sample history, which
// the flat on-disk format does not retain.
func (c *Chain) ApplyWeightState(states []WeightState) {
	for i, s := range states {
		if i >= len(c.weights) {
			break
		}
		c.weights[i].blacklistedUntil = s.BlacklistedUntil
		if s.ResponseCount > 0 {
			c.weights[i].samples.Add(0, time.Duration(s.AvgResponseMillis)*time.Millisecond)
			c.weights[i].sampleSeq = 1
		}
	}
}

func (w *weight) avgResponseMillis() float64 {
	keys := w.samples.Keys()
	if len(keys) == 0 {
		return defaultAvgResponseMillis
	}
	var total time.Duration
	for _, k := range keys {
		d, ok := w.samples.Get(k)
		if ok {
			total += d
		}
	}
	return float64(total.Milliseconds()) / float64(len(keys))
}

// effectiveWeight computes w_i = weight * capacity * 500 / avg_response_ms,
// the same formula as in3_node_list_fill_weight, with the node's base
// weight fixed at 1 (the C source initializes every node's weight to 1
// on nodelist install and only ever adjusts it via the deposit/capacity/
// response-time terms computed here).
func effectiveWeight(n Node, w *weight) float64 {
	avg := w.avgResponseMillis()
	if avg <= 0 {
		avg = defaultAvgResponseMillis
	}
	return float64(n.Capacity) * (defaultAvgResponseMillis / avg)
}

type candidate struct {
	index  int
	prefix float64
	weight float64
}

// liveNodes returns the candidates eligible for selection at `now`:
// deposit above the floor and not currently blacklisted. It also
// returns the running prefix sums and grand total needed for
// weight-proportional sampling.
func (c *Chain) liveNodes(now time.Time) ([]candidate, float64) {
	var out []candidate
	var total float64
	for i, n := range c.Nodes {
		if n.Deposit < c.minDeposit {
			continue
		}
		w := c.weights[i]
		if w.blacklistedUntil.After(now) {
			continue
		}
		ew := effectiveWeight(n, w)
		out = append(out, candidate{index: i, prefix: total, weight: ew})
		total += ew
	}
	return out, total
}

// ErrNoNodesFound mirrors IN3_EFIND: no node satisfies the selection
// criteria even after the liveness override clears blacklists.
var ErrNoNodesFound = errors.New("registry: no nodes found that match the criteria")

// Select picks up to requestCount distinct node indices by weight-
// proportional sampling, following in3_node_list_pick_nodes: whenever
// more than half the node list is currently blacklisted, every
// blacklist timer is cleared and liveness is recomputed before
// picking, regardless of how many nodes were already live; the
// duplicate-rejection loop is capped at 10*requestCount draws.
func (c *Chain) Select(requestCount int, now time.Time) ([]int, error) {
	if len(c.Nodes) == 0 {
		return nil, ErrNoNodesFound
	}

	live, total := c.liveNodes(now)

	blacklisted := 0
	for _, w := range c.weights {
		if w.blacklistedUntil.After(now) {
			blacklisted++
		}
	}
	if blacklisted > len(c.Nodes)/2 {
		for _, w := range c.weights {
			w.blacklistedUntil = time.Time{}
		}
		live, total = c.liveNodes(now)
		blacklisted = 0
	}
	c.reportHealth(live, blacklisted)
	if len(live) == 0 {
		return nil, ErrNoNodesFound
	}

	if len(live) <= requestCount {
		out := make([]int, len(live))
		for i, cand := range live {
			out[i] = cand.index
		}
		return out, nil
	}

	seen := make(map[int]bool, requestCount)
	var picked []int
	maxDraws := requestCount * 10
	for draw := 0; len(picked) < requestCount && draw < maxDraws; draw++ {
		r := total * float64(c.rand.Intn(10000)) / 10000.0
		idx, ok := pick(live, r)
		if !ok {
			continue
		}
		if seen[idx] {
			continue
		}
		seen[idx] = true
		picked = append(picked, idx)
	}
	return picked, nil
}

// pick descends the prefix-sum list and returns the first candidate
// whose [prefix, prefix+weight) interval contains r.
func pick(live []candidate, r float64) (int, bool) {
	for _, cand := range live {
		if cand.prefix <= r && r < cand.prefix+cand.weight {
			return cand.index, true
		}
	}
	if len(live) > 0 {
		return live[len(live)-1].index, true
	}
	return 0, false
}

// RawNode is one entry of an in3_nodeList JSON-RPC result, before its
// deposit has been cross-checked against the verified registry storage
// proof. Field names and defaults (capacity=1, props=65535, index=i)
// mirror in3_client_fill_chain.
type RawNode struct {
	URL      string
	Address  common.Address
	Deposit  uint64
	Props    uint64
	Capacity uint32
	Index    uint32
}

var (
	// ErrMissingURL mirrors "missing url in nodelist".
	ErrMissingURL = errors.New("registry: missing url in nodelist")
	// ErrDepositMismatch means the JSON-reported deposit for a node
	// disagrees with the value witnessed by its storage proof.
	ErrDepositMismatch = errors.New("registry: deposit does not match verified storage value")
)

// FromResult converts a parsed in3_nodeList JSON array into Node
// records, applying the same per-field defaults as
// in3_client_fill_chain (capacity defaults to 1, props to 65535, index
// to the array position).
func FromResult(raw []RawNode) ([]Node, error) {
	nodes := make([]Node, len(raw))
	for i, r := range raw {
		if r.URL == "" {
			return nil, ErrMissingURL
		}
		capacity := r.Capacity
		if capacity == 0 {
			capacity = 1
		}
		props := r.Props
		if props == 0 {
			props = 65535
		}
		index := r.Index
		if index == 0 {
			index = uint32(i)
		}
		nodes[i] = Node{
			URL:      r.URL,
			Address:  r.Address,
			Deposit:  r.Deposit,
			Props:    props,
			Capacity: capacity,
			Index:    index,
		}
	}
	return nodes, nil
}

// CrossCheckDeposits confirms each node's JSON-reported deposit matches
// the value witnessed by its corresponding verified storage slot,
// keyed by node index. A node with no entry in verified is left
// unchecked (the caller only spot-checks a subset of slots).
func CrossCheckDeposits(nodes []Node, verified map[int]uint64) error {
	for i, n := range nodes {
		want, ok := verified[i]
		if !ok {
			continue
		}
		if n.Deposit != want {
			return ErrDepositMismatch
		}
	}
	return nil
}
