// Package filter implements the eth_newFilter/eth_getFilterChanges
// family: a registry of client-side filters, each tracking where it
// last polled up to.
package filter

import (
	"errors"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/example/trustrpc/verify"
)

// Kind is the filter variety, matching spec.md's Filter.kind.
type Kind int

const (
	KindEvent Kind = iota
	KindBlock
	KindPendingTx
)

// Options mirrors an eth_newFilter parameter object, pre-validation.
type Options struct {
	Address   []common.Address
	FromBlock *big.Int
	ToBlock   *big.Int
	BlockHash *common.Hash
	Topics    []*[]common.Hash
}

var (
	ErrTooManyTopics              = errors.New("filter: at most 4 topic entries are allowed")
	ErrBlockHashMutuallyExclusive = errors.New("filter: blockHash is mutually exclusive with fromBlock/toBlock")
)

// Validate checks Options against spec.md §4.J's constraints: topics has
// at most 4 entries, and blockHash excludes fromBlock/toBlock.
func (o Options) Validate() error {
	if len(o.Topics) > 4 {
		return ErrTooManyTopics
	}
	if o.BlockHash != nil && (o.FromBlock != nil || o.ToBlock != nil) {
		return ErrBlockHashMutuallyExclusive
	}
	return nil
}

// toLogFilter converts validated Options into the shape
// verify.MatchesFilter consumes.
func (o Options) toLogFilter() verify.LogFilter {
	return verify.LogFilter{
		Addresses: o.Address,
		FromBlock: o.FromBlock,
		ToBlock:   o.ToBlock,
		BlockHash: o.BlockHash,
		Topics:    o.Topics,
	}
}

// entry is one registry slot. A tombstoned entry (live=false) keeps its
// id permanently retired rather than being reused, per spec.md's
// "removal sets the slot to a tombstone — ids are never reused".
type entry struct {
	live      bool
	kind      Kind
	options   Options
	lastBlock uint64
}

// Registry is an id-indexed sequence of filters. Ids are 1-based; id=0
// is reserved as "invalid" per spec.md §4.B's Filter type.
type Registry struct {
	mu      sync.Mutex
	entries []entry
}

// New returns an empty filter registry.
func New() *Registry {
	return &Registry{}
}

// ErrInvalidID means the id is 0, out of range, or points at a
// tombstoned (removed) filter.
var ErrInvalidID = errors.New("filter: invalid or removed filter id")

// NewFilter validates options and appends a new filter, returning its
// id (never 0, never reused).
func (r *Registry) NewFilter(kind Kind, options Options, startBlock uint64) (uint64, error) {
	if kind == KindEvent {
		if err := options.Validate(); err != nil {
			return 0, err
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entry{live: true, kind: kind, options: options, lastBlock: startBlock})
	return uint64(len(r.entries)), nil
}

// Remove tombstones id so it can never be queried or reused again.
func (r *Registry) Remove(id uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, err := r.get(id)
	if err != nil {
		return err
	}
	e.live = false
	r.entries[id-1] = *e
	return nil
}

func (r *Registry) get(id uint64) (*entry, error) {
	if id == 0 || id > uint64(len(r.entries)) {
		return nil, ErrInvalidID
	}
	e := r.entries[id-1]
	if !e.live {
		return nil, ErrInvalidID
	}
	return &e, nil
}

// HeaderSource supplies the block-range data eth_getFilterChanges needs
// for Block-kind filters: the current head number and a header's hash
// by number.
type HeaderSource interface {
	HeadNumber() (uint64, error)
	HashByNumber(number uint64) (common.Hash, error)
}

// LogSource runs an already-verified eth_getLogs query for an
// Event-kind filter's stored options.
type LogSource interface {
	GetLogs(options Options) ([]verify.Log, error)
}

// Changes is eth_getFilterChanges's result: exactly one of Logs or
// BlockHashes is populated, depending on the filter's kind.
type Changes struct {
	Logs        []verify.Log
	BlockHashes []common.Hash
}

// ErrPendingUnsupported mirrors spec.md §4.J: pending-transaction
// filters are rejected outright.
var ErrPendingUnsupported = errors.New("filter: pending transaction filters are not supported")

// GetFilterChanges advances filter id and returns what changed since
// its last poll, per spec.md §4.J's per-kind behavior.
func (r *Registry) GetFilterChanges(id uint64, logs LogSource, headers HeaderSource) (Changes, error) {
	r.mu.Lock()
	e, err := r.get(id)
	if err != nil {
		r.mu.Unlock()
		return Changes{}, err
	}
	r.mu.Unlock()

	switch e.kind {
	case KindEvent:
		opts := e.options
		if opts.FromBlock == nil {
			opts.FromBlock = new(big.Int).SetUint64(e.lastBlock)
		}
		found, err := logs.GetLogs(opts)
		if err != nil {
			return Changes{}, err
		}
		head, err := headers.HeadNumber()
		if err != nil {
			return Changes{}, err
		}
		r.bumpLastBlock(id, head)
		return Changes{Logs: found}, nil

	case KindBlock:
		head, err := headers.HeadNumber()
		if err != nil {
			return Changes{}, err
		}
		var hashes []common.Hash
		for n := e.lastBlock + 1; n <= head; n++ {
			h, err := headers.HashByNumber(n)
			if err != nil {
				return Changes{}, err
			}
			hashes = append(hashes, h)
		}
		r.bumpLastBlock(id, head)
		return Changes{BlockHashes: hashes}, nil

	case KindPendingTx:
		return Changes{}, ErrPendingUnsupported

	default:
		return Changes{}, ErrInvalidID
	}
}

func (r *Registry) bumpLastBlock(id, head uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if id == 0 || id > uint64(len(r.entries)) {
		return
	}
	r.entries[id-1].lastBlock = head
}
