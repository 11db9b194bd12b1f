package hostiface

import (
	"bytes"

	"github.com/ethereum/go-ethereum/common"

	"github.com/example/trustrpc/cache"
	"github.com/example/trustrpc/registry"
)

// MemCache is an in-process Cache, useful for tests and for hosts that
// don't need persistence across restarts.
type MemCache struct {
	entries map[string][]byte
}

// NewMemCache returns an empty MemCache.
func NewMemCache() *MemCache {
	return &MemCache{entries: make(map[string][]byte)}
}

// Get implements Cache.
func (m *MemCache) Get(key string) ([]byte, bool) {
	v, ok := m.entries[key]
	return v, ok
}

// Set implements Cache.
func (m *MemCache) Set(key string, val []byte) {
	m.entries[key] = val
}

// SaveNodeList snapshots chain's node list and liveness state through
// the cache package's binary format and stores it under c's
// chain-keyed slot.
func SaveNodeList(c Cache, contract common.Address, chain *registry.Chain) error {
	var buf bytes.Buffer
	snap := cache.Snapshot{
		Contract:  contract,
		LastBlock: chain.LastBlock,
		Nodes:     chain.Nodes,
		Weights:   chain.ExportWeightState(),
	}
	if err := cache.Store(&buf, snap); err != nil {
		return err
	}
	c.Set(cache.Key(chain.ChainID), buf.Bytes())
	return nil
}

// LoadNodeList restores a previously-saved node list into chain via
// SetNodes/ApplyWeightState. It returns ok=false (not an error) when
// nothing is cached yet, or when the cached blob is stale or
// unreadable — either way the caller should fall back to fetching a
// fresh node list from the network.
func LoadNodeList(c Cache, chain *registry.Chain) (ok bool, err error) {
	blob, found := c.Get(cache.Key(chain.ChainID))
	if !found {
		return false, nil
	}
	snap, err := cache.Load(blob)
	if err != nil {
		if err == cache.ErrVersionMismatch || err == cache.ErrTruncated {
			return false, nil
		}
		return false, err
	}
	chain.SetNodes(snap.LastBlock, snap.Nodes)
	chain.ApplyWeightState(snap.Weights)
	return true, nil
}
