// Package cache implements the on-disk node-list blob format described
// by spec.md §4.K, a byte-exact port of the original client's
// in3_cache_store_nodelist/in3_cache_update_nodelist.
package cache

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/example/trustrpc/registry"
)

func unixTime(sec uint64) time.Time {
	return time.Unix(int64(sec), 0)
}

const currentVersion = 1

// ErrVersionMismatch mirrors IN3_EVERS: the stored blob's version byte
// does not match what this client understands.
var ErrVersionMismatch = errors.New("cache: unsupported nodelist cache version")

// ErrTruncated mirrors "partial read = drop cache".
var ErrTruncated = errors.New("cache: truncated nodelist blob")

// Key is the storage key a caller should store/load the blob under,
// matching the original NODE_LIST_KEY format string.
func Key(chainID uint64) string {
	return fmt.Sprintf("nodelist_%x", chainID)
}

// rawWeight is the fixed-size, big-endian on-disk liveness record for
// one node, parallel to the nodeList. Field shape (a blacklist
// deadline plus a lifetime response-count/total-time pair) matches
// in3_node_weight_t as used by cache.c's raw bb_write_raw_bytes copy;
// this client's registry.WeightState carries the same information in
// already-averaged form.
type rawWeight struct {
	BlacklistedUntil  uint64 // unix seconds
	ResponseCount     uint32
	TotalResponseMillis uint32
}

func (w rawWeight) avgMillis() uint32 {
	if w.ResponseCount == 0 {
		return 0
	}
	return w.TotalResponseMillis / w.ResponseCount
}

// Snapshot is everything Store/Load persists for one chain's node list.
type Snapshot struct {
	Contract  common.Address
	LastBlock uint64
	Nodes     []registry.Node
	Weights   []registry.WeightState
}

// Store serializes snapshot in the format spec.md §4.K describes:
// version byte, 20-byte contract address, u64 lastBlock, u32 node
// count, the parallel weight array, then each node's fields with a
// length-prefixed UTF-8 url.
func Store(w io.Writer, snap Snapshot) error {
	if len(snap.Nodes) != len(snap.Weights) {
		return errors.New("cache: nodes and weights must be parallel")
	}
	if err := binary.Write(w, binary.BigEndian, uint8(currentVersion)); err != nil {
		return err
	}
	if _, err := w.Write(snap.Contract.Bytes()); err != nil {
		return err
	}
	if err := binary.Write(w, binary.BigEndian, snap.LastBlock); err != nil {
		return err
	}
	if err := binary.Write(w, binary.BigEndian, uint32(len(snap.Nodes))); err != nil {
		return err
	}
	for _, ws := range snap.Weights {
		raw := rawWeight{
			ResponseCount:       ws.ResponseCount,
			TotalResponseMillis: ws.ResponseCount * ws.AvgResponseMillis,
		}
		if !ws.BlacklistedUntil.IsZero() {
			raw.BlacklistedUntil = uint64(ws.BlacklistedUntil.Unix())
		}
		if err := binary.Write(w, binary.BigEndian, raw); err != nil {
			return err
		}
	}
	for _, n := range snap.Nodes {
		if err := binary.Write(w, binary.BigEndian, n.Capacity); err != nil {
			return err
		}
		if err := binary.Write(w, binary.BigEndian, n.Index); err != nil {
			return err
		}
		if err := binary.Write(w, binary.BigEndian, n.Deposit); err != nil {
			return err
		}
		if err := binary.Write(w, binary.BigEndian, n.Props); err != nil {
			return err
		}
		if _, err := w.Write(n.Address.Bytes()); err != nil {
			return err
		}
		urlBytes := []byte(n.URL)
		if err := binary.Write(w, binary.BigEndian, uint32(len(urlBytes))); err != nil {
			return err
		}
		if _, err := w.Write(urlBytes); err != nil {
			return err
		}
	}
	return nil
}

// Load parses a blob written by Store. A version mismatch returns
// ErrVersionMismatch; any short read returns ErrTruncated, both meaning
// the caller should drop the cache and refetch the node list.
func Load(data []byte) (*Snapshot, error) {
	r := bytes.NewReader(data)

	var version uint8
	if err := binary.Read(r, binary.BigEndian, &version); err != nil {
		return nil, ErrTruncated
	}
	if version != currentVersion {
		return nil, ErrVersionMismatch
	}

	contractBytes := make([]byte, 20)
	if _, err := io.ReadFull(r, contractBytes); err != nil {
		return nil, ErrTruncated
	}

	var lastBlock uint64
	if err := binary.Read(r, binary.BigEndian, &lastBlock); err != nil {
		return nil, ErrTruncated
	}

	var count uint32
	if err := binary.Read(r, binary.BigEndian, &count); err != nil {
		return nil, ErrTruncated
	}

	weights := make([]registry.WeightState, count)
	for i := range weights {
		var raw rawWeight
		if err := binary.Read(r, binary.BigEndian, &raw); err != nil {
			return nil, ErrTruncated
		}
		ws := registry.WeightState{ResponseCount: raw.ResponseCount, AvgResponseMillis: raw.avgMillis()}
		if raw.BlacklistedUntil > 0 {
			ws.BlacklistedUntil = unixTime(raw.BlacklistedUntil)
		}
		weights[i] = ws
	}

	nodes := make([]registry.Node, count)
	for i := range nodes {
		var capacity, index uint32
		var deposit, props uint64
		if err := binary.Read(r, binary.BigEndian, &capacity); err != nil {
			return nil, ErrTruncated
		}
		if err := binary.Read(r, binary.BigEndian, &index); err != nil {
			return nil, ErrTruncated
		}
		if err := binary.Read(r, binary.BigEndian, &deposit); err != nil {
			return nil, ErrTruncated
		}
		if err := binary.Read(r, binary.BigEndian, &props); err != nil {
			return nil, ErrTruncated
		}
		addrBytes := make([]byte, 20)
		if _, err := io.ReadFull(r, addrBytes); err != nil {
			return nil, ErrTruncated
		}
		var urlLen uint32
		if err := binary.Read(r, binary.BigEndian, &urlLen); err != nil {
			return nil, ErrTruncated
		}
		urlBytes := make([]byte, urlLen)
		if _, err := io.ReadFull(r, urlBytes); err != nil {
			return nil, ErrTruncated
		}
		nodes[i] = registry.Node{
			URL:      string(urlBytes),
			Address:  common.BytesToAddress(addrBytes),
			Deposit:  deposit,
			Props:    props,
			Capacity: capacity,
			Index:    index,
		}
	}

	return &Snapshot{
		Contract:  common.BytesToAddress(contractBytes),
		LastBlock: lastBlock,
		Nodes:     nodes,
		Weights:   weights,
	}, nil
}
