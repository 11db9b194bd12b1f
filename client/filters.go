package client

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/example/trustrpc/filter"
	"github.com/example/trustrpc/verify"
)

// headerSourceAdapter lets Client satisfy filter.HeaderSource without
// exposing those two methods on Client's own public surface.
type headerSourceAdapter struct {
	c   *Client
	ctx context.Context
}

func (h headerSourceAdapter) HeadNumber() (uint64, error) {
	return h.c.BlockNumber(h.ctx)
}

func (h headerSourceAdapter) HashByNumber(number uint64) (common.Hash, error) {
	hdr, err := h.c.GetBlockByNumber(h.ctx, new(big.Int).SetUint64(number), false)
	if err != nil {
		return common.Hash{}, err
	}
	return hdr.Hash(), nil
}

// logSourceAdapter lets Client satisfy filter.LogSource.
type logSourceAdapter struct {
	c   *Client
	ctx context.Context
}

func (l logSourceAdapter) GetLogs(options filter.Options) ([]verify.Log, error) {
	return l.c.GetLogs(l.ctx, verify.LogFilter{
		Addresses: options.Address,
		FromBlock: options.FromBlock,
		ToBlock:   options.ToBlock,
		BlockHash: options.BlockHash,
		Topics:    options.Topics,
	})
}

// NewFilter registers an eth_getLogs-style filter and returns its id.
func (c *Client) NewFilter(ctx context.Context, options filter.Options) (uint64, error) {
	head, err := c.BlockNumber(ctx)
	if err != nil {
		return 0, err
	}
	return c.filters.NewFilter(filter.KindEvent, options, head)
}

// NewBlockFilter registers a filter that reports new block hashes.
func (c *Client) NewBlockFilter(ctx context.Context) (uint64, error) {
	head, err := c.BlockNumber(ctx)
	if err != nil {
		return 0, err
	}
	return c.filters.NewFilter(filter.KindBlock, filter.Options{}, head)
}

// UninstallFilter removes id, tombstoning it permanently.
func (c *Client) UninstallFilter(id uint64) bool {
	return c.filters.Remove(id) == nil
}

// GetFilterChanges returns whatever changed for id since its last
// poll: new log matches for an event filter, new block hashes for a
// block filter.
func (c *Client) GetFilterChanges(ctx context.Context, id uint64) (filter.Changes, error) {
	return c.filters.GetFilterChanges(id, logSourceAdapter{c: c, ctx: ctx}, headerSourceAdapter{c: c, ctx: ctx})
}
