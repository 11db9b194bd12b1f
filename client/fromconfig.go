package client

import (
	"fmt"
	"os"
	"time"

	"github.com/example/trustrpc/chainspec"
	"github.com/example/trustrpc/config"
	"github.com/example/trustrpc/hostiface"
	"github.com/example/trustrpc/registry"
	"github.com/example/trustrpc/rpcctx"
)

// FromConfig builds a Client from a loaded config.Config, so every
// retry/timeout/blacklist knob flows from the one config file a host
// loads at startup instead of being duplicated as separate constants in
// rpcctx.Config.withDefaults and config.Config.ApplyDefaults. transport
// and cache may be nil, same as Options.
func FromConfig(cfg *config.Config, transport hostiface.Transport, cache hostiface.Cache) (*Client, error) {
	var spec *chainspec.ChainSpec
	if cfg.ChainSpecPath != "" {
		data, err := os.ReadFile(cfg.ChainSpecPath)
		if err != nil {
			return nil, fmt.Errorf("client: reading chain spec: %w", err)
		}
		spec, err = chainspec.Load(data)
		if err != nil {
			return nil, fmt.Errorf("client: parsing chain spec: %w", err)
		}
	}

	opts := Options{
		ChainID:              cfg.ChainID,
		MinDeposit:           cfg.MinDeposit,
		RequestCount:         cfg.RequestCount,
		RetryBudget:          cfg.RetryBudget,
		AttestationThreshold: cfg.SignatureCount,
		Spec:                 spec,
		Transport:            transport,
		Cache:                cache,
	}

	c := newClientWithConfig(opts, resolveTransport(transport), rpcctx.Config{
		NetworkTimeout: time.Duration(cfg.TimeoutMs) * time.Millisecond,
		RetryInterval:  cfg.RetryInterval,
		RetryBudget:    cfg.RetryBudget,
		RequestCount:   cfg.RequestCount,
		BlacklistShort: cfg.BlacklistShort,
		BlacklistLong:  cfg.BlacklistLong,
	})

	if len(cfg.BootNodes) > 0 {
		nodes := make([]registry.Node, len(cfg.BootNodes))
		for i, url := range cfg.BootNodes {
			nodes[i] = registry.Node{URL: url, Capacity: 1}
		}
		c.SeedNodes(0, nodes)
	}

	return c, nil
}
