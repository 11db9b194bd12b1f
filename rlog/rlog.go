// Package rlog is a thin wrapper around go-ethereum/log, giving the
// rest of this module one place to attach request-scoped fields
// (chain id, method, node url) instead of threading a logger through
// every call site by hand.
package rlog

import (
	"github.com/ethereum/go-ethereum/log"
)

// Logger is an alias so callers don't need to import go-ethereum/log
// themselves just to spell out the type.
type Logger = log.Logger

// Root returns the package-level logger.
func Root() Logger { return log.Root() }

// With returns a child logger carrying the given key/value pairs on
// every subsequent call, mirroring log.Logger.With.
func With(ctx ...any) Logger { return log.Root().With(ctx...) }

// ForChain scopes a logger to one chain id, the most common grouping
// this client logs by (a process may serve more than one chain).
func ForChain(chainID uint64) Logger { return With("chain", chainID) }

// ForNode scopes a logger to one node url. No package in this module
// calls it; rpcctx attaches the node url as a per-line "node" field.
func ForNode(url string) Logger { return With("node", url) }

// ForRequest scopes a logger to one request's correlation id, letting
// every log line emitted across a Context.Call's retry rounds be
// grepped back together.
func ForRequest(reqID string) Logger { return With("req_id", reqID) }
