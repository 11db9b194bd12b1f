// Package hostiface defines the host-provided capabilities the client
// needs from its embedding application: network transport, a
// persistent cache, and (optionally) a local signer for producing
// attestations. Implementations are supplied by the host; the default
// ones here are a plain HTTP transport, a byte-slice-backed cache, and
// an ecdsa signer.
package hostiface

import (
	"context"
)

// Request is one JSON-RPC call addressed to a specific node URL.
type Request struct {
	URL  string
	Body []byte
}

// Response is the raw bytes a node returned for the matching Request,
// or a non-nil Err if the round trip itself failed (not a JSON-RPC
// error, which lives inside Body).
type Response struct {
	Body []byte
	Err  error
}

// Transport is the host's network capability: send a batch of
// requests, potentially to many different node URLs, and collect
// their raw responses.
type Transport interface {
	Send(ctx context.Context, reqs []Request) ([]Response, error)
}

// Cache is the host's persistent key-value store, used to save and
// restore a chain's node list and liveness state across process
// restarts.
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, val []byte)
}

// Signer is the host's key-management capability, used to produce
// attestation signatures over block hashes this client has already
// verified (spec.md §4.C's third-party attestation flow).
type Signer interface {
	Sign(digest [32]byte) ([65]byte, error)
}
