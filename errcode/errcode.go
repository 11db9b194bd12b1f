// Package errcode implements the three-tier error model spec.md §7
// describes (local, transport, trust errors) plus the IN3-style
// numeric error codes callers can match on across a process boundary
// (CLI exit codes, RPC error objects) where Go's error wrapping alone
// doesn't travel.
package errcode

import "fmt"

// Code is a stable numeric error identifier, named after the original
// client's IN3_E* constants so operators moving between the two can
// recognize them.
type Code int

const (
	OK          Code = 0
	Unknown     Code = 1
	NoMemory    Code = 2
	Invalid     Code = 3
	NotFound    Code = 4
	VersionErr  Code = 5 // cache version mismatch
	InvalidData Code = 6 // response didn't have the shape a verifier expects
	RPCError    Code = 7 // node returned a JSON-RPC error object
	NoResult    Code = 8 // node returned neither a result nor an error
	Unsupported Code = 9
)

func (c Code) String() string {
	switch c {
	case OK:
		return "OK"
	case Unknown:
		return "EUNKNOWN"
	case NoMemory:
		return "ENOMEM"
	case Invalid:
		return "EINVAL"
	case NotFound:
		return "EFIND"
	case VersionErr:
		return "EVERS"
	case InvalidData:
		return "EINVALDT"
	case RPCError:
		return "ERPC"
	case NoResult:
		return "ERPCNRES"
	case Unsupported:
		return "ENOTSUP"
	default:
		return fmt.Sprintf("E%d", int(c))
	}
}

// Tier classifies an error for the send loop's blacklist policy:
// Local errors surface immediately, Transport errors get a short
// blacklist and retry, Trust errors get a long blacklist and retry.
type Tier int

const (
	Local Tier = iota
	Transport
	Trust
)

func (t Tier) String() string {
	switch t {
	case Local:
		return "local"
	case Transport:
		return "transport"
	case Trust:
		return "trust"
	default:
		return "unknown"
	}
}

// Error is a coded, tiered error, the shape returned to callers that
// need to distinguish "retry elsewhere" from "give up now" without
// string-matching error text.
type Error struct {
	Code Code
	Tier Tier
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s (%s): %s: %v", e.Code, e.Tier, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s (%s): %s", e.Code, e.Tier, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an *Error, wrapping cause if non-nil.
func New(code Code, tier Tier, msg string, cause error) *Error {
	return &Error{Code: code, Tier: tier, Msg: msg, Err: cause}
}

// LocalError is shorthand for New(code, Local, msg, cause).
func LocalError(code Code, msg string, cause error) *Error {
	return New(code, Local, msg, cause)
}

// TransportError builds a Transport-tier *Error, e.g. for a timeout or
// connection refusal from a single node.
func TransportError(msg string, cause error) *Error {
	return New(RPCError, Transport, msg, cause)
}

// TrustError builds a Trust-tier *Error, e.g. for a proof that failed
// to verify or a signature that didn't recover to an expected signer.
func TrustError(msg string, cause error) *Error {
	return New(Unknown, Trust, msg, cause)
}
