// Package abi implements a bespoke Solidity ABI codec: a signature parser
// that tokenizes a call signature into a type tree, and a head/tail
// encoder/decoder that walks that tree the way the reference client's
// abi.c does (var_t tokens, not Go reflection). This is the codec
// verify/call.go uses to build eth_call input data and decode its
// output, grounded directly on
// _examples/original_source/app/src/main/eth_api/abi.c.
package abi

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind identifies a Solidity elementary type.
type Kind int

const (
	KindUint Kind = iota
	KindInt
	KindAddress
	KindBool
	KindBytes  // type_len == 0: dynamic "bytes"; type_len > 0: fixed "bytesN"
	KindString
	KindTuple
)

// Token is one node of a parsed type tree, mirroring the reference
// client's var_t: a type, its byte width (type_len), and an array marker
// (0 = scalar, -1 = dynamic array, N>0 = fixed-size array of N).
type Token struct {
	Kind       Kind
	TypeLen    int
	ArrayLen   int
	Components []Token // populated when Kind == KindTuple
}

func (t Token) isArray() bool { return t.ArrayLen != 0 }

// Signature is a parsed call signature: function name, input tuple, and
// (optionally) an output tuple.
type Signature struct {
	Name    string
	Inputs  []Token
	Outputs []Token
}

// Canonical renders the signature's canonical form (name(type,type,...)),
// the bytes whose Keccak-256 hash yields the 4-byte function selector.
func (s *Signature) Canonical() string {
	var b strings.Builder
	b.WriteString(s.Name)
	b.WriteByte('(')
	for i, t := range s.Inputs {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(t.canonical())
	}
	b.WriteByte(')')
	return b.String()
}

func (t Token) canonical() string {
	var base string
	switch t.Kind {
	case KindUint:
		base = "uint" + strconv.Itoa(t.TypeLen*8)
	case KindInt:
		base = "int" + strconv.Itoa(t.TypeLen*8)
	case KindAddress:
		base = "address"
	case KindBool:
		base = "bool"
	case KindBytes:
		if t.TypeLen == 0 {
			base = "bytes"
		} else {
			base = "bytes" + strconv.Itoa(t.TypeLen)
		}
	case KindString:
		base = "string"
	case KindTuple:
		var parts []string
		for _, c := range t.Components {
			parts = append(parts, c.canonical())
		}
		base = "(" + strings.Join(parts, ",") + ")"
	}
	switch {
	case t.ArrayLen < 0:
		return base + "[]"
	case t.ArrayLen > 0:
		return base + "[" + strconv.Itoa(t.ArrayLen) + "]"
	default:
		return base
	}
}

// ParseSignature parses a call signature such as
// "balanceOf(address):uint256" or "transfer(address,uint256):(bool)".
// The return-type clause after ':' is optional.
func ParseSignature(sig string) (*Signature, error) {
	open := strings.IndexByte(sig, '(')
	if open < 0 {
		return nil, fmt.Errorf("abi: invalid signature %q: missing '('", sig)
	}
	name := sig[:open]
	colon := strings.IndexByte(sig, ':')

	inTuple, err := parseTupleBody(sig[open+1 : findMatchingClose(sig, open)])
	if err != nil {
		return nil, fmt.Errorf("abi: invalid arguments in %q: %w", sig, err)
	}

	s := &Signature{Name: name, Inputs: inTuple}
	if colon < 0 {
		return s, nil
	}

	outPart := strings.TrimSpace(sig[colon+1:])
	outPart = strings.TrimSuffix(strings.TrimPrefix(outPart, "("), ")")
	if outPart == "" {
		return s, nil
	}
	outTuple, err := parseTupleBody(outPart)
	if err != nil {
		return nil, fmt.Errorf("abi: invalid return types in %q: %w", sig, err)
	}
	s.Outputs = outTuple
	return s, nil
}

// findMatchingClose returns the index of the ')' matching the '(' at
// sig[open], accounting for nested tuples.
func findMatchingClose(sig string, open int) int {
	depth := 0
	for i := open; i < len(sig); i++ {
		switch sig[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return len(sig)
}

// parseTupleBody splits a comma-separated (nesting-aware) list of type
// names into tokens.
func parseTupleBody(body string) ([]Token, error) {
	var tokens []Token
	depth := 0
	start := 0
	flush := func(end int) error {
		part := strings.TrimSpace(body[start:end])
		if part == "" {
			return nil
		}
		tok, err := parseType(part)
		if err != nil {
			return err
		}
		tokens = append(tokens, tok)
		return nil
	}
	for i := 0; i < len(body); i++ {
		switch body[i] {
		case '(':
			depth++
		case ')':
			depth--
		case ',':
			if depth == 0 {
				if err := flush(i); err != nil {
					return nil, err
				}
				start = i + 1
			}
		}
	}
	if err := flush(len(body)); err != nil {
		return nil, err
	}
	return tokens, nil
}

// parseType parses a single type name, including a tuple "(...)" form and
// a trailing array suffix ("[]" or "[N]").
func parseType(name string) (Token, error) {
	name = strings.TrimSpace(name)
	arrayLen := 0
	if strings.HasSuffix(name, "]") {
		open := strings.LastIndexByte(name, '[')
		if open < 0 {
			return Token{}, fmt.Errorf("unmatched ']' in %q", name)
		}
		inside := name[open+1 : len(name)-1]
		if inside == "" {
			arrayLen = -1
		} else {
			n, err := strconv.Atoi(inside)
			if err != nil {
				return Token{}, fmt.Errorf("invalid array length in %q: %w", name, err)
			}
			arrayLen = n
		}
		name = name[:open]
	}

	if strings.HasPrefix(name, "(") && strings.HasSuffix(name, ")") {
		comps, err := parseTupleBody(name[1 : len(name)-1])
		if err != nil {
			return Token{}, err
		}
		return Token{Kind: KindTuple, TypeLen: len(comps), ArrayLen: arrayLen, Components: comps}, nil
	}

	switch {
	case name == "address":
		return Token{Kind: KindAddress, TypeLen: 20, ArrayLen: arrayLen}, nil
	case name == "bool":
		return Token{Kind: KindBool, TypeLen: 1, ArrayLen: arrayLen}, nil
	case name == "string":
		return Token{Kind: KindString, ArrayLen: arrayLen}, nil
	case name == "bytes":
		return Token{Kind: KindBytes, ArrayLen: arrayLen}, nil
	case strings.HasPrefix(name, "bytes"):
		n, err := strconv.Atoi(name[5:])
		if err != nil || n < 1 || n > 32 {
			return Token{}, fmt.Errorf("invalid fixed bytes type %q", name)
		}
		return Token{Kind: KindBytes, TypeLen: n, ArrayLen: arrayLen}, nil
	case name == "uint":
		return Token{Kind: KindUint, TypeLen: 32, ArrayLen: arrayLen}, nil
	case strings.HasPrefix(name, "uint"):
		bits, err := strconv.Atoi(name[4:])
		if err != nil || bits%8 != 0 || bits < 8 || bits > 256 {
			return Token{}, fmt.Errorf("invalid uint type %q", name)
		}
		return Token{Kind: KindUint, TypeLen: bits / 8, ArrayLen: arrayLen}, nil
	case name == "int":
		return Token{Kind: KindInt, TypeLen: 32, ArrayLen: arrayLen}, nil
	case strings.HasPrefix(name, "int"):
		bits, err := strconv.Atoi(name[3:])
		if err != nil || bits%8 != 0 || bits < 8 || bits > 256 {
			return Token{}, fmt.Errorf("invalid int type %q", name)
		}
		return Token{Kind: KindInt, TypeLen: bits / 8, ArrayLen: arrayLen}, nil
	}
	return Token{}, fmt.Errorf("unsupported type %q", name)
}

// isDynamic reports whether t's encoding requires a tail (offset-pointed)
// slot rather than an inline head slot.
func isDynamic(t Token) bool {
	if t.ArrayLen < 0 {
		return true
	}
	if t.ArrayLen > 0 {
		elem := t
		elem.ArrayLen = 0
		return isDynamic(elem)
	}
	if t.TypeLen == 0 && (t.Kind == KindString || t.Kind == KindBytes) {
		return true
	}
	if t.Kind == KindTuple {
		for _, c := range t.Components {
			if isDynamic(c) {
				return true
			}
		}
	}
	return false
}

// headWords returns the number of 32-byte words t occupies in the head
// when encoded as a single (non-array) scalar, used to size a tuple's
// fixed head region.
func headWords(t Token) int {
	if t.Kind == KindTuple {
		n := 0
		for _, c := range t.Components {
			n += wordsFor(c)
		}
		return n
	}
	return 1
}

// wordsFor returns the number of head words a (possibly array) token
// occupies when it is NOT dynamic (dynamic tokens occupy exactly one
// offset word, handled by the caller).
func wordsFor(t Token) int {
	if isDynamic(t) {
		return 1
	}
	count := t.ArrayLen
	if count <= 0 {
		count = 1
	}
	return headWords(t) * count
}
