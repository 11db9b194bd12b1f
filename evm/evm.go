// Package evm implements a from-scratch EVM bytecode interpreter subset,
// sufficient to replay an eth_call locally against a StateOracle instead
// of trusting a server's returned result. Arithmetic is 256-bit via
// github.com/holiman/uint256, the library the wider example pack already
// depends on for exactly this; the interpreter loop, opcode dispatch, and
// gas accounting are hand-written (that's the thing being verified).
package evm

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"

	"github.com/example/trustrpc/chainspec"
	"github.com/example/trustrpc/codec"
)

// Journal records the side effects a call accumulated, for inspection
// after Run returns; none of it is ever written back to the oracle —
// eth_call replay never persists state (spec.md §4.E).
type Journal struct {
	StorageWrites map[common.Address]map[common.Hash]common.Hash
	Destructed    map[common.Address]bool
	Logs          []Log
}

type Log struct {
	Address common.Address
	Topics  []common.Hash
	Data    []byte
}

func newJournal() *Journal {
	return &Journal{
		StorageWrites: make(map[common.Address]map[common.Hash]common.Hash),
		Destructed:    make(map[common.Address]bool),
	}
}

// Result is the outcome of a top-level Run.
type Result struct {
	ReturnData []byte
	GasUsed    uint64
	Reverted   bool
	Journal    *Journal
}

// frame is one activation record of the interpreter, one per CALL depth.
type frame struct {
	code     []byte
	pc       uint64
	stack    []uint256.Int
	mem      Memory
	gas      uint64
	static   bool
	contract common.Address
	caller   common.Address
	value    *big.Int
	input    []byte
	depth    int
	eip      chainspec.EipFlags
}

// Run executes code as msg against oracle and returns the top-level
// result. static disallows SSTORE/LOG/CREATE/SELFDESTRUCT and value
// transfer, matching STATICCALL semantics (EIP-214). eip gates which
// gas-repricing EIPs (EipGasCostSchedule, EipExpCost) are active for
// this call, the way ActiveEip resolves them from a chain spec for the
// block being replayed.
func Run(code []byte, msg CallMessage, oracle StateOracle, static bool, eip chainspec.EipFlags) (*Result, error) {
	j := newJournal()
	f := &frame{
		code:     code,
		stack:    make([]uint256.Int, 0, 16),
		gas:      msg.Gas,
		static:   static,
		contract: addrOrZero(msg.To),
		caller:   msg.From,
		value:    valOrZero(msg.Value),
		input:    msg.Data,
		depth:    0,
		eip:      eip,
	}
	ret, reverted, err := runFrame(f, oracle, j)
	used := msg.Gas - f.gas
	return &Result{ReturnData: ret, GasUsed: used, Reverted: reverted, Journal: j}, err
}

func addrOrZero(a *common.Address) common.Address {
	if a == nil {
		return common.Address{}
	}
	return *a
}
func valOrZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}

// runFrame executes one activation record to completion (STOP/RETURN/
// REVERT/error), returning its return data and whether it reverted.
func runFrame(f *frame, oracle StateOracle, j *Journal) (returnData []byte, reverted bool, err error) {
	jumpdests := analyzeJumpdests(f.code)

	for {
		if f.pc >= uint64(len(f.code)) {
			return nil, false, nil // implicit STOP at end of code
		}
		op := OpCode(f.code[f.pc])
		if err := f.useGas(gasCost(op, f.eip)); err != nil {
			return nil, false, err
		}

		switch {
		case op == STOP:
			return nil, false, nil
		case op == RETURN:
			off, size, err := f.pop2Uint64()
			if err != nil {
				return nil, false, err
			}
			data, err := f.memGet(off, size)
			if err != nil {
				return nil, false, err
			}
			return data, false, nil
		case op == REVERT:
			off, size, err := f.pop2Uint64()
			if err != nil {
				return nil, false, err
			}
			data, err := f.memGet(off, size)
			if err != nil {
				return nil, false, err
			}
			return data, true, nil
		case op == INVALID:
			return nil, false, ErrInvalidOpcode
		case isPush(op):
			n := pushSize(op)
			var v uint256.Int
			end := f.pc + 1 + uint64(n)
			var buf [32]byte
			if end > uint64(len(f.code)) {
				copy(buf[32-n:], f.code[f.pc+1:])
			} else {
				copy(buf[32-n:], f.code[f.pc+1:end])
			}
			v.SetBytes(buf[:])
			if err := f.push(v); err != nil {
				return nil, false, err
			}
			f.pc += uint64(1 + n)
			continue
		case isDup(op):
			if err := f.dup(dupDepth(op)); err != nil {
				return nil, false, err
			}
		case isSwap(op):
			if err := f.swap(swapDepth(op)); err != nil {
				return nil, false, err
			}
		case isLog(op):
			if f.static {
				return nil, false, ErrWriteProtection
			}
			if err := f.execLog(logTopics(op), j); err != nil {
				return nil, false, err
			}
		default:
			cont, err := f.execOne(op, oracle, j, jumpdests)
			if err != nil {
				return nil, false, err
			}
			if !cont {
				f.pc++
				continue
			}
			continue
		}
		f.pc++
	}
}

// analyzeJumpdests returns the set of valid JUMPDEST positions, skipping
// over PUSH immediate bytes so a PUSH's data is never mistaken for an
// opcode.
func analyzeJumpdests(code []byte) map[uint64]bool {
	dests := make(map[uint64]bool)
	for i := 0; i < len(code); {
		op := OpCode(code[i])
		if op == JUMPDEST {
			dests[uint64(i)] = true
		}
		if isPush(op) {
			i += 1 + pushSize(op)
		} else {
			i++
		}
	}
	return dests
}

// useGas deducts cost from the frame's remaining gas, returning
// ErrOutOfGas (and zeroing f.gas) rather than letting it go negative —
// the one thing standing between a malicious or simply gas-exhausted
// contract and the verifying client looping forever over its bytecode.
func (f *frame) useGas(cost uint64) error {
	if f.gas < cost {
		f.gas = 0
		return ErrOutOfGas
	}
	f.gas -= cost
	return nil
}

// chargeMemory bills the quadratic expansion cost for growing memory to
// cover [offset, offset+size), before any byte of it is touched.
func (f *frame) chargeMemory(offset, size uint64) error {
	if size == 0 {
		return nil
	}
	end := offset + size
	if end < offset {
		return ErrOutOfGas // offset+size overflowed uint64
	}
	cur := uint64(f.mem.Len())
	if end <= cur {
		return nil
	}
	return f.useGas(memoryGasCost(end) - memoryGasCost(cur))
}

func (f *frame) memGet(offset, size uint64) ([]byte, error) {
	if err := f.chargeMemory(offset, size); err != nil {
		return nil, err
	}
	return f.mem.Get(offset, size), nil
}

func (f *frame) memSet(offset, size uint64, data []byte) error {
	if err := f.chargeMemory(offset, size); err != nil {
		return err
	}
	f.mem.Set(offset, size, data)
	return nil
}

func (f *frame) memSet32(offset uint64, val []byte) error {
	if err := f.chargeMemory(offset, 32); err != nil {
		return err
	}
	f.mem.Set32(offset, val)
	return nil
}

// forwardGas caps a CALL/CREATE's requested gas at what the frame has
// left, reserves it from the frame, and returns the amount to hand the
// sub-frame.
func (f *frame) forwardGas(requested uint64) uint64 {
	if requested > f.gas {
		requested = f.gas
	}
	f.gas -= requested
	return requested
}

// reclaimGas returns whatever a completed sub-frame didn't spend back to
// its caller.
func (f *frame) reclaimGas(sub *frame) {
	f.gas += sub.gas
}

func (f *frame) push(v uint256.Int) error {
	if len(f.stack) >= MaxStackSize {
		return ErrStackOverflow
	}
	f.stack = append(f.stack, v)
	return nil
}

func (f *frame) pop() (uint256.Int, error) {
	n := len(f.stack)
	if n == 0 {
		return uint256.Int{}, ErrStackUnderflow
	}
	v := f.stack[n-1]
	f.stack = f.stack[:n-1]
	return v, nil
}

func (f *frame) peek(depth int) (*uint256.Int, error) {
	n := len(f.stack)
	if n < depth {
		return nil, ErrStackUnderflow
	}
	return &f.stack[n-depth], nil
}

func (f *frame) dup(depth int) error {
	v, err := f.peek(depth)
	if err != nil {
		return err
	}
	cp := *v
	return f.push(cp)
}

func (f *frame) swap(depth int) error {
	n := len(f.stack)
	if n < depth+1 {
		return ErrStackUnderflow
	}
	f.stack[n-1], f.stack[n-1-depth] = f.stack[n-1-depth], f.stack[n-1]
	return nil
}

func (f *frame) pop2Uint64() (a, b uint64, err error) {
	x, err := f.pop()
	if err != nil {
		return 0, 0, err
	}
	y, err := f.pop()
	if err != nil {
		return 0, 0, err
	}
	return x.Uint64(), y.Uint64(), nil
}

func (f *frame) execLog(topicCount int, j *Journal) error {
	off, size, err := f.pop2Uint64()
	if err != nil {
		return err
	}
	data, err := f.memGet(off, size)
	if err != nil {
		return err
	}
	if err := f.useGas(GasLogData * size); err != nil {
		return err
	}
	topics := make([]common.Hash, topicCount)
	for i := 0; i < topicCount; i++ {
		v, err := f.pop()
		if err != nil {
			return err
		}
		topics[i] = common.Hash(v.Bytes32())
	}
	j.Logs = append(j.Logs, Log{Address: f.contract, Topics: topics, Data: data})
	return nil
}

// execOne executes a single non-PUSH/DUP/SWAP/LOG/terminal opcode and
// returns whether control already advanced pc itself (true for JUMP/JUMPI).
func (f *frame) execOne(op OpCode, oracle StateOracle, j *Journal, dests map[uint64]bool) (jumped bool, err error) {
	switch op {
	case ADD, MUL, SUB, DIV, SDIV, MOD, SMOD, AND, OR, XOR, BYTE, SHL, SHR, SAR,
		LT, GT, SLT, SGT, EQ:
		return false, f.binOp(op)
	case EXP:
		return false, f.execExp()
	case SIGNEXTEND:
		return false, f.execSignExtend()
	case ADDMOD, MULMOD:
		return false, f.triOp(op)
	case ISZERO, NOT:
		return false, f.unOp(op)
	case SHA3:
		return false, f.execSha3()
	case ADDRESS:
		var v uint256.Int
		v.SetBytes(f.contract[:])
		return false, f.push(v)
	case BALANCE:
		return false, f.execExternal1(oracle, func(a common.Address) (*big.Int, error) { return oracle.GetBalance(a) })
	case ORIGIN, CALLER:
		var v uint256.Int
		v.SetBytes(f.caller[:])
		return false, f.push(v)
	case CALLVALUE:
		var v uint256.Int
		v.SetFromBig(f.value)
		return false, f.push(v)
	case CALLDATALOAD:
		return false, f.execCalldataload()
	case CALLDATASIZE:
		return false, f.push(*uint256.NewInt(uint64(len(f.input))))
	case CALLDATACOPY:
		return false, f.execMemCopy(f.input)
	case CODESIZE:
		return false, f.push(*uint256.NewInt(uint64(len(f.code))))
	case CODECOPY:
		return false, f.execMemCopy(f.code)
	case GASPRICE:
		return false, f.push(uint256.Int{})
	case EXTCODESIZE:
		return false, f.execExtCodeSize(oracle)
	case EXTCODECOPY:
		return false, f.execExtCodeCopy(oracle)
	case RETURNDATASIZE:
		return false, f.push(uint256.Int{})
	case RETURNDATACOPY:
		return false, f.execMemCopy(nil)
	case EXTCODEHASH:
		return false, f.execExtCodeHash(oracle)
	case BLOCKHASH:
		return false, f.execBlockHash(oracle)
	case COINBASE:
		bc := oracle.BlockContext()
		var v uint256.Int
		v.SetBytes(bc.Coinbase[:])
		return false, f.push(v)
	case TIMESTAMP:
		return false, f.push(*uint256.NewInt(oracle.BlockContext().Timestamp))
	case NUMBER:
		return false, f.push(*uint256.NewInt(oracle.BlockContext().Number))
	case DIFFICULTY:
		var v uint256.Int
		if d := oracle.BlockContext().Difficulty; d != nil {
			v.SetFromBig(d)
		}
		return false, f.push(v)
	case GASLIMIT:
		return false, f.push(*uint256.NewInt(oracle.BlockContext().GasLimit))
	case CHAINID:
		var v uint256.Int
		if c := oracle.BlockContext().ChainID; c != nil {
			v.SetFromBig(c)
		}
		return false, f.push(v)
	case SELFBALANCE:
		bal, err := oracle.GetBalance(f.contract)
		if err != nil {
			return false, err
		}
		var v uint256.Int
		v.SetFromBig(bal)
		return false, f.push(v)
	case BASEFEE:
		var v uint256.Int
		if bf := oracle.BlockContext().BaseFee; bf != nil {
			v.SetFromBig(bf)
		}
		return false, f.push(v)
	case POP:
		_, err := f.pop()
		return false, err
	case MLOAD:
		off, err := f.pop()
		if err != nil {
			return false, err
		}
		data, err := f.memGet(off.Uint64(), 32)
		if err != nil {
			return false, err
		}
		return false, f.push(*new(uint256.Int).SetBytes(data))
	case MSTORE:
		off, err := f.pop()
		if err != nil {
			return false, err
		}
		val, err := f.pop()
		if err != nil {
			return false, err
		}
		b := val.Bytes32()
		return false, f.memSet32(off.Uint64(), b[:])
	case MSTORE8:
		off, err := f.pop()
		if err != nil {
			return false, err
		}
		val, err := f.pop()
		if err != nil {
			return false, err
		}
		return false, f.memSet(off.Uint64(), 1, []byte{byte(val.Uint64())})
	case SLOAD:
		key, err := f.pop()
		if err != nil {
			return false, err
		}
		h := common.Hash(key.Bytes32())
		sv, err := oracle.GetStorageAt(f.contract, h)
		if err != nil {
			return false, err
		}
		return false, f.push(*new(uint256.Int).SetBytes(sv[:]))
	case SSTORE:
		if f.static {
			return false, ErrWriteProtection
		}
		key, err := f.pop()
		if err != nil {
			return false, err
		}
		val, err := f.pop()
		if err != nil {
			return false, err
		}
		h := common.Hash(key.Bytes32())
		current, err := oracle.GetStorageAt(f.contract, h)
		if err != nil {
			return false, err
		}
		cost := uint64(GasSstoreReset)
		if current == (common.Hash{}) {
			cost = GasSstoreSet
		}
		if err := f.useGas(cost); err != nil {
			return false, err
		}
		if j.StorageWrites[f.contract] == nil {
			j.StorageWrites[f.contract] = make(map[common.Hash]common.Hash)
		}
		vb := val.Bytes32()
		j.StorageWrites[f.contract][h] = common.Hash(vb)
		return false, nil
	case JUMP:
		dest, err := f.pop()
		if err != nil {
			return false, err
		}
		d := dest.Uint64()
		if !dests[d] {
			return false, ErrInvalidJump
		}
		f.pc = d
		return true, nil
	case JUMPI:
		dest, err := f.pop()
		if err != nil {
			return false, err
		}
		cond, err := f.pop()
		if err != nil {
			return false, err
		}
		if cond.IsZero() {
			return false, nil
		}
		d := dest.Uint64()
		if !dests[d] {
			return false, ErrInvalidJump
		}
		f.pc = d
		return true, nil
	case PC:
		return false, f.push(*uint256.NewInt(f.pc))
	case MSIZE:
		return false, f.push(*uint256.NewInt(uint64(f.mem.Len())))
	case GAS:
		return false, f.push(*uint256.NewInt(f.gas))
	case JUMPDEST:
		return false, nil
	case CALL, STATICCALL, DELEGATECALL:
		return false, f.execCall(op, oracle, j)
	case CALLCODE:
		return false, ErrUnsupportedCall
	case CREATE, CREATE2:
		return false, f.execCreate(op, oracle, j)
	case SELFDESTRUCT:
		if f.static {
			return false, ErrWriteProtection
		}
		_, err := f.pop() // beneficiary, unused: no balance transfer persists
		j.Destructed[f.contract] = true
		return false, err
	default:
		return false, fmt.Errorf("%w: 0x%02x", ErrInvalidOpcode, byte(op))
	}
}

func (f *frame) execCalldataload() error {
	off, err := f.pop()
	if err != nil {
		return err
	}
	o := off.Uint64()
	var buf [32]byte
	if o < uint64(len(f.input)) {
		copy(buf[:], f.input[o:])
	}
	return f.push(*new(uint256.Int).SetBytes(buf[:]))
}

func (f *frame) execMemCopy(src []byte) error {
	destOff, err := f.pop()
	if err != nil {
		return err
	}
	srcOff, err := f.pop()
	if err != nil {
		return err
	}
	size, err := f.pop()
	if err != nil {
		return err
	}
	n := size.Uint64()
	so := srcOff.Uint64()
	buf := make([]byte, n)
	if src != nil && so < uint64(len(src)) {
		copy(buf, src[so:])
	}
	return f.memSet(destOff.Uint64(), n, buf)
}

func (f *frame) execExtCodeSize(oracle StateOracle) error {
	addr, err := f.pop()
	if err != nil {
		return err
	}
	size, err := oracle.GetCodeSize(addrFromWord(addr))
	if err != nil {
		return err
	}
	return f.push(*uint256.NewInt(uint64(size)))
}

func (f *frame) execExtCodeCopy(oracle StateOracle) error {
	addr, err := f.pop()
	if err != nil {
		return err
	}
	code, err := oracle.GetCode(addrFromWord(addr))
	if err != nil {
		return err
	}
	return f.execMemCopy(code)
}

func (f *frame) execExtCodeHash(oracle StateOracle) error {
	addr, err := f.pop()
	if err != nil {
		return err
	}
	h, err := oracle.GetCodeHash(addrFromWord(addr))
	if err != nil {
		return err
	}
	return f.push(*new(uint256.Int).SetBytes(h[:]))
}

func (f *frame) execBlockHash(oracle StateOracle) error {
	num, err := f.pop()
	if err != nil {
		return err
	}
	h, err := oracle.GetBlockHash(num.Uint64())
	if err != nil {
		return err
	}
	return f.push(*new(uint256.Int).SetBytes(h[:]))
}

func (f *frame) execExternal1(oracle StateOracle, fn func(common.Address) (*big.Int, error)) error {
	addr, err := f.pop()
	if err != nil {
		return err
	}
	v, err := fn(addrFromWord(addr))
	if err != nil {
		return err
	}
	var out uint256.Int
	out.SetFromBig(v)
	return f.push(out)
}

func addrFromWord(w uint256.Int) common.Address {
	b := w.Bytes32()
	var a common.Address
	copy(a[:], b[12:])
	return a
}

func (f *frame) execSha3() error {
	off, err := f.pop()
	if err != nil {
		return err
	}
	size, err := f.pop()
	if err != nil {
		return err
	}
	data, err := f.memGet(off.Uint64(), size.Uint64())
	if err != nil {
		return err
	}
	if err := f.useGas(GasSha3Word * words(size.Uint64())); err != nil {
		return err
	}
	return f.push(*new(uint256.Int).SetBytes(codec.Keccak256(data)))
}

// execCall handles CALL/STATICCALL/DELEGATECALL by recursing into a fresh
// frame over the target's code, read through the oracle. CALLCODE and
// full gas-forwarding/refund accounting are out of scope: this replays
// just enough of a call graph for eth_call to resolve correctly.
func (f *frame) execCall(op OpCode, oracle StateOracle, j *Journal) error {
	if f.depth+1 >= MaxCallDepth {
		return ErrDepthExceeded
	}
	var gas uint256.Int
	if err := f.popInto(&gas); err != nil {
		return err
	}
	addrW, err := f.pop()
	if err != nil {
		return err
	}
	var value uint256.Int
	if op == CALL {
		if err := f.popInto(&value); err != nil {
			return err
		}
		if f.static && !value.IsZero() {
			return ErrWriteProtection
		}
	}
	inOff, err := f.pop()
	if err != nil {
		return err
	}
	inSize, err := f.pop()
	if err != nil {
		return err
	}
	outOff, err := f.pop()
	if err != nil {
		return err
	}
	outSize, err := f.pop()
	if err != nil {
		return err
	}

	target := addrFromWord(addrW)
	input, err := f.memGet(inOff.Uint64(), inSize.Uint64())
	if err != nil {
		return err
	}
	// outOff/outSize are read (not written) here only to reserve their
	// memory region ahead of the call; the actual write happens once the
	// sub-frame's return data is known, below.
	if err := f.chargeMemory(outOff.Uint64(), outSize.Uint64()); err != nil {
		return err
	}

	if op == CALL && value.Sign() != 0 {
		if err := f.useGas(GasCallValueTransfer); err != nil {
			return err
		}
	}

	if IsPrecompile(target) {
		out, perr := RunPrecompile(target, input)
		if perr != nil {
			return f.push(uint256.Int{})
		}
		f.mem.Set(outOff.Uint64(), minU64(outSize.Uint64(), uint64(len(out))), out)
		return f.push(*uint256.NewInt(1))
	}

	code, err := oracle.GetCode(target)
	if err != nil {
		return err
	}

	caller := f.contract
	contract := target
	callValue := f.value
	if op == DELEGATECALL {
		caller = f.caller
		contract = f.contract
		callValue = f.value
	} else if op == CALL {
		callValue = value.ToBig()
	} else {
		callValue = new(big.Int)
	}

	subGas := f.forwardGas(gas.Uint64())
	if op == CALL && value.Sign() != 0 {
		// the value-transfer stipend is free gas handed to the callee on
		// top of whatever the caller forwarded, matching CALL's rule
		// that a value-bearing call always leaves the callee enough gas
		// to at least emit a log.
		subGas += GasCallStipend
	}

	static := f.static || op == STATICCALL
	sub := &frame{
		code:     code,
		stack:    make([]uint256.Int, 0, 16),
		gas:      subGas,
		static:   static,
		contract: contract,
		caller:   caller,
		value:    callValue,
		input:    input,
		depth:    f.depth + 1,
		eip:      f.eip,
	}
	ret, reverted, err := runFrame(sub, oracle, j)
	f.reclaimGas(sub)
	if err != nil {
		_ = f.push(uint256.Int{}) // failure: success flag 0
		return nil
	}
	if err := f.memSet(outOff.Uint64(), minU64(outSize.Uint64(), uint64(len(ret))), ret); err != nil {
		return err
	}
	success := uint256.NewInt(1)
	if reverted {
		success = uint256.NewInt(0)
	}
	return f.push(*success)
}

func minU64(a, b uint64) uint64 {
	if a < b {
		return a
	}
	return b
}

func (f *frame) popInto(v *uint256.Int) error {
	x, err := f.pop()
	if err != nil {
		return err
	}
	*v = x
	return nil
}

// execCreate handles CREATE/CREATE2: it runs the init code to completion
// to surface any revert, computes the would-be contract address via
// go-ethereum's standard derivation, and pushes it — but the returned
// runtime code is never registered with the oracle, so a later CALL to
// that address will not resolve. Persistent deployment is out of scope
// (see SPEC_FULL.md Non-goals).
func (f *frame) execCreate(op OpCode, oracle StateOracle, j *Journal) error {
	if f.static {
		return ErrWriteProtection
	}
	value, err := f.pop()
	if err != nil {
		return err
	}
	offset, err := f.pop()
	if err != nil {
		return err
	}
	size, err := f.pop()
	if err != nil {
		return err
	}
	var salt uint256.Int
	if op == CREATE2 {
		if err := f.popInto(&salt); err != nil {
			return err
		}
	}
	initCode, err := f.memGet(offset.Uint64(), size.Uint64())
	if err != nil {
		return err
	}

	var addr common.Address
	if op == CREATE2 {
		saltBytes := salt.Bytes32()
		addr = crypto.CreateAddress2(f.contract, saltBytes, crypto.Keccak256(initCode))
	} else {
		nonce, nerr := oracleNonceOrZero(oracle, f.contract)
		if nerr != nil {
			return nerr
		}
		addr = crypto.CreateAddress(f.contract, nonce)
	}

	subGas := f.forwardGas(f.gas)
	sub := &frame{
		code:     initCode,
		stack:    make([]uint256.Int, 0, 16),
		gas:      subGas,
		static:   false,
		contract: addr,
		caller:   f.contract,
		value:    value.ToBig(),
		input:    nil,
		depth:    f.depth + 1,
		eip:      f.eip,
	}
	_, reverted, err := runFrame(sub, oracle, j)
	f.reclaimGas(sub)
	if err != nil || reverted {
		return f.push(uint256.Int{})
	}
	var out uint256.Int
	out.SetBytes(addr[:])
	return f.push(out)
}

// oracleNonceOrZero reads a sender nonce for CREATE's address derivation.
// StateOracle has no direct nonce accessor (nonces are a transaction-layer
// concept the verifier, not the EVM, owns); CREATE's address only matters
// for a constructor path and defaults to nonce 0 when unavailable.
func oracleNonceOrZero(oracle StateOracle, addr common.Address) (uint64, error) {
	type noncer interface {
		GetNonce(common.Address) (uint64, error)
	}
	if n, ok := oracle.(noncer); ok {
		return n.GetNonce(addr)
	}
	return 0, nil
}
