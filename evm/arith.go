package evm

import (
	"github.com/holiman/uint256"

	"github.com/example/trustrpc/chainspec"
)

// binOp handles the two-operand arithmetic, comparison, and bitwise
// opcodes. The convention (matching the yellow paper's mu_s[0]/mu_s[1]
// ordering) is: x is the value popped first (the stack top), y is
// popped second. For most opcodes the result is f(x, y); BYTE, SHL,
// SHR, and SAR take their shift/index operand as x and the value being
// shifted as y, so those are computed as f(y, x).
func (f *frame) binOp(op OpCode) error {
	x, err := f.pop()
	if err != nil {
		return err
	}
	y, err := f.pop()
	if err != nil {
		return err
	}
	var z uint256.Int
	switch op {
	case ADD:
		z.Add(&x, &y)
	case MUL:
		z.Mul(&x, &y)
	case SUB:
		z.Sub(&x, &y)
	case DIV:
		z.Div(&x, &y)
	case SDIV:
		z.SDiv(&x, &y)
	case MOD:
		z.Mod(&x, &y)
	case SMOD:
		z.SMod(&x, &y)
	case AND:
		z.And(&x, &y)
	case OR:
		z.Or(&x, &y)
	case XOR:
		z.Xor(&x, &y)
	case LT:
		z.SetBool(x.Lt(&y))
	case GT:
		z.SetBool(x.Gt(&y))
	case SLT:
		z.SetBool(x.Slt(&y))
	case SGT:
		z.SetBool(x.Sgt(&y))
	case EQ:
		z.SetBool(x.Eq(&y))
	case BYTE:
		z = y
		z.Byte(&x)
	case SHL:
		if x.LtUint64(256) {
			z.Lsh(&y, uint(x.Uint64()))
		}
	case SHR:
		if x.LtUint64(256) {
			z.Rsh(&y, uint(x.Uint64()))
		}
	case SAR:
		if x.LtUint64(256) {
			z.SRsh(&y, uint(x.Uint64()))
		} else if y.Sign() < 0 {
			z.SetAllOne()
		}
	default:
		return ErrInvalidOpcode
	}
	return f.push(z)
}

func (f *frame) unOp(op OpCode) error {
	x, err := f.pop()
	if err != nil {
		return err
	}
	var z uint256.Int
	switch op {
	case ISZERO:
		z.SetBool(x.IsZero())
	case NOT:
		z.Not(&x)
	default:
		return ErrInvalidOpcode
	}
	return f.push(z)
}

func (f *frame) triOp(op OpCode) error {
	x, err := f.pop()
	if err != nil {
		return err
	}
	y, err := f.pop()
	if err != nil {
		return err
	}
	m, err := f.pop()
	if err != nil {
		return err
	}
	var z uint256.Int
	switch op {
	case ADDMOD:
		z.AddMod(&x, &y, &m)
	case MULMOD:
		z.MulMod(&x, &y, &m)
	default:
		return ErrInvalidOpcode
	}
	return f.push(z)
}

func (f *frame) execExp() error {
	base, err := f.pop()
	if err != nil {
		return err
	}
	exp, err := f.pop()
	if err != nil {
		return err
	}
	perByte := uint64(GasExpByte)
	if f.eip&chainspec.EipExpCost != 0 {
		perByte = GasExpByteEip160
	}
	if err := f.useGas(perByte * uint64(expByteLen(&exp))); err != nil {
		return err
	}
	var z uint256.Int
	z.Exp(&base, &exp)
	return f.push(z)
}

// expByteLen returns the number of significant bytes of exp, the unit
// EXP's dynamic gas cost is charged per.
func expByteLen(exp *uint256.Int) int {
	return (exp.ToBig().BitLen() + 7) / 8
}

func (f *frame) execSignExtend() error {
	byteNum, err := f.pop()
	if err != nil {
		return err
	}
	val, err := f.pop()
	if err != nil {
		return err
	}
	var z uint256.Int
	z.ExtendSign(&val, &byteNum)
	return f.push(z)
}
