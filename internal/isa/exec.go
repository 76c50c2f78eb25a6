package isa

import "github.com/rvemu/core/internal/trap"

// Context is the hart-supplied execution environment. Execute never
// touches hart state directly; every side effect (register file, PC,
// memory, CSRs, privilege transitions) goes through these methods so
// the decode/execute core stays unit-testable without a real Hart.
type Context interface {
	Reg(n uint32) uint32
	SetReg(n uint32, v uint32) // writes to x0 are a no-op; the implementation discards them

	// Load/Store perform a translated memory access of the given byte
	// width (1, 2, or 4) at addr. A non-nil cause means the access
	// faulted and Execute should hand that cause back as a trap
	// request instead of completing the instruction.
	Load(addr uint32, size int) (uint32, *trap.Cause)
	Store(addr uint32, size int, val uint32) *trap.Cause

	// LoadReserved performs LR.W: it loads the word at addr and sets a
	// reservation on it. StoreConditional performs SC.W: it stores val
	// only if the reservation is still held and reports failed=true
	// otherwise. AMO performs a read-modify-write at addr using op to
	// combine the loaded value with val, and returns the value observed
	// before the modification.
	LoadReserved(addr uint32) (uint32, *trap.Cause)
	StoreConditional(addr uint32, val uint32) (failed bool, cause *trap.Cause)
	AMO(addr uint32, op Op, val uint32) (old uint32, cause *trap.Cause)

	CSRRead(addr uint16) (uint32, bool)
	CSRWrite(addr uint16, v uint32) bool

	ECallCause() trap.Cause
	MRET() (nextPC uint32, ok bool)
	SRET() (nextPC uint32, ok bool)
	SFENCEVMA(rs1, rs2 uint32)
}

// ExecResult reports the outcome of executing one Instruction.
type ExecResult struct {
	NextPC     uint32
	Trap       bool
	Cause      trap.Cause
	Tval       uint32
	Wait       bool // WFI: hart should idle until an interrupt is pending
	FlushFetch bool // branch/jump/privilege-change: caller's fetch cache, if any, is stale
}

func faultResult(cause trap.Cause, tval uint32) ExecResult {
	return ExecResult{Trap: true, Cause: cause, Tval: tval}
}

func illegal(word uint32) ExecResult {
	return faultResult(trap.CauseIllegalInstr, word)
}

// Execute runs one decoded Instruction fetched from pc against ctx,
// returning the architectural effects. word is the raw encoding, used
// only to populate mtval/stval on an illegal-instruction trap.
func Execute(ctx Context, pc uint32, in Instruction, word uint32) ExecResult {
	next := pc + in.Size

	switch in.Op {
	case OpLUI:
		ctx.SetReg(in.Rd, uint32(in.Imm))
	case OpAUIPC:
		ctx.SetReg(in.Rd, pc+uint32(in.Imm))

	case OpJAL:
		target := pc + uint32(in.Imm)
		ctx.SetReg(in.Rd, next)
		return ExecResult{NextPC: target, FlushFetch: true}
	case OpJALR:
		target := (ctx.Reg(in.Rs1) + uint32(in.Imm)) &^ 1
		ctx.SetReg(in.Rd, next)
		return ExecResult{NextPC: target, FlushFetch: true}

	case OpBEQ, OpBNE, OpBLT, OpBGE, OpBLTU, OpBGEU:
		if branchTaken(ctx, in) {
			return ExecResult{NextPC: pc + uint32(in.Imm), FlushFetch: true}
		}

	case OpLB, OpLH, OpLW, OpLBU, OpLHU:
		v, res := execLoad(ctx, in)
		if res != nil {
			return faultResult(*res, ctx.Reg(in.Rs1)+uint32(in.Imm))
		}
		ctx.SetReg(in.Rd, v)
	case OpSB, OpSH, OpSW:
		size := storeSize(in.Op)
		addr := ctx.Reg(in.Rs1) + uint32(in.Imm)
		if c := ctx.Store(addr, size, ctx.Reg(in.Rs2)); c != nil {
			return faultResult(*c, addr)
		}

	case OpADDI:
		ctx.SetReg(in.Rd, ctx.Reg(in.Rs1)+uint32(in.Imm))
	case OpSLTI:
		ctx.SetReg(in.Rd, boolU32(int32(ctx.Reg(in.Rs1)) < in.Imm))
	case OpSLTIU:
		ctx.SetReg(in.Rd, boolU32(ctx.Reg(in.Rs1) < uint32(in.Imm)))
	case OpXORI:
		ctx.SetReg(in.Rd, ctx.Reg(in.Rs1)^uint32(in.Imm))
	case OpORI:
		ctx.SetReg(in.Rd, ctx.Reg(in.Rs1)|uint32(in.Imm))
	case OpANDI:
		ctx.SetReg(in.Rd, ctx.Reg(in.Rs1)&uint32(in.Imm))
	case OpSLLI:
		ctx.SetReg(in.Rd, ctx.Reg(in.Rs1)<<(uint32(in.Imm)&0x1f))
	case OpSRLI:
		ctx.SetReg(in.Rd, ctx.Reg(in.Rs1)>>(uint32(in.Imm)&0x1f))
	case OpSRAI:
		ctx.SetReg(in.Rd, uint32(int32(ctx.Reg(in.Rs1))>>(uint32(in.Imm)&0x1f)))

	case OpADD:
		ctx.SetReg(in.Rd, ctx.Reg(in.Rs1)+ctx.Reg(in.Rs2))
	case OpSUB:
		ctx.SetReg(in.Rd, ctx.Reg(in.Rs1)-ctx.Reg(in.Rs2))
	case OpSLL:
		ctx.SetReg(in.Rd, ctx.Reg(in.Rs1)<<(ctx.Reg(in.Rs2)&0x1f))
	case OpSLT:
		ctx.SetReg(in.Rd, boolU32(int32(ctx.Reg(in.Rs1)) < int32(ctx.Reg(in.Rs2))))
	case OpSLTU:
		ctx.SetReg(in.Rd, boolU32(ctx.Reg(in.Rs1) < ctx.Reg(in.Rs2)))
	case OpXOR:
		ctx.SetReg(in.Rd, ctx.Reg(in.Rs1)^ctx.Reg(in.Rs2))
	case OpSRL:
		ctx.SetReg(in.Rd, ctx.Reg(in.Rs1)>>(ctx.Reg(in.Rs2)&0x1f))
	case OpSRA:
		ctx.SetReg(in.Rd, uint32(int32(ctx.Reg(in.Rs1))>>(ctx.Reg(in.Rs2)&0x1f)))
	case OpOR:
		ctx.SetReg(in.Rd, ctx.Reg(in.Rs1)|ctx.Reg(in.Rs2))
	case OpAND:
		ctx.SetReg(in.Rd, ctx.Reg(in.Rs1)&ctx.Reg(in.Rs2))

	case OpFENCE, OpFENCEI:
		// No caches to synchronize beyond the TLB (handled by SFENCE.VMA).

	case OpECALL:
		return faultResult(ctx.ECallCause(), 0)
	case OpEBREAK:
		return faultResult(trap.CauseBreakpoint, pc)

	case OpCSRRW, OpCSRRS, OpCSRRC, OpCSRRWI, OpCSRRSI, OpCSRRCI:
		return execCSR(ctx, pc, in, word)

	case OpMUL:
		ctx.SetReg(in.Rd, ctx.Reg(in.Rs1)*ctx.Reg(in.Rs2))
	case OpMULH:
		ctx.SetReg(in.Rd, mulh(int32(ctx.Reg(in.Rs1)), int32(ctx.Reg(in.Rs2))))
	case OpMULHSU:
		ctx.SetReg(in.Rd, mulhsu(int32(ctx.Reg(in.Rs1)), ctx.Reg(in.Rs2)))
	case OpMULHU:
		ctx.SetReg(in.Rd, mulhu(ctx.Reg(in.Rs1), ctx.Reg(in.Rs2)))
	case OpDIV:
		ctx.SetReg(in.Rd, divS(int32(ctx.Reg(in.Rs1)), int32(ctx.Reg(in.Rs2))))
	case OpDIVU:
		ctx.SetReg(in.Rd, divU(ctx.Reg(in.Rs1), ctx.Reg(in.Rs2)))
	case OpREM:
		ctx.SetReg(in.Rd, remS(int32(ctx.Reg(in.Rs1)), int32(ctx.Reg(in.Rs2))))
	case OpREMU:
		ctx.SetReg(in.Rd, remU(ctx.Reg(in.Rs1), ctx.Reg(in.Rs2)))

	case OpLRW:
		v, c := ctx.LoadReserved(ctx.Reg(in.Rs1))
		if c != nil {
			return faultResult(*c, ctx.Reg(in.Rs1))
		}
		ctx.SetReg(in.Rd, v)
	case OpSCW:
		failed, c := ctx.StoreConditional(ctx.Reg(in.Rs1), ctx.Reg(in.Rs2))
		if c != nil {
			return faultResult(*c, ctx.Reg(in.Rs1))
		}
		ctx.SetReg(in.Rd, boolU32(failed))
	case OpAMOSWAPW, OpAMOADDW, OpAMOXORW, OpAMOANDW, OpAMOORW,
		OpAMOMINW, OpAMOMAXW, OpAMOMINUW, OpAMOMAXUW:
		old, c := ctx.AMO(ctx.Reg(in.Rs1), in.Op, ctx.Reg(in.Rs2))
		if c != nil {
			return faultResult(*c, ctx.Reg(in.Rs1))
		}
		ctx.SetReg(in.Rd, old)

	case OpMRET:
		target, ok := ctx.MRET()
		if !ok {
			return illegal(word)
		}
		return ExecResult{NextPC: target, FlushFetch: true}
	case OpSRET:
		target, ok := ctx.SRET()
		if !ok {
			return illegal(word)
		}
		return ExecResult{NextPC: target, FlushFetch: true}
	case OpWFI:
		return ExecResult{NextPC: next, Wait: true}
	case OpSFENCEVMA:
		ctx.SFENCEVMA(ctx.Reg(in.Rs1), ctx.Reg(in.Rs2))
		return ExecResult{NextPC: next, FlushFetch: true}

	default:
		return illegal(word)
	}

	return ExecResult{NextPC: next}
}

func boolU32(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}

func branchTaken(ctx Context, in Instruction) bool {
	a, b := ctx.Reg(in.Rs1), ctx.Reg(in.Rs2)
	switch in.Op {
	case OpBEQ:
		return a == b
	case OpBNE:
		return a != b
	case OpBLT:
		return int32(a) < int32(b)
	case OpBGE:
		return int32(a) >= int32(b)
	case OpBLTU:
		return a < b
	case OpBGEU:
		return a >= b
	}
	return false
}

func storeSize(op Op) int {
	switch op {
	case OpSB:
		return 1
	case OpSH:
		return 2
	default:
		return 4
	}
}

func execLoad(ctx Context, in Instruction) (uint32, *trap.Cause) {
	addr := ctx.Reg(in.Rs1) + uint32(in.Imm)
	switch in.Op {
	case OpLB:
		v, c := ctx.Load(addr, 1)
		return uint32(int32(int8(v))), c
	case OpLH:
		v, c := ctx.Load(addr, 2)
		return uint32(int32(int16(v))), c
	case OpLBU:
		return ctx.Load(addr, 1)
	case OpLHU:
		return ctx.Load(addr, 2)
	default: // OpLW
		return ctx.Load(addr, 4)
	}
}

func execCSR(ctx Context, pc uint32, in Instruction, word uint32) ExecResult {
	var src uint32
	immForm := in.Op == OpCSRRWI || in.Op == OpCSRRSI || in.Op == OpCSRRCI
	if immForm {
		src = uint32(in.Imm)
	} else {
		src = ctx.Reg(in.Rs1)
	}

	// CSRRW(I) with rd=x0 skips the read entirely, per the privileged
	// spec, to avoid any read side effect when the old value is unused.
	skipRead := (in.Op == OpCSRRW || in.Op == OpCSRRWI) && in.Rd == 0
	var old uint32
	if !skipRead {
		v, ok := ctx.CSRRead(in.Csr)
		if !ok {
			return illegal(word)
		}
		old = v
	}

	var write bool
	var next uint32
	switch in.Op {
	case OpCSRRW, OpCSRRWI:
		write, next = true, src
	case OpCSRRS, OpCSRRSI:
		write = src != 0
		next = old | src
	case OpCSRRC, OpCSRRCI:
		write = src != 0
		next = old &^ src
	}
	if write {
		if !ctx.CSRWrite(in.Csr, next) {
			return illegal(word)
		}
	}
	ctx.SetReg(in.Rd, old)
	return ExecResult{NextPC: pc + in.Size}
}

func mulh(a, b int32) uint32 {
	return uint32((int64(a) * int64(b)) >> 32)
}

func mulhsu(a int32, b uint32) uint32 {
	return uint32((int64(a) * int64(b)) >> 32)
}

func mulhu(a, b uint32) uint32 {
	return uint32((uint64(a) * uint64(b)) >> 32)
}

func divS(a, b int32) uint32 {
	if b == 0 {
		return 0xFFFFFFFF
	}
	if a == -2147483648 && b == -1 {
		return uint32(a)
	}
	return uint32(a / b)
}

func divU(a, b uint32) uint32 {
	if b == 0 {
		return 0xFFFFFFFF
	}
	return a / b
}

func remS(a, b int32) uint32 {
	if b == 0 {
		return uint32(a)
	}
	if a == -2147483648 && b == -1 {
		return 0
	}
	return uint32(a % b)
}

func remU(a, b uint32) uint32 {
	if b == 0 {
		return a
	}
	return a % b
}
