package isa

import (
	"testing"

	"github.com/rvemu/core/internal/trap"
)

type fakeCtx struct {
	regs  [32]uint32
	mem   map[uint32]uint32
	csrs  map[uint16]uint32
	mret  uint32
	sret  uint32
	ecall trap.Cause
	fenced bool
}

func newFakeCtx() *fakeCtx {
	return &fakeCtx{mem: map[uint32]uint32{}, csrs: map[uint16]uint32{}}
}

func (c *fakeCtx) Reg(n uint32) uint32 { return c.regs[n] }
func (c *fakeCtx) SetReg(n uint32, v uint32) {
	if n != 0 {
		c.regs[n] = v
	}
}
func (c *fakeCtx) Load(addr uint32, size int) (uint32, *trap.Cause) {
	mask := uint32(1)<<(8*uint(size)) - 1
	if size == 4 {
		mask = 0xFFFFFFFF
	}
	return c.mem[addr] & mask, nil
}
func (c *fakeCtx) Store(addr uint32, size int, val uint32) *trap.Cause {
	c.mem[addr] = val
	return nil
}
func (c *fakeCtx) LoadReserved(addr uint32) (uint32, *trap.Cause) { return c.mem[addr], nil }
func (c *fakeCtx) StoreConditional(addr uint32, val uint32) (bool, *trap.Cause) {
	c.mem[addr] = val
	return false, nil
}
func (c *fakeCtx) AMO(addr uint32, op Op, val uint32) (uint32, *trap.Cause) {
	old := c.mem[addr]
	c.mem[addr] = old + val
	return old, nil
}
func (c *fakeCtx) CSRRead(addr uint16) (uint32, bool) {
	v, ok := c.csrs[addr]
	return v, ok
}
func (c *fakeCtx) CSRWrite(addr uint16, v uint32) bool {
	if _, ok := c.csrs[addr]; !ok {
		return false
	}
	c.csrs[addr] = v
	return true
}
func (c *fakeCtx) ECallCause() trap.Cause                 { return c.ecall }
func (c *fakeCtx) MRET() (uint32, bool)                   { return c.mret, c.mret != 0 }
func (c *fakeCtx) SRET() (uint32, bool)                   { return c.sret, c.sret != 0 }
func (c *fakeCtx) SFENCEVMA(rs1, rs2 uint32)              { c.fenced = true }

func TestExecuteADDIAndBranch(t *testing.T) {
	ctx := newFakeCtx()
	ctx.regs[2] = 10
	in := Instruction{Op: OpADDI, Rd: 1, Rs1: 2, Imm: 5, Size: 4}
	res := Execute(ctx, 0x1000, in, 0)
	if ctx.regs[1] != 15 || res.NextPC != 0x1004 {
		t.Errorf("got regs[1]=%d nextPC=%#x", ctx.regs[1], res.NextPC)
	}
}

func TestExecuteBranchTaken(t *testing.T) {
	ctx := newFakeCtx()
	ctx.regs[1], ctx.regs[2] = 7, 7
	in := Instruction{Op: OpBEQ, Rs1: 1, Rs2: 2, Imm: 16, Size: 4}
	res := Execute(ctx, 0x2000, in, 0)
	if !res.FlushFetch || res.NextPC != 0x2010 {
		t.Errorf("got: %+v", res)
	}
}

func TestExecuteLoadStore(t *testing.T) {
	ctx := newFakeCtx()
	ctx.regs[1] = 0x8000
	store := Instruction{Op: OpSW, Rs1: 1, Rs2: 2, Imm: 0, Size: 4}
	ctx.regs[2] = 0xDEADBEEF
	Execute(ctx, 0, store, 0)
	load := Instruction{Op: OpLW, Rd: 3, Rs1: 1, Imm: 0, Size: 4}
	Execute(ctx, 0, load, 0)
	if ctx.regs[3] != 0xDEADBEEF {
		t.Errorf("got: %#x", ctx.regs[3])
	}
}

func TestExecuteDivByZero(t *testing.T) {
	ctx := newFakeCtx()
	ctx.regs[1] = 5
	ctx.regs[2] = 0
	in := Instruction{Op: OpDIV, Rd: 3, Rs1: 1, Rs2: 2, Size: 4}
	Execute(ctx, 0, in, 0)
	if ctx.regs[3] != 0xFFFFFFFF {
		t.Errorf("expected all-ones on division by zero, got %#x", ctx.regs[3])
	}
}

func TestExecuteMRETIllegalWhenDenied(t *testing.T) {
	ctx := newFakeCtx()
	in := Instruction{Op: OpMRET, Size: 4}
	res := Execute(ctx, 0x100, in, 0xDEAD)
	if !res.Trap || res.Cause != trap.CauseIllegalInstr {
		t.Errorf("expected illegal instruction trap, got %+v", res)
	}
}

func TestExecuteMRET(t *testing.T) {
	ctx := newFakeCtx()
	ctx.mret = 0x4000
	in := Instruction{Op: OpMRET, Size: 4}
	res := Execute(ctx, 0x100, in, 0)
	if res.Trap || res.NextPC != 0x4000 || !res.FlushFetch {
		t.Errorf("got: %+v", res)
	}
}

func TestExecuteWFI(t *testing.T) {
	ctx := newFakeCtx()
	in := Instruction{Op: OpWFI, Size: 4}
	res := Execute(ctx, 0x100, in, 0)
	if !res.Wait || res.NextPC != 0x104 {
		t.Errorf("got: %+v", res)
	}
}

func TestExecuteCSR(t *testing.T) {
	ctx := newFakeCtx()
	ctx.csrs[0x300] = 0x8
	in := Instruction{Op: OpCSRRS, Rd: 1, Rs1: 2, Csr: 0x300, Size: 4}
	ctx.regs[2] = 0x1
	res := Execute(ctx, 0, in, 0)
	if res.Trap {
		t.Fatalf("unexpected trap: %+v", res)
	}
	if ctx.regs[1] != 0x8 || ctx.csrs[0x300] != 0x9 {
		t.Errorf("got rd=%#x csr=%#x", ctx.regs[1], ctx.csrs[0x300])
	}
}

func TestExecuteCSRIllegal(t *testing.T) {
	ctx := newFakeCtx()
	in := Instruction{Op: OpCSRRW, Rd: 1, Rs1: 2, Csr: 0x999, Size: 4}
	res := Execute(ctx, 0, in, 0xAB)
	if !res.Trap || res.Cause != trap.CauseIllegalInstr {
		t.Errorf("expected illegal instruction trap for unimplemented csr, got %+v", res)
	}
}

func TestExecuteEcall(t *testing.T) {
	ctx := newFakeCtx()
	ctx.ecall = trap.CauseEcallU
	in := Instruction{Op: OpECALL, Size: 4}
	res := Execute(ctx, 0x10, in, 0)
	if !res.Trap || res.Cause != trap.CauseEcallU {
		t.Errorf("got: %+v", res)
	}
}
