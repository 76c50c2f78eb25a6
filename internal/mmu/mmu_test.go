package mmu

import (
	"testing"

	"github.com/rvemu/core/internal/bits"
	"github.com/rvemu/core/internal/bus"
	"github.com/rvemu/core/internal/csr"
	"github.com/rvemu/core/internal/mmio"
	"github.com/rvemu/core/internal/physmem"
	"github.com/rvemu/core/internal/tlb"
)

func newTestBus(t *testing.T) *bus.PhysBus {
	t.Helper()
	ram, err := physmem.New(0, 0x4000)
	if err != nil {
		t.Fatalf("physmem.New: %v", err)
	}
	t.Cleanup(func() { ram.Close() })
	return bus.New(ram, mmio.NewTable())
}

func putPTE(t *testing.T, b *bus.PhysBus, addr, pte uint32) {
	t.Helper()
	var buf [4]byte
	bits.StoreLE32(buf[:], 0, pte)
	if !b.StorePhys(addr, buf[:]) {
		t.Fatalf("StorePhys(%#x) failed", addr)
	}
}

func TestTranslateTwoLevelLeaf(t *testing.T) {
	b := newTestBus(t)
	// satp root at phys 0; va's vpn1=1, vpn0=1.
	const satpRoot = 0
	const l0Table = 0x1000
	const targetPage = 0x2000
	va := uint32(0x0040_1000)

	putPTE(t, b, satpRoot+1*4, (uint32(l0Table>>12)<<10)|pteV)
	putPTE(t, b, l0Table+1*4, (uint32(targetPage>>12)<<10)|pteV|pteR|pteW|pteX|pteU)

	tl := tlb.New(16)
	phys, f := Translate(b, tl, satpRoot, va, Load, Context{EffPriv: csr.User})
	if f != nil {
		t.Fatalf("unexpected fault: %+v", f)
	}
	if phys != targetPage {
		t.Errorf("got: %#x expected: %#x", phys, targetPage)
	}
	if cached, ok := tl.Lookup(va, tlb.PermR); !ok || cached != phys {
		t.Errorf("expected translation cached in TLB, got %#x ok=%v", cached, ok)
	}
}

func TestTranslateSuperpage(t *testing.T) {
	b := newTestBus(t)
	const satpRoot = 0x3000
	const superPhys = 0x0040_0000 // 4 MiB aligned
	va := uint32(0x0080_1234)     // vpn1 = 2

	putPTE(t, b, satpRoot+2*4, (uint32(superPhys>>12)<<10)|pteV|pteR|pteW|pteX|pteU)

	tl := tlb.New(16)
	phys, f := Translate(b, tl, satpRoot, va, Load, Context{EffPriv: csr.Supervisor})
	if f != nil {
		t.Fatalf("unexpected fault: %+v", f)
	}
	want := superPhys | (va & 0x003F_FFFF)
	if phys != want {
		t.Errorf("got: %#x expected: %#x", phys, want)
	}
}

func TestTranslateMisalignedSuperpageFaults(t *testing.T) {
	b := newTestBus(t)
	const satpRoot = 0x3000
	va := uint32(0x0080_0000)
	// PPN[0] nonzero: not 4 MiB aligned.
	putPTE(t, b, satpRoot+2*4, (uint32(1)<<10)|pteV|pteR|pteW|pteX)

	tl := tlb.New(16)
	_, f := Translate(b, tl, satpRoot, va, Load, Context{EffPriv: csr.Supervisor})
	if f == nil {
		t.Fatalf("expected fault on misaligned superpage")
	}
}

func TestTranslateUserBitEnforced(t *testing.T) {
	b := newTestBus(t)
	const satpRoot = 0
	const l0Table = 0x1000
	const targetPage = 0x2000
	va := uint32(0x0040_1000)

	putPTE(t, b, satpRoot+1*4, (uint32(l0Table>>12)<<10)|pteV)
	// Supervisor-only leaf: no U bit.
	putPTE(t, b, l0Table+1*4, (uint32(targetPage>>12)<<10)|pteV|pteR|pteW|pteX)

	tl := tlb.New(16)
	_, f := Translate(b, tl, satpRoot, va, Load, Context{EffPriv: csr.User})
	if f == nil {
		t.Fatalf("expected fault: user access to supervisor-only page")
	}
	if f.Cause != faultFor(Load) {
		t.Errorf("got cause %v expected %v", f.Cause, faultFor(Load))
	}
}

func TestTranslateSumAllowsSupervisorAccessToUserPage(t *testing.T) {
	b := newTestBus(t)
	const satpRoot = 0
	const l0Table = 0x1000
	const targetPage = 0x2000
	va := uint32(0x0040_1000)

	putPTE(t, b, satpRoot+1*4, (uint32(l0Table>>12)<<10)|pteV)
	putPTE(t, b, l0Table+1*4, (uint32(targetPage>>12)<<10)|pteV|pteR|pteW|pteU)

	tl := tlb.New(16)
	if _, f := Translate(b, tl, satpRoot, va, Load, Context{EffPriv: csr.Supervisor, SUM: false}); f == nil {
		t.Fatalf("expected fault without SUM")
	}
	if _, f := Translate(b, tl, satpRoot, va, Load, Context{EffPriv: csr.Supervisor, SUM: true}); f != nil {
		t.Errorf("unexpected fault with SUM set: %+v", f)
	}
}

func TestTranslateMxrAllowsExecuteOnlyRead(t *testing.T) {
	b := newTestBus(t)
	const satpRoot = 0
	const l0Table = 0x1000
	const targetPage = 0x2000
	va := uint32(0x0040_1000)

	putPTE(t, b, satpRoot+1*4, (uint32(l0Table>>12)<<10)|pteV)
	putPTE(t, b, l0Table+1*4, (uint32(targetPage>>12)<<10)|pteV|pteX|pteU)

	tl := tlb.New(16)
	if _, f := Translate(b, tl, satpRoot, va, Load, Context{EffPriv: csr.User, MXR: false}); f == nil {
		t.Fatalf("expected fault without MXR on execute-only page")
	}
	if _, f := Translate(b, tl, satpRoot, va, Load, Context{EffPriv: csr.User, MXR: true}); f != nil {
		t.Errorf("unexpected fault with MXR set: %+v", f)
	}
}

func TestTranslateInvalidPTEFaults(t *testing.T) {
	b := newTestBus(t)
	tl := tlb.New(16)
	// satpRoot points at zeroed memory: PTE at vpn1 slot is all-zero (V=0).
	_, f := Translate(b, tl, 0, 0x0040_1000, Load, Context{EffPriv: csr.User})
	if f == nil {
		t.Fatalf("expected fault on invalid root PTE")
	}
}

func TestTranslateSetsAccessedAndDirty(t *testing.T) {
	b := newTestBus(t)
	const satpRoot = 0
	const l0Table = 0x1000
	const targetPage = 0x2000
	va := uint32(0x0040_1000)

	putPTE(t, b, satpRoot+1*4, (uint32(l0Table>>12)<<10)|pteV)
	leafAddr := uint32(l0Table + 1*4)
	putPTE(t, b, leafAddr, (uint32(targetPage>>12)<<10)|pteV|pteR|pteW|pteX|pteU)

	tl := tlb.New(16)
	if _, f := Translate(b, tl, satpRoot, va, Store, Context{EffPriv: csr.User}); f != nil {
		t.Fatalf("unexpected fault: %+v", f)
	}
	pte, ok := readPTE(b, leafAddr)
	if !ok {
		t.Fatalf("readPTE failed")
	}
	if pte&pteA == 0 || pte&pteD == 0 {
		t.Errorf("expected A and D bits set after store, got pte=%#x", pte)
	}
}
