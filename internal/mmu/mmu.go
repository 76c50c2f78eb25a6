// Package mmu implements the SV32 page-table walker described in
// spec.md §4.2. A walk is only performed on a TLB miss or permission
// mismatch; callers own the TLB and consult it first.
package mmu

import (
	"github.com/rvemu/core/internal/bits"
	"github.com/rvemu/core/internal/bus"
	"github.com/rvemu/core/internal/csr"
	"github.com/rvemu/core/internal/tlb"
	"github.com/rvemu/core/internal/trap"
)

// AccessType distinguishes the three kinds of access the walker
// validates permissions for.
type AccessType int

const (
	Fetch AccessType = iota
	Load
	Store
)

// PTE bit positions (SV32, privileged spec §4.3).
const (
	pteV = 1 << 0
	pteR = 1 << 1
	pteW = 1 << 2
	pteX = 1 << 3
	pteU = 1 << 4
	pteG = 1 << 5
	pteA = 1 << 6
	pteD = 1 << 7
)

// Fault reports a failed translation with the cause the caller should
// raise via the trap engine.
type Fault struct {
	Cause trap.Cause
	Tval  uint32
}

func (f *Fault) Error() string { return "mmu: page fault" }

func faultFor(access AccessType) trap.Cause {
	switch access {
	case Fetch:
		return trap.CauseInstrPageFault
	case Store:
		return trap.CauseStorePageFault
	default:
		return trap.CauseLoadPageFault
	}
}

// Context carries the mstatus-derived bits needed to validate
// permissions. EffPriv is the privilege to check the PTE's U bit
// against — the caller has already folded mstatus.MPRV/MPP in for
// data accesses, per spec.md §4.2 step 3 ("taking mstatus.MPRV/MPP/
// SUM/MXR into account"); instruction fetches are never affected by
// MPRV, so EffPriv for Fetch is always the hart's actual privilege.
type Context struct {
	EffPriv csr.Privilege
	SUM     bool // permit Supervisor access to U-mode pages
	MXR     bool // make executable pages readable
}

func checkPerm(pte uint32, access AccessType, ctx Context) bool {
	isUser := pte&pteU != 0
	switch ctx.EffPriv {
	case csr.User:
		if !isUser {
			return false
		}
	case csr.Supervisor:
		if isUser && (access == Fetch || !ctx.SUM) {
			return false
		}
	}
	switch access {
	case Fetch:
		return pte&pteX != 0
	case Store:
		return pte&pteW != 0 && pte&pteR != 0
	default: // Load
		if pte&pteR != 0 {
			return true
		}
		return ctx.MXR && pte&pteX != 0
	}
}

func isLeaf(pte uint32) bool {
	return pte&(pteR|pteX) != 0
}

func ptePhys(pte uint32) uint32 {
	return (pte >> 10) << 12
}

func readPTE(b bus.Bus, addr uint32) (uint32, bool) {
	var buf [4]byte
	if !b.LoadPhys(addr, buf[:]) {
		return 0, false
	}
	return bits.LoadLE32(buf[:], 0), true
}

func writePTE(b bus.Bus, addr uint32, pte uint32) bool {
	var buf [4]byte
	bits.StoreLE32(buf[:], 0, pte)
	return b.StorePhys(addr, buf[:])
}

// Translate walks the SV32 two-level page table rooted at satpRoot,
// validates permissions and alignment, sets the A/D bits, and inserts
// the resolved translation into tl. Following spec.md §4.2 step 5, A
// is set on any access and D only on a store.
func Translate(b bus.Bus, tl *tlb.TLB, satpRoot uint32, va uint32, access AccessType, ctx Context) (uint32, *Fault) {
	vpn1 := (va >> 22) & 0x3FF
	vpn0 := (va >> 12) & 0x3FF

	pte1Addr := satpRoot + vpn1*4
	pte1, ok := readPTE(b, pte1Addr)
	if !ok {
		return 0, &Fault{Cause: faultFor(access), Tval: va}
	}
	if pte1&pteV == 0 || (pte1&pteW != 0 && pte1&pteR == 0) {
		return 0, &Fault{Cause: faultFor(access), Tval: va}
	}

	if isLeaf(pte1) {
		// Superpage: PPN[0] (bits 19:10 of the PTE) must be zero —
		// spec.md §4.2 step 3, "superpage must be aligned on 4 MiB".
		if pte1&0x000FFC00 != 0 {
			return 0, &Fault{Cause: faultFor(access), Tval: va}
		}
		if !checkPerm(pte1, access, ctx) {
			return 0, &Fault{Cause: faultFor(access), Tval: va}
		}
		pte1 = setAccessedDirty(b, pte1Addr, pte1, access)
		phys := ptePhys(pte1) | (va & 0x003FFFFF)
		tl.Insert(va, phys, 4*1024*1024, permBits(pte1))
		return phys, nil
	}

	pte0Addr := ptePhys(pte1) + vpn0*4
	pte0, ok := readPTE(b, pte0Addr)
	if !ok {
		return 0, &Fault{Cause: faultFor(access), Tval: va}
	}
	if pte0&pteV == 0 || (pte0&pteW != 0 && pte0&pteR == 0) || !isLeaf(pte0) {
		return 0, &Fault{Cause: faultFor(access), Tval: va}
	}
	if !checkPerm(pte0, access, ctx) {
		return 0, &Fault{Cause: faultFor(access), Tval: va}
	}
	pte0 = setAccessedDirty(b, pte0Addr, pte0, access)
	phys := ptePhys(pte0) | (va & 0xFFF)
	tl.Insert(va, phys, 4096, permBits(pte0))
	return phys, nil
}

func setAccessedDirty(b bus.Bus, addr uint32, pte uint32, access AccessType) uint32 {
	updated := pte | pteA
	if access == Store {
		updated |= pteD
	}
	if updated != pte {
		writePTE(b, addr, updated)
	}
	return updated
}

func permBits(pte uint32) uint8 {
	var p uint8
	if pte&pteR != 0 {
		p |= tlb.PermR
	}
	if pte&pteW != 0 {
		p |= tlb.PermW
	}
	if pte&pteX != 0 {
		p |= tlb.PermX
	}
	if pte&pteU != 0 {
		p |= tlb.PermU
	}
	return p
}

// TLBPerm maps an AccessType to the permission bit Translate's caller
// should probe the TLB with before falling back to a walk.
func TLBPerm(access AccessType) uint8 {
	switch access {
	case Fetch:
		return tlb.PermX
	case Store:
		return tlb.PermW
	default:
		return tlb.PermR
	}
}
