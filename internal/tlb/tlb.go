// Package tlb implements the direct-mapped translation-lookaside
// buffer described in spec.md §4.2: a cache from virtual page number
// to translated physical page, indexed by the low bits of the VPN.
package tlb

// Permission bits carried alongside a cached translation.
const (
	PermR = 1 << iota
	PermW
	PermX
	PermU
	PermA
	PermD
)

// DefaultSize is the default number of direct-mapped slots (spec.md
// §3: "N a power of two, default 256").
const DefaultSize = 256

type entry struct {
	valid   bool
	vaBase  uint32 // page-aligned virtual base this entry covers
	vaSize  uint32 // page size: 4096 or 4*1024*1024
	phys    uint32 // matching physical page base
	perm    uint8
	asid    uint32
	hasASID bool
}

// TLB is a direct-mapped translation cache with N entries, N a power
// of two.
type TLB struct {
	entries []entry
	mask    uint32
}

// New returns a TLB with n entries; n is rounded up to a power of two.
func New(n int) *TLB {
	sz := 1
	for sz < n {
		sz <<= 1
	}
	return &TLB{entries: make([]entry, sz), mask: uint32(sz - 1)}
}

func (t *TLB) index(va uint32) uint32 {
	return (va >> 12) & t.mask
}

// Lookup returns the physical address for va if a valid entry covers
// it and perm is a subset of the cached permission bits. A miss
// (including a permission mismatch) returns ok == false so the caller
// falls back to the page-table walker, per spec.md §4.2.
func (t *TLB) Lookup(va uint32, perm uint8) (phys uint32, ok bool) {
	e := &t.entries[t.index(va)]
	if !e.valid || va&^(e.vaSize-1) != e.vaBase {
		// A 4 MiB superpage entry sits in the slot of its base address.
		e = &t.entries[t.index(va&^(4*1024*1024-1))]
		if !e.valid || va&^(e.vaSize-1) != e.vaBase {
			return 0, false
		}
	}
	if e.perm&perm != perm {
		return 0, false
	}
	return e.phys | (va & (e.vaSize - 1)), true
}

// Insert records a resolved translation. pageSize is 4096 for a 4 KiB
// leaf or 4*1024*1024 for a 4 MiB superpage. The entry is stored in the
// slot of the page's base address.
func (t *TLB) Insert(va, phys uint32, pageSize uint32, perm uint8) {
	idx := t.index(va &^ (pageSize - 1))
	t.entries[idx] = entry{
		valid:  true,
		vaBase: va &^ (pageSize - 1),
		vaSize: pageSize,
		phys:   phys &^ (pageSize - 1),
		perm:   perm,
	}
}

// FlushAll invalidates every entry. Any write to satp, any
// SFENCE.VMA, or any privilege transition that changes the effective
// ASID must call this (spec.md §3 invariants).
func (t *TLB) FlushAll() {
	for i := range t.entries {
		t.entries[i].valid = false
	}
}

// FlushVA invalidates the entry, if any, covering va, whether it is a
// 4 KiB entry or a 4 MiB superpage entry. SFENCE.VMA does not use it:
// the hart flushes the whole TLB on every fence.
func (t *TLB) FlushVA(va uint32) {
	for _, idx := range [2]uint32{t.index(va), t.index(va &^ (4*1024*1024 - 1))} {
		e := &t.entries[idx]
		if e.valid && va&^(e.vaSize-1) == e.vaBase {
			e.valid = false
		}
	}
}
