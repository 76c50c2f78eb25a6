// Package bus implements the physical-address space described in
// spec.md §4.2: a guest physical access is served from RAM when it
// falls inside the memory window, otherwise it is routed through the
// MMIO table; a miss in both is a load/store access fault.
package bus

import (
	"github.com/rvemu/core/internal/mmio"
	"github.com/rvemu/core/internal/physmem"
)

// Bus is the physical-address interface shared by the MMU (page-table
// reads) and the hart (loads, stores, and instruction fetch).
type Bus interface {
	LoadPhys(addr uint32, dst []byte) bool
	StorePhys(addr uint32, src []byte) bool
}

// PhysBus is the concrete Bus backing a Machine: one RAM window plus
// one MMIO routing table.
type PhysBus struct {
	RAM  *physmem.Memory
	MMIO *mmio.Table
}

// New returns a PhysBus over the given RAM window and MMIO table.
func New(ram *physmem.Memory, tbl *mmio.Table) *PhysBus {
	return &PhysBus{RAM: ram, MMIO: tbl}
}

// LoadPhys implements Bus.
func (b *PhysBus) LoadPhys(addr uint32, dst []byte) bool {
	if b.RAM.Contains(addr, uint32(len(dst))) {
		src, err := b.RAM.Slice(addr, uint32(len(dst)))
		if err != nil {
			return false
		}
		copy(dst, src)
		return true
	}
	return b.MMIO.Dispatch(addr, dst, mmio.Read)
}

// StorePhys implements Bus.
func (b *PhysBus) StorePhys(addr uint32, src []byte) bool {
	if b.RAM.Contains(addr, uint32(len(src))) {
		dst, err := b.RAM.Slice(addr, uint32(len(src)))
		if err != nil {
			return false
		}
		copy(dst, src)
		return true
	}
	return b.MMIO.Dispatch(addr, src, mmio.Write)
}
