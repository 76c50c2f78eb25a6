// Package csr implements the 4096-slot control/status register file
// described in spec.md §4.3. Each slot is a named pair of
// read/write callbacks; the file itself holds no architectural state
// beyond the slot table; the hart that owns a File is always the one
// that supplies the closures bound to its own registers.
package csr

import "errors"

// Privilege is a RISC-V privilege level. The numeric values match the
// 2-bit privilege field encoded in bits [9:8] of a CSR address (RISC-V
// privileged spec, Table 2.1), so a CSR's minimum privilege can be
// read directly off its address.
type Privilege uint8

const (
	User       Privilege = 0
	Supervisor Privilege = 1
	Reserved   Privilege = 2 // Hypervisor; never entered (spec.md §3)
	Machine    Privilege = 3
)

func (p Privilege) String() string {
	switch p {
	case User:
		return "U"
	case Supervisor:
		return "S"
	case Machine:
		return "M"
	default:
		return "?"
	}
}

// ErrIllegal indicates an unimplemented CSR, a write to a read-only
// CSR, or a privilege violation. Callers translate this into an
// ILLEGAL_INSTRUCTION trap.
var ErrIllegal = errors.New("csr: illegal csr access")

// NumCSRs is the size of the indexed CSR address space (12 bits).
const NumCSRs = 4096

// slot holds one CSR's callbacks and display name.
type slot struct {
	name  string
	read  func() uint32
	write func(uint32)
}

// File is the per-hart CSR file.
type File struct {
	slots [NumCSRs]slot
}

// NewFile returns a File with every slot an illegal stub.
func NewFile() *File {
	return &File{}
}

// Install binds a CSR address to read/write callbacks. write may be
// nil for a read-only CSR (address bits [11:10] == 0b11 already mark
// read-only by convention, but Install does not enforce that — a CSR
// with a nil write callback is read-only regardless of its address).
func (f *File) Install(addr uint16, name string, read func() uint32, write func(uint32)) {
	f.slots[addr&(NumCSRs-1)] = slot{name: name, read: read, write: write}
}

// MinPrivilege returns the minimum privilege required to access addr,
// decoded directly from the CSR address per the privileged spec.
func MinPrivilege(addr uint16) Privilege {
	return Privilege((addr >> 8) & 0x3)
}

// ReadOnly reports whether addr's top two bits mark it read-only.
func ReadOnly(addr uint16) bool {
	return (addr>>10)&0x3 == 0x3
}

// Name returns the installed CSR's display name, or "" if unimplemented.
func (f *File) Name(addr uint16) string {
	return f.slots[addr&(NumCSRs-1)].name
}

// Read returns the current value of the CSR at addr, checking that
// cur is privileged enough to access it.
func (f *File) Read(addr uint16, cur Privilege) (uint32, error) {
	s := &f.slots[addr&(NumCSRs-1)]
	if s.read == nil {
		return 0, ErrIllegal
	}
	if cur < MinPrivilege(addr) {
		return 0, ErrIllegal
	}
	return s.read(), nil
}

// Write stores v into the CSR at addr, checking privilege and the
// read-only bits of the address.
func (f *File) Write(addr uint16, cur Privilege, v uint32) error {
	s := &f.slots[addr&(NumCSRs-1)]
	if s.write == nil {
		return ErrIllegal
	}
	if cur < MinPrivilege(addr) {
		return ErrIllegal
	}
	if ReadOnly(addr) {
		return ErrIllegal
	}
	s.write(v)
	return nil
}
