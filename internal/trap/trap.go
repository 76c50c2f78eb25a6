// Package trap implements the pure, hart-independent logic of the
// privilege/trap engine described in spec.md §4.3: cause numbering,
// delegation target selection, and trap-vector PC computation. The
// register-owning half of trap delivery — saving epc/cause/tval,
// flipping mstatus bits, and requesting a PC jump — lives on the hart
// itself (internal/hart), since it is the only thing that actually
// owns that state; this package holds the part of the engine that can
// be tested without a hart at all.
package trap

import "github.com/rvemu/core/internal/csr"

// Cause is an exception or interrupt cause code, excluding the
// interrupt bit (spec.md §6, "Trap causes follow the privileged
// spec's cause codes verbatim").
type Cause uint32

// Exception causes.
const (
	CauseInstrMisaligned Cause = 0
	CauseInstrFault      Cause = 1
	CauseIllegalInstr    Cause = 2
	CauseBreakpoint      Cause = 3
	CauseLoadMisaligned  Cause = 4
	CauseLoadFault       Cause = 5
	CauseStoreMisaligned Cause = 6
	CauseStoreFault      Cause = 7
	CauseEcallU          Cause = 8
	CauseEcallS          Cause = 9
	CauseEcallM          Cause = 11
	CauseInstrPageFault  Cause = 12
	CauseLoadPageFault   Cause = 13
	CauseStorePageFault  Cause = 15
)

// Interrupt causes. The numeric value doubles as the bit position in
// mip/mie/sip/sie, which is how the privileged spec defines them.
const (
	CauseSSI Cause = 1
	CauseMSI Cause = 3
	CauseSTI Cause = 5
	CauseMTI Cause = 7
	CauseSEI Cause = 9
	CauseMEI Cause = 11
)

// InterruptPriority lists interrupt causes from highest to lowest
// priority (privileged spec §3.1.9).
var InterruptPriority = []Cause{CauseMEI, CauseMSI, CauseMTI, CauseSEI, CauseSSI, CauseSTI}

// EncodeCauseReg packs a cause code and the interrupt bit the way
// mcause/scause store them.
func EncodeCauseReg(cause Cause, isInterrupt bool) uint32 {
	v := uint32(cause)
	if isInterrupt {
		v |= 1 << 31
	}
	return v
}

// Delegation holds the four per-privilege delegation masks named in
// spec.md §3 (edeleg[4], ideleg[4]). Index by csr.Privilege; indices
// Reserved and User are always zero in this implementation, since
// RISC-V without the N extension only delegates down to Supervisor.
type Delegation struct {
	Exception [4]uint32
	Interrupt [4]uint32
}

// TargetPrivilege implements spec.md §4.3 step 1: "Determine target
// privilege p by scanning from Machine down to the current mode; stop
// when edeleg[p] does not delegate cause further." It never returns a
// privilege below cur and never above Machine (testable property 5).
func TargetPrivilege(cur csr.Privilege, cause Cause, isInterrupt bool, d Delegation) csr.Privilege {
	p := csr.Machine
	bit := uint32(1) << (uint32(cause) & 31)
	for p > cur {
		var mask uint32
		if isInterrupt {
			mask = d.Interrupt[p]
		} else {
			mask = d.Exception[p]
		}
		if mask&bit == 0 {
			break
		}
		next := p - 1
		if next == csr.Reserved {
			next--
		}
		p = next
	}
	return p
}

// VectorPC implements spec.md §4.3 "Trap-vector jump": PC is set to
// tvec & ~3, offset by cause<<2 when tvec's low bit requests vectored
// mode and the event being delivered is an interrupt.
func VectorPC(tvec uint32, cause Cause, isInterrupt bool) uint32 {
	base := tvec &^ 3
	if isInterrupt && tvec&1 != 0 {
		base += uint32(cause) << 2
	}
	return base
}
