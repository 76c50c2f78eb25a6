package hart

import (
	"github.com/rvemu/core/internal/csr"
	"github.com/rvemu/core/internal/isa"
	"github.com/rvemu/core/internal/mmu"
	"github.com/rvemu/core/internal/trap"
)

// CSRRead implements isa.Context.
func (h *Hart) CSRRead(addr uint16) (uint32, bool) {
	v, err := h.CSR.Read(addr, h.Priv)
	return v, err == nil
}

// CSRWrite implements isa.Context.
func (h *Hart) CSRWrite(addr uint16, v uint32) bool {
	return h.CSR.Write(addr, h.Priv, v) == nil
}

// ECallCause implements isa.Context: the cause code depends on the
// hart's current privilege (spec.md §4.1, ECALL).
func (h *Hart) ECallCause() trap.Cause {
	switch h.Priv {
	case csr.Machine:
		return trap.CauseEcallM
	case csr.Supervisor:
		return trap.CauseEcallS
	default:
		return trap.CauseEcallU
	}
}

// MRET implements isa.Context: restores the pre-trap privilege and
// MIE from mstatus.MPP/MPIE, per the privileged spec's xRET semantics.
// ok is false when MRET is illegal in the hart's current privilege.
func (h *Hart) MRET() (uint32, bool) {
	if h.Priv != csr.Machine {
		return 0, false
	}
	mpp := csr.Privilege((h.mstatus & csr.StatusMPPMask) >> csr.StatusMPPShift)
	mpie := h.mstatus&csr.StatusMPIE != 0

	h.mstatus &^= csr.StatusMIE
	if mpie {
		h.mstatus |= csr.StatusMIE
	}
	h.mstatus |= csr.StatusMPIE
	h.mstatus &^= csr.StatusMPPMask // MPP reset to User (least-privileged) per spec
	if mpp != h.Priv {
		h.TLB.FlushAll()
	}
	h.Priv = mpp
	return h.epc[csr.Machine], true
}

// SRET implements isa.Context; illegal outside Supervisor/Machine mode
// or when mstatus.TSR traps it from Supervisor mode.
func (h *Hart) SRET() (uint32, bool) {
	if h.Priv == csr.User {
		return 0, false
	}
	if h.Priv == csr.Supervisor && h.mstatus&csr.StatusTSR != 0 {
		return 0, false
	}
	spp := csr.User
	if h.mstatus&csr.StatusSPP != 0 {
		spp = csr.Supervisor
	}
	spie := h.mstatus&csr.StatusSPIE != 0

	h.mstatus &^= csr.StatusSIE
	if spie {
		h.mstatus |= csr.StatusSIE
	}
	h.mstatus |= csr.StatusSPIE
	h.mstatus &^= csr.StatusSPP
	if spp != h.Priv {
		h.TLB.FlushAll()
	}
	h.Priv = spp
	return h.epc[csr.Supervisor], true
}

// SFENCEVMA implements isa.Context: flush address translations cached
// from before the fence (spec.md §4.1). This implementation does not
// track per-ASID entries, so any SFENCE.VMA flushes the whole TLB; the
// rs1 and rs2 values are not consulted.
func (h *Hart) SFENCEVMA(rs1, rs2 uint32) {
	h.TLB.FlushAll()
}

// raiseTrap implements spec.md §4.3: determine the target privilege,
// save the trapping context into that privilege's epc/cause/tval,
// flip the xPP/xPIE/xIE bits of mstatus, switch privilege, and return
// the PC to resume at.
func (h *Hart) raiseTrap(cause trap.Cause, isInterrupt bool, pc uint32, tval uint32) uint32 {
	d := trap.Delegation{Exception: h.edeleg, Interrupt: h.ideleg}
	target := trap.TargetPrivilege(h.Priv, cause, isInterrupt, d)

	h.epc[target] = pc
	h.cause[target] = trap.EncodeCauseReg(cause, isInterrupt)
	h.tval[target] = tval

	switch target {
	case csr.Machine:
		mpie := h.mstatus&csr.StatusMIE != 0
		h.mstatus &^= csr.StatusMPPMask
		h.mstatus |= uint32(h.Priv) << csr.StatusMPPShift
		h.mstatus &^= csr.StatusMPIE
		if mpie {
			h.mstatus |= csr.StatusMPIE
		}
		h.mstatus &^= csr.StatusMIE
	case csr.Supervisor:
		spie := h.mstatus&csr.StatusSIE != 0
		h.mstatus &^= csr.StatusSPP
		if h.Priv == csr.Supervisor {
			h.mstatus |= csr.StatusSPP
		}
		h.mstatus &^= csr.StatusSPIE
		if spie {
			h.mstatus |= csr.StatusSPIE
		}
		h.mstatus &^= csr.StatusSIE
	}
	if target != h.Priv {
		h.TLB.FlushAll()
	}
	h.Priv = target
	return trap.VectorPC(h.tvec[target], cause, isInterrupt)
}

// pendingInterrupt folds ev_int_mask into ip (spec.md §4.4: "external
// agents signal an interrupt condition by setting a bit in
// ev_int_mask; the hart ORs it into ip on its next poll") and returns
// the highest-priority enabled, unmasked, un-delegated-away interrupt
// pending for the hart's current privilege, if any.
func (h *Hart) pendingInterrupt() (trap.Cause, bool) {
	h.ip |= h.evIntMask.Swap(0)

	pending := h.ip & h.ie
	if pending == 0 {
		return 0, false
	}
	for _, cause := range trap.InterruptPriority {
		bit := uint32(1) << uint32(cause)
		if pending&bit == 0 {
			continue
		}
		target := trap.TargetPrivilege(h.Priv, cause, true, trap.Delegation{Interrupt: h.ideleg})
		// A target above the current privilege is always taken; a
		// target equal to the current privilege is gated by its xIE
		// bit; a target below the current privilege never fires.
		switch {
		case target > h.Priv:
		case target == csr.Machine && h.mstatus&csr.StatusMIE == 0:
			continue
		case target == csr.Supervisor && h.mstatus&csr.StatusSIE == 0:
			continue
		case target < h.Priv:
			continue
		}
		return cause, true
	}
	return 0, false
}

// reconcileTimer promotes the hart's own timer condition into ip's
// MTIP bit, clearing it again once mtimecmp is advanced past now. The
// hart makes this mtimecmp comparison itself on every poll, so a timer
// interrupt is never delivered unconditionally.
func (h *Hart) reconcileTimer(now uint64) {
	if h.Timer.Pending(now) {
		h.ip |= csr.IntMTI
	} else {
		h.ip &^= csr.IntMTI
	}
}

// Step executes exactly one instruction (spec.md §4.4's inner step),
// fetching at h.PC, decoding, and dispatching through isa.Execute. When
// an interrupt is deliverable it takes the trap instead of executing.
// On WFI it advances past the instruction and calls waitForInterrupt.
func (h *Hart) Step() {
	if h.Now != nil && h.PollInterrupt(h.Now()) {
		return
	}
	word, fetchCause, tval := h.fetch()
	if fetchCause != nil {
		h.PC = h.raiseTrap(*fetchCause, false, h.PC, tval)
		return
	}

	in, err := isa.Decode(word)
	if err != nil {
		h.PC = h.raiseTrap(trap.CauseIllegalInstr, false, h.PC, word)
		return
	}

	res := isa.Execute(h, h.PC, in, word)
	if res.Trap {
		h.PC = h.raiseTrap(res.Cause, false, h.PC, res.Tval)
		return
	}
	if res.Wait {
		h.PC = res.NextPC
		h.waitForInterrupt()
		return
	}
	h.PC = res.NextPC
}

// fetch reads one instruction word at h.PC. It reads the low halfword
// first and reads the second halfword only when the low two bits mark a
// 32-bit encoding, so that a compressed instruction at the very top of
// a page does not require reading past its end.
func (h *Hart) fetch() (uint32, *trap.Cause, uint32) {
	if h.PC&0x1 != 0 {
		c := trap.CauseInstrMisaligned
		return 0, &c, h.PC
	}
	low, c := h.loadInstr(h.PC, 2)
	if c != nil {
		return 0, c, h.PC
	}
	if low&0x3 != 0x3 {
		return low, nil, 0
	}
	high, c := h.loadInstr(h.PC+2, 2)
	if c != nil {
		return 0, c, h.PC
	}
	return low | high<<16, nil, 0
}

// loadInstr performs an instruction-fetch-privileged load: translated
// with Fetch access instead of Load, since X and R permission differ.
func (h *Hart) loadInstr(addr uint32, size int) (uint32, *trap.Cause) {
	phys, c := h.translate(addr, mmu.Fetch)
	if c != nil {
		return 0, c
	}
	buf := make([]byte, size)
	if !h.Bus.LoadPhys(phys, buf) {
		c := trap.CauseInstrFault
		return 0, &c
	}
	return leLoad(buf), nil
}

// waitForInterrupt is called after WFI. It does not block: it clears a
// pending ev_trap, or folds ev_int_mask into ip, and returns at once.
// The hart does not park on wait_event; an interrupt that is pending
// and deliverable is taken by the PollInterrupt at the start of the
// next Step.
func (h *Hart) waitForInterrupt() {
	h.waitEvent.Store(1)
	for {
		if h.evTrap.Load() {
			h.evTrap.Store(false)
			break
		}
		if _, ok := h.pendingInterrupt(); ok {
			break
		}
		h.waitEvent.Store(0)
		return
	}
}

// Wake is called by the IRQ thread to set this hart's interrupt-mask
// bits (spec.md §5); the hart folds them into ip at its next interrupt
// poll.
func (h *Hart) Wake(mask uint32) {
	for {
		old := h.evIntMask.Load()
		if h.evIntMask.CompareAndSwap(old, old|mask) {
			break
		}
	}
	h.waitEvent.Store(1)
}

// PollInterrupt implements the outer loop's "else check ev_int" branch
// of spec.md §4.4: reconcile the timer, fold pending interrupt bits,
// and if one is deliverable, raise it. It reports whether a trap was
// taken. This only ever touches state the calling hart's own goroutine
// owns — reconcileTimer and pendingInterrupt read nothing but this
// hart's own fields plus the shared, atomic mtime counter — so it is
// safe to call from Step on every instruction instead of from another
// thread.
func (h *Hart) PollInterrupt(now uint64) bool {
	h.reconcileTimer(now)
	if cause, ok := h.pendingInterrupt(); ok {
		h.PC = h.raiseTrap(cause, true, h.PC, 0)
		return true
	}
	return false
}
