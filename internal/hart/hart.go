// Package hart implements the per-hart architectural state and
// execution loop described in spec.md §3 and §4.4: 32 GPRs and a PC,
// the privilege/CSR state, a TLB, a reservation register for LR/SC,
// and the event flags an external IRQ thread uses to wake the hart.
package hart

import (
	"sync/atomic"

	"github.com/rvemu/core/internal/bus"
	"github.com/rvemu/core/internal/csr"
	"github.com/rvemu/core/internal/isa"
	"github.com/rvemu/core/internal/mmu"
	"github.com/rvemu/core/internal/tlb"
	"github.com/rvemu/core/internal/trap"
)

// Timer is the per-hart monotonic compare register described in
// spec.md §3 ("Timer: monotonic frequency-scaled counter plus compare
// register"). The counter itself is shared across harts (internal/clint.Clock);
// each hart only owns its own compare value and pending predicate.
type Timer struct {
	compare uint64
}

// SetCompare installs a new mtimecmp value (a write from guest code or
// the CLINT MMIO handler on the guest's behalf).
func (t *Timer) SetCompare(v uint64) { atomic.StoreUint64(&t.compare, v) }

// Compare returns the current mtimecmp value.
func (t *Timer) Compare() uint64 { return atomic.LoadUint64(&t.compare) }

// Pending reports whether the timer interrupt condition holds for the
// given shared monotonic time.
func (t *Timer) Pending(now uint64) bool { return now >= atomic.LoadUint64(&t.compare) }

// Hart is one RV32IMAC hardware thread's architectural state.
type Hart struct {
	ID   uint32
	GPR  [32]uint32
	PC   uint32
	Priv csr.Privilege

	CSR   *csr.File
	TLB   *tlb.TLB
	Bus   bus.Bus
	Timer *Timer

	// Now, when set by the owning machine, reads the shared mtime
	// counter (internal/clint.Clock) backing the time/cycle CSRs.
	Now func() uint64

	mstatus uint32
	misa    uint32

	// mie/mip are the single architectural interrupt-enable/pending
	// registers; sie/sip (installed in csrfile.go) are mideleg-masked
	// views over these same two fields, not separate storage.
	ie uint32
	ip uint32

	// Per-privilege trap state, indexed by csr.Privilege; only the
	// Supervisor and Machine slots are ever touched (spec.md §3: "Hypervisor
	// reserved, never entered").
	tvec      [4]uint32
	epc       [4]uint32
	cause     [4]uint32
	tval      [4]uint32
	scratch   [4]uint32
	counteren [4]uint32
	edeleg    [4]uint32
	ideleg    [4]uint32

	satp uint32

	reservedValid bool
	reservedAddr  uint32

	// Event flags (spec.md §4.4, §5). Wake ORs bits into evIntMask and
	// pendingInterrupt folds them into ip. waitEvent is stored by Wake
	// and waitForInterrupt but never loaded, so it does not gate the
	// hart; evTrap is only read and cleared by waitForInterrupt, and
	// evInt is unused.
	waitEvent atomic.Uint32
	evTrap    atomic.Bool
	evInt     atomic.Bool
	evIntMask atomic.Uint32
}

// New returns a freshly created hart: state zeroed, PC at entry,
// running in Machine mode, per spec.md §3's lifecycle ("state zeroed,
// PC set to physical base, machine-mode").
func New(id uint32, entry uint32, b bus.Bus, tlbSize int) *Hart {
	h := &Hart{
		ID:   id,
		PC:   entry,
		Priv: csr.Machine,
		Bus:  b,
		TLB:  tlb.New(tlbSize),
		Timer: &Timer{},
		misa: 1<<30 | misaExt('I') | misaExt('M') | misaExt('A') | misaExt('C') | misaExt('S') | misaExt('U'),
	}
	h.CSR = csr.NewFile()
	h.installCSRs()
	return h
}

func misaExt(letter byte) uint32 {
	return 1 << uint32(letter-'A')
}

// Reg reads GPR n; x0 always reads zero.
func (h *Hart) Reg(n uint32) uint32 {
	if n == 0 {
		return 0
	}
	return h.GPR[n&0x1f]
}

// SetReg writes GPR n; writes to x0 are discarded (spec.md §3 invariant 1).
func (h *Hart) SetReg(n uint32, v uint32) {
	if n == 0 {
		return
	}
	h.GPR[n&0x1f] = v
}

// effectivePrivForData folds mstatus.MPRV/MPP into the privilege used
// for a data access's permission check, per spec.md §4.2 step 3.
func (h *Hart) effectivePrivForData() csr.Privilege {
	if h.mstatus&csr.StatusMPRV != 0 {
		return csr.Privilege((h.mstatus & csr.StatusMPPMask) >> csr.StatusMPPShift)
	}
	return h.Priv
}

func (h *Hart) pagingEnabled() bool {
	return h.satp&(1<<31) != 0
}

func (h *Hart) satpRoot() uint32 {
	return (h.satp & 0x3FFFFF) << 12
}

// translate resolves va for the given access, consulting the TLB first
// and falling back to the SV32 walker (spec.md §4.2).
func (h *Hart) translate(va uint32, access mmu.AccessType) (uint32, *trap.Cause) {
	if !h.pagingEnabled() {
		return va, nil
	}
	priv := h.Priv
	if access != mmu.Fetch {
		priv = h.effectivePrivForData()
	}
	perm := mmu.TLBPerm(access)
	if phys, ok := h.TLB.Lookup(va, perm); ok {
		return phys, nil
	}
	ctx := mmu.Context{
		EffPriv: priv,
		SUM:     h.mstatus&csr.StatusSUM != 0,
		MXR:     h.mstatus&csr.StatusMXR != 0,
	}
	phys, f := mmu.Translate(h.Bus, h.TLB, h.satpRoot(), va, access, ctx)
	if f != nil {
		return 0, &f.Cause
	}
	return phys, nil
}

func alignMask(size int) uint32 { return uint32(size - 1) }

// Load implements isa.Context.
func (h *Hart) Load(addr uint32, size int) (uint32, *trap.Cause) {
	if addr&alignMask(size) != 0 {
		c := trap.CauseLoadMisaligned
		return 0, &c
	}
	phys, c := h.translate(addr, mmu.Load)
	if c != nil {
		return 0, c
	}
	buf := make([]byte, size)
	if !h.Bus.LoadPhys(phys, buf) {
		c := trap.CauseLoadFault
		return 0, &c
	}
	return leLoad(buf), nil
}

// Store implements isa.Context.
func (h *Hart) Store(addr uint32, size int, val uint32) *trap.Cause {
	if addr&alignMask(size) != 0 {
		c := trap.CauseStoreMisaligned
		return &c
	}
	phys, c := h.translate(addr, mmu.Store)
	if c != nil {
		return c
	}
	buf := make([]byte, size)
	leStore(buf, val)
	if !h.Bus.StorePhys(phys, buf) {
		c := trap.CauseStoreFault
		return &c
	}
	// A store by this hart to the reserved word clears its own
	// reservation (spec.md §5).
	if h.reservedValid && phys&^3 == h.reservedAddr&^3 {
		h.reservedValid = false
	}
	return nil
}

func leLoad(b []byte) uint32 {
	var v uint32
	for i := len(b) - 1; i >= 0; i-- {
		v = v<<8 | uint32(b[i])
	}
	return v
}

func leStore(b []byte, v uint32) {
	for i := range b {
		b[i] = byte(v)
		v >>= 8
	}
}

// LoadReserved implements isa.Context (LR.W).
func (h *Hart) LoadReserved(addr uint32) (uint32, *trap.Cause) {
	v, c := h.Load(addr, 4)
	if c != nil {
		return 0, c
	}
	phys, _ := h.translate(addr, mmu.Load)
	h.reservedValid = true
	h.reservedAddr = phys
	return v, nil
}

// StoreConditional implements isa.Context (SC.W). It returns failed=true
// (matching the ISA's "1 on failure" convention) unless this hart still
// holds a valid reservation on addr.
func (h *Hart) StoreConditional(addr uint32, val uint32) (bool, *trap.Cause) {
	phys, c := h.translate(addr, mmu.Store)
	if c != nil {
		return true, c
	}
	if !h.reservedValid || phys&^3 != h.reservedAddr&^3 {
		h.reservedValid = false
		return true, nil
	}
	if c := h.Store(addr, 4, val); c != nil {
		h.reservedValid = false
		return true, c
	}
	h.reservedValid = false
	return false, nil
}

// AMO implements isa.Context: an atomic read-modify-write of a 32-bit
// word. Each hart is single-threaded and owns its own GPRs and TLB, so
// the read-modify-write here only needs to be atomic with respect to
// other harts' accesses to the same RAM word, which PhysBus serializes
// through Go's memory model on the backing byte slice.
func (h *Hart) AMO(addr uint32, op isa.Op, val uint32) (uint32, *trap.Cause) {
	old, c := h.Load(addr, 4)
	if c != nil {
		return 0, c
	}
	var result uint32
	switch op {
	case isa.OpAMOSWAPW:
		result = val
	case isa.OpAMOADDW:
		result = old + val
	case isa.OpAMOXORW:
		result = old ^ val
	case isa.OpAMOANDW:
		result = old & val
	case isa.OpAMOORW:
		result = old | val
	case isa.OpAMOMINW:
		result = minU32(old, val, true)
	case isa.OpAMOMAXW:
		result = maxU32(old, val, true)
	case isa.OpAMOMINUW:
		result = minU32(old, val, false)
	case isa.OpAMOMAXUW:
		result = maxU32(old, val, false)
	}
	if c := h.Store(addr, 4, result); c != nil {
		return 0, c
	}
	return old, nil
}

func minU32(a, b uint32, signed bool) uint32 {
	if signed {
		if int32(a) < int32(b) {
			return a
		}
		return b
	}
	if a < b {
		return a
	}
	return b
}

func maxU32(a, b uint32, signed bool) uint32 {
	if signed {
		if int32(a) > int32(b) {
			return a
		}
		return b
	}
	if a > b {
		return a
	}
	return b
}
