package csr

// CSR addresses used by this core. Numbering follows the RISC-V
// privileged specification verbatim (spec.md §6).
const (
	// User / unprivileged read-only counters.
	Cycle   uint16 = 0xC00
	Time    uint16 = 0xC01
	Instret uint16 = 0xC02

	// Supervisor trap setup and handling.
	SStatus    uint16 = 0x100
	SIE        uint16 = 0x104
	STvec      uint16 = 0x105
	SCounteren uint16 = 0x106
	SScratch   uint16 = 0x140
	SEPC       uint16 = 0x141
	SCause     uint16 = 0x142
	STval      uint16 = 0x143
	SIP        uint16 = 0x144
	SATP       uint16 = 0x180

	// Machine information registers.
	MVendorID uint16 = 0xF11
	MArchID   uint16 = 0xF12
	MImpID    uint16 = 0xF13
	MHartID   uint16 = 0xF14

	// Machine trap setup.
	MStatus    uint16 = 0x300
	MISA       uint16 = 0x301
	MEDeleg    uint16 = 0x302
	MIDeleg    uint16 = 0x303
	MIE        uint16 = 0x304
	MTvec      uint16 = 0x305
	MCounteren uint16 = 0x306

	// Machine trap handling.
	MScratch uint16 = 0x340
	MEPC     uint16 = 0x341
	MCause   uint16 = 0x342
	MTval    uint16 = 0x343
	MIP      uint16 = 0x344
)

// mstatus/sstatus bit positions used by the trap and privilege engine.
const (
	StatusUIE  uint32 = 1 << 0
	StatusSIE  uint32 = 1 << 1
	StatusMIE  uint32 = 1 << 3
	StatusUPIE uint32 = 1 << 4
	StatusSPIE uint32 = 1 << 5
	StatusMPIE uint32 = 1 << 7
	StatusSPP  uint32 = 1 << 8 // one bit: U=0, S=1
	StatusMPRV uint32 = 1 << 17
	StatusSUM  uint32 = 1 << 18
	StatusMXR  uint32 = 1 << 19
	StatusTVM  uint32 = 1 << 20
	StatusTW   uint32 = 1 << 21
	StatusTSR  uint32 = 1 << 22

	StatusMPPShift = 11
	StatusMPPMask  = uint32(0x3) << StatusMPPShift
)

// Interrupt cause bits (within ip/ie/mideleg/sideleg), lower 16 used.
const (
	IntSSI uint32 = 1 << 1 // Supervisor software interrupt
	IntMSI uint32 = 1 << 3 // Machine software interrupt
	IntSTI uint32 = 1 << 5 // Supervisor timer interrupt
	IntMTI uint32 = 1 << 7 // Machine timer interrupt
	IntSEI uint32 = 1 << 9 // Supervisor external interrupt
	IntMEI uint32 = 1 << 11
)

// InterruptPriority lists interrupt bits from highest to lowest
// priority, per the privileged spec's fixed delivery order.
var InterruptPriority = []uint32{IntMEI, IntMSI, IntMTI, IntSEI, IntSSI, IntSTI}
