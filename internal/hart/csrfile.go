package hart

import "github.com/rvemu/core/internal/csr"

// installCSRs wires every CSR address this core implements (spec.md
// §3, §6) onto h's architectural fields. Supervisor-level registers
// are restricted views of the Machine-level state: sstatus exposes
// only the bits a Supervisor may see, and sie/sip are mideleg-masked
// views of mie/mip, per the privileged spec.
func (h *Hart) installCSRs() {
	f := h.CSR

	const sstatusMask = csr.StatusUIE | csr.StatusSIE | csr.StatusUPIE | csr.StatusSPIE |
		csr.StatusSPP | csr.StatusSUM | csr.StatusMXR

	const translationMask = csr.StatusMPRV | csr.StatusSUM | csr.StatusMXR

	f.Install(csr.MStatus, "mstatus",
		func() uint32 { return h.mstatus },
		func(v uint32) {
			changed := (h.mstatus ^ v) & translationMask
			h.mstatus = v
			if changed != 0 {
				h.TLB.FlushAll()
			}
		})

	f.Install(csr.SStatus, "sstatus",
		func() uint32 { return h.mstatus & sstatusMask },
		func(v uint32) {
			next := (h.mstatus &^ sstatusMask) | (v & sstatusMask)
			changed := (h.mstatus ^ next) & translationMask
			h.mstatus = next
			if changed != 0 {
				h.TLB.FlushAll()
			}
		})

	f.Install(csr.MISA, "misa",
		func() uint32 { return h.misa },
		func(uint32) {}) // read-only in this core: no runtime extension toggling

	f.Install(csr.MVendorID, "mvendorid", func() uint32 { return 0 }, func(uint32) {})
	f.Install(csr.MArchID, "marchid", func() uint32 { return 0 }, func(uint32) {})
	f.Install(csr.MImpID, "mimpid", func() uint32 { return 0 }, func(uint32) {})
	f.Install(csr.MHartID, "mhartid", func() uint32 { return h.ID }, func(uint32) {})

	f.Install(csr.MEDeleg, "medeleg",
		func() uint32 { return h.edeleg[csr.Machine] },
		func(v uint32) { h.edeleg[csr.Machine] = v })
	f.Install(csr.MIDeleg, "mideleg",
		func() uint32 { return h.ideleg[csr.Machine] },
		func(v uint32) { h.ideleg[csr.Machine] = v })

	f.Install(csr.MIE, "mie",
		func() uint32 { return h.ie },
		func(v uint32) { h.ie = v })
	f.Install(csr.MIP, "mip",
		func() uint32 { return h.ip },
		func(v uint32) { h.ip = v })

	f.Install(csr.SIE, "sie",
		func() uint32 { return h.ie & h.ideleg[csr.Machine] },
		func(v uint32) {
			mask := h.ideleg[csr.Machine]
			h.ie = (h.ie &^ mask) | (v & mask)
		})
	f.Install(csr.SIP, "sip",
		func() uint32 { return h.ip & h.ideleg[csr.Machine] },
		func(v uint32) {
			mask := h.ideleg[csr.Machine] & csr.IntSSI // only SSIP is writable by software
			h.ip = (h.ip &^ mask) | (v & mask)
		})

	f.Install(csr.MTvec, "mtvec",
		func() uint32 { return h.tvec[csr.Machine] },
		func(v uint32) { h.tvec[csr.Machine] = v })
	f.Install(csr.STvec, "stvec",
		func() uint32 { return h.tvec[csr.Supervisor] },
		func(v uint32) { h.tvec[csr.Supervisor] = v })

	f.Install(csr.MEPC, "mepc",
		func() uint32 { return h.epc[csr.Machine] },
		func(v uint32) { h.epc[csr.Machine] = v &^ 0x1 })
	f.Install(csr.SEPC, "sepc",
		func() uint32 { return h.epc[csr.Supervisor] },
		func(v uint32) { h.epc[csr.Supervisor] = v &^ 0x1 })

	f.Install(csr.MCause, "mcause",
		func() uint32 { return h.cause[csr.Machine] },
		func(v uint32) { h.cause[csr.Machine] = v })
	f.Install(csr.SCause, "scause",
		func() uint32 { return h.cause[csr.Supervisor] },
		func(v uint32) { h.cause[csr.Supervisor] = v })

	f.Install(csr.MTval, "mtval",
		func() uint32 { return h.tval[csr.Machine] },
		func(v uint32) { h.tval[csr.Machine] = v })
	f.Install(csr.STval, "stval",
		func() uint32 { return h.tval[csr.Supervisor] },
		func(v uint32) { h.tval[csr.Supervisor] = v })

	f.Install(csr.MScratch, "mscratch",
		func() uint32 { return h.scratch[csr.Machine] },
		func(v uint32) { h.scratch[csr.Machine] = v })
	f.Install(csr.SScratch, "sscratch",
		func() uint32 { return h.scratch[csr.Supervisor] },
		func(v uint32) { h.scratch[csr.Supervisor] = v })

	f.Install(csr.MCounteren, "mcounteren",
		func() uint32 { return h.counteren[csr.Machine] },
		func(v uint32) { h.counteren[csr.Machine] = v })
	f.Install(csr.SCounteren, "scounteren",
		func() uint32 { return h.counteren[csr.Supervisor] },
		func(v uint32) { h.counteren[csr.Supervisor] = v })

	f.Install(csr.SATP, "satp",
		func() uint32 { return h.satp },
		func(v uint32) { h.satp = v; h.TLB.FlushAll() })

	now := func() uint32 {
		if h.Now == nil {
			return 0
		}
		return uint32(h.Now())
	}
	f.Install(csr.Cycle, "cycle", now, func(uint32) {})
	f.Install(csr.Time, "time", now, func(uint32) {})
	f.Install(csr.Instret, "instret", now, func(uint32) {})
}
