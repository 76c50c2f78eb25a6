// Package isa implements the RV32IMAC instruction set described in
// spec.md §4.1: decoding both 16-bit (compressed) and 32-bit encodings
// into a single canonical Instruction, and executing that Instruction
// against a Hart-supplied Context.
package isa

import "fmt"

// Op identifies a decoded operation in its canonical (always
// 32-bit-equivalent) form. A compressed instruction decodes to the Op
// of the base instruction it is shorthand for.
type Op int

const (
	OpIllegal Op = iota

	OpLUI
	OpAUIPC
	OpJAL
	OpJALR

	OpBEQ
	OpBNE
	OpBLT
	OpBGE
	OpBLTU
	OpBGEU

	OpLB
	OpLH
	OpLW
	OpLBU
	OpLHU
	OpSB
	OpSH
	OpSW

	OpADDI
	OpSLTI
	OpSLTIU
	OpXORI
	OpORI
	OpANDI
	OpSLLI
	OpSRLI
	OpSRAI

	OpADD
	OpSUB
	OpSLL
	OpSLT
	OpSLTU
	OpXOR
	OpSRL
	OpSRA
	OpOR
	OpAND

	OpFENCE
	OpFENCEI
	OpECALL
	OpEBREAK

	OpCSRRW
	OpCSRRS
	OpCSRRC
	OpCSRRWI
	OpCSRRSI
	OpCSRRCI

	OpMUL
	OpMULH
	OpMULHSU
	OpMULHU
	OpDIV
	OpDIVU
	OpREM
	OpREMU

	OpLRW
	OpSCW
	OpAMOSWAPW
	OpAMOADDW
	OpAMOXORW
	OpAMOANDW
	OpAMOORW
	OpAMOMINW
	OpAMOMAXW
	OpAMOMINUW
	OpAMOMAXUW

	OpMRET
	OpSRET
	OpWFI
	OpSFENCEVMA
)

var opNames = map[Op]string{
	OpIllegal: "illegal", OpLUI: "lui", OpAUIPC: "auipc", OpJAL: "jal", OpJALR: "jalr",
	OpBEQ: "beq", OpBNE: "bne", OpBLT: "blt", OpBGE: "bge", OpBLTU: "bltu", OpBGEU: "bgeu",
	OpLB: "lb", OpLH: "lh", OpLW: "lw", OpLBU: "lbu", OpLHU: "lhu",
	OpSB: "sb", OpSH: "sh", OpSW: "sw",
	OpADDI: "addi", OpSLTI: "slti", OpSLTIU: "sltiu", OpXORI: "xori", OpORI: "ori", OpANDI: "andi",
	OpSLLI: "slli", OpSRLI: "srli", OpSRAI: "srai",
	OpADD: "add", OpSUB: "sub", OpSLL: "sll", OpSLT: "slt", OpSLTU: "sltu",
	OpXOR: "xor", OpSRL: "srl", OpSRA: "sra", OpOR: "or", OpAND: "and",
	OpFENCE: "fence", OpFENCEI: "fence.i", OpECALL: "ecall", OpEBREAK: "ebreak",
	OpCSRRW: "csrrw", OpCSRRS: "csrrs", OpCSRRC: "csrrc",
	OpCSRRWI: "csrrwi", OpCSRRSI: "csrrsi", OpCSRRCI: "csrrci",
	OpMUL: "mul", OpMULH: "mulh", OpMULHSU: "mulhsu", OpMULHU: "mulhu",
	OpDIV: "div", OpDIVU: "divu", OpREM: "rem", OpREMU: "remu",
	OpLRW: "lr.w", OpSCW: "sc.w",
	OpAMOSWAPW: "amoswap.w", OpAMOADDW: "amoadd.w", OpAMOXORW: "amoxor.w", OpAMOANDW: "amoand.w",
	OpAMOORW: "amoor.w", OpAMOMINW: "amomin.w", OpAMOMAXW: "amomax.w",
	OpAMOMINUW: "amominu.w", OpAMOMAXUW: "amomaxu.w",
	OpMRET: "mret", OpSRET: "sret", OpWFI: "wfi", OpSFENCEVMA: "sfence.vma",
}

func (o Op) String() string {
	if n, ok := opNames[o]; ok {
		return n
	}
	return fmt.Sprintf("op(%d)", int(o))
}

// Instruction is the canonical decode result for both 16-bit and
// 32-bit encodings; the execution path never looks at encoding width
// again once it has one of these.
type Instruction struct {
	Op   Op
	Rd   uint32
	Rs1  uint32
	Rs2  uint32
	Imm  int32
	Csr  uint16
	Aq   bool // AMO/LR acquire bit
	Rl   bool // AMO/SC release bit
	Size uint32
}

// ErrIllegalInstruction is returned for any bit pattern not covered by
// RV32IMAC or its compressed encodings.
var ErrIllegalInstruction = fmt.Errorf("isa: illegal instruction")

// Decode decodes the instruction whose low 16 bits are at word&0xFFFF.
// When those bits indicate a 16-bit (compressed) encoding, only the
// low half is consumed and Size is 2; otherwise the full 32 bits of
// word are decoded and Size is 4. The hart fetches the second halfword
// only when the first one marks a 32-bit encoding.
func Decode(word uint32) (Instruction, error) {
	if word&0x3 != 0x3 {
		return DecodeCompressed(uint16(word))
	}
	return Decode32(word)
}
