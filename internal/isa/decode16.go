package isa

import "github.com/rvemu/core/internal/bits"

func bit(w uint32, n uint) uint32 {
	return (w >> n) & 1
}

func field(w uint32, lo, hi uint) uint32 {
	return (w >> lo) & ((1 << (hi - lo + 1)) - 1)
}

// creg expands a 3-bit compressed register field (x8-x15) to its full
// 5-bit register number.
func creg(w uint32, shift uint) uint32 {
	return 8 + (w>>shift)&0x7
}

func immCJ(w uint32) int32 {
	v := bit(w, 12)<<11 | bit(w, 11)<<4 | bit(w, 10)<<9 | bit(w, 9)<<8 |
		bit(w, 8)<<10 | bit(w, 7)<<6 | bit(w, 6)<<7 | bit(w, 5)<<3 |
		bit(w, 4)<<2 | bit(w, 3)<<1 | bit(w, 2)<<5
	return int32(bits.SignExtend(v, 12))
}

func immCB(w uint32) int32 {
	v := bit(w, 12)<<8 | bit(w, 11)<<4 | bit(w, 10)<<3 | bit(w, 6)<<7 |
		bit(w, 5)<<6 | bit(w, 4)<<2 | bit(w, 3)<<1 | bit(w, 2)<<5
	return int32(bits.SignExtend(v, 9))
}

// DecodeCompressed decodes a 16-bit compressed instruction into its
// canonical, always-32-bit-equivalent Instruction form (spec.md §4.1:
// "the compressed extension expands into the equivalent base
// instruction before execution").
func DecodeCompressed(h uint16) (Instruction, error) {
	w := uint32(h)
	quadrant := w & 0x3
	funct3 := (w >> 13) & 0x7
	in := Instruction{Size: 2}

	if w == 0 {
		return Instruction{}, ErrIllegalInstruction
	}

	switch quadrant {
	case 0:
		rdp := creg(w, 2)
		rs1p := creg(w, 7)
		switch funct3 {
		case 0: // C.ADDI4SPN
			imm := int32(field(w, 7, 10)<<6 | field(w, 11, 12)<<4 | bit(w, 5)<<3 | bit(w, 6)<<2)
			if imm == 0 {
				return Instruction{}, ErrIllegalInstruction
			}
			in.Op, in.Rd, in.Rs1, in.Imm = OpADDI, rdp, 2, imm
		case 2: // C.LW
			imm := int32(field(w, 10, 12)<<3 | bit(w, 6)<<2 | bit(w, 5)<<6)
			in.Op, in.Rd, in.Rs1, in.Imm = OpLW, rdp, rs1p, imm
		case 6: // C.SW
			imm := int32(field(w, 10, 12)<<3 | bit(w, 6)<<2 | bit(w, 5)<<6)
			in.Op, in.Rs1, in.Rs2, in.Imm = OpSW, rs1p, rdp, imm
		default:
			return Instruction{}, ErrIllegalInstruction
		}

	case 1:
		rd := field(w, 7, 11)
		switch funct3 {
		case 0: // C.ADDI / C.NOP
			imm := int32(bits.SignExtend(bit(w, 12)<<5|field(w, 2, 6), 6))
			in.Op, in.Rd, in.Rs1, in.Imm = OpADDI, rd, rd, imm
		case 1: // C.JAL (RV32)
			in.Op, in.Rd, in.Imm = OpJAL, 1, immCJ(w)
		case 2: // C.LI
			imm := int32(bits.SignExtend(bit(w, 12)<<5|field(w, 2, 6), 6))
			in.Op, in.Rd, in.Rs1, in.Imm = OpADDI, rd, 0, imm
		case 3:
			if rd == 2 { // C.ADDI16SP
				v := bit(w, 12)<<9 | bit(w, 6)<<4 | bit(w, 5)<<6 | bit(w, 4)<<8 | bit(w, 3)<<7 | bit(w, 2)<<5
				imm := int32(bits.SignExtend(v, 10))
				if imm == 0 {
					return Instruction{}, ErrIllegalInstruction
				}
				in.Op, in.Rd, in.Rs1, in.Imm = OpADDI, 2, 2, imm
			} else { // C.LUI
				if rd == 0 {
					return Instruction{}, ErrIllegalInstruction
				}
				raw := bit(w, 12)<<5 | field(w, 2, 6)
				if raw == 0 {
					return Instruction{}, ErrIllegalInstruction
				}
				imm := int32(bits.SignExtend(raw, 6)) << 12
				in.Op, in.Rd, in.Imm = OpLUI, rd, imm
			}
		case 4:
			rdp := creg(w, 7)
			switch field(w, 10, 11) {
			case 0: // C.SRLI
				in.Op, in.Rd, in.Rs1, in.Imm = OpSRLI, rdp, rdp, int32(field(w, 2, 6))
			case 1: // C.SRAI
				in.Op, in.Rd, in.Rs1, in.Imm = OpSRAI, rdp, rdp, int32(field(w, 2, 6))
			case 2: // C.ANDI
				imm := int32(bits.SignExtend(bit(w, 12)<<5|field(w, 2, 6), 6))
				in.Op, in.Rd, in.Rs1, in.Imm = OpANDI, rdp, rdp, imm
			case 3:
				rs2p := creg(w, 2)
				if bit(w, 12) != 0 {
					return Instruction{}, ErrIllegalInstruction // *W variants, RV64-only
				}
				switch field(w, 5, 6) {
				case 0:
					in.Op = OpSUB
				case 1:
					in.Op = OpXOR
				case 2:
					in.Op = OpOR
				case 3:
					in.Op = OpAND
				}
				in.Rd, in.Rs1, in.Rs2 = rdp, rdp, rs2p
			}
		case 5: // C.J
			in.Op, in.Rd, in.Imm = OpJAL, 0, immCJ(w)
		case 6: // C.BEQZ
			in.Op, in.Rs1, in.Rs2, in.Imm = OpBEQ, creg(w, 7), 0, immCB(w)
		case 7: // C.BNEZ
			in.Op, in.Rs1, in.Rs2, in.Imm = OpBNE, creg(w, 7), 0, immCB(w)
		}

	case 2:
		rd := field(w, 7, 11)
		switch funct3 {
		case 0: // C.SLLI
			if rd == 0 || bit(w, 12) != 0 {
				return Instruction{}, ErrIllegalInstruction
			}
			in.Op, in.Rd, in.Rs1, in.Imm = OpSLLI, rd, rd, int32(field(w, 2, 6))
		case 2: // C.LWSP
			if rd == 0 {
				return Instruction{}, ErrIllegalInstruction
			}
			imm := int32(bit(w, 12)<<5 | field(w, 4, 6)<<2 | field(w, 2, 3)<<6)
			in.Op, in.Rd, in.Rs1, in.Imm = OpLW, rd, 2, imm
		case 4:
			rs2 := field(w, 2, 6)
			switch {
			case bit(w, 12) == 0 && rs2 == 0: // C.JR
				if rd == 0 {
					return Instruction{}, ErrIllegalInstruction
				}
				in.Op, in.Rd, in.Rs1, in.Imm = OpJALR, 0, rd, 0
			case bit(w, 12) == 0: // C.MV
				in.Op, in.Rd, in.Rs1, in.Rs2 = OpADD, rd, 0, rs2
			case rd == 0 && rs2 == 0: // C.EBREAK
				in.Op = OpEBREAK
			case rs2 == 0: // C.JALR
				in.Op, in.Rd, in.Rs1, in.Imm = OpJALR, 1, rd, 0
			default: // C.ADD
				in.Op, in.Rd, in.Rs1, in.Rs2 = OpADD, rd, rd, rs2
			}
		case 6: // C.SWSP
			imm := int32(field(w, 9, 12)<<2 | field(w, 7, 8)<<6)
			in.Op, in.Rs1, in.Rs2, in.Imm = OpSW, 2, field(w, 2, 6), imm
		default:
			return Instruction{}, ErrIllegalInstruction
		}

	default:
		return Instruction{}, ErrIllegalInstruction
	}

	if in.Op == OpIllegal {
		return Instruction{}, ErrIllegalInstruction
	}
	return in, nil
}
