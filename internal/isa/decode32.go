package isa

import "github.com/rvemu/core/internal/bits"

// 32-bit opcode field values (word bits [6:0]).
const (
	opLUI      = 0x37
	opAUIPC    = 0x17
	opJAL      = 0x6F
	opJALR     = 0x67
	opBranch   = 0x63
	opLoad     = 0x03
	opStore    = 0x23
	opImm      = 0x13
	opReg      = 0x33
	opFence    = 0x0F
	opSystem   = 0x73
	opAMO      = 0x2F
)

func immI(word uint32) int32 {
	return int32(bits.SignExtend(word>>20, 12))
}

func immS(word uint32) int32 {
	v := (word>>25)<<5 | (word>>7)&0x1f
	return int32(bits.SignExtend(v, 12))
}

func immB(word uint32) int32 {
	v := (word>>31)<<12 | ((word>>7)&1)<<11 | ((word>>25)&0x3f)<<5 | ((word>>8)&0xf)<<1
	return int32(bits.SignExtend(v, 13))
}

func immU(word uint32) int32 {
	return int32(word & 0xFFFFF000)
}

func immJ(word uint32) int32 {
	v := (word>>31)<<20 | ((word>>12)&0xff)<<12 | ((word>>20)&1)<<11 | ((word>>21)&0x3ff)<<1
	return int32(bits.SignExtend(v, 21))
}

// Decode32 decodes a full 32-bit RV32IMAC instruction word.
func Decode32(word uint32) (Instruction, error) {
	opcode := word & 0x7f
	rd := (word >> 7) & 0x1f
	funct3 := (word >> 12) & 0x7
	rs1 := (word >> 15) & 0x1f
	rs2 := (word >> 20) & 0x1f
	funct7 := (word >> 25) & 0x7f

	in := Instruction{Rd: rd, Rs1: rs1, Rs2: rs2, Size: 4}

	switch opcode {
	case opLUI:
		in.Op, in.Imm = OpLUI, immU(word)
	case opAUIPC:
		in.Op, in.Imm = OpAUIPC, immU(word)
	case opJAL:
		in.Op, in.Imm = OpJAL, immJ(word)
	case opJALR:
		if funct3 != 0 {
			return Instruction{}, ErrIllegalInstruction
		}
		in.Op, in.Imm = OpJALR, immI(word)
	case opBranch:
		in.Imm = immB(word)
		switch funct3 {
		case 0:
			in.Op = OpBEQ
		case 1:
			in.Op = OpBNE
		case 4:
			in.Op = OpBLT
		case 5:
			in.Op = OpBGE
		case 6:
			in.Op = OpBLTU
		case 7:
			in.Op = OpBGEU
		default:
			return Instruction{}, ErrIllegalInstruction
		}
	case opLoad:
		in.Imm = immI(word)
		switch funct3 {
		case 0:
			in.Op = OpLB
		case 1:
			in.Op = OpLH
		case 2:
			in.Op = OpLW
		case 4:
			in.Op = OpLBU
		case 5:
			in.Op = OpLHU
		default:
			return Instruction{}, ErrIllegalInstruction
		}
	case opStore:
		in.Imm = immS(word)
		switch funct3 {
		case 0:
			in.Op = OpSB
		case 1:
			in.Op = OpSH
		case 2:
			in.Op = OpSW
		default:
			return Instruction{}, ErrIllegalInstruction
		}
	case opImm:
		in.Imm = immI(word)
		switch funct3 {
		case 0:
			in.Op = OpADDI
		case 2:
			in.Op = OpSLTI
		case 3:
			in.Op = OpSLTIU
		case 4:
			in.Op = OpXORI
		case 6:
			in.Op = OpORI
		case 7:
			in.Op = OpANDI
		case 1:
			if funct7 != 0 {
				return Instruction{}, ErrIllegalInstruction
			}
			in.Op, in.Imm = OpSLLI, int32(rs2)
		case 5:
			switch funct7 {
			case 0x00:
				in.Op, in.Imm = OpSRLI, int32(rs2)
			case 0x20:
				in.Op, in.Imm = OpSRAI, int32(rs2)
			default:
				return Instruction{}, ErrIllegalInstruction
			}
		default:
			return Instruction{}, ErrIllegalInstruction
		}
	case opReg:
		if funct7 == 0x01 {
			switch funct3 {
			case 0:
				in.Op = OpMUL
			case 1:
				in.Op = OpMULH
			case 2:
				in.Op = OpMULHSU
			case 3:
				in.Op = OpMULHU
			case 4:
				in.Op = OpDIV
			case 5:
				in.Op = OpDIVU
			case 6:
				in.Op = OpREM
			case 7:
				in.Op = OpREMU
			}
			break
		}
		switch {
		case funct3 == 0 && funct7 == 0x00:
			in.Op = OpADD
		case funct3 == 0 && funct7 == 0x20:
			in.Op = OpSUB
		case funct3 == 1 && funct7 == 0x00:
			in.Op = OpSLL
		case funct3 == 2 && funct7 == 0x00:
			in.Op = OpSLT
		case funct3 == 3 && funct7 == 0x00:
			in.Op = OpSLTU
		case funct3 == 4 && funct7 == 0x00:
			in.Op = OpXOR
		case funct3 == 5 && funct7 == 0x00:
			in.Op = OpSRL
		case funct3 == 5 && funct7 == 0x20:
			in.Op = OpSRA
		case funct3 == 6 && funct7 == 0x00:
			in.Op = OpOR
		case funct3 == 7 && funct7 == 0x00:
			in.Op = OpAND
		default:
			return Instruction{}, ErrIllegalInstruction
		}
	case opFence:
		switch funct3 {
		case 0:
			in.Op = OpFENCE
		case 1:
			in.Op = OpFENCEI
		default:
			return Instruction{}, ErrIllegalInstruction
		}
	case opSystem:
		if funct3 == 0 {
			imm := word >> 20
			switch {
			case imm == 0x000 && rs1 == 0 && rd == 0:
				in.Op = OpECALL
			case imm == 0x001 && rs1 == 0 && rd == 0:
				in.Op = OpEBREAK
			case imm == 0x302 && rs1 == 0 && rd == 0:
				in.Op = OpMRET
			case imm == 0x102 && rs1 == 0 && rd == 0:
				in.Op = OpSRET
			case imm == 0x105 && rs1 == 0 && rd == 0:
				in.Op = OpWFI
			case funct7 == 0x09:
				in.Op = OpSFENCEVMA
			default:
				return Instruction{}, ErrIllegalInstruction
			}
			break
		}
		in.Csr = uint16(word >> 20)
		switch funct3 {
		case 1:
			in.Op = OpCSRRW
		case 2:
			in.Op = OpCSRRS
		case 3:
			in.Op = OpCSRRC
		case 5:
			in.Op, in.Imm = OpCSRRWI, int32(rs1)
		case 6:
			in.Op, in.Imm = OpCSRRSI, int32(rs1)
		case 7:
			in.Op, in.Imm = OpCSRRCI, int32(rs1)
		default:
			return Instruction{}, ErrIllegalInstruction
		}
	case opAMO:
		if funct3 != 2 {
			return Instruction{}, ErrIllegalInstruction
		}
		in.Aq = word&(1<<26) != 0
		in.Rl = word&(1<<25) != 0
		switch funct7 >> 2 {
		case 0x00:
			in.Op = OpAMOADDW
		case 0x01:
			in.Op = OpAMOSWAPW
		case 0x02:
			in.Op = OpLRW
		case 0x03:
			in.Op = OpSCW
		case 0x04:
			in.Op = OpAMOXORW
		case 0x08:
			in.Op = OpAMOORW
		case 0x0C:
			in.Op = OpAMOANDW
		case 0x10:
			in.Op = OpAMOMINW
		case 0x14:
			in.Op = OpAMOMAXW
		case 0x18:
			in.Op = OpAMOMINUW
		case 0x1C:
			in.Op = OpAMOMAXUW
		default:
			return Instruction{}, ErrIllegalInstruction
		}
	default:
		return Instruction{}, ErrIllegalInstruction
	}
	return in, nil
}
