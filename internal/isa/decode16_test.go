package isa

import "testing"

func TestDecodeCompressedADDI4SPN(t *testing.T) {
	// c.addi4spn x8, sp, 4: nzuimm=4 -> nzuimm[2] bit set -> inst[6]=1
	h := uint16(0x0000) | (1 << 6) | 0x0 // quadrant 0, funct3=0
	in, err := DecodeCompressed(h)
	if err != nil {
		t.Fatalf("DecodeCompressed: %v", err)
	}
	if in.Op != OpADDI || in.Rd != 8 || in.Rs1 != 2 || in.Imm != 4 {
		t.Errorf("got: %+v", in)
	}
}

func TestDecodeCompressedLWAndSW(t *testing.T) {
	// c.lw x8, 4(x9): rs1'=1(x9), rd'=0(x8), offset 4 -> offset[2]=inst[6]
	h := uint16(2)<<13 | uint16(1)<<7 | uint16(0)<<2 | (1 << 6)
	in, err := DecodeCompressed(h)
	if err != nil {
		t.Fatalf("DecodeCompressed: %v", err)
	}
	if in.Op != OpLW || in.Rd != 8 || in.Rs1 != 9 || in.Imm != 4 {
		t.Errorf("got: %+v", in)
	}

	h2 := uint16(6)<<13 | uint16(1)<<7 | uint16(0)<<2 | (1 << 6)
	in2, err := DecodeCompressed(h2)
	if err != nil {
		t.Fatalf("DecodeCompressed: %v", err)
	}
	if in2.Op != OpSW || in2.Rs1 != 9 || in2.Rs2 != 8 || in2.Imm != 4 {
		t.Errorf("got: %+v", in2)
	}
}

func TestDecodeCompressedADDIAndNOP(t *testing.T) {
	// c.nop: quadrant1 funct3=0 rd=0 imm=0
	nop, err := DecodeCompressed(1) // 0b01 quadrant, all else zero
	if err != nil {
		t.Fatalf("DecodeCompressed: %v", err)
	}
	if nop.Op != OpADDI || nop.Rd != 0 || nop.Imm != 0 {
		t.Errorf("expected c.nop as addi x0,x0,0, got %+v", nop)
	}

	// c.addi x1, x1, -1: funct3=0, rd=1 at bits11:7, imm=-1 -> bit12=1, bits6:2=0x1f
	h := uint16(1)<<7 | uint16(1)<<12 | uint16(0x1f)<<2 | 0x1
	in, err := DecodeCompressed(h)
	if err != nil {
		t.Fatalf("DecodeCompressed: %v", err)
	}
	if in.Op != OpADDI || in.Rd != 1 || in.Rs1 != 1 || in.Imm != -1 {
		t.Errorf("got: %+v", in)
	}
}

func TestDecodeCompressedLUI(t *testing.T) {
	// c.lui x1, 1: raw=1 -> bits6:2=1
	h := uint16(3)<<13 | uint16(1)<<7 | uint16(1)<<2 | 0x1
	in, err := DecodeCompressed(h)
	if err != nil {
		t.Fatalf("DecodeCompressed: %v", err)
	}
	if in.Op != OpLUI || in.Rd != 1 || in.Imm != 1<<12 {
		t.Errorf("got: %+v", in)
	}
}

func TestDecodeCompressedMVAndADD(t *testing.T) {
	// c.mv x1, x2: quadrant2 funct3=4 bit12=0 rd=1 rs2=2
	h := uint16(4)<<13 | uint16(1)<<7 | uint16(2)<<2 | 0x2
	in, err := DecodeCompressed(h)
	if err != nil {
		t.Fatalf("DecodeCompressed: %v", err)
	}
	if in.Op != OpADD || in.Rd != 1 || in.Rs1 != 0 || in.Rs2 != 2 {
		t.Errorf("got: %+v", in)
	}

	// c.add x1, x1, x2: bit12=1
	h2 := h | (1 << 12)
	in2, err := DecodeCompressed(h2)
	if err != nil {
		t.Fatalf("DecodeCompressed: %v", err)
	}
	if in2.Op != OpADD || in2.Rd != 1 || in2.Rs1 != 1 || in2.Rs2 != 2 {
		t.Errorf("got: %+v", in2)
	}
}

func TestDecodeCompressedEBREAK(t *testing.T) {
	h := uint16(4)<<13 | (1 << 12) | 0x2
	in, err := DecodeCompressed(h)
	if err != nil {
		t.Fatalf("DecodeCompressed: %v", err)
	}
	if in.Op != OpEBREAK {
		t.Errorf("got: %v expected OpEBREAK", in.Op)
	}
}

func TestDecodeCompressedZeroIsIllegal(t *testing.T) {
	if _, err := DecodeCompressed(0); err != ErrIllegalInstruction {
		t.Errorf("expected illegal instruction for all-zero compressed word")
	}
}
