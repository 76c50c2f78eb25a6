package isa

import "testing"

func TestDecode32ADDI(t *testing.T) {
	// addi x1, x2, -1  -> imm=0xFFF rs1=2 funct3=0 rd=1 opcode=0x13
	word := uint32(0xFFF10093)
	in, err := Decode32(word)
	if err != nil {
		t.Fatalf("Decode32: %v", err)
	}
	if in.Op != OpADDI || in.Rd != 1 || in.Rs1 != 2 || in.Imm != -1 {
		t.Errorf("got: %+v", in)
	}
}

func TestDecode32ADD(t *testing.T) {
	// add x1, x2, x3: funct7=0 rs2=3 rs1=2 funct3=0 rd=1 opcode=0x33
	word := uint32(3)<<20 | uint32(2)<<15 | uint32(1)<<7 | 0x33
	in, err := Decode32(word)
	if err != nil {
		t.Fatalf("Decode32: %v", err)
	}
	if in.Op != OpADD || in.Rd != 1 || in.Rs1 != 2 || in.Rs2 != 3 {
		t.Errorf("got: %+v", in)
	}
}

func TestDecode32MUL(t *testing.T) {
	// mul x1, x2, x3: funct7=1 rs2=3 rs1=2 funct3=0 rd=1 opcode=0x33
	word := uint32(1)<<25 | uint32(3)<<20 | uint32(2)<<15 | uint32(1)<<7 | 0x33
	in, err := Decode32(word)
	if err != nil {
		t.Fatalf("Decode32: %v", err)
	}
	if in.Op != OpMUL {
		t.Errorf("got: %v expected OpMUL", in.Op)
	}
}

func TestDecode32Branch(t *testing.T) {
	// beq x1, x2, 8: imm=8 -> imm[12]=0 imm[11]=0 imm[10:5]=0 imm[4:1]=4 imm[0]=0
	// inst[31]=0 inst[7]=0 inst[30:25]=0 inst[11:8]=0b0100
	word := uint32(2)<<20 | uint32(1)<<15 | uint32(0)<<7 | (4 << 8) | 0x63
	in, err := Decode32(word)
	if err != nil {
		t.Fatalf("Decode32: %v", err)
	}
	if in.Op != OpBEQ || in.Imm != 8 {
		t.Errorf("got: %+v", in)
	}
}

func TestDecode32LUI(t *testing.T) {
	word := uint32(0x12345000) | 0x37 | uint32(1)<<7
	in, err := Decode32(word)
	if err != nil {
		t.Fatalf("Decode32: %v", err)
	}
	if in.Op != OpLUI || in.Imm != int32(0x12345000) {
		t.Errorf("got: %+v", in)
	}
}

func TestDecode32JAL(t *testing.T) {
	// jal x1, 4: imm=4 -> imm[2] is inst[22]
	word := uint32(1)<<7 | 0x6F | (1 << 22)
	in, err := Decode32(word)
	if err != nil {
		t.Fatalf("Decode32: %v", err)
	}
	if in.Op != OpJAL || in.Imm != 4 {
		t.Errorf("got: %+v", in)
	}
}

func TestDecode32ECALL(t *testing.T) {
	in, err := Decode32(0x00000073)
	if err != nil {
		t.Fatalf("Decode32: %v", err)
	}
	if in.Op != OpECALL {
		t.Errorf("got: %v", in.Op)
	}
}

func TestDecode32IllegalOpcode(t *testing.T) {
	if _, err := Decode32(0x7F); err != ErrIllegalInstruction {
		t.Errorf("expected illegal instruction error")
	}
}

func TestDecode32AMO(t *testing.T) {
	// lr.w x1, (x2): funct5=0b00010 aq=0 rl=0 rs2=0 rs1=2 funct3=2 rd=1
	word := uint32(0x02)<<27 | uint32(2)<<15 | uint32(2)<<12 | uint32(1)<<7 | 0x2F
	in, err := Decode32(word)
	if err != nil {
		t.Fatalf("Decode32: %v", err)
	}
	if in.Op != OpLRW {
		t.Errorf("got: %v expected OpLRW", in.Op)
	}
}
