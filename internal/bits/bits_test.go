package bits

import "testing"

func TestExtractReplace(t *testing.T) {
	v := uint32(0xABCD1234)
	got := Extract(v, 8, 15)
	want := uint32(0x12)
	if got != want {
		t.Errorf("Extract got: %#x expected: %#x", got, want)
	}
	r := Replace(v, 8, 15, 0xFF)
	if Extract(r, 8, 15) != 0xFF {
		t.Errorf("Replace did not set field, got: %#x", r)
	}
}

func TestSignExtend(t *testing.T) {
	tests := []struct {
		v     uint32
		width uint
		want  int32
	}{
		{0x1, 1, -1},
		{0x0, 1, 0},
		{0xFFF, 12, -1},
		{0x7FF, 12, 2047},
		{0x800, 12, -2048},
	}
	for _, tc := range tests {
		got := int32(SignExtend(tc.v, tc.width))
		if got != tc.want {
			t.Errorf("SignExtend(%#x, %d) got: %d expected: %d", tc.v, tc.width, got, tc.want)
		}
	}
}

func TestLoadStoreLE(t *testing.T) {
	b := make([]byte, 8)
	StoreLE32(b, 0, 0xCAFEBABE)
	if got := LoadLE32(b, 0); got != 0xCAFEBABE {
		t.Errorf("LoadLE32 got: %#x expected: %#x", got, 0xCAFEBABE)
	}
	StoreLE16(b, 4, 0xBEEF)
	if got := LoadLE16(b, 4); got != 0xBEEF {
		t.Errorf("LoadLE16 got: %#x expected: %#x", got, 0xBEEF)
	}
}

func TestAlign(t *testing.T) {
	if !IsAligned(0x1000, 0x1000) {
		t.Errorf("IsAligned(0x1000, 0x1000) should be true")
	}
	if IsAligned(0x1001, 0x1000) {
		t.Errorf("IsAligned(0x1001, 0x1000) should be false")
	}
	if got := AlignDown(0x1234, 0x1000); got != 0x1000 {
		t.Errorf("AlignDown got: %#x expected: %#x", got, 0x1000)
	}
}
