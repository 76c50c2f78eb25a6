package tlb

import "testing"

func TestInsertAndLookup(t *testing.T) {
	tl := New(256)
	tl.Insert(0x8000_1234, 0x9000_0000, 4096, PermR|PermW)
	phys, ok := tl.Lookup(0x8000_1234, PermR)
	if !ok {
		t.Fatalf("expected hit")
	}
	if phys != 0x9000_0234 {
		t.Errorf("got: %#x expected: %#x", phys, 0x9000_0234)
	}
}

func TestPermissionMiss(t *testing.T) {
	tl := New(256)
	tl.Insert(0x8000_1000, 0x9000_0000, 4096, PermR)
	if _, ok := tl.Lookup(0x8000_1000, PermW); ok {
		t.Errorf("expected miss on permission mismatch")
	}
}

func TestMegapage(t *testing.T) {
	tl := New(256)
	tl.Insert(0x8040_0000, 0xA000_0000, 4*1024*1024, PermR|PermX)
	phys, ok := tl.Lookup(0x8040_1234, PermR)
	if !ok {
		t.Fatalf("expected hit within superpage")
	}
	if phys != 0xA000_1234 {
		t.Errorf("got: %#x expected: %#x", phys, 0xA000_1234)
	}
}

func TestFlushAll(t *testing.T) {
	tl := New(256)
	tl.Insert(0x8000_0000, 0x9000_0000, 4096, PermR)
	tl.FlushAll()
	if _, ok := tl.Lookup(0x8000_0000, PermR); ok {
		t.Errorf("expected miss after FlushAll")
	}
}

func TestFlushVA(t *testing.T) {
	tl := New(256)
	tl.Insert(0x8000_0000, 0x9000_0000, 4096, PermR)
	tl.Insert(0x8000_1000, 0x9000_1000, 4096, PermR) // different slot
	tl.FlushVA(0x8000_0000)
	if _, ok := tl.Lookup(0x8000_0000, PermR); ok {
		t.Errorf("expected miss after FlushVA")
	}
	if _, ok := tl.Lookup(0x8000_1000, PermR); !ok {
		t.Errorf("unrelated entry should survive FlushVA")
	}
}
