package config

import (
	"strings"
	"testing"
)

func TestParseDefaults(t *testing.T) {
	m, err := Parse(strings.NewReader(""))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if m.NumHarts != 1 || m.RAMSize != 128<<20 {
		t.Fatalf("unexpected defaults: %+v", m)
	}
}

func TestParseFullDescription(t *testing.T) {
	src := `
# boot a 4-hart machine
harts 4
ram 0x80000000 64M
entry 0x80000000
boot firmware.bin
device uart 0x10000000
device clint 0x02000000
`
	m, err := Parse(strings.NewReader(src))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if m.NumHarts != 4 {
		t.Fatalf("harts = %d, want 4", m.NumHarts)
	}
	if m.RAMBase != 0x80000000 || m.RAMSize != 64<<20 {
		t.Fatalf("ram = %#x/%#x", m.RAMBase, m.RAMSize)
	}
	if m.EntryPC != 0x80000000 {
		t.Fatalf("entry = %#x", m.EntryPC)
	}
	if m.BootPath != "firmware.bin" {
		t.Fatalf("boot = %q", m.BootPath)
	}
	if len(m.Devices) != 2 || m.Devices[0].Name != "uart" || m.Devices[0].Base != 0x10000000 {
		t.Fatalf("devices = %+v", m.Devices)
	}
}

func TestParseUnknownDirective(t *testing.T) {
	_, err := Parse(strings.NewReader("bogus 1\n"))
	if err == nil {
		t.Fatal("expected error for unknown directive")
	}
}

func TestParseInvalidHartCount(t *testing.T) {
	_, err := Parse(strings.NewReader("harts 0\n"))
	if err == nil {
		t.Fatal("expected error for zero harts")
	}
}
