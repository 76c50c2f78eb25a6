package uart

import (
	"bytes"
	"testing"

	"github.com/rvemu/core/internal/mmio"
)

func TestUARTTransmit(t *testing.T) {
	var buf bytes.Buffer
	u := New(&buf)

	data := []byte{'A'}
	if !u.Access(nil, regData, data, mmio.Write, nil) {
		t.Fatal("write rejected")
	}
	if buf.String() != "A" {
		t.Fatalf("expected transmitted 'A', got %q", buf.String())
	}
}

func TestUARTReceiveAndStatus(t *testing.T) {
	u := New(nil)

	status := make([]byte, 1)
	u.Access(nil, regLSR, status, mmio.Read, nil)
	if status[0]&lsrDataReady != 0 {
		t.Fatal("expected no data ready before Push")
	}

	u.Push('Z')
	u.Access(nil, regLSR, status, mmio.Read, nil)
	if status[0]&lsrDataReady == 0 {
		t.Fatal("expected data ready after Push")
	}

	data := make([]byte, 1)
	u.Access(nil, regData, data, mmio.Read, nil)
	if data[0] != 'Z' {
		t.Fatalf("expected to read back 'Z', got %q", data[0])
	}
}
