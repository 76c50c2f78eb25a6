package mmio

import "testing"

func echoHandler(store *[]byte) HandlerFunc {
	return func(region *Region, offset uint32, data []byte, access Access, cookie any) bool {
		switch access {
		case Write:
			*store = append([]byte(nil), data...)
		case Read:
			copy(data, *store)
		}
		return true
	}
}

func TestAddOverlapRejected(t *testing.T) {
	tbl := NewTable()
	var store []byte
	if _, err := tbl.Add(0x1000, 0x2000, "a", echoHandler(&store), nil); err != nil {
		t.Fatalf("Add a failed: %v", err)
	}
	if _, err := tbl.Add(0x1800, 0x2800, "b", echoHandler(&store), nil); err == nil {
		t.Errorf("overlapping Add should fail")
	}
	if _, err := tbl.Add(0x2000, 0x3000, "c", echoHandler(&store), nil); err != nil {
		t.Errorf("adjacent non-overlapping Add should succeed: %v", err)
	}
}

func TestDispatch(t *testing.T) {
	tbl := NewTable()
	var store []byte
	if _, err := tbl.Add(0x1000_0000, 0x1000_1000, "uart", echoHandler(&store), nil); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	data := []byte{0xAA}
	if ok := tbl.Dispatch(0x1000_0000, data, Write); !ok {
		t.Errorf("Dispatch write should succeed")
	}
	got := make([]byte, 1)
	if ok := tbl.Dispatch(0x1000_0000, got, Read); !ok {
		t.Errorf("Dispatch read should succeed")
	}
	if got[0] != 0xAA {
		t.Errorf("readback got: %#x expected: %#x", got[0], 0xAA)
	}
	if tbl.Dispatch(0x2000_0000, got, Read) {
		t.Errorf("Dispatch should fail for unmapped address")
	}
}

func TestRemove(t *testing.T) {
	tbl := NewTable()
	var store []byte
	r, err := tbl.Add(0x1000, 0x2000, "a", echoHandler(&store), nil)
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	tbl.Remove(r)
	if tbl.Lookup(0x1000, 4) != nil {
		t.Errorf("Lookup should fail after Remove")
	}
}
