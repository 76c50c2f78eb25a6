// Package physmem implements the guest physical memory window.
//
// Physical memory is a single contiguous region [begin, begin+size)
// backed by host memory. The host-side buffer is indexed by
// guest_addr - begin, following the same "addr >> shift" indexing
// style as the teacher's memory package, just without storage keys
// (RISC-V has no S/370-style protection key array).
package physmem

import (
	"errors"
	"fmt"
)

// ErrOutOfRange indicates an access outside [begin, begin+size).
var ErrOutOfRange = errors.New("physmem: address out of range")

// Memory is a guest-physical RAM window.
type Memory struct {
	begin uint32
	size  uint32
	buf   []byte
	close func() error
}

// New allocates a Memory window of size bytes starting at guest
// physical address begin. The window is exactly size bytes long.
func New(begin, size uint32) (*Memory, error) {
	if size == 0 {
		return nil, fmt.Errorf("physmem: zero size")
	}
	buf, closer, err := allocate(size)
	if err != nil {
		return nil, fmt.Errorf("physmem: allocate: %w", err)
	}
	return &Memory{begin: begin, size: uint32(len(buf)), buf: buf, close: closer}, nil
}

// Close releases the backing allocation.
func (m *Memory) Close() error {
	if m.close == nil {
		return nil
	}
	return m.close()
}

// Begin returns the guest physical base address.
func (m *Memory) Begin() uint32 { return m.begin }

// Size returns the size, in bytes, of the window.
func (m *Memory) Size() uint32 { return m.size }

// Contains reports whether the half-open range [addr, addr+n) lies
// entirely within this memory window.
func (m *Memory) Contains(addr uint32, n uint32) bool {
	if addr < m.begin {
		return false
	}
	off := addr - m.begin
	if off > m.size {
		return false
	}
	end := off + n
	return end >= off && end <= m.size
}

// Slice returns a byte slice aliasing the host buffer for
// [addr, addr+n). The caller must have verified Contains first.
func (m *Memory) Slice(addr uint32, n uint32) ([]byte, error) {
	if !m.Contains(addr, n) {
		return nil, ErrOutOfRange
	}
	off := addr - m.begin
	return m.buf[off : off+n], nil
}

// LoadImage copies data into the window starting at guest physical
// address addr, zero-padding is implicit since the backing buffer is
// allocated zeroed.
func (m *Memory) LoadImage(addr uint32, data []byte) error {
	dst, err := m.Slice(addr, uint32(len(data)))
	if err != nil {
		return err
	}
	copy(dst, data)
	return nil
}
