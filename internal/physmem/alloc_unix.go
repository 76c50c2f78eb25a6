//go:build !windows

package physmem

import "golang.org/x/sys/unix"

// allocate maps an anonymous, zero-filled region the way
// bobuhiro11/gokvm maps guest RAM for its KVM machine, except the
// mapping here only ever backs a software-emulated address space.
func allocate(size uint32) ([]byte, func() error, error) {
	buf, err := unix.Mmap(-1, 0, int(size), unix.PROT_READ|unix.PROT_WRITE,
		unix.MAP_SHARED|unix.MAP_ANON)
	if err != nil {
		return nil, nil, err
	}
	closer := func() error {
		return unix.Munmap(buf)
	}
	return buf, closer, nil
}
