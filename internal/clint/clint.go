// Package clint implements the core-local interrupt controller: the
// shared mtime counter, per-hart mtimecmp registers, and the
// msip software-interrupt bytes, all reachable as MMIO per spec.md
// §4.4's external-interfaces list ("CLINT-style mtime/mtimecmp,
// msip"). The timer-tick goroutine here is grounded on the teacher's
// emu/timer/timer.go ticker-plus-graceful-shutdown shape, but fixes
// the bug that implementation carried: a tick no longer delivers a
// timer event unconditionally, it only promotes mtime and leaves the
// mtime>=mtimecmp comparison to each hart (hart.Hart.PollInterrupt).
package clint

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rvemu/core/internal/bits"
	"github.com/rvemu/core/internal/hart"
	"github.com/rvemu/core/internal/mmio"
)

const (
	// Register layout, offsets from the CLINT device's base address
	// (sifive/QEMU virt convention): msip[hart] at 0x0000, mtimecmp[hart]
	// at 0x4000, mtime at 0xBFF8.
	msipBase      = 0x0000
	mtimecmpBase  = 0x4000
	mtimeOffset   = 0xBFF8
	regionLength  = 0xC000
	tickPeriod    = 100 * time.Microsecond // 10MHz-equivalent scaled tick
)

// Clock is the mtime counter shared by every hart's timer comparison.
type Clock struct {
	mtime atomic.Uint64
}

// Now returns the current shared time value.
func (c *Clock) Now() uint64 { return c.mtime.Load() }

// CLINT is the MMIO-facing device: it owns the shared Clock and one
// hart.Timer + msip byte per attached hart, and drives the ticking
// goroutine that advances mtime.
type CLINT struct {
	Clock  *Clock
	timers []*hart.Timer
	msip   []atomic.Uint32

	wg      sync.WaitGroup
	done    chan struct{}
	enabled atomic.Bool
}

// New returns a CLINT wired to exactly one hart.Timer per hart, in
// hart-index order.
func New(timers []*hart.Timer) *CLINT {
	c := &CLINT{
		Clock:  &Clock{},
		timers: timers,
		msip:   make([]atomic.Uint32, len(timers)),
		done:   make(chan struct{}),
	}
	c.enabled.Store(true)
	c.wg.Add(1)
	go c.run()
	return c
}

func (c *CLINT) run() {
	defer c.wg.Done()
	ticker := time.NewTicker(tickPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if c.enabled.Load() {
				c.Clock.mtime.Add(1)
			}
		case <-c.done:
			return
		}
	}
}

// Shutdown stops the ticking goroutine, mirroring the teacher's
// Stop()-with-timeout shape so a hung ticker cannot wedge process exit.
func (c *CLINT) Shutdown() {
	close(c.done)
	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		slog.Warn("timed out waiting for clint ticker to stop")
	}
}

// Access implements mmio.Handler, dispatching on offset within the
// CLINT's registered region.
func (c *CLINT) Access(_ *mmio.Region, offset uint32, data []byte, access mmio.Access, _ any) bool {
	switch {
	case offset >= msipBase && offset < msipBase+uint32(len(c.msip))*4:
		idx := (offset - msipBase) / 4
		if access == mmio.Write {
			c.msip[idx].Store(bits.LoadLE32(data, 0) & 0x1)
		} else {
			bits.StoreLE32(data, 0, c.msip[idx].Load())
		}
		return true

	case offset >= mtimecmpBase && offset < mtimecmpBase+uint32(len(c.timers))*8:
		idx := (offset - mtimecmpBase) / 8
		lowHalf := (offset-mtimecmpBase)%8 == 0
		if access == mmio.Write {
			cur := c.timers[idx].Compare()
			v := uint64(bits.LoadLE32(data, 0))
			if lowHalf {
				cur = cur&0xFFFFFFFF00000000 | v
			} else {
				cur = cur&0x00000000FFFFFFFF | v<<32
			}
			c.timers[idx].SetCompare(cur)
		} else {
			cmp := c.timers[idx].Compare()
			if lowHalf {
				bits.StoreLE32(data, 0, uint32(cmp))
			} else {
				bits.StoreLE32(data, 0, uint32(cmp>>32))
			}
		}
		return true

	case offset == mtimeOffset || offset == mtimeOffset+4:
		if access == mmio.Write {
			return false // mtime is read-only to guest software in this core
		}
		now := c.Clock.Now()
		if offset == mtimeOffset {
			bits.StoreLE32(data, 0, uint32(now))
		} else {
			bits.StoreLE32(data, 0, uint32(now>>32))
		}
		return true
	}
	return false
}

// Length is the size of the MMIO window this device occupies.
func (c *CLINT) Length() uint32 { return regionLength }

// MSIPPending reports whether hart idx has a pending software
// interrupt request (msip[idx]&1 != 0).
func (c *CLINT) MSIPPending(idx int) bool {
	return c.msip[idx].Load()&0x1 != 0
}
