// Package machine assembles a complete system: RAM, an MMIO table, a
// CLINT, and a registry of harts, and owns the goroutine-per-hart
// scheduler described in spec.md §5. Hart-owned state is touched only
// by that hart's own goroutine. The hart list is fixed once New
// returns; its mutex is taken only by Harts, and neither pollLoop's
// interrupt broadcast nor the MMIO table takes it. The MMIO table has
// no lock and is filled before Run starts.
//
// The per-hart/IRQ-thread goroutine lifecycle (WaitGroup plus a done
// channel plus a bounded graceful-shutdown wait) is grounded on the
// teacher's emu/core/core.go Start/Stop shape; golang.org/x/sync/errgroup
// replaces the teacher's manual WaitGroup+panic-recovery bookkeeping
// for propagating a hart goroutine's first error back to the caller.
package machine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rvemu/core/internal/bus"
	"github.com/rvemu/core/internal/clint"
	"github.com/rvemu/core/internal/hart"
	"github.com/rvemu/core/internal/mmio"
	"github.com/rvemu/core/internal/physmem"
)

// MaxHarts bounds the registry the way spec.md §3 requires ("fixed-size
// array of hart slots, capacity 256").
const MaxHarts = 256

// pollPeriod is how often the IRQ thread reconciles each hart's msip
// condition into its interrupt-pending state; each hart reconciles its
// own timer condition in Step.
const pollPeriod = 200 * time.Microsecond

// Machine owns every hart, the physical bus, and the IRQ/timer thread
// that drives asynchronous interrupt delivery across all of them.
type Machine struct {
	mu    sync.Mutex // guards harts/registration only, never hart-internal state
	harts []*hart.Hart

	RAM   *physmem.Memory
	MMIO  *mmio.Table
	Bus   *bus.PhysBus
	CLINT *clint.CLINT
}

// Config describes the system to build.
type Config struct {
	RAMBase uint32
	RAMSize uint32
	NumHarts int
	EntryPC uint32
	TLBSize int
}

// New constructs a Machine with NumHarts harts sharing one RAM window
// and one CLINT, all starting at EntryPC in Machine mode (spec.md §3's
// reset lifecycle).
func New(cfg Config) (*Machine, error) {
	if cfg.NumHarts <= 0 || cfg.NumHarts > MaxHarts {
		return nil, fmt.Errorf("machine: hart count %d out of range [1, %d]", cfg.NumHarts, MaxHarts)
	}
	ram, err := physmem.New(cfg.RAMBase, cfg.RAMSize)
	if err != nil {
		return nil, fmt.Errorf("machine: %w", err)
	}
	tbl := mmio.NewTable()
	b := bus.New(ram, tbl)

	m := &Machine{
		RAM:  ram,
		MMIO: tbl,
		Bus:  b,
	}

	timers := make([]*hart.Timer, cfg.NumHarts)
	for i := 0; i < cfg.NumHarts; i++ {
		h := hart.New(uint32(i), cfg.EntryPC, b, cfg.TLBSize)
		m.harts = append(m.harts, h)
		timers[i] = h.Timer
	}

	cl := clint.New(timers)
	if _, err := tbl.Add(0x0200_0000, 0x0200_0000+cl.Length(), "clint", cl, nil); err != nil {
		return nil, fmt.Errorf("machine: %w", err)
	}
	m.CLINT = cl
	for _, h := range m.harts {
		h.Now = cl.Clock.Now
	}

	return m, nil
}

// Harts returns the registered harts in registration order.
func (m *Machine) Harts() []*hart.Hart {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*hart.Hart, len(m.harts))
	copy(out, m.harts)
	return out
}

// Run starts one goroutine per hart plus the IRQ/timer thread, and
// blocks until ctx is cancelled or a hart goroutine returns an error.
// Grounded on emu/core/core.go's Start loop, generalized from a single
// CPU to N harts coordinated by an errgroup instead of one WaitGroup.
func (m *Machine) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	for _, h := range m.harts {
		h := h
		g.Go(func() error {
			return runHart(gctx, h)
		})
	}

	g.Go(func() error {
		m.pollLoop(gctx)
		return nil
	})

	return g.Wait()
}

// runHart executes instructions until gctx is cancelled.
func runHart(gctx context.Context, h *hart.Hart) error {
	for {
		select {
		case <-gctx.Done():
			return nil
		default:
			h.Step()
		}
	}
}

// pollLoop is the IRQ thread named in spec.md §5: "the only other actor
// permitted to touch ev_int_mask". It watches for msip-asserted machine
// software interrupts and wakes the affected hart; every hart's own
// timer condition is reconciled by that hart's own goroutine on every
// Step, since mtime is a shared atomic counter and needs no cross-hart
// thread to observe it safely.
func (m *Machine) pollLoop(gctx context.Context) {
	ticker := time.NewTicker(pollPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-gctx.Done():
			return
		case <-ticker.C:
			for i, h := range m.harts {
				if m.CLINT.MSIPPending(i) {
					h.Wake(1 << 3) // MSIP, machine software interrupt
				}
			}
		}
	}
}

// Shutdown stops the CLINT ticker. Hart/IRQ goroutines are expected to
// be stopped by cancelling the context passed to Run; Shutdown only
// tears down the asynchronous device threads that outlive a single Run.
func (m *Machine) Shutdown() {
	m.CLINT.Shutdown()
	slog.Info("machine shut down")
}
