// Package config parses the machine description file the emulator is
// launched with. The line-oriented scanner (skip comments, split into
// a keyword plus options, dispatch via a registration table) is
// grounded on config/configparser/configparser.go, simplified to the
// handful of directives a RISC-V machine description actually needs:
// hart/memory topology, the boot image, and the MMIO device list.
package config

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"unicode"
)

// Device describes one MMIO device line, e.g. "uart 0x10000000".
type Device struct {
	Name string
	Base uint32
}

// Machine is the fully parsed machine description.
type Machine struct {
	NumHarts int
	RAMBase  uint32
	RAMSize  uint32
	EntryPC  uint32
	BootPath string
	Devices  []Device
}

// defaults mirror spec.md §3's reset state: one hart, 128MiB of RAM at
// address 0, entry at address 0.
func defaults() Machine {
	return Machine{
		NumHarts: 1,
		RAMBase:  0,
		RAMSize:  128 << 20,
		EntryPC:  0,
	}
}

// directive handlers, registered below. Each receives the remainder
// of the line's fields (whitespace-split, comment already stripped).
type directive func(m *Machine, fields []string) error

var directives = map[string]directive{
	"harts":  parseHarts,
	"ram":    parseRAM,
	"entry":  parseEntry,
	"boot":   parseBoot,
	"device": parseDevice,
}

func parseHarts(m *Machine, fields []string) error {
	if len(fields) != 1 {
		return errors.New("harts: expected one count")
	}
	n, err := strconv.Atoi(fields[0])
	if err != nil || n <= 0 {
		return fmt.Errorf("harts: invalid count %q", fields[0])
	}
	m.NumHarts = n
	return nil
}

func parseRAM(m *Machine, fields []string) error {
	if len(fields) != 2 {
		return errors.New("ram: expected base and size")
	}
	base, err := parseUint32(fields[0])
	if err != nil {
		return fmt.Errorf("ram: bad base: %w", err)
	}
	size, err := parseSize(fields[1])
	if err != nil {
		return fmt.Errorf("ram: bad size: %w", err)
	}
	m.RAMBase = base
	m.RAMSize = size
	return nil
}

func parseEntry(m *Machine, fields []string) error {
	if len(fields) != 1 {
		return errors.New("entry: expected one address")
	}
	v, err := parseUint32(fields[0])
	if err != nil {
		return fmt.Errorf("entry: %w", err)
	}
	m.EntryPC = v
	return nil
}

func parseBoot(m *Machine, fields []string) error {
	if len(fields) != 1 {
		return errors.New("boot: expected one path")
	}
	m.BootPath = fields[0]
	return nil
}

func parseDevice(m *Machine, fields []string) error {
	if len(fields) != 2 {
		return errors.New("device: expected name and base address")
	}
	base, err := parseUint32(fields[1])
	if err != nil {
		return fmt.Errorf("device %s: %w", fields[0], err)
	}
	m.Devices = append(m.Devices, Device{Name: strings.ToLower(fields[0]), Base: base})
	return nil
}

func parseUint32(s string) (uint32, error) {
	s = strings.TrimPrefix(strings.ToLower(s), "0x")
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return 0, err
	}
	return uint32(v), nil
}

// parseSize accepts a plain hex byte count or a decimal count suffixed
// with K/M for kibi-/mebibytes, matching the teacher grammar's
// "<number><K|M>" address form.
func parseSize(s string) (uint32, error) {
	if len(s) == 0 {
		return 0, errors.New("empty size")
	}
	suffix := unicode.ToUpper(rune(s[len(s)-1]))
	if suffix == 'K' || suffix == 'M' {
		n, err := strconv.ParseUint(s[:len(s)-1], 10, 32)
		if err != nil {
			return 0, err
		}
		if suffix == 'K' {
			return uint32(n) << 10, nil
		}
		return uint32(n) << 20, nil
	}
	return parseUint32(s)
}

// Load reads and parses a machine description file.
func Load(path string) (Machine, error) {
	f, err := os.Open(path)
	if err != nil {
		return Machine{}, err
	}
	defer f.Close()
	return Parse(f)
}

// Parse reads a machine description from r, starting from built-in
// defaults so a file only needs to override what it changes.
func Parse(r io.Reader) (Machine, error) {
	m := defaults()
	scanner := bufio.NewScanner(r)
	lineNumber := 0
	for scanner.Scan() {
		lineNumber++
		line := stripComment(scanner.Text())
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		keyword := strings.ToLower(fields[0])
		handler, ok := directives[keyword]
		if !ok {
			return Machine{}, fmt.Errorf("config line %d: unknown directive %q", lineNumber, fields[0])
		}
		if err := handler(&m, fields[1:]); err != nil {
			return Machine{}, fmt.Errorf("config line %d: %w", lineNumber, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return Machine{}, err
	}
	return m, nil
}

func stripComment(line string) string {
	if i := strings.IndexByte(line, '#'); i >= 0 {
		return line[:i]
	}
	return line
}
