// Package monitor implements the debug-console command language: a
// small table of prefix-matched commands (examine/deposit/step/show/
// quit) operating on a machine.Machine. The command table, minimum
// unique-prefix matching, and hand-rolled line scanner are grounded on
// command/parser/parser.go's cmdLine/matchCommand/getWord shape,
// stripped of the S/370 attach/detach device model since this core has
// no removable-media devices to manage.
package monitor

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/rvemu/core/internal/csr"
	"github.com/rvemu/core/internal/machine"
)

type cmd struct {
	name    string
	min     int
	process func(*cmdLine, *machine.Machine) (bool, string, error)
}

type cmdLine struct {
	line string
	pos  int
}

var cmdList = []cmd{
	{name: "examine", min: 1, process: examine},
	{name: "deposit", min: 1, process: deposit},
	{name: "step", min: 2, process: step},
	{name: "show", min: 2, process: show},
	{name: "quit", min: 1, process: quit},
}

// Process executes one command line against m, returning whether the
// console should close, any text to print, and an error.
func Process(line string, m *machine.Machine) (bool, string, error) {
	l := cmdLine{line: line}
	word := l.getWord()
	if word == "" {
		return false, "", nil
	}

	match := matchList(word)
	switch len(match) {
	case 0:
		return false, "", errors.New("command not found: " + word)
	case 1:
		return match[0].process(&l, m)
	default:
		return false, "", errors.New("ambiguous command: " + word)
	}
}

func matchList(word string) []cmd {
	var match []cmd
	for _, c := range cmdList {
		if matchCommand(c, word) {
			match = append(match, c)
		}
	}
	return match
}

func matchCommand(c cmd, word string) bool {
	if len(word) > len(c.name) {
		return false
	}
	for i := 0; i < len(word); i++ {
		if c.name[i] != word[i] {
			return false
		}
	}
	return len(word) >= c.min
}

func (l *cmdLine) skipSpace() {
	for l.pos < len(l.line) && unicode.IsSpace(rune(l.line[l.pos])) {
		l.pos++
	}
}

func (l *cmdLine) isEOL() bool {
	return l.pos >= len(l.line)
}

func (l *cmdLine) getWord() string {
	l.skipSpace()
	start := l.pos
	for !l.isEOL() && !unicode.IsSpace(rune(l.line[l.pos])) {
		l.pos++
	}
	return strings.ToLower(l.line[start:l.pos])
}

func parseHartIndex(m *machine.Machine, word string) (*machineHart, error) {
	n, err := strconv.Atoi(word)
	if err != nil {
		return nil, fmt.Errorf("invalid hart index %q", word)
	}
	harts := m.Harts()
	if n < 0 || n >= len(harts) {
		return nil, fmt.Errorf("hart %d out of range [0,%d)", n, len(harts))
	}
	return &machineHart{idx: n, h: harts[n]}, nil
}

// machineHart is a thin pairing used only to give command output a
// hart index alongside the *hart.Hart pointer it came from.
type machineHart struct {
	idx int
	h   interface {
		Reg(n uint32) uint32
		SetReg(n uint32, v uint32)
		Step()
	}
}

// examine <hart> pc | <hart> x<N> | <hart> csr <name>
func examine(l *cmdLine, m *machine.Machine) (bool, string, error) {
	hartWord := l.getWord()
	mh, err := parseHartIndex(m, hartWord)
	if err != nil {
		return false, "", err
	}
	what := l.getWord()
	switch {
	case what == "pc":
		return false, fmt.Sprintf("hart %d: pc=%#x", mh.idx, m.Harts()[mh.idx].PC), nil
	case strings.HasPrefix(what, "x"):
		n, err := strconv.Atoi(what[1:])
		if err != nil || n < 0 || n > 31 {
			return false, "", fmt.Errorf("invalid register %q", what)
		}
		return false, fmt.Sprintf("hart %d: x%d=%#x", mh.idx, n, mh.h.Reg(uint32(n))), nil
	case what == "csr":
		name := l.getWord()
		addr, ok := csrAddress(name)
		if !ok {
			return false, "", fmt.Errorf("unknown csr %q", name)
		}
		v, ok := m.Harts()[mh.idx].CSRRead(addr)
		if !ok {
			return false, "", fmt.Errorf("csr %s not readable at current privilege", name)
		}
		return false, fmt.Sprintf("hart %d: %s=%#x", mh.idx, name, v), nil
	default:
		return false, "", fmt.Errorf("examine: unknown target %q", what)
	}
}

// deposit <hart> x<N> <value>
func deposit(l *cmdLine, m *machine.Machine) (bool, string, error) {
	hartWord := l.getWord()
	mh, err := parseHartIndex(m, hartWord)
	if err != nil {
		return false, "", err
	}
	what := l.getWord()
	if !strings.HasPrefix(what, "x") {
		return false, "", fmt.Errorf("deposit: unsupported target %q", what)
	}
	n, err := strconv.Atoi(what[1:])
	if err != nil || n < 0 || n > 31 {
		return false, "", fmt.Errorf("invalid register %q", what)
	}
	valWord := l.getWord()
	v, err := strconv.ParseUint(strings.TrimPrefix(valWord, "0x"), 16, 32)
	if err != nil {
		return false, "", fmt.Errorf("invalid value %q", valWord)
	}
	mh.h.SetReg(uint32(n), uint32(v))
	return false, "", nil
}

// step <hart> [count]
func step(l *cmdLine, m *machine.Machine) (bool, string, error) {
	hartWord := l.getWord()
	mh, err := parseHartIndex(m, hartWord)
	if err != nil {
		return false, "", err
	}
	count := 1
	if w := l.getWord(); w != "" {
		n, err := strconv.Atoi(w)
		if err != nil || n <= 0 {
			return false, "", fmt.Errorf("invalid step count %q", w)
		}
		count = n
	}
	for i := 0; i < count; i++ {
		mh.h.Step()
	}
	return false, fmt.Sprintf("hart %d stepped %d instruction(s)", mh.idx, count), nil
}

// show harts
func show(l *cmdLine, m *machine.Machine) (bool, string, error) {
	what := l.getWord()
	if what != "harts" {
		return false, "", fmt.Errorf("show: unknown target %q", what)
	}
	var b strings.Builder
	for i, h := range m.Harts() {
		fmt.Fprintf(&b, "hart %d: pc=%#x\n", i, h.PC)
	}
	return false, b.String(), nil
}

func quit(_ *cmdLine, _ *machine.Machine) (bool, string, error) {
	return true, "", nil
}

func csrAddress(name string) (uint16, bool) {
	switch strings.ToLower(name) {
	case "mstatus":
		return csr.MStatus, true
	case "mie":
		return csr.MIE, true
	case "mip":
		return csr.MIP, true
	case "mcause":
		return csr.MCause, true
	case "mepc":
		return csr.MEPC, true
	case "mtvec":
		return csr.MTvec, true
	case "satp":
		return csr.SATP, true
	default:
		return 0, false
	}
}
