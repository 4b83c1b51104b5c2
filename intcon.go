// intcon.go - two-level (lo/hi) interrupt controller with per-core routing
//
// Grounded on original_source/clicky-core/src/devices/platform/pp/intcon.rs
// and spec.md §3/§4.3. Register byte offsets within each half are this
// module's own layout decision (spec.md names the registers but does not
// enumerate offsets); documented in DESIGN.md.

package main

import "sync"

// IntStatus is the per-core {irq,fiq} pending summary returned by Query.
type IntStatus struct {
	IRQ, FIQ bool
}

type intLine struct {
	line         *Line    // valid iff !coreSpecific
	perCore      [2]*Line // valid iff coreSpecific: each core's own physical line
	coreSpecific bool
}

// lineFor returns the Line a given core observes at this slot, or nil.
func (r intLine) lineFor(core int) *Line {
	if r.coreSpecific {
		return r.perCore[core]
	}
	return r.line
}

// IntCon is the PP5020 two-level interrupt controller: lines 0-31 (lo)
// and 32-63 (hi), each with per-core enable and a priority bit selecting
// IRQ vs FIQ routing.
type IntCon struct {
	mu sync.Mutex

	reg      [2][32]intLine
	enable   [2][2][32]bool // [half][core][idx]
	priority [2][32]bool    // [half][idx]: false=IRQ, true=FIQ
}

func NewIntCon() *IntCon { return &IntCon{} }

// Register wires a shared device IRQ line into half (0=lo,1=hi) at idx,
// visible to both cores subject to each core's own enable bit.
func (c *IntCon) Register(half, idx int, line *Line) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reg[half][idx] = intLine{line: line}
}

// RegisterCoreSpecific wires two distinct physical lines into the same
// half/idx slot, one per core - the mailbox is the only device in the
// system wired this way (spec.md §3), mirroring the original's single
// register_core_specific(idx, cpu_rx, cop_rx) call.
func (c *IntCon) RegisterCoreSpecific(half, idx int, cpuLine, copLine *Line) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reg[half][idx] = intLine{coreSpecific: true, perCore: [2]*Line{coreCPU: cpuLine, coreCOP: copLine}}
}

const (
	coreCPU = 0
	coreCOP = 1
)

// perLineMask computes the bitmask, within half, of lines asserted and
// routed (enabled, core-visible, hi-gated) to core, filtered to the
// given priority class.
func (c *IntCon) perLineMask(half, core int, wantFIQ bool) uint32 {
	if half == 1 && !c.enable[0][core][30] {
		return 0
	}
	var mask uint32
	for idx := 0; idx < 32; idx++ {
		if idx == 30 {
			continue // reserved
		}
		r := c.reg[half][idx]
		line := r.lineFor(core)
		if line == nil || !line.Asserted() {
			continue
		}
		if !c.enable[half][core][idx] {
			continue
		}
		if c.priority[half][idx] == wantFIQ {
			mask |= 1 << uint(idx)
		}
	}
	return mask
}

// Query returns the {irq,fiq} pending summary for (CPU, COP).
func (c *IntCon) Query() (IntStatus, IntStatus) {
	c.mu.Lock()
	defer c.mu.Unlock()
	status := func(core int) IntStatus {
		var s IntStatus
		for half := 0; half < 2; half++ {
			if c.perLineMask(half, core, false) != 0 {
				s.IRQ = true
			}
			if c.perLineMask(half, core, true) != 0 {
				s.FIQ = true
			}
		}
		return s
	}
	return status(coreCPU), status(coreCOP)
}

func (c *IntCon) Kind() string { return "IntCon" }

func (c *IntCon) R8(off uint32) (uint8, *MemException) {
	v, e := c.R32(off &^ 3)
	if e != nil {
		return 0, e
	}
	return uint8(v >> ((off & 3) * 8)), nil
}
func (c *IntCon) W8(off uint32, val uint8) *MemException { return StubWrite(SeverityInfo) }
func (c *IntCon) R16(off uint32) (uint16, *MemException) {
	v, e := c.R32(off &^ 3)
	if e != nil {
		return 0, e
	}
	return uint16(v >> ((off & 2) * 8)), nil
}
func (c *IntCon) W16(off uint32, val uint16) *MemException { return StubWrite(SeverityInfo) }

func (c *IntCon) R32(off uint32) (uint32, *MemException) {
	c.mu.Lock()
	defer c.mu.Unlock()
	half := int((off / 0x100) & 1)
	reg := off % 0x100
	switch reg {
	case 0x00:
		return c.perLineMask(half, coreCPU, false), nil
	case 0x04:
		return c.perLineMask(half, coreCOP, false), nil
	case 0x08:
		return c.perLineMask(half, coreCPU, true), nil
	case 0x0C:
		return c.perLineMask(half, coreCOP, true), nil
	case 0x10:
		return enableMask(c.enable[half][coreCPU]), nil
	case 0x14:
		return enableMask(c.enable[half][coreCOP]), nil
	case 0x28:
		return priorityMask(c.priority[half]), nil
	default:
		return 0, Unexpected()
	}
}

func (c *IntCon) W32(off uint32, val uint32) *MemException {
	c.mu.Lock()
	defer c.mu.Unlock()
	half := int((off / 0x100) & 1)
	reg := off % 0x100
	switch reg {
	case 0x18: // enable, write-1-to-set, CPU
		setEnableBits(&c.enable[half][coreCPU], val)
		return nil
	case 0x1C: // enable, write-1-to-set, COP
		setEnableBits(&c.enable[half][coreCOP], val)
		return nil
	case 0x20: // disable, write-1-to-clear, CPU
		clearEnableBits(&c.enable[half][coreCPU], val)
		return nil
	case 0x24: // disable, write-1-to-clear, COP
		clearEnableBits(&c.enable[half][coreCOP], val)
		return nil
	case 0x28: // priority, shared across cores
		for i := 0; i < 32; i++ {
			c.priority[half][i] = val&(1<<uint(i)) != 0
		}
		return nil
	default:
		return Unexpected()
	}
}

func enableMask(bits [32]bool) uint32 {
	var m uint32
	for i, b := range bits {
		if b {
			m |= 1 << uint(i)
		}
	}
	return m
}

func priorityMask(bits [32]bool) uint32 {
	var m uint32
	for i, b := range bits {
		if b {
			m |= 1 << uint(i)
		}
	}
	return m
}

// setEnableBits/clearEnableBits are idempotent per-bit, per spec.md §4.3
// "Writing enable/disable is idempotent by bit."
func setEnableBits(bits *[32]bool, val uint32) {
	for i := 0; i < 32; i++ {
		if val&(1<<uint(i)) != 0 {
			bits[i] = true
		}
	}
}

func clearEnableBits(bits *[32]bool, val uint32) {
	for i := 0; i < 32; i++ {
		if val&(1<<uint(i)) != 0 {
			bits[i] = false
		}
	}
}
