// cpucon.go - per-core CPU control block (sleep / wait-counter / wake-int)
//
// Grounded on original_source/src/devices/platform/pp/cpucon.rs and
// original_source/src/devices/cpucon.rs (the two generations of this
// device in the corpus); spec.md §4.8.

package main

import (
	"math/bits"
	"sync"
	"time"
)

const (
	flowMask     = 0x7 << 29
	procSleep    = 1 << 31
	procWaitCnt  = 1 << 30
	procWakeInt  = 1 << 29
	procCntClks  = 1 << 27
	procCntUsec  = 1 << 25
	procCntMsec  = 1 << 24
	procCntSec   = 1 << 23
	procCntMask  = 0x1F << 23
	counterMask  = 0xFF
)

// CpuCon is the PP5020 CPU control block, one register per core, per
// spec.md §4.8. Writing PROC_WAIT_CNT with a counter source arms a
// background wake timer; PROC_WAKE_INT additionally fires an IRQ on
// wake, then auto-clears per the original's doc comment.
type CpuCon struct {
	mu sync.Mutex

	ctl  [2]uint32
	gen  [2]uint64
	irq  [2]*Sender // wake-on-timeout IRQ legs, may be nil if unused
	now  func() time.Time
}

func NewCpuCon(cpuIRQ, copIRQ *Sender) *CpuCon {
	return &CpuCon{irq: [2]*Sender{cpuIRQ, copIRQ}, now: time.Now}
}

func (c *CpuCon) Kind() string { return "System Controller Block" }

// Running reports whether the given core is outside all flow-control
// sleep states (FLOW_MASK == 0).
func (c *CpuCon) Running(core int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ctl[core]&flowMask == 0
}

// WakeOnInterrupt clears PROC_SLEEP for core if set, per the original's
// wake_on_interrupt: any asserted IRQ/FIQ wakes a core parked in
// PROC_SLEEP even without PROC_WAKE_INT.
func (c *CpuCon) WakeOnInterrupt(core int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ctl[core]&procSleep != 0 {
		c.ctl[core] &^= flowMask
	}
}

func (c *CpuCon) R32(off uint32) (uint32, *MemException) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch off {
	case 0x0:
		return c.ctl[coreCPU], nil
	case 0x4:
		return c.ctl[coreCOP], nil
	default:
		return 0, Unexpected()
	}
}

func (c *CpuCon) W32(off uint32, val uint32) *MemException {
	var core int
	switch off {
	case 0x0:
		core = coreCPU
	case 0x4:
		core = coreCOP
	default:
		return Unexpected()
	}

	c.mu.Lock()
	c.ctl[core] = val
	c.gen[core]++
	gen := c.gen[core]
	c.mu.Unlock()

	return c.onUpdate(core, val, gen)
}

func (c *CpuCon) R8(off uint32) (uint8, *MemException) {
	v, e := c.R32(off &^ 3)
	return uint8(v >> ((off & 3) * 8)), e
}
func (c *CpuCon) W8(off uint32, val uint8) *MemException { return StubWrite(SeverityInfo) }
func (c *CpuCon) R16(off uint32) (uint16, *MemException) {
	v, e := c.R32(off &^ 3)
	return uint16(v >> ((off & 2) * 8)), e
}
func (c *CpuCon) W16(off uint32, val uint16) *MemException { return StubWrite(SeverityInfo) }

// onUpdate implements the original's on_update_cpuctl: a PROC_WAIT_CNT
// write arms a background wake timer sourced from exactly one counter
// source; PROC_WAKE_INT additionally asserts the core's IRQ leg on
// wake, per spec.md §4.8's "fire interrupt on wake-up, auto-clears".
func (c *CpuCon) onUpdate(core int, val uint32, gen uint64) *MemException {
	if val&procWaitCnt == 0 {
		return nil
	}

	sources := 0
	var d time.Duration
	counter := time.Duration(val & counterMask)
	switch {
	case val&procCntClks != 0:
		sources++
		d = counter // nanoseconds, deliberately approximate per original's XXX
	case val&procCntUsec != 0:
		sources++
		d = counter * time.Microsecond
	case val&procCntMsec != 0:
		sources++
		d = counter * time.Millisecond
	case val&procCntSec != 0:
		sources++
		d = counter * time.Second
	}
	if bits.OnesCount32(val&procCntMask) > 1 {
		return ContractViolation("set more than one counter source", SeverityError, nil)
	}
	if sources == 0 {
		return nil
	}

	wakeInt := val&procWakeInt != 0

	time.AfterFunc(d, func() {
		c.mu.Lock()
		if c.gen[core] != gen {
			c.mu.Unlock()
			return
		}
		c.ctl[core] &^= flowMask
		irq := c.irq[core]
		c.mu.Unlock()
		if wakeInt && irq != nil {
			irq.Assert()
		}
	})
	return nil
}
