// timers.go - free-running microsecond timer + two configurable countdown timers
//
// Grounded on original_source/src/devices/platform/pp/timers/{cfg_timer,
// usec_timer,mod}.rs and spec.md §4.7/§9.

package main

import (
	"sync"
	"time"
)

// UsecTimer is the free-running microsecond up-counter.
type UsecTimer struct {
	mu    sync.Mutex
	epoch time.Time
	now   func() time.Time
}

func NewUsecTimer() *UsecTimer {
	t := &UsecTimer{now: time.Now}
	t.epoch = t.now()
	return t
}

func (u *UsecTimer) Kind() string { return "UsecTimer" }

// value is the elapsed microseconds since epoch, wrapped to 32 bits.
func (u *UsecTimer) value() uint32 {
	u.mu.Lock()
	defer u.mu.Unlock()
	return uint32(u.now().Sub(u.epoch).Microseconds())
}

func (u *UsecTimer) R32(off uint32) (uint32, *MemException) {
	if off != 0 {
		return 0, Unexpected()
	}
	return u.value(), nil
}
func (u *UsecTimer) W32(off uint32, val uint32) *MemException { return StubWrite(SeverityInfo) }
func (u *UsecTimer) R8(off uint32) (uint8, *MemException) {
	v, e := u.R32(off &^ 3)
	return uint8(v >> ((off & 3) * 8)), e
}
func (u *UsecTimer) W8(off uint32, val uint8) *MemException { return StubWrite(SeverityInfo) }
func (u *UsecTimer) R16(off uint32) (uint16, *MemException) {
	v, e := u.R32(off &^ 3)
	return uint16(v >> ((off & 2) * 8)), e
}
func (u *UsecTimer) W16(off uint32, val uint16) *MemException { return StubWrite(SeverityInfo) }

// cfgTimerState is the countdown timer's arm state, per spec.md §9
// "Timer task design" — explicitly enumerated, not inferred from raw
// bits, so re-arm logic can distinguish Repeating from Oneshot.
type cfgTimerState int

const (
	cfgDisabled cfgTimerState = iota
	cfgOneshot
	cfgRepeating
)

// CfgTimer is a configurable countdown timer driving an IRQ on
// deadline via a time.AfterFunc callback (spec.md §4.7/§5). Re-arm and
// disable send no message to a running task: they stop the pending
// timer and bump a generation counter, which turns a fire already in
// flight into a no-op unless it took the lock first.
type CfgTimer struct {
	mu       sync.Mutex
	period   uint32 // microseconds, 29-bit
	enable   bool
	repeat   bool
	state    cfgTimerState
	deadline time.Time
	timer    *time.Timer
	gen      uint64 // generation counter: invalidates stale timer fires

	irq *Sender
	now func() time.Time
}

func NewCfgTimer(irq *Sender) *CfgTimer {
	return &CfgTimer{irq: irq, now: time.Now}
}

func (t *CfgTimer) Kind() string { return "CfgTimer" }

const (
	cfgReg    = 0x00 // write: latch period+control; read: last-written config
	cfgValue  = 0x04 // read: acknowledges/clears the IRQ
)

func (t *CfgTimer) R32(off uint32) (uint32, *MemException) {
	switch off {
	case cfgReg:
		t.mu.Lock()
		defer t.mu.Unlock()
		return t.configWord(), nil
	case cfgValue:
		t.irq.Release()
		return 0, nil
	default:
		return 0, Unexpected()
	}
}

func (t *CfgTimer) configWord() uint32 {
	v := t.period & 0x1FFFFFFF
	if t.enable {
		v |= 1 << 31
	}
	if t.repeat {
		v |= 1 << 30
	}
	return v
}

func (t *CfgTimer) W32(off uint32, val uint32) *MemException {
	switch off {
	case cfgReg:
		t.configure(val)
		return nil
	case cfgValue:
		t.irq.Release()
		return nil
	default:
		return Unexpected()
	}
}

func (t *CfgTimer) R8(off uint32) (uint8, *MemException) {
	v, e := t.R32(off &^ 3)
	return uint8(v >> ((off & 3) * 8)), e
}
func (t *CfgTimer) W8(off uint32, val uint8) *MemException { return StubWrite(SeverityInfo) }
func (t *CfgTimer) R16(off uint32) (uint16, *MemException) {
	v, e := t.R32(off &^ 3)
	return uint16(v >> ((off & 2) * 8)), e
}
func (t *CfgTimer) W16(off uint32, val uint16) *MemException { return StubWrite(SeverityInfo) }

// configure writes the 29-bit period + control bits and (re)arms the
// background timer task.
func (t *CfgTimer) configure(val uint32) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.period = val & 0x1FFFFFFF
	t.enable = val&(1<<31) != 0
	t.repeat = val&(1<<30) != 0
	t.gen++
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	if !t.enable {
		t.state = cfgDisabled
		return
	}
	if t.repeat {
		t.state = cfgRepeating
	} else {
		t.state = cfgOneshot
	}
	t.deadline = t.now().Add(time.Duration(t.period) * time.Microsecond)
	t.arm(t.gen)
}

// arm starts (or restarts) the background goroutine that fires the IRQ
// at t.deadline. A captured generation number lets configure()
// invalidate a fire already in flight without a data race; per
// spec.md §5/§9, a pending fire is allowed to happen once even if it
// races a cancellation.
func (t *CfgTimer) arm(gen uint64) {
	d := t.deadline.Sub(t.now())
	if d < 0 {
		d = 0
	}
	t.timer = time.AfterFunc(d, func() { t.fire(gen) })
}

func (t *CfgTimer) fire(gen uint64) {
	t.mu.Lock()
	if gen != t.gen || t.state == cfgDisabled {
		t.mu.Unlock()
		return
	}
	t.irq.Assert()
	if t.state == cfgRepeating {
		// Anti-skew re-arm: next deadline is prev+period, not now+period.
		t.deadline = t.deadline.Add(time.Duration(t.period) * time.Microsecond)
		t.arm(gen)
	} else {
		t.state = cfgDisabled
	}
	t.mu.Unlock()
}

// Stop cancels the background task, for clean system shutdown.
func (t *CfgTimer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.gen++
	if t.timer != nil {
		t.timer.Stop()
	}
}
