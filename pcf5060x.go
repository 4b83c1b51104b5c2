// pcf5060x.go - on-board power/RTC I2C device
//
// Grounded on original_source/clicky-core/src/devices/platform/pp/i2c/pcf5060x.rs
// and spec.md §1/§4.5/§6 (61 named registers, BCD time reads, auto-
// incrementing register pointer).

package main

import "time"

// pcf5060xNumRegs is the size of the named register table.
const pcf5060xNumRegs = 61

// Time registers, per spec.md §6: seconds, minutes, hours, weekday,
// day, month, year (mod 100), consecutively.
const (
	pcfRegSeconds = 0x0A
	pcfRegMinutes = 0x0B
	pcfRegHours   = 0x0C
	pcfRegWeekday = 0x0D
	pcfRegDay     = 0x0E
	pcfRegMonth   = 0x0F
	pcfRegYear    = 0x10
)

// Pcf5060x models the power-management/RTC companion chip.
type Pcf5060x struct {
	regs    [pcf5060xNumRegs]uint8
	ptr     uint8
	now     func() time.Time // overridable for tests
}

func NewPcf5060x() *Pcf5060x {
	return &Pcf5060x{now: time.Now}
}

func bcd(v int) uint8 { return uint8((v/10)<<4 | (v % 10)) }

func (p *Pcf5060x) liveRead(reg uint8) (uint8, bool) {
	t := p.now()
	switch reg {
	case pcfRegSeconds:
		return bcd(t.Second()), true
	case pcfRegMinutes:
		return bcd(t.Minute()), true
	case pcfRegHours:
		return bcd(t.Hour()), true
	case pcfRegWeekday:
		return bcd(int(t.Weekday())), true
	case pcfRegDay:
		return bcd(t.Day()), true
	case pcfRegMonth:
		return bcd(int(t.Month())), true
	case pcfRegYear:
		return bcd(t.Year() % 100), true
	default:
		return 0, false
	}
}

func (p *Pcf5060x) Path() string { return "i2c/pcf5060x" }

// Read implements I2CDevice: returns the byte at the auto-incrementing
// register pointer.
func (p *Pcf5060x) Read() (uint8, *MemException) {
	reg := p.ptr
	p.ptr++
	if int(p.ptr) >= pcf5060xNumRegs {
		p.ptr = 0
	}
	if v, ok := p.liveRead(reg); ok {
		return v, nil
	}
	if int(reg) >= pcf5060xNumRegs {
		return 0, Unexpected()
	}
	return p.regs[reg], nil
}

// Write implements I2CDevice. The first byte of a transaction selects
// the register pointer; subsequent bytes write-and-advance. Writes to
// time registers are accepted but not applied (explicit Non-goal:
// "writing to the RTC").
func (p *Pcf5060x) Write(b uint8, first bool) *MemException {
	if first {
		p.ptr = b
		return nil
	}
	reg := p.ptr
	p.ptr++
	if int(p.ptr) >= pcf5060xNumRegs {
		p.ptr = 0
	}
	if reg >= pcfRegSeconds && reg <= pcfRegYear {
		return nil // RTC write is a no-op, per Non-goal
	}
	if int(reg) >= pcf5060xNumRegs {
		return Unexpected()
	}
	p.regs[reg] = b
	return nil
}
