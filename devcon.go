// devcon.go - device controller: reset/enable lines, clock source, PLL
//
// Grounded on original_source/clicky-core/src/devices/platform/pp/devcon.rs
// (the DevIdentifier symbolic decode is this generation's addition over
// the earlier src/devices/{devcon.rs,platform/pp/devcon.rs}) and
// spec.md §12 (supplemented feature: diagnostic device-reset/enable
// log, never gates other devices).

package main

import "log"

// devID names the bit positions of the reset/enable registers that the
// original's DevIdentifier enum decodes, per spec.md §12.
var devID = map[int]string{
	1:  "EXTCLOCKS",
	2:  "SYS",
	3:  "USB0",
	6:  "SER0",
	7:  "SER1",
	11: "I2S",
	12: "I2C",
	14: "ATA",
	16: "OPTO",
	22: "USB1",
	23: "FIREWIRE",
	25: "IDE0",
	26: "LCD",
}

// DevCon is the PP5020 device controller: reset/enable bitfields per
// peripheral, clock source select, and PLL control/status, plus a few
// registers the original marks as unidentified ("mystery").
type DevCon struct {
	reset        [2]uint32
	enable       [2]uint32
	clockSource  uint32
	pllControl   uint32
	pllStatus    uint32
	cachePriority uint8
	mysteryI2C   uint32
	mystery      uint32
}

func NewDevCon() *DevCon { return &DevCon{} }

func (d *DevCon) Kind() string { return "DevCon" }

// logEdges reports, at info severity, each bit that transitioned
// 0->1 between old and val, named via devID when known. This never
// gates or fails the write; it is purely a diagnostic log per
// spec.md §12.
func logEdges(action string, old, val uint32) {
	rising := ^old & val
	for bit := 0; bit < 32; bit++ {
		if rising&(1<<uint(bit)) == 0 {
			continue
		}
		if name, ok := devID[bit]; ok {
			log.Printf("[pp5020] devcon: %s got %s", name, action)
		} else {
			log.Printf("[pp5020] devcon: unknown device %s (bit %d)", action, bit)
		}
	}
}

const (
	devconReset1   = 0x04
	devconReset2   = 0x08
	devconEnable1  = 0x0C
	devconEnable2  = 0x10
	devconClockSrc = 0x20
	devconPllCtl   = 0x34
	devconPllStat  = 0x3C
	devconCachePri = 0x44
	devconI2CMyst  = 0xA4
	devconDmaMyst  = 0xC4
	devconMystery  = 0xC8
)

func (d *DevCon) R32(off uint32) (uint32, *MemException) {
	switch off {
	case devconReset1:
		return 0, StubRead(SeverityError, d.reset[0])
	case devconReset2:
		return 0, StubRead(SeverityError, d.reset[1])
	case devconEnable1:
		return d.enable[0], nil
	case devconEnable2:
		return d.enable[1], nil
	case devconClockSrc:
		return d.clockSource, nil
	case devconPllCtl:
		return d.pllControl, nil
	case devconPllStat:
		return d.pllStatus, nil
	case devconCachePri:
		return 0, StubRead(SeverityError, uint32(d.cachePriority))
	case devconI2CMyst:
		return 0, StubRead(SeverityError, d.mysteryI2C)
	case devconDmaMyst:
		return 0, InvalidAccess()
	case devconMystery:
		return 0, StubRead(SeverityError, d.mystery)
	default:
		return 0, Unexpected()
	}
}

func (d *DevCon) W32(off uint32, val uint32) *MemException {
	switch off {
	case devconReset1:
		logEdges("reset", d.reset[0], val)
		d.reset[0] = val
		return StubWrite(SeverityError)
	case devconReset2:
		d.reset[1] = val
		return StubWrite(SeverityError)
	case devconEnable1:
		logEdges("enabled", d.enable[0], val)
		d.enable[0] = val
		return nil
	case devconEnable2:
		d.enable[1] = val
		return nil
	case devconClockSrc:
		d.clockSource = val
		return nil
	case devconPllCtl:
		d.pllControl = val
		return nil
	case devconPllStat:
		d.pllStatus = val
		return nil
	case devconCachePri:
		d.cachePriority = uint8(val)
		return StubWrite(SeverityWarn)
	case devconI2CMyst:
		d.mysteryI2C = val
		return StubWrite(SeverityError)
	case devconDmaMyst:
		return StubWrite(SeverityInfo)
	case devconMystery:
		d.mystery = val
		return StubWrite(SeverityError)
	default:
		return Unexpected()
	}
}

func (d *DevCon) R8(off uint32) (uint8, *MemException) {
	v, e := d.R32(off &^ 3)
	return uint8(v >> ((off & 3) * 8)), e
}
func (d *DevCon) W8(off uint32, val uint8) *MemException { return StubWrite(SeverityInfo) }
func (d *DevCon) R16(off uint32) (uint16, *MemException) {
	v, e := d.R32(off &^ 3)
	return uint16(v >> ((off & 2) * 8)), e
}
func (d *DevCon) W16(off uint32, val uint16) *MemException { return StubWrite(SeverityInfo) }
