// periph.go - small stub peripherals: CPU-ID, PP control, DMA engine,
// serial UARTs, PWM, I2S
//
// Grounded on original_source/src/devices/platform/pp/{cpuid,ppcon,dma}.rs,
// original_source/clicky-core/src/devices/platform/pp/{serial,pwm}.rs,
// and original_source/src/devices/i2s.rs; spec.md §6.

package main

import "fmt"

// CpuIDReg returns a per-core identity constant, letting firmware
// distinguish which core is currently executing a shared boot image.
type CpuIDReg struct {
	core int
}

func NewCpuIDReg() *CpuIDReg { return &CpuIDReg{} }

func (c *CpuIDReg) Kind() string { return "CPU ID Register" }

// SetCore is called by system.go before dispatching to a core.
func (c *CpuIDReg) SetCore(core int) { c.core = core }

func (c *CpuIDReg) R32(off uint32) (uint32, *MemException) {
	if off != 0 {
		return 0, Unexpected()
	}
	if c.core == coreCOP {
		return 0xaaaaaaaa, nil
	}
	return 0x55555555, nil
}
func (c *CpuIDReg) W32(off uint32, val uint32) *MemException { return InvalidAccess() }
func (c *CpuIDReg) R8(off uint32) (uint8, *MemException) {
	v, e := c.R32(0)
	return uint8(v), e
}
func (c *CpuIDReg) W8(off uint32, val uint8) *MemException { return InvalidAccess() }
func (c *CpuIDReg) R16(off uint32) (uint16, *MemException) {
	v, e := c.R32(0)
	return uint16(v), e
}
func (c *CpuIDReg) W16(off uint32, val uint16) *MemException { return InvalidAccess() }

// PPCon is the poorly-documented PP50xx top-level controller: an ID
// string, bootstrap/device-init/device-timing scratch registers, and
// 32 general-purpose outputs.
type PPCon struct {
	devInit        [8]uint32
	devTiming      [3]uint32
	bootstrapMaybe [2]uint32
	gpoVal, gpoEnable, gpoInputEnable uint32
}

func NewPPCon() *PPCon { return &PPCon{} }

func (p *PPCon) Kind() string { return "PP Controller" }

func (p *PPCon) R32(off uint32) (uint32, *MemException) {
	switch off {
	case 0x00:
		return 0x30355050, nil // "PP50"
	case 0x04:
		return 0x20443032, nil // "20D "
	case 0x08:
		return 0, StubRead(SeverityInfo, p.bootstrapMaybe[0])
	case 0x0c:
		return 0, StubRead(SeverityInfo, p.bootstrapMaybe[1])
	case 0x10, 0x14, 0x18, 0x1c, 0x20, 0x24:
		idx := (off - 0x10) / 4
		return 0, StubRead(SeverityInfo, p.devInit[idx])
	case 0x28:
		return 0, StubRead(SeverityInfo, p.devInit[6]|0x80) // unblocks USB init in guest bootloaders
	case 0x2c:
		return 0, StubRead(SeverityInfo, p.devInit[7])
	case 0x30:
		return 0, StubRead(SeverityInfo, p.devTiming[0])
	case 0x34:
		return 0, StubRead(SeverityInfo, p.devTiming[1])
	case 0x3c:
		return 0, StubRead(SeverityInfo, p.devTiming[2])
	case 0x80:
		return p.gpoVal, nil
	case 0x84:
		return p.gpoEnable, nil
	case 0x88:
		return 0, StubRead(SeverityInfo, 0)
	case 0x8c:
		return p.gpoInputEnable, nil
	default:
		return 0, Unexpected()
	}
}

func (p *PPCon) W32(off uint32, val uint32) *MemException {
	switch off {
	case 0x00, 0x04, 0x88:
		return InvalidAccess()
	case 0x08:
		p.bootstrapMaybe[0] = val
		return StubWrite(SeverityInfo)
	case 0x0c:
		p.bootstrapMaybe[1] = val
		return StubWrite(SeverityInfo)
	case 0x10, 0x14, 0x18, 0x1c, 0x20, 0x24, 0x28, 0x2c:
		idx := (off - 0x10) / 4
		p.devInit[idx] = val
		return StubWrite(SeverityInfo)
	case 0x30:
		p.devTiming[0] = val | 0x8000000 // unblocks the flash-ROM bootloader
		return StubWrite(SeverityInfo)
	case 0x34:
		p.devTiming[1] = val
		return StubWrite(SeverityInfo)
	case 0x3c:
		p.devTiming[2] = val | 0x80000000 // unblocks the flash-ROM bootloader
		return StubWrite(SeverityInfo)
	case 0x80:
		p.gpoVal = val
		return nil
	case 0x84:
		p.gpoEnable = val
		return nil
	case 0x8c:
		p.gpoInputEnable = val
		return nil
	default:
		return Unexpected()
	}
}

func (p *PPCon) R8(off uint32) (uint8, *MemException) {
	v, e := p.R32(off &^ 3)
	return uint8(v >> ((off & 3) * 8)), e
}
func (p *PPCon) W8(off uint32, val uint8) *MemException { return StubWrite(SeverityInfo) }
func (p *PPCon) R16(off uint32) (uint16, *MemException) {
	v, e := p.R32(off &^ 3)
	return uint16(v >> ((off & 2) * 8)), e
}
func (p *PPCon) W16(off uint32, val uint16) *MemException { return StubWrite(SeverityInfo) }

// dmaChan is one of the 8-channel DMA engine's channels.
type dmaChan struct {
	cmd, status, ramAddr, flags, perAddr, incr uint32
}

// DmaCon is the general-purpose 8-channel DMA engine at
// 0x6000A000..0x6000BFFF — distinct from the EIDE-specific DMA bridge
// in eide.go, per the original's comment that IDE DMA is routed
// through the main engine only as an emulator simplification.
type DmaCon struct {
	chans                               [8]dmaChan
	masterControl, masterStatus, reqStatus uint32
}

func NewDmaCon() *DmaCon { return &DmaCon{} }

func (d *DmaCon) Kind() string { return "DMA Engine" }

func (d *DmaCon) R32(off uint32) (uint32, *MemException) {
	switch {
	case off == 0x0:
		return 0, StubRead(SeverityError, d.masterControl)
	case off == 0x4:
		return 0, StubRead(SeverityError, d.masterStatus)
	case off == 0x8:
		return 0, StubRead(SeverityError, d.reqStatus)
	case off >= 0x1000 && off <= 0x10ff:
		id := (off - 0x1000) / 0x20
		ch := &d.chans[id]
		switch off % 0x20 {
		case 0x00:
			return 0, StubRead(SeverityError, ch.cmd)
		case 0x04:
			return 0, StubRead(SeverityError, ch.status)
		case 0x10:
			return 0, StubRead(SeverityError, ch.ramAddr)
		case 0x14:
			return 0, StubRead(SeverityError, ch.flags)
		case 0x18:
			return 0, StubRead(SeverityError, ch.perAddr)
		case 0x1c:
			return 0, StubRead(SeverityError, ch.incr)
		default:
			return 0, Unexpected()
		}
	default:
		return 0, Unexpected()
	}
}

func (d *DmaCon) W32(off uint32, val uint32) *MemException {
	switch {
	case off == 0x0:
		d.masterControl = val
		return StubWrite(SeverityError)
	case off == 0x4:
		d.masterStatus = val
		return StubWrite(SeverityError)
	case off == 0x8:
		d.reqStatus = val
		return StubWrite(SeverityError)
	case off >= 0x1000 && off <= 0x10ff:
		id := (off - 0x1000) / 0x20
		ch := &d.chans[id]
		switch off % 0x20 {
		case 0x00:
			ch.cmd = val
		case 0x04:
			ch.status = val
		case 0x10:
			ch.ramAddr = val
		case 0x14:
			ch.flags = val
		case 0x18:
			ch.perAddr = val
		case 0x1c:
			ch.incr = val
		default:
			return Unexpected()
		}
		return StubWrite(SeverityError)
	default:
		return Unexpected()
	}
}

func (d *DmaCon) R8(off uint32) (uint8, *MemException) {
	v, e := d.R32(off &^ 3)
	return uint8(v >> ((off & 3) * 8)), e
}
func (d *DmaCon) W8(off uint32, val uint8) *MemException { return StubWrite(SeverityInfo) }
func (d *DmaCon) R16(off uint32) (uint16, *MemException) {
	v, e := d.R32(off &^ 3)
	return uint16(v >> ((off & 2) * 8)), e
}
func (d *DmaCon) W16(off uint32, val uint16) *MemException { return StubWrite(SeverityInfo) }

// Serial is a 16550-ish UART stub; writes to the data register are
// echoed to stdout like a bring-up console.
type Serial struct {
	label            string
	ier, fcr, lcr, mcr uint8
}

func NewSerial(label string) *Serial { return &Serial{label: label} }

func (s *Serial) Kind() string { return "Serial " + s.label }

func (s *Serial) R32(off uint32) (uint32, *MemException) {
	switch off {
	case 0x00:
		return 0, StubRead(SeverityInfo, 0)
	case 0x04:
		return 0, StubRead(SeverityInfo, uint32(s.ier))
	case 0x08:
		return 0, StubRead(SeverityInfo, uint32(s.fcr))
	case 0x0c:
		return 0, StubRead(SeverityInfo, uint32(s.lcr))
	case 0x10:
		return 0, StubRead(SeverityInfo, uint32(s.mcr))
	case 0x14:
		return 0x21, nil // always ready to tx and rx
	case 0x18, 0x1c:
		return 0, Unimplemented()
	default:
		return 0, Unexpected()
	}
}

func (s *Serial) W32(off uint32, val uint32) *MemException {
	switch off {
	case 0x00:
		b := byte(val)
		if b >= 0x20 && b < 0x7f || b == '\n' || b == '\r' {
			fmt.Printf("%c", b)
		} else {
			fmt.Printf("\\x%02x", b)
		}
		return nil
	case 0x04:
		s.ier = uint8(val)
		return StubWrite(SeverityInfo)
	case 0x08:
		s.fcr = uint8(val)
		return StubWrite(SeverityInfo)
	case 0x0c:
		s.lcr = uint8(val)
		return StubWrite(SeverityInfo)
	case 0x10:
		s.mcr = uint8(val)
		return StubWrite(SeverityInfo)
	case 0x14:
		return InvalidAccess()
	case 0x18, 0x1c:
		return Unimplemented()
	default:
		return Unexpected()
	}
}

func (s *Serial) R8(off uint32) (uint8, *MemException) {
	v, e := s.R32(off &^ 3)
	return uint8(v >> ((off & 3) * 8)), e
}
func (s *Serial) W8(off uint32, val uint8) *MemException { return s.W32(off&^3, uint32(val)) }
func (s *Serial) R16(off uint32) (uint16, *MemException) {
	v, e := s.R32(off &^ 3)
	return uint16(v >> ((off & 2) * 8)), e
}
func (s *Serial) W16(off uint32, val uint16) *MemException { return s.W32(off&^3, uint32(val)) }

// pwmChannel mirrors the Tegra-like {enabled, duty, scale} bitpacking.
type pwmChannel struct {
	enabled bool
	duty    uint8
	scale   uint16
}

func (c pwmChannel) read() uint32 {
	var v uint32
	if c.enabled {
		v |= 1 << 31
	}
	v |= uint32(c.duty) << 16
	v |= uint32(c.scale) & 0x1FFF
	return v
}

func (c *pwmChannel) write(val uint32) {
	c.enabled = val&(1<<31) != 0
	c.duty = uint8((val >> 16) & 0xFF)
	c.scale = uint16(val & 0x1FFF)
}

// Pwm is the 4-channel PWM controller (channel 1 drives the LCD
// backlight, channel 0 the piezo speaker on real hardware).
type Pwm struct {
	ch [4]pwmChannel
}

func NewPwm() *Pwm { return &Pwm{} }

func (p *Pwm) Kind() string { return "PWM Controller" }

func (p *Pwm) R32(off uint32) (uint32, *MemException) {
	switch off {
	case 0x00, 0x10, 0x20, 0x30:
		return p.ch[off/0x10].read(), nil
	default:
		return 0, Unexpected()
	}
}

func (p *Pwm) W32(off uint32, val uint32) *MemException {
	switch off {
	case 0x00, 0x10, 0x20, 0x30:
		p.ch[off/0x10].write(val)
		return nil
	default:
		return Unexpected()
	}
}

func (p *Pwm) R8(off uint32) (uint8, *MemException) {
	v, e := p.R32(off &^ 3)
	return uint8(v >> ((off & 3) * 8)), e
}
func (p *Pwm) W8(off uint32, val uint8) *MemException { return StubWrite(SeverityInfo) }
func (p *Pwm) R16(off uint32) (uint16, *MemException) {
	v, e := p.R32(off &^ 3)
	return uint16(v >> ((off & 2) * 8)), e
}
func (p *Pwm) W16(off uint32, val uint16) *MemException { return StubWrite(SeverityInfo) }

// I2S is the I2S audio interface, entirely stubbed (audio output is an
// explicit Non-goal).
type I2S struct {
	config, clock, fifoCfg uint32
}

func NewI2S() *I2S { return &I2S{} }

func (i *I2S) Kind() string { return "I2S Controller" }

func (i *I2S) R32(off uint32) (uint32, *MemException) {
	switch off {
	case 0x00:
		return 0, StubRead(SeverityError, i.config)
	case 0x08:
		return 0, StubRead(SeverityError, i.clock)
	case 0x0c:
		return 0, StubRead(SeverityError, i.fifoCfg)
	case 0x40, 0x80:
		return 0, Unimplemented()
	default:
		return 0, Unexpected()
	}
}

func (i *I2S) W32(off uint32, val uint32) *MemException {
	switch off {
	case 0x00:
		i.config = val
		return StubWrite(SeverityError)
	case 0x08:
		i.clock = val
		return StubWrite(SeverityError)
	case 0x0c:
		i.fifoCfg = val
		return StubWrite(SeverityError)
	case 0x40, 0x80:
		return Unimplemented()
	default:
		return Unexpected()
	}
}

func (i *I2S) R8(off uint32) (uint8, *MemException) {
	v, e := i.R32(off &^ 3)
	return uint8(v >> ((off & 3) * 8)), e
}
func (i *I2S) W8(off uint32, val uint8) *MemException { return StubWrite(SeverityInfo) }
func (i *I2S) R16(off uint32) (uint16, *MemException) {
	v, e := i.R32(off &^ 3)
	return uint16(v >> ((off & 2) * 8)), e
}
func (i *I2S) W16(off uint32, val uint16) *MemException { return StubWrite(SeverityInfo) }
