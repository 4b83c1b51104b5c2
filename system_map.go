// system_map.go - the PP5020 physical bus address map
//
// Grounded on spec.md §6 and, for exact sub-ranges the spec's table
// abbreviates with "..", original_source/clicky-core/src/sys/ipod4g/
// mod.rs's mmap! macro invocation (full read; see DESIGN.md).

package main

// Base addresses named because other parts of the system reference them
// directly (the low-vector-table rewrite target, the EIDE DMA bridge's
// RAM-side address space).
const (
	flashBase   = 0x00000000
	flashEnd    = 0x000FFFFF
	sdramBase   = 0x10000000
	sdramEnd    = 0x11FFFFFF
	fastramBase = 0x40000000
	fastramEnd  = 0x40017FFF

	cpuidBase = 0x60000000
	cpuidEnd  = 0x60000FFF

	mailboxBase = 0x60001000
	mailboxEnd  = 0x6000102F

	intconBase = 0x60004000
	intconEnd  = 0x600041FF

	timer1Base = 0x60005000
	timer1End  = 0x60005007
	timer2Base = 0x60005008
	timer2End  = 0x6000500F
	usecBase   = 0x60005010
	usecEnd    = 0x60005013

	devconBase = 0x60006000
	devconEnd  = 0x60006FFF

	cpuconBase = 0x60007000
	cpuconEnd  = 0x60007FFF

	dmaconBase = 0x6000A000
	dmaconEnd  = 0x6000BFFF

	cacheconBase = 0x6000C000
	cacheconEnd  = 0x6000CFFF

	gpioABCDBase = 0x6000D000
	gpioABCDEnd  = 0x6000D07F
	gpioEFGHBase = 0x6000D080
	gpioEFGHEnd  = 0x6000D0FF
	gpioIJKLBase = 0x6000D100
	gpioIJKLEnd  = 0x6000D17F

	gpioMirrorABCDBase = 0x6000D800
	gpioMirrorABCDEnd  = 0x6000D87F
	gpioMirrorEFGHBase = 0x6000D880
	gpioMirrorEFGHEnd  = 0x6000D8FF
	gpioMirrorIJKLBase = 0x6000D900
	gpioMirrorIJKLEnd  = 0x6000D97F

	// evpMirrorBase is the low-vector-table rewrite target (spec.md §4.1
	// step 1): addresses below 0x20 alias there when local_evt is set.
	// Both windows map the same EVP device.
	evpBase       = 0x6000F000
	evpEnd        = 0x6000F01F
	evpMirrorBase = 0x6000F100
	evpMirrorEnd  = 0x6000F11F

	ppconBase = 0x70000000
	ppconEnd  = 0x70001FFF

	lcdBase = 0x70003000
	lcdEnd  = 0x7000301F

	serial0Base = 0x70006000
	serial0End  = 0x70006020
	serial1Base = 0x70006040
	serial1End  = 0x70006060

	pwmBase = 0x7000A000
	pwmEnd  = 0x7000A03F

	i2cBase = 0x7000C000
	i2cEnd  = 0x7000C0FF

	optoBase = 0x7000C100
	optoEnd  = 0x7000C1FF

	i2sBase = 0x70002800
	i2sEnd  = 0x700028FF

	eideBase = 0xC3000000
	eideEnd  = 0xC3000FFF

	memconBase = 0xF0000000
	memconEnd  = 0xF000FFFF

	// Mystery ranges firmware touches with no documented semantics
	// (spec.md §9 Open Questions; original_source's Stub entries).
	mysteryIRQCon1   = 0x60001038
	mysteryIRQCon2   = 0x6000111C
	mysteryIRQCon3   = 0x60001128
	mysteryIRQCon4   = 0x60001138
	totalMystery1Lo  = 0x60003000
	totalMystery1Hi  = 0x600030FF
	totalMystery2Lo  = 0x60009000
	totalMystery2Hi  = 0x600090FF
	totalMysteryLCD  = 0x70003800
	mysteryFlash1    = 0xC031B1D8
	mysteryFlash2    = 0xC031B1E8
	mysteryFirewire  = 0xC600008C
	mysteryFlashLoLo = 0xFFFFFE00
	mysteryFlashLoHi = 0xFFFFFFFF
)

// IRQ line assignments within the interrupt controller's 64-line space,
// per original_source's ipod4g mod.rs wiring (full read; see
// DESIGN.md) - the spec names the registered devices but not their line
// numbers.
const (
	irqLineTimer1  = 0
	irqLineTimer2  = 1
	irqLineMailbox = 4
	irqLineIDE     = 23
	irqLineGpioA   = 32
	irqLineGpioE   = 33
	irqLineGpioI   = 34
	irqLineI2C     = 40
)

// installDevices maps every device into the bus at the ranges above.
func (s *Ipod4g) installDevices() {
	b := s.bus
	b.Install(flashBase, flashEnd, "Flash", s.flash)
	b.Install(sdramBase, sdramEnd, "SDRAM", s.sdram)
	b.Install(fastramBase, fastramEnd, "FastRAM", s.fastram)

	b.Install(cpuidBase, cpuidEnd, "CPUID", s.cpuid)
	b.Install(mailboxBase, mailboxEnd, "Mailbox", s.mailbox)
	b.Install(intconBase, intconEnd, "IntCon", s.intcon)
	b.Install(timer1Base, timer1End, "Timer1", s.timer1)
	b.Install(timer2Base, timer2End, "Timer2", s.timer2)
	b.Install(usecBase, usecEnd, "UsecTimer", s.usecTimer)
	b.Install(devconBase, devconEnd, "DevCon", s.devcon)
	b.Install(cpuconBase, cpuconEnd, "CpuCon", s.cpucon)
	b.Install(dmaconBase, dmaconEnd, "DmaCon", s.dmacon)
	b.Install(cacheconBase, cacheconEnd, "CacheCon", s.cachecon)

	b.Install(gpioABCDBase, gpioABCDEnd, "GPIO-ABCD", s.gpioABCD)
	b.Install(gpioEFGHBase, gpioEFGHEnd, "GPIO-EFGH", s.gpioEFGH)
	b.Install(gpioIJKLBase, gpioIJKLEnd, "GPIO-IJKL", s.gpioIJKL)
	b.Install(gpioMirrorABCDBase, gpioMirrorABCDEnd, "GPIO-ABCD-Mirror", s.gpioMirrorABCD)
	b.Install(gpioMirrorEFGHBase, gpioMirrorEFGHEnd, "GPIO-EFGH-Mirror", s.gpioMirrorEFGH)
	b.Install(gpioMirrorIJKLBase, gpioMirrorIJKLEnd, "GPIO-IJKL-Mirror", s.gpioMirrorIJKL)

	b.Install(evpBase, evpEnd, "EVP", s.evp)
	b.Install(evpMirrorBase, evpMirrorEnd, "EVP-Mirror", s.evp)

	b.Install(ppconBase, ppconEnd, "PPCon", s.ppcon)
	b.Install(lcdBase, lcdEnd, "LCD", s.lcd)
	b.Install(serial0Base, serial0End, "Serial0", s.serial0)
	b.Install(serial1Base, serial1End, "Serial1", s.serial1)
	b.Install(pwmBase, pwmEnd, "PWM", s.pwm)
	b.Install(i2cBase, i2cEnd, "I2C", s.i2c)
	b.Install(optoBase, optoEnd, "Opto", s.opto)
	b.Install(i2sBase, i2sEnd, "I2S", s.i2s)
	b.Install(eideBase, eideEnd, "EIDE", s.eide)
	b.Install(memconBase, memconEnd, "MemCon", s.memcon)

	b.Install(mysteryIRQCon1, mysteryIRQCon1, "MysteryIRQCon", s.mysteryIRQCon)
	b.Install(mysteryIRQCon2, mysteryIRQCon2, "MysteryIRQCon", s.mysteryIRQCon)
	b.Install(mysteryIRQCon3, mysteryIRQCon3, "MysteryIRQCon", s.mysteryIRQCon)
	b.Install(mysteryIRQCon4, mysteryIRQCon4, "MysteryIRQCon", s.mysteryIRQCon)
	b.Install(totalMystery1Lo, totalMystery1Hi, "TotalMystery", s.totalMystery)
	b.Install(totalMystery2Lo, totalMystery2Hi, "TotalMystery", s.totalMystery)
	b.Install(totalMysteryLCD, totalMysteryLCD, "TotalMystery", s.totalMystery)
	b.Install(mysteryFlash1, mysteryFlash1, "MysteryFlash", s.mysteryFlash)
	b.Install(mysteryFlash2, mysteryFlash2, "MysteryFlash", s.mysteryFlash)
	b.Install(mysteryFirewire, mysteryFirewire, "Firewire", s.firewire)
	b.Install(mysteryFlashLoLo, mysteryFlashLoHi, "MysteryFlash", s.mysteryFlash)
}
