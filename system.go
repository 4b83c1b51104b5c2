// system.go - the Ipod4g top-level: device composition, address
// translation, and the cooperative step loop.
//
// Grounded on original_source/clicky-core/src/sys/ipod4g/mod.rs (full
// read: device construction order, IRQ line wiring, mmap! dispatch, and
// the step()/run() loop) and the teacher's machine_bus.go/NewCPU(bus)
// constructor-argument idiom (see DESIGN.md §10).

package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"golang.org/x/sync/errgroup"
)

const (
	core0 = coreCPU // primary core
	core1 = coreCOP // coprocessor
)

// Ipod4g composes every PP5020 device, the shared bus, and the two
// ARM7TDMI-class cores into one steppable system.
type Ipod4g struct {
	bus *Bus

	cores [2]Core

	memcon *MemCon
	intcon *IntCon
	cpuid  *CpuIDReg

	flash   *Flash
	sdram   *RAM
	fastram *RAM

	mailbox  *Mailbox
	cpucon   *CpuCon
	devcon   *DevCon
	cachecon *CacheCon
	evp      *Evp
	dmacon   *DmaCon
	ppcon    *PPCon

	timer1, timer2 *CfgTimer
	usecTimer      *UsecTimer

	gpioABCD, gpioEFGH, gpioIJKL                *GpioBlock
	gpioMirrorABCD, gpioMirrorEFGH, gpioMirrorIJKL *GpioAtomicMirror

	lcd     *Lcd
	serial0 *Serial
	serial1 *Serial
	pwm     *Pwm
	i2c     *I2C
	i2s     *I2S
	opto    *Opto
	pcf     *Pcf5060x

	eide *Eide
	ide  *IdeController

	mysteryIRQCon *Stub
	totalMystery  *Stub
	mysteryFlash  *Stub
	firewire      *Stub

	sniffers [2]*Sniffer
	adapters [2]*Adapter

	skipIRQCheck bool // set by the GDB stub while single-stepping

	frozen   bool
	fatalErr error
	dumpPath string

	shutdown func()
	eg       *errgroup.Group
}

// NewIpod4g constructs a fully-wired system: devices first (leaves
// first, per spec.md §3 "Lifecycle"), then signal lines into the
// interrupt controller, then the bus installs, then the two cores.
func NewIpod4g(hdd BlockDev, dumpPath string) *Ipod4g {
	ctx, cancel := context.WithCancel(context.Background())
	eg, _ := errgroup.WithContext(ctx)

	s := &Ipod4g{
		memcon: NewMemCon(),
		intcon: NewIntCon(),
		cpuid:  NewCpuIDReg(),

		flash:   NewFlash(),
		sdram:   NewRAM(sdramEnd - sdramBase + 1),
		fastram: NewRAM(fastramEnd - fastramBase + 1),

		devcon:   NewDevCon(),
		cachecon: NewCacheCon(),
		evp:      NewEvp(),
		dmacon:   NewDmaCon(),
		ppcon:    NewPPCon(),

		usecTimer: NewUsecTimer(),

		serial0: NewSerial("0"),
		serial1: NewSerial("1"),
		pwm:     NewPwm(),
		i2s:     NewI2S(),
		pcf:     NewPcf5060x(),

		mysteryIRQCon: NewStub("Mystery IRQ Con?"),
		totalMystery:  NewStub("<total mystery>"),
		mysteryFlash:  NewStub("Mystery FlashROM Con?"),
		firewire:      NewStub("Firewire Con?"),

		dumpPath: dumpPath,
		shutdown: cancel,
		eg:       eg,
	}

	// IRQ lines, registered into the interrupt controller at the same
	// line numbers the original assigns (see system_map.go).
	timer1Line := NewLine(TriggerNone)
	timer2Line := NewLine(TriggerNone)
	ideLine := NewLine(TriggerNone)
	gpioALine := NewLine(TriggerNone)
	gpioELine := NewLine(TriggerNone)
	gpioILine := NewLine(TriggerNone)
	i2cLine := NewLine(TriggerNone)
	mbxCPULine := NewLine(TriggerNone)
	mbxCOPLine := NewLine(TriggerNone)
	cpuconCPULine := NewLine(TriggerNone)
	cpuconCOPLine := NewLine(TriggerNone)
	// ideDmaLine is the IDE drive's DMA-request leg. DmaCon (the
	// general 8-channel engine) is a pure register stub in this build
	// (see periph.go) - IDE DMA is driven directly by Eide's own
	// dmaCtrl/dmaLength registers, so nothing observes this line, but
	// the drive still asserts/releases it on every DMA command and
	// needs a live Sender to do so.
	ideDmaLine := NewLine(TriggerNone)

	s.intcon.Register(0, irqLineTimer1, timer1Line)
	s.intcon.Register(0, irqLineTimer2, timer2Line)
	s.intcon.RegisterCoreSpecific(0, irqLineMailbox, mbxCPULine, mbxCOPLine)
	s.intcon.Register(0, irqLineIDE, ideLine)
	s.intcon.Register(1, irqLineGpioA-32, gpioALine)
	s.intcon.Register(1, irqLineGpioE-32, gpioELine)
	s.intcon.Register(1, irqLineGpioI-32, gpioILine)
	s.intcon.Register(1, irqLineI2C-32, i2cLine)

	// CPU-control's own per-core wake-interrupt legs are not named in
	// spec.md's IRQ enumeration; they are not bus-routed through the
	// interrupt controller at all in the original (cpucon wakes a core
	// directly via its own timed task), so cpuconCPULine/cpuconCOPLine
	// are senders CpuCon holds privately and are never registered with
	// IntCon - see cpucon.go's onUpdate.
	s.cpucon = NewCpuCon(cpuconCPULine.NewSender(), cpuconCOPLine.NewSender())

	s.timer1 = NewCfgTimer(timer1Line.NewSender())
	s.timer2 = NewCfgTimer(timer2Line.NewSender())
	s.mailbox = NewMailbox(mbxCPULine.NewSender(), mbxCOPLine.NewSender())

	s.gpioABCD = NewGpioBlock(gpioALine)
	s.gpioEFGH = NewGpioBlock(gpioELine)
	s.gpioIJKL = NewGpioBlock(gpioILine)
	s.gpioMirrorABCD = NewGpioAtomicMirror(s.gpioABCD)
	s.gpioMirrorEFGH = NewGpioAtomicMirror(s.gpioEFGH)
	s.gpioMirrorIJKL = NewGpioAtomicMirror(s.gpioIJKL)

	s.lcd = NewLcd()

	s.i2c = NewI2C()
	s.i2c.Register(0x08, s.pcf)
	s.opto = NewOpto(i2cLine.NewSender())

	s.ide = NewIdeController(hdd, nil, ideLine.NewSender(), ideDmaLine.NewSender())
	s.eide = NewEide(s.ide)

	s.bus = NewBus()
	s.installDevices()

	s.cores[core0] = NewStubCore(core0)
	s.cores[core1] = NewStubCore(core1)
	for i := range s.cores {
		s.sniffers[i] = NewSniffer(s.bus)
		s.adapters[i] = NewAdapter(&coreBus{sys: s, sniffer: s.sniffers[i]}, s.bus.Probe)
	}

	return s
}

// coreBus implements BusAccessor by applying the low-vector-table
// rewrite and the MMU translation of spec.md §4.1 before delegating to
// the sniffer-wrapped bus. The memory controller's "current core" must
// already be selected by the caller (dispatchCore does this).
type coreBus struct {
	sys     *Ipod4g
	sniffer *Sniffer
}

func (c *coreBus) rewrite(addr uint32) uint32 {
	if addr < 0x20 && c.sys.cachecon.LocalEVT() {
		return addr | evpMirrorBase
	}
	return addr
}

func (c *coreBus) translate(addr uint32, kind AccessKind) (uint32, *MemException) {
	return c.sys.memcon.VirtToPhys(c.rewrite(addr), kind)
}

func (c *coreBus) R8(addr uint32) (uint8, *MemException) {
	p, e := c.translate(addr, AccessRead)
	if e != nil {
		return 0, e
	}
	return c.sniffer.R8(p)
}
func (c *coreBus) W8(addr uint32, val uint8) *MemException {
	p, e := c.translate(addr, AccessWrite)
	if e != nil {
		return e
	}
	return c.sniffer.W8(p, val)
}
func (c *coreBus) R16(addr uint32) (uint16, *MemException) {
	p, e := c.translate(addr, AccessRead)
	if e != nil {
		return 0, e
	}
	return c.sniffer.R16(p)
}
func (c *coreBus) W16(addr uint32, val uint16) *MemException {
	p, e := c.translate(addr, AccessWrite)
	if e != nil {
		return e
	}
	return c.sniffer.W16(p, val)
}
func (c *coreBus) R32(addr uint32) (uint32, *MemException) {
	p, e := c.translate(addr, AccessRead)
	if e != nil {
		return 0, e
	}
	return c.sniffer.R32(p)
}
func (c *coreBus) W32(addr uint32, val uint32) *MemException {
	p, e := c.translate(addr, AccessWrite)
	if e != nil {
		return e
	}
	return c.sniffer.W32(p, val)
}
func (c *coreBus) X16(addr uint32) (uint16, *MemException) {
	p, e := c.translate(addr, AccessExecute)
	if e != nil {
		return 0, e
	}
	return c.sniffer.X16(p)
}
func (c *coreBus) X32(addr uint32) (uint32, *MemException) {
	p, e := c.translate(addr, AccessExecute)
	if e != nil {
		return 0, e
	}
	return c.sniffer.X32(p)
}

// LoadFlash replaces the ROM contents from a host file.
func (s *Ipod4g) LoadFlash(path string) error { return s.flash.LoadImage(path) }

// Probe renders the device-chain string for a physical address, used by
// exception resolution and the GDB `probe` monitor command.
func (s *Ipod4g) Probe(addr uint32) string { return s.bus.Probe(addr) }

// VectorTable returns the 8 exception vectors currently staged in the
// EVP device, for the GDB `dumpsys` command.
func (s *Ipod4g) VectorTable() [8]uint32 {
	var out [8]uint32
	for i := range out {
		v, _ := s.evp.VectorAt(uint32(i) * 4)
		out[i] = v
	}
	return out
}

// SetSkipIRQCheck is the GDB stub's single-step toggle (spec.md §6
// monitor command `single_step_irq`).
func (s *Ipod4g) SetSkipIRQCheck(skip bool) { s.skipIRQCheck = skip }

// LCDSnapshot renders the LCD's current CGRAM contents into an RGB
// framebuffer, for main.go's -lcd-dump file that cmd/lcdsnap reads (§1: the
// pixel→framebuffer conversion itself is an external collaborator, but
// a raw snapshot dump is in scope).
func (s *Ipod4g) LCDSnapshot() (pix []uint32, w, h int) { return s.lcd.Snapshot() }

// Frozen reports whether a fatal error has halted the system.
func (s *Ipod4g) Frozen() bool { return s.frozen }

// FatalError returns the error that froze the system, if any.
func (s *Ipod4g) FatalError() error { return s.fatalErr }

// Step executes one tick of the loop described by spec.md §4.11. It
// returns false only once a fatal error has frozen the system.
func (s *Ipod4g) Step() bool {
	if s.frozen {
		return false
	}

	// 1. Per-core dispatch.
	for core := 0; core < 2; core++ {
		if !s.cpucon.Running(core) {
			continue
		}
		s.dispatchCore(core)
		if s.frozen {
			return false
		}
	}

	if s.skipIRQCheck {
		return true
	}

	// 2. Timers self-drive their IRQ legs via background time.AfterFunc
	// callbacks (timers.go); there is no separate cooperative-task
	// runtime to pump here, unlike the original's tokio-style executor.

	// 3. DMA.
	if s.eide.DMAPending() {
		if e := s.eide.DoDMA(s.bus); e != nil {
			s.resolveFatal(core0, 0, e)
			return false
		}
	}

	// 4. GPIO update: re-sample external inputs and re-evaluate IRQs on
	// every tick (register writes already call Update() themselves; see
	// gpio.go), covering host-driven input-source changes too.
	s.gpioABCD.Update()
	s.gpioEFGH.Update()
	s.gpioIJKL.Update()

	// 5. I2C-change notification.
	if s.i2c.changeTrigger.Changed() {
		s.opto.NotifyChange()
	}

	// 6. IRQ injection.
	cpuStatus, copStatus := s.intcon.Query()
	s.injectIRQ(core0, cpuStatus)
	s.injectIRQ(core1, copStatus)

	return true
}

func (s *Ipod4g) injectIRQ(core int, st IntStatus) {
	c := s.cores[core]
	if st.IRQ {
		s.cpucon.WakeOnInterrupt(core)
		c.Wake()
		c.Inject(ExcIRQ)
	}
	if st.FIQ {
		s.cpucon.WakeOnInterrupt(core)
		c.Wake()
		c.Inject(ExcFIQ)
	}
}

// dispatchCore performs the per-core routing-context selection, steps
// one instruction, and resolves any stashed exception, per spec.md
// §4.1/§4.11 step 1.
func (s *Ipod4g) dispatchCore(core int) {
	s.memcon.SelectCore(core)
	s.cpuid.SetCore(core)

	adapter := s.adapters[core]
	pc := s.cores[core].PC()
	s.cores[core].Step(adapter)
	if e := adapter.StepDone(); e != nil {
		s.resolveException(core, pc, e)
	}
}

// resolveException implements spec.md §7's resolver: stub reads/writes
// and low-severity contract violations log and continue; everything
// else freezes the system.
func (s *Ipod4g) resolveException(core int, pc uint32, e *MemException) {
	inner, inDevice := e.Resolve()
	if inDevice == "" {
		inDevice = s.Probe(pc)
	}
	if !inner.Fatal() {
		log.Printf("[pp5020] core=%d pc=%#x device=%s: %v", core, pc, inDevice, inner)
		return
	}
	s.resolveFatal(core, pc, inner)
}

func (s *Ipod4g) resolveFatal(core int, pc uint32, e *MemException) {
	s.frozen = true
	s.fatalErr = fmt.Errorf("fatal memory exception: core=%d pc=%#x device=%s: %w", core, pc, s.Probe(pc), e)
	s.writeDump()
}

// writeDump writes a textual post-mortem system-dump file, per spec.md
// §7 "writes a textual dump".
func (s *Ipod4g) writeDump() {
	if s.dumpPath == "" {
		return
	}
	var buf []byte
	buf = append(buf, fmt.Sprintf("pp5020 fatal error\n%v\n\n", s.fatalErr)...)
	for core := 0; core < 2; core++ {
		buf = append(buf, fmt.Sprintf("core %d: pc=%#x mode=%s\n", core, s.cores[core].PC(), s.cores[core].Mode())...)
		for r := 0; r < 16; r++ {
			buf = append(buf, fmt.Sprintf("  r%-2d = %#010x\n", r, s.cores[core].Register(r))...)
		}
	}
	if err := os.WriteFile(s.dumpPath, buf, 0o644); err != nil {
		log.Printf("[pp5020] failed to write system dump: %v", err)
	}
}

// Run drives the step loop until a fatal error freezes the system.
func (s *Ipod4g) Run() error {
	for s.Step() {
	}
	return s.fatalErr
}

// Close stops the two countdown timers, cancels the system context and
// waits for every function started via Supervise, returning the first
// error from the shared errgroup.
func (s *Ipod4g) Close() error {
	s.timer1.Stop()
	s.timer2.Stop()
	s.shutdown()
	return s.eg.Wait()
}

// Supervise runs fn as a goroutine in the system's errgroup, so Close
// waits for it and returns its error. The timers are not in this group.
func (s *Ipod4g) Supervise(fn func() error) { s.eg.Go(fn) }
