package main

import "testing"

func newTestSystem() *Ipod4g {
	return NewIpod4g(NewNullBlockDev(16*1024*1024), "")
}

func TestSystemColdBootProbeNamesFlashDevice(t *testing.T) {
	s := newTestSystem()
	got := s.Probe(flashBase)
	if got == "<unmapped>" {
		t.Fatal("flashBase must resolve to the Flash device chain")
	}
}

func TestSystemTwoCoresBothDispatchOnStep(t *testing.T) {
	s := newTestSystem()
	pc0 := s.cores[core0].PC()
	pc1 := s.cores[core1].PC()

	if !s.Step() {
		t.Fatal("a fresh system's Step() must return true")
	}
	if s.cores[core0].PC() == pc0 {
		t.Fatal("core0 must have advanced on Step()")
	}
	if s.cores[core1].PC() == pc1 {
		t.Fatal("core1 must have advanced on Step()")
	}
}

func TestSystemSleepingCoreDoesNotDispatch(t *testing.T) {
	s := newTestSystem()
	_ = s.cpucon.W32(0x0, procSleep) // cpucon.SetCore defaults to core0
	pc0 := s.cores[core0].PC()

	s.Step()
	if s.cores[core0].PC() != pc0 {
		t.Fatal("a sleeping core must not dispatch on Step()")
	}
}

func TestSystemTimerIRQInjectsIntoCore(t *testing.T) {
	s := newTestSystem()
	// Enable timer1's lo-half line for the CPU (IntCon's per-core enable
	// bits default clear; nothing is routed to either core unmasked).
	_ = s.bus.W32(intconBase+0x18, 1<<uint(irqLineTimer1)) // half 0, reg 0x18: enable set, CPU
	// Arm timer1 for a one-shot fire, then trigger it directly
	// (white-box) instead of waiting on a real AfterFunc callback.
	_ = s.timer1.W32(cfgReg, (1<<31)|100) // enabled, oneshot, count=100
	s.timer1.fire(s.timer1.gen)

	if !s.Step() {
		t.Fatal("Step() must not freeze the system on a timer IRQ")
	}
	if s.cores[core0].Mode() != ModeIRQ {
		t.Fatalf("core0 must take the IRQ vector, got mode %v", s.cores[core0].Mode())
	}
	if s.cores[core0].PC() != 0x18 {
		t.Fatalf("core0 PC must land on the IRQ vector, got %#x", s.cores[core0].PC())
	}
}

func TestSystemGpioEdgeIRQPropagatesToCore(t *testing.T) {
	s := newTestSystem()
	// Wire an external input source onto GPIO-A line 0 (input_value isn't
	// bus-writable; it's only ever sampled from a registered source), then
	// configure the port for a rising-edge interrupt on that line.
	state := false
	s.gpioABCD.RegisterIn(0, func() bool { return state })
	_ = s.bus.W32(gpioABCDBase+gpioEnable, 0x01)
	_ = s.bus.W32(gpioABCDBase+gpioIntTrigger, 0x01) // rising
	_ = s.bus.W32(gpioABCDBase+gpioIntEnable, 0x01)

	// Route the GPIO-A hi-half line (idx = irqLineGpioA-32) to the COP:
	// gate bit 30 of the lo half (hi-half enable gate) and set the
	// per-line enable bit of the hi half, both for core1.
	const (
		intconLoEnableSetCOP = 0x1C        // half 0, reg 0x1C: enable set, COP
		intconHiEnableSetCOP = 0x100 + 0x1C // half 1, reg 0x1C: enable set, COP
	)
	_ = s.bus.W32(intconBase+intconLoEnableSetCOP, 1<<30)
	_ = s.bus.W32(intconBase+intconHiEnableSetCOP, 1<<uint(irqLineGpioA-32))

	state = true // drive bit 0 high: rising edge on the next Update()

	if !s.Step() {
		t.Fatal("Step() must not freeze on a GPIO IRQ")
	}
	if s.cores[core1].Mode() != ModeIRQ {
		t.Fatalf("core1 (COP) must take the IRQ vector for a hi-half line, got mode %v", s.cores[core1].Mode())
	}
}

func TestSystemIdeIdentifyViaBus(t *testing.T) {
	s := newTestSystem()
	const ideWindow = eideBase + eideIdeWindow

	if e := s.bus.W8(ideWindow+ideDeviceHead, 0xA0); e != nil { // select drive 0
		t.Fatalf("device/head select must succeed, got %v", e)
	}
	if e := s.bus.W8(ideWindow+ideStatus, cmdIdentify); e != nil {
		t.Fatalf("IDENTIFY command must succeed, got %v", e)
	}
	v, e := s.bus.R16(ideWindow + ideData)
	if e != nil {
		t.Fatalf("reading IDENTIFY data must succeed, got %v", e)
	}
	_ = v // word 0 content isn't asserted; a clean read is the contract here
}

func TestSystemFatalExceptionFreezesAndStopsStepping(t *testing.T) {
	s := newTestSystem()
	s.resolveFatal(core0, 0x1234, Fatal("test fatal"))
	if !s.Frozen() {
		t.Fatal("resolveFatal must freeze the system")
	}
	if s.Step() {
		t.Fatal("Step() must return false once frozen")
	}
	if s.FatalError() == nil {
		t.Fatal("FatalError must be non-nil once frozen")
	}
}

func TestSystemVectorTableReflectsEvpDefaults(t *testing.T) {
	s := newTestSystem()
	vt := s.VectorTable()
	if vt[0] != 0x0 || vt[7] != 0x1C {
		t.Fatalf("vector table must reflect EVP defaults, got %+v", vt)
	}
}
