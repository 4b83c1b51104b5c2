package main

import "testing"

func TestCpuIDRegDistinguishesCores(t *testing.T) {
	c := NewCpuIDReg()
	c.SetCore(coreCPU)
	v, _ := c.R32(0)
	if v != 0x55555555 {
		t.Fatalf("CPU core id mismatch, got %#x", v)
	}
	c.SetCore(coreCOP)
	v, _ = c.R32(0)
	if v != 0xaaaaaaaa {
		t.Fatalf("COP core id mismatch, got %#x", v)
	}
}

func TestCpuIDRegIsReadOnly(t *testing.T) {
	c := NewCpuIDReg()
	if e := c.W32(0, 1); e == nil || e.Kind != ExcInvalidAccess {
		t.Fatalf("writes must be InvalidAccess, got %v", e)
	}
}

func TestPPConIDStringRegisters(t *testing.T) {
	p := NewPPCon()
	v, _ := p.R32(0x00)
	if v != 0x30355050 {
		t.Fatalf("expected \"PP50\" little-endian word, got %#x", v)
	}
	v, _ = p.R32(0x04)
	if v != 0x20443032 {
		t.Fatalf("expected \"20D \" little-endian word, got %#x", v)
	}
}

func TestPPConDevTimingWritesApplyUnblockQuirks(t *testing.T) {
	p := NewPPCon()
	_ = p.W32(0x30, 0x01)
	_, e := p.R32(0x30)
	v, _ := e.Recovered()
	if v&0x8000000 == 0 {
		t.Fatal("devTiming[0] write must OR in the flash-bootloader unblock bit")
	}
	_ = p.W32(0x3c, 0x01)
	_, e = p.R32(0x3c)
	v, _ = e.Recovered()
	if v&0x80000000 == 0 {
		t.Fatal("devTiming[2] write must OR in the flash-bootloader unblock bit")
	}
}

func TestPPConGpoRegistersRoundTrip(t *testing.T) {
	p := NewPPCon()
	_ = p.W32(0x80, 0xDEAD)
	v, e := p.R32(0x80)
	if e != nil || v != 0xDEAD {
		t.Fatalf("gpo value must round-trip, got %#x err %v", v, e)
	}
}

func TestDmaConChannelRegistersStubWriteAndRoundTrip(t *testing.T) {
	d := NewDmaCon()
	if e := d.W32(0x1000, 0xAA); e == nil || e.Kind != ExcStubWrite || e.Severity != SeverityError {
		t.Fatalf("channel 0 cmd write must be a SeverityError stub write, got %v", e)
	}
	_, e := d.R32(0x1000)
	if e == nil || e.Kind != ExcStubRead {
		t.Fatalf("channel 0 cmd read must be a StubRead, got %v", e)
	}
	if rv, ok := e.Recovered(); !ok || rv != 0xAA {
		t.Fatalf("channel register must round-trip through the stub, got %v ok=%v", rv, ok)
	}
}

func TestPwmChannelRoundTrip(t *testing.T) {
	p := NewPwm()
	val := uint32(1<<31) | (200 << 16) | 100
	_ = p.W32(0x10, val) // channel 1
	got, _ := p.R32(0x10)
	if got != val {
		t.Fatalf("pwm channel 1 must round-trip exactly, got %#x want %#x", got, val)
	}
	untouched, _ := p.R32(0x00)
	if untouched != 0 {
		t.Fatal("writing channel 1 must not disturb channel 0")
	}
}

func TestI2SAudioRegistersAreStubbedSeverityError(t *testing.T) {
	i := NewI2S()
	if e := i.W32(0x00, 1); e == nil || e.Kind != ExcStubWrite || e.Severity != SeverityError {
		t.Fatalf("I2S config write must be a SeverityError stub write, got %v", e)
	}
	if _, e := i.R32(0x40); e == nil || e.Kind != ExcUnimplemented {
		t.Fatalf("I2S fifo data register must be Unimplemented, got %v", e)
	}
}
