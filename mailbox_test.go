package main

import "testing"

func TestMailboxSetAssertsBothCoreIRQs(t *testing.T) {
	cpuLine := NewLine(TriggerNone)
	copLine := NewLine(TriggerNone)
	m := NewMailbox(cpuLine.NewSender(), copLine.NewSender())

	_ = m.W32(mailboxSet, 0x01)

	if !cpuLine.Asserted() || !copLine.Asserted() {
		t.Fatal("a nonzero shared_bits must assert both cores' IRQ legs")
	}
	v, e := m.R32(mailboxStatus)
	if e == nil || e.Kind != ExcStubRead {
		t.Fatalf("status read must be a StubRead, got %v", e)
	}
	if rv, ok := e.Recovered(); !ok || rv != 0x01 {
		t.Fatalf("status read must carry shared_bits as its recovered value, got %v ok=%v", rv, ok)
	}
	_ = v
}

func TestMailboxClearReleasesIRQsOnceZero(t *testing.T) {
	cpuLine := NewLine(TriggerNone)
	copLine := NewLine(TriggerNone)
	m := NewMailbox(cpuLine.NewSender(), copLine.NewSender())
	_ = m.W32(mailboxSet, 0x03)
	_ = m.W32(mailboxClear, 0x01)

	if !cpuLine.Asserted() {
		t.Fatal("one remaining bit must keep the IRQ asserted")
	}
	_ = m.W32(mailboxClear, 0x02)
	if cpuLine.Asserted() || copLine.Asserted() {
		t.Fatal("clearing all bits must release both IRQ legs")
	}
}

func TestMailboxStatusIsReadOnly(t *testing.T) {
	m := NewMailbox(NewLine(TriggerNone).NewSender(), NewLine(TriggerNone).NewSender())
	if e := m.W32(mailboxStatus, 1); e == nil || e.Kind != ExcInvalidAccess {
		t.Fatalf("writing the status register must be InvalidAccess, got %v", e)
	}
}

func TestMailboxMysteryRangeIsUnimplementedOrStubbed(t *testing.T) {
	m := NewMailbox(NewLine(TriggerNone).NewSender(), NewLine(TriggerNone).NewSender())
	if _, e := m.R32(0x0C); e == nil || e.Kind != ExcUnimplemented {
		t.Fatalf("reading 0x0C must be Unimplemented, got %v", e)
	}
	if e := m.W32(0x10, 0); e == nil || e.Kind != ExcStubWrite || e.Severity != SeverityError {
		t.Fatalf("writing within 0x10-0x2F must be a SeverityError stub write, got %v", e)
	}
}
