package main

import "testing"

func TestStubDeviceNameAndAbsorbedAccess(t *testing.T) {
	s := NewStub("mystery_irq_con")
	if s.Kind() != "mystery_irq_con" {
		t.Fatalf("Kind must report the configured name, got %q", s.Kind())
	}
	if _, e := s.R32(0x40); e == nil || e.Kind != ExcStubRead {
		t.Fatalf("reads must be StubRead, got %v", e)
	}
	if e := s.W32(0x40, 0xFF); e == nil || e.Kind != ExcStubWrite {
		t.Fatalf("writes must be StubWrite, got %v", e)
	}
}
