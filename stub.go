// stub.go - named stub device for mystery/unmodeled register ranges
//
// Grounded on original_source/clicky-core/src/devices/generic/stub.rs
// and the ipod4g bus map's mystery_irq_con/total_mystery/firewire
// entries (clicky-core/src/sys/ipod4g/mod.rs), which stub registers
// firmware touches but whose true hardware semantics are undocumented
// (spec.md §9 Open Questions).

package main

// Stub is a named placeholder device: every read returns a declared
// value wrapped in StubRead, every write is absorbed by StubWrite, both
// at warn severity so MMIO traces show the access without treating it
// as fatal.
type Stub struct {
	name string
}

func NewStub(name string) *Stub { return &Stub{name: name} }

func (s *Stub) Kind() string { return s.name }

func (s *Stub) R8(off uint32) (uint8, *MemException)   { return 0, StubRead(SeverityWarn, 0) }
func (s *Stub) R16(off uint32) (uint16, *MemException) { return 0, StubRead(SeverityWarn, 0) }
func (s *Stub) R32(off uint32) (uint32, *MemException) { return 0, StubRead(SeverityWarn, 0) }

func (s *Stub) W8(off uint32, val uint8) *MemException   { return StubWrite(SeverityWarn) }
func (s *Stub) W16(off uint32, val uint16) *MemException { return StubWrite(SeverityWarn) }
func (s *Stub) W32(off uint32, val uint32) *MemException { return StubWrite(SeverityWarn) }
