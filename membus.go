// membus.go - MMIO dispatch fabric and the infallible-CPU/fallible-bus adapter
//
// Grounded on the teacher's memory_bus.go IORegion/page-dispatch idiom,
// generalized to the range -> device table spec.md §6 requires, and on
// original_source's mmap! macro (clicky-core/src/sys/ipod4g/mod.rs).

package main

import "sort"

// Device is one MMIO-mapped peripheral's local view of its own address
// window. Offsets passed in are already relative to the device's base.
type Device interface {
	Kind() string
	R8(offset uint32) (uint8, *MemException)
	W8(offset uint32, val uint8) *MemException
	R16(offset uint32) (uint16, *MemException)
	W16(offset uint32, val uint16) *MemException
	R32(offset uint32) (uint32, *MemException)
	W32(offset uint32, val uint32) *MemException
}

// region is one entry of the bus's static range -> device table.
type region struct {
	start, end uint32 // inclusive physical range
	name       string
	dev        Device
}

// Bus is the physical-address-space MMIO fabric: a static, sorted list
// of device ranges. It performs no address translation - that is the
// memory controller's job, applied before Dispatch is called.
type Bus struct {
	regions []region
}

// NewBus creates an empty bus.
func NewBus() *Bus { return &Bus{} }

// Install maps dev into [start,end] (inclusive) of the physical address
// space under the given diagnostic name.
func (b *Bus) Install(start, end uint32, name string, dev Device) {
	b.regions = append(b.regions, region{start, end, name, dev})
	sort.Slice(b.regions, func(i, j int) bool { return b.regions[i].start < b.regions[j].start })
}

// dispatch finds the device mapped at addr, returning it and the
// address translated to a device-local offset.
func (b *Bus) dispatch(addr uint32) (Device, uint32, string, bool) {
	// Linear scan: the PP5020 map has ~20 entries, binary search would
	// not meaningfully change anything here.
	for _, r := range b.regions {
		if addr >= r.start && addr <= r.end {
			return r.dev, addr - r.start, r.name, true
		}
	}
	return nil, 0, "", false
}

// Probe renders the device-chain string for addr, used by exception
// resolution (spec.md §8 invariant 1) and the GDB `probe` monitor
// command.
func (b *Bus) Probe(addr uint32) string {
	dev, off, name, ok := b.dispatch(addr)
	if !ok {
		return "<unmapped>"
	}
	return name + "/" + dev.Kind() + "@" + hex32(off)
}

func hex32(v uint32) string {
	const digits = "0123456789abcdef"
	buf := [10]byte{'0', 'x'}
	for i := 0; i < 8; i++ {
		buf[9-i] = digits[(v>>(4*uint(i)))&0xF]
	}
	return string(buf[:])
}

func (b *Bus) R8(addr uint32) (uint8, *MemException) {
	dev, off, _, ok := b.dispatch(addr)
	if !ok {
		return 0, Unexpected()
	}
	return dev.R8(off)
}

func (b *Bus) W8(addr uint32, val uint8) *MemException {
	dev, off, _, ok := b.dispatch(addr)
	if !ok {
		return Unexpected()
	}
	return dev.W8(off, val)
}

func (b *Bus) R16(addr uint32) (uint16, *MemException) {
	dev, off, _, ok := b.dispatch(addr)
	if !ok {
		return 0, Unexpected()
	}
	return dev.R16(off)
}

func (b *Bus) W16(addr uint32, val uint16) *MemException {
	dev, off, _, ok := b.dispatch(addr)
	if !ok {
		return Unexpected()
	}
	return dev.W16(off, val)
}

func (b *Bus) R32(addr uint32) (uint32, *MemException) {
	dev, off, _, ok := b.dispatch(addr)
	if !ok {
		return 0, Unexpected()
	}
	return dev.R32(off)
}

func (b *Bus) W32(addr uint32, val uint32) *MemException {
	dev, off, _, ok := b.dispatch(addr)
	if !ok {
		return Unexpected()
	}
	return dev.W32(off, val)
}

// X16/X32 are execute-fetch entry points. Protection is enforced by the
// memory controller before translation reaches the bus (see memcon.go
// and DESIGN.md's Open Question resolution on execute protection); at
// the bus-dispatch level an instruction fetch reads exactly like a data
// read.
func (b *Bus) X16(addr uint32) (uint16, *MemException) { return b.R16(addr) }
func (b *Bus) X32(addr uint32) (uint32, *MemException) { return b.R32(addr) }

// Sniffer wraps a Bus so that writes the wrapped core makes to watched
// addresses during one Step() are recorded (reads and unwatched
// addresses are not), for GDB watchpoint support (spec.md
// §4.11 step 1, §9 "via a memory sniffer").
type Sniffer struct {
	bus     *Bus
	watches map[uint32]bool
	hits    []WatchHit
}

// WatchHit records one watched address being touched.
type WatchHit struct {
	Addr     uint32
	Kind     AccessKind
	OldValue uint8
	NewValue uint8
}

func NewSniffer(bus *Bus) *Sniffer { return &Sniffer{bus: bus, watches: map[uint32]bool{}} }

func (s *Sniffer) Watch(addr uint32)   { s.watches[addr] = true }
func (s *Sniffer) Unwatch(addr uint32) { delete(s.watches, addr) }

// Drain returns and clears the watchpoint hits observed since the last
// Drain call.
func (s *Sniffer) Drain() []WatchHit {
	hits := s.hits
	s.hits = nil
	return hits
}

func (s *Sniffer) noteWrite(addr uint32, old, nv uint8) {
	if s.watches[addr] {
		s.hits = append(s.hits, WatchHit{addr, AccessWrite, old, nv})
	}
}

func (s *Sniffer) R8(addr uint32) (uint8, *MemException) { return s.bus.R8(addr) }
func (s *Sniffer) W8(addr uint32, val uint8) *MemException {
	old, _ := s.bus.R8(addr)
	err := s.bus.W8(addr, val)
	s.noteWrite(addr, old, val)
	return err
}
func (s *Sniffer) R16(addr uint32) (uint16, *MemException) { return s.bus.R16(addr) }
func (s *Sniffer) W16(addr uint32, val uint16) *MemException {
	old, _ := s.bus.R8(addr)
	err := s.bus.W16(addr, val)
	s.noteWrite(addr, old, uint8(val))
	return err
}
func (s *Sniffer) R32(addr uint32) (uint32, *MemException) { return s.bus.R32(addr) }
func (s *Sniffer) W32(addr uint32, val uint32) *MemException {
	old, _ := s.bus.R8(addr)
	err := s.bus.W32(addr, val)
	s.noteWrite(addr, old, uint8(val))
	return err
}
func (s *Sniffer) X16(addr uint32) (uint16, *MemException) { return s.bus.X16(addr) }
func (s *Sniffer) X32(addr uint32) (uint32, *MemException) { return s.bus.X32(addr) }

// BusAccessor is whatever the Adapter wraps: a fallible r/w/x interface.
// Both *Bus and *Sniffer (and the MMU-translating system bus, see
// system.go) satisfy it.
type BusAccessor interface {
	R8(addr uint32) (uint8, *MemException)
	W8(addr uint32, val uint8) *MemException
	R16(addr uint32) (uint16, *MemException)
	W16(addr uint32, val uint16) *MemException
	R32(addr uint32) (uint32, *MemException)
	W32(addr uint32, val uint32) *MemException
	X16(addr uint32) (uint16, *MemException)
	X32(addr uint32) (uint32, *MemException)
}

// Adapter bridges BusAccessor (fallible) to the infallible memory port
// an ARM core expects, stashing at most one exception per step
// (spec.md §4.1, §9 "Exception carrying recovered values").
type Adapter struct {
	bus    BusAccessor
	stash  *MemException
	probe  func(addr uint32) string
}

func NewAdapter(bus BusAccessor, probe func(uint32) string) *Adapter {
	return &Adapter{bus: bus, probe: probe}
}

// Stashed returns the exception recorded since the last Step (StepDone
// call), if any.
func (a *Adapter) Stashed() *MemException { return a.stash }

// StepDone drains the stashed exception, returning it for resolution.
func (a *Adapter) StepDone() *MemException {
	e := a.stash
	a.stash = nil
	return e
}

func (a *Adapter) stashOnce(e *MemException) {
	if e != nil && a.stash == nil {
		a.stash = e
	}
}

func (a *Adapter) Read8(addr uint32) uint8 {
	v, err := a.bus.R8(addr)
	a.stashOnce(err)
	if err != nil {
		if rv, ok := err.Recovered(); ok {
			return uint8(rv)
		}
		return 0
	}
	return v
}

func (a *Adapter) Write8(addr uint32, val uint8) {
	a.stashOnce(a.bus.W8(addr, val))
}

func (a *Adapter) Read16(addr uint32) uint16 {
	v, err := a.bus.R16(addr)
	a.stashOnce(err)
	if err != nil {
		if rv, ok := err.Recovered(); ok {
			return uint16(rv)
		}
		return 0
	}
	return v
}

func (a *Adapter) Write16(addr uint32, val uint16) {
	a.stashOnce(a.bus.W16(addr, val))
}

func (a *Adapter) Read32(addr uint32) uint32 {
	v, err := a.bus.R32(addr)
	a.stashOnce(err)
	if err != nil {
		if rv, ok := err.Recovered(); ok {
			return rv
		}
		return 0
	}
	return v
}

func (a *Adapter) Write32(addr uint32, val uint32) {
	a.stashOnce(a.bus.W32(addr, val))
}

func (a *Adapter) Exec16(addr uint32) uint16 {
	v, err := a.bus.X16(addr)
	a.stashOnce(err)
	if err != nil {
		if rv, ok := err.Recovered(); ok {
			return uint16(rv)
		}
		return 0
	}
	return v
}

func (a *Adapter) Exec32(addr uint32) uint32 {
	v, err := a.bus.X32(addr)
	a.stashOnce(err)
	if err != nil {
		if rv, ok := err.Recovered(); ok {
			return rv
		}
		return 0
	}
	return v
}
