// memcon.go - memory controller / MMU (8-entry per-core remap+protect table)
//
// Grounded on original_source/clicky-core/src/devices/platform/pp/memcon.rs
// and spec.md §3/§4.2.

package main

import "sync"

// Protection is the R/W/D/X permission set carried by a physical MMU word.
type Protection struct {
	R, W, D, X bool
}

// FullProtection grants every permission, used for unmatched addresses
// (spec.md §3: "Unmatched addresses pass through with all protections
// allowed").
var FullProtection = Protection{true, true, true, true}

type mmuEntry struct {
	logical  uint32
	physical uint32
}

// MemCon is the per-core 8-entry remap-and-protect table plus the
// (stubbed) cache control registers in its own MMIO window.
type MemCon struct {
	mu      sync.Mutex
	entries [2][8]mmuEntry // [core][slot]
	core    int            // currently-dispatching core, set by the top level

	cacheMask, cacheCtrl, flushMask uint32
}

func NewMemCon() *MemCon { return &MemCon{} }

// SelectCore is called by the top level before each core's dispatch
// (spec.md §9 "Cyclic/shared device ownership").
func (m *MemCon) SelectCore(core int) {
	m.mu.Lock()
	m.core = core
	m.mu.Unlock()
}

func maskOf(logical uint32) uint32 {
	return ((logical >> 11) & 0x7) << 28
}

// VirtToPhys translates addr for the currently-selected core under the
// given access kind, per spec.md §3/§4.1 step 2.
func (m *MemCon) VirtToPhys(addr uint32, kind AccessKind) (uint32, *MemException) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, e := range m.entries[m.core] {
		if e.logical == 0 || e.physical == 0 {
			continue
		}
		mask := maskOf(e.logical)
		virt := e.logical & 0xFFFF0000
		if addr&mask != virt&mask {
			continue
		}
		prot := Protection{
			R: e.physical&(1<<8) != 0,
			W: e.physical&(1<<9) != 0,
			D: e.physical&(1<<10) != 0,
			X: e.physical&(1<<11) != 0,
		}
		ok := false
		switch kind {
		case AccessRead:
			ok = prot.R || prot.D
		case AccessWrite:
			ok = prot.W
		case AccessExecute:
			ok = prot.X
		}
		if !ok {
			return 0, MmuViolation()
		}
		phys := e.physical & 0xFFFF0000
		return (addr &^ mask) | (phys & mask), nil
	}
	// No matching entry: pass through untranslated with full permissions.
	return addr, nil
}

func (m *MemCon) Kind() string { return "MemCon" }

func (m *MemCon) R8(off uint32) (uint8, *MemException) {
	v, e := m.R32(off &^ 3)
	if e != nil {
		return 0, e
	}
	return uint8(v >> ((off & 3) * 8)), nil
}

func (m *MemCon) W8(off uint32, val uint8) *MemException {
	return StubWrite(SeverityInfo)
}

func (m *MemCon) R16(off uint32) (uint16, *MemException) {
	v, e := m.R32(off &^ 3)
	if e != nil {
		return 0, e
	}
	return uint16(v >> ((off & 2) * 8)), nil
}

func (m *MemCon) W16(off uint32, val uint16) *MemException {
	return StubWrite(SeverityInfo)
}

// R32/W32 implement the register map of spec.md §4.2.
func (m *MemCon) R32(off uint32) (uint32, *MemException) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch {
	case off <= 0x1FFF:
		return 0, StubRead(SeverityInfo, 0) // cache data, stubbed
	case off >= 0x4000 && off <= 0x5FFF:
		return 0, StubRead(SeverityInfo, 0) // cache status, stubbed
	case off >= 0x8000 && off <= 0xDFFF:
		return 0, StubRead(SeverityInfo, 0) // cache flush/invalidate
	case off >= 0xF000 && off <= 0xF03F:
		slot := (off - 0xF000) / 8
		if (off-0xF000)%8 == 0 {
			return m.entries[m.core][slot].logical, nil
		}
		return m.entries[m.core][slot].physical, nil
	case off == 0xF040:
		return m.cacheMask, nil
	case off == 0xF044:
		return m.cacheCtrl, nil
	case off == 0xF048:
		return m.flushMask, nil
	default:
		return 0, Unexpected()
	}
}

func (m *MemCon) W32(off uint32, val uint32) *MemException {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch {
	case off <= 0x1FFF:
		return StubWrite(SeverityInfo)
	case off >= 0x4000 && off <= 0x5FFF:
		return StubWrite(SeverityInfo)
	case off >= 0x8000 && off <= 0xDFFF:
		return nil // flush/invalidate writes are accepted no-ops
	case off >= 0xF000 && off <= 0xF03F:
		slot := (off - 0xF000) / 8
		if (off-0xF000)%8 == 0 {
			m.entries[m.core][slot].logical = val
		} else {
			m.entries[m.core][slot].physical = val
		}
		return nil
	case off == 0xF040:
		m.cacheMask = val
		return nil
	case off == 0xF044:
		m.cacheCtrl = val
		return nil
	case off == 0xF048:
		m.flushMask = val
		return nil
	default:
		return Unexpected()
	}
}
