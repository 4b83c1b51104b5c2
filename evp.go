// evp.go - exception vector pointer device
//
// Grounded on original_source/clicky-core/src/devices/platform/pp/evp.rs
// and spec.md §9 (low-vector-table rewrite: when CacheCon.LocalEVT() is
// set, system.go redirects reads, writes and execute-fetches of
// addresses 0x0-0x1F to these eight registers instead of ROM/RAM).
package main

// Evp holds the eight 32-bit ARM exception vectors. Normally these are
// fixed instructions baked into the low 32 bytes of ROM; when the
// cache controller's local_evt bit is set, system.go's address
// translation rewrites those low addresses into the EVP mirror window,
// so the bus dispatches them to this device instead of physical memory
// and software can relocate exception handling without a real MMU remap.
type Evp struct {
	vec [8]uint32
}

func NewEvp() *Evp {
	return &Evp{vec: [8]uint32{0x0, 0x4, 0x8, 0xC, 0x10, 0x14, 0x18, 0x1C}}
}

func (e *Evp) Kind() string { return "EVP (Exception Vector Pointer)" }

// VectorAt returns the rewritten vector word for a low-vector-table
// physical address (0x0, 0x4, ..., 0x1C), and whether off is in range.
func (e *Evp) VectorAt(off uint32) (uint32, bool) {
	if off > 0x1C || off%4 != 0 {
		return 0, false
	}
	return e.vec[off/4], true
}

func (e *Evp) R32(off uint32) (uint32, *MemException) {
	if off > 0x1C || off%4 != 0 {
		return 0, Unexpected()
	}
	return e.vec[off/4], nil
}

func (e *Evp) W32(off uint32, val uint32) *MemException {
	if off > 0x1C || off%4 != 0 {
		return InvalidAccess()
	}
	e.vec[off/4] = val
	return nil
}

func (e *Evp) R8(off uint32) (uint8, *MemException) {
	v, err := e.R32(off &^ 3)
	return uint8(v >> ((off & 3) * 8)), err
}
func (e *Evp) W8(off uint32, val uint8) *MemException { return StubWrite(SeverityInfo) }
func (e *Evp) R16(off uint32) (uint16, *MemException) {
	v, err := e.R32(off &^ 3)
	return uint16(v >> ((off & 2) * 8)), err
}
func (e *Evp) W16(off uint32, val uint16) *MemException { return StubWrite(SeverityInfo) }
