// eide.go - EIDE controller / DMA bridge between the IDE data port and RAM
//
// Grounded on original_source/clicky-core/src/devices/platform/pp/eide.rs
// and spec.md §4.4/§4.11, including the dma_length write = val+4 quirk.

package main

// Eide composes the IDE register window with its DMA engine and a few
// diagnostic timing/config registers, per the bus map's 0xC3000000
// range.
type Eide struct {
	ide *IdeController

	timing   uint32
	ideCfg0  uint32
	ideCfg1  uint32

	dmaCtrl   uint32
	dmaLength uint32 // bytes remaining
	dmaAddr   uint32 // current RAM address
}

func NewEide(ide *IdeController) *Eide { return &Eide{ide: ide} }

func (e *Eide) Kind() string { return "EIDE" }

// register windows within the EIDE block.
const (
	eideTiming    = 0x000
	eideCfg0      = 0x010
	eideCfg1      = 0x014
	eideDmaCtrl   = 0x020
	eideDmaLength = 0x024
	eideDmaAddr   = 0x028
	eideIdeWindow = 0x100 // standard IDE registers start here
)

func (e *Eide) R8(off uint32) (uint8, *MemException) {
	if off >= eideIdeWindow {
		return e.ide.R8(off - eideIdeWindow)
	}
	v, err := e.R32(off &^ 3)
	if err != nil {
		return 0, err
	}
	return uint8(v >> ((off & 3) * 8)), nil
}

func (e *Eide) W8(off uint32, val uint8) *MemException {
	if off >= eideIdeWindow {
		return e.ide.W8(off-eideIdeWindow, val)
	}
	return StubWrite(SeverityInfo)
}

func (e *Eide) R16(off uint32) (uint16, *MemException) {
	if off >= eideIdeWindow {
		return e.ide.R16(off - eideIdeWindow)
	}
	v, err := e.R32(off &^ 3)
	return uint16(v), err
}

func (e *Eide) W16(off uint32, val uint16) *MemException {
	if off >= eideIdeWindow {
		return e.ide.W16(off-eideIdeWindow, val)
	}
	return StubWrite(SeverityInfo)
}

func (e *Eide) R32(off uint32) (uint32, *MemException) {
	if off >= eideIdeWindow {
		return e.ide.R32(off - eideIdeWindow)
	}
	switch off {
	case eideTiming:
		return e.timing, nil
	case eideCfg0:
		return e.ideCfg0, nil
	case eideCfg1:
		return e.ideCfg1, nil
	case eideDmaCtrl:
		return e.dmaCtrl, nil
	case eideDmaLength:
		return e.dmaLength, nil
	case eideDmaAddr:
		return e.dmaAddr, nil
	default:
		return 0, StubRead(SeverityInfo, 0)
	}
}

func (e *Eide) W32(off uint32, val uint32) *MemException {
	if off >= eideIdeWindow {
		return e.ide.W32(off-eideIdeWindow, val)
	}
	switch off {
	case eideTiming:
		e.timing = val
	case eideCfg0:
		e.ideCfg0 = val
	case eideCfg1:
		e.ideCfg1 = val
	case eideDmaCtrl:
		e.dmaCtrl = val
	case eideDmaLength:
		// Known hardware-driver quirk (spec.md §4.4/§9): the length
		// written by the boot ROM's driver is 4 bytes short of the
		// actual transfer length.
		e.dmaLength = val + 4
	case eideDmaAddr:
		e.dmaAddr = val
	default:
		return StubWrite(SeverityInfo)
	}
	return nil
}

// DMAPending reports whether the DMA engine has bytes remaining and is
// enabled.
func (e *Eide) DMAPending() bool {
	return e.dmaCtrl&1 != 0 && e.dmaLength >= 2
}

// DoDMA performs one 16-bit transfer between the IDE data port and the
// given RAM-backed bus, per spec.md §4.4/§4.11.
func (e *Eide) DoDMA(bus BusAccessor) *MemException {
	if !e.DMAPending() {
		return nil
	}
	if e.dmaCtrl&2 != 0 { // write direction: RAM -> IDE
		v, err := bus.R16(e.dmaAddr)
		if err != nil {
			return err
		}
		if err := e.ide.W16(ideData, v); err != nil {
			return err
		}
	} else { // read direction: IDE -> RAM
		v, err := e.ide.R16(ideData)
		if err != nil {
			return err
		}
		if err := bus.W16(e.dmaAddr, v); err != nil {
			return err
		}
	}
	e.dmaAddr += 2
	e.dmaLength -= 2
	return nil
}
