// opto.go - OptoWheel/clickwheel device
//
// Grounded on original_source/clicky-core/src/devices/platform/pp/opto.rs
// and SPEC_FULL.md §12 (supplemented feature: the concrete device behind
// the "Clickwheel" bus range spec.md §6 names without detail).

package main

// Controls mirrors the original's five button signals plus a
// scroll-wheel delta, fed by the host input front-end (an out-of-scope
// external collaborator per spec.md §1).
type Controls struct {
	Action, Up, Down, Left, Right bool
	WheelDelta                    int8
}

// Opto is the composite clickwheel/keypad device, addressed at
// 0x7000C100..0x7000C1FF per spec.md §6. Its IRQ leg shares the
// interrupt controller's I2C line (original_source's OptoWheel is
// constructed with the same irq::Sender clone the I2C controller holds)
// even though Opto is bus-mapped independently of the I2C register
// window.
type Opto struct {
	keypadIRQStatus uint8
	wheelPos        uint8
	controls        Controls
	irq             *Sender
}

func NewOpto(irq *Sender) *Opto { return &Opto{irq: irq} }

func (o *Opto) Kind() string { return "Opto" }

// SetControls updates the live button/wheel state, called by the
// host-side input front-end, and raises the shared IRQ leg whenever a
// button is held or the wheel moved (releasing every button does not).
func (o *Opto) SetControls(c Controls) {
	o.controls = c
	o.wheelPos += uint8(c.WheelDelta)
	if c.Action || c.Up || c.Down || c.Left || c.Right || c.WheelDelta != 0 {
		o.keypadIRQStatus |= 0x01
		o.irq.Assert()
	}
}

// NotifyChange is the top-level step loop's spec.md §4.11 step 5 hook
// ("if I²C-change trigger fired, notify the wheel/keypad sink device"),
// mirroring the original's on_change().
func (o *Opto) NotifyChange() { o.irq.Assert() }

const (
	optoKeypadIRQClear  = 0x00
	optoKeypadIRQStatus = 0x04
	optoScrollWheel     = 0x08 // composite: wheel position + keypad bits
)

func (o *Opto) controlsByte() uint8 {
	var b uint8
	if o.controls.Action {
		b |= 1 << 0
	}
	if o.controls.Up {
		b |= 1 << 1
	}
	if o.controls.Down {
		b |= 1 << 2
	}
	if o.controls.Left {
		b |= 1 << 3
	}
	if o.controls.Right {
		b |= 1 << 4
	}
	return b
}

func (o *Opto) R8(off uint32) (uint8, *MemException) {
	switch off {
	case optoKeypadIRQStatus:
		return o.keypadIRQStatus, nil
	default:
		return 0, Unexpected()
	}
}

func (o *Opto) W8(off uint32, val uint8) *MemException {
	switch off {
	case optoKeypadIRQClear:
		o.keypadIRQStatus = 0
		o.irq.Release()
		return nil
	default:
		return Unexpected()
	}
}

func (o *Opto) R16(off uint32) (uint16, *MemException) {
	v, e := o.R32(off)
	return uint16(v), e
}
func (o *Opto) W16(off uint32, val uint16) *MemException { return o.W32(off, uint32(val)) }

func (o *Opto) R32(off uint32) (uint32, *MemException) {
	switch off {
	case optoKeypadIRQStatus:
		return uint32(o.keypadIRQStatus), nil
	case optoScrollWheel:
		return uint32(o.wheelPos) | uint32(o.controlsByte())<<8, nil
	default:
		return 0, Unexpected()
	}
}

func (o *Opto) W32(off uint32, val uint32) *MemException {
	switch off {
	case optoKeypadIRQClear:
		o.keypadIRQStatus = 0
		o.irq.Release()
		return nil
	default:
		return Unexpected()
	}
}
