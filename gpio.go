// gpio.go - GPIO ports/blocks and the atomic-mirror alias
//
// Grounded on original_source/src/devices/platform/pp/gpio.rs and
// spec.md §3/§4.6.

package main

import "sync"

// GpioPort is 8 lines of GPIO with enable/direction/value/interrupt
// configuration, per spec.md §4.6.
type GpioPort struct {
	enable       uint8
	outputEnable uint8
	outputValue  uint8
	inputValue   uint8 // sampled from external sources
	intStatus    uint8
	intEnable    uint8
	intTrigger   uint8 // per-bit: 0=falling, 1=rising

	sinks   [8]*Sender // driven when a line is an enabled output
	sources [8]func() bool

	irq *Sender
}

func NewGpioPort(irq *Sender) *GpioPort { return &GpioPort{irq: irq} }

// RegisterIn wires an external input source function into line idx.
func (p *GpioPort) RegisterIn(idx int, src func() bool) { p.sources[idx] = src }

// RegisterOut wires an external output sink into line idx.
func (p *GpioPort) RegisterOut(idx int, sink *Sender) { p.sinks[idx] = sink }

// Update drives enabled outputs and samples enabled inputs, latching
// int-status on a matching edge, per spec.md §4.6. Output drive is
// direct (a set output_val bit drives the sink high), per DESIGN.md's
// resolution of the output-drive-polarity Open Question.
func (p *GpioPort) Update() {
	for i := 0; i < 8; i++ {
		bit := uint8(1) << uint(i)
		if p.enable&bit == 0 {
			continue
		}
		if p.outputEnable&bit != 0 {
			if p.sinks[i] != nil {
				if p.outputValue&bit != 0 {
					p.sinks[i].Assert()
				} else {
					p.sinks[i].Release()
				}
			}
			continue
		}
		// Input line.
		old := p.inputValue&bit != 0
		var cur bool
		if p.sources[i] != nil {
			cur = p.sources[i]()
		}
		if cur {
			p.inputValue |= bit
		} else {
			p.inputValue &^= bit
		}
		rising := !old && cur
		falling := old && !cur
		triggered := (p.intTrigger&bit != 0 && rising) || (p.intTrigger&bit == 0 && falling)
		if triggered {
			p.intStatus |= bit
		}
	}
	if p.intStatus&p.intEnable != 0 {
		p.irq.Assert()
	} else {
		p.irq.Release()
	}
}

func (p *GpioPort) Kind() string { return "GPIO Port" }

const (
	gpioEnable       = 0x00
	gpioOutputEnable = 0x10
	gpioOutputValue  = 0x20
	gpioInputValue   = 0x30
	gpioIntStatus    = 0x40
	gpioIntEnable    = 0x50
	gpioIntTrigger   = 0x60
	gpioIntClear     = 0x70
)

func (p *GpioPort) R8(off uint32) (uint8, *MemException) {
	v, e := p.R32(off)
	return uint8(v), e
}
func (p *GpioPort) W8(off uint32, val uint8) *MemException { return p.W32(off, uint32(val)) }
func (p *GpioPort) R16(off uint32) (uint16, *MemException) {
	v, e := p.R32(off)
	return uint16(v), e
}
func (p *GpioPort) W16(off uint32, val uint16) *MemException { return p.W32(off, uint32(val)) }

func (p *GpioPort) R32(off uint32) (uint32, *MemException) {
	switch off {
	case gpioEnable:
		return uint32(p.enable), nil
	case gpioOutputEnable:
		return uint32(p.outputEnable), nil
	case gpioOutputValue:
		return uint32(p.outputValue), nil
	case gpioInputValue:
		return uint32(p.inputValue), nil
	case gpioIntStatus:
		return uint32(p.intStatus), nil
	case gpioIntEnable:
		return uint32(p.intEnable), nil
	case gpioIntTrigger:
		return uint32(p.intTrigger), nil
	case gpioIntClear:
		return 0, InvalidAccess()
	default:
		return 0, Unexpected()
	}
}

func (p *GpioPort) W32(off uint32, val uint32) *MemException {
	switch off {
	case gpioEnable:
		p.enable = uint8(val)
	case gpioOutputEnable:
		p.outputEnable = uint8(val)
	case gpioOutputValue:
		p.outputValue = uint8(val)
	case gpioInputValue:
		return InvalidAccess()
	case gpioIntStatus:
		return InvalidAccess()
	case gpioIntEnable:
		p.intEnable = uint8(val)
	case gpioIntTrigger:
		p.intTrigger = uint8(val)
	case gpioIntClear:
		p.intStatus &^= uint8(val) // write-1-to-clear
	default:
		return Unexpected()
	}
	p.Update()
	return nil
}

// GpioBlock is 4 ports of 8 lines, interleaved with stride-4 addressing
// exactly as the original: port = (offset/4) % 4.
type GpioBlock struct {
	mu    sync.Mutex
	ports [4]*GpioPort
}

// NewGpioBlock builds the 4 ports, each with its own sender onto the
// shared line: a port's Assert/Release is idempotent per-sender, so
// giving every port the same *Sender instance would let one port's
// Release() clear the line out from under another port still holding
// it asserted.
func NewGpioBlock(line *Line) *GpioBlock {
	b := &GpioBlock{}
	for i := range b.ports {
		b.ports[i] = NewGpioPort(line.NewSender())
	}
	return b
}

func (b *GpioBlock) Kind() string { return "4xGPIO Port Block" }

func (b *GpioBlock) Update() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, p := range b.ports {
		p.Update()
	}
}

// RegisterIn wires external input idx (0..31) across the block's 4 ports.
func (b *GpioBlock) RegisterIn(idx int, src func() bool) {
	b.ports[idx/8].RegisterIn(idx%8, src)
}

// RegisterOut wires external output idx (0..31) across the block's 4 ports.
func (b *GpioBlock) RegisterOut(idx int, sink *Sender) {
	b.ports[idx/8].RegisterOut(idx%8, sink)
}

func (b *GpioBlock) portOf(off uint32) (*GpioPort, uint32) {
	port := (off / 4) % 4
	return b.ports[port], off - 4*port
}

func (b *GpioBlock) R8(off uint32) (uint8, *MemException) {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, o := b.portOf(off)
	return p.R8(o)
}
func (b *GpioBlock) W8(off uint32, val uint8) *MemException {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, o := b.portOf(off)
	return p.W8(o, val)
}
func (b *GpioBlock) R16(off uint32) (uint16, *MemException) {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, o := b.portOf(off)
	return p.R16(o)
}
func (b *GpioBlock) W16(off uint32, val uint16) *MemException {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, o := b.portOf(off)
	return p.W16(o, val)
}
func (b *GpioBlock) R32(off uint32) (uint32, *MemException) {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, o := b.portOf(off)
	return p.R32(o)
}
func (b *GpioBlock) W32(off uint32, val uint32) *MemException {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, o := b.portOf(off)
	return p.W32(o, val)
}

// GpioAtomicMirror is the +0x800 alias accepting (mask<<8 | data)
// atomic read-modify-write bit manipulation, per spec.md §4.6.
type GpioAtomicMirror struct {
	block *GpioBlock
}

func NewGpioAtomicMirror(block *GpioBlock) *GpioAtomicMirror {
	return &GpioAtomicMirror{block: block}
}

func (m *GpioAtomicMirror) Kind() string { return "GPIO Port Atomic-Access Mirror" }

func (m *GpioAtomicMirror) R8(off uint32) (uint8, *MemException)   { return 0, InvalidAccess() }
func (m *GpioAtomicMirror) R16(off uint32) (uint16, *MemException) { return 0, InvalidAccess() }

func (m *GpioAtomicMirror) R32(off uint32) (uint32, *MemException) {
	if off <= 0x7F {
		return 0, InvalidAccess()
	}
	return 0, Unexpected()
}

func (m *GpioAtomicMirror) W8(off uint32, val uint8) *MemException {
	return m.W32(off, uint32(val))
}
func (m *GpioAtomicMirror) W16(off uint32, val uint16) *MemException {
	return m.W32(off, uint32(val))
}

func (m *GpioAtomicMirror) W32(off uint32, val uint32) *MemException {
	if off > 0x7F {
		return Unexpected()
	}
	m.block.mu.Lock()
	defer m.block.mu.Unlock()
	p, o := m.block.portOf(off)
	mask := uint8(val >> 8)
	bits := uint8(val)
	old, err := p.R8(o)
	if err != nil {
		return err
	}
	return p.W8(o, (old&^mask)|(bits&mask))
}
