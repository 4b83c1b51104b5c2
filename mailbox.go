// mailbox.go - inter-processor mailbox
//
// Grounded on original_source/src/devices/platform/pp/mailbox.rs and
// spec.md §4.9 (the one core-specific IRQ routing case: each core gets
// its own IRQ leg fed by the same shared_bits word).

package main

// Mailbox is the PP5020 inter-processor mailbox: one shared 32-bit
// word, set/clear write ports, and per-core IRQ legs that assert
// whenever shared_bits is nonzero.
type Mailbox struct {
	sharedBits uint32
	irq        [2]*Sender
}

func NewMailbox(cpuIRQ, copIRQ *Sender) *Mailbox {
	return &Mailbox{irq: [2]*Sender{cpuIRQ, copIRQ}}
}

func (m *Mailbox) Kind() string { return "Mailbox" }

func (m *Mailbox) updateIRQs() {
	asserted := m.sharedBits != 0
	for _, s := range m.irq {
		if s == nil {
			continue
		}
		if asserted {
			s.Assert()
		} else {
			s.Release()
		}
	}
}

const (
	mailboxStatus = 0x00
	mailboxSet    = 0x04
	mailboxClear  = 0x08
)

func (m *Mailbox) R32(off uint32) (uint32, *MemException) {
	switch {
	case off == mailboxStatus:
		return 0, StubRead(SeverityWarn, m.sharedBits)
	case off == mailboxSet || off == mailboxClear:
		return 0, InvalidAccess()
	case off == 0x0C || (off >= 0x10 && off <= 0x2F):
		return 0, Unimplemented()
	default:
		return 0, Unexpected()
	}
}

func (m *Mailbox) W32(off uint32, val uint32) *MemException {
	switch {
	case off == mailboxStatus:
		return InvalidAccess()
	case off == mailboxSet:
		m.sharedBits |= val
		m.updateIRQs()
		return StubWrite(SeverityWarn)
	case off == mailboxClear:
		m.sharedBits &^= val
		m.updateIRQs()
		return StubWrite(SeverityWarn)
	case off == 0x0C:
		return Unimplemented()
	case off >= 0x10 && off <= 0x2F:
		return StubWrite(SeverityError)
	default:
		return Unexpected()
	}
}

func (m *Mailbox) R8(off uint32) (uint8, *MemException) {
	v, e := m.R32(off &^ 3)
	return uint8(v >> ((off & 3) * 8)), e
}
func (m *Mailbox) W8(off uint32, val uint8) *MemException { return m.W32(off&^3, uint32(val)) }
func (m *Mailbox) R16(off uint32) (uint16, *MemException) {
	v, e := m.R32(off &^ 3)
	return uint16(v >> ((off & 2) * 8)), e
}
func (m *Mailbox) W16(off uint32, val uint16) *MemException { return m.W32(off&^3, uint32(val)) }
