// i2c.go - I2C controller multiplexing up to 128 slave devices
//
// Grounded on original_source/clicky-core/src/devices/platform/pp/i2c.rs
// and spec.md §3/§4.5.

package main

// I2CDevice is one addressable I2C slave.
type I2CDevice interface {
	// Read returns the next byte at the device's internal register
	// pointer, advancing it.
	Read() (uint8, *MemException)
	// Write accepts one byte; the first byte of a fresh transaction
	// selects the register, subsequent bytes write-and-advance.
	Write(b uint8, first bool) *MemException
	Path() string
}

// I2C is the PP5020 I2C controller.
type I2C struct {
	devices [128]I2CDevice

	addrReg    uint8 // 7-bit address + R/W bit in bit0
	ctrlReg    uint8 // bits0-1 len-1 (1..4 bytes), bit2 R/W, bit7 SEND
	data       [4]uint8
	busyToggle bool

	changeTrigger *Line   // I2C-change notify (spec.md §4.11 step 5)
	changeSender  *Sender // toggled each transaction to produce an edge
	changeState   bool
}

func NewI2C() *I2C {
	line := NewLine(TriggerEdge)
	return &I2C{changeTrigger: line, changeSender: line.NewSender()}
}

// Register attaches dev at the given 7-bit address.
func (c *I2C) Register(addr int, dev I2CDevice) { c.devices[addr&0x7F] = dev }

func (c *I2C) Kind() string { return "I2C" }

const (
	i2cAddrReg = 0x00
	i2cCtrl    = 0x04
	i2cStatus  = 0x08
	i2cData0   = 0x10
	i2cData1   = 0x11
	i2cData2   = 0x12
	i2cData3   = 0x13
)

func (c *I2C) R8(off uint32) (uint8, *MemException) {
	switch off {
	case i2cAddrReg:
		return c.addrReg, nil
	case i2cCtrl:
		return c.ctrlReg, nil
	case i2cStatus:
		c.busyToggle = !c.busyToggle
		if c.busyToggle {
			return 0x01, nil
		}
		return 0x00, nil
	case i2cData0:
		return c.data[0], nil
	case i2cData1:
		return c.data[1], nil
	case i2cData2:
		return c.data[2], nil
	case i2cData3:
		return c.data[3], nil
	default:
		return 0, Unexpected()
	}
}

func (c *I2C) W8(off uint32, val uint8) *MemException {
	switch off {
	case i2cAddrReg:
		c.addrReg = val
		return nil
	case i2cCtrl:
		c.ctrlReg = val
		if val&0x80 != 0 {
			return c.execTransaction()
		}
		return nil
	case i2cData0:
		c.data[0] = val
		return nil
	case i2cData1:
		c.data[1] = val
		return nil
	case i2cData2:
		c.data[2] = val
		return nil
	case i2cData3:
		c.data[3] = val
		return nil
	default:
		return Unexpected()
	}
}

func (c *I2C) R16(off uint32) (uint16, *MemException) {
	lo, e := c.R8(off)
	return uint16(lo), e
}
func (c *I2C) W16(off uint32, val uint16) *MemException { return c.W8(off, uint8(val)) }
func (c *I2C) R32(off uint32) (uint32, *MemException) {
	lo, e := c.R8(off)
	return uint32(lo), e
}
func (c *I2C) W32(off uint32, val uint32) *MemException { return c.W8(off, uint8(val)) }

// execTransaction performs the atomic SEND-triggered transaction of
// spec.md §4.5.
func (c *I2C) execTransaction() *MemException {
	addr := int(c.addrReg>>1) & 0x7F
	isRead := c.addrReg&1 != 0
	length := int(c.ctrlReg&0x3) + 1

	dev := c.devices[addr]
	if dev == nil {
		return WrapI2C(ContractViolation("no device at I2C address", SeverityError, nil), AccessWrite, addr, "i2c/<unpopulated>")
	}

	for i := 0; i < length; i++ {
		if isRead {
			b, err := dev.Read()
			if err != nil {
				return WrapI2C(err, AccessRead, addr, dev.Path())
			}
			c.data[i] = b
		} else {
			err := dev.Write(c.data[i], i == 0)
			if err != nil {
				return WrapI2C(err, AccessWrite, addr, dev.Path())
			}
		}
	}
	c.changeState = !c.changeState
	if c.changeState {
		c.changeSender.Assert()
	} else {
		c.changeSender.Release()
	}
	return nil
}
