package main

import "testing"

func newTestIde(sectors int) (*IdeController, *Line, *Line) {
	irqLine := NewLine(TriggerNone)
	dmaLine := NewLine(TriggerNone)
	dev := NewMemBlockDev(make([]byte, sectors*512), "")
	c := NewIdeController(dev, NewNullBlockDev(uint64(sectors*512)), irqLine.NewSender(), dmaLine.NewSender())
	return c, irqLine, dmaLine
}

func TestIdeIdentifyFillsReadableBuffer(t *testing.T) {
	c, _, _ := newTestIde(4)
	if e := c.W8(ideStatus, cmdIdentify); e != nil {
		t.Fatalf("IDENTIFY must be accepted, got %v", e)
	}

	v, _ := c.R8(ideStatus)
	if v&ataDRQ == 0 {
		t.Fatal("status must show DRQ after IDENTIFY loads the buffer")
	}

	var got [512]byte
	for i := range got {
		b, e := c.R8(ideData)
		if e != nil {
			t.Fatalf("reading IDENTIFY data byte %d failed: %v", i, e)
		}
		got[i] = b
	}
	// model string "clickydrive" lives byte-swapped (adjacent bytes within
	// each 16-bit word swapped) starting at byte offset 54.
	want := []byte("lcciykrdvi e")
	if string(got[54:54+len(want)]) != string(want) {
		t.Fatalf("model string mismatch: got %q want %q", got[54:54+len(want)], want)
	}
}

func TestIdeReadSectorDeliversBackingData(t *testing.T) {
	c, irq, dma := newTestIde(2)
	// seed sector 0 through the drive's own backing device.
	seed := make([]byte, 512)
	for i := range seed {
		seed[i] = byte(i)
	}
	if err := c.drives[0].dev.WriteAt(seed, 0); err != nil {
		t.Fatal(err)
	}

	_ = c.W8(ideSectorCnt, 1)
	_ = c.W8(ideDeviceHead, 0x40) // LBA mode, drive 0
	if e := c.W8(ideStatus, cmdReadSector); e != nil {
		t.Fatalf("READ SECTOR must be accepted, got %v", e)
	}

	for i := 0; i < 512; i++ {
		b, e := c.R8(ideData)
		if e != nil {
			t.Fatalf("data read %d failed: %v", i, e)
		}
		if b != seed[i] {
			t.Fatalf("byte %d mismatch: got %#x want %#x", i, b, seed[i])
		}
	}

	if !irq.Asserted() {
		t.Fatal("completing the sector must assert the drive IRQ")
	}
	if dma.Asserted() {
		t.Fatal("a non-DMA read must never assert the DMA request line")
	}
	status, _ := c.R8(ideStatus)
	if status&ataDRDY == 0 {
		t.Fatal("drive must return to Idle/DRDY once the sector is fully consumed")
	}
}

func TestIdeWriteSectorFlushesToBackingDevice(t *testing.T) {
	c, irq, _ := newTestIde(2)
	_ = c.W8(ideSectorCnt, 1)
	_ = c.W8(ideDeviceHead, 0x40)
	if e := c.W8(ideStatus, cmdWriteSector); e != nil {
		t.Fatalf("WRITE SECTOR must be accepted, got %v", e)
	}

	payload := make([]byte, 512)
	for i := range payload {
		payload[i] = byte(255 - i)
	}
	for i, b := range payload {
		if e := c.W8(ideData, b); e != nil {
			t.Fatalf("data write %d failed: %v", i, e)
		}
	}

	if !irq.Asserted() {
		t.Fatal("completing the write must assert the drive IRQ")
	}
	readBack := make([]byte, 512)
	if err := c.drives[0].dev.ReadAt(readBack, 0); err != nil {
		t.Fatal(err)
	}
	for i := range payload {
		if readBack[i] != payload[i] {
			t.Fatalf("flushed byte %d mismatch: got %#x want %#x", i, readBack[i], payload[i])
		}
	}
}

func TestIdeDataWriteOutsideWriteReadyIsContractViolation(t *testing.T) {
	c, _, _ := newTestIde(1)
	if e := c.W8(ideData, 0x42); e == nil || e.Kind != ExcContractViolation {
		t.Fatalf("a data write while idle must be a contract violation, got %v", e)
	}
}

func TestIdeUnknownCommandIsContractViolation(t *testing.T) {
	c, _, _ := newTestIde(1)
	if e := c.W8(ideStatus, 0x00); e == nil || e.Kind != ExcContractViolation {
		t.Fatalf("an unrecognized command must be a contract violation, got %v", e)
	}
}

func TestIdeLBARoundTrip(t *testing.T) {
	c, _, _ := newTestIde(1)
	d := c.drives[0]
	d.deviceHead = 0x40 // LBA mode
	d.setLBA(0x01ABCDEF)
	if got := d.lbaValue(); got != 0x01ABCDEF {
		t.Fatalf("LBA round trip mismatch, got %#x", got)
	}
}

func TestIdeCHSRoundTrip(t *testing.T) {
	c, _, _ := newTestIde(1)
	d := c.drives[0]
	d.deviceHead = 0x00 // CHS mode
	const lba = 12345
	d.setLBA(lba)
	if got := d.lbaValue(); got != lba {
		t.Fatalf("CHS round trip mismatch, got %d want %d", got, lba)
	}
}

func TestIdeDeviceHeadSelectsDrive(t *testing.T) {
	c, _, _ := newTestIde(1)
	_ = c.W8(ideDeviceHead, 0x10) // bit4 set: select drive 1
	if c.lastSel != 1 {
		t.Fatalf("bit4 of device/head must select drive 1, got lastSel=%d", c.lastSel)
	}
	_ = c.W8(ideDeviceHead, 0x00)
	if c.lastSel != 0 {
		t.Fatalf("clearing bit4 must reselect drive 0, got lastSel=%d", c.lastSel)
	}
}
