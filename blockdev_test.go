package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestNullBlockDevReadsZeroAndDiscardsWrites(t *testing.T) {
	n := NewNullBlockDev(1024)
	buf := bytes.Repeat([]byte{0xFF}, 16)
	if err := n.ReadAt(buf, 0); err != nil {
		t.Fatalf("read must not fail, got %v", err)
	}
	for _, b := range buf {
		if b != 0 {
			t.Fatal("null device must always read as zero")
		}
	}
	if err := n.WriteAt(bytes.Repeat([]byte{0xAA}, 16), 0); err != nil {
		t.Fatalf("write must be accepted, got %v", err)
	}
	_ = n.ReadAt(buf, 0)
	for _, b := range buf {
		if b != 0 {
			t.Fatal("writes to a null device must be discarded")
		}
	}
}

func TestMemBlockDevReadWriteRoundTripAndBoundsCheck(t *testing.T) {
	m := NewMemBlockDev(make([]byte, 32), "")
	payload := []byte{1, 2, 3, 4}
	if err := m.WriteAt(payload, 4); err != nil {
		t.Fatalf("in-range write must succeed, got %v", err)
	}
	got := make([]byte, 4)
	if err := m.ReadAt(got, 4); err != nil || !bytes.Equal(got, payload) {
		t.Fatalf("round trip mismatch: got %v err %v", got, err)
	}
	if err := m.ReadAt(make([]byte, 4), 30); err == nil {
		t.Fatal("a read spanning past the end must fail")
	}
	if err := m.WriteAt(make([]byte, 4), -1); err == nil {
		t.Fatal("a negative offset write must fail")
	}
}

func TestMemBlockDevSyncFlushesToFileOnlyWhenPathSet(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "img.bin")
	m := NewMemBlockDev([]byte{1, 2, 3}, path)
	if err := m.Sync(); err != nil {
		t.Fatalf("sync must succeed, got %v", err)
	}
	got, err := os.ReadFile(path)
	if err != nil || !bytes.Equal(got, []byte{1, 2, 3}) {
		t.Fatalf("sync must flush the in-memory data to the path, got %v err %v", got, err)
	}

	noPath := NewMemBlockDev([]byte{9}, "")
	if err := noPath.Sync(); err != nil {
		t.Fatalf("sync with no path must be a no-op, got %v", err)
	}
}

func TestParseBlockDevGrammar(t *testing.T) {
	dev, err := ParseBlockDev("null:len=4096")
	if err != nil {
		t.Fatalf("null grammar must parse, got %v", err)
	}
	if dev.Len() != 4096 {
		t.Fatalf("null len must be parsed, got %d", dev.Len())
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "disk.img")
	if err := os.WriteFile(path, make([]byte, 10), 0o644); err != nil {
		t.Fatal(err)
	}
	dev, err = ParseBlockDev("mem:file=" + path + ",truncate=20")
	if err != nil {
		t.Fatalf("mem grammar must parse, got %v", err)
	}
	if dev.Len() != 20 {
		t.Fatalf("truncate= must grow the device to the requested length, got %d", dev.Len())
	}

	if _, err := ParseBlockDev("bogus:file=x"); err == nil {
		t.Fatal("an unknown backend kind must be rejected")
	}
	if _, err := ParseBlockDev("no-colon-here"); err == nil {
		t.Fatal("a spec missing ':' must be rejected")
	}
}
