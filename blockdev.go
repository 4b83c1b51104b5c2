// blockdev.go - block device interface and its three backends
//
// Grounded on original_source/clicky-core/src/block/backend/{null,mem}.rs
// and clicky-desktop/src/blockcfg.rs for the CLI backend-string grammar
// reproduced in spec.md §6 and SPEC_FULL.md §10.

package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

// BlockDev is an 8-bit byte-addressable stream with a fixed length. It
// is the storage abstraction behind the IDE controller's drives
// (spec.md §1 "block-device backends").
type BlockDev interface {
	Len() uint64
	ReadAt(buf []byte, off int64) error
	WriteAt(buf []byte, off int64) error
	Sync() error
}

// NullBlockDev is a fixed-length, always-zero, writes-discarded backend
// ("null:len=N").
type NullBlockDev struct{ length uint64 }

func NewNullBlockDev(length uint64) *NullBlockDev { return &NullBlockDev{length} }

func (n *NullBlockDev) Len() uint64 { return n.length }
func (n *NullBlockDev) ReadAt(buf []byte, off int64) error {
	for i := range buf {
		buf[i] = 0
	}
	return nil
}
func (n *NullBlockDev) WriteAt(buf []byte, off int64) error { return nil }
func (n *NullBlockDev) Sync() error                         { return nil }

// MemBlockDev is a memory-backed device optionally seeded from (and, on
// Sync, flushed back to) a host file ("mem:file=F[,truncate=N]").
type MemBlockDev struct {
	data []byte
	path string // non-empty => flushed on Sync
}

func NewMemBlockDev(data []byte, path string) *MemBlockDev {
	return &MemBlockDev{data: data, path: path}
}

func (m *MemBlockDev) Len() uint64 { return uint64(len(m.data)) }
func (m *MemBlockDev) ReadAt(buf []byte, off int64) error {
	if off < 0 || off+int64(len(buf)) > int64(len(m.data)) {
		return fmt.Errorf("mem blockdev: read out of range")
	}
	copy(buf, m.data[off:])
	return nil
}
func (m *MemBlockDev) WriteAt(buf []byte, off int64) error {
	if off < 0 || off+int64(len(buf)) > int64(len(m.data)) {
		return fmt.Errorf("mem blockdev: write out of range")
	}
	copy(m.data[off:], buf)
	return nil
}
func (m *MemBlockDev) Sync() error {
	if m.path == "" {
		return nil
	}
	return os.WriteFile(m.path, m.data, 0o644)
}

// RawBlockDev is a host-file-backed device, read/written directly
// ("raw:file=F").
type RawBlockDev struct {
	f      *os.File
	length uint64
}

func NewRawBlockDev(path string) (*RawBlockDev, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("raw blockdev open %s: %w", path, err)
	}
	// Advisory exclusive lock: two emulator instances pointed at the same
	// backing file would otherwise interleave sector writes silently.
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()
		return nil, fmt.Errorf("raw blockdev lock %s: %w (already in use?)", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("raw blockdev stat %s: %w", path, err)
	}
	return &RawBlockDev{f: f, length: uint64(info.Size())}, nil
}

func (r *RawBlockDev) Len() uint64 { return r.length }
func (r *RawBlockDev) ReadAt(buf []byte, off int64) error {
	_, err := r.f.ReadAt(buf, off)
	return err
}
func (r *RawBlockDev) WriteAt(buf []byte, off int64) error {
	_, err := r.f.WriteAt(buf, off)
	return err
}
func (r *RawBlockDev) Sync() error { return r.f.Sync() }

// ParseBlockDev parses the CLI backend grammar documented in spec.md §6:
// "null:len=…" / "raw:file=…" / "mem:file=…[,truncate=…]".
func ParseBlockDev(spec string) (BlockDev, error) {
	kind, rest, ok := strings.Cut(spec, ":")
	if !ok {
		return nil, fmt.Errorf("blockdev spec missing ':': %q", spec)
	}
	opts := map[string]string{}
	for _, kv := range strings.Split(rest, ",") {
		if kv == "" {
			continue
		}
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			return nil, fmt.Errorf("blockdev option missing '=': %q", kv)
		}
		opts[k] = v
	}

	switch kind {
	case "null":
		n, err := strconv.ParseUint(opts["len"], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("blockdev null: bad len: %w", err)
		}
		return NewNullBlockDev(n), nil
	case "raw":
		path, ok := opts["file"]
		if !ok {
			return nil, fmt.Errorf("blockdev raw: missing file=")
		}
		return NewRawBlockDev(path)
	case "mem":
		path, ok := opts["file"]
		if !ok {
			return nil, fmt.Errorf("blockdev mem: missing file=")
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("blockdev mem: %w", err)
		}
		if tstr, ok := opts["truncate"]; ok {
			n, err := strconv.ParseUint(tstr, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("blockdev mem: bad truncate: %w", err)
			}
			if uint64(len(data)) < n {
				grown := make([]byte, n)
				copy(grown, data)
				data = grown
			} else {
				data = data[:n]
			}
		}
		return NewMemBlockDev(data, path), nil
	default:
		return nil, fmt.Errorf("unknown blockdev backend: %q", kind)
	}
}
