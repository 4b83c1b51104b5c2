// main.go - command-line entry point for the PP5020 SoC emulator
//
// Grounded on the teacher's main.go (plain os.Args scanning, no CLI
// framework) generalized from its fixed `-ie32|-m68k path` shape to
// SPEC_FULL.md §10's flag set.

package main

import (
	"encoding/binary"
	"fmt"
	"log"
	"os"
	"strconv"
)

// cliArgs holds the parsed command-line flags. A plain struct keeps
// parseArgs's signature from growing an unreadable tuple of returns as
// SPEC_FULL.md §10's flag set grew past the original four.
type cliArgs struct {
	rom     string
	hdd     string
	hle     string
	gdb     string
	monitor bool
	lcdDump string
	steps   int
}

func usage() {
	fmt.Println("Usage: pp5020 -rom <path> [-hdd <backend>] [-hle <path>] [-gdb <port|path>[,on-fatal-err[,and-on-start]]] [-monitor] [-steps N] [-lcd-dump <path>]")
	fmt.Println("  -rom <path>       flash ROM image to load")
	fmt.Println("  -hdd <spec>       block-device backend: null:len=N | raw:file=F | mem:file=F[,truncate=N]")
	fmt.Println("  -hle <path>       firmware image staged directly into SDRAM, bypassing the boot ROM")
	fmt.Println("  -gdb <spec>       GDB remote-serial endpoint: a TCP port or a unix socket path")
	fmt.Println("  -monitor          drive the system from an interactive local monitor console instead of free-running")
	fmt.Println("  -steps <n>        run exactly n Step() ticks then exit, instead of free-running (for -lcd-dump)")
	fmt.Println("  -lcd-dump <path>  write a raw LCD CGRAM snapshot to path after -steps ticks, for cmd/lcdsnap")
}

func parseArgs(args []string) (cliArgs, error) {
	var a cliArgs
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "-rom":
			i++
			if i >= len(args) {
				return cliArgs{}, fmt.Errorf("-rom requires a path")
			}
			a.rom = args[i]
		case "-hdd":
			i++
			if i >= len(args) {
				return cliArgs{}, fmt.Errorf("-hdd requires a backend spec")
			}
			a.hdd = args[i]
		case "-hle":
			i++
			if i >= len(args) {
				return cliArgs{}, fmt.Errorf("-hle requires a path")
			}
			a.hle = args[i]
		case "-gdb":
			i++
			if i >= len(args) {
				return cliArgs{}, fmt.Errorf("-gdb requires an endpoint spec")
			}
			a.gdb = args[i]
		case "-monitor":
			a.monitor = true
		case "-steps":
			i++
			if i >= len(args) {
				return cliArgs{}, fmt.Errorf("-steps requires a count")
			}
			n, err := strconv.Atoi(args[i])
			if err != nil {
				return cliArgs{}, fmt.Errorf("-steps: %w", err)
			}
			a.steps = n
		case "-lcd-dump":
			i++
			if i >= len(args) {
				return cliArgs{}, fmt.Errorf("-lcd-dump requires a path")
			}
			a.lcdDump = args[i]
		default:
			return cliArgs{}, fmt.Errorf("unrecognized flag %q", args[i])
		}
	}
	return a, nil
}

// loadHLE stages a firmware image directly into SDRAM at its base
// address, per SPEC_FULL.md §10's "-hle <path>... bypassing the boot
// ROM".
func loadHLE(s *Ipod4g, path string) error {
	img, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("hle: read %s: %w", path, err)
	}
	dst := s.sdram.Bytes()
	if len(img) > len(dst) {
		return fmt.Errorf("hle: image %s (%d bytes) exceeds SDRAM size (%d bytes)", path, len(img), len(dst))
	}
	copy(dst, img)
	return nil
}

// writeLCDDump writes pix (w*h RGB words, per Ipod4g.LCDSnapshot) to path
// in the flat format cmd/lcdsnap reads: an 8-byte little-endian
// width/height header, followed by w*h little-endian uint32 RGB words.
func writeLCDDump(path string, pix []uint32, w, h int) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	var hdr [8]byte
	binary.LittleEndian.PutUint32(hdr[0:4], uint32(w))
	binary.LittleEndian.PutUint32(hdr[4:8], uint32(h))
	if _, err := f.Write(hdr[:]); err != nil {
		return err
	}

	buf := make([]byte, 4)
	for _, p := range pix {
		binary.LittleEndian.PutUint32(buf, p)
		if _, err := f.Write(buf); err != nil {
			return err
		}
	}
	return nil
}

func main() {
	a, err := parseArgs(os.Args[1:])
	if err != nil {
		fmt.Println(err)
		usage()
		os.Exit(1)
	}
	if a.rom == "" {
		fmt.Println("-rom is required")
		usage()
		os.Exit(1)
	}

	var hdd BlockDev = NewNullBlockDev(0)
	if a.hdd != "" {
		hdd, err = ParseBlockDev(a.hdd)
		if err != nil {
			fmt.Printf("failed to configure hdd: %v\n", err)
			os.Exit(1)
		}
	}

	sys := NewIpod4g(hdd, "system.dump")
	defer sys.Close()

	if err := sys.LoadFlash(a.rom); err != nil {
		fmt.Printf("failed to load ROM %s: %v\n", a.rom, err)
		os.Exit(1)
	}

	if a.hle != "" {
		if err := loadHLE(sys, a.hle); err != nil {
			fmt.Printf("failed to stage HLE image: %v\n", err)
			os.Exit(1)
		}
	}

	if a.gdb != "" {
		// A single connection drives every Step() call via Target.resume
		// (gdb_target.go); there is no separate free-running loop to
		// race against it, so whenever -gdb is given the stub is the
		// system's sole driver for the process lifetime. The on-fatal-err
		// and and-on-start qualifiers (parsed for CLI-grammar fidelity)
		// both describe *when* a debugger is expected to attach to this
		// one listener, not a second execution mode, so both resolve to
		// the same accept-then-drive behavior here.
		ep, err := ParseGDBFlag(a.gdb)
		if err != nil {
			fmt.Printf("failed to parse -gdb: %v\n", err)
			os.Exit(1)
		}
		target := NewTarget(sys)
		gdbServer, err := NewGDBServer(ep, target)
		if err != nil {
			fmt.Printf("failed to start gdb server: %v\n", err)
			os.Exit(1)
		}
		log.Printf("[pp5020] gdb stub listening on %s", gdbServer.Addr())
		if err := gdbServer.Serve(); err != nil {
			fmt.Printf("gdb server error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if a.monitor {
		if err := runMonitorConsole(sys); err != nil {
			fmt.Printf("monitor console error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if a.steps > 0 || a.lcdDump != "" {
		for i := 0; i < a.steps; i++ {
			if !sys.Step() {
				break
			}
		}
		if a.lcdDump != "" {
			pix, w, h := sys.LCDSnapshot()
			if err := writeLCDDump(a.lcdDump, pix, w, h); err != nil {
				fmt.Printf("failed to write LCD dump: %v\n", err)
				os.Exit(1)
			}
		}
		return
	}

	if err := sys.Run(); err != nil {
		fmt.Printf("system halted: %v\n", err)
		os.Exit(1)
	}
}
