// gdb_monitor.go - `monitor` command surface for the GDB stub
//
// Grounded on the teacher's debug_monitor.go (a small named-command
// table dispatched from a single text line) and spec.md §6's monitor
// command table (`help`, `dumpsys`, `probe <addr>`, `single_step_irq
// <bool>`), plus SPEC_FULL.md §11's `script <file.lua>` scripting
// extension. GDB's `qRcmd` packet carries the typed command hex-encoded
// in the packet body and expects the textual reply hex-encoded back.

package main

import (
	"fmt"
	"strconv"
	"strings"

	lua "github.com/yuin/gopher-lua"
)

// monitor decodes one qRcmd payload, executes the named command
// against t.sys, and returns the RSP-hex-encoded reply text Dispatch
// hands back to the caller unmodified.
func (t *Target) monitor(hexCmd string) string {
	raw, err := hexDecode(hexCmd)
	if err != nil {
		return hexEncode("malformed monitor command\n")
	}
	fields := strings.Fields(raw)
	if len(fields) == 0 {
		return hexEncode("empty monitor command\n")
	}

	var out string
	switch fields[0] {
	case "help":
		out = "monitor commands: help, dumpsys, probe <addr>, single_step_irq <0|1>, script <file.lua>\n"
	case "dumpsys":
		out = t.dumpsys()
	case "script":
		if len(fields) != 2 {
			out = "usage: script <file.lua>\n"
			break
		}
		result, serr := t.runLuaScript(fields[1])
		if serr != nil {
			out = fmt.Sprintf("script error: %v\n%s", serr, result)
			break
		}
		out = result
	case "probe":
		if len(fields) != 2 {
			out = "usage: probe <addr>\n"
			break
		}
		addr, perr := strconv.ParseUint(strings.TrimPrefix(fields[1], "0x"), 16, 32)
		if perr != nil {
			out = fmt.Sprintf("bad address %q\n", fields[1])
			break
		}
		out = t.sys.Probe(uint32(addr)) + "\n"
	case "single_step_irq":
		if len(fields) != 2 {
			out = "usage: single_step_irq <0|1>\n"
			break
		}
		skip, perr := parseMonitorBool(fields[1])
		if perr != nil {
			out = fmt.Sprintf("bad bool %q\n", fields[1])
			break
		}
		t.sys.SetSkipIRQCheck(skip)
		out = fmt.Sprintf("single_step_irq: skip-IRQ-check=%v\n", skip)
	default:
		out = fmt.Sprintf("unknown monitor command %q\n", fields[0])
	}
	return hexEncode(out)
}

// runLuaScript executes path against t.sys, binding probe, r32/w32, and
// setbreakpoint as Lua globals alongside a print that captures into the
// monitor reply instead of stdout. This is the monitor's scripting
// extension point (SPEC_FULL.md §11) — the same role gopher-lua plays in
// the teacher's debug_commands.go macro table, generalized from string
// macros to an embedded interpreter.
func (t *Target) runLuaScript(path string) (string, error) {
	L := lua.NewState()
	defer L.Close()

	var out strings.Builder

	L.SetGlobal("probe", L.NewFunction(func(ls *lua.LState) int {
		addr := uint32(ls.CheckInt64(1))
		ls.Push(lua.LString(t.sys.Probe(addr)))
		return 1
	}))
	L.SetGlobal("r32", L.NewFunction(func(ls *lua.LState) int {
		addr := uint32(ls.CheckInt64(1))
		v, e := t.sys.bus.R32(addr)
		if e != nil {
			ls.Push(lua.LNil)
			ls.Push(lua.LString(e.Error()))
			return 2
		}
		ls.Push(lua.LNumber(v))
		return 1
	}))
	L.SetGlobal("w32", L.NewFunction(func(ls *lua.LState) int {
		addr := uint32(ls.CheckInt64(1))
		val := uint32(ls.CheckInt64(2))
		if e := t.sys.bus.W32(addr, val); e != nil {
			ls.Push(lua.LString(e.Error()))
			return 1
		}
		return 0
	}))
	L.SetGlobal("setbreakpoint", L.NewFunction(func(ls *lua.LState) int {
		addr := uint32(ls.CheckInt64(1))
		t.mu.Lock()
		t.breakpoints[addr] = true
		t.mu.Unlock()
		return 0
	}))
	L.SetGlobal("print", L.NewFunction(func(ls *lua.LState) int {
		n := ls.GetTop()
		parts := make([]string, n)
		for i := 1; i <= n; i++ {
			parts[i-1] = ls.ToStringMeta(ls.Get(i)).String()
		}
		out.WriteString(strings.Join(parts, "\t"))
		out.WriteByte('\n')
		return 0
	}))

	err := L.DoFile(path)
	return out.String(), err
}

func parseMonitorBool(s string) (bool, error) {
	switch s {
	case "0", "false", "off":
		return false, nil
	case "1", "true", "on":
		return true, nil
	default:
		return false, fmt.Errorf("not a bool: %q", s)
	}
}

// dumpsys renders a textual system snapshot: per-core PC/mode/register
// file, the staged exception vector table, and freeze status — the
// same facts system.go's writeDump writes to the fatal-error dump file
// (spec.md §7), available here on demand rather than only post-mortem.
func (t *Target) dumpsys() string {
	var sb strings.Builder
	if t.sys.Frozen() {
		fmt.Fprintf(&sb, "FROZEN: %v\n", t.sys.FatalError())
	} else {
		sb.WriteString("running\n")
	}
	for core := 0; core < 2; core++ {
		c := t.sys.cores[core]
		fmt.Fprintf(&sb, "core %d: pc=%#x mode=%s\n", core, c.PC(), c.Mode())
		for r := 0; r < 16; r++ {
			fmt.Fprintf(&sb, "  r%-2d = %#010x\n", r, c.Register(r))
		}
	}
	vec := t.sys.VectorTable()
	sb.WriteString("vectors:\n")
	for i, v := range vec {
		fmt.Fprintf(&sb, "  [%d] = %#010x\n", i, v)
	}
	return sb.String()
}
