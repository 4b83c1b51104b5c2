package main

import (
	"os"
	"strings"
	"testing"
)

func TestMonitorScriptRunsLuaAndCapturesPrint(t *testing.T) {
	tg := newTestTarget()
	path := t.TempDir() + "/script.lua"
	script := `print("probed", probe(0x10000000))
w32(0x10000000, 0xdeadbeef)
print("r32", r32(0x10000000))
setbreakpoint(0x100)
`
	if err := os.WriteFile(path, []byte(script), 0o644); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	reply, _ := tg.Dispatch("qRcmd,"+hexEncode("script "+path), nil)
	decoded, err := hexDecode(reply)
	if err != nil {
		t.Fatalf("script reply must be valid hex, got %q: %v", reply, err)
	}
	if !strings.Contains(decoded, "probed\t") {
		t.Fatalf("probe() output missing, got %q", decoded)
	}
	if !strings.Contains(decoded, "r32\t3735928559") {
		t.Fatalf("r32() round-trip output missing, got %q", decoded)
	}
	if !tg.breakpoints[0x100] {
		t.Fatal("setbreakpoint() called from Lua must register the breakpoint")
	}
}

func TestMonitorScriptMissingFileReportsError(t *testing.T) {
	tg := newTestTarget()
	reply, _ := tg.Dispatch("qRcmd,"+hexEncode("script /nonexistent/path.lua"), nil)
	decoded, _ := hexDecode(reply)
	if !strings.HasPrefix(decoded, "script error:") {
		t.Fatalf("expected a script error message, got %q", decoded)
	}
}

func TestDispatchMonitorLineQuitSignalsDone(t *testing.T) {
	tg := newTestTarget()
	var sb strings.Builder
	if !dispatchMonitorLine(tg, "quit", &sb) {
		t.Fatal("\"quit\" must signal the console to exit")
	}
	if sb.Len() != 0 {
		t.Fatalf("quit must not produce output, got %q", sb.String())
	}
}

func TestDispatchMonitorLineRunsMonitorCommand(t *testing.T) {
	tg := newTestTarget()
	var sb strings.Builder
	if dispatchMonitorLine(tg, "help", &sb) {
		t.Fatal("\"help\" must not end the console")
	}
	if !strings.Contains(sb.String(), "monitor commands:") {
		t.Fatalf("expected help text, got %q", sb.String())
	}
}

func TestRunMonitorLinesProcessesUntilEOF(t *testing.T) {
	tg := newTestTarget()
	in := strings.NewReader("help\ndumpsys\n")
	var out strings.Builder
	if err := runMonitorLines(tg, in, &out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out.String(), "monitor commands:") || !strings.Contains(out.String(), "core 0:") {
		t.Fatalf("expected both commands' output, got %q", out.String())
	}
}
