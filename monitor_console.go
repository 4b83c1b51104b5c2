// monitor_console.go - interactive local monitor console
//
// Grounded on the teacher's debug_monitor.go interactive line-editor,
// driven from a local TTY instead of a debugger connection. Reuses the
// GDB stub's monitor command table (gdb_monitor.go) so `probe`, `dumpsys`,
// `single_step_irq`, and `script` behave identically whether typed here
// or sent as a GDB qRcmd packet. golang.org/x/term supplies raw-mode line
// editing and window-size-aware prompting, exactly as a CLI monitor would.

package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

type stdioRW struct {
	io.Reader
	io.Writer
}

// runMonitorConsole drives sys from stdin/stdout until EOF, "quit", or
// "exit". When stdin isn't a TTY (piped input, e.g. from a test harness
// or a CI script), it falls back to plain line-buffered scanning since
// raw mode has nothing to attach to.
func runMonitorConsole(sys *Ipod4g) error {
	tg := NewTarget(sys)
	fd := int(os.Stdin.Fd())

	if !term.IsTerminal(fd) {
		return runMonitorLines(tg, os.Stdin, os.Stdout)
	}

	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return fmt.Errorf("monitor: enter raw mode: %w", err)
	}
	defer term.Restore(fd, oldState)

	width, height, err := term.GetSize(fd)
	if err != nil {
		width, height = 80, 24
	}

	tm := term.NewTerminal(stdioRW{os.Stdin, os.Stdout}, "pp5020> ")
	_ = tm.SetSize(width, height)

	for {
		line, err := tm.ReadLine()
		if err != nil {
			return nil // EOF or ctrl-D: clean exit
		}
		if done := dispatchMonitorLine(tg, line, tm); done {
			return nil
		}
	}
}

// runMonitorLines is the non-TTY fallback: one command per line of r,
// reply written to w.
func runMonitorLines(tg *Target, r io.Reader, w io.Writer) error {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		if done := dispatchMonitorLine(tg, sc.Text(), w); done {
			return nil
		}
	}
	return sc.Err()
}

func dispatchMonitorLine(tg *Target, line string, w io.Writer) (done bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}
	if line == "quit" || line == "exit" {
		return true
	}
	reply := tg.monitor(hexEncode(line))
	decoded, err := hexDecode(reply)
	if err != nil {
		fmt.Fprintf(w, "monitor: malformed reply: %v\n", err)
		return false
	}
	fmt.Fprint(w, decoded)
	return false
}
