// gdb_target.go - binds the GDB Remote Serial Protocol to the step
// primitive: register/memory access, breakpoints, watchpoints, and
// continue/step control.
//
// Grounded on the teacher's debug_interface.go (the DebuggableCPU
// surface: GetRegisters/SetRegister/Step/Freeze/Resume/SetBreakpoint/
// SetWatchpoint) generalized from its single-CPU-process model to the
// PP5020's two cores sharing one step tick (spec.md §4.11), and on
// spec.md §6's GDB monitor-command table / §9 "via a memory sniffer"
// watchpoint requirement.

package main

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
)

// armRegCount is the register-file width the 'g'/'G'/'p'/'P' packets
// report: r0-r15 plus cpsr, the default GDB arm target layout (no XML
// target description is offered, so this fixed order must match what a
// GDB/lldb client assumes for "arm").
const armRegCount = 17

// Target adapts one Ipod4g system to the GDB wire protocol: which core
// is "current" for g/G/m/M, the breakpoint/watchpoint tables, and the
// continue/step loop.
type Target struct {
	mu  sync.Mutex
	sys *Ipod4g

	gThread int // 1-based GDB thread id selected by Hg (registers)
	cThread int // selected by Hc (c/s); "any" (0) and "all" (-1) select thread 1

	breakpoints map[uint32]bool // software breakpoints, keyed by virtual PC

	breakReq atomic.Bool // ctrl-C received while running

	lastStopCore int
	lastStopWasWatch bool
	lastWatch    WatchHit
}

// NewTarget wraps sys for GDB-stub consumption. Both the Hg and Hc
// selections start on thread 1 (thread 1 = core0/"CPU", thread 2 =
// core1/"COP").
func NewTarget(sys *Ipod4g) *Target {
	return &Target{sys: sys, gThread: 1, cThread: 1, breakpoints: map[uint32]bool{}}
}

func (t *Target) RequestBreak() { t.breakReq.Store(true) }

func threadToCore(tid int) int {
	if tid == 2 {
		return core1
	}
	return core0
}
func coreToThread(core int) int {
	if core == core1 {
		return 2
	}
	return 1
}

// Dispatch decodes one RSP packet body and returns the reply body (the
// caller frames and checksums it) plus whether the session should stay
// open.
func (t *Target) Dispatch(pkt string, sess *rspSession) (string, bool) {
	switch {
	case pkt == "":
		return "", true
	case pkt == "!":
		return "OK", true
	case pkt == "?":
		return t.stopReply(), true
	case pkt == "g":
		return t.readRegs(), true
	case strings.HasPrefix(pkt, "G"):
		return t.writeRegs(pkt[1:]), true
	case strings.HasPrefix(pkt, "p"):
		return t.readReg(pkt[1:]), true
	case strings.HasPrefix(pkt, "P"):
		return t.writeReg(pkt[1:]), true
	case strings.HasPrefix(pkt, "m"):
		return t.readMem(pkt[1:]), true
	case strings.HasPrefix(pkt, "M"):
		return t.writeMem(pkt[1:]), true
	case strings.HasPrefix(pkt, "Hg"):
		return t.selectThread(pkt[2:], &t.gThread), true
	case strings.HasPrefix(pkt, "Hc"):
		return t.selectThread(pkt[2:], &t.cThread), true
	case pkt == "qC":
		return fmt.Sprintf("QC%x", t.gThread), true
	case pkt == "qfThreadInfo":
		return "m1,2", true
	case pkt == "qsThreadInfo":
		return "l", true
	case strings.HasPrefix(pkt, "qSupported"):
		return "PacketSize=4000;QStartNoAckMode+;swbreak+;hwbreak+", true
	case pkt == "QStartNoAckMode":
		sess.noAck = true
		return "OK", true
	case strings.HasPrefix(pkt, "qRcmd,"):
		return t.monitor(pkt[len("qRcmd,"):]), true
	case pkt == "c" || strings.HasPrefix(pkt, "c"):
		return t.resume(pkt[1:], false, sess), true
	case pkt == "s" || strings.HasPrefix(pkt, "s"):
		return t.resume(pkt[1:], true, sess), true
	case strings.HasPrefix(pkt, "Z0,"), strings.HasPrefix(pkt, "Z1,"):
		return t.setBreakpoint(pkt[3:]), true
	case strings.HasPrefix(pkt, "z0,"), strings.HasPrefix(pkt, "z1,"):
		return t.clearBreakpoint(pkt[3:]), true
	case strings.HasPrefix(pkt, "Z2,"), strings.HasPrefix(pkt, "Z3,"), strings.HasPrefix(pkt, "Z4,"):
		return t.setWatchpoint(pkt[3:]), true
	case strings.HasPrefix(pkt, "z2,"), strings.HasPrefix(pkt, "z3,"), strings.HasPrefix(pkt, "z4,"):
		return t.clearWatchpoint(pkt[3:]), true
	case pkt == "D":
		return "OK", false
	case pkt == "k":
		return "", false
	default:
		return "", true // unrecognized packet: empty reply per RSP convention
	}
}

// stopReply renders the "why did we last stop" packet GDB expects after
// '?' and after every continue/step.
func (t *Target) stopReply() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.sys.Frozen() {
		return "S05" // SIGTRAP: fatal device exception froze the system
	}
	tid := coreToThread(t.lastStopCore)
	if t.lastStopWasWatch {
		return fmt.Sprintf("T05thread:%x;watch:%x;", tid, t.lastWatch.Addr)
	}
	return fmt.Sprintf("T05thread:%x;", tid)
}

func (t *Target) selectThread(rest string, slot *int) string {
	n, err := strconv.ParseInt(rest, 16, 64)
	if err != nil || n == 0 || n == -1 {
		*slot = 1
		return "OK"
	}
	*slot = int(n)
	return "OK"
}

// readRegs renders r0-r15,cpsr for the g-selected core as 17 little-
// endian 32-bit hex words, the default GDB "arm" register order.
func (t *Target) readRegs() string {
	core := threadToCore(t.gThread)
	c := t.sys.cores[core]
	var sb strings.Builder
	for n := 0; n < 16; n++ {
		sb.WriteString(hexLE32(c.Register(n)))
	}
	sb.WriteString(hexLE32(c.CPSR()))
	return sb.String()
}

func (t *Target) writeRegs(hex string) string {
	if len(hex) != armRegCount*8 {
		return "E01"
	}
	core := threadToCore(t.gThread)
	c := t.sys.cores[core]
	for n := 0; n < 16; n++ {
		v, err := le32FromHex(hex[n*8 : n*8+8])
		if err != nil {
			return "E01"
		}
		c.SetRegister(n, v)
	}
	v, err := le32FromHex(hex[16*8 : 16*8+8])
	if err != nil {
		return "E01"
	}
	c.SetCPSR(v)
	return "OK"
}

func (t *Target) readReg(rest string) string {
	n, err := strconv.ParseInt(rest, 16, 64)
	if err != nil || n < 0 || n >= armRegCount {
		return "E01"
	}
	core := threadToCore(t.gThread)
	c := t.sys.cores[core]
	if n == 16 {
		return hexLE32(c.CPSR())
	}
	return hexLE32(c.Register(int(n)))
}

func (t *Target) writeReg(rest string) string {
	idxStr, valHex, ok := strings.Cut(rest, "=")
	if !ok {
		return "E01"
	}
	n, err := strconv.ParseInt(idxStr, 16, 64)
	if err != nil || n < 0 || n >= armRegCount {
		return "E01"
	}
	v, err := le32FromHex(valHex)
	if err != nil {
		return "E01"
	}
	core := threadToCore(t.gThread)
	c := t.sys.cores[core]
	if n == 16 {
		c.SetCPSR(v)
	} else {
		c.SetRegister(int(n), v)
	}
	return "OK"
}

// memCore is the core whose MMU/CPU-ID context memory access uses: the
// g-selected thread, matching how GDB inspects memory "as" a thread.
func (t *Target) memCore() int { return threadToCore(t.gThread) }

func (t *Target) readMem(rest string) string {
	addrStr, lenStr, ok := strings.Cut(rest, ",")
	if !ok {
		return "E01"
	}
	addr, err := strconv.ParseUint(addrStr, 16, 32)
	if err != nil {
		return "E01"
	}
	n, err := strconv.ParseUint(lenStr, 16, 32)
	if err != nil {
		return "E01"
	}
	core := t.memCore()
	t.sys.memcon.SelectCore(core)
	t.sys.cpuid.SetCore(core)
	a := t.sys.adapters[core]
	var sb strings.Builder
	for i := uint64(0); i < n; i++ {
		v := a.Read8(uint32(addr) + uint32(i))
		sb.WriteString(hexEncode(string([]byte{v})))
	}
	return sb.String()
}

func (t *Target) writeMem(rest string) string {
	head, data, ok := strings.Cut(rest, ":")
	if !ok {
		return "E01"
	}
	addrStr, lenStr, ok := strings.Cut(head, ",")
	if !ok {
		return "E01"
	}
	addr, err := strconv.ParseUint(addrStr, 16, 32)
	if err != nil {
		return "E01"
	}
	n, err := strconv.ParseUint(lenStr, 16, 32)
	if err != nil {
		return "E01"
	}
	raw, err := hexDecode(data)
	if err != nil || uint64(len(raw)) != n {
		return "E01"
	}
	core := t.memCore()
	t.sys.memcon.SelectCore(core)
	t.sys.cpuid.SetCore(core)
	a := t.sys.adapters[core]
	for i, b := range []byte(raw) {
		a.Write8(uint32(addr)+uint32(i), b)
	}
	return "OK"
}

func (t *Target) setBreakpoint(rest string) string {
	addrStr, _, _ := strings.Cut(rest, ",")
	addr, err := strconv.ParseUint(addrStr, 16, 32)
	if err != nil {
		return "E01"
	}
	t.mu.Lock()
	t.breakpoints[uint32(addr)] = true
	t.mu.Unlock()
	return "OK"
}

func (t *Target) clearBreakpoint(rest string) string {
	addrStr, _, _ := strings.Cut(rest, ",")
	addr, err := strconv.ParseUint(addrStr, 16, 32)
	if err != nil {
		return "E01"
	}
	t.mu.Lock()
	delete(t.breakpoints, uint32(addr))
	t.mu.Unlock()
	return "OK"
}

// setWatchpoint registers addr with the current core's sniffer (spec.md
// §9's "via a memory sniffer"). Kind (2=write,3=read,4=access) is not
// distinguished further: Sniffer.Watch only tracks writes (membus.go),
// matching this system's IDE/GPIO/I2C-register-centric firmware
// debugging use case rather than a general read-watch facility.
func (t *Target) setWatchpoint(rest string) string {
	addrStr, _, _ := strings.Cut(rest, ",")
	addr, err := strconv.ParseUint(addrStr, 16, 32)
	if err != nil {
		return "E01"
	}
	t.sys.sniffers[t.memCore()].Watch(uint32(addr))
	return "OK"
}

func (t *Target) clearWatchpoint(rest string) string {
	addrStr, _, _ := strings.Cut(rest, ",")
	addr, err := strconv.ParseUint(addrStr, 16, 32)
	if err != nil {
		return "E01"
	}
	t.sys.sniffers[t.memCore()].Unwatch(uint32(addr))
	return "OK"
}

// resume runs the step loop until a breakpoint, watchpoint, ctrl-C, or
// fatal error stops it (continue), or for exactly one tick (step), then
// returns the stop-reply packet. spec.md §6's `single_step_irq` monitor
// command toggles whether IRQ delivery (Step 6 of spec.md §4.11) runs
// during this loop via Ipod4g.SetSkipIRQCheck.
func (t *Target) resume(addrHex string, singleStep bool, sess *rspSession) string {
	core := threadToCore(t.cThread)
	if addrHex != "" {
		if addr, err := strconv.ParseUint(addrHex, 16, 32); err == nil {
			t.sys.cores[core].SetRegister(15, uint32(addr))
		}
	}
	t.breakReq.Store(false)

	for {
		pc := t.sys.cores[core].PC()
		t.mu.Lock()
		atBreak := t.breakpoints[pc]
		t.mu.Unlock()
		if atBreak {
			t.lastStopCore, t.lastStopWasWatch = core, false
			return t.stopReply()
		}
		if !t.sys.Step() {
			t.lastStopCore, t.lastStopWasWatch = core, false
			return t.stopReply()
		}
		if hits := t.sys.sniffers[core].Drain(); len(hits) > 0 {
			t.lastStopCore, t.lastStopWasWatch, t.lastWatch = core, true, hits[0]
			return t.stopReply()
		}
		if singleStep {
			t.lastStopCore, t.lastStopWasWatch = core, false
			return t.stopReply()
		}
		if t.breakReq.Load() || sess.pollBreak() {
			t.lastStopCore, t.lastStopWasWatch = core, false
			return t.stopReply()
		}
	}
}

// hexLE32/le32FromHex encode a 32-bit register in the little-endian
// byte order the RSP wire format requires (GDB's "g" packet is defined
// byte-by-byte in target memory order, not as a big hex integer).
func hexLE32(v uint32) string {
	b := []byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)}
	return hexEncode(string(b))
}

func le32FromHex(hex string) (uint32, error) {
	raw, err := hexDecode(hex)
	if err != nil || len(raw) != 4 {
		return 0, fmt.Errorf("bad register hex %q", hex)
	}
	b := []byte(raw)
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24, nil
}
