package main

import (
	"testing"
	"time"
)

func TestCpuConRunningReflectsFlowMask(t *testing.T) {
	c := NewCpuCon(NewLine(TriggerNone).NewSender(), NewLine(TriggerNone).NewSender())
	if !c.Running(coreCPU) {
		t.Fatal("a fresh core must be running (flow mask clear)")
	}
	_ = c.W32(0x0, procSleep)
	if c.Running(coreCPU) {
		t.Fatal("PROC_SLEEP set must report not-running")
	}
}

func TestCpuConWakeOnInterruptClearsSleepOnly(t *testing.T) {
	c := NewCpuCon(NewLine(TriggerNone).NewSender(), NewLine(TriggerNone).NewSender())
	_ = c.W32(0x0, procSleep)
	c.WakeOnInterrupt(coreCPU)
	if !c.Running(coreCPU) {
		t.Fatal("WakeOnInterrupt must clear PROC_SLEEP's flow-control bits")
	}

	// a core with no flow bit set must be a no-op, not a crash.
	c.WakeOnInterrupt(coreCOP)
	if !c.Running(coreCOP) {
		t.Fatal("waking an already-running core must remain running")
	}
}

func TestCpuConMultipleCounterSourcesIsFatalContractViolation(t *testing.T) {
	c := NewCpuCon(NewLine(TriggerNone).NewSender(), NewLine(TriggerNone).NewSender())
	val := uint32(procWaitCnt) | procCntUsec | procCntMsec | 5
	if e := c.W32(0x0, val); e == nil || e.Kind != ExcContractViolation || e.Severity != SeverityError {
		t.Fatalf("setting two counter sources at once must be a SeverityError contract violation, got %v", e)
	}
}

func TestCpuConWaitCntWithNoCounterSourceIsANoop(t *testing.T) {
	c := NewCpuCon(NewLine(TriggerNone).NewSender(), NewLine(TriggerNone).NewSender())
	if e := c.W32(0x0, procWaitCnt); e != nil {
		t.Fatalf("PROC_WAIT_CNT with no counter source selected must be accepted as a no-op, got %v", e)
	}
}

func TestCpuConUsecWaitWakesAndAssertsIRQOnExpiry(t *testing.T) {
	cpuLine := NewLine(TriggerNone)
	c := NewCpuCon(cpuLine.NewSender(), NewLine(TriggerNone).NewSender())

	val := uint32(procSleep) | procWaitCnt | procWakeInt | procCntUsec | 1 // 1us wait
	if e := c.W32(0x0, val); e != nil {
		t.Fatalf("arming the wait counter must succeed, got %v", e)
	}

	deadline := time.Now().Add(200 * time.Millisecond)
	for time.Now().Before(deadline) {
		if c.Running(coreCPU) && cpuLine.Asserted() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("a 1us wait counter must wake the core and assert its IRQ well within 200ms")
}

func TestCpuConStaleGenerationWakeIsIgnored(t *testing.T) {
	c := NewCpuCon(NewLine(TriggerNone).NewSender(), NewLine(TriggerNone).NewSender())
	val := uint32(procSleep) | procWaitCnt | procCntUsec | 1 // 1us wait
	_ = c.W32(0x0, val)
	// reconfigure: bumps the generation, invalidating the pending wake.
	_ = c.W32(0x0, procSleep)
	time.Sleep(20 * time.Millisecond)
	if c.Running(coreCPU) {
		t.Fatal("a wake armed before a reconfiguration must not clear the new flow bits")
	}
}
