// signal.go - shared asserted-count signal line, basis for IRQ and GPIO

/*
 ██▓ ███▄    █ ▄▄▄█████▓ █    ██  ██▓▄▄▄█████▓ ██▓ ▒█████   ███▄    █    ▓█████  ███▄    █   ▄████  ██▓ ███▄    █ ▓█████
▓██▒ ██ ▀█   █ ▓  ██▒ ▓▒ ██  ▓██▒▓██▒▓  ██▒ ▓▒▓██▒▒██▒  ██▒ ██ ▀█   █    ▓█   ▀  ██ ▀█   █  ██▒ ▀█▒▓██▒ ██ ▀█   █ ▓█   ▀
▒██▒▓██  ▀█ ██▒▒ ▓██░ ▒░▓██  ▒██░▒██▒▒ ▓██░ ▒░▒██▒▒██░  ██▒▓██  ▀█ ██▒   ▒███   ▓██  ▀█ ██▒▒██░▄▄▄░▒██▒▓██  ▀█ ██▒▒███
░██░▓██▒  ▐▌██▒░ ▓██▓ ░ ▓▓█  ░██░░██░░ ▓██▓ ░ ░██░▒██   ██░▓██▒  ▐▌██▒   ▒▓█  ▄ ▓██▒  ▐▌██▒░▓█  ██▓░██░▓██▒  ▐▌██▒▒▓█  ▄
░██░▒██░   ▓██░  ▒██▒ ░ ▒▒█████▓ ░██░  ▒██▒ ░ ░██░░ ████▓▒░▒██░   ▓██░   ░▒████▒▒██░   ▓██░░▒▓███▀▒░██░▒██░   ▓██░░▒████▒
░▓  ░ ▒░   ▒ ▒   ▒ ░░   ░▒▓▒ ▒ ▒ ░▓    ▒ ░░   ░▓  ░ ▒░▒░▒░ ░ ▒░   ▒ ▒    ░░ ▒░ ░░ ▒░   ▒ ▒  ░▒   ▒ ░▓  ░ ▒░   ▒ ▒ ░░ ▒░ ░
 ▒ ░░ ░░   ░ ▒░    ░    ░░▒░ ░ ░  ▒ ░    ░     ▒ ░  ░ ▒ ▒░ ░ ░░   ░ ▒░    ░ ░  ░░ ░░   ░ ▒░  ░   ░  ▒ ░░ ░░   ░ ▒░ ░ ░  ░
 ▒ ░   ░   ░ ░   ░       ░░░ ░ ░  ▒ ░  ░       ▒ ░░ ░ ░ ▒     ░   ░ ░       ░      ░   ░ ░ ░ ░   ░  ▒ ░   ░   ░ ░    ░
 ░           ░             ░      ░            ░      ░ ░           ░       ░  ░         ░       ░  ░           ░    ░  ░

(c) 2024 - 2026 Zayn Otley
https://github.com/IntuitionAmiga/IntuitionEngine
License: GPLv3 or later
*/

package main

import "sync/atomic"

// TriggerKind selects how a Line latches its Changed() observation.
type TriggerKind int

const (
	TriggerNone TriggerKind = iota
	TriggerLevelHi
	TriggerLevelLo
	TriggerEdge
)

// Line is a shared asserted-count signal. Multiple senders may each hold
// the line asserted; it reads as asserted iff at least one sender is
// currently asserting. A sender's own assert/release calls are
// idempotent - asserting twice without an intervening release has no
// additional effect.
//
// An optional trigger latches a bool on qualifying transitions of the
// line's asserted state: Level-Hi/Level-Lo latch whenever the line is
// currently in that level; Edge latches only on a transition.
type Line struct {
	count   atomic.Int64
	kind    TriggerKind
	latched atomic.Bool
	wasHigh atomic.Bool
}

// NewLine creates a Line with the given trigger semantics.
func NewLine(kind TriggerKind) *Line {
	return &Line{kind: kind}
}

// Sender is one asserter's idempotent handle onto a shared Line.
type Sender struct {
	line      *Line
	asserting atomic.Bool
}

// NewSender returns a fresh, not-yet-asserting handle onto line.
func (l *Line) NewSender() *Sender {
	return &Sender{line: l}
}

// Assert raises this sender's hold on the line. No-op if already asserting.
func (s *Sender) Assert() {
	if s.asserting.CompareAndSwap(false, true) {
		s.line.count.Add(1)
		s.line.observe()
	}
}

// Release drops this sender's hold on the line. No-op if not asserting.
func (s *Sender) Release() {
	if s.asserting.CompareAndSwap(true, false) {
		s.line.count.Add(-1)
		s.line.observe()
	}
}

// Asserted reports whether the line is currently asserted by any sender.
func (l *Line) Asserted() bool {
	return l.count.Load() != 0
}

// observe re-evaluates the trigger after a count change.
func (l *Line) observe() {
	high := l.Asserted()
	prev := l.wasHigh.Swap(high)
	switch l.kind {
	case TriggerLevelHi:
		if high {
			l.latched.Store(true)
		}
	case TriggerLevelLo:
		if !high {
			l.latched.Store(true)
		}
	case TriggerEdge:
		if high != prev {
			l.latched.Store(true)
		}
	}
}

// Changed reports and clears whether the trigger has latched since the
// last call - a genuine check-and-clear, not a re-check of current state.
func (l *Line) Changed() bool {
	return l.latched.Swap(false)
}

// Peek reports the trigger's latch state without clearing it.
func (l *Line) Peek() bool {
	return l.latched.Load()
}
