// Package ledtest provides a virtual clock and a recording pin for exercising
// led.Controller without hardware.
package ledtest

import (
	"fmt"
	"sync"

	"ledfx-go/led"
)

// Clock is a manually advanced millisecond clock. It is safe for use from a
// test goroutine while a service goroutine reads it.
type Clock struct {
	mu  sync.Mutex
	now uint32
}

func NewClock(start uint32) *Clock { return &Clock{now: start} }

func (c *Clock) NowMs() uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) Set(ms uint32) {
	c.mu.Lock()
	c.now = ms
	c.mu.Unlock()
}

func (c *Clock) Advance(ms uint32) {
	c.mu.Lock()
	c.now += ms
	c.mu.Unlock()
}

// Kind of a recorded pin operation.
type Kind uint8

const (
	Configure Kind = iota
	Digital
	Analog
)

func (k Kind) String() string {
	switch k {
	case Configure:
		return "configure"
	case Digital:
		return "digital"
	default:
		return "analog"
	}
}

// Write is one recorded pin operation.
type Write struct {
	At   uint32
	Kind Kind
	High bool          // Digital
	Duty uint8         // Analog
	Dir  led.Direction // Configure
}

func (w Write) String() string {
	switch w.Kind {
	case Configure:
		return fmt.Sprintf("%d:configure(%s)", w.At, w.Dir)
	case Digital:
		if w.High {
			return fmt.Sprintf("%d:high", w.At)
		}
		return fmt.Sprintf("%d:low", w.At)
	default:
		return fmt.Sprintf("%d:analog(%d)", w.At, w.Duty)
	}
}

// Level recovers the logical brightness of a level write for the given
// polarity. ok is false for Configure records.
func (w Write) Level(inverted bool) (level uint8, ok bool) {
	switch w.Kind {
	case Digital:
		if w.High != inverted {
			return 255, true
		}
		return 0, true
	case Analog:
		if inverted {
			return 255 - w.Duty, true
		}
		return w.Duty, true
	default:
		return 0, false
	}
}

// Pin records every operation with the clock reading at the time.
type Pin struct {
	clock  *Clock
	mu     sync.Mutex
	writes []Write
}

var _ led.Pin = (*Pin)(nil)

func NewPin(clock *Clock) *Pin { return &Pin{clock: clock} }

func (p *Pin) record(w Write) {
	w.At = p.clock.NowMs()
	p.mu.Lock()
	p.writes = append(p.writes, w)
	p.mu.Unlock()
}

func (p *Pin) Configure(dir led.Direction) { p.record(Write{Kind: Configure, Dir: dir}) }
func (p *Pin) Set(high bool)               { p.record(Write{Kind: Digital, High: high}) }
func (p *Pin) SetDuty(duty uint8)          { p.record(Write{Kind: Analog, Duty: duty}) }

// Writes returns a copy of every recorded operation.
func (p *Pin) Writes() []Write {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Write(nil), p.writes...)
}

// LevelWrites returns the recorded digital and analog writes only.
func (p *Pin) LevelWrites() []Write {
	var out []Write
	for _, w := range p.Writes() {
		if w.Kind != Configure {
			out = append(out, w)
		}
	}
	return out
}

// Reset forgets all recorded operations.
func (p *Pin) Reset() {
	p.mu.Lock()
	p.writes = p.writes[:0]
	p.mu.Unlock()
}

// Run ticks c every step ms until the clock reaches until (inclusive).
func Run(c *led.Controller, clock *Clock, until, step uint32) {
	if step == 0 {
		step = 1
	}
	for clock.NowMs() < until {
		clock.Advance(step)
		c.Tick()
	}
}
