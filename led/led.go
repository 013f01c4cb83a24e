// Package led animates a single indicator LED on one output pin.
//
// A Controller runs one of three modes (fixed level, blink bursts, breathing
// pulse) from a cooperatively polled Tick. Levels are 0..255; the two
// endpoints are driven as digital rails and everything in between as PWM duty,
// with active-low wiring handled by the controller.
package led

import (
	"strings"

	"ledfx-go/x/timex"
)

// WaitForEver as a level delay means the level never times out.
const WaitForEver = timex.Forever

// Direction of a pin.
type Direction uint8

const (
	Input Direction = iota
	Output
)

func (d Direction) String() string {
	if d == Output {
		return "output"
	}
	return "input"
}

// Pin is the platform surface a Controller drives. Implementations map it onto
// GPIO and PWM primitives; none of the methods may block.
type Pin interface {
	// Configure sets the pin direction. Input releases the pin.
	Configure(dir Direction)
	// Set drives the pin to a digital rail.
	Set(high bool)
	// SetDuty writes a PWM duty in 0..255. 0 and 255 must match the rails.
	SetDuty(duty uint8)
}

// Mode selects the active animation.
type Mode uint8

const (
	Fixed Mode = iota
	Blink
	Pulse
)

func (m Mode) String() string {
	switch m {
	case Fixed:
		return "fixed"
	case Blink:
		return "blink"
	case Pulse:
		return "pulse"
	default:
		return "unknown"
	}
}

// ParseMode accepts "fixed", "blink" and "pulse" (case-insensitive).
func ParseMode(s string) (Mode, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "fixed":
		return Fixed, true
	case "blink":
		return Blink, true
	case "pulse":
		return Pulse, true
	default:
		return Fixed, false
	}
}

// BlinkParams describes a blink burst: Count on-pulses of OnMs separated by
// OffMs, then a WaitMs pause at Min before the next burst.
type BlinkParams struct {
	Count  uint8
	OnMs   uint32
	OffMs  uint32
	WaitMs uint32
	Min    uint8
	Max    uint8
}

// DefaultBlink returns blink parameters spanning the full 0..255 range.
func DefaultBlink(count uint8, onMs, offMs, waitMs uint32) BlinkParams {
	return BlinkParams{Count: count, OnMs: onMs, OffMs: offMs, WaitMs: waitMs, Min: 0, Max: 255}
}

// PulseParams describes a breathing pulse between Min and Max, one level step
// every UpMs while rising and every DownMs while falling. Increase selects the
// rest endpoint: true starts at Min and pauses WaitMs there between cycles,
// false starts at Max and pauses at Max.
type PulseParams struct {
	Increase bool
	UpMs     uint32
	DownMs   uint32
	WaitMs   uint32
	Min      uint8
	Max      uint8
}

// DefaultPulse returns pulse parameters spanning the full 0..255 range.
func DefaultPulse(increase bool, upMs, downMs, waitMs uint32) PulseParams {
	return PulseParams{Increase: increase, UpMs: upMs, DownMs: downMs, WaitMs: waitMs, Min: 0, Max: 255}
}

// State is a read-only snapshot of a controller.
type State struct {
	Mode       Mode
	Level      uint8
	Min        uint8
	Max        uint8
	BlinksDone uint8
	Blinks     uint8
	Step       int8
	Inverted   bool
}
