//go:build rp2040 || rp2350

// Package rp2 drives an LED pin on RP2040/RP2350 using the pin's PWM slice for
// intermediate levels and plain GPIO output for the rails.
package rp2

import (
	"machine"
	"sync"

	"ledfx-go/errcode"
	"ledfx-go/led"
	"ledfx-go/x/mathx"
	"ledfx-go/x/timex"
)

// Ensure the provider satisfies the contract at compile time.
var _ led.Pin = (*Pin)(nil)

// DefaultFreqHz keeps the carrier well above visible flicker.
const DefaultFreqHz = 1000

// Local interface to avoid depending on an unexported concrete type in machine.
type pwmCtrl interface {
	Configure(cfg machine.PWMConfig) error
	Top() uint32
	Set(channel uint8, value uint32)
}

// Select controller handle for a given slice number (0..7).
func pwmGroupBySlice(slice uint8) pwmCtrl {
	switch slice {
	case 0:
		return machine.PWM0
	case 1:
		return machine.PWM1
	case 2:
		return machine.PWM2
	case 3:
		return machine.PWM3
	case 4:
		return machine.PWM4
	case 5:
		return machine.PWM5
	case 6:
		return machine.PWM6
	default:
		return machine.PWM7
	}
}

// Slices are shared by two pins; the first pin fixes the slice frequency.
var slices struct {
	mu     sync.Mutex
	freqHz map[uint8]uint32
}

type mux uint8

const (
	muxNone mux = iota // input / released
	muxGPIO
	muxPWM
)

// Pin is one LED output. Writes made before Configure(led.Output) are latched
// and committed when the pin is enabled.
type Pin struct {
	pin  machine.Pin
	ctrl pwmCtrl
	ch   uint8 // even pin => A(0), odd pin => B(1)

	out    bool
	mux    mux
	analog bool
	high   bool
	duty   uint8
}

// Open prepares pin with a PWM carrier of freqHz (0 => DefaultFreqHz). The pin
// itself stays an input until the controller enables it.
func Open(pin machine.Pin, freqHz uint32) (*Pin, error) {
	if freqHz == 0 {
		freqHz = DefaultFreqHz
	}
	slice, err := machine.PWMPeripheral(pin)
	if err != nil {
		return nil, errcode.Wrap(errcode.UnknownPin, "rp2.open", err)
	}
	ctrl := pwmGroupBySlice(slice)

	slices.mu.Lock()
	defer slices.mu.Unlock()
	if slices.freqHz == nil {
		slices.freqHz = make(map[uint8]uint32)
	}
	if f, ok := slices.freqHz[slice]; ok {
		if f != freqHz {
			return nil, errcode.Conflict
		}
	} else {
		if err := ctrl.Configure(machine.PWMConfig{Period: timex.PeriodFromHz(freqHz)}); err != nil {
			return nil, errcode.Wrap(errcode.Error, "rp2.open", err)
		}
		slices.freqHz[slice] = freqHz
	}

	return &Pin{pin: pin, ctrl: ctrl, ch: uint8(pin) & 1}, nil
}

func (p *Pin) Configure(dir led.Direction) {
	if dir == led.Input {
		p.out = false
		p.mux = muxNone
		p.pin.Configure(machine.PinConfig{Mode: machine.PinInput})
		return
	}
	p.out = true
	p.commit()
}

func (p *Pin) Set(high bool) {
	p.analog = false
	p.high = high
	if p.out {
		p.commit()
	}
}

func (p *Pin) SetDuty(duty uint8) {
	p.analog = true
	p.duty = duty
	if p.out {
		p.commit()
	}
}

// commit loads the output value first and switches the pin function second,
// so a function change never exposes a stale level.
func (p *Pin) commit() {
	if p.analog {
		p.ctrl.Set(p.ch, mathx.ScaleU8(p.duty, p.ctrl.Top()))
		if p.mux != muxPWM {
			p.pin.Configure(machine.PinConfig{Mode: machine.PinPWM})
			p.mux = muxPWM
		}
		return
	}
	p.pin.Set(p.high)
	if p.mux != muxGPIO {
		p.pin.Configure(machine.PinConfig{Mode: machine.PinOutput})
		p.mux = muxGPIO
	}
}
