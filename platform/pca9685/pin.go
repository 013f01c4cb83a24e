// Package pca9685 drives an LED wired to one channel of a PCA9685 I²C PWM
// expander. Intermediate levels go through the driver's duty registers; the
// rails use the channel's full-on and full-off bits.
package pca9685

import (
	"sync"

	"tinygo.org/x/drivers"
	"tinygo.org/x/drivers/pca9685"

	"ledfx-go/errcode"
	"ledfx-go/led"
	"ledfx-go/x/mathx"
	"ledfx-go/x/timex"
)

var _ led.Pin = (*Pin)(nil)

const (
	DefaultAddr   = 0x40
	DefaultFreqHz = 1000
	Channels      = 16
)

// Channel registers: LEDn_ON_L at regLED0 + 4n, followed by ON_H, OFF_L, OFF_H.
const (
	regLED0 = 0x06
	fullBit = 0x10 // bit 4 of ON_H / OFF_H
)

// pwmDev is the part of pca9685.Dev the pin uses.
type pwmDev interface {
	Set(channel uint8, on uint32)
	Top() uint32
}

// railDev switches a channel fully on or fully off.
type railDev interface {
	Full(channel uint8, on bool) error
}

// regs writes channel registers one byte at a time, so it does not depend
// on the auto-increment mode.
type regs struct {
	bus  drivers.I2C
	addr uint16
}

func (r regs) write(reg, v uint8) error {
	return r.bus.Tx(r.addr, []byte{reg, v}, nil)
}

func (r regs) Full(ch uint8, on bool) error {
	base := regLED0 + 4*ch
	if on {
		// full-off wins over full-on, so set on before clearing off
		if err := r.write(base+1, fullBit); err != nil {
			return err
		}
		return r.write(base+3, 0)
	}
	return r.write(base+3, fullBit)
}

type level struct {
	rail bool
	high bool
	duty uint32
}

// Pin is one expander channel. Writes are latched until the channel is
// enabled with Configure(led.Output); Configure(led.Input) turns it fully off.
type Pin struct {
	mu    sync.Mutex
	dev   pwmDev
	rails railDev
	ch    uint8
	out   bool
	want  level
	err   error
}

// Open configures the expander at addr with a PWM carrier of freqHz
// (0 => DefaultFreqHz) and returns a pin for channel ch.
func Open(bus drivers.I2C, addr uint8, ch uint8, freqHz uint32) (*Pin, error) {
	if ch >= Channels {
		return nil, &errcode.E{C: errcode.UnknownPin, Op: "pca9685.open", Msg: "channel out of range"}
	}
	if freqHz == 0 {
		freqHz = DefaultFreqHz
	}
	if addr == 0 {
		addr = DefaultAddr
	}
	dev := pca9685.New(bus, addr)
	if err := dev.Configure(pca9685.PWMConfig{Period: timex.PeriodFromHz(freqHz)}); err != nil {
		return nil, errcode.Wrap(errcode.Error, "pca9685.open", err)
	}
	return newPin(dev, regs{bus: bus, addr: uint16(addr)}, ch), nil
}

func newPin(dev pwmDev, rails railDev, ch uint8) *Pin {
	return &Pin{dev: dev, rails: rails, ch: ch, want: level{rail: true}}
}

func (p *Pin) Configure(dir led.Direction) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.out = dir == led.Output
	if p.out {
		p.commit()
		return
	}
	p.record(p.rails.Full(p.ch, false))
}

func (p *Pin) Set(high bool) {
	p.write(level{rail: true, high: high})
}

func (p *Pin) SetDuty(duty uint8) {
	p.write(level{duty: mathx.ScaleU8(duty, p.dev.Top())})
}

// Err returns the last register write error, if any.
func (p *Pin) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

func (p *Pin) write(l level) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.want = l
	if p.out {
		p.commit()
	}
}

// caller holds p.mu
func (p *Pin) commit() {
	if p.want.rail {
		p.record(p.rails.Full(p.ch, p.want.high))
		return
	}
	p.dev.Set(p.ch, p.want.duty)
}

func (p *Pin) record(err error) {
	if err != nil {
		p.err = err
	}
}
