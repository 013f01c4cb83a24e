// Package cdev drives an LED on a Linux GPIO character-device line. The rails
// are plain line writes; intermediate levels run a software PWM goroutine.
package cdev

import (
	"io"
	"log/slog"
	"sync"
	"time"

	"ledfx-go/led"
)

var _ led.Pin = (*Pin)(nil)

// DefaultPeriod is the software PWM cycle.
const DefaultPeriod = 10 * time.Millisecond

// lineIO is the requested line as seen by Pin.
type lineIO interface {
	SetValue(v int) error
	Output(v int) error
	Input() error
	Close() error
}

type Option func(*Pin)

// WithPeriod sets the software PWM cycle.
func WithPeriod(d time.Duration) Option {
	return func(p *Pin) {
		if d > 0 {
			p.period = d
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(p *Pin) {
		if l != nil {
			p.log = l
		}
	}
}

// Pin is one GPIO line. Writes are latched until Configure(led.Output).
type Pin struct {
	line   lineIO
	period time.Duration
	log    *slog.Logger

	out    bool
	analog bool
	high   bool
	duty   uint8

	pwm *swPWM

	mu  sync.Mutex
	err error
}

func newPin(line lineIO, opts ...Option) *Pin {
	p := &Pin{
		line:   line,
		period: DefaultPeriod,
		log:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

func (p *Pin) Configure(dir led.Direction) {
	if dir == led.Input {
		p.stopPWM()
		p.out = false
		p.record(p.line.Input())
		return
	}
	p.out = true
	if p.analog {
		p.stopPWM()
		p.record(p.line.Output(0))
		p.startPWM()
		return
	}
	p.record(p.line.Output(level(p.high)))
}

func (p *Pin) Set(high bool) {
	p.analog = false
	p.high = high
	if !p.out {
		return
	}
	p.stopPWM()
	p.record(p.line.SetValue(level(high)))
}

func (p *Pin) SetDuty(duty uint8) {
	p.analog = true
	p.duty = duty
	if !p.out {
		return
	}
	if p.pwm == nil {
		p.startPWM()
		return
	}
	p.pwm.set(duty)
}

// Close stops any PWM and releases the line.
func (p *Pin) Close() error {
	p.stopPWM()
	p.out = false
	return p.line.Close()
}

// Err returns the last line error, if any.
func (p *Pin) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

func (p *Pin) record(err error) {
	if err == nil {
		return
	}
	p.mu.Lock()
	p.err = err
	p.mu.Unlock()
	p.log.Warn("gpio line write failed", "err", err)
}

func (p *Pin) startPWM() {
	p.pwm = newSwPWM(p.period, p.duty, func(v int) { p.record(p.line.SetValue(v)) })
}

func (p *Pin) stopPWM() {
	if p.pwm != nil {
		p.pwm.close()
		p.pwm = nil
	}
}

func level(high bool) int {
	if high {
		return 1
	}
	return 0
}

// swPWM toggles a line from its own goroutine. Duty changes take effect at
// the end of the current cycle.
type swPWM struct {
	duty chan uint8
	stop chan struct{}
	done chan struct{}
}

func newSwPWM(period time.Duration, duty uint8, set func(int)) *swPWM {
	s := &swPWM{
		duty: make(chan uint8, 1),
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	go s.run(period, duty, set)
	return s
}

// set replaces any duty not yet picked up.
func (s *swPWM) set(d uint8) {
	select {
	case s.duty <- d:
		return
	default:
	}
	select {
	case <-s.duty:
	default:
	}
	select {
	case s.duty <- d:
	default:
	}
}

func (s *swPWM) close() {
	close(s.stop)
	<-s.done
}

func (s *swPWM) run(period time.Duration, duty uint8, set func(int)) {
	defer close(s.done)
	current := -1
	write := func(v int) {
		if v != current {
			set(v)
			current = v
		}
	}
	t := time.NewTimer(0)
	defer t.Stop()
	<-t.C
	wait := func(d time.Duration) bool {
		t.Reset(d)
		select {
		case <-t.C:
			return true
		case <-s.stop:
			return false
		}
	}

	for {
		on := period * time.Duration(duty) / 255
		off := period - on
		if on > 0 {
			write(1)
			if !wait(on) {
				return
			}
		}
		if off > 0 {
			write(0)
			if !wait(off) {
				return
			}
		}
		select {
		case duty = <-s.duty:
		case <-s.stop:
			return
		default:
		}
	}
}
