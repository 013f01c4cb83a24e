package main

import (
	"log/slog"
	"time"

	"ledfx-go/led"
)

// consolePin logs pin writes instead of driving hardware. Level writes are
// logged as the brightness they produce, so polarity is visible.
type consolePin struct {
	log      *slog.Logger
	inverted bool
	start    time.Time
	enabled  bool
}

func newConsolePin(log *slog.Logger, inverted bool) *consolePin {
	return &consolePin{log: log.With("pin", "sim"), inverted: inverted, start: time.Now()}
}

func (p *consolePin) at() int64 { return time.Since(p.start).Milliseconds() }

func (p *consolePin) Configure(dir led.Direction) {
	p.enabled = dir == led.Output
	p.log.Info("configure", "t_ms", p.at(), "dir", dir.String())
}

func (p *consolePin) Set(high bool) {
	lvl := 0
	if high != p.inverted {
		lvl = 255
	}
	p.log.Debug("digital", "t_ms", p.at(), "high", high, "level", lvl, "enabled", p.enabled)
}

func (p *consolePin) SetDuty(duty uint8) {
	lvl := duty
	if p.inverted {
		lvl = 255 - duty
	}
	p.log.Debug("pwm", "t_ms", p.at(), "duty", duty, "level", lvl, "enabled", p.enabled)
}
