package led

import (
	"io"
	"log/slog"

	"ledfx-go/x/timex"
)

// Controller drives one LED. It is not safe for concurrent use: the owner
// calls the setters and Tick from a single goroutine.
type Controller struct {
	pin      Pin
	clock    timex.Clock
	log      *slog.Logger
	inverted bool

	mode  Mode
	level uint8

	minLevel  uint8
	maxLevel  uint8
	onDelay   uint32 // on time, or per-step delay while rising
	offDelay  uint32 // off time, or per-step delay while falling
	waitDelay uint32 // pause between bursts / pulse cycles

	delay      uint32 // how long level must persist
	lastChange uint32 // clock reading at the last level write

	blinksNeeded uint8
	blinksDone   uint8

	increasing bool
	step       int8
}

// Option configures a Controller.
type Option func(*Controller)

// WithClock replaces the default system clock.
func WithClock(c timex.Clock) Option {
	return func(l *Controller) { l.clock = c }
}

// WithLogger sets the diagnostics sink. Messages are advisory only.
func WithLogger(log *slog.Logger) Option {
	return func(l *Controller) { l.log = log }
}

// New returns a controller for pin. inverted is true when a low pin lights the
// LED. initial is the level applied by Begin. The pin is untouched until Begin.
func New(pin Pin, inverted bool, initial uint8, opts ...Option) *Controller {
	c := &Controller{
		pin:      pin,
		inverted: inverted,
		level:    initial,
		mode:     Fixed,
		maxLevel: 255,
		delay:    WaitForEver,
	}
	for _, o := range opts {
		o(c)
	}
	if c.clock == nil {
		c.clock = timex.System()
	}
	if c.log == nil {
		c.log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return c
}

// Begin applies the stored level and only then enables the pin as an output,
// so the pin never shows the opposite rail. Call it once before Tick.
func (c *Controller) Begin() {
	c.render(c.level, WaitForEver)
	c.pin.Configure(Output)
}

// Close releases the pin by reverting it to an input. The LED brightness
// afterwards is undefined; call SetFixed(0) first for a clean off.
func (c *Controller) Close() error {
	c.pin.Configure(Input)
	return nil
}

// SetFixed holds level until another mode is set.
func (c *Controller) SetFixed(level uint8) {
	c.log.Debug("led: fixed", "level", level)
	c.mode = Fixed
	c.render(level, WaitForEver)
}

// SetBlink starts blink bursts of count on-pulses at maxLevel lasting onMs,
// separated by offMs at minLevel, with a waitMs pause at minLevel after each
// burst. count==0 idles at minLevel.
func (c *Controller) SetBlink(count uint8, onMs, offMs, waitMs uint32, minLevel, maxLevel uint8) {
	c.log.Debug("led: blink", "count", count, "on", onMs, "off", offMs, "wait", waitMs, "min", minLevel, "max", maxLevel)
	c.blinksNeeded = count
	c.onDelay = onMs
	c.offDelay = offMs
	c.waitDelay = waitMs
	c.minLevel = minLevel
	c.maxLevel = maxLevel
	c.blinksDone = 0
	c.mode = Blink
	if c.blinksNeeded > 0 {
		c.render(c.maxLevel, c.onDelay)
	} else {
		c.render(c.minLevel, c.waitDelay)
	}
}

// SetBlinkParams is SetBlink with a parameter struct.
func (c *Controller) SetBlinkParams(p BlinkParams) {
	c.SetBlink(p.Count, p.OnMs, p.OffMs, p.WaitMs, p.Min, p.Max)
}

// SetPulse starts a breathing pulse between minLevel and maxLevel, one level
// per upMs while rising and per downMs while falling. With increase the pulse
// starts at minLevel and rests waitMs there between cycles; otherwise it starts
// at maxLevel and rests at maxLevel.
func (c *Controller) SetPulse(increase bool, upMs, downMs, waitMs uint32, minLevel, maxLevel uint8) {
	c.log.Debug("led: pulse", "increase", increase, "up", upMs, "down", downMs, "wait", waitMs, "min", minLevel, "max", maxLevel)
	c.increasing = increase
	c.minLevel = minLevel
	c.maxLevel = maxLevel
	c.onDelay = upMs
	c.offDelay = downMs
	c.waitDelay = waitMs
	c.mode = Pulse
	if c.increasing {
		c.step = 1
		c.render(c.minLevel, c.onDelay)
	} else {
		c.step = -1
		c.render(c.maxLevel, c.offDelay)
	}
}

// SetPulseParams is SetPulse with a parameter struct.
func (c *Controller) SetPulseParams(p PulseParams) {
	c.SetPulse(p.Increase, p.UpMs, p.DownMs, p.WaitMs, p.Min, p.Max)
}

// Tick advances the animation once the current level has been held for its
// delay. Call it from the main loop much more often than the shortest delay;
// slow callers skip nothing but stretch every step.
func (c *Controller) Tick() {
	if timex.Elapsed(c.clock.NowMs(), c.lastChange) <= c.delay {
		return
	}
	switch c.mode {
	case Blink:
		c.tickBlink()
	case Pulse:
		c.tickPulse()
	}
}

func (c *Controller) tickBlink() {
	if c.level == c.maxLevel {
		// a blink counts on its falling edge
		c.blinksDone++
		c.render(c.minLevel, c.offDelay)
		return
	}
	if c.blinksDone >= c.blinksNeeded {
		c.blinksDone = 0
		c.render(c.minLevel, c.waitDelay)
		return
	}
	c.render(c.maxLevel, c.onDelay)
}

func (c *Controller) tickPulse() {
	next := int16(c.level) + int16(c.step)
	if c.step > 0 {
		if next > int16(c.maxLevel) {
			c.step = -1
			if c.increasing {
				c.render(c.maxLevel, c.offDelay)
			} else {
				c.render(c.maxLevel, c.waitDelay)
			}
			return
		}
		c.render(uint8(next), c.onDelay)
		return
	}
	if next < int16(c.minLevel) {
		c.step = 1
		if c.increasing {
			c.render(c.minLevel, c.waitDelay)
		} else {
			c.render(c.minLevel, c.onDelay)
		}
		return
	}
	c.render(uint8(next), c.offDelay)
}

// render writes level to the pin and holds it for delay.
func (c *Controller) render(level uint8, delay uint32) {
	c.level = level
	c.delay = delay
	c.lastChange = c.clock.NowMs()
	switch level {
	case 0:
		c.pin.Set(c.inverted)
	case 255:
		c.pin.Set(!c.inverted)
	default:
		if c.inverted {
			c.pin.SetDuty(255 - level)
		} else {
			c.pin.SetDuty(level)
		}
	}
}

func (c *Controller) Mode() Mode   { return c.mode }
func (c *Controller) Level() uint8 { return c.level }

// State returns a snapshot for telemetry.
func (c *Controller) State() State {
	return State{
		Mode:       c.mode,
		Level:      c.level,
		Min:        c.minLevel,
		Max:        c.maxLevel,
		BlinksDone: c.blinksDone,
		Blinks:     c.blinksNeeded,
		Step:       c.step,
		Inverted:   c.inverted,
	}
}
