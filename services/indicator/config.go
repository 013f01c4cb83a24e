package indicator

import (
	"ledfx-go/errcode"
	"ledfx-go/led"
	"ledfx-go/types"
	"ledfx-go/x/jsonx"
	"ledfx-go/x/strx"
)

const (
	defaultName   = "status"
	defaultTickMs = 1
)

// Config is the "config/led" section. For the pca9685 backend Pin is the
// expander channel.
type Config struct {
	Name     string         `json:"name"`
	Backend  string         `json:"backend,omitempty"`
	Pin      int            `json:"pin"`
	Inverted bool           `json:"inverted"`
	Initial  uint8          `json:"initial"`
	TickMs   uint32         `json:"tick_ms"`
	FreqHz   uint32         `json:"freq_hz,omitempty"`
	I2C      *I2CConfig     `json:"i2c,omitempty"`
	Mode     *types.LEDMode `json:"mode,omitempty"`
}

// I2CConfig locates a PWM expander.
type I2CConfig struct {
	Bus  string `json:"bus"` // "i2c0", "i2c1"
	SDA  int    `json:"sda"`
	SCL  int    `json:"scl"`
	Hz   uint32 `json:"hz,omitempty"`
	Addr uint8  `json:"addr,omitempty"`
}

// Backends.
const (
	BackendRP2     = "rp2"
	BackendPCA9685 = "pca9685"
	BackendCdev    = "cdev"
	BackendSim     = "sim"
)

// ParseConfig decodes and validates a config section. src may be raw JSON or
// the map published by the config service.
func ParseConfig(src any) (Config, error) {
	var c Config
	if src == nil {
		return c, &errcode.E{C: errcode.InvalidParams, Op: "indicator.config", Msg: "missing led section"}
	}
	if err := jsonx.Decode(src, &c); err != nil {
		return c, errcode.Wrap(errcode.InvalidParams, "indicator.config", err)
	}
	if c.Pin < 0 {
		return c, &errcode.E{C: errcode.UnknownPin, Op: "indicator.config", Msg: "negative pin"}
	}
	c.Name = strx.Coalesce(c.Name, defaultName)
	c.Backend = strx.Coalesce(c.Backend, BackendRP2)
	switch c.Backend {
	case BackendRP2, BackendCdev, BackendSim:
	case BackendPCA9685:
		if c.I2C == nil {
			return c, &errcode.E{C: errcode.InvalidParams, Op: "indicator.config", Msg: "pca9685 needs an i2c section"}
		}
	default:
		return c, &errcode.E{C: errcode.Unsupported, Op: "indicator.config", Msg: "unknown backend " + c.Backend}
	}
	if c.TickMs == 0 {
		c.TickMs = defaultTickMs
	}
	if c.Mode != nil {
		if err := validateMode(*c.Mode); err != nil {
			return c, err
		}
	}
	return c, nil
}

func maxOrFull(m *uint8) uint8 {
	if m == nil {
		return 255
	}
	return *m
}

func checkLevels(lo, hi uint8) error {
	if lo > hi {
		return errcode.InvalidLevels
	}
	return nil
}

func validateMode(m types.LEDMode) error {
	mode, ok := led.ParseMode(m.Type)
	if !ok {
		return errcode.Unsupported
	}
	switch mode {
	case led.Fixed:
		if m.Fixed == nil {
			return errcode.InvalidParams
		}
	case led.Blink:
		if m.Blink == nil {
			return errcode.InvalidParams
		}
		return checkLevels(m.Blink.Min, maxOrFull(m.Blink.Max))
	case led.Pulse:
		if m.Pulse == nil {
			return errcode.InvalidParams
		}
		return checkLevels(m.Pulse.Min, maxOrFull(m.Pulse.Max))
	}
	return nil
}

func blinkParams(b types.LEDBlink) led.BlinkParams {
	return led.BlinkParams{Count: b.Count, OnMs: b.OnMs, OffMs: b.OffMs, WaitMs: b.WaitMs, Min: b.Min, Max: maxOrFull(b.Max)}
}

func pulseParams(p types.LEDPulse) led.PulseParams {
	return led.PulseParams{Increase: p.Increase, UpMs: p.UpMs, DownMs: p.DownMs, WaitMs: p.WaitMs, Min: p.Min, Max: maxOrFull(p.Max)}
}

// decode accepts a typed payload, a pointer to one, or a JSON-like value.
func decode[T any](payload any) (T, error) {
	var out T
	switch v := payload.(type) {
	case nil:
		return out, errcode.InvalidPayload
	case T:
		return v, nil
	case *T:
		if v == nil {
			return out, errcode.InvalidPayload
		}
		return *v, nil
	}
	if err := jsonx.Decode(payload, &out); err != nil {
		return out, errcode.InvalidPayload
	}
	return out, nil
}
