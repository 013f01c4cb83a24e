package types

// ------------------------
// LED indicator (single channel, 0..255)
// ------------------------

type LEDInfo struct {
	Name     string `json:"name"`
	Pin      int    `json:"pin"`
	Inverted bool   `json:"inverted"`
	Backend  string `json:"backend,omitempty"` // "rp2", "pca9685", "cdev", "sim"
}

// LEDFixed holds one level until the next mode change.
type LEDFixed struct {
	Level uint8 `json:"level" yaml:"level"`
}

// LEDBlink runs bursts of Count on-pulses. A missing Max means 255.
type LEDBlink struct {
	Count  uint8  `json:"count" yaml:"count"`
	OnMs   uint32 `json:"on_ms" yaml:"on_ms"`
	OffMs  uint32 `json:"off_ms" yaml:"off_ms"`
	WaitMs uint32 `json:"wait_ms" yaml:"wait_ms"`
	Min    uint8  `json:"min" yaml:"min"`
	Max    *uint8 `json:"max,omitempty" yaml:"max,omitempty"`
}

// LEDPulse ramps between Min and Max one level per step. A missing Max means 255.
type LEDPulse struct {
	Increase bool   `json:"increase" yaml:"increase"`
	UpMs     uint32 `json:"up_ms" yaml:"up_ms"`
	DownMs   uint32 `json:"down_ms" yaml:"down_ms"`
	WaitMs   uint32 `json:"wait_ms" yaml:"wait_ms"`
	Min      uint8  `json:"min" yaml:"min"`
	Max      *uint8 `json:"max,omitempty" yaml:"max,omitempty"`
}

// Level returns a pointer for the optional Max fields.
func Level(v uint8) *uint8 { return &v }

// LEDMode is a tagged startup mode as found in configuration.
type LEDMode struct {
	Type  string    `json:"type" yaml:"type"` // "fixed", "blink", "pulse"
	Fixed *LEDFixed `json:"fixed,omitempty" yaml:"fixed,omitempty"`
	Blink *LEDBlink `json:"blink,omitempty" yaml:"blink,omitempty"`
	Pulse *LEDPulse `json:"pulse,omitempty" yaml:"pulse,omitempty"`
}

// LEDState is published retained after every mode change.
type LEDState struct {
	Mode     string `json:"mode"`
	Level    uint8  `json:"level"`
	Min      uint8  `json:"min"`
	Max      uint8  `json:"max"`
	Inverted bool   `json:"inverted"`
	TS       int64  `json:"ts_ms"`
}
