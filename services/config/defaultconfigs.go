package config

// -----------------------------------------------------------------------------
// Embedded configuration
//
// Key: device ID (same value placed in ctx under CtxDeviceKey)
// Val: raw JSON bytes for that device
// -----------------------------------------------------------------------------

// Pico onboard LED on GP25, breathing while the firmware is idle.
const cfgPico = `{
  "led": {
    "name": "status",
    "pin": 25,
    "inverted": false,
    "initial": 0,
    "tick_ms": 1,
    "mode": {
      "type": "pulse",
      "pulse": {"increase": true, "up_ms": 4, "down_ms": 4, "wait_ms": 600, "min": 0, "max": 255}
    }
  }
}`

// Active-low LED on GP15 blinking a two-flash heartbeat.
const cfgPicoActiveLow = `{
  "led": {
    "name": "status",
    "pin": 15,
    "inverted": true,
    "initial": 0,
    "tick_ms": 2,
    "mode": {
      "type": "blink",
      "blink": {"count": 2, "on_ms": 80, "off_ms": 120, "wait_ms": 1500, "min": 0, "max": 255}
    }
  }
}`

// LED on channel 0 of a PCA9685 at 0x40 on I2C0 (GP4/GP5).
const cfgPicoPCA9685 = `{
  "led": {
    "name": "status",
    "backend": "pca9685",
    "pin": 0,
    "freq_hz": 1000,
    "i2c": {"bus": "i2c0", "sda": 4, "scl": 5, "hz": 400000, "addr": 64},
    "mode": {
      "type": "pulse",
      "pulse": {"increase": false, "up_ms": 3, "down_ms": 3, "wait_ms": 250, "min": 8, "max": 200}
    }
  }
}`

var embeddedConfigs = map[string][]byte{
	"pico":           []byte(cfgPico),
	"pico_activelow": []byte(cfgPicoActiveLow),
	"pico_pca9685":   []byte(cfgPicoPCA9685),
}
