//go:build rp2040 || rp2350

// Command pico-led boots the LED indicator from the embedded device config.
// Logs go to UART0.
package main

import (
	"context"
	"log/slog"
	"machine"
	"time"

	"github.com/jangala-dev/tinygo-uartx/uartx"

	"ledfx-go/bus"
	"ledfx-go/errcode"
	"ledfx-go/led"
	"ledfx-go/platform/pca9685"
	"ledfx-go/platform/rp2"
	"ledfx-go/services/config"
	"ledfx-go/services/indicator"
)

// Selected at build time with -ldflags "-X main.device=pico_activelow".
var device = "pico"

func main() {
	// Allow USB CDC to enumerate before we print.
	time.Sleep(2 * time.Second)

	_ = uartx.UART0.Configure(uartx.UARTConfig{
		BaudRate: 115200,
		TX:       machine.UART0_TX_PIN,
		RX:       machine.UART0_RX_PIN,
	})
	log := slog.New(slog.NewTextHandler(uartx.UART0, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(log)

	m, err := config.Load(device)
	if err != nil {
		fail(log, "config load", err)
	}
	cfg, err := indicator.ParseConfig(m["led"])
	if err != nil {
		fail(log, "led config", err)
	}

	pin, err := openPin(cfg)
	if err != nil {
		fail(log, "led pin", err)
	}

	ctrl := led.New(pin, cfg.Inverted, cfg.Initial, led.WithLogger(log))
	b := bus.NewBus(4)

	ctx := context.WithValue(context.Background(), config.CtxDeviceKey, device)
	indicator.New(cfg, ctrl, log).Start(ctx, b.NewConnection("indicator"))
	config.NewConfigService(log).Start(ctx, b.NewConnection("config"))

	log.Info("pico-led running", "device", device, "backend", cfg.Backend, "pin", cfg.Pin)
	select {}
}

func openPin(cfg indicator.Config) (led.Pin, error) {
	switch cfg.Backend {
	case indicator.BackendRP2:
		return rp2.Open(machine.Pin(cfg.Pin), cfg.FreqHz)
	case indicator.BackendPCA9685:
	default:
		return nil, errcode.Unsupported
	}
	i2c := machine.I2C0
	if cfg.I2C.Bus == "i2c1" {
		i2c = machine.I2C1
	}
	if err := i2c.Configure(machine.I2CConfig{
		SDA:       machine.Pin(cfg.I2C.SDA),
		SCL:       machine.Pin(cfg.I2C.SCL),
		Frequency: cfg.I2C.Hz,
	}); err != nil {
		return nil, err
	}
	return pca9685.Open(i2c, cfg.I2C.Addr, uint8(cfg.Pin), cfg.FreqHz)
}

// fail logs and parks; there is nothing to return to on the MCU.
func fail(log *slog.Logger, what string, err error) {
	log.Error(what+" failed", "err", err)
	for {
		time.Sleep(time.Hour)
	}
}
