// Command ledsim runs the LED indicator service on the host, either against a
// console pin that logs every write or against a Linux GPIO line.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"math"
	"os"
	"os/signal"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"ledfx-go/bus"
	"ledfx-go/led"
	"ledfx-go/platform/cdev"
	"ledfx-go/services/indicator"
	"ledfx-go/types"
	"ledfx-go/x/mathx"
)

var (
	backend  = "sim"
	chip     = "gpiochip0"
	line     = 17
	swPeriod = cdev.DefaultPeriod
	name     = "status"
	inverted = false
	initial  = 0
	tickMs   = 1
	duration time.Duration
	script   = ""
	verbose  = false

	mode     = ""
	level    = 255
	count    = 2
	onMs     = 100
	offMs    = 50
	waitMs   = 500
	upMs     = 2
	downMs   = 2
	increase = true
	minLevel = 0
	maxLevel = 255
)

func init() {
	pflag.StringVarP(&backend, "backend", "b", backend, "pin backend: sim or cdev")
	pflag.StringVar(&chip, "chip", chip, "GPIO chip for the cdev backend")
	pflag.IntVar(&line, "line", line, "GPIO line offset for the cdev backend")
	pflag.DurationVar(&swPeriod, "pwm-period", swPeriod, "software PWM cycle for the cdev backend")
	pflag.StringVar(&name, "name", name, "LED name on the bus")
	pflag.BoolVarP(&inverted, "inverted", "i", inverted, "LED is lit when the pin is low")
	pflag.IntVar(&initial, "initial", initial, "level before the first mode change")
	pflag.IntVar(&tickMs, "tick-ms", tickMs, "controller poll interval")
	pflag.DurationVarP(&duration, "duration", "d", duration, "stop after this long (0 runs until interrupted)")
	pflag.StringVarP(&script, "script", "s", script, "YAML script of timed mode changes")
	pflag.BoolVarP(&verbose, "verbose", "v", verbose, "log every pin write")

	pflag.StringVarP(&mode, "mode", "m", mode, "startup mode: fixed, blink or pulse")
	pflag.IntVar(&level, "level", level, "fixed level")
	pflag.IntVar(&count, "count", count, "blinks per burst")
	pflag.IntVar(&onMs, "on-ms", onMs, "blink on time")
	pflag.IntVar(&offMs, "off-ms", offMs, "blink off time")
	pflag.IntVar(&waitMs, "wait-ms", waitMs, "pause after a burst or pulse cycle")
	pflag.IntVar(&upMs, "up-ms", upMs, "pulse step delay while rising")
	pflag.IntVar(&downMs, "down-ms", downMs, "pulse step delay while falling")
	pflag.BoolVar(&increase, "increase", increase, "pulse starts at min and rises")
	pflag.IntVar(&minLevel, "min", minLevel, "lower level for blink and pulse")
	pflag.IntVar(&maxLevel, "max", maxLevel, "upper level for blink and pulse")
}

func main() {
	log.SetFlags(0)
	pflag.Parse()

	lvl := slog.LevelInfo
	if verbose {
		lvl = slog.LevelDebug
	}
	logger := slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      lvl,
		TimeFormat: "15:04:05.000",
		NoColor:    !isatty.IsTerminal(os.Stderr.Fd()),
	}))
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()
	if duration > 0 {
		ctx, cancel = context.WithTimeout(ctx, duration)
		defer cancel()
	}

	if err := run(ctx, logger); err != nil {
		log.Fatal(err)
	}
}

func run(ctx context.Context, logger *slog.Logger) error {
	startMode, err := flagMode()
	if err != nil {
		return err
	}
	cfg, err := indicator.ParseConfig(map[string]any{
		"name":     name,
		"backend":  backend,
		"pin":      float64(line),
		"inverted": inverted,
		"initial":  float64(mathx.Clamp(initial, 0, 255)),
		"tick_ms":  float64(tickMs),
		"mode":     startMode,
	})
	if err != nil {
		return fmt.Errorf("bad flags: %w", err)
	}

	var sc Script
	if script != "" {
		if sc, err = LoadScript(script); err != nil {
			return fmt.Errorf("failed to load script %q: %w", script, err)
		}
		sc.LED = cfg.Name
	}

	pin, release, err := openPin(logger)
	if err != nil {
		return err
	}
	defer release()

	ctrl := led.New(pin, cfg.Inverted, cfg.Initial, led.WithLogger(logger.With("led", cfg.Name)))
	b := bus.NewBus(8)
	svc := indicator.New(cfg, ctrl, logger)
	client := b.NewConnection("ledsim")
	states := client.Subscribe(indicator.StateTopic(cfg.Name))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return svc.Run(gctx, b.NewConnection("indicator")) })
	g.Go(func() error {
		ready := false
		for {
			select {
			case <-gctx.Done():
				return nil
			case m, ok := <-states.Channel():
				if !ok {
					return nil
				}
				if st, ok := m.Payload.(types.LEDState); ok {
					logger.Info("state", "mode", st.Mode, "level", st.Level, "min", st.Min, "max", st.Max)
				}
				if !ready && script != "" {
					ready = true
					g.Go(func() error { return sc.Play(gctx, client, logger) })
				}
			}
		}
	})

	logger.Info("ledsim running", "backend", backend, "led", cfg.Name, "inverted", cfg.Inverted)
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func openPin(logger *slog.Logger) (led.Pin, func(), error) {
	switch backend {
	case indicator.BackendSim:
		return newConsolePin(logger, inverted), func() {}, nil
	case indicator.BackendCdev:
		p, err := cdev.Open(chip, line, cdev.WithPeriod(swPeriod), cdev.WithLogger(logger))
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open %s line %d: %w", chip, line, err)
		}
		return p, func() {
			if err := p.Close(); err != nil {
				logger.Warn("failed to release line", "err", err)
			}
		}, nil
	default:
		return nil, nil, fmt.Errorf("unknown backend %q", backend)
	}
}

func flagMode() (*types.LEDMode, error) {
	if mode == "" {
		return nil, nil
	}
	u8 := func(v int) uint8 { return uint8(mathx.Clamp(v, 0, 255)) }
	ms := func(v int) uint32 { return uint32(mathx.Clamp(int64(v), 0, math.MaxUint32)) }
	m, ok := led.ParseMode(mode)
	if !ok {
		return nil, fmt.Errorf("unknown mode %q", mode)
	}
	switch m {
	case led.Fixed:
		return &types.LEDMode{Type: mode, Fixed: &types.LEDFixed{Level: u8(level)}}, nil
	case led.Blink:
		return &types.LEDMode{Type: mode, Blink: &types.LEDBlink{
			Count: u8(count), OnMs: ms(onMs), OffMs: ms(offMs), WaitMs: ms(waitMs),
			Min: u8(minLevel), Max: types.Level(u8(maxLevel)),
		}}, nil
	default:
		return &types.LEDMode{Type: mode, Pulse: &types.LEDPulse{
			Increase: increase, UpMs: ms(upMs), DownMs: ms(downMs), WaitMs: ms(waitMs),
			Min: u8(minLevel), Max: types.Level(u8(maxLevel)),
		}}, nil
	}
}
