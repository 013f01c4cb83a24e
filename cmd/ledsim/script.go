package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"ledfx-go/bus"
	"ledfx-go/errcode"
	"ledfx-go/services/indicator"
	"ledfx-go/types"
)

// Script is a timed list of mode changes sent to one LED.
//
//	version: 1
//	led: status
//	steps:
//	  - at: 0s
//	    blink: {count: 2, on_ms: 100, off_ms: 50, wait_ms: 500}
//	  - at: 3s
//	    pulse: {increase: true, up_ms: 2, down_ms: 2, wait_ms: 300}
//	  - at: 8s
//	    fixed: {level: 0}
type Script struct {
	Version int    `yaml:"version"`
	LED     string `yaml:"led"`
	Steps   []Step `yaml:"steps"`
}

// Step sets exactly one of Fixed, Blink or Pulse at offset At.
type Step struct {
	At    time.Duration   `yaml:"at"`
	Fixed *types.LEDFixed `yaml:"fixed"`
	Blink *types.LEDBlink `yaml:"blink"`
	Pulse *types.LEDPulse `yaml:"pulse"`
}

func (s Step) request() (method string, payload any, err error) {
	n := 0
	if s.Fixed != nil {
		n++
		method, payload = indicator.MethodFixed, *s.Fixed
	}
	if s.Blink != nil {
		n++
		method, payload = indicator.MethodBlink, *s.Blink
	}
	if s.Pulse != nil {
		n++
		method, payload = indicator.MethodPulse, *s.Pulse
	}
	if n != 1 {
		return "", nil, errcode.InvalidParams
	}
	return method, payload, nil
}

// LoadScript reads and validates a YAML script from path.
func LoadScript(path string) (Script, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Script{}, err
	}
	return ParseScript(b)
}

func ParseScript(b []byte) (Script, error) {
	var s Script
	if err := yaml.Unmarshal(b, &s); err != nil {
		return Script{}, err
	}
	if s.Version == 0 {
		s.Version = 1
	}
	if s.Version != 1 {
		return Script{}, fmt.Errorf("unsupported script version %d", s.Version)
	}
	if s.LED == "" {
		s.LED = "status"
	}
	for i, st := range s.Steps {
		if _, _, err := st.request(); err != nil {
			return Script{}, fmt.Errorf("steps[%d]: need exactly one of fixed, blink, pulse", i)
		}
	}
	sort.SliceStable(s.Steps, func(i, j int) bool { return s.Steps[i].At < s.Steps[j].At })
	return s, nil
}

// Play sends each step as a control request at its offset from the start of
// Play, stopping early if ctx ends or a request is rejected.
func (s Script) Play(ctx context.Context, conn *bus.Connection, log *slog.Logger) error {
	start := time.Now()
	timer := time.NewTimer(0)
	defer timer.Stop()
	<-timer.C

	for i, st := range s.Steps {
		if d := st.At - time.Since(start); d > 0 {
			timer.Reset(d)
			select {
			case <-ctx.Done():
				return nil
			case <-timer.C:
			}
		}
		method, payload, _ := st.request()

		rctx, cancel := context.WithTimeout(ctx, time.Second)
		reply, err := conn.RequestWait(rctx, conn.NewMessage(indicator.ControlTopic(s.LED, method), payload, false))
		cancel()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("step %d (%s): %w", i, method, errcode.Wrap(errcode.Timeout, "script.play", err))
		}
		if r, ok := reply.Payload.(types.ErrorReply); ok {
			return fmt.Errorf("step %d (%s): %w", i, method, errcode.Code(r.Error))
		}
		log.Info("script step", "i", i, "at", st.At, "method", method)
	}
	return nil
}
