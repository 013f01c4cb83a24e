package main

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/neilotoole/slogt"

	"ledfx-go/bus"
	"ledfx-go/errcode"
	"ledfx-go/services/indicator"
	"ledfx-go/types"
)

const sample = `
version: 1
led: power
steps:
  - at: 20ms
    pulse: {increase: true, up_ms: 2, down_ms: 2, wait_ms: 300}
  - at: 0s
    blink: {count: 2, on_ms: 100, off_ms: 50, wait_ms: 500}
  - at: 40ms
    fixed: {level: 7}
`

func TestParseScript(t *testing.T) {
	s, err := ParseScript([]byte(sample))
	if err != nil {
		t.Fatalf("ParseScript: %v", err)
	}
	if s.LED != "power" || len(s.Steps) != 3 {
		t.Fatalf("parsed %+v", s)
	}
	if s.Steps[0].Blink == nil || s.Steps[0].Blink.OnMs != 100 || s.Steps[0].Blink.WaitMs != 500 {
		t.Fatalf("steps not sorted or blink not decoded: %+v", s.Steps[0])
	}
	if s.Steps[1].At != 20*time.Millisecond || !s.Steps[1].Pulse.Increase {
		t.Fatalf("pulse step = %+v", s.Steps[1])
	}
}

func TestParseScript_Rejects(t *testing.T) {
	for _, src := range []string{
		"version: 2\n",
		"steps:\n  - at: 0s\n",
		"steps:\n  - at: 0s\n    fixed: {level: 1}\n    blink: {count: 1}\n",
		"steps: [",
	} {
		if _, err := ParseScript([]byte(src)); err == nil {
			t.Fatalf("ParseScript(%q) succeeded", src)
		}
	}
}

// answer replies to control requests with reply and records the methods seen.
func answer(t *testing.T, b *bus.Bus, reply any) <-chan string {
	t.Helper()
	conn := b.NewConnection("fake-indicator")
	sub := conn.Subscribe(bus.T("led", "status", "control", bus.AnyOne))
	seen := make(chan string, 8)
	go func() {
		for m := range sub.Channel() {
			seen <- m.Topic[len(m.Topic)-1].(string)
			conn.Reply(m, reply, false)
		}
	}()
	t.Cleanup(conn.Disconnect)
	return seen
}

func TestScriptPlay_SendsStepsInOrder(t *testing.T) {
	b := bus.NewBus(8)
	seen := answer(t, b, types.OKReply{OK: true})

	s, err := ParseScript([]byte(`
steps:
  - at: 5ms
    fixed: {level: 1}
  - at: 0s
    pulse: {up_ms: 1}
`))
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Play(context.Background(), b.NewConnection("player"), slogt.New(t)); err != nil {
		t.Fatalf("Play: %v", err)
	}
	for _, want := range []string{indicator.MethodPulse, indicator.MethodFixed} {
		if got := <-seen; got != want {
			t.Fatalf("method = %q, want %q", got, want)
		}
	}
}

func TestScriptPlay_StopsOnRejection(t *testing.T) {
	b := bus.NewBus(8)
	answer(t, b, types.ErrorReply{Error: string(errcode.InvalidLevels)})

	s, err := ParseScript([]byte("steps:\n  - at: 0s\n    blink: {min: 9, max: 3}\n"))
	if err != nil {
		t.Fatal(err)
	}
	err = s.Play(context.Background(), b.NewConnection("player"), slogt.New(t))
	if !errors.Is(err, errcode.InvalidLevels) {
		t.Fatalf("Play err = %v, want %q", err, errcode.InvalidLevels)
	}
}

func TestFlagMode(t *testing.T) {
	defer func(m string, on, wait, mx int) { mode, onMs, waitMs, maxLevel = m, on, wait, mx }(mode, onMs, waitMs, maxLevel)

	mode = ""
	if m, err := flagMode(); err != nil || m != nil {
		t.Fatalf("empty mode = %v, %v", m, err)
	}
	mode = "blink"
	if m, err := flagMode(); err != nil || m.Blink == nil || m.Blink.OnMs != uint32(onMs) {
		t.Fatalf("blink mode = %+v, %v", m, err)
	}
	mode, onMs, waitMs, maxLevel = "pulse", -5, math.MaxInt, 0
	m, err := flagMode()
	if err != nil || m.Pulse == nil {
		t.Fatalf("pulse mode = %+v, %v", m, err)
	}
	if m.Pulse.WaitMs != math.MaxUint32 || m.Pulse.Max == nil || *m.Pulse.Max != 0 {
		t.Fatalf("pulse = %+v, want clamped wait and explicit max 0", *m.Pulse)
	}
	mode = "blink"
	if m, _ := flagMode(); m.Blink.OnMs != 0 {
		t.Fatalf("negative on-ms = %d, want 0", m.Blink.OnMs)
	}

	mode = "strobe"
	if _, err := flagMode(); err == nil {
		t.Fatal("unknown mode accepted")
	}
}
