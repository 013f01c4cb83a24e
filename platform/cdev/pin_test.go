package cdev

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/neilotoole/slogt"

	"ledfx-go/led"
)

type op struct {
	Kind string // "value", "output", "input", "close"
	V    int
}

type fakeLine struct {
	mu  sync.Mutex
	ops []op
	err error
}

func (f *fakeLine) add(o op) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ops = append(f.ops, o)
	return f.err
}

func (f *fakeLine) SetValue(v int) error { return f.add(op{"value", v}) }
func (f *fakeLine) Output(v int) error   { return f.add(op{"output", v}) }
func (f *fakeLine) Input() error         { return f.add(op{"input", 0}) }
func (f *fakeLine) Close() error         { return f.add(op{"close", 0}) }

func (f *fakeLine) snapshot() []op {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]op(nil), f.ops...)
}

func TestPin_DigitalTrace(t *testing.T) {
	fl := &fakeLine{}
	p := newPin(fl, WithLogger(slogt.New(t)))

	c := led.New(p, true, 0)
	c.Begin()
	c.SetFixed(255)
	c.SetFixed(0)
	if err := c.Close(); err != nil {
		t.Fatal(err)
	}
	if err := p.Close(); err != nil {
		t.Fatal(err)
	}

	want := []op{
		{"output", 1}, // latched inverted level 0
		{"value", 0},
		{"value", 1},
		{"input", 0},
		{"close", 0},
	}
	if diff := cmp.Diff(want, fl.snapshot()); diff != "" {
		t.Fatalf("line ops mismatch (-want +got):\n%s", diff)
	}
	if p.Err() != nil {
		t.Fatalf("Err = %v", p.Err())
	}
}

func TestPin_SoftwarePWMToggles(t *testing.T) {
	fl := &fakeLine{}
	p := newPin(fl, WithPeriod(2*time.Millisecond))
	p.Configure(led.Output)
	p.SetDuty(128)

	deadline := time.Now().Add(time.Second)
	for {
		var hi, lo int
		for _, o := range fl.snapshot() {
			if o.Kind == "value" && o.V == 1 {
				hi++
			}
			if o.Kind == "value" && o.V == 0 {
				lo++
			}
		}
		if hi >= 2 && lo >= 2 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("pwm did not toggle: %v", fl.snapshot())
		}
		time.Sleep(time.Millisecond)
	}

	// A rail write stops the goroutine before touching the line.
	p.Set(true)
	n := len(fl.snapshot())
	time.Sleep(10 * time.Millisecond)
	ops := fl.snapshot()
	if len(ops) != n {
		t.Fatalf("line written after pwm stop: %v", ops[n:])
	}
	if last := ops[n-1]; last != (op{"value", 1}) {
		t.Fatalf("last op = %v, want value 1", last)
	}
}

func TestPin_ReenableRestartsSinglePWM(t *testing.T) {
	fl := &fakeLine{}
	p := newPin(fl, WithPeriod(2*time.Millisecond))
	p.SetDuty(128)
	p.Configure(led.Output)
	p.Configure(led.Output)
	time.Sleep(10 * time.Millisecond)

	p.Set(false)
	n := len(fl.snapshot())
	time.Sleep(10 * time.Millisecond)
	if ops := fl.snapshot(); len(ops) != n {
		t.Fatalf("line still toggled after the rail write: %v", ops[n:])
	}
}

func TestPin_LatchesAnalogUntilOutput(t *testing.T) {
	fl := &fakeLine{}
	p := newPin(fl, WithPeriod(time.Millisecond))
	p.SetDuty(10)
	if ops := fl.snapshot(); len(ops) != 0 {
		t.Fatalf("writes before enable: %v", ops)
	}
	p.Configure(led.Output)
	p.Configure(led.Input)
	ops := fl.snapshot()
	if ops[0] != (op{"output", 0}) || ops[len(ops)-1] != (op{"input", 0}) {
		t.Fatalf("unexpected ops %v", ops)
	}
}

func TestPin_RecordsLineErrors(t *testing.T) {
	boom := errors.New("line gone")
	p := newPin(&fakeLine{err: boom})
	p.Configure(led.Output)
	if !errors.Is(p.Err(), boom) {
		t.Fatalf("Err = %v, want %v", p.Err(), boom)
	}
}
