package ledtest

import (
	"testing"

	"ledfx-go/led"
)

func TestWriteLevel(t *testing.T) {
	cases := []struct {
		w        Write
		inverted bool
		want     uint8
	}{
		{Write{Kind: Digital, High: true}, false, 255},
		{Write{Kind: Digital, High: false}, false, 0},
		{Write{Kind: Digital, High: true}, true, 0},
		{Write{Kind: Digital, High: false}, true, 255},
		{Write{Kind: Analog, Duty: 100}, false, 100},
		{Write{Kind: Analog, Duty: 100}, true, 155},
	}
	for _, c := range cases {
		got, ok := c.w.Level(c.inverted)
		if !ok || got != c.want {
			t.Fatalf("%v inverted=%v: Level = %d,%v want %d", c.w, c.inverted, got, ok, c.want)
		}
	}
	if _, ok := (Write{Kind: Configure, Dir: led.Output}).Level(false); ok {
		t.Fatal("configure record should not report a level")
	}
}

func TestPin_RecordsWithClock(t *testing.T) {
	clk := NewClock(10)
	p := NewPin(clk)
	p.Set(true)
	clk.Advance(5)
	p.SetDuty(7)
	p.Configure(led.Output)

	ws := p.Writes()
	if len(ws) != 3 || ws[0].At != 10 || ws[1].At != 15 || ws[1].Duty != 7 {
		t.Fatalf("unexpected trace %v", ws)
	}
	if n := len(p.LevelWrites()); n != 2 {
		t.Fatalf("LevelWrites = %d, want 2", n)
	}
	p.Reset()
	if len(p.Writes()) != 0 {
		t.Fatal("Reset did not clear the trace")
	}
}
