package jsonx

import "testing"

type blink struct {
	Count uint8  `json:"count"`
	OnMs  uint32 `json:"on_ms"`
}

func TestDecode_FromParsedMap(t *testing.T) {
	var b blink
	if err := Decode(map[string]any{"count": float64(3), "on_ms": float64(100)}, &b); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if b.Count != 3 || b.OnMs != 100 {
		t.Fatalf("got %+v", b)
	}
}

func TestDecode_FromRaw(t *testing.T) {
	var b blink
	if err := Decode(`{"count":2,"on_ms":5}`, &b); err != nil {
		t.Fatalf("Decode(string): %v", err)
	}
	if err := Decode([]byte(`{"count":7}`), &b); err != nil {
		t.Fatalf("Decode([]byte): %v", err)
	}
	if b.Count != 7 {
		t.Fatalf("got %+v", b)
	}
}

func TestDecode_RejectsOutOfRange(t *testing.T) {
	var b blink
	if err := Decode(map[string]any{"count": float64(300)}, &b); err == nil {
		t.Fatal("expected overflow error for uint8 field")
	}
}
