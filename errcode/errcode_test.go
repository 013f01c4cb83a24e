package errcode

import (
	"errors"
	"fmt"
	"testing"
)

func TestCodesAreStableStrings(t *testing.T) {
	cases := map[string]Code{
		"ok":              OK,
		"unsupported":     Unsupported,
		"invalid_params":  InvalidParams,
		"invalid_payload": InvalidPayload,
		"invalid_levels":  InvalidLevels,
		"unknown_pin":     UnknownPin,
		"timeout":         Timeout,
	}
	for want, c := range cases {
		if c.Error() != want {
			t.Fatalf("code %q mismatch: got %q", want, c.Error())
		}
	}
}

func TestOf(t *testing.T) {
	if Of(nil) != OK {
		t.Fatal("Of(nil) should be OK")
	}
	if Of(InvalidLevels) != InvalidLevels {
		t.Fatal("Of(Code) should return the code")
	}
	if Of(errors.New("boom")) != Error {
		t.Fatal("Of(plain error) should be Error")
	}
	e := &E{C: UnknownPin, Op: "open", Msg: "line 17"}
	if Of(e) != UnknownPin {
		t.Fatalf("Of(*E) = %q", Of(e))
	}
}

func TestWrap(t *testing.T) {
	if Wrap(Error, "x", nil) != nil {
		t.Fatal("Wrap(nil) should be nil")
	}
	cause := fmt.Errorf("no such line")
	err := Wrap(UnknownPin, "gpiocdev.open", cause)
	if !errors.Is(err, cause) {
		t.Fatal("wrapped cause not reachable")
	}
	if got := err.Error(); got != "gpiocdev.open: unknown_pin: no such line" {
		t.Fatalf("Error() = %q", got)
	}
	if Of(err) != UnknownPin {
		t.Fatalf("Of(wrapped) = %q", Of(err))
	}
}
