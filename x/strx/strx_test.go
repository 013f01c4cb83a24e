package strx

import "testing"

func TestCoalesce(t *testing.T) {
	if Coalesce("", "status") != "status" || Coalesce("power", "status") != "power" {
		t.Fatal("Coalesce mismatch")
	}
}
