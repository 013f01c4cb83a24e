// config/config_test.go
package config

import (
	"context"
	"testing"
	"time"

	"github.com/neilotoole/slogt"

	"ledfx-go/bus"
	"ledfx-go/errcode"
)

func TestConfig_PublishEmbedded_RetainedPerKey(t *testing.T) {
	// Override lookup for this test.
	oldLookup := EmbeddedConfigLookup
	EmbeddedConfigLookup = func(device string) ([]byte, bool) {
		if device != "pico" {
			return nil, false
		}
		return []byte(`{
			"led": {"name": "status", "pin": 25},
			"debug": true,
			"region": "eu"
		}`), true
	}
	t.Cleanup(func() { EmbeddedConfigLookup = oldLookup })

	b := bus.NewBus(16)
	conn := b.NewConnection("test-config")
	svc := NewConfigService(slogt.New(t))

	ctx := context.WithValue(context.Background(), CtxDeviceKey, "pico")
	svc.Start(ctx, conn)

	// Subscribe; retained messages arrive even if the publisher ran first.
	sub := conn.Subscribe(bus.Topic{configPrefix, "#"})

	want := 3 // led, debug, region
	got := map[string]any{}
	deadline := time.Now().Add(600 * time.Millisecond)
	for len(got) < want && time.Now().Before(deadline) {
		select {
		case m := <-sub.Channel():
			if len(m.Topic) != 2 || m.Topic[0] != configPrefix {
				t.Fatalf("unexpected topic: %#v", m.Topic)
			}
			key, ok := m.Topic[1].(string)
			if !ok {
				t.Fatalf("topic[1] type %T, want string", m.Topic[1])
			}
			if !m.Retained {
				t.Fatalf("config/%s not retained", key)
			}
			got[key] = m.Payload
		case <-time.After(10 * time.Millisecond):
		}
	}
	if len(got) != want {
		t.Fatalf("expected %d retained messages, got %d (%v)", want, len(got), got)
	}
	if v, ok := got["debug"].(bool); !ok || !v {
		t.Fatalf("debug payload = %#v, want true", got["debug"])
	}
	ledCfg, ok := got["led"].(map[string]any)
	if !ok {
		t.Fatalf("led payload type = %T, want map[string]any", got["led"])
	}
	if name, _ := ledCfg["name"].(string); name != "status" {
		t.Fatalf("led.name = %#v", ledCfg["name"])
	}
}

func TestConfig_PublishConfig_MissingDevice(t *testing.T) {
	b := bus.NewBus(4)
	conn := b.NewConnection("test-missing-device")
	svc := NewConfigService(slogt.New(t))

	if err := svc.publishConfig(context.Background(), conn); err == nil {
		t.Fatal("expected error for missing device ID, got nil")
	}
}

func TestConfig_PublishConfig_NoConfigFound(t *testing.T) {
	oldLookup := EmbeddedConfigLookup
	EmbeddedConfigLookup = func(device string) ([]byte, bool) { return nil, false }
	t.Cleanup(func() { EmbeddedConfigLookup = oldLookup })

	b := bus.NewBus(4)
	conn := b.NewConnection("test-no-config")
	svc := NewConfigService(slogt.New(t))

	ctx := context.WithValue(context.Background(), CtxDeviceKey, "unknown-device")
	if err := svc.publishConfig(ctx, conn); err == nil {
		t.Fatal("expected error for missing embedded config, got nil")
	}
}

func TestParse_RejectsNonObject(t *testing.T) {
	_, err := Parse([]byte(`[1, 2, 3]`))
	if errcode.Of(err) != errcode.InvalidParams {
		t.Fatalf("Parse(array) err = %v", err)
	}
	_, err = Parse([]byte(`{"led": {`))
	if errcode.Of(err) != errcode.InvalidParams {
		t.Fatalf("Parse(truncated) err = %v", err)
	}
	_, err = Parse([]byte(`{"led": {}} trailing`))
	if errcode.Of(err) != errcode.InvalidParams {
		t.Fatalf("Parse(trailing) err = %v", err)
	}
	_, err = Parse(nil)
	if errcode.Of(err) != errcode.InvalidParams {
		t.Fatalf("Parse(nil) err = %v", err)
	}
}

func TestParse_NestedSections(t *testing.T) {
	m, err := Parse([]byte(`{"led": {"name": "power", "inverted": true, "mode": {"type": "blink"}}, "debug": false}`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	led, ok := m["led"].(map[string]any)
	if !ok {
		t.Fatalf("led section type %T", m["led"])
	}
	if led["name"] != "power" || led["inverted"] != true {
		t.Fatalf("led section = %#v", led)
	}
	if mode, ok := led["mode"].(map[string]any); !ok || mode["type"] != "blink" {
		t.Fatalf("mode = %#v", led["mode"])
	}
	if v, ok := m["debug"].(bool); !ok || v {
		t.Fatalf("debug = %#v", m["debug"])
	}
}

func TestLoad_EmbeddedDevicesHaveLEDSection(t *testing.T) {
	for device := range embeddedConfigs {
		m, err := Load(device)
		if err != nil {
			t.Fatalf("Load(%q): %v", device, err)
		}
		if _, ok := m["led"].(map[string]any); !ok {
			t.Fatalf("%s: missing led section", device)
		}
	}
}
