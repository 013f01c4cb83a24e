package config

import (
	"context"
	"errors"
	"log/slog"

	"ledfx-go/bus"
	"ledfx-go/errcode"

	"github.com/andreyvit/tinyjson"
)

// -----------------------------------------------------------------------------
// String constants (live in flash, not RAM)
// -----------------------------------------------------------------------------

const (
	serviceName  = "config"
	configPrefix = "config"
)

type ctxKey string

// CtxDeviceKey is the context key holding the device ID whose config is published.
const CtxDeviceKey ctxKey = "device"

// EmbeddedConfigLookup allows overriding how configs are resolved.
var EmbeddedConfigLookup = func(device string) ([]byte, bool) {
	b, ok := embeddedConfigs[device]
	return b, ok
}

// Topic returns the retained topic a config section is published on.
func Topic(section string) bus.Topic { return bus.T(configPrefix, section) }

// -----------------------------------------------------------------------------
// Parsing
// -----------------------------------------------------------------------------

// Parse decodes a JSON object into its top-level sections.
func Parse(raw []byte) (m map[string]any, err error) {
	if len(raw) == 0 {
		return nil, &errcode.E{C: errcode.InvalidParams, Op: "config.parse", Msg: "empty document"}
	}
	// tinyjson panics on malformed input
	defer func() {
		if r := recover(); r != nil {
			m = nil
			err = &errcode.E{C: errcode.InvalidParams, Op: "config.parse", Msg: "malformed JSON"}
		}
	}()

	r := tinyjson.Raw(raw)
	val := r.Value() // should be a map[string]any
	r.EnsureEOF()

	m, ok := val.(map[string]any)
	if !ok {
		return nil, &errcode.E{C: errcode.InvalidParams, Op: "config.parse", Msg: "not a JSON object"}
	}
	return m, nil
}

// Load resolves and parses the embedded config for device.
func Load(device string) (map[string]any, error) {
	raw, ok := EmbeddedConfigLookup(device)
	if !ok || len(raw) == 0 {
		return nil, errors.New("no embedded config for device: " + device)
	}
	return Parse(raw)
}

// -----------------------------------------------------------------------------
// Config Service
// -----------------------------------------------------------------------------

type ConfigService struct {
	Name string
	log  *slog.Logger
}

func NewConfigService(log *slog.Logger) *ConfigService {
	if log == nil {
		log = slog.Default()
	}
	return &ConfigService{Name: serviceName, log: log.With("service", serviceName)}
}

// publishConfig reads the device config and publishes each section as a retained message.
func (s *ConfigService) publishConfig(ctx context.Context, conn *bus.Connection) error {
	device, _ := ctx.Value(CtxDeviceKey).(string)
	if device == "" {
		return errors.New("missing device ID in context")
	}

	m, err := Load(device)
	if err != nil {
		return err
	}

	for k, v := range m {
		conn.Publish(&bus.Message{
			Topic:    Topic(k),
			Payload:  v,
			Retained: true,
		})
	}
	s.log.Info("config published", "device", device, "sections", len(m))
	return nil
}

// Start launches the config publisher in a goroutine.
func (s *ConfigService) Start(ctx context.Context, conn *bus.Connection) {
	go func() {
		if err := s.publishConfig(ctx, conn); err != nil {
			s.log.Error("config publish failed", "err", err)
		}
	}()
}
