// Package config publishes the embedded per-device configuration as
// retained bus messages, one topic per top-level key. Services pick up
// their section from the retained message at subscribe time, so start
// order does not matter.
package config

import (
	"context"
	"errors"

	"motionlog-go/bus"

	"github.com/andreyvit/tinyjson"
)

const (
	serviceName  = "config"
	configPrefix = "config"
	CtxDeviceKey = "device" // context key carrying the device ID
)

// EmbeddedConfigLookup allows overriding how configs are resolved.
var EmbeddedConfigLookup = func(device string) ([]byte, bool) {
	b, ok := embeddedConfigs[device]
	return b, ok
}

type ConfigService struct {
	Name string
}

func NewConfigService() *ConfigService {
	return &ConfigService{Name: serviceName}
}

// publishConfig parses the embedded JSON for the device named in ctx and
// publishes each top-level key retained under config/<key>.
func (s *ConfigService) publishConfig(ctx context.Context, conn *bus.Connection) error {
	device, _ := ctx.Value(CtxDeviceKey).(string)
	if device == "" {
		return errors.New("missing device ID in context")
	}

	raw, ok := EmbeddedConfigLookup(device)
	if !ok || len(raw) == 0 {
		return errors.New("no embedded config for device: " + device)
	}

	r := tinyjson.Raw(raw)
	val := r.Value()
	r.EnsureEOF()

	m, ok := val.(map[string]any)
	if !ok {
		return errors.New("embedded config is not a JSON object")
	}

	for k, v := range m {
		conn.Publish(&bus.Message{
			Topic:    bus.T(configPrefix, k),
			Payload:  v,
			Retained: true,
		})
	}
	return nil
}

// Start publishes the configuration once. Synchronous: by the time Start
// returns, every config topic is retained on the bus.
func (s *ConfigService) Start(ctx context.Context, conn *bus.Connection) error {
	return s.publishConfig(ctx, conn)
}

// Byte extracts an integer field from a config section payload, clamped to
// a byte. tinyjson decodes JSON numbers as float64.
func Byte(section any, key string, def byte) byte {
	m, ok := section.(map[string]any)
	if !ok {
		return def
	}
	f, ok := m[key].(float64)
	if !ok || f < 0 || f > 255 {
		return def
	}
	return byte(f)
}
