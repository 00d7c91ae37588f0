package config

// -----------------------------------------------------------------------------
// Embedded configuration
//
// Key: device ID (same value placed in ctx under CtxDeviceKey)
// Val: raw JSON bytes for that device
// -----------------------------------------------------------------------------

const cfgPico = `{
  "sensor": {
      "threshold": 100,
      "duration": 20
  },
  "notify": {
      "pot_low": 64,
      "pot_high": 128
  }
}`

var embeddedConfigs = map[string][]byte{
	"pico": []byte(cfgPico),
}
