//go:build linux

package main

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the YAML configuration for logctl. Keep defaults and
// validation centralized so the command code can assume a well-formed
// config.
type Config struct {
	// Serial device the logger's console is attached to.
	Device string `yaml:"device"`

	// Line rate. Must match the firmware's UART setup.
	Baud int `yaml:"baud"`

	// Read timeout in tenths of a second; this is also how long a `log`
	// query waits before declaring the id unknown, since the protocol
	// sends nothing for a miss.
	ReadTimeoutDs int `yaml:"read_timeout_ds"`
}

func DefaultConfig() Config {
	return Config{
		Device:        "/dev/ttyACM0",
		Baud:          115200,
		ReadTimeoutDs: 10,
	}
}

// LoadConfig reads path if it exists, layering it over the defaults. A
// missing file is not an error; a malformed one is.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	if c.Device == "" {
		return errors.New("config: device must not be empty")
	}
	if _, ok := baudFlags[c.Baud]; !ok {
		return fmt.Errorf("config: unsupported baud rate %d", c.Baud)
	}
	if c.ReadTimeoutDs < 1 || c.ReadTimeoutDs > 255 {
		return fmt.Errorf("config: read_timeout_ds %d out of range 1..255", c.ReadTimeoutDs)
	}
	return nil
}
