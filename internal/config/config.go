// Package config holds the shared daemon configuration. Every field has a
// compiled-in default so a config file is optional; values from the file
// override defaults, and command-line flags override both.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// Config is the merged configuration for both daemons. The serial daemon
// ignores Pin; the agent daemon ignores the profile fields.
type Config struct {
	// Pin is the fixed legacy pairing code, 1 to 16 characters.
	Pin string `toml:"pin"`
	// Adapter is the local controller name, e.g. "hci0".
	Adapter string `toml:"adapter"`
	// ServiceName is the SDP display name for the serial profile.
	ServiceName string `toml:"service_name"`
	// Channel is the RFCOMM channel the profile listens on.
	Channel uint16 `toml:"channel"`

	AgentPidFile  string `toml:"agent_pid_file"`
	SerialPidFile string `toml:"serial_pid_file"`
	AgentLogFile  string `toml:"agent_log_file"`
	SerialLogFile string `toml:"serial_log_file"`
}

// Default returns the compiled-in configuration.
func Default() Config {
	return Config{
		Pin:           "0000",
		Adapter:       "hci0",
		ServiceName:   "SerialService",
		Channel:       1,
		AgentPidFile:  "/var/run/bt-agent.pid",
		SerialPidFile: "/var/run/bt-serial.pid",
		AgentLogFile:  "/var/log/bt-agent.log",
		SerialLogFile: "/var/log/bt-serial.log",
	}
}

// Load reads a TOML config file over the defaults. An empty path returns the
// defaults unchanged; a missing file at an explicit path is an error.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: reading %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the constraints BlueZ imposes on the values.
func (c Config) Validate() error {
	if n := len(c.Pin); n < 1 || n > 16 {
		return fmt.Errorf("config: pin must be 1-16 characters, got %d", n)
	}
	if c.Channel < 1 || c.Channel > 30 {
		return fmt.Errorf("config: rfcomm channel must be 1-30, got %d", c.Channel)
	}
	if c.ServiceName == "" {
		return errors.New("config: service_name must not be empty")
	}
	return nil
}
