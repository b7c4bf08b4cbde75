package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	assert.NoError(t, Default().Validate())
}

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
pin = "123456"
adapter = "hci1"
service_name = "MySerial"
channel = 3
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "123456", cfg.Pin)
	assert.Equal(t, "hci1", cfg.Adapter)
	assert.Equal(t, "MySerial", cfg.ServiceName)
	assert.Equal(t, uint16(3), cfg.Channel)
	// Unset fields keep their defaults.
	assert.Equal(t, Default().AgentPidFile, cfg.AgentPidFile)
}

func TestLoadRejectsBadValues(t *testing.T) {
	cases := map[string]string{
		"empty pin":       `pin = ""`,
		"long pin":        `pin = "12345678901234567"`,
		"zero channel":    `channel = 0`,
		"channel too big": `channel = 31`,
		"no service name": `service_name = ""`,
	}
	for name, content := range cases {
		path := filepath.Join(t.TempDir(), "config.toml")
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
		_, err := Load(path)
		assert.Error(t, err, name)
	}
}
