package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.NotNil(t, cfg)
	assert.Equal(t, "/dev/ttyACM0", cfg.Serial.Port)
	assert.Equal(t, 115200, cfg.Serial.BaudRate)
	assert.Equal(t, 50, cfg.Calibration.Chlorine.OutMax)
	assert.Equal(t, 10000, cfg.Calibration.Turbidity.OutMin)
	assert.Equal(t, 0, cfg.Calibration.Turbidity.OutMax)
	assert.Equal(t, float32(-10), cfg.Calibration.Turbidity.Offset)
	assert.Equal(t, 20000, cfg.Calibration.Conductivity.OutMax)
	assert.Equal(t, 140, cfg.Calibration.PH.OutMax)
	assert.Equal(t, 10*time.Second, cfg.Network.Timeout)
	assert.Equal(t, 20, cfg.Network.AssociationAttempts)
	assert.Equal(t, 500*time.Millisecond, cfg.Network.AssociationInterval)
	assert.Equal(t, 50*time.Millisecond, cfg.Trigger.PollInterval)
	assert.Equal(t, time.Second, cfg.Trigger.DebounceDelay)
	assert.Equal(t, "memory", cfg.Server.Store)
	assert.Empty(t, cfg.Publish.Backend)
}

func TestLoad_FileNotExists(t *testing.T) {
	cfg, err := Load("nonexistent.yaml")
	require.NoError(t, err)
	assert.NotNil(t, cfg)
	assert.Equal(t, "/dev/ttyACM0", cfg.Serial.Port)
}

func TestLoad_ValidYAML(t *testing.T) {
	tmpfile, err := os.CreateTemp("", "test_config_*.yaml")
	require.NoError(t, err)
	defer os.Remove(tmpfile.Name())

	yamlContent := `
serial:
  port: "COM4"

calibration:
  ph:
    raw_min: 0
    raw_max: 4095
    out_min: 0
    out_max: 1400
    divisor: 100

network:
  endpoint: "http://10.0.0.2:8000/data"
  timeout: 3s
  association_attempts: 5

trigger:
  debounce_delay: 250ms

publish:
  backend: mqtt
  broker: "tcp://localhost:1883"

server:
  store: postgres
  postgres_url: "postgres://u:p@localhost:5432/water"
`

	_, err = tmpfile.WriteString(yamlContent)
	require.NoError(t, err)
	require.NoError(t, tmpfile.Close())

	cfg, err := Load(tmpfile.Name())
	require.NoError(t, err)

	assert.Equal(t, "COM4", cfg.Serial.Port)
	assert.Equal(t, 1400, cfg.Calibration.PH.OutMax)
	assert.Equal(t, float32(100), cfg.Calibration.PH.Divisor)
	assert.Equal(t, "http://10.0.0.2:8000/data", cfg.Network.Endpoint)
	assert.Equal(t, 3*time.Second, cfg.Network.Timeout)
	assert.Equal(t, 5, cfg.Network.AssociationAttempts)
	assert.Equal(t, 250*time.Millisecond, cfg.Trigger.DebounceDelay)
	assert.Equal(t, "mqtt", cfg.Publish.Backend)
	assert.Equal(t, "postgres", cfg.Server.Store)
}

func TestLoad_InvalidYAML(t *testing.T) {
	tmpfile, err := os.CreateTemp("", "test_config_*.yaml")
	require.NoError(t, err)
	defer os.Remove(tmpfile.Name())

	_, err = tmpfile.WriteString("invalid: yaml: content: [")
	require.NoError(t, err)
	require.NoError(t, tmpfile.Close())

	cfg, err := Load(tmpfile.Name())
	assert.Error(t, err)
	assert.Nil(t, cfg)
}

func TestLoad_PartialYAML(t *testing.T) {
	tmpfile, err := os.CreateTemp("", "test_config_*.yaml")
	require.NoError(t, err)
	defer os.Remove(tmpfile.Name())

	yamlContent := `
serial:
  port: "/dev/ttyUSB0"
calibration:
  chlorine:
    unit: "ppm"
`

	_, err = tmpfile.WriteString(yamlContent)
	require.NoError(t, err)
	require.NoError(t, tmpfile.Close())

	cfg, err := Load(tmpfile.Name())
	require.NoError(t, err)

	// Should use defaults for missing fields
	assert.Equal(t, "/dev/ttyUSB0", cfg.Serial.Port)
	assert.Equal(t, 115200, cfg.Serial.BaudRate)
	assert.Equal(t, "ppm", cfg.Calibration.Chlorine.Unit)
	assert.Equal(t, 4095, cfg.Calibration.Chlorine.RawMax)
	assert.Equal(t, 50, cfg.Calibration.Chlorine.OutMax)
	assert.Equal(t, float32(10), cfg.Calibration.Chlorine.Divisor)
	assert.Equal(t, float32(-10), cfg.Calibration.Turbidity.Offset)
	assert.Equal(t, 10*time.Second, cfg.Network.Timeout)
}

func TestLoad_DebounceDelay(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want time.Duration
	}{
		{"absent uses default", "trigger:\n  poll_interval: 20ms\n", time.Second},
		{"zero is kept", "trigger:\n  debounce_delay: 0s\n", 0},
		{"explicit value", "trigger:\n  debounce_delay: 250ms\n", 250 * time.Millisecond},
		{"negative clamps to zero", "trigger:\n  debounce_delay: -1s\n", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.yaml), 0644))

			cfg, err := Load(path)
			require.NoError(t, err)
			assert.Equal(t, tt.want, cfg.Trigger.DebounceDelay)
		})
	}
}

func TestSave(t *testing.T) {
	cfg := Default()
	cfg.Serial.Port = "/dev/ttyUSB1"
	cfg.Network.Timeout = 7 * time.Second

	tmpfile, err := os.CreateTemp("", "test_save_*.yaml")
	require.NoError(t, err)
	defer os.Remove(tmpfile.Name())

	err = cfg.Save(tmpfile.Name())
	require.NoError(t, err)

	loaded, err := Load(tmpfile.Name())
	require.NoError(t, err)
	assert.Equal(t, "/dev/ttyUSB1", loaded.Serial.Port)
	assert.Equal(t, 7*time.Second, loaded.Network.Timeout)
	assert.Equal(t, cfg.Calibration, loaded.Calibration)
}
