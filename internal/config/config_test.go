package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "relay.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, "app:\n  env: test\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "relay-bridge", cfg.App.Name)
	assert.Equal(t, "test", cfg.App.Env)
	assert.Equal(t, "/dev/ttyS0", cfg.Serial.Port)
	assert.Equal(t, 9600, cfg.Serial.Baud)
	assert.Equal(t, 100*time.Millisecond, cfg.Serial.ReadTimeout)
	assert.Equal(t, 64, cfg.Bridge.SubscriberBuffer)
	assert.Equal(t, 5*time.Millisecond, cfg.Bridge.IdleInterval)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
	assert.False(t, cfg.Redis.Enabled)
	assert.Equal(t, "relay:incoming", cfg.Redis.Channel)
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfig(t, `
serial:
  port: /dev/ttyUSB1
  baud: 115200
  readTimeout: 200ms
bridge:
  subscriberBuffer: 8
api:
  rateLimit: 5
  relayMapPath: configs/relays.yaml
redis:
  enabled: true
  addr: redis:6379
  channel: relays
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/dev/ttyUSB1", cfg.Serial.Port)
	assert.Equal(t, 115200, cfg.Serial.Baud)
	assert.Equal(t, 200*time.Millisecond, cfg.Serial.ReadTimeout)
	assert.Equal(t, 8, cfg.Bridge.SubscriberBuffer)
	assert.Equal(t, 5, cfg.API.RateLimit)
	assert.Equal(t, "configs/relays.yaml", cfg.API.RelayMapPath)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)
	assert.Equal(t, "relays", cfg.Redis.Channel)
}

func TestLoadEnvOverride(t *testing.T) {
	path := writeConfig(t, "serial:\n  port: /dev/ttyUSB0\n")
	t.Setenv("RELAY_SERIAL_PORT", "/dev/ttyAMA0")
	t.Setenv("RELAY_SERIAL_BAUD", "19200")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/dev/ttyAMA0", cfg.Serial.Port)
	assert.Equal(t, 19200, cfg.Serial.Baud)
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"波特率非法", "serial:\n  baud: -1\n"},
		{"订阅缓冲为0", "bridge:\n  subscriberBuffer: 0\n"},
		{"启用Redis但无频道", "redis:\n  enabled: true\n  channel: \"\"\n"},
		{"启用认证但无Key", "api:\n  authEnabled: true\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
