package providers

import (
	"os"
	"path/filepath"
	"testing"
	"time"
	"watchsync/internal/structures"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *structures.Config {
	return &structures.Config{
		WebServer: structures.Server{
			Host: "127.0.0.1",
			Port: 8085,
		},
		Persistence: structures.Persistence{
			Driver: "file",
			Dir:    "/tmp/watchsync",
			Key:    "watch-history",
		},
		Logger: structures.LoggerConfig{
			Level: "info",
			Mode:  0644,
			Dir:   "/tmp/logs",
		},
		Sync: structures.SyncConfig{
			Interval: 30 * time.Second,
		},
		Backend: structures.BackendConfig{
			BaseURL: "https://api.example.com",
		},
		Player: structures.PlayerConfig{
			AllowedOrigins: []string{"https://vidlink.pro"},
		},
	}
}

func TestConfigValidator_ValidConfig(t *testing.T) {
	v := NewCnfValidator(validConfig())
	assert.NoError(t, v.Validate())
}

func TestConfigValidator_EmptyHost(t *testing.T) {
	c := validConfig()
	c.WebServer.Host = ""
	v := NewCnfValidator(c)
	assert.Error(t, v.Validate())
}

func TestConfigValidator_ZeroPort(t *testing.T) {
	c := validConfig()
	c.WebServer.Port = 0
	v := NewCnfValidator(c)
	assert.Error(t, v.Validate())
}

func TestConfigValidator_InvalidLogLevel(t *testing.T) {
	c := validConfig()
	c.Logger.Level = "verbose"
	v := NewCnfValidator(c)
	assert.Error(t, v.Validate())
}

func TestConfigValidator_UnknownDriver(t *testing.T) {
	c := validConfig()
	c.Persistence.Driver = "redis"
	v := NewCnfValidator(c)
	assert.Error(t, v.Validate())
}

func TestConfigValidator_FileDriverNeedsDir(t *testing.T) {
	c := validConfig()
	c.Persistence.Dir = ""
	assert.Error(t, NewCnfValidator(c).Validate())

	c.Persistence.Driver = "memory"
	assert.NoError(t, NewCnfValidator(c).Validate())
}

func TestConfigValidator_BadOrigin(t *testing.T) {
	c := validConfig()
	c.Player.AllowedOrigins = []string{"vidlink.pro"}
	v := NewCnfValidator(c)
	assert.Error(t, v.Validate())
}

func TestConfigValidator_NoOrigins(t *testing.T) {
	c := validConfig()
	c.Player.AllowedOrigins = nil
	v := NewCnfValidator(c)
	assert.Error(t, v.Validate())
}

func TestNewConfigProvider_ReadsYamlWithDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
webServer:
  host: 127.0.0.1
  port: 8085
persistence:
  driver: memory
logger:
  level: info
  mode: 0644
  dir: /tmp
backend:
  baseUrl: https://api.example.com
player:
  allowedOrigins:
    - https://vidlink.pro
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0644))

	conf, err := NewConfigProvider(&structures.CliFlags{ConfigPath: path, DebugMode: true})
	require.NoError(t, err)
	assert.Equal(t, "WatchSyncDaemon", conf.AppName)
	assert.True(t, conf.Debug)
	assert.Equal(t, 30*time.Second, conf.Sync.Interval)
	assert.Equal(t, "watch-history", conf.Persistence.Key)
	assert.Equal(t, 3, conf.Backend.ReadRetries)
	assert.Equal(t, []string{"https://vidlink.pro"}, conf.Player.AllowedOrigins)
}

func TestNewConfigProvider_MissingFile(t *testing.T) {
	_, err := NewConfigProvider(&structures.CliFlags{ConfigPath: filepath.Join(t.TempDir(), "nope.yaml")})
	assert.Error(t, err)
}
