package providers

import (
	"fmt"
	"github.com/spf13/viper"
	"path/filepath"
	"strings"
	"time"
	"watchsync/internal/structures"
)

func setConfigDefaults(v *viper.Viper) {
	v.SetDefault("persistence.driver", "file")
	v.SetDefault("persistence.key", "watch-history")
	v.SetDefault("sync.interval", 30*time.Second)
	v.SetDefault("sync.pushTimeout", 10*time.Second)
	v.SetDefault("sync.maxConcurrent", 4)
	v.SetDefault("backend.timeout", 10*time.Second)
	v.SetDefault("backend.readRetries", 3)
	v.SetDefault("backend.retryDelay", 500*time.Millisecond)
	v.SetDefault("metadata.baseUrl", "https://api.themoviedb.org/3")
	v.SetDefault("metadata.language", "en-US")
	v.SetDefault("metadata.rateLimit", 10.0)
	v.SetDefault("metadata.timeout", 10*time.Second)
	v.SetDefault("cache.ttl", 5*time.Minute)
}

func NewConfigProvider(flags *structures.CliFlags) (*structures.Config, error) {
	var conf structures.Config

	v := viper.New()
	filename := filepath.Base(flags.ConfigPath)
	v.AddConfigPath(filepath.Dir(flags.ConfigPath))
	v.SetConfigName(strings.TrimSuffix(filename, filepath.Ext(filename)))
	v.SetConfigType("yaml")
	setConfigDefaults(v)

	v.BindEnv("logger.level", "WATCHSYNC_LOG_LEVEL")
	v.BindEnv("sync.interval", "WATCHSYNC_SYNC_INTERVAL")
	v.BindEnv("persistence.driver", "WATCHSYNC_PERSISTENCE_DRIVER")
	v.BindEnv("persistence.dir", "WATCHSYNC_PERSISTENCE_DIR")
	v.BindEnv("backend.baseUrl", "WATCHSYNC_BACKEND_URL")
	v.BindEnv("backend.token", "WATCHSYNC_BACKEND_TOKEN")
	v.BindEnv("metadata.apiKey", "WATCHSYNC_METADATA_API_KEY")
	v.BindEnv("cache.enabled", "WATCHSYNC_CACHE_ENABLED")
	v.BindEnv("cache.size", "WATCHSYNC_CACHE_SIZE")

	err := v.ReadInConfig()
	if err != nil {
		return nil, err
	}

	err = v.Unmarshal(&conf)
	if err != nil {
		return nil, fmt.Errorf("unable to decode into config struct: %w", err)
	}

	cnfValidator := NewCnfValidator(&conf)
	err = cnfValidator.Validate()
	if err != nil {
		return nil, err
	}

	conf.AppName = "WatchSyncDaemon"
	conf.Path = flags.ConfigPath
	conf.Debug = flags.DebugMode

	return &conf, nil
}
