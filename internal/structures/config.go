package structures

import (
	"net/http"
	"time"
)

type CliFlags struct {
	ConfigPath string
	DebugMode  bool
}

type Route struct {
	Url     string
	Handler http.Handler
}

type Server struct {
	Host string `yaml:"host" validate:"required"`
	Port int    `yaml:"port" validate:"required|uint|min:1"`
}

// Persistence selects the adapter behind the local progress store.
// Key is the fixed document key every history entry lives under.
type Persistence struct {
	Driver string `yaml:"driver" validate:"required|in:memory,file,sqlite"`
	Dir    string `yaml:"dir"`
	Key    string `yaml:"key" validate:"required"`
}

type LoggerConfig struct {
	Level      string `yaml:"level" validate:"required|in:trace,debug,info,warn,error,fatal,panic"`
	Mode       uint32 `yaml:"mode" validate:"required|uint"`
	Dir        string `yaml:"dir" validate:"required|unixPath"`
	MaxSize    int    `yaml:"maxSize"`
	MaxBackups int    `yaml:"maxBackups"`
	MaxAge     int    `yaml:"maxAge"`
	Compress   bool   `yaml:"compress"`
}

type SyncConfig struct {
	Interval      time.Duration `yaml:"interval" validate:"required"`
	PushTimeout   time.Duration `yaml:"pushTimeout"`
	MaxConcurrent int           `yaml:"maxConcurrent"`
}

type BackendConfig struct {
	BaseURL     string        `yaml:"baseUrl" validate:"required|fullUrl"`
	Token       string        `yaml:"token"`
	Timeout     time.Duration `yaml:"timeout"`
	ReadRetries int           `yaml:"readRetries"`
	RetryDelay  time.Duration `yaml:"retryDelay"`
}

type MetadataConfig struct {
	BaseURL   string        `yaml:"baseUrl"`
	APIKey    string        `yaml:"apiKey"`
	Language  string        `yaml:"language"`
	RateLimit float64       `yaml:"rateLimit"`
	Timeout   time.Duration `yaml:"timeout"`
}

type PlayerConfig struct {
	AllowedOrigins []string `yaml:"allowedOrigins" validate:"required"`
}

type CacheConfig struct {
	Enabled bool          `yaml:"enabled"`
	Size    int           `yaml:"size"`
	TTL     time.Duration `yaml:"ttl"`
}

type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

type Config struct {
	AppName     string
	Debug       bool
	Path        string
	WebServer   Server         `yaml:"webServer"`
	Persistence Persistence    `yaml:"persistence"`
	Logger      LoggerConfig   `yaml:"logger"`
	Sync        SyncConfig     `yaml:"sync"`
	Backend     BackendConfig  `yaml:"backend"`
	Metadata    MetadataConfig `yaml:"metadata"`
	Player      PlayerConfig   `yaml:"player"`
	Cache       CacheConfig    `yaml:"cache"`
	Metrics     MetricsConfig  `yaml:"metrics"`
}
