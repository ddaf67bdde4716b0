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

type LoggerConfig struct {
	Level string `yaml:"level" validate:"required|in:trace,debug,info,warn,error,fatal,panic"`
	Mode  uint32 `yaml:"mode" validate:"required|uint"`
	Dir   string `yaml:"dir" validate:"required|unixPath"`
}

type AccountConfig struct {
	Server    string `yaml:"server" validate:"required"`
	AccountID string `yaml:"accountId" validate:"required"`
	Token     string `yaml:"token"`
	// BaseURL defaults to https://<server>.
	BaseURL      string `yaml:"baseUrl"`
	StreamingURL string `yaml:"streamingUrl"`
}

type FeedConfig struct {
	PageLimit     int           `yaml:"pageLimit"`
	DedupCapacity int           `yaml:"dedupCapacity"`
	Timeout       time.Duration `yaml:"timeout"`
}

type StreamConfig struct {
	Enabled        bool          `yaml:"enabled"`
	ReconnectDelay time.Duration `yaml:"reconnectDelay"`
}

type Persistence struct {
	FilePath     string        `yaml:"filePath" validate:"required|unixPath"`
	SaveInterval time.Duration `yaml:"saveInterval" validate:"required|min:1"`
}

type CacheConfig struct {
	Enabled bool          `yaml:"enabled"`
	Size    int           `yaml:"size"`
	TTL     time.Duration `yaml:"ttl"`
}

type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

type NotificationMetricsConfig struct {
	Driver        string        `yaml:"driver" validate:"required|in:memory,sqlite"`
	DSN           string        `yaml:"dsn"`
	KeepingDays   int           `yaml:"keepingDays" validate:"required|min:1"`
	PruneInterval time.Duration `yaml:"pruneInterval" validate:"required|min:1"`
	Timezone      string        `yaml:"timezone"`
}

type Config struct {
	AppName             string
	Debug               bool
	Path                string
	WebServer           Server                    `yaml:"webServer"`
	Logger              LoggerConfig              `yaml:"logger"`
	Account             AccountConfig             `yaml:"account"`
	Feed                FeedConfig                `yaml:"feed"`
	Stream              StreamConfig              `yaml:"stream"`
	Persistence         Persistence               `yaml:"persistence"`
	Cache               CacheConfig               `yaml:"cache"`
	Metrics             MetricsConfig             `yaml:"metrics"`
	NotificationMetrics NotificationMetricsConfig `yaml:"notificationMetrics"`
}
