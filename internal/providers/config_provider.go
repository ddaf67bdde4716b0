package providers

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"feedsync/internal/models"
	"feedsync/internal/structures"

	"github.com/spf13/viper"
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("feed.pageLimit", 40)
	v.SetDefault("feed.dedupCapacity", models.DefaultDedupCapacity)
	v.SetDefault("feed.timeout", 15*time.Second)
	v.SetDefault("stream.reconnectDelay", 5*time.Second)
	v.SetDefault("cache.ttl", 30*time.Second)
	v.SetDefault("notificationMetrics.driver", "sqlite")
	v.SetDefault("notificationMetrics.keepingDays", 90)
	v.SetDefault("notificationMetrics.pruneInterval", 24*time.Hour)
}

func NewConfigProvider(flags *structures.CliFlags) (*structures.Config, error) {
	var conf structures.Config

	v := viper.New()
	filename := filepath.Base(flags.ConfigPath)
	v.AddConfigPath(filepath.Dir(flags.ConfigPath))
	v.SetConfigName(strings.TrimSuffix(filename, filepath.Ext(filename)))
	v.SetConfigType("yaml")
	setDefaults(v)

	v.BindEnv("logger.level", "FEEDSYNC_LOG_LEVEL")
	v.BindEnv("account.token", "FEEDSYNC_ACCOUNT_TOKEN")
	v.BindEnv("account.server", "FEEDSYNC_ACCOUNT_SERVER")
	v.BindEnv("account.accountId", "FEEDSYNC_ACCOUNT_ID")
	v.BindEnv("stream.enabled", "FEEDSYNC_STREAM_ENABLED")
	v.BindEnv("cache.enabled", "FEEDSYNC_CACHE_ENABLED")
	v.BindEnv("cache.size", "FEEDSYNC_CACHE_SIZE")
	v.BindEnv("notificationMetrics.dsn", "FEEDSYNC_METRICS_DSN")

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

	conf.AppName = "FeedSync"
	conf.Path = flags.ConfigPath
	conf.Debug = flags.DebugMode

	return &conf, nil
}
