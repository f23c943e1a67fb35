package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
	DB       DBConfig       `mapstructure:"db"`
	Resolver ResolverConfig `mapstructure:"resolver"`
	Outbox   OutboxConfig   `mapstructure:"outbox"`
	Sink     SinkConfig     `mapstructure:"sink"`
}

type AppConfig struct {
	Env string `mapstructure:"env"`
}

type ServerConfig struct {
	HTTPAddr string `mapstructure:"http_addr"`
}

type LogConfig struct {
	Level             string `mapstructure:"level"`
	Encoding          string `mapstructure:"encoding"`
	Development       bool   `mapstructure:"development"`
	Sampling          bool   `mapstructure:"sampling"`
	DisableCaller     bool   `mapstructure:"disable_caller"`
	DisableStacktrace bool   `mapstructure:"disable_stacktrace"`
}

type DBConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	Timezone        string        `mapstructure:"timezone"`
}

// ResolverConfig controls the loop that settles closed markets from
// accumulated reports.
type ResolverConfig struct {
	ScanInterval time.Duration `mapstructure:"scan_interval"`
	MarketBatch  int           `mapstructure:"market_batch"`
	MinReports   int           `mapstructure:"min_reports"`
	MaxSpread    float64       `mapstructure:"max_spread"`
}

// OutboxConfig controls the relay dispatch loop and its retry discipline.
type OutboxConfig struct {
	DispatchInterval time.Duration `mapstructure:"dispatch_interval"`
	BatchSize        int           `mapstructure:"batch_size"`
	MaxRetries       int           `mapstructure:"max_retries"`
	BackoffBase      time.Duration `mapstructure:"backoff_base"`
	BackoffMax       time.Duration `mapstructure:"backoff_max"`
	LeaseDuration    time.Duration `mapstructure:"lease_duration"`
	ReapInterval     string        `mapstructure:"reap_interval"`
}

type SinkConfig struct {
	URL       string        `mapstructure:"url"`
	Timeout   time.Duration `mapstructure:"timeout"`
	AuthToken string        `mapstructure:"auth_token"`
}

func Load(path string, envOnly bool) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("ORACLE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.AutomaticEnv()
	v.SetDefault("app.env", "dev")
	v.SetDefault("server.http_addr", ":8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "console")
	v.SetDefault("log.development", true)
	v.SetDefault("log.sampling", false)
	v.SetDefault("log.disable_caller", false)
	v.SetDefault("log.disable_stacktrace", false)
	v.SetDefault("db.max_open_conns", 20)
	v.SetDefault("db.max_idle_conns", 5)
	v.SetDefault("db.conn_max_lifetime", "30m")
	v.SetDefault("db.conn_max_idle_time", "5m")
	v.SetDefault("db.timezone", "UTC")
	v.SetDefault("resolver.scan_interval", "10s")
	v.SetDefault("resolver.market_batch", 10)
	v.SetDefault("resolver.min_reports", 3)
	v.SetDefault("resolver.max_spread", 0.01)
	v.SetDefault("outbox.dispatch_interval", "5s")
	v.SetDefault("outbox.batch_size", 10)
	v.SetDefault("outbox.max_retries", 5)
	v.SetDefault("outbox.backoff_base", "2s")
	v.SetDefault("outbox.backoff_max", "5m")
	v.SetDefault("outbox.lease_duration", "1m")
	v.SetDefault("outbox.reap_interval", "@every 30s")
	v.SetDefault("sink.url", "")
	v.SetDefault("sink.timeout", "15s")

	if !envOnly {
		if err := v.ReadInConfig(); err != nil {
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}
