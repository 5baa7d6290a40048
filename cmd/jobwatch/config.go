package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/xraph/jobwatch"
)

var errHelp = errors.New("help requested")

// appConfig mirrors jobwatch.yaml. Every key can be overridden by a
// JOBWATCH_ environment variable (dots become underscores) or a flag.
type appConfig struct {
	BaseURL         string        `mapstructure:"base_url"`
	PollInterval    time.Duration `mapstructure:"poll_interval"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	MaxPollFailures int           `mapstructure:"max_poll_failures"`
	TargetChars     struct {
		Min int `mapstructure:"min"`
		Max int `mapstructure:"max"`
	} `mapstructure:"target_chars"`
	RateLimit struct {
		RPS   float64 `mapstructure:"rps"`
		Burst int     `mapstructure:"burst"`
	} `mapstructure:"rate_limit"`

	Listen  string `mapstructure:"listen"`
	Workers int    `mapstructure:"workers"`
	Store   struct {
		Driver string        `mapstructure:"driver"`
		TTL    time.Duration `mapstructure:"ttl"`
		Sweep  string        `mapstructure:"sweep"`
		Redis  struct {
			Addr     string `mapstructure:"addr"`
			Password string `mapstructure:"password"`
			DB       int    `mapstructure:"db"`
		} `mapstructure:"redis"`
	} `mapstructure:"store"`

	Log struct {
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"`
	} `mapstructure:"log"`
}

// commonFlags registers the flags shared by every command.
func commonFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "path to a config file (default ./jobwatch.yaml if present)")
	fs.String("base_url", "http://localhost:8000/posts", "executor base URL")
	fs.Duration("poll_interval", 2*time.Second, "status polling cadence")
	fs.Duration("request_timeout", 30*time.Second, "timeout of each executor call")
	fs.Int("target_chars.min", 100, "smallest accepted target_chars")
	fs.Int("target_chars.max", 20000, "largest accepted target_chars")
	fs.String("log.level", "info", "log level: debug, info, warn, error")
	fs.String("log.format", "text", "log format: text or json")
}

// loadConfig parses args into fs and resolves the configuration from
// defaults, the config file, the environment and flags, in that order.
func loadConfig(fs *pflag.FlagSet, args []string) (*appConfig, error) {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil, errHelp
		}
		return nil, err
	}

	v := viper.New()
	v.SetDefault("max_poll_failures", 0)
	v.SetDefault("rate_limit.rps", 0)
	v.SetDefault("rate_limit.burst", 1)
	v.SetDefault("listen", ":8000")
	v.SetDefault("workers", 4)
	v.SetDefault("store.driver", "memory")
	v.SetDefault("store.ttl", time.Hour)
	v.SetDefault("store.sweep", "@every 1m")
	v.SetDefault("store.redis.addr", "localhost:6379")

	if path, _ := fs.GetString("config"); path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("jobwatch")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("JOBWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(fs); err != nil {
		return nil, fmt.Errorf("bind flags: %w", err)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg appConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &cfg, nil
}

// sessionConfig extracts the library configuration.
func (c *appConfig) sessionConfig() (jobwatch.Config, error) {
	cfg := jobwatch.Config{
		PollInterval:    c.PollInterval,
		RequestTimeout:  c.RequestTimeout,
		MinTargetChars:  c.TargetChars.Min,
		MaxTargetChars:  c.TargetChars.Max,
		MaxPollFailures: c.MaxPollFailures,
	}
	return cfg, cfg.Validate()
}

func (c *appConfig) logger() (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	opts := &slog.HandlerOptions{Level: level}

	switch strings.ToLower(c.Log.Format) {
	case "", "text":
		return slog.New(slog.NewTextHandler(os.Stderr, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(os.Stderr, opts)), nil
	default:
		return nil, fmt.Errorf("log format %q: want text or json", c.Log.Format)
	}
}
