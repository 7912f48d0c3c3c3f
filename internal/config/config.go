// Package config loads queuestat settings from flags, environment, .env and
// an optional YAML file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	qserrors "github.com/vnykmshr/queuestat/pkg/common/errors"
	"github.com/vnykmshr/queuestat/pkg/common/validation"
	"github.com/vnykmshr/queuestat/pkg/sampler"
	"github.com/vnykmshr/queuestat/pkg/schedule"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "QUEUESTAT_"

// Config holds all runtime configuration.
type Config struct {
	Listen string      `yaml:"listen"`
	Redis  RedisConfig `yaml:"redis"`

	Interval     time.Duration `yaml:"interval"`
	Cron         string        `yaml:"cron"`
	WorkStatsKey string        `yaml:"work_stats_key"`
	Queues       []string      `yaml:"queues"`

	Namespace   string `yaml:"namespace"`
	SelfMetrics bool   `yaml:"self_metrics"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// RedisConfig describes the store connection.
type RedisConfig struct {
	// Addr is host:port. A comma separated list selects a cluster client.
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	Timeout  time.Duration `yaml:"timeout"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Listen: ":3000",
		Redis: RedisConfig{
			Addr:    "localhost:6379",
			Timeout: 250 * time.Millisecond,
		},
		Interval:     schedule.DefaultInterval,
		WorkStatsKey: sampler.DefaultWorkStatsKey,
		Queues:       sampler.DefaultQueueKeys(),
		LogLevel:     "info",
		LogFormat:    "text",
	}
}

// Addrs splits Redis.Addr into its host:port entries.
func (c Config) Addrs() []string {
	var addrs []string
	for _, a := range strings.Split(c.Redis.Addr, ",") {
		if a = strings.TrimSpace(a); a != "" {
			addrs = append(addrs, a)
		}
	}
	return addrs
}

// Schedule builds the sample schedule.
func (c Config) Schedule() (schedule.Schedule, error) {
	return schedule.Parse(c.Interval, c.Cron)
}

// Validate checks every field and returns the first problem found.
func (c Config) Validate() error {
	checks := []error{
		validation.ValidateNotEmpty("config", "listen", c.Listen),
		validation.ValidateNotEmpty("config", "redis.addr", strings.Join(c.Addrs(), ",")),
		validation.ValidateNonNegative("config", "redis.db", c.Redis.DB),
		validation.ValidatePositiveDuration("config", "redis.timeout", c.Redis.Timeout),
		validation.ValidateNotEmpty("config", "work_stats_key", c.WorkStatsKey),
		validation.ValidateKeys("config", "queues", c.Queues),
		validation.ValidateOneOf("config", "log_level", c.LogLevel, "debug", "info", "warn", "error"),
		validation.ValidateOneOf("config", "log_format", c.LogFormat, "text", "json"),
	}
	if c.Cron != "" {
		checks = append(checks, schedule.ValidateCron(c.Cron))
	} else {
		checks = append(checks, validation.ValidatePositiveDuration("config", "interval", c.Interval))
	}

	for _, err := range checks {
		if err != nil {
			return err
		}
	}
	return nil
}

// cli mirrors Config as command-line flags. Defaults come from the merged
// file configuration through kong variables, so the precedence is
// defaults < file < environment < flags.
type cli struct {
	Config  string `help:"YAML configuration file." type:"path" env:"QUEUESTAT_CONFIG" placeholder:"FILE"`
	EnvFile string `help:"Environment file loaded before reading variables." default:".env" env:"QUEUESTAT_ENV_FILE" placeholder:"FILE"`

	Listen        string        `help:"Address the metrics endpoint listens on." default:"${listen}" env:"QUEUESTAT_LISTEN"`
	RedisAddr     string        `help:"Redis host:port, comma separated for a cluster." default:"${redis_addr}" env:"QUEUESTAT_REDIS_ADDR"`
	RedisPassword string        `help:"Redis password." env:"QUEUESTAT_REDIS_PASSWORD"`
	RedisDB       int           `name:"redis-db" help:"Redis database number." default:"${redis_db}" env:"QUEUESTAT_REDIS_DB"`
	StoreTimeout  time.Duration `help:"Timeout for each store call." default:"${store_timeout}" env:"QUEUESTAT_STORE_TIMEOUT"`
	Interval      time.Duration `help:"Sample interval." default:"${interval}" env:"QUEUESTAT_INTERVAL"`
	Cron          string        `help:"Cron expression, overrides --interval." default:"${cron}" env:"QUEUESTAT_CRON"`
	WorkStatsKey  string        `help:"Hash holding per worker counters." default:"${work_stats_key}" env:"QUEUESTAT_WORK_STATS_KEY"`
	Queue         []string      `help:"Queue set to track, repeatable." default:"${queues}" env:"QUEUESTAT_QUEUES" sep:","`
	Namespace     string        `help:"Prefix for exported metric names." default:"${namespace}" env:"QUEUESTAT_NAMESPACE"`
	SelfMetrics   bool          `help:"Export sampler metrics too." default:"${self_metrics}" env:"QUEUESTAT_SELF_METRICS" negatable:""`
	LogLevel      string        `help:"debug, info, warn or error." default:"${log_level}" env:"QUEUESTAT_LOG_LEVEL"`
	LogFormat     string        `help:"text or json." default:"${log_format}" env:"QUEUESTAT_LOG_FORMAT"`
}

// Option customizes Load.
type Option func(*loadOptions)

type loadOptions struct {
	kong []kong.Option
}

// WithKongOptions passes extra options to the flag parser, e.g. kong.Exit
// or kong.Writers in tests.
func WithKongOptions(opts ...kong.Option) Option {
	return func(o *loadOptions) { o.kong = append(o.kong, opts...) }
}

// Load builds the configuration from defaults, the optional YAML file, the
// .env file, environment variables and args, then validates it.
func Load(args []string, opts ...Option) (Config, error) {
	var lo loadOptions
	for _, o := range opts {
		o(&lo)
	}

	envFile := lookupArg(args, "env-file", EnvPrefix+"ENV_FILE", ".env")
	if err := loadEnvFile(envFile); err != nil {
		return Config{}, err
	}

	base := Default()
	if path := lookupArg(args, "config", EnvPrefix+"CONFIG", ""); path != "" {
		if err := loadFile(path, &base); err != nil {
			return Config{}, err
		}
	}

	var c cli
	parser, err := kong.New(&c, append([]kong.Option{
		kong.Name("queuestat"),
		kong.Description("Publishes worker counters and queue sizes from Redis as Prometheus metrics."),
		kong.Vars{
			"listen":         base.Listen,
			"redis_addr":     base.Redis.Addr,
			"redis_db":       strconv.Itoa(base.Redis.DB),
			"store_timeout":  base.Redis.Timeout.String(),
			"interval":       base.Interval.String(),
			"cron":           base.Cron,
			"work_stats_key": base.WorkStatsKey,
			"queues":         strings.Join(base.Queues, ","),
			"namespace":      base.Namespace,
			"self_metrics":   strconv.FormatBool(base.SelfMetrics),
			"log_level":      base.LogLevel,
			"log_format":     base.LogFormat,
		},
	}, lo.kong...)...)
	if err != nil {
		return Config{}, fmt.Errorf("failed to build flag parser: %w", err)
	}
	if _, err := parser.Parse(args); err != nil {
		return Config{}, fmt.Errorf("%w: %w", qserrors.ErrInvalidConfiguration, err)
	}

	cfg := Config{
		Listen: c.Listen,
		Redis: RedisConfig{
			Addr:     c.RedisAddr,
			Password: c.RedisPassword,
			DB:       c.RedisDB,
			Timeout:  c.StoreTimeout,
		},
		Interval:     c.Interval,
		Cron:         c.Cron,
		WorkStatsKey: c.WorkStatsKey,
		Queues:       c.Queue,
		Namespace:    c.Namespace,
		SelfMetrics:  c.SelfMetrics,
		LogLevel:     strings.ToLower(c.LogLevel),
		LogFormat:    strings.ToLower(c.LogFormat),
	}
	// Kept out of the help output.
	if cfg.Redis.Password == "" {
		cfg.Redis.Password = base.Redis.Password
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

func loadFile(path string, into *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(into); err != nil && !errors.Is(err, io.EOF) {
		return qserrors.NewValidationError("config", "file", path, err.Error()).
			WithHint("check the YAML keys and duration values")
	}
	return nil
}

// lookupArg finds --name or --name=value in args before kong runs, falling
// back to the environment and then def. The file and env file locations
// must be known before the remaining defaults can be computed.
func lookupArg(args []string, name, env, def string) string {
	flag := "--" + name
	for i, a := range args {
		if a == "--" {
			break
		}
		if a == flag && i+1 < len(args) {
			return args[i+1]
		}
		if v, ok := strings.CutPrefix(a, flag+"="); ok {
			return v
		}
	}
	if v, ok := os.LookupEnv(env); ok {
		return v
	}
	return def
}
