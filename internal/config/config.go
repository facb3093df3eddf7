package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rewired-gh/oisentry/internal/storage"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config represents the complete application configuration
type Config struct {
	Exchange ExchangeConfig `mapstructure:"exchange"`
	Monitor  MonitorConfig  `mapstructure:"monitor"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Notify   NotifyConfig   `mapstructure:"notify"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// ExchangeConfig holds the polled instrument and API endpoints
type ExchangeConfig struct {
	Symbol     string `mapstructure:"symbol" validate:"required"`
	BinanceURL string `mapstructure:"binance_url" validate:"omitempty,url"`
	BybitURL   string `mapstructure:"bybit_url" validate:"omitempty,url"`
}

// MonitorConfig holds polling and alert threshold configuration
type MonitorConfig struct {
	PollInterval     time.Duration `mapstructure:"poll_interval" validate:"gte=1s"`
	KeepPoints       int           `mapstructure:"keep_points" validate:"gte=1"`
	UpThreshPct      float64       `mapstructure:"up_thresh_pct" validate:"gte=0"`
	DownThreshPct    float64       `mapstructure:"down_thresh_pct" validate:"gte=0"`
	SyncThreshPct    float64       `mapstructure:"sync_thresh_pct" validate:"gte=0"`
	TotalSwingThresh float64       `mapstructure:"total_swing_thresh" validate:"gte=0"`
	MaxIterations    int           `mapstructure:"max_iter" validate:"gte=0"`
}

// StorageConfig holds state persistence configuration
type StorageConfig struct {
	Backend       string `mapstructure:"backend" validate:"oneof=file sqlite redis"`
	StateFile     string `mapstructure:"state_file" validate:"required_if=Backend file"`
	SQLitePath    string `mapstructure:"sqlite_path"`
	RedisAddr     string `mapstructure:"redis_addr" validate:"required_if=Backend redis"`
	RedisPassword string `mapstructure:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db" validate:"gte=0"`
	RedisKey      string `mapstructure:"redis_key"`
}

// NotifyConfig holds notification sink configuration
type NotifyConfig struct {
	Discord  DiscordConfig  `mapstructure:"discord"`
	Telegram TelegramConfig `mapstructure:"telegram"`
}

type DiscordConfig struct {
	WebhookURL string `mapstructure:"webhook_url" validate:"omitempty,url"`
}

type TelegramConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	BotToken string `mapstructure:"bot_token" validate:"required_if=Enabled true"`
	ChatID   string `mapstructure:"chat_id" validate:"required_if=Enabled true"`
}

// MetricsConfig controls the Prometheus listener; empty ListenAddr disables it
type MetricsConfig struct {
	ListenAddr string `mapstructure:"listen_addr"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level   string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format  string `mapstructure:"format" validate:"oneof=json text"`
	Verbose bool   `mapstructure:"verbose"`
}

// EffectiveLevel is the configured level, forced to debug in verbose mode.
func (l LoggingConfig) EffectiveLevel() string {
	if l.Verbose {
		return "debug"
	}
	return l.Level
}

// NewFlagSet declares the command-line surface.
func NewFlagSet(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.String("config", "", "Path to an optional YAML configuration file")
	fs.String("webhook", "", "Discord webhook URL (or set DISCORD_WEBHOOK env)")
	fs.Int("poll-sec", 60, "Polling interval seconds")
	fs.Int("keep-points", 360, "History buffer length (points)")
	fs.Float64("up-thresh-pct", 0.5, "Seesaw: 'up' threshold in % for one side")
	fs.Float64("down-thresh-pct", 0.5, "Seesaw: 'down' threshold in % for the other side")
	fs.Float64("sync-thresh-pct", 0.5, "Sync Pump/Flush threshold in % for both sides")
	fs.Float64("total-swing-thresh", 2_000_000, "Absolute contracts swing threshold across both exchanges per tick")
	fs.String("state-file", storage.DefaultStateFile, "Path to state file")
	fs.Bool("verbose", false, "Print debug logs")
	fs.Int("max-iter", 0, "If >0, run at most this many iterations")
	return fs
}

var flagKeys = map[string]string{
	"webhook":            "notify.discord.webhook_url",
	"keep-points":        "monitor.keep_points",
	"up-thresh-pct":      "monitor.up_thresh_pct",
	"down-thresh-pct":    "monitor.down_thresh_pct",
	"sync-thresh-pct":    "monitor.sync_thresh_pct",
	"total-swing-thresh": "monitor.total_swing_thresh",
	"state-file":         "storage.state_file",
	"verbose":            "logging.verbose",
	"max-iter":           "monitor.max_iter",
}

// Load reads configuration from defaults, an optional file, environment
// variables and flags, in increasing order of precedence. Only flags the user
// actually set override the other sources.
func Load(fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Enable environment variable override
	v.SetEnvPrefix("OI_SENTRY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("notify.discord.webhook_url", "OI_SENTRY_NOTIFY_DISCORD_WEBHOOK_URL", "DISCORD_WEBHOOK"); err != nil {
		return nil, fmt.Errorf("failed to bind env: %w", err)
	}

	if fs != nil {
		if path, _ := fs.GetString("config"); path != "" {
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
		for flag, key := range flagKeys {
			if f := fs.Lookup(flag); f != nil && f.Changed {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("failed to bind flag %s: %w", flag, err)
				}
			}
		}
		if f := fs.Lookup("poll-sec"); f != nil && f.Changed {
			sec, err := fs.GetInt("poll-sec")
			if err != nil {
				return nil, fmt.Errorf("invalid poll-sec: %w", err)
			}
			v.Set("monitor.poll_interval", time.Duration(sec)*time.Second)
		}
	}

	// Unmarshal into Config struct
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// setDefaults configures default values for all configuration options
func setDefaults(v *viper.Viper) {
	// Exchange defaults
	v.SetDefault("exchange.symbol", "BTCUSDT")
	v.SetDefault("exchange.binance_url", "https://fapi.binance.com")
	v.SetDefault("exchange.bybit_url", "https://api.bybit.com")

	// Monitor defaults
	v.SetDefault("monitor.poll_interval", "60s")
	v.SetDefault("monitor.keep_points", 360)
	v.SetDefault("monitor.up_thresh_pct", 0.5)
	v.SetDefault("monitor.down_thresh_pct", 0.5)
	v.SetDefault("monitor.sync_thresh_pct", 0.5)
	v.SetDefault("monitor.total_swing_thresh", 2_000_000.0)
	v.SetDefault("monitor.max_iter", 0) // 0 = run until interrupted

	// Storage defaults
	v.SetDefault("storage.backend", "file")
	v.SetDefault("storage.state_file", storage.DefaultStateFile)
	v.SetDefault("storage.sqlite_path", storage.DefaultSQLitePath)
	v.SetDefault("storage.redis_addr", "")
	v.SetDefault("storage.redis_password", "")
	v.SetDefault("storage.redis_db", 0)
	v.SetDefault("storage.redis_key", storage.DefaultRedisKey)

	// Notify defaults
	v.SetDefault("notify.discord.webhook_url", "")
	v.SetDefault("notify.telegram.enabled", false)
	v.SetDefault("notify.telegram.bot_token", "")
	v.SetDefault("notify.telegram.chat_id", "")

	v.SetDefault("metrics.listen_addr", "")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.verbose", false)
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks that all configuration values are valid
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
}
