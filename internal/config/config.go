package config

import (
	"fmt"
	"log"
	"time"

	"github.com/spf13/viper"
)

// enforcement modes
const (
	ModeWarnOnly    = "warn_only"
	ModeProgressive = "progressive"
)

// global configuration structure
type Config struct {
	Bot         BotConfig         `mapstructure:"bot"`
	Enforcement EnforcementConfig `mapstructure:"enforcement"`
	Captcha     CaptchaConfig     `mapstructure:"captcha"`
	Logger      LoggerConfig      `mapstructure:"logger"`
	Database    DatabaseConfig    `mapstructure:"database"`
}

// Telegram bot configuration
type BotConfig struct {
	Token          string        `mapstructure:"token"`
	GroupID        int64         `mapstructure:"group_id"`
	WarningTopicID int           `mapstructure:"warning_topic_id"`
	Webhook        WebhookConfig `mapstructure:"webhook"`
}

// webhook server configuration
type WebhookConfig struct {
	Endpoint   string `mapstructure:"endpoint"`
	ListenPort string `mapstructure:"listen_port"`
	DebugPath  string `mapstructure:"debug_path"`
	CertFile   string `mapstructure:"cert_file"`
	KeyFile    string `mapstructure:"key_file"`
}

// profile enforcement settings
type EnforcementConfig struct {
	Mode                 string `mapstructure:"mode"`
	WarningThreshold     int    `mapstructure:"warning_threshold"`
	TimeThresholdMinutes int    `mapstructure:"time_threshold_minutes"`
	SweepIntervalMinutes int    `mapstructure:"sweep_interval_minutes"`
	RulesLink            string `mapstructure:"rules_link"`
}

// captcha gate for new members
type CaptchaConfig struct {
	Enabled        bool `mapstructure:"enabled"`
	TimeoutSeconds int  `mapstructure:"timeout_seconds"`
}

// logging configuration
type LoggerConfig struct {
	Directory string            `mapstructure:"directory"`
	Rotation  LogRotationConfig `mapstructure:"rotation"`
	Level     string            `mapstructure:"level"`
}

// log rotation settings
type LogRotationConfig struct {
	MaxSize    int  `mapstructure:"max_size"`
	MaxBackups int  `mapstructure:"max_backups"`
	MaxAge     int  `mapstructure:"max_age"`
	Compress   bool `mapstructure:"compress"`
}

type DatabaseConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	Charset  string `mapstructure:"charset"`
}

// TimeThreshold returns the age threshold as a duration.
func (e *EnforcementConfig) TimeThreshold() time.Duration {
	return time.Duration(e.TimeThresholdMinutes) * time.Minute
}

// SweepInterval returns the reconciliation sweep interval as a duration.
func (e *EnforcementConfig) SweepInterval() time.Duration {
	return time.Duration(e.SweepIntervalMinutes) * time.Minute
}

// Timeout returns the captcha answer deadline as a duration.
func (c *CaptchaConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

var cfg *Config

func Load(configPath string) (*Config, error) {
	if configPath == "" {
		return nil, fmt.Errorf("config file path is required")
	}

	v := viper.New()

	setDefaults(v)

	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	log.Printf("Using config file: %s", v.ConfigFileUsed())

	// Unmarshal configuration
	cfg = &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func Get() *Config {
	if cfg == nil {
		log.Fatal("Configuration not initialized, call Load() first")
	}
	return cfg
}

func validate(c *Config) error {
	if c.Bot.Token == "" {
		return fmt.Errorf("bot.token is required")
	}
	if c.Bot.GroupID >= 0 {
		return fmt.Errorf("bot.group_id must be a negative group identifier")
	}
	if c.Enforcement.Mode != ModeWarnOnly && c.Enforcement.Mode != ModeProgressive {
		return fmt.Errorf("enforcement.mode must be %q or %q, got %q",
			ModeWarnOnly, ModeProgressive, c.Enforcement.Mode)
	}
	if c.Enforcement.WarningThreshold < 1 {
		return fmt.Errorf("enforcement.warning_threshold must be at least 1")
	}
	if c.Enforcement.TimeThresholdMinutes < 1 {
		return fmt.Errorf("enforcement.time_threshold_minutes must be at least 1")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("bot.webhook.listen_port", "8443")
	v.SetDefault("bot.webhook.debug_path", "/debug")
	v.SetDefault("bot.webhook.cert_file", "")
	v.SetDefault("bot.webhook.key_file", "")

	v.SetDefault("enforcement.mode", ModeWarnOnly)
	v.SetDefault("enforcement.warning_threshold", 3)
	v.SetDefault("enforcement.time_threshold_minutes", 180)
	v.SetDefault("enforcement.sweep_interval_minutes", 5)
	v.SetDefault("enforcement.rules_link", "")

	v.SetDefault("captcha.enabled", false)
	v.SetDefault("captcha.timeout_seconds", 120)

	v.SetDefault("logger.directory", "logs")
	v.SetDefault("logger.rotation.max_size", 10)
	v.SetDefault("logger.rotation.max_backups", 30)
	v.SetDefault("logger.rotation.max_age", 90)
	v.SetDefault("logger.rotation.compress", true)
	v.SetDefault("logger.level", "INFO")

	v.SetDefault("database.enabled", false)
	v.SetDefault("database.charset", "utf8mb4")
}
