package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Database     DatabaseConfig     `mapstructure:"database"`
	JWT          JWTConfig          `mapstructure:"jwt"`
	RateLimit    RateLimitConfig    `mapstructure:"rate_limit"`
	Dispatch     DispatchConfig     `mapstructure:"dispatch"`
	Integrations IntegrationsConfig `mapstructure:"integrations"`
	Logging      LoggingConfig      `mapstructure:"logging"`
}

type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

type DatabaseConfig struct {
	Path           string `mapstructure:"path"`
	MaxConnections int    `mapstructure:"max_connections"`
}

type JWTConfig struct {
	Secret         string        `mapstructure:"secret"`
	AccessTokenTTL time.Duration `mapstructure:"access_token_ttl"`
}

type RateLimitConfig struct {
	HookPerMinute     int `mapstructure:"hook_per_minute"`
	APIWritePerMinute int `mapstructure:"api_write_per_minute"`
}

type DispatchConfig struct {
	// Upper bound on a single downstream integration call. A timeout is
	// recorded as a failed attempt, never left pending.
	Timeout        time.Duration `mapstructure:"timeout"`
	SummaryMaxLen  int           `mapstructure:"summary_max_len"`
	ResponseMaxLen int           `mapstructure:"response_max_len"`
}

type IntegrationsConfig struct {
	// 64 hex chars, decoded to the 32-byte secretbox key that seals
	// stored credentials.
	EncryptionKey string `mapstructure:"encryption_key"`
	SendGridURL   string `mapstructure:"sendgrid_url"`
	SMTP2GOURL    string `mapstructure:"smtp2go_url"`
}

type LoggingConfig struct {
	Level    string `mapstructure:"level"`
	Format   string `mapstructure:"format"`
	Output   string `mapstructure:"output"`
	FilePath string `mapstructure:"file_path"`
}

func Load(path string) (*Config, error) {
	viper.SetConfigFile(path)
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	if config.Dispatch.Timeout == 0 {
		config.Dispatch.Timeout = 15 * time.Second
	}
	if config.Dispatch.SummaryMaxLen == 0 {
		config.Dispatch.SummaryMaxLen = 500
	}
	if config.Dispatch.ResponseMaxLen == 0 {
		config.Dispatch.ResponseMaxLen = 2000
	}

	return &config, nil
}
