package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Env         string            `yaml:"env"`
	HTTP        HTTPConfig        `yaml:"http"`
	Log         LogConfig         `yaml:"log"`
	Postgres    PostgresConfig    `yaml:"postgres"`
	Redis       RedisConfig       `yaml:"redis"`
	S3          S3Config          `yaml:"s3"`
	Auth        AuthConfig        `yaml:"auth"`
	Bot         BotConfig         `yaml:"bot"`
	Enforcement EnforcementConfig `yaml:"enforcement"`
	Retention   RetentionConfig   `yaml:"retention"`
}

type HTTPConfig struct {
	Addr         string        `yaml:"addr"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

type PostgresConfig struct {
	DSN      string `yaml:"dsn"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type S3Config struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Region    string `yaml:"region"`
	Bucket    string `yaml:"bucket"`
	UseSSL    bool   `yaml:"use_ssl"`
}

type AuthConfig struct {
	JWTSecret    string        `yaml:"jwt_secret"`
	JWTAccessTTL time.Duration `yaml:"jwt_access_ttl"`
}

type BotConfig struct {
	Token string `yaml:"token"`
}

type EnforcementConfig struct {
	MaxRetries         int           `yaml:"max_retries"`
	BackoffBase        time.Duration `yaml:"backoff_base"`
	MaxBackoff         time.Duration `yaml:"max_backoff"`
	MuteDefaultMinutes int           `yaml:"mute_default_minutes"`
	ActionsPerMinute   int           `yaml:"actions_per_minute"`
	ActionsPer10Sec    int           `yaml:"actions_per_10sec"`
}

type RetentionConfig struct {
	ActionLogTTL  time.Duration `yaml:"action_log_ttl"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
	ArchiveBucket string        `yaml:"archive_bucket"`
}

func Default() Config {
	return Config{
		Env: "prod",
		HTTP: HTTPConfig{
			Addr:         ":8080",
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Log: LogConfig{Level: "info"},
		Redis: RedisConfig{
			Addr: "127.0.0.1:6379",
		},
		Auth: AuthConfig{
			JWTAccessTTL: 15 * time.Minute,
		},
		Enforcement: EnforcementConfig{
			MaxRetries:         3,
			BackoffBase:        time.Second,
			MaxBackoff:         60 * time.Second,
			MuteDefaultMinutes: 3600,
			ActionsPerMinute:   60,
			ActionsPer10Sec:    20,
		},
		Retention: RetentionConfig{
			ActionLogTTL:  90 * 24 * time.Hour,
			SweepInterval: 6 * time.Hour,
		},
	}
}

func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		if err := loadFromYAML(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func loadFromYAML(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("unmarshal config yaml: %w", err)
	}

	return nil
}

func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("APP_ENV"); v != "" {
		cfg.Env = v
	}

	if v := os.Getenv("HTTP_ADDR"); v != "" {
		cfg.HTTP.Addr = v
	}
	if err := overrideDuration("HTTP_READ_TIMEOUT", &cfg.HTTP.ReadTimeout); err != nil {
		return err
	}
	if err := overrideDuration("HTTP_WRITE_TIMEOUT", &cfg.HTTP.WriteTimeout); err != nil {
		return err
	}
	if err := overrideDuration("HTTP_IDLE_TIMEOUT", &cfg.HTTP.IdleTimeout); err != nil {
		return err
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}

	if v := os.Getenv("POSTGRES_DSN"); v != "" {
		cfg.Postgres.DSN = v
	}
	if err := overrideInt("POSTGRES_MAX_CONNS", &cfg.Postgres.MaxConns); err != nil {
		return err
	}
	if err := overrideInt("POSTGRES_MIN_CONNS", &cfg.Postgres.MinConns); err != nil {
		return err
	}

	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if err := overrideInt("REDIS_DB", &cfg.Redis.DB); err != nil {
		return err
	}

	if v := os.Getenv("S3_ENDPOINT"); v != "" {
		cfg.S3.Endpoint = v
	}
	if v := os.Getenv("S3_ACCESS_KEY"); v != "" {
		cfg.S3.AccessKey = v
	}
	if v := os.Getenv("S3_SECRET_KEY"); v != "" {
		cfg.S3.SecretKey = v
	}
	if v := os.Getenv("S3_REGION"); v != "" {
		cfg.S3.Region = v
	}
	if v := os.Getenv("S3_BUCKET"); v != "" {
		cfg.S3.Bucket = v
	}

	if v := os.Getenv("JWT_SECRET"); v != "" {
		cfg.Auth.JWTSecret = v
	}
	if err := overrideDuration("JWT_ACCESS_TTL", &cfg.Auth.JWTAccessTTL); err != nil {
		return err
	}

	if v := os.Getenv("BOT_TOKEN"); v != "" {
		cfg.Bot.Token = v
	}

	if err := overrideInt("ENFORCEMENT_MAX_RETRIES", &cfg.Enforcement.MaxRetries); err != nil {
		return err
	}
	if err := overrideDuration("ENFORCEMENT_BACKOFF_BASE", &cfg.Enforcement.BackoffBase); err != nil {
		return err
	}
	if err := overrideDuration("ENFORCEMENT_MAX_BACKOFF", &cfg.Enforcement.MaxBackoff); err != nil {
		return err
	}
	if err := overrideInt("ENFORCEMENT_MUTE_DEFAULT_MINUTES", &cfg.Enforcement.MuteDefaultMinutes); err != nil {
		return err
	}
	if err := overrideInt("ENFORCEMENT_ACTIONS_PER_MINUTE", &cfg.Enforcement.ActionsPerMinute); err != nil {
		return err
	}
	if err := overrideInt("ENFORCEMENT_ACTIONS_PER_10SEC", &cfg.Enforcement.ActionsPer10Sec); err != nil {
		return err
	}

	if err := overrideDuration("RETENTION_ACTION_LOG_TTL", &cfg.Retention.ActionLogTTL); err != nil {
		return err
	}
	if err := overrideDuration("RETENTION_SWEEP_INTERVAL", &cfg.Retention.SweepInterval); err != nil {
		return err
	}
	if v := os.Getenv("RETENTION_ARCHIVE_BUCKET"); v != "" {
		cfg.Retention.ArchiveBucket = v
	}

	return nil
}

func overrideDuration(name string, target *time.Duration) error {
	raw := os.Getenv(name)
	if raw == "" {
		return nil
	}

	value, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("parse %s: %w", name, err)
	}
	*target = value
	return nil
}

func overrideInt(name string, target *int) error {
	raw := os.Getenv(name)
	if raw == "" {
		return nil
	}

	value, err := strconv.Atoi(raw)
	if err != nil {
		return fmt.Errorf("parse %s: %w", name, err)
	}
	*target = value
	return nil
}
