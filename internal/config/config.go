package config

import (
	"fmt"

	"github.com/spf13/viper"
)

type Config struct {
	App         AppConfig         `mapstructure:"app"`
	Database    DatabaseConfig    `mapstructure:"database"`
	ObjectStore ObjectStoreConfig `mapstructure:"object_store"`
	Backup      BackupConfig      `mapstructure:"backup"`
	Retention   RetentionConfig   `mapstructure:"retention"`
	KV          KVConfig          `mapstructure:"kv"`
	Metrics     MetricsConfig     `mapstructure:"metrics"`
	WAL         WALConfig         `mapstructure:"wal"`
}

type AppConfig struct {
	Name     string `mapstructure:"name"`
	LogLevel string `mapstructure:"log_level"`
	LogFile  string `mapstructure:"log_file"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
}

// ObjectStoreConfig carries a long-term credential pair used for request
// signing; session tokens are not supported. A non-empty Endpoint selects
// path-style addressing against that endpoint.
type ObjectStoreConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	Region    string `mapstructure:"region"`
	Bucket    string `mapstructure:"bucket"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
}

type BackupConfig struct {
	Schedule      string `mapstructure:"schedule"`
	Type          string `mapstructure:"type"`
	Compress      bool   `mapstructure:"compress"`
	Verify        bool   `mapstructure:"verify"`
	MaxConcurrent int    `mapstructure:"max_concurrent"`
}

// RetentionConfig holds per-tier maximum ages in ordinal units: days for
// daily, weeks for weekly, months for monthly.
type RetentionConfig struct {
	Schedule      string `mapstructure:"schedule"`
	DailyDays     int    `mapstructure:"daily_days"`
	WeeklyWeeks   int    `mapstructure:"weekly_weeks"`
	MonthlyMonths int    `mapstructure:"monthly_months"`
}

type KVConfig struct {
	Path string `mapstructure:"path"`
}

type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

type WALConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	ArchiveCommand string `mapstructure:"archive_command"`
	RestoreCommand string `mapstructure:"restore_command"`
}

func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetDefault("app.name", "aegis")
	v.SetDefault("app.log_level", "info")
	v.SetDefault("database.port", 5432)
	v.SetDefault("backup.type", "full")
	v.SetDefault("backup.compress", true)
	v.SetDefault("backup.verify", false)
	v.SetDefault("backup.max_concurrent", 1)
	v.SetDefault("retention.daily_days", 7)
	v.SetDefault("retention.weekly_weeks", 4)
	v.SetDefault("retention.monthly_months", 12)
	v.SetDefault("kv.path", "data/aegis-kv")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.Database.Host == "" {
		return fmt.Errorf("database.host is required")
	}
	if c.Database.Database == "" {
		return fmt.Errorf("database.database is required")
	}
	if c.ObjectStore.Bucket == "" {
		return fmt.Errorf("object_store.bucket is required")
	}
	if c.ObjectStore.Region == "" {
		return fmt.Errorf("object_store.region is required")
	}
	if c.ObjectStore.AccessKey == "" || c.ObjectStore.SecretKey == "" {
		return fmt.Errorf("object_store credentials are required")
	}
	if c.Backup.MaxConcurrent < 1 {
		return fmt.Errorf("backup.max_concurrent must be at least 1")
	}
	switch c.Backup.Type {
	case "full", "schema-only", "data-only":
	default:
		return fmt.Errorf("backup.type must be one of full, schema-only, data-only")
	}
	if c.Retention.DailyDays < 1 || c.Retention.WeeklyWeeks < 1 || c.Retention.MonthlyMonths < 1 {
		return fmt.Errorf("retention counts must be at least 1")
	}
	return nil
}
