package config

import (
	"fmt"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. ORDERETL_DATABASE_DATABASE_URL.
const EnvPrefix = "ORDERETL"

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	viper.Reset()

	// Set defaults
	config := GetDefaults()
	setDefaults(config)

	// Configure viper
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath("/etc/order-etl/")
	viper.AddConfigPath("$HOME/.order-etl/")

	// Environment variable overrides
	viper.SetEnvPrefix(EnvPrefix)
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Use specific config file if provided
	if configPath != "" {
		viper.SetConfigFile(configPath)
	}

	// Read configuration
	if err := viper.ReadInConfig(); err != nil {
		// Config file not found is not an error - we'll use defaults
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Unmarshal into config struct
	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validate configuration
	if err := Validate(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// setDefaults registers every key with viper so environment variables can
// override values that are absent from the config file.
func setDefaults(config *Config) {
	viper.SetDefault("database.driver", config.Database.Driver)
	viper.SetDefault("database.database_url", config.Database.DatabaseURL)
	viper.SetDefault("database.max_open_conns", config.Database.MaxOpenConns)
	viper.SetDefault("database.max_idle_conns", config.Database.MaxIdleConns)
	viper.SetDefault("database.conn_max_lifetime", config.Database.ConnMaxLifetime)
	viper.SetDefault("database.conn_max_idle_time", config.Database.ConnMaxIdleTime)

	viper.SetDefault("source.path", config.Source.Path)

	viper.SetDefault("etl.statement_timeout", config.ETL.StatementTimeout)
	viper.SetDefault("etl.commit_every", config.ETL.CommitEvery)
	viper.SetDefault("etl.max_rows_per_second", config.ETL.MaxRowsPerSecond)
	viper.SetDefault("etl.progress_report", config.ETL.ProgressReport)

	viper.SetDefault("audit.dir", config.Audit.Dir)
	viper.SetDefault("audit.keep", config.Audit.Keep)

	viper.SetDefault("logging.level", config.Logging.Level)
	viper.SetDefault("logging.format", config.Logging.Format)
	viper.SetDefault("logging.file.enabled", config.Logging.File.Enabled)
	viper.SetDefault("logging.file.path", config.Logging.File.Path)

	viper.SetDefault("report.redis.enabled", config.Report.Redis.Enabled)
	viper.SetDefault("report.redis.url", config.Report.Redis.URL)
	viper.SetDefault("report.redis.key", config.Report.Redis.Key)
	viper.SetDefault("report.redis.max_history", config.Report.Redis.MaxHistory)
	viper.SetDefault("report.redis.timeout", config.Report.Redis.Timeout)
}

// Validate checks a configuration, including one changed after Load by
// command line overrides.
func Validate(config *Config) error {
	if config.Database.Driver != "postgres" && config.Database.Driver != "sqlite3" {
		return fmt.Errorf("invalid database driver: %s (must be postgres or sqlite3)", config.Database.Driver)
	}

	if config.Database.DatabaseURL == "" {
		return fmt.Errorf("database URL is required")
	}

	if config.ETL.StatementTimeout < 0 {
		return fmt.Errorf("invalid statement timeout: %s", config.ETL.StatementTimeout)
	}

	if config.ETL.CommitEvery < 0 {
		return fmt.Errorf("invalid commit_every: %d", config.ETL.CommitEvery)
	}

	if config.ETL.MaxRowsPerSecond < 0 {
		return fmt.Errorf("invalid max_rows_per_second: %g", config.ETL.MaxRowsPerSecond)
	}

	if config.Audit.Keep < 1 {
		return fmt.Errorf("invalid audit keep count: %d (must be at least 1)", config.Audit.Keep)
	}

	if config.Logging.Level != "debug" && config.Logging.Level != "info" && config.Logging.Level != "warn" && config.Logging.Level != "error" {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", config.Logging.Level)
	}

	if config.Logging.Format != "json" && config.Logging.Format != "console" {
		return fmt.Errorf("invalid log format: %s (must be json or console)", config.Logging.Format)
	}

	if config.Report.Redis.Enabled && config.Report.Redis.URL == "" {
		return fmt.Errorf("report.redis.url is required when Redis publishing is enabled")
	}

	return nil
}

// Watch starts watching the configuration file for changes. onError receives
// reloads that fail to decode or validate; the previous configuration stays
// in effect.
func Watch(callback func(*Config), onError func(error)) {
	if viper.ConfigFileUsed() == "" {
		return
	}

	viper.WatchConfig()
	viper.OnConfigChange(func(e fsnotify.Event) {
		newConfig := GetDefaults()
		if err := viper.Unmarshal(newConfig); err != nil {
			if onError != nil {
				onError(fmt.Errorf("failed to unmarshal %s: %w", e.Name, err))
			}
			return
		}

		if err := Validate(newConfig); err != nil {
			if onError != nil {
				onError(fmt.Errorf("invalid configuration in %s: %w", e.Name, err))
			}
			return
		}

		callback(newConfig)
	})
}
