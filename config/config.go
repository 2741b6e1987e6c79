package config

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/elerspay/DBMS/common"
)

// Config holds the engine's tunables. All fields have working defaults so
// a missing config file is not an error.
type Config struct {
	// DataDir is the working directory for catalog blobs, heap files,
	// header files and index files.
	DataDir string `mapstructure:"data_dir"`

	// DateTemplate is the Go time layout used to render DATE values.
	DateTemplate string `mapstructure:"date_template"`

	// PageCachePages caps the number of heap pages kept in memory per
	// open table.
	PageCachePages int `mapstructure:"page_cache_pages"`

	// LogFile receives the operation log; ErrorLogFile duplicates
	// error-level records. Empty disables the respective sink.
	LogFile      string `mapstructure:"log_file"`
	ErrorLogFile string `mapstructure:"error_log_file"`

	// Output is the initial query result sink: "stdout" or a file path.
	Output string `mapstructure:"output"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		DataDir:        ".",
		DateTemplate:   common.DefaultDateTemplate,
		PageCachePages: 256,
		LogFile:        "dbms.log",
		ErrorLogFile:   "dbms-error.log",
		Output:         "stdout",
	}
}

// Load reads a YAML config file into a Config on top of the defaults.
// An empty path returns the defaults untouched.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetDefault("data_dir", cfg.DataDir)
	v.SetDefault("date_template", cfg.DateTemplate)
	v.SetDefault("page_cache_pages", cfg.PageCachePages)
	v.SetDefault("log_file", cfg.LogFile)
	v.SetDefault("error_log_file", cfg.ErrorLogFile)
	v.SetDefault("output", cfg.Output)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, nil
}
