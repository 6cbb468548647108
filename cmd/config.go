// Copyright 2025 The Digipin Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"strings"
	"time"

	"github.com/digipin-go/digipin/resolver"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Config is the resolved configuration: defaults < digipin.yaml < .env and
// DIGIPIN_* environment variables < flags.
type Config struct {
	Remote  RemoteConfig `mapstructure:"remote"`
	Offline bool         `mapstructure:"offline"`
	DB      DBConfig     `mapstructure:"db"`
	Server  ServerConfig `mapstructure:"server"`
	HTTP    HTTPConfig   `mapstructure:"http"`
	Batch   BatchConfig  `mapstructure:"batch"`
}

type RemoteConfig struct {
	// URL of the codec service, empty means local only.
	URL       string        `mapstructure:"url"`
	Timeout   time.Duration `mapstructure:"timeout"`
	UserAgent string        `mapstructure:"user_agent"`
}

type DBConfig struct {
	Path string `mapstructure:"path"`
}

type ServerConfig struct {
	Addr         string `mapstructure:"addr"`
	H3Resolution int    `mapstructure:"h3_resolution"`
}

type HTTPConfig struct {
	Trace     bool `mapstructure:"trace"`
	TraceBody bool `mapstructure:"trace_body"`
}

type BatchConfig struct {
	MaxProcs int `mapstructure:"max_procs"`
}

// config is loaded by the root command before any sub command runs.
var config *Config

var configFile string

// flagKeys maps config keys to the flags that override them.
var flagKeys = map[string]string{
	"remote.url":           "remote",
	"remote.timeout":       "timeout",
	"offline":              "offline",
	"db.path":              "db",
	"http.trace":           "http-trace",
	"http.trace_body":      "http-trace-body",
	"server.addr":          "addr",
	"server.h3_resolution": "h3-res",
	"batch.max_procs":      "max-procs",
}

func loadConfig(cmd *cobra.Command) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("Ignoring .env: %v", err)
	}

	v := viper.New()

	v.SetDefault("remote.url", "")
	v.SetDefault("remote.timeout", resolver.DefaultTimeout)
	v.SetDefault("remote.user_agent", "digipin/"+Version)
	v.SetDefault("offline", false)
	v.SetDefault("db.path", "data")
	v.SetDefault("server.addr", "localhost:8080")
	v.SetDefault("server.h3_resolution", 7)
	v.SetDefault("http.trace", false)
	v.SetDefault("http.trace_body", false)
	v.SetDefault("batch.max_procs", 0)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("digipin")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	// DIGIPIN_REMOTE_URL -> remote.url
	v.SetEnvPrefix("DIGIPIN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, name := range flagKeys {
		flag := cmd.Flags().Lookup(name)
		if flag == nil {
			continue
		}

		if err := v.BindPFlag(key, flag); err != nil {
			return nil, fmt.Errorf("binding flag %s: %w", name, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks that configuration values are sane.
func (c *Config) Validate() error {
	var errs []string

	if c.Remote.URL != "" && !strings.HasPrefix(c.Remote.URL, "http://") && !strings.HasPrefix(c.Remote.URL, "https://") {
		errs = append(errs, fmt.Sprintf("remote.url must be an http(s) URL, got %q", c.Remote.URL))
	}

	if c.Remote.Timeout < 0 {
		errs = append(errs, "remote.timeout can't be negative")
	}

	if c.Batch.MaxProcs < 0 {
		errs = append(errs, "batch.max_procs can't be negative")
	}

	if c.DB.Path == "" {
		errs = append(errs, "db.path is required")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default ./digipin.yaml)")
	rootCmd.PersistentFlags().String("remote", "", "codec service base URL; empty resolves locally")
	rootCmd.PersistentFlags().Duration("timeout", resolver.DefaultTimeout, "timeout of a remote call")
	rootCmd.PersistentFlags().Bool("offline", false, "never call the remote codec service")
	rootCmd.PersistentFlags().String("db", "data", "directory of the local database")
	rootCmd.PersistentFlags().Bool("http-trace", false, "trace HTTP requests to stderr")
	rootCmd.PersistentFlags().Bool("http-trace-body", false, "include bodies in the HTTP trace")
}
