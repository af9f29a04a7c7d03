// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package config loads CLI settings from an optional YAML file and command-line
// flags. Flags that were set explicitly win over the file, and the file wins
// over flag defaults.
package config

import (
	"errors"
	"io/fs"
	"log/slog"
	"net"
	"os"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/holomush/hooks/internal/logging"
	"github.com/holomush/hooks/internal/xdg"
)

// CodeInvalidConfig marks configuration that failed to load or validate.
const CodeInvalidConfig = "INVALID_CONFIG"

// Default values.
const (
	DefaultLogFormat = logging.FormatText
	DefaultLogLevel  = "info"
)

// Config is the resolved CLI configuration.
type Config struct {
	Log      LogConfig      `koanf:"log"`
	Metrics  MetricsConfig  `koanf:"metrics"`
	Dispatch DispatchConfig `koanf:"dispatch"`
}

// LogConfig controls slog output.
type LogConfig struct {
	Format string `koanf:"format"`
	Level  string `koanf:"level"`
}

// MetricsConfig controls the observability server. An empty Addr disables it.
type MetricsConfig struct {
	Addr string `koanf:"addr"`
}

// DispatchConfig holds dispatcher options.
type DispatchConfig struct {
	ResolveOnCall bool `koanf:"resolve_on_call"`
}

// flagKeys maps CLI flag names onto config keys. Flags not listed here are
// ignored by Load.
var flagKeys = map[string]string{
	"log-format":      "log.format",
	"log-level":       "log.level",
	"metrics-addr":    "metrics.addr",
	"resolve-on-call": "dispatch.resolve_on_call",
}

// Default returns the configuration used when neither file nor flags set a key.
func Default() *Config {
	return &Config{
		Log: LogConfig{Format: DefaultLogFormat, Level: DefaultLogLevel},
	}
}

// Load builds a Config. When path is empty the XDG default file is tried and
// may be absent; an explicit path must exist. flags may be nil.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	filePath, required := path, path != ""
	if !required {
		if def, err := xdg.ConfigFile(); err == nil {
			filePath = def
		}
	}

	if filePath != "" {
		if err := loadFile(k, filePath, required); err != nil {
			return nil, err
		}
	}

	if flags != nil {
		provider := posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			key, ok := flagKeys[f.Name]
			if !ok {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		})
		if err := k.Load(provider, nil); err != nil {
			return nil, oops.In("config").Code(CodeInvalidConfig).Hint("failed to read flags").Wrap(err)
		}
	}

	cfg := Default()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, oops.In("config").Code(CodeInvalidConfig).With("path", filePath).Wrap(err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadFile(k *koanf.Koanf, path string, required bool) error {
	if _, err := os.Stat(path); err != nil {
		if !required && errors.Is(err, fs.ErrNotExist) {
			slog.Debug("no config file, using defaults", "path", path)
			return nil
		}
		return oops.In("config").Code(CodeInvalidConfig).With("path", path).Hint("config file not readable").Wrap(err)
	}
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return oops.In("config").Code(CodeInvalidConfig).With("path", path).Hint("failed to parse config file").Wrap(err)
	}
	return nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if !logging.ValidFormat(c.Log.Format) {
		return oops.In("config").Code(CodeInvalidConfig).
			With("log.format", c.Log.Format).
			Errorf("log.format must be 'json' or 'text', got %q", c.Log.Format)
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return oops.In("config").Code(CodeInvalidConfig).With("log.level", c.Log.Level).Wrap(err)
	}
	if c.Metrics.Addr != "" {
		if _, _, err := net.SplitHostPort(c.Metrics.Addr); err != nil {
			return oops.In("config").Code(CodeInvalidConfig).
				With("metrics.addr", c.Metrics.Addr).
				Hint("use host:port, for example 127.0.0.1:9100").
				Wrapf(err, "invalid metrics.addr %q", c.Metrics.Addr)
		}
	}
	return nil
}

// LogLevel returns the parsed log level. Call after Validate.
func (c *Config) LogLevel() slog.Level {
	level, _ := logging.ParseLevel(c.Log.Level)
	return level
}
