// Package config holds the settings of a dexpeep run.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v2"

	"github.com/colorfulnotion/dexopt/dexerrors"
	"github.com/colorfulnotion/dexopt/log"
)

// Config is read from a YAML or TOML file; command line flags override it.
type Config struct {
	LogLevel      string   `yaml:"log_level" toml:"log_level"`
	LogJSON       bool     `yaml:"log_json" toml:"log_json"`
	LogModules    string   `yaml:"log_modules" toml:"log_modules"`
	Workers       int      `yaml:"workers" toml:"workers"`
	Passes        int      `yaml:"passes" toml:"passes"`
	DisabledRules []string `yaml:"disabled_peepholes" toml:"disabled_peepholes"`
	StatsDB       string   `yaml:"stats_db" toml:"stats_db"`
	OTLPEndpoint  string   `yaml:"otlp_endpoint" toml:"otlp_endpoint"`
}

const (
	DefaultLogLevel = "info"
	DefaultPasses   = 1
	MaxPasses       = 64
)

func Default() Config {
	return Config{
		LogLevel: DefaultLogLevel,
		Passes:   DefaultPasses,
	}
}

// Load reads path over the defaults. The format follows the extension: .yaml/.yml or .toml.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("cannot read %s: %w", path, err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.UnmarshalStrict(data, &cfg)
	case ".toml":
		var md toml.MetaData
		md, err = toml.Decode(string(data), &cfg)
		if err == nil {
			if undec := md.Undecoded(); len(undec) > 0 {
				err = fmt.Errorf("unknown keys %v", undec)
			}
		}
	default:
		return cfg, fmt.Errorf("%w: %s: unsupported extension", dexerrors.ErrBadConfig, path)
	}
	if err != nil {
		return cfg, fmt.Errorf("%w: %s: %v", dexerrors.ErrBadConfig, path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	log.Debug(log.CLIModule, "config loaded", "path", path, "passes", cfg.Passes, "workers", cfg.Workers)
	return cfg, nil
}

// Validate rejects out-of-range settings.
func (c Config) Validate() error {
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: %v", dexerrors.ErrBadConfig, err)
	}
	if c.Workers < 0 {
		return fmt.Errorf("%w: workers %d < 0", dexerrors.ErrBadConfig, c.Workers)
	}
	if c.Passes < 1 || c.Passes > MaxPasses {
		return fmt.Errorf("%w: passes %d not in [1,%d]", dexerrors.ErrBadConfig, c.Passes, MaxPasses)
	}
	return nil
}
