// Package config loads the filter node settings from a TOML file
package config

import (
	"fmt"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/UnendingLoop/URLFilter/internal/model"
)

const (
	defaultReadTimeout     = 10 * time.Second
	defaultWriteTimeout    = 10 * time.Second
	defaultShutdownTimeout = 5 * time.Second
	defaultGinMode         = "release"
)

// duration lets TOML values like "5s" be decoded into time.Duration
type duration struct {
	time.Duration
}

func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

type ServerConfig struct {
	Address         string   `toml:"address"`
	ReadTimeout     duration `toml:"read_timeout"`
	WriteTimeout    duration `toml:"write_timeout"`
	ShutdownTimeout duration `toml:"shutdown_timeout"`
	MaxRecords      int      `toml:"max_records"` // 0 - без ограничения
	GinMode         string   `toml:"gin_mode"`
}

func Default() *ServerConfig {
	cfg := &ServerConfig{}
	cfg.ensureDefaults()
	return cfg
}

// Load reads path if given and re-establishes defaults for anything left unset
func Load(path string) (*ServerConfig, error) {
	cfg := &ServerConfig{}
	if path != "" {
		md, err := toml.DecodeFile(path, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to load config %q: %w", path, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("config %q has unknown keys: %v", path, undecoded)
		}
	}
	cfg.ensureDefaults()

	if cfg.MaxRecords < 0 {
		return nil, fmt.Errorf("max_records must not be negative, got %d", cfg.MaxRecords)
	}
	return cfg, nil
}

func (cfg *ServerConfig) ensureDefaults() {
	if cfg.Address == "" {
		cfg.Address = model.DefaultServerAddress
	}
	if cfg.ReadTimeout.Duration <= 0 {
		cfg.ReadTimeout.Duration = defaultReadTimeout
	}
	if cfg.WriteTimeout.Duration <= 0 {
		cfg.WriteTimeout.Duration = defaultWriteTimeout
	}
	if cfg.ShutdownTimeout.Duration <= 0 {
		cfg.ShutdownTimeout.Duration = defaultShutdownTimeout
	}
	if cfg.GinMode == "" {
		cfg.GinMode = defaultGinMode
	}
}

// ApplyFlags lets command line values win over the file
func (cfg *ServerConfig) ApplyFlags(ai *model.AppInit) {
	if ai.Address != "" {
		cfg.Address = ai.Address
	}
}
