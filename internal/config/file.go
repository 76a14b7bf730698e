package config

import (
	"fmt"
	"time"

	"gopkg.in/gcfg.v1"
)

// fileConfig mirrors Config in gcfg's INI shape. Durations are strings so
// they can be written as "30s".
type fileConfig struct {
	Chain struct {
		Difficulty int
		Digest     string
	}
	API struct {
		Enabled        bool
		Listen         string
		ReadTimeout    string
		WriteTimeout   string
		IdleTimeout    string
		MineTimeout    string
		APIKey         string
		AllowedOrigins []string
		Rate           int
		Burst          int
	}
	Log struct {
		Level  string
		Format string
	}
}

// LoadFile overlays the INI file at path onto cfg. Variables absent from the
// file keep their current value.
func LoadFile(path string, cfg *Config) error {
	fc := toFile(*cfg)
	if err := gcfg.ReadFileInto(&fc, path); err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := fromFile(fc, cfg); err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	cfg.File = path
	return nil
}

// LoadString is LoadFile for an in-memory document.
func LoadString(doc string, cfg *Config) error {
	fc := toFile(*cfg)
	if err := gcfg.ReadStringInto(&fc, doc); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	return fromFile(fc, cfg)
}

func toFile(cfg Config) fileConfig {
	var fc fileConfig
	fc.Chain.Difficulty = cfg.Chain.Difficulty
	fc.Chain.Digest = cfg.Chain.Digest

	fc.API.Enabled = cfg.API.Enabled
	fc.API.Listen = cfg.API.ListenAddr
	fc.API.ReadTimeout = cfg.API.ReadTimeout.String()
	fc.API.WriteTimeout = cfg.API.WriteTimeout.String()
	fc.API.IdleTimeout = cfg.API.IdleTimeout.String()
	fc.API.MineTimeout = cfg.API.MineTimeout.String()
	fc.API.APIKey = cfg.API.APIKey
	fc.API.AllowedOrigins = append([]string(nil), cfg.API.AllowedOrigins...)
	fc.API.Rate = cfg.API.RatePerMinute
	fc.API.Burst = cfg.API.RateBurst

	fc.Log.Level = cfg.Log.Level
	fc.Log.Format = cfg.Log.Format
	return fc
}

func fromFile(fc fileConfig, cfg *Config) error {
	durations := []struct {
		name string
		raw  string
		dst  *time.Duration
	}{
		{"api.readTimeout", fc.API.ReadTimeout, &cfg.API.ReadTimeout},
		{"api.writeTimeout", fc.API.WriteTimeout, &cfg.API.WriteTimeout},
		{"api.idleTimeout", fc.API.IdleTimeout, &cfg.API.IdleTimeout},
		{"api.mineTimeout", fc.API.MineTimeout, &cfg.API.MineTimeout},
	}
	for _, d := range durations {
		v, err := time.ParseDuration(d.raw)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", d.name, err)
		}
		*d.dst = v
	}

	cfg.Chain.Difficulty = fc.Chain.Difficulty
	cfg.Chain.Digest = fc.Chain.Digest

	cfg.API.Enabled = fc.API.Enabled
	cfg.API.ListenAddr = fc.API.Listen
	cfg.API.APIKey = fc.API.APIKey
	cfg.API.AllowedOrigins = fc.API.AllowedOrigins
	cfg.API.RatePerMinute = fc.API.Rate
	cfg.API.RateBurst = fc.API.Burst

	cfg.Log.Level = fc.Log.Level
	cfg.Log.Format = fc.Log.Format
	return nil
}
