// Package config loads the intentd TOML file.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/danmuck/intentctl/internal/protocol/frame"
	"github.com/danmuck/intentctl/internal/protocol/legacy"
	"github.com/danmuck/intentctl/internal/server"
)

var ErrInvalidConfig = errors.New("config: invalid")

// Config is the resolved daemon configuration.
type Config struct {
	Addr            string
	AdminAddr       string
	CorsOrigins     []string
	LegacyReadLimit int
	MaxFrameBytes   uint32
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// fileConfig mirrors the on-disk keys; durations stay strings until parsed.
type fileConfig struct {
	Addr            string   `toml:"addr"`
	AdminAddr       string   `toml:"admin_addr"`
	CorsOrigins     []string `toml:"cors_origins"`
	LegacyReadLimit int      `toml:"legacy_read_limit"`
	MaxFrameBytes   uint32   `toml:"max_frame_bytes"`
	ReadTimeout     string   `toml:"read_timeout"`
	WriteTimeout    string   `toml:"write_timeout"`
	ShutdownTimeout string   `toml:"shutdown_timeout"`
}

func Default() Config {
	srv := server.DefaultConfig()
	return Config{
		Addr:            srv.Addr,
		CorsOrigins:     []string{"http://localhost:3000"},
		LegacyReadLimit: legacy.ReadLimit,
		MaxFrameBytes:   frame.DefaultLimits().MaxPayloadBytes,
		ShutdownTimeout: 5 * time.Second,
	}
}

// Load applies the keys present in path on top of Default and validates
// the result. Keys absent from the file keep their defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("load intentd config (%s): %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("%w: unknown key %q", ErrInvalidConfig, undecoded[0].String())
	}

	if meta.IsDefined("addr") {
		cfg.Addr = strings.TrimSpace(raw.Addr)
	}
	if meta.IsDefined("admin_addr") {
		cfg.AdminAddr = strings.TrimSpace(raw.AdminAddr)
	}
	if meta.IsDefined("cors_origins") {
		cfg.CorsOrigins = normalizeOrigins(raw.CorsOrigins)
	}
	if meta.IsDefined("legacy_read_limit") {
		cfg.LegacyReadLimit = raw.LegacyReadLimit
	}
	if meta.IsDefined("max_frame_bytes") {
		cfg.MaxFrameBytes = raw.MaxFrameBytes
	}

	durations := []struct {
		key string
		raw string
		dst *time.Duration
	}{
		{key: "read_timeout", raw: raw.ReadTimeout, dst: &cfg.ReadTimeout},
		{key: "write_timeout", raw: raw.WriteTimeout, dst: &cfg.WriteTimeout},
		{key: "shutdown_timeout", raw: raw.ShutdownTimeout, dst: &cfg.ShutdownTimeout},
	}
	for _, d := range durations {
		if !meta.IsDefined(d.key) {
			continue
		}
		v, err := time.ParseDuration(strings.TrimSpace(d.raw))
		if err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", d.key, err)
		}
		*d.dst = v
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if err := validateAddr("addr", c.Addr); err != nil {
		return err
	}
	if c.AdminAddr != "" {
		if err := validateAddr("admin_addr", c.AdminAddr); err != nil {
			return err
		}
		if c.AdminAddr == c.Addr {
			return fmt.Errorf("%w: admin_addr must differ from addr", ErrInvalidConfig)
		}
	}
	if c.LegacyReadLimit <= 0 {
		return fmt.Errorf("%w: legacy_read_limit must be positive", ErrInvalidConfig)
	}
	if c.MaxFrameBytes == 0 {
		return fmt.Errorf("%w: max_frame_bytes must be positive", ErrInvalidConfig)
	}
	if c.ReadTimeout < 0 || c.WriteTimeout < 0 || c.ShutdownTimeout < 0 {
		return fmt.Errorf("%w: timeouts must not be negative", ErrInvalidConfig)
	}
	return nil
}

// Server converts the file settings into listener settings.
func (c Config) Server() server.Config {
	return server.Config{
		Addr:            c.Addr,
		LegacyReadLimit: c.LegacyReadLimit,
		FrameLimits:     frame.Limits{MaxPayloadBytes: c.MaxFrameBytes},
		ReadTimeout:     c.ReadTimeout,
		WriteTimeout:    c.WriteTimeout,
	}
}

func validateAddr(key, addr string) error {
	if strings.TrimSpace(addr) == "" {
		return fmt.Errorf("%w: %s is required", ErrInvalidConfig, key)
	}
	if _, _, err := net.SplitHostPort(addr); err != nil {
		return fmt.Errorf("%w: %s %q: %v", ErrInvalidConfig, key, addr, err)
	}
	return nil
}

func normalizeOrigins(in []string) []string {
	out := make([]string, 0, len(in))
	for _, origin := range in {
		v := strings.TrimSpace(origin)
		if v == "" {
			continue
		}
		out = append(out, v)
	}
	return out
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
