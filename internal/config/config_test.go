package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/danmuck/intentctl/internal/testutil/testlog"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "intentd.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadKeepsDefaultsForMissingKeys(t *testing.T) {
	testlog.Start(t)
	cfg, err := Load(writeConfig(t, `addr = "0.0.0.0:6000"`+"\n"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	def := Default()
	if cfg.Addr != "0.0.0.0:6000" {
		t.Fatalf("addr got=%q", cfg.Addr)
	}
	if cfg.LegacyReadLimit != def.LegacyReadLimit || cfg.MaxFrameBytes != def.MaxFrameBytes {
		t.Fatalf("limits should default: %+v", cfg)
	}
	if cfg.ShutdownTimeout != def.ShutdownTimeout {
		t.Fatalf("shutdown_timeout got=%s", cfg.ShutdownTimeout)
	}
	if cfg.AdminAddr != "" {
		t.Fatalf("admin surface should be off by default")
	}
}

func TestLoadOverrides(t *testing.T) {
	testlog.Start(t)
	cfg, err := Load(writeConfig(t, `
addr = "127.0.0.1:7000"
admin_addr = "127.0.0.1:7001"
cors_origins = [" http://a.test ", ""]
legacy_read_limit = 1024
max_frame_bytes = 2048
read_timeout = "2s"
write_timeout = "500ms"
shutdown_timeout = "1m"
`))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.AdminAddr != "127.0.0.1:7001" {
		t.Fatalf("admin_addr got=%q", cfg.AdminAddr)
	}
	if len(cfg.CorsOrigins) != 1 || cfg.CorsOrigins[0] != "http://a.test" {
		t.Fatalf("cors_origins got=%v", cfg.CorsOrigins)
	}
	if cfg.ReadTimeout != 2*time.Second || cfg.WriteTimeout != 500*time.Millisecond || cfg.ShutdownTimeout != time.Minute {
		t.Fatalf("durations got=%+v", cfg)
	}

	srv := cfg.Server()
	if srv.LegacyReadLimit != 1024 || srv.FrameLimits.MaxPayloadBytes != 2048 {
		t.Fatalf("server config got=%+v", srv)
	}
}

func TestLoadRejects(t *testing.T) {
	testlog.Start(t)
	cases := map[string]string{
		"bad duration": `read_timeout = "soon"`,
		"unknown key":  `listen = "x"`,
		"bad addr":     `addr = "nope"`,
		"same addr":    "addr = \"127.0.0.1:1\"\nadmin_addr = \"127.0.0.1:1\"",
		"zero limit":   `legacy_read_limit = 0`,
		"neg timeout":  `write_timeout = "-1s"`,
		"not toml":     `addr = `,
		"zero frames":  `max_frame_bytes = 0`,
	}
	for name, body := range cases {
		if _, err := Load(writeConfig(t, body)); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}

	_, err := Load(writeConfig(t, `legacy_read_limit = -5`))
	if !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	testlog.Start(t)
	if _, err := Load(filepath.Join(t.TempDir(), "absent.toml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestTemplateRoundTrip(t *testing.T) {
	testlog.Start(t)
	path := filepath.Join(t.TempDir(), "intentd.toml")
	if err := WriteTemplate(path, false); err != nil {
		t.Fatalf("write template: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("template should load: %v", err)
	}
	if cfg.Addr != Default().Addr || cfg.AdminAddr == "" {
		t.Fatalf("template config got=%+v", cfg)
	}

	if err := WriteTemplate(path, false); err == nil {
		t.Fatalf("expected refusal to overwrite")
	}
	if err := WriteTemplate(path, true); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
}
