package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/davecgh/go-spew/spew"
)

func TestDefaultIsValid(t *testing.T) {
	if err := validate(Default()); err != nil {
		t.Fatalf("Default() does not validate: %v", err)
	}
	if Default().Chain.Difficulty != 2 {
		t.Fatalf("default difficulty = %d, want 2", Default().Chain.Difficulty)
	}
}

func TestLoadStringOverlay(t *testing.T) {
	doc := `
	; node settings
	[chain]
	difficulty = 3
	digest = sha3-256

	[api]
	listen = "0.0.0.0:9090"
	mineTimeout = 5s
	allowedOrigins = http://a.example
	allowedOrigins = http://b.example

	[log]
	format = text
	`

	cfg := Default()
	if err := LoadString(doc, &cfg); err != nil {
		t.Fatalf("LoadString: %v", err)
	}

	if cfg.Chain.Difficulty != 3 || cfg.Chain.Digest != "sha3-256" {
		t.Errorf("chain section not applied:\n%s", spew.Sdump(cfg.Chain))
	}
	if cfg.API.ListenAddr != "0.0.0.0:9090" || cfg.API.MineTimeout != 5*time.Second {
		t.Errorf("api section not applied:\n%s", spew.Sdump(cfg.API))
	}
	if !reflect.DeepEqual(cfg.API.AllowedOrigins, []string{"http://a.example", "http://b.example"}) {
		t.Errorf("origins = %v", cfg.API.AllowedOrigins)
	}
	if cfg.Log.Format != "text" {
		t.Errorf("log.format = %q, want text", cfg.Log.Format)
	}

	// Untouched values keep their defaults.
	def := Default()
	if cfg.Log.Level != def.Log.Level || cfg.API.ReadTimeout != def.API.ReadTimeout || !cfg.API.Enabled {
		t.Errorf("defaults were overwritten:\n%s", spew.Sdump(cfg))
	}
}

func TestLoadStringErrors(t *testing.T) {
	tests := map[string]string{
		"unknown section":  "[nope]\nx = 1\n",
		"unknown variable": "[chain]\nspeed = 1\n",
		"bad duration":     "[api]\nmineTimeout = soon\n",
		"bad int":          "[chain]\ndifficulty = two\n",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			if err := LoadString(doc, &cfg); err == nil {
				t.Fatalf("expected error for %q", doc)
			}
		})
	}
}

func TestParseNodeFlagsPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "node.conf")
	doc := "[chain]\ndifficulty = 3\n[log]\nlevel = warn\nformat = text\n"
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("CHAIN_LOG_LEVEL", "debug")
	t.Setenv("CHAIN_API_LISTEN", "127.0.0.1:7000")

	parsed, err := ParseNodeFlags([]string{"-config", path, "-api.listen", "127.0.0.1:7001"})
	if err != nil {
		t.Fatalf("ParseNodeFlags: %v", err)
	}
	cfg := parsed.Config

	if cfg.File != path {
		t.Errorf("File = %q, want %q", cfg.File, path)
	}
	if cfg.Chain.Difficulty != 3 {
		t.Errorf("file value lost: difficulty = %d", cfg.Chain.Difficulty)
	}
	if cfg.Log.Format != "text" {
		t.Errorf("file value lost: format = %q", cfg.Log.Format)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("env should override file: level = %q", cfg.Log.Level)
	}
	if cfg.API.ListenAddr != "127.0.0.1:7001" {
		t.Errorf("flag should override env: listen = %q", cfg.API.ListenAddr)
	}
}

func TestParseNodeFlagsConfigFromEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "node.conf")
	if err := os.WriteFile(path, []byte("[chain]\ndigest = sha3-256\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("CHAIN_CONFIG", path)

	parsed, err := ParseNodeFlags(nil)
	if err != nil {
		t.Fatalf("ParseNodeFlags: %v", err)
	}
	if parsed.Config.Chain.Digest != "sha3-256" {
		t.Fatalf("digest = %q, want sha3-256", parsed.Config.Chain.Digest)
	}
}

func TestParseNodeFlagsMissingFile(t *testing.T) {
	_, err := ParseNodeFlags([]string{"-config=" + filepath.Join(t.TempDir(), "absent.conf")})
	if err == nil {
		t.Fatalf("expected error for missing config file")
	}
}

func TestParseNodeFlagsValidation(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"difficulty too high", []string{"-chain.difficulty", "65"}},
		{"negative difficulty", []string{"-chain.difficulty", "-1"}},
		{"digest", []string{"-chain.digest", "md5"}},
		{"log level", []string{"-log.level", "loud"}},
		{"log format", []string{"-log.format", "xml"}},
		{"empty listen", []string{"-api.listen", ""}},
		{"mine timeout", []string{"-api.mineTimeout", "0s"}},
		{"mine exceeds write", []string{"-api.mineTimeout", "2m", "-api.writeTimeout", "1m"}},
		{"rate", []string{"-api.rate", "-1"}},
		{"burst", []string{"-api.rate", "10", "-api.burst", "0"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseNodeFlags(tt.args); err == nil {
				t.Fatalf("ParseNodeFlags(%v) expected error", tt.args)
			}
		})
	}
}

func TestParseNodeFlagsOrigins(t *testing.T) {
	parsed, err := ParseNodeFlags([]string{"-api.origins", " http://a , ,http://b "})
	if err != nil {
		t.Fatalf("ParseNodeFlags: %v", err)
	}
	if !reflect.DeepEqual(parsed.Config.API.AllowedOrigins, []string{"http://a", "http://b"}) {
		t.Fatalf("origins = %v", parsed.Config.API.AllowedOrigins)
	}
}

func TestConfigPath(t *testing.T) {
	t.Setenv("CHAIN_CONFIG", "")
	tests := []struct {
		args []string
		want string
	}{
		{[]string{"-config", "a.conf"}, "a.conf"},
		{[]string{"--config=b.conf"}, "b.conf"},
		{[]string{"-log.level", "debug", "-config", "c.conf"}, "c.conf"},
		{[]string{"--", "-config", "d.conf"}, ""},
		{[]string{"config", "e.conf"}, ""},
		{nil, ""},
	}
	for _, tt := range tests {
		if got := configPath(tt.args); got != tt.want {
			t.Errorf("configPath(%v) = %q, want %q", tt.args, got, tt.want)
		}
	}
}

func TestEnvHelpers(t *testing.T) {
	t.Setenv("X_INT", "nope")
	t.Setenv("X_BOOL", "off")
	t.Setenv("X_DUR", "1m")
	if envOrInt("X_INT", 7) != 7 {
		t.Errorf("invalid int should fall back")
	}
	if envOrBool("X_BOOL", true) {
		t.Errorf("off should parse as false")
	}
	if envOrDuration("X_DUR", time.Second) != time.Minute {
		t.Errorf("duration not parsed")
	}
}

func TestExampleFileMatchesDefaults(t *testing.T) {
	cfg := Default()
	cfg.API.ListenAddr = ""
	path := filepath.Join("..", "..", "chain-node.conf.example")
	if err := LoadFile(path, &cfg); err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	want := Default()
	want.File = path
	if !reflect.DeepEqual(cfg, want) {
		t.Fatalf("example file drifted from Default():\ngot  %s\nwant %s", spew.Sdump(cfg), spew.Sdump(want))
	}
}
