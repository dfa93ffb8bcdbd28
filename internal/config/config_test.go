package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "telegate.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadBasic(t *testing.T) {
	path := writeConfig(t, `
version: "1"
modules:
  gateway.http:
    bind: "127.0.0.1:9000"
  channel.telegram: {}
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Version != "1" {
		t.Errorf("Version = %q, want %q", cfg.Version, "1")
	}
	if len(cfg.Modules) != 2 {
		t.Errorf("len(Modules) = %d, want 2", len(cfg.Modules))
	}
}

func TestLoadExpandsEnv(t *testing.T) {
	t.Setenv("TEST_TELEGATE_BIND", "10.0.0.1:8888")

	path := writeConfig(t, `
modules:
  gateway.http:
    bind: "${TEST_TELEGATE_BIND}"
    path: "${TEST_TELEGATE_PATH:-/api/bot}"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	node := cfg.Modules["gateway.http"]
	var decoded struct {
		Bind string `yaml:"bind"`
		Path string `yaml:"path"`
	}
	if err := node.Decode(&decoded); err != nil {
		t.Fatal(err)
	}
	if decoded.Bind != "10.0.0.1:8888" {
		t.Errorf("bind = %q, want env value", decoded.Bind)
	}
	if decoded.Path != "/api/bot" {
		t.Errorf("path = %q, want default value", decoded.Path)
	}
}

func TestLoadUnresolvedVariable(t *testing.T) {
	path := writeConfig(t, `
modules:
  gateway.http:
    bind: "${TELEGATE_DEFINITELY_UNSET_VAR}"
`)

	_, err := Load(path)
	if err == nil {
		t.Fatal("Load() should fail on unresolved variable without default")
	}
	if !strings.Contains(err.Error(), "TELEGATE_DEFINITELY_UNSET_VAR") {
		t.Errorf("error should name the variable, got: %v", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("Load() should fail for missing file")
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		cfg     *Config
		wantErr bool
	}{
		{"version 1", &Config{Version: "1", Modules: map[string]yaml.Node{"a": {}}}, false},
		{"empty version", &Config{Modules: map[string]yaml.Node{"a": {}}}, false},
		{"bad version", &Config{Version: "2", Modules: map[string]yaml.Node{"a": {}}}, true},
		{"no modules", &Config{Version: "1"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := Validate(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr = %v", err, tt.wantErr)
			}
		})
	}
}

func TestResolveSorted(t *testing.T) {
	t.Parallel()
	cfg := &Config{Modules: map[string]yaml.Node{
		"gateway.http":     {},
		"channel.telegram": {},
		"cron.scheduler":   {},
	}}

	ids := Resolve(cfg)
	want := []string{"channel.telegram", "cron.scheduler", "gateway.http"}
	if len(ids) != len(want) {
		t.Fatalf("len = %d, want %d", len(ids), len(want))
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Errorf("ids[%d] = %q, want %q", i, ids[i], want[i])
		}
	}
}
