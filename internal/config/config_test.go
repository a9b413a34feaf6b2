package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDaemonTemplateRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "osclinkd.toml")
	if err := WriteTemplate(path, "daemon", false); err != nil {
		t.Fatalf("write template: %v", err)
	}
	cfg, err := LoadDaemonConfig(path)
	if err != nil {
		t.Fatalf("load template: %v", err)
	}
	if cfg.ID != "osclinkd" || cfg.Port != 9999 || cfg.AdminListen != "127.0.0.1:7070" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if len(cfg.Clients) != 2 || cfg.Clients[0].Name != "supercollider" || cfg.Clients[1].Port != 7400 {
		t.Fatalf("unexpected clients: %+v", cfg.Clients)
	}
	if cfg.Log.Level != "info" {
		t.Fatalf("unexpected log level: %q", cfg.Log.Level)
	}

	if err := WriteTemplate(path, "daemon", false); err == nil {
		t.Fatalf("expected existing config to be kept")
	}
	if err := WriteTemplate(path, "send", true); err != nil {
		t.Fatalf("overwrite template: %v", err)
	}
}

func TestSendTemplateDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "oscsend.toml")
	if err := os.WriteFile(path, []byte("listen = \"127.0.0.1:0\"\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := LoadSendConfig(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Host != "127.0.0.1" || cfg.Port != 9999 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestValidateDaemonConfigRejects(t *testing.T) {
	cases := map[string]DaemonConfig{
		"port":      {Port: 70000},
		"workers":   {Workers: -1},
		"admin":     {AdminListen: "nocolon"},
		"name":      {Clients: []ClientConfig{{Port: 1}}},
		"duplicate": {Clients: []ClientConfig{{Name: "a"}, {Name: "a"}}},
	}
	for name, cfg := range cases {
		if err := ValidateDaemonConfig(cfg); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
	if err := ValidateDaemonConfig(DaemonConfig{}); err != nil {
		t.Fatalf("empty config should validate: %v", err)
	}
}

func TestTemplateUnknownKind(t *testing.T) {
	if _, err := Template("mirage"); err == nil || !strings.Contains(err.Error(), "unknown config kind") {
		t.Fatalf("expected unknown kind error, got %v", err)
	}
}
