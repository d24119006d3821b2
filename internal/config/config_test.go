package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"ridersettle/internal/model"
)

func TestLoadFile_MissingUsesDefaults(t *testing.T) {
	cfg, info, err := LoadFile(filepath.Join(t.TempDir(), "config.toml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if info.PortSpecified {
		t.Fatalf("port should not be marked as specified")
	}
	if cfg.Server.Port != DefaultConfig().Server.Port || cfg.Ingest.Timezone != "Asia/Seoul" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestLoadFile_ParsesTokensAndEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := strings.Join([]string{
		"[server]",
		"port = 18080",
		"",
		"[ingest]",
		`timezone = "UTC"`,
		"run_timeout_seconds = 30",
		"",
		"[[auth.tokens]]",
		`token = "abc"`,
		`role = "branch_manager"`,
		`company_id = "c1"`,
		`branch_id = "b1"`,
	}, "\n")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("RIDERSETTLE_DATA_DIR", "/srv/ridersettle")

	cfg, info, err := LoadFile(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !info.PortSpecified || cfg.Server.Port != 18080 {
		t.Fatalf("port not loaded: %+v %+v", cfg.Server, info)
	}
	if cfg.Data.DataDir != "/srv/ridersettle" {
		t.Fatalf("env override not applied: %s", cfg.Data.DataDir)
	}
	if cfg.RunTimeout() != 30*time.Second || cfg.Location() != time.UTC {
		t.Fatalf("unexpected ingest config: %+v", cfg.Ingest)
	}
	if len(cfg.Auth.Tokens) != 1 {
		t.Fatalf("tokens = %+v", cfg.Auth.Tokens)
	}
	caller := cfg.Auth.Tokens[0].Caller()
	if caller.Role != model.RoleBranchManager || caller.BranchID != "b1" {
		t.Fatalf("unexpected caller: %+v", caller)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if ResolveDataDir(cfg) != "/srv/ridersettle" {
		t.Fatalf("absolute data dir not kept")
	}
}

func TestValidate(t *testing.T) {
	cases := []func(c *AppConfig){
		func(c *AppConfig) { c.Server.Port = 0 },
		func(c *AppConfig) { c.Ingest.Timezone = "Mars/Olympus" },
		func(c *AppConfig) { c.Auth.Tokens = []TokenConfig{{Token: "", Role: "super_admin"}} },
		func(c *AppConfig) { c.Auth.Tokens = []TokenConfig{{Token: "x", Role: "owner"}} },
		func(c *AppConfig) { c.Auth.Tokens = []TokenConfig{{Token: "x", Role: "branch_manager"}} },
	}
	for i, mutate := range cases {
		cfg := DefaultConfig()
		mutate(cfg)
		if err := cfg.Validate(); err == nil {
			t.Fatalf("case %d: expected validation error", i)
		}
	}
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestSaveConfig_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	cfg := DefaultConfig()
	cfg.Server.Port = 19000
	if err := SaveConfig(cfg, path); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, _, err := LoadFile(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Server.Port != 19000 {
		t.Fatalf("port = %d", got.Server.Port)
	}
}
