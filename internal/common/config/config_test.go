package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfigFile(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return p
}

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.json"))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Server.Name == "" || cfg.Server.HTTPPort == 0 {
		t.Fatalf("expected default server config, got %#v", cfg.Server)
	}
}

func TestLoadConfigIsNotCached(t *testing.T) {
	a := writeConfigFile(t, "a.json", `{"server":{"name":"svc-a","http_port":8001}}`)
	b := writeConfigFile(t, "b.json", `{"server":{"name":"svc-b","http_port":8002}}`)

	cfgA, err := LoadConfig(a)
	if err != nil {
		t.Fatalf("LoadConfig a: %v", err)
	}
	cfgB, err := LoadConfig(b)
	if err != nil {
		t.Fatalf("LoadConfig b: %v", err)
	}

	if cfgA.Server.Name != "svc-a" || cfgB.Server.Name != "svc-b" {
		t.Fatalf("expected each load to reflect its own file: %q / %q", cfgA.Server.Name, cfgB.Server.Name)
	}
	// 后一次加载不改写前一次的结果。
	if cfgA.Server.HTTPPort != 8001 {
		t.Fatalf("first config mutated by second load: %d", cfgA.Server.HTTPPort)
	}
}

func TestLoadConfigRejectsBadJSON(t *testing.T) {
	p := writeConfigFile(t, "bad.json", `{"server":`)
	if _, err := LoadConfig(p); err == nil {
		t.Fatalf("expected parse error")
	}
}
