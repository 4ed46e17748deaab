package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Addr != ":8787" {
		t.Errorf("default addr = %q", cfg.Server.Addr)
	}
	if cfg.Providers.Google.ImageModel != "gemini-2.5-flash-image-preview" {
		t.Errorf("default image model = %q", cfg.Providers.Google.ImageModel)
	}
	if cfg.Document.Backend != "memory" {
		t.Errorf("default document backend = %q", cfg.Document.Backend)
	}
}

func TestLoadFileAndEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	contents := `
server:
  addr: ":9090"
document:
  backend: sqlite
  path: /tmp/doc.db
logging:
  level: debug
`
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("CANVAS_AGENT_ADDR", ":7070")
	t.Setenv("CANVAS_AGENT_GOOGLE_API_KEY", "env-key")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Addr != ":7070" {
		t.Errorf("env override lost: addr = %q", cfg.Server.Addr)
	}
	if cfg.Providers.Google.APIKey != "env-key" {
		t.Errorf("api key = %q", cfg.Providers.Google.APIKey)
	}
	if cfg.Document.Backend != "sqlite" || cfg.Document.Path != "/tmp/doc.db" {
		t.Errorf("document config = %+v", cfg.Document)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("log level = %q", cfg.Logging.Level)
	}
}

func TestValidateRejectsBadBackend(t *testing.T) {
	cfg := Default()
	cfg.Document.Backend = "postgres"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unknown backend")
	}

	cfg.Document.Backend = "sqlite"
	cfg.Document.Path = ""
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "document.path") {
		t.Fatalf("expected sqlite path error, got %v", err)
	}
}

func TestJSONSchema(t *testing.T) {
	data, err := JSONSchema()
	if err != nil {
		t.Fatalf("JSONSchema() error = %v", err)
	}
	if !strings.Contains(string(data), "providers") {
		t.Errorf("schema missing providers section")
	}
}
