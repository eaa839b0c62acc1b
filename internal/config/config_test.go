package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dgallion1/mindmapper/internal/apperr"
)

// clearEnv blanks every variable Load reads so the host environment does not
// leak into a test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		FileEnv, "PORT", "STORAGE_ROOT", "API_KEY", "REQUIRE_AUTH",
		"MAX_INLINE_BYTES", "MAX_FILE_BYTES", "MAX_NODES", "MAX_DEPTH",
		"RENDER_ENGINE", "RENDER_COMMAND", "RENDER_TIMEOUT", "HISTORY_TTL", "LOG_LEVEL",
	} {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != "8090" {
		t.Errorf("expected port 8090, got %q", cfg.Port)
	}
	if cfg.MaxInlineBytes != 1<<20 || cfg.MaxFileBytes != 5<<20 {
		t.Errorf("unexpected byte limits %d/%d", cfg.MaxInlineBytes, cfg.MaxFileBytes)
	}
	if cfg.MaxNodes != 10000 || cfg.MaxDepth != 20 {
		t.Errorf("unexpected structural limits %d/%d", cfg.MaxNodes, cfg.MaxDepth)
	}
	if cfg.RenderEngine != EngineBuiltin {
		t.Errorf("expected builtin engine, got %q", cfg.RenderEngine)
	}
	if cfg.RenderTimeout != 30*time.Second {
		t.Errorf("expected 30s render timeout, got %s", cfg.RenderTimeout)
	}
	if !filepath.IsAbs(cfg.StorageRoot) {
		t.Errorf("expected absolute default storage root, got %q", cfg.StorageRoot)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9000")
	t.Setenv("STORAGE_ROOT", "/data/agents")
	t.Setenv("MAX_NODES", "50")
	t.Setenv("RENDER_TIMEOUT", "5s")
	t.Setenv("RENDER_ENGINE", "COMMAND")
	t.Setenv("RENDER_COMMAND", "markmap-svg")
	t.Setenv("MAX_DEPTH", "not-a-number")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != "9000" || cfg.StorageRoot != "/data/agents" {
		t.Errorf("unexpected port/root %q %q", cfg.Port, cfg.StorageRoot)
	}
	if cfg.MaxNodes != 50 {
		t.Errorf("expected max nodes 50, got %d", cfg.MaxNodes)
	}
	if cfg.MaxDepth != 20 {
		t.Errorf("expected invalid MAX_DEPTH to fall back to 20, got %d", cfg.MaxDepth)
	}
	if cfg.RenderTimeout != 5*time.Second {
		t.Errorf("expected 5s, got %s", cfg.RenderTimeout)
	}
	if cfg.RenderEngine != EngineCommand {
		t.Errorf("expected command engine, got %q", cfg.RenderEngine)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("unexpected validation error: %v", err)
	}
}

func TestLoad_FileThenEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "mindmapper.yaml")
	data := []byte("port: \"7000\"\nstorage_root: /srv/maps\nmax_nodes: 200\nrender_timeout: 45s\nhistory_ttl: 10m\n")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv(FileEnv, path)
	t.Setenv("PORT", "7100")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != "7100" {
		t.Errorf("expected env to win for port, got %q", cfg.Port)
	}
	if cfg.StorageRoot != "/srv/maps" || cfg.MaxNodes != 200 {
		t.Errorf("expected file values, got root=%q nodes=%d", cfg.StorageRoot, cfg.MaxNodes)
	}
	if cfg.RenderTimeout != 45*time.Second || cfg.HistoryTTL != 10*time.Minute {
		t.Errorf("unexpected durations %s %s", cfg.RenderTimeout, cfg.HistoryTTL)
	}
	if cfg.MaxDepth != 20 {
		t.Errorf("expected default depth to survive, got %d", cfg.MaxDepth)
	}
}

func TestLoad_BadFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("port: [unclosed"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv(FileEnv, path)

	_, err := Load()
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	t.Setenv(FileEnv, filepath.Join(t.TempDir(), "missing.yaml"))
	_, err = Load()
	if !apperr.Is(err, apperr.KindFileSystem) {
		t.Fatalf("expected filesystem error, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"relative root", func(c *Config) { c.StorageRoot = "agents" }, "storage_root"},
		{"unknown engine", func(c *Config) { c.RenderEngine = "browser" }, "render_engine"},
		{"command without program", func(c *Config) { c.RenderEngine = EngineCommand }, "render_command"},
		{"zero nodes", func(c *Config) { c.MaxNodes = -1 }, "max_nodes"},
		{"auth without key", func(c *Config) { c.RequireAuth = true }, "api_key"},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }, "log_level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			cfg.StorageRoot = "/srv/maps"
			tt.mutate(&cfg)

			err := cfg.Validate()
			if !apperr.Is(err, apperr.KindValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
			found := false
			for _, fe := range apperr.ToBody(err).ValidationErrors {
				if fe.Field == tt.field {
					found = true
				}
			}
			if !found {
				t.Errorf("expected field error for %q, got %+v", tt.field, apperr.ToBody(err).ValidationErrors)
			}
		})
	}
}
