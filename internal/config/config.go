package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gopkg.in/yaml.v3"

	"github.com/dgallion1/mindmapper/internal/apperr"
	"github.com/dgallion1/mindmapper/internal/parser"
)

// FileEnv names the optional YAML file read before the environment.
const FileEnv = "MINDMAP_CONFIG"

const (
	EngineBuiltin = "builtin"
	EngineCommand = "command"
)

type Config struct {
	Port string `yaml:"port" json:"port"`

	// Storage
	StorageRoot string `yaml:"storage_root" json:"storage_root"`

	// Auth
	APIKey      string `yaml:"api_key" json:"api_key"`
	RequireAuth bool   `yaml:"require_auth" json:"require_auth"`

	// Extraction limits
	MaxInlineBytes int64 `yaml:"max_inline_bytes" json:"max_inline_bytes"`
	MaxFileBytes   int64 `yaml:"max_file_bytes" json:"max_file_bytes"`
	MaxNodes       int   `yaml:"max_nodes" json:"max_nodes"`
	MaxDepth       int   `yaml:"max_depth" json:"max_depth"`

	// Rendering
	RenderEngine  string        `yaml:"render_engine" json:"render_engine"`
	RenderCommand string        `yaml:"render_command" json:"render_command"`
	RenderTimeout time.Duration `yaml:"render_timeout" json:"render_timeout"`

	// Operation history
	HistoryTTL time.Duration `yaml:"history_ttl" json:"history_ttl"`

	LogLevel string `yaml:"log_level" json:"log_level"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	root := "/var/lib/mindmapper/agents"
	if home, err := os.UserHomeDir(); err == nil {
		root = filepath.Join(home, ".mindmapper", "agents")
	}
	return Config{
		Port:           "8090",
		StorageRoot:    root,
		MaxInlineBytes: parser.DefaultMaxInlineBytes,
		MaxFileBytes:   parser.DefaultMaxFileBytes,
		MaxNodes:       parser.DefaultMaxNodes,
		MaxDepth:       parser.DefaultMaxDepth,
		RenderEngine:   EngineBuiltin,
		RenderTimeout:  30 * time.Second,
		HistoryTTL:     1 * time.Hour,
		LogLevel:       "info",
	}
}

// Load reads the optional YAML file named by MINDMAP_CONFIG, then applies
// environment overrides on top.
func Load() (Config, error) {
	cfg := Defaults()
	if path := os.Getenv(FileEnv); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return Config{}, err
		}
	}

	cfg = Config{
		Port: envOr("PORT", cfg.Port),

		StorageRoot: envOr("STORAGE_ROOT", cfg.StorageRoot),

		APIKey:      envOr("API_KEY", cfg.APIKey),
		RequireAuth: envBool("REQUIRE_AUTH", cfg.RequireAuth),

		MaxInlineBytes: envInt64("MAX_INLINE_BYTES", cfg.MaxInlineBytes),
		MaxFileBytes:   envInt64("MAX_FILE_BYTES", cfg.MaxFileBytes),
		MaxNodes:       envInt("MAX_NODES", cfg.MaxNodes),
		MaxDepth:       envInt("MAX_DEPTH", cfg.MaxDepth),

		RenderEngine:  strings.ToLower(envOr("RENDER_ENGINE", cfg.RenderEngine)),
		RenderCommand: envOr("RENDER_COMMAND", cfg.RenderCommand),
		RenderTimeout: envDuration("RENDER_TIMEOUT", cfg.RenderTimeout),

		HistoryTTL: envDuration("HISTORY_TTL", cfg.HistoryTTL),

		LogLevel: strings.ToLower(envOr("LOG_LEVEL", cfg.LogLevel)),
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return apperr.FileSystem(err, "CONFIG_READ_FAILED", "read config file "+path)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return apperr.Validation("INVALID_CONFIG", fmt.Sprintf("parse config file %s: %v", path, err))
	}
	return nil
}

func (c Config) Validate() error {
	err := validation.ValidateStruct(&c,
		validation.Field(&c.Port, validation.Required),
		validation.Field(&c.StorageRoot, validation.Required, validation.By(absolutePath)),
		validation.Field(&c.MaxInlineBytes, validation.Required, validation.Min(int64(1))),
		validation.Field(&c.MaxFileBytes, validation.Required, validation.Min(int64(1))),
		validation.Field(&c.MaxNodes, validation.Required, validation.Min(1)),
		validation.Field(&c.MaxDepth, validation.Required, validation.Min(1)),
		validation.Field(&c.RenderEngine, validation.Required, validation.In(EngineBuiltin, EngineCommand)),
		validation.Field(&c.RenderCommand, validation.When(c.RenderEngine == EngineCommand, validation.Required)),
		validation.Field(&c.RenderTimeout, validation.Required, validation.Min(time.Millisecond)),
		validation.Field(&c.HistoryTTL, validation.Required, validation.Min(time.Second)),
		validation.Field(&c.LogLevel, validation.In("debug", "info", "warn", "error")),
		validation.Field(&c.APIKey, validation.When(c.RequireAuth, validation.Required)),
	)
	if err != nil {
		return apperr.FromValidation(err, "INVALID_CONFIG", "invalid configuration")
	}
	return nil
}

// Limits returns the extraction ceilings.
func (c Config) Limits() parser.Limits {
	return parser.Limits{
		MaxInlineBytes: c.MaxInlineBytes,
		MaxFileBytes:   c.MaxFileBytes,
		MaxNodes:       c.MaxNodes,
		MaxDepth:       c.MaxDepth,
	}
}

func absolutePath(value interface{}) error {
	s, _ := value.(string)
	if !filepath.IsAbs(s) {
		return validation.NewError("validation_not_absolute", "must be an absolute path")
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
