package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// FileName is the config file looked up in the project directory.
const FileName = "faturas.yaml"

// Storage backends.
const (
	BackendFile     = "file"
	BackendPostgres = "postgres"
	BackendSupabase = "supabase"
)

// Environment variables that override the file.
const (
	EnvBackend     = "FATURAS_BACKEND"
	EnvDatabaseURL = "DATABASE_URL"
	EnvSupabaseURL = "SUPABASE_URL"
	EnvSupabaseKey = "SUPABASE_KEY"
)

// Config represents the top-level faturas.yaml configuration.
type Config struct {
	Storage StorageConfig `yaml:"storage"`
	Import  ImportConfig  `yaml:"import"`
	Server  ServerConfig  `yaml:"server"`
	Git     GitConfig     `yaml:"git"`
	Log     LogConfig     `yaml:"log"`
}

// StorageConfig selects and configures the storage backend.
// Secrets are usually left empty here and supplied through the environment.
type StorageConfig struct {
	Backend        string `yaml:"backend"`
	DataDir        string `yaml:"data_dir"`
	DatabaseURL    string `yaml:"database_url,omitempty"`
	SupabaseURL    string `yaml:"supabase_url,omitempty"`
	SupabaseKey    string `yaml:"supabase_key,omitempty"`
	SupabaseSchema string `yaml:"supabase_schema,omitempty"`
}

// ImportConfig controls directory imports.
type ImportConfig struct {
	Dir string `yaml:"dir"`
}

// ServerConfig controls the HTTP API.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// GitConfig controls git integration for the file backend.
type GitConfig struct {
	AutoCommit  bool   `yaml:"auto_commit"`
	AuthorName  string `yaml:"author_name"`
	AuthorEmail string `yaml:"author_email"`
}

// LogConfig controls logging.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "console" or "json"
}

// Load reads a faturas.yaml file from disk.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &cfg, nil
}

// Save writes a Config to a YAML file.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Default returns a Config for a new project using the file backend.
func Default() *Config {
	return &Config{
		Storage: StorageConfig{
			Backend: BackendFile,
			DataDir: "data",
		},
		Import: ImportConfig{
			Dir: "import",
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
		Git: GitConfig{
			AutoCommit:  false,
			AuthorName:  "Faturas Importer",
			AuthorEmail: "importer@faturas.local",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// ApplyEnv loads dotenvPath when it exists, without overriding variables
// already set, then lets the environment override backend and secrets.
func (c *Config) ApplyEnv(dotenvPath string) error {
	if dotenvPath != "" {
		if _, err := os.Stat(dotenvPath); err == nil {
			if err := godotenv.Load(dotenvPath); err != nil {
				return fmt.Errorf("loading %s: %w", dotenvPath, err)
			}
		} else if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("checking %s: %w", dotenvPath, err)
		}
	}

	c.Storage.Backend = getEnv(EnvBackend, c.Storage.Backend)
	c.Storage.DatabaseURL = getEnv(EnvDatabaseURL, c.Storage.DatabaseURL)
	c.Storage.SupabaseURL = getEnv(EnvSupabaseURL, c.Storage.SupabaseURL)
	c.Storage.SupabaseKey = getEnv(EnvSupabaseKey, c.Storage.SupabaseKey)
	return nil
}

// Validate checks that the selected backend has what it needs.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case "", BackendFile:
		return nil
	case BackendPostgres:
		if c.Storage.DatabaseURL == "" {
			return fmt.Errorf("storage backend %q needs %s", BackendPostgres, EnvDatabaseURL)
		}
	case BackendSupabase:
		if c.Storage.SupabaseURL == "" || c.Storage.SupabaseKey == "" {
			return fmt.Errorf("storage backend %q needs %s and %s", BackendSupabase, EnvSupabaseURL, EnvSupabaseKey)
		}
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	return nil
}

// Resolve returns p made absolute against the project root.
func Resolve(root, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(root, p)
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}
