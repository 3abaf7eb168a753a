// Package config provides configuration loading and structs for the Annai
// server. Credentials are never read from the config file; they come from
// the environment (optionally via a .env file).
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hyperjump/annai/internal/ranking"
)

// Config holds all configuration for the application.
type Config struct {
	Debug    bool           `yaml:"debug"`
	LogFile  string         `yaml:"log_file"`
	Server   ServerConfig   `yaml:"server"`
	Sessions SessionsConfig `yaml:"sessions"`
	Corpus   CorpusConfig   `yaml:"corpus"`
	Answer   AnswerConfig   `yaml:"answer"`
	UsageLog UsageLogConfig `yaml:"usage_log"`
	Ranking  ranking.Config `yaml:"ranking"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// SessionsConfig holds session persistence settings.
type SessionsConfig struct {
	FilePath  string   `yaml:"file_path"`
	SaveDelay Duration `yaml:"save_delay"`
	TTL       Duration `yaml:"ttl"`
}

// CorpusConfig selects and configures the SOP document source.
type CorpusConfig struct {
	// Source is "dir" or "coda".
	Source string     `yaml:"source"`
	Dir    DirConfig  `yaml:"dir"`
	Coda   CodaConfig `yaml:"coda"`
}

// DirConfig holds settings for the local-directory document source.
type DirConfig struct {
	Path       string   `yaml:"path"`
	Extensions []string `yaml:"extensions"`
}

// CodaConfig holds settings for the Coda table document source. The API
// token is read from CODA_API_TOKEN, not from here.
type CodaConfig struct {
	DocID   string `yaml:"doc_id"`
	TableID string `yaml:"table_id"`
	BaseURL string `yaml:"base_url"`
}

// AnswerConfig holds answer-generation settings. The API key is read from
// OPENAI_API_KEY, not from here.
type AnswerConfig struct {
	Model       string  `yaml:"model"`
	BaseURL     string  `yaml:"base_url"`
	Temperature float64 `yaml:"temperature"`
}

// UsageLogConfig holds the usage-log database location.
type UsageLogConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// Duration is a time.Duration that unmarshals from YAML strings like
// "500ms" or "1h".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Credentials are the secrets the external collaborators need. All come
// from the process environment.
type Credentials struct {
	SlackBotToken      string
	SlackSigningSecret string
	OpenAIAPIKey       string
	CodaAPIToken       string
}

// CredentialsFromEnv reads the credential environment variables.
func CredentialsFromEnv() Credentials {
	return Credentials{
		SlackBotToken:      os.Getenv("SLACK_BOT_TOKEN"),
		SlackSigningSecret: os.Getenv("SLACK_SIGNING_SECRET"),
		OpenAIAPIKey:       os.Getenv("OPENAI_API_KEY"),
		CodaAPIToken:       os.Getenv("CODA_API_TOKEN"),
	}
}

// Load reads and parses the config file at path, expands paths, and applies
// defaults. Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Sessions.FilePath = expandPath(cfg.Sessions.FilePath, configDir)
	cfg.UsageLog.DatabasePath = expandPath(cfg.UsageLog.DatabasePath, configDir)
	if cfg.Corpus.Dir.Path != "" {
		cfg.Corpus.Dir.Path = expandPath(cfg.Corpus.Dir.Path, configDir)
	}
	if cfg.LogFile != "" {
		cfg.LogFile = expandPath(cfg.LogFile, configDir)
	}

	return &cfg, nil
}

// Validate rejects configurations the server cannot start with.
func (c *Config) Validate() error {
	switch c.Corpus.Source {
	case "dir":
		if c.Corpus.Dir.Path == "" {
			return fmt.Errorf("corpus.dir.path is required for the dir source")
		}
	case "coda":
		if c.Corpus.Coda.DocID == "" || c.Corpus.Coda.TableID == "" {
			return fmt.Errorf("corpus.coda.doc_id and corpus.coda.table_id are required for the coda source")
		}
	default:
		return fmt.Errorf("unknown corpus source %q (want \"dir\" or \"coda\")", c.Corpus.Source)
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are
// relative to configDir; other relative paths are relative to the home
// directory.
func expandPath(path string, configDir string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
