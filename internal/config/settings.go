package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Auth type constants
const (
	AuthTypeNone   = "none"
	AuthTypeBasic  = "basic"
	AuthTypeAPIKey = "apikey"
)

// EnvPrefix is the prefix of every environment variable read by LoadSettings.
const EnvPrefix = "RELIC_CORPUS"

// AuthSettings configuration for authentication
type AuthSettings struct {
	Type    string            `mapstructure:"type"` // AuthTypeNone, AuthTypeBasic, or AuthTypeAPIKey
	Basic   BasicAuthSettings `mapstructure:"basic"`
	APIKeys []string          `mapstructure:"api_keys"`
}

// BasicAuthSettings configuration for basic auth
type BasicAuthSettings struct {
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// CorpusSettings configuration for building and serving the symbol corpus
type CorpusSettings struct {
	InputDir     string        `mapstructure:"input_dir"`     // directory scanned for fragment archives
	BaseDir      string        `mapstructure:"base_dir"`      // manifest, lock, spill store and index
	Workers      int           `mapstructure:"workers"`       // 0 means one per CPU
	SpillToDisk  bool          `mapstructure:"spill_to_disk"` // buffer fragments in BadgerDB
	MaxResults   int           `mapstructure:"max_results"`
	LockTimeout  time.Duration `mapstructure:"lock_timeout"`
	PersistIndex bool          `mapstructure:"persist_index"`
}

// Settings application settings
type Settings struct {
	Transport string         `mapstructure:"transport"`
	Host      string         `mapstructure:"host"`
	Port      int            `mapstructure:"port"`
	Auth      AuthSettings   `mapstructure:"auth"`
	Corpus    CorpusSettings `mapstructure:"corpus"`
}

// LoadSettings loads settings from environment variables and optional .env file
func LoadSettings() (*Settings, error) {
	return LoadSettingsWithFlags(nil)
}

// LoadSettingsWithFlags loads settings with optional CLI flag overrides.
// Priority: CLI flags > environment variables > .env file > defaults.
// If flags is nil, only env vars and defaults are used.
func LoadSettingsWithFlags(flags *pflag.FlagSet) (*Settings, error) {
	v := viper.New()

	v.SetDefault("transport", "stdio")
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("port", 8080)
	v.SetDefault("auth.type", AuthTypeNone)

	v.SetDefault("corpus.input_dir", ".")
	v.SetDefault("corpus.base_dir", defaultCorpusBaseDir())
	v.SetDefault("corpus.workers", 0)
	v.SetDefault("corpus.spill_to_disk", false)
	v.SetDefault("corpus.max_results", 20)
	v.SetDefault("corpus.lock_timeout", 5*time.Minute)
	v.SetDefault("corpus.persist_index", false)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Nested keys are not picked up by AutomaticEnv on Unmarshal
	bindings := map[string]string{
		"auth.type":            "AUTH_TYPE",
		"auth.basic.username":  "AUTH_BASIC_USERNAME",
		"auth.basic.password":  "AUTH_BASIC_PASSWORD",
		"auth.api_keys":        "AUTH_API_KEYS",
		"corpus.input_dir":     "CORPUS_INPUT_DIR",
		"corpus.base_dir":      "CORPUS_BASE_DIR",
		"corpus.workers":       "CORPUS_WORKERS",
		"corpus.spill_to_disk": "CORPUS_SPILL_TO_DISK",
		"corpus.max_results":   "CORPUS_MAX_RESULTS",
		"corpus.lock_timeout":  "CORPUS_LOCK_TIMEOUT",
		"corpus.persist_index": "CORPUS_PERSIST_INDEX",
	}
	for key, env := range bindings {
		_ = v.BindEnv(key, EnvPrefix+"_"+env)
	}

	if flags != nil {
		flagBindings := map[string]string{
			"transport":            "transport",
			"host":                 "host",
			"port":                 "port",
			"auth.type":            "auth-type",
			"auth.basic.username":  "auth-basic-username",
			"auth.basic.password":  "auth-basic-password",
			"auth.api_keys":        "auth-api-keys",
			"corpus.input_dir":     "input-dir",
			"corpus.base_dir":      "base-dir",
			"corpus.workers":       "workers",
			"corpus.spill_to_disk": "spill-to-disk",
			"corpus.max_results":   "max-results",
			"corpus.lock_timeout":  "lock-timeout",
			"corpus.persist_index": "persist-index",
		}
		for key, name := range flagBindings {
			if f := flags.Lookup(name); f != nil {
				_ = v.BindPFlag(key, f)
			}
		}
	}

	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // Ignore error if .env doesn't exist

	var settings Settings
	if err := v.Unmarshal(&settings); err != nil {
		return nil, err
	}

	// Handle explicit parsing of API keys if provided via env var as comma-separated string
	apiKeysEnv := os.Getenv(EnvPrefix + "_AUTH_API_KEYS")
	if apiKeysEnv != "" {
		if len(settings.Auth.APIKeys) == 0 || (len(settings.Auth.APIKeys) == 1 && strings.Contains(settings.Auth.APIKeys[0], ",")) {
			settings.Auth.APIKeys = strings.Split(apiKeysEnv, ",")
		}
	}

	for i := range settings.Auth.APIKeys {
		settings.Auth.APIKeys[i] = strings.TrimSpace(settings.Auth.APIKeys[i])
	}
	settings.Auth.APIKeys = filterEmptyStrings(settings.Auth.APIKeys)

	settings.Corpus.InputDir = expandHomeDir(settings.Corpus.InputDir)
	settings.Corpus.BaseDir = expandHomeDir(settings.Corpus.BaseDir)

	return &settings, nil
}

// defaultCorpusBaseDir returns the default working directory for corpus builds
func defaultCorpusBaseDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".relic-corpus"
	}
	return filepath.Join(home, ".relic-corpus")
}

// expandHomeDir expands ~ to the user's home directory
func expandHomeDir(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	if path == "~" {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return home
	}
	return path
}

// filterEmptyStrings removes empty strings from a slice
func filterEmptyStrings(s []string) []string {
	var result []string
	for _, str := range s {
		if str != "" {
			result = append(result, str)
		}
	}
	return result
}

// ValidateSettings checks for conflicting configurations.
// Returns an error if the settings contain mutually exclusive or incomplete auth config.
func ValidateSettings(s *Settings) error {
	switch s.Transport {
	case "stdio", "sse":
		// valid
	default:
		return errors.New("transport must be 'stdio' or 'sse', got: " + s.Transport)
	}

	hasBasicCreds := s.Auth.Basic.Username != "" || s.Auth.Basic.Password != ""
	hasAPIKeys := len(s.Auth.APIKeys) > 0

	switch s.Auth.Type {
	case AuthTypeNone, "":
		if hasBasicCreds || hasAPIKeys {
			return errors.New("auth-type 'none' is incompatible with auth credentials")
		}
	case AuthTypeBasic:
		if hasAPIKeys {
			return errors.New("auth-type 'basic' is mutually exclusive with auth-api-keys")
		}
		if s.Auth.Basic.Username == "" || s.Auth.Basic.Password == "" {
			return errors.New("auth-type 'basic' requires both username and password")
		}
	case AuthTypeAPIKey:
		if hasBasicCreds {
			return errors.New("auth-type 'apikey' is mutually exclusive with basic auth credentials")
		}
		if !hasAPIKeys {
			return errors.New("auth-type 'apikey' requires at least one API key")
		}
	default:
		return errors.New("unknown auth-type: " + s.Auth.Type)
	}

	return ValidateCorpusSettings(&s.Corpus)
}

// ValidateCorpusSettings validates the corpus configuration
func ValidateCorpusSettings(c *CorpusSettings) error {
	if c.InputDir == "" {
		return errors.New("input-dir cannot be empty")
	}
	if c.BaseDir == "" {
		return errors.New("base-dir cannot be empty")
	}
	if c.Workers < 0 {
		return errors.New("workers cannot be negative")
	}
	if c.MaxResults <= 0 {
		return errors.New("max-results must be positive")
	}
	if c.LockTimeout <= 0 {
		return errors.New("lock-timeout must be positive")
	}
	return nil
}
