package config

import (
	"bytes"
	stdErrors "errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/iced-rs/mdbook-iced/internal/foundation/errors"
	"github.com/iced-rs/mdbook-iced/internal/foundation/normalization"
	"github.com/iced-rs/mdbook-iced/internal/markup"
)

// DefaultSettingsFile is looked up in the book root when no path is given.
const DefaultSettingsFile = "iced.yaml"

// Defaults for tool settings.
const (
	DefaultCargo              = "cargo"
	DefaultWasmBindgen        = "wasm-bindgen"
	DefaultTarget             = "wasm32-unknown-unknown"
	DefaultLanguage           = "rust"
	DefaultMarker             = "iced"
	DefaultHeight             = "200px"
	DefaultReleaseConcurrency = 4
	DefaultLedgerFile         = "ledger.db"
)

// EnvLogLevel overrides the configured log level.
const EnvLogLevel = "MDBOOK_ICED_LOG_LEVEL"

// Settings are the tool-level options shared by all books built on a machine.
type Settings struct {
	Cargo          string        `yaml:"cargo"`
	WasmBindgen    string        `yaml:"wasm_bindgen"`
	Target         string        `yaml:"target"`
	CompileTimeout time.Duration `yaml:"compile_timeout"`
	Language       string        `yaml:"language"`
	Marker         string        `yaml:"marker"`
	DefaultHeight  string        `yaml:"default_height"`
	MetricsFile    string        `yaml:"metrics_file"`
	// Ledger is the SQLite run ledger path. Nil selects the default location
	// inside the build workspace; an empty string disables the ledger.
	Ledger             *string `yaml:"ledger"`
	ReleaseConcurrency int     `yaml:"release_concurrency"`
	LogLevel           string  `yaml:"log_level"`
}

var logLevels = normalization.NewNormalizer(map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}, slog.LevelInfo)

// DefaultSettings returns settings with every default applied.
func DefaultSettings() *Settings {
	s := &Settings{}
	s.applyDefaults()
	return s
}

// LoadSettings reads the settings file at path. A missing file yields the
// defaults unless required is set. Environment files next to the settings
// file are loaded first so ${VAR} references can use them.
func LoadSettings(path string, required bool) (*Settings, error) {
	LoadEnvFiles(filepath.Dir(path))

	data, err := os.ReadFile(path) // #nosec G304 -- settings path is user-provided by design of the CLI
	if err != nil {
		if os.IsNotExist(err) && !required {
			slog.Debug("No settings file, using defaults", slog.String("path", path))
			return DefaultSettings(), nil
		}
		return nil, errors.WrapError(err, errors.CategoryConfig, "failed to read settings file").
			Fatal().
			WithContext("path", path).
			Build()
	}

	return ParseSettings(data)
}

// ParseSettings decodes YAML settings after expanding environment variables.
func ParseSettings(data []byte) (*Settings, error) {
	expanded := os.ExpandEnv(string(data))

	var s Settings
	dec := yaml.NewDecoder(bytes.NewReader([]byte(expanded)))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil && !stdErrors.Is(err, io.EOF) {
		return nil, errors.WrapError(err, errors.CategoryConfig, "failed to parse settings").
			Fatal().
			UserAction().
			Build()
	}

	s.applyDefaults()
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// LoadEnvFiles loads .env and .env.local from dir. Variables already present
// in the process environment are never overridden.
func LoadEnvFiles(dir string) {
	for _, name := range []string{".env", ".env.local"} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			slog.Warn("Failed to load environment file", slog.String("path", path), slog.String("error", err.Error()))
			continue
		}
		slog.Debug("Loaded environment variables", slog.String("path", path))
	}
}

func (s *Settings) applyDefaults() {
	if s.Cargo == "" {
		s.Cargo = DefaultCargo
	}
	if s.WasmBindgen == "" {
		s.WasmBindgen = DefaultWasmBindgen
	}
	if s.Target == "" {
		s.Target = DefaultTarget
	}
	if s.Language == "" {
		s.Language = DefaultLanguage
	}
	if s.Marker == "" {
		s.Marker = DefaultMarker
	}
	if s.DefaultHeight == "" {
		s.DefaultHeight = DefaultHeight
	}
	if s.ReleaseConcurrency == 0 {
		s.ReleaseConcurrency = DefaultReleaseConcurrency
	}
}

// Validate checks value ranges after defaults have been applied.
func (s *Settings) Validate() error {
	if s.CompileTimeout < 0 {
		return errors.ConfigError("compile_timeout must not be negative").
			WithContext("compile_timeout", s.CompileTimeout.String()).
			Build()
	}
	if !markup.ValidHeight(s.DefaultHeight) {
		return errors.ConfigError("default_height must be a CSS length such as 200px or 50vh").
			WithContext("key", "default_height").
			WithContext("default_height", s.DefaultHeight).
			Build()
	}
	if s.ReleaseConcurrency < 0 {
		return errors.ConfigError("release_concurrency must not be negative").
			WithContext("release_concurrency", s.ReleaseConcurrency).
			Build()
	}
	if _, err := logLevels.NormalizeWithError(s.LogLevel); err != nil {
		return errors.WrapError(err, errors.CategoryConfig, "invalid log_level").
			Fatal().
			UserAction().
			Build()
	}
	return nil
}

// LedgerPath resolves the ledger location for a workspace. The second result
// is false when the ledger is disabled.
func (s *Settings) LedgerPath(workspaceDir string) (string, bool) {
	if s.Ledger == nil {
		return filepath.Join(workspaceDir, DefaultLedgerFile), true
	}
	if *s.Ledger == "" {
		return "", false
	}
	return *s.Ledger, true
}

// Level resolves the effective log level. verbose forces debug; otherwise the
// environment variable wins over the settings value.
func (s *Settings) Level(verbose bool) slog.Level {
	if verbose {
		return slog.LevelDebug
	}
	return ResolveLogLevel(s.LogLevel)
}

// ResolveLogLevel maps a configured level name to slog, letting
// MDBOOK_ICED_LOG_LEVEL take precedence when set.
func ResolveLogLevel(configured string) slog.Level {
	if env := os.Getenv(EnvLogLevel); env != "" {
		return logLevels.Normalize(env)
	}
	return logLevels.Normalize(configured)
}
