// Package config holds the settings shared by the embedding layer and the
// sqrat command.
//
// Settings live in sqrat.yaml (or sqrat.yml / sqrat.toml) next to the host
// program. Every field is optional; omitted fields take the defaults from
// DefaultSettings.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"
)

// Settings is the top-level settings document.
type Settings struct {
	VM      VMSettings      `yaml:"vm" toml:"vm"`
	Log     LogSettings     `yaml:"log" toml:"log"`
	Catalog CatalogSettings `yaml:"catalog" toml:"catalog"`
	REPL    REPLSettings    `yaml:"repl" toml:"repl"`
}

// VMSettings tunes overload binding and dispatch.
type VMSettings struct {
	// MaxArity is the largest number of parameters an overload may declare.
	MaxArity int `yaml:"max_arity,omitempty" toml:"max_arity,omitempty"`

	// ErrorHandling propagates errors returned by native entry points to the
	// script. When false they are logged and the call yields no value.
	ErrorHandling *bool `yaml:"error_handling,omitempty" toml:"error_handling,omitempty"`
}

// LogSettings selects the logger verbosity.
type LogSettings struct {
	Level string `yaml:"level,omitempty" toml:"level,omitempty"`
}

// CatalogSettings configures the SQLite overload catalog.
type CatalogSettings struct {
	Path string `yaml:"path,omitempty" toml:"path,omitempty"`
}

// REPLSettings configures the interactive prompt.
type REPLSettings struct {
	History string `yaml:"history,omitempty" toml:"history,omitempty"`
}

// DefaultSettings returns the settings used when no file is present.
func DefaultSettings() *Settings {
	s := &Settings{}
	s.setDefaults()
	return s
}

// RaiseErrors reports whether entry point errors reach the script.
func (v VMSettings) RaiseErrors() bool {
	if v.ErrorHandling == nil {
		return DefaultErrorHandles
	}
	return *v.ErrorHandling
}

// LoadSettings reads and parses a settings file.
func LoadSettings(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading settings %s: %w", path, err)
	}
	return ParseSettings(data, path)
}

// ParseSettings parses settings content. The format is chosen by the
// extension of path (.toml for TOML, YAML otherwise); path is also used in
// error messages.
func ParseSettings(data []byte, path string) (*Settings, error) {
	var s Settings
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if err := toml.Unmarshal(data, &s); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	} else {
		if err := yaml.Unmarshal(data, &s); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	}
	if err := s.validate(path); err != nil {
		return nil, err
	}
	s.setDefaults()
	return &s, nil
}

// FindSettings searches for a settings file starting from dir and walking up
// to parent directories. It returns an empty path and nil error when none is
// found.
func FindSettings(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving directory: %w", err)
	}

	for {
		for _, name := range SettingsFileNames {
			candidate := filepath.Join(dir, name)
			if _, err := os.Stat(candidate); err == nil {
				return candidate, nil
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil
		}
		dir = parent
	}
}

// Discover loads the nearest settings file above dir, or the defaults.
func Discover(dir string) (*Settings, string, error) {
	path, err := FindSettings(dir)
	if err != nil {
		return nil, "", err
	}
	if path == "" {
		return DefaultSettings(), "", nil
	}
	s, err := LoadSettings(path)
	if err != nil {
		return nil, path, err
	}
	return s, path, nil
}

func (s *Settings) validate(path string) error {
	var errs error
	if s.VM.MaxArity < 0 || s.VM.MaxArity > MaxArityLimit {
		errs = multierr.Append(errs, fmt.Errorf("%s: vm.max_arity must be between 1 and %d, got %d",
			path, MaxArityLimit, s.VM.MaxArity))
	}
	if s.Log.Level != "" && !slices.Contains(LogLevels, strings.ToLower(s.Log.Level)) {
		errs = multierr.Append(errs, fmt.Errorf("%s: log.level %q is not one of %s",
			path, s.Log.Level, strings.Join(LogLevels, ", ")))
	}
	if strings.TrimSpace(s.Catalog.Path) != s.Catalog.Path {
		errs = multierr.Append(errs, fmt.Errorf("%s: catalog.path has surrounding whitespace", path))
	}
	return errs
}

func (s *Settings) setDefaults() {
	if s.VM.MaxArity == 0 {
		s.VM.MaxArity = DefaultMaxArity
	}
	if s.Log.Level == "" {
		s.Log.Level = DefaultLogLevel
	}
	s.Log.Level = strings.ToLower(s.Log.Level)
	if s.Catalog.Path == "" {
		s.Catalog.Path = DefaultCatalogPath
	}
	if s.REPL.History == "" {
		s.REPL.History = DefaultHistoryFile
	}
}
