// Package config loads the deptrack project configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/phobologic/deptrack/internal/model"
)

// FileName is the base name of the project config file. Any extension viper
// understands is accepted (.yaml, .yml, .json, .toml).
const FileName = ".deptrack"

// DefaultMaxFileSize is the size above which files are skipped.
const DefaultMaxFileSize = 1_000_000 // 1 MB

// DefaultTrustedPackages are libraries that manage their own deprecations.
var DefaultTrustedPackages = []string{
	"react",
	"react-dom",
	"rxjs",
	"lodash",
	"@angular/core",
	"@angular/common",
	"vue",
	"express",
	"jquery",
	"moment",
	"typescript",
	"@types/node",
}

// DefaultIncludePatterns select every supported source file.
var DefaultIncludePatterns = []string{
	"**/*.ts",
	"**/*.tsx",
	"**/*.mts",
	"**/*.cts",
	"**/*.js",
	"**/*.jsx",
	"**/*.mjs",
	"**/*.cjs",
}

// DefaultExcludePatterns skip generated and vendored output.
var DefaultExcludePatterns = []string{
	"**/node_modules/**",
	"**/dist/**",
	"**/out/**",
	"**/coverage/**",
	"**/*.min.js",
}

// Config is the immutable per-scan configuration snapshot.
type Config struct {
	TrustedPackages            []string       `json:"trustedPackages" yaml:"trustedPackages" mapstructure:"trustedPackages"`
	IncludePatterns            []string       `json:"includePatterns" yaml:"includePatterns" mapstructure:"includePatterns"`
	ExcludePatterns            []string       `json:"excludePatterns" yaml:"excludePatterns" mapstructure:"excludePatterns"`
	IgnoreDeprecatedInComments bool           `json:"ignoreDeprecatedInComments" yaml:"ignoreDeprecatedInComments" mapstructure:"ignoreDeprecatedInComments"`
	DefaultSeverity            model.Severity `json:"defaultSeverity" yaml:"defaultSeverity" mapstructure:"defaultSeverity"`
	Workers                    int            `json:"workers" yaml:"workers" mapstructure:"workers"`
	MaxFileSize                int            `json:"maxFileSize" yaml:"maxFileSize" mapstructure:"maxFileSize"`
	Logging                    LoggingConfig  `json:"logging" yaml:"logging" mapstructure:"logging"`
}

// LoggingConfig controls the CLI logger.
type LoggingConfig struct {
	Level string `json:"level" yaml:"level" mapstructure:"level"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		TrustedPackages:            append([]string(nil), DefaultTrustedPackages...),
		IncludePatterns:            append([]string(nil), DefaultIncludePatterns...),
		ExcludePatterns:            append([]string(nil), DefaultExcludePatterns...),
		IgnoreDeprecatedInComments: true,
		DefaultSeverity:            model.SeverityWarning,
		MaxFileSize:                DefaultMaxFileSize,
		Logging:                    LoggingConfig{Level: "warn"},
	}
}

// Load reads the config file in root, if any, layered over the defaults and
// under DEPTRACK_* environment variables.
func Load(root string) (Config, error) {
	def := Default()

	v := viper.New()
	v.SetDefault("trustedPackages", def.TrustedPackages)
	v.SetDefault("includePatterns", def.IncludePatterns)
	v.SetDefault("excludePatterns", def.ExcludePatterns)
	v.SetDefault("ignoreDeprecatedInComments", def.IgnoreDeprecatedInComments)
	v.SetDefault("defaultSeverity", string(def.DefaultSeverity))
	v.SetDefault("workers", def.Workers)
	v.SetDefault("maxFileSize", def.MaxFileSize)
	v.SetDefault("logging.level", def.Logging.Level)

	v.SetConfigName(FileName)
	v.AddConfigPath(root)
	v.SetEnvPrefix("DEPTRACK")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks field values.
func (c Config) Validate() error {
	if _, err := model.ParseSeverity(string(c.DefaultSeverity)); err != nil {
		return &Error{Field: "defaultSeverity", Message: err.Error()}
	}
	if c.Workers < 0 {
		return &Error{Field: "workers", Message: "must not be negative"}
	}
	if c.MaxFileSize < 0 {
		return &Error{Field: "maxFileSize", Message: "must not be negative"}
	}
	return nil
}

const header = `# deptrack configuration.
# Patterns are globs over root-relative slash paths: * stays within a path
# segment, ** spans segments, ? matches one character.
`

// Write saves c as YAML to root/.deptrack.yaml. An existing file is only
// replaced when force is set.
func Write(root string, c Config, force bool) (string, error) {
	path := filepath.Join(root, FileName+".yaml")
	if !force {
		if _, err := os.Stat(path); err == nil {
			return path, fmt.Errorf("%s already exists", path)
		}
	}
	data, err := Encode(c)
	if err != nil {
		return path, err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return path, fmt.Errorf("writing %s: %w", path, err)
	}
	return path, nil
}

// Encode renders c as a commented YAML document.
func Encode(c Config) ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("encoding config: %w", err)
	}
	return append([]byte(header), data...), nil
}

// Error is a config validation failure.
type Error struct {
	Field   string
	Message string
}

func (e *Error) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}
