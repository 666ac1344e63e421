// Package config provides configuration for the jsontab commands.
//
// Values come from struct defaults, an optional YAML file, a .env file and
// environment variables, in increasing order of precedence, and are validated
// on load to fail fast on misconfiguration.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/reoring/jsontab"
	"github.com/reoring/jsontab/compress"
	"github.com/reoring/jsontab/metadata"
)

// Config holds all application configuration.
type Config struct {
	Logging LoggingConfig `yaml:"logging"`
	Convert ConvertConfig `yaml:"convert"`
	Server  ServerConfig  `yaml:"server"`
	Watch   WatchConfig   `yaml:"watch"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `yaml:"level" env:"JSONTAB_LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `yaml:"format" env:"JSONTAB_LOG_FORMAT" default:"text"`
}

// ConvertConfig holds conversion settings shared by every command.
type ConvertConfig struct {
	// Driver is the JSON token source name (default: the registered default)
	Driver string `yaml:"driver" env:"JSONTAB_DRIVER"`

	// Compression of artifacts: none, gzip, zstd, s2, lz4 (default: none)
	Compression string `yaml:"compression" env:"JSONTAB_COMPRESSION" default:"none"`

	// ExtendColumns keeps columns first seen after the first row
	ExtendColumns bool `yaml:"extendColumns" env:"JSONTAB_EXTEND_COLUMNS" default:"false"`

	// MaxDepth limits input nesting, 0 disables the check
	MaxDepth int `yaml:"maxDepth" env:"JSONTAB_MAX_DEPTH" default:"0"`

	// MaxBytes limits decoded input size, 0 disables the check
	MaxBytes int64 `yaml:"maxBytes" env:"JSONTAB_MAX_BYTES" default:"0"`

	// OnDuplicateKey is ignore, warn or error (default: ignore)
	OnDuplicateKey string `yaml:"onDuplicateKey" env:"JSONTAB_ON_DUPLICATE_KEY" default:"ignore"`

	// ArtifactPrefix prefixes artifact file names (default: jsontab)
	ArtifactPrefix string `yaml:"artifactPrefix" env:"JSONTAB_ARTIFACT_PREFIX" default:"jsontab"`

	// OutputDir receives artifacts (default: the system temp dir)
	OutputDir string `yaml:"outputDir" env:"JSONTAB_OUTPUT_DIR"`

	// Encoding is the input charset label (default: UTF-8)
	Encoding string `yaml:"encoding" env:"JSONTAB_ENCODING"`

	// SchemaFormat renders schema documents as json or yaml (default: json)
	SchemaFormat string `yaml:"schemaFormat" env:"JSONTAB_SCHEMA_FORMAT" default:"json"`

	// Language of error and warning messages: en or ja (default: en)
	Language string `yaml:"language" env:"JSONTAB_LANG" default:"en"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Addr is the listen address (default: :8080)
	Addr string `yaml:"addr" env:"JSONTAB_ADDR" default:":8080"`

	// Root confines the input paths and output directories named by requests.
	// Required by the serve command.
	Root string `yaml:"root" env:"JSONTAB_SERVER_ROOT"`

	// RequestTimeout is the middleware timeout for requests (default: 5m)
	RequestTimeout time.Duration `yaml:"requestTimeout" env:"JSONTAB_REQUEST_TIMEOUT" default:"5m"`

	// ShutdownTimeout bounds graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout" env:"JSONTAB_SHUTDOWN_TIMEOUT" default:"30s"`

	// MaxConcurrent is the number of conversions running at once (default: 4)
	MaxConcurrent int `yaml:"maxConcurrent" env:"JSONTAB_MAX_CONCURRENT" default:"4"`

	// MaxWait is how long a request waits for a conversion slot (default: 30s)
	MaxWait time.Duration `yaml:"maxWait" env:"JSONTAB_MAX_WAIT" default:"30s"`

	// MaxBodyBytes limits the request body (default: 1MiB)
	MaxBodyBytes int64 `yaml:"maxBodyBytes" env:"JSONTAB_MAX_BODY_BYTES" default:"1048576"`
}

// WatchConfig holds directory watcher settings.
type WatchConfig struct {
	// Dir is the watched directory
	Dir string `yaml:"dir" env:"JSONTAB_WATCH_DIR"`

	// Debounce is the quiet period after the last write event (default: 500ms)
	Debounce time.Duration `yaml:"debounce" env:"JSONTAB_WATCH_DEBOUNCE" default:"500ms"`
}

// Validate checks that the configuration is valid.
// Returns an error describing all validation failures.
func (c *Config) Validate() error {
	var errs []string

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, fmt.Sprintf("JSONTAB_LOG_LEVEL (%q) must be one of: debug, info, warn, error", c.Logging.Level))
	}
	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		errs = append(errs, fmt.Sprintf("JSONTAB_LOG_FORMAT (%q) must be one of: text, json", c.Logging.Format))
	}

	if _, err := c.Convert.Options(); err != nil {
		errs = append(errs, err.Error())
	}
	if _, err := metadata.ParseFormat(c.Convert.SchemaFormat); err != nil {
		errs = append(errs, fmt.Sprintf("JSONTAB_SCHEMA_FORMAT: %v", err))
	}

	if c.Server.MaxConcurrent <= 0 {
		errs = append(errs, "JSONTAB_MAX_CONCURRENT must be positive")
	}
	if c.Server.MaxWait <= 0 {
		errs = append(errs, "JSONTAB_MAX_WAIT must be positive")
	}
	if c.Server.ShutdownTimeout <= 0 {
		errs = append(errs, "JSONTAB_SHUTDOWN_TIMEOUT must be positive")
	}
	if c.Server.RequestTimeout < 0 {
		errs = append(errs, "JSONTAB_REQUEST_TIMEOUT must be non-negative")
	}
	if c.Server.MaxBodyBytes <= 0 {
		errs = append(errs, "JSONTAB_MAX_BODY_BYTES must be positive")
	}
	if c.Watch.Debounce < 0 {
		errs = append(errs, "JSONTAB_WATCH_DEBOUNCE must be non-negative")
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// Options projects the conversion settings onto jsontab.Options. The logger
// is left for the caller to set.
func (c ConvertConfig) Options() (jsontab.Options, error) {
	kind, err := compress.ParseKind(c.Compression)
	if err != nil {
		return jsontab.Options{}, fmt.Errorf("JSONTAB_COMPRESSION: %w", err)
	}
	dup, err := jsontab.ParseSeverity(c.OnDuplicateKey)
	if err != nil {
		return jsontab.Options{}, fmt.Errorf("JSONTAB_ON_DUPLICATE_KEY: %w", err)
	}
	if c.MaxDepth < 0 || c.MaxBytes < 0 {
		return jsontab.Options{}, fmt.Errorf("JSONTAB_MAX_DEPTH and JSONTAB_MAX_BYTES must be non-negative")
	}
	if c.Driver != "" {
		if _, ok := jsontab.LookupJSONDriver(c.Driver); !ok {
			return jsontab.Options{}, fmt.Errorf("JSONTAB_DRIVER (%q) must be one of: %s", c.Driver, strings.Join(jsontab.JSONDriverNames(), ", "))
		}
	}
	return jsontab.Options{
		Driver:         c.Driver,
		Compression:    kind,
		ExtendColumns:  c.ExtendColumns,
		MaxDepth:       c.MaxDepth,
		MaxBytes:       c.MaxBytes,
		OnDuplicateKey: dup,
		ArtifactPrefix: c.ArtifactPrefix,
	}, nil
}

// Input builds a conversion input for path using the configured output
// directory and encoding.
func (c ConvertConfig) Input(path string) jsontab.Input {
	return jsontab.Input{Path: path, OutputDir: c.OutputDir, Encoding: c.Encoding}
}

// String returns a compact representation of the config for logging.
func (c *Config) String() string {
	var b strings.Builder
	b.WriteString("Config{")
	fmt.Fprintf(&b, "Logging: {Level: %q, Format: %q}, ", c.Logging.Level, c.Logging.Format)
	fmt.Fprintf(&b, "Convert: {Driver: %q, Compression: %q, ExtendColumns: %v, OutputDir: %q}, ",
		c.Convert.Driver, c.Convert.Compression, c.Convert.ExtendColumns, c.Convert.OutputDir)
	fmt.Fprintf(&b, "Server: {Addr: %q, MaxConcurrent: %d}, ", c.Server.Addr, c.Server.MaxConcurrent)
	fmt.Fprintf(&b, "Watch: {Dir: %q, Debounce: %s}", c.Watch.Dir, c.Watch.Debounce)
	b.WriteString("}")
	return b.String()
}
