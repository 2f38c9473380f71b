package duplex

import (
	"fmt"
	"os"
	"strings"

	"github.com/hashicorp/go-multierror"
	"gopkg.in/yaml.v3"
)

// RuntimeMode distinguishes production from hot-reload-sensitive modes.
type RuntimeMode string

const (
	ModeProduction  RuntimeMode = "production"
	ModeDevelopment RuntimeMode = "development"
	ModeTest        RuntimeMode = "test"
)

// ExecutionContext names where the code runs. Config validation, connection
// construction and the shutdown coordinator only act in the server context;
// anywhere else the facade must not touch the database at all.
type ExecutionContext string

const (
	ContextServer ExecutionContext = "server"
	ContextClient ExecutionContext = "client"
)

// Environment variables consumed by LoadFromEnv. They win over values from
// a config file.
const (
	EnvMainURL          = "DATABASE_URL"
	EnvPrimaryURL       = "DATABASE_PRIMARY_URL"
	EnvRuntimeMode      = "APP_ENV"
	EnvExecutionContext = "DUPLEX_CONTEXT"
)

var supportedSchemes = []string{"postgres://", "postgresql://", "mysql://"}

// Config is everything the facade needs before dialing: the two connection
// targets, the runtime mode and the execution context.
type Config struct {
	// MainURL is the connection string serving reads and default writes.
	MainURL string
	// PrimaryURL is the authoritative write target. Empty means the
	// primary role degrades to MainURL.
	PrimaryURL string
	// RuntimeMode gates the hot-reload connection reuse in Init.
	RuntimeMode RuntimeMode
	// ExecutionContext defaults to ContextServer.
	ExecutionContext ExecutionContext
}

type fileConfig struct {
	Database struct {
		URL        string `yaml:"url"`
		PrimaryURL string `yaml:"primary_url"`
	} `yaml:"database"`
	RuntimeMode      string `yaml:"runtime_mode"`
	ExecutionContext string `yaml:"execution_context"`
}

// LoadFromEnv builds a Config from the environment.
func LoadFromEnv() Config {
	cfg := Config{
		MainURL:          os.Getenv(EnvMainURL),
		PrimaryURL:       os.Getenv(EnvPrimaryURL),
		RuntimeMode:      RuntimeMode(os.Getenv(EnvRuntimeMode)),
		ExecutionContext: ExecutionContext(os.Getenv(EnvExecutionContext)),
	}
	if cfg.ExecutionContext == "" {
		cfg.ExecutionContext = ContextServer
	}
	return cfg
}

// LoadFromFile reads a YAML config file. Environment variables override the
// file values, so one file can be shared across deployments.
func LoadFromFile(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("duplex: read config: %w", err)
	}
	var file fileConfig
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return Config{}, fmt.Errorf("duplex: parse config: %w", err)
	}

	cfg := Config{
		MainURL:          file.Database.URL,
		PrimaryURL:       file.Database.PrimaryURL,
		RuntimeMode:      RuntimeMode(file.RuntimeMode),
		ExecutionContext: ExecutionContext(file.ExecutionContext),
	}
	if v := os.Getenv(EnvMainURL); v != "" {
		cfg.MainURL = v
	}
	if v := os.Getenv(EnvPrimaryURL); v != "" {
		cfg.PrimaryURL = v
	}
	if v := os.Getenv(EnvRuntimeMode); v != "" {
		cfg.RuntimeMode = RuntimeMode(v)
	}
	if v := os.Getenv(EnvExecutionContext); v != "" {
		cfg.ExecutionContext = ExecutionContext(v)
	}
	if cfg.ExecutionContext == "" {
		cfg.ExecutionContext = ContextServer
	}
	return cfg, nil
}

// Validate fails fast on missing or malformed configuration. It must run
// before any connection is constructed; a non-nil result aborts startup.
// Outside the server execution context validation is skipped entirely.
func (cfg Config) Validate() error {
	if cfg.ExecutionContext != ContextServer {
		return nil
	}

	var result *multierror.Error
	if cfg.MainURL == "" {
		result = multierror.Append(result, &ConfigError{
			Field:  EnvMainURL,
			Reason: "connection string is required",
		})
	} else if !hasSupportedScheme(cfg.MainURL) {
		result = multierror.Append(result, &ConfigError{
			Field:  EnvMainURL,
			Reason: fmt.Sprintf("unsupported scheme, want one of %s", strings.Join(supportedSchemes, ", ")),
		})
	}
	if cfg.PrimaryURL != "" && !hasSupportedScheme(cfg.PrimaryURL) {
		result = multierror.Append(result, &ConfigError{
			Field:  EnvPrimaryURL,
			Reason: fmt.Sprintf("unsupported scheme, want one of %s", strings.Join(supportedSchemes, ", ")),
		})
	}
	if cfg.RuntimeMode == "" {
		result = multierror.Append(result, &ConfigError{
			Field:  EnvRuntimeMode,
			Reason: "runtime mode is required",
		})
	}
	return result.ErrorOrNil()
}

// EffectivePrimaryURL is the primary connection target: PrimaryURL when
// configured, MainURL otherwise.
func (cfg Config) EffectivePrimaryURL() string {
	if cfg.PrimaryURL != "" {
		return cfg.PrimaryURL
	}
	return cfg.MainURL
}

func (cfg Config) production() bool {
	return cfg.RuntimeMode == ModeProduction
}

func hasSupportedScheme(url string) bool {
	for _, scheme := range supportedSchemes {
		if strings.HasPrefix(url, scheme) {
			return true
		}
	}
	return false
}
