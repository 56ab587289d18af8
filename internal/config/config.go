package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

type LookupFunc func(string) (string, bool)

type Profile string

const (
	ProfileDev  Profile = "dev"
	ProfileTest Profile = "test"
	ProfileProd Profile = "prod"
)

type Config struct {
	Profile       Profile
	Service       ServiceConfig
	HTTP          HTTPConfig
	Warehouse     WarehouseConfig
	Examples      ExamplesConfig
	AI            AIConfig
	Prompt        PromptConfig
	ObjectStore   ObjectStoreConfig
	Observability ObservabilityConfig
	Auth          AuthConfig
}

type ServiceConfig struct {
	Name string
}

type HTTPConfig struct {
	Address      string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type WarehouseConfig struct {
	// Path to the DuckDB database file produced by duckboard-build.
	Path string
	// DocsDir overrides the embedded model documentation when set, so a
	// curator can point the service at a live dbt models directory.
	DocsDir string
}

type ExamplesSource string

const (
	ExamplesSourceFile     ExamplesSource = "file"
	ExamplesSourcePostgres ExamplesSource = "postgres"
)

type ExamplesConfig struct {
	Source          ExamplesSource
	Path            string
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxIdleTime time.Duration
	ConnMaxLifetime time.Duration
}

type AIConfig struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	Timeout     time.Duration
}

type PromptConfig struct {
	// MaxChars is the hard budget for an assembled prompt. Examples are
	// dropped from the tail before schema text is ever truncated.
	MaxChars    int
	MaxExamples int
}

type ObjectStoreConfig struct {
	Endpoint         string
	Region           string
	Bucket           string
	AccessKeyID      string
	SecretAccessKey  string
	UseSSL           bool
	Prefix           string
	AutoCreateBucket bool
}

type ObservabilityConfig struct {
	LogLevel slog.Level
	LogJSON  bool
}

type AuthConfig struct {
	Required   bool
	StaticKeys string
}

func LoadFromEnv(serviceName string) (Config, error) {
	return Load(serviceName, os.LookupEnv)
}

func Load(serviceName string, lookup LookupFunc) (Config, error) {
	if lookup == nil {
		return Config{}, fmt.Errorf("lookup function is required")
	}

	profile := ProfileDev
	if raw, ok := lookup("DUCKBOARD_PROFILE"); ok {
		profile = Profile(strings.ToLower(strings.TrimSpace(raw)))
	}
	if !isValidProfile(profile) {
		return Config{}, fmt.Errorf("invalid DUCKBOARD_PROFILE: %q", profile)
	}

	cfg := defaultsForProfile(profile)
	if serviceName != "" {
		cfg.Service.Name = serviceName
	}

	if err := applyString(lookup, "DUCKBOARD_SERVICE_NAME", &cfg.Service.Name); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "DUCKBOARD_HTTP_ADDR", &cfg.HTTP.Address); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "DUCKBOARD_HTTP_READ_TIMEOUT", &cfg.HTTP.ReadTimeout); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "DUCKBOARD_HTTP_WRITE_TIMEOUT", &cfg.HTTP.WriteTimeout); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "DUCKBOARD_HTTP_IDLE_TIMEOUT", &cfg.HTTP.IdleTimeout); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "DUCKBOARD_WAREHOUSE_PATH", &cfg.Warehouse.Path); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "DUCKBOARD_WAREHOUSE_DOCS_DIR", &cfg.Warehouse.DocsDir); err != nil {
		return Config{}, err
	}
	if err := applyExamplesSource(lookup, "DUCKBOARD_EXAMPLES_SOURCE", &cfg.Examples.Source); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "DUCKBOARD_EXAMPLES_PATH", &cfg.Examples.Path); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "DUCKBOARD_EXAMPLES_DSN", &cfg.Examples.DSN); err != nil {
		return Config{}, err
	}
	if err := applyInt(lookup, "DUCKBOARD_EXAMPLES_MAX_OPEN_CONNS", &cfg.Examples.MaxOpenConns); err != nil {
		return Config{}, err
	}
	if err := applyInt(lookup, "DUCKBOARD_EXAMPLES_MAX_IDLE_CONNS", &cfg.Examples.MaxIdleConns); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "DUCKBOARD_EXAMPLES_CONN_MAX_IDLE_TIME", &cfg.Examples.ConnMaxIdleTime); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "DUCKBOARD_EXAMPLES_CONN_MAX_LIFETIME", &cfg.Examples.ConnMaxLifetime); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "DUCKBOARD_AI_BASE_URL", &cfg.AI.BaseURL); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "DUCKBOARD_AI_API_KEY", &cfg.AI.APIKey); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "DUCKBOARD_AI_MODEL", &cfg.AI.Model); err != nil {
		return Config{}, err
	}
	if err := applyFloat(lookup, "DUCKBOARD_AI_TEMPERATURE", &cfg.AI.Temperature); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "DUCKBOARD_AI_TIMEOUT", &cfg.AI.Timeout); err != nil {
		return Config{}, err
	}
	if err := applyInt(lookup, "DUCKBOARD_PROMPT_MAX_CHARS", &cfg.Prompt.MaxChars); err != nil {
		return Config{}, err
	}
	if err := applyInt(lookup, "DUCKBOARD_PROMPT_MAX_EXAMPLES", &cfg.Prompt.MaxExamples); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "DUCKBOARD_OBJECTSTORE_ENDPOINT", &cfg.ObjectStore.Endpoint); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "DUCKBOARD_OBJECTSTORE_REGION", &cfg.ObjectStore.Region); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "DUCKBOARD_OBJECTSTORE_BUCKET", &cfg.ObjectStore.Bucket); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "DUCKBOARD_OBJECTSTORE_ACCESS_KEY", &cfg.ObjectStore.AccessKeyID); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "DUCKBOARD_OBJECTSTORE_SECRET_KEY", &cfg.ObjectStore.SecretAccessKey); err != nil {
		return Config{}, err
	}
	if err := applyBool(lookup, "DUCKBOARD_OBJECTSTORE_USE_SSL", &cfg.ObjectStore.UseSSL); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "DUCKBOARD_OBJECTSTORE_PREFIX", &cfg.ObjectStore.Prefix); err != nil {
		return Config{}, err
	}
	if err := applyBool(lookup, "DUCKBOARD_OBJECTSTORE_AUTO_CREATE_BUCKET", &cfg.ObjectStore.AutoCreateBucket); err != nil {
		return Config{}, err
	}
	if err := applyBool(lookup, "DUCKBOARD_LOG_JSON", &cfg.Observability.LogJSON); err != nil {
		return Config{}, err
	}
	if err := applyLogLevel(lookup, "DUCKBOARD_LOG_LEVEL", &cfg.Observability.LogLevel); err != nil {
		return Config{}, err
	}
	if err := applyBool(lookup, "DUCKBOARD_AUTH_REQUIRED", &cfg.Auth.Required); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "DUCKBOARD_AUTH_STATIC_KEYS", &cfg.Auth.StaticKeys); err != nil {
		return Config{}, err
	}

	if cfg.Service.Name == "" {
		return Config{}, fmt.Errorf("service name is required")
	}
	if cfg.HTTP.Address == "" {
		return Config{}, fmt.Errorf("http address is required")
	}
	if cfg.Warehouse.Path == "" {
		return Config{}, fmt.Errorf("warehouse path is required")
	}
	if cfg.Examples.Source == ExamplesSourcePostgres && cfg.Examples.DSN == "" {
		return Config{}, fmt.Errorf("examples dsn is required for postgres source")
	}
	return cfg, nil
}

func defaultsForProfile(profile Profile) Config {
	cfg := Config{
		Profile: profile,
		Service: ServiceConfig{Name: "duckboard-api"},
		HTTP: HTTPConfig{
			Address:      ":8084",
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 60 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Warehouse: WarehouseConfig{
			Path: "jaffle_shop.duckdb",
		},
		Examples: ExamplesConfig{
			Source:          ExamplesSourceFile,
			Path:            "examples.yml",
			MaxOpenConns:    10,
			MaxIdleConns:    10,
			ConnMaxIdleTime: 5 * time.Minute,
			ConnMaxLifetime: 30 * time.Minute,
		},
		AI: AIConfig{
			BaseURL:     "http://localhost:4141",
			Model:       "gpt-4.1",
			Temperature: 0.1,
			Timeout:     30 * time.Second,
		},
		Prompt: PromptConfig{
			MaxChars:    16000,
			MaxExamples: 20,
		},
		ObjectStore: ObjectStoreConfig{
			Endpoint:         "",
			Region:           "us-east-1",
			Bucket:           "duckboard",
			UseSSL:           false,
			Prefix:           "exports",
			AutoCreateBucket: true,
		},
		Observability: ObservabilityConfig{
			LogLevel: slog.LevelDebug,
			LogJSON:  true,
		},
		Auth: AuthConfig{
			Required:   false,
			StaticKeys: "",
		},
	}

	switch profile {
	case ProfileTest:
		cfg.HTTP.Address = ":18084"
		cfg.Observability.LogLevel = slog.LevelWarn
	case ProfileProd:
		cfg.Observability.LogLevel = slog.LevelInfo
		cfg.Auth.Required = true
		cfg.ObjectStore.UseSSL = true
		cfg.ObjectStore.AutoCreateBucket = false
	}

	return cfg
}

// ExportEnabled reports whether an object store is configured for result
// exports. The export surface stays dark otherwise.
func (c Config) ExportEnabled() bool {
	return c.ObjectStore.Endpoint != "" && c.ObjectStore.Bucket != ""
}

func isValidProfile(profile Profile) bool {
	switch profile {
	case ProfileDev, ProfileTest, ProfileProd:
		return true
	default:
		return false
	}
}

func applyString(lookup LookupFunc, key string, dst *string) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	*dst = strings.TrimSpace(raw)
	return nil
}

func applyDuration(lookup LookupFunc, key string, dst *time.Duration) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyBool(lookup LookupFunc, key string, dst *bool) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyInt(lookup LookupFunc, key string, dst *int) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyFloat(lookup LookupFunc, key string, dst *float64) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyExamplesSource(lookup LookupFunc, key string, dst *ExamplesSource) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	source := ExamplesSource(strings.ToLower(strings.TrimSpace(raw)))
	switch source {
	case ExamplesSourceFile, ExamplesSourcePostgres:
		*dst = source
		return nil
	default:
		return fmt.Errorf("invalid %s: %q", key, raw)
	}
}

func applyLogLevel(lookup LookupFunc, key string, dst *slog.Level) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	level := strings.ToLower(strings.TrimSpace(raw))
	switch level {
	case "debug":
		*dst = slog.LevelDebug
	case "info":
		*dst = slog.LevelInfo
	case "warn", "warning":
		*dst = slog.LevelWarn
	case "error":
		*dst = slog.LevelError
	default:
		return fmt.Errorf("invalid %s: %q", key, raw)
	}
	return nil
}
