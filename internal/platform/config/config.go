package config

import (
	"bufio"
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // store time zones must resolve on minimal images
)

const (
	defaultEnvFile              = ".env"
	defaultPort                 = "8080"
	defaultReadTimeout          = 15 * time.Second
	defaultWriteTimeout         = 30 * time.Second
	defaultIdleTimeout          = 120 * time.Second
	defaultSecurityEnvironment  = "local"
	defaultStoreName            = "Kirana Store"
	defaultStoreTimezone        = "Asia/Kolkata"
	defaultAdminUsername        = "admin"
	defaultAdminPassword        = "pass123"
	defaultAdminTokenTTL        = 8 * time.Hour
	defaultAdminTokenIssuer     = "till"
	defaultLoginPerMinute       = 10
	defaultSessionCookieName    = "till_session"
	defaultSessionIdleTimeout   = 2 * time.Hour
	defaultSessionLifetime      = 24 * time.Hour
	defaultIdempotencyHeader    = "Idempotency-Key"
	defaultIdempotencyTTL       = 24 * time.Hour
	defaultIdempotencyInterval  = time.Hour
	defaultIdempotencyBatchSize = 200

	// MinSecretLength is the shortest signing key accepted outside local.
	MinSecretLength = 32
)

// Config captures all runtime configuration organised by concern.
type Config struct {
	Server      ServerConfig
	Security    SecurityConfig
	Store       StoreConfig
	Catalog     CatalogConfig
	Admin       AdminConfig
	RateLimits  RateLimitConfig
	Session     SessionConfig
	Idempotency IdempotencyConfig
	Trace       TraceConfig
}

// ServerConfig configures HTTP server parameters.
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// SecurityConfig names the deployment environment.
type SecurityConfig struct {
	Environment string
}

// IsLocal reports whether relaxed local defaults apply.
func (s SecurityConfig) IsLocal() bool {
	return s.Environment == defaultSecurityEnvironment
}

// StoreConfig describes the shop printed on bills.
type StoreConfig struct {
	Name           string
	Address        string
	FooterMarkdown string
	Timezone       string
	Location       *time.Location
}

// CatalogConfig points at an optional YAML seed. Empty means the embedded seed.
type CatalogConfig struct {
	SeedFile string
}

// AdminConfig holds the single admin credential and token settings.
type AdminConfig struct {
	Username    string
	Password    string
	TokenSecret string
	TokenTTL    time.Duration
	TokenIssuer string
}

// RateLimitConfig controls request throttling.
type RateLimitConfig struct {
	LoginPerMinute int
}

// SessionConfig controls the till session cookie.
type SessionConfig struct {
	CookieName   string
	HashKey      string
	BlockKey     string
	CookieSecure bool
	IdleTimeout  time.Duration
	Lifetime     time.Duration
}

// IdempotencyConfig controls idempotency middleware behaviour.
type IdempotencyConfig struct {
	Header           string
	TTL              time.Duration
	CleanupInterval  time.Duration
	CleanupBatchSize int
}

// TraceConfig carries the Cloud Trace project used in log correlation.
type TraceConfig struct {
	ProjectID string
}

// ValidationError is returned when required configuration fields are missing or invalid.
type ValidationError struct {
	fields []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed: missing or invalid fields [%s]", strings.Join(e.fields, ", "))
}

// Fields returns a copy of the missing/invalid field list.
func (e *ValidationError) Fields() []string {
	out := make([]string, len(e.fields))
	copy(out, e.fields)
	return out
}

// Option customises Load behaviour.
type Option func(*loaderOptions)

type loaderOptions struct {
	envFile      string
	envMap       map[string]string
	useSystemEnv bool
}

// WithEnvFile overrides the .env file path used for local overrides.
func WithEnvFile(path string) Option {
	return func(o *loaderOptions) {
		o.envFile = path
	}
}

// WithEnvMap injects an explicit key/value map for environment lookups. Values in the map
// take precedence over system environment variables.
func WithEnvMap(values map[string]string) Option {
	return func(o *loaderOptions) {
		o.envMap = values
	}
}

// WithoutSystemEnv disables reading from os.Getenv, relying only on provided maps and .env files.
func WithoutSystemEnv() Option {
	return func(o *loaderOptions) {
		o.useSystemEnv = false
	}
}

// Load assembles the application configuration by combining defaults, .env overrides and
// environment variables.
func Load(ctx context.Context, opts ...Option) (Config, error) {
	if err := ctx.Err(); err != nil {
		return Config{}, err
	}
	options := loaderOptions{
		envFile:      defaultEnvFile,
		useSystemEnv: true,
	}
	for _, opt := range opts {
		opt(&options)
	}

	dotEnvValues, err := loadDotEnv(options.envFile)
	if err != nil {
		return Config{}, err
	}

	lookup := func(key string) (string, bool) {
		if options.envMap != nil {
			if value, ok := options.envMap[key]; ok {
				return value, true
			}
		}
		if options.useSystemEnv {
			if value, ok := os.LookupEnv(key); ok {
				return value, true
			}
		}
		if dotEnvValues != nil {
			if value, ok := dotEnvValues[key]; ok {
				return value, true
			}
		}
		return "", false
	}

	cfg := Config{
		Server: ServerConfig{
			Port:         stringWithDefault(lookup, "API_SERVER_PORT", defaultPort),
			ReadTimeout:  durationWithDefault(lookup, "API_SERVER_READ_TIMEOUT", defaultReadTimeout),
			WriteTimeout: durationWithDefault(lookup, "API_SERVER_WRITE_TIMEOUT", defaultWriteTimeout),
			IdleTimeout:  durationWithDefault(lookup, "API_SERVER_IDLE_TIMEOUT", defaultIdleTimeout),
		},
		Security: SecurityConfig{
			Environment: strings.ToLower(strings.TrimSpace(stringWithDefault(lookup, "API_SECURITY_ENVIRONMENT", defaultSecurityEnvironment))),
		},
		Store: StoreConfig{
			Name:           stringWithDefault(lookup, "API_STORE_NAME", defaultStoreName),
			Address:        stringWithDefault(lookup, "API_STORE_ADDRESS", ""),
			FooterMarkdown: stringWithDefault(lookup, "API_STORE_FOOTER_MARKDOWN", ""),
			Timezone:       stringWithDefault(lookup, "API_STORE_TIMEZONE", defaultStoreTimezone),
		},
		Catalog: CatalogConfig{
			SeedFile: stringWithDefault(lookup, "API_CATALOG_SEED_FILE", ""),
		},
		Admin: AdminConfig{
			Username:    stringWithDefault(lookup, "API_ADMIN_USERNAME", defaultAdminUsername),
			Password:    stringWithDefault(lookup, "API_ADMIN_PASSWORD", defaultAdminPassword),
			TokenSecret: stringWithDefault(lookup, "API_ADMIN_TOKEN_SECRET", ""),
			TokenTTL:    durationWithDefault(lookup, "API_ADMIN_TOKEN_TTL", defaultAdminTokenTTL),
			TokenIssuer: stringWithDefault(lookup, "API_ADMIN_TOKEN_ISSUER", defaultAdminTokenIssuer),
		},
		RateLimits: RateLimitConfig{
			LoginPerMinute: intWithDefault(lookup, "API_RATELIMIT_LOGIN_PER_MIN", defaultLoginPerMinute),
		},
		Session: SessionConfig{
			CookieName:   stringWithDefault(lookup, "API_SESSION_COOKIE_NAME", defaultSessionCookieName),
			HashKey:      stringWithDefault(lookup, "API_SESSION_HASH_KEY", ""),
			BlockKey:     stringWithDefault(lookup, "API_SESSION_BLOCK_KEY", ""),
			CookieSecure: boolWithDefault(lookup, "API_SESSION_COOKIE_SECURE", false),
			IdleTimeout:  durationWithDefault(lookup, "API_SESSION_IDLE_TIMEOUT", defaultSessionIdleTimeout),
			Lifetime:     durationWithDefault(lookup, "API_SESSION_LIFETIME", defaultSessionLifetime),
		},
		Idempotency: IdempotencyConfig{
			Header:           stringWithDefault(lookup, "API_IDEMPOTENCY_HEADER", defaultIdempotencyHeader),
			TTL:              durationWithDefault(lookup, "API_IDEMPOTENCY_TTL", defaultIdempotencyTTL),
			CleanupInterval:  durationWithDefault(lookup, "API_IDEMPOTENCY_CLEANUP_INTERVAL", defaultIdempotencyInterval),
			CleanupBatchSize: intWithDefault(lookup, "API_IDEMPOTENCY_CLEANUP_BATCH", defaultIdempotencyBatchSize),
		},
		Trace: TraceConfig{
			ProjectID: stringWithDefault(lookup, "API_TRACE_PROJECT_ID", ""),
		},
	}

	if loc, err := time.LoadLocation(strings.TrimSpace(cfg.Store.Timezone)); err == nil {
		cfg.Store.Location = loc
	}

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// EnsureLocalSecrets fills absent signing keys with random values when running locally and
// returns the names it generated. Outside local it does nothing; Load has already rejected
// missing keys there.
func EnsureLocalSecrets(cfg *Config, source io.Reader) ([]string, error) {
	if cfg == nil || !cfg.Security.IsLocal() {
		return nil, nil
	}
	if source == nil {
		source = rand.Reader
	}
	var generated []string
	fill := func(name string, field *string) error {
		if *field != "" {
			return nil
		}
		buf := make([]byte, MinSecretLength)
		if _, err := io.ReadFull(source, buf); err != nil {
			return fmt.Errorf("config: generate %s: %w", name, err)
		}
		*field = base64.RawURLEncoding.EncodeToString(buf)
		generated = append(generated, name)
		return nil
	}
	if err := fill("Admin.TokenSecret", &cfg.Admin.TokenSecret); err != nil {
		return nil, err
	}
	if err := fill("Session.HashKey", &cfg.Session.HashKey); err != nil {
		return nil, err
	}
	return generated, nil
}

func validateConfig(cfg Config) error {
	var missing []string

	if cfg.Server.Port == "" {
		missing = append(missing, "Server.Port")
	}
	if cfg.Store.Location == nil {
		missing = append(missing, "Store.Timezone")
	}
	if strings.TrimSpace(cfg.Admin.Username) == "" {
		missing = append(missing, "Admin.Username")
	}
	if cfg.Admin.Password == "" {
		missing = append(missing, "Admin.Password")
	}
	if cfg.Admin.TokenTTL <= 0 {
		missing = append(missing, "Admin.TokenTTL")
	}
	if cfg.RateLimits.LoginPerMinute <= 0 {
		missing = append(missing, "RateLimits.LoginPerMinute")
	}
	if cfg.Session.IdleTimeout <= 0 {
		missing = append(missing, "Session.IdleTimeout")
	}
	if cfg.Session.Lifetime <= 0 {
		missing = append(missing, "Session.Lifetime")
	}
	switch len(cfg.Session.BlockKey) {
	case 0, 16, 24, 32:
	default:
		missing = append(missing, "Session.BlockKey")
	}
	if strings.TrimSpace(cfg.Idempotency.Header) == "" {
		missing = append(missing, "Idempotency.Header")
	}
	if cfg.Idempotency.TTL <= 0 {
		missing = append(missing, "Idempotency.TTL")
	}
	if cfg.Idempotency.CleanupInterval <= 0 {
		missing = append(missing, "Idempotency.CleanupInterval")
	}
	if cfg.Idempotency.CleanupBatchSize <= 0 {
		missing = append(missing, "Idempotency.CleanupBatchSize")
	}

	if !cfg.Security.IsLocal() {
		if len(cfg.Admin.TokenSecret) < MinSecretLength {
			missing = append(missing, "Admin.TokenSecret")
		}
		if len(cfg.Session.HashKey) < MinSecretLength {
			missing = append(missing, "Session.HashKey")
		}
		if cfg.Admin.Password == defaultAdminPassword {
			missing = append(missing, "Admin.Password")
		}
	}

	if len(missing) > 0 {
		return &ValidationError{fields: missing}
	}
	return nil
}

func loadDotEnv(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		absPath = path
	}

	file, err := os.Open(absPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: unable to read %s: %w", absPath, err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	values := make(map[string]string)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, "export ") {
			line = strings.TrimSpace(strings.TrimPrefix(line, "export "))
		}
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		if key == "" {
			continue
		}
		value = strings.Trim(value, "\"'")
		values[key] = value
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("config: failed parsing %s: %w", absPath, err)
	}
	return values, nil
}

func stringWithDefault(lookup func(string) (string, bool), key, fallback string) string {
	if value, ok := lookup(key); ok && value != "" {
		return value
	}
	return fallback
}

func durationWithDefault(lookup func(string) (string, bool), key string, fallback time.Duration) time.Duration {
	if value, ok := lookup(key); ok && value != "" {
		d, err := time.ParseDuration(value)
		if err == nil {
			return d
		}
	}
	return fallback
}

func intWithDefault(lookup func(string) (string, bool), key string, fallback int) int {
	if value, ok := lookup(key); ok && value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func boolWithDefault(lookup func(string) (string, bool), key string, fallback bool) bool {
	if value, ok := lookup(key); ok && value != "" {
		switch strings.ToLower(value) {
		case "true", "1", "yes", "on":
			return true
		case "false", "0", "no", "off":
			return false
		}
	}
	return fallback
}
