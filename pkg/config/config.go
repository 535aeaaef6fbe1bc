package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/iflastandards/authgate/pkg/observability"
)

// Config holds all application configuration
type Config struct {
	Server        ServerConfig
	Identity      IdentityConfig
	Ownership     OwnershipConfig
	Authz         AuthzConfig
	Routing       RoutingConfig
	Redis         RedisConfig
	Audit         AuditConfig
	Observability ObservabilityConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// Health/metrics server (separate port for k8s probes)
	HealthPort string

	// Origins allowed to call the API cross-site. Empty disables CORS.
	CORSOrigins []string
}

// IdentityConfig holds identity resolution settings
type IdentityConfig struct {
	// OIDC token verification
	OIDCIssuerURL string
	OIDCClientID  string

	// Membership enrichment API
	MembershipBaseURL      string
	MembershipCacheTTL     time.Duration
	MembershipCacheSize    int
	MembershipTokenURL     string
	MembershipClientID     string
	MembershipClientSecret string

	// Break-glass allow-list file (one username or email per line)
	AllowListPath string

	// Structured role assignments (optional Postgres store)
	PostgresURL string
}

// OwnershipConfig holds organization ownership oracle settings
type OwnershipConfig struct {
	Org           string
	APIBaseURL    string
	CacheTTL      time.Duration
	RefreshCron   string
	WebhookSecret string

	// Installation credential minting
	AppID       string
	AppSecret   string
	TokenURL    string
	StaticToken string

	// Last-resort owners when no credential is configured
	EmergencyOwners []string
}

// AuthzConfig holds decision engine settings
type AuthzConfig struct {
	DecisionEndpoint string
	DecisionTimeout  time.Duration
}

// RoutingConfig holds landing page resolution settings
type RoutingConfig struct {
	BaseURL              string
	ReviewGroupTablePath string
}

// RedisConfig holds Redis settings for distributed rate limiting
type RedisConfig struct {
	URL      string
	Password string
	DB       int
}

// AuditConfig holds audit trail settings
type AuditConfig struct {
	LogPath string
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	LogLevel observability.LogLevel

	MetricsEnabled bool

	OTelEnabled        bool
	OTelEndpoint       string
	OTelServiceName    string
	OTelServiceVersion string
	OTelInsecure       bool // Use insecure gRPC connection
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server:        loadServerConfig(),
		Identity:      loadIdentityConfig(),
		Ownership:     loadOwnershipConfig(),
		Authz:         loadAuthzConfig(),
		Routing:       loadRoutingConfig(),
		Redis:         loadRedisConfig(),
		Audit:         loadAuditConfig(),
		Observability: loadObservabilityConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func loadServerConfig() ServerConfig {
	return ServerConfig{
		Host:            getEnv("AUTHGATE_HOST", "0.0.0.0"),
		Port:            getEnv("AUTHGATE_PORT", "8080"),
		ReadTimeout:     getEnvDuration("AUTHGATE_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:    getEnvDuration("AUTHGATE_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:     getEnvDuration("AUTHGATE_IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout: getEnvDuration("AUTHGATE_SHUTDOWN_TIMEOUT", 30*time.Second),
		HealthPort:      getEnv("AUTHGATE_HEALTH_PORT", "9090"),
		CORSOrigins:     getEnvList("AUTHGATE_CORS_ORIGINS"),
	}
}

func loadIdentityConfig() IdentityConfig {
	return IdentityConfig{
		OIDCIssuerURL:          getEnv("AUTHGATE_OIDC_ISSUER_URL", ""),
		OIDCClientID:           getEnv("AUTHGATE_OIDC_CLIENT_ID", ""),
		MembershipBaseURL:      getEnv("AUTHGATE_MEMBERSHIP_BASE_URL", ""),
		MembershipCacheTTL:     getEnvDuration("AUTHGATE_MEMBERSHIP_CACHE_TTL", 30*time.Second),
		MembershipCacheSize:    getEnvInt("AUTHGATE_MEMBERSHIP_CACHE_SIZE", 256),
		MembershipTokenURL:     getEnv("AUTHGATE_MEMBERSHIP_TOKEN_URL", ""),
		MembershipClientID:     getEnv("AUTHGATE_MEMBERSHIP_CLIENT_ID", ""),
		MembershipClientSecret: getEnv("AUTHGATE_MEMBERSHIP_CLIENT_SECRET", ""),
		AllowListPath:          getEnv("AUTHGATE_ALLOWLIST_PATH", ""),
		PostgresURL:            getEnv("AUTHGATE_POSTGRES_URL", ""),
	}
}

func loadOwnershipConfig() OwnershipConfig {
	return OwnershipConfig{
		Org:             getEnv("AUTHGATE_ORG", "iflastandards"),
		APIBaseURL:      getEnv("AUTHGATE_ORG_API_BASE_URL", "https://api.github.com"),
		CacheTTL:        getEnvDuration("AUTHGATE_OWNER_CACHE_TTL", 5*time.Minute),
		RefreshCron:     getEnv("AUTHGATE_OWNER_REFRESH_CRON", "@every 4m"),
		WebhookSecret:   getEnv("AUTHGATE_WEBHOOK_SECRET", ""),
		AppID:           getEnv("AUTHGATE_APP_ID", ""),
		AppSecret:       getEnv("AUTHGATE_APP_SECRET", ""),
		TokenURL:        getEnv("AUTHGATE_APP_TOKEN_URL", ""),
		StaticToken:     getEnv("AUTHGATE_ORG_TOKEN", ""),
		EmergencyOwners: getEnvList("AUTHGATE_EMERGENCY_OWNERS"),
	}
}

func loadAuthzConfig() AuthzConfig {
	return AuthzConfig{
		DecisionEndpoint: getEnv("AUTHGATE_DECISION_ENDPOINT", ""),
		DecisionTimeout:  getEnvDuration("AUTHGATE_DECISION_TIMEOUT", 5*time.Second),
	}
}

func loadRoutingConfig() RoutingConfig {
	return RoutingConfig{
		BaseURL:              getEnv("AUTHGATE_PORTAL_BASE_URL", ""),
		ReviewGroupTablePath: getEnv("AUTHGATE_REVIEW_GROUP_TABLE", ""),
	}
}

func loadRedisConfig() RedisConfig {
	return RedisConfig{
		URL:      getEnv("AUTHGATE_REDIS_URL", ""),
		Password: getEnv("AUTHGATE_REDIS_PASSWORD", ""),
		DB:       getEnvInt("AUTHGATE_REDIS_DB", 0),
	}
}

func loadAuditConfig() AuditConfig {
	return AuditConfig{
		LogPath: getEnv("AUTHGATE_AUDIT_LOG_PATH", ""),
	}
}

func loadObservabilityConfig() ObservabilityConfig {
	return ObservabilityConfig{
		LogLevel:           parseLogLevel(getEnv("AUTHGATE_LOG_LEVEL", "info")),
		MetricsEnabled:     getEnvBool("AUTHGATE_METRICS_ENABLED", true),
		OTelEnabled:        getEnvBool("AUTHGATE_OTEL_ENABLED", false),
		OTelEndpoint:       getEnv("AUTHGATE_OTEL_ENDPOINT", "localhost:4317"),
		OTelServiceName:    getEnv("AUTHGATE_OTEL_SERVICE_NAME", "authgate"),
		OTelServiceVersion: getEnv("AUTHGATE_OTEL_SERVICE_VERSION", "1.0.0"),
		OTelInsecure:       getEnvBool("AUTHGATE_OTEL_INSECURE", true),
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.HealthPort == "" {
		return fmt.Errorf("health port is required")
	}
	if c.Server.Port == c.Server.HealthPort {
		return fmt.Errorf("server port and health port must be different")
	}

	if c.Identity.OIDCIssuerURL != "" && c.Identity.OIDCClientID == "" {
		return fmt.Errorf("OIDC client ID is required when an issuer URL is set")
	}

	if c.Ownership.Org == "" {
		return fmt.Errorf("organization name is required")
	}
	if c.Ownership.APIBaseURL == "" {
		return fmt.Errorf("organization API base URL is required")
	}
	if c.Ownership.TokenURL != "" && (c.Ownership.AppID == "" || c.Ownership.AppSecret == "") {
		return fmt.Errorf("app ID and secret are required when a token URL is set")
	}

	if c.Routing.BaseURL == "" {
		return fmt.Errorf("portal base URL is required")
	}

	if c.Authz.DecisionTimeout <= 0 {
		return fmt.Errorf("decision timeout must be positive")
	}

	if c.Observability.OTelEnabled {
		if c.Observability.OTelEndpoint == "" {
			return fmt.Errorf("OpenTelemetry endpoint is required when OTel is enabled")
		}
		if c.Observability.OTelServiceName == "" {
			return fmt.Errorf("OpenTelemetry service name is required when OTel is enabled")
		}
	}

	return nil
}

// parseLogLevel parses a log level string
func parseLogLevel(level string) observability.LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return observability.DebugLevel
	case "info":
		return observability.InfoLevel
	case "warn", "warning":
		return observability.WarnLevel
	case "error":
		return observability.ErrorLevel
	default:
		return observability.InfoLevel
	}
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getEnvList returns a comma-separated environment variable as a slice
func getEnvList(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
