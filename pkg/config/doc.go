// Package config provides application configuration management from environment variables.
//
// # Overview
//
// This package loads and validates configuration from environment variables with
// sensible defaults for all settings.
//
// # Configuration Structure
//
// Server settings:
//
//	AUTHGATE_HOST="0.0.0.0"
//	AUTHGATE_PORT="8080"
//	AUTHGATE_HEALTH_PORT="9090"
//	AUTHGATE_READ_TIMEOUT="15s"
//	AUTHGATE_WRITE_TIMEOUT="15s"
//
// Identity settings:
//
//	AUTHGATE_OIDC_ISSUER_URL="https://idp.example.org"
//	AUTHGATE_OIDC_CLIENT_ID="authgate"
//	AUTHGATE_MEMBERSHIP_BASE_URL="https://api.example.org"
//	AUTHGATE_MEMBERSHIP_CACHE_TTL="30s"
//	AUTHGATE_ALLOWLIST_PATH="/etc/authgate/allowlist"
//	AUTHGATE_POSTGRES_URL="postgres://localhost/authgate"
//
// Ownership settings:
//
//	AUTHGATE_ORG="iflastandards"
//	AUTHGATE_ORG_API_BASE_URL="https://api.github.com"
//	AUTHGATE_OWNER_CACHE_TTL="5m"
//	AUTHGATE_OWNER_REFRESH_CRON="@every 4m"
//	AUTHGATE_ORG_TOKEN="..."           # static fallback credential
//	AUTHGATE_APP_TOKEN_URL="..."       # installation token minting
//
// Authorization and routing settings:
//
//	AUTHGATE_DECISION_ENDPOINT="https://decisions.internal/v1/decide"
//	AUTHGATE_DECISION_TIMEOUT="5s"
//	AUTHGATE_PORTAL_BASE_URL="https://www.iflastandards.info"
//	AUTHGATE_REVIEW_GROUP_TABLE="/etc/authgate/review-groups.yaml"
//
// Observability settings:
//
//	AUTHGATE_LOG_LEVEL="info"  # debug, info, warn, error
//	AUTHGATE_METRICS_ENABLED="true"
//	AUTHGATE_OTEL_ENABLED="true"
//	AUTHGATE_OTEL_ENDPOINT="otel-collector:4317"
//
// # Usage Example
//
// Load configuration:
//
//	cfg, err := config.LoadConfig()
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	fmt.Printf("Server: %s:%s\n", cfg.Server.Host, cfg.Server.Port)
//	fmt.Printf("Org: %s\n", cfg.Ownership.Org)
//
// # Related Packages
//
//   - pkg/identity: Uses identity configuration
//   - pkg/ownership: Uses ownership configuration
//   - pkg/observability: Uses observability configuration
package config
