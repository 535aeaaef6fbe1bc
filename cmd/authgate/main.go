package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/go-redis/redis/v8"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/iflastandards/authgate/pkg/api"
	"github.com/iflastandards/authgate/pkg/audit"
	"github.com/iflastandards/authgate/pkg/authz"
	"github.com/iflastandards/authgate/pkg/config"
	"github.com/iflastandards/authgate/pkg/httputil"
	"github.com/iflastandards/authgate/pkg/identity"
	"github.com/iflastandards/authgate/pkg/middleware"
	"github.com/iflastandards/authgate/pkg/observability"
	"github.com/iflastandards/authgate/pkg/ownership"
	"github.com/iflastandards/authgate/pkg/routing"
	"github.com/iflastandards/authgate/pkg/webhooks"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	obsLogger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)
	logger := logrus.New()
	logger.SetLevel(logrusLevel(cfg.Observability.LogLevel))
	logger.SetFormatter(&logrus.JSONFormatter{})

	ctx := context.Background()

	// Optional Postgres role store
	var db *sql.DB
	if cfg.Identity.PostgresURL != "" {
		db, err = sql.Open("postgres", cfg.Identity.PostgresURL)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.Close()

		if err := db.Ping(); err != nil {
			log.Fatalf("Failed to ping database: %v", err)
		}
		logger.Info("Connected to Postgres role store")
	}

	// Optional Redis for distributed rate limiting and health checks
	var redisClient *redis.Client
	if cfg.Redis.URL != "" {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			log.Fatalf("Invalid Redis URL: %v", err)
		}
		if cfg.Redis.Password != "" {
			opts.Password = cfg.Redis.Password
		}
		opts.DB = cfg.Redis.DB
		redisClient = redis.NewClient(opts)
		defer redisClient.Close()

		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.WithError(err).Warn("Redis unreachable at startup, continuing")
		}
	}

	// Audit sink
	var auditLogger audit.Logger = audit.NopLogger{}
	if cfg.Audit.LogPath != "" {
		fileLogger, err := audit.NewFileLogger(cfg.Audit.LogPath)
		if err != nil {
			log.Fatalf("Failed to open audit log: %v", err)
		}
		defer fileLogger.Close()
		auditLogger = fileLogger
	}

	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)

	// Identity resolver
	resolverOpts := []identity.ResolverOption{
		identity.WithAuditLogger(auditLogger),
		identity.WithMetrics(metrics),
	}

	var membershipClient *identity.HTTPMembershipClient
	if cfg.Identity.MembershipBaseURL != "" {
		membershipClient, err = identity.NewHTTPMembershipClient(ctx, identity.MembershipConfig{
			BaseURL:      cfg.Identity.MembershipBaseURL,
			TokenURL:     cfg.Identity.MembershipTokenURL,
			ClientID:     cfg.Identity.MembershipClientID,
			ClientSecret: cfg.Identity.MembershipClientSecret,
			CacheSize:    cfg.Identity.MembershipCacheSize,
			CacheTTL:     cfg.Identity.MembershipCacheTTL,
		})
		if err != nil {
			log.Fatalf("Failed to create membership client: %v", err)
		}
		resolverOpts = append(resolverOpts, identity.WithMembershipClient(membershipClient))
	}

	if db != nil {
		resolverOpts = append(resolverOpts, identity.WithRoleStore(identity.NewSQLRoleStore(db)))
	}

	if cfg.Identity.AllowListPath != "" {
		allowList := identity.NewAllowList(nil)
		if err := allowList.LoadFile(cfg.Identity.AllowListPath); err != nil {
			log.Fatalf("Failed to load allow-list: %v", err)
		}
		go func() {
			if err := allowList.Watch(ctx, cfg.Identity.AllowListPath, logger); err != nil {
				logger.WithError(err).Error("Allow-list watcher stopped")
			}
		}()
		resolverOpts = append(resolverOpts, identity.WithAllowList(allowList))
	}

	// OIDC token verification is optional; without it the API only
	// serves pre-verified sessions via /session/resolve.
	var verifier *identity.TokenVerifier
	if cfg.Identity.OIDCIssuerURL != "" {
		verifier, err = identity.NewTokenVerifier(ctx, identity.OIDCConfig{
			IssuerURL: cfg.Identity.OIDCIssuerURL,
			ClientID:  cfg.Identity.OIDCClientID,
		})
		if err != nil {
			log.Fatalf("Failed to configure OIDC verifier: %v", err)
		}
	}

	// Ownership oracle
	chain := ownership.CredentialChain{
		ownership.NewInstallationTokenProvider(
			cfg.Ownership.TokenURL, cfg.Ownership.AppID, cfg.Ownership.AppSecret, nil, nil),
		ownership.NewStaticTokenProvider(cfg.Ownership.StaticToken),
	}
	owners := ownership.NewService(ownership.Config{
		Org:             cfg.Ownership.Org,
		Chain:           chain,
		Client:          ownership.NewHTTPOrgClient(cfg.Ownership.APIBaseURL, cfg.Ownership.Org, nil),
		CacheTTL:        cfg.Ownership.CacheTTL,
		EmergencyOwners: cfg.Ownership.EmergencyOwners,
		Audit:           auditLogger,
		Metrics:         metrics,
		Logger:          logger,
	})

	resolverOpts = append(resolverOpts, identity.WithOwnerChecker(owners))
	resolver := identity.NewResolver(logger, resolverOpts...)

	// Decision engine; without an endpoint every check is denied
	var decisionClient authz.DecisionClient
	if cfg.Authz.DecisionEndpoint != "" {
		decisionClient, err = authz.NewHTTPDecisionClient(cfg.Authz.DecisionEndpoint,
			&http.Client{Timeout: cfg.Authz.DecisionTimeout})
		if err != nil {
			log.Fatalf("Failed to create decision client: %v", err)
		}
	}
	engine := authz.NewEngine(decisionClient, logger)
	engine.SetMetrics(metrics)

	// Landing-page routing table
	table := routing.ReviewGroupTable(nil)
	if cfg.Routing.ReviewGroupTablePath != "" {
		table, err = routing.LoadReviewGroupTable(cfg.Routing.ReviewGroupTablePath)
		if err != nil {
			log.Fatalf("Failed to load review group table: %v", err)
		}
	}

	// Webhook receiver for cache invalidation
	var webhook http.Handler
	if cfg.Ownership.WebhookSecret != "" {
		var membershipInvalidator webhooks.MembershipInvalidator
		if membershipClient != nil {
			membershipInvalidator = membershipClient
		}
		webhook = webhooks.NewHandler(cfg.Ownership.WebhookSecret, owners.Cache(), membershipInvalidator, logger)
	}

	server := api.NewServer(api.Options{
		Resolver: resolver,
		Engine:   engine,
		Routes:   routing.NewResolver(table),
		Owners:   owners,
		Webhook:  webhook,
		Audit:    auditLogger,
		Logger:   logger,
		Metrics:  metrics,
		BaseURL:  cfg.Routing.BaseURL,
	})

	server.Use(httputil.RecoveryMiddleware(logger))
	server.Use(middleware.RequestID)
	server.Use(httputil.LoggingMiddleware(logger))
	server.Use(observability.HTTPMetricsMiddleware(metrics))
	if len(cfg.Server.CORSOrigins) > 0 {
		server.Use(httputil.CORSMiddleware(cfg.Server.CORSOrigins))
	}
	if redisClient != nil {
		limiter := middleware.NewDistributedRateLimitMiddleware(redisClient)
		limiter.SetMetrics(metrics)
		server.Use(limiter.Handler)
	} else {
		limiter := middleware.NewRateLimitMiddleware()
		limiter.SetMetrics(metrics)
		server.Use(limiter.Handler)
	}
	if verifier != nil {
		server.Use(middleware.NewAuthMiddleware(verifier, resolver, true).Handler)
	}

	// Background owner cache refresh keeps the TTL from expiring on the
	// request path.
	scheduler := cron.New()
	_, err = scheduler.AddFunc(cfg.Ownership.RefreshCron, func() {
		refreshCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := owners.Cache().Refresh(refreshCtx); err != nil {
			metrics.OwnerCacheRefreshesTotal.WithLabelValues("error").Inc()
			logger.WithError(err).Warn("Owner cache refresh failed")
			return
		}
		metrics.OwnerCacheRefreshesTotal.WithLabelValues("success").Inc()
		metrics.OwnerCacheSize.Set(float64(owners.Cache().Size()))
	})
	if err != nil {
		log.Fatalf("Failed to schedule owner cache refresh: %v", err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	// Health and metrics on a separate port for probes
	healthMux := http.NewServeMux()
	observability.RegisterHealthRoutes(healthMux, observability.NewHealthChecker(db, redisClient))
	if cfg.Observability.MetricsEnabled {
		observability.RegisterMetricsEndpoint(healthMux, registry)
	}
	go func() {
		addr := ":" + cfg.Server.HealthPort
		logger.WithField("addr", addr).Info("Health server listening")
		if err := http.ListenAndServe(addr, healthMux); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("Health server exited")
		}
	}()

	var shutdownFuncs []observability.ShutdownFunc
	var handler http.Handler = server

	if cfg.Observability.OTelEnabled {
		providers, err := observability.InitOTel(ctx, observability.OTelConfig{
			Enabled:        true,
			Endpoint:       cfg.Observability.OTelEndpoint,
			ServiceName:    cfg.Observability.OTelServiceName,
			ServiceVersion: cfg.Observability.OTelServiceVersion,
			Insecure:       cfg.Observability.OTelInsecure,
		}, obsLogger)
		if err != nil {
			log.Fatalf("Failed to initialize OpenTelemetry: %v", err)
		}
		shutdownFuncs = append(shutdownFuncs, func(ctx context.Context) error {
			return observability.ShutdownOTel(ctx, providers, obsLogger)
		})
		handler = otelhttp.NewHandler(server, "authgate")
	}

	httpServer := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.WithField("addr", httpServer.Addr).Info("Authgate listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	if err := observability.GracefulShutdown(obsLogger, httpServer, shutdownFuncs...); err != nil {
		logger.WithError(err).Error("Shutdown completed with errors")
		os.Exit(1)
	}
}

func logrusLevel(level observability.LogLevel) logrus.Level {
	switch level {
	case observability.DebugLevel:
		return logrus.DebugLevel
	case observability.WarnLevel:
		return logrus.WarnLevel
	case observability.ErrorLevel:
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}
