package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/carcashpro/carcash-bfa-go/internal/config"
	"github.com/carcashpro/carcash-bfa-go/internal/domain"
	"github.com/carcashpro/carcash-bfa-go/internal/handler"
	"github.com/carcashpro/carcash-bfa-go/internal/infra/auth"
	"github.com/carcashpro/carcash-bfa-go/internal/infra/cache"
	"github.com/carcashpro/carcash-bfa-go/internal/infra/client"
	"github.com/carcashpro/carcash-bfa-go/internal/infra/firebase"
	"github.com/carcashpro/carcash-bfa-go/internal/infra/memstore"
	"github.com/carcashpro/carcash-bfa-go/internal/infra/observability"
	"github.com/carcashpro/carcash-bfa-go/internal/infra/ratelimit"
	"github.com/carcashpro/carcash-bfa-go/internal/infra/resilience"
	"github.com/carcashpro/carcash-bfa-go/internal/infra/stripe"
	"github.com/carcashpro/carcash-bfa-go/internal/infra/supabase"
	"github.com/carcashpro/carcash-bfa-go/internal/port"
	"github.com/carcashpro/carcash-bfa-go/internal/service"

	firebasesdk "firebase.google.com/go/v4"
)

func main() {
	// --- Load .env file (for local development) ---
	if err := config.LoadDotEnv(".env"); err != nil {
		fmt.Fprintf(os.Stderr, "failed to read .env: %v\n", err)
	}

	// --- Config ---
	cfg := config.Load()

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}
	defaults, err := cfg.LoadDefaults()
	if err != nil {
		logger.Fatal("failed to load defaults", zap.Error(err))
	}
	loc := cfg.Location()

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.String("timezone", loc.String()),
		zap.String("store_backend", cfg.StoreBackend),
		zap.String("auth_provider", cfg.AuthProvider),
		zap.String("cache_backend", cfg.CacheBackend),
		zap.String("llm_model", cfg.LLMModel),
		zap.Duration("llm_timeout", cfg.LLMTimeout),
		zap.Duration("cache_ttl", cfg.CacheTTL),
		zap.Int("max_retries", cfg.MaxRetries),
	)

	// --- Tracing ---
	shutdownTracer, err := observability.InitTracer(cfg.OTLPEndpoint, "carcash-api")
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}
	defer shutdownTracer(context.Background())

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Resilience ---
	resilienceCfg := resilience.Config{
		MaxRetries:     cfg.MaxRetries,
		InitialBackoff: cfg.InitialBackoff,
		MaxConcurrency: cfg.MaxConcurrency,
	}
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}

	ctx := context.Background()
	var checks []handler.HealthCheck

	// --- Firebase (store and/or auth) ---
	var fbApp *firebasesdk.App
	if cfg.StoreBackend == config.StoreFirestore || cfg.AuthProvider == config.AuthFirebase {
		fbApp, err = firebase.NewApp(ctx, firebase.Config{
			ProjectID:         cfg.FirebaseProjectID,
			CredentialsFile:   cfg.FirebaseCredentialsFile,
			CredentialsBase64: cfg.FirebaseCredentialsBase64,
		})
		if err != nil {
			logger.Fatal("failed to init firebase", zap.Error(err))
		}
	}

	// --- Store ---
	var store port.Store
	var watcher port.ChangeWatcher
	switch cfg.StoreBackend {
	case config.StoreFirestore:
		fs, err := firebase.NewStore(ctx, fbApp, logger)
		if err != nil {
			logger.Fatal("failed to open firestore", zap.Error(err))
		}
		store, watcher = fs, fs
		logger.Info("using Firestore as data backend", zap.String("project_id", cfg.FirebaseProjectID))
	case config.StoreSupabase:
		store = supabase.NewClient(
			httpClient,
			cfg.SupabaseURL,
			cfg.SupabaseAnonKey,
			cfg.SupabaseServiceKey,
			resilience.NewCircuitBreaker("supabase", logger),
			resilienceCfg,
			logger,
		)
		logger.Info("using Supabase as data backend", zap.String("supabase_url", cfg.SupabaseURL))
	default:
		store = memstore.New()
		logger.Warn("using in-memory store, data is lost on restart")
	}
	defer store.Close()
	checks = append(checks, handler.HealthCheck{Name: cfg.StoreBackend, Ping: store.Ping})

	// --- Cache & rate limit ---
	var accountCache port.Cache[*domain.Account]
	var limiter port.RateLimiter
	policy := ratelimit.Policy{PerMinute: cfg.CoachRatePerMinute, Burst: cfg.CoachBurst}
	if cfg.CacheBackend == config.CacheRedis {
		rdb := cache.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		defer rdb.Close()
		accountCache = cache.NewRedis[*domain.Account](rdb, "carcash:account", cfg.CacheTTL, logger)
		limiter = ratelimit.NewRedis(rdb, policy)
		checks = append(checks, handler.HealthCheck{Name: "redis", Ping: func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}})
		logger.Info("using Redis for cache and rate limits", zap.String("addr", cfg.RedisAddr))
	} else {
		mem := cache.New[*domain.Account](cfg.CacheTTL)
		defer mem.Close()
		accountCache = mem
		limiter = ratelimit.NewLocal(policy)
	}

	// --- Auth ---
	var verifier port.TokenVerifier
	if cfg.AuthProvider == config.AuthFirebase {
		verifier, err = firebase.NewTokenVerifier(ctx, fbApp)
		if err != nil {
			logger.Fatal("failed to init firebase auth", zap.Error(err))
		}
	} else {
		verifier = auth.NewJWTVerifier(cfg.JWTSecret)
	}

	// --- Clients ---
	// LLM_TIMEOUT (via the coach context) bounds completions, not HTTP_TIMEOUT.
	llm := client.NewLLMClient(&http.Client{}, cfg.LLMAPIURL, cfg.LLMAPIKey, resilience.NewCircuitBreaker("llm", logger))
	if cfg.LLMAPIKey == "" {
		logger.Warn("LLM_API_KEY not set, coach chat will fail upstream")
	}

	// --- Services ---
	hub := service.NewHub()
	accountSvc := service.NewAccountService(store, accountCache, hub, defaults, metrics, logger)
	dealSvc := service.NewDealService(store, accountSvc, hub, loc, metrics, logger)
	statsSvc := service.NewStatsService(store, accountSvc, hub, watcher, loc, metrics, logger)
	coachSvc := service.NewCoachService(
		store,
		accountSvc,
		llm,
		limiter,
		resilience.NewBulkhead(cfg.MaxConcurrency),
		service.CoachConfig{
			Model:       cfg.LLMModel,
			MaxTokens:   cfg.LLMMaxTokens,
			Temperature: cfg.LLMTemperature,
			Timeout:     cfg.LLMTimeout,
		},
		loc,
		metrics,
		logger,
	)

	var billingSvc *service.BillingService
	if cfg.StripeWebhookSecret != "" {
		webhooks := stripe.NewWebhookVerifier(cfg.StripeWebhookSecret, cfg.StripeWebhookTolerance)
		billingSvc = service.NewBillingService(webhooks, store, accountSvc, metrics, logger)
	} else {
		logger.Warn("STRIPE_WEBHOOK_SECRET not set, webhook route unavailable")
	}

	// --- Router ---
	router := handler.NewRouter(handler.Deps{
		Accounts: accountSvc,
		Deals:    dealSvc,
		Stats:    statsSvc,
		Coach:    coachSvc,
		Billing:  billingSvc,
		Verifier: verifier,
		Checks:   checks,
		Metrics:  metrics,
		Logger:   logger,
	})

	// --- Server ---
	// No WriteTimeout: live dashboard streams are long-lived.
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// --- Graceful shutdown ---
	go func() {
		logger.Info("server starting", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("server shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}
