// cmd/worker-manager/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"obsp-workers/internal/common/aws"
	"obsp-workers/internal/common/camunda"
	"obsp-workers/internal/common/config"
	"obsp-workers/internal/common/database"
	"obsp-workers/internal/common/logger"
	"obsp-workers/internal/common/marketplace"
	"obsp-workers/internal/common/observability"
	"obsp-workers/internal/scope/checkout"
	"obsp-workers/internal/scope/schema"

	cpe "obsp-workers/internal/workers/scope/check-purchase-eligibility"
	csp "obsp-workers/internal/workers/scope/checkout-scope-pack"
	ccp "obsp-workers/internal/workers/scope/compute-scope-price"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	var (
		cfg *config.Config
		err error
	)
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		cfg, err = config.LoadFromFile(path)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting worker manager...", zap.String("environment", cfg.App.Environment))

	ctx := context.Background()

	serviceName := cfg.App.Name
	if serviceName == "" {
		serviceName = "obsp-workers"
	}
	obs, err := observability.New(serviceName)
	if err != nil {
		zapLog.Fatal("observability init failed", zap.Error(err))
	}
	if cfg.Tracing.Enabled {
		if err := obs.EnableTracing(serviceName, cfg.Tracing.CollectorEndpoint); err != nil {
			zapLog.Error("tracing disabled", zap.Error(err))
		}
	}

	// --- Zeebe ---
	zeebe, err := camunda.Connect(ctx, &camunda.ClientConfig{
		GatewayAddress:         cfg.Camunda.BrokerAddress,
		UsePlaintextConnection: true,
		ConnectionTimeout:      config.GetDuration(cfg.Camunda.RequestTimeout),
	}, log)
	if err != nil {
		zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
	}
	zapLog.Info("Zeebe client connected successfully")

	// --- PostgreSQL ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()

	ledger := checkout.NewLedger(pg, log)
	if err := ledger.Migrate(ctx); err != nil {
		zapLog.Fatal("checkout ledger migration failed", zap.Error(err))
	}
	zapLog.Info("PostgreSQL connected successfully")

	// --- Redis ---
	var redis *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		redis, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return redis.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")
	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer redis.Close()
	zapLog.Info("Redis connected successfully")

	// --- Support alerts ---
	alerter, err := newSupportAlerter(ctx, cfg.Alerts, log)
	if err != nil {
		zapLog.Fatal("alert channels failed", zap.Error(err))
	}

	// --- Scope engine ---
	var tokens marketplace.TokenSource = marketplace.StaticToken(cfg.Marketplace.APIToken)
	if oauth := cfg.Marketplace.OAuth; oauth.TokenURL != "" {
		tokens = marketplace.NewClientCredentials(oauth.TokenURL, oauth.ClientID, oauth.ClientSecret, oauth.Scopes)
	}
	market := marketplace.NewClient(
		cfg.Marketplace.BaseURL,
		config.GetDuration(cfg.Marketplace.Timeout),
		tokens,
		log,
	)
	schemas := schema.NewLoader(market, log)
	cache := checkout.NewEligibilityCache(redis, time.Duration(cfg.Checkout.EligibilityCacheTTLSecond)*time.Second)
	orchestrator := checkout.NewOrchestrator(checkout.Dependencies{
		Eligibility: market,
		Wallet:      market,
		Submitter:   market,
		Cache:       cache,
		Recorder:    ledger,
		Alerter:     alerter,
		Telemetry:   obs,
	}, log)

	// --- Workers ---
	registry := camunda.NewRegistry(zeebe.GetClient(), obs, log)

	registry.Start(ccp.TaskType, config.GetWorkerConfig(cfg, ccp.TaskType),
		ccp.NewHandler(&ccp.Config{Timeout: config.GetDuration(config.GetWorkerConfig(cfg, ccp.TaskType).Timeout)}, schemas, log))

	registry.Start(cpe.TaskType, config.GetWorkerConfig(cfg, cpe.TaskType),
		cpe.NewHandler(&cpe.Config{Timeout: config.GetDuration(config.GetWorkerConfig(cfg, cpe.TaskType).Timeout)}, market, cache, log))

	registry.Start(csp.TaskType, config.GetWorkerConfig(cfg, csp.TaskType),
		csp.NewHandler(&csp.Config{Timeout: config.GetDuration(config.GetWorkerConfig(cfg, csp.TaskType).Timeout)}, schemas, orchestrator, log))

	// --- Health, Metrics & Risk Review Server ---
	srv := &http.Server{
		Addr: cfg.App.HTTPAddress,
		Handler: newRouter(routerDeps{
			zeebe:    zeebe,
			postgres: pg,
			redis:    redis,
			risks:    ledger,
			workers:  registry.TaskTypes,
			logger:   log,
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		zapLog.Info("HTTP server listening", zap.String("address", cfg.App.HTTPAddress))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Error("HTTP server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping workers...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	registry.Stop(20 * time.Second)

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("HTTP server shutdown failed", zap.Error(err))
	}
	if err := zeebe.Close(); err != nil {
		zapLog.Error("Error closing Zeebe client", zap.Error(err))
	}
	if err := obs.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("observability shutdown failed", zap.Error(err))
	}

	zapLog.Info("Worker manager stopped gracefully")
}

func newSupportAlerter(ctx context.Context, cfg config.AlertsConfig, log logger.Logger) (*checkout.SupportAlerter, error) {
	var (
		topic  checkout.TopicPublisher
		mailer checkout.Mailer
		to     []string
	)

	if cfg.SNS.Enabled {
		sns, err := aws.NewSNSClient(ctx, cfg.AWS.Region, cfg.SNS.TopicARN)
		if err != nil {
			return nil, fmt.Errorf("sns: %w", err)
		}
		topic = sns
	}
	if cfg.SES.Enabled {
		ses, err := aws.NewSESClient(ctx, cfg.AWS.Region, cfg.SES.FromEmail)
		if err != nil {
			return nil, fmt.Errorf("ses: %w", err)
		}
		mailer = ses
		for _, addr := range strings.Split(cfg.SES.ToEmail, ",") {
			if addr = strings.TrimSpace(addr); addr != "" {
				to = append(to, addr)
			}
		}
	}

	return checkout.NewSupportAlerter(topic, mailer, to, log), nil
}
