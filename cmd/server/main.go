package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/gin-gonic/gin"
	_ "github.com/lib/pq"

	"github.com/sheikh-saqib/transaction-risk-intake/internal/api"
	"github.com/sheikh-saqib/transaction-risk-intake/internal/config"
	"github.com/sheikh-saqib/transaction-risk-intake/internal/events/kafka"
	"github.com/sheikh-saqib/transaction-risk-intake/internal/identity"
	"github.com/sheikh-saqib/transaction-risk-intake/internal/intake"
	interfaces "github.com/sheikh-saqib/transaction-risk-intake/internal/interfaces"
	"github.com/sheikh-saqib/transaction-risk-intake/internal/logging"
	"github.com/sheikh-saqib/transaction-risk-intake/internal/risk"
	"github.com/sheikh-saqib/transaction-risk-intake/internal/storage"
	"github.com/sheikh-saqib/transaction-risk-intake/internal/storage/dynamo"
	"github.com/sheikh-saqib/transaction-risk-intake/internal/storage/memory"
	"github.com/sheikh-saqib/transaction-risk-intake/internal/storage/postgres"
	"github.com/sheikh-saqib/transaction-risk-intake/internal/traces"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := logging.New(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := traces.Init(ctx, cfg.OTLPEndpoint, cfg.Env, logger)
	if err != nil {
		logger.Error("failed to init tracing", "error", err)
		os.Exit(1)
	}

	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to open transaction store", "backend", cfg.Backend(), "error", err)
		os.Exit(1)
	}
	defer closeStore()

	// The key set outlives any single request, so it gets the process context.
	verifier := identity.NewOIDCVerifier(context.Background(), cfg.OIDCIssuer, cfg.OIDCJWKSURL, cfg.OAuthClientID)
	classifier := risk.NewClassifier(risk.NewHTTPScorer(cfg.RiskServiceURL), logger).
		WithHighRiskAmount(cfg.HighRiskAmount)
	pipeline := intake.NewPipeline(identity.NewResolver(verifier), classifier, store, logger)

	if len(cfg.KafkaBrokers) > 0 {
		publisher := kafka.NewPublisher(cfg.KafkaBrokers)
		defer publisher.Close()
		pipeline.WithPublisher(publisher, cfg.KafkaTopic)
		logger.Info("publishing transaction events", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	handler := api.NewHandler(pipeline, api.AuthConfig{ClientID: cfg.OAuthClientID, ProjectID: cfg.ProjectID}, cfg.Backend())

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           api.NewRouter(handler, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("starting server", "port", cfg.Port, "backend", cfg.Backend(), "risk_service", cfg.RiskServiceURL)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", "error", err)
	}
	pipeline.Wait()
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Error("tracing shutdown", "error", err)
	}
}

// openStore selects the transaction store once, from configuration presence:
// DynamoDB table, else Postgres, else memory only.
func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (interfaces.TransactionStore, func(), error) {
	nop := func() {}

	switch cfg.Backend() {
	case "dynamodb":
		opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRetryMaxAttempts(1)}
		if cfg.AWSRegion != "" {
			opts = append(opts, awsconfig.WithRegion(cfg.AWSRegion))
		}
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
		if err != nil {
			return nil, nop, err
		}
		client := dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
			if cfg.DynamoEndpoint != "" {
				o.BaseEndpoint = aws.String(cfg.DynamoEndpoint)
			}
		})
		table, err := dynamo.NewTable(client, cfg.DynamoTable, logger)
		if err != nil {
			return nil, nop, err
		}
		return storage.NewDurableStore(table, memory.NewStore(), cfg.AllowClear, logger), nop, nil

	case "postgres":
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return nil, nop, err
		}
		if err := postgres.Migrate(ctx, db); err != nil {
			// Writes will fail and fall back to memory until the database is reachable.
			logger.Warn("postgres migration failed", "error", err)
		}
		table := postgres.NewPostgresTable(db)
		return storage.NewDurableStore(table, memory.NewStore(), cfg.AllowClear, logger), func() { _ = db.Close() }, nil

	default:
		return memory.NewStore(), nop, nil
	}
}
