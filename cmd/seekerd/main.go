package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/seekerlabs/seekerd/internal/agent"
	"github.com/seekerlabs/seekerd/internal/config"
	"github.com/seekerlabs/seekerd/internal/orchestrator"
	"github.com/seekerlabs/seekerd/internal/records"
	"github.com/seekerlabs/seekerd/internal/state"
	"github.com/seekerlabs/seekerd/internal/units"
	"github.com/seekerlabs/seekerd/pkg/adapters/draft"
	"github.com/seekerlabs/seekerd/pkg/adapters/events"
	eventsmem "github.com/seekerlabs/seekerd/pkg/adapters/events/memory"
	eventsredis "github.com/seekerlabs/seekerd/pkg/adapters/events/redis"
	"github.com/seekerlabs/seekerd/pkg/adapters/metrics/prometheus"
	recordsmem "github.com/seekerlabs/seekerd/pkg/adapters/records/memory"
	recordsredis "github.com/seekerlabs/seekerd/pkg/adapters/records/redis"
	statefile "github.com/seekerlabs/seekerd/pkg/adapters/state/file"
	stateredis "github.com/seekerlabs/seekerd/pkg/adapters/state/redis"
	"github.com/seekerlabs/seekerd/pkg/api/grpc"
	"github.com/seekerlabs/seekerd/pkg/api/http"
	"github.com/seekerlabs/seekerd/pkg/api/websocket"
)

var (
	// Version is set by build flags
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := initLogger(cfg.LogLevel)
	defer logger.Sync()

	logger.Info("starting seekerd",
		zap.String("version", Version),
		zap.String("build_time", BuildTime))

	ctx := context.Background()

	// One Redis client serves every backend that selects redis.
	var redisClient *goredis.Client
	if cfg.NeedsRedis() {
		redisClient = goredis.NewClient(&goredis.Options{
			Addr:        cfg.Redis.Addr,
			Password:    cfg.Redis.Password,
			DB:          cfg.Redis.DB,
			PoolSize:    cfg.Redis.PoolSize,
			DialTimeout: cfg.Redis.DialTimeout,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Fatal("failed to connect to Redis", zap.Error(err))
		}
		logger.Info("connected to Redis", zap.String("addr", cfg.Redis.Addr))
	}

	// State tree with its persister.
	var persister state.Persister
	switch cfg.StateBackend {
	case "redis":
		persister = stateredis.New(redisClient, logger)
	default:
		filePersister, err := statefile.New(cfg.StatePath, logger)
		if err != nil {
			logger.Fatal("failed to open state file", zap.Error(err))
		}
		persister = filePersister
	}

	stateStore, err := state.Open(ctx, persister, logger)
	if err != nil {
		logger.Fatal("failed to open state store", zap.Error(err))
	}

	// Durable records.
	var recordStore records.Store
	switch cfg.RecordsBackend {
	case "redis":
		recordStore = recordsredis.New(redisClient, logger)
	default:
		recordStore = recordsmem.New()
	}

	// Invocation event feed. The feed follows the records backend: a redis
	// deployment gets durable streams, everything else fans out in process.
	var bus events.Bus
	if cfg.RecordsBackend == "redis" {
		bus = eventsredis.New(redisClient, "seekerd", fmt.Sprintf("seekerd-%d", os.Getpid()), logger)
	} else {
		bus = eventsmem.New()
	}

	drafter, err := draft.New(&draft.Config{
		Provider: cfg.Draft.Provider,
		APIKey:   cfg.Draft.APIKey,
		Model:    cfg.Draft.Model,
		Logger:   logger,
	})
	if err != nil {
		logger.Fatal("failed to create drafter", zap.Error(err))
	}
	logger.Info("drafter ready", zap.String("provider", drafter.Name()))

	metricsCollector := prometheus.NewCollector()

	// Registry with every unit wired to the shared dependencies.
	registry := agent.NewRegistry()
	if err := units.RegisterAll(registry, units.Deps{
		State:   stateStore,
		Records: recordStore,
		Drafter: drafter,
		Logger:  logger,
	}); err != nil {
		logger.Fatal("failed to register units", zap.Error(err))
	}

	orch := orchestrator.New(
		registry,
		stateStore,
		recordStore,
		bus,
		metricsCollector,
		logger,
		cfg.ChainMaxSteps,
	)
	if cfg.PipelineFile != "" {
		if err := orch.LoadPipelineFile(cfg.PipelineFile); err != nil {
			logger.Fatal("failed to load pipeline file", zap.Error(err))
		}
	}
	if err := orch.ValidatePipelines(); err != nil {
		logger.Fatal("pipeline validation failed", zap.Error(err))
	}

	// API servers.
	httpServer := http.NewServer(&http.Config{
		Host:         cfg.HTTPHost,
		Port:         cfg.HTTPPort,
		Orchestrator: orch,
		Registry:     registry,
		Records:      recordStore,
		Logger:       logger,
	})
	httpServer.SetupWebSocket(websocket.NewHandler(bus, logger))

	grpcServer, err := grpc.NewServer(&grpc.Config{
		Port:   cfg.GRPCPort,
		Logger: logger,
	})
	if err != nil {
		logger.Fatal("failed to create gRPC server", zap.Error(err))
	}

	drainer := orchestrator.NewDrainer(orch, cfg.QueueDrainInterval, cfg.QueueDrainLimit, logger)
	if err := drainer.Start(); err != nil {
		logger.Fatal("failed to start queue drainer", zap.Error(err))
	}

	go func() {
		if err := httpServer.Start(); err != nil {
			logger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	go func() {
		if err := grpcServer.Start(); err != nil {
			logger.Fatal("gRPC server failed", zap.Error(err))
		}
	}()

	logger.Info("seekerd started",
		zap.String("http_addr", cfg.HTTPAddr()),
		zap.String("grpc_addr", cfg.GRPCAddr()),
		zap.Strings("units", registry.List()),
		zap.Strings("pipelines", orch.Pipelines()))

	// Wait for interrupt signal.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	logger.Info("received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", zap.Error(err))
	}

	if err := grpcServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("gRPC server shutdown error", zap.Error(err))
	}

	if err := drainer.Shutdown(shutdownCtx); err != nil {
		logger.Error("queue drainer shutdown error", zap.Error(err))
	}

	if err := bus.Close(); err != nil {
		logger.Error("event bus close error", zap.Error(err))
	}

	if err := recordStore.Close(); err != nil {
		logger.Error("record store close error", zap.Error(err))
	}

	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			logger.Error("Redis close error", zap.Error(err))
		}
	}

	logger.Info("seekerd shut down complete")
}

// initLogger initializes the logger based on log level.
func initLogger(level string) *zap.Logger {
	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	config := zap.NewProductionConfig()
	config.Level = zap.NewAtomicLevelAt(zapLevel)
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := config.Build()
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}

	return logger
}
