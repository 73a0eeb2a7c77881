package main

import (
	"DocQA/backend/go/internal/rag_service/api"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"DocQA/backend/go/internal/config"
	"DocQA/backend/go/internal/database/kafka"
	"DocQA/backend/go/internal/rag_service/service"
	docgrpc "DocQA/backend/go/pkg/grpc"
	dochttp "DocQA/backend/go/pkg/http"
	"DocQA/backend/go/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to the YAML config file; defaults are used when it does not exist")
	flag.Parse()

	// 1. Initialize Logger
	logger.Init(logrus.InfoLevel)
	appLogger := logger.New("DocQA")

	// .env 是可选的
	if err := godotenv.Load(); err == nil {
		appLogger.Info("Loaded environment from .env")
	}

	// 2. Load Configuration
	cfg, err := loadConfig(*configPath)
	if err != nil {
		appLogger.WithErr(err).Fatal("Failed to load config")
	}
	cfg.ApplyEnv(os.Getenv)
	if err := cfg.Validate(); err != nil {
		appLogger.WithErr(err).Fatal("Invalid config")
	}
	logger.Init(logger.ParseLevel(cfg.Logger.Level))
	appLogger = appLogger.WithFields(map[string]interface{}{
		"version":     cfg.App.Version,
		"environment": cfg.App.Environment,
	})
	appLogger.Info("Starting DocQA service...")

	// 3. Session events
	var events kafka.Publisher = kafka.NoopPublisher{}
	if len(cfg.Kafka.Brokers) > 0 {
		client, err := kafka.NewClient(&cfg.Kafka, appLogger)
		if err != nil {
			appLogger.WithErr(err).Fatal("Failed to connect to Kafka")
		}
		events = kafka.NewEventPublisher(client)
		appLogger.Info(fmt.Sprintf("Publishing session events to topic %s", cfg.Kafka.Topic))
	}
	defer func() {
		if err := events.Close(); err != nil {
			appLogger.WithErr(err).Warn("Failed to close event publisher")
		}
	}()

	// 4. Create the service
	svc, closeProviders, err := service.NewFromConfig(cfg, events, appLogger)
	if err != nil {
		appLogger.WithErr(err).Fatal("Failed to create service")
	}
	defer func() {
		if err := closeProviders(); err != nil {
			appLogger.WithErr(err).Warn("Failed to close provider clients")
		}
	}()

	// 5. HTTP server
	gin.SetMode(gin.ReleaseMode)
	handler := api.NewHandler(svc, int64(cfg.Server.MaxUploadMB)<<20, appLogger)
	srv, err := dochttp.NewServer(cfg, appLogger)
	if err != nil {
		appLogger.WithErr(err).Fatal("Failed to create HTTP server")
	}
	srv.Handle("/", api.NewRouter(handler))

	// 6. Optional gRPC health endpoint
	var grpcSrv *docgrpc.Server
	if cfg.Server.GRPCAddress != "" {
		grpcSrv, err = docgrpc.NewServer(cfg, appLogger)
		if err != nil {
			appLogger.WithErr(err).Fatal("Failed to create gRPC server")
		}
	}

	// 7. Graceful Shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Run(gctx)
	})
	if grpcSrv != nil {
		g.Go(func() error {
			return grpcSrv.Run(gctx)
		})
	}

	if err := g.Wait(); err != nil {
		appLogger.WithErr(err).Error("Server stopped with error")
		return
	}
	appLogger.Info("Server gracefully stopped")
}

func loadConfig(path string) (*config.AppConfig, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return config.Default(), nil
	}
	return config.LoadConfig(path)
}
