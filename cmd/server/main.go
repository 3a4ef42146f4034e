package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	rediscache "github.com/kmsconnect/kms-connect/internal/adapters/cache/redis"
	"github.com/kmsconnect/kms-connect/internal/adapters/events"
	grpchandler "github.com/kmsconnect/kms-connect/internal/adapters/grpc/handler"
	httphandler "github.com/kmsconnect/kms-connect/internal/adapters/http/handler"
	"github.com/kmsconnect/kms-connect/internal/adapters/messaging/kafka"
	"github.com/kmsconnect/kms-connect/internal/adapters/ocr/vision"
	"github.com/kmsconnect/kms-connect/internal/adapters/repository/postgres"
	"github.com/kmsconnect/kms-connect/internal/adapters/storage/local"
	"github.com/kmsconnect/kms-connect/internal/core/applicant"
	"github.com/kmsconnect/kms-connect/internal/core/document"
	"github.com/kmsconnect/kms-connect/internal/core/notification"
	"github.com/kmsconnect/kms-connect/internal/core/ocr"
	"github.com/kmsconnect/kms-connect/internal/core/region"
	"github.com/kmsconnect/kms-connect/internal/platform/auth"
	"github.com/kmsconnect/kms-connect/internal/platform/config"
	pg "github.com/kmsconnect/kms-connect/internal/platform/db/postgres"
	"github.com/kmsconnect/kms-connect/internal/platform/logger"
	"github.com/kmsconnect/kms-connect/internal/platform/metrics"
	platformredis "github.com/kmsconnect/kms-connect/internal/platform/redis"
	"github.com/kmsconnect/kms-connect/internal/platform/server"
	"github.com/kmsconnect/kms-connect/internal/workers/ocrrunner"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "assets/local.yaml"
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	appLogger, logCloser, err := logger.New(cfg.Log)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer logCloser.Close()
	slog.SetDefault(appLogger)

	if err := run(ctx, cfg, appLogger); err != nil {
		appLogger.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
	appLogger.Info("server stopped")
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	dbPool, err := pg.NewPool(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("initialize database pool: %w", err)
	}
	defer dbPool.Close()

	redisClient, err := platformredis.New(ctx, cfg.Redis)
	if err != nil {
		return fmt.Errorf("initialize redis: %w", err)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	appMetrics := metrics.New(registry)

	txManager := pg.NewTransactionManager(dbPool)
	applicantRepo := postgres.NewApplicantRepository(dbPool)
	documentRepo := postgres.NewDocumentRepository(dbPool)
	accountRepo := postgres.NewAccountRepository(dbPool)
	notificationRepo := postgres.NewNotificationRepository(dbPool)
	jobRepo := postgres.NewOCRJobRepository(dbPool, cfg.OCR.MaxAttempts)

	var regionRepo region.Repository = postgres.NewRegionRepository(dbPool)
	if redisClient != nil {
		regionRepo = rediscache.NewRegionCache(regionRepo, redisClient, cfg.Redis.RegionCacheTTL, logger)
	}
	regionSvc := region.NewService(regionRepo)

	storage, err := local.New(cfg.Storage.RootDir)
	if err != nil {
		return fmt.Errorf("initialize document storage: %w", err)
	}

	notificationSvc := notification.NewService(notificationRepo, nil)

	dispatcher := events.NewDispatcher(
		events.WithTimeout(cfg.Server.EventDeliveryTimeout),
		events.WithLogger(logger),
		events.WithMetrics(appMetrics),
	)
	dispatcher.Subscribe("notification", notificationSvc.OnStatusChanged)

	var publisher *kafka.Publisher
	if cfg.Kafka.Enabled {
		publisher = kafka.NewPublisher(cfg.Kafka)
		dispatcher.Subscribe("kafka", publisher.HandleStatusChanged)
	}

	applicantSvc := applicant.NewService(applicantRepo, nil, txManager,
		applicant.WithAccounts(accountRepo),
		applicant.WithRegions(regionSvc),
		applicant.WithEventPublisher(dispatcher),
		applicant.WithMetrics(appMetrics),
		applicant.WithLogger(logger),
	)

	documentOpts := []document.Option{
		document.WithMetrics(appMetrics),
		document.WithLogger(logger),
	}
	if cfg.OCR.Enabled {
		documentOpts = append(documentOpts, document.WithJobQueue(jobRepo))
	}
	documentSvc := document.NewService(documentRepo, applicantRepo, storage, nil, txManager, documentOpts...)

	validator := auth.NewValidator(cfg.Auth)

	router := httphandler.NewRouter(httphandler.RouterConfig{
		Handler:        httphandler.New(applicantSvc, documentSvc, notificationSvc, logger, cfg.Server.MaxUploadBytes).WithRegions(regionSvc),
		Validator:      validator,
		Observer:       appMetrics,
		MetricsHandler: appMetrics.Handler(),
		Health: func(ctx context.Context) error {
			if err := pg.Health(ctx, dbPool); err != nil {
				return err
			}
			if redisClient != nil {
				return redisClient.Health(ctx)
			}
			return nil
		},
		Logger: logger,
	})
	httpServer := &http.Server{
		Addr:              cfg.Server.HTTPListenAddr,
		Handler:           router,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
	}

	grpcServer := server.New(cfg.Server.ListenAddr,
		func(r grpc.ServiceRegistrar) {
			grpchandler.RegisterVerificationServiceServer(r, grpchandler.NewVerificationGrpcHandler(applicantSvc, documentSvc))
		},
		grpc.ChainUnaryInterceptor(
			grpchandler.UnaryLoggingInterceptor(logger),
			grpchandler.UnaryAuthInterceptor(validator, logger),
		),
	)
	grpcServer.SetServing(true, grpchandler.VerificationServiceName)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("gRPC server listening", "addr", cfg.Server.ListenAddr)
		return grpcServer.Run(gctx)
	})

	g.Go(func() error {
		logger.Info("HTTP server listening", "addr", cfg.Server.HTTPListenAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve HTTP: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown HTTP: %w", err)
		}
		return nil
	})

	if cfg.OCR.Enabled {
		processor := ocr.NewProcessor(documentSvc,
			vision.NewClient(cfg.OCR.Endpoint, cfg.OCR.APIKey, nil),
			jobRepo,
			ocr.WithBackoff(ocr.Backoff{Base: cfg.OCR.BaseBackoff, Max: cfg.OCR.MaxBackoff}),
			ocr.WithMetrics(appMetrics),
			ocr.WithLogger(logger),
		)
		runner := ocrrunner.New(jobRepo, processor, ocrrunner.Config{
			Workers:      cfg.OCR.Workers,
			PollInterval: cfg.OCR.PollInterval,
			JobTimeout:   cfg.OCR.JobTimeout,
			StaleAfter:   cfg.OCR.StaleAfter,
		}, logger)
		g.Go(func() error {
			return runner.Run(gctx)
		})
	}

	err = g.Wait()

	closeCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if closeErr := dispatcher.Close(closeCtx); closeErr != nil {
		logger.Warn("event dispatcher did not drain", "error", closeErr)
	}
	if publisher != nil {
		if closeErr := publisher.Close(); closeErr != nil {
			logger.Warn("failed to close kafka publisher", "error", closeErr)
		}
	}
	return err
}
