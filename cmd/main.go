package main

import (
	"context"
	"errors"
	"net/http"
	"os"

	"github.com/ACCLANKA/ai-whatsapp-bot/config"
	"github.com/ACCLANKA/ai-whatsapp-bot/internal/cache"
	"github.com/ACCLANKA/ai-whatsapp-bot/internal/clients"
	"github.com/ACCLANKA/ai-whatsapp-bot/internal/composer"
	"github.com/ACCLANKA/ai-whatsapp-bot/internal/delivery"
	"github.com/ACCLANKA/ai-whatsapp-bot/internal/domain"
	"github.com/ACCLANKA/ai-whatsapp-bot/internal/functions"
	"github.com/ACCLANKA/ai-whatsapp-bot/internal/history"
	"github.com/ACCLANKA/ai-whatsapp-bot/internal/media"
	"github.com/ACCLANKA/ai-whatsapp-bot/internal/notify"
	"github.com/ACCLANKA/ai-whatsapp-bot/internal/repository"
	"github.com/ACCLANKA/ai-whatsapp-bot/internal/router"
	"github.com/ACCLANKA/ai-whatsapp-bot/internal/usecase"
	"github.com/ACCLANKA/ai-whatsapp-bot/pkg/db"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

func main() {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)
	logger.SetFormatter(&logrus.JSONFormatter{})

	cfg := config.LoadConfig(logger)
	logLevel, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		logLevel = logrus.InfoLevel
		logger.Warnf("Invalid LOG_LEVEL '%s', using default: %s", cfg.LogLevel, logLevel.String())
	}
	logger.SetLevel(logLevel)
	logger.Info("Starting WhatsApp commerce bot...")

	database, err := db.Connect(cfg.DatabaseURL, db.PoolConfig{
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
	})
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	if err := db.Migrate(context.Background(), database); err != nil {
		logger.Fatalf("Failed to migrate database: %v", err)
	}
	logger.Info("Database connection established.")

	var (
		redisClient  *redis.Client
		catalogCache domain.CatalogCache = cache.Noop{}
		historyStore domain.HistoryStore
	)
	limits := history.Limits{MaxEntries: cfg.HistoryMaxEntries, MaxBytes: cfg.HistoryMaxBytes}
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			logger.Fatalf("Failed to connect to redis at %s: %v", cfg.RedisAddr, err)
		}
		catalogCache = cache.New(redisClient, "catalog:", cfg.CatalogCacheTTL)
		historyStore = history.NewRedisStore(redisClient, "history:", cfg.HistoryTTL, limits, logger)
		logger.Infof("Redis connected at %s", cfg.RedisAddr)
	} else {
		historyStore = history.NewMemoryStore(limits)
	}

	// --- Dependency Injection ---
	categoryRepo := repository.NewPostgresCategoryRepository(database, logger)
	productRepo := repository.NewPostgresProductRepository(database, logger)
	cartRepo := repository.NewPostgresCartRepository(database, logger)
	orderRepo := repository.NewPostgresOrderRepository(database, logger)
	settingsRepo := repository.NewPostgresSettingsRepository(database, cfg.Settings(logger), logger)
	keywordRepo := repository.NewPostgresKeywordRepository(database, logger)
	logger.Info("Repositories initialized.")

	channel := clients.NewChannelHTTPClient(cfg.ChannelGatewayURL, cfg.ChannelTimeout, logger)
	generator := clients.NewOllamaClient(clients.OllamaConfig{
		BaseURL:     cfg.OllamaURL,
		Model:       cfg.OllamaModel,
		Temperature: cfg.OllamaTemperature,
		Timeout:     cfg.GenerationTimeout,
	}, logger)

	dispatcher := notify.NewDispatcher(channel, notify.Config{
		CountryCode: cfg.CountryCode,
		ImageDelay:  cfg.ImageSendDelay,
		StoreName:   cfg.StoreName,
		StoreNameFunc: func(ctx context.Context) string {
			s, err := settingsRepo.Load(ctx)
			if err != nil {
				return ""
			}
			return s.StoreName
		},
	}, logger)
	hub := delivery.NewHub(logger)

	catalogUseCase := usecase.NewCatalogUseCase(categoryRepo, productRepo, catalogCache, logger)
	cartUseCase, err := usecase.NewCartUseCase(cartRepo, productRepo, orderRepo, settingsRepo, hub, logger)
	if err != nil {
		logger.Fatalf("Failed to initialize cart use case: %v", err)
	}
	orderUseCase := usecase.NewOrderUseCase(orderRepo, dispatcher, logger)
	conversationUseCase := usecase.NewConversationUseCase(settingsRepo, cfg.CountryCode, logger)
	logger.Info("Use cases initialized.")

	auth := functions.NewAdminAuthorizer(settingsRepo, cfg.AdminPhoneNumber, cfg.CountryCode, logger)
	registry := functions.NewRegistry(auth, logger)
	if err := registry.Register(functions.CustomerFunctions(catalogUseCase, cartUseCase)...); err != nil {
		logger.Fatalf("Failed to register customer functions: %v", err)
	}
	if err := registry.Register(functions.AdminFunctions(catalogUseCase)...); err != nil {
		logger.Fatalf("Failed to register admin functions: %v", err)
	}

	replies := composer.New(generator, registry, historyStore, composer.Config{
		GenerationTimeout: cfg.GenerationTimeout,
		BaseURL:           cfg.ServerBaseURL,
	}, logger)

	inbound := router.New(router.Deps{
		Settings:    settingsRepo,
		Keywords:    keywordRepo,
		Composer:    replies,
		Sender:      dispatcher,
		Auth:        auth,
		Images:      media.NewStore(cfg.UploadDir, logger),
		Catalog:     catalogUseCase,
		CountryCode: cfg.CountryCode,
	}, logger)

	worker := router.NewWorker(router.WorkerConfig{
		Lanes:          cfg.WorkerLanes,
		QueueDepth:     cfg.WorkerQueueDepth,
		MessageTimeout: cfg.MessageTimeout,
		CountryCode:    cfg.CountryCode,
	}, inbound, logger)
	if err := worker.Start(context.Background()); err != nil {
		logger.Fatalf("Failed to start inbound worker: %v", err)
	}

	hubCtx, stopHub := context.WithCancel(context.Background())
	go hub.Run(hubCtx)

	engine := delivery.NewEngine(delivery.ServerDeps{
		Orders:         orderUseCase,
		Catalog:        catalogUseCase,
		Conversations:  conversationUseCase,
		Inbound:        worker,
		Hub:            hub,
		UploadDir:      cfg.UploadDir,
		WebhookToken:   cfg.WebhookToken,
		DashboardToken: cfg.DashboardToken,
	}, logger)

	server := &http.Server{Addr: cfg.HTTPPort, Handler: engine}
	go func() {
		logger.Infof("Starting server on port %s", cfg.HTTPPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("Failed to start server on port %s: %v", cfg.HTTPPort, err)
		}
	}()

	// Stores close only after queued messages are drained.
	drained := make(chan struct{})
	afterDrain := func(ctx context.Context) {
		select {
		case <-drained:
		case <-ctx.Done():
		}
	}

	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		cfg.ShutdownTimeout,
		map[string]gfshutdown.Operation{
			"http-server": func(ctx context.Context) error {
				return server.Shutdown(ctx)
			},
			"worker": func(ctx context.Context) error {
				defer close(drained)
				return worker.Stop(ctx)
			},
			"event-hub": func(ctx context.Context) error {
				stopHub()
				hub.Wait()
				return nil
			},
			"redis": func(ctx context.Context) error {
				if redisClient == nil {
					return nil
				}
				afterDrain(ctx)
				return redisClient.Close()
			},
			"database": func(ctx context.Context) error {
				afterDrain(ctx)
				return database.Close()
			},
		},
	)

	exitCode := <-wait
	logger.Infof("Application exited with code: %d", exitCode)
	os.Exit(exitCode)
}
