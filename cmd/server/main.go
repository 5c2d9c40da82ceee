// Package main is the entry point for the ledger API server.
// It initializes all dependencies, sets up the HTTP server,
// and starts the application.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mealpay/internal/config"
	"mealpay/internal/handlers"
	"mealpay/internal/logger"
	"mealpay/internal/models"
	"mealpay/internal/repositories"
	"mealpay/internal/repositories/cache"
	"mealpay/internal/repositories/memory"
	"mealpay/internal/routes"
	"mealpay/internal/services/events"
	"mealpay/internal/services/reconciliation"
	"mealpay/internal/services/report"
	"mealpay/internal/services/wallet"
	"mealpay/internal/services/withdrawal"
	"mealpay/internal/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	// Load environment variables
	config.LoadEnv()

	log, err := logger.New(config.IsProduction(), config.GetEnv("LOG_LEVEL", ""))
	if err != nil {
		panic(err)
	}
	defer log.Sync() //nolint:errcheck

	if err := run(log); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}

func run(log *zap.Logger) error {
	jwtSecret := config.GetEnv("JWT_SECRET", "")
	if jwtSecret == "" {
		return errors.New("JWT_SECRET must be set")
	}

	repo, dbPing, closeDB, err := openRepository(log)
	if err != nil {
		return err
	}
	defer closeDB()

	// Redis backs the wallet cache and optionally the event stream
	var rdb *redis.Client
	var walletCache wallet.Cache
	health := map[string]handlers.Pinger{"database": dbPing, "redis": nil}
	if config.GetBoolEnv("REDIS_ENABLED", true) {
		rdb = cache.NewRedisClient(&cache.RedisConfig{
			Host:     config.GetEnv("REDIS_HOST", "localhost"),
			Port:     config.GetEnv("REDIS_PORT", "6379"),
			Password: config.GetEnv("REDIS_PASSWORD", ""),
			DB:       config.GetIntEnv("REDIS_DB", 0),
		})
		cacheService := cache.NewCacheService(rdb, config.GetDurationEnv("WALLET_CACHE_TTL", 5*time.Minute))
		defer cacheService.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := cacheService.HealthCheck(ctx); err != nil {
			log.Warn("redis unreachable, wallet reads will fall through to the database", zap.Error(err))
		} else {
			log.Info("connected to redis")
		}
		cancel()

		walletCache = cacheService
		health["redis"] = handlers.PingFunc(cacheService.HealthCheck)
	}

	publisher, err := newPublisher(rdb, log)
	if err != nil {
		return err
	}
	defer publisher.Close()

	metrics := wallet.NewPrometheusMetrics(prometheus.DefaultRegisterer)
	ledgerConfig := wallet.LedgerConfig{
		PlatformUserID:   config.GetEnv("PLATFORM_USER_ID", wallet.DefaultPlatformUserID),
		DefaultCurrency:  config.GetEnv("DEFAULT_CURRENCY", wallet.DefaultCurrency),
		MaxRetries:       config.GetIntEnv("LEDGER_MAX_RETRIES", wallet.DefaultMaxRetries),
		OperationTimeout: config.GetDurationEnv("LEDGER_OPERATION_TIMEOUT", wallet.DefaultOperationTimeout),
	}

	withdrawalConfig := withdrawal.DefaultConfig()
	withdrawalConfig.Ledger = ledgerConfig
	withdrawalConfig.Minimums[models.RoleProvider] = config.GetDecimalEnv("WITHDRAWAL_MIN_PROVIDER", withdrawalConfig.Minimums[models.RoleProvider])
	withdrawalConfig.Minimums[models.RoleCustomer] = config.GetDecimalEnv("WITHDRAWAL_MIN_CUSTOMER", withdrawalConfig.Minimums[models.RoleCustomer])

	ledgerService := wallet.NewService(repo, walletCache, publisher, ledgerConfig, metrics, log.Named("ledger"))
	withdrawalService := withdrawal.NewService(repo, walletCache, publisher, withdrawalConfig, metrics, log.Named("withdrawal"))
	auditor := reconciliation.NewAuditor(repo, metrics, log.Named("reconciliation"))

	scheduler, err := reconciliation.NewScheduler(auditor, config.GetDurationEnv("AUDIT_INTERVAL", time.Hour), log.Named("scheduler"))
	if err != nil {
		return err
	}
	scheduler.Start()
	defer func() {
		if err := scheduler.Stop(); err != nil {
			log.Warn("failed to stop scheduler", zap.Error(err))
		}
	}()

	app := fiber.New(fiber.Config{
		AppName:      "mealpay-ledger",
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		ErrorHandler: errorHandler(log),
	})

	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: config.GetEnv("CORS_ORIGINS", "http://localhost:5173"),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET,POST,HEAD,OPTIONS",
	}))
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	routes.SetupRoutes(app, routes.Dependencies{
		Wallet:          ledgerService,
		Withdrawals:     withdrawalService,
		Auditor:         auditor,
		Exporter:        report.NewExporter(repo),
		Health:          health,
		Gatherer:        prometheus.DefaultGatherer,
		JWTSecret:       jwtSecret,
		WithdrawalLimit: config.GetIntEnv("WITHDRAWAL_RATE_LIMIT", 5),
		Logger:          log.Named("http"),
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		addr := ":" + config.GetEnv("PORT", "3000")
		log.Info("listening", zap.String("addr", addr))
		errCh <- app.Listen(addr)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return app.ShutdownWithContext(shutdownCtx)
}

// openRepository returns the gorm repository, or the in-memory one when
// DB_DRIVER=memory.
func openRepository(log *zap.Logger) (repositories.LedgerRepository, handlers.Pinger, func(), error) {
	if config.GetEnv("DB_DRIVER", "postgres") == "memory" {
		log.Warn("using in-memory ledger, data is lost on restart")
		repo := memory.New()
		return repo, repo, func() {}, nil
	}

	if err := repositories.InitDB(repositories.LoadDBConfig()); err != nil {
		return nil, nil, nil, err
	}
	repo := repositories.NewLedgerRepository(repositories.DB)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := repo.Ping(ctx); err != nil {
		return nil, nil, nil, err
	}
	log.Info("connected to database")

	closeDB := func() {
		if err := repositories.Close(); err != nil {
			log.Warn("failed to close database connection", zap.Error(err))
		}
	}
	return repo, repo, closeDB, nil
}

func newPublisher(rdb *redis.Client, log *zap.Logger) (events.Publisher, error) {
	switch sink := config.GetEnv("EVENT_SINK", "log"); sink {
	case "none":
		return events.NoopPublisher{}, nil
	case "log":
		return events.NewLogPublisher(log.Named("events")), nil
	case "redis":
		if rdb == nil {
			return nil, errors.New("EVENT_SINK=redis requires REDIS_ENABLED")
		}
		return events.NewRedisPublisher(rdb, config.GetEnv("REDIS_EVENTS_CHANNEL", events.DefaultChannel)), nil
	case "kafka":
		return events.NewKafkaPublisher(events.KafkaConfig{
			Brokers: config.GetListEnv("KAFKA_BROKERS", []string{"localhost:9092"}),
			Topic:   config.GetEnv("KAFKA_TOPIC", "ledger-events"),
		}, log.Named("events")), nil
	default:
		return nil, errors.New("unknown EVENT_SINK " + sink)
	}
}

// errorHandler renders fiber's own errors, such as unknown routes, in the
// API envelope.
func errorHandler(log *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			if fe.Code == fiber.StatusNotFound {
				return c.Status(fe.Code).JSON(fiber.Map{
					"success": false,
					"error":   utils.ErrorBody{Code: "ROUTE_NOT_FOUND", Kind: "not_found", Message: fe.Message},
				})
			}
			return c.Status(fe.Code).JSON(fiber.Map{
				"success": false,
				"error":   utils.ErrorBody{Code: "HTTP_ERROR", Kind: "http", Message: fe.Message},
			})
		}
		log.Error("unhandled request error", zap.String("path", c.Path()), zap.Error(err))
		return utils.InternalError(c, "internal server error")
	}
}
