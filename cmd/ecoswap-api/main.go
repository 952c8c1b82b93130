package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/gofiber/fiber/v3/middleware/requestid"
	log "github.com/sirupsen/logrus"

	"github.com/rajivgeraev/ecoswap-api/internal/config"
	"github.com/rajivgeraev/ecoswap-api/internal/db"
	"github.com/rajivgeraev/ecoswap-api/internal/metrics"
	"github.com/rajivgeraev/ecoswap-api/internal/middleware"
	"github.com/rajivgeraev/ecoswap-api/internal/services/catalog"
	"github.com/rajivgeraev/ecoswap-api/internal/services/identity"
	"github.com/rajivgeraev/ecoswap-api/internal/services/swap"
	"github.com/rajivgeraev/ecoswap-api/internal/services/upload"
	"github.com/rajivgeraev/ecoswap-api/internal/storage"
	"github.com/rajivgeraev/ecoswap-api/internal/storage/memory"
	"github.com/rajivgeraev/ecoswap-api/internal/storage/postgres"
	"github.com/rajivgeraev/ecoswap-api/internal/utils"
)

func main() {
	// Загружаем конфигурацию
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("❌ Ошибка конфигурации: %v", err)
	}
	setupLogging(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatalf("❌ Ошибка при инициализации хранилища: %v", err)
	}
	defer closeStore()

	backend, err := upload.NewBackend(cfg)
	if err != nil {
		log.Fatalf("❌ Ошибка при инициализации хранилища изображений: %v", err)
	}

	// Создаём экземпляр Fiber
	app := fiber.New(fiber.Config{
		AppName:      "EcoSwap API",
		ErrorHandler: middleware.ErrorHandler,
		// Multipart-обертка поверх лимита на сам файл
		BodyLimit: int(cfg.Upload.MaxBytes) + 1<<20,
	})

	// Добавляем middleware
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowCredentials: false,
	}))
	app.Use(middleware.Metrics())

	app.Get("/healthz", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))

	// Создаём сервисы
	jwtService := utils.NewJWTService(cfg.JWTSecret, cfg.JWTTTL)
	authMiddleware := middleware.AuthMiddleware(jwtService)
	loginLimiter := middleware.NewRateLimiter(cfg.RateLimit.LoginPerMinute, cfg.RateLimit.LoginBurst)

	identityService := identity.NewIdentityService(store, cfg.BcryptCost)
	catalogService := catalog.NewCatalogService(store)
	swapService := swap.NewSwapService(store, catalogService)
	uploadService := upload.NewUploadService(backend, cfg.Upload, cfg.CloudinaryConfig)

	// Регистрируем маршруты
	identity.NewHandler(identityService, jwtService).SetupRoutes(app, authMiddleware, loginLimiter.Handler())
	catalog.NewHandler(catalogService).SetupRoutes(app, authMiddleware)
	swap.NewHandler(swapService).SetupRoutes(app, authMiddleware)
	upload.NewHandler(uploadService).SetupRoutes(app, authMiddleware)

	go func() {
		<-ctx.Done()
		log.Info("Остановка сервера")
		if err := app.Shutdown(); err != nil {
			log.WithError(err).Error("Ошибка при остановке сервера")
		}
	}()

	// Запускаем сервер
	log.WithFields(log.Fields{
		"port":    cfg.Port,
		"env":     cfg.AppEnv,
		"storage": cfg.StorageDriver,
		"images":  backend.Name(),
	}).Info("✅ EcoSwap API запущен")
	if err := app.Listen(":"+cfg.Port, fiber.ListenConfig{DisableStartupMessage: true}); err != nil {
		log.Fatalf("❌ Ошибка сервера: %v", err)
	}
}

// setupLogging настраивает формат и уровень логов
func setupLogging(cfg *config.Config) {
	if cfg.IsDevelopment() {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	} else {
		log.SetFormatter(&log.JSONFormatter{})
	}

	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.WithField("level", cfg.LogLevel).Warn("Неизвестный уровень логов, используем info")
		level = log.InfoLevel
	}
	log.SetLevel(level)
}

// openStore открывает хранилище по STORAGE_DRIVER и применяет миграции
func openStore(ctx context.Context, cfg *config.Config) (storage.Store, func(), error) {
	if cfg.StorageDriver == "memory" {
		log.Warn("Используется хранилище в памяти, данные не сохранятся после перезапуска")
		return memory.New(), func() {}, nil
	}

	if cfg.MigrateOnStart {
		if err := db.Migrate(cfg.DSN()); err != nil {
			return nil, nil, err
		}
	}

	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	return postgres.New(pool), pool.Close, nil
}
