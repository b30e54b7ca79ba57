// Точка входа портала заявок на отсутствие.
// Загружает конфигурацию, применяет миграции, подключается к PostgreSQL,
// создаёт репозитории и сервисный слой, запускает HTTP-сервер с JWT
// middleware и graceful shutdown.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/buzzilka/team-development/internal/api/handlers"
	"github.com/buzzilka/team-development/internal/api/middleware"
	"github.com/buzzilka/team-development/internal/config"
	"github.com/buzzilka/team-development/internal/database"
	"github.com/buzzilka/team-development/internal/repository"
	"github.com/buzzilka/team-development/internal/server"
	"github.com/buzzilka/team-development/internal/service"
)

func main() {
	// 1. Загрузка конфигурации из переменных окружения
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Ошибка загрузки конфигурации", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 2. Настройка логирования
	logger := config.SetupLogger(cfg)
	logger.Info("Портал заявок запускается",
		slog.String("version", config.Version),
		slog.Int("port", cfg.Port),
	)

	// 3. Применение миграций БД
	logger.Info("Применение миграций БД...")
	if err := database.Migrate(cfg, logger); err != nil {
		logger.Error("Ошибка миграций БД", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 4. Подключение к PostgreSQL (pgxpool)
	ctx := context.Background()
	pool, err := database.Connect(ctx, cfg, logger)
	if err != nil {
		logger.Error("Ошибка подключения к PostgreSQL", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	// 5. Repositories
	userRepo := repository.NewUserRepository(pool)
	requestRepo := repository.NewRequestRepository(pool)
	requestTx := repository.NewRequestTx(repository.NewTxRunner(pool))

	// 6. Кэш заявок (LRU с TTL)
	requestCache := service.NewRequestCache(cfg.CacheSize, cfg.CacheTTL)

	// 7. JWT middleware (HS256, self-issued токены)
	jwtAuth := middleware.NewJWTAuth(cfg.JWTSecret, logger)

	// 8. Services
	authSvc := service.NewAuthService(userRepo, jwtAuth, cfg.TokenTTL, cfg.BcryptCost, logger)
	requestSvc := service.NewRequestService(requestRepo, requestTx, requestCache, logger)
	userSvc := service.NewUserService(userRepo, logger)
	exportSvc := service.NewExportService(requestRepo, logger)

	// 9. Readiness checker (PostgreSQL) и health handler
	healthHandler := handlers.NewHealthHandler(database.NewReadinessChecker(pool))

	// 10. API handler
	apiHandler := handlers.NewAPIHandler(
		healthHandler,
		authSvc,
		requestSvc,
		userSvc,
		exportSvc,
		logger,
	)

	// 11. Создание и запуск HTTP-сервера
	srv := server.New(cfg, logger, apiHandler, jwtAuth)
	if err := srv.Run(); err != nil {
		logger.Error("Ошибка сервера", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("Портал заявок остановлен")
}
