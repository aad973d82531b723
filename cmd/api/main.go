package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/campus360/incidencias-service/internal/api/http"
	"github.com/campus360/incidencias-service/internal/api/http/handlers"
	"github.com/campus360/incidencias-service/internal/auth"
	"github.com/campus360/incidencias-service/internal/config"
	"github.com/campus360/incidencias-service/internal/events"
	"github.com/campus360/incidencias-service/internal/observability"
	"github.com/campus360/incidencias-service/internal/persistence"
	"github.com/campus360/incidencias-service/internal/repository"
	"github.com/campus360/incidencias-service/internal/service"
	"github.com/campus360/incidencias-service/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	pool := pg.PoolHandle()
	incidenciaRepo := repository.NewIncidenciaRepository(pool)
	commentRepo := repository.NewCommentRepository(pool)
	attachmentRepo := repository.NewAttachmentRepository(pool)
	historyRepo := repository.NewHistoryRepository(pool)
	catalogRepo := repository.NewCatalogRepository(pool)
	txManager := repository.NewTxManager(pool)

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()

	eventLog := service.NewEventLogService(dispatcher, logger)
	worker.StartEventLogWorker(eventLog)

	catalogService := service.NewCatalogService(catalogRepo, redis.ClientHandle(), cfg.Catalog.CacheTTL(), logger)
	queryBuilder := service.NewQueryBuilder(catalogService)
	incidenciaService := service.NewIncidenciaService(service.IncidenciaDependencies{
		IncidenciaRepo:         incidenciaRepo,
		CommentRepo:            commentRepo,
		AttachmentRepo:         attachmentRepo,
		HistoryRepo:            historyRepo,
		Catalogs:               catalogService,
		Queries:                queryBuilder,
		TxManager:              txManager,
		Dispatcher:             dispatcher,
		CascadeHistoryOnDelete: cfg.History.CascadeOnDelete,
	})

	tokenVerifier := auth.NewTokenVerifier(cfg.Auth.JWTSecret)
	authMiddleware := auth.NewMiddleware(tokenVerifier)

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	healthHandler := handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis)
	incidenciasHandler := handlers.NewIncidenciasHandler(incidenciaService)
	catalogHandler := handlers.NewCatalogHandler(catalogService)

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         healthHandler,
		Incidencias:    incidenciasHandler,
		Catalog:        catalogHandler,
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
