// @title           Layout API
// @version         1.0
// @description     Editor de layout de bodegas: zonas, racks, estantes y bins con sincronización optimista.
// @BasePath        /
// @securityDefinitions.apikey Bearer
// @in              header
// @name            Authorization
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	_ "github.com/jhoicas/Layout-api/docs"
	"github.com/jhoicas/Layout-api/internal/application/editor"
	"github.com/jhoicas/Layout-api/internal/application/usecase"
	"github.com/jhoicas/Layout-api/internal/domain/entity"
	"github.com/jhoicas/Layout-api/internal/domain/repository"
	"github.com/jhoicas/Layout-api/internal/infrastructure/layoutxml"
	"github.com/jhoicas/Layout-api/internal/infrastructure/memory"
	infrapdf "github.com/jhoicas/Layout-api/internal/infrastructure/pdf"
	"github.com/jhoicas/Layout-api/internal/infrastructure/postgres"
	httpRouter "github.com/jhoicas/Layout-api/internal/interfaces/http"
	"github.com/jhoicas/Layout-api/pkg/config"
	"github.com/jhoicas/Layout-api/pkg/logger"
)

type repositories struct {
	layouts    repository.LayoutRepository
	warehouses repository.WarehouseRepository
	workspaces repository.WorkspaceRepository
	close      func()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: cfg.App.LogLevel,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("storage", cfg.Storage.Driver).
		Msg("iniciando aplicación")

	ctx := context.Background()
	repos, err := openRepositories(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("inicializar persistencia")
	}
	defer repos.close()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	sessions := editor.NewSessionManager(repos.layouts, repos.warehouses, log, editor.NewMetrics(registry), editor.Options{
		SyncTimeout:  cfg.Layout.SyncTimeout,
		SessionIdle:  cfg.Layout.SessionIdle,
		HistoryLimit: cfg.Layout.HistoryLimit,
		MaxPending:   cfg.Layout.MaxPending,
	})
	layoutIO := editor.NewLayoutIO(
		repos.layouts, repos.warehouses, sessions,
		layoutxml.NewCodec(), infrapdf.NewLabelPDFGenerator(), log,
	)
	workspaceUC := usecase.NewWorkspaceUseCase(repos.workspaces)
	warehouseUC := usecase.NewWarehouseUseCase(repos.warehouses, repos.layouts, sessions, log)
	moduleSvc := usecase.NewModuleService(repos.workspaces)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: cfg.Layout.SyncTimeout + 10*time.Second,
		IdleTimeout:  time.Second * 60,
		BodyLimit:    16 * 1024 * 1024, // importaciones XML grandes
	})
	app.Use(recover.New())

	// Swagger UI en local: http://localhost:<port>/docs
	if cfg.HTTP.SwaggerFile != "" {
		if _, err := os.Stat(cfg.HTTP.SwaggerFile); err == nil {
			app.Use(swagger.New(swagger.Config{
				BasePath: "/",
				FilePath: cfg.HTTP.SwaggerFile,
				Path:     "docs",
				Title:    "Layout API",
			}))
		} else {
			log.Warn().Str("file", cfg.HTTP.SwaggerFile).Msg("swagger.json no encontrado, UI deshabilitada")
		}
	}

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name})
	})
	if cfg.Metrics.Enabled {
		app.Get(cfg.Metrics.Path, adaptor.HTTPHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))
	}

	httpRouter.Router(app, httpRouter.RouterDeps{
		WorkspaceUC:   workspaceUC,
		WarehouseUC:   warehouseUC,
		ModuleService: moduleSvc,
		Sessions:      sessions,
		LayoutIO:      layoutIO,
		Log:           log,
		JWTSecret:     cfg.JWT.Secret,
		JWTIssuer:     cfg.JWT.Issuer,
	})

	// Descarta sesiones ociosas sin trabajo pendiente.
	janitorCtx, stopJanitor := context.WithCancel(ctx)
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-janitorCtx.Done():
				return
			case <-ticker.C:
				if n := sessions.EvictIdle(); n > 0 {
					log.Debug().Int("sessions", n).Msg("sesiones ociosas descartadas")
				}
			}
		}
	}()

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")
	stopJanitor()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}
	// las sincronizaciones asíncronas en vuelo terminan (o vencen) antes de cerrar el pool
	sessions.Wait()

	log.Info().Msg("aplicación detenida")
}

func openRepositories(ctx context.Context, cfg *config.Config) (*repositories, error) {
	if cfg.Storage.Driver == "memory" {
		workspaces := memory.NewWorkspaceRepository()
		if cfg.Storage.MemoryWorkspace != "" {
			workspaces.Put(entity.Workspace{
				ID:        cfg.Storage.MemoryWorkspace,
				Name:      "local",
				Status:    entity.WorkspaceActive,
				CreatedAt: time.Now(),
			}, entity.ModuleLayout, entity.ModuleInventory)
		}
		return &repositories{
			layouts:    memory.NewLayoutRepository(),
			warehouses: memory.NewWarehouseRepository(),
			workspaces: workspaces,
			close:      func() {},
		}, nil
	}

	pool, err := postgres.NewPool(ctx, cfg.DB, cfg.App.Name)
	if err != nil {
		return nil, err
	}
	return &repositories{
		layouts:    postgres.NewLayoutRepository(pool),
		warehouses: postgres.NewWarehouseRepository(pool),
		workspaces: postgres.NewWorkspaceRepository(pool),
		close:      pool.Close,
	}, nil
}
