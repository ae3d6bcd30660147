package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/juju/clock"
	"github.com/juju/loggo"

	"refractory-tracker/internal/audit"
	"refractory-tracker/internal/auth"
	"refractory-tracker/internal/blob"
	"refractory-tracker/internal/cache"
	"refractory-tracker/internal/config"
	"refractory-tracker/internal/dashboard"
	"refractory-tracker/internal/database"
	"refractory-tracker/internal/middleware"
	"refractory-tracker/internal/purchasing"
	"refractory-tracker/internal/store"
	"refractory-tracker/internal/sweep"
	"refractory-tracker/internal/tracker"
)

var logger = loggo.GetLogger("server")

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Criticalf("configuration: %v", err)
		os.Exit(1)
	}
	if err := loggo.ConfigureLoggers(cfg.LogLevel); err != nil {
		logger.Warningf("LOG_LEVEL %q: %v", cfg.LogLevel, err)
	}

	if err := run(cfg); err != nil {
		logger.Criticalf("%v", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg)
	if err != nil {
		return err
	}
	if err := database.Migrate(db); err != nil {
		return err
	}

	var views cache.Cache
	if cfg.RedisAddr != "" {
		rdb, err := cache.NewRedisClient(ctx, cache.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			return err
		}
		defer rdb.Close()
		views = cache.NewRedis(rdb)
	} else {
		logger.Infof("REDIS_ADDR not set, dashboard cache is in-process")
		views = cache.NewMemory(clock.WallClock)
	}

	var dash *dashboard.Handlers
	registry, err := tracker.NewRegistry(tracker.Config{
		Store:               store.NewGormStore(db),
		Clock:               clock.WallClock,
		Blobs:               blob.NewLocalStore(cfg.DocumentPath, cfg.DocumentBaseURL, clock.WallClock),
		Audit:               audit.NewWriter(db),
		OnChange:            func(ownerID string) { dash.Invalidate(ownerID) },
		UrgentThresholdDays: cfg.UrgentThresholdDays,
	})
	if err != nil {
		return err
	}
	dash = dashboard.NewHandlers(registry, views, dashboard.DefaultCacheTTL)

	worker, err := sweep.NewWorker(sweep.WorkerConfig{
		Target:   registry,
		Clock:    clock.WallClock,
		Interval: cfg.SweepInterval,
	})
	if err != nil {
		return err
	}
	defer func() {
		worker.Kill()
		if err := worker.Wait(); err != nil {
			logger.Errorf("urgency sweep: %v", err)
		}
	}()

	loginLimit, err := middleware.RateLimit(cfg.LoginRate)
	if err != nil {
		return err
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: purchasing.ErrorHandler,
		// Multipart overhead on top of the largest document.
		BodyLimit: blob.MaxDocumentSize + 1<<20,
	})
	app.Use(recover.New())
	app.Use(fiberlogger.New())

	corsOrigins := strings.Split(cfg.CORSOrigins, ",")
	for i := range corsOrigins {
		corsOrigins[i] = strings.TrimSpace(corsOrigins[i])
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:  strings.Join(corsOrigins, ","),
		AllowHeaders:  "Origin, Content-Type, Accept, Authorization",
		AllowMethods:  "GET,POST,PUT,DELETE,OPTIONS",
		ExposeHeaders: "Content-Disposition",
	}))

	api := app.Group("/api")

	identity := auth.NewHandlers(db, cfg.JWTSecret, clock.WallClock)
	api.Post("/auth/register", loginLimit, identity.Register())
	api.Post("/auth/login", loginLimit, identity.Login())

	protected := api.Group("", auth.JWTMiddleware(cfg.JWTSecret))
	protected.Get("/auth/me", identity.Me())

	purchasing.NewHandlers(registry).Register(protected)

	protected.Get("/dashboard/summary", dash.Summary())
	protected.Get("/dashboard/analytics", dash.Analytics())
	protected.Get("/reports/requirements.xlsx", dash.ExportRequirements())

	protected.Get("/audit-logs", audit.ListAuditLogsHandler(audit.NewWriter(db)))

	errc := make(chan error, 1)
	go func() {
		logger.Infof("listening on port %s", cfg.HTTPPort)
		errc <- app.Listen(":" + cfg.HTTPPort)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	logger.Infof("shutting down")
	return app.ShutdownWithTimeout(shutdownTimeout)
}
