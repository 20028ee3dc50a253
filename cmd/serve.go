package cmd

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"envdiff/core/config"
	"envdiff/core/console"
	"envdiff/core/loader"
	"envdiff/core/logger"
	"envdiff/core/middleware/auth"
	"envdiff/core/middleware/rayid"
	"envdiff/core/server"
	"envdiff/core/source"
	"envdiff/core/storage"

	"envdiff/feature/compare"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/swagger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	_ "envdiff/docs/swagger"
)

// @title envdiff API
// @version 1.0
// @description Compares console environments, dumps and database schemas, and plans their reconciliation.
// @host localhost:8080
// @BasePath /
// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name X-API-Key

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the comparison HTTP server",
	Long: `Starts the HTTP server exposing environment comparison, dry-run sync
plans and snapshot dumps. The server never modifies an environment.`,
	Run: func(cmd *cobra.Command, args []string) {
		// 1. Load Configuration
		cfg, err := config.LoadConfig(".")
		if err != nil {
			log.Fatalf("Failed to load configuration: %v", err)
		}
		if err := cfg.Server.Validate(); err != nil {
			log.Fatalf("Invalid server configuration: %v", err)
		}

		// 2. Initialize Logger
		logg, err := logger.New(&cfg.Log)
		if err != nil {
			log.Fatalf("Failed to initialize logger: %v", err)
		}
		defer logg.Sync()
		zap.ReplaceGlobals(logg)

		resolver := &source.Resolver{
			Database: databaseOpener(cfg.Database),
			Cache:    source.NewCache(cfg.Server.CacheTTL()),
			Limit:    cfg.Sync.Concurrency,
			Logger:   logg,
		}

		// 3. Log in to the console (Optional)
		if cfg.Console.URL != "" {
			client, err := console.NewClient(cfg.Console, logg)
			if err != nil {
				logg.Fatal("Failed to create console client", zap.Error(err))
			}
			if err := client.Login(context.Background()); err != nil {
				logg.Warn("Console login failed, live environments are unavailable", zap.Error(err))
			} else {
				resolver.Console = client
				logg.Info("Logged in to console", zap.String("url", client.BaseURL()))
			}
		}

		// 4. Initialize Storage
		store, err := storage.NewClient(cfg.Storage)
		if err != nil {
			logg.Fatal("Failed to create storage client", zap.Error(err))
		}
		resolver.Storage = store

		// 5. Initialize Feature Loader
		mgr := loader.NewManager(logg)
		mgr.Register(compare.NewFeature(resolver, store, cfg.Storage, logg))

		// 6. Build the app and load features
		app, err := newApp(cfg.Server, mgr, logg)
		if err != nil {
			logg.Fatal("Failed to load features", zap.Error(err))
		}

		// 7. Start Server
		go func() {
			logg.Info("Starting server", zap.String("port", cfg.Server.Port))
			if err := app.Listen(":" + cfg.Server.Port); err != nil {
				logg.Fatal("Server failed to start", zap.Error(err))
			}
		}()

		// 8. Graceful Shutdown
		c := make(chan os.Signal, 1)
		signal.Notify(c, os.Interrupt, syscall.SIGTERM)
		<-c
		logg.Info("Shutting down server...")
		_ = app.Shutdown()
	},
}

func init() {
	RootCmd.AddCommand(serveCmd)
}

// newApp wires the middleware chain and loads every enabled feature of mgr.
func newApp(cfg server.Config, mgr *loader.Manager, logg *zap.Logger) (*fiber.App, error) {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	// RayID first so every later log line carries it.
	app.Use(rayid.New())

	app.Use(func(c *fiber.Ctx) error {
		l := logger.WithRayID(logg, c)
		l.Info("Request started",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.String("ip", c.IP()),
		)
		err := c.Next()
		if err != nil {
			l.Error("Request error", zap.Error(err))
		}
		return err
	})

	// Swagger stays public, everything after it needs the API key.
	app.Get("/swagger/*", swagger.HandlerDefault)

	app.Use(auth.New(auth.Config{ApiKey: cfg.ApiKey}))

	if err := mgr.LoadAll(app); err != nil {
		return nil, err
	}
	return app, nil
}
