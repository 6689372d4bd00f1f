package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"sheet-reconciler/core/loader"
	"sheet-reconciler/core/logger"
	"sheet-reconciler/core/middleware/auth"
	"sheet-reconciler/core/middleware/rayid"
	"sheet-reconciler/core/schema"
	"sheet-reconciler/feature/exporter"
	"sheet-reconciler/feature/importer"
	"sheet-reconciler/feature/validator"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// startCmd represents the start command
var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the reconciliation server",
	Long:  `Starts the HTTP server and initializes all enabled features.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		// 1. Load Configuration and Logger
		a, err := loadApp()
		if err != nil {
			return err
		}
		logg := a.log
		defer logg.Sync()
		zap.ReplaceGlobals(logg)

		// 2. Connect to Database (Optional, features needing it stay disabled)
		var models schema.ModelSource
		if err := a.connect(); err != nil {
			logg.Warn("Optional database connection failed", zap.Error(err))
		} else {
			models = schema.NewCache(schema.NewResolver(a.store, logg), a.cacheTTL())
			logg.Info("Connected to database", zap.String("driver", a.cfg.Database.Driver))
		}

		// 3. Initialize Fiber App
		app := fiber.New(fiber.Config{
			DisableStartupMessage: true,
			BodyLimit:             a.cfg.Server.BodyLimit(),
		})

		// 4. Register Features
		mgr := loader.NewManager()
		path := a.cfg.Mapping.File
		mgr.Register(validator.NewFeature(models, path, logg))
		mgr.Register(importer.NewFeature(a.store, models, path, a.cfg.Reconcile, logg))
		mgr.Register(exporter.NewFeature(a.store, models, path, logg))

		// Middleware: RayID first so everything is traced
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
		app.Use(auth.New(auth.Config{ApiKey: a.cfg.Server.ApiKey}))

		// 5. Load Features
		if err := mgr.LoadAll(app); err != nil {
			return err
		}
		for _, f := range mgr.Features() {
			logg.Info("Feature", zap.String("name", f.Name()), zap.Bool("enabled", f.IsEnabled()))
		}

		// 6. Start Server
		go func() {
			logg.Info("Starting server", zap.String("port", a.cfg.Server.Port))
			if err := app.Listen(":" + a.cfg.Server.Port); err != nil {
				logg.Fatal("Server failed to start", zap.Error(err))
			}
		}()

		// 7. Graceful Shutdown
		c := make(chan os.Signal, 1)
		signal.Notify(c, os.Interrupt, syscall.SIGTERM)
		<-c
		logg.Info("Shutting down server...")
		return app.Shutdown()
	},
}

func init() {
	RootCmd.AddCommand(startCmd)
}
