// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"pilite-service/internal/config"
	"pilite-service/internal/database"
	"pilite-service/internal/discovery"
	"pilite-service/internal/driver/pilite"
	"pilite-service/internal/handler"
	"pilite-service/internal/protocol"
	"pilite-service/internal/repository"
	"pilite-service/internal/routes"
	"pilite-service/internal/service"
	"pilite-service/internal/utils"
)

// Application represents the main application
type Application struct {
	config   *config.Config
	logger   *zap.Logger
	server   *http.Server
	database *database.DB

	transport      *protocol.Transport
	driver         *pilite.Driver
	eventBus       *handler.EventBus
	displayService *service.DisplayService

	historyRepo repository.CommandHistoryRepository

	// cancels background loops
	cancel context.CancelFunc
}

func main() {
	configPath := pflag.StringP("config", "c", "", "path to the configuration file")
	migrateDown := pflag.Bool("migrate-down", false, "roll back the command history schema and exit")
	pflag.Parse()

	if *migrateDown {
		if err := rollbackHistory(*configPath); err != nil {
			fmt.Printf("Failed to roll back migrations: %v\n", err)
			os.Exit(1)
		}
		return
	}

	app, err := NewApplication(*configPath)
	if err != nil {
		fmt.Printf("Failed to initialize application: %v\n", err)
		os.Exit(1)
	}
	defer utils.LogPanic(app.logger)

	if err := app.Start(); err != nil {
		app.logger.Fatal("Failed to start application", zap.Error(err))
	}
}

// NewApplication creates a new application instance
func NewApplication(configPath string) (*Application, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := utils.NewLogger(&cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	serviceLogger := utils.NewServiceLogger(logger, cfg.App.Name)
	serviceLogger.LogServiceStart(cfg.App.Version, cfg)

	app := &Application{
		config: cfg,
		logger: logger,
	}

	if err := app.initializeHistory(); err != nil {
		return nil, fmt.Errorf("failed to initialize command history: %w", err)
	}

	app.initializeDisplay()
	app.initializeServer()

	return app, nil
}

// initializeHistory opens the history database when enabled
func (app *Application) initializeHistory() error {
	if !app.config.History.Enabled {
		app.logger.Info("Command history disabled")
		return nil
	}

	db, err := database.NewConnection(&app.config.Database, app.logger)
	if err != nil {
		return fmt.Errorf("failed to create database connection: %w", err)
	}
	app.database = db

	if app.config.History.MigrateOnStart {
		if err := database.NewMigrator(db, app.logger).Up(); err != nil {
			return fmt.Errorf("failed to run database migrations: %w", err)
		}
	}

	app.historyRepo = repository.NewHistoryRepository(db, app.logger)
	app.logger.Info("Command history initialized")
	return nil
}

// rollbackHistory drops the command history schema
func rollbackHistory(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := utils.NewLogger(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer utils.CloseLogger(logger)

	db, err := database.NewConnection(&cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("failed to create database connection: %w", err)
	}
	defer db.Close()

	return database.NewMigrator(db, logger).Down()
}

// initializeDisplay wires the transport, the encoder and the service
func (app *Application) initializeDisplay() {
	deviceCfg := &app.config.Device

	opener := protocol.NewOpener(deviceCfg, nil, app.logger)
	app.transport = protocol.NewTransport(opener, deviceCfg.WriteTimeout, app.logger)
	app.driver = pilite.NewDriver(app.transport, app.logger)

	app.eventBus = handler.NewEventBus(app.logger)

	scanner := discovery.NewScanner(deviceCfg.PortPatterns, deviceCfg.Serial.Port, app.logger)

	app.displayService = service.NewDisplayService(
		app.driver,
		app.transport,
		app.historyRepo,
		app.eventBus,
		scanner,
		app.config,
		app.logger,
	)

	app.logger.Info("Display initialized",
		zap.String("connection_type", deviceCfg.ConnectionType),
	)
}

// initializeServer sets up HTTP server and routes
func (app *Application) initializeServer() {
	var db handler.DatabaseChecker
	if app.database != nil {
		db = app.database
	}

	routerManager := routes.NewRouter(
		app.config,
		app.logger,
		app.transport,
		db,
		app.displayService,
		app.eventBus,
	)

	app.server = &http.Server{
		Addr:         app.config.GetServerAddr(),
		Handler:      routerManager.SetupRouter(),
		ReadTimeout:  app.config.Server.ReadTimeout,
		WriteTimeout: app.config.Server.WriteTimeout,
		IdleTimeout:  app.config.Server.IdleTimeout,
	}

	app.logger.Info("HTTP server initialized",
		zap.String("address", app.config.GetServerAddr()),
	)
}

// startBackgroundServices starts the event bus, the history cleanup loop
// and the initial display connection
func (app *Application) startBackgroundServices(ctx context.Context) {
	go app.eventBus.Start()
	go app.displayService.RunHistoryCleanup(ctx)

	if app.config.Device.ConnectOnStart {
		go app.connectDisplay(ctx)
	}

	app.logger.Info("Background services started")
}

func (app *Application) connectDisplay(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, app.config.Device.ConnectTimeout)
	defer cancel()

	if err := app.displayService.Connect(ctx); err != nil {
		// commands are dropped until POST /display/connect succeeds
		app.logger.Warn("Display not connected on start", zap.Error(err))
	}
}

// waitForShutdown waits for shutdown signal and performs graceful shutdown
func (app *Application) waitForShutdown() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	sig := <-quit
	app.logger.Info("Received shutdown signal", zap.String("signal", sig.String()))

	app.shutdown()
}

// shutdown performs graceful shutdown
func (app *Application) shutdown() {
	serviceLogger := utils.NewServiceLogger(app.logger, app.config.App.Name)
	serviceLogger.LogServiceStop("shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("HTTP server shutdown error", zap.Error(err))
	} else {
		app.logger.Info("HTTP server stopped")
	}

	if app.cancel != nil {
		app.cancel()
	}
	app.displayService.Close()

	if err := app.transport.Close(); err != nil {
		app.logger.Error("Display close error", zap.Error(err))
	}

	app.eventBus.Stop()

	if app.database != nil {
		if err := app.database.Close(); err != nil {
			app.logger.Error("Database close error", zap.Error(err))
		} else {
			app.logger.Info("Database connection closed")
		}
	}

	app.logger.Info("Application shutdown completed")

	if err := utils.CloseLogger(app.logger); err != nil {
		fmt.Printf("Logger close error: %v\n", err)
	}
}

// Start runs the HTTP server and blocks until a shutdown signal arrives
func (app *Application) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	app.cancel = cancel

	go func() {
		app.logger.Info("Starting HTTP server",
			zap.String("address", app.server.Addr),
		)

		if err := app.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.logger.Fatal("Failed to start HTTP server", zap.Error(err))
		}
	}()

	app.startBackgroundServices(ctx)

	app.waitForShutdown()

	return nil
}
