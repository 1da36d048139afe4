/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the front-desk settlement engine server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Parse command-line flags, load .env + environment
  2. Build the logger
  3. Open the store (SQLite or MySQL) and migrate
  4. Load the settlement config (OTA channels, invoice prefix, divisions)
  5. Connect the check-in event publisher (optional)
  6. Create check-in service, API handler and router
  7. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -env     Env file to load first (default: .env, ignored if missing)
  -port    HTTP server port, overrides PORT
  -db      SQLite database path, overrides SQLITE_PATH
           Use ":memory:" for in-memory database
  -config  Settlement YAML file, overrides SETTLEMENT_CONFIG

ENVIRONMENT:
  See config/config.go. BUSINESS_ID is required; JWT_SECRET unless
  AUTH_DISABLED=true.

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close the event publisher and database connection
  4. Exit

EXAMPLES:
  # Local demo, no login, demo scenarios on
  BUSINESS_ID=demo AUTH_DISABLED=true ENABLE_SCENARIOS=true ./server -db=":memory:"

  # MySQL with a custom channel list
  DB_DRIVER=mysql MYSQL_DSN="app:secret@tcp(db:3306)/hotel" ./server -config=settlement.yaml

SEE ALSO:
  - config/config.go: Environment variables
  - api/server.go: Router configuration
  - factory/policy.go: Settlement config file
*/
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/adf/settlement-engine/api"
	"github.com/adf/settlement-engine/auth"
	"github.com/adf/settlement-engine/checkin"
	"github.com/adf/settlement-engine/config"
	"github.com/adf/settlement-engine/factory"
	"github.com/adf/settlement-engine/logging"
	"github.com/adf/settlement-engine/notify"
	"github.com/adf/settlement-engine/store/mysql"
	"github.com/adf/settlement-engine/store/sqlite"
	"github.com/adf/settlement-engine/store/sqlstore"
)

func main() {
	// Flags
	envFile := flag.String("env", ".env", "Env file to load")
	port := flag.Int("port", 0, "HTTP server port (overrides PORT)")
	dbPath := flag.String("db", "", "SQLite database path (overrides SQLITE_PATH)")
	settlementFile := flag.String("config", "", "Settlement YAML file (overrides SETTLEMENT_CONFIG)")
	flag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "port":
			cfg.Port = *port
		case "db":
			cfg.SQLitePath = *dbPath
		case "config":
			cfg.SettlementConfig = *settlementFile
		}
	})

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()

	// Initialize store
	db, closer, err := openStore(cfg)
	if err != nil {
		logger.Fatal("failed to initialize database", zap.String("driver", cfg.DBDriver), zap.Error(err))
	}
	defer closer.Close()

	// Settlement rules
	bundle, err := factory.NewSettlementFactory().Load(cfg.SettlementConfig)
	if err != nil {
		logger.Fatal("failed to load settlement config", zap.String("path", cfg.SettlementConfig), zap.Error(err))
	}
	svcCfg := bundle.CheckinConfig()
	svcCfg.Logger = logger

	// Check-in events
	if cfg.AMQPURL != "" {
		publisher, err := notify.Dial(cfg.AMQPURL, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("event publisher unavailable, continuing without events", zap.Error(err))
		} else {
			defer publisher.Close()
			svcCfg.Notifier = publisher
		}
	}

	svc := checkin.New(db, db, svcCfg)

	// Initialize handler
	handler := api.NewHandler(db, svc, logger)
	handler.BusinessID = cfg.BusinessID

	opts := api.Options{
		CORSOrigins:     cfg.CORSOrigins,
		EnableScenarios: cfg.EnableScenarios,
	}
	if cfg.AuthDisabled {
		logger.Warn("authentication disabled, check-ins are attributed by staff fallback")
	} else {
		opts.Auth = auth.NewMiddleware(auth.NewTokens(cfg.JWTSecret), cfg.BusinessID, logger)
	}

	// Create router
	router := api.NewRouter(handler, opts)

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info("server starting",
			zap.Int("port", cfg.Port),
			zap.String("business_id", cfg.BusinessID),
			zap.String("database", db.Dialect().Name()),
			zap.Strings("ota_channels", bundle.Policy.Channels().Names()),
			zap.String("invoice_prefix", bundle.Sequencer.Prefix()),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
		return
	}

	logger.Info("server stopped")
}

// openStore returns the shared SQL layer and the closer of the driver store.
func openStore(cfg *config.Config) (*sqlstore.DB, io.Closer, error) {
	switch cfg.DBDriver {
	case config.DriverMySQL:
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s, err := mysql.New(ctx, cfg.MySQL.DSN, mysql.PoolConfig{
			MaxOpenConns:    cfg.MySQL.MaxOpenConns,
			MaxIdleConns:    cfg.MySQL.MaxIdleConns,
			ConnMaxLifetime: cfg.MySQL.ConnMaxLifetime,
		})
		if err != nil {
			return nil, nil, err
		}
		return s.DB, s, nil
	default:
		s, err := sqlite.New(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return s.DB, s, nil
	}
}
