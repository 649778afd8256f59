// bomzh runs the simulator behind the WebSocket gateway.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/waka2kekagg-star/bomzh-simulator/internal/catalog"
	"github.com/waka2kekagg-star/bomzh-simulator/internal/config"
	"github.com/waka2kekagg-star/bomzh-simulator/internal/database"
	"github.com/waka2kekagg-star/bomzh-simulator/internal/dice"
	"github.com/waka2kekagg-star/bomzh-simulator/internal/game"
	"github.com/waka2kekagg-star/bomzh-simulator/internal/logger"
	"github.com/waka2kekagg-star/bomzh-simulator/internal/messages"
	"github.com/waka2kekagg-star/bomzh-simulator/internal/namefilter"
	"github.com/waka2kekagg-star/bomzh-simulator/internal/scheduler"
	"github.com/waka2kekagg-star/bomzh-simulator/internal/server"
	"github.com/waka2kekagg-star/bomzh-simulator/internal/telemetry"
)

func main() {
	configFile := flag.String("config", "data/config.yaml", "Path to config YAML file")
	loggingConfig := flag.String("logging", "data/logging.yaml", "Path to logging config YAML file")
	address := flag.String("address", "", "WebSocket listen address (overrides config)")
	flag.Parse()

	// Initialize logger first (before any logging)
	logConfig, err := logger.LoadConfig(*loggingConfig)
	if err != nil {
		log.Printf("Logging config: %v, using defaults", err)
	}
	if err := logger.Initialize(logConfig); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		logger.Error("Failed to load config", "path", *configFile, "error", err)
		os.Exit(1)
	}
	if *address != "" {
		cfg.Server.Address = *address
	}

	logger.Info("Starting bomzh simulator")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := telemetry.Setup(ctx, cfg.Telemetry)
	if err != nil {
		logger.Warning("Tracing disabled", "error", err)
	}

	cat, err := loadCatalog(cfg.Catalog.Dir)
	if err != nil {
		logger.Error("Failed to load catalog", "error", err)
		os.Exit(1)
	}

	msgs, err := messages.Load()
	if err != nil {
		logger.Error("Failed to load messages", "error", err)
		os.Exit(1)
	}

	db, err := database.OpenWithConfig(cfg.Database)
	if err != nil {
		logger.Error("Failed to open database", "driver", cfg.Database.Driver, "error", err)
		os.Exit(1)
	}
	defer db.Close()
	logger.Info("Database ready", "driver", cfg.Database.Driver)

	seed := cfg.Game.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	logger.Info("Random seed selected", "seed", seed, "random", cfg.Game.Seed == 0)

	engine := game.New(db, cat, dice.NewRand(seed), namefilter.New(&cfg.NameFilter), msgs, game.Options{
		FightTTL:        cfg.Game.FightTTL,
		StatGranularity: cfg.Game.StatGranularity,
		DefaultGuild:    cfg.Game.DefaultGuild,
		Locale:          cfg.Game.Locale,
	})

	srv := server.NewServer(&cfg.Server, engine)

	sched := scheduler.New(db, engine, cfg.Game.SchedulerInterval, nil)
	sched.Start(ctx)

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start()
	}()

	select {
	case <-ctx.Done():
		logger.Info("Shutting down server...")
	case err := <-errChan:
		if err != nil {
			logger.Error("Server stopped", "error", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warning("Server shutdown incomplete", "error", err)
	}
	sched.Stop()
	if shutdownTelemetry != nil {
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			logger.Warning("Telemetry flush failed", "error", err)
		}
	}
	logger.Info("Server stopped")
}

// loadCatalog prefers a catalog directory shipped next to the binary over
// the embedded one.
func loadCatalog(dir string) (*catalog.Catalog, error) {
	if dir == "" {
		return catalog.Default()
	}
	logger.Info("Loading catalog override", "dir", dir)
	return catalog.LoadFromDir(dir)
}
