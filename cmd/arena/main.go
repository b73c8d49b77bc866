// cmd/arena/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/opd-ai/go-arena/pkg/config"
	"github.com/opd-ai/go-arena/pkg/engine"
	"github.com/opd-ai/go-arena/pkg/event"
	"github.com/opd-ai/go-arena/pkg/health"
	"github.com/opd-ai/go-arena/pkg/logging"
	"github.com/opd-ai/go-arena/pkg/physics"
	"github.com/opd-ai/go-arena/pkg/record"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

// run executes the arena command and returns the process exit code. Errors
// return instead of exiting so deferred shutdowns always run.
func run(args []string) int {
	logger := logging.NewLogger()
	ctx := logging.WithCorrelationID(context.Background(), logging.GenerateCorrelationID())

	flags := flag.NewFlagSet("arena", flag.ContinueOnError)
	configPath := flags.String("config", "arena.json", "Path to configuration file")
	createDefault := flags.Bool("default", false, "Create default configuration file")
	ticks := flags.Int("ticks", 0, "Number of ticks to run; 0 runs in real time until interrupted")
	recordPath := flags.String("record", "", "Write the collision log to this file (msgpack)")
	healthAddr := flags.String("health", "", "Serve /health and /ready on this address, e.g. :8080")
	if err := flags.Parse(args); err != nil {
		return 2
	}

	// Create default configuration file if requested
	if *createDefault {
		if err := config.SaveConfig(config.DefaultConfig(), *configPath); err != nil {
			logger.Error(ctx, "Failed to create default configuration", err,
				"config_path", *configPath,
			)
			return 1
		}
		logger.Info(ctx, "Created default configuration file",
			"config_path", *configPath,
		)
		return 0
	}

	arenaConfig, err := loadConfig(ctx, logger, *configPath)
	if err != nil {
		logger.Error(ctx, "Failed to load configuration", err,
			"config_path", *configPath,
		)
		return 1
	}

	sim, err := engine.NewSimulation(arenaConfig, engine.WithLogger(logger))
	if err != nil {
		logger.Error(ctx, "Failed to create simulation", err)
		return 1
	}

	var recorder *record.Recorder
	if *recordPath != "" {
		recorder = record.NewRecorder(sim.EventBus)
		defer recorder.Close()
	}

	collisions := 0
	sim.EventBus.Subscribe(event.EntityCollision, func(e event.Event) {
		collisions++
		if ce, ok := e.(*physics.CollisionEvent); ok {
			logger.Debug(ctx, "collision",
				"pair", ce.Key.String(),
				"shape_a", ce.A.Shape().String(),
				"shape_b", ce.B.Shape().String(),
			)
		}
	})

	// Handle graceful shutdown
	runCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *healthAddr != "" {
		healthServer := startHealthServer(ctx, logger, sim, *healthAddr)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := healthServer.Shutdown(shutdownCtx); err != nil {
				logger.Error(ctx, "Health check server shutdown failed", err)
			}
		}()
	}

	if err := sim.Run(runCtx, *ticks); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error(ctx, "Simulation failed", err)
		return 1
	}

	stats := sim.Stats()
	logger.Info(ctx, "Simulation finished",
		"ticks", sim.Tick(),
		"collisions", collisions,
		"bodies", sim.BodyCount(),
		"overflows", stats.Overflows,
		"stale_removals", stats.StaleRemovals,
		"dropped_events", sim.DroppedEvents(),
	)

	if recorder != nil {
		if err := recorder.WriteFile(*recordPath); err != nil {
			logger.Error(ctx, "Failed to write recording", err,
				"record_path", *recordPath,
			)
			return 1
		}
		logger.Info(ctx, "Wrote collision recording",
			"record_path", *recordPath,
			"frames", len(recorder.Frames()),
		)
	}
	return 0
}

// loadConfig reads the file at path, falling back to the defaults when it
// does not exist, then applies ARENA_* overrides.
func loadConfig(ctx context.Context, logger *logging.Logger, path string) (*config.ArenaConfig, error) {
	var arenaConfig *config.ArenaConfig

	if _, err := os.Stat(path); os.IsNotExist(err) {
		logger.Info(ctx, "Configuration file not found, using default configuration",
			"config_path", path,
		)
		arenaConfig = config.DefaultConfig()
	} else {
		arenaConfig, err = config.LoadConfig(path)
		if err != nil {
			return nil, err
		}
	}

	if err := config.ApplyEnvironmentOverrides(arenaConfig); err != nil {
		return nil, err
	}
	return arenaConfig, nil
}

// startHealthServer serves liveness and readiness probes in the background
func startHealthServer(ctx context.Context, logger *logging.Logger, sim *engine.Simulation, addr string) *http.Server {
	checker := health.NewChecker()
	checker.Add(health.NewTickCheck(sim.LastStep, 10*sim.Config.TickDuration()))
	checker.Add(health.NewBreakerCheck(sim.BreakerState))
	checker.Add(health.NewDetectionCheck(sim.Stats))

	server := &http.Server{
		Addr:         addr,
		Handler:      checker.Handler(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info(ctx, "Starting health check server",
			"address", addr,
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error(ctx, "Health check server failed", err)
		}
	}()
	return server
}
