package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/Nikonomics/PostAcutePulse-sub001/internal/app"
	"github.com/Nikonomics/PostAcutePulse-sub001/internal/config"
	"github.com/Nikonomics/PostAcutePulse-sub001/internal/dealview"
	"github.com/Nikonomics/PostAcutePulse-sub001/internal/server"
	"github.com/Nikonomics/PostAcutePulse-sub001/internal/telemetry"
	"github.com/Nikonomics/PostAcutePulse-sub001/pkg/constants"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

const shutdownTimeout = 10 * time.Second

func main() {
	configLocation := flag.String("config", constants.DefaultConfigFile, "path to engine configuration file")
	serverConfigLocation := flag.String("server-config", constants.DefaultServerConfigFile, "path to server configuration file")
	envFile := flag.String("env-file", ".env", "optional file of DEAL_ENGINE_* environment overrides")
	logLevel := flag.String("log-level", "", "log level override (debug, info, warn, error)")
	flag.Parse()

	if err := config.LoadEnvFile(*envFile); err != nil {
		fmt.Printf("{\"op\": \"main\", \"level\": \"fatal\", \"msg\": \"failed to load env file\", \"error\": \"%v\"}\n", err)
		os.Exit(1)
	}

	configPath := *configLocation
	if _, err := os.Stat(configPath); err != nil && configPath == constants.DefaultConfigFile {
		configPath = ""
	}
	conf, err := config.LoadConfiguration(configPath)
	if err != nil {
		fmt.Printf("{\"op\": \"main\", \"level\": \"fatal\", \"msg\": \"failed to load configuration at %s\", \"error\": \"%v\"}\n", *configLocation, err)
		os.Exit(1)
	}

	srvCfg, err := server.LoadConfig(*serverConfigLocation)
	if err != nil {
		fmt.Printf("{\"op\": \"main\", \"level\": \"fatal\", \"msg\": \"failed to load server configuration at %s\", \"error\": \"%v\"}\n", *serverConfigLocation, err)
		os.Exit(1)
	}

	// Server logging settings win over the engine's when present.
	loggingCfg := conf.Logging
	if srvCfg.Logging != (config.LoggingConfig{}) {
		loggingCfg = srvCfg.Logging
	}
	logger, err := app.InitializeLogger(loggingCfg, *logLevel)
	if err != nil {
		fmt.Printf("{\"op\": \"main\", \"level\": \"fatal\", \"msg\": \"failed to initialize logger\", \"error\": \"%v\"}\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync()
	}()

	for _, warning := range conf.ValidateConfiguration() {
		logger.Warn("Configuration warning: "+warning,
			zap.String("op", "main"),
		)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics := telemetry.NewMetrics()
	components, err := app.Build(ctx, conf, logger, metrics)
	if err != nil {
		logger.Fatal("failed to build engine components",
			zap.String("op", "main"),
			zap.Error(err),
		)
	}
	defer components.Close()

	sessions := dealview.NewRegistry(dealview.Deps{
		Source:         components.Source,
		Engine:         components.Engine,
		Scenarios:      components.Scenarios,
		Logger:         logger,
		Metrics:        metrics,
		DebounceWindow: conf.Engine.DebounceWindow,
	})
	defer sessions.Close()

	handler := server.NewHandler(server.Options{
		Logger:         logger,
		Source:         components.Source,
		Engine:         components.Engine,
		Scenarios:      components.Scenarios,
		Sessions:       sessions,
		Metrics:        metrics,
		MaxBodySize:    srvCfg.BodySizeBytes(),
		AllowedOrigins: srvCfg.AllowedOrigins,
		Version:        version,
	})

	httpServer := &http.Server{
		Addr:         srvCfg.Address,
		Handler:      handler,
		ReadTimeout:  srvCfg.ReadTimeout,
		WriteTimeout: srvCfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Listening",
			zap.String("op", "main"),
			zap.String("address", srvCfg.Address),
			zap.String("version", version),
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		logger.Info("Shutting down",
			zap.String("op", "main"),
		)
	case err := <-errCh:
		if err != nil {
			logger.Error("server error",
				zap.String("op", "main"),
				zap.Error(err),
			)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed",
			zap.String("op", "main"),
			zap.Error(err),
		)
	}
}
