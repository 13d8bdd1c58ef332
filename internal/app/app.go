// Package app assembles the engine's collaborators from configuration. Both
// binaries share it.
package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/Nikonomics/PostAcutePulse-sub001/internal/benchmark"
	"github.com/Nikonomics/PostAcutePulse-sub001/internal/calcclient"
	"github.com/Nikonomics/PostAcutePulse-sub001/internal/config"
	"github.com/Nikonomics/PostAcutePulse-sub001/internal/extraction"
	"github.com/Nikonomics/PostAcutePulse-sub001/internal/scenario"
	"github.com/Nikonomics/PostAcutePulse-sub001/internal/store/postgres"
	"github.com/Nikonomics/PostAcutePulse-sub001/internal/telemetry"
	"github.com/Nikonomics/PostAcutePulse-sub001/pkg/constants"
)

// InitializeLogger creates a zap logger based on configuration and CLI override
func InitializeLogger(loggingConfig config.LoggingConfig, logLevelOverride string) (*zap.Logger, error) {
	// CLI override takes precedence
	level := loggingConfig.Level
	if logLevelOverride != "" {
		level = logLevelOverride
	}
	if level == "" {
		level = "info"
	}

	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn", "warning":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		return nil, fmt.Errorf("invalid log level: %s", level)
	}

	format := loggingConfig.Format
	if format == "" {
		format = "json"
	}

	var zapConfig zap.Config
	switch format {
	case "console":
		zapConfig = zap.NewDevelopmentConfig()
	case "json":
		zapConfig = zap.NewProductionConfig()
	default:
		return nil, fmt.Errorf("invalid log format: %s", format)
	}
	zapConfig.Level = zap.NewAtomicLevelAt(zapLevel)

	if loggingConfig.OutputFile != "" {
		if dir := filepath.Dir(loggingConfig.OutputFile); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create log directory %s: %v", dir, err)
			}
		}

		file, err := os.OpenFile(loggingConfig.OutputFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file %s: %v", loggingConfig.OutputFile, err)
		}
		_ = file.Close()

		zapConfig.OutputPaths = []string{loggingConfig.OutputFile}
		zapConfig.ErrorOutputPaths = []string{loggingConfig.OutputFile}
	}

	return zapConfig.Build()
}

// Components are the wired collaborators.
type Components struct {
	DB         *postgres.DB
	Source     extraction.Source
	Engine     *benchmark.Engine
	Scenarios  *scenario.Service
	Benchmarks benchmark.Set
}

// Build connects storage, picks the extraction source and the calculator.
// Callers must Close the result.
func Build(ctx context.Context, cfg *config.Configuration, logger *zap.Logger, metrics *telemetry.Metrics) (*Components, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Components{Benchmarks: benchmark.Defaults()}

	if set, err := cfg.BenchmarkSet(); err == nil {
		c.Benchmarks = set
	}

	if cfg.Database.URL != "" {
		db, err := postgres.Connect(ctx, cfg.Database.URL, cfg.Database.MaxConns)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		c.DB = db
		if cfg.Database.Migrate {
			if err := db.Migrate(ctx, logger); err != nil {
				db.Close()
				return nil, fmt.Errorf("failed to migrate database: %w", err)
			}
		}
	}

	source, err := c.source(cfg, logger)
	if err != nil {
		c.Close()
		return nil, err
	}
	c.Source = source

	calc, err := calculator(cfg, logger)
	if err != nil {
		c.Close()
		return nil, err
	}
	c.Engine = benchmark.NewEngine(logger, calc, metrics)

	var repo scenario.Repository = scenario.NewMemoryRepository()
	if c.DB != nil {
		repo = postgres.NewScenarioRepository(c.DB)
	}
	c.Scenarios = scenario.NewService(logger, repo, metrics)

	logger.Info("Engine components ready",
		zap.String("op", "app.Build"),
		zap.String("source", cfg.Extraction.Source),
		zap.String("calculator", calculatorMode(cfg)),
		zap.Bool("postgres", c.DB != nil),
	)
	return c, nil
}

func (c *Components) source(cfg *config.Configuration, logger *zap.Logger) (extraction.Source, error) {
	switch cfg.Extraction.Source {
	case constants.ExtractionSourceMemory:
		return extraction.NewMemorySource(), nil
	case constants.ExtractionSourcePostgres:
		if c.DB == nil {
			return nil, fmt.Errorf("extraction source %s requires database.url", cfg.Extraction.Source)
		}
		return postgres.NewExtractionSource(c.DB), nil
	case constants.ExtractionSourceFile, "":
		return extraction.NewFileSource(logger, cfg.Extraction.Directory), nil
	}
	return nil, fmt.Errorf("unknown extraction source %q", cfg.Extraction.Source)
}

func calculatorMode(cfg *config.Configuration) string {
	if cfg.Calculator.Mode == constants.CalculatorModeRemote && cfg.Calculator.BaseURL != "" {
		return constants.CalculatorModeRemote
	}
	return constants.CalculatorModeLocal
}

// calculator returns nil for the local calculator.
func calculator(cfg *config.Configuration, logger *zap.Logger) (benchmark.Calculator, error) {
	if calculatorMode(cfg) != constants.CalculatorModeRemote {
		return nil, nil
	}
	client, err := calcclient.New(logger, calcclient.Options{
		BaseURL:   cfg.Calculator.BaseURL,
		AuthToken: cfg.Calculator.AuthToken,
		Timeout:   cfg.Calculator.Timeout,
	})
	if err != nil {
		return nil, err
	}
	return client, nil
}

// Close releases the database pool, if any.
func (c *Components) Close() {
	if c.DB != nil {
		c.DB.Close()
	}
}
