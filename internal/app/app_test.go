package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/Nikonomics/PostAcutePulse-sub001/internal/calcclient"
	"github.com/Nikonomics/PostAcutePulse-sub001/internal/config"
	"github.com/Nikonomics/PostAcutePulse-sub001/internal/extraction"
	"github.com/Nikonomics/PostAcutePulse-sub001/pkg/constants"
)

func TestInitializeLogger(t *testing.T) {
	tests := []struct {
		name      string
		config    config.LoggingConfig
		override  string
		wantError bool
	}{
		{name: "Defaults", config: config.LoggingConfig{}},
		{name: "Console debug", config: config.LoggingConfig{Level: "debug", Format: "console"}},
		{name: "Override wins", config: config.LoggingConfig{Level: "bogus"}, override: "warn"},
		{name: "Invalid level", config: config.LoggingConfig{Level: "bogus"}, wantError: true},
		{name: "Invalid format", config: config.LoggingConfig{Format: "xml"}, wantError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := InitializeLogger(tt.config, tt.override)
			if tt.wantError {
				if err == nil {
					t.Errorf("InitializeLogger() expected error but got none")
				}
				return
			}
			if err != nil || logger == nil {
				t.Fatalf("InitializeLogger() = %v, %v", logger, err)
			}
		})
	}
}

func TestInitializeLoggerOutputFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "engine.log")
	logger, err := InitializeLogger(config.LoggingConfig{Level: "info", OutputFile: path}, "")
	if err != nil {
		t.Fatalf("InitializeLogger() error = %v", err)
	}
	logger.Info("hello", zap.String("op", "test"))
	_ = logger.Sync()
	if _, err := os.Stat(path); err != nil {
		t.Errorf("log file not created: %v", err)
	}
}

func baseConfig(t *testing.T) *config.Configuration {
	t.Helper()
	cfg, err := config.LoadConfiguration("")
	if err != nil {
		t.Fatalf("LoadConfiguration() error = %v", err)
	}
	cfg.Extraction.Directory = t.TempDir()
	return cfg
}

func TestBuildLocalComponents(t *testing.T) {
	tests := []struct {
		name   string
		source string
		check  func(extraction.Source) bool
	}{
		{
			name:   "File source",
			source: constants.ExtractionSourceFile,
			check:  func(s extraction.Source) bool { _, ok := s.(*extraction.FileSource); return ok },
		},
		{
			name:   "Memory source",
			source: constants.ExtractionSourceMemory,
			check:  func(s extraction.Source) bool { _, ok := s.(*extraction.MemorySource); return ok },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := baseConfig(t)
			cfg.Extraction.Source = tt.source
			c, err := Build(context.Background(), cfg, zap.NewNop(), nil)
			if err != nil {
				t.Fatalf("Build() error = %v", err)
			}
			defer c.Close()
			if !tt.check(c.Source) {
				t.Errorf("unexpected source %T", c.Source)
			}
			if c.DB != nil || c.Engine == nil || c.Scenarios == nil {
				t.Errorf("unexpected components %+v", c)
			}
		})
	}
}

func TestBuildErrors(t *testing.T) {
	cfg := baseConfig(t)
	cfg.Extraction.Source = constants.ExtractionSourcePostgres
	if _, err := Build(context.Background(), cfg, nil, nil); err == nil {
		t.Errorf("Build() expected error for postgres source without database")
	}

	cfg = baseConfig(t)
	cfg.Extraction.Source = "s3"
	if _, err := Build(context.Background(), cfg, nil, nil); err == nil {
		t.Errorf("Build() expected error for unknown source")
	}

	cfg = baseConfig(t)
	cfg.Calculator.Mode = constants.CalculatorModeRemote
	cfg.Calculator.BaseURL = "not a url"
	if _, err := Build(context.Background(), cfg, nil, nil); err == nil {
		t.Errorf("Build() expected error for malformed calculator URL")
	}
}

func TestCalculatorSelection(t *testing.T) {
	cfg := baseConfig(t)
	calc, err := calculator(cfg, zap.NewNop())
	if err != nil || calc != nil {
		t.Fatalf("local mode should use the built-in calculator, got %T, %v", calc, err)
	}

	cfg.Calculator.Mode = constants.CalculatorModeRemote
	if calculatorMode(cfg) != constants.CalculatorModeLocal {
		t.Errorf("remote mode without baseURL should fall back to local")
	}

	cfg.Calculator.BaseURL = "http://calc.internal"
	calc, err = calculator(cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("calculator() error = %v", err)
	}
	if _, ok := calc.(*calcclient.Client); !ok {
		t.Errorf("expected a remote client, got %T", calc)
	}
}

func TestBuildAppliesConfiguredBenchmarks(t *testing.T) {
	cfg := baseConfig(t)
	cfg.Benchmarks = map[string]float64{"occupancy_target": 91}
	c, err := Build(context.Background(), cfg, nil, nil)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	defer c.Close()
	if c.Benchmarks.OccupancyTarget != 91 {
		t.Errorf("OccupancyTarget = %v, expected 91", c.Benchmarks.OccupancyTarget)
	}
}
