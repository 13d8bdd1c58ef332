// Package config defines the data structures related to configuration and
// includes functions for loading and validating it.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/Nikonomics/PostAcutePulse-sub001/internal/benchmark"
	"github.com/Nikonomics/PostAcutePulse-sub001/pkg/constants"
	"github.com/Nikonomics/PostAcutePulse-sub001/pkg/validation"
)

// Configuration holds all configuration for the deal engine.
type Configuration struct {
	Logging    LoggingConfig      `yaml:"logging,omitempty"`
	Output     OutputConfig       `yaml:"output,omitempty"`
	Database   DatabaseConfig     `yaml:"database,omitempty"`
	Extraction ExtractionConfig   `yaml:"extraction,omitempty"`
	Calculator CalculatorConfig   `yaml:"calculator,omitempty"`
	Engine     EngineConfig       `yaml:"engine,omitempty"`
	Benchmarks map[string]float64 `yaml:"benchmarks,omitempty"` // overrides of the default targets
}

// LoggingConfig holds logging configuration options
type LoggingConfig struct {
	Level      string `yaml:"level,omitempty"`      // debug, info, warn, error
	Format     string `yaml:"format,omitempty"`     // json, console
	OutputFile string `yaml:"outputFile,omitempty"` // optional file output
}

// OutputConfig holds output format configuration options
type OutputConfig struct {
	Format string `yaml:"format,omitempty"` // pretty, csv
}

// DatabaseConfig points at the Postgres scenario store. An empty URL keeps
// scenarios in memory.
type DatabaseConfig struct {
	URL      string `yaml:"url,omitempty"`
	MaxConns int32  `yaml:"maxConns,omitempty"`
	Migrate  bool   `yaml:"migrate,omitempty"`
}

// ExtractionConfig selects where deal metrics are read from.
type ExtractionConfig struct {
	Source    string `yaml:"source,omitempty"`    // memory, file, postgres
	Directory string `yaml:"directory,omitempty"` // for the file source
}

// CalculatorConfig selects the opportunity calculator.
type CalculatorConfig struct {
	Mode      string        `yaml:"mode,omitempty"` // local, remote
	BaseURL   string        `yaml:"baseURL,omitempty"`
	AuthToken string        `yaml:"authToken,omitempty"`
	Timeout   time.Duration `yaml:"timeout,omitempty"`
}

// EngineConfig tunes recomputation.
type EngineConfig struct {
	DebounceWindow time.Duration `yaml:"debounceWindow,omitempty"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.outputFile", "")
	v.SetDefault("output.format", constants.OutputFormatPretty)
	v.SetDefault("database.url", "")
	v.SetDefault("database.maxConns", constants.DefaultDatabaseMaxConns)
	v.SetDefault("database.migrate", true)
	v.SetDefault("extraction.source", constants.ExtractionSourceFile)
	v.SetDefault("extraction.directory", "deals")
	v.SetDefault("calculator.mode", constants.CalculatorModeLocal)
	v.SetDefault("calculator.baseURL", "")
	v.SetDefault("calculator.authToken", "")
	v.SetDefault("calculator.timeout", constants.DefaultCalculatorTimeout)
	v.SetDefault("engine.debounceWindow", constants.DefaultDebounceWindow)
}

// LoadEnvFile loads KEY=value pairs from path into the process environment.
// A missing file is not an error.
func LoadEnvFile(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("error reading env file %s: %w", path, err)
	}
	return nil
}

// LoadConfiguration reads the YAML configuration at configPath, applies
// defaults and DEAL_ENGINE_* environment overrides. An empty path uses
// defaults and the environment only.
func LoadConfiguration(configPath string) (*Configuration, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(constants.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file, %s", err)
		}
	}

	var configuration Configuration
	if err := v.Unmarshal(&configuration); err != nil {
		return nil, fmt.Errorf("unable to decode into struct, %s", err)
	}
	configuration.normalize()

	return &configuration, nil
}

func (c *Configuration) normalize() {
	c.Extraction.Source = strings.ToLower(strings.TrimSpace(c.Extraction.Source))
	c.Calculator.Mode = strings.ToLower(strings.TrimSpace(c.Calculator.Mode))
	c.Output.Format = strings.ToLower(strings.TrimSpace(c.Output.Format))
	if c.Database.MaxConns <= 0 {
		c.Database.MaxConns = constants.DefaultDatabaseMaxConns
	}
	if c.Calculator.Timeout <= 0 {
		c.Calculator.Timeout = constants.DefaultCalculatorTimeout
	}
	if c.Engine.DebounceWindow <= 0 {
		c.Engine.DebounceWindow = constants.DefaultDebounceWindow
	}
}

// BenchmarkSet returns the default benchmarks with the configured overrides.
func (c *Configuration) BenchmarkSet() (benchmark.Set, error) {
	overrides := make(benchmark.Overrides, len(c.Benchmarks))
	for name, value := range c.Benchmarks {
		key, err := benchmark.ParseKey(name)
		if err != nil {
			return benchmark.Set{}, err
		}
		overrides[key] = value
	}
	set := benchmark.Merge(benchmark.Defaults(), overrides)
	if err := validation.ValidateBenchmarks(set); err != nil {
		return benchmark.Set{}, err
	}
	return set, nil
}

// ValidateConfiguration performs general validation of the configuration and returns warnings
func (c *Configuration) ValidateConfiguration() []string {
	var warnings []string

	if err := validation.ValidateLogLevel(c.Logging.Level); err != nil {
		warnings = append(warnings, err.Error())
	}
	if err := validation.ValidateOutputFormat(c.Output.Format); err != nil {
		warnings = append(warnings, err.Error())
	}

	switch c.Extraction.Source {
	case constants.ExtractionSourceFile:
		if c.Extraction.Directory == "" {
			warnings = append(warnings, "extraction source is file but no directory is configured")
		}
	case constants.ExtractionSourcePostgres:
		if c.Database.URL == "" {
			warnings = append(warnings, "extraction source is postgres but database.url is empty")
		}
	case constants.ExtractionSourceMemory:
	default:
		warnings = append(warnings, fmt.Sprintf("unknown extraction source %q", c.Extraction.Source))
	}

	switch c.Calculator.Mode {
	case constants.CalculatorModeRemote:
		if c.Calculator.BaseURL == "" {
			warnings = append(warnings, "calculator mode is remote but calculator.baseURL is empty; falling back to local")
		}
	case constants.CalculatorModeLocal:
	default:
		warnings = append(warnings, fmt.Sprintf("unknown calculator mode %q; falling back to local", c.Calculator.Mode))
	}

	if _, err := c.BenchmarkSet(); err != nil {
		warnings = append(warnings, fmt.Sprintf("benchmark overrides ignored: %v", err))
	}

	return warnings
}
