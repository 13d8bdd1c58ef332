package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/Nikonomics/PostAcutePulse-sub001/internal/app"
	"github.com/Nikonomics/PostAcutePulse-sub001/internal/config"
	"github.com/Nikonomics/PostAcutePulse-sub001/internal/extraction"
	"github.com/Nikonomics/PostAcutePulse-sub001/internal/store/postgres"
	"github.com/Nikonomics/PostAcutePulse-sub001/internal/valuation"
	"github.com/Nikonomics/PostAcutePulse-sub001/pkg/constants"
	"github.com/Nikonomics/PostAcutePulse-sub001/pkg/output"
	"github.com/Nikonomics/PostAcutePulse-sub001/pkg/validation"
)

// readRecord decodes a single extraction record from a YAML or JSON file.
func readRecord(path string) (extraction.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return extraction.Record{}, err
	}
	var record extraction.Record
	if err := yaml.Unmarshal(data, &record); err != nil {
		return extraction.Record{}, fmt.Errorf("error reading metrics file %s: %w", path, err)
	}
	return record, nil
}

func main() {
	// Process command line flags first to get config location
	configLocation := flag.String("config", constants.DefaultConfigFile, "path to configuration file")
	envFile := flag.String("env-file", ".env", "optional file of DEAL_ENGINE_* environment overrides")
	outputFormatFlag := flag.String("output-format", "", "type of output override: pretty, csv")
	logLevel := flag.String("log-level", "", "log level override (debug, info, warn, error)")
	dealID := flag.String("deal", "", "deal id to read from the configured extraction source")
	metricsFile := flag.String("metrics-file", "", "YAML or JSON extraction record to analyze instead of -deal")
	importRecord := flag.Bool("import", false, "store the -metrics-file record in Postgres before analyzing")
	driverName := flag.String("driver", "", "valuation driver (pricePerBed, revenueMultiple, ebitdaMultiple, ebitdarMultiple, capRate)")
	driverValue := flag.Float64("value", 0, "valuation driver value")
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

	logger, err := app.InitializeLogger(conf.Logging, *logLevel)
	if err != nil {
		fmt.Printf("{\"op\": \"main\", \"level\": \"fatal\", \"msg\": \"failed to initialize logger\", \"error\": \"%v\"}\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync()
	}()

	// CLI override takes precedence over config
	outputFormat := conf.Output.Format
	if *outputFormatFlag != "" {
		outputFormat = *outputFormatFlag
	}
	if err := validation.ValidateOutputFormat(outputFormat); err != nil {
		logger.Fatal(err.Error(),
			zap.String("op", "main"),
		)
	}

	for _, warning := range conf.ValidateConfiguration() {
		logger.Warn("Configuration warning: "+warning,
			zap.String("op", "main"),
		)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	components, err := app.Build(ctx, conf, logger, nil)
	if err != nil {
		logger.Fatal("failed to build engine components",
			zap.String("op", "main"),
			zap.Error(err),
		)
	}
	defer components.Close()

	var record extraction.Record
	switch {
	case *metricsFile != "":
		record, err = readRecord(*metricsFile)
		if err == nil && *dealID != "" {
			record.DealID = *dealID
		}
	case *dealID != "":
		record, err = components.Source.Fetch(ctx, *dealID)
	default:
		err = fmt.Errorf("one of -deal or -metrics-file is required")
	}
	if err != nil {
		logger.Fatal("failed to read deal metrics",
			zap.String("op", "main"),
			zap.Error(err),
		)
	}

	if *importRecord {
		if components.DB == nil || record.DealID == "" {
			logger.Fatal("-import requires database.url and a deal id",
				zap.String("op", "main"),
			)
		}
		if err := postgres.NewExtractionSource(components.DB).Put(ctx, record); err != nil {
			logger.Fatal("failed to import deal metrics",
				zap.String("op", "main"),
				zap.Error(err),
			)
		}
		logger.Info("Imported deal metrics",
			zap.String("op", "main"),
			zap.String("dealID", record.DealID),
		)
	}

	analysis, err := components.Engine.Analyze(ctx, record.DealID, record.Inputs(), components.Benchmarks)
	if err != nil {
		logger.Fatal("failed to compute opportunity analysis",
			zap.String("op", "main"),
			zap.Error(err),
		)
	}

	switch outputFormat {
	case constants.OutputFormatPretty:
		output.PrettyReport(os.Stdout, extraction.BuildReport(record))
		if *driverName != "" {
			driver, err := valuation.ParseDriver(*driverName)
			if err != nil {
				logger.Fatal("invalid valuation driver",
					zap.String("op", "main"),
					zap.Error(err),
				)
			}
			fmt.Println()
			output.PrettyValuation(os.Stdout, driver, *driverValue, valuation.Compute(record.Snapshot(), driver, *driverValue))
		}
		fmt.Println()
		output.PrettyAnalysis(os.Stdout, analysis)
	case constants.OutputFormatCSV:
		output.CsvAnalysis(os.Stdout, analysis)
	}
}
