// Package constants provides shared constants for the deal financial analysis engine.
package constants

import "time"

// Financial constants
const (
	// PercentageMultiplier is used for percentage conversions
	PercentageMultiplier = 100.0

	// DaysPerYear is used to annualize per-resident-day amounts
	DaysPerYear = 365.0
)

// Variance classification thresholds, in percent of the benchmark.
const (
	// VarianceTolerancePct is the band inside which an off-target metric is
	// reported as above/below target rather than critical.
	VarianceTolerancePct = 10.0
)

// Opportunity model constants
const (
	// IncrementalFlowThrough is the share of incremental revenue that reaches EBITDA.
	IncrementalFlowThrough = 0.60

	// PrivatePayRatePremium is the rate premium of private-pay days over the payer mix.
	PrivatePayRatePremium = 0.25

	// AgencyPremiumRecovery is the share of agency spend recovered by converting to staff.
	AgencyPremiumRecovery = 1.0 / 3.0
)

// Output format constants
const (
	// OutputFormatPretty is the human-readable output format
	OutputFormatPretty = "pretty"

	// OutputFormatCSV is the CSV output format
	OutputFormatCSV = "csv"
)

// Configuration file constants
const (
	// DefaultConfigFile is the default configuration file name
	DefaultConfigFile = "config.yaml"

	// DefaultServerConfigFile is the default server configuration file name
	DefaultServerConfigFile = "server-config.yaml"

	// EnvPrefix is the prefix for environment overrides of config keys
	EnvPrefix = "DEAL_ENGINE"
)

// Server configuration defaults
const (
	// DefaultServerAddress is the default HTTP listen address
	DefaultServerAddress = ":8080"

	// DefaultMaxBodySizeBytes is the default maximum JSON request body (256 KB)
	DefaultMaxBodySizeBytes int64 = 256 * 1024

	// DefaultReadTimeout is the default HTTP read timeout
	DefaultReadTimeout = 15 * time.Second

	// DefaultWriteTimeout is the default HTTP write timeout
	DefaultWriteTimeout = 30 * time.Second
)

// Engine defaults
const (
	// DefaultDebounceWindow is the recompute window for benchmark edits
	DefaultDebounceWindow = 500 * time.Millisecond

	// DefaultCalculatorTimeout bounds a single call to the calculation collaborator
	DefaultCalculatorTimeout = 10 * time.Second

	// DefaultDatabaseMaxConns is the default pgx pool size
	DefaultDatabaseMaxConns = 10

	// DefaultSessionID is used when a client does not name its session
	DefaultSessionID = "default"
)

// Extraction source kinds
const (
	ExtractionSourceMemory   = "memory"
	ExtractionSourceFile     = "file"
	ExtractionSourcePostgres = "postgres"
)

// Calculator modes
const (
	CalculatorModeLocal  = "local"
	CalculatorModeRemote = "remote"
)
