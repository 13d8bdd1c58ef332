// Package validation provides common validation utilities.
package validation

import (
	"fmt"
	"math"

	"github.com/Nikonomics/PostAcutePulse-sub001/internal/benchmark"
	"github.com/Nikonomics/PostAcutePulse-sub001/pkg/constants"
)

// ValidateOutputFormat checks if the output format is one of the supported formats.
func ValidateOutputFormat(format string) error {
	if format != constants.OutputFormatPretty && format != constants.OutputFormatCSV {
		return fmt.Errorf("expected output format of %s or %s, got %s",
			constants.OutputFormatPretty, constants.OutputFormatCSV, format)
	}
	return nil
}

// ValidateLogLevel checks the level against the levels zap understands.
func ValidateLogLevel(level string) error {
	switch level {
	case "debug", "info", "warn", "error":
		return nil
	}
	return fmt.Errorf("expected log level of debug, info, warn or error, got %s", level)
}

// ValidateBenchmarks checks every target of set for a finite value inside
// its plausible range. Percentages must lie in [0, 100]; food cost per day
// must be non-negative.
func ValidateBenchmarks(set benchmark.Set) error {
	for _, k := range benchmark.Keys() {
		if err := ValidateBenchmark(k, set.Get(k)); err != nil {
			return err
		}
	}
	return nil
}

// ValidateBenchmark checks a single target value.
func ValidateBenchmark(k benchmark.Key, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("benchmark %s must be a finite number", k)
	}
	if v < 0 {
		return fmt.Errorf("benchmark %s must not be negative, got %v", k, v)
	}
	if k != benchmark.KeyFoodCostPerDay && v > constants.PercentageMultiplier {
		return fmt.Errorf("benchmark %s must be at most 100%%, got %v", k, v)
	}
	return nil
}
