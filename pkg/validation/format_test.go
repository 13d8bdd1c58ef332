package validation

import (
	"math"
	"testing"

	"github.com/Nikonomics/PostAcutePulse-sub001/internal/benchmark"
)

func TestValidateOutputFormat(t *testing.T) {
	tests := []struct {
		name      string
		format    string
		expectErr bool
	}{
		{
			name:      "Valid pretty format",
			format:    "pretty",
			expectErr: false,
		},
		{
			name:      "Valid csv format",
			format:    "csv",
			expectErr: false,
		},
		{
			name:      "Invalid format",
			format:    "json",
			expectErr: true,
		},
		{
			name:      "Empty format",
			format:    "",
			expectErr: true,
		},
		{
			name:      "Case sensitive - uppercase",
			format:    "PRETTY",
			expectErr: true,
		},
		{
			name:      "Case sensitive - mixed case",
			format:    "Pretty",
			expectErr: true,
		},
		{
			name:      "Case sensitive - CSV uppercase",
			format:    "CSV",
			expectErr: true,
		},
		{
			name:      "Leading/trailing spaces",
			format:    " pretty ",
			expectErr: true,
		},
		{
			name:      "Similar but incorrect format",
			format:    "prettyprint",
			expectErr: true,
		},
		{
			name:      "XML format not supported",
			format:    "xml",
			expectErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateOutputFormat(tt.format)

			if tt.expectErr {
				if err == nil {
					t.Errorf("ValidateOutputFormat(%s) expected error but got none", tt.format)
				}
			} else {
				if err != nil {
					t.Errorf("ValidateOutputFormat(%s) unexpected error = %v", tt.format, err)
				}
			}
		})
	}
}

func TestValidateOutputFormatErrorMessage(t *testing.T) {
	// Test that error messages are informative
	invalidFormats := []string{"json", "xml", "yaml", ""}

	for _, format := range invalidFormats {
		err := ValidateOutputFormat(format)
		if err == nil {
			t.Errorf("Expected error for format '%s'", format)
			continue
		}

		// Check that error message contains the invalid format
		errorMsg := err.Error()
		if format != "" && errorMsg != "" {
			// For non-empty formats, the error should mention the format
			// This is a basic check - the actual error message format may vary
			if len(errorMsg) < 10 { // Ensure we have a meaningful error message
				t.Errorf("Error message too short for format '%s': %s", format, errorMsg)
			}
		}
	}
}

func TestValidateOutputFormatBoundaryConditions(t *testing.T) {
	// Test boundary conditions and edge cases
	tests := []struct {
		name      string
		format    string
		expectErr bool
	}{
		{
			name:      "Single character",
			format:    "p",
			expectErr: true,
		},
		{
			name:      "Very long invalid format",
			format:    "this-is-a-very-long-invalid-format-name",
			expectErr: true,
		},
		{
			name:      "Special characters",
			format:    "pretty!",
			expectErr: true,
		},
		{
			name:      "Numbers",
			format:    "pretty123",
			expectErr: true,
		},
		{
			name:      "Underscore format",
			format:    "pretty_format",
			expectErr: true,
		},
		{
			name:      "Hyphen format",
			format:    "pretty-format",
			expectErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateOutputFormat(tt.format)

			if tt.expectErr {
				if err == nil {
					t.Errorf("ValidateOutputFormat(%s) expected error but got none", tt.format)
				}
			} else {
				if err != nil {
					t.Errorf("ValidateOutputFormat(%s) unexpected error = %v", tt.format, err)
				}
			}
		})
	}
}

func TestValidateLogLevel(t *testing.T) {
	tests := []struct {
		level     string
		expectErr bool
	}{
		{level: "debug"},
		{level: "info"},
		{level: "warn"},
		{level: "error"},
		{level: "verbose", expectErr: true},
		{level: "", expectErr: true},
		{level: "INFO", expectErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			err := ValidateLogLevel(tt.level)
			if (err != nil) != tt.expectErr {
				t.Errorf("ValidateLogLevel(%q) error = %v, expectErr %v", tt.level, err, tt.expectErr)
			}
		})
	}
}

func TestValidateBenchmark(t *testing.T) {
	tests := []struct {
		name      string
		key       benchmark.Key
		value     float64
		expectErr bool
	}{
		{name: "Typical occupancy", key: benchmark.KeyOccupancy, value: 85},
		{name: "Zero is allowed", key: benchmark.KeyBadDebtPct, value: 0},
		{name: "Full occupancy", key: benchmark.KeyOccupancy, value: 100},
		{name: "Negative percentage", key: benchmark.KeyLaborPct, value: -1, expectErr: true},
		{name: "Percentage above 100", key: benchmark.KeyOccupancy, value: 101, expectErr: true},
		{name: "Food cost is dollars", key: benchmark.KeyFoodCostPerDay, value: 150},
		{name: "Negative food cost", key: benchmark.KeyFoodCostPerDay, value: -2, expectErr: true},
		{name: "NaN", key: benchmark.KeyInsurancePct, value: math.NaN(), expectErr: true},
		{name: "Infinity", key: benchmark.KeyUtilitiesPct, value: math.Inf(1), expectErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateBenchmark(tt.key, tt.value)
			if (err != nil) != tt.expectErr {
				t.Errorf("ValidateBenchmark(%s, %v) error = %v, expectErr %v", tt.key, tt.value, err, tt.expectErr)
			}
		})
	}
}

func TestValidateBenchmarksDefaults(t *testing.T) {
	if err := ValidateBenchmarks(benchmark.Defaults()); err != nil {
		t.Errorf("ValidateBenchmarks(Defaults()) error = %v", err)
	}
	bad := benchmark.Defaults().With(benchmark.KeyEbitdaMargin, 120)
	if err := ValidateBenchmarks(bad); err == nil {
		t.Errorf("ValidateBenchmarks() accepted a 120%% margin")
	}
}
