// Package mathutil provides common mathematical utility functions.
package mathutil

import (
	"math"

	"github.com/Nikonomics/PostAcutePulse-sub001/pkg/constants"
)

// WithinTolerance checks if two values are within a specified tolerance
func WithinTolerance(val1, val2, tolerance float64) bool {
	return math.Abs(val1-val2) <= tolerance
}

// IsFinite reports whether val is neither NaN nor infinite.
func IsFinite(val float64) bool {
	return !math.IsNaN(val) && !math.IsInf(val, 0)
}

// CalculatePercentage calculates what percentage value is of total
func CalculatePercentage(value, total float64) float64 {
	if total == 0 {
		return 0
	}
	return (value / total) * constants.PercentageMultiplier
}

// ApplyPercentage applies a percentage to a value
func ApplyPercentage(value, percentage float64) float64 {
	return value * (percentage / constants.PercentageMultiplier)
}

// FiniteFloat returns a pointer to v, or nil when v is NaN or infinite.
func FiniteFloat(v float64) *float64 {
	if !IsFinite(v) {
		return nil
	}
	return &v
}

// Float returns a pointer to v.
func Float(v float64) *float64 {
	return &v
}

// CopyFloat returns a fresh pointer holding the same value, or nil.
func CopyFloat(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// EqualFloat is strict equality over optional values: nil equals only nil.
func EqualFloat(a, b *float64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// Positive reports whether p is present and greater than zero.
func Positive(p *float64) bool {
	return p != nil && *p > 0
}

// NonZero reports whether p is present and not zero.
func NonZero(p *float64) bool {
	return p != nil && *p != 0
}
