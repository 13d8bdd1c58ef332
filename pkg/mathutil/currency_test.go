package mathutil

import (
	"math"
	"testing"
)

func TestWithinTolerance(t *testing.T) {
	tests := []struct {
		name      string
		val1      float64
		val2      float64
		tolerance float64
		expected  bool
	}{
		{"Exactly equal", 1.0, 1.0, 0.1, true},
		{"Within tolerance", 1.0, 1.05, 0.1, true},
		{"Outside tolerance", 1.0, 1.15, 0.1, false},
		{"Zero tolerance exact match", 1.0, 1.0, 0.0, true},
		{"Zero tolerance no match", 1.0, 1.001, 0.0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := WithinTolerance(tt.val1, tt.val2, tt.tolerance)
			if result != tt.expected {
				t.Errorf("WithinTolerance(%v, %v, %v) = %v, expected %v",
					tt.val1, tt.val2, tt.tolerance, result, tt.expected)
			}
		})
	}
}

func TestIsFinite(t *testing.T) {
	if !IsFinite(1.5) {
		t.Errorf("IsFinite(1.5) = false, expected true")
	}
	if IsFinite(math.NaN()) {
		t.Errorf("IsFinite(NaN) = true, expected false")
	}
	if IsFinite(math.Inf(-1)) {
		t.Errorf("IsFinite(-Inf) = true, expected false")
	}
}

func TestCalculatePercentage(t *testing.T) {
	tests := []struct {
		name     string
		value    float64
		total    float64
		expected float64
	}{
		{"50% of 100", 50.0, 100.0, 50.0},
		{"25% of 200", 50.0, 200.0, 25.0},
		{"Zero total", 50.0, 0.0, 0.0},
		{"Negative total", 50.0, -100.0, -50.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := CalculatePercentage(tt.value, tt.total)
			if math.Abs(result-tt.expected) > 0.001 {
				t.Errorf("CalculatePercentage(%v, %v) = %v, expected %v",
					tt.value, tt.total, result, tt.expected)
			}
		})
	}
}

func TestApplyPercentage(t *testing.T) {
	tests := []struct {
		name       string
		value      float64
		percentage float64
		expected   float64
	}{
		{"50% of 100", 100.0, 50.0, 50.0},
		{"0% of value", 100.0, 0.0, 0.0},
		{"Negative percentage", 100.0, -50.0, -50.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ApplyPercentage(tt.value, tt.percentage)
			if math.Abs(result-tt.expected) > 0.001 {
				t.Errorf("ApplyPercentage(%v, %v) = %v, expected %v",
					tt.value, tt.percentage, result, tt.expected)
			}
		})
	}
}

func TestFiniteFloat(t *testing.T) {
	tests := []struct {
		name  string
		input float64
		isNil bool
	}{
		{"Finite", 1.5, false},
		{"Zero", 0, false},
		{"Positive infinity", math.Inf(1), true},
		{"Negative infinity", math.Inf(-1), true},
		{"NaN", math.NaN(), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FiniteFloat(tt.input)
			if (got == nil) != tt.isNil {
				t.Errorf("FiniteFloat(%v) = %v, expected nil %v", tt.input, got, tt.isNil)
			}
			if got != nil && *got != tt.input {
				t.Errorf("FiniteFloat(%v) = %v", tt.input, *got)
			}
		})
	}
}

func TestEqualFloat(t *testing.T) {
	tests := []struct {
		name     string
		a        *float64
		b        *float64
		expected bool
	}{
		{"Both nil", nil, nil, true},
		{"Nil and zero", nil, Float(0), false},
		{"Zero and nil", Float(0), nil, false},
		{"Equal values", Float(12.5), Float(12.5), true},
		{"Different values", Float(12.5), Float(12.51), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EqualFloat(tt.a, tt.b); got != tt.expected {
				t.Errorf("EqualFloat() = %v, expected %v", got, tt.expected)
			}
		})
	}
}

func TestCopyFloatIsIndependent(t *testing.T) {
	orig := Float(10)
	cp := CopyFloat(orig)
	*cp = 20
	if *orig != 10 {
		t.Errorf("CopyFloat() aliased the original, got %v", *orig)
	}
	if CopyFloat(nil) != nil {
		t.Errorf("CopyFloat(nil) expected nil")
	}
}

func TestPositiveAndNonZero(t *testing.T) {
	if Positive(nil) || Positive(Float(0)) || Positive(Float(-1)) {
		t.Errorf("Positive() accepted a non-positive value")
	}
	if !Positive(Float(0.5)) {
		t.Errorf("Positive(0.5) = false, expected true")
	}
	if NonZero(nil) || NonZero(Float(0)) {
		t.Errorf("NonZero() accepted nil or zero")
	}
	if !NonZero(Float(-3)) {
		t.Errorf("NonZero(-3) = false, expected true")
	}
}
