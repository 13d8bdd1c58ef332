package valuation

import (
	"math"
	"testing"

	"github.com/Nikonomics/PostAcutePulse-sub001/internal/snapshot"
	"github.com/Nikonomics/PostAcutePulse-sub001/pkg/mathutil"
)

func f(v float64) *float64 { return &v }

func fullSnapshot() snapshot.Metrics {
	return snapshot.Metrics{
		Beds:       f(100),
		Revenue:    f(12000000),
		EBITDA:     f(1200000),
		EBITDAR:    f(2400000),
		NOI:        f(900000),
		AnnualRent: f(1200000),
	}
}

func relEqual(a, b float64) bool {
	if a == b {
		return true
	}
	return mathutil.WithinTolerance(a, b, 1e-9*math.Max(math.Abs(a), math.Abs(b)))
}

func TestComputePricePerBed(t *testing.T) {
	result := Compute(fullSnapshot(), DriverPricePerBed, 150000)
	if !result.OK() {
		t.Fatalf("Compute() error = %v", *result.Error)
	}
	if *result.ImpliedValue != 15000000 {
		t.Errorf("ImpliedValue = %v, expected 15000000", *result.ImpliedValue)
	}
	if *result.ImpliedPricePerBed != 150000 {
		t.Errorf("ImpliedPricePerBed = %v, expected 150000", *result.ImpliedPricePerBed)
	}
	if *result.ImpliedRevenueMultiple != 1.25 {
		t.Errorf("ImpliedRevenueMultiple = %v, expected 1.25", *result.ImpliedRevenueMultiple)
	}
	if *result.ImpliedEbitdaMultiple != 12.5 {
		t.Errorf("ImpliedEbitdaMultiple = %v, expected 12.5", *result.ImpliedEbitdaMultiple)
	}
	if *result.ImpliedCapRate != 6 {
		t.Errorf("ImpliedCapRate = %v, expected 6", *result.ImpliedCapRate)
	}
}

func TestComputeCapRate(t *testing.T) {
	m := snapshot.Metrics{NOI: f(900000)}
	result := Compute(m, DriverCapRate, 9)
	if !result.OK() {
		t.Fatalf("Compute() error = %v", *result.Error)
	}
	if !relEqual(*result.ImpliedValue, 10000000) {
		t.Errorf("ImpliedValue = %v, expected 10000000", *result.ImpliedValue)
	}
	if !relEqual(*result.ImpliedCapRate, 9) {
		t.Errorf("ImpliedCapRate = %v, expected 9", *result.ImpliedCapRate)
	}
}

func TestComputePreconditions(t *testing.T) {
	tests := []struct {
		name   string
		m      snapshot.Metrics
		driver Driver
		value  float64
	}{
		{"Zero beds", snapshot.Metrics{Beds: f(0)}, DriverPricePerBed, 150000},
		{"Missing beds", snapshot.Metrics{}, DriverPricePerBed, 150000},
		{"Negative revenue", snapshot.Metrics{Revenue: f(-1)}, DriverRevenueMultiple, 1.2},
		{"Zero EBITDA", snapshot.Metrics{EBITDA: f(0)}, DriverEbitdaMultiple, 10},
		{"Missing EBITDAR", snapshot.Metrics{}, DriverEbitdarMultiple, 8},
		{"Zero NOI", snapshot.Metrics{NOI: f(0)}, DriverCapRate, 9},
		{"Zero cap rate", snapshot.Metrics{NOI: f(900000)}, DriverCapRate, 0},
		{"Infinite driver", fullSnapshot(), DriverRevenueMultiple, math.Inf(1)},
		{"Price per bed overflow", snapshot.Metrics{Beds: f(120), NOI: f(900000)}, DriverPricePerBed, 1e307},
		{"Subnormal cap rate overflow", snapshot.Metrics{NOI: f(900000)}, DriverCapRate, 1e-320},
		{"Revenue multiple overflow", fullSnapshot(), DriverRevenueMultiple, math.MaxFloat64},
		{"Unknown driver", fullSnapshot(), Driver("grossMultiple"), 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Compute(tt.m, tt.driver, tt.value)
			if result.Error == nil || *result.Error == "" {
				t.Fatalf("Compute() expected an error")
			}
			if result.ImpliedValue != nil || result.ImpliedPricePerBed != nil ||
				result.ImpliedRevenueMultiple != nil || result.ImpliedEbitdaMultiple != nil ||
				result.ImpliedEbitdarMultiple != nil || result.ImpliedCapRate != nil {
				t.Fatalf("Compute() returned numeric output alongside an error: %+v", result)
			}
		})
	}
}

func TestNegativeEbitdaIsAllowed(t *testing.T) {
	m := snapshot.Metrics{EBITDA: f(-500000), Beds: f(50)}
	result := Compute(m, DriverEbitdaMultiple, 6)
	if !result.OK() {
		t.Fatalf("Compute() error = %v", *result.Error)
	}
	if *result.ImpliedValue != -3000000 {
		t.Errorf("ImpliedValue = %v, expected -3000000", *result.ImpliedValue)
	}
	if *result.ImpliedPricePerBed != -60000 {
		t.Errorf("ImpliedPricePerBed = %v, expected -60000", *result.ImpliedPricePerBed)
	}
}

func TestDerivedFieldGuardsAreIndependent(t *testing.T) {
	m := snapshot.Metrics{Beds: f(80), Revenue: f(0), EBITDA: nil, EBITDAR: f(1000000), NOI: nil}
	result := Compute(m, DriverPricePerBed, 100000)
	if !result.OK() {
		t.Fatalf("Compute() error = %v", *result.Error)
	}
	if result.ImpliedRevenueMultiple != nil {
		t.Errorf("expected nil revenue multiple for zero revenue")
	}
	if result.ImpliedEbitdaMultiple != nil {
		t.Errorf("expected nil EBITDA multiple for missing EBITDA")
	}
	if result.ImpliedCapRate != nil {
		t.Errorf("expected nil cap rate for missing NOI")
	}
	if result.ImpliedEbitdarMultiple == nil || *result.ImpliedEbitdarMultiple != 8 {
		t.Errorf("ImpliedEbitdarMultiple = %v, expected 8", result.ImpliedEbitdarMultiple)
	}
}

func TestOverflowingDerivedFieldIsNil(t *testing.T) {
	// A tiny implied value is finite, but NOI divided by it is not.
	m := snapshot.Metrics{Beds: f(100), NOI: f(900000)}
	result := Compute(m, DriverPricePerBed, 1e-320)
	if !result.OK() {
		t.Fatalf("Compute() error = %v", *result.Error)
	}
	if result.ImpliedCapRate != nil {
		t.Errorf("ImpliedCapRate = %v, expected nil on overflow", *result.ImpliedCapRate)
	}
	if result.ImpliedPricePerBed == nil || !mathutil.IsFinite(*result.ImpliedPricePerBed) {
		t.Errorf("ImpliedPricePerBed = %v, expected a finite value", result.ImpliedPricePerBed)
	}
}

func TestDeriveRejectsNonFiniteValue(t *testing.T) {
	for _, v := range []float64{math.Inf(1), math.Inf(-1), math.NaN()} {
		result := Derive(fullSnapshot(), v)
		if result.OK() || result.ImpliedValue != nil {
			t.Errorf("Derive(%v) = %+v, expected an error result", v, result)
		}
	}
}

func TestZeroImpliedValueSkipsCapRate(t *testing.T) {
	result := Compute(fullSnapshot(), DriverRevenueMultiple, 0)
	if !result.OK() {
		t.Fatalf("Compute() error = %v", *result.Error)
	}
	if result.ImpliedCapRate != nil {
		t.Errorf("expected nil cap rate for zero implied value")
	}
}

func TestRoundTripLaw(t *testing.T) {
	values := map[Driver][]float64{
		DriverPricePerBed:     {150000, 87500.5, 1},
		DriverRevenueMultiple: {1.25, 0.8, 3.333},
		DriverEbitdaMultiple:  {12.5, 7, -2},
		DriverEbitdarMultiple: {8, 9.75},
		DriverCapRate:         {9, 12.5, 7.25},
	}

	m := fullSnapshot()
	for driver, inputs := range values {
		for _, input := range inputs {
			result := Compute(m, driver, input)
			if !result.OK() {
				t.Fatalf("Compute(%s, %v) error = %v", driver, input, *result.Error)
			}
			for _, other := range Drivers() {
				metric := result.Metric(other)
				if metric == nil {
					t.Fatalf("%s: derived %s is nil", driver, other)
				}
				back, err := Reverse(m, other, *metric)
				if err != nil {
					t.Fatalf("Reverse(%s) error = %v", other, err)
				}
				if !relEqual(back, *result.ImpliedValue) {
					t.Errorf("%s=%v: re-deriving from %s gives %v, expected %v",
						driver, input, other, back, *result.ImpliedValue)
				}
			}
			if own := result.Metric(driver); !relEqual(*own, input) {
				t.Errorf("%s=%v: implied %s = %v, expected the input back", driver, input, driver, *own)
			}
		}
	}
}

func TestParseDriver(t *testing.T) {
	d, err := ParseDriver("CAPRATE")
	if err != nil || d != DriverCapRate {
		t.Fatalf("ParseDriver() = %v, %v", d, err)
	}
	if _, err := ParseDriver("irr"); err == nil {
		t.Fatalf("ParseDriver() accepted an unknown driver")
	}
}
