package benchmark

import (
	"github.com/Nikonomics/PostAcutePulse-sub001/internal/snapshot"
	"github.com/Nikonomics/PostAcutePulse-sub001/pkg/constants"
	"github.com/Nikonomics/PostAcutePulse-sub001/pkg/mathutil"
)

// Status classifies an actual metric against its benchmark.
type Status string

const (
	StatusOnTarget    Status = "on_target"
	StatusAboveTarget Status = "above_target"
	StatusBelowTarget Status = "below_target"
	StatusCritical    Status = "critical"
	StatusUnknown     Status = "unknown"
)

// Inputs is the opportunity engine's view of the extraction snapshot: the
// shared financial metrics plus operating ratios. Percentages are in percent.
type Inputs struct {
	snapshot.Metrics
	OccupancyPct     *float64 `json:"occupancyPct"`
	PrivatePayMixPct *float64 `json:"privatePayMixPct"`
	LaborPct         *float64 `json:"laborPct"`
	AgencyPctOfLabor *float64 `json:"agencyPctOfLabor"`
	FoodCostPerDay   *float64 `json:"foodCostPerDay"`
	ManagementFeePct *float64 `json:"managementFeePct"`
	BadDebtPct       *float64 `json:"badDebtPct"`
	UtilitiesPct     *float64 `json:"utilitiesPct"`
	InsurancePct     *float64 `json:"insurancePct"`
}

// WithMetrics returns a copy of in whose financial snapshot is replaced by m.
func (in Inputs) WithMetrics(m snapshot.Metrics) Inputs {
	in.Metrics = m.Clone()
	return in
}

// EbitdaMarginPct is EBITDA as a percent of revenue, when computable.
func (in Inputs) EbitdaMarginPct() *float64 {
	if !mathutil.Positive(in.Revenue) || in.EBITDA == nil {
		return nil
	}
	return mathutil.Float(*in.EBITDA / *in.Revenue * constants.PercentageMultiplier)
}

// EbitdarMarginPct is EBITDAR as a percent of revenue, when computable.
func (in Inputs) EbitdarMarginPct() *float64 {
	if !mathutil.Positive(in.Revenue) || in.EBITDAR == nil {
		return nil
	}
	return mathutil.Float(*in.EBITDAR / *in.Revenue * constants.PercentageMultiplier)
}

// Actual returns the metric compared against benchmark k.
func (in Inputs) Actual(k Key) *float64 {
	switch k {
	case KeyOccupancy:
		return in.OccupancyPct
	case KeyPrivatePayMix:
		return in.PrivatePayMixPct
	case KeyLaborPct:
		return in.LaborPct
	case KeyAgencyPctOfLabor:
		return in.AgencyPctOfLabor
	case KeyFoodCostPerDay:
		return in.FoodCostPerDay
	case KeyManagementFeePct:
		return in.ManagementFeePct
	case KeyBadDebtPct:
		return in.BadDebtPct
	case KeyUtilitiesPct:
		return in.UtilitiesPct
	case KeyInsurancePct:
		return in.InsurancePct
	case KeyEbitdaMargin:
		return in.EbitdaMarginPct()
	case KeyEbitdarMargin:
		return in.EbitdarMarginPct()
	}
	return nil
}

// Reversed reports whether lower is better for k (expense-type metrics).
func Reversed(k Key) bool {
	switch k {
	case KeyLaborPct, KeyAgencyPctOfLabor, KeyFoodCostPerDay, KeyManagementFeePct,
		KeyBadDebtPct, KeyUtilitiesPct, KeyInsurancePct:
		return true
	}
	return false
}

// Label is the display name of k.
func Label(k Key) string {
	switch k {
	case KeyOccupancy:
		return "Occupancy"
	case KeyPrivatePayMix:
		return "Private Pay Mix"
	case KeyLaborPct:
		return "Labor % of Revenue"
	case KeyAgencyPctOfLabor:
		return "Agency % of Labor"
	case KeyFoodCostPerDay:
		return "Food Cost per Day"
	case KeyManagementFeePct:
		return "Management Fee %"
	case KeyBadDebtPct:
		return "Bad Debt %"
	case KeyUtilitiesPct:
		return "Utilities %"
	case KeyInsurancePct:
		return "Insurance %"
	case KeyEbitdaMargin:
		return "EBITDA Margin"
	case KeyEbitdarMargin:
		return "EBITDAR Margin"
	}
	return string(k)
}

// Classify compares actual to benchmark. Reversed metrics are lower-is-better.
// The returned percentage variance is nil when it cannot be computed.
func Classify(actual, benchmark *float64, reversed bool) (Status, *float64) {
	if actual == nil || benchmark == nil {
		return StatusUnknown, nil
	}
	a, b := *actual, *benchmark

	if b == 0 {
		switch {
		case a == b:
			return StatusOnTarget, mathutil.Float(0)
		case reversed && a > b, !reversed && a < b:
			return StatusCritical, nil
		default:
			return StatusOnTarget, nil
		}
	}

	pct := (a - b) / b * constants.PercentageMultiplier
	if reversed {
		switch {
		case pct <= 0:
			return StatusOnTarget, &pct
		case pct <= constants.VarianceTolerancePct:
			return StatusAboveTarget, &pct
		default:
			return StatusCritical, &pct
		}
	}

	switch {
	case pct >= 0:
		return StatusOnTarget, &pct
	case pct >= -constants.VarianceTolerancePct:
		return StatusBelowTarget, &pct
	default:
		return StatusCritical, &pct
	}
}

// Variance is one benchmark-backed metric and its classification. Enabled is
// false when the actual is unknown, so the target cannot be edited.
type Variance struct {
	Key         Key      `json:"key"`
	Label       string   `json:"label"`
	Actual      *float64 `json:"actual"`
	Benchmark   *float64 `json:"benchmark"`
	PctVariance *float64 `json:"pct_variance"`
	Reversed    bool     `json:"reversed"`
	Status      Status   `json:"status"`
	Enabled     bool     `json:"enabled"`
}

// Issue is a metric that is not on target.
type Issue struct {
	Key         Key      `json:"key"`
	Label       string   `json:"label"`
	Status      Status   `json:"status"`
	Actual      *float64 `json:"actual"`
	Benchmark   float64  `json:"benchmark"`
	PctVariance *float64 `json:"pct_variance"`
}

// Variances classifies every benchmark-backed metric of in against set.
func Variances(in Inputs, set Set) []Variance {
	out := make([]Variance, 0, len(Keys()))
	for _, k := range Keys() {
		actual := in.Actual(k)
		bench := mathutil.Float(set.Get(k))
		status, pct := Classify(actual, bench, Reversed(k))
		out = append(out, Variance{
			Key:         k,
			Label:       Label(k),
			Actual:      mathutil.CopyFloat(actual),
			Benchmark:   bench,
			PctVariance: pct,
			Reversed:    Reversed(k),
			Status:      status,
			Enabled:     actual != nil,
		})
	}
	return out
}

// Issues lists every variance that is not on target.
func Issues(variances []Variance) []Issue {
	var out []Issue
	for _, v := range variances {
		if v.Status == StatusOnTarget {
			continue
		}
		var bench float64
		if v.Benchmark != nil {
			bench = *v.Benchmark
		}
		out = append(out, Issue{
			Key:         v.Key,
			Label:       v.Label,
			Status:      v.Status,
			Actual:      v.Actual,
			Benchmark:   bench,
			PctVariance: v.PctVariance,
		})
	}
	return out
}

// Enabled reports whether the target for k may be edited against in.
func Enabled(in Inputs, k Key) bool {
	return in.Actual(k) != nil
}
