// Package benchmark compares a facility's operating metrics against target
// ratios, estimates dollar opportunities for closing each gap, and projects
// the stabilized financials once every target is met.
package benchmark

import (
	"fmt"
	"sort"
	"strings"
)

// Key names one benchmark target.
type Key string

const (
	KeyOccupancy        Key = "occupancy_target"
	KeyPrivatePayMix    Key = "private_pay_mix_target"
	KeyLaborPct         Key = "labor_pct_target"
	KeyAgencyPctOfLabor Key = "agency_pct_of_labor_target"
	KeyFoodCostPerDay   Key = "food_cost_per_day_target"
	KeyManagementFeePct Key = "management_fee_pct_target"
	KeyBadDebtPct       Key = "bad_debt_pct_target"
	KeyUtilitiesPct     Key = "utilities_pct_target"
	KeyInsurancePct     Key = "insurance_pct_target"
	KeyEbitdaMargin     Key = "ebitda_margin_target"
	KeyEbitdarMargin    Key = "ebitdar_margin_target"
)

// Keys returns every benchmark key in display order.
func Keys() []Key {
	return []Key{
		KeyOccupancy, KeyPrivatePayMix, KeyLaborPct, KeyAgencyPctOfLabor,
		KeyFoodCostPerDay, KeyManagementFeePct, KeyBadDebtPct, KeyUtilitiesPct,
		KeyInsurancePct, KeyEbitdaMargin, KeyEbitdarMargin,
	}
}

// ParseKey resolves a benchmark key.
func ParseKey(name string) (Key, error) {
	trimmed := strings.TrimSpace(name)
	for _, k := range Keys() {
		if strings.EqualFold(string(k), trimmed) {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown benchmark %q", name)
}

// Set is the fixed-shape record of benchmark targets. Percentages are
// expressed in percent (85 means 85%); food cost is dollars per resident day.
type Set struct {
	OccupancyTarget        float64 `json:"occupancy_target" yaml:"occupancy_target"`
	PrivatePayMixTarget    float64 `json:"private_pay_mix_target" yaml:"private_pay_mix_target"`
	LaborPctTarget         float64 `json:"labor_pct_target" yaml:"labor_pct_target"`
	AgencyPctOfLaborTarget float64 `json:"agency_pct_of_labor_target" yaml:"agency_pct_of_labor_target"`
	FoodCostPerDayTarget   float64 `json:"food_cost_per_day_target" yaml:"food_cost_per_day_target"`
	ManagementFeePctTarget float64 `json:"management_fee_pct_target" yaml:"management_fee_pct_target"`
	BadDebtPctTarget       float64 `json:"bad_debt_pct_target" yaml:"bad_debt_pct_target"`
	UtilitiesPctTarget     float64 `json:"utilities_pct_target" yaml:"utilities_pct_target"`
	InsurancePctTarget     float64 `json:"insurance_pct_target" yaml:"insurance_pct_target"`
	EbitdaMarginTarget     float64 `json:"ebitda_margin_target" yaml:"ebitda_margin_target"`
	EbitdarMarginTarget    float64 `json:"ebitdar_margin_target" yaml:"ebitdar_margin_target"`
}

// Defaults returns the canonical benchmark set.
func Defaults() Set {
	return Set{
		OccupancyTarget:        85,
		PrivatePayMixTarget:    35,
		LaborPctTarget:         55,
		AgencyPctOfLaborTarget: 2,
		FoodCostPerDayTarget:   10.5,
		ManagementFeePctTarget: 4,
		BadDebtPctTarget:       0.5,
		UtilitiesPctTarget:     2.5,
		InsurancePctTarget:     3,
		EbitdaMarginTarget:     9,
		EbitdarMarginTarget:    23,
	}
}

// Get returns the target for k.
func (s Set) Get(k Key) float64 {
	switch k {
	case KeyOccupancy:
		return s.OccupancyTarget
	case KeyPrivatePayMix:
		return s.PrivatePayMixTarget
	case KeyLaborPct:
		return s.LaborPctTarget
	case KeyAgencyPctOfLabor:
		return s.AgencyPctOfLaborTarget
	case KeyFoodCostPerDay:
		return s.FoodCostPerDayTarget
	case KeyManagementFeePct:
		return s.ManagementFeePctTarget
	case KeyBadDebtPct:
		return s.BadDebtPctTarget
	case KeyUtilitiesPct:
		return s.UtilitiesPctTarget
	case KeyInsurancePct:
		return s.InsurancePctTarget
	case KeyEbitdaMargin:
		return s.EbitdaMarginTarget
	case KeyEbitdarMargin:
		return s.EbitdarMarginTarget
	}
	return 0
}

// With returns a copy of s with k set to v. Unknown keys are ignored.
func (s Set) With(k Key, v float64) Set {
	switch k {
	case KeyOccupancy:
		s.OccupancyTarget = v
	case KeyPrivatePayMix:
		s.PrivatePayMixTarget = v
	case KeyLaborPct:
		s.LaborPctTarget = v
	case KeyAgencyPctOfLabor:
		s.AgencyPctOfLaborTarget = v
	case KeyFoodCostPerDay:
		s.FoodCostPerDayTarget = v
	case KeyManagementFeePct:
		s.ManagementFeePctTarget = v
	case KeyBadDebtPct:
		s.BadDebtPctTarget = v
	case KeyUtilitiesPct:
		s.UtilitiesPctTarget = v
	case KeyInsurancePct:
		s.InsurancePctTarget = v
	case KeyEbitdaMargin:
		s.EbitdaMarginTarget = v
	case KeyEbitdarMargin:
		s.EbitdarMarginTarget = v
	}
	return s
}

// Overrides is a partial benchmark set: only the keys that differ from a
// canonical default.
type Overrides map[Key]float64

// SortedKeys returns the override keys in display order.
func (o Overrides) SortedKeys() []Key {
	order := make(map[Key]int, len(Keys()))
	for i, k := range Keys() {
		order[k] = i
	}
	keys := make([]Key, 0, len(o))
	for k := range o {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return order[keys[i]] < order[keys[j]] })
	return keys
}

// Validate rejects keys outside the benchmark set.
func (o Overrides) Validate() error {
	for k := range o {
		if _, err := ParseKey(string(k)); err != nil {
			return err
		}
	}
	return nil
}

// Diff returns the keys of current whose value differs from defaults.
func Diff(current, defaults Set) Overrides {
	out := make(Overrides)
	for _, k := range Keys() {
		if v := current.Get(k); v != defaults.Get(k) {
			out[k] = v
		}
	}
	return out
}

// Merge overlays o onto defaults. Keys outside the set are ignored.
func Merge(defaults Set, o Overrides) Set {
	out := defaults
	for _, k := range Keys() {
		if v, ok := o[k]; ok {
			out = out.With(k, v)
		}
	}
	return out
}
