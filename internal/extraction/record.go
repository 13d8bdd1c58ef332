// Package extraction reads the metrics produced by the document extraction
// collaborator and summarizes them for the deal view.
package extraction

import (
	"encoding/json"
	"errors"

	"gopkg.in/yaml.v3"

	"github.com/Nikonomics/PostAcutePulse-sub001/internal/benchmark"
	"github.com/Nikonomics/PostAcutePulse-sub001/internal/snapshot"
	"github.com/Nikonomics/PostAcutePulse-sub001/pkg/mathutil"
)

// ErrNotFound is returned when no extraction exists for a deal.
var ErrNotFound = errors.New("extraction not found")

// ExpenseRatios are the operating ratios the opportunity engine compares
// against benchmarks. Percentages are in percent.
type ExpenseRatios struct {
	LaborPct         *float64 `json:"laborPct" yaml:"laborPct"`
	AgencyPctOfLabor *float64 `json:"agencyPctOfLabor" yaml:"agencyPctOfLabor"`
	FoodCostPerDay   *float64 `json:"foodCostPerDay" yaml:"foodCostPerDay"`
	ManagementFeePct *float64 `json:"managementFeePct" yaml:"managementFeePct"`
	BadDebtPct       *float64 `json:"badDebtPct" yaml:"badDebtPct"`
	UtilitiesPct     *float64 `json:"utilitiesPct" yaml:"utilitiesPct"`
	InsurancePct     *float64 `json:"insurancePct" yaml:"insurancePct"`
}

// fillFrom sets every nil ratio in e from o.
func (e *ExpenseRatios) fillFrom(o ExpenseRatios) {
	fill := func(dst **float64, src *float64) {
		if *dst == nil && src != nil {
			v := *src
			*dst = &v
		}
	}
	fill(&e.LaborPct, o.LaborPct)
	fill(&e.AgencyPctOfLabor, o.AgencyPctOfLabor)
	fill(&e.FoodCostPerDay, o.FoodCostPerDay)
	fill(&e.ManagementFeePct, o.ManagementFeePct)
	fill(&e.BadDebtPct, o.BadDebtPct)
	fill(&e.UtilitiesPct, o.UtilitiesPct)
	fill(&e.InsurancePct, o.InsurancePct)
}

// Record is one deal's extracted metrics. Expense ratios may arrive flat or
// nested under "expenseRatios"; flat values win when both are present.
type Record struct {
	DealID           string   `json:"dealId" yaml:"dealId"`
	FacilityName     string   `json:"facilityName" yaml:"facilityName"`
	Beds             *float64 `json:"beds" yaml:"beds"`
	Revenue          *float64 `json:"revenue" yaml:"revenue"`
	EBITDA           *float64 `json:"ebitda" yaml:"ebitda"`
	EBITDAR          *float64 `json:"ebitdar" yaml:"ebitdar"`
	NOI              *float64 `json:"noi" yaml:"noi"`
	PurchasePrice    *float64 `json:"purchasePrice" yaml:"purchasePrice"`
	AnnualRent       *float64 `json:"annualRent" yaml:"annualRent"`
	OccupancyPct     *float64 `json:"occupancyPct" yaml:"occupancyPct"`
	PrivatePayMixPct *float64 `json:"privatePayMixPct" yaml:"privatePayMixPct"`
	ExpenseRatios    `yaml:",inline"`
}

type plainRecord Record

func (r *Record) UnmarshalJSON(data []byte) error {
	var aux struct {
		plainRecord
		Nested *ExpenseRatios `json:"expenseRatios"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*r = Record(aux.plainRecord)
	if aux.Nested != nil {
		r.ExpenseRatios.fillFrom(*aux.Nested)
	}
	return nil
}

func (r *Record) UnmarshalYAML(value *yaml.Node) error {
	var aux struct {
		plainRecord `yaml:",inline"`
		Nested      *ExpenseRatios `yaml:"expenseRatios"`
	}
	if err := value.Decode(&aux); err != nil {
		return err
	}
	*r = Record(aux.plainRecord)
	if aux.Nested != nil {
		r.ExpenseRatios.fillFrom(*aux.Nested)
	}
	return nil
}

// Snapshot projects the record onto the calculators' shared snapshot.
func (r Record) Snapshot() snapshot.Metrics {
	return snapshot.Metrics{
		Beds:       r.Beds,
		Revenue:    r.Revenue,
		EBITDA:     r.EBITDA,
		EBITDAR:    r.EBITDAR,
		NOI:        r.NOI,
		AnnualRent: r.AnnualRent,
	}.Clone()
}

// Inputs projects the record onto the opportunity engine's inputs.
func (r Record) Inputs() benchmark.Inputs {
	c := r.clone()
	return benchmark.Inputs{
		Metrics:          r.Snapshot(),
		OccupancyPct:     c.OccupancyPct,
		PrivatePayMixPct: c.PrivatePayMixPct,
		LaborPct:         c.LaborPct,
		AgencyPctOfLabor: c.AgencyPctOfLabor,
		FoodCostPerDay:   c.FoodCostPerDay,
		ManagementFeePct: c.ManagementFeePct,
		BadDebtPct:       c.BadDebtPct,
		UtilitiesPct:     c.UtilitiesPct,
		InsurancePct:     c.InsurancePct,
	}
}

func (r Record) clone() Record {
	out := Record{
		DealID:           r.DealID,
		FacilityName:     r.FacilityName,
		Beds:             mathutil.CopyFloat(r.Beds),
		Revenue:          mathutil.CopyFloat(r.Revenue),
		EBITDA:           mathutil.CopyFloat(r.EBITDA),
		EBITDAR:          mathutil.CopyFloat(r.EBITDAR),
		NOI:              mathutil.CopyFloat(r.NOI),
		PurchasePrice:    mathutil.CopyFloat(r.PurchasePrice),
		AnnualRent:       mathutil.CopyFloat(r.AnnualRent),
		OccupancyPct:     mathutil.CopyFloat(r.OccupancyPct),
		PrivatePayMixPct: mathutil.CopyFloat(r.PrivatePayMixPct),
	}
	out.ExpenseRatios.fillFrom(r.ExpenseRatios)
	return out
}
