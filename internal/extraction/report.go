package extraction

import (
	"fmt"

	"github.com/Nikonomics/PostAcutePulse-sub001/internal/valuation"
	"github.com/Nikonomics/PostAcutePulse-sub001/pkg/constants"
	"github.com/Nikonomics/PostAcutePulse-sub001/pkg/format"
	"github.com/Nikonomics/PostAcutePulse-sub001/pkg/mathutil"
)

// Computed holds the current-price metrics of a deal. Any value whose
// inputs fail their guard is nil.
type Computed struct {
	PricePerBed     *float64 `json:"pricePerBed"`
	RevenueMultiple *float64 `json:"revenueMultiple"`
	EbitdaMultiple  *float64 `json:"ebitdaMultiple"`
	EbitdarMultiple *float64 `json:"ebitdarMultiple"`
	CapRate         *float64 `json:"capRate"`
	EbitdaMargin    *float64 `json:"ebitdaMargin"`
	EbitdarMargin   *float64 `json:"ebitdarMargin"`
	RentCoverage    *float64 `json:"rentCoverage"`
}

type Summary struct {
	DealID               string   `json:"dealId"`
	FacilityName         string   `json:"facilityName"`
	Beds                 *float64 `json:"beds"`
	PurchasePrice        *float64 `json:"purchasePrice"`
	PurchasePriceDisplay string   `json:"purchasePriceDisplay"`
}

type DataQuality struct {
	CompletenessPct float64  `json:"completenessPct"`
	MissingFields   []string `json:"missingFields"`
	Warnings        []string `json:"warnings"`
}

// Report is the metrics read returned to the deal view.
type Report struct {
	Inputs      Record      `json:"inputs"`
	Computed    Computed    `json:"computed"`
	Summary     Summary     `json:"summary"`
	DataQuality DataQuality `json:"dataQuality"`
}

// BuildReport summarizes r. Missing values never fail the report.
func BuildReport(r Record) Report {
	r = r.clone()
	return Report{
		Inputs:      r,
		Computed:    compute(r),
		Summary:     summarize(r),
		DataQuality: assess(r),
	}
}

func compute(r Record) Computed {
	var c Computed
	if r.PurchasePrice != nil {
		// Current price is the implied value under every driver.
		derived := valuation.Derive(r.Snapshot(), *r.PurchasePrice)
		c.PricePerBed = derived.ImpliedPricePerBed
		c.RevenueMultiple = derived.ImpliedRevenueMultiple
		c.EbitdaMultiple = derived.ImpliedEbitdaMultiple
		c.EbitdarMultiple = derived.ImpliedEbitdarMultiple
		c.CapRate = derived.ImpliedCapRate
	}
	if mathutil.Positive(r.Revenue) {
		if r.EBITDA != nil {
			c.EbitdaMargin = mathutil.FiniteFloat(*r.EBITDA / *r.Revenue * constants.PercentageMultiplier)
		}
		if r.EBITDAR != nil {
			c.EbitdarMargin = mathutil.FiniteFloat(*r.EBITDAR / *r.Revenue * constants.PercentageMultiplier)
		}
	}
	if r.EBITDAR != nil && mathutil.Positive(r.AnnualRent) {
		c.RentCoverage = mathutil.FiniteFloat(*r.EBITDAR / *r.AnnualRent)
	}
	return c
}

func summarize(r Record) Summary {
	return Summary{
		DealID:               r.DealID,
		FacilityName:         r.FacilityName,
		Beds:                 r.Beds,
		PurchasePrice:        r.PurchasePrice,
		PurchasePriceDisplay: format.CurrencyPtr(r.PurchasePrice),
	}
}

func trackedFields(r Record) []struct {
	name  string
	value *float64
} {
	return []struct {
		name  string
		value *float64
	}{
		{"beds", r.Beds},
		{"revenue", r.Revenue},
		{"ebitda", r.EBITDA},
		{"ebitdar", r.EBITDAR},
		{"noi", r.NOI},
		{"purchasePrice", r.PurchasePrice},
		{"annualRent", r.AnnualRent},
		{"occupancyPct", r.OccupancyPct},
		{"privatePayMixPct", r.PrivatePayMixPct},
		{"laborPct", r.LaborPct},
		{"agencyPctOfLabor", r.AgencyPctOfLabor},
		{"foodCostPerDay", r.FoodCostPerDay},
		{"managementFeePct", r.ManagementFeePct},
		{"badDebtPct", r.BadDebtPct},
		{"utilitiesPct", r.UtilitiesPct},
		{"insurancePct", r.InsurancePct},
	}
}

func assess(r Record) DataQuality {
	fields := trackedFields(r)
	q := DataQuality{MissingFields: []string{}, Warnings: []string{}}
	for _, f := range fields {
		if f.value == nil {
			q.MissingFields = append(q.MissingFields, f.name)
		}
	}
	present := len(fields) - len(q.MissingFields)
	q.CompletenessPct = mathutil.CalculatePercentage(float64(present), float64(len(fields)))

	if r.EBITDA != nil && r.EBITDAR != nil && *r.EBITDAR < *r.EBITDA {
		q.Warnings = append(q.Warnings, "EBITDAR is lower than EBITDA")
	}
	if r.NOI != nil && *r.NOI < 0 {
		q.Warnings = append(q.Warnings, "NOI is negative")
	}
	if r.OccupancyPct != nil && (*r.OccupancyPct < 0 || *r.OccupancyPct > constants.PercentageMultiplier) {
		q.Warnings = append(q.Warnings, fmt.Sprintf("occupancy %s is outside 0-100%%", format.Number(*r.OccupancyPct)))
	}
	if r.Beds != nil && *r.Beds <= 0 {
		q.Warnings = append(q.Warnings, "bed count is not positive")
	}
	return q
}
