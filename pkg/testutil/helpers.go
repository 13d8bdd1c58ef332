// Package testutil provides common utility functions for testing.
package testutil

import (
	"github.com/Nikonomics/PostAcutePulse-sub001/internal/benchmark"
	"github.com/Nikonomics/PostAcutePulse-sub001/internal/extraction"
)

// Ptr returns a pointer to v.
func Ptr(v float64) *float64 {
	return &v
}

// SampleRecord returns a fully populated 100-bed facility whose ratios sit
// off most default benchmarks.
func SampleRecord(dealID string) extraction.Record {
	return extraction.Record{
		DealID:           dealID,
		FacilityName:     "Cedar Ridge",
		Beds:             Ptr(100),
		Revenue:          Ptr(10000000),
		EBITDA:           Ptr(500000),
		EBITDAR:          Ptr(1500000),
		NOI:              Ptr(900000),
		PurchasePrice:    Ptr(12000000),
		AnnualRent:       Ptr(1000000),
		OccupancyPct:     Ptr(80),
		PrivatePayMixPct: Ptr(20),
		ExpenseRatios: extraction.ExpenseRatios{
			LaborPct:         Ptr(60),
			AgencyPctOfLabor: Ptr(5),
			FoodCostPerDay:   Ptr(12),
			ManagementFeePct: Ptr(5),
			BadDebtPct:       Ptr(0.5),
			UtilitiesPct:     Ptr(2.5),
			InsurancePct:     Ptr(4),
		},
	}
}

// FindOpportunity finds an opportunity by category in the items slice.
// Returns a pointer to the item if found, nil otherwise.
func FindOpportunity(items []benchmark.OpportunityItem, category string) *benchmark.OpportunityItem {
	for i := range items {
		if items[i].Category == category {
			return &items[i]
		}
	}
	return nil
}
