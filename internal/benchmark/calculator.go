package benchmark

import (
	"context"
	"fmt"
	"sort"

	"github.com/Nikonomics/PostAcutePulse-sub001/pkg/constants"
	"github.com/Nikonomics/PostAcutePulse-sub001/pkg/mathutil"
)

const (
	UnitPercent = "%"
	UnitDollars = "$"
)

// OpportunityItem is the estimated annual dollar gain from closing one gap.
// Opportunity is never negative.
type OpportunityItem struct {
	Category    string  `json:"category"`
	Current     float64 `json:"current"`
	Target      float64 `json:"target"`
	Opportunity float64 `json:"opportunity"`
	Unit        string  `json:"unit"`
	Description string  `json:"description"`
}

// Calculation is what a Calculator returns: stabilized projections and the
// opportunity list, largest first.
type Calculation struct {
	StabilizedRevenue *float64          `json:"stabilized_revenue"`
	StabilizedEBITDA  *float64          `json:"stabilized_ebitda"`
	StabilizedEBITDAR *float64          `json:"stabilized_ebitdar"`
	Opportunities     []OpportunityItem `json:"opportunities"`
}

// Calculator produces stabilized figures and opportunities for a deal.
type Calculator interface {
	Calculate(ctx context.Context, dealID string, in Inputs, set Set) (Calculation, error)
}

// LocalCalculator performs the opportunity arithmetic in process.
type LocalCalculator struct{}

// Calculate implements Calculator. It never fails.
func (LocalCalculator) Calculate(_ context.Context, _ string, in Inputs, set Set) (Calculation, error) {
	return calculate(in, set), nil
}

func calculate(in Inputs, set Set) Calculation {
	var (
		items         []OpportunityItem
		revenueUplift float64
	)
	hasRevenue := mathutil.Positive(in.Revenue)

	// Occupancy: more census at the same rates, less variable cost.
	if occ := in.OccupancyPct; hasRevenue && mathutil.Positive(occ) && set.OccupancyTarget > *occ {
		uplift := *in.Revenue * (set.OccupancyTarget - *occ) / *occ
		revenueUplift += uplift
		items = append(items, OpportunityItem{
			Category:    Label(KeyOccupancy),
			Current:     *occ,
			Target:      set.OccupancyTarget,
			Opportunity: uplift * constants.IncrementalFlowThrough,
			Unit:        UnitPercent,
			Description: fmt.Sprintf("Raise occupancy from %.1f%% to %.1f%%", *occ, set.OccupancyTarget),
		})
	}

	if pp := in.PrivatePayMixPct; hasRevenue && pp != nil && set.PrivatePayMixTarget > *pp {
		uplift := mathutil.ApplyPercentage(*in.Revenue, set.PrivatePayMixTarget-*pp) * constants.PrivatePayRatePremium
		revenueUplift += uplift
		items = append(items, OpportunityItem{
			Category:    Label(KeyPrivatePayMix),
			Current:     *pp,
			Target:      set.PrivatePayMixTarget,
			Opportunity: uplift * constants.IncrementalFlowThrough,
			Unit:        UnitPercent,
			Description: fmt.Sprintf("Shift payer mix toward private pay, %.1f%% to %.1f%%", *pp, set.PrivatePayMixTarget),
		})
	}

	if hasRevenue {
		for _, k := range []Key{KeyLaborPct, KeyManagementFeePct, KeyBadDebtPct, KeyUtilitiesPct, KeyInsurancePct} {
			actual, target := in.Actual(k), set.Get(k)
			if actual == nil || *actual <= target {
				continue
			}
			items = append(items, OpportunityItem{
				Category:    Label(k),
				Current:     *actual,
				Target:      target,
				Opportunity: mathutil.ApplyPercentage(*in.Revenue, *actual-target),
				Unit:        UnitPercent,
				Description: fmt.Sprintf("Reduce %s from %.1f%% to %.1f%% of revenue", Label(k), *actual, target),
			})
		}
	}

	// Agency premium is recovered by converting agency hours to staff.
	if ag := in.AgencyPctOfLabor; hasRevenue && ag != nil && in.LaborPct != nil && *ag > set.AgencyPctOfLaborTarget {
		laborCost := mathutil.ApplyPercentage(*in.Revenue, *in.LaborPct)
		if laborCost > 0 {
			items = append(items, OpportunityItem{
				Category:    Label(KeyAgencyPctOfLabor),
				Current:     *ag,
				Target:      set.AgencyPctOfLaborTarget,
				Opportunity: mathutil.ApplyPercentage(laborCost, *ag-set.AgencyPctOfLaborTarget) * constants.AgencyPremiumRecovery,
				Unit:        UnitPercent,
				Description: fmt.Sprintf("Cut agency staffing from %.1f%% to %.1f%% of labor", *ag, set.AgencyPctOfLaborTarget),
			})
		}
	}

	if food := in.FoodCostPerDay; food != nil && *food > set.FoodCostPerDayTarget &&
		mathutil.Positive(in.Beds) && mathutil.Positive(in.OccupancyPct) {
		residentDays := mathutil.ApplyPercentage(*in.Beds, *in.OccupancyPct) * constants.DaysPerYear
		items = append(items, OpportunityItem{
			Category:    Label(KeyFoodCostPerDay),
			Current:     *food,
			Target:      set.FoodCostPerDayTarget,
			Opportunity: residentDays * (*food - set.FoodCostPerDayTarget),
			Unit:        UnitDollars,
			Description: fmt.Sprintf("Bring food cost from $%.2f to $%.2f per resident day", *food, set.FoodCostPerDayTarget),
		})
	}

	items = finiteOpportunities(items)
	sortOpportunities(items)

	total := sumOpportunities(items)
	calc := Calculation{Opportunities: items}
	if in.Revenue != nil && mathutil.IsFinite(revenueUplift) {
		calc.StabilizedRevenue = mathutil.FiniteFloat(*in.Revenue + revenueUplift)
	}
	if in.EBITDA != nil {
		calc.StabilizedEBITDA = mathutil.FiniteFloat(*in.EBITDA + total)
	}
	switch {
	case in.EBITDAR != nil:
		calc.StabilizedEBITDAR = mathutil.FiniteFloat(*in.EBITDAR + total)
	case in.EBITDA != nil && in.AnnualRent != nil:
		calc.StabilizedEBITDAR = mathutil.FiniteFloat(*in.EBITDA + *in.AnnualRent + total)
	}
	return calc
}

// finiteOpportunities drops items whose amount overflowed, and any item that
// would push the running total past the float range.
func finiteOpportunities(items []OpportunityItem) []OpportunityItem {
	kept := items[:0]
	var total float64
	for _, item := range items {
		if !mathutil.IsFinite(item.Opportunity) || !mathutil.IsFinite(total+item.Opportunity) {
			continue
		}
		total += item.Opportunity
		kept = append(kept, item)
	}
	return kept
}

func sortOpportunities(items []OpportunityItem) {
	sort.SliceStable(items, func(i, j int) bool { return items[i].Opportunity > items[j].Opportunity })
}

func sumOpportunities(items []OpportunityItem) float64 {
	var total float64
	for _, item := range items {
		total += item.Opportunity
	}
	return total
}
