// Package output provides utilities for formatting and displaying deal analysis results.
package output

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/Nikonomics/PostAcutePulse-sub001/internal/benchmark"
	"github.com/Nikonomics/PostAcutePulse-sub001/internal/extraction"
	"github.com/Nikonomics/PostAcutePulse-sub001/internal/valuation"
	"github.com/Nikonomics/PostAcutePulse-sub001/pkg/format"
)

// PrettyReport writes the facility summary, computed ratios and data quality.
func PrettyReport(w io.Writer, report extraction.Report) {
	s := report.Summary
	fmt.Fprintf(w, "--- Deal %s: %s ---\n", s.DealID, s.FacilityName)
	fmt.Fprintf(w, "Beds            | %s\n", format.NumberPtr(s.Beds))
	fmt.Fprintf(w, "Purchase price  | %s\n", s.PurchasePriceDisplay)
	fmt.Fprintf(w, "Revenue         | %s\n", format.CurrencyPtr(report.Inputs.Revenue))
	fmt.Fprintf(w, "EBITDA          | %s\n", format.CurrencyPtr(report.Inputs.EBITDA))
	fmt.Fprintf(w, "EBITDAR         | %s\n", format.CurrencyPtr(report.Inputs.EBITDAR))
	fmt.Fprintf(w, "NOI             | %s\n", format.CurrencyPtr(report.Inputs.NOI))

	c := report.Computed
	fmt.Fprintf(w, "Price per bed   | %s\n", format.CurrencyPtr(c.PricePerBed))
	fmt.Fprintf(w, "Revenue mult.   | %s\n", format.MultiplePtr(c.RevenueMultiple))
	fmt.Fprintf(w, "EBITDA mult.    | %s\n", format.MultiplePtr(c.EbitdaMultiple))
	fmt.Fprintf(w, "EBITDAR mult.   | %s\n", format.MultiplePtr(c.EbitdarMultiple))
	fmt.Fprintf(w, "Cap rate        | %s\n", format.PercentPtr(c.CapRate))
	fmt.Fprintf(w, "EBITDA margin   | %s\n", format.PercentPtr(c.EbitdaMargin))
	fmt.Fprintf(w, "Rent coverage   | %s\n", format.MultiplePtr(c.RentCoverage))

	q := report.DataQuality
	fmt.Fprintf(w, "Completeness    | %s\n", format.Percent(q.CompletenessPct))
	if len(q.MissingFields) > 0 {
		fmt.Fprintf(w, "Missing         | %s\n", strings.Join(q.MissingFields, ","))
	}
	for _, warning := range q.Warnings {
		fmt.Fprintf(w, "Warning         | %s\n", warning)
	}
}

// PrettyValuation writes one driver computation.
func PrettyValuation(w io.Writer, driver valuation.Driver, value float64, result valuation.Result) {
	fmt.Fprintf(w, "--- Valuation by %s (%s) ---\n", driver.Label(), format.Number(value))
	if !result.OK() {
		fmt.Fprintf(w, "Error: %s\n", *result.Error)
		return
	}
	fmt.Fprintf(w, "Implied value   | %s\n", format.CurrencyPtr(result.ImpliedValue))
	fmt.Fprintf(w, "Price per bed   | %s\n", format.CurrencyPtr(result.ImpliedPricePerBed))
	fmt.Fprintf(w, "Revenue mult.   | %s\n", format.MultiplePtr(result.ImpliedRevenueMultiple))
	fmt.Fprintf(w, "EBITDA mult.    | %s\n", format.MultiplePtr(result.ImpliedEbitdaMultiple))
	fmt.Fprintf(w, "EBITDAR mult.   | %s\n", format.MultiplePtr(result.ImpliedEbitdarMultiple))
	fmt.Fprintf(w, "Cap rate        | %s\n", format.PercentPtr(result.ImpliedCapRate))
}

// PrettyAnalysis outputs a human-readable rather than machine-readable table
// of opportunities followed by the variance issues.
func PrettyAnalysis(w io.Writer, analysis benchmark.Analysis) {
	p := message.NewPrinter(language.English)
	fmt.Fprintf(w, "--- Opportunities ---\n")
	fmt.Fprintf(w, "Category                 | Opportunity   | Description\n")
	fmt.Fprintf(w, "________                 | _____________ | ___________\n")
	for _, item := range analysis.Opportunities {
		_, _ = p.Fprintf(w, "%-24s | $%.2f | %s\n", item.Category, item.Opportunity, item.Description)
	}
	_, _ = p.Fprintf(w, "Total opportunity: $%.2f\n", analysis.TotalOpportunity)
	fmt.Fprintf(w, "Stabilized revenue: %s\n", format.CurrencyPtr(analysis.StabilizedRevenue))
	fmt.Fprintf(w, "Stabilized EBITDA: %s\n", format.CurrencyPtr(analysis.StabilizedEBITDA))
	fmt.Fprintf(w, "Stabilized EBITDAR: %s\n", format.CurrencyPtr(analysis.StabilizedEBITDAR))

	if len(analysis.Issues) == 0 {
		return
	}
	fmt.Fprintf(w, "\n--- Issues ---\n")
	for _, issue := range analysis.Issues {
		fmt.Fprintf(w, "%-8s | %s | actual %s vs %s | %s\n",
			issue.Status, issue.Label, format.NumberPtr(issue.Actual),
			format.Number(issue.Benchmark), format.PercentPtr(issue.PctVariance))
	}
}

// CsvAnalysis outputs the opportunities in comma-separated value format.
func CsvAnalysis(w io.Writer, analysis benchmark.Analysis) {
	fmt.Fprintf(w, `"category","current","target","opportunity","unit","description"`+"\n")
	for _, item := range analysis.Opportunities {
		fmt.Fprintf(w, `"%s","%.2f","%.2f","%.2f","%s","%s"`+"\n",
			csvEscape(item.Category), item.Current, item.Target, item.Opportunity,
			item.Unit, csvEscape(item.Description))
	}
	fmt.Fprintf(w, `"total","","","%.2f","",""`+"\n", analysis.TotalOpportunity)
}

func csvEscape(s string) string {
	return strings.ReplaceAll(s, `"`, `""`)
}
