// Package valuation back-solves an implied enterprise value from a single
// pricing driver and derives every other pricing multiple from that value.
package valuation

import (
	"fmt"
	"strings"

	"github.com/Nikonomics/PostAcutePulse-sub001/internal/snapshot"
	"github.com/Nikonomics/PostAcutePulse-sub001/pkg/constants"
	"github.com/Nikonomics/PostAcutePulse-sub001/pkg/mathutil"
)

// Driver is the valuation lever used to solve for implied value.
type Driver string

const (
	DriverPricePerBed     Driver = "pricePerBed"
	DriverRevenueMultiple Driver = "revenueMultiple"
	DriverEbitdaMultiple  Driver = "ebitdaMultiple"
	DriverEbitdarMultiple Driver = "ebitdarMultiple"
	DriverCapRate         Driver = "capRate"
)

// Drivers returns every supported driver.
func Drivers() []Driver {
	return []Driver{DriverPricePerBed, DriverRevenueMultiple, DriverEbitdaMultiple, DriverEbitdarMultiple, DriverCapRate}
}

// ParseDriver resolves a driver name, case-insensitively.
func ParseDriver(name string) (Driver, error) {
	trimmed := strings.TrimSpace(name)
	for _, d := range Drivers() {
		if strings.EqualFold(string(d), trimmed) {
			return d, nil
		}
	}
	return "", fmt.Errorf("unknown valuation driver %q", name)
}

// Label is the human-readable driver name.
func (d Driver) Label() string {
	switch d {
	case DriverPricePerBed:
		return "Price per bed"
	case DriverRevenueMultiple:
		return "Revenue multiple"
	case DriverEbitdaMultiple:
		return "EBITDA multiple"
	case DriverEbitdarMultiple:
		return "EBITDAR multiple"
	case DriverCapRate:
		return "Cap rate"
	}
	return string(d)
}

// Result is the outcome of one driver computation. When Error is set every
// numeric field is nil.
type Result struct {
	ImpliedValue           *float64 `json:"impliedValue"`
	ImpliedPricePerBed     *float64 `json:"impliedPricePerBed"`
	ImpliedRevenueMultiple *float64 `json:"impliedRevenueMultiple"`
	ImpliedEbitdaMultiple  *float64 `json:"impliedEbitdaMultiple"`
	ImpliedEbitdarMultiple *float64 `json:"impliedEbitdarMultiple"`
	ImpliedCapRate         *float64 `json:"impliedCapRate"`
	Error                  *string  `json:"error"`
}

// OK reports whether the computation succeeded.
func (r Result) OK() bool {
	return r.Error == nil && r.ImpliedValue != nil
}

func failed(format string, args ...any) Result {
	msg := fmt.Sprintf(format, args...)
	return Result{Error: &msg}
}

// Compute solves for implied value under driver d. Unmet preconditions fail
// fast with a message naming the missing or invalid field; no partial
// result is returned. Nothing is rounded.
func Compute(m snapshot.Metrics, d Driver, value float64) Result {
	if !mathutil.IsFinite(value) {
		return failed("%s must be a finite number", d.Label())
	}

	var implied float64
	switch d {
	case DriverPricePerBed:
		if !mathutil.Positive(m.Beds) {
			return failed("Price per bed requires a bed count greater than zero")
		}
		implied = value * *m.Beds
	case DriverRevenueMultiple:
		if !mathutil.Positive(m.Revenue) {
			return failed("Revenue multiple requires revenue greater than zero")
		}
		implied = value * *m.Revenue
	case DriverEbitdaMultiple:
		if !mathutil.NonZero(m.EBITDA) {
			return failed("EBITDA multiple requires a non-zero EBITDA")
		}
		implied = value * *m.EBITDA
	case DriverEbitdarMultiple:
		if !mathutil.NonZero(m.EBITDAR) {
			return failed("EBITDAR multiple requires a non-zero EBITDAR")
		}
		implied = value * *m.EBITDAR
	case DriverCapRate:
		if !mathutil.NonZero(m.NOI) {
			return failed("Cap rate requires a non-zero NOI")
		}
		if value == 0 {
			return failed("Cap rate must be non-zero")
		}
		implied = *m.NOI / (value / constants.PercentageMultiplier)
	default:
		return failed("unknown valuation driver %q", string(d))
	}
	if !mathutil.IsFinite(implied) {
		return failed("%s produces an implied value out of range", d.Label())
	}

	return Derive(m, implied)
}

// Derive computes every implied multiple from impliedValue alone. A
// denominator that fails its guard, or a quotient that overflows, nils only
// that field. A non-finite impliedValue yields an error result.
func Derive(m snapshot.Metrics, impliedValue float64) Result {
	if !mathutil.IsFinite(impliedValue) {
		return failed("Implied value must be a finite number")
	}
	r := Result{ImpliedValue: mathutil.Float(impliedValue)}

	if mathutil.Positive(m.Beds) {
		r.ImpliedPricePerBed = mathutil.FiniteFloat(impliedValue / *m.Beds)
	}
	if mathutil.Positive(m.Revenue) {
		r.ImpliedRevenueMultiple = mathutil.FiniteFloat(impliedValue / *m.Revenue)
	}
	if mathutil.NonZero(m.EBITDA) {
		r.ImpliedEbitdaMultiple = mathutil.FiniteFloat(impliedValue / *m.EBITDA)
	}
	if mathutil.NonZero(m.EBITDAR) {
		r.ImpliedEbitdarMultiple = mathutil.FiniteFloat(impliedValue / *m.EBITDAR)
	}
	if mathutil.NonZero(m.NOI) && impliedValue != 0 {
		r.ImpliedCapRate = mathutil.FiniteFloat((*m.NOI / impliedValue) * constants.PercentageMultiplier)
	}
	return r
}

// Metric returns the implied metric in r that corresponds to driver d.
func (r Result) Metric(d Driver) *float64 {
	switch d {
	case DriverPricePerBed:
		return r.ImpliedPricePerBed
	case DriverRevenueMultiple:
		return r.ImpliedRevenueMultiple
	case DriverEbitdaMultiple:
		return r.ImpliedEbitdaMultiple
	case DriverEbitdarMultiple:
		return r.ImpliedEbitdarMultiple
	case DriverCapRate:
		return r.ImpliedCapRate
	}
	return nil
}

// Reverse re-derives implied value from a driver metric using the same
// driver formula as Compute.
func Reverse(m snapshot.Metrics, d Driver, metric float64) (float64, error) {
	r := Compute(m, d, metric)
	if !r.OK() {
		return 0, fmt.Errorf("%s", *r.Error)
	}
	return *r.ImpliedValue, nil
}
