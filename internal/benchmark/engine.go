package benchmark

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Nikonomics/PostAcutePulse-sub001/internal/fault"
	"github.com/Nikonomics/PostAcutePulse-sub001/internal/telemetry"
	"github.com/Nikonomics/PostAcutePulse-sub001/pkg/mathutil"
)

// Analysis is the full opportunity result for one benchmark set.
type Analysis struct {
	StabilizedRevenue *float64          `json:"stabilized_revenue"`
	StabilizedEBITDA  *float64          `json:"stabilized_ebitda"`
	StabilizedEBITDAR *float64          `json:"stabilized_ebitdar"`
	Opportunities     []OpportunityItem `json:"opportunities"`
	TotalOpportunity  float64           `json:"total_opportunity"`
	Variances         []Variance        `json:"variances"`
	Issues            []Issue           `json:"issues"`
}

// IssueCounts tallies issues by status.
func (a Analysis) IssueCounts() map[Status]int {
	counts := make(map[Status]int)
	for _, issue := range a.Issues {
		counts[issue.Status]++
	}
	return counts
}

// Engine runs an opportunity analysis through a Calculator and classifies
// the result.
type Engine struct {
	calc    Calculator
	logger  *zap.Logger
	metrics *telemetry.Metrics
}

// NewEngine wires an engine. A nil calculator falls back to LocalCalculator.
func NewEngine(logger *zap.Logger, calc Calculator, metrics *telemetry.Metrics) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if calc == nil {
		calc = LocalCalculator{}
	}
	return &Engine{calc: calc, logger: logger, metrics: metrics}
}

// Analyze computes the analysis for in under set. Collaborator failures are
// returned as faults; the caller keeps whatever result it had before.
func (e *Engine) Analyze(ctx context.Context, dealID string, in Inputs, set Set) (Analysis, error) {
	start := time.Now()
	e.logger.Debug("Starting opportunity analysis",
		zap.String("op", "benchmark.Analyze"),
		zap.String("dealID", dealID))

	calc, err := e.calc.Calculate(ctx, dealID, in, set)
	if err != nil {
		e.metrics.Analysis(time.Since(start), false)
		e.metrics.CollaboratorError(string(fault.KindOf(err)))
		e.logger.Warn("Opportunity calculation failed",
			zap.String("op", "benchmark.Analyze"),
			zap.String("dealID", dealID),
			zap.Error(err))
		return Analysis{}, fmt.Errorf("calculate opportunities for deal %s: %w", dealID, err)
	}

	analysis := assemble(calc, in, set, e.logger)
	e.metrics.Analysis(time.Since(start), true)
	e.logger.Debug("Opportunity analysis complete",
		zap.String("op", "benchmark.Analyze"),
		zap.String("dealID", dealID),
		zap.Int("opportunities", len(analysis.Opportunities)),
		zap.Float64("totalOpportunity", analysis.TotalOpportunity),
		zap.Int("issues", len(analysis.Issues)))
	return analysis, nil
}

// ComputeOpportunityAnalysis is the pure entry point over LocalCalculator.
func ComputeOpportunityAnalysis(in Inputs, set Set) Analysis {
	return assemble(calculate(in, set), in, set, zap.NewNop())
}

func assemble(calc Calculation, in Inputs, set Set, logger *zap.Logger) Analysis {
	items := make([]OpportunityItem, 0, len(calc.Opportunities))
	var total float64
	for _, item := range calc.Opportunities {
		if item.Opportunity < 0 || !mathutil.IsFinite(item.Opportunity) || !mathutil.IsFinite(total+item.Opportunity) {
			logger.Warn("Dropping invalid opportunity from calculator",
				zap.String("op", "benchmark.assemble"),
				zap.String("category", item.Category),
				zap.Float64("opportunity", item.Opportunity))
			continue
		}
		total += item.Opportunity
		items = append(items, item)
	}
	sortOpportunities(items)

	variances := Variances(in, set)
	return Analysis{
		StabilizedRevenue: finiteCopy(calc.StabilizedRevenue),
		StabilizedEBITDA:  finiteCopy(calc.StabilizedEBITDA),
		StabilizedEBITDAR: finiteCopy(calc.StabilizedEBITDAR),
		Opportunities:     items,
		TotalOpportunity:  total,
		Variances:         variances,
		Issues:            Issues(variances),
	}
}

func finiteCopy(p *float64) *float64 {
	if p == nil {
		return nil
	}
	return mathutil.FiniteFloat(*p)
}
