// Package scenario persists named benchmark-override sets per deal. Only the
// overrides relative to the default benchmarks are stored; loading merges
// them back onto the defaults.
package scenario

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Nikonomics/PostAcutePulse-sub001/internal/benchmark"
	"github.com/Nikonomics/PostAcutePulse-sub001/internal/fault"
	"github.com/Nikonomics/PostAcutePulse-sub001/internal/telemetry"
)

// ErrNotFound is returned when a scenario id does not exist for a deal.
var ErrNotFound = errors.New("scenario not found")

// Scenario is a persisted, named benchmark configuration plus the outputs it
// produced when saved.
type Scenario struct {
	ID                 string                      `json:"id"`
	DealID             string                      `json:"deal_id"`
	ScenarioName       string                      `json:"scenario_name"`
	BenchmarkOverrides benchmark.Overrides         `json:"benchmark_overrides"`
	Notes              string                      `json:"notes"`
	StabilizedRevenue  *float64                    `json:"stabilized_revenue"`
	StabilizedEBITDA   *float64                    `json:"stabilized_ebitda"`
	StabilizedEBITDAR  *float64                    `json:"stabilized_ebitdar"`
	TotalOpportunity   float64                     `json:"total_opportunity"`
	Opportunities      []benchmark.OpportunityItem `json:"opportunities"`
	CreatedAt          time.Time                   `json:"created_at"`
}

// Repository stores scenarios. Save inserts a new record, or overwrites the
// record with the same deal and name while keeping its id.
type Repository interface {
	List(ctx context.Context, dealID string) ([]Scenario, error)
	Save(ctx context.Context, s Scenario) (Scenario, error)
	Delete(ctx context.Context, dealID, id string) error
}

// Service applies the override rules on top of a Repository.
type Service struct {
	repo    Repository
	logger  *zap.Logger
	metrics *telemetry.Metrics
	now     func() time.Time
}

// NewService wires a scenario service.
func NewService(logger *zap.Logger, repo Repository, metrics *telemetry.Metrics) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{repo: repo, logger: logger, metrics: metrics, now: time.Now}
}

// Save stores set as overrides against the defaults together with the
// analysis outputs. Persistence failures are conflict faults.
func (s *Service) Save(ctx context.Context, dealID, name string, set benchmark.Set, notes string, analysis benchmark.Analysis) (Scenario, error) {
	dealID = strings.TrimSpace(dealID)
	name = strings.TrimSpace(name)
	if dealID == "" {
		return Scenario{}, fault.Validation("dealId", "deal id is required")
	}
	if name == "" {
		return Scenario{}, fault.Validation("scenario_name", "scenario name is required")
	}

	record := Scenario{
		ID:                 uuid.New().String(),
		DealID:             dealID,
		ScenarioName:       name,
		BenchmarkOverrides: benchmark.Diff(set, benchmark.Defaults()),
		Notes:              notes,
		StabilizedRevenue:  analysis.StabilizedRevenue,
		StabilizedEBITDA:   analysis.StabilizedEBITDA,
		StabilizedEBITDAR:  analysis.StabilizedEBITDAR,
		TotalOpportunity:   analysis.TotalOpportunity,
		Opportunities:      analysis.Opportunities,
		CreatedAt:          s.now().UTC(),
	}

	saved, err := s.repo.Save(ctx, record)
	s.metrics.ScenarioOp("save", err == nil)
	if err != nil {
		s.logger.Error("Failed to save scenario",
			zap.String("op", "scenario.Save"),
			zap.String("dealID", dealID),
			zap.String("scenarioName", name),
			zap.Error(err))
		return Scenario{}, fault.Wrap(fault.KindConflict, err, "save scenario %q", name)
	}

	s.logger.Info("Saved scenario",
		zap.String("op", "scenario.Save"),
		zap.String("dealID", dealID),
		zap.String("scenarioID", saved.ID),
		zap.Int("overrides", len(saved.BenchmarkOverrides)))
	return saved, nil
}

// Load returns the effective benchmark set of sc.
func Load(sc Scenario) benchmark.Set {
	return benchmark.Merge(benchmark.Defaults(), sc.BenchmarkOverrides)
}

// List returns the deal's scenarios, newest first. Failures are logged and
// yield an empty list.
func (s *Service) List(ctx context.Context, dealID string) []Scenario {
	scenarios, err := s.repo.List(ctx, dealID)
	s.metrics.ScenarioOp("list", err == nil)
	if err != nil {
		s.logger.Warn("Failed to list scenarios",
			zap.String("op", "scenario.List"),
			zap.String("dealID", dealID),
			zap.Error(err))
		return []Scenario{}
	}
	if scenarios == nil {
		return []Scenario{}
	}
	sortNewestFirst(scenarios)
	return scenarios
}

// Delete removes a scenario. A missing id is a not-found fault; any other
// failure is a conflict fault.
func (s *Service) Delete(ctx context.Context, dealID, id string) error {
	err := s.repo.Delete(ctx, dealID, id)
	s.metrics.ScenarioOp("delete", err == nil)
	switch {
	case err == nil:
		s.logger.Info("Deleted scenario",
			zap.String("op", "scenario.Delete"),
			zap.String("dealID", dealID),
			zap.String("scenarioID", id))
		return nil
	case errors.Is(err, ErrNotFound):
		return fault.Wrap(fault.KindNotFound, err, "scenario %s", id)
	default:
		s.logger.Error("Failed to delete scenario",
			zap.String("op", "scenario.Delete"),
			zap.String("dealID", dealID),
			zap.String("scenarioID", id),
			zap.Error(err))
		return fault.Wrap(fault.KindConflict, err, "delete scenario %s", id)
	}
}

// Find returns the scenario with id for the deal.
func (s *Service) Find(ctx context.Context, dealID, id string) (Scenario, error) {
	scenarios, err := s.repo.List(ctx, dealID)
	if err != nil {
		return Scenario{}, fmt.Errorf("list scenarios for deal %s: %w", dealID, err)
	}
	for _, sc := range scenarios {
		if sc.ID == id {
			return sc, nil
		}
	}
	return Scenario{}, fault.Wrap(fault.KindNotFound, ErrNotFound, "scenario %s", id)
}
