package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/Nikonomics/PostAcutePulse-sub001/internal/benchmark"
	"github.com/Nikonomics/PostAcutePulse-sub001/internal/scenario"
)

// ScenarioRepository implements scenario.Repository on benchmark_scenarios.
type ScenarioRepository struct {
	db *DB
}

func NewScenarioRepository(db *DB) *ScenarioRepository {
	return &ScenarioRepository{db: db}
}

func (r *ScenarioRepository) List(ctx context.Context, dealID string) ([]scenario.Scenario, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, deal_id, scenario_name, benchmark_overrides, notes,
		       stabilized_revenue, stabilized_ebitda, stabilized_ebitdar,
		       total_opportunity, opportunities, created_at
		FROM benchmark_scenarios
		WHERE deal_id = $1
		ORDER BY created_at DESC
	`, dealID)
	if err != nil {
		return nil, fmt.Errorf("failed to query scenarios: %w", err)
	}
	defer rows.Close()

	out := []scenario.Scenario{}
	for rows.Next() {
		var (
			s             scenario.Scenario
			overrides     []byte
			opportunities []byte
		)
		if err := rows.Scan(&s.ID, &s.DealID, &s.ScenarioName, &overrides, &s.Notes,
			&s.StabilizedRevenue, &s.StabilizedEBITDA, &s.StabilizedEBITDAR,
			&s.TotalOpportunity, &opportunities, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan scenario: %w", err)
		}
		if err := json.Unmarshal(overrides, &s.BenchmarkOverrides); err != nil {
			return nil, fmt.Errorf("failed to decode overrides of scenario %s: %w", s.ID, err)
		}
		if err := json.Unmarshal(opportunities, &s.Opportunities); err != nil {
			return nil, fmt.Errorf("failed to decode opportunities of scenario %s: %w", s.ID, err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate scenarios: %w", err)
	}
	return out, nil
}

// Save upserts by (deal_id, scenario_name); an overwrite keeps the stored id.
func (r *ScenarioRepository) Save(ctx context.Context, s scenario.Scenario) (scenario.Scenario, error) {
	overrides := s.BenchmarkOverrides
	if overrides == nil {
		overrides = benchmark.Overrides{}
	}
	overridesJSON, err := json.Marshal(overrides)
	if err != nil {
		return scenario.Scenario{}, fmt.Errorf("failed to marshal overrides: %w", err)
	}
	opportunities := s.Opportunities
	if opportunities == nil {
		opportunities = []benchmark.OpportunityItem{}
	}
	opportunitiesJSON, err := json.Marshal(opportunities)
	if err != nil {
		return scenario.Scenario{}, fmt.Errorf("failed to marshal opportunities: %w", err)
	}

	err = r.db.Pool.QueryRow(ctx, `
		INSERT INTO benchmark_scenarios (
			id, deal_id, scenario_name, benchmark_overrides, notes,
			stabilized_revenue, stabilized_ebitda, stabilized_ebitdar,
			total_opportunity, opportunities, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (deal_id, scenario_name)
		DO UPDATE SET
			benchmark_overrides = EXCLUDED.benchmark_overrides,
			notes = EXCLUDED.notes,
			stabilized_revenue = EXCLUDED.stabilized_revenue,
			stabilized_ebitda = EXCLUDED.stabilized_ebitda,
			stabilized_ebitdar = EXCLUDED.stabilized_ebitdar,
			total_opportunity = EXCLUDED.total_opportunity,
			opportunities = EXCLUDED.opportunities,
			created_at = EXCLUDED.created_at
		RETURNING id, created_at
	`, s.ID, s.DealID, s.ScenarioName, overridesJSON, s.Notes,
		s.StabilizedRevenue, s.StabilizedEBITDA, s.StabilizedEBITDAR,
		s.TotalOpportunity, opportunitiesJSON, s.CreatedAt).Scan(&s.ID, &s.CreatedAt)
	if err != nil {
		return scenario.Scenario{}, fmt.Errorf("failed to save scenario: %w", err)
	}
	s.BenchmarkOverrides = overrides
	s.Opportunities = opportunities
	return s, nil
}

func (r *ScenarioRepository) Delete(ctx context.Context, dealID, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("scenario %q: %w", id, scenario.ErrNotFound)
	}
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM benchmark_scenarios WHERE deal_id = $1 AND id = $2`, dealID, id)
	if err != nil {
		return fmt.Errorf("failed to delete scenario: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("scenario %s: %w", id, scenario.ErrNotFound)
	}
	return nil
}
