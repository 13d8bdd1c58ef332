package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/Nikonomics/PostAcutePulse-sub001/internal/extraction"
	"github.com/Nikonomics/PostAcutePulse-sub001/internal/fault"
)

// ExtractionSource reads extraction payloads from deal_extraction_metrics.
type ExtractionSource struct {
	db *DB
}

func NewExtractionSource(db *DB) *ExtractionSource {
	return &ExtractionSource{db: db}
}

func (s *ExtractionSource) Fetch(ctx context.Context, dealID string) (extraction.Record, error) {
	var payload []byte
	err := s.db.Pool.QueryRow(ctx,
		`SELECT payload FROM deal_extraction_metrics WHERE deal_id = $1`, dealID).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return extraction.Record{}, fmt.Errorf("deal %s: %w", dealID, extraction.ErrNotFound)
	}
	if err != nil {
		return extraction.Record{}, fmt.Errorf("failed to load extraction: %w", err)
	}

	var record extraction.Record
	if err := json.Unmarshal(payload, &record); err != nil {
		return extraction.Record{}, fault.Wrap(fault.KindInvalidPayload, err, "decode extraction for deal %s", dealID)
	}
	if record.DealID == "" {
		record.DealID = dealID
	}
	return record, nil
}

// Put stores r as the extraction payload of its deal.
func (s *ExtractionSource) Put(ctx context.Context, r extraction.Record) error {
	if r.DealID == "" {
		return fault.Validation("dealId", "deal id is required")
	}
	payload, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to marshal extraction: %w", err)
	}
	_, err = s.db.Pool.Exec(ctx, `
		INSERT INTO deal_extraction_metrics (deal_id, payload, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (deal_id)
		DO UPDATE SET payload = EXCLUDED.payload, updated_at = EXCLUDED.updated_at
	`, r.DealID, payload)
	if err != nil {
		return fmt.Errorf("failed to save extraction: %w", err)
	}
	return nil
}
