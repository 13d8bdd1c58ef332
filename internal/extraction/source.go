package extraction

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/Nikonomics/PostAcutePulse-sub001/internal/fault"
)

// Source fetches the extracted metrics for a deal.
type Source interface {
	Fetch(ctx context.Context, dealID string) (Record, error)
}

// MemorySource serves records held in process.
type MemorySource struct {
	mu      sync.RWMutex
	records map[string]Record
}

func NewMemorySource(records ...Record) *MemorySource {
	s := &MemorySource{records: make(map[string]Record)}
	for _, r := range records {
		s.Put(r)
	}
	return s
}

// Put stores r under its deal id, replacing any previous record.
func (s *MemorySource) Put(r Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[r.DealID] = r.clone()
}

func (s *MemorySource) Fetch(_ context.Context, dealID string) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[dealID]
	if !ok {
		return Record{}, fmt.Errorf("deal %s: %w", dealID, ErrNotFound)
	}
	return r.clone(), nil
}

// FileSource reads one YAML (or JSON) document per deal from a directory,
// named <dealID>.yaml, <dealID>.yml or <dealID>.json.
type FileSource struct {
	dir    string
	logger *zap.Logger
}

func NewFileSource(logger *zap.Logger, dir string) *FileSource {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileSource{dir: dir, logger: logger}
}

func (s *FileSource) Fetch(ctx context.Context, dealID string) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}
	if dealID == "" || strings.ContainsAny(dealID, `/\`) || strings.Contains(dealID, "..") {
		return Record{}, fault.Validation("dealId", "invalid deal id %q", dealID)
	}

	for _, ext := range []string{".yaml", ".yml", ".json"} {
		path := filepath.Join(s.dir, dealID+ext)
		data, err := os.ReadFile(path)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return Record{}, fmt.Errorf("failed to read extraction file %s: %w", path, err)
		}

		var record Record
		if err := yaml.Unmarshal(data, &record); err != nil {
			s.logger.Warn("Malformed extraction file",
				zap.String("op", "extraction.FileSource.Fetch"),
				zap.String("path", path),
				zap.Error(err))
			return Record{}, fault.Wrap(fault.KindInvalidPayload, err, "parse extraction file %s", filepath.Base(path))
		}
		if record.DealID == "" {
			record.DealID = dealID
		}
		s.logger.Debug("Loaded extraction file",
			zap.String("op", "extraction.FileSource.Fetch"),
			zap.String("dealID", dealID),
			zap.String("path", path))
		return record, nil
	}
	return Record{}, fmt.Errorf("deal %s: %w", dealID, ErrNotFound)
}
