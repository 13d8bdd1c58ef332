package scenario

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/Nikonomics/PostAcutePulse-sub001/internal/benchmark"
	"github.com/Nikonomics/PostAcutePulse-sub001/internal/fault"
)

type failingRepository struct{ err error }

func (r failingRepository) List(context.Context, string) ([]Scenario, error) { return nil, r.err }
func (r failingRepository) Save(context.Context, Scenario) (Scenario, error) {
	return Scenario{}, r.err
}
func (r failingRepository) Delete(context.Context, string, string) error { return r.err }

func newTestService(repo Repository) *Service {
	svc := NewService(zap.NewNop(), repo, nil)
	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	svc.now = func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}
	return svc
}

func TestSaveStoresOnlyOverrides(t *testing.T) {
	svc := newTestService(NewMemoryRepository())
	active := benchmark.Defaults().With(benchmark.KeyOccupancy, 90)

	saved, err := svc.Save(context.Background(), "deal-1", "Upside", active, "", benchmark.Analysis{TotalOpportunity: 12})
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if saved.ID == "" {
		t.Fatalf("Save() returned no id")
	}
	if len(saved.BenchmarkOverrides) != 1 || saved.BenchmarkOverrides[benchmark.KeyOccupancy] != 90 {
		t.Fatalf("BenchmarkOverrides = %v, expected {occupancy_target: 90}", saved.BenchmarkOverrides)
	}
	if saved.TotalOpportunity != 12 {
		t.Fatalf("TotalOpportunity = %v, expected 12", saved.TotalOpportunity)
	}
	if got := Load(saved); got != active {
		t.Fatalf("Load() = %+v, expected %+v", got, active)
	}
}

func TestSaveOverwritesByName(t *testing.T) {
	svc := newTestService(NewMemoryRepository())
	ctx := context.Background()

	first, err := svc.Save(ctx, "deal-1", "Base", benchmark.Defaults(), "v1", benchmark.Analysis{})
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	second, err := svc.Save(ctx, "deal-1", "Base", benchmark.Defaults().With(benchmark.KeyLaborPct, 50), "v2", benchmark.Analysis{})
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("overwrite changed id %s -> %s", first.ID, second.ID)
	}

	list := svc.List(ctx, "deal-1")
	if len(list) != 1 || list[0].Notes != "v2" {
		t.Fatalf("List() = %+v, expected the overwritten record only", list)
	}
	if _, ok := list[0].BenchmarkOverrides[benchmark.KeyOccupancy]; ok {
		t.Fatalf("overwrite must replace overrides, not patch them")
	}
}

func TestListNewestFirstAndScopedByDeal(t *testing.T) {
	svc := newTestService(NewMemoryRepository())
	ctx := context.Background()
	for _, name := range []string{"a", "b", "c"} {
		if _, err := svc.Save(ctx, "deal-1", name, benchmark.Defaults(), "", benchmark.Analysis{}); err != nil {
			t.Fatalf("Save(%s) error = %v", name, err)
		}
	}
	_, _ = svc.Save(ctx, "deal-2", "other", benchmark.Defaults(), "", benchmark.Analysis{})

	list := svc.List(ctx, "deal-1")
	if len(list) != 3 {
		t.Fatalf("List() returned %d scenarios, expected 3", len(list))
	}
	if list[0].ScenarioName != "c" || list[2].ScenarioName != "a" {
		t.Fatalf("List() order = %s,%s,%s; expected newest first", list[0].ScenarioName, list[1].ScenarioName, list[2].ScenarioName)
	}
}

func TestSaveValidation(t *testing.T) {
	svc := newTestService(NewMemoryRepository())
	_, err := svc.Save(context.Background(), "deal-1", "   ", benchmark.Defaults(), "", benchmark.Analysis{})
	if !fault.Is(err, fault.KindValidation) {
		t.Fatalf("Save() error = %v, expected a validation fault", err)
	}
}

func TestPersistenceFailures(t *testing.T) {
	cause := errors.New("connection reset")
	svc := newTestService(failingRepository{err: cause})
	ctx := context.Background()

	if list := svc.List(ctx, "deal-1"); list == nil || len(list) != 0 {
		t.Fatalf("List() = %v, expected an empty non-nil slice", list)
	}

	_, err := svc.Save(ctx, "deal-1", "x", benchmark.Defaults(), "", benchmark.Analysis{})
	if !fault.Is(err, fault.KindConflict) || !errors.Is(err, cause) {
		t.Fatalf("Save() error = %v, expected a conflict wrapping the cause", err)
	}

	if err := svc.Delete(ctx, "deal-1", "id"); !fault.Is(err, fault.KindConflict) {
		t.Fatalf("Delete() error = %v, expected a conflict", err)
	}
}

func TestDeleteAndFind(t *testing.T) {
	svc := newTestService(NewMemoryRepository())
	ctx := context.Background()
	saved, _ := svc.Save(ctx, "deal-1", "x", benchmark.Defaults(), "", benchmark.Analysis{})

	found, err := svc.Find(ctx, "deal-1", saved.ID)
	if err != nil || found.ScenarioName != "x" {
		t.Fatalf("Find() = %+v, %v", found, err)
	}
	if err := svc.Delete(ctx, "deal-1", saved.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := svc.Delete(ctx, "deal-1", saved.ID); !fault.Is(err, fault.KindNotFound) {
		t.Fatalf("second Delete() error = %v, expected not found", err)
	}
	if _, err := svc.Find(ctx, "deal-1", saved.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Find() after delete error = %v", err)
	}
}
