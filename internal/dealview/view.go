// Package dealview holds the state of one open deal: the metrics snapshot,
// the last valuation, the live benchmark set and the debounced opportunity
// analysis. A view has a single writer; switching deals discards it.
package dealview

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Nikonomics/PostAcutePulse-sub001/internal/benchmark"
	"github.com/Nikonomics/PostAcutePulse-sub001/internal/extraction"
	"github.com/Nikonomics/PostAcutePulse-sub001/internal/fault"
	"github.com/Nikonomics/PostAcutePulse-sub001/internal/recalc"
	"github.com/Nikonomics/PostAcutePulse-sub001/internal/scenario"
	"github.com/Nikonomics/PostAcutePulse-sub001/internal/snapshot"
	"github.com/Nikonomics/PostAcutePulse-sub001/internal/telemetry"
	"github.com/Nikonomics/PostAcutePulse-sub001/internal/valuation"
	"github.com/Nikonomics/PostAcutePulse-sub001/pkg/mathutil"
)

var (
	// ErrControlDisabled rejects a benchmark edit whose actual metric is unknown.
	ErrControlDisabled = errors.New("benchmark control disabled")
	// ErrNoActiveDeal is returned before any deal has been opened.
	ErrNoActiveDeal = errors.New("no active deal")
)

// Deps are the collaborators shared by every view.
type Deps struct {
	Source         extraction.Source
	Engine         *benchmark.Engine
	Scenarios      *scenario.Service
	Logger         *zap.Logger
	Metrics        *telemetry.Metrics
	DebounceWindow time.Duration
}

type analysisRequest struct {
	inputs benchmark.Inputs
	set    benchmark.Set
}

// View is the state of one open deal.
type View struct {
	mu     sync.Mutex
	dealID string
	deps   Deps
	logger *zap.Logger

	store  *snapshot.Store
	extras benchmark.Inputs
	report extraction.Report

	valuationErr string

	benchmarks     benchmark.Set
	baseline       benchmark.Set
	loadedScenario string

	scheduler *recalc.Scheduler[analysisRequest, benchmark.Analysis]
}

// withDefaults fills in the logger, a local engine and an in-memory
// scenario service.
func (d Deps) withDefaults() Deps {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Engine == nil {
		d.Engine = benchmark.NewEngine(d.Logger, nil, d.Metrics)
	}
	if d.Scenarios == nil {
		d.Scenarios = scenario.NewService(d.Logger, scenario.NewMemoryRepository(), d.Metrics)
	}
	return d
}

// NewView builds a view over record and starts the first analysis.
func NewView(deps Deps, record extraction.Record) *View {
	deps = deps.withDefaults()
	logger := deps.Logger

	v := &View{
		dealID:     record.DealID,
		deps:       deps,
		logger:     logger,
		store:      snapshot.NewStore(record.Snapshot()),
		extras:     record.Inputs(),
		report:     extraction.BuildReport(record),
		benchmarks: benchmark.Defaults(),
		baseline:   benchmark.Defaults(),
	}
	v.scheduler = recalc.New(deps.DebounceWindow, func(ctx context.Context, req analysisRequest) (benchmark.Analysis, error) {
		return deps.Engine.Analyze(ctx, v.dealID, req.inputs, req.set)
	})

	v.scheduler.Submit(v.analysisRequest())
	v.scheduler.Flush()
	return v
}

// DealID is the deal this view was opened for.
func (v *View) DealID() string { return v.dealID }

// Report is the extraction report the view was opened with.
func (v *View) Report() extraction.Report { return v.report }

func (v *View) analysisRequest() analysisRequest {
	v.mu.Lock()
	defer v.mu.Unlock()
	return analysisRequest{
		inputs: v.extras.WithMetrics(v.store.Editable()),
		set:    v.benchmarks,
	}
}

func (v *View) scheduleAnalysis() {
	v.scheduler.Submit(v.analysisRequest())
}

// Calculate runs the valuation calculator against the editable snapshot. A
// failed computation records its error and keeps the previous result.
func (v *View) Calculate(driver valuation.Driver, value float64) valuation.Result {
	editable, version := v.store.EditableVersion()
	result := valuation.Compute(editable, driver, value)
	v.deps.Metrics.Valuation(string(driver), result.OK())

	v.mu.Lock()
	defer v.mu.Unlock()
	if !result.OK() {
		v.valuationErr = *result.Error
		v.logger.Debug("Valuation rejected",
			zap.String("op", "dealview.Calculate"),
			zap.String("dealID", v.dealID),
			zap.String("driver", string(driver)),
			zap.String("reason", v.valuationErr))
		return result
	}
	v.valuationErr = ""
	if !v.store.CacheResult(version, result) {
		v.logger.Debug("Discarding valuation computed against a superseded snapshot",
			zap.String("op", "dealview.Calculate"),
			zap.String("dealID", v.dealID))
	}
	return result
}

// Valuation returns the cached valuation, if any, and the last error.
func (v *View) Valuation() (*valuation.Result, string) {
	v.mu.Lock()
	errMsg := v.valuationErr
	v.mu.Unlock()

	if cached, ok := v.store.CachedResult().(valuation.Result); ok {
		return &cached, errMsg
	}
	return nil, errMsg
}

// SetField applies a raw edit to the editable snapshot.
func (v *View) SetField(field snapshot.Field, raw string) error {
	if err := v.store.SetField(field, raw); err != nil {
		return fieldFault(field, err)
	}
	v.clearValuationError()
	v.scheduleAnalysis()
	return nil
}

// ResetField restores one field to its original value.
func (v *View) ResetField(field snapshot.Field) error {
	if err := v.store.ResetField(field); err != nil {
		return fieldFault(field, err)
	}
	v.clearValuationError()
	v.scheduleAnalysis()
	return nil
}

// ResetAll restores every field to its original value.
func (v *View) ResetAll() {
	v.store.ResetAll()
	v.clearValuationError()
	v.scheduleAnalysis()
}

func (v *View) clearValuationError() {
	v.mu.Lock()
	v.valuationErr = ""
	v.mu.Unlock()
}

func fieldFault(field snapshot.Field, err error) error {
	return &fault.Error{Kind: fault.KindValidation, Field: string(field), Message: "rejected edit", Err: err}
}

// Benchmarks returns the live benchmark set.
func (v *View) Benchmarks() benchmark.Set {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.benchmarks
}

// SetBenchmark edits one target and schedules a recompute. Targets whose
// actual metric is unknown cannot be edited.
func (v *View) SetBenchmark(key benchmark.Key, value float64) error {
	parsed, err := benchmark.ParseKey(string(key))
	if err != nil {
		return fault.Validation(string(key), "%v", err)
	}
	key = parsed
	if !mathutil.IsFinite(value) {
		return fault.Validation(string(key), "benchmark must be a finite number")
	}

	v.mu.Lock()
	inputs := v.extras.WithMetrics(v.store.Editable())
	if !benchmark.Enabled(inputs, key) {
		v.mu.Unlock()
		return controlDisabled(key)
	}
	v.benchmarks = v.benchmarks.With(key, value)
	v.mu.Unlock()

	v.scheduleAnalysis()
	return nil
}

// ReplaceBenchmarks swaps in a whole benchmark set. Like SetBenchmark, it
// refuses to change a target whose actual metric is unknown; unchanged
// disabled targets pass through.
func (v *View) ReplaceBenchmarks(set benchmark.Set) error {
	v.mu.Lock()
	inputs := v.extras.WithMetrics(v.store.Editable())
	for _, key := range benchmark.Diff(set, v.benchmarks).SortedKeys() {
		if !benchmark.Enabled(inputs, key) {
			v.mu.Unlock()
			return controlDisabled(key)
		}
	}
	v.benchmarks = set
	v.mu.Unlock()

	v.scheduleAnalysis()
	return nil
}

func controlDisabled(key benchmark.Key) error {
	return &fault.Error{
		Kind:    fault.KindValidation,
		Field:   string(key),
		Message: fmt.Sprintf("%s is unknown for this deal", benchmark.Label(key)),
		Err:     ErrControlDisabled,
	}
}

// BenchmarksModified lists targets that differ from the loaded baseline:
// the loaded scenario's effective set, or the defaults.
func (v *View) BenchmarksModified() []benchmark.Key {
	v.mu.Lock()
	defer v.mu.Unlock()
	return benchmark.Diff(v.benchmarks, v.baseline).SortedKeys()
}

// LoadedScenario is the id of the scenario used as baseline, if any.
func (v *View) LoadedScenario() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.loadedScenario
}

// SaveScenario stores the live benchmarks under name with a fresh analysis
// of them, and makes the saved scenario the baseline.
func (v *View) SaveScenario(ctx context.Context, name, notes string) (scenario.Scenario, error) {
	req := v.analysisRequest()
	analysis, err := v.deps.Engine.Analyze(ctx, v.dealID, req.inputs, req.set)
	if err != nil {
		return scenario.Scenario{}, err
	}
	saved, err := v.deps.Scenarios.Save(ctx, v.dealID, name, req.set, notes, analysis)
	if err != nil {
		return scenario.Scenario{}, err
	}

	v.mu.Lock()
	v.loadedScenario = saved.ID
	v.baseline = scenario.Load(saved)
	v.mu.Unlock()
	return saved, nil
}

// LoadScenario replaces the live benchmarks with the scenario's effective set.
func (v *View) LoadScenario(ctx context.Context, id string) (benchmark.Set, error) {
	sc, err := v.deps.Scenarios.Find(ctx, v.dealID, id)
	if err != nil {
		return benchmark.Set{}, err
	}
	effective := scenario.Load(sc)

	v.mu.Lock()
	v.benchmarks = effective
	v.baseline = effective
	v.loadedScenario = sc.ID
	v.mu.Unlock()

	v.logger.Info("Loaded scenario",
		zap.String("op", "dealview.LoadScenario"),
		zap.String("dealID", v.dealID),
		zap.String("scenarioID", sc.ID))
	v.scheduleAnalysis()
	return effective, nil
}

// DeleteScenario removes a scenario. Deleting the loaded scenario resets the
// live benchmarks to the defaults.
func (v *View) DeleteScenario(ctx context.Context, id string) error {
	if err := v.deps.Scenarios.Delete(ctx, v.dealID, id); err != nil {
		return err
	}

	v.mu.Lock()
	wasLoaded := v.loadedScenario == id
	if wasLoaded {
		v.benchmarks = benchmark.Defaults()
		v.baseline = benchmark.Defaults()
		v.loadedScenario = ""
	}
	v.mu.Unlock()

	if wasLoaded {
		v.scheduleAnalysis()
	}
	return nil
}

// ListScenarios returns the deal's scenarios, newest first.
func (v *View) ListScenarios(ctx context.Context) []scenario.Scenario {
	return v.deps.Scenarios.List(ctx, v.dealID)
}

// AnalysisState reports the latest applied analysis and progress flags.
type AnalysisState struct {
	Analysis      *benchmark.Analysis `json:"analysis"`
	Error         string              `json:"error,omitempty"`
	ErrorKind     fault.Kind          `json:"errorKind,omitempty"`
	IsLoading     bool                `json:"isLoading"`
	IsCalculating bool                `json:"isCalculating"`
	Requested     uint64              `json:"requested"`
	Applied       uint64              `json:"applied"`
}

func (v *View) AnalysisState() AnalysisState {
	st := v.scheduler.State()
	out := AnalysisState{
		IsLoading:     st.IsLoading,
		IsCalculating: st.IsCalculating,
		Requested:     st.Requested,
		Applied:       st.Applied,
	}
	if st.HasOutput {
		a := st.Output
		out.Analysis = &a
	}
	if st.Err != nil {
		out.ErrorKind = fault.KindOf(st.Err)
		out.Error = fault.UserMessage(out.ErrorKind)
	}
	return out
}

// Settle dispatches any pending analysis and waits for in-flight ones.
func (v *View) Settle() {
	v.scheduler.Flush()
	v.scheduler.Wait()
}

// Close stops the view's scheduler and drops any pending recompute.
func (v *View) Close() {
	v.scheduler.Stop()
}

// State is a snapshot of everything the deal view shows.
type State struct {
	DealID             string               `json:"dealId"`
	Original           snapshot.Metrics     `json:"original"`
	Editable           snapshot.Metrics     `json:"editable"`
	ModifiedFields     []snapshot.Field     `json:"modifiedFields"`
	HasModifications   bool                 `json:"hasModifications"`
	Valuation          *valuation.Result    `json:"valuation"`
	ValuationError     string               `json:"valuationError,omitempty"`
	Benchmarks         benchmark.Set        `json:"benchmarks"`
	ModifiedBenchmarks []benchmark.Key      `json:"modifiedBenchmarks"`
	LoadedScenarioID   string               `json:"loadedScenarioId,omitempty"`
	Variances          []benchmark.Variance `json:"variances"`
	Analysis           AnalysisState        `json:"analysis"`
}

func (v *View) State() State {
	result, valErr := v.Valuation()
	req := v.analysisRequest()
	modified := v.store.ModifiedFields()
	if modified == nil {
		modified = []snapshot.Field{}
	}
	return State{
		DealID:             v.dealID,
		Original:           v.store.Original(),
		Editable:           v.store.Editable(),
		ModifiedFields:     modified,
		HasModifications:   len(modified) > 0,
		Valuation:          result,
		ValuationError:     valErr,
		Benchmarks:         req.set,
		ModifiedBenchmarks: v.BenchmarksModified(),
		LoadedScenarioID:   v.LoadedScenario(),
		Variances:          benchmark.Variances(req.inputs, req.set),
		Analysis:           v.AnalysisState(),
	}
}
