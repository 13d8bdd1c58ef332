// Package server exposes the deal engine over HTTP: stateless deal endpoints
// plus per-session deal views.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/Nikonomics/PostAcutePulse-sub001/internal/benchmark"
	"github.com/Nikonomics/PostAcutePulse-sub001/internal/dealview"
	"github.com/Nikonomics/PostAcutePulse-sub001/internal/extraction"
	"github.com/Nikonomics/PostAcutePulse-sub001/internal/fault"
	"github.com/Nikonomics/PostAcutePulse-sub001/internal/scenario"
	"github.com/Nikonomics/PostAcutePulse-sub001/internal/snapshot"
	"github.com/Nikonomics/PostAcutePulse-sub001/internal/telemetry"
	"github.com/Nikonomics/PostAcutePulse-sub001/internal/valuation"
	"github.com/Nikonomics/PostAcutePulse-sub001/pkg/constants"
	"github.com/Nikonomics/PostAcutePulse-sub001/pkg/validation"
)

// Options wires the handler to its collaborators. Source is required; the
// rest default to in-process implementations.
type Options struct {
	Logger         *zap.Logger
	Source         extraction.Source
	Engine         *benchmark.Engine
	Scenarios      *scenario.Service
	Sessions       *dealview.Registry
	Metrics        *telemetry.Metrics
	DebounceWindow time.Duration
	MaxBodySize    int64
	AllowedOrigins []string
	Version        string
}

type handler struct {
	logger      *zap.Logger
	source      extraction.Source
	engine      *benchmark.Engine
	scenarios   *scenario.Service
	sessions    *dealview.Registry
	metrics     *telemetry.Metrics
	maxBodySize int64
	version     string
}

// NewHandler constructs the HTTP handler that serves the deal API.
func NewHandler(opts Options) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	maxBodySize := opts.MaxBodySize
	if maxBodySize <= 0 {
		maxBodySize = constants.DefaultMaxBodySizeBytes
	}

	trimmedVersion := strings.TrimSpace(opts.Version)
	if trimmedVersion == "" {
		trimmedVersion = "dev"
	}

	engine := opts.Engine
	if engine == nil {
		engine = benchmark.NewEngine(logger, nil, opts.Metrics)
	}
	scenarios := opts.Scenarios
	if scenarios == nil {
		scenarios = scenario.NewService(logger, scenario.NewMemoryRepository(), opts.Metrics)
	}
	sessions := opts.Sessions
	if sessions == nil {
		sessions = dealview.NewRegistry(dealview.Deps{
			Source:         opts.Source,
			Engine:         engine,
			Scenarios:      scenarios,
			Logger:         logger,
			Metrics:        opts.Metrics,
			DebounceWindow: opts.DebounceWindow,
		})
	}

	h := &handler{
		logger:      logger,
		source:      opts.Source,
		engine:      engine,
		scenarios:   scenarios,
		sessions:    sessions,
		metrics:     opts.Metrics,
		maxBodySize: maxBodySize,
		version:     trimmedVersion,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(h.logRequests)

	r.Method(http.MethodGet, "/healthz", h.route("/healthz", h.handleHealth))
	r.Method(http.MethodGet, "/metrics", opts.Metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Method(http.MethodGet, "/version", h.route("/api/version", h.handleVersion))
		r.Method(http.MethodGet, "/benchmarks/defaults", h.route("/api/benchmarks/defaults", h.handleBenchmarkDefaults))
		r.Method(http.MethodGet, "/drivers", h.route("/api/drivers", h.handleDrivers))

		r.Route("/deals/{dealID}", func(r chi.Router) {
			r.Method(http.MethodGet, "/metrics", h.route("/api/deals/{dealID}/metrics", h.handleDealMetrics))
			r.Method(http.MethodPost, "/valuation", h.route("/api/deals/{dealID}/valuation", h.handleDealValuation))
			r.Method(http.MethodPost, "/analysis", h.route("/api/deals/{dealID}/analysis", h.handleDealAnalysis))
			r.Method(http.MethodGet, "/scenarios", h.route("/api/deals/{dealID}/scenarios", h.handleListScenarios))
			r.Method(http.MethodPost, "/scenarios", h.route("/api/deals/{dealID}/scenarios", h.handleSaveScenario))
			r.Method(http.MethodDelete, "/scenarios/{scenarioID}", h.route("/api/deals/{dealID}/scenarios/{scenarioID}", h.handleDeleteScenario))
		})

		r.Route("/sessions/{sessionID}", func(r chi.Router) {
			const prefix = "/api/sessions/{sessionID}"
			r.Method(http.MethodGet, "/", h.route(prefix, h.handleSessionState))
			r.Method(http.MethodDelete, "/", h.route(prefix, h.handleSessionDrop))
			r.Method(http.MethodPost, "/deal", h.route(prefix+"/deal", h.handleSessionOpen))
			r.Method(http.MethodPut, "/fields/{field}", h.route(prefix+"/fields/{field}", h.handleSessionSetField))
			r.Method(http.MethodPost, "/fields/{field}/reset", h.route(prefix+"/fields/{field}/reset", h.handleSessionResetField))
			r.Method(http.MethodPost, "/reset", h.route(prefix+"/reset", h.handleSessionResetAll))
			r.Method(http.MethodPost, "/valuation", h.route(prefix+"/valuation", h.handleSessionValuation))
			r.Method(http.MethodPut, "/benchmarks", h.route(prefix+"/benchmarks", h.handleSessionReplaceBenchmarks))
			r.Method(http.MethodPut, "/benchmarks/{key}", h.route(prefix+"/benchmarks/{key}", h.handleSessionSetBenchmark))
			r.Method(http.MethodGet, "/analysis", h.route(prefix+"/analysis", h.handleSessionAnalysis))
			r.Method(http.MethodGet, "/scenarios", h.route(prefix+"/scenarios", h.handleSessionListScenarios))
			r.Method(http.MethodPost, "/scenarios", h.route(prefix+"/scenarios", h.handleSessionSaveScenario))
			r.Method(http.MethodPost, "/scenarios/{scenarioID}/load", h.route(prefix+"/scenarios/{scenarioID}/load", h.handleSessionLoadScenario))
			r.Method(http.MethodDelete, "/scenarios/{scenarioID}", h.route(prefix+"/scenarios/{scenarioID}", h.handleSessionDeleteScenario))
		})
	})

	c := cors.New(cors.Options{
		AllowedOrigins: opts.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
	})
	return c.Handler(r)
}

func (h *handler) route(pattern string, fn http.HandlerFunc) http.Handler {
	return h.metrics.WrapHandler(pattern, fn)
}

func (h *handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		h.logger.Debug("request served",
			zap.String("op", "server.logRequests"),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("requestID", middleware.GetReqID(r.Context())),
		)
	})
}

func (h *handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handler) handleVersion(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{
		"version": h.version,
	})
}

type benchmarkInfo struct {
	Key      benchmark.Key `json:"key"`
	Label    string        `json:"label"`
	Default  float64       `json:"default"`
	Reversed bool          `json:"reversed"`
}

func (h *handler) handleBenchmarkDefaults(w http.ResponseWriter, r *http.Request) {
	defaults := benchmark.Defaults()
	keys := make([]benchmarkInfo, 0, len(benchmark.Keys()))
	for _, k := range benchmark.Keys() {
		keys = append(keys, benchmarkInfo{Key: k, Label: benchmark.Label(k), Default: defaults.Get(k), Reversed: benchmark.Reversed(k)})
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"benchmarks": defaults,
		"keys":       keys,
	})
}

func (h *handler) handleDrivers(w http.ResponseWriter, r *http.Request) {
	type driverInfo struct {
		Driver valuation.Driver `json:"driver"`
		Label  string           `json:"label"`
	}
	drivers := make([]driverInfo, 0, len(valuation.Drivers()))
	for _, d := range valuation.Drivers() {
		drivers = append(drivers, driverInfo{Driver: d, Label: d.Label()})
	}
	h.writeJSON(w, http.StatusOK, drivers)
}

func (h *handler) fetch(ctx context.Context, dealID string) (extraction.Record, error) {
	if h.source == nil {
		return extraction.Record{}, fault.New(fault.KindServerError, "no extraction source configured")
	}
	record, err := h.source.Fetch(ctx, dealID)
	if err != nil {
		if errors.Is(err, extraction.ErrNotFound) {
			return extraction.Record{}, fault.Wrap(fault.KindNotFound, err, "metrics for deal %s", dealID)
		}
		return extraction.Record{}, err
	}
	if record.DealID == "" {
		record.DealID = dealID
	}
	return record, nil
}

func (h *handler) handleDealMetrics(w http.ResponseWriter, r *http.Request) {
	record, err := h.fetch(r.Context(), chi.URLParam(r, "dealID"))
	if err != nil {
		h.respondError(w, err, "server.handleDealMetrics")
		return
	}
	h.writeJSON(w, http.StatusOK, extraction.BuildReport(record))
}

type valuationRequest struct {
	Driver   string            `json:"driver"`
	Value    *float64          `json:"value"`
	Snapshot *snapshot.Metrics `json:"snapshot,omitempty"`
}

func (req valuationRequest) parse() (valuation.Driver, float64, error) {
	driver, err := valuation.ParseDriver(req.Driver)
	if err != nil {
		return "", 0, fault.Validation("driver", "%v", err)
	}
	if req.Value == nil {
		return "", 0, fault.Validation("value", "value is required")
	}
	return driver, *req.Value, nil
}

func (h *handler) handleDealValuation(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleDealValuation"
	var req valuationRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		h.respondError(w, err, op)
		return
	}
	driver, value, err := req.parse()
	if err != nil {
		h.respondError(w, err, op)
		return
	}
	record, err := h.fetch(r.Context(), chi.URLParam(r, "dealID"))
	if err != nil {
		h.respondError(w, err, op)
		return
	}

	metrics := record.Snapshot()
	if req.Snapshot != nil {
		metrics = metrics.Overlay(*req.Snapshot)
	}
	result := valuation.Compute(metrics, driver, value)
	h.metrics.Valuation(string(driver), result.OK())
	if !result.OK() {
		h.respondError(w, fault.Validation("value", "%s", *result.Error), op)
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

type analysisRequest struct {
	Benchmarks *benchmark.Set      `json:"benchmarks,omitempty"`
	Overrides  benchmark.Overrides `json:"overrides,omitempty"`
	Snapshot   *snapshot.Metrics   `json:"snapshot,omitempty"`
}

// effectiveSet resolves the request's benchmarks: a full set when given,
// the defaults otherwise, with overrides applied on top.
func (req analysisRequest) effectiveSet() (benchmark.Set, error) {
	if err := req.Overrides.Validate(); err != nil {
		return benchmark.Set{}, fault.Validation("overrides", "%v", err)
	}
	set := benchmark.Defaults()
	if req.Benchmarks != nil {
		set = *req.Benchmarks
	}
	set = benchmark.Merge(set, req.Overrides)
	if err := validation.ValidateBenchmarks(set); err != nil {
		return benchmark.Set{}, fault.Validation("benchmarks", "%v", err)
	}
	return set, nil
}

func (req analysisRequest) inputs(record extraction.Record) benchmark.Inputs {
	metrics := record.Snapshot()
	if req.Snapshot != nil {
		metrics = metrics.Overlay(*req.Snapshot)
	}
	return record.Inputs().WithMetrics(metrics)
}

func (h *handler) handleDealAnalysis(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleDealAnalysis"
	var req analysisRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		h.respondError(w, err, op)
		return
	}
	set, err := req.effectiveSet()
	if err != nil {
		h.respondError(w, err, op)
		return
	}
	record, err := h.fetch(r.Context(), chi.URLParam(r, "dealID"))
	if err != nil {
		h.respondError(w, err, op)
		return
	}

	analysis, err := h.engine.Analyze(r.Context(), record.DealID, req.inputs(record), set)
	if err != nil {
		h.respondError(w, err, op)
		return
	}
	h.writeJSON(w, http.StatusOK, analysis)
}

func (h *handler) handleListScenarios(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.scenarios.List(r.Context(), chi.URLParam(r, "dealID")))
}

type saveScenarioRequest struct {
	analysisRequest
	ScenarioName string `json:"scenario_name"`
	Notes        string `json:"notes"`
}

func (h *handler) handleSaveScenario(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleSaveScenario"
	var req saveScenarioRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		h.respondError(w, err, op)
		return
	}
	set, err := req.effectiveSet()
	if err != nil {
		h.respondError(w, err, op)
		return
	}
	record, err := h.fetch(r.Context(), chi.URLParam(r, "dealID"))
	if err != nil {
		h.respondError(w, err, op)
		return
	}

	analysis, err := h.engine.Analyze(r.Context(), record.DealID, req.inputs(record), set)
	if err != nil {
		h.respondError(w, err, op)
		return
	}
	saved, err := h.scenarios.Save(r.Context(), record.DealID, req.ScenarioName, set, req.Notes, analysis)
	if err != nil {
		h.respondError(w, err, op)
		return
	}
	h.writeJSON(w, http.StatusCreated, saved)
}

func (h *handler) handleDeleteScenario(w http.ResponseWriter, r *http.Request) {
	err := h.scenarios.Delete(r.Context(), chi.URLParam(r, "dealID"), chi.URLParam(r, "scenarioID"))
	if err != nil {
		h.respondError(w, err, "server.handleDeleteScenario")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) currentView(r *http.Request) (*dealview.View, error) {
	sessionID := chi.URLParam(r, "sessionID")
	ws, ok := h.sessions.Lookup(sessionID)
	if !ok {
		return nil, fault.Wrap(fault.KindNotFound, dealview.ErrNoActiveDeal, "session %s", sessionID)
	}
	view, err := ws.Current()
	if err != nil {
		return nil, fault.Wrap(fault.KindNotFound, err, "session %s", sessionID)
	}
	return view, nil
}

// withView resolves the session's active view or answers with an error.
func (h *handler) withView(op string, fn func(http.ResponseWriter, *http.Request, *dealview.View)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		view, err := h.currentView(r)
		if err != nil {
			h.respondError(w, err, op)
			return
		}
		fn(w, r, view)
	}
}

func (h *handler) handleSessionState(w http.ResponseWriter, r *http.Request) {
	h.withView("server.handleSessionState", func(w http.ResponseWriter, r *http.Request, view *dealview.View) {
		h.writeJSON(w, http.StatusOK, view.State())
	})(w, r)
}

func (h *handler) handleSessionDrop(w http.ResponseWriter, r *http.Request) {
	h.sessions.Drop(chi.URLParam(r, "sessionID"))
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) handleSessionOpen(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleSessionOpen"
	var req struct {
		DealID string `json:"dealId"`
	}
	if err := h.decodeJSON(w, r, &req); err != nil {
		h.respondError(w, err, op)
		return
	}
	view, err := h.sessions.Open(r.Context(), chi.URLParam(r, "sessionID"), strings.TrimSpace(req.DealID))
	if err != nil {
		h.respondError(w, err, op)
		return
	}
	h.writeJSON(w, http.StatusOK, view.State())
}

// fieldValue accepts a JSON string, number or null as a raw snapshot edit.
type fieldValue string

func (v *fieldValue) UnmarshalJSON(data []byte) error {
	var decoded interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}
	switch x := decoded.(type) {
	case nil:
		*v = ""
	case string:
		*v = fieldValue(x)
	case float64:
		*v = fieldValue(strconv.FormatFloat(x, 'f', -1, 64))
	default:
		return fmt.Errorf("expected a string or number, got %s", string(data))
	}
	return nil
}

func parseField(r *http.Request) (snapshot.Field, error) {
	name := chi.URLParam(r, "field")
	field, err := snapshot.ParseField(name)
	if err != nil {
		return "", &fault.Error{Kind: fault.KindValidation, Field: name, Message: "unknown field", Err: err}
	}
	return field, nil
}

func (h *handler) handleSessionSetField(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleSessionSetField"
	h.withView(op, func(w http.ResponseWriter, r *http.Request, view *dealview.View) {
		field, err := parseField(r)
		if err != nil {
			h.respondError(w, err, op)
			return
		}
		var req struct {
			Value fieldValue `json:"value"`
		}
		if err := h.decodeJSON(w, r, &req); err != nil {
			h.respondError(w, err, op)
			return
		}
		if err := view.SetField(field, string(req.Value)); err != nil {
			h.respondError(w, err, op)
			return
		}
		h.writeJSON(w, http.StatusOK, view.State())
	})(w, r)
}

func (h *handler) handleSessionResetField(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleSessionResetField"
	h.withView(op, func(w http.ResponseWriter, r *http.Request, view *dealview.View) {
		field, err := parseField(r)
		if err != nil {
			h.respondError(w, err, op)
			return
		}
		if err := view.ResetField(field); err != nil {
			h.respondError(w, err, op)
			return
		}
		h.writeJSON(w, http.StatusOK, view.State())
	})(w, r)
}

func (h *handler) handleSessionResetAll(w http.ResponseWriter, r *http.Request) {
	h.withView("server.handleSessionResetAll", func(w http.ResponseWriter, r *http.Request, view *dealview.View) {
		view.ResetAll()
		h.writeJSON(w, http.StatusOK, view.State())
	})(w, r)
}

func (h *handler) handleSessionValuation(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleSessionValuation"
	h.withView(op, func(w http.ResponseWriter, r *http.Request, view *dealview.View) {
		var req valuationRequest
		if err := h.decodeJSON(w, r, &req); err != nil {
			h.respondError(w, err, op)
			return
		}
		driver, value, err := req.parse()
		if err != nil {
			h.respondError(w, err, op)
			return
		}
		result := view.Calculate(driver, value)
		if !result.OK() {
			h.respondError(w, fault.Validation("value", "%s", *result.Error), op)
			return
		}
		h.writeJSON(w, http.StatusOK, result)
	})(w, r)
}

func (h *handler) handleSessionSetBenchmark(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleSessionSetBenchmark"
	h.withView(op, func(w http.ResponseWriter, r *http.Request, view *dealview.View) {
		var req struct {
			Value *float64 `json:"value"`
		}
		if err := h.decodeJSON(w, r, &req); err != nil {
			h.respondError(w, err, op)
			return
		}
		key := benchmark.Key(chi.URLParam(r, "key"))
		if req.Value == nil {
			h.respondError(w, fault.Validation(string(key), "value is required"), op)
			return
		}
		if err := view.SetBenchmark(key, *req.Value); err != nil {
			h.respondError(w, err, op)
			return
		}
		h.writeJSON(w, http.StatusOK, view.State())
	})(w, r)
}

func (h *handler) handleSessionReplaceBenchmarks(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleSessionReplaceBenchmarks"
	h.withView(op, func(w http.ResponseWriter, r *http.Request, view *dealview.View) {
		// Keys absent from the body keep their live value.
		set := view.Benchmarks()
		if err := h.decodeJSON(w, r, &set); err != nil {
			h.respondError(w, err, op)
			return
		}
		if err := validation.ValidateBenchmarks(set); err != nil {
			h.respondError(w, fault.Validation("benchmarks", "%v", err), op)
			return
		}
		if err := view.ReplaceBenchmarks(set); err != nil {
			h.respondError(w, err, op)
			return
		}
		h.writeJSON(w, http.StatusOK, view.State())
	})(w, r)
}

func (h *handler) handleSessionAnalysis(w http.ResponseWriter, r *http.Request) {
	h.withView("server.handleSessionAnalysis", func(w http.ResponseWriter, r *http.Request, view *dealview.View) {
		h.writeJSON(w, http.StatusOK, view.AnalysisState())
	})(w, r)
}

func (h *handler) handleSessionListScenarios(w http.ResponseWriter, r *http.Request) {
	h.withView("server.handleSessionListScenarios", func(w http.ResponseWriter, r *http.Request, view *dealview.View) {
		h.writeJSON(w, http.StatusOK, view.ListScenarios(r.Context()))
	})(w, r)
}

func (h *handler) handleSessionSaveScenario(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleSessionSaveScenario"
	h.withView(op, func(w http.ResponseWriter, r *http.Request, view *dealview.View) {
		var req struct {
			ScenarioName string `json:"scenario_name"`
			Notes        string `json:"notes"`
		}
		if err := h.decodeJSON(w, r, &req); err != nil {
			h.respondError(w, err, op)
			return
		}
		saved, err := view.SaveScenario(r.Context(), req.ScenarioName, req.Notes)
		if err != nil {
			h.respondError(w, err, op)
			return
		}
		h.writeJSON(w, http.StatusCreated, saved)
	})(w, r)
}

func (h *handler) handleSessionLoadScenario(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleSessionLoadScenario"
	h.withView(op, func(w http.ResponseWriter, r *http.Request, view *dealview.View) {
		if _, err := view.LoadScenario(r.Context(), chi.URLParam(r, "scenarioID")); err != nil {
			h.respondError(w, err, op)
			return
		}
		h.writeJSON(w, http.StatusOK, view.State())
	})(w, r)
}

func (h *handler) handleSessionDeleteScenario(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleSessionDeleteScenario"
	h.withView(op, func(w http.ResponseWriter, r *http.Request, view *dealview.View) {
		if err := view.DeleteScenario(r.Context(), chi.URLParam(r, "scenarioID")); err != nil {
			h.respondError(w, err, op)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})(w, r)
}

// decodeJSON reads a size-limited JSON body into dst. An empty body leaves
// dst untouched.
func (h *handler) decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodySize)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return fault.Wrap(fault.KindInvalidPayload, err, "request body exceeds limit of %d bytes", h.maxBodySize)
		}
		return fault.Wrap(fault.KindInvalidPayload, err, "failed to decode request")
	}
	return nil
}

type errorResponse struct {
	Error string     `json:"error"`
	Kind  fault.Kind `json:"kind"`
	Field string     `json:"field,omitempty"`
}

func (h *handler) respondError(w http.ResponseWriter, err error, op string) {
	kind := fault.KindOf(err)
	status := fault.HTTPStatus(err)
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		status = http.StatusRequestEntityTooLarge
	}

	resp := errorResponse{Kind: kind, Error: fault.UserMessage(kind)}
	var f *fault.Error
	if errors.As(err, &f) {
		resp.Field = f.Field
		switch kind {
		case fault.KindValidation, fault.KindInvalidPayload, fault.KindNotFound:
			resp.Error = err.Error()
		}
	}

	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed",
			zap.String("op", op),
			zap.Int("status", status),
			zap.Error(err),
		)
	} else {
		h.logger.Debug("request rejected",
			zap.String("op", op),
			zap.Int("status", status),
			zap.Error(err),
		)
	}

	h.writeJSON(w, status, resp)
}

func (h *handler) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	body, err := json.Marshal(payload)
	if err != nil {
		h.logger.Error("failed to encode JSON response",
			zap.String("op", "server.writeJSON"),
			zap.Error(err))
		status = http.StatusInternalServerError
		body, _ = json.Marshal(errorResponse{
			Error: fault.UserMessage(fault.KindServerError),
			Kind:  fault.KindServerError,
		})
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(append(body, '\n')); err != nil {
		h.logger.Error("failed to write JSON response",
			zap.String("op", "server.writeJSON"),
			zap.Error(err))
	}
}
