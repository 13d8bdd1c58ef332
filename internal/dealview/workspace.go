package dealview

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/Nikonomics/PostAcutePulse-sub001/internal/extraction"
	"github.com/Nikonomics/PostAcutePulse-sub001/internal/fault"
)

// Workspace holds the active deal view of one session.
type Workspace struct {
	mu      sync.Mutex
	deps    Deps
	current *View
}

func NewWorkspace(deps Deps) *Workspace {
	return &Workspace{deps: deps.withDefaults()}
}

// Open fetches dealID's metrics and replaces the active view. The previous
// view, its pending recompute included, is discarded.
func (w *Workspace) Open(ctx context.Context, dealID string) (*View, error) {
	if dealID == "" {
		return nil, fault.Validation("dealId", "deal id is required")
	}
	if w.deps.Source == nil {
		return nil, fmt.Errorf("no extraction source configured")
	}

	record, err := w.deps.Source.Fetch(ctx, dealID)
	if err != nil {
		if errors.Is(err, extraction.ErrNotFound) {
			return nil, fault.Wrap(fault.KindNotFound, err, "metrics for deal %s", dealID)
		}
		return nil, err
	}
	if record.DealID == "" {
		record.DealID = dealID
	}

	view := NewView(w.deps, record)

	w.mu.Lock()
	previous := w.current
	w.current = view
	w.mu.Unlock()

	if previous != nil {
		previous.Close()
		w.deps.Logger.Info("Switched active deal",
			zap.String("op", "dealview.Workspace.Open"),
			zap.String("from", previous.DealID()),
			zap.String("to", dealID))
	}
	return view, nil
}

// Current returns the active view.
func (w *Workspace) Current() (*View, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.current == nil {
		return nil, ErrNoActiveDeal
	}
	return w.current, nil
}

// Close discards the active view.
func (w *Workspace) Close() {
	w.mu.Lock()
	current := w.current
	w.current = nil
	w.mu.Unlock()
	if current != nil {
		current.Close()
	}
}

// Registry maps session ids to workspaces.
type Registry struct {
	mu         sync.Mutex
	deps       Deps
	workspaces map[string]*Workspace
}

func NewRegistry(deps Deps) *Registry {
	return &Registry{deps: deps.withDefaults(), workspaces: make(map[string]*Workspace)}
}

// Lookup returns the session's workspace without creating one.
func (r *Registry) Lookup(sessionID string) (*Workspace, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ws, ok := r.workspaces[sessionID]
	return ws, ok
}

// Open opens dealID in the session's workspace. A session is registered only
// once a deal has opened successfully in it.
func (r *Registry) Open(ctx context.Context, sessionID, dealID string) (*View, error) {
	if ws, ok := r.Lookup(sessionID); ok {
		return ws.Open(ctx, dealID)
	}

	ws := NewWorkspace(r.deps)
	view, err := ws.Open(ctx, dealID)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	existing, ok := r.workspaces[sessionID]
	if !ok {
		r.workspaces[sessionID] = ws
	}
	r.mu.Unlock()

	if ok {
		// Another request registered the session first.
		ws.Close()
		return existing.Open(ctx, dealID)
	}
	return view, nil
}

// Drop closes and forgets a session.
func (r *Registry) Drop(sessionID string) {
	r.mu.Lock()
	ws, ok := r.workspaces[sessionID]
	delete(r.workspaces, sessionID)
	r.mu.Unlock()
	if ok {
		ws.Close()
	}
}

// Close closes every session.
func (r *Registry) Close() {
	r.mu.Lock()
	all := r.workspaces
	r.workspaces = make(map[string]*Workspace)
	r.mu.Unlock()
	for _, ws := range all {
		ws.Close()
	}
}
