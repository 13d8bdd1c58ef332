// Package snapshot holds the per-deal metrics snapshot: an immutable
// original fetched from extraction results and an editable what-if copy.
package snapshot

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/Nikonomics/PostAcutePulse-sub001/pkg/mathutil"
)

// Field names a single snapshot metric.
type Field string

const (
	FieldBeds       Field = "beds"
	FieldRevenue    Field = "revenue"
	FieldEBITDA     Field = "ebitda"
	FieldEBITDAR    Field = "ebitdar"
	FieldNOI        Field = "noi"
	FieldAnnualRent Field = "annualRent"
)

var (
	// ErrUnknownField is returned for a field name outside the snapshot.
	ErrUnknownField = errors.New("unknown snapshot field")
	// ErrInvalidNumber is returned when a non-empty edit does not parse.
	ErrInvalidNumber = errors.New("invalid number")
)

// Fields returns every snapshot field in canonical order.
func Fields() []Field {
	return []Field{FieldBeds, FieldRevenue, FieldEBITDA, FieldEBITDAR, FieldNOI, FieldAnnualRent}
}

// ParseField resolves a field name, case-insensitively.
func ParseField(name string) (Field, error) {
	trimmed := strings.TrimSpace(name)
	for _, f := range Fields() {
		if strings.EqualFold(string(f), trimmed) {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownField, name)
}

// Metrics is the financial snapshot shared by both calculators. A nil
// pointer means the value is unknown.
type Metrics struct {
	Beds       *float64 `json:"beds" yaml:"beds"`
	Revenue    *float64 `json:"revenue" yaml:"revenue"`
	EBITDA     *float64 `json:"ebitda" yaml:"ebitda"`
	EBITDAR    *float64 `json:"ebitdar" yaml:"ebitdar"`
	NOI        *float64 `json:"noi" yaml:"noi"`
	AnnualRent *float64 `json:"annualRent" yaml:"annualRent"`
}

// Clone returns a deep copy that shares no pointers with m.
func (m Metrics) Clone() Metrics {
	return Metrics{
		Beds:       mathutil.CopyFloat(m.Beds),
		Revenue:    mathutil.CopyFloat(m.Revenue),
		EBITDA:     mathutil.CopyFloat(m.EBITDA),
		EBITDAR:    mathutil.CopyFloat(m.EBITDAR),
		NOI:        mathutil.CopyFloat(m.NOI),
		AnnualRent: mathutil.CopyFloat(m.AnnualRent),
	}
}

// Get returns the value of f.
func (m Metrics) Get(f Field) *float64 {
	switch f {
	case FieldBeds:
		return m.Beds
	case FieldRevenue:
		return m.Revenue
	case FieldEBITDA:
		return m.EBITDA
	case FieldEBITDAR:
		return m.EBITDAR
	case FieldNOI:
		return m.NOI
	case FieldAnnualRent:
		return m.AnnualRent
	}
	return nil
}

// With returns a copy of m with f set to a copy of v.
func (m Metrics) With(f Field, v *float64) Metrics {
	out := m.Clone()
	v = mathutil.CopyFloat(v)
	switch f {
	case FieldBeds:
		out.Beds = v
	case FieldRevenue:
		out.Revenue = v
	case FieldEBITDA:
		out.EBITDA = v
	case FieldEBITDAR:
		out.EBITDAR = v
	case FieldNOI:
		out.NOI = v
	case FieldAnnualRent:
		out.AnnualRent = v
	}
	return out
}

// Overlay returns a copy of m where every non-nil field of o replaces m's.
func (m Metrics) Overlay(o Metrics) Metrics {
	out := m.Clone()
	for _, f := range Fields() {
		if v := o.Get(f); v != nil {
			out = out.With(f, v)
		}
	}
	return out
}

// Diff lists the fields whose editable value differs from the original.
func Diff(original, editable Metrics) []Field {
	var changed []Field
	for _, f := range Fields() {
		if !mathutil.EqualFloat(original.Get(f), editable.Get(f)) {
			changed = append(changed, f)
		}
	}
	return changed
}

// Reset returns editable with f restored from original.
func Reset(original, editable Metrics, f Field) Metrics {
	return editable.With(f, original.Get(f))
}

// ParseValue interprets a raw edit. ok=false means the input is invalid and
// must be ignored; ok=true with a nil value means the field was cleared.
func ParseValue(raw string) (value *float64, ok bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, true
	}
	cleaned := strings.ReplaceAll(trimmed, ",", "")
	cleaned = strings.TrimPrefix(cleaned, "$")
	if strings.HasPrefix(cleaned, "-$") {
		cleaned = "-" + strings.TrimPrefix(cleaned, "-$")
	}
	parsed, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || !mathutil.IsFinite(parsed) {
		return nil, false
	}
	return &parsed, true
}

// Store holds the original/editable snapshot pair for one deal view along
// with the valuation result computed against the current editable copy.
type Store struct {
	mu       sync.RWMutex
	original Metrics
	editable Metrics
	version  uint64
	cached   any
}

// NewStore creates a store loaded with m.
func NewStore(m Metrics) *Store {
	s := &Store{}
	s.Load(m)
	return s
}

// Load replaces both records with deep copies of m.
func (s *Store) Load(m Metrics) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.original = m.Clone()
	s.editable = m.Clone()
	s.invalidate()
}

// Original returns a copy of the original snapshot.
func (s *Store) Original() Metrics {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.original.Clone()
}

// Editable returns a copy of the editable snapshot.
func (s *Store) Editable() Metrics {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.editable.Clone()
}

// SetField applies a raw user edit. An empty string clears the field; an
// unparseable string leaves the previous value in place and returns
// ErrInvalidNumber.
func (s *Store) SetField(f Field, raw string) error {
	if _, err := ParseField(string(f)); err != nil {
		return err
	}
	value, ok := ParseValue(raw)
	if !ok {
		return fmt.Errorf("%w for %s: %q", ErrInvalidNumber, f, raw)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.editable = s.editable.With(f, value)
	s.invalidate()
	return nil
}

// ResetField copies the original value of f into the editable snapshot.
func (s *Store) ResetField(f Field) error {
	if _, err := ParseField(string(f)); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.editable = Reset(s.original, s.editable, f)
	s.invalidate()
	return nil
}

// ResetAll restores the editable snapshot from the original.
func (s *Store) ResetAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.editable = s.original.Clone()
	s.invalidate()
}

// invalidate must be called with mu held for writing.
func (s *Store) invalidate() {
	s.version++
	s.cached = nil
}

// IsModified reports strict inequality between the editable and original
// value of f, including nil versus a number.
func (s *Store) IsModified(f Field) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return !mathutil.EqualFloat(s.editable.Get(f), s.original.Get(f))
}

// HasAnyModification reports whether any field is modified.
func (s *Store) HasAnyModification() bool {
	return len(s.ModifiedFields()) > 0
}

// ModifiedFields lists modified fields in canonical order.
func (s *Store) ModifiedFields() []Field {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Diff(s.original, s.editable)
}

// EditableVersion returns a copy of the editable snapshot and the version it
// was read at.
func (s *Store) EditableVersion() (Metrics, uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.editable.Clone(), s.version
}

// CacheResult stores a derived result computed against the editable
// snapshot read at version. It is discarded, and false returned, if the
// snapshot has changed since. Any later mutation drops it.
func (s *Store) CacheResult(version uint64, result any) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if version != s.version {
		return false
	}
	s.cached = result
	return true
}

// CachedResult returns the derived result, or nil if the snapshot changed
// since it was cached.
func (s *Store) CachedResult() any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cached
}
