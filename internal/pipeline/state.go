package pipeline

import (
	"fmt"
	"sort"
	"sync"
)

// Field names a slot in the shared pipeline state.
type Field string

// Diff is the set of fields a stage produces.
type Diff map[Field]any

// Snapshot is a read-only view of the pipeline state.
type Snapshot struct {
	values map[Field]any
}

// NewSnapshot copies values into a snapshot.
func NewSnapshot(values map[Field]any) Snapshot {
	copied := make(map[Field]any, len(values))
	for k, v := range values {
		copied[k] = v
	}
	return Snapshot{values: copied}
}

// Get returns the value of a field and whether it is set.
func (s Snapshot) Get(field Field) (any, bool) {
	v, ok := s.values[field]
	return v, ok
}

// Has reports whether the field is set.
func (s Snapshot) Has(field Field) bool {
	_, ok := s.values[field]
	return ok
}

// Fields returns the set fields in sorted order.
func (s Snapshot) Fields() []Field {
	fields := make([]Field, 0, len(s.values))
	for f := range s.values {
		fields = append(fields, f)
	}
	sort.Slice(fields, func(i, j int) bool { return fields[i] < fields[j] })
	return fields
}

// Lookup reads a typed field from a snapshot.
func Lookup[T any](s Snapshot, field Field) (T, bool) {
	var zero T
	v, ok := s.values[field]
	if !ok {
		return zero, false
	}
	t, ok := v.(T)
	if !ok {
		return zero, false
	}
	return t, true
}

// MustLookup reads a typed field, returning an error when it is unset or of the wrong type.
func MustLookup[T any](s Snapshot, field Field) (T, error) {
	var zero T
	v, ok := s.values[field]
	if !ok {
		return zero, fmt.Errorf("field %q is not set", field)
	}
	t, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("field %q has type %T, want %T", field, v, zero)
	}
	return t, nil
}

// state is the authoritative run state. Commits are serialized.
type state struct {
	mu     sync.Mutex
	values map[Field]any
}

func newState(inputs Diff) *state {
	values := make(map[Field]any, len(inputs))
	for k, v := range inputs {
		values[k] = v
	}
	return &state{values: values}
}

// view returns a snapshot restricted to the given fields.
func (s *state) view(fields []Field) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	values := make(map[Field]any, len(fields))
	for _, f := range fields {
		if v, ok := s.values[f]; ok {
			values[f] = v
		}
	}
	return Snapshot{values: values}
}

// commit merges a diff. Each field may be written once.
func (s *state) commit(diff Diff) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for f := range diff {
		if _, exists := s.values[f]; exists {
			return fmt.Errorf("field %q already written", f)
		}
	}
	for f, v := range diff {
		s.values[f] = v
	}
	return nil
}

func (s *state) snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return NewSnapshot(s.values)
}
