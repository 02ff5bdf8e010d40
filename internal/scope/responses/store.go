// Package responses holds the buyer's current field values for one configuration.
package responses

import (
	"sync"

	"obsp-workers/internal/models"
	"obsp-workers/internal/scope/schema"
)

// Store is the mutable response state. Writes through SetValue count as user
// edits; Seed does not.
type Store struct {
	mu        sync.RWMutex
	fields    map[string]models.Field
	values    models.Responses
	touched   bool
	debouncer *Debouncer
}

// NewStore creates an empty store for s. debouncer may be nil.
func NewStore(s *models.Schema, debouncer *Debouncer) *Store {
	return &Store{
		fields:    schema.FieldIndex(s),
		values:    make(models.Responses),
		debouncer: debouncer,
	}
}

// SetValue replaces the value of one field. Checkbox values are always stored
// as a non-nil []string.
func (s *Store) SetValue(fieldID string, value interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[fieldID] = s.normalize(fieldID, value)
	s.touched = true

	// Triggering under the lock keeps snapshots in write order.
	if s.debouncer != nil {
		s.debouncer.Trigger(copyResponses(s.values))
	}
}

// Seed writes values without marking the store as touched.
func (s *Store) Seed(values models.Responses) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, v := range values {
		s.values[id] = s.normalize(id, copyValue(v))
	}
}

// Get returns the current value of one field.
func (s *Store) Get(fieldID string) (interface{}, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[fieldID]
	return copyValue(v), ok
}

// GetAll returns a snapshot that callers may freely modify.
func (s *Store) GetAll() models.Responses {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyResponses(s.values)
}

// Touched reports whether the user has written to the store.
func (s *Store) Touched() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.touched
}

// Debouncer returns the notifier attached to the store, if any.
func (s *Store) Debouncer() *Debouncer {
	return s.debouncer
}

func (s *Store) normalize(fieldID string, value interface{}) interface{} {
	field, ok := s.fields[fieldID]
	if !ok || field.Type != models.FieldCheckbox {
		return value
	}
	if text, ok := value.(string); ok {
		return []string{text}
	}
	selected, ok := schema.AsStringSlice(value)
	if !ok {
		return []string{}
	}
	out := make([]string, len(selected))
	copy(out, selected)
	return out
}

func copyResponses(in models.Responses) models.Responses {
	out := make(models.Responses, len(in))
	for k, v := range in {
		out[k] = copyValue(v)
	}
	return out
}

func copyValue(v interface{}) interface{} {
	switch val := v.(type) {
	case []string:
		out := make([]string, len(val))
		copy(out, val)
		return out
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, item := range val {
			out[i] = copyValue(item)
		}
		return out
	case []models.FileRef:
		out := make([]models.FileRef, len(val))
		copy(out, val)
		return out
	case map[string]interface{}:
		out := make(map[string]interface{}, len(val))
		for k, item := range val {
			out[k] = copyValue(item)
		}
		return out
	default:
		return v
	}
}
