package scriptstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Compile-time assertion that MemStore satisfies the Store interface.
var _ Store = (*MemStore)(nil)

// MemStore is a thread-safe, in-memory implementation of [Store].
// It is suitable for single-instance deployments and testing.
type MemStore struct {
	mu      sync.RWMutex
	scripts map[string]Definition
}

// NewMemStore returns an initialised [MemStore].
func NewMemStore() *MemStore {
	return &MemStore{
		scripts: make(map[string]Definition),
	}
}

// Create implements [Store.Create].
func (s *MemStore) Create(ctx context.Context, def *Definition) error {
	if err := def.Validate(); err != nil {
		return err
	}
	if def.ID == "" {
		def.ID = uuid.NewString()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.scripts[def.ID]; exists {
		return ErrDuplicateID
	}

	now := time.Now().UTC()
	def.CreatedAt = now
	def.UpdatedAt = now
	s.scripts[def.ID] = cloneDefinition(*def)
	return nil
}

// Get implements [Store.Get].
func (s *MemStore) Get(ctx context.Context, id string) (*Definition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.scripts[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := cloneDefinition(d)
	return &cp, nil
}

// Update implements [Store.Update].
func (s *MemStore) Update(ctx context.Context, def *Definition) error {
	if err := def.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prev, ok := s.scripts[def.ID]
	if !ok {
		return ErrNotFound
	}

	def.CreatedAt = prev.CreatedAt
	def.UpdatedAt = time.Now().UTC()
	s.scripts[def.ID] = cloneDefinition(*def)
	return nil
}

// Delete implements [Store.Delete].
func (s *MemStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.scripts, id)
	return nil
}

// List implements [Store.List].
func (s *MemStore) List(ctx context.Context) ([]Definition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]Definition, 0, len(s.scripts))
	for _, d := range s.scripts {
		result = append(result, cloneDefinition(d))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Title < result[j].Title })
	return result, nil
}

// cloneDefinition deep-copies a definition so callers cannot mutate stored
// state through the returned Lines slice.
func cloneDefinition(d Definition) Definition {
	if d.Lines != nil {
		lines := make([]string, len(d.Lines))
		copy(lines, d.Lines)
		d.Lines = lines
	}
	return d
}
