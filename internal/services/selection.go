package services

import (
	"sync"

	"diningguide/pkg/diningtypes"
)

// SelectionStore holds the user's selected foods, unique by id, in selection order.
// All operations are total.
type SelectionStore struct {
	mu    sync.RWMutex
	items []diningtypes.FoodItem
	index map[string]int
}

// NewSelectionStore creates an empty selection.
func NewSelectionStore() *SelectionStore {
	return &SelectionStore{index: make(map[string]int)}
}

// Toggle adds item if its id is absent and removes it otherwise.
// It reports whether the item is selected afterwards.
func (s *SelectionStore) Toggle(item diningtypes.FoodItem) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if pos, ok := s.index[item.ID]; ok {
		s.items = append(s.items[:pos], s.items[pos+1:]...)
		delete(s.index, item.ID)
		for i := pos; i < len(s.items); i++ {
			s.index[s.items[i].ID] = i
		}
		return false
	}

	s.index[item.ID] = len(s.items)
	s.items = append(s.items, item)
	return true
}

// Contains reports whether a food with the given id is selected.
func (s *SelectionStore) Contains(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.index[id]
	return ok
}

// Snapshot returns the selected foods in insertion order.
func (s *SelectionStore) Snapshot() []diningtypes.FoodItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]diningtypes.FoodItem, len(s.items))
	copy(out, s.items)
	return out
}

// Len returns the number of selected foods.
func (s *SelectionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Clear empties the selection. Only the owner of the browsing flow calls this.
func (s *SelectionStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = nil
	s.index = make(map[string]int)
}

// SelectionService exposes the browsing session's SelectionStore through the registry.
type SelectionService struct {
	initialized bool
	store       *SelectionStore
}

// NewSelectionService creates a new SelectionService with an empty selection.
func NewSelectionService() *SelectionService {
	return &SelectionService{store: NewSelectionStore()}
}

// Name returns the service name "selection" for registration.
func (s *SelectionService) Name() string {
	return "selection"
}

// Initialize marks the service ready.
func (s *SelectionService) Initialize() error {
	s.initialized = true
	return nil
}

// Store returns the underlying selection.
func (s *SelectionService) Store() *SelectionStore {
	return s.store
}
