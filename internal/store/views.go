package store

import (
	"sync"

	"github.com/xxxsen/thoughtspace/internal/crdt"
	"github.com/xxxsen/thoughtspace/internal/model"
)

// ViewStore holds the per-thoughtspace client permission views: the
// replicated sub-documents exposed to connected collaborators over the
// sync transport. A view is a projection of the canonical table; nothing
// in this process writes it except the auth-time re-copy and the share
// administration dual-writes.
type ViewStore struct {
	mu    sync.RWMutex
	views map[string]*crdt.Map[model.Share]
}

func NewViewStore() *ViewStore {
	return &ViewStore{
		views: make(map[string]*crdt.Map[model.Share]),
	}
}

// View returns the client permission view for docID, creating it on first
// reference.
func (s *ViewStore) View(docID string) *crdt.Map[model.Share] {
	s.mu.RLock()
	view, ok := s.views[docID]
	s.mu.RUnlock()
	if ok {
		return view
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if view, ok := s.views[docID]; ok {
		return view
	}
	view = crdt.NewMap[model.Share]()
	s.views[docID] = view
	return view
}
