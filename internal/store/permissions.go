package store

import (
	"sort"
	"sync"

	"github.com/xxxsen/thoughtspace/internal/crdt"
	"github.com/xxxsen/thoughtspace/internal/model"
)

// Event is one mutation of some thoughtspace's permission table, as
// delivered to store-wide subscribers. Update is an encoded batch
// replayable through Apply.
type Event struct {
	DocID  string
	Update []byte
}

// PermissionStore holds the canonical permission table of every
// thoughtspace this process has seen. Tables are created lazily and never
// evicted. The store is the single source of truth; client-facing views
// are reconciled from it, never the reverse.
type PermissionStore struct {
	mu     sync.RWMutex
	tables map[string]*crdt.Map[model.Share]
	subs   []func(Event)
}

func NewPermissionStore() *PermissionStore {
	return &PermissionStore{
		tables: make(map[string]*crdt.Map[model.Share]),
	}
}

// Table returns the permission table for docID, creating it on first
// reference.
func (s *PermissionStore) Table(docID string) *crdt.Map[model.Share] {
	s.mu.RLock()
	table, ok := s.tables[docID]
	s.mu.RUnlock()
	if ok {
		return table
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if table, ok := s.tables[docID]; ok {
		return table
	}
	table = crdt.NewMap[model.Share]()
	table.OnChange(func(u crdt.Update) {
		data, err := crdt.EncodeUpdates([]crdt.Update{u})
		if err != nil {
			return
		}
		s.notify(Event{DocID: docID, Update: data})
	})
	s.tables[docID] = table
	return table
}

// Subscribe registers fn for every future mutation of any table.
func (s *PermissionStore) Subscribe(fn func(Event)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs = append(s.subs, fn)
}

// Apply merges an encoded update batch into docID's table, creating the
// table if needed.
func (s *PermissionStore) Apply(docID string, update []byte) error {
	return s.Table(docID).Apply(update)
}

// DocIDs lists every thoughtspace with a table, sorted for determinism.
func (s *PermissionStore) DocIDs() []string {
	s.mu.RLock()
	ids := make([]string, 0, len(s.tables))
	for id := range s.tables {
		ids = append(ids, id)
	}
	s.mu.RUnlock()
	sort.Strings(ids)
	return ids
}

func (s *PermissionStore) notify(ev Event) {
	s.mu.RLock()
	subs := make([]func(Event), len(s.subs))
	copy(subs, s.subs)
	s.mu.RUnlock()
	for _, fn := range subs {
		fn(ev)
	}
}
