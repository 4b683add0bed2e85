package crdt

import (
	"fmt"
	"sync"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
)

// Update is a single replicated mutation of one key. Updates are
// self-contained: applying the same update twice, or a set of updates in
// any order, converges to the same map state. Ordering is last-writer-wins
// by (Clock, Actor).
type Update struct {
	Key     string `cbor:"1,keyasint"`
	Value   []byte `cbor:"2,keyasint,omitempty"`
	Deleted bool   `cbor:"3,keyasint,omitempty"`
	Clock   uint64 `cbor:"4,keyasint"`
	Actor   string `cbor:"5,keyasint"`
}

// EncodeUpdates serializes a batch of updates. The same encoding is used
// for incremental deltas and for full-state snapshots, so any encoded
// payload can be replayed through Map.Apply.
func EncodeUpdates(updates []Update) ([]byte, error) {
	return cbor.Marshal(updates)
}

func DecodeUpdates(data []byte) ([]Update, error) {
	var updates []Update
	if err := cbor.Unmarshal(data, &updates); err != nil {
		return nil, fmt.Errorf("decode updates: %w", err)
	}
	return updates, nil
}

type entry struct {
	value   []byte
	deleted bool
	clock   uint64
	actor   string
}

func (e entry) newerThan(u Update) bool {
	if e.clock != u.Clock {
		return e.clock > u.Clock
	}
	return e.actor > u.Actor
}

// Map is a last-writer-wins replicated map from string keys to values of
// type V. Local mutations advance a lamport clock and notify subscribers
// with the resulting update; Apply merges updates produced elsewhere.
// Deletes leave tombstones so they survive merges.
type Map[V any] struct {
	mu       sync.RWMutex
	actor    string
	clock    uint64
	entries  map[string]entry
	onChange []func(Update)
}

func NewMap[V any]() *Map[V] {
	return &Map[V]{
		actor:   uuid.NewString(),
		entries: make(map[string]entry),
	}
}

// OnChange registers fn to be called for every update that changes the map,
// local or merged. Callbacks run outside the map lock and may touch other
// maps, but must not mutate this one.
func (m *Map[V]) OnChange(fn func(Update)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onChange = append(m.onChange, fn)
}

func (m *Map[V]) Get(key string) (V, bool) {
	var zero V
	m.mu.RLock()
	e, ok := m.entries[key]
	m.mu.RUnlock()
	if !ok || e.deleted {
		return zero, false
	}
	var value V
	if err := cbor.Unmarshal(e.value, &value); err != nil {
		return zero, false
	}
	return value, true
}

func (m *Map[V]) Set(key string, value V) error {
	raw, err := cbor.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode value: %w", err)
	}
	m.mu.Lock()
	u := m.setLocked(key, raw, false)
	fns := m.handlersLocked()
	m.mu.Unlock()
	notify(fns, u)
	return nil
}

// SetIfEmpty inserts value only when the map holds no live entries at all,
// atomically with respect to every other mutation. It reports whether the
// insert happened. This is the owner-bootstrap primitive: two sessions
// racing to claim a brand-new map cannot both win, whatever keys they use.
func (m *Map[V]) SetIfEmpty(key string, value V) (bool, error) {
	raw, err := cbor.Marshal(value)
	if err != nil {
		return false, fmt.Errorf("encode value: %w", err)
	}
	m.mu.Lock()
	for _, e := range m.entries {
		if !e.deleted {
			m.mu.Unlock()
			return false, nil
		}
	}
	u := m.setLocked(key, raw, false)
	fns := m.handlersLocked()
	m.mu.Unlock()
	notify(fns, u)
	return true, nil
}

// Delete tombstones key. Deleting an absent key is a no-op.
func (m *Map[V]) Delete(key string) {
	m.mu.Lock()
	e, ok := m.entries[key]
	if !ok || e.deleted {
		m.mu.Unlock()
		return
	}
	u := m.setLocked(key, nil, true)
	fns := m.handlersLocked()
	m.mu.Unlock()
	notify(fns, u)
}

// Len reports the number of live (non-tombstoned) entries.
func (m *Map[V]) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, e := range m.entries {
		if !e.deleted {
			n++
		}
	}
	return n
}

// Range calls fn for every live entry until fn returns false. The entries
// are snapshotted first, so fn may mutate other maps freely.
func (m *Map[V]) Range(fn func(key string, value V) bool) error {
	type pair struct {
		key   string
		value V
	}
	m.mu.RLock()
	pairs := make([]pair, 0, len(m.entries))
	for key, e := range m.entries {
		if e.deleted {
			continue
		}
		var value V
		if err := cbor.Unmarshal(e.value, &value); err != nil {
			m.mu.RUnlock()
			return fmt.Errorf("decode value for %q: %w", key, err)
		}
		pairs = append(pairs, pair{key: key, value: value})
	}
	m.mu.RUnlock()
	for _, p := range pairs {
		if !fn(p.key, p.value) {
			return nil
		}
	}
	return nil
}

// Items returns a plain map of the live entries, for diagnostics and tests.
// Entries that fail to decode are skipped.
func (m *Map[V]) Items() map[string]V {
	items := make(map[string]V)
	_ = m.Range(func(key string, value V) bool {
		items[key] = value
		return true
	})
	return items
}

// EncodeState serializes the full map state, tombstones included, as a
// batch of updates replayable through Apply.
func (m *Map[V]) EncodeState() ([]byte, error) {
	m.mu.RLock()
	updates := make([]Update, 0, len(m.entries))
	for key, e := range m.entries {
		updates = append(updates, Update{
			Key:     key,
			Value:   e.value,
			Deleted: e.deleted,
			Clock:   e.clock,
			Actor:   e.actor,
		})
	}
	m.mu.RUnlock()
	return EncodeUpdates(updates)
}

// Apply merges an encoded batch of updates into the map. Updates that lose
// to the existing entry are discarded; winners are forwarded to change
// subscribers.
func (m *Map[V]) Apply(data []byte) error {
	updates, err := DecodeUpdates(data)
	if err != nil {
		return err
	}
	m.mu.Lock()
	applied := make([]Update, 0, len(updates))
	for _, u := range updates {
		if u.Clock > m.clock {
			m.clock = u.Clock
		}
		if e, ok := m.entries[u.Key]; ok && e.newerThan(u) {
			continue
		}
		m.entries[u.Key] = entry{
			value:   u.Value,
			deleted: u.Deleted,
			clock:   u.Clock,
			actor:   u.Actor,
		}
		applied = append(applied, u)
	}
	fns := m.handlersLocked()
	m.mu.Unlock()
	for _, u := range applied {
		notify(fns, u)
	}
	return nil
}

func (m *Map[V]) setLocked(key string, raw []byte, deleted bool) Update {
	m.clock++
	m.entries[key] = entry{
		value:   raw,
		deleted: deleted,
		clock:   m.clock,
		actor:   m.actor,
	}
	return Update{
		Key:     key,
		Value:   raw,
		Deleted: deleted,
		Clock:   m.clock,
		Actor:   m.actor,
	}
}

func (m *Map[V]) handlersLocked() []func(Update) {
	fns := make([]func(Update), len(m.onChange))
	copy(fns, m.onChange)
	return fns
}

func notify(fns []func(Update), u Update) {
	for _, fn := range fns {
		fn(u)
	}
}
