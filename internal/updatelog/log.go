package updatelog

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
)

// Record is one appended permission-table update batch.
type Record struct {
	DocID  string
	Update []byte
}

// Log is an append-only durable log of permission updates, replayable in
// order to reconstruct the in-memory permission store.
type Log interface {
	// Load returns every record in append order. A missing log is not an
	// error; it loads as empty.
	Load(ctx context.Context) ([]Record, error)
	Append(ctx context.Context, rec Record) error
	// Replace atomically swaps the whole log for recs. Used by compaction.
	Replace(ctx context.Context, recs []Record) error
}

type Factory func(args interface{}) (Log, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{}
)

func Register(name string, factory Factory) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" || factory == nil {
		return
	}
	registryMu.Lock()
	registry[key] = factory
	registryMu.Unlock()
}

func New(typ string, args interface{}) (Log, error) {
	key := strings.ToLower(strings.TrimSpace(typ))
	if key == "" {
		return nil, fmt.Errorf("permission_log.type is required")
	}
	registryMu.RLock()
	factory := registry[key]
	registryMu.RUnlock()
	if factory == nil {
		return nil, fmt.Errorf("unsupported permission log type: %s", typ)
	}
	return factory(args)
}

func decodeConfig(args interface{}, dst interface{}) error {
	if args == nil {
		return fmt.Errorf("log config is required")
	}
	data, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("encode log config: %w", err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decode log config: %w", err)
	}
	return nil
}
