package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/thoughtspace/internal/updatelog"
)

const appendQueueSize = 1024

// Persistence keeps the permission store durable against an append-only
// update log. Durability is best-effort relative to availability: append
// failures are logged and never block or fail the mutation that produced
// them.
type Persistence struct {
	store *PermissionStore
	log   updatelog.Log

	mu     sync.Mutex
	closed bool
	queue  chan updatelog.Record
	done   chan struct{}
}

func NewPersistence(store *PermissionStore, log updatelog.Log) *Persistence {
	return &Persistence{
		store: store,
		log:   log,
		queue: make(chan updatelog.Record, appendQueueSize),
		done:  make(chan struct{}),
	}
}

// Load replays the persisted log into the store and starts the append
// subscription. The store stays writable throughout; any tables mutated
// before Load runs are flushed to the log first, then reconciled with the
// loaded records by the replicated-map merge.
func (p *Persistence) Load(ctx context.Context) error {
	records, err := p.log.Load(ctx)
	if err != nil {
		return fmt.Errorf("load permission log: %w", err)
	}

	for _, docID := range p.store.DocIDs() {
		state, err := p.store.Table(docID).EncodeState()
		if err != nil {
			return fmt.Errorf("encode pre-load state for %s: %w", docID, err)
		}
		if err := p.log.Append(ctx, updatelog.Record{DocID: docID, Update: state}); err != nil {
			return fmt.Errorf("flush pre-load state for %s: %w", docID, err)
		}
	}

	for _, rec := range records {
		if err := p.store.Apply(rec.DocID, rec.Update); err != nil {
			logutil.GetLogger(ctx).Error("skipping unreadable log record",
				zap.String("docid", rec.DocID), zap.Error(err))
		}
	}

	p.store.Subscribe(p.enqueue)
	go p.run()
	logutil.GetLogger(ctx).Info("permission log loaded",
		zap.Int("records", len(records)), zap.Int("docs", len(p.store.DocIDs())))
	return nil
}

// Close stops the append loop after draining queued records.
func (p *Persistence) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()
	<-p.done
}

func (p *Persistence) enqueue(ev Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	select {
	case p.queue <- updatelog.Record(ev):
	default:
		logutil.GetLogger(context.Background()).Warn("permission log queue full, dropping update",
			zap.String("docid", ev.DocID))
	}
}

func (p *Persistence) run() {
	defer close(p.done)
	for rec := range p.queue {
		if err := p.log.Append(context.Background(), rec); err != nil {
			logutil.GetLogger(context.Background()).Error("append permission log failed",
				zap.String("docid", rec.DocID), zap.Error(err))
		}
	}
}
