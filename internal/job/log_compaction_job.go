package job

import (
	"context"
	"fmt"

	"github.com/xxxsen/thoughtspace/internal/store"
	"github.com/xxxsen/thoughtspace/internal/updatelog"
)

// LogCompactionJob rewrites the permission update log down to one
// full-state record per thoughtspace. The log otherwise grows by one
// record per mutation forever.
type LogCompactionJob struct {
	store *store.PermissionStore
	log   updatelog.Log
}

func NewLogCompactionJob(permStore *store.PermissionStore, log updatelog.Log) *LogCompactionJob {
	return &LogCompactionJob{store: permStore, log: log}
}

func (j *LogCompactionJob) Name() string {
	return "permission_log_compaction"
}

func (j *LogCompactionJob) Run(ctx context.Context) error {
	if j.store == nil || j.log == nil {
		return nil
	}
	docIDs := j.store.DocIDs()
	records := make([]updatelog.Record, 0, len(docIDs))
	for _, docID := range docIDs {
		state, err := j.store.Table(docID).EncodeState()
		if err != nil {
			return fmt.Errorf("encode state for %s: %w", docID, err)
		}
		records = append(records, updatelog.Record{DocID: docID, Update: state})
	}
	return j.log.Replace(ctx, records)
}
