package job

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/thoughtspace/internal/model"
	"github.com/xxxsen/thoughtspace/internal/store"
	"github.com/xxxsen/thoughtspace/internal/updatelog"
)

func TestCompactionPreservesTableContent(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "permissions.log")
	log, err := updatelog.NewLocal(path)
	require.NoError(t, err)

	permStore := store.NewPermissionStore()
	persist := store.NewPersistence(permStore, log)
	require.NoError(t, persist.Load(ctx))

	table := permStore.Table("space1")
	for _, tok := range []string{"a", "b", "c"} {
		require.NoError(t, table.Set(tok, model.Share{Role: model.RoleOwner, Name: tok}))
	}
	table.Delete("b")
	require.NoError(t, permStore.Table("space2").Set("x", model.Share{Role: model.RoleOwner}))
	persist.Close()

	require.NoError(t, NewLogCompactionJob(permStore, log).Run(ctx))

	// one record per thoughtspace after compaction
	records, err := log.Load(ctx)
	require.NoError(t, err)
	require.Len(t, records, 2)

	restored := store.NewPermissionStore()
	restore := store.NewPersistence(restored, log)
	require.NoError(t, restore.Load(ctx))
	restore.Close()

	require.Equal(t, permStore.Table("space1").Items(), restored.Table("space1").Items())
	require.Equal(t, permStore.Table("space2").Items(), restored.Table("space2").Items())
	require.Equal(t, 2, restored.Table("space1").Len())
}

func TestCompactionWithoutStoreIsNoop(t *testing.T) {
	require.NoError(t, (&LogCompactionJob{}).Run(context.Background()))
}
