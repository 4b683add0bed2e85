package updatelog

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLocalLogLoadMissingFile(t *testing.T) {
	log, err := NewLocal(filepath.Join(t.TempDir(), "missing.log"))
	require.NoError(t, err)

	records, err := log.Load(context.Background())
	require.NoError(t, err)
	require.Empty(t, records)
}

func TestLocalLogAppendLoad(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "permissions.log")
	log, err := NewLocal(path)
	require.NoError(t, err)

	want := []Record{
		{DocID: "space1", Update: []byte{0x01, 0x02}},
		{DocID: "space2", Update: []byte{0x03}},
		{DocID: "space1", Update: []byte{0x04, 0x05, 0x06}},
	}
	for _, rec := range want {
		require.NoError(t, log.Append(ctx, rec))
	}

	// a fresh handle sees the same records in append order
	reopened, err := NewLocal(path)
	require.NoError(t, err)
	got, err := reopened.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func TestLocalLogReplace(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "permissions.log")
	log, err := NewLocal(path)
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		require.NoError(t, log.Append(ctx, Record{DocID: "space1", Update: []byte{byte(i)}}))
	}

	compacted := []Record{{DocID: "space1", Update: []byte{0xff}}}
	require.NoError(t, log.Replace(ctx, compacted))

	got, err := log.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, compacted, got)

	// appends keep working against the swapped file
	require.NoError(t, log.Append(ctx, Record{DocID: "space2", Update: []byte{0xaa}}))
	got, err = log.Load(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
}

func TestNewUnknownType(t *testing.T) {
	_, err := New("leveldb", nil)
	require.Error(t, err)
}
