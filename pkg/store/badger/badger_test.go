package badger

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/recorddb/internal/protocol"
	"github.com/marmos91/recorddb/pkg/store"
)

func newBackend(t *testing.T) *Backend {
	t.Helper()
	b, err := New(context.Background(), Config{Path: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func TestFreshStoreIsEmpty(t *testing.T) {
	b := newBackend(t)

	table, err := b.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint16(0), table.Count())
}

func TestRoundTrip(t *testing.T) {
	ctx := context.Background()
	b := newBackend(t)

	table := store.NewTable()
	for i := 0; i < 25; i++ {
		require.NoError(t, table.Append(protocol.Record{
			Name:    fmt.Sprintf("name-%d", i),
			Address: fmt.Sprintf("addr %d", i),
			Hours:   uint32(i),
		}))
	}
	require.NoError(t, b.Save(ctx, table))

	loaded, err := b.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, table.Count(), loaded.Count())
	assert.Equal(t, table.Records(), loaded.Records())
}

func TestSaveRemovesStaleRecords(t *testing.T) {
	ctx := context.Background()
	b := newBackend(t)

	table := store.NewTable()
	for i := 0; i < 10; i++ {
		require.NoError(t, table.Append(protocol.Record{Name: "n", Address: "a", Hours: 1}))
	}
	require.NoError(t, b.Save(ctx, table))

	for i := 0; i < 6; i++ {
		require.NoError(t, table.RemoveLast())
	}
	require.NoError(t, b.Save(ctx, table))

	loaded, err := b.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint16(4), loaded.Count())
	assert.Equal(t, table.Records(), loaded.Records())
}

func TestSaveEmptyTable(t *testing.T) {
	ctx := context.Background()
	b := newBackend(t)

	table := store.NewTable()
	require.NoError(t, table.Append(protocol.Record{Name: "n", Address: "a", Hours: 1}))
	require.NoError(t, b.Save(ctx, table))

	require.NoError(t, table.RemoveLast())
	require.NoError(t, b.Save(ctx, table))

	loaded, err := b.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint16(0), loaded.Count())
	assert.Nil(t, loaded.Records())
}
