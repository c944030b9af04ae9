package memory

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/XiaoConstantine/adapt-go/pkg/core"
)

func TestSQLiteStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "outcomes.db")

	store, err := NewSQLiteStore(path)
	require.NoError(t, err)

	outcomes := []core.StrategyOutcome{
		core.NewOutcome([]string{"A"}, core.Context{ComponentType: "button"}, 5.0, 6.0),
		core.NewOutcome([]string{"B"}, core.Context{}, 6.0, 6.5),
	}
	require.NoError(t, store.Save(ctx, outcomes))
	require.NoError(t, store.Close())

	reopened, err := NewSQLiteStore(path)
	require.NoError(t, err)
	defer reopened.Close()

	loaded, err := reopened.Load(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	assert.Equal(t, []string{"A"}, loaded[0].Strategies)
	assert.Equal(t, []string{"B"}, loaded[1].Strategies)
	assert.Equal(t, 6.5, loaded[1].ScoreAfter)
}

func TestSQLiteStoreAppendsOnlyNewRows(t *testing.T) {
	ctx := context.Background()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "outcomes.db"))
	require.NoError(t, err)
	defer store.Close()

	log := []core.StrategyOutcome{
		core.NewOutcome([]string{"A"}, core.Context{}, 5.0, 6.0),
	}
	require.NoError(t, store.Save(ctx, log))

	// Saving the grown log must not duplicate the already-persisted prefix.
	log = append(log, core.NewOutcome([]string{"B"}, core.Context{}, 6.0, 6.2))
	require.NoError(t, store.Save(ctx, log))
	require.NoError(t, store.Save(ctx, log))

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 2)
}

func TestSQLiteStoreInMemory(t *testing.T) {
	ctx := context.Background()
	store, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	defer store.Close()

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, loaded)
}
