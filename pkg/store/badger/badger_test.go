package badger

import (
	"context"
	"strings"
	"testing"

	"github.com/marmos91/dittofm/pkg/store"
	storetest "github.com/marmos91/dittofm/pkg/store/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBadgerStore(t *testing.T) {
	suite := &storetest.StoreTestSuite{
		NewStore: func(t *testing.T) store.Store {
			s, err := NewBadgerStore(context.Background(), Config{InMemory: true})
			require.NoError(t, err)
			return s
		},
	}
	suite.Run(t)
}

func TestBadgerStore_Persistence(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s, err := NewBadgerStore(ctx, Config{DBPath: dir})
	require.NoError(t, err)
	require.NoError(t, s.Mkdir(ctx, "content"))
	_, err = s.Write(ctx, "content/kept.txt", strings.NewReader("survives restart"))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	reopened, err := NewBadgerStore(ctx, Config{DBPath: dir})
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()

	names, err := reopened.List(ctx, "content")
	require.NoError(t, err)
	assert.Equal(t, []string{"kept.txt"}, names)
}

func TestBadgerStore_RequiresPath(t *testing.T) {
	_, err := NewBadgerStore(context.Background(), Config{})
	assert.Error(t, err)
}

func TestBadgerStore_StatUnderFile(t *testing.T) {
	ctx := context.Background()
	s, err := NewBadgerStore(ctx, Config{InMemory: true})
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	_, err = s.Write(ctx, "file.txt", strings.NewReader("x"))
	require.NoError(t, err)

	_, err = s.Stat(ctx, "file.txt/child")
	assert.ErrorIs(t, err, store.ErrNotDirectory)
}
