package fs

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/marmos91/dittofm/pkg/store"
	storetest "github.com/marmos91/dittofm/pkg/store/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFSStore(t *testing.T) {
	suite := &storetest.StoreTestSuite{
		NewStore: func(t *testing.T) store.Store {
			s, err := NewFSStore(context.Background(), t.TempDir())
			require.NoError(t, err)
			return s
		},
	}
	suite.Run(t)
}

func TestFSStore_MapsOntoDisk(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFSStore(context.Background(), dir)
	require.NoError(t, err)

	require.NoError(t, os.MkdirAll(filepath.Join(dir, "content"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "content", "a.txt"), []byte("from disk"), 0644))

	names, err := s.List(context.Background(), "content")
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt"}, names)

	_, err = s.Write(context.Background(), "content/b.txt", strings.NewReader("from store"))
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "content", "b.txt"))
	require.NoError(t, err)
	assert.Equal(t, "from store", string(data))
}

func TestFSStore_RefusesBaseRemoval(t *testing.T) {
	s, err := NewFSStore(context.Background(), t.TempDir())
	require.NoError(t, err)

	assert.ErrorIs(t, s.RemoveAll(context.Background(), ""), store.ErrInvalidPath)
	assert.ErrorIs(t, s.Remove(context.Background(), "/"), store.ErrInvalidPath)
	assert.DirExists(t, s.BasePath())
}
