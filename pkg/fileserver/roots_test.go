package fileserver

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/dittofm/pkg/store"
	"github.com/marmos91/dittofm/pkg/store/memory"
)

func TestEnsureRoots(t *testing.T) {
	ctx := context.Background()
	s := memory.NewMemoryStore(memory.Config{})

	resolver, err := NewResolver(t.TempDir(), "data/content", "public")
	require.NoError(t, err)

	require.NoError(t, EnsureRoots(ctx, s, resolver))
	// Second call is a no-op.
	require.NoError(t, EnsureRoots(ctx, s, resolver))

	for _, p := range []string{"data", "data/content", "public"} {
		info, err := s.Stat(ctx, p)
		require.NoError(t, err, p)
		assert.True(t, info.IsDir(), p)
	}
}

func TestEnsureRoots_FileInTheWay(t *testing.T) {
	ctx := context.Background()
	s := memory.NewMemoryStore(memory.Config{})
	_, err := s.Write(ctx, "content", strings.NewReader("oops"))
	require.NoError(t, err)

	resolver, err := NewResolver(t.TempDir(), "content", "public")
	require.NoError(t, err)

	err = EnsureRoots(ctx, s, resolver)
	assert.ErrorIs(t, err, store.ErrNotDirectory)
}
