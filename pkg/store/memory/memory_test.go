package memory

import (
	"context"
	"strings"
	"testing"

	"github.com/marmos91/dittofm/pkg/store"
	storetest "github.com/marmos91/dittofm/pkg/store/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore(t *testing.T) {
	suite := &storetest.StoreTestSuite{
		NewStore: func(t *testing.T) store.Store {
			return NewMemoryStore(Config{})
		},
	}
	suite.Run(t)
}

func TestMemoryStore_MaxSize(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore(Config{MaxSizeBytes: 10})

	_, err := s.Write(ctx, "a.txt", strings.NewReader("12345678"))
	require.NoError(t, err)

	_, err = s.Write(ctx, "b.txt", strings.NewReader("12345"))
	assert.Error(t, err)

	// Overwriting releases the previous size.
	_, err = s.Write(ctx, "a.txt", strings.NewReader("1234567890"))
	assert.NoError(t, err)

	require.NoError(t, s.RemoveAll(ctx, "a.txt"))
	_, err = s.Write(ctx, "b.txt", strings.NewReader("12345"))
	assert.NoError(t, err)
}
