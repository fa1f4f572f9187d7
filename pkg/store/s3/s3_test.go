package s3

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/marmos91/dittofm/pkg/store"
	storetest "github.com/marmos91/dittofm/pkg/store/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, fake *fakeS3, prefix string) *S3Store {
	t.Helper()
	s, err := NewS3Store(context.Background(), Config{Client: fake, Bucket: "test", KeyPrefix: prefix})
	require.NoError(t, err)
	return s
}

func TestS3Store(t *testing.T) {
	suite := &storetest.StoreTestSuite{
		NewStore: func(t *testing.T) store.Store {
			return newTestStore(t, newFakeS3(), "dittofm")
		},
	}
	suite.Run(t)
}

func TestNewS3Store_Validation(t *testing.T) {
	ctx := context.Background()

	_, err := NewS3Store(ctx, Config{Bucket: "b"})
	assert.Error(t, err)

	_, err = NewS3Store(ctx, Config{Client: newFakeS3()})
	assert.Error(t, err)
}

func TestS3Store_KeyLayout(t *testing.T) {
	ctx := context.Background()
	fake := newFakeS3()
	s := newTestStore(t, fake, "/root/")

	require.NoError(t, s.Mkdir(ctx, "content"))
	_, err := s.Write(ctx, "content/notes.txt", strings.NewReader("hi"))
	require.NoError(t, err)

	assert.Contains(t, fake.objects, "root/content/")
	assert.Equal(t, []byte("hi"), fake.objects["root/content/notes.txt"])
}

func TestS3Store_ImplicitDirectory(t *testing.T) {
	ctx := context.Background()
	fake := newFakeS3()
	fake.objects["content/uploaded/by-other-tool.txt"] = []byte("x")
	s := newTestStore(t, fake, "")

	info, err := s.Stat(ctx, "content/uploaded")
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	names, err := s.List(ctx, "content")
	require.NoError(t, err)
	assert.Equal(t, []string{"uploaded"}, names)
}

func TestS3Store_RemoveAllBatches(t *testing.T) {
	ctx := context.Background()
	fake := newFakeS3()
	s := newTestStore(t, fake, "")

	require.NoError(t, s.Mkdir(ctx, "big"))
	for i := 0; i < deleteBatchSize+5; i++ {
		fake.objects[fmt.Sprintf("big/f%04d", i)] = nil
	}

	require.NoError(t, s.RemoveAll(ctx, "big"))
	assert.Empty(t, fake.objects)
	assert.Equal(t, 2, fake.calls["DeleteObjects"])
}
