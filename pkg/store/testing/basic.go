package testing

import (
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/marmos91/dittofm/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunBasicTests executes the stat, read and write tests.
func (suite *StoreTestSuite) RunBasicTests(t *testing.T) {
	t.Run("Stat_Root", suite.testStatRoot)
	t.Run("Stat_NotFound", suite.testStatNotFound)
	t.Run("Write_ReadBack", suite.testWriteReadBack)
	t.Run("Write_Truncates", suite.testWriteTruncates)
	t.Run("Write_Empty", suite.testWriteEmpty)
	t.Run("Write_MissingParent", suite.testWriteMissingParent)
	t.Run("Write_OverDirectory", suite.testWriteOverDirectory)
	t.Run("Open_Directory", suite.testOpenDirectory)
	t.Run("Open_NotFound", suite.testOpenNotFound)
	t.Run("InvalidPath", suite.testInvalidPath)
	t.Run("ConcurrentWrites", suite.testConcurrentWrites)
}

// ============================================================================
// Stat Tests
// ============================================================================

func (suite *StoreTestSuite) testStatRoot(t *testing.T) {
	s := suite.newStore(t)

	info, err := s.Stat(testContext(), "")
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func (suite *StoreTestSuite) testStatNotFound(t *testing.T) {
	s := suite.newStore(t)

	_, err := s.Stat(testContext(), "missing.txt")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

// ============================================================================
// Write / Open Tests
// ============================================================================

func (suite *StoreTestSuite) testWriteReadBack(t *testing.T) {
	s := suite.newStore(t)

	mustWrite(t, s, "hello.txt", "Hello, World!")

	assert.Equal(t, "Hello, World!", mustRead(t, s, "hello.txt"))

	info, err := s.Stat(testContext(), "hello.txt")
	require.NoError(t, err)
	assert.False(t, info.IsDir())
	assert.Equal(t, "hello.txt", info.Name)
	assert.Equal(t, int64(13), info.Size)
}

func (suite *StoreTestSuite) testWriteTruncates(t *testing.T) {
	s := suite.newStore(t)

	mustWrite(t, s, "notes.txt", "a much longer first version")
	mustWrite(t, s, "notes.txt", "short")

	assert.Equal(t, "short", mustRead(t, s, "notes.txt"))
}

func (suite *StoreTestSuite) testWriteEmpty(t *testing.T) {
	s := suite.newStore(t)

	mustWrite(t, s, "empty.txt", "")

	info, err := s.Stat(testContext(), "empty.txt")
	require.NoError(t, err)
	assert.Equal(t, int64(0), info.Size)
	assert.Equal(t, "", mustRead(t, s, "empty.txt"))
}

func (suite *StoreTestSuite) testWriteMissingParent(t *testing.T) {
	s := suite.newStore(t)

	_, err := s.Write(testContext(), "nowhere/file.txt", strings.NewReader("x"))
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func (suite *StoreTestSuite) testWriteOverDirectory(t *testing.T) {
	s := suite.newStore(t)
	mustMkdir(t, s, "dir")

	_, err := s.Write(testContext(), "dir", strings.NewReader("x"))
	assert.ErrorIs(t, err, store.ErrIsDirectory)
}

func (suite *StoreTestSuite) testOpenDirectory(t *testing.T) {
	s := suite.newStore(t)
	mustMkdir(t, s, "dir")

	_, err := s.Open(testContext(), "dir")
	assert.ErrorIs(t, err, store.ErrIsDirectory)
}

func (suite *StoreTestSuite) testOpenNotFound(t *testing.T) {
	s := suite.newStore(t)

	_, err := s.Open(testContext(), "missing.txt")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func (suite *StoreTestSuite) testInvalidPath(t *testing.T) {
	s := suite.newStore(t)

	_, err := s.Stat(testContext(), "../etc/passwd")
	assert.ErrorIs(t, err, store.ErrInvalidPath)

	_, err = s.Write(testContext(), "a/../../b", strings.NewReader("x"))
	assert.ErrorIs(t, err, store.ErrInvalidPath)
}

func (suite *StoreTestSuite) testConcurrentWrites(t *testing.T) {
	s := suite.newStore(t)
	mustMkdir(t, s, "batch")

	const n = 16
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p := fmt.Sprintf("batch/file-%02d.txt", i)
			if _, err := s.Write(testContext(), p, strings.NewReader(p)); err != nil {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	names, err := s.List(testContext(), "batch")
	require.NoError(t, err)
	assert.Len(t, names, n)
	assert.Equal(t, "batch/file-07.txt", mustRead(t, s, "batch/file-07.txt"))
}
