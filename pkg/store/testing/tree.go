package testing

import (
	"testing"

	"github.com/marmos91/dittofm/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunTreeTests executes the directory listing, creation and removal tests.
func (suite *StoreTestSuite) RunTreeTests(t *testing.T) {
	t.Run("List_Sorted", suite.testListSorted)
	t.Run("List_EmptyDirectory", suite.testListEmptyDirectory)
	t.Run("List_OnlyDirectChildren", suite.testListOnlyDirectChildren)
	t.Run("List_File", suite.testListFile)
	t.Run("List_NotFound", suite.testListNotFound)
	t.Run("Mkdir_Exists", suite.testMkdirExists)
	t.Run("Mkdir_MissingParent", suite.testMkdirMissingParent)
	t.Run("Remove_File", suite.testRemoveFile)
	t.Run("Remove_EmptyDirectory", suite.testRemoveEmptyDirectory)
	t.Run("Remove_NotEmpty", suite.testRemoveNotEmpty)
	t.Run("Remove_NotFound", suite.testRemoveNotFound)
	t.Run("RemoveAll_Tree", suite.testRemoveAllTree)
	t.Run("RemoveAll_Missing", suite.testRemoveAllMissing)
	t.Run("RemoveAll_KeepsSiblings", suite.testRemoveAllKeepsSiblings)
}

// ============================================================================
// List Tests
// ============================================================================

func (suite *StoreTestSuite) testListSorted(t *testing.T) {
	s := suite.newStore(t)
	mustMkdir(t, s, "content")
	mustWrite(t, s, "content/b.txt", "b")
	mustMkdir(t, s, "content/c")
	mustWrite(t, s, "content/a.txt", "a")

	names, err := s.List(testContext(), "content")
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt", "b.txt", "c"}, names)
}

func (suite *StoreTestSuite) testListEmptyDirectory(t *testing.T) {
	s := suite.newStore(t)
	mustMkdir(t, s, "empty")

	names, err := s.List(testContext(), "empty")
	require.NoError(t, err)
	assert.Empty(t, names)

	info, err := s.Stat(testContext(), "empty")
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func (suite *StoreTestSuite) testListOnlyDirectChildren(t *testing.T) {
	s := suite.newStore(t)
	mustMkdir(t, s, "a")
	mustMkdir(t, s, "a/b")
	mustWrite(t, s, "a/b/deep.txt", "deep")
	mustWrite(t, s, "a/top.txt", "top")
	mustMkdir(t, s, "ab")

	names, err := s.List(testContext(), "a")
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "top.txt"}, names)

	root, err := s.List(testContext(), "")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "ab"}, root)
}

func (suite *StoreTestSuite) testListFile(t *testing.T) {
	s := suite.newStore(t)
	mustWrite(t, s, "file.txt", "x")

	_, err := s.List(testContext(), "file.txt")
	assert.ErrorIs(t, err, store.ErrNotDirectory)
}

func (suite *StoreTestSuite) testListNotFound(t *testing.T) {
	s := suite.newStore(t)

	_, err := s.List(testContext(), "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

// ============================================================================
// Mkdir Tests
// ============================================================================

func (suite *StoreTestSuite) testMkdirExists(t *testing.T) {
	s := suite.newStore(t)
	mustMkdir(t, s, "dir")
	mustWrite(t, s, "file.txt", "x")

	assert.ErrorIs(t, s.Mkdir(testContext(), "dir"), store.ErrExists)
	assert.ErrorIs(t, s.Mkdir(testContext(), "file.txt"), store.ErrExists)
}

func (suite *StoreTestSuite) testMkdirMissingParent(t *testing.T) {
	s := suite.newStore(t)

	assert.ErrorIs(t, s.Mkdir(testContext(), "x/y"), store.ErrNotFound)
}

// ============================================================================
// Remove Tests
// ============================================================================

func (suite *StoreTestSuite) testRemoveFile(t *testing.T) {
	s := suite.newStore(t)
	mustWrite(t, s, "file.txt", "x")

	require.NoError(t, s.Remove(testContext(), "file.txt"))

	_, err := s.Stat(testContext(), "file.txt")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func (suite *StoreTestSuite) testRemoveEmptyDirectory(t *testing.T) {
	s := suite.newStore(t)
	mustMkdir(t, s, "dir")

	require.NoError(t, s.Remove(testContext(), "dir"))

	_, err := s.Stat(testContext(), "dir")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func (suite *StoreTestSuite) testRemoveNotEmpty(t *testing.T) {
	s := suite.newStore(t)
	mustMkdir(t, s, "dir")
	mustWrite(t, s, "dir/file.txt", "x")

	assert.ErrorIs(t, s.Remove(testContext(), "dir"), store.ErrNotEmpty)
	assert.Equal(t, "x", mustRead(t, s, "dir/file.txt"))
}

func (suite *StoreTestSuite) testRemoveNotFound(t *testing.T) {
	s := suite.newStore(t)

	assert.ErrorIs(t, s.Remove(testContext(), "missing.txt"), store.ErrNotFound)
}

func (suite *StoreTestSuite) testRemoveAllTree(t *testing.T) {
	s := suite.newStore(t)
	mustMkdir(t, s, "tree")
	mustMkdir(t, s, "tree/sub")
	mustWrite(t, s, "tree/sub/leaf.txt", "leaf")
	mustWrite(t, s, "tree/top.txt", "top")

	require.NoError(t, s.RemoveAll(testContext(), "tree"))

	_, err := s.Stat(testContext(), "tree")
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = s.Stat(testContext(), "tree/sub/leaf.txt")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func (suite *StoreTestSuite) testRemoveAllMissing(t *testing.T) {
	s := suite.newStore(t)

	assert.NoError(t, s.RemoveAll(testContext(), "missing"))
}

func (suite *StoreTestSuite) testRemoveAllKeepsSiblings(t *testing.T) {
	s := suite.newStore(t)
	mustMkdir(t, s, "docs")
	mustWrite(t, s, "docs/a.txt", "a")
	mustMkdir(t, s, "docs-old")
	mustWrite(t, s, "docs-old/b.txt", "b")

	require.NoError(t, s.RemoveAll(testContext(), "docs"))

	assert.Equal(t, "b", mustRead(t, s, "docs-old/b.txt"))
	names, err := s.List(testContext(), "")
	require.NoError(t, err)
	assert.Equal(t, []string{"docs-old"}, names)
}
