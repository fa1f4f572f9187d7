// Package testing provides a conformance suite for store.Store implementations.
package testing

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/marmos91/dittofm/pkg/store"
	"github.com/stretchr/testify/require"
)

// StoreTestSuite is a test suite for Store implementations.
// It tests the interface contract, not implementation details, making it reusable
// across the filesystem, memory, BadgerDB and S3 backends.
//
// Usage:
//
//	func TestMyStore(t *testing.T) {
//	    suite := &storetest.StoreTestSuite{
//	        NewStore: func(t *testing.T) store.Store {
//	            return mystore.New()
//	        },
//	    }
//	    suite.Run(t)
//	}
type StoreTestSuite struct {
	// NewStore creates a fresh, empty Store for each test. The suite closes
	// it when the test ends.
	NewStore func(t *testing.T) store.Store
}

// Run executes all tests in the suite.
func (suite *StoreTestSuite) Run(t *testing.T) {
	t.Run("BasicOperations", suite.RunBasicTests)
	t.Run("TreeOperations", suite.RunTreeTests)
}

func (suite *StoreTestSuite) newStore(t *testing.T) store.Store {
	t.Helper()
	s := suite.NewStore(t)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testContext() context.Context {
	return context.Background()
}

func mustWrite(t *testing.T, s store.Store, p string, data string) {
	t.Helper()
	n, err := s.Write(testContext(), p, strings.NewReader(data))
	require.NoError(t, err, "write %s", p)
	require.Equal(t, int64(len(data)), n)
}

func mustMkdir(t *testing.T, s store.Store, p string) {
	t.Helper()
	require.NoError(t, s.Mkdir(testContext(), p), "mkdir %s", p)
}

func mustRead(t *testing.T, s store.Store, p string) string {
	t.Helper()
	rc, err := s.Open(testContext(), p)
	require.NoError(t, err, "open %s", p)
	defer func() { _ = rc.Close() }()

	var buf bytes.Buffer
	_, err = io.Copy(&buf, rc)
	require.NoError(t, err)
	return buf.String()
}
