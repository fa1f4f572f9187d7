package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/dittofm/pkg/config"
	"github.com/marmos91/dittofm/pkg/fileserver"
	"github.com/marmos91/dittofm/pkg/store/memory"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestInitCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	out, err := execute(t, "init", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, path)

	_, err = config.Load(path)
	require.NoError(t, err)

	_, err = execute(t, "init", "--config", path)
	assert.ErrorContains(t, err, "already exists")

	_, err = execute(t, "init", "--config", path, "--force")
	assert.NoError(t, err)
}

func TestSchemaCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schema.json")

	_, err := execute(t, "schema", path)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, json.Valid(data))

	out, err := execute(t, "schema", "-")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "{"))
}

func TestStatCommand(t *testing.T) {
	ctx := context.Background()
	s := memory.NewMemoryStore(memory.Config{})
	resolver, err := fileserver.NewResolver(t.TempDir(), "content", "public")
	require.NoError(t, err)
	require.NoError(t, fileserver.EnsureRoots(ctx, s, resolver))
	_, err = s.Write(ctx, "content/notes.txt", strings.NewReader("hello"))
	require.NoError(t, err)

	handlers, err := fileserver.NewHandlers(s, resolver, fileserver.Options{})
	require.NoError(t, err)
	srv := httptest.NewServer(fileserver.NewGateway(handlers))
	defer srv.Close()

	out, err := execute(t, "stat", srv.URL+"/content/notes.txt")
	require.NoError(t, err)
	assert.Equal(t, "file\n", out)

	out, err = execute(t, "stat", srv.URL+"/content")
	require.NoError(t, err)
	assert.Equal(t, "directory\n", out)
}

func TestRunServer_StopsOnCancel(t *testing.T) {
	cfg := config.GetDefaultConfig()
	cfg.Server.BaseDir = t.TempDir()
	cfg.Store = config.StoreConfig{Type: "memory", Memory: map[string]any{}}
	cfg.Adapters.HTTP.Port = -1

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(200*time.Millisecond, cancel)

	done := make(chan error, 1)
	go func() { done <- runServer(ctx, cfg) }()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("server did not stop after cancellation")
	}
}
