package web

import (
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssets_Index(t *testing.T) {
	data, err := fs.ReadFile(Assets(), "index.html")
	require.NoError(t, err)
	assert.Contains(t, string(data), "<title>DittoFM</title>")
}

func TestAssets_Script(t *testing.T) {
	data, err := fs.ReadFile(Assets(), "app.js")
	require.NoError(t, err)
	assert.Contains(t, string(data), "X-Request-Stats-Is-Directory-From-Path")
}
