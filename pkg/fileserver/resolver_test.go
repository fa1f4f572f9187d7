package fileserver

import (
	"net/url"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestResolver(t *testing.T) *Resolver {
	t.Helper()
	r, err := NewResolver(t.TempDir(), "content", "public")
	require.NoError(t, err)
	return r
}

func mustParse(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}

func TestResolve_PermittedRoots(t *testing.T) {
	r := newTestResolver(t)

	tests := []struct {
		name string
		url  string
		rel  string
		root Root
	}{
		{"BaseMapsToIndex", "/", "public/index.html", RootIndex},
		{"EmptyPath", "", "public/index.html", RootIndex},
		{"ContentRoot", "/content", "content", RootContent},
		{"ContentTrailingSlash", "/content/", "content", RootContent},
		{"ContentFile", "/content/notes/todo.txt", "content/notes/todo.txt", RootContent},
		{"PublicAsset", "/public/app.js", "public/app.js", RootPublic},
		{"PercentDecoded", "/content/my%20file.txt", "content/my file.txt", RootContent},
		{"DotSegments", "/content/./a/../b.txt", "content/b.txt", RootContent},
		{"ClimbAboveBaseIsClamped", "/../../content/x", "content/x", RootContent},
		{"ParentOfBaseIsIndex", "/..", "public/index.html", RootIndex},
		{"EncodedParentOfBaseIsIndex", "/%2e%2e/", "public/index.html", RootIndex},
		{"DuplicateSlashes", "/content//x", "content/x", RootContent},
		{"QueryIgnored", "/content/x?download=1", "content/x", RootContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target, err := r.Resolve(mustParse(t, tt.url))
			require.NoError(t, err)
			assert.Equal(t, tt.rel, target.Rel)
			assert.Equal(t, tt.root, target.Root)
			assert.Equal(t, filepath.Join(r.BaseDir(), filepath.FromSlash(tt.rel)), target.Path)
		})
	}
}

func TestResolve_Forbidden(t *testing.T) {
	r := newTestResolver(t)

	paths := []string{
		"/etc/passwd",
		"/contentx",
		"/contentx/file.txt",
		"/publicity",
		"/content/../secret.txt",
		"/public/../../etc/passwd",
		"/%2e%2e/etc/passwd",
		"/config.yaml",
		"/content%2F..%2Fsecret",
	}

	for _, p := range paths {
		t.Run(p, func(t *testing.T) {
			_, err := r.Resolve(mustParse(t, p))
			assert.ErrorIs(t, err, ErrForbidden)
		})
	}
}

func TestNewResolver_InvalidRoots(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		content string
		public  string
	}{
		{"EmptyContent", "", "public"},
		{"EmptyPublic", "content", "/"},
		{"Escaping", "../content", "public"},
		{"Overlap", "site", "site/public"},
		{"Same", "site", "site"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewResolver(dir, tt.content, tt.public)
			assert.Error(t, err)
		})
	}
}

func TestResolve_CustomRoots(t *testing.T) {
	r, err := NewResolver(t.TempDir(), "data/files", "www")
	require.NoError(t, err)

	target, err := r.Resolve(mustParse(t, "/data/files/a.txt"))
	require.NoError(t, err)
	assert.Equal(t, RootContent, target.Root)

	_, err = r.Resolve(mustParse(t, "/data/other.txt"))
	assert.ErrorIs(t, err, ErrForbidden)

	target, err = r.Resolve(mustParse(t, "/"))
	require.NoError(t, err)
	assert.Equal(t, "www/index.html", target.Rel)
}
