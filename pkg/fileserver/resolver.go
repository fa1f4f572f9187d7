package fileserver

import (
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"strings"

	"github.com/marmos91/dittofm/pkg/store"
)

// IndexDocument is the entry document served for the base directory,
// relative to the public root.
const IndexDocument = "index.html"

// Root identifies which permitted subtree a request landed in.
type Root int

const (
	// RootIndex is the base directory, answered with the entry document.
	RootIndex Root = iota
	// RootContent is the editable content subtree.
	RootContent
	// RootPublic is the static asset subtree.
	RootPublic
)

func (r Root) String() string {
	switch r {
	case RootIndex:
		return "index"
	case RootContent:
		return "content"
	case RootPublic:
		return "public"
	default:
		return "unknown"
	}
}

// Target is a resolved request path.
type Target struct {
	// Path is the absolute OS path below the base directory.
	Path string

	// Rel is the slash-separated path relative to the base directory, as
	// passed to the Store.
	Rel string

	// Root is the subtree Rel belongs to.
	Root Root
}

// Resolver maps request URLs onto store paths and enforces confinement to
// the content and public roots.
type Resolver struct {
	base    string
	content string
	public  string
}

// NewResolver creates a Resolver. baseDir is made absolute; contentRoot and
// publicRoot are paths relative to it (e.g. "content" and "public").
func NewResolver(baseDir, contentRoot, publicRoot string) (*Resolver, error) {
	base, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve base directory: %w", err)
	}

	content, err := store.CleanPath(contentRoot)
	if err != nil || content == "" {
		return nil, fmt.Errorf("invalid content root %q", contentRoot)
	}
	public, err := store.CleanPath(publicRoot)
	if err != nil || public == "" {
		return nil, fmt.Errorf("invalid public root %q", publicRoot)
	}
	if within(content, public) || within(public, content) {
		return nil, fmt.Errorf("content root %q and public root %q overlap", content, public)
	}

	return &Resolver{base: base, content: content, public: public}, nil
}

// BaseDir returns the absolute base directory.
func (r *Resolver) BaseDir() string {
	return r.base
}

// ContentRoot returns the content root relative to the base directory.
func (r *Resolver) ContentRoot() string {
	return r.content
}

// PublicRoot returns the public root relative to the base directory.
func (r *Resolver) PublicRoot() string {
	return r.public
}

// Resolve decodes the URL path and confines it to the permitted roots.
//
// The path is cleaned lexically against the base directory, so ".." segments
// can never climb above it. The base directory itself resolves to the entry
// document. Paths outside both roots fail with ErrForbidden.
func (r *Resolver) Resolve(u *url.URL) (Target, error) {
	decoded, err := url.PathUnescape(u.EscapedPath())
	if err != nil || strings.ContainsRune(decoded, 0) {
		return Target{}, ErrBadRequest
	}

	decoded = strings.ReplaceAll(decoded, "\\", "/")
	rel := strings.TrimPrefix(path.Clean("/"+decoded), "/")

	var root Root
	switch {
	case rel == "":
		rel = r.public + "/" + IndexDocument
		root = RootIndex
	case within(rel, r.content):
		root = RootContent
	case within(rel, r.public):
		root = RootPublic
	default:
		return Target{}, ErrForbidden
	}

	return Target{
		Path: filepath.Join(r.base, filepath.FromSlash(rel)),
		Rel:  rel,
		Root: root,
	}, nil
}

// within reports whether p equals root or is nested under it, comparing
// whole path components.
func within(p, root string) bool {
	return p == root || strings.HasPrefix(p, root+"/")
}
