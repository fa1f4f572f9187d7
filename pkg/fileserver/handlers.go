package fileserver

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"strings"

	"github.com/marmos91/dittofm/internal/logger"
	"github.com/marmos91/dittofm/pkg/store"
)

// StatHeader is the marker header that turns a POST into a stat query.
const StatHeader = "X-Request-Stats-Is-Directory-From-Path"

// HandlerFunc implements one HTTP verb. It returns a Response, or an error
// that the Gateway converts into one.
type HandlerFunc func(ctx context.Context, r *http.Request) (*Response, error)

// Options configures the verb handlers.
type Options struct {
	// Assets serves public files missing from the store, e.g. the embedded
	// UI shell. Names are relative to the public root. Optional.
	Assets fs.FS

	// Hidden lists glob patterns for names left out of directory listings.
	Hidden []string
}

// Handlers implements the file manager verbs on top of a Store.
//
// Every handler resolves the request path and performs a single store
// primitive. Handlers hold no per-request state and are safe for concurrent
// use.
type Handlers struct {
	store    store.Store
	resolver *Resolver
	assets   fs.FS
	hidden   hiddenFilter
}

// NewHandlers creates the verb handlers.
func NewHandlers(s store.Store, resolver *Resolver, opts Options) (*Handlers, error) {
	if s == nil {
		return nil, errors.New("store is required")
	}
	if resolver == nil {
		return nil, errors.New("resolver is required")
	}

	hidden, err := compileHidden(opts.Hidden)
	if err != nil {
		return nil, err
	}

	return &Handlers{
		store:    s,
		resolver: resolver,
		assets:   opts.Assets,
		hidden:   hidden,
	}, nil
}

// resolve maps the request onto a Target and logs where it landed.
func (h *Handlers) resolve(r *http.Request) (Target, error) {
	target, err := h.resolver.Resolve(r.URL)
	if err != nil {
		logger.Debug("%s %s: %v", r.Method, r.URL.Path, err)
		return Target{}, err
	}
	logger.Debug("%s %s -> %s (%s root)", r.Method, r.URL.Path, target.Path, target.Root)
	return target, nil
}

// Get answers with a directory listing, a public asset or a wrapped content
// file.
func (h *Handlers) Get(ctx context.Context, r *http.Request) (*Response, error) {
	target, err := h.resolve(r)
	if err != nil {
		return nil, err
	}

	info, err := h.store.Stat(ctx, target.Rel)
	if errors.Is(err, store.ErrNotFound) {
		if target.Root != RootContent {
			if resp := h.embeddedAsset(target); resp != nil {
				return resp, nil
			}
		}
		return textResponse(http.StatusNotFound, bodyNotFound), nil
	}
	if err != nil {
		return nil, err
	}

	if info.IsDir() {
		names, err := h.store.List(ctx, target.Rel)
		if err != nil {
			return nil, err
		}
		return descriptorResponse(Descriptor{
			Type:  DescriptorDirectory,
			Value: strings.Join(h.hidden.apply(names), "\n"),
		})
	}

	if target.Root != RootContent {
		rc, err := h.store.Open(ctx, target.Rel)
		if err != nil {
			return nil, err
		}
		typ, body := assetType(target.Rel, rc)
		return &Response{Stream: body, Type: typ}, nil
	}

	// An empty file would produce no chunks to wrap.
	if info.Size == 0 {
		return descriptorResponse(Descriptor{Type: DescriptorFile})
	}

	rc, err := h.store.Open(ctx, target.Rel)
	if err != nil {
		return nil, err
	}
	return &Response{Stream: wrapFileDescriptor(rc), Type: TypeJSON}, nil
}

// embeddedAsset serves a public file from the fallback assets, or returns
// nil when there is none.
func (h *Handlers) embeddedAsset(target Target) *Response {
	if h.assets == nil {
		return nil
	}

	name := strings.TrimPrefix(target.Rel, h.resolver.PublicRoot()+"/")
	if name == target.Rel {
		return nil
	}

	f, err := h.assets.Open(name)
	if err != nil {
		return nil
	}
	if st, err := f.Stat(); err != nil || st.IsDir() {
		_ = f.Close()
		return nil
	}

	logger.Debug("Serving embedded asset %s", name)
	typ, body := assetType(name, f)
	return &Response{Stream: body, Type: typ}
}

// Put streams the request body into the target file.
func (h *Handlers) Put(ctx context.Context, r *http.Request) (*Response, error) {
	target, err := h.resolve(r)
	if err != nil {
		return nil, err
	}

	n, err := h.store.Write(ctx, target.Rel, r.Body)
	if err != nil {
		return nil, err
	}

	logger.Debug("PUT %s: wrote %d bytes", target.Rel, n)
	return noContent(), nil
}

// Delete removes the target, recursively for directories. Missing targets
// are not an error.
func (h *Handlers) Delete(ctx context.Context, r *http.Request) (*Response, error) {
	target, err := h.resolve(r)
	if err != nil {
		return nil, err
	}

	info, err := h.store.Stat(ctx, target.Rel)
	if errors.Is(err, store.ErrNotFound) {
		return noContent(), nil
	}
	if err != nil {
		return nil, err
	}

	if info.IsDir() {
		err = h.store.RemoveAll(ctx, target.Rel)
	} else {
		err = h.store.Remove(ctx, target.Rel)
	}
	if err != nil {
		return nil, err
	}
	return noContent(), nil
}

// Mkcol creates the target directory. An existing directory is accepted; an
// existing file is a 400.
func (h *Handlers) Mkcol(ctx context.Context, r *http.Request) (*Response, error) {
	target, err := h.resolve(r)
	if err != nil {
		return nil, err
	}

	info, err := h.store.Stat(ctx, target.Rel)
	if errors.Is(err, store.ErrNotFound) {
		if err := h.store.Mkdir(ctx, target.Rel); err != nil {
			return nil, err
		}
		return noContent(), nil
	}
	if err != nil {
		return nil, err
	}

	if info.IsDir() {
		return noContent(), nil
	}
	return textResponse(http.StatusBadRequest, bodyNotDirectory), nil
}

// Post answers the stat query when StatHeader is present and does nothing
// otherwise.
func (h *Handlers) Post(ctx context.Context, r *http.Request) (*Response, error) {
	if r.Header.Get(StatHeader) == "" {
		return noContent(), nil
	}

	target, err := h.resolve(r)
	if err != nil {
		return nil, err
	}

	info, err := h.store.Stat(ctx, target.Rel)
	if errors.Is(err, store.ErrNotFound) {
		return textResponse(http.StatusNotFound, bodyNotFound), nil
	}
	if err != nil {
		return nil, err
	}

	if info.IsDir() {
		return textResponse(http.StatusOK, bodyDirectory), nil
	}
	return textResponse(http.StatusOK, bodyFile), nil
}

// NotAllowed answers any verb without a handler.
func (h *Handlers) NotAllowed(_ context.Context, r *http.Request) (*Response, error) {
	return textResponse(http.StatusMethodNotAllowed, fmt.Sprintf("Method %s not allowed.", r.Method)), nil
}
