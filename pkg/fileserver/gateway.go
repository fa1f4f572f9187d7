package fileserver

import (
	"errors"
	"io"
	"net/http"

	"github.com/marmos91/dittofm/internal/logger"
)

// MethodMkcol is the WebDAV verb used to create directories.
const MethodMkcol = "MKCOL"

// Gateway dispatches requests to the verb handlers and writes their
// Response descriptors.
type Gateway struct {
	routes   map[string]HandlerFunc
	fallback HandlerFunc
}

// NewGateway routes GET, PUT, DELETE, MKCOL and POST to h. Any other verb is
// answered by h.NotAllowed.
func NewGateway(h *Handlers) *Gateway {
	return &Gateway{
		routes: map[string]HandlerFunc{
			http.MethodGet:    h.Get,
			http.MethodPut:    h.Put,
			http.MethodDelete: h.Delete,
			MethodMkcol:       h.Mkcol,
			http.MethodPost:   h.Post,
		},
		fallback: h.NotAllowed,
	}
}

// ServeHTTP implements http.Handler.
func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	handler, ok := g.routes[r.Method]
	if !ok {
		handler = g.fallback
	}

	resp, err := handler(r.Context(), r)
	if err != nil {
		resp = errorResponse(err)
		if resp.StatusCode() >= http.StatusInternalServerError {
			logger.Error("%s %s failed: %v", r.Method, r.URL.Path, err)
		}
	}

	write(w, r, resp)
}

// errorResponse passes an *Error through and turns anything else into a 500
// carrying the error text.
func errorResponse(err error) *Response {
	var httpErr *Error
	if errors.As(err, &httpErr) {
		return textResponse(httpErr.Status, httpErr.Body)
	}
	return textResponse(http.StatusInternalServerError, err.Error())
}

func write(w http.ResponseWriter, r *http.Request, resp *Response) {
	w.Header().Set("Content-Type", resp.ContentType())
	w.WriteHeader(resp.StatusCode())

	switch {
	case resp.Stream != nil:
		defer func() { _ = resp.Stream.Close() }()
		if _, err := io.Copy(w, resp.Stream); err != nil {
			// Headers are already out; the client sees a truncated body.
			logger.Warn("%s %s: body stream aborted: %v", r.Method, r.URL.Path, err)
		}
	case resp.Body != "":
		_, _ = io.WriteString(w, resp.Body)
	}
}
