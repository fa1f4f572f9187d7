package fileserver

import (
	"fmt"
	"net/http"
)

// Error is a failure that carries its own HTTP status and plain-text body.
// The Gateway passes it through unchanged; any other error becomes a 500.
type Error struct {
	Status int
	Body   string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%d %s", e.Status, e.Body)
}

// ErrForbidden is returned by the Resolver for paths outside the permitted roots.
var ErrForbidden = &Error{Status: http.StatusForbidden, Body: "Forbidden"}

// ErrBadRequest is returned for request paths that cannot be decoded.
var ErrBadRequest = &Error{Status: http.StatusBadRequest, Body: "Bad Request"}

// Fixed response bodies.
const (
	bodyNotFound     = "File not found"
	bodyNotDirectory = "Not a directory"
	bodyDirectory    = "directory"
	bodyFile         = "file"
)
