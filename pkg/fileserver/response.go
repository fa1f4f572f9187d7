package fileserver

import (
	"encoding/json"
	"io"
	"net/http"
)

// Media types used by the handlers.
const (
	TypeJSON = "application/json"
	TypeText = "text/plain"
)

// Response describes what the Gateway writes back for a request.
//
// At most one of Body and Stream is set. The Gateway closes Stream.
type Response struct {
	// Status is the HTTP status code. Zero means 200.
	Status int

	// Body is a complete string body.
	Body string

	// Stream is a body copied to the client as it is read.
	Stream io.ReadCloser

	// Type is the Content-Type. It is replaced by text/plain when the
	// response has no body.
	Type string
}

// StatusCode returns Status, defaulting to 200.
func (r *Response) StatusCode() int {
	if r.Status == 0 {
		return http.StatusOK
	}
	return r.Status
}

// HasBody reports whether the response carries a body.
func (r *Response) HasBody() bool {
	return r.Stream != nil || r.Body != ""
}

// ContentType returns the header value the Gateway writes.
func (r *Response) ContentType() string {
	if !r.HasBody() || r.Type == "" {
		return TypeText
	}
	return r.Type
}

// Descriptor is the JSON body for directory listings and content files.
type Descriptor struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// Descriptor types.
const (
	DescriptorDirectory = "directory"
	DescriptorFile      = "file"
)

func noContent() *Response {
	return &Response{Status: http.StatusNoContent}
}

func textResponse(status int, body string) *Response {
	return &Response{Status: status, Body: body, Type: TypeText}
}

func descriptorResponse(d Descriptor) (*Response, error) {
	data, err := json.Marshal(d)
	if err != nil {
		return nil, err
	}
	return &Response{Body: string(data), Type: TypeJSON}, nil
}
