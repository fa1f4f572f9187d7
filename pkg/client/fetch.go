package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/marmos91/dittofm/internal/logger"
	"github.com/marmos91/dittofm/pkg/fileserver"
)

// RequestContentType is sent with every request.
const RequestContentType = "text/plain"

// ContentType tags a decoded response body.
type ContentType string

const (
	// ContentNone is the empty placeholder used when nothing is selected.
	ContentNone ContentType = ""

	// ContentDirectory is a directory listing descriptor.
	ContentDirectory ContentType = fileserver.DescriptorDirectory

	// ContentFile is a content file descriptor.
	ContentFile ContentType = fileserver.DescriptorFile

	// ContentText is a raw text body, e.g. a public asset or a stat answer.
	ContentText ContentType = "text"
)

// Content is a decoded response body.
type Content struct {
	Type  ContentType
	Value string
}

// IsDirectory reports whether c is a directory descriptor.
func (c Content) IsDirectory() bool {
	return c.Type == ContentDirectory
}

// IsFile reports whether c is a file descriptor.
func (c Content) IsFile() bool {
	return c.Type == ContentFile
}

// Remote performs one request against the file manager server.
type Remote interface {
	Do(ctx context.Context, method, url, body string) (Content, error)
}

// StatusError is returned for responses with a 4xx or 5xx status. Status
// errors are never retried.
type StatusError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.URL, e.StatusCode, strings.TrimSpace(e.Body))
}

// IsNotFound reports whether err is a 404 StatusError.
func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == http.StatusNotFound
}

// RetryPolicy controls how transport failures are retried.
//
// Delays grow from InitialDelay by Multiplier up to MaxDelay. MaxAttempts
// counts the first attempt; 0 retries until the context is done.
type RetryPolicy struct {
	MaxAttempts  int           `mapstructure:"max_attempts" yaml:"max_attempts" validate:"min=0"`
	InitialDelay time.Duration `mapstructure:"initial_delay" yaml:"initial_delay" validate:"min=0"`
	MaxDelay     time.Duration `mapstructure:"max_delay" yaml:"max_delay" validate:"min=0"`
	Multiplier   float64       `mapstructure:"multiplier" yaml:"multiplier" validate:"min=0"`
}

// DefaultRetryPolicy retries five times, starting at 1.5s and doubling.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:  5,
		InitialDelay: 1500 * time.Millisecond,
		MaxDelay:     15 * time.Second,
		Multiplier:   2,
	}
}

// UnboundedRetryPolicy retries forever every 1.5s.
func UnboundedRetryPolicy() RetryPolicy {
	return RetryPolicy{
		InitialDelay: 1500 * time.Millisecond,
		MaxDelay:     1500 * time.Millisecond,
		Multiplier:   1,
	}
}

// delay returns the wait before retry number attempt (1-based).
func (p RetryPolicy) delay(attempt int) time.Duration {
	d := p.InitialDelay
	for i := 1; i < attempt; i++ {
		if p.Multiplier <= 1 {
			break
		}
		d = time.Duration(float64(d) * p.Multiplier)
		if p.MaxDelay > 0 && d >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	if p.MaxDelay > 0 && d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}

// Fetcher is the HTTP implementation of Remote.
type Fetcher struct {
	client *http.Client
	retry  RetryPolicy

	// sleep waits between attempts; tests replace it.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewFetcher creates a Fetcher. A nil client uses http.DefaultClient.
func NewFetcher(client *http.Client, retry RetryPolicy) *Fetcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &Fetcher{client: client, retry: retry, sleep: sleepContext}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Do sends method to url with an optional body and decodes the response.
//
// Transport failures are retried per the RetryPolicy; the last transport
// error is returned once attempts run out. 4xx and 5xx answers are
// returned as *StatusError.
func (f *Fetcher) Do(ctx context.Context, method, url, body string) (Content, error) {
	return f.do(ctx, method, url, body, nil)
}

// Stat asks the server whether url is a directory or a file.
//
// Returns the store entry kind ("directory" or "file"); a missing path
// yields a StatusError with status 404.
func (f *Fetcher) Stat(ctx context.Context, url string) (string, error) {
	c, err := f.do(ctx, http.MethodPost, url, "", http.Header{fileserver.StatHeader: []string{"1"}})
	if err != nil {
		return "", err
	}
	return c.Value, nil
}

func (f *Fetcher) do(ctx context.Context, method, url, body string, header http.Header) (Content, error) {
	for attempt := 1; ; attempt++ {
		c, err := f.once(ctx, method, url, body, header)
		if err == nil {
			return c, nil
		}

		var se *StatusError
		if errors.As(err, &se) || ctx.Err() != nil {
			return Content{}, err
		}
		if f.retry.MaxAttempts > 0 && attempt >= f.retry.MaxAttempts {
			return Content{}, fmt.Errorf("%s %s: giving up after %d attempt(s): %w", method, url, attempt, err)
		}

		d := f.retry.delay(attempt)
		logger.Warn("%s %s failed (attempt %d): %v - retrying in %v", method, url, attempt, err, d)
		if err := f.sleep(ctx, d); err != nil {
			return Content{}, err
		}
	}
}

func (f *Fetcher) once(ctx context.Context, method, url, body string, header http.Header) (Content, error) {
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, rd)
	if err != nil {
		return Content{}, &StatusError{Method: method, URL: url, StatusCode: http.StatusBadRequest, Body: err.Error()}
	}
	req.Header.Set("Content-Type", RequestContentType)
	for k, v := range header {
		req.Header[k] = v
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return Content{}, err
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return Content{}, err
	}

	logger.Debug("%s %s -> %d (%d bytes)", method, url, resp.StatusCode, len(data))

	if resp.StatusCode >= http.StatusBadRequest {
		return Content{}, &StatusError{Method: method, URL: url, StatusCode: resp.StatusCode, Body: string(data)}
	}
	return decode(resp.Header.Get("Content-Type"), data)
}

// decode selects the body decoder by parsed media type.
func decode(contentType string, data []byte) (Content, error) {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil || mediaType != fileserver.TypeJSON {
		return Content{Type: ContentText, Value: string(data)}, nil
	}

	var d fileserver.Descriptor
	if err := json.Unmarshal(data, &d); err != nil {
		return Content{}, fmt.Errorf("failed to decode JSON body: %w", err)
	}
	return Content{Type: ContentType(d.Type), Value: d.Value}, nil
}
