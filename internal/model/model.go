package model

import (
	"net/http"
	"time"

	"github.com/rapidhttp/go-rapidhttp/internal/errors"
)

// Param is one query or form key/value pair. Pairs are kept as a slice so
// repeated keys survive in the order they were supplied.
type Param struct {
	Key, Value string
}

// Auth carries request credentials. A non-empty Token injects a Bearer
// Authorization header, otherwise Username/Password inject Basic. A caller
// supplied Authorization header always wins.
type Auth struct {
	Username string
	Password string
	Token    string
}

// Timeout bounds the phases of one request. Zero means no bound for that
// phase (the session applies its own defaults).
type Timeout struct {
	Connect time.Duration
	Read    time.Duration
	Total   time.Duration
}

type Request struct {
	Method string
	URL    string
	Header http.Header
	Params []Param

	// At most one of Body, Form and JSON may be set.
	Body interface{} // raw: string, []byte, *bytes.Buffer, *bytes.Reader, *strings.Reader, io.ReadCloser
	Form []Param     // application/x-www-form-urlencoded
	JSON interface{} // marshalled with encoding/json

	Auth    *Auth
	Timeout Timeout

	// AllowRedirects defaults to true when nil. MaxRedirects zero means the
	// engine default.
	AllowRedirects *bool
	MaxRedirects   int

	// Verify defaults to true when nil; false skips TLS certificate
	// validation.
	Verify *bool

	// Proxy is an optional proxy URL for this request.
	Proxy string
}

type Response struct {
	Proto      string
	Status     string
	StatusCode int
	Header     http.Header

	ContentLength int64

	// URL is the final URL after following redirects.
	URL string
	// Redirects is the number of hops followed to reach URL.
	Redirects int
	// Elapsed is the time from issuing the request to receiving the head.
	Elapsed time.Duration

	body bodySource
}

// Ok reports whether the status code is below 400.
func (r *Response) Ok() bool { return r.StatusCode < 400 }

// RaiseForStatus converts a non-ok response into an HTTPError. It is never
// raised implicitly; callers inspect non-2xx responses freely otherwise.
func (r *Response) RaiseForStatus() error {
	if r.Ok() {
		return nil
	}
	return &errors.Error{Kind: errors.KindHTTP, Status: r.StatusCode, URL: r.URL}
}

// Reason is the textual reason phrase for the status code.
func (r *Response) Reason() string { return http.StatusText(r.StatusCode) }

func (r *Response) IsRedirect() bool {
	if r.Header.Get("Location") == "" {
		return false
	}
	switch r.StatusCode {
	case 301, 302, 303, 307, 308:
		return true
	}
	return false
}

func (r *Response) IsPermanentRedirect() bool {
	return r.Header.Get("Location") != "" && (r.StatusCode == 301 || r.StatusCode == 308)
}
