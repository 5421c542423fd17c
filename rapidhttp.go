// Package rapidhttp is a requests-style HTTP client engine: persistent
// per-session connection pooling, redirect and retry policy, and a
// buffered-or-streaming response pipeline, over its own HTTP/1.1 and
// ALPN-negotiated h2 transports.
//
// Hold a [Session] to reuse connections across calls:
//
//	s := rapidhttp.NewSession()
//	defer s.Close()
//	resp, err := s.Get(ctx, "https://example.com/api", rapidhttp.WithParam("q", "1"))
//
// The module-level verbs below create and discard a single-use session per
// call; they never share connections between calls.
package rapidhttp

import (
	"context"
	"net/http"

	"github.com/rapidhttp/go-rapidhttp/internal"
)

func NewSession(opts ...SessionOption) *Session {
	return internal.NewSession(opts...)
}

var (
	WithHeaders    = internal.WithHeaders
	WithHeader     = internal.WithHeader
	WithParam      = internal.WithParam
	WithParams     = internal.WithParams
	WithJSON       = internal.WithJSON
	WithData       = internal.WithData
	WithForm       = internal.WithForm
	WithBasicAuth  = internal.WithBasicAuth
	WithBearerAuth = internal.WithBearerAuth
	WithTimeout    = internal.WithTimeout
	WithTimeouts   = internal.WithTimeouts
	WithRedirects  = internal.WithRedirects
	WithProxy      = internal.WithProxy

	WithoutRedirects = internal.WithoutRedirects
	WithoutVerify    = internal.WithoutVerify

	WithSessionHeader = internal.WithSessionHeader
	WithSessionParam  = internal.WithSessionParam
)

// Do issues one request on a fresh single-use session. The session's pool
// is released once the response body is consumed or closed.
func Do(ctx context.Context, method, url string, opts ...RequestOption) (*Response, error) {
	s := NewSession()
	resp, err := s.Request(ctx, method, url, opts...)
	if err != nil {
		s.Close()
		return nil, err
	}
	resp.SetCleanup(s.Close)
	return resp, nil
}

func Get(ctx context.Context, url string, opts ...RequestOption) (*Response, error) {
	return Do(ctx, http.MethodGet, url, opts...)
}

func Post(ctx context.Context, url string, opts ...RequestOption) (*Response, error) {
	return Do(ctx, http.MethodPost, url, opts...)
}

func Put(ctx context.Context, url string, opts ...RequestOption) (*Response, error) {
	return Do(ctx, http.MethodPut, url, opts...)
}

func Patch(ctx context.Context, url string, opts ...RequestOption) (*Response, error) {
	return Do(ctx, http.MethodPatch, url, opts...)
}

func Delete(ctx context.Context, url string, opts ...RequestOption) (*Response, error) {
	return Do(ctx, http.MethodDelete, url, opts...)
}

func Head(ctx context.Context, url string, opts ...RequestOption) (*Response, error) {
	return Do(ctx, http.MethodHead, url, opts...)
}

func Options(ctx context.Context, url string, opts ...RequestOption) (*Response, error) {
	return Do(ctx, http.MethodOptions, url, opts...)
}
