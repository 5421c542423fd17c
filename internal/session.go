package internal

import (
	"context"
	"net/http"

	"github.com/rapidhttp/go-rapidhttp/internal/cookies"
	"github.com/rapidhttp/go-rapidhttp/internal/model"
)

// Session persists defaults across sequential requests: default headers
// merged beneath per-request ones, default query params, a cookie jar fed
// by every response, and one connection pool released on Close.
type Session struct {
	Headers http.Header
	Params  []model.Param

	jar    *cookies.Jar
	client *Client
}

type SessionOption func(*Session)

func WithSessionHeader(k, v string) SessionOption {
	return func(s *Session) { s.Headers.Set(k, v) }
}

func WithSessionParam(k, v string) SessionOption {
	return func(s *Session) { s.Params = append(s.Params, model.Param{Key: k, Value: v}) }
}

func NewSession(opts ...SessionOption) *Session {
	c := NewClient()
	s := &Session{
		Headers: http.Header{},
		jar:     cookies.New(),
		client:  c,
	}
	c.Jar = s.jar
	for _, o := range opts {
		o(s)
	}
	return s
}

// Client exposes the underlying engine for middleware and dialer tuning.
func (s *Session) Client() *Client { return s.client }

// Jar exposes the session's cookie store.
func (s *Session) Jar() *cookies.Jar { return s.jar }

// Close releases every pooled connection the session holds.
func (s *Session) Close() { s.client.Close() }

// Do issues req with the session's defaults applied.
func (s *Session) Do(ctx context.Context, req *model.Request) (*model.Response, error) {
	r := *req
	if len(s.Headers) > 0 {
		merged := s.Headers.Clone()
		for k, vs := range req.Header {
			merged[http.CanonicalHeaderKey(k)] = vs
		}
		r.Header = merged
	}
	if len(s.Params) > 0 {
		r.Params = append(append([]model.Param{}, s.Params...), req.Params...)
	}
	// HEAD does not follow redirects unless asked to
	if r.AllowRedirects == nil && http.MethodHead == canonicalMethod(r.Method) {
		f := false
		r.AllowRedirects = &f
	}
	return s.client.CtxDo(ctx, &r)
}

// Request builds a request from options and issues it.
func (s *Session) Request(ctx context.Context, method, url string, opts ...RequestOption) (*model.Response, error) {
	req := &model.Request{Method: method, URL: url}
	for _, o := range opts {
		o(req)
	}
	return s.Do(ctx, req)
}

func (s *Session) Get(ctx context.Context, url string, opts ...RequestOption) (*model.Response, error) {
	return s.Request(ctx, http.MethodGet, url, opts...)
}

func (s *Session) Post(ctx context.Context, url string, opts ...RequestOption) (*model.Response, error) {
	return s.Request(ctx, http.MethodPost, url, opts...)
}

func (s *Session) Put(ctx context.Context, url string, opts ...RequestOption) (*model.Response, error) {
	return s.Request(ctx, http.MethodPut, url, opts...)
}

func (s *Session) Patch(ctx context.Context, url string, opts ...RequestOption) (*model.Response, error) {
	return s.Request(ctx, http.MethodPatch, url, opts...)
}

func (s *Session) Delete(ctx context.Context, url string, opts ...RequestOption) (*model.Response, error) {
	return s.Request(ctx, http.MethodDelete, url, opts...)
}

func (s *Session) Head(ctx context.Context, url string, opts ...RequestOption) (*model.Response, error) {
	return s.Request(ctx, http.MethodHead, url, opts...)
}

func (s *Session) Options(ctx context.Context, url string, opts ...RequestOption) (*model.Response, error) {
	return s.Request(ctx, http.MethodOptions, url, opts...)
}

func canonicalMethod(m string) string {
	switch m {
	case "head", "Head", "HEAD":
		return http.MethodHead
	}
	return m
}
