package internal

import (
	"net/http"
	"time"

	"github.com/rapidhttp/go-rapidhttp/internal/model"
)

// RequestOption configures one request, lunge-style functional options.
type RequestOption func(*model.Request)

func WithHeaders(h http.Header) RequestOption {
	return func(r *model.Request) { r.Header = h }
}

func WithHeader(k, v string) RequestOption {
	return func(r *model.Request) {
		if r.Header == nil {
			r.Header = http.Header{}
		}
		r.Header.Set(k, v)
	}
}

// WithParam appends one query parameter; repeated keys are preserved in
// the order supplied.
func WithParam(k, v string) RequestOption {
	return func(r *model.Request) { r.Params = append(r.Params, model.Param{Key: k, Value: v}) }
}

func WithParams(ps ...model.Param) RequestOption {
	return func(r *model.Request) { r.Params = append(r.Params, ps...) }
}

// WithJSON sends v as a JSON body with Content-Type: application/json.
func WithJSON(v interface{}) RequestOption {
	return func(r *model.Request) { r.JSON = v }
}

// WithData sends a raw body (string, []byte or a reader).
func WithData(body interface{}) RequestOption {
	return func(r *model.Request) { r.Body = body }
}

// WithForm sends key/value pairs form-encoded.
func WithForm(ps ...model.Param) RequestOption {
	return func(r *model.Request) { r.Form = append(r.Form, ps...) }
}

func WithBasicAuth(username, password string) RequestOption {
	return func(r *model.Request) { r.Auth = &model.Auth{Username: username, Password: password} }
}

func WithBearerAuth(token string) RequestOption {
	return func(r *model.Request) { r.Auth = &model.Auth{Token: token} }
}

// WithTimeout bounds the whole request.
func WithTimeout(total time.Duration) RequestOption {
	return func(r *model.Request) { r.Timeout.Total = total }
}

func WithTimeouts(connect, read, total time.Duration) RequestOption {
	return func(r *model.Request) {
		r.Timeout = model.Timeout{Connect: connect, Read: read, Total: total}
	}
}

func WithoutRedirects() RequestOption {
	f := false
	return func(r *model.Request) { r.AllowRedirects = &f }
}

func WithRedirects(max int) RequestOption {
	t := true
	return func(r *model.Request) { r.AllowRedirects = &t; r.MaxRedirects = max }
}

// WithoutVerify disables TLS certificate validation for this request.
func WithoutVerify() RequestOption {
	f := false
	return func(r *model.Request) { r.Verify = &f }
}

func WithProxy(proxyURL string) RequestOption {
	return func(r *model.Request) { r.Proxy = proxyURL }
}
