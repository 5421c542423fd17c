package model

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/rapidhttp/go-rapidhttp/internal/errors"
)

var validMethods = map[string]bool{
	"GET": true, "POST": true, "PUT": true, "PATCH": true,
	"DELETE": true, "HEAD": true, "OPTIONS": true,
}

// PreparedRequest is the canonical form of a [Request]: absolute parsed URL
// with query merged in, cleaned headers, a replayable body and resolved
// policy knobs. It is built once per call and not mutated afterwards.
type PreparedRequest struct {
	*Request

	U          *url.URL
	GetBody    func() (io.ReadCloser, error)
	Header     http.Header
	HeaderHost string

	ContentLength int64

	FollowRedirects bool
	RedirectLimit   int
	VerifyTLS       bool
}

func (r *Request) Prepare() (*PreparedRequest, error) {
	if strings.TrimSpace(r.URL) == "" {
		return nil, errors.New(errors.KindURLRequired, nil).WithRequest(r.Method, r.URL)
	}
	u, err := url.Parse(r.URL)
	if err != nil {
		return nil, errors.New(errors.KindURLRequired, err).WithRequest(r.Method, r.URL)
	}
	if !u.IsAbs() || u.Host == "" {
		return nil, errors.New(errors.KindURLRequired, fmt.Errorf("url %q is not absolute", r.URL)).WithRequest(r.Method, r.URL)
	}

	method := strings.ToUpper(r.Method)
	if method == "" {
		method = "GET"
	}
	if !validMethods[method] {
		return nil, errors.New(errors.KindURLRequired, fmt.Errorf("invalid method %q", r.Method)).WithRequest(r.Method, r.URL)
	}

	mergeQuery(u, r.Params)

	headers := r.Header.Clone()
	if headers == nil {
		headers = http.Header{}
	}
	host := u.Host
	cl := int64(-1)
	// user defined headers have higher priority
	for k, v := range headers {
		if strings.ToLower(k) == "host" {
			if len(v) != 0 {
				host = v[0]
			}
			delete(headers, k)
		}

		if strings.ToLower(k) == "content-length" {
			if len(v) != 0 {
				if v, err := strconv.ParseInt(v[0], 10, 64); err == nil {
					cl = v
				}
			}
			delete(headers, k)
		}
	}

	req := *r
	req.Method = method
	pr := &PreparedRequest{
		Request: &req,

		U:             u,
		Header:        headers,
		HeaderHost:    host,
		ContentLength: cl,

		FollowRedirects: r.AllowRedirects == nil || *r.AllowRedirects,
		RedirectLimit:   r.MaxRedirects,
		VerifyTLS:       r.Verify == nil || *r.Verify,
	}
	if err := pr.applyAuth(); err != nil {
		return nil, err
	}
	if err := pr.updateBody(); err != nil {
		// note that updateBody potentially updates content-length
		return nil, err
	}
	return pr, nil
}

// mergeQuery appends params to the URL's existing query. Existing keys are
// never overridden; every pair stays in the order supplied.
func mergeQuery(u *url.URL, params []Param) {
	if len(params) == 0 {
		return
	}
	var b strings.Builder
	b.WriteString(u.RawQuery)
	for _, p := range params {
		if b.Len() > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(p.Key))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(p.Value))
	}
	u.RawQuery = b.String()
}

func (r *PreparedRequest) applyAuth() error {
	if r.Request.Auth == nil || r.Header.Get("Authorization") != "" {
		return nil
	}
	a := r.Request.Auth
	if a.Token != "" {
		r.Header.Set("Authorization", "Bearer "+a.Token)
	} else {
		cred := base64.StdEncoding.EncodeToString([]byte(a.Username + ":" + a.Password))
		r.Header.Set("Authorization", "Basic "+cred)
	}
	return nil
}

// should only be called once at [Prepare]
func (r *PreparedRequest) updateBody() (err error) {
	set := 0
	if r.Request.Body != nil {
		set++
	}
	if len(r.Request.Form) != 0 {
		set++
	}
	if r.Request.JSON != nil {
		set++
	}
	if set > 1 {
		return errors.New(errors.KindBodyConflict, nil).WithRequest(r.Request.Method, r.Request.URL)
	}

	body := r.Request.Body
	switch {
	case len(r.Request.Form) != 0:
		var b strings.Builder
		for i, p := range r.Request.Form {
			if i > 0 {
				b.WriteByte('&')
			}
			b.WriteString(url.QueryEscape(p.Key))
			b.WriteByte('=')
			b.WriteString(url.QueryEscape(p.Value))
		}
		body = b.String()
		if r.Header.Get("Content-Type") == "" {
			r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}
	case r.Request.JSON != nil:
		enc, err := json.Marshal(r.Request.JSON)
		if err != nil {
			return errors.New(errors.KindInvalidBody, err).WithRequest(r.Request.Method, r.Request.URL)
		}
		body = enc
		r.Header.Set("Content-Type", "application/json")
	}

	if body == nil {
		r.GetBody = func() (io.ReadCloser, error) {
			return nil, nil
		}
		return nil
	}
	switch b := body.(type) {
	case io.ReadCloser:
		once := atomic.Bool{}
		r.GetBody = func() (io.ReadCloser, error) {
			if once.CompareAndSwap(false, true) {
				return b, nil
			}
			return nil, http.ErrBodyReadAfterClose
		}
		// unknown content-length
	case *bytes.Buffer: // below is taken from http.NewRequest
		r.ContentLength = int64(b.Len())
		buf := b.Bytes()
		r.GetBody = func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(buf)), nil
		}
	case *bytes.Reader:
		r.ContentLength = int64(b.Len())
		snapshot := *b
		r.GetBody = func() (io.ReadCloser, error) {
			r := snapshot
			return io.NopCloser(&r), nil
		}
	case *strings.Reader:
		r.ContentLength = int64(b.Len())
		snapshot := *b
		r.GetBody = func() (io.ReadCloser, error) {
			r := snapshot
			return io.NopCloser(&r), nil
		}
	case string:
		r.ContentLength = int64(len(b))
		r.GetBody = func() (io.ReadCloser, error) {
			return io.NopCloser(strings.NewReader(b)), nil
		}
	case []byte:
		r.ContentLength = int64(len(b))
		r.GetBody = func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(b)), nil
		}
	default:
		return errors.New(errors.KindInvalidBody, fmt.Errorf("unsupported body type %T", body)).WithRequest(r.Request.Method, r.Request.URL)
	}
	return nil
}
