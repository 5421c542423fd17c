package internal

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/rapidhttp/go-rapidhttp/internal/dialer"
	"github.com/rapidhttp/go-rapidhttp/internal/errors"
	"github.com/rapidhttp/go-rapidhttp/internal/model"
	"github.com/rapidhttp/go-rapidhttp/internal/transport"
	"github.com/rapidhttp/go-rapidhttp/utils/netpool"
)

type PreparedRequest = model.PreparedRequest

type Handler = func(ctx context.Context, req *PreparedRequest) (*model.Response, error)
type Middleware func(next Handler) Handler

// CookieJar is read to populate outgoing Cookie headers and written from
// incoming Set-Cookie headers, on every hop.
type CookieJar interface {
	CookieHeader(u *url.URL) string
	StoreFrom(u *url.URL, h http.Header)
}

const (
	DefaultMaxRedirects = 30
	DefaultTotalTimeout = 30 * time.Second
)

type Client struct {
	middlewares []Middleware
	dialer      dialer.Dialer
	h1          transport.HTTP1
	h2          *transport.H2

	Jar CookieJar
}

func NewClient() *Client {
	return &Client{
		dialer: dialer.NewCoreDialer(),
		h2:     transport.NewH2(),
	}
}

// Use appends mw to the end of the chain. The last "Use"d mw executes first
func (c *Client) Use(mws ...Middleware) {
	c.middlewares = append(c.middlewares, mws...)
}

// UseDialer replaces the dialer with wrap(current).
func (c *Client) UseDialer(wrap func(dialer.Dialer) dialer.Dialer) {
	c.dialer = wrap(c.dialer)
}

func (c *Client) Dialer() dialer.Dialer { return c.dialer }

// Close releases every pooled connection the client's core dialer holds.
func (c *Client) Close() {
	for d := c.dialer; d != nil; d = d.Unwrap() {
		if cd, ok := d.(*dialer.CoreDialer); ok {
			cd.ConnPool.Close()
			return
		}
	}
}

func (c *Client) dial(ctx context.Context, req *PreparedRequest) (*netpool.Conn, error) {
	return c.dialer.Dial(ctx, req)
}

// CtxDo issues one logical request: prepare, follow redirects with the
// bounded idempotent retry, and hand back a response whose body still
// streams off the transport. The total timeout covers every suspension
// point up to the response head; body reads are bounded by the read
// timeout.
func (c *Client) CtxDo(ctx context.Context, req *model.Request) (*model.Response, error) {
	pr, err := req.Prepare()
	if err != nil {
		return nil, err
	}
	total := pr.Request.Timeout.Total
	if total == 0 {
		total = DefaultTotalTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, total)

	next := c.followRedirects(c.send)
	for i := len(c.middlewares) - 1; i >= 0; i-- {
		next = c.middlewares[i](next)
	}
	resp, err := next(ctx, pr)
	if err != nil {
		cancel()
		return nil, err
	}
	// the body may outlive this call; the deadline is released once the
	// body is consumed or closed
	resp.SetCleanup(cancel)
	return resp, nil
}

// send performs a single exchange over one pooled connection.
func (c *Client) send(ctx context.Context, pr *PreparedRequest) (*model.Response, error) {
	start := time.Now()
	conn, err := c.dial(ctx, pr)
	if err != nil {
		return nil, annotate(err, pr)
	}
	var tr transport.Transport = c.h1
	if dialer.Negotiated(conn) == "h2" {
		tr = c.h2
	}
	resp := &model.Response{}
	if err := tr.RoundTrip(ctx, conn, pr, resp); err != nil {
		conn.Release(false)
		return nil, annotate(err, pr)
	}
	resp.URL = pr.U.String()
	resp.Elapsed = time.Since(start)
	return resp, nil
}

func annotate(err error, pr *PreparedRequest) error {
	if e, ok := errors.As(err); ok {
		return e.WithRequest(pr.Request.Method, pr.U.String())
	}
	return errors.New(errors.KindConnection, err).WithRequest(pr.Request.Method, pr.U.String())
}
