package transport

import (
	"context"
	"io"
	"net"
	"net/http"
	"strconv"
	"sync"

	"golang.org/x/net/http2"

	"github.com/rapidhttp/go-rapidhttp/internal/model"
	"github.com/rapidhttp/go-rapidhttp/utils/netpool"
)

// H2 serves requests over ALPN-negotiated h2 connections. Framing and
// stream handling are delegated to x/net's client connection; each pooled
// connection carries at most one in-flight request, same as h1, so the
// pool invariants hold uniformly across protocols.
type H2 struct {
	mu    sync.Mutex
	conns map[net.Conn]*http2.ClientConn
	t     http2.Transport
}

func NewH2() *H2 {
	return &H2{conns: map[net.Conn]*http2.ClientConn{}}
}

func (t *H2) RoundTrip(ctx context.Context, conn *netpool.Conn, req *model.PreparedRequest, resp *model.Response) error {
	cc, err := t.clientConn(conn)
	if err != nil {
		conn.MarkUnhealthy()
		return classify(err)
	}
	stdReq, err := t.stdRequest(ctx, req)
	if err != nil {
		return err
	}
	stdResp, err := cc.RoundTrip(stdReq)
	if err != nil {
		conn.MarkUnhealthy()
		t.forget(conn)
		if conn.Reused {
			err = &StaleConnError{Err: err}
		}
		return classify(err)
	}
	resp.Proto = stdResp.Proto
	resp.StatusCode = stdResp.StatusCode
	resp.Status = strconv.Itoa(stdResp.StatusCode) + " " + http.StatusText(stdResp.StatusCode)
	resp.Header = stdResp.Header
	resp.ContentLength = stdResp.ContentLength
	resp.SetBody(&h2Body{rc: stdResp.Body, conn: conn})
	return nil
}

func (t *H2) clientConn(conn *netpool.Conn) (*http2.ClientConn, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if cc, ok := t.conns[conn.Raw()]; ok {
		return cc, nil
	}
	cc, err := t.t.NewClientConn(conn.Raw())
	if err != nil {
		return nil, err
	}
	t.conns[conn.Raw()] = cc
	// the pool may close the conn behind our back (TTL eviction, unhealthy
	// release, shutdown); drop the cache entry with it
	conn.OnClose(func() { t.forget(conn) })
	return cc, nil
}

func (t *H2) forget(conn *netpool.Conn) {
	t.mu.Lock()
	delete(t.conns, conn.Raw())
	t.mu.Unlock()
}

func (t *H2) stdRequest(ctx context.Context, r *model.PreparedRequest) (*http.Request, error) {
	body, err := r.GetBody()
	if err != nil {
		return nil, err
	}
	req := &http.Request{
		Method:        r.Method,
		URL:           r.U,
		Header:        r.Header.Clone(),
		Body:          body,
		ContentLength: r.ContentLength,
		Host:          r.HeaderHost,
	}
	if req.ContentLength < 0 {
		req.ContentLength = 0
		if body != nil {
			req.ContentLength = -1
		}
	}
	return req.WithContext(ctx), nil
}

// h2Body owns one h2 stream. Closing it early resets the stream without
// poisoning the shared TCP connection, so the pooled conn is always
// released healthy here.
type h2Body struct {
	rc     io.ReadCloser
	conn   *netpool.Conn
	closed bool
}

func (b *h2Body) Read(p []byte) (int, error) {
	n, err := b.rc.Read(p)
	if err != nil && err != io.EOF {
		err = classify(err)
	}
	return n, err
}

func (b *h2Body) Close() error {
	if b.closed {
		return nil
	}
	b.closed = true
	err := b.rc.Close()
	b.conn.Release(b.conn.Healthy())
	return err
}
