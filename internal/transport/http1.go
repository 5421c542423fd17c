package transport

import (
	"bufio"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"net/textproto"
	"strconv"
	"strings"
	"time"

	"github.com/rapidhttp/go-rapidhttp/internal/model"
	"github.com/rapidhttp/go-rapidhttp/internal/transport/chunked"
	"github.com/rapidhttp/go-rapidhttp/utils/netpool"
)

type HTTP1 struct{}

func (t HTTP1) RoundTrip(ctx context.Context, conn *netpool.Conn, req *model.PreparedRequest, resp *model.Response) error {
	if err := t.write(ctx, conn, req); err != nil {
		conn.MarkUnhealthy()
		if conn.Reused {
			err = &StaleConnError{Err: err}
		}
		return classify(err)
	}
	return t.read(ctx, conn, req, resp)
}

func (t HTTP1) write(ctx context.Context, conn *netpool.Conn, r *model.PreparedRequest) error {
	if dl, ok := ctx.Deadline(); ok {
		conn.Raw().SetWriteDeadline(dl)
		defer conn.Raw().SetWriteDeadline(time.Time{})
	}
	body, err := r.GetBody() // can write body
	if err != nil {
		return err
	}
	if body != nil {
		defer body.Close() // request body is ALWAYS closed
	}

	streamed := body != nil && r.ContentLength == -1
	if err := t.writeHeader(conn, r, streamed); err != nil {
		return err
	}
	if body == nil {
		return nil
	}
	if streamed {
		cw := chunked.NewWriter(conn)
		if _, err := io.Copy(cw, body); err != nil {
			return err
		}
		return cw.Close()
	}
	_, err = io.Copy(conn, body)
	return err
}

// writeHeader writes the request line and header part of an HTTP/1.1
// request, e.g.:
//
//	GET / HTTP/1.1\r\n
//	Host: www.example.com\r\n
//	X-Xx-Yy: cccccc\r\n
//	\r\n
func (t HTTP1) writeHeader(w io.Writer, r *model.PreparedRequest, streamed bool) error {
	header := bufio.NewWriter(w) // default bufsize is 4096

	if _, err := header.WriteString(r.Method); err != nil {
		return err
	}
	header.WriteByte(' ')
	header.WriteString(r.U.RequestURI())
	header.WriteString(" HTTP/1.1\r\n")

	header.WriteString("Host: ")
	header.WriteString(r.HeaderHost)
	header.WriteString("\r\n")
	if streamed {
		header.WriteString("Transfer-Encoding: chunked\r\n")
	} else if r.ContentLength != -1 {
		header.WriteString("Content-Length: ")
		header.WriteString(strconv.FormatInt(r.ContentLength, 10))
		header.WriteString("\r\n")
	}
	for k, v := range r.Header {
		for _, v := range v {
			header.WriteString(k)
			header.WriteString(": ")
			header.WriteString(v)
			if _, err := header.WriteString("\r\n"); err != nil {
				return err
			}
		}
	}
	if _, err := header.WriteString("\r\n"); err != nil {
		return err
	}
	return header.Flush()
}

func (t HTTP1) read(ctx context.Context, conn *netpool.Conn, req *model.PreparedRequest, resp *model.Response) (err error) {
	if err := setReadDeadline(ctx, conn, req.Request.Timeout.Read); err != nil {
		return classify(err)
	}
	cr := &countReader{r: conn}
	tp := textproto.NewReader(bufio.NewReader(cr))

	line, err := tp.ReadLine()
	if err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		conn.MarkUnhealthy()
		if conn.Reused && cr.n == 0 {
			err = &StaleConnError{Err: err}
		}
		return classify(err)
	}
	proto, status, ok := strings.Cut(line, " ")
	if !ok {
		conn.MarkUnhealthy()
		return classify(stderrors.New("malformed HTTP response"))
	}
	resp.Proto = proto
	resp.Status = strings.TrimLeft(status, " ")

	statusCode, _, _ := strings.Cut(resp.Status, " ")
	if len(statusCode) != 3 {
		conn.MarkUnhealthy()
		return classify(stderrors.New("malformed HTTP status code " + statusCode))
	}
	resp.StatusCode, err = strconv.Atoi(statusCode)
	if err != nil || resp.StatusCode < 0 {
		conn.MarkUnhealthy()
		return classify(stderrors.New("malformed HTTP status code"))
	}

	mimeHeader, err := tp.ReadMIMEHeader()
	if err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		conn.MarkUnhealthy()
		return classify(err)
	}
	resp.Header = http.Header(mimeHeader)

	return t.readTransfer(tp.R, conn, req, resp)
}

func (t HTTP1) readTransfer(r *bufio.Reader, conn *netpool.Conn, req *model.PreparedRequest, resp *model.Response) error {
	reuse := shouldReuse(req, resp)

	if noBodyExpected(req, resp) {
		resp.ContentLength = 0
		conn.Raw().SetReadDeadline(time.Time{})
		conn.Release(reuse)
		resp.SetBody(http.NoBody)
		return nil
	}

	contentLens := resp.Header["Content-Length"]
	// Hardening against HTTP request smuggling, taken from standard library
	if len(contentLens) > 1 {
		// Per RFC 7230 Section 3.3.2
		first := textproto.TrimString(contentLens[0])
		for _, ct := range contentLens[1:] {
			if first != textproto.TrimString(ct) {
				conn.MarkUnhealthy()
				return classify(fmt.Errorf("message cannot contain multiple Content-Length headers; got %q", contentLens))
			}
		}
		resp.Header.Del("Content-Length")
		resp.Header.Add("Content-Length", first)
		contentLens = resp.Header["Content-Length"]
	}

	cl := int64(-1)
	if len(contentLens) > 0 {
		if v := textproto.TrimString(contentLens[0]); v != "" {
			n, err := strconv.ParseUint(v, 10, 63)
			if err != nil {
				conn.MarkUnhealthy()
				return classify(fmt.Errorf("malformed Content-Length %q", contentLens[0]))
			}
			cl = int64(n)
		}
	}

	body := &bodyConn{conn: conn, readTimeout: req.Request.Timeout.Read, reuse: reuse}
	switch {
	case strings.EqualFold(resp.Header.Get("Transfer-Encoding"), "chunked"):
		resp.ContentLength = -1
		body.r = chunked.NewReader(r)
	case cl > 0:
		resp.ContentLength = cl
		body.r = io.LimitReader(r, cl)
	case cl == 0:
		resp.ContentLength = 0
		conn.Raw().SetReadDeadline(time.Time{})
		conn.Release(reuse)
		resp.SetBody(http.NoBody)
		return nil
	default:
		// no framing: body runs to connection close, never reusable
		resp.ContentLength = -1
		body.r = r
		body.reuse = false
	}
	resp.SetBody(body)
	return nil
}

func noBodyExpected(req *model.PreparedRequest, resp *model.Response) bool {
	if req.Request.Method == "HEAD" {
		return true
	}
	return resp.StatusCode < 200 || resp.StatusCode == 204 || resp.StatusCode == 304
}

// shouldReuse implements keep-alive negotiation: HTTP/1.1 defaults to
// keep-alive unless either side asked for close.
func shouldReuse(req *model.PreparedRequest, resp *model.Response) bool {
	if resp.Proto != "HTTP/1.1" {
		return strings.EqualFold(resp.Header.Get("Connection"), "keep-alive")
	}
	if strings.EqualFold(resp.Header.Get("Connection"), "close") {
		return false
	}
	return !strings.EqualFold(req.Header.Get("Connection"), "close")
}

func setReadDeadline(ctx context.Context, conn *netpool.Conn, read time.Duration) error {
	dl := time.Time{}
	if read != 0 {
		dl = time.Now().Add(read)
	}
	if cd, ok := ctx.Deadline(); ok && (dl.IsZero() || cd.Before(dl)) {
		dl = cd
	}
	return conn.Raw().SetReadDeadline(dl)
}

type countReader struct {
	r io.Reader
	n int64
}

func (c *countReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

// bodyConn streams a response body off a pooled connection. Exhausting it
// (io.EOF) marks it drained; Close returns the connection to the pool only
// when it was drained and keep-alive allows reuse, otherwise the connection
// is closed to avoid desynchronizing the next request on it.
type bodyConn struct {
	r           io.Reader
	conn        *netpool.Conn
	readTimeout time.Duration
	reuse       bool
	drained     bool
	closed      bool
}

func (b *bodyConn) Read(p []byte) (int, error) {
	if b.closed {
		return 0, io.EOF
	}
	if b.readTimeout != 0 {
		b.conn.Raw().SetReadDeadline(time.Now().Add(b.readTimeout))
	}
	n, err := b.r.Read(p)
	if err == io.EOF {
		b.drained = true
	} else if err != nil {
		b.conn.MarkUnhealthy()
		err = classify(err)
	}
	return n, err
}

func (b *bodyConn) Close() error {
	if b.closed {
		return nil
	}
	b.closed = true
	b.conn.Raw().SetReadDeadline(time.Time{})
	b.conn.Release(b.drained && b.reuse)
	return nil
}
