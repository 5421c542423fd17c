package model

import (
	"bufio"
	"bytes"
	"encoding/json"
	stderrors "errors"
	"io"
	"mime"
	"strings"
	"sync"

	"github.com/tidwall/gjson"
	"golang.org/x/text/encoding/htmlindex"

	"github.com/rapidhttp/go-rapidhttp/internal/errors"
)

// A response body is in exactly one of these states. Buffered access
// (Content/Text/JSON) and streaming access (IterContent/IterLines) are
// mutually exclusive on one response.
type bodyState int

const (
	bodyUnread bodyState = iota
	bodyStreaming
	bodyBuffered
	bodyClosed
)

type bodySource struct {
	mu      sync.Mutex
	state   bodyState
	rc      io.ReadCloser
	buf     []byte
	cleanup []func()
}

// runCleanup fires pending cleanups once the transport stream is done with.
func (b *bodySource) runCleanup() {
	fns := b.cleanup
	b.cleanup = nil
	for _, f := range fns {
		f()
	}
}

// SetBody installs the transport's body stream. Called once, before the
// response is handed to the caller.
func (r *Response) SetBody(rc io.ReadCloser) {
	r.body.rc = rc
}

// SetCleanup registers f to run when the body stream is fully consumed or
// closed (used to release per-request deadlines and one-shot sessions).
func (r *Response) SetCleanup(f func()) {
	b := &r.body
	b.mu.Lock()
	if b.state == bodyBuffered || b.state == bodyClosed {
		b.mu.Unlock()
		f()
		return
	}
	b.cleanup = append(b.cleanup, f)
	b.mu.Unlock()
}

// Content returns the fully buffered body, pulling everything from the
// stream on first access and caching it. It fails with the StreamConsumed
// kind once streaming access has started.
func (r *Response) Content() ([]byte, error) {
	b := &r.body
	b.mu.Lock()
	defer b.mu.Unlock()
	switch b.state {
	case bodyBuffered:
		return b.buf, nil
	case bodyStreaming, bodyClosed:
		return nil, errors.New(errors.KindStreamConsumed, nil)
	}
	if b.rc == nil {
		b.state = bodyBuffered
		return nil, nil
	}
	var err error
	b.buf, err = io.ReadAll(b.rc)
	b.rc.Close()
	b.runCleanup()
	if err != nil {
		b.state = bodyClosed
		return nil, wrapReadErr(err)
	}
	b.state = bodyBuffered
	return b.buf, nil
}

// Text decodes the buffered body using the charset named by the
// Content-Type header, defaulting to UTF-8. Decoding never fails: invalid
// sequences come out as replacement runes and unknown charsets fall back to
// UTF-8.
func (r *Response) Text() (string, error) {
	raw, err := r.Content()
	if err != nil {
		return "", err
	}
	name := "utf-8"
	if _, params, err := mime.ParseMediaType(r.Header.Get("Content-Type")); err == nil {
		if cs := params["charset"]; cs != "" {
			name = cs
		}
	}
	if !strings.EqualFold(name, "utf-8") {
		if enc, err := htmlindex.Get(name); err == nil {
			if dec, err := enc.NewDecoder().Bytes(raw); err == nil {
				return string(dec), nil
			}
		}
	}
	return strings.ToValidUTF8(string(raw), "�"), nil
}

// JSON parses the buffered body, preserving numeric precision via
// json.Number. Malformed input fails with the JSONDecode kind carrying the
// byte offset.
func (r *Response) JSON() (interface{}, error) {
	raw, err := r.Content()
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return nil, jsonErr(err)
	}
	// trailing non-whitespace is malformed, same as a strict decoder
	if _, err := dec.Token(); err != io.EOF {
		return nil, &errors.Error{Kind: errors.KindJSONDecode, Offset: dec.InputOffset(), Err: stderrors.New("trailing data after JSON value")}
	}
	return v, nil
}

// JSONInto decodes the buffered body into v.
func (r *Response) JSONInto(v interface{}) error {
	raw, err := r.Content()
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return jsonErr(err)
	}
	return nil
}

// JSONPath extracts a value from the buffered JSON body with a gjson path
// expression.
func (r *Response) JSONPath(path string) (gjson.Result, error) {
	raw, err := r.Content()
	if err != nil {
		return gjson.Result{}, err
	}
	if !gjson.ValidBytes(raw) {
		return gjson.Result{}, &errors.Error{Kind: errors.KindJSONDecode, Err: stderrors.New("invalid JSON body")}
	}
	return gjson.GetBytes(raw, path), nil
}

func jsonErr(err error) error {
	e := &errors.Error{Kind: errors.KindJSONDecode, Err: err}
	var syn *json.SyntaxError
	if stderrors.As(err, &syn) {
		e.Offset = syn.Offset
	}
	var typ *json.UnmarshalTypeError
	if stderrors.As(err, &typ) {
		e.Offset = typ.Offset
	}
	return e
}

// ChunkIterator yields body chunks straight off the transport stream.
// It is finite and non-restartable.
type ChunkIterator struct {
	r    *Response
	size int
	done bool
}

// IterContent switches the body to streaming mode. Chunks are at most
// chunkSize bytes; only the final chunk may be shorter.
func (r *Response) IterContent(chunkSize int) (*ChunkIterator, error) {
	if chunkSize <= 0 {
		chunkSize = 1
	}
	b := &r.body
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state != bodyUnread {
		return nil, errors.New(errors.KindStreamConsumed, nil)
	}
	if b.rc == nil {
		b.rc = io.NopCloser(strings.NewReader(""))
	}
	b.state = bodyStreaming
	return &ChunkIterator{r: r, size: chunkSize}, nil
}

// Next returns the next chunk, or io.EOF after the final one. Any other
// error aborts the stream.
func (it *ChunkIterator) Next() ([]byte, error) {
	if it.done {
		return nil, io.EOF
	}
	b := &it.r.body
	chunk := make([]byte, it.size)
	n, err := io.ReadFull(b.rc, chunk)
	if err == io.ErrUnexpectedEOF {
		err = io.EOF
	}
	if n > 0 && err == io.EOF {
		return chunk[:n], nil
	}
	if err != nil {
		it.done = true
		b.rc.Close()
		b.mu.Lock()
		b.state = bodyClosed
		b.runCleanup()
		b.mu.Unlock()
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, wrapReadErr(err)
	}
	return chunk[:n], nil
}

// LineIterator yields lines split on '\n' with a trailing '\r' trimmed,
// layered over the chunk stream.
type LineIterator struct {
	it  *ChunkIterator
	br  *bufio.Reader
	err error
}

func (r *Response) IterLines() (*LineIterator, error) {
	it, err := r.IterContent(512)
	if err != nil {
		return nil, err
	}
	return &LineIterator{it: it, br: bufio.NewReader(chunkReader{it})}, nil
}

type chunkReader struct{ it *ChunkIterator }

func (c chunkReader) Read(p []byte) (int, error) {
	chunk, err := c.it.Next()
	if err != nil {
		return 0, err
	}
	return copy(p, chunk), nil
}

// Next returns the next line, or io.EOF when the body is exhausted.
func (l *LineIterator) Next() (string, error) {
	if l.err != nil {
		return "", l.err
	}
	line, err := l.br.ReadString('\n')
	if err != nil && line == "" {
		l.err = err
		return "", err
	}
	line = strings.TrimSuffix(line, "\n")
	line = strings.TrimSuffix(line, "\r")
	return line, nil
}

// CloseBody releases the body stream. An un-drained stream closes the
// underlying connection rather than returning it to the pool.
func (r *Response) CloseBody() error {
	b := &r.body
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == bodyClosed || b.state == bodyBuffered {
		b.state = bodyClosed
		b.runCleanup()
		return nil
	}
	b.state = bodyClosed
	if b.rc == nil {
		b.runCleanup()
		return nil
	}
	err := b.rc.Close()
	b.runCleanup()
	return err
}

func wrapReadErr(err error) error {
	if _, ok := errors.As(err); ok {
		return err
	}
	return errors.New(errors.KindConnection, err)
}
