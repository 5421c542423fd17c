package model

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rapidhttp/go-rapidhttp/internal/errors"
)

func newBodyResponse(contentType, body string) *Response {
	h := http.Header{}
	if contentType != "" {
		h.Set("Content-Type", contentType)
	}
	r := &Response{StatusCode: 200, Header: h}
	r.SetBody(io.NopCloser(strings.NewReader(body)))
	return r
}

func TestContentBuffersAndCaches(t *testing.T) {
	r := newBodyResponse("text/plain", "hello body")
	b1, err := r.Content()
	require.NoError(t, err)
	b2, err := r.Content()
	require.NoError(t, err)
	assert.Equal(t, "hello body", string(b1))
	assert.Equal(t, &b1[0], &b2[0], "second access must hit the cache")
}

func TestContentAfterStreamingFails(t *testing.T) {
	r := newBodyResponse("", "0123456789")
	_, err := r.IterContent(4)
	require.NoError(t, err)

	_, err = r.Content()
	assert.ErrorIs(t, err, errors.ErrStreamConsumed)
	_, err = r.Text()
	assert.ErrorIs(t, err, errors.ErrStreamConsumed)
	_, err = r.JSON()
	assert.ErrorIs(t, err, errors.ErrStreamConsumed)
}

func TestIterContentAfterBufferingFails(t *testing.T) {
	r := newBodyResponse("", "0123456789")
	_, err := r.Content()
	require.NoError(t, err)

	_, err = r.IterContent(4)
	assert.ErrorIs(t, err, errors.ErrStreamConsumed)
}

func TestIterContentChunkSizes(t *testing.T) {
	r := newBodyResponse("", strings.Repeat("x", 25))
	it, err := r.IterContent(10)
	require.NoError(t, err)

	var sizes []int
	total := 0
	for {
		chunk, err := it.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		sizes = append(sizes, len(chunk))
		total += len(chunk)
	}
	assert.Equal(t, []int{10, 10, 5}, sizes)
	assert.Equal(t, 25, total)

	// exhausted iterator stays exhausted
	_, err = it.Next()
	assert.Equal(t, io.EOF, err)
}

func TestIterContentEmptyBody(t *testing.T) {
	r := &Response{StatusCode: 204, Header: http.Header{}}
	it, err := r.IterContent(10)
	require.NoError(t, err)
	_, err = it.Next()
	assert.Equal(t, io.EOF, err)
}

func TestIterLines(t *testing.T) {
	r := newBodyResponse("", "alpha\r\nbeta\ngamma")
	it, err := r.IterLines()
	require.NoError(t, err)

	var lines []string
	for {
		line, err := it.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		lines = append(lines, line)
	}
	assert.Equal(t, []string{"alpha", "beta", "gamma"}, lines)
}

func TestJSONUsesNumber(t *testing.T) {
	r := newBodyResponse("application/json", `{"id": 9007199254740993, "name": "ann"}`)
	v, err := r.JSON()
	require.NoError(t, err)

	obj := v.(map[string]interface{})
	assert.Equal(t, json.Number("9007199254740993"), obj["id"])
	assert.Equal(t, "ann", obj["name"])
}

func TestJSONMalformedCarriesOffset(t *testing.T) {
	r := newBodyResponse("application/json", `{"a": 1,}`)
	_, err := r.JSON()
	require.ErrorIs(t, err, errors.ErrJSONDecode)

	e, ok := errors.As(err)
	require.True(t, ok)
	assert.Greater(t, e.Offset, int64(0))
}

func TestJSONTrailingData(t *testing.T) {
	r := newBodyResponse("application/json", `{"a": 1} extra`)
	_, err := r.JSON()
	assert.ErrorIs(t, err, errors.ErrJSONDecode)
}

func TestJSONInto(t *testing.T) {
	r := newBodyResponse("application/json", `{"count": 3, "tags": ["a", "b"]}`)
	var v struct {
		Count int      `json:"count"`
		Tags  []string `json:"tags"`
	}
	require.NoError(t, r.JSONInto(&v))
	assert.Equal(t, 3, v.Count)
	assert.Equal(t, []string{"a", "b"}, v.Tags)
}

func TestJSONPath(t *testing.T) {
	r := newBodyResponse("application/json", `{"items": [{"name": "a"}, {"name": "b"}]}`)
	got, err := r.JSONPath("items.1.name")
	require.NoError(t, err)
	assert.Equal(t, "b", got.String())

	missing, err := r.JSONPath("items.9.name")
	require.NoError(t, err)
	assert.False(t, missing.Exists())
}

func TestJSONPathInvalidBody(t *testing.T) {
	r := newBodyResponse("application/json", `not json`)
	_, err := r.JSONPath("a")
	assert.ErrorIs(t, err, errors.ErrJSONDecode)
}

func TestTextDecodesCharset(t *testing.T) {
	// "héllo" in latin-1
	r := newBodyResponse("text/plain; charset=iso-8859-1", "h\xe9llo")
	text, err := r.Text()
	require.NoError(t, err)
	assert.Equal(t, "héllo", text)
}

func TestTextUnknownCharsetFallsBack(t *testing.T) {
	r := newBodyResponse("text/plain; charset=no-such-charset", "plain ascii")
	text, err := r.Text()
	require.NoError(t, err)
	assert.Equal(t, "plain ascii", text)
}

func TestTextInvalidUTF8IsLossy(t *testing.T) {
	r := newBodyResponse("text/plain", "ok \xff\xfe end")
	text, err := r.Text()
	require.NoError(t, err)
	assert.Contains(t, text, "�")
	assert.Contains(t, text, "end")
}

func TestCleanupFiresOnBuffer(t *testing.T) {
	r := newBodyResponse("", "data")
	fired := 0
	r.SetCleanup(func() { fired++ })
	_, err := r.Content()
	require.NoError(t, err)
	assert.Equal(t, 1, fired)

	// registering after the body is done fires immediately
	r.SetCleanup(func() { fired++ })
	assert.Equal(t, 2, fired)
}

func TestCleanupFiresOnStreamExhaustion(t *testing.T) {
	r := newBodyResponse("", "0123456789")
	fired := false
	r.SetCleanup(func() { fired = true })

	it, err := r.IterContent(4)
	require.NoError(t, err)
	for {
		if _, err := it.Next(); err == io.EOF {
			break
		}
	}
	assert.True(t, fired)
}

func TestCleanupFiresOnClose(t *testing.T) {
	r := newBodyResponse("", "0123456789")
	fired := false
	r.SetCleanup(func() { fired = true })
	require.NoError(t, r.CloseBody())
	assert.True(t, fired)
}

func TestResponseStatusHelpers(t *testing.T) {
	h := http.Header{}
	h.Set("Location", "/next")
	r := &Response{StatusCode: 302, Header: h, URL: "http://a.test/x"}
	assert.True(t, r.Ok())
	assert.True(t, r.IsRedirect())
	assert.False(t, r.IsPermanentRedirect())
	assert.Equal(t, "Found", r.Reason())
	assert.NoError(t, r.RaiseForStatus())

	r = &Response{StatusCode: 503, Header: http.Header{}, URL: "http://a.test/x"}
	assert.False(t, r.Ok())
	err := r.RaiseForStatus()
	require.ErrorIs(t, err, errors.ErrHTTP)
	e, _ := errors.As(err)
	assert.Equal(t, 503, e.Status)
}
