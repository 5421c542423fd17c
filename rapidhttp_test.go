package rapidhttp_test

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	rapidhttp "github.com/rapidhttp/go-rapidhttp"
)

func TestModuleLevelVerbs(t *testing.T) {
	var lastMethod atomic.Value
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		lastMethod.Store(r.Method)
		io.WriteString(w, "ok")
	}))
	defer ts.Close()

	ctx := context.Background()
	calls := []struct {
		verb string
		do   func() (*rapidhttp.Response, error)
	}{
		{"GET", func() (*rapidhttp.Response, error) { return rapidhttp.Get(ctx, ts.URL) }},
		{"POST", func() (*rapidhttp.Response, error) { return rapidhttp.Post(ctx, ts.URL) }},
		{"PUT", func() (*rapidhttp.Response, error) { return rapidhttp.Put(ctx, ts.URL) }},
		{"PATCH", func() (*rapidhttp.Response, error) { return rapidhttp.Patch(ctx, ts.URL) }},
		{"DELETE", func() (*rapidhttp.Response, error) { return rapidhttp.Delete(ctx, ts.URL) }},
		{"HEAD", func() (*rapidhttp.Response, error) { return rapidhttp.Head(ctx, ts.URL) }},
		{"OPTIONS", func() (*rapidhttp.Response, error) { return rapidhttp.Options(ctx, ts.URL) }},
	}
	for _, c := range calls {
		resp, err := c.do()
		require.NoError(t, err, c.verb)
		assert.Equal(t, 200, resp.StatusCode)
		require.NoError(t, resp.CloseBody())
		assert.Equal(t, c.verb, lastMethod.Load(), c.verb)
	}
}

func TestModuleLevelCallsDoNotShareConnections(t *testing.T) {
	var conns atomic.Int32
	ts := httptest.NewUnstartedServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "ok")
	}))
	ts.Config.ConnState = func(c net.Conn, s http.ConnState) {
		if s == http.StateNew {
			conns.Add(1)
		}
	}
	ts.Start()
	defer ts.Close()

	for i := 0; i < 2; i++ {
		resp, err := rapidhttp.Get(context.Background(), ts.URL)
		require.NoError(t, err)
		_, err = resp.Content()
		require.NoError(t, err)
	}
	assert.Equal(t, int32(2), conns.Load())
}

func TestErrorSurface(t *testing.T) {
	_, err := rapidhttp.Get(context.Background(), "not a url")
	require.ErrorIs(t, err, rapidhttp.ErrURLRequired)

	e, ok := rapidhttp.AsError(err)
	require.True(t, ok)
	assert.Equal(t, rapidhttp.KindURLRequired, e.Kind)
}

func TestSessionExposedClient(t *testing.T) {
	s := rapidhttp.NewSession(rapidhttp.WithSessionHeader("X-App", "demo"))
	defer s.Close()
	assert.NotNil(t, s.Client())
	assert.Equal(t, "demo", s.Headers.Get("X-App"))
}
