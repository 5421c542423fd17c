package transport

import (
	"context"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/http2"

	"github.com/rapidhttp/go-rapidhttp/internal/model"
)

func TestH2RoundTrip(t *testing.T) {
	srv := &http2.Server{}
	tr := NewH2()
	conn, server, pool := pipePair(t)
	defer pool.Close()
	go srv.ServeConn(server, &http2.ServeConnOpts{
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "GET", r.Method)
			io.WriteString(w, "over h2")
		}),
	})

	pr := prepare(t, &model.Request{Method: "GET", URL: "http://a.test/"})
	resp := &model.Response{}
	require.NoError(t, tr.RoundTrip(context.Background(), conn, pr, resp))

	assert.Equal(t, "HTTP/2.0", resp.Proto)
	assert.Equal(t, 200, resp.StatusCode)
	body, err := resp.Content()
	require.NoError(t, err)
	assert.Equal(t, "over h2", string(body))
}

func TestH2ReusesClientConn(t *testing.T) {
	srv := &http2.Server{}
	tr := NewH2()
	conn, server, pool := pipePair(t)
	defer pool.Close()
	go srv.ServeConn(server, &http2.ServeConnOpts{
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(204)
		}),
	})

	for i := 0; i < 2; i++ {
		pr := prepare(t, &model.Request{Method: "GET", URL: "http://a.test/"})
		resp := &model.Response{}
		require.NoError(t, tr.RoundTrip(context.Background(), conn, pr, resp))
		require.NoError(t, resp.CloseBody())

		// the body release parked the conn; borrow it again
		again, err := pool.Acquire(context.Background(), 0, failDial)
		require.NoError(t, err)
		assert.Equal(t, conn.ID, again.ID)
		conn = again
	}

	tr.mu.Lock()
	defer tr.mu.Unlock()
	assert.Len(t, tr.conns, 1)
}

func TestH2EvictsCacheWhenConnCloses(t *testing.T) {
	srv := &http2.Server{}
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(204)
	})
	tr := NewH2()

	for i := 0; i < 3; i++ {
		conn, server, pool := pipePair(t)
		go srv.ServeConn(server, &http2.ServeConnOpts{Handler: h})

		pr := prepare(t, &model.Request{Method: "GET", URL: "http://a.test/"})
		resp := &model.Response{}
		require.NoError(t, tr.RoundTrip(context.Background(), conn, pr, resp))
		require.NoError(t, resp.CloseBody())

		// shutting the pool down closes the parked conn; the cached client
		// conn must not outlive it
		pool.Close()
	}

	tr.mu.Lock()
	defer tr.mu.Unlock()
	assert.Empty(t, tr.conns)
}
