package netpool

import (
	"io"
	"log"
	"net"
	"sync"
	"sync/atomic"
	"time"
)

// Conn is a pooled connection borrowed by exactly one in-flight request.
// Return it with [Conn.Release]; a Release with healthy=false closes the
// underlying connection instead of parking it idle.
type Conn struct {
	conn      net.Conn
	pool      *Pool
	isClosed  atomic.Bool
	lastIdle  time.Time
	onClose   func()
	closeOnce sync.Once

	// ID is a process-unique counter, handy for observing reuse.
	ID uint64
	// Reused is true when the connection came from the idle set rather
	// than a fresh dial.
	Reused bool
}

var connSeq atomic.Uint64

func (c *Conn) Healthy() bool { return !c.isClosed.Load() }

// MarkUnhealthy flags the connection so it is discarded on release even if
// the raw conn has not errored yet (server-requested close, un-drained body).
func (c *Conn) MarkUnhealthy() { c.isClosed.Store(true) }

func (c *Conn) Raw() net.Conn { return c.conn }

// OnClose registers f to run once when the connection is closed, whichever
// path closes it (read/write error, unhealthy release, TTL eviction, pool
// shutdown). Callers attach state tied to the connection's lifetime here.
func (c *Conn) OnClose(f func()) { c.onClose = f }

func (c *Conn) Write(p []byte) (n int, err error) {
	n, err = c.conn.Write(p)
	if err != nil {
		if err != io.EOF {
			log.Printf("netpool: error on write. %v\n", err)
		}
		c.Close()
	}
	return
}

func (c *Conn) Read(p []byte) (n int, err error) {
	nb, err := c.conn.Read(p)
	if err != nil {
		if err != io.EOF && err != net.ErrClosed {
			log.Printf("netpool: error on read. %v\n", err)
		}
		c.Close()
	}
	return nb, err
}

func (c *Conn) Close() error {
	c.isClosed.Store(true)
	c.closeOnce.Do(func() {
		if c.onClose != nil {
			c.onClose()
		}
	})
	return c.conn.Close()
}

// Release hands the connection back to its pool. healthy=false (or a
// previously observed error) closes it; the per-key ticket is returned
// either way.
func (c *Conn) Release(healthy bool) {
	if !healthy {
		c.MarkUnhealthy()
	}
	c.pool.release(c)
}
