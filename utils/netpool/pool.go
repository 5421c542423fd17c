package netpool

import (
	"context"
	"errors"
	"net"
	"sync"
	"time"
)

// ErrAcquireTimeout is returned when no connection ticket frees up within
// the acquire timeout.
var ErrAcquireTimeout = errors.New("netpool: acquire timed out")

// ErrPoolClosed is returned on Acquire after Close.
var ErrPoolClosed = errors.New("netpool: pool is closed")

// Pool holds connections for a single key. The ticket channel bounds live
// connections exactly: a ticket is taken before dialing or reusing and
// returned on release, so the cap is never transiently exceeded.
type Pool struct {
	mu         sync.Mutex
	idle       []*Conn
	connTicket chan struct{}

	idleTTL time.Duration
	closed  bool
}

func NewPool(maxConn uint, idleTTL time.Duration) *Pool {
	return &Pool{
		connTicket: make(chan struct{}, maxConn),
		idleTTL:    idleTTL,
	}
}

// Acquire returns an idle connection for this pool, dialing a new one when
// none is parked and the cap allows it. With the cap exhausted it waits up
// to timeout (or ctx expiry) for a release. Stale and broken idle
// connections are evicted here, on the acquire path.
func (p *Pool) Acquire(ctx context.Context, timeout time.Duration, dial func(ctx context.Context) (net.Conn, error)) (*Conn, error) {
	if err := p.takeTicket(ctx, timeout); err != nil {
		return nil, err
	}
	for {
		c := p.popIdle()
		if c == nil {
			break
		}
		if p.idleTTL != 0 && time.Since(c.lastIdle) > p.idleTTL {
			c.Close()
			continue
		}
		if c.Healthy() {
			c.Reused = true
			return c, nil
		}
	}
	raw, err := dial(ctx)
	if err != nil {
		<-p.connTicket // dial failed, free the slot
		return nil, err
	}
	return &Conn{conn: raw, pool: p, ID: connSeq.Add(1)}, nil
}

func (p *Pool) takeTicket(ctx context.Context, timeout time.Duration) error {
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		return ErrPoolClosed
	}
	select {
	case p.connTicket <- struct{}{}:
		return nil
	default:
	}
	var wait <-chan time.Time
	if timeout != 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		wait = t.C
	}
	select {
	case p.connTicket <- struct{}{}:
		return nil
	case <-wait:
		return ErrAcquireTimeout
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Pool) popIdle() *Conn {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.idle) == 0 {
		return nil
	}
	c := p.idle[0]
	p.idle = p.idle[1:]
	return c
}

func (p *Pool) release(c *Conn) {
	<-p.connTicket
	p.mu.Lock()
	if c.Healthy() && !p.closed {
		c.lastIdle = time.Now()
		p.idle = append(p.idle, c)
		p.mu.Unlock()
		return
	}
	p.mu.Unlock()
	c.Close()
}

// Close evicts all idle connections and fails subsequent acquires.
// Borrowed connections are closed when released.
func (p *Pool) Close() {
	p.mu.Lock()
	p.closed = true
	idle := p.idle
	p.idle = nil
	p.mu.Unlock()
	for _, c := range idle {
		c.Close()
	}
}
