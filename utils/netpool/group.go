package netpool

import (
	"context"
	"net"
	"sync"
	"time"
)

// Key identifies interchangeable connections: everything dialed under one
// key is protocol- and security-equivalent.
type Key struct {
	Scheme string
	Host   string
	Port   string
}

func (k Key) HostPort() string { return net.JoinHostPort(k.Host, k.Port) }

// Group is a set of per-key pools sharing one configuration. Pool creation
// is the only cross-key synchronization; acquire/release contend per key
// only.
type Group struct {
	sync.RWMutex
	pools map[Key]*Pool

	maxConnsPerKey uint
	idleTTL        time.Duration
	acquireTimeout time.Duration
}

func NewGroup(maxConnsPerKey uint, idleTTL, acquireTimeout time.Duration) *Group {
	return &Group{
		pools:          map[Key]*Pool{},
		maxConnsPerKey: maxConnsPerKey,
		idleTTL:        idleTTL,
		acquireTimeout: acquireTimeout,
	}
}

// NewEmpty returns a fresh group with the same configuration and no
// connections.
func (g *Group) NewEmpty() *Group {
	return NewGroup(g.maxConnsPerKey, g.idleTTL, g.acquireTimeout)
}

func (g *Group) Acquire(ctx context.Context, key Key, dial func(ctx context.Context) (net.Conn, error)) (*Conn, error) {
	g.RLock()
	p, ok := g.pools[key]
	g.RUnlock()
	if ok {
		return p.Acquire(ctx, g.acquireTimeout, dial)
	}
	g.Lock()
	if p, ok = g.pools[key]; !ok {
		p = NewPool(g.maxConnsPerKey, g.idleTTL)
		g.pools[key] = p
	}
	g.Unlock()
	return p.Acquire(ctx, g.acquireTimeout, dial)
}

// Close closes every pool in the group.
func (g *Group) Close() {
	g.Lock()
	pools := g.pools
	g.pools = map[Key]*Pool{}
	g.Unlock()
	for _, p := range pools {
		p.Close()
	}
}
