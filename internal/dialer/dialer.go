// Dialers handle pretty much everything related to the actual connection:
// resolving, per-request proxies, TCP and TLS establishment, and checkout
// from the connection pool.
package dialer

import (
	"context"
	"crypto/tls"
	"time"

	"github.com/rapidhttp/go-rapidhttp/internal/model"
	"github.com/rapidhttp/go-rapidhttp/utils/netpool"
)

type Dialer interface {
	// Dial returns a pooled connection ready to carry r. The negotiated
	// protocol is visible on the connection's TLS state.
	Dial(ctx context.Context, r *model.PreparedRequest) (*netpool.Conn, error)
	Unwrap() Dialer
}

type CoreDialer struct {
	ResolveConfig *ResolveConfig

	TLSConfig *tls.Config // the config to use

	ConnPool       *netpool.Group
	GetProxy       func(ctx context.Context, r *model.Request) (string, error)
	ProxyConfig    *ProxyConfig
	ConnectTimeout time.Duration // fallback when the request carries none
}

func NewCoreDialer() *CoreDialer {
	return &CoreDialer{
		TLSConfig: &tls.Config{
			NextProtos: []string{"h2", "http/1.1"},
		},
		ConnPool:       netpool.NewGroup(100, 90*time.Second, 30*time.Second),
		ProxyConfig:    &ProxyConfig{},
		ConnectTimeout: 30 * time.Second,
	}
}

func (d *CoreDialer) Clone() *CoreDialer {
	return &CoreDialer{
		ResolveConfig:  d.ResolveConfig.Clone(),
		TLSConfig:      d.TLSConfig.Clone(),
		ConnPool:       d.ConnPool.NewEmpty(),
		GetProxy:       d.GetProxy,
		ProxyConfig:    d.ProxyConfig.Clone(),
		ConnectTimeout: d.ConnectTimeout,
	}
}

func (d *CoreDialer) Unwrap() Dialer {
	return nil
}
