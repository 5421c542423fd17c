package dialer

import (
	"context"
	"crypto/tls"
	stderrors "errors"
	"net"

	"github.com/rapidhttp/go-rapidhttp/internal/errors"
	"github.com/rapidhttp/go-rapidhttp/internal/model"
	"github.com/rapidhttp/go-rapidhttp/utils/netpool"
)

var schemes = map[string]string{
	"http": "80", "https": "443",
}

var zeroDialer net.Dialer
var customDnsDialer = net.Dialer{
	Resolver: &customServerResolver,
}

// PoolKey computes the (scheme, host, port) identity connections are pooled
// under.
func PoolKey(r *model.PreparedRequest) netpool.Key {
	addr, port := r.U.Host, schemes[r.U.Scheme]
	if add, prt, err := net.SplitHostPort(addr); err == nil {
		addr, port = add, prt
	}
	return netpool.Key{Scheme: r.U.Scheme, Host: addr, Port: port}
}

func (d *CoreDialer) Dial(ctx context.Context, r *model.PreparedRequest) (*netpool.Conn, error) {
	key := PoolKey(r)
	conn, err := d.ConnPool.Acquire(ctx, key, func(ctx context.Context) (net.Conn, error) {
		return d.dialNew(ctx, r, key)
	})
	if err != nil {
		return nil, classifyDial(err)
	}
	return conn, nil
}

func (d *CoreDialer) dialNew(ctx context.Context, r *model.PreparedRequest, key netpool.Key) (net.Conn, error) {
	timeout := r.Request.Timeout.Connect
	if timeout == 0 {
		timeout = d.ConnectTimeout
	}
	if timeout != 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	conn, err := d.tryDialProxy(ctx, r)
	if err != nil {
		return nil, err
	}
	if conn == nil {
		// net.Dialer can handle the current DNS configurations
		network, dialer, dialctx, dst := "tcp", &zeroDialer, ctx, key.HostPort()

		cfg := d.ResolveConfig
		if cfg != nil {
			if cfg.Network == "ip4" {
				network = "tcp4"
			} else if cfg.Network == "ip6" {
				network = "tcp6"
			}
			if static, ok := cfg.StaticHosts[key.Host]; ok {
				dst = net.JoinHostPort(static, key.Port)
			}
			if dns := cfg.CustomDNSServer; dns != "" {
				dialctx = dnsServerCtx{dialctx, dns}
				dialer = &customDnsDialer
			}
		}

		conn, err = dialer.DialContext(dialctx, network, dst)
		if err != nil {
			return nil, err
		}
	}
	if r.U.Scheme == "https" {
		config := d.TLSConfig.Clone()
		if config == nil {
			config = &tls.Config{}
		}
		config.ServerName = r.U.Hostname()
		if !r.VerifyTLS {
			config.InsecureSkipVerify = true
		}
		c := tls.Client(conn, config)
		if err := c.HandshakeContext(ctx); err != nil {
			conn.Close()
			if isTimeout(err) {
				return nil, errors.New(errors.KindConnectTimeout, err)
			}
			return nil, errors.New(errors.KindTLS, err)
		}
		conn = c
	}
	return conn, nil
}

// Negotiated reports the ALPN protocol of a dialed connection, "" for
// plaintext.
func Negotiated(c *netpool.Conn) string {
	if tc, ok := c.Raw().(*tls.Conn); ok {
		return tc.ConnectionState().NegotiatedProtocol
	}
	return ""
}

func classifyDial(err error) error {
	if _, ok := errors.As(err); ok {
		return err
	}
	if stderrors.Is(err, netpool.ErrAcquireTimeout) {
		return errors.New(errors.KindPoolTimeout, err)
	}
	var dnsErr *net.DNSError
	if stderrors.As(err, &dnsErr) {
		return errors.New(errors.KindDNS, err)
	}
	if isTimeout(err) {
		return errors.New(errors.KindConnectTimeout, err)
	}
	return errors.New(errors.KindConnection, err)
}

func isTimeout(err error) bool {
	if stderrors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return stderrors.As(err, &ne) && ne.Timeout()
}
