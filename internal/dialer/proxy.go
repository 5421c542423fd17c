package dialer

import (
	"bufio"
	"context"
	"crypto/tls"
	"encoding/base64"
	stderrors "errors"
	"fmt"
	"math/rand"
	"net"
	"net/textproto"
	"net/url"
	"strings"

	"github.com/rapidhttp/go-rapidhttp/internal/errors"
	"github.com/rapidhttp/go-rapidhttp/internal/model"
)

type ProxyConfig struct {
	TLSConfig      *tls.Config // the [*tls.Config] to use with the proxy; nil falls back to *[CoreDialer.TLSConfig]
	ResolveLocally bool
	ResolveConfig  *ResolveConfig // overrides the resolver config for the proxy dial
}

func (c *ProxyConfig) Clone() *ProxyConfig {
	if c == nil {
		return nil
	}
	return &ProxyConfig{
		TLSConfig:      c.TLSConfig.Clone(),
		ResolveLocally: c.ResolveLocally,
		ResolveConfig:  c.ResolveConfig.Clone(),
	}
}

func (d *CoreDialer) tryDialProxy(ctx context.Context, r *model.PreparedRequest) (net.Conn, error) {
	proxy := r.Request.Proxy
	if proxy == "" && d.GetProxy != nil {
		p, perr := d.GetProxy(ctx, r.Request)
		if perr != nil {
			return nil, perr
		}
		proxy = p
	}
	if proxy == "" {
		return nil, nil
	}
	proxyU, perr := url.Parse(proxy)
	if perr != nil {
		return nil, perr
	}
	return d.DialContextOverProxy(ctx, r.U, proxyU)
}

// DialContextOverProxy creates a connection to remote tunneled through an
// http/https proxy with CONNECT. This part of logic may be reused when
// wrapping *[CoreDialer] into a new custom [Dialer].
func (d *CoreDialer) DialContextOverProxy(ctx context.Context, remote, proxy *url.URL) (net.Conn, error) {
	if proxy.Scheme != "http" && proxy.Scheme != "https" { // TODO: socks
		return nil, stderrors.New("unsupported proxy scheme:" + proxy.Scheme)
	}
	hp := proxy.Host
	if proxy.Port() == "" {
		hp = net.JoinHostPort(proxy.Hostname(), schemes[proxy.Scheme])
	}

	conn, err := zeroDialer.DialContext(ctx, "tcp", hp)
	if err != nil {
		return nil, err
	}

	if proxy.Scheme == "https" {
		tlsCfg := d.proxyTLSConfig()
		c := tls.Client(conn, tlsCfg)
		if err := c.HandshakeContext(ctx); err != nil {
			conn.Close()
			return nil, errors.New(errors.KindTLS, err)
		}
		conn = c
	}

	addr, port := remote.Host, schemes[remote.Scheme]
	if add, prt, err := net.SplitHostPort(addr); err == nil {
		addr, port = add, prt
	}

	if d.ProxyConfig != nil && d.ProxyConfig.ResolveLocally {
		dnsCfg := d.ProxyConfig.ResolveConfig.Merge(d.ResolveConfig)
		if res, ok := dnsCfg.StaticHosts[addr]; ok {
			addr = res
		} else {
			ips, err := d.lookup(ctx, dnsCfg, addr)
			if err != nil {
				conn.Close()
				return nil, err
			}
			addr = ips[rand.Intn(len(ips))].String()
		}
	}

	if err := connectTunnel(conn, net.JoinHostPort(addr, port), remote.Host, proxy.User); err != nil {
		conn.Close()
		return nil, err
	}
	return conn, nil
}

func (d *CoreDialer) proxyTLSConfig() *tls.Config {
	if d.ProxyConfig != nil && d.ProxyConfig.TLSConfig != nil {
		return d.ProxyConfig.TLSConfig
	}
	cfg := d.TLSConfig.Clone()
	if cfg == nil {
		cfg = &tls.Config{}
	}
	cfg.NextProtos = nil // the tunnel itself never speaks h2
	return cfg
}

// connectTunnel issues the CONNECT handshake over an established proxy
// connection.
func connectTunnel(conn net.Conn, target, host string, user *url.Userinfo) error {
	var b strings.Builder
	b.WriteString("CONNECT " + target + " HTTP/1.1\r\n")
	b.WriteString("Host: " + host + "\r\n")
	if user != nil {
		if auth := user.String(); auth != "" {
			b.WriteString("Proxy-Authorization: Basic " + base64.StdEncoding.EncodeToString([]byte(auth)) + "\r\n")
		}
	}
	b.WriteString("\r\n")
	if _, err := conn.Write([]byte(b.String())); err != nil {
		return err
	}
	tp := textproto.NewReader(bufio.NewReader(conn))
	line, err := tp.ReadLine()
	if err != nil {
		return err
	}
	if !strings.Contains(line, " 200") {
		return fmt.Errorf("proxy server refused tunnel: %s", line)
	}
	// discard response headers
	if _, err := tp.ReadMIMEHeader(); err != nil {
		return err
	}
	return nil
}
