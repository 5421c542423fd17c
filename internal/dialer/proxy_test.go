package dialer

import (
	"bufio"
	"io"
	"net"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnectTunnel(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	got := make(chan string, 1)
	go func() {
		br := bufio.NewReader(server)
		var sb strings.Builder
		for {
			line, err := br.ReadString('\n')
			if err != nil {
				got <- sb.String()
				return
			}
			sb.WriteString(line)
			if line == "\r\n" {
				break
			}
		}
		got <- sb.String()
		io.WriteString(server, "HTTP/1.1 200 Connection established\r\n\r\n")
	}()

	u := url.UserPassword("proxyuser", "proxypass")
	err := connectTunnel(client, "203.0.113.9:443", "origin.test:443", u)
	require.NoError(t, err)

	wire := <-got
	assert.True(t, strings.HasPrefix(wire, "CONNECT 203.0.113.9:443 HTTP/1.1\r\n"))
	assert.Contains(t, wire, "Host: origin.test:443\r\n")
	assert.Contains(t, wire, "Proxy-Authorization: Basic ")
}

func TestConnectTunnelRefused(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	go func() {
		br := bufio.NewReader(server)
		for {
			line, err := br.ReadString('\n')
			if err != nil || line == "\r\n" {
				break
			}
		}
		io.WriteString(server, "HTTP/1.1 407 Proxy Authentication Required\r\n\r\n")
	}()

	err := connectTunnel(client, "203.0.113.9:443", "origin.test:443", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "refused tunnel")
}

func TestProxyConfigClone(t *testing.T) {
	var nilCfg *ProxyConfig
	assert.Nil(t, nilCfg.Clone())

	cfg := &ProxyConfig{ResolveLocally: true, ResolveConfig: &ResolveConfig{Network: "ip4"}}
	c := cfg.Clone()
	assert.True(t, c.ResolveLocally)
	assert.NotSame(t, cfg.ResolveConfig, c.ResolveConfig)
	assert.Equal(t, "ip4", c.ResolveConfig.Network)
}
