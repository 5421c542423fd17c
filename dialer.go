package rapidhttp

import (
	"github.com/rapidhttp/go-rapidhttp/internal/dialer"
)

type Dialer = dialer.Dialer
type CoreDialer = dialer.CoreDialer

type ProxyConfig = dialer.ProxyConfig
type ResolveConfig = dialer.ResolveConfig
