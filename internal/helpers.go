package internal

import "github.com/rapidhttp/go-rapidhttp/internal/dialer"

// DisableH2 drops "h2" from the core dialer's ALPN offer, pinning the
// client to HTTP/1.1.
func (c *Client) DisableH2() (ok bool) {
	c.UseDialer(func(d dialer.Dialer) dialer.Dialer {
		cd := d
		for cd != nil {
			if d, isCore := cd.(*dialer.CoreDialer); isCore {
				np := d.TLSConfig.NextProtos
				for i := range np {
					if np[i] == "h2" {
						d.TLSConfig.NextProtos = append(np[:i], np[i+1:]...)
						ok = true
						break
					}
				}
			}
			cd = cd.Unwrap()
		}
		return d
	})
	return
}
