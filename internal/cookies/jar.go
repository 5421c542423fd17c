// package cookies is a small in-memory cookie store keyed by
// domain+path+name, with expiry. Expired entries are purged lazily on read
// rather than by a background sweep.
package cookies

import (
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"
)

type entry struct {
	Name, Value string
	Domain      string
	HostOnly    bool
	Path        string
	Secure      bool
	Expires     time.Time // zero means session cookie

	// created orders equal-length paths in the Cookie header, RFC 6265
	// §5.4. Updating a cookie keeps its original creation order.
	created uint64
}

func (e *entry) expired(now time.Time) bool {
	return !e.Expires.IsZero() && !e.Expires.After(now)
}

type Jar struct {
	mu      sync.Mutex
	entries map[string]entry
	seq     uint64
}

func New() *Jar {
	return &Jar{entries: map[string]entry{}}
}

// StoreFrom records every Set-Cookie in h against u. Parsing is delegated
// to net/http's Set-Cookie reader.
func (j *Jar) StoreFrom(u *url.URL, h http.Header) {
	cs := (&http.Response{Header: h}).Cookies()
	if len(cs) == 0 {
		return
	}
	now := time.Now()
	j.mu.Lock()
	defer j.mu.Unlock()
	for _, c := range cs {
		e := entry{
			Name:   c.Name,
			Value:  c.Value,
			Secure: c.Secure,
			Path:   c.Path,
		}
		if e.Path == "" || !strings.HasPrefix(e.Path, "/") {
			e.Path = defaultPath(u.Path)
		}
		if c.Domain != "" {
			e.Domain = strings.ToLower(strings.TrimPrefix(c.Domain, "."))
		} else {
			e.Domain = strings.ToLower(u.Hostname())
			e.HostOnly = true
		}
		switch {
		case c.MaxAge < 0:
			delete(j.entries, e.key())
			continue
		case c.MaxAge > 0:
			e.Expires = now.Add(time.Duration(c.MaxAge) * time.Second)
		case !c.Expires.IsZero():
			if !c.Expires.After(now) {
				delete(j.entries, e.key())
				continue
			}
			e.Expires = c.Expires
		}
		if old, ok := j.entries[e.key()]; ok {
			e.created = old.created
		} else {
			j.seq++
			e.created = j.seq
		}
		j.entries[e.key()] = e
	}
}

func (e *entry) key() string {
	return e.Domain + ";" + e.Path + ";" + e.Name
}

// CookieHeader renders the Cookie header value for a request to u, purging
// expired entries as it goes. Empty when nothing matches.
func (j *Jar) CookieHeader(u *url.URL) string {
	host := strings.ToLower(u.Hostname())
	path := u.Path
	if path == "" {
		path = "/"
	}
	secure := u.Scheme == "https"
	now := time.Now()

	j.mu.Lock()
	var matched []entry
	for k, e := range j.entries {
		if e.expired(now) {
			delete(j.entries, k)
			continue
		}
		if e.Secure && !secure {
			continue
		}
		if !domainMatch(host, e) || !pathMatch(path, e.Path) {
			continue
		}
		matched = append(matched, e)
	}
	j.mu.Unlock()

	if len(matched) == 0 {
		return ""
	}
	// longer paths first, earlier-created first among equals, per RFC 6265
	sort.Slice(matched, func(i, k int) bool {
		if len(matched[i].Path) != len(matched[k].Path) {
			return len(matched[i].Path) > len(matched[k].Path)
		}
		return matched[i].created < matched[k].created
	})
	var b strings.Builder
	for i, e := range matched {
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString(e.Name)
		b.WriteByte('=')
		b.WriteString(e.Value)
	}
	return b.String()
}

// Len reports the number of live cookies.
func (j *Jar) Len() int {
	now := time.Now()
	j.mu.Lock()
	defer j.mu.Unlock()
	n := 0
	for _, e := range j.entries {
		if !e.expired(now) {
			n++
		}
	}
	return n
}

func domainMatch(host string, e entry) bool {
	if host == e.Domain {
		return true
	}
	return !e.HostOnly && strings.HasSuffix(host, "."+e.Domain)
}

func pathMatch(reqPath, cookiePath string) bool {
	if reqPath == cookiePath {
		return true
	}
	if !strings.HasPrefix(reqPath, cookiePath) {
		return false
	}
	return strings.HasSuffix(cookiePath, "/") || reqPath[len(cookiePath)] == '/'
}

func defaultPath(p string) string {
	i := strings.LastIndex(p, "/")
	if i <= 0 {
		return "/"
	}
	return p[:i]
}
