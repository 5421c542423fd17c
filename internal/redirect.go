package internal

import (
	"context"
	stderrors "errors"

	"github.com/rapidhttp/go-rapidhttp/internal/errors"
	"github.com/rapidhttp/go-rapidhttp/internal/model"
	"github.com/rapidhttp/go-rapidhttp/internal/transport"
)

// redirect responses up to this size are drained so their connection can go
// back to the pool instead of being closed
const maxRedirectDrain = 64 << 10

// followRedirects wraps a single-exchange handler with the redirect and
// retry policy: resolve Location hops up to the configured cap, downgrade
// methods the way clients conventionally do, strip credentials when the
// host changes, and retry once on a stale pooled connection for idempotent
// methods only.
func (c *Client) followRedirects(next Handler) Handler {
	return func(ctx context.Context, pr *PreparedRequest) (*model.Response, error) {
		var hops []errors.Hop
		origHost := pr.U.Hostname()
		cur := pr
		for {
			c.injectCookies(cur)
			resp, err := sendWithRetry(ctx, next, cur)
			if err != nil {
				return nil, err
			}
			if c.Jar != nil {
				c.Jar.StoreFrom(cur.U, resp.Header)
			}
			resp.Redirects = len(hops)
			if !cur.FollowRedirects || !resp.IsRedirect() {
				return resp, nil
			}
			target, perr := cur.U.Parse(resp.Header.Get("Location"))
			if perr != nil {
				// unresolvable Location, hand the 3xx back as-is
				return resp, nil
			}
			limit := cur.RedirectLimit
			if limit == 0 {
				limit = DefaultMaxRedirects
			}
			if len(hops) >= limit {
				discard(resp)
				return nil, &errors.Error{
					Kind: errors.KindTooManyRedirects, Hops: hops,
					Method: pr.Request.Method, URL: pr.U.String(),
				}
			}
			hops = append(hops, errors.Hop{URL: target.String(), Status: resp.StatusCode})
			discard(resp)

			nreq := redirectedRequest(cur, target.String(), resp.StatusCode, origHost == target.Hostname())
			npr, err := nreq.Prepare()
			if err != nil {
				return nil, err
			}
			cur = npr
		}
	}
}

func (c *Client) injectCookies(pr *PreparedRequest) {
	if c.Jar == nil || pr.Header.Get("Cookie") != "" {
		return
	}
	if ch := c.Jar.CookieHeader(pr.U); ch != "" {
		pr.Header.Set("Cookie", ch)
	}
}

// sendWithRetry performs one exchange, retrying exactly once when a reused
// connection turned out stale (reset before any response byte) and the
// method is safe to reissue. Non-idempotent methods surface the failure
// immediately: the server may have partially executed them.
func sendWithRetry(ctx context.Context, next Handler, pr *PreparedRequest) (*model.Response, error) {
	resp, err := next(ctx, pr)
	if err == nil {
		return resp, nil
	}
	if !idempotent(pr.Request.Method) {
		return nil, err
	}
	var stale *transport.StaleConnError
	if !stderrors.As(err, &stale) {
		return nil, err
	}
	return next(ctx, pr)
}

func idempotent(method string) bool {
	return method == "GET" || method == "HEAD" || method == "OPTIONS"
}

// redirectedRequest derives the follow-up request for one hop. A 307/308
// preserves method and body; a 301/302 after POST and any 303 downgrade to
// GET with the body dropped.
func redirectedRequest(cur *PreparedRequest, target string, status int, sameHost bool) *model.Request {
	method := cur.Request.Method
	dropBody := false
	switch status {
	case 303:
		if method != "HEAD" {
			method = "GET"
		}
		dropBody = true
	case 301, 302:
		if method == "POST" {
			method = "GET"
			dropBody = true
		}
	}

	nr := &model.Request{
		Method: method,
		URL:    target,
		Header: cur.Header.Clone(),

		Timeout:        cur.Request.Timeout,
		AllowRedirects: cur.Request.AllowRedirects,
		MaxRedirects:   cur.Request.MaxRedirects,
		Verify:         cur.Request.Verify,
		Proxy:          cur.Request.Proxy,
		Auth:           cur.Request.Auth,
	}
	if !dropBody {
		nr.Body = cur.Request.Body
		nr.Form = cur.Request.Form
		nr.JSON = cur.Request.JSON
	} else {
		nr.Header.Del("Content-Type")
	}
	// the jar re-populates Cookie per hop with the target's cookies
	nr.Header.Del("Cookie")
	if !sameHost {
		nr.Header.Del("Authorization")
		nr.Auth = nil
	}
	return nr
}

// discard consumes a small framed body so the connection can be reused,
// then closes the response.
func discard(resp *model.Response) {
	if resp.ContentLength >= 0 && resp.ContentLength <= maxRedirectDrain {
		resp.Content()
	}
	resp.CloseBody()
}
