package cookies

import (
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustURL(t *testing.T, s string) *url.URL {
	t.Helper()
	u, err := url.Parse(s)
	require.NoError(t, err)
	return u
}

func headerWith(cookies ...string) http.Header {
	h := http.Header{}
	for _, c := range cookies {
		h.Add("Set-Cookie", c)
	}
	return h
}

func TestStoreAndSend(t *testing.T) {
	j := New()
	u := mustURL(t, "http://shop.test/cart")
	j.StoreFrom(u, headerWith("session=abc123; Path=/"))

	assert.Equal(t, "session=abc123", j.CookieHeader(u))
	assert.Equal(t, "session=abc123", j.CookieHeader(mustURL(t, "http://shop.test/other")))
	assert.Empty(t, j.CookieHeader(mustURL(t, "http://elsewhere.test/")))
}

func TestOverwriteSameKey(t *testing.T) {
	j := New()
	u := mustURL(t, "http://shop.test/")
	j.StoreFrom(u, headerWith("session=old; Path=/"))
	j.StoreFrom(u, headerWith("session=new; Path=/"))

	assert.Equal(t, "session=new", j.CookieHeader(u))
	assert.Equal(t, 1, j.Len())
}

func TestHostOnlyVsDomainCookie(t *testing.T) {
	j := New()
	u := mustURL(t, "http://app.shop.test/")
	j.StoreFrom(u, headerWith(
		"host_only=1; Path=/",
		"shared=1; Path=/; Domain=shop.test",
	))

	assert.Contains(t, j.CookieHeader(u), "host_only=1")
	assert.Contains(t, j.CookieHeader(u), "shared=1")

	other := mustURL(t, "http://api.shop.test/")
	got := j.CookieHeader(other)
	assert.NotContains(t, got, "host_only=1")
	assert.Contains(t, got, "shared=1")
}

func TestPathMatching(t *testing.T) {
	j := New()
	u := mustURL(t, "http://shop.test/admin/panel")
	j.StoreFrom(u, headerWith("admin_token=t; Path=/admin"))

	assert.Equal(t, "admin_token=t", j.CookieHeader(mustURL(t, "http://shop.test/admin")))
	assert.Equal(t, "admin_token=t", j.CookieHeader(mustURL(t, "http://shop.test/admin/users")))
	assert.Empty(t, j.CookieHeader(mustURL(t, "http://shop.test/administrator")))
	assert.Empty(t, j.CookieHeader(mustURL(t, "http://shop.test/")))
}

func TestLongerPathFirst(t *testing.T) {
	j := New()
	u := mustURL(t, "http://shop.test/a/b")
	j.StoreFrom(u, headerWith("outer=1; Path=/"))
	j.StoreFrom(u, headerWith("inner=2; Path=/a"))

	assert.Equal(t, "inner=2; outer=1", j.CookieHeader(u))
}

func TestEqualPathsKeepCreationOrder(t *testing.T) {
	j := New()
	u := mustURL(t, "http://shop.test/")
	j.StoreFrom(u, headerWith("first=1; Path=/"))
	j.StoreFrom(u, headerWith("second=2; Path=/"))
	j.StoreFrom(u, headerWith("third=3; Path=/"))
	assert.Equal(t, "first=1; second=2; third=3", j.CookieHeader(u))

	// updating a value keeps the cookie's original position
	j.StoreFrom(u, headerWith("second=22; Path=/"))
	assert.Equal(t, "first=1; second=22; third=3", j.CookieHeader(u))
}

func TestSecureCookieNeedsHTTPS(t *testing.T) {
	j := New()
	https := mustURL(t, "https://bank.test/")
	j.StoreFrom(https, headerWith("auth=tok; Path=/; Secure"))

	assert.Equal(t, "auth=tok", j.CookieHeader(https))
	assert.Empty(t, j.CookieHeader(mustURL(t, "http://bank.test/")))
}

func TestMaxAgeExpiry(t *testing.T) {
	j := New()
	u := mustURL(t, "http://shop.test/")

	// Max-Age=0 parses as an immediate delete, nothing stored
	j.StoreFrom(u, headerWith("gone=1; Path=/; Max-Age=0"))
	j.StoreFrom(u, headerWith("keep=1; Path=/; Max-Age=3600"))
	assert.Equal(t, "keep=1", j.CookieHeader(u))

	// a negative Max-Age deletes the stored cookie
	j.StoreFrom(u, headerWith("keep=1; Path=/; Max-Age=-1"))
	assert.Empty(t, j.CookieHeader(u))
}

func TestExpiresPurgedLazily(t *testing.T) {
	j := New()
	u := mustURL(t, "http://shop.test/")
	past := time.Now().Add(-time.Hour).UTC().Format(http.TimeFormat)
	j.StoreFrom(u, headerWith("fresh=1; Path=/", "stale=1; Path=/; Expires="+past))

	assert.Equal(t, "fresh=1", j.CookieHeader(u))
	assert.Equal(t, 1, j.Len())
}

func TestDefaultPathFromRequest(t *testing.T) {
	j := New()
	j.StoreFrom(mustURL(t, "http://shop.test/a/b/c"), headerWith("scoped=1"))

	assert.Equal(t, "scoped=1", j.CookieHeader(mustURL(t, "http://shop.test/a/b")))
	assert.Empty(t, j.CookieHeader(mustURL(t, "http://shop.test/a")))
}
