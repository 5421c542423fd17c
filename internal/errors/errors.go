// package errors defines the flat, kind-tagged error type surfaced by the
// client engine. Callers dispatch on [Kind] (or match the Kind* sentinels
// with stdlib errors.Is), never on message text.
package errors

import (
	"errors"
	"fmt"
)

type Kind int

const (
	// KindConnection is the catch-all for transport failures that are not
	// classified more precisely below.
	KindConnection Kind = iota
	KindDNS
	KindConnectTimeout
	KindTLS
	KindReadTimeout
	KindPoolTimeout
	KindTooManyRedirects
	KindURLRequired
	KindBodyConflict
	KindInvalidBody
	KindJSONDecode
	KindHTTP
	// KindStreamConsumed marks misuse of a response body (buffered access
	// after streaming, or reading an exhausted stream). It is a programming
	// error, not a network condition.
	KindStreamConsumed
)

func (k Kind) String() string {
	switch k {
	case KindConnection:
		return "ConnectionError"
	case KindDNS:
		return "DNSError"
	case KindConnectTimeout:
		return "ConnectTimeout"
	case KindTLS:
		return "TLSError"
	case KindReadTimeout:
		return "ReadTimeout"
	case KindPoolTimeout:
		return "PoolTimeout"
	case KindTooManyRedirects:
		return "TooManyRedirects"
	case KindURLRequired:
		return "URLRequired"
	case KindBodyConflict:
		return "BodyConflict"
	case KindInvalidBody:
		return "InvalidBody"
	case KindJSONDecode:
		return "JSONDecodeError"
	case KindHTTP:
		return "HTTPError"
	case KindStreamConsumed:
		return "StreamConsumed"
	default:
		return "UnknownError"
	}
}

// Hop is one intermediate redirect (target URL and the status that sent us
// there).
type Hop struct {
	URL    string
	Status int
}

type Error struct {
	Kind   Kind
	Method string
	URL    string
	Err    error // underlying cause, may be nil

	Status int   // set for KindHTTP
	Offset int64 // byte offset into the body, set for KindJSONDecode
	Hops   []Hop // set for KindTooManyRedirects
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Method != "" || e.URL != "" {
		msg = fmt.Sprintf("%s: %s %s", msg, e.Method, e.URL)
	}
	switch e.Kind {
	case KindHTTP:
		msg = fmt.Sprintf("%s: status %d", msg, e.Status)
	case KindJSONDecode:
		msg = fmt.Sprintf("%s: offset %d", msg, e.Offset)
	case KindTooManyRedirects:
		msg = fmt.Sprintf("%s: %d hops", msg, len(e.Hops))
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so the Kind* sentinels below work
// with stdlib errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// Timeout reports whether the error is one of the deadline kinds.
func (e *Error) Timeout() bool {
	return e.Kind == KindConnectTimeout || e.Kind == KindReadTimeout || e.Kind == KindPoolTimeout
}

// Sentinels for errors.Is dispatch.
var (
	ErrConnection       = &Error{Kind: KindConnection}
	ErrDNS              = &Error{Kind: KindDNS}
	ErrConnectTimeout   = &Error{Kind: KindConnectTimeout}
	ErrTLS              = &Error{Kind: KindTLS}
	ErrReadTimeout      = &Error{Kind: KindReadTimeout}
	ErrPoolTimeout      = &Error{Kind: KindPoolTimeout}
	ErrTooManyRedirects = &Error{Kind: KindTooManyRedirects}
	ErrURLRequired      = &Error{Kind: KindURLRequired}
	ErrBodyConflict     = &Error{Kind: KindBodyConflict}
	ErrInvalidBody      = &Error{Kind: KindInvalidBody}
	ErrJSONDecode       = &Error{Kind: KindJSONDecode}
	ErrHTTP             = &Error{Kind: KindHTTP}
	ErrStreamConsumed   = &Error{Kind: KindStreamConsumed}
)

func New(kind Kind, cause error) *Error {
	return &Error{Kind: kind, Err: cause}
}

// WithRequest returns a copy of e annotated with the attempted method and URL.
// Annotating an already-annotated error keeps the original context.
func (e *Error) WithRequest(method, url string) *Error {
	if e.Method != "" || e.URL != "" {
		return e
	}
	c := *e
	c.Method, c.URL = method, url
	return &c
}

// As extracts an *Error from an error chain.
func As(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}

// KindOf returns the kind of err, wrapping unclassified errors as
// KindConnection.
func KindOf(err error) Kind {
	if e, ok := As(err); ok {
		return e.Kind
	}
	return KindConnection
}
