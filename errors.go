package rapidhttp

import (
	"github.com/rapidhttp/go-rapidhttp/internal/errors"
)

type Error = errors.Error
type ErrorKind = errors.Kind
type RedirectHop = errors.Hop

const (
	KindConnection       = errors.KindConnection
	KindDNS              = errors.KindDNS
	KindConnectTimeout   = errors.KindConnectTimeout
	KindTLS              = errors.KindTLS
	KindReadTimeout      = errors.KindReadTimeout
	KindPoolTimeout      = errors.KindPoolTimeout
	KindTooManyRedirects = errors.KindTooManyRedirects
	KindURLRequired      = errors.KindURLRequired
	KindBodyConflict     = errors.KindBodyConflict
	KindInvalidBody      = errors.KindInvalidBody
	KindJSONDecode       = errors.KindJSONDecode
	KindHTTP             = errors.KindHTTP
	KindStreamConsumed   = errors.KindStreamConsumed
)

// Sentinels for errors.Is dispatch.
var (
	ErrConnection       = errors.ErrConnection
	ErrDNS              = errors.ErrDNS
	ErrConnectTimeout   = errors.ErrConnectTimeout
	ErrTLS              = errors.ErrTLS
	ErrReadTimeout      = errors.ErrReadTimeout
	ErrPoolTimeout      = errors.ErrPoolTimeout
	ErrTooManyRedirects = errors.ErrTooManyRedirects
	ErrURLRequired      = errors.ErrURLRequired
	ErrBodyConflict     = errors.ErrBodyConflict
	ErrInvalidBody      = errors.ErrInvalidBody
	ErrJSONDecode       = errors.ErrJSONDecode
	ErrHTTP             = errors.ErrHTTP
	ErrStreamConsumed   = errors.ErrStreamConsumed
)

// AsError extracts the engine's tagged error from an error chain.
func AsError(err error) (*Error, bool) {
	return errors.As(err)
}
