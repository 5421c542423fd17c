// package transport implements the message syntax side of the engine:
// writing requests and reading responses over a pooled connection, for
// HTTP/1.1 directly and for h2 via golang.org/x/net.
package transport

import (
	"context"
	stderrors "errors"
	"net"

	"github.com/rapidhttp/go-rapidhttp/internal/errors"
	"github.com/rapidhttp/go-rapidhttp/internal/model"
	"github.com/rapidhttp/go-rapidhttp/utils/netpool"
)

type Transport interface {
	// RoundTrip writes the request and reads the response head, leaving
	// the body as a stream on resp. Ownership of conn passes to the
	// response body on success.
	RoundTrip(ctx context.Context, conn *netpool.Conn, req *model.PreparedRequest, resp *model.Response) error
}

// StaleConnError marks a transport failure on a reused connection before
// any response byte arrived. Such failures are safe to retry for
// idempotent methods.
type StaleConnError struct {
	Err error
}

func (e *StaleConnError) Error() string { return "stale pooled connection: " + e.Err.Error() }
func (e *StaleConnError) Unwrap() error { return e.Err }

// classify maps raw transport errors to engine kinds. Deadline expiry on a
// read is a ReadTimeout; everything unclassified is a ConnectionError.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := errors.As(err); ok {
		return err
	}
	var ne net.Error
	if stderrors.As(err, &ne) && ne.Timeout() {
		return errors.New(errors.KindReadTimeout, err)
	}
	return errors.New(errors.KindConnection, err)
}
