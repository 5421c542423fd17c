package rapidhttp

import (
	"net/http"

	"github.com/rapidhttp/go-rapidhttp/internal"
	"github.com/rapidhttp/go-rapidhttp/internal/model"
)

type Client = internal.Client
type Session = internal.Session
type Header = http.Header
type Request = model.Request
type PreparedRequest = model.PreparedRequest
type Response = model.Response
type Param = model.Param
type Auth = model.Auth
type Timeout = model.Timeout

type Middleware = internal.Middleware
type Handler = internal.Handler
type RequestOption = internal.RequestOption
type SessionOption = internal.SessionOption
