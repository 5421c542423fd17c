package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	rapidhttp "github.com/rapidhttp/go-rapidhttp"
)

type requestFlags struct {
	headers      []string
	queries      []string
	data         string
	jsonBody     string
	form         []string
	user         string
	bearer       string
	timeout      time.Duration
	noRedirect   bool
	maxRedirects int
	noVerify     bool
	proxy        string
	include      bool
	bodyOnly     bool
}

func newRequestCmd(verb string) *cobra.Command {
	f := &requestFlags{}
	cmd := &cobra.Command{
		Use:   verb + " URL",
		Short: "Send a " + strings.ToUpper(verb) + " request",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			return doRequest(cmd, strings.ToUpper(verb), args[0], f)
		},
	}
	fl := cmd.Flags()
	fl.StringArrayVarP(&f.headers, "header", "H", nil, `request header, "Key: Value"`)
	fl.StringArrayVarP(&f.queries, "query", "q", nil, `query parameter, "key=value"`)
	fl.StringVarP(&f.data, "data", "d", "", "raw request body")
	fl.StringVar(&f.jsonBody, "json", "", "JSON request body")
	fl.StringArrayVarP(&f.form, "form", "f", nil, `form field, "key=value"`)
	fl.StringVarP(&f.user, "user", "u", "", `basic auth, "user:password"`)
	fl.StringVar(&f.bearer, "bearer", "", "bearer token")
	fl.DurationVar(&f.timeout, "timeout", 0, "total request timeout")
	fl.BoolVar(&f.noRedirect, "no-redirect", false, "do not follow redirects")
	fl.IntVar(&f.maxRedirects, "max-redirects", 0, "redirect limit")
	fl.BoolVarP(&f.noVerify, "insecure", "k", false, "skip TLS certificate verification")
	fl.StringVar(&f.proxy, "proxy", "", "proxy URL")
	fl.BoolVarP(&f.include, "include", "i", false, "print response headers")
	fl.BoolVar(&f.bodyOnly, "body-only", false, "print only the response body")
	return cmd
}

func doRequest(cmd *cobra.Command, method, url string, f *requestFlags) error {
	opts, err := f.options()
	if err != nil {
		return err
	}

	s := rapidhttp.NewSession()
	defer s.Close()

	resp, err := s.Request(cmd.Context(), method, url, opts...)
	scheme := newColorScheme(os.Stdout)
	if err != nil {
		scheme.Error.Fprintln(os.Stderr, err)
		cmd.SilenceErrors = true
		return err
	}
	return printResponse(os.Stdout, scheme, resp, f.include, f.bodyOnly)
}

func (f *requestFlags) options() ([]rapidhttp.RequestOption, error) {
	var opts []rapidhttp.RequestOption
	for _, h := range f.headers {
		k, v, ok := strings.Cut(h, ":")
		if !ok {
			return nil, fmt.Errorf("malformed header %q, want \"Key: Value\"", h)
		}
		opts = append(opts, rapidhttp.WithHeader(strings.TrimSpace(k), strings.TrimSpace(v)))
	}
	for _, q := range f.queries {
		k, v, _ := strings.Cut(q, "=")
		opts = append(opts, rapidhttp.WithParam(k, v))
	}
	if f.data != "" {
		opts = append(opts, rapidhttp.WithData(f.data))
	}
	if f.jsonBody != "" {
		opts = append(opts, rapidhttp.WithData(f.jsonBody), rapidhttp.WithHeader("Content-Type", "application/json"))
	}
	if len(f.form) > 0 {
		fields := make([]rapidhttp.Param, 0, len(f.form))
		for _, kv := range f.form {
			k, v, _ := strings.Cut(kv, "=")
			fields = append(fields, rapidhttp.Param{Key: k, Value: v})
		}
		opts = append(opts, rapidhttp.WithForm(fields...))
	}
	if f.user != "" {
		u, p, _ := strings.Cut(f.user, ":")
		opts = append(opts, rapidhttp.WithBasicAuth(u, p))
	}
	if f.bearer != "" {
		opts = append(opts, rapidhttp.WithBearerAuth(f.bearer))
	}
	if f.timeout > 0 {
		opts = append(opts, rapidhttp.WithTimeout(f.timeout))
	}
	if f.noRedirect {
		opts = append(opts, rapidhttp.WithoutRedirects())
	} else if f.maxRedirects > 0 {
		opts = append(opts, rapidhttp.WithRedirects(f.maxRedirects))
	}
	if f.noVerify {
		opts = append(opts, rapidhttp.WithoutVerify())
	}
	if f.proxy != "" {
		opts = append(opts, rapidhttp.WithProxy(f.proxy))
	}
	return opts, nil
}
