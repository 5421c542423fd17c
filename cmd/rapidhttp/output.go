package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	rapidhttp "github.com/rapidhttp/go-rapidhttp"
)

const timePrecision = time.Millisecond

// colorScheme defines the colors used for the different output elements.
type colorScheme struct {
	Method      *color.Color
	URL         *color.Color
	StatusOK    *color.Color
	StatusWarn  *color.Color
	StatusError *color.Color
	HeaderKey   *color.Color
	HeaderValue *color.Color
	Error       *color.Color
}

func newColorScheme(w io.Writer) *colorScheme {
	s := &colorScheme{
		Method:      color.New(color.FgBlue, color.Bold),
		URL:         color.New(color.FgCyan),
		StatusOK:    color.New(color.FgGreen, color.Bold),
		StatusWarn:  color.New(color.FgYellow, color.Bold),
		StatusError: color.New(color.FgRed, color.Bold),
		HeaderKey:   color.New(color.FgYellow),
		HeaderValue: color.New(color.FgWhite),
		Error:       color.New(color.FgRed),
	}
	if f, ok := w.(*os.File); !ok || !isatty.IsTerminal(f.Fd()) {
		s.disable()
	}
	return s
}

func (s *colorScheme) disable() {
	for _, c := range []*color.Color{
		s.Method, s.URL, s.StatusOK, s.StatusWarn, s.StatusError,
		s.HeaderKey, s.HeaderValue, s.Error,
	} {
		c.DisableColor()
	}
}

func (s *colorScheme) statusColor(code int) *color.Color {
	switch {
	case code < 300:
		return s.StatusOK
	case code < 400:
		return s.StatusWarn
	default:
		return s.StatusError
	}
}

func printResponse(w io.Writer, scheme *colorScheme, resp *rapidhttp.Response, includeHeaders, bodyOnly bool) error {
	if !bodyOnly {
		scheme.statusColor(resp.StatusCode).Fprintf(w, "%d %s", resp.StatusCode, resp.Reason())
		fmt.Fprintf(w, "  (%s, %d redirects)\n", resp.Elapsed.Round(timePrecision), resp.Redirects)
	}
	if includeHeaders {
		keys := make([]string, 0, len(resp.Header))
		for k := range resp.Header {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			for _, v := range resp.Header[k] {
				scheme.HeaderKey.Fprintf(w, "%s: ", k)
				scheme.HeaderValue.Fprintln(w, v)
			}
		}
		fmt.Fprintln(w)
	}
	text, err := resp.Text()
	if err != nil {
		return err
	}
	if text != "" {
		fmt.Fprintln(w, text)
	}
	return nil
}
