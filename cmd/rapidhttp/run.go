package main

import (
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	rapidhttp "github.com/rapidhttp/go-rapidhttp"
)

// requestFile is the YAML format consumed by `rapidhttp run`: shared
// session defaults plus an ordered list of requests, each with optional
// expectations checked against the response.
type requestFile struct {
	Defaults struct {
		Headers map[string]string `yaml:"headers"`
		Params  map[string]string `yaml:"params"`
		Timeout string            `yaml:"timeout"`
	} `yaml:"defaults"`
	Requests []requestSpec `yaml:"requests"`
}

type requestSpec struct {
	Name    string            `yaml:"name"`
	Method  string            `yaml:"method"`
	URL     string            `yaml:"url"`
	Headers map[string]string `yaml:"headers"`
	Params  map[string]string `yaml:"params"`
	Body    string            `yaml:"body"`
	JSON    interface{}       `yaml:"json"`
	Expect  *expectSpec       `yaml:"expect"`
}

type expectSpec struct {
	Status       int               `yaml:"status"`
	BodyContains string            `yaml:"body_contains"`
	JSONPaths    map[string]string `yaml:"jsonpath"`
}

var runCmd = &cobra.Command{
	Use:   "run FILE",
	Short: "Run the requests described in a YAML file over one session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		return runFile(cmd, args[0])
	},
}

func runFile(cmd *cobra.Command, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var file requestFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	if len(file.Requests) == 0 {
		return fmt.Errorf("%s: no requests", path)
	}

	var timeout time.Duration
	if file.Defaults.Timeout != "" {
		timeout, err = time.ParseDuration(file.Defaults.Timeout)
		if err != nil {
			return fmt.Errorf("parse %s: defaults.timeout: %w", path, err)
		}
	}

	var sessOpts []rapidhttp.SessionOption
	for k, v := range file.Defaults.Headers {
		sessOpts = append(sessOpts, rapidhttp.WithSessionHeader(k, v))
	}
	for k, v := range file.Defaults.Params {
		sessOpts = append(sessOpts, rapidhttp.WithSessionParam(k, v))
	}
	s := rapidhttp.NewSession(sessOpts...)
	defer s.Close()

	scheme := newColorScheme(os.Stdout)
	failed := 0
	for i, spec := range file.Requests {
		if err := runOne(cmd, s, scheme, timeout, i, spec); err != nil {
			scheme.Error.Fprintf(os.Stderr, "%s: %v\n", specName(i, spec), err)
			failed++
		}
	}
	if failed > 0 {
		cmd.SilenceErrors = true
		return fmt.Errorf("%d of %d requests failed", failed, len(file.Requests))
	}
	return nil
}

func runOne(cmd *cobra.Command, s *rapidhttp.Session, scheme *colorScheme, timeout time.Duration, i int, spec requestSpec) error {
	if spec.URL == "" {
		return fmt.Errorf("missing url")
	}
	method := strings.ToUpper(spec.Method)
	if method == "" {
		method = http.MethodGet
	}

	var opts []rapidhttp.RequestOption
	for k, v := range spec.Headers {
		opts = append(opts, rapidhttp.WithHeader(k, v))
	}
	for k, v := range spec.Params {
		opts = append(opts, rapidhttp.WithParam(k, v))
	}
	if spec.Body != "" {
		opts = append(opts, rapidhttp.WithData(spec.Body))
	}
	if spec.JSON != nil {
		opts = append(opts, rapidhttp.WithJSON(spec.JSON))
	}
	if timeout > 0 {
		opts = append(opts, rapidhttp.WithTimeout(timeout))
	}

	resp, err := s.Request(cmd.Context(), method, spec.URL, opts...)
	if err != nil {
		return err
	}
	defer resp.CloseBody()

	scheme.Method.Fprintf(os.Stdout, "%-7s ", method)
	scheme.URL.Fprint(os.Stdout, spec.URL)
	fmt.Fprint(os.Stdout, "  ")
	scheme.statusColor(resp.StatusCode).Fprintf(os.Stdout, "%d %s", resp.StatusCode, resp.Reason())
	fmt.Fprintf(os.Stdout, "  (%s)\n", resp.Elapsed.Round(timePrecision))

	return checkExpect(resp, spec.Expect)
}

func checkExpect(resp *rapidhttp.Response, e *expectSpec) error {
	if e == nil {
		return nil
	}
	if e.Status != 0 && resp.StatusCode != e.Status {
		return fmt.Errorf("expected status %d, got %d", e.Status, resp.StatusCode)
	}
	if e.BodyContains != "" {
		text, err := resp.Text()
		if err != nil {
			return err
		}
		if !strings.Contains(text, e.BodyContains) {
			return fmt.Errorf("body does not contain %q", e.BodyContains)
		}
	}
	for path, want := range e.JSONPaths {
		got, err := resp.JSONPath(path)
		if err != nil {
			return err
		}
		if got.String() != want {
			return fmt.Errorf("jsonpath %s: expected %q, got %q", path, want, got.String())
		}
	}
	return nil
}

func specName(i int, spec requestSpec) string {
	if spec.Name != "" {
		return spec.Name
	}
	return fmt.Sprintf("request #%d", i+1)
}
