package main

import (
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
	"github.com/spf13/cobra"

	rapidhttp "github.com/rapidhttp/go-rapidhttp"
)

var benchFlags struct {
	requests    int
	concurrency int
	timeout     time.Duration
	noVerify    bool
}

var benchCmd = &cobra.Command{
	Use:   "bench URL",
	Short: "Measure request latency against a URL",
	Long: `bench issues GET requests against URL over persistent sessions,
one session per worker, and reports a latency distribution.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		return runBench(cmd, args[0])
	},
}

func init() {
	fl := benchCmd.Flags()
	fl.IntVarP(&benchFlags.requests, "requests", "n", 100, "total number of requests")
	fl.IntVarP(&benchFlags.concurrency, "concurrency", "c", 1, "number of concurrent workers")
	fl.DurationVar(&benchFlags.timeout, "timeout", 30*time.Second, "per-request timeout")
	fl.BoolVarP(&benchFlags.noVerify, "insecure", "k", false, "skip TLS certificate verification")
}

// benchResult aggregates worker measurements. Latencies are recorded in
// microseconds, up to one minute.
type benchResult struct {
	mu        sync.Mutex
	hist      *hdrhistogram.Histogram
	succeeded int64
	failed    int64
}

func (b *benchResult) record(d time.Duration, ok bool) {
	b.mu.Lock()
	b.hist.RecordValue(d.Microseconds())
	b.mu.Unlock()
	if ok {
		atomic.AddInt64(&b.succeeded, 1)
	} else {
		atomic.AddInt64(&b.failed, 1)
	}
}

func runBench(cmd *cobra.Command, url string) error {
	n, c := benchFlags.requests, benchFlags.concurrency
	if n < 1 || c < 1 {
		return fmt.Errorf("requests and concurrency must be positive")
	}
	if c > n {
		c = n
	}

	var opts []rapidhttp.RequestOption
	if benchFlags.timeout > 0 {
		opts = append(opts, rapidhttp.WithTimeout(benchFlags.timeout))
	}
	if benchFlags.noVerify {
		opts = append(opts, rapidhttp.WithoutVerify())
	}

	res := &benchResult{hist: hdrhistogram.New(1, time.Minute.Microseconds(), 3)}
	jobs := make(chan struct{})

	var wg sync.WaitGroup
	wg.Add(c)
	for i := 0; i < c; i++ {
		go func() {
			defer wg.Done()
			s := rapidhttp.NewSession()
			defer s.Close()
			for range jobs {
				start := time.Now()
				resp, err := s.Get(cmd.Context(), url, opts...)
				ok := err == nil && resp.Ok()
				if err == nil {
					// drain so the connection goes back to the pool
					_, _ = resp.Content()
					resp.CloseBody()
				}
				res.record(time.Since(start), ok)
			}
		}()
	}

	started := time.Now()
	for i := 0; i < n; i++ {
		select {
		case jobs <- struct{}{}:
		case <-cmd.Context().Done():
			close(jobs)
			wg.Wait()
			return cmd.Context().Err()
		}
	}
	close(jobs)
	wg.Wait()
	printBench(res, time.Since(started), n, c)
	return nil
}

func printBench(res *benchResult, wall time.Duration, n, c int) {
	w := os.Stdout
	fmt.Fprintf(w, "%d requests, %d workers, %s wall time\n", n, c, wall.Round(timePrecision))
	fmt.Fprintf(w, "succeeded: %d  failed: %d  rate: %.1f req/s\n\n",
		res.succeeded, res.failed, float64(n)/wall.Seconds())

	fmt.Fprintln(w, "latency:")
	for _, q := range []float64{50, 90, 95, 99, 99.9} {
		v := time.Duration(res.hist.ValueAtQuantile(q)) * time.Microsecond
		fmt.Fprintf(w, "  p%-5v %s\n", q, v.Round(time.Microsecond))
	}
	fmt.Fprintf(w, "  min    %s\n", (time.Duration(res.hist.Min()) * time.Microsecond).Round(time.Microsecond))
	fmt.Fprintf(w, "  mean   %s\n", (time.Duration(res.hist.Mean()) * time.Microsecond).Round(time.Microsecond))
	fmt.Fprintf(w, "  max    %s\n", (time.Duration(res.hist.Max()) * time.Microsecond).Round(time.Microsecond))
}
