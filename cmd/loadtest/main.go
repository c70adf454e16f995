// Command loadtest drives POST /api/v1/recommend traffic at a running
// recommender and reports throughput, latency percentiles, cache hit rate
// and status codes. With -rps the workers share a token bucket so the
// offered load stays fixed regardless of server latency.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"math"
	"net/http"
	"os"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

type options struct {
	baseURL     string
	concurrency int
	duration    time.Duration
	rps         float64
	topK        int
}

// request is one recommendation body the workers cycle through.
type request struct {
	Query   string `json:"query"`
	Dietary string `json:"dietary,omitempty"`
	TopK    int    `json:"top_k,omitempty"`
}

var workload = []request{
	{Query: "boba"},
	{Query: "gyro", Dietary: "halal"},
	{Query: "late night ramen"},
	{Query: "vegan tacos", Dietary: "vegan"},
	{Query: "cheap pho near campus"},
	{Query: "sushi"},
	{Query: "vegetarian indian", Dietary: "vegetarian"},
	{Query: "korean bbq"},
	{Query: "coffee and pastries"},
	{Query: "gluten free pizza", Dietary: "gluten_free"},
	{Query: "$$ burgers"},
	{Query: ""},
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("loadtest", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var opts options
	fs.StringVar(&opts.baseURL, "url", "http://localhost:8080", "base URL of the recommender service")
	fs.IntVar(&opts.concurrency, "concurrency", 10, "number of concurrent workers")
	fs.DurationVar(&opts.duration, "duration", 30*time.Second, "test duration")
	fs.Float64Var(&opts.rps, "rps", 0, "target requests per second across all workers (0 = unthrottled)")
	fs.IntVar(&opts.topK, "top-k", 5, "top_k sent with every request")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if opts.concurrency < 1 || opts.duration <= 0 {
		fmt.Fprintln(stderr, "concurrency and duration must be positive")
		return 2
	}

	bodies, err := encodeWorkload(workload, opts.topK)
	if err != nil {
		fmt.Fprintf(stderr, "encoding workload: %v\n", err)
		return 2
	}

	fmt.Fprintln(stdout, "=== Recommender Load Test ===")
	fmt.Fprintf(stdout, "Target:      %s\n", opts.baseURL)
	fmt.Fprintf(stdout, "Concurrency: %d\n", opts.concurrency)
	fmt.Fprintf(stdout, "Duration:    %s\n", opts.duration)
	if opts.rps > 0 {
		fmt.Fprintf(stdout, "Rate:        %.0f req/s\n", opts.rps)
	}
	fmt.Fprintf(stdout, "Queries:     %d unique\n\n", len(bodies))

	ctx, cancel := context.WithTimeout(context.Background(), opts.duration)
	defer cancel()
	res := drive(ctx, opts, bodies)
	res.report(stdout, opts.duration)
	if res.total == 0 {
		fmt.Fprintln(stdout, "\nWARNING: no requests completed. Is the service running?")
		return 1
	}
	return 0
}

func encodeWorkload(reqs []request, topK int) ([][]byte, error) {
	bodies := make([][]byte, len(reqs))
	for i, r := range reqs {
		r.TopK = topK
		data, err := json.Marshal(r)
		if err != nil {
			return nil, err
		}
		bodies[i] = data
	}
	return bodies, nil
}

// results is shared by all workers.
type results struct {
	mu        sync.Mutex
	total     int64
	transport int64
	cacheHits int64
	latencies []time.Duration
	codes     map[int]int64
}

func (r *results) record(took time.Duration, code int, cacheHit bool, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.total++
	if err != nil {
		r.transport++
		return
	}
	r.latencies = append(r.latencies, took)
	r.codes[code]++
	if cacheHit {
		r.cacheHits++
	}
}

func drive(ctx context.Context, opts options, bodies [][]byte) *results {
	res := &results{codes: make(map[int]int64)}
	client := &http.Client{
		Timeout: 10 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        opts.concurrency * 2,
			MaxIdleConnsPerHost: opts.concurrency * 2,
			IdleConnTimeout:     90 * time.Second,
		},
	}
	limiter := rate.NewLimiter(rate.Inf, 0)
	if opts.rps > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.rps), max(1, opts.concurrency))
	}
	target := opts.baseURL + "/api/v1/recommend"

	var g errgroup.Group
	for w := range opts.concurrency {
		g.Go(func() error {
			for i := w; ; i++ {
				if err := limiter.Wait(ctx); err != nil {
					return nil
				}
				took, code, hit, err := post(ctx, client, target, bodies[i%len(bodies)])
				if ctx.Err() != nil {
					return nil
				}
				res.record(took, code, hit, err)
			}
		})
	}
	g.Wait()
	return res
}

func post(ctx context.Context, client *http.Client, url string, body []byte) (time.Duration, int, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return 0, 0, false, err
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return time.Since(start), 0, false, err
	}
	defer resp.Body.Close()
	var out struct {
		CacheHit bool `json:"cache_hit"`
	}
	hit := json.NewDecoder(resp.Body).Decode(&out) == nil && out.CacheHit
	io.Copy(io.Discard, resp.Body)
	return time.Since(start), resp.StatusCode, hit, nil
}

func (r *results) report(w io.Writer, elapsed time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var ok int64
	for code, n := range r.codes {
		if code >= 200 && code < 300 {
			ok += n
		}
	}
	failed := r.total - ok

	fmt.Fprintln(w, "=== Results ===")
	fmt.Fprintf(w, "Total Requests:  %d\n", r.total)
	fmt.Fprintf(w, "Successful:      %d\n", ok)
	fmt.Fprintf(w, "Errors:          %d (%d transport)\n", failed, r.transport)
	if r.total > 0 {
		fmt.Fprintf(w, "Error Rate:      %.2f%%\n", float64(failed)/float64(r.total)*100)
		fmt.Fprintf(w, "Requests/sec:    %.2f\n", float64(r.total)/elapsed.Seconds())
	}
	if ok > 0 {
		fmt.Fprintf(w, "Cache Hit Rate:  %.1f%%\n", float64(r.cacheHits)/float64(ok)*100)
	}

	if len(r.latencies) > 0 {
		sorted := slices.Clone(r.latencies)
		slices.Sort(sorted)
		mean, stddev := meanStddev(sorted)
		fmt.Fprintln(w, "\n=== Latency ===")
		fmt.Fprintf(w, "Min:    %s\n", sorted[0])
		fmt.Fprintf(w, "Avg:    %s\n", mean)
		for _, p := range []float64{50, 90, 95, 99} {
			fmt.Fprintf(w, "P%-2.0f:    %s\n", p, percentile(sorted, p))
		}
		fmt.Fprintf(w, "Max:    %s\n", sorted[len(sorted)-1])
		fmt.Fprintf(w, "StdDev: %s\n", stddev)
	}

	codes := make([]int, 0, len(r.codes))
	for code := range r.codes {
		codes = append(codes, code)
	}
	slices.Sort(codes)
	fmt.Fprintln(w, "\n=== Status Codes ===")
	for _, code := range codes {
		fmt.Fprintf(w, "  %d: %d\n", code, r.codes[code])
	}
}

func meanStddev(xs []time.Duration) (time.Duration, time.Duration) {
	var sum float64
	for _, x := range xs {
		sum += float64(x)
	}
	mean := sum / float64(len(xs))
	var sq float64
	for _, x := range xs {
		d := float64(x) - mean
		sq += d * d
	}
	return time.Duration(mean), time.Duration(math.Sqrt(sq / float64(len(xs))))
}

// percentile uses the nearest-rank method on an ascending slice.
func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(math.Ceil(p/100*float64(len(sorted)))) - 1
	return sorted[min(max(idx, 0), len(sorted)-1)]
}
