package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/hupe1980/lexis"
)

var (
	benchCount       int
	benchQPS         float64
	benchConcurrency int
	benchLimit       int
)

var benchCmd = &cobra.Command{
	Use:   "bench [query]",
	Short: "Run a query repeatedly and report latency",
	Args:  cobra.ExactArgs(1),
	RunE:  runBench,
}

func init() {
	benchCmd.Flags().IntVar(&benchCount, "count", 100, "number of searches")
	benchCmd.Flags().Float64Var(&benchQPS, "qps", 0, "target queries per second (0 = unlimited)")
	benchCmd.Flags().IntVar(&benchConcurrency, "concurrency", 4, "concurrent searches")
	benchCmd.Flags().IntVarP(&benchLimit, "limit", "n", 10, "hits per search")
	rootCmd.AddCommand(benchCmd)
}

type benchReport struct {
	Searches   int64   `json:"searches"`
	Errors     int64   `json:"errors"`
	TotalHits  int64   `json:"total_hits"`
	AvgLatency string  `json:"avg_latency"`
	QPS        float64 `json:"qps"`
}

func runBench(cmd *cobra.Command, args []string) error {
	if benchCount <= 0 {
		return fmt.Errorf("--count must be positive, got %d", benchCount)
	}
	metrics := &lexis.BasicMetricsCollector{}
	s, c, err := openSearcher(cmd.Context(), lexis.WithMetricsCollector(metrics))
	if err != nil {
		return err
	}
	defer s.Close()

	q, err := resolveQuery(cmd.Context(), s, c, args[0])
	if err != nil {
		return fmt.Errorf("query: %w", err)
	}

	limit := rate.Inf
	if benchQPS > 0 {
		limit = rate.Limit(benchQPS)
	}
	limiter := rate.NewLimiter(limit, 1)

	g, gctx := errgroup.WithContext(cmd.Context())
	g.SetLimit(max(benchConcurrency, 1))

	start := time.Now()
	for range benchCount {
		if err := limiter.Wait(gctx); err != nil {
			break
		}
		g.Go(func() error {
			// Failed searches are counted by the metrics collector.
			_, _ = s.Search(q).Top(benchLimit).Execute(gctx)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	elapsed := time.Since(start)

	stats := metrics.GetStats()
	report := benchReport{
		Searches:   stats.SearchCount,
		Errors:     stats.SearchErrors,
		TotalHits:  stats.SearchHits,
		AvgLatency: time.Duration(stats.SearchAvgNanos).String(),
	}
	if elapsed > 0 {
		report.QPS = float64(stats.SearchCount) / elapsed.Seconds()
	}

	if outputJSON {
		return printJSON(cmd, report)
	}
	cmd.Printf("searches:    %d\n", report.Searches)
	cmd.Printf("errors:      %d\n", report.Errors)
	cmd.Printf("total hits:  %d\n", report.TotalHits)
	cmd.Printf("avg latency: %s\n", report.AvgLatency)
	cmd.Printf("qps:         %.1f\n", report.QPS)
	return nil
}
