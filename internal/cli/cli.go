// Package cli is the headless, non-interactive reporter: a progress bar
// while a Harness runs, then a final summary table, for CI/CD usage.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"ratewright/internal/engine"
	"ratewright/internal/loadtest"
	"ratewright/internal/loadtest/templating"
	"ratewright/internal/tui/app"
)

// RunOptions bundles everything Run needs beyond engine.Options: the
// resolved target(s) and where to write reports.
type RunOptions struct {
	Descriptors []engine.OperationDescriptor
	Options     engine.Options
	Sampling    bool
	OutPrefix   string

	PathTemplate   string
	BodyTemplate   string
	HeaderTemplate map[string]string
}

// Run drives a Harness to completion, printing a progress bar every
// 200ms and a final summary table, then returns the merged RunSummary
// so callers (cmd) can decide the process exit code from FatalErrors.
func Run(ctx context.Context, opts RunOptions) (*loadtest.RunSummary, error) {
	printHeader(opts)

	h, err := loadtest.NewHarness(opts.Options, opts.Descriptors, opts.Sampling)
	if err != nil {
		return nil, err
	}
	h.PollInterval = 200 * time.Millisecond
	h.StatsUpdates = make(chan loadtest.ConnSnapshot, 64)

	if opts.PathTemplate != "" || opts.BodyTemplate != "" || len(opts.HeaderTemplate) > 0 {
		tmpl := templating.New()
		h.Hooks = func(conn *engine.Connection) {
			ct, err := templating.Compile(tmpl, opts.PathTemplate, opts.HeaderTemplate, opts.BodyTemplate)
			if err != nil {
				return
			}
			pathFunc, headerFunc, bodyFunc := ct.Hooks(func(string) int { return 0 })
			conn.SetHooks(pathFunc, headerFunc, bodyFunc)
		}
	}

	n := opts.Options.Connections
	if n < 1 {
		n = 1
	}
	latest := make([]engine.StatsSnapshot, n)

	start := time.Now()
	totalDur := time.Duration(opts.Options.Time * float64(time.Second))

	progressDone := make(chan struct{})
	go func() {
		defer close(progressDone)
		for snap := range h.StatsUpdates {
			if snap.Index >= 0 && snap.Index < len(latest) {
				latest[snap.Index] = snap.Snapshot
			}
			printProgress(loadtest.MergeSnapshots(latest), time.Since(start), totalDur)
		}
	}()

	summary, runErr := h.Run(ctx)
	close(h.StatsUpdates)
	<-progressDone
	if summary == nil {
		return nil, runErr
	}

	printSummary(summary, time.Since(start))
	if len(summary.FatalErrors) > 0 {
		slog.Error("run aborted", "err", summary.FatalErrors[0])
		fmt.Printf("\nFATAL: %v\n", summary.FatalErrors[0])
	}

	if opts.OutPrefix != "" {
		handleAutoReport(summary, opts.OutPrefix)
	}

	return summary, runErr
}

func printHeader(opts RunOptions) {
	fmt.Printf("\nSTARTING LOAD TEST\n")
	fmt.Printf(strings.Repeat("=", 70) + "\n")
	for _, d := range opts.Descriptors {
		fmt.Printf("Target      : %s:%s%s\n", d.Hostname, d.Port, d.Path)
	}
	fmt.Printf("Connections : %d\n", opts.Options.Connections)
	fmt.Printf("Depth       : %d\n", opts.Options.Depth)
	fmt.Printf("Records     : %d\n", opts.Options.Records)
	fmt.Printf("IA          : %s (lambda=%.2f)\n", opts.Options.IA, opts.Options.Lambda)
	fmt.Printf("Update      : %.2f\n", opts.Options.Update)
	fmt.Printf("Duration    : %.1fs\n", opts.Options.Time)
	fmt.Printf(strings.Repeat("=", 70) + "\n\n")
}

func printProgress(summary *loadtest.RunSummary, elapsed, total time.Duration) {
	pct := 0.0
	if total > 0 {
		pct = elapsed.Seconds() / total.Seconds()
	}
	if pct > 1.0 {
		pct = 1.0
	}

	rps := 0.0
	if elapsed.Seconds() > 0 {
		rps = float64(summary.Ops) / elapsed.Seconds()
	}

	fmt.Printf("\r%s %3.0f%% | %s/%s | Ops: %d | RPS: %.1f | Misses: %d",
		progressBar(pct, 20), pct*100,
		elapsed.Round(time.Second), total.Round(time.Second),
		summary.Ops, rps, summary.GetMisses,
	)
}

func progressBar(pct float64, width int) string {
	filled := int(pct * float64(width))
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}
	return "[" + strings.Repeat("#", filled) + strings.Repeat("-", width-filled) + "]"
}

func printSummary(summary *loadtest.RunSummary, totalTime time.Duration) {
	fmt.Printf("\n\nLOAD TEST RESULTS\n")
	fmt.Printf(strings.Repeat("=", 70) + "\n")
	fmt.Printf("Total Duration : %s\n", totalTime.Round(time.Second))
	fmt.Printf("Connections    : %d\n", summary.Connections)
	fmt.Printf("Ops            : %d (Gets: %d, Posts: %d)\n", summary.Ops, summary.Gets, summary.Posts)
	fmt.Printf("Actual RPS     : %.2f\n", summary.RPS())
	fmt.Printf("GET misses     : %d\n", summary.GetMisses)
	fmt.Printf("Skips          : %d\n", summary.Skips)
	fmt.Printf("Bytes tx/rx    : %d / %d\n", summary.TxBytes, summary.RxBytes)

	if summary.GetLatencyMicros != nil && summary.GetLatencyMicros.TotalCount() > 0 {
		h := summary.GetLatencyMicros
		fmt.Printf("\nGET LATENCY (microseconds)\n")
		fmt.Printf("   P50 : %d\n", h.ValueAtQuantile(50))
		fmt.Printf("   P90 : %d\n", h.ValueAtQuantile(90))
		fmt.Printf("   P95 : %d\n", h.ValueAtQuantile(95))
		fmt.Printf("   P99 : %d\n", h.ValueAtQuantile(99))
		fmt.Printf("   Max : %d\n", h.Max())
	}
	fmt.Printf(strings.Repeat("=", 70) + "\n")
}

func handleAutoReport(summary *loadtest.RunSummary, prefix string) {
	fmt.Printf("\nWriting reports to %s.{json,csv}\n", prefix)
	if err := app.ExportJSON(summary, prefix+".json"); err != nil {
		slog.Error("report export failed", "format", "json", "err", err)
	}
	if err := app.ExportCSV(summary, prefix+".csv"); err != nil {
		slog.Error("report export failed", "format", "csv", "err", err)
	}
}
