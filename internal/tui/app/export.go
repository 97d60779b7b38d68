package app

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"

	"ratewright/internal/loadtest"
)

// ExportJSON writes a RunSummary's countable fields plus GET latency
// percentiles to a single JSON report; POST latencies are not exported.
func ExportJSON(summary *loadtest.RunSummary, filename string) error {
	report := summaryReport(summary)
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filename, data, 0o644)
}

// ExportCSV writes the same report as a flat metric/value CSV, the
// shape a spreadsheet or CI artifact step can diff run over run.
func ExportCSV(summary *loadtest.RunSummary, filename string) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	report := summaryReport(summary)
	rows := [][]string{
		{"Metric", "Value"},
		{"Connections", fmt.Sprintf("%d", report.Connections)},
		{"Duration", report.Duration},
		{"Ops", fmt.Sprintf("%d", report.Ops)},
		{"Gets", fmt.Sprintf("%d", report.Gets)},
		{"Posts", fmt.Sprintf("%d", report.Posts)},
		{"GetMisses", fmt.Sprintf("%d", report.GetMisses)},
		{"Skips", fmt.Sprintf("%d", report.Skips)},
		{"TxBytes", fmt.Sprintf("%d", report.TxBytes)},
		{"RxBytes", fmt.Sprintf("%d", report.RxBytes)},
		{"RPS", fmt.Sprintf("%.2f", report.RPS)},
		{"GetP50Micros", fmt.Sprintf("%d", report.GetP50Micros)},
		{"GetP90Micros", fmt.Sprintf("%d", report.GetP90Micros)},
		{"GetP99Micros", fmt.Sprintf("%d", report.GetP99Micros)},
		{"GetMaxMicros", fmt.Sprintf("%d", report.GetMaxMicros)},
	}
	return w.WriteAll(rows)
}

type summaryReportRow struct {
	Connections  int     `json:"connections"`
	Duration     string  `json:"duration"`
	Ops          uint64  `json:"ops"`
	Gets         uint64  `json:"gets"`
	Posts        uint64  `json:"posts"`
	GetMisses    uint64  `json:"get_misses"`
	Skips        uint64  `json:"skips"`
	TxBytes      uint64  `json:"tx_bytes"`
	RxBytes      uint64  `json:"rx_bytes"`
	RPS          float64 `json:"rps"`
	GetP50Micros int64   `json:"get_p50_micros"`
	GetP90Micros int64   `json:"get_p90_micros"`
	GetP99Micros int64   `json:"get_p99_micros"`
	GetMaxMicros int64   `json:"get_max_micros"`
}

func summaryReport(summary *loadtest.RunSummary) summaryReportRow {
	r := summaryReportRow{
		Connections: summary.Connections,
		Duration:    summary.Duration.String(),
		Ops:         summary.Ops,
		Gets:        summary.Gets,
		Posts:       summary.Posts,
		GetMisses:   summary.GetMisses,
		Skips:       summary.Skips,
		TxBytes:     summary.TxBytes,
		RxBytes:     summary.RxBytes,
		RPS:         summary.RPS(),
	}
	if summary.GetLatencyMicros != nil && summary.GetLatencyMicros.TotalCount() > 0 {
		h := summary.GetLatencyMicros
		r.GetP50Micros = h.ValueAtQuantile(50)
		r.GetP90Micros = h.ValueAtQuantile(90)
		r.GetP99Micros = h.ValueAtQuantile(99)
		r.GetMaxMicros = h.Max()
	}
	return r
}
