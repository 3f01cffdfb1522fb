// Command crsload drives crsd with a Zipf-skewed mix of bbox
// reprojections and point transforms and reports latency percentiles.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"
)

type Config struct {
	BaseURL         string
	SourceCRS       string
	TargetCRS       []string
	Concurrency     int
	Duration        time.Duration
	ZipfS           float64
	ZipfV           float64
	BBoxCount       int
	PointRatio      float64
	OutputPrefix    string
	RequestTimeout  time.Duration
	AppendTimestamp bool
}

func loadConfig(args []string) (Config, error) {
	var cfg Config
	var targets string
	fs := flag.NewFlagSet("crsload", flag.ContinueOnError)
	fs.StringVar(&cfg.BaseURL, "target", "http://localhost:8090", "crsd base URL")
	fs.StringVar(&cfg.SourceCRS, "from", "CRS:84", "CRS of the generated boxes and points (longitude first)")
	fs.StringVar(&targets, "to", "EPSG:3857", "Comma-separated destination CRS names")
	fs.IntVar(&cfg.Concurrency, "concurrency", 32, "Concurrent workers")
	fs.DurationVar(&cfg.Duration, "duration", 60*time.Second, "Test duration")
	fs.Float64Var(&cfg.ZipfS, "zipf-s", 1.3, "Zipf parameter s (>1)")
	fs.Float64Var(&cfg.ZipfV, "zipf-v", 1.0, "Zipf parameter v (>=1)")
	fs.IntVar(&cfg.BBoxCount, "bboxes", 128, "Distinct boxes in the pool")
	fs.Float64Var(&cfg.PointRatio, "points", 0.25, "Share of requests that are point transforms")
	fs.StringVar(&cfg.OutputPrefix, "out", "results/crsload", "Output file prefix (JSON/CSV), empty disables")
	fs.DurationVar(&cfg.RequestTimeout, "timeout", 10*time.Second, "Per-request timeout")
	fs.BoolVar(&cfg.AppendTimestamp, "append-ts", true, "Append timestamp to output prefix")
	if err := fs.Parse(args); err != nil {
		return cfg, err
	}
	for _, t := range strings.Split(targets, ",") {
		if t = strings.TrimSpace(t); t != "" {
			cfg.TargetCRS = append(cfg.TargetCRS, t)
		}
	}
	switch {
	case len(cfg.TargetCRS) == 0:
		return cfg, fmt.Errorf("at least one destination CRS is required")
	case cfg.Concurrency <= 0:
		return cfg, fmt.Errorf("concurrency must be positive")
	case cfg.BBoxCount <= 0:
		return cfg, fmt.Errorf("bboxes must be positive")
	case cfg.ZipfS <= 1 || cfg.ZipfV < 1:
		return cfg, fmt.Errorf("zipf parameters need s > 1 and v >= 1")
	}
	return cfg, nil
}

func main() {
	cfg, err := loadConfig(os.Args[1:])
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	prefix := cfg.OutputPrefix
	if prefix != "" && cfg.AppendTimestamp {
		prefix = fmt.Sprintf("%s_%s", prefix, time.Now().UTC().Format("20060102_150405Z"))
	}

	var csvOut *os.File
	if prefix != "" {
		if err := os.MkdirAll(filepath.Dir(prefix), 0o750); err != nil {
			log.Fatalf("mkdir results: %v", err)
		}
		csvOut, err = os.Create(filepath.Clean(prefix + "_samples.csv"))
		if err != nil {
			log.Fatalf("open csv: %v", err)
		}
		defer func() { _ = csvOut.Close() }()
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Duration)
	defer cancel()

	log.Printf("crsload start target=%s from=%s to=%v dur=%s conc=%d zipf(s=%.2f,v=%.2f) bboxes=%d",
		cfg.BaseURL, cfg.SourceCRS, cfg.TargetCRS, cfg.Duration, cfg.Concurrency, cfg.ZipfS, cfg.ZipfV, cfg.BBoxCount)

	var sink *samplesCSV
	if csvOut != nil {
		sink = newSamplesCSV(csvOut)
	}
	sum, err := Run(ctx, cfg, newHTTPClient(cfg.RequestTimeout), sink, time.Now().UnixNano())
	if err != nil {
		log.Fatalf("run: %v", err)
	}

	if prefix != "" {
		jsonPath := prefix + "_summary.json"
		if f, err := os.Create(filepath.Clean(jsonPath)); err == nil {
			enc := json.NewEncoder(f)
			enc.SetIndent("", "  ")
			_ = enc.Encode(sum)
			_ = f.Close()
			log.Printf("wrote %s", jsonPath)
		}
	}
	log.Printf("done: total=%d succ=%d err=%d thr=%.2f rps p50=%.1fms p95=%.1fms p99=%.1fms",
		sum.TotalRequests, sum.SuccessCount, sum.ErrorCount, sum.ThroughputRPS, sum.P50Ms, sum.P95Ms, sum.P99Ms)
}
