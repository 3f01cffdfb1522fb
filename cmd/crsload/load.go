package main

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/mohammed-shakir/crs-cache/internal/core/model"
)

// makeBBoxes creates a mix of hot boxes around a few cities and cold boxes
// spread over Europe, longitude first.
func makeBBoxes(count int, crs string, r *rand.Rand) []model.BBox {
	centers := [][2]float64{
		{18.0686, 59.3293}, // Stockholm
		{8.5417, 47.3769},  // Zurich
		{24.9384, 60.1699}, // Helsinki
		{2.3522, 48.8566},  // Paris
	}
	boxes := make([]model.BBox, 0, count)

	hot := int(math.Max(8, float64(count/4)))
	if hot > count {
		hot = count
	}
	for i := range hot {
		c := centers[i%len(centers)]
		dx, dy := (r.Float64()-0.5)*0.20, (r.Float64()-0.5)*0.20
		w, h := 0.12+r.Float64()*0.08, 0.12+r.Float64()*0.08
		lon, lat := c[0]+dx, c[1]+dy
		boxes = append(boxes, model.BBox{X1: lon - w/2, Y1: lat - h/2, X2: lon + w/2, Y2: lat + h/2, CRS: crs})
	}
	for len(boxes) < count {
		lon := -10 + r.Float64()*40
		lat := 36 + r.Float64()*34
		w, h := 0.2*r.Float64()+0.05, 0.2*r.Float64()+0.05
		boxes = append(boxes, model.BBox{X1: lon - w/2, Y1: lat - h/2, X2: lon + w/2, Y2: lat + h/2, CRS: crs})
	}
	return boxes
}

// request builds the URL for one box: a point transform of its centre or a
// bbox reprojection.
func request(base string, bb model.BBox, to string, point bool) (string, error) {
	u, err := url.Parse(strings.TrimRight(base, "/"))
	if err != nil {
		return "", fmt.Errorf("target url: %w", err)
	}
	q := url.Values{}
	if point {
		u.Path += "/transform"
		q.Set("from", bb.CRS)
		q.Set("to", to)
		q.Set("x", strconv.FormatFloat((bb.X1+bb.X2)/2, 'f', -1, 64))
		q.Set("y", strconv.FormatFloat((bb.Y1+bb.Y2)/2, 'f', -1, 64))
	} else {
		u.Path += "/bbox"
		q.Set("bbox", bb.String())
		q.Set("to", to)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

type sample struct {
	Timestamp time.Time
	Latency   time.Duration
	Status    int
	ErrorMsg  string
	Kind      string
	BoxIndex  int
	To        string
}

type summary struct {
	StartTime     time.Time `json:"start"`
	EndTime       time.Time `json:"end"`
	DurationSec   float64   `json:"duration_sec"`
	TotalRequests int64     `json:"total"`
	SuccessCount  int64     `json:"success"`
	ErrorCount    int64     `json:"errors"`
	ThroughputRPS float64   `json:"throughput_rps"`
	P50Ms         float64   `json:"p50_ms"`
	P95Ms         float64   `json:"p95_ms"`
	P99Ms         float64   `json:"p99_ms"`
	Concurrency   int       `json:"concurrency"`
	ZipfS         float64   `json:"zipf_s"`
	ZipfV         float64   `json:"zipf_v"`
	BBoxes        int       `json:"bboxes"`
	Target        string    `json:"target"`
	From          string    `json:"from"`
	To            []string  `json:"to"`
}

type samplesCSV struct {
	w *csv.Writer
}

func newSamplesCSV(out io.Writer) *samplesCSV {
	w := csv.NewWriter(out)
	_ = w.Write([]string{"timestamp", "latency_ms", "status", "error", "kind", "bbox_idx", "to"})
	return &samplesCSV{w: w}
}

func (s *samplesCSV) write(sm sample) {
	_ = s.w.Write([]string{
		sm.Timestamp.UTC().Format(time.RFC3339Nano),
		fmt.Sprintf("%.3f", float64(sm.Latency.Microseconds())/1000.0),
		strconv.Itoa(sm.Status),
		sm.ErrorMsg,
		sm.Kind,
		strconv.Itoa(sm.BoxIndex),
		sm.To,
	})
}

func (s *samplesCSV) flush() error {
	s.w.Flush()
	return s.w.Error()
}

func newHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			DialContext:           (&net.Dialer{Timeout: 4 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
			MaxIdleConns:          1024,
			MaxIdleConnsPerHost:   256,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   4 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
		},
		Timeout: timeout,
	}
}

// Run issues requests until ctx is done and summarises them. sink may be
// nil.
func Run(ctx context.Context, cfg Config, client *http.Client, sink *samplesCSV, seed int64) (summary, error) {
	boxes := makeBBoxes(cfg.BBoxCount, cfg.SourceCRS, rand.New(rand.NewSource(seed)))
	if _, err := request(cfg.BaseURL, boxes[0], cfg.TargetCRS[0], false); err != nil {
		return summary{}, err
	}
	imax := uint64(len(boxes)) - 1

	samples := make(chan sample, 4096)
	type agg struct {
		total, success, errors int64
		latMs                  []float64
	}
	done := make(chan agg, 1)
	go func() {
		var a agg
		for s := range samples {
			a.total++
			if s.ErrorMsg == "" {
				a.success++
				a.latMs = append(a.latMs, float64(s.Latency.Microseconds())/1000.0)
			} else {
				a.errors++
			}
			if sink != nil {
				sink.write(s)
			}
		}
		done <- a
	}()

	start := time.Now()
	var wg sync.WaitGroup
	for id := range cfg.Concurrency {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(seed + int64(id) + 1))
			zipf := rand.NewZipf(r, cfg.ZipfS, cfg.ZipfV, imax)
			for ctx.Err() == nil {
				idx := int(zipf.Uint64())
				to := cfg.TargetCRS[r.Intn(len(cfg.TargetCRS))]
				point := r.Float64() < cfg.PointRatio
				target, _ := request(cfg.BaseURL, boxes[idx], to, point)

				s := sample{Timestamp: time.Now(), BoxIndex: idx, To: to, Kind: "bbox"}
				if point {
					s.Kind = "point"
				}
				s.Status, s.ErrorMsg = do(ctx, client, target)
				s.Latency = time.Since(s.Timestamp)
				if ctx.Err() != nil && s.Status == 0 {
					// cut short by the deadline, not a server failure
					return
				}
				samples <- s
			}
		}(id)
	}
	wg.Wait()
	close(samples)
	a := <-done
	end := time.Now()

	var err error
	if sink != nil {
		err = sink.flush()
	}

	sort.Float64s(a.latMs)
	elapsed := end.Sub(start).Seconds()
	return summary{
		StartTime:     start.UTC(),
		EndTime:       end.UTC(),
		DurationSec:   elapsed,
		TotalRequests: a.total,
		SuccessCount:  a.success,
		ErrorCount:    a.errors,
		ThroughputRPS: float64(a.total) / elapsed,
		P50Ms:         percentile(a.latMs, 50),
		P95Ms:         percentile(a.latMs, 95),
		P99Ms:         percentile(a.latMs, 99),
		Concurrency:   cfg.Concurrency,
		ZipfS:         cfg.ZipfS,
		ZipfV:         cfg.ZipfV,
		BBoxes:        len(boxes),
		Target:        cfg.BaseURL,
		From:          cfg.SourceCRS,
		To:            cfg.TargetCRS,
	}, err
}

func do(ctx context.Context, client *http.Client, target string) (int, string) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return 0, err.Error()
	}
	req.Header.Set("Accept", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		return 0, err.Error()
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp.StatusCode, fmt.Sprintf("status=%d", resp.StatusCode)
	}
	return resp.StatusCode, ""
}

func percentile(sortedValues []float64, p float64) float64 {
	if len(sortedValues) == 0 {
		return 0
	}
	if p <= 0 {
		return sortedValues[0]
	}
	if p >= 100 {
		return sortedValues[len(sortedValues)-1]
	}
	k := (p / 100.0) * float64(len(sortedValues)-1)
	f := math.Floor(k)
	i := int(f)
	if i >= len(sortedValues)-1 {
		return sortedValues[len(sortedValues)-1]
	}
	d := k - f
	return sortedValues[i]*(1-d) + sortedValues[i+1]*d
}
