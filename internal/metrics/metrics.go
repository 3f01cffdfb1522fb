// Package metrics builds the Prometheus registry crsd serves: Go and
// process collectors, a build info series carrying the spatial backend,
// and gauges that read the engine's inventory at scrape time.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// BuildInfo labels the crsd_build_info series.
type BuildInfo struct {
	Version   string
	Revision  string
	BuildDate string
	// Backend names the spatial backend compiled in (builtin or proj).
	Backend string
}

// Inventory exposes engine sizes. Nil funcs are skipped.
type Inventory struct {
	Entries      func() int
	EPSGRecords  func() int
	PoolCapacity func() int
}

type Provider struct {
	reg *prometheus.Registry
}

// New returns a provider whose registry already carries the runtime
// collectors and crsd_build_info.
func New(b BuildInfo) *Provider {
	if b.Version == "" {
		b.Version = "dev"
	}
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "crsd_build_info",
			Help: "Always 1; labels describe the running binary.",
			ConstLabels: prometheus.Labels{
				"version":    b.Version,
				"revision":   b.Revision,
				"build_date": b.BuildDate,
				"backend":    b.Backend,
			},
		}, func() float64 { return 1 }),
	)
	return &Provider{reg: reg}
}

// Watch registers one gauge per non-nil inventory func.
func (p *Provider) Watch(inv Inventory) {
	for _, g := range []struct {
		name, help string
		fn         func() int
	}{
		{"crs_registry_entries", "Registered coordinate systems.", inv.Entries},
		{"epsg_records", "EPSG reference records loaded.", inv.EPSGRecords},
		{"transform_pool_capacity", "Maximum idle transformers kept by the pool.", inv.PoolCapacity},
	} {
		if g.fn == nil {
			continue
		}
		fn := g.fn
		p.reg.MustRegister(prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{Name: g.name, Help: g.help},
			func() float64 { return float64(fn()) },
		))
	}
}

func (p *Provider) Handler() http.Handler {
	return promhttp.HandlerFor(p.reg, promhttp.HandlerOpts{})
}

func (p *Provider) Registerer() prometheus.Registerer { return p.reg }
