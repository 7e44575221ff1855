package bootstrap

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wolfman30/easygopharm/internal/observability/metrics"
)

// Metrics bundles the collectors registered for one process.
type Metrics struct {
	Notify  *metrics.NotifyMetrics
	AI      *metrics.AIMetrics
	Voice   *metrics.VoiceMetrics
	Handler http.Handler
}

// BuildMetrics registers every collector on a fresh registry and returns the
// /metrics handler serving it.
func BuildMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return &Metrics{
		Notify:  metrics.NewNotifyMetrics(reg),
		AI:      metrics.NewAIMetrics(reg),
		Voice:   metrics.NewVoiceMetrics(reg),
		Handler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	}
}
