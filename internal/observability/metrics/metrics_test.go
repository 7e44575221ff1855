package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func readValue(t *testing.T, c prometheus.Metric) float64 {
	t.Helper()
	var out dto.Metric
	if err := c.Write(&out); err != nil {
		t.Fatalf("write metric: %v", err)
	}
	if out.Counter != nil {
		return out.GetCounter().GetValue()
	}
	return out.GetGauge().GetValue()
}

func TestNotifyMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewNotifyMetrics(reg)
	m.ObserveChannel("DRUG_REQUEST", "email_user", "sent")
	m.ObserveChannel("DRUG_REQUEST", "email_user", "sent")
	m.ObserveChannel("DRUG_REQUEST", "whatsapp", "failed")
	m.ObserveDispatchLatency("DRUG_REQUEST", 0.2)

	if got := readValue(t, m.channelTotal.WithLabelValues("DRUG_REQUEST", "email_user", "sent")); got != 2 {
		t.Fatalf("expected 2 sent emails, got %v", got)
	}
	if got := readValue(t, m.channelTotal.WithLabelValues("DRUG_REQUEST", "whatsapp", "failed")); got != 1 {
		t.Fatalf("expected 1 failed whatsapp, got %v", got)
	}
}

func TestAIMetricsCustomRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewAIMetrics(reg)
	m.ObserveAnalysis("degraded")
	m.ObserveChat("gemini", "ok")

	if got := readValue(t, m.analysisTotal.WithLabelValues("degraded")); got != 1 {
		t.Fatalf("expected 1 degraded analysis, got %v", got)
	}
}

func TestVoiceMetricsSessionGauge(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewVoiceMetrics(reg)
	m.SessionOpened()
	m.SessionOpened()
	m.SessionClosed("ok")
	m.ObserveFrame("inbound")
	m.ObserveInterruption()

	if got := readValue(t, m.activeSessions); got != 1 {
		t.Fatalf("expected 1 active session, got %v", got)
	}
}

func TestMetricsNilSafe(t *testing.T) {
	var n *NotifyMetrics
	n.ObserveChannel("e", "c", "o")
	n.ObserveDispatchLatency("e", 0.1)

	var a *AIMetrics
	a.ObserveAnalysis("ok")
	a.ObserveChat("p", "ok")

	var v *VoiceMetrics
	v.SessionOpened()
	v.SessionClosed("ok")
	v.ObserveFrame("outbound")
	v.ObserveInterruption()
}
