package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "easygopharm"

// NotifyMetrics exposes counters/histograms for the notification fan-out.
type NotifyMetrics struct {
	channelTotal    *prometheus.CounterVec
	dispatchLatency *prometheus.HistogramVec
}

func NewNotifyMetrics(reg prometheus.Registerer) *NotifyMetrics {
	m := &NotifyMetrics{
		channelTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notify",
			Name:      "channel_total",
			Help:      "Notification channel attempts by outcome",
		}, []string{"event_type", "channel", "outcome"}),
		dispatchLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "notify",
			Name:      "dispatch_latency_seconds",
			Help:      "Latency of a full notification fan-out",
			Buckets:   prometheus.DefBuckets,
		}, []string{"event_type"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.channelTotal, m.dispatchLatency)
	return m
}

// ObserveChannel records one channel outcome: sent, skipped or failed.
func (m *NotifyMetrics) ObserveChannel(eventType, channel, outcome string) {
	if m == nil {
		return
	}
	m.channelTotal.WithLabelValues(eventType, channel, outcome).Inc()
}

func (m *NotifyMetrics) ObserveDispatchLatency(eventType string, seconds float64) {
	if m == nil {
		return
	}
	m.dispatchLatency.WithLabelValues(eventType).Observe(seconds)
}

// AIMetrics covers sourcing analyses and the help-desk assistant.
type AIMetrics struct {
	analysisTotal *prometheus.CounterVec
	chatTotal     *prometheus.CounterVec
}

func NewAIMetrics(reg prometheus.Registerer) *AIMetrics {
	m := &AIMetrics{
		analysisTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ai",
			Name:      "analysis_total",
			Help:      "Grounded sourcing analyses by outcome",
		}, []string{"outcome"}),
		chatTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ai",
			Name:      "chat_total",
			Help:      "Assistant chat turns by provider and outcome",
		}, []string{"provider", "outcome"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.analysisTotal, m.chatTotal)
	return m
}

func (m *AIMetrics) ObserveAnalysis(outcome string) {
	if m == nil {
		return
	}
	m.analysisTotal.WithLabelValues(outcome).Inc()
}

func (m *AIMetrics) ObserveChat(provider, outcome string) {
	if m == nil {
		return
	}
	m.chatTotal.WithLabelValues(provider, outcome).Inc()
}

// VoiceMetrics tracks live voice bridge sessions.
type VoiceMetrics struct {
	activeSessions prometheus.Gauge
	sessionsTotal  *prometheus.CounterVec
	framesTotal    *prometheus.CounterVec
	interruptions  prometheus.Counter
}

func NewVoiceMetrics(reg prometheus.Registerer) *VoiceMetrics {
	m := &VoiceMetrics{
		activeSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "voice",
			Name:      "active_sessions",
			Help:      "Currently open live voice sessions",
		}),
		sessionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "voice",
			Name:      "sessions_total",
			Help:      "Live voice sessions by outcome",
		}, []string{"outcome"}),
		framesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "voice",
			Name:      "audio_frames_total",
			Help:      "Audio frames relayed by direction",
		}, []string{"direction"}),
		interruptions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "voice",
			Name:      "interruptions_total",
			Help:      "Playback interruptions signalled by the live session",
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.activeSessions, m.sessionsTotal, m.framesTotal, m.interruptions)
	return m
}

func (m *VoiceMetrics) SessionOpened() {
	if m == nil {
		return
	}
	m.activeSessions.Inc()
}

func (m *VoiceMetrics) SessionClosed(outcome string) {
	if m == nil {
		return
	}
	m.activeSessions.Dec()
	m.sessionsTotal.WithLabelValues(outcome).Inc()
}

func (m *VoiceMetrics) ObserveFrame(direction string) {
	if m == nil {
		return
	}
	m.framesTotal.WithLabelValues(direction).Inc()
}

func (m *VoiceMetrics) ObserveInterruption() {
	if m == nil {
		return
	}
	m.interruptions.Inc()
}
