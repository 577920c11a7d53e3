package metrics

import "github.com/prometheus/client_golang/prometheus"

// ChatMetrics exposes counters/histograms for the chat pipeline.
type ChatMetrics struct {
	messagesTotal  *prometheus.CounterVec
	safetyTriggers *prometheus.CounterVec
	llmLatency     *prometheus.HistogramVec
}

func NewChatMetrics(reg prometheus.Registerer) *ChatMetrics {
	m := &ChatMetrics{
		messagesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "skillscoach",
			Subsystem: "chat",
			Name:      "messages_total",
			Help:      "Total chat messages by resolved route",
		}, []string{"route"}),
		safetyTriggers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "skillscoach",
			Subsystem: "chat",
			Name:      "safety_triggers_total",
			Help:      "Total messages short-circuited by a safety check",
		}, []string{"trigger_type"}),
		llmLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "skillscoach",
			Subsystem: "chat",
			Name:      "llm_latency_seconds",
			Help:      "Latency of LLM completions",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.messagesTotal, m.safetyTriggers, m.llmLatency)
	return m
}

func (m *ChatMetrics) ObserveRoute(route string) {
	if m == nil {
		return
	}
	m.messagesTotal.WithLabelValues(route).Inc()
}

func (m *ChatMetrics) ObserveSafetyTrigger(triggerType string) {
	if m == nil {
		return
	}
	m.safetyTriggers.WithLabelValues(triggerType).Inc()
}

func (m *ChatMetrics) ObserveLLMLatency(route string, seconds float64) {
	if m == nil {
		return
	}
	m.llmLatency.WithLabelValues(route).Observe(seconds)
}

// EmailMetrics counts outbound booking emails by final status.
type EmailMetrics struct {
	outboundTotal *prometheus.CounterVec
}

func NewEmailMetrics(reg prometheus.Registerer) *EmailMetrics {
	m := &EmailMetrics{
		outboundTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "skillscoach",
			Subsystem: "email",
			Name:      "outbound_total",
			Help:      "Total outbound appointment emails by status",
		}, []string{"status"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.outboundTotal)
	return m
}

func (m *EmailMetrics) ObserveOutbound(status string) {
	if m == nil {
		return
	}
	m.outboundTotal.WithLabelValues(status).Inc()
}

// SearchMetrics tracks therapist directory lookups.
type SearchMetrics struct {
	searchesTotal *prometheus.CounterVec
	searchLatency *prometheus.HistogramVec
}

func NewSearchMetrics(reg prometheus.Registerer) *SearchMetrics {
	m := &SearchMetrics{
		searchesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "skillscoach",
			Subsystem: "therapist",
			Name:      "searches_total",
			Help:      "Total therapist searches by outcome",
		}, []string{"outcome"}),
		searchLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "skillscoach",
			Subsystem: "therapist",
			Name:      "search_latency_seconds",
			Help:      "Latency of provider directory lookups",
			Buckets:   prometheus.DefBuckets,
		}, []string{"source"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.searchesTotal, m.searchLatency)
	return m
}

func (m *SearchMetrics) ObserveSearch(outcome string) {
	if m == nil {
		return
	}
	m.searchesTotal.WithLabelValues(outcome).Inc()
}

func (m *SearchMetrics) ObserveSearchLatency(source string, seconds float64) {
	if m == nil {
		return
	}
	m.searchLatency.WithLabelValues(source).Observe(seconds)
}
