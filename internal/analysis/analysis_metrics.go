package analysis

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the triage pipeline instruments. All observe helpers
// tolerate a nil *Metrics.
type Metrics struct {
	AnalysesTotal    *prometheus.CounterVec
	AnalysisDuration *prometheus.HistogramVec
	LLMDuration      prometheus.Histogram
	LLMTokensIn      prometheus.Counter
	LLMTokensOut     prometheus.Counter
}

// NewMetrics builds the instruments and registers them on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		AnalysesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "issue_assistant_analyses_total",
			Help: "Analysis pipeline runs by outcome.",
		}, []string{"outcome"}),
		AnalysisDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "issue_assistant_analysis_duration_seconds",
			Help:    "End to end duration of successful analyses.",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 10),
		}, []string{"model"}),
		LLMDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "issue_assistant_llm_call_duration_seconds",
			Help:    "Duration of LLM completion calls.",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 10),
		}),
		LLMTokensIn: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "issue_assistant_llm_input_tokens_total",
			Help: "Tokens sent to the LLM provider.",
		}),
		LLMTokensOut: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "issue_assistant_llm_output_tokens_total",
			Help: "Tokens returned by the LLM provider.",
		}),
	}
	reg.MustRegister(m.AnalysesTotal, m.AnalysisDuration, m.LLMDuration, m.LLMTokensIn, m.LLMTokensOut)
	return m
}

func (m *Metrics) observeOutcome(outcome string) {
	if m == nil {
		return
	}
	m.AnalysesTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) observeSuccess(rr *RunResult, totalSeconds float64) {
	if m == nil {
		return
	}
	m.AnalysesTotal.WithLabelValues("ok").Inc()
	m.AnalysisDuration.WithLabelValues(rr.Model).Observe(totalSeconds)
	m.LLMDuration.Observe(rr.Duration)
	m.LLMTokensIn.Add(float64(rr.Usage.InputTokens))
	m.LLMTokensOut.Add(float64(rr.Usage.OutputTokens))
}
