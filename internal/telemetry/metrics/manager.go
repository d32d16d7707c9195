package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Manager struct {
	// counters
	CounterRequests            *prometheus.CounterVec
	CounterHandleRequestPanic  prometheus.Counter
	CounterRateLimitedRequests prometheus.Counter
	CounterEstimates           *prometheus.CounterVec
	CounterGeometryFallbacks   prometheus.Counter
	CounterAnalyzerCalls       *prometheus.CounterVec
	CounterVoIAnswers          *prometheus.CounterVec
	CounterMealsLogged         *prometheus.CounterVec

	// gauges
	GaugeRequests   prometheus.Gauge
	GaugeLifeSignal prometheus.Gauge

	// histograms
	HistogramRequestDuration  *prometheus.HistogramVec
	HistEstimateDuration      prometheus.Histogram
	HistAnalyzerDuration      prometheus.Histogram
	HistEstimateRelativeSigma prometheus.Histogram
}

func NewTestManager() *Manager {
	return NewManager("caloriecam", "test_server", prometheus.NewRegistry())
}

func NewTestManagerAndRegistry() (*Manager, *prometheus.Registry) {
	reg := prometheus.NewRegistry()
	return NewManager("caloriecam", "test_server", reg), reg
}

func NewManager(namespace, subsystem string, reg prometheus.Registerer) *Manager {
	factory := promauto.With(reg)

	counterRequests := factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "request",
		Help:      "The total number of incoming requests",
	}, []string{"method", "status"})
	counterHandleRequestPanic := factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "handle_request_panic",
		Help:      "The total number of serve request panics",
	})
	counterRateLimitedRequests := factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "rate_limited_requests",
		Help:      "The total number of rate limited requests",
	})
	counterEstimates := factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "estimates",
		Help:      "The total number of calorie estimates, by outcome state",
	}, []string{"state"})
	counterGeometryFallbacks := factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "geometry_fallbacks",
		Help:      "The total number of estimates that used the geometry fallback",
	})
	counterAnalyzerCalls := factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "analyzer_calls",
		Help:      "The total number of analyzer calls, by result",
	}, []string{"result"})
	counterVoIAnswers := factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "voi_answers",
		Help:      "The total number of answered VoI questions",
	}, []string{"answer"})
	counterMealsLogged := factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "meals_logged",
		Help:      "The total number of logged meals, by source",
	}, []string{"source"})

	gaugeRequests := factory.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "current_requests",
		Help:      "Current number of requests served",
	})
	gaugeLifeSignal := factory.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "life_signal",
		Help:      "Shows whether the service is alive",
	})

	histogramRequestDuration := factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "request_duration_seconds",
		Help:      "Histogram of response time for requests in seconds",
		Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
	}, []string{"route", "method", "status_code"})
	histEstimateDuration := factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "estimate_duration_seconds",
		Help:      "Duration of a full estimation pipeline run in seconds",
		Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2, 4, 8, 16, 30},
	})
	histAnalyzerDuration := factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "analyzer_duration_seconds",
		Help:      "Duration of a single analyzer call in seconds",
		Buckets:   []float64{.05, .1, .25, .5, 1, 2, 4, 8, 16, 30},
	})
	histEstimateRelativeSigma := factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "estimate_relative_sigma",
		Help:      "Relative uncertainty (sigma/mu) of produced estimates",
		Buckets:   []float64{.05, .1, .15, .2, .25, .3, .35, .5, .75, 1},
	})

	return &Manager{
		CounterRequests:            counterRequests,
		CounterHandleRequestPanic:  counterHandleRequestPanic,
		CounterRateLimitedRequests: counterRateLimitedRequests,
		CounterEstimates:           counterEstimates,
		CounterGeometryFallbacks:   counterGeometryFallbacks,
		CounterAnalyzerCalls:       counterAnalyzerCalls,
		CounterVoIAnswers:          counterVoIAnswers,
		CounterMealsLogged:         counterMealsLogged,
		GaugeRequests:              gaugeRequests,
		GaugeLifeSignal:            gaugeLifeSignal,
		HistogramRequestDuration:   histogramRequestDuration,
		HistEstimateDuration:       histEstimateDuration,
		HistAnalyzerDuration:       histAnalyzerDuration,
		HistEstimateRelativeSigma:  histEstimateRelativeSigma,
	}
}
