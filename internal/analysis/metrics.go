package analysis

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/mvp-joe/umbra/internal/graph"
)

// Metrics tracks analysis statistics. All methods are safe for concurrent use.
type Metrics struct {
	mu                   sync.RWMutex
	lastAnalysisTime     time.Time
	lastAnalysisDuration time.Duration
	lastAnalysisError    string
	totalAnalyses        int64
	successfulAnalyses   int64
	failedAnalyses       int64
	nodeCount            int
	edgeCount            int
	lastStats            graph.BuildStats

	analysesTotal   *prometheus.CounterVec
	analysisSeconds prometheus.Histogram
	filesTotal      *prometheus.CounterVec
	unresolvedTotal prometheus.Counter
	graphNodes      prometheus.Gauge
	graphEdges      prometheus.Gauge
	queriesTotal    *prometheus.CounterVec
}

// MetricsSnapshot is an immutable copy of the metrics at a point in time.
type MetricsSnapshot struct {
	LastAnalysisTime     time.Time        `json:"last_analysis_time"`
	LastAnalysisDuration time.Duration    `json:"last_analysis_duration_ns"`
	LastAnalysisError    string           `json:"last_analysis_error,omitempty"`
	TotalAnalyses        int64            `json:"total_analyses"`
	SuccessfulAnalyses   int64            `json:"successful_analyses"`
	FailedAnalyses       int64            `json:"failed_analyses"`
	NodeCount            int              `json:"node_count"`
	EdgeCount            int              `json:"edge_count"`
	LastStats            graph.BuildStats `json:"last_stats"`
}

// NewMetrics creates metrics whose collectors are registered with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		analysesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "umbra",
			Name:      "analyses_total",
			Help:      "Total analyses by result.",
		}, []string{"result"}),
		analysisSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "umbra",
			Name:      "analysis_duration_seconds",
			Help:      "Duration of full graph rebuilds.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
		filesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "umbra",
			Name:      "files_total",
			Help:      "Source files analyzed by parse status.",
		}, []string{"status"}),
		unresolvedTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "umbra",
			Name:      "unresolved_calls_total",
			Help:      "Call references that matched no declared symbol.",
		}),
		graphNodes: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "umbra",
			Name:      "graph_nodes",
			Help:      "Nodes in the current graph.",
		}),
		graphEdges: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "umbra",
			Name:      "graph_edges",
			Help:      "Calls edges in the current graph.",
		}),
		queriesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "umbra",
			Name:      "graph_queries_total",
			Help:      "Graph queries by operation.",
		}, []string{"operation"}),
	}
}

// RecordAnalysis records the outcome of one analysis. stats and meta are nil
// when the analysis failed.
func (m *Metrics) RecordAnalysis(duration time.Duration, stats *graph.BuildStats, meta *graph.Metadata, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.lastAnalysisTime = time.Now()
	m.lastAnalysisDuration = duration
	m.totalAnalyses++
	m.analysisSeconds.Observe(duration.Seconds())

	if err != nil {
		m.failedAnalyses++
		m.lastAnalysisError = err.Error()
		m.nodeCount, m.edgeCount = 0, 0
		m.lastStats = graph.BuildStats{}
		m.analysesTotal.WithLabelValues("error").Inc()
		m.graphNodes.Set(0)
		m.graphEdges.Set(0)
		return
	}

	m.successfulAnalyses++
	m.lastAnalysisError = ""
	m.analysesTotal.WithLabelValues("success").Inc()

	if stats != nil {
		m.lastStats = *stats
		ok := stats.Files - stats.SyntaxErrors - stats.FailedFiles
		m.filesTotal.WithLabelValues("ok").Add(float64(ok))
		m.filesTotal.WithLabelValues("syntax_error").Add(float64(stats.SyntaxErrors))
		m.filesTotal.WithLabelValues("failed").Add(float64(stats.FailedFiles))
		m.unresolvedTotal.Add(float64(stats.UnresolvedCalls))
	}
	if meta != nil {
		m.nodeCount = meta.NodeCount
		m.edgeCount = meta.EdgeCount
		m.graphNodes.Set(float64(meta.NodeCount))
		m.graphEdges.Set(float64(meta.EdgeCount))
	}
}

// RecordQuery counts one graph query.
func (m *Metrics) RecordQuery(operation graph.QueryOperation) {
	m.queriesTotal.WithLabelValues(string(operation)).Inc()
}

// GetMetrics returns a snapshot of the current metrics.
func (m *Metrics) GetMetrics() MetricsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return MetricsSnapshot{
		LastAnalysisTime:     m.lastAnalysisTime,
		LastAnalysisDuration: m.lastAnalysisDuration,
		LastAnalysisError:    m.lastAnalysisError,
		TotalAnalyses:        m.totalAnalyses,
		SuccessfulAnalyses:   m.successfulAnalyses,
		FailedAnalyses:       m.failedAnalyses,
		NodeCount:            m.nodeCount,
		EdgeCount:            m.edgeCount,
		LastStats:            m.lastStats,
	}
}
