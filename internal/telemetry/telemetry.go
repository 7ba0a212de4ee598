// Package telemetry implements the Telemetry component (C8): rolling
// per-adapter-kind health derived from recent crawl logs, plus the
// ranker's parse-error counter. Grounded on the teacher's
// internal/services/events.StepEventAggregator (a small mutex-guarded
// struct tracking per-key state, recomputed rather than pushed), adapted
// from per-step UI-refresh bookkeeping to spec.md §4.8's bounded
// rolling-window health snapshot.
package telemetry

import (
	"sync"
	"time"

	"github.com/careercrawl/orchestrator/internal/models"
)

// HealthLabel is a snapshot-time-only classification; it drives no
// control logic, per spec.md §4.8.
type HealthLabel string

const (
	HealthHealthy HealthLabel = "healthy"
	HealthWarning HealthLabel = "warning"
	HealthError   HealthLabel = "error"
	HealthUnknown HealthLabel = "unknown"
)

// maxLogsPerKind bounds the rolling window of retained CrawlLog summaries
// per adapter kind.
const maxLogsPerKind = 500

// KindHealth is one adapter kind's row in the telemetry snapshot.
type KindHealth struct {
	Adapter            models.AdapterKind
	TotalRuns          int
	ErrorCount         int
	SuccessRate        float64
	AvgDurationSeconds float64
	Health             HealthLabel
}

// Snapshot is the telemetry portion of spec.md §6's status_snapshot.
type Snapshot struct {
	PerKind           map[models.AdapterKind]KindHealth
	RankerParseErrors int
}

// Aggregator keeps a bounded in-memory ring buffer of recent CrawlLog
// summaries per adapter kind, so a snapshot never needs to touch the Job
// Store; health labels are recomputed on every Snapshot() call and never
// persisted, per spec.md §4.8.
type Aggregator struct {
	mu                sync.Mutex
	logsByKind        map[models.AdapterKind][]models.CrawlLog
	rankerParseErrors int
}

// NewAggregator returns an empty Aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{
		logsByKind: make(map[models.AdapterKind][]models.CrawlLog),
	}
}

// RecordCrawlLog appends one finished crawl log to its adapter kind's
// ring buffer, evicting the oldest entry once the window is full.
// Satisfies orchestrator.Metrics.
func (a *Aggregator) RecordCrawlLog(log models.CrawlLog) {
	if log.CompanyID == "" {
		// Orchestrator-scope fatal-run logs carry no adapter kind; they
		// don't belong to any per-kind health row.
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	logs := append(a.logsByKind[log.Adapter], log)
	if len(logs) > maxLogsPerKind {
		logs = logs[len(logs)-maxLogsPerKind:]
	}
	a.logsByKind[log.Adapter] = logs
}

// IncRankerParseError increments the ranker failure counter (LLM call
// error, timeout or unparseable response).
// Satisfies ranker.Metrics.
func (a *Aggregator) IncRankerParseError() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.rankerParseErrors++
}

// Snapshot recomputes success_rate/avg_duration_seconds/health for every
// adapter kind seen so far.
func (a *Aggregator) Snapshot() Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()

	perKind := make(map[models.AdapterKind]KindHealth, len(a.logsByKind))
	for kind, logs := range a.logsByKind {
		perKind[kind] = summarize(kind, logs)
	}

	return Snapshot{
		PerKind:           perKind,
		RankerParseErrors: a.rankerParseErrors,
	}
}

func summarize(kind models.AdapterKind, logs []models.CrawlLog) KindHealth {
	health := KindHealth{Adapter: kind, TotalRuns: len(logs)}
	if len(logs) == 0 {
		health.Health = HealthUnknown
		return health
	}

	var errorCount int
	var totalDuration time.Duration
	var durationSamples int

	for _, l := range logs {
		if l.Status == models.CrawlLogFailed {
			errorCount++
		}
		if l.EndedAt != nil {
			totalDuration += l.EndedAt.Sub(l.StartedAt)
			durationSamples++
		}
	}

	health.ErrorCount = errorCount
	health.SuccessRate = 100 * float64(len(logs)-errorCount) / float64(len(logs))
	if durationSamples > 0 {
		health.AvgDurationSeconds = (totalDuration / time.Duration(durationSamples)).Seconds()
	}
	health.Health = classify(health.SuccessRate)
	return health
}

// classify applies spec.md §4.8's thresholds: >=90 healthy, 70-89
// warning, <70 error.
func classify(successRate float64) HealthLabel {
	switch {
	case successRate >= 90:
		return HealthHealthy
	case successRate >= 70:
		return HealthWarning
	default:
		return HealthError
	}
}
