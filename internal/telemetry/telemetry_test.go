package telemetry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/careercrawl/orchestrator/internal/models"
)

func logAt(adapter models.AdapterKind, status models.CrawlLogStatus, start time.Time, dur time.Duration) models.CrawlLog {
	end := start.Add(dur)
	return models.CrawlLog{
		CompanyID: "c1",
		Adapter:   adapter,
		StartedAt: start,
		EndedAt:   &end,
		Status:    status,
	}
}

func TestAggregator_HealthyAboveNinetyPercent(t *testing.T) {
	a := NewAggregator()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 9; i++ {
		a.RecordCrawlLog(logAt(models.AdapterStructuredA, models.CrawlLogCompleted, base, time.Second))
	}
	a.RecordCrawlLog(logAt(models.AdapterStructuredA, models.CrawlLogFailed, base, time.Second))

	snap := a.Snapshot()
	kh := snap.PerKind[models.AdapterStructuredA]
	assert.Equal(t, 10, kh.TotalRuns)
	assert.Equal(t, 1, kh.ErrorCount)
	assert.InDelta(t, 90.0, kh.SuccessRate, 0.01)
	assert.Equal(t, HealthHealthy, kh.Health)
}

func TestAggregator_WarningBetweenSeventyAndEightyNine(t *testing.T) {
	a := NewAggregator()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 7; i++ {
		a.RecordCrawlLog(logAt(models.AdapterStructuredB, models.CrawlLogCompleted, base, time.Second))
	}
	for i := 0; i < 3; i++ {
		a.RecordCrawlLog(logAt(models.AdapterStructuredB, models.CrawlLogFailed, base, time.Second))
	}

	kh := a.Snapshot().PerKind[models.AdapterStructuredB]
	assert.InDelta(t, 70.0, kh.SuccessRate, 0.01)
	assert.Equal(t, HealthWarning, kh.Health)
}

func TestAggregator_ErrorBelowSeventyPercent(t *testing.T) {
	a := NewAggregator()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	a.RecordCrawlLog(logAt(models.AdapterAIParsed, models.CrawlLogCompleted, base, time.Second))
	for i := 0; i < 2; i++ {
		a.RecordCrawlLog(logAt(models.AdapterAIParsed, models.CrawlLogFailed, base, time.Second))
	}

	kh := a.Snapshot().PerKind[models.AdapterAIParsed]
	assert.Less(t, kh.SuccessRate, 70.0)
	assert.Equal(t, HealthError, kh.Health)
}

func TestAggregator_OrchestratorScopeLogsIgnored(t *testing.T) {
	a := NewAggregator()
	a.RecordCrawlLog(models.CrawlLog{CompanyID: "", Status: models.CrawlLogFailed})

	snap := a.Snapshot()
	assert.Empty(t, snap.PerKind)
}

func TestAggregator_RingBufferBoundedToWindow(t *testing.T) {
	a := NewAggregator()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < maxLogsPerKind+50; i++ {
		a.RecordCrawlLog(logAt(models.AdapterStructuredA, models.CrawlLogCompleted, base, time.Second))
	}

	kh := a.Snapshot().PerKind[models.AdapterStructuredA]
	assert.Equal(t, maxLogsPerKind, kh.TotalRuns)
}

func TestAggregator_IncRankerParseError(t *testing.T) {
	a := NewAggregator()
	a.IncRankerParseError()
	a.IncRankerParseError()

	require.Equal(t, 2, a.Snapshot().RankerParseErrors)
}
