package badgerstore

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/timshannon/badgerhold/v4"

	"github.com/careercrawl/orchestrator/internal/errs"
	"github.com/careercrawl/orchestrator/internal/models"
	"github.com/careercrawl/orchestrator/internal/store"
)

func (s *Store) OpenCrawlLog(ctx context.Context, companyID string, adapter models.AdapterKind, startedAt time.Time) (string, error) {
	log := models.CrawlLog{
		ID:        uuid.NewString(),
		CompanyID: companyID,
		Adapter:   adapter,
		StartedAt: startedAt,
		Status:    models.CrawlLogRunning,
	}
	if err := s.db.store.Insert(log.ID, &log); err != nil {
		return "", fmt.Errorf("%w: %v", errs.ErrStoreUnavailable, err)
	}
	return log.ID, nil
}

func (s *Store) CloseCrawlLog(ctx context.Context, logID string, status models.CrawlLogStatus, jobsFound int, errMsg string, endedAt time.Time) error {
	var log models.CrawlLog
	if err := s.db.store.Get(logID, &log); err != nil {
		if err == badgerhold.ErrNotFound {
			return errs.ErrStoreConflict
		}
		return fmt.Errorf("%w: %v", errs.ErrStoreUnavailable, err)
	}

	log.Status = status
	log.JobsFound = jobsFound
	log.Error = errMsg
	log.EndedAt = &endedAt

	if err := s.db.store.Update(log.ID, &log); err != nil {
		return fmt.Errorf("%w: %v", errs.ErrStoreUnavailable, err)
	}
	return nil
}

func (s *Store) RecentLogs(ctx context.Context, since time.Time, limit int) ([]models.CrawlLog, error) {
	var logs []models.CrawlLog
	query := badgerhold.Where("StartedAt").Ge(since).SortBy("StartedAt").Reverse()
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := s.db.store.Find(&logs, query); err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrStoreUnavailable, err)
	}
	return logs, nil
}

// AggregateByAdapterKind groups crawl logs started within window of now
// by adapter kind, computing per-kind run counts, error counts and success
// rate from the persisted logs (internal/telemetry keeps its own in-memory
// copy and does not call this).
func (s *Store) AggregateByAdapterKind(ctx context.Context, window time.Duration) ([]store.AdapterKindAggregate, error) {
	since := time.Now().Add(-window)

	var logs []models.CrawlLog
	query := badgerhold.Where("StartedAt").Ge(since)
	if err := s.db.store.Find(&logs, query); err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrStoreUnavailable, err)
	}

	byKind := make(map[models.AdapterKind]*store.AdapterKindAggregate)
	durationTotal := make(map[models.AdapterKind]float64)
	durationSamples := make(map[models.AdapterKind]int)

	for _, log := range logs {
		agg, ok := byKind[log.Adapter]
		if !ok {
			agg = &store.AdapterKindAggregate{Adapter: log.Adapter}
			byKind[log.Adapter] = agg
		}
		agg.TotalRuns++
		if log.Status == models.CrawlLogFailed {
			agg.ErrorCount++
		}
		if log.EndedAt != nil {
			durationTotal[log.Adapter] += log.EndedAt.Sub(log.StartedAt).Seconds()
			durationSamples[log.Adapter]++
		}
	}

	out := make([]store.AdapterKindAggregate, 0, len(byKind))
	for kind, agg := range byKind {
		if agg.TotalRuns > 0 {
			agg.SuccessRate = float64(agg.TotalRuns-agg.ErrorCount) / float64(agg.TotalRuns) * 100
		}
		if n := durationSamples[kind]; n > 0 {
			agg.AvgDurationSeconds = durationTotal[kind] / float64(n)
		}
		out = append(out, *agg)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Adapter < out[j].Adapter })
	return out, nil
}
