// Package store defines the Job Store contract (C3): persistence for
// companies, jobs, and crawl logs, with uniqueness enforcement and the
// telemetry queries spec.md §4.3 requires. internal/store/badgerstore is
// the concrete implementation.
package store

import (
	"context"
	"time"

	"github.com/careercrawl/orchestrator/internal/models"
)

// UpsertAction reports what UpsertJob did with a posting.
type UpsertAction string

const (
	ActionInserted  UpsertAction = "inserted"
	ActionUpdated   UpsertAction = "updated"
	ActionUnchanged UpsertAction = "unchanged"
)

// UpsertResult is UpsertJob's outcome.
type UpsertResult struct {
	Action UpsertAction
	JobID  string
}

// AdapterKindAggregate is one row of AggregateByAdapterKind's result.
type AdapterKindAggregate struct {
	Adapter            models.AdapterKind
	TotalRuns          int
	ErrorCount         int
	SuccessRate        float64
	AvgDurationSeconds float64
}

// Store is the Job Store contract of spec.md §4.3. Writes are
// serializable per job; long reads must not block writers.
type Store interface {
	// ListActiveCompanies returns active companies ordered by
	// last-crawled ascending, nulls (never-crawled) first.
	ListActiveCompanies(ctx context.Context) ([]models.Company, error)

	// GetCompany and PutCompany are ADDED operations the
	// spec's Company type implies but doesn't enumerate as Store
	// operations; a Store with no way to seed or read back a Company
	// would be untestable. See DESIGN.md.
	GetCompany(ctx context.Context, companyID string) (*models.Company, error)
	PutCompany(ctx context.Context, company models.Company) error

	// UpsertJob inserts a new job or refreshes a changed existing one,
	// keyed by Job.UniquenessKey(). Discovery timestamp is preserved on
	// update; mutable fields are refreshed only if changed.
	UpsertJob(ctx context.Context, posting models.PostingNormalized, companyID string) (UpsertResult, error)

	// GetJob is an ADDED read accessor the ranker and tests need to load
	// a job by id.
	GetJob(ctx context.Context, jobID string) (*models.Job, error)

	// AnnotateJobAI atomically replaces all AI fields on one job.
	AnnotateJobAI(ctx context.Context, jobID string, ai models.AIAnnotation) error

	// OpenCrawlLog starts a new running log for a company's crawl
	// attempt and returns its id.
	OpenCrawlLog(ctx context.Context, companyID string, adapter models.AdapterKind, startedAt time.Time) (string, error)

	// CloseCrawlLog finalizes a previously opened log.
	CloseCrawlLog(ctx context.Context, logID string, status models.CrawlLogStatus, jobsFound int, errMsg string, endedAt time.Time) error

	// UpdateCompanyStats advances a company's crawl bookkeeping after an
	// adapter run that completed without error (jobsFoundDelta is the
	// count of postings the adapter actually returned, including zero).
	UpdateCompanyStats(ctx context.Context, companyID string, jobsFoundDelta int, crawledAt time.Time) error

	// TouchLastCrawled advances last-crawled-at only, for a crawl attempt
	// that failed before producing a posting count — ConsecutiveEmptyRuns
	// and JobsFoundTotal are left untouched, per spec.md §4.6's
	// failure-semantics table.
	TouchLastCrawled(ctx context.Context, companyID string, crawledAt time.Time) error

	// RecentLogs returns crawl logs started at or after since, newest
	// first, bounded by limit.
	RecentLogs(ctx context.Context, since time.Time, limit int) ([]models.CrawlLog, error)

	// AggregateByAdapterKind summarizes crawl logs started within window
	// of now, grouped by adapter kind. internal/telemetry does not call it;
	// its Aggregator computes health from crawl logs it holds in memory.
	AggregateByAdapterKind(ctx context.Context, window time.Duration) ([]AdapterKindAggregate, error)

	Close() error
}
