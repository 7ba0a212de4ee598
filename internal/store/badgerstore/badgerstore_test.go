package badgerstore

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/careercrawl/orchestrator/internal/config"
	"github.com/careercrawl/orchestrator/internal/models"
	"github.com/careercrawl/orchestrator/internal/store"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dir, err := os.MkdirTemp("", "careercrawl-badger-test")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })

	s, err := New(config.StoreConfig{BadgerPath: dir})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPutAndGetCompany(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	company := models.Company{ID: "co-1", Name: "Acme", Active: true, Adapter: models.AdapterStructuredA}
	require.NoError(t, s.PutCompany(ctx, company))

	got, err := s.GetCompany(ctx, "co-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Acme", got.Name)
}

func TestListActiveCompanies_NullsFirstThenAscending(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	t1 := time.Now().Add(-time.Hour)
	t2 := time.Now()

	require.NoError(t, s.PutCompany(ctx, models.Company{ID: "a", Active: true, LastCrawledAt: &t2}))
	require.NoError(t, s.PutCompany(ctx, models.Company{ID: "b", Active: true, LastCrawledAt: nil}))
	require.NoError(t, s.PutCompany(ctx, models.Company{ID: "c", Active: true, LastCrawledAt: &t1}))
	require.NoError(t, s.PutCompany(ctx, models.Company{ID: "d", Active: false}))

	companies, err := s.ListActiveCompanies(ctx)
	require.NoError(t, err)
	require.Len(t, companies, 3)
	assert.Equal(t, "b", companies[0].ID)
	assert.Equal(t, "c", companies[1].ID)
	assert.Equal(t, "a", companies[2].ID)
}

func TestUpsertJob_InsertsThenUpdatesThenUnchanged(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	posting := models.PostingNormalized{
		CanonicalURL: "https://co.example/j/1",
		Title:        "Engineer",
		Location:     "Remote",
		Description:  "build things",
	}

	result, err := s.UpsertJob(ctx, posting, "co-1")
	require.NoError(t, err)
	assert.Equal(t, store.ActionInserted, result.Action)

	result2, err := s.UpsertJob(ctx, posting, "co-1")
	require.NoError(t, err)
	assert.Equal(t, store.ActionUnchanged, result2.Action)
	assert.Equal(t, result.JobID, result2.JobID)

	posting.Title = "Senior Engineer"
	result3, err := s.UpsertJob(ctx, posting, "co-1")
	require.NoError(t, err)
	assert.Equal(t, store.ActionUpdated, result3.Action)
	assert.Equal(t, result.JobID, result3.JobID)

	job, err := s.GetJob(ctx, result.JobID)
	require.NoError(t, err)
	assert.Equal(t, "Senior Engineer", job.Title)
}

func TestUpsertJob_DistinctCompaniesDoNotCollide(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	posting := models.PostingNormalized{CanonicalURL: "https://co.example/j/1", Title: "Engineer"}

	r1, err := s.UpsertJob(ctx, posting, "co-1")
	require.NoError(t, err)
	r2, err := s.UpsertJob(ctx, posting, "co-2")
	require.NoError(t, err)

	assert.Equal(t, store.ActionInserted, r1.Action)
	assert.Equal(t, store.ActionInserted, r2.Action)
	assert.NotEqual(t, r1.JobID, r2.JobID)
}

func TestAnnotateJobAI_NullScoreForcesUnrecommended(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	posting := models.PostingNormalized{CanonicalURL: "https://co.example/j/1", Title: "Engineer"}
	result, err := s.UpsertJob(ctx, posting, "co-1")
	require.NoError(t, err)

	rank := 1
	ai := models.AIAnnotation{Recommended: true, Rank: &rank}
	require.NoError(t, s.AnnotateJobAI(ctx, result.JobID, ai))

	job, err := s.GetJob(ctx, result.JobID)
	require.NoError(t, err)
	assert.False(t, job.AI.Recommended)
	assert.Nil(t, job.AI.Rank)
}

func TestCrawlLogLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	started := time.Now()
	logID, err := s.OpenCrawlLog(ctx, "co-1", models.AdapterStructuredA, started)
	require.NoError(t, err)

	require.NoError(t, s.CloseCrawlLog(ctx, logID, models.CrawlLogCompleted, 3, "", started.Add(time.Second)))

	logs, err := s.RecentLogs(ctx, started.Add(-time.Minute), 10)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, models.CrawlLogCompleted, logs[0].Status)
	assert.Equal(t, 3, logs[0].JobsFound)
}

func TestAggregateByAdapterKind_ComputesSuccessRate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	started := time.Now()

	ok1, _ := s.OpenCrawlLog(ctx, "co-1", models.AdapterStructuredA, started)
	s.CloseCrawlLog(ctx, ok1, models.CrawlLogCompleted, 2, "", started.Add(time.Second))

	ok2, _ := s.OpenCrawlLog(ctx, "co-2", models.AdapterStructuredA, started)
	s.CloseCrawlLog(ctx, ok2, models.CrawlLogFailed, 0, "boom", started.Add(time.Second))

	aggregates, err := s.AggregateByAdapterKind(ctx, time.Hour)
	require.NoError(t, err)
	require.Len(t, aggregates, 1)
	assert.Equal(t, models.AdapterStructuredA, aggregates[0].Adapter)
	assert.Equal(t, 2, aggregates[0].TotalRuns)
	assert.Equal(t, 1, aggregates[0].ErrorCount)
	assert.InDelta(t, 50.0, aggregates[0].SuccessRate, 0.01)
}

func TestUpdateCompanyStats_TracksConsecutiveEmptyRuns(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.PutCompany(ctx, models.Company{ID: "co-1", Active: true}))

	require.NoError(t, s.UpdateCompanyStats(ctx, "co-1", 0, time.Now()))
	company, err := s.GetCompany(ctx, "co-1")
	require.NoError(t, err)
	assert.Equal(t, 1, company.ConsecutiveEmptyRuns)

	require.NoError(t, s.UpdateCompanyStats(ctx, "co-1", 2, time.Now()))
	company, err = s.GetCompany(ctx, "co-1")
	require.NoError(t, err)
	assert.Equal(t, 0, company.ConsecutiveEmptyRuns)
	assert.Equal(t, 2, company.JobsFoundTotal)
}

func TestTouchLastCrawled_LeavesCountersUntouched(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.PutCompany(ctx, models.Company{ID: "co-2", Active: true}))
	require.NoError(t, s.UpdateCompanyStats(ctx, "co-2", 3, time.Now()))

	company, err := s.GetCompany(ctx, "co-2")
	require.NoError(t, err)
	require.Equal(t, 0, company.ConsecutiveEmptyRuns)
	require.Equal(t, 3, company.JobsFoundTotal)

	crawledAt := time.Now()
	require.NoError(t, s.TouchLastCrawled(ctx, "co-2", crawledAt))

	company, err = s.GetCompany(ctx, "co-2")
	require.NoError(t, err)
	assert.True(t, company.LastCrawledAt.Equal(crawledAt))
	assert.Equal(t, 0, company.ConsecutiveEmptyRuns)
	assert.Equal(t, 3, company.JobsFoundTotal)
}
