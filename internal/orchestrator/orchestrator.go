// Package orchestrator implements the Orchestrator (C6): the single
// control surface that drives a crawl run across companies, fans postings
// out to the ranker with bounded concurrency, and exposes a consistent
// status snapshot to callers. Grounded on the teacher's
// internal/queue/workers.JobProcessor (mutex-guarded running flag,
// context.CancelFunc for stop, sync.WaitGroup for in-flight goroutines)
// and internal/jobs/orchestrator.jobOrchestrator (background-goroutine
// monitoring with arbor correlation logging), generalized from
// job-progress monitoring to spec.md §4.6's company-queue/ranker-stage
// pipeline.
package orchestrator

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/careercrawl/orchestrator/internal/adapters"
	"github.com/careercrawl/orchestrator/internal/clock"
	"github.com/careercrawl/orchestrator/internal/common"
	"github.com/careercrawl/orchestrator/internal/errs"
	"github.com/careercrawl/orchestrator/internal/llm"
	"github.com/careercrawl/orchestrator/internal/models"
	"github.com/careercrawl/orchestrator/internal/normalize"
	"github.com/careercrawl/orchestrator/internal/ranker"
	"github.com/careercrawl/orchestrator/internal/store"
)

// ProfileSource supplies the single active profile the ranker snapshots
// once per run, per spec.md §4.6 step 1.
type ProfileSource interface {
	ActiveProfile(ctx context.Context) (models.UserProfile, error)
}

// AdapterFetcher and Extractor are the narrow capabilities the
// orchestrator wires into internal/adapters.ForKind for each company.
type AdapterFetcher = adapters.Fetcher
type Extractor = adapters.Extractor

// Metrics is the narrow counter surface the orchestrator reports through;
// internal/telemetry satisfies it.
type Metrics interface {
	ranker.Metrics
	RecordCrawlLog(log models.CrawlLog)
}

// StatusSnapshot is the read-only view status_snapshot() hands callers
// per spec.md §6.
type StatusSnapshot struct {
	IsRunning      bool
	IsPaused       bool
	RunType        models.RunType
	Processed      int
	Total          int
	CurrentCompany string
	ETASeconds     *float64
}

// Orchestrator is the process-wide control surface (C6). Exactly one
// instance exists per process; its exported methods are safe to call
// concurrently from the control API and the scheduler.
type Orchestrator struct {
	store      store.Store
	profiles   ProfileSource
	fetcher    AdapterFetcher
	extractor  Extractor
	llmClient  llm.Client
	clk        clock.Clock
	logger     arbor.ILogger
	metrics    Metrics

	maxConcurrentCompanyCrawls int
	rankerParallelism          int
	rankerThreshold            int
	rankerTimeout              time.Duration
	maxDescriptionChars        int

	mu       sync.Mutex
	phase    models.RunPhase
	paused   bool
	current  *models.RunDescriptor
	cancel   context.CancelFunc
}

// Config bundles the tunables from spec.md §6 the orchestrator needs.
type Config struct {
	MaxConcurrentCompanyCrawls int
	RankerParallelism          int
	RankerThreshold            int
	RankerTimeout              time.Duration
	MaxDescriptionChars        int
}

// New builds an idle Orchestrator.
func New(
	st store.Store,
	profiles ProfileSource,
	fetcher AdapterFetcher,
	extractor Extractor,
	llmClient llm.Client,
	clk clock.Clock,
	logger arbor.ILogger,
	metrics Metrics,
	cfg Config,
) *Orchestrator {
	if cfg.MaxConcurrentCompanyCrawls < 1 {
		cfg.MaxConcurrentCompanyCrawls = 1
	}
	if cfg.RankerParallelism < 1 {
		cfg.RankerParallelism = 1
	}
	return &Orchestrator{
		store:                      st,
		profiles:                   profiles,
		fetcher:                    fetcher,
		extractor:                  extractor,
		llmClient:                  llmClient,
		clk:                        clk,
		logger:                     logger,
		metrics:                    metrics,
		maxConcurrentCompanyCrawls: cfg.MaxConcurrentCompanyCrawls,
		rankerParallelism:          cfg.RankerParallelism,
		rankerThreshold:            cfg.RankerThreshold,
		rankerTimeout:              cfg.RankerTimeout,
		maxDescriptionChars:        cfg.MaxDescriptionChars,
		phase:                      models.PhaseIdle,
	}
}

// Trigger starts a run of the given type. all_companies builds its own
// queue from the store; search uses the caller-supplied company ids in
// order, per spec.md §4.6 step 2. Returns errs.ErrBusy if a run is
// already active.
func (o *Orchestrator) Trigger(runType models.RunType, companyIDs []string) error {
	o.mu.Lock()
	if o.phase != models.PhaseIdle {
		o.mu.Unlock()
		return errs.ErrBusy
	}

	ctx, cancel := context.WithCancel(context.Background())
	o.phase = models.PhaseRunning
	o.paused = false
	o.cancel = cancel
	o.current = &models.RunDescriptor{
		Type:      runType,
		StartedAt: o.clk.Now(),
	}
	o.mu.Unlock()

	go o.run(ctx, runType, companyIDs)
	return nil
}

// Cancel requests cooperative cancellation of the active run. In-flight
// company workers finish their current company; no mid-company abort.
func (o *Orchestrator) Cancel() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.phase != models.PhaseRunning && o.phase != models.PhasePaused {
		return errs.ErrNotRunning
	}
	o.phase = models.PhaseCancelling
	if o.cancel != nil {
		o.cancel()
	}
	return nil
}

// Pause sets the paused flag that IsPaused and StatusSnapshot report; it
// never interrupts an in-progress run. The Scheduler keeps its own paused
// flag and does not read this one.
func (o *Orchestrator) Pause() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.paused = true
	return nil
}

// Resume clears the paused flag.
func (o *Orchestrator) Resume() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.paused = false
	return nil
}

// IsPaused reports the flag set by Pause.
func (o *Orchestrator) IsPaused() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.paused
}

// IsIdle reports whether a new run could be triggered right now.
func (o *Orchestrator) IsIdle() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.phase == models.PhaseIdle
}

// StatusSnapshot returns a consistent, copy-on-read view of the current
// run, per spec.md §5's "readers observe it through a consistent
// snapshot" rule.
func (o *Orchestrator) StatusSnapshot() StatusSnapshot {
	o.mu.Lock()
	defer o.mu.Unlock()

	snap := StatusSnapshot{
		IsRunning: o.phase == models.PhaseRunning || o.phase == models.PhaseCancelling,
		IsPaused:  o.paused,
	}
	if o.current == nil {
		return snap
	}
	cur := o.current.Clone()
	snap.RunType = cur.Type
	snap.Processed = cur.Processed
	snap.Total = cur.Total
	snap.CurrentCompany = cur.CurrentCompany
	if eta := cur.ETA(); eta != nil {
		secs := eta.Seconds()
		snap.ETASeconds = &secs
	}
	return snap
}

// run executes the six-step algorithm of spec.md §4.6. It always returns
// the orchestrator to idle, whatever the outcome.
func (o *Orchestrator) run(ctx context.Context, runType models.RunType, companyIDs []string) {
	runLogger := o.logger.WithCorrelationId(fmt.Sprintf("run-%d", o.clk.Now().UnixNano()))

	defer func() {
		o.mu.Lock()
		o.phase = models.PhaseIdle
		o.current = nil
		o.cancel = nil
		o.mu.Unlock()
	}()

	profile, err := o.profiles.ActiveProfile(ctx)
	if err != nil {
		runLogger.Error().Err(err).Msg("orchestrator: failed to snapshot user profile, aborting run")
		o.writeFatalLog(ctx, err)
		return
	}
	profileSnapshot := profile.Snapshot()

	companies, err := o.buildQueue(ctx, runType, companyIDs)
	if err != nil {
		runLogger.Error().Err(err).Msg("orchestrator: failed to build company queue, aborting run")
		o.writeFatalLog(ctx, err)
		return
	}

	o.mu.Lock()
	o.current.CompanyQueue = companyIDByList(companies)
	o.current.Total = len(companies)
	o.mu.Unlock()

	jobIDs := make(chan string, o.rankerParallelism*4)
	rnk := ranker.New(*profileSnapshot, o.llmClient, o.rankerParallelism, o.rankerThreshold, o.rankerTimeout, runLogger, o.metrics)

	var rankerWG sync.WaitGroup
	for i := 0; i < o.rankerParallelism; i++ {
		rankerWG.Add(1)
		workerIdx := i
		common.SafeGo(runLogger, fmt.Sprintf("ranker-worker:%d", workerIdx), func() {
			o.rankerWorker(ctx, rnk, jobIDs, &rankerWG, runLogger)
		})
	}

	sem := make(chan struct{}, o.maxConcurrentCompanyCrawls)
	var companyWG sync.WaitGroup

	for _, company := range companies {
		if o.cancelRequested() {
			break
		}

		sem <- struct{}{}
		o.beginCompany(company.ID)

		companyWG.Add(1)
		common.SafeGo(runLogger, fmt.Sprintf("crawl-company:%s", company.ID), func() {
			defer companyWG.Done()
			defer func() { <-sem }()
			o.crawlCompany(ctx, company, jobIDs, runLogger)
		})
	}

	companyWG.Wait()
	close(jobIDs)
	rankerWG.Wait()
}

func (o *Orchestrator) cancelRequested() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.phase == models.PhaseCancelling
}

func (o *Orchestrator) beginCompany(companyID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.current != nil {
		o.current.CurrentCompany = companyID
	}
}

func (o *Orchestrator) finishCompany(duration time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.current == nil {
		return
	}
	o.current.Processed++
	o.current.RecordCompanyDuration(duration)
}

// buildQueue implements spec.md §4.6 step 2.
func (o *Orchestrator) buildQueue(ctx context.Context, runType models.RunType, companyIDs []string) ([]models.Company, error) {
	if runType == models.RunSearch {
		companies := make([]models.Company, 0, len(companyIDs))
		for _, id := range companyIDs {
			c, err := o.store.GetCompany(ctx, id)
			if err != nil {
				return nil, err
			}
			if c != nil {
				companies = append(companies, *c)
			}
		}
		return companies, nil
	}

	companies, err := o.store.ListActiveCompanies(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(companies, func(i, j int) bool {
		a, b := companies[i].LastCrawledAt, companies[j].LastCrawledAt
		switch {
		case a == nil && b == nil:
			return companies[i].ID < companies[j].ID
		case a == nil:
			return true
		case b == nil:
			return false
		case !a.Equal(*b):
			return a.Before(*b)
		default:
			return companies[i].ID < companies[j].ID
		}
	})
	return companies, nil
}

// crawlCompany runs steps 3a-3g and step 4 for one company.
func (o *Orchestrator) crawlCompany(ctx context.Context, company models.Company, jobIDs chan<- string, logger arbor.ILogger) {
	start := o.clk.Now()
	companyLogger := logger.WithCorrelationId(company.ID)

	// Cancellation observed here means this worker never began
	// inserting postings for this company; close the log as cancelled
	// rather than running the adapter at all, per spec.md §4.6 step 6.
	if o.cancelRequested() {
		logID, err := o.store.OpenCrawlLog(ctx, company.ID, company.Adapter, start)
		if err == nil {
			endedAt := o.clk.Now()
			_ = o.store.CloseCrawlLog(ctx, logID, models.CrawlLogCancelled, 0, "", endedAt)
			o.reportLog(models.CrawlLog{CompanyID: company.ID, Adapter: company.Adapter, StartedAt: start, EndedAt: &endedAt, Status: models.CrawlLogCancelled})
		}
		o.finishCompany(o.clk.Now().Sub(start))
		return
	}

	logID, err := o.store.OpenCrawlLog(ctx, company.ID, company.Adapter, start)
	if err != nil {
		companyLogger.Error().Err(err).Msg("orchestrator: failed to open crawl log, skipping company")
		o.finishCompany(o.clk.Now().Sub(start))
		return
	}

	adapter := adapters.ForKind(company.Adapter, o.fetcher, o.extractor)
	if adapter == nil {
		o.closeFailed(ctx, logID, company, start, fmt.Errorf("no adapter for kind %q", company.Adapter), companyLogger)
		return
	}

	postings, err := adapter.ListJobs(ctx, company)
	if err != nil {
		o.closeFailed(ctx, logID, company, start, err, companyLogger)
		return
	}

	changedIDs := make([]string, 0, len(postings))
	for _, raw := range postings {
		normalized := normalize.Normalize(raw, o.maxDescriptionChars)

		result, err := o.upsertWithRetry(ctx, normalized, company.ID)
		if err != nil {
			o.closeFailed(ctx, logID, company, start, err, companyLogger)
			return
		}
		if result.Action == store.ActionInserted || result.Action == store.ActionUpdated {
			changedIDs = append(changedIDs, result.JobID)
		}
	}

	endedAt := o.clk.Now()
	status := models.CrawlLogCompleted

	if err := o.store.CloseCrawlLog(ctx, logID, status, len(postings), "", endedAt); err != nil {
		companyLogger.Warn().Err(err).Msg("orchestrator: failed to close crawl log")
	}
	if err := o.store.UpdateCompanyStats(ctx, company.ID, len(postings), endedAt); err != nil {
		companyLogger.Warn().Err(err).Msg("orchestrator: failed to update company stats")
	}
	o.reportLog(models.CrawlLog{
		CompanyID: company.ID,
		Adapter:   company.Adapter,
		StartedAt: start,
		EndedAt:   &endedAt,
		Status:    status,
		JobsFound: len(postings),
	})

	for _, id := range changedIDs {
		select {
		case jobIDs <- id:
		case <-ctx.Done():
		}
	}

	o.finishCompany(endedAt.Sub(start))
}

// upsertWithRetry retries a single store write once on failure, per
// spec.md §4.6's "Job Store write fails" failure-semantics bullet.
func (o *Orchestrator) upsertWithRetry(ctx context.Context, posting models.PostingNormalized, companyID string) (store.UpsertResult, error) {
	result, err := o.store.UpsertJob(ctx, posting, companyID)
	if err == nil {
		return result, nil
	}
	return o.store.UpsertJob(ctx, posting, companyID)
}

func (o *Orchestrator) closeFailed(ctx context.Context, logID string, company models.Company, start time.Time, cause error, logger arbor.ILogger) {
	logger.Warn().Err(cause).Str("company_id", company.ID).Msg("orchestrator: company crawl failed")
	endedAt := o.clk.Now()
	if err := o.store.CloseCrawlLog(ctx, logID, models.CrawlLogFailed, 0, cause.Error(), endedAt); err != nil {
		logger.Warn().Err(err).Msg("orchestrator: failed to close failed crawl log")
	}
	// last-crawled advances even on failure; counters do not, per
	// spec.md §4.6's failure-semantics table.
	if err := o.store.TouchLastCrawled(ctx, company.ID, endedAt); err != nil {
		logger.Warn().Err(err).Msg("orchestrator: failed to update company stats after failed crawl")
	}
	o.reportLog(models.CrawlLog{
		CompanyID: company.ID,
		Adapter:   company.Adapter,
		StartedAt: start,
		EndedAt:   &endedAt,
		Status:    models.CrawlLogFailed,
		Error:     cause.Error(),
	})
	o.finishCompany(endedAt.Sub(start))
}

func (o *Orchestrator) reportLog(log models.CrawlLog) {
	if o.metrics != nil {
		o.metrics.RecordCrawlLog(log)
	}
}

// writeFatalLog records an orchestrator-scope CrawlLog (CompanyID empty)
// for a run that never got past setup, per spec.md §4.6's last failure
// bullet.
func (o *Orchestrator) writeFatalLog(ctx context.Context, cause error) {
	now := o.clk.Now()
	logID, err := o.store.OpenCrawlLog(ctx, "", "", now)
	if err != nil {
		return
	}
	_ = o.store.CloseCrawlLog(ctx, logID, models.CrawlLogFailed, 0, cause.Error(), o.clk.Now())
}

// rankerWorker drains jobIDs until the channel closes, annotating each
// job with bounded parallelism per spec.md §4.6 step 5.
func (o *Orchestrator) rankerWorker(ctx context.Context, rnk *ranker.Ranker, jobIDs <-chan string, wg *sync.WaitGroup, logger arbor.ILogger) {
	defer wg.Done()
	for id := range jobIDs {
		job, err := o.store.GetJob(ctx, id)
		if err != nil || job == nil {
			continue
		}
		annotation, err := rnk.Rank(ctx, *job)
		if err != nil {
			// context cancelled; stop ranking, let the channel drain.
			continue
		}
		if err := o.store.AnnotateJobAI(ctx, id, annotation); err != nil {
			logger.Warn().Err(err).Str("job_id", id).Msg("orchestrator: failed to persist ranker annotation")
		}
	}
}

func companyIDByList(companies []models.Company) []string {
	ids := make([]string, len(companies))
	for i, c := range companies {
		ids[i] = c.ID
	}
	return ids
}
