package models

import "time"

// CrawlLogStatus is the lifecycle state of one company crawl attempt.
type CrawlLogStatus string

const (
	CrawlLogRunning   CrawlLogStatus = "running"
	CrawlLogCompleted CrawlLogStatus = "completed"
	CrawlLogFailed    CrawlLogStatus = "failed"
	CrawlLogCancelled CrawlLogStatus = "cancelled"
)

// CrawlLog records one crawl attempt, scoped to a Company, or to the
// orchestrator itself when CompanyID is empty (a run-level fatal error).
// A company has at most one log with Status=running at any instant.
type CrawlLog struct {
	ID        string         `json:"id" badgerhold:"key"`
	CompanyID string         `json:"company_id" badgerholdIndex:"CompanyID"`
	Adapter   AdapterKind    `json:"adapter" badgerholdIndex:"Adapter"`
	StartedAt time.Time      `json:"started_at" badgerholdIndex:"StartedAt"`
	EndedAt   *time.Time     `json:"ended_at"`
	Status    CrawlLogStatus `json:"status" badgerholdIndex:"Status"`
	JobsFound int            `json:"jobs_found"`
	Error     string         `json:"error,omitempty"`
}
