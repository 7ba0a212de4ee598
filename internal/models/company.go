package models

import "time"

// Company is a career-page source the orchestrator crawls on a schedule.
// AdapterKind is immutable after creation; the orchestrator must never
// schedule a Company whose Active flag is false.
type Company struct {
	ID                   string      `json:"id" badgerhold:"key"`
	Name                 string      `json:"name"`
	CareerEndpoint       string      `json:"career_endpoint"`
	Adapter              AdapterKind `json:"adapter"`
	Active               bool        `json:"active" badgerholdIndex:"Active"`
	LastCrawledAt        *time.Time  `json:"last_crawled_at" badgerholdIndex:"LastCrawledAt"`
	ConsecutiveEmptyRuns int         `json:"consecutive_empty_runs"`
	JobsFoundTotal       int         `json:"jobs_found_total"`
	ViabilityScore       *int        `json:"viability_score"`
}

// RecordCrawl updates the company's counters after a crawl the adapter
// completed without error, per spec.md §4.6 step f: last-crawled always
// advances, the empty-run streak increments on a zero-posting crawl and
// resets otherwise. Do not call this for a failed crawl — an adapter
// error has no jobsFound count to report, and counting it as zero would
// spuriously advance ConsecutiveEmptyRuns. Use TouchLastCrawled instead.
func (c *Company) RecordCrawl(now time.Time, jobsFound int) {
	c.LastCrawledAt = &now
	c.JobsFoundTotal += jobsFound
	if jobsFound == 0 {
		c.ConsecutiveEmptyRuns++
	} else {
		c.ConsecutiveEmptyRuns = 0
	}
}

// TouchLastCrawled advances last-crawled-at only, per spec.md §4.6's
// failure-semantics table: an adapter error still advances the crawl
// clock (so the company isn't picked again immediately) but must leave
// ConsecutiveEmptyRuns/JobsFoundTotal untouched, since the adapter never
// reported a posting count to begin with.
func (c *Company) TouchLastCrawled(now time.Time) {
	c.LastCrawledAt = &now
}
