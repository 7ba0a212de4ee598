package models

import "time"

// JobStatus is the user-facing lifecycle state of a persisted posting.
type JobStatus string

const (
	JobStatusNew      JobStatus = "new"
	JobStatusViewed   JobStatus = "viewed"
	JobStatusApplied  JobStatus = "applied"
	JobStatusRejected JobStatus = "rejected"
	JobStatusArchived JobStatus = "archived"
	JobStatusSaved    JobStatus = "saved"
)

// PipelineStage tracks where a job sits in the user's application workflow.
type PipelineStage string

const (
	StageDiscover PipelineStage = "discover"
	StageReview   PipelineStage = "review"
	StagePrepare  PipelineStage = "prepare"
	StageApply    PipelineStage = "apply"
	StageFollowUp PipelineStage = "follow_up"
	StageArchive  PipelineStage = "archive"
)

// AIAnnotation holds the LLM ranker's scoring output for one job. It is
// replaced atomically as a whole (spec.md §4.3 annotate_job_ai).
type AIAnnotation struct {
	MatchScore       *int       `json:"match_score"`
	Recommended      bool       `json:"recommended"`
	Summary          string     `json:"summary"`
	Pros             []string   `json:"pros"`
	Cons             []string   `json:"cons"`
	MatchedKeywords  []string   `json:"matched_keywords"`
	Rank             *int       `json:"rank"`
	RecommendedOn    *time.Time `json:"recommended_on"`
}

// Normalize enforces spec.md §3's Job invariant: a null match score means
// the job can never be recommended or ranked.
func (a *AIAnnotation) Normalize() {
	if a.MatchScore == nil {
		a.Recommended = false
		a.Rank = nil
	}
}

// Job is a persisted, deduplicated posting, optionally annotated by the
// ranker. Jobs are never deleted by the core; archival is a status value.
type Job struct {
	ID            string        `json:"id" badgerhold:"key"`
	CompanyID     string        `json:"company_id" badgerholdIndex:"CompanyID"`
	ExternalID    *string       `json:"external_id"`
	CanonicalURL  string        `json:"canonical_url"`
	Title         string        `json:"title"`
	Location      string        `json:"location"`
	Description   string        `json:"description"`
	PostedAt      *time.Time    `json:"posted_at"`
	DiscoveredAt  time.Time     `json:"discovered_at" badgerholdIndex:"DiscoveredAt"`
	Status        JobStatus     `json:"status" badgerholdIndex:"Status"`
	Stage         PipelineStage `json:"stage"`
	AI            AIAnnotation  `json:"ai"`

	// UniqKey mirrors UniquenessKey() as a stored, indexed field so the
	// store can look up a potential collision with a single indexed query
	// instead of a full scan.
	UniqKey string `json:"-" badgerholdIndex:"UniqKey"`
}

// UniquenessKey returns the (company, identity) pair spec.md §3 defines as
// the upsert collision key: external id when present, else canonical URL.
func (j *Job) UniquenessKey() string {
	if j.ExternalID != nil && *j.ExternalID != "" {
		return j.CompanyID + "|ext:" + *j.ExternalID
	}
	return j.CompanyID + "|url:" + j.CanonicalURL
}

// SyncUniqKey recomputes UniqKey from the current identity fields; call
// before every write.
func (j *Job) SyncUniqKey() {
	j.UniqKey = j.UniquenessKey()
}
