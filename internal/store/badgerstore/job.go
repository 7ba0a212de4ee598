package badgerstore

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/timshannon/badgerhold/v4"

	"github.com/careercrawl/orchestrator/internal/errs"
	"github.com/careercrawl/orchestrator/internal/models"
	"github.com/careercrawl/orchestrator/internal/store"
)

// UpsertJob enforces the (company, identity) uniqueness rule of spec.md
// §3/§4.3: look up by UniqKey, insert if absent, refresh mutable fields
// only if changed on a match, and always preserve DiscoveredAt. A second
// write winning a race after this read is surfaced as errs.ErrStoreConflict
// so the caller can re-read and treat the posting as unchanged (spec.md
// §7's StoreConflict row).
func (s *Store) UpsertJob(ctx context.Context, posting models.PostingNormalized, companyID string) (store.UpsertResult, error) {
	candidate := models.Job{
		CompanyID:    companyID,
		ExternalID:   posting.ExternalID,
		CanonicalURL: posting.CanonicalURL,
	}
	uniqKey := candidate.UniquenessKey()

	var existing []models.Job
	query := badgerhold.Where("UniqKey").Eq(uniqKey)
	if err := s.db.store.Find(&existing, query); err != nil {
		return store.UpsertResult{}, fmt.Errorf("%w: %v", errs.ErrStoreUnavailable, err)
	}

	if len(existing) == 0 {
		now := time.Now()
		job := models.Job{
			ID:           uuid.NewString(),
			CompanyID:    companyID,
			ExternalID:   posting.ExternalID,
			CanonicalURL: posting.CanonicalURL,
			Title:        posting.Title,
			Location:     posting.Location,
			Description:  posting.Description,
			PostedAt:     posting.PostedAt,
			DiscoveredAt: now,
			Status:       models.JobStatusNew,
			Stage:        models.StageDiscover,
		}
		job.SyncUniqKey()

		if err := s.db.store.Insert(job.ID, &job); err != nil {
			if err == badgerhold.ErrKeyExists {
				return store.UpsertResult{}, errs.ErrStoreConflict
			}
			return store.UpsertResult{}, fmt.Errorf("%w: %v", errs.ErrStoreUnavailable, err)
		}
		return store.UpsertResult{Action: store.ActionInserted, JobID: job.ID}, nil
	}

	if len(existing) > 1 {
		return store.UpsertResult{}, errs.ErrStoreConflict
	}

	job := existing[0]
	changed := false

	if job.Title != posting.Title {
		job.Title = posting.Title
		changed = true
	}
	if job.Location != posting.Location {
		job.Location = posting.Location
		changed = true
	}
	if job.Description != posting.Description {
		job.Description = posting.Description
		changed = true
	}
	if job.CanonicalURL != posting.CanonicalURL {
		job.CanonicalURL = posting.CanonicalURL
		changed = true
	}
	if !postedAtEqual(job.PostedAt, posting.PostedAt) {
		job.PostedAt = posting.PostedAt
		changed = true
	}

	if !changed {
		return store.UpsertResult{Action: store.ActionUnchanged, JobID: job.ID}, nil
	}

	if err := s.db.store.Update(job.ID, &job); err != nil {
		return store.UpsertResult{}, fmt.Errorf("%w: %v", errs.ErrStoreUnavailable, err)
	}
	return store.UpsertResult{Action: store.ActionUpdated, JobID: job.ID}, nil
}

func postedAtEqual(a, b *time.Time) bool {
	if a == nil && b == nil {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	return a.Equal(*b)
}

func (s *Store) GetJob(ctx context.Context, jobID string) (*models.Job, error) {
	var job models.Job
	if err := s.db.store.Get(jobID, &job); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %v", errs.ErrStoreUnavailable, err)
	}
	return &job, nil
}

// AnnotateJobAI atomically replaces the AI block on one job. badgerhold
// has no partial-field update primitive, so this reads the full record,
// replaces the AI field, and writes it back - a single badgerhold.Update
// call per spec.md's "no torn AI annotation" requirement.
func (s *Store) AnnotateJobAI(ctx context.Context, jobID string, ai models.AIAnnotation) error {
	ai.Normalize()

	var job models.Job
	if err := s.db.store.Get(jobID, &job); err != nil {
		if err == badgerhold.ErrNotFound {
			return errs.ErrStoreConflict
		}
		return fmt.Errorf("%w: %v", errs.ErrStoreUnavailable, err)
	}

	job.AI = ai
	if err := s.db.store.Update(job.ID, &job); err != nil {
		return fmt.Errorf("%w: %v", errs.ErrStoreUnavailable, err)
	}
	return nil
}

func (s *Store) UpdateCompanyStats(ctx context.Context, companyID string, jobsFoundDelta int, crawledAt time.Time) error {
	var company models.Company
	if err := s.db.store.Get(companyID, &company); err != nil {
		if err == badgerhold.ErrNotFound {
			return errs.ErrStoreConflict
		}
		return fmt.Errorf("%w: %v", errs.ErrStoreUnavailable, err)
	}

	company.RecordCrawl(crawledAt, jobsFoundDelta)

	if err := s.db.store.Update(company.ID, &company); err != nil {
		return fmt.Errorf("%w: %v", errs.ErrStoreUnavailable, err)
	}
	return nil
}

func (s *Store) TouchLastCrawled(ctx context.Context, companyID string, crawledAt time.Time) error {
	var company models.Company
	if err := s.db.store.Get(companyID, &company); err != nil {
		if err == badgerhold.ErrNotFound {
			return errs.ErrStoreConflict
		}
		return fmt.Errorf("%w: %v", errs.ErrStoreUnavailable, err)
	}

	company.TouchLastCrawled(crawledAt)

	if err := s.db.store.Update(company.ID, &company); err != nil {
		return fmt.Errorf("%w: %v", errs.ErrStoreUnavailable, err)
	}
	return nil
}
