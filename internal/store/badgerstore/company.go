package badgerstore

import (
	"context"
	"fmt"
	"sort"

	"github.com/timshannon/badgerhold/v4"

	"github.com/careercrawl/orchestrator/internal/errs"
	"github.com/careercrawl/orchestrator/internal/models"
)

// ListActiveCompanies returns active companies ordered by last-crawled
// ascending with never-crawled (nil) companies first, per spec.md §4.3.
// badgerhold has no native nulls-first sort, so the ordering is finished
// in memory after an indexed Active-only query, mirroring the teacher's
// own mix of Where/And/Eq queries plus in-memory post-processing seen in
// job_storage.go's ListJobs.
func (s *Store) ListActiveCompanies(ctx context.Context) ([]models.Company, error) {
	var companies []models.Company
	query := badgerhold.Where("Active").Eq(true)
	if err := s.db.store.Find(&companies, query); err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrStoreUnavailable, err)
	}

	sort.SliceStable(companies, func(i, j int) bool {
		a, b := companies[i].LastCrawledAt, companies[j].LastCrawledAt
		if a == nil && b == nil {
			return false
		}
		if a == nil {
			return true
		}
		if b == nil {
			return false
		}
		return a.Before(*b)
	})

	return companies, nil
}

func (s *Store) GetCompany(ctx context.Context, companyID string) (*models.Company, error) {
	var company models.Company
	if err := s.db.store.Get(companyID, &company); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %v", errs.ErrStoreUnavailable, err)
	}
	return &company, nil
}

func (s *Store) PutCompany(ctx context.Context, company models.Company) error {
	if err := s.db.store.Upsert(company.ID, &company); err != nil {
		return fmt.Errorf("%w: %v", errs.ErrStoreUnavailable, err)
	}
	return nil
}
