package adapters

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/careercrawl/orchestrator/internal/errs"
	"github.com/careercrawl/orchestrator/internal/models"
)

// rawPosting is the on-the-wire shape both StructuredA and StructuredB
// expect; unknown/extra fields are ignored. A posting missing its title
// or url is dropped rather than failing the page; other missing fields
// are left empty.
type rawPosting struct {
	ExternalID  string `json:"external_id"`
	Title       string `json:"title"`
	Location    string `json:"location"`
	URL         string `json:"url"`
	Description string `json:"description"`
	PostedAt    string `json:"posted_at"`
}

func (p rawPosting) usable() bool {
	return p.Title != "" && p.URL != ""
}

func (p rawPosting) toPostingRaw() models.PostingRaw {
	out := models.PostingRaw{
		ExternalID:  p.ExternalID,
		Title:       p.Title,
		Location:    p.Location,
		URL:         p.URL,
		Description: p.Description,
	}
	if t, ok := parsePostedAt(p.PostedAt); ok {
		out.PostedAt = &t
	}
	return out
}

// structuredAPage is one page of StructuredA's paginated response.
type structuredAPage struct {
	Jobs       []rawPosting `json:"jobs"`
	NextCursor string       `json:"next_cursor"`
}

// StructuredAAdapter walks a paginated JSON endpoint until an empty page
// or an empty next_cursor terminates iteration.
type StructuredAAdapter struct {
	fetcher Fetcher
}

func (a *StructuredAAdapter) ListJobs(ctx context.Context, company models.Company) ([]models.PostingRaw, error) {
	var out []models.PostingRaw
	url := company.CareerEndpoint
	cursor := ""

	for {
		pageURL := url
		if cursor != "" {
			pageURL = fmt.Sprintf("%s?cursor=%s", url, cursor)
		}

		result, err := a.fetcher.Fetch(ctx, pageURL, nil)
		if err != nil {
			return out, err
		}

		var page structuredAPage
		if err := json.Unmarshal(result.Body, &page); err != nil {
			return out, fmt.Errorf("%w: %v", errs.ErrMalformedResponse, err)
		}

		if len(page.Jobs) == 0 {
			break
		}
		for _, p := range page.Jobs {
			if p.usable() {
				out = append(out, p.toPostingRaw())
			}
		}

		if page.NextCursor == "" {
			break
		}
		cursor = page.NextCursor
	}

	return out, nil
}

// structuredBDocument is StructuredB's single-document response.
type structuredBDocument struct {
	Jobs []rawPosting `json:"jobs"`
}

// StructuredBAdapter fetches one JSON document and yields all postings in
// it; otherwise identical semantics to StructuredA.
type StructuredBAdapter struct {
	fetcher Fetcher
}

func (a *StructuredBAdapter) ListJobs(ctx context.Context, company models.Company) ([]models.PostingRaw, error) {
	result, err := a.fetcher.Fetch(ctx, company.CareerEndpoint, nil)
	if err != nil {
		return nil, err
	}

	var doc structuredBDocument
	if err := json.Unmarshal(result.Body, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrMalformedResponse, err)
	}

	var out []models.PostingRaw
	for _, p := range doc.Jobs {
		if p.usable() {
			out = append(out, p.toPostingRaw())
		}
	}
	return out, nil
}
