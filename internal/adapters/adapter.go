// Package adapters implements the three polymorphic career-page extraction
// strategies (C2): StructuredA (paginated JSON), StructuredB (single JSON
// document), and AIParsed (HTML + LLM extraction). Grounded on the
// teacher's internal/services/crawler content-extraction helpers and its
// general preference for small per-source extractor types.
package adapters

import (
	"context"

	"github.com/careercrawl/orchestrator/internal/fetcher"
	"github.com/careercrawl/orchestrator/internal/models"
)

// Adapter is the capability set every career-page source implements:
// ListJobs(ctx, company) -> sequence<PostingRaw>, pure with respect to
// side effects except via the injected Fetcher and (for AIParsed) LLM
// client.
type Adapter interface {
	ListJobs(ctx context.Context, company models.Company) ([]models.PostingRaw, error)
}

// Fetcher is the capability adapters need from the HTTP Fetcher (C1) —
// defined here, by the consumer, so this package depends only on the
// narrow surface it actually calls.
type Fetcher interface {
	Fetch(ctx context.Context, url string, headers map[string]string) (*fetcher.Result, error)
}

// ForKind selects the adapter implementation for a company's adapter kind,
// the "tagged variant + function table" resolution spec.md §8 calls for,
// resolved once per company at run start.
func ForKind(kind models.AdapterKind, fetcher Fetcher, extractor Extractor) Adapter {
	switch kind {
	case models.AdapterStructuredA:
		return &StructuredAAdapter{fetcher: fetcher}
	case models.AdapterStructuredB:
		return &StructuredBAdapter{fetcher: fetcher}
	case models.AdapterAIParsed:
		return &AIParsedAdapter{fetcher: fetcher, extractor: extractor}
	default:
		return nil
	}
}
