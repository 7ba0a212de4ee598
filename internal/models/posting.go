package models

import "time"

// PostingRaw is one advertised job exactly as an adapter extracted it,
// before normalization. Individual missing/malformed fields are dropped
// by the adapter rather than failing the whole posting.
type PostingRaw struct {
	ExternalID  string
	Title       string
	Location    string
	URL         string
	Description string
	PostedAt    *time.Time
}

// PostingNormalized is the canonical form produced by normalize.Normalize,
// ready for Store.UpsertJob.
type PostingNormalized struct {
	ExternalID   *string
	CanonicalURL string
	Title        string
	Location     string
	Description  string
	PostedAt     *time.Time
}
