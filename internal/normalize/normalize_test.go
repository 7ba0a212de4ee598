package normalize

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/careercrawl/orchestrator/internal/models"
)

func TestCanonicalURL_LowercasesSchemeAndHost(t *testing.T) {
	assert.Equal(t, "https://example.com/jobs/1", CanonicalURL("HTTPS://EXAMPLE.COM/jobs/1"))
}

func TestCanonicalURL_StripsDefaultPort(t *testing.T) {
	assert.Equal(t, "https://example.com/jobs/1", CanonicalURL("https://example.com:443/jobs/1"))
	assert.Equal(t, "http://example.com/jobs/1", CanonicalURL("http://example.com:80/jobs/1"))
}

func TestCanonicalURL_RemovesTrackingParamsAndFragment(t *testing.T) {
	in := "https://example.com/jobs/1?utm_source=x&gclid=y&ref=2#section"
	got := CanonicalURL(in)
	assert.Equal(t, "https://example.com/jobs/1?ref=2", got)
}

func TestCanonicalURL_SortsQueryKeys(t *testing.T) {
	in := "https://example.com/jobs?zeta=1&alpha=2"
	got := CanonicalURL(in)
	assert.Equal(t, "https://example.com/jobs?alpha=2&zeta=1", got)
}

func TestCanonicalURL_Idempotent(t *testing.T) {
	in := "HTTPS://Example.com:443/jobs/1?utm_source=x&Zeta=1&Alpha=2#frag"
	once := CanonicalURL(in)
	twice := CanonicalURL(once)
	assert.Equal(t, once, twice)
}

func TestNormalizeExternalID_EmptyBecomesNil(t *testing.T) {
	assert.Nil(t, normalizeExternalID("   "))
	assert.Nil(t, normalizeExternalID(""))

	got := normalizeExternalID("  abc-123  ")
	require.NotNil(t, got)
	assert.Equal(t, "abc-123", *got)
}

func TestCollapseWhitespace(t *testing.T) {
	assert.Equal(t, "a b c", collapseWhitespace("  a\t\tb\n\nc  "))
}

func TestNormalizeDescription_TruncatesAtWordBoundary(t *testing.T) {
	raw := strings.Repeat("word ", 100)
	got := normalizeDescription(raw, 20)
	assert.LessOrEqual(t, len(got), 20)
	assert.False(t, strings.HasSuffix(got, "wor"))
}

func TestNormalizeDescription_ConvertsHTML(t *testing.T) {
	raw := "<p>Build <strong>great</strong> things</p>"
	got := normalizeDescription(raw, 1000)
	assert.NotContains(t, got, "<p>")
	assert.Contains(t, got, "great")
}

func TestNormalize_PostedAtAbsentStaysNil(t *testing.T) {
	raw := models.PostingRaw{Title: "Engineer", URL: "https://example.com/1"}
	got := Normalize(raw, 4000)
	assert.Nil(t, got.PostedAt)
}

func TestNormalize_Idempotent(t *testing.T) {
	raw := models.PostingRaw{
		Title:       "  Senior   Engineer ",
		Location:    "  Remote  ",
		URL:         "HTTPS://Example.com:443/jobs/1?utm_source=x",
		Description: "<p>Build things</p>",
		ExternalID:  "  ext-1  ",
	}

	once := Normalize(raw, 4000)

	roundTripRaw := models.PostingRaw{
		Title:       once.Title,
		Location:    once.Location,
		URL:         once.CanonicalURL,
		Description: once.Description,
	}
	if once.ExternalID != nil {
		roundTripRaw.ExternalID = *once.ExternalID
	}

	twice := Normalize(roundTripRaw, 4000)

	assert.Equal(t, once.CanonicalURL, twice.CanonicalURL)
	assert.Equal(t, once.Title, twice.Title)
	assert.Equal(t, once.Location, twice.Location)
	assert.Equal(t, once.Description, twice.Description)
}
