package adapters

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/careercrawl/orchestrator/internal/errs"
	"github.com/careercrawl/orchestrator/internal/llm"
	"github.com/careercrawl/orchestrator/internal/models"
)

// Extractor is the capability AIParsed needs from the LLM ranker's
// provider client — a single Generate(ctx, prompt, opts) call, matching
// llm.Client exactly; defined here so this package depends on the
// narrowest surface, per Go interface-at-point-of-use convention.
type Extractor interface {
	Generate(ctx context.Context, prompt string, opts llm.Options) (string, error)
}

// extractionPrompt is deterministic: no randomness, same company page
// always produces the same prompt text.
const extractionPrompt = `Extract every job posting from the page text below. Respond with ONLY a JSON array, no prose, no markdown fences. Each element must be an object with exactly these fields: "external_id" (string, may be empty), "title" (string), "location" (string, may be empty), "url" (string), "description" (string, may be empty), "posted_at" (string, ISO-8601 date or empty). Omit any posting missing both a title and a url.

PAGE TEXT:
%s`

// AIParsedAdapter fetches the HTML page, strips boilerplate with goquery,
// and delegates extraction to an LLM prompted to return a strict JSON
// array, per spec.md §4.2.
type AIParsedAdapter struct {
	fetcher   Fetcher
	extractor Extractor
}

func (a *AIParsedAdapter) ListJobs(ctx context.Context, company models.Company) ([]models.PostingRaw, error) {
	result, err := a.fetcher.Fetch(ctx, company.CareerEndpoint, nil)
	if err != nil {
		return nil, err
	}

	text, err := stripBoilerplate(result.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrMalformedResponse, err)
	}

	prompt := fmt.Sprintf(extractionPrompt, text)
	response, err := a.extractor.Generate(ctx, prompt, llm.Options{})
	if err != nil {
		return nil, err
	}

	postings, err := parseExtractionResponse(response)
	if err != nil {
		// An invalid extraction shape yields no postings and an
		// ErrMalformedResponse error; the orchestrator closes that
		// company's crawl log as failed.
		return nil, fmt.Errorf("%w: %v", errs.ErrMalformedResponse, err)
	}

	return postings, nil
}

// stripBoilerplate removes non-content elements the way the teacher's
// content_processor.go does (doc.Find("script, style, nav, footer,
// aside").Remove()), then returns the remaining visible text.
func stripBoilerplate(html []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(html)))
	if err != nil {
		return "", err
	}
	doc.Find("script, style, nav, footer, header, noscript, aside").Remove()
	return strings.TrimSpace(doc.Text()), nil
}

// parseExtractionResponse strictly validates the LLM's JSON array shape;
// any posting missing title or url is dropped, not failed, matching
// spec.md §4.2's "missing/malformed fields dropped, not failed" rule -
// but a response that isn't even a JSON array is a hard MalformedResponse.
func parseExtractionResponse(response string) ([]models.PostingRaw, error) {
	trimmed := strings.TrimSpace(stripCodeFence(response))

	var raw []rawPosting
	if err := json.Unmarshal([]byte(trimmed), &raw); err != nil {
		return nil, err
	}

	var out []models.PostingRaw
	for _, p := range raw {
		if p.usable() {
			out = append(out, p.toPostingRaw())
		}
	}
	return out, nil
}

// stripCodeFence tolerates a model wrapping its JSON in a ```json fence
// despite being asked not to.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
