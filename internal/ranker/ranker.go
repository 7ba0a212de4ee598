// Package ranker implements the LLM Ranker (C5): one LLM call per job,
// bounded concurrency, strict JSON response parsing, and the
// recommend-threshold override, grounded on the teacher's
// internal/services/rating package shape (per-item LLM scoring against a
// cached profile) and internal/services/llm's provider abstraction.
package ranker

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/careercrawl/orchestrator/internal/llm"
	"github.com/careercrawl/orchestrator/internal/models"
)

// Metrics is the narrow counter surface the ranker increments on every
// neutral annotation: an LLM call error or timeout, or an unparseable
// response; internal/telemetry satisfies it.
type Metrics interface {
	IncRankerParseError()
}

type noopMetrics struct{}

func (noopMetrics) IncRankerParseError() {}

// Ranker assigns AIAnnotation to jobs against a single immutable profile
// snapshot, per spec.md §4.5's "snapshotted once per run" rule.
type Ranker struct {
	profile   models.UserProfile
	client    llm.Client
	sem       chan struct{}
	threshold int
	timeout   time.Duration
	logger    arbor.ILogger
	metrics   Metrics
}

// New builds a Ranker bound to one profile snapshot for the run's
// lifetime. timeout is ranker_timeout (spec.md §4.5): the bound on each
// individual Rank call, independent of whatever timeout the underlying
// llm.Client enforces on its own provider call. timeout <= 0 disables it.
func New(profile models.UserProfile, client llm.Client, parallelism, threshold int, timeout time.Duration, logger arbor.ILogger, metrics Metrics) *Ranker {
	if metrics == nil {
		metrics = noopMetrics{}
	}
	if parallelism < 1 {
		parallelism = 1
	}
	return &Ranker{
		profile:   profile,
		client:    client,
		sem:       make(chan struct{}, parallelism),
		threshold: threshold,
		timeout:   timeout,
		logger:    logger,
		metrics:   metrics,
	}
}

// llmResponse is the strict JSON object shape spec.md §4.5 expects back
// from the model.
type llmResponse struct {
	Score           *int     `json:"score"`
	Recommended     bool     `json:"recommended"`
	Summary         string   `json:"summary"`
	Pros            []string `json:"pros"`
	Cons            []string `json:"cons"`
	KeywordsMatched []string `json:"keywords_matched"`
}

// neutralAnnotation is returned whenever the model's response can't be
// strictly parsed; the orchestrator must never fail a crawl over this.
func neutralAnnotation() models.AIAnnotation {
	return models.AIAnnotation{
		MatchScore:  nil,
		Recommended: false,
		Summary:     "unavailable",
	}
}

// Rank issues one bounded, timeout-guarded LLM call for job and returns
// its AIAnnotation. It never returns a non-nil error for a parse failure
// or LLM-side failure — those degrade to a neutral annotation, matching
// spec.md §4.5's "orchestrator MUST NOT fail a crawl because of ranker
// errors". A non-nil error here means the caller's context was cancelled.
func (r *Ranker) Rank(ctx context.Context, job models.Job) (models.AIAnnotation, error) {
	select {
	case r.sem <- struct{}{}:
	case <-ctx.Done():
		return models.AIAnnotation{}, ctx.Err()
	}
	defer func() { <-r.sem }()

	prompt := r.buildPrompt(job)

	callCtx := ctx
	if r.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	raw, err := r.client.Generate(callCtx, prompt, llm.Options{})
	if err != nil {
		if ctx.Err() != nil {
			return models.AIAnnotation{}, ctx.Err()
		}
		if callCtx.Err() != nil {
			r.logger.Warn().Str("job_id", job.ID).Dur("timeout", r.timeout).Msg("ranker call exceeded ranker_timeout, using neutral annotation")
		} else {
			r.logger.Warn().Err(err).Str("job_id", job.ID).Msg("ranker llm call failed, using neutral annotation")
		}
		r.metrics.IncRankerParseError()
		return neutralAnnotation(), nil
	}

	annotation, err := r.parseResponse(raw)
	if err != nil {
		r.logger.Warn().Err(err).Str("job_id", job.ID).Msg("ranker response parse failed, using neutral annotation")
		r.metrics.IncRankerParseError()
		return neutralAnnotation(), nil
	}

	return annotation, nil
}

func (r *Ranker) parseResponse(raw string) (models.AIAnnotation, error) {
	trimmed := stripCodeFence(raw)

	var resp llmResponse
	if err := json.Unmarshal([]byte(trimmed), &resp); err != nil {
		return models.AIAnnotation{}, fmt.Errorf("invalid json: %w", err)
	}

	annotation := models.AIAnnotation{
		MatchScore:      resp.Score,
		Recommended:     resp.Recommended,
		Summary:         resp.Summary,
		Pros:            resp.Pros,
		Cons:            resp.Cons,
		MatchedKeywords: resp.KeywordsMatched,
	}

	// recommended is overridden to false whenever score < threshold,
	// regardless of model output, to maintain a single consistent policy.
	if annotation.MatchScore == nil || *annotation.MatchScore < r.threshold {
		annotation.Recommended = false
	}
	annotation.Normalize()

	return annotation, nil
}

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

// buildPrompt is deterministic: same (profile, job) always yields the same
// string, no randomness.
func (r *Ranker) buildPrompt(job models.Job) string {
	var sb strings.Builder
	sb.WriteString("You are scoring a job posting against a candidate profile. ")
	sb.WriteString("Respond with ONLY a JSON object, no prose, no markdown fences. ")
	sb.WriteString(`The object must have exactly these keys: "score" (integer 0-100), "recommended" (boolean), "summary" (string), "pros" (array of strings), "cons" (array of strings), "keywords_matched" (array of strings).`)
	sb.WriteString("\n\nCANDIDATE PROFILE:\n")
	sb.WriteString("Skills: ")
	sb.WriteString(strings.Join(r.profile.Skills, ", "))
	sb.WriteString("\nResume:\n")
	sb.WriteString(r.profile.ResumeText)
	sb.WriteString("\n\nJOB POSTING:\n")
	sb.WriteString("Title: ")
	sb.WriteString(job.Title)
	sb.WriteString("\nLocation: ")
	sb.WriteString(job.Location)
	sb.WriteString("\nDescription:\n")
	sb.WriteString(job.Description)
	return sb.String()
}
