package models

import "time"

// RunPhase is the orchestrator's top-level state. The orchestrator moves
// idle -> running -> (cancelling ->) idle; it never enters PhasePaused,
// since Orchestrator.Pause sets a separate paused flag and leaves the
// phase unchanged.
type RunPhase string

const (
	PhaseIdle       RunPhase = "idle"
	PhaseRunning    RunPhase = "running"
	PhasePaused     RunPhase = "paused"
	PhaseCancelling RunPhase = "cancelling"
)

// RunType selects the company queue build strategy for a run.
type RunType string

const (
	RunAllCompanies RunType = "all_companies"
	RunSearch       RunType = "search"
)

// RunDescriptor is the process-scoped (not persisted) snapshot of one
// in-flight or just-finished run. The orchestrator holds at most one
// non-nil descriptor at a time; StatusSnapshot hands callers a copy.
type RunDescriptor struct {
	Type            RunType
	CompanyQueue    []string // company ids, in dispatch order
	CurrentCompany  string
	Processed       int
	Total           int
	StartedAt       time.Time
	durations       []time.Duration // rolling window of per-company durations, bounded to ETAWindow
}

// ETAWindow bounds the rolling duration window used for the ETA estimate
// (spec.md §4.6: N = 10).
const ETAWindow = 10

// RecordCompanyDuration appends a completed company's duration to the
// rolling window, keeping only the most recent ETAWindow samples.
func (r *RunDescriptor) RecordCompanyDuration(d time.Duration) {
	r.durations = append(r.durations, d)
	if len(r.durations) > ETAWindow {
		r.durations = r.durations[len(r.durations)-ETAWindow:]
	}
}

// ETA computes the rolling-mean-based estimate of spec.md §4.6. With
// fewer than 2 samples the estimate is undefined (nil).
func (r *RunDescriptor) ETA() *time.Duration {
	if len(r.durations) < 2 {
		return nil
	}
	var sum time.Duration
	for _, d := range r.durations {
		sum += d
	}
	mean := sum / time.Duration(len(r.durations))
	remaining := r.Total - r.Processed
	if remaining < 0 {
		remaining = 0
	}
	eta := mean * time.Duration(remaining)
	return &eta
}

// Clone returns a value safe to read concurrently with the live
// descriptor's further mutation (copy-on-read per spec.md §5).
func (r *RunDescriptor) Clone() *RunDescriptor {
	if r == nil {
		return nil
	}
	cp := *r
	cp.CompanyQueue = append([]string(nil), r.CompanyQueue...)
	cp.durations = append([]time.Duration(nil), r.durations...)
	return &cp
}
