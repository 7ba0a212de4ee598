// Package scheduler implements the Scheduler (C7): a periodic timer that
// triggers an all_companies run on a configurable interval, pausable
// without interrupting an in-progress run. Grounded on the teacher's
// internal/services/scheduler.Service, which wraps robfig/cron/v3 with
// the same remove-then-re-add idiom for rescheduling (cron has no native
// "change this entry's schedule" call) and a mutex-guarded jobs map.
package scheduler

import (
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"

	"github.com/careercrawl/orchestrator/internal/errs"
	"github.com/careercrawl/orchestrator/internal/models"
)

// Trigger is the narrow control-surface capability the scheduler needs
// from the orchestrator — defined here, by the consumer.
type Trigger interface {
	Trigger(runType models.RunType, companyIDs []string) error
}

// Status mirrors the scheduler portion of spec.md §6's status_snapshot.
type Status struct {
	NextRun         *time.Time
	IntervalMinutes int
	IsPaused        bool
	Running         bool
}

// Scheduler arms a periodic robfig/cron entry that fires
// orchestrator.Trigger(all_companies) unless paused, per spec.md §4.7.
type Scheduler struct {
	orchestrator Trigger
	cron         *cron.Cron
	logger       arbor.ILogger

	mu              sync.Mutex
	entryID         cron.EntryID
	intervalMinutes int
	paused          bool
	running         bool
}

// New builds a Scheduler with the given initial interval, unarmed until
// Start is called.
func New(orchestrator Trigger, intervalMinutes int, logger arbor.ILogger) *Scheduler {
	if intervalMinutes < 1 {
		intervalMinutes = 1
	}
	return &Scheduler{
		orchestrator:    orchestrator,
		cron:            cron.New(),
		logger:          logger,
		intervalMinutes: intervalMinutes,
	}
}

// Start arms the periodic timer at the current interval and starts the
// underlying cron scheduler goroutine, per spec.md §4.7's start() contract.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	entryID, err := s.cron.AddFunc(cronSpec(s.intervalMinutes), s.fire)
	if err != nil {
		return fmt.Errorf("scheduler: failed to arm periodic trigger: %w", err)
	}
	s.entryID = entryID
	s.cron.Start()
	s.running = true
	return nil
}

// Stop halts the cron scheduler; any in-progress orchestrator run is left
// untouched.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.running = false
}

// fire is the cron callback: if not paused and the orchestrator is idle,
// trigger an all_companies run; otherwise skip with no catch-up, per
// spec.md §4.7's "on fire" contract.
func (s *Scheduler) fire() {
	s.mu.Lock()
	paused := s.paused
	s.mu.Unlock()

	if paused {
		s.logger.Debug().Msg("scheduler: fire skipped, scheduler paused")
		return
	}

	if err := s.orchestrator.Trigger(models.RunAllCompanies, nil); err != nil {
		s.logger.Debug().Err(err).Msg("scheduler: fire skipped, orchestrator busy")
	}
}

// UpdateInterval rejects intervals below 1 minute. While the scheduler is
// running it removes and re-adds the cron entry, the same idiom the
// teacher's UpdateJobSchedule uses since robfig/cron has no in-place
// reschedule; the previously pending fire is therefore dropped, and the
// next fire comes one new interval after this call. While stopped, only
// the stored interval changes.
func (s *Scheduler) UpdateInterval(minutes int) error {
	if minutes < 1 {
		return errs.ErrInvalid
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		s.cron.Remove(s.entryID)
		entryID, err := s.cron.AddFunc(cronSpec(minutes), s.fire)
		if err != nil {
			return fmt.Errorf("scheduler: failed to apply new interval: %w", err)
		}
		s.entryID = entryID
	}
	s.intervalMinutes = minutes
	return nil
}

// Pause sets is_paused; an in-progress run is unaffected and the next
// fire is simply skipped.
func (s *Scheduler) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paused = true
}

// Resume clears is_paused.
func (s *Scheduler) Resume() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paused = false
}

// TriggerNow bypasses the paused flag but still goes through the
// orchestrator's own idle-only precondition, surfacing errs.ErrBusy to
// the caller when a run is already active.
func (s *Scheduler) TriggerNow() error {
	return s.orchestrator.Trigger(models.RunAllCompanies, nil)
}

// Status reports the scheduler portion of spec.md §6's status snapshot.
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Status{
		IntervalMinutes: s.intervalMinutes,
		IsPaused:        s.paused,
		Running:         s.running,
	}
	if s.running {
		for _, e := range s.cron.Entries() {
			if e.ID == s.entryID {
				next := e.Next
				st.NextRun = &next
				break
			}
		}
	}
	return st
}

// cronSpec turns a minute interval into a robfig/cron "@every" spec.
func cronSpec(minutes int) string {
	return fmt.Sprintf("@every %dm", minutes)
}
