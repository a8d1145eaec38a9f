package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"

	"github.com/trezcool/khollendar/core"
	"github.com/trezcool/khollendar/core/kholle"
)

type (
	// Assigner is the part of the kholle service used by the assignment job.
	Assigner interface {
		Upcoming(ctx context.Context, page int) ([]kholle.Session, core.Page, error)
		IsAssigned(ctx context.Context, sessionID int64) (bool, error)
		Assign(ctx context.Context, sessionID int64) ([]kholle.Assignment, kholle.AssignmentStats, error)
	}

	Report struct {
		Processed int
		Skipped   int
		Errors    int
	}

	// AssignmentJob assigns the upcoming sessions starting within the configured horizon.
	AssignmentJob struct {
		svc    Assigner
		conf   core.AssignmentConfig
		logger core.Logger
	}
)

func NewAssignmentJob(svc Assigner, conf core.AssignmentConfig, logger core.Logger) *AssignmentJob {
	return &AssignmentJob{svc: svc, conf: conf, logger: logger}
}

// Run walks every page of upcoming sessions.
// Sessions without slots and sessions already assigned are skipped; sessions starting after the horizon are ignored.
func (job *AssignmentJob) Run(ctx context.Context) (Report, error) {
	var report Report
	job.logger.Info("assignment job started")

	limit := core.NowFunc().UTC().Add(job.conf.Horizon)
	for page := 1; ; page++ {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		sessions, pg, err := job.svc.Upcoming(ctx, page)
		if err != nil {
			return report, errors.Wrap(err, "querying upcoming sessions")
		}
		for _, session := range sessions {
			job.process(ctx, session, limit, &report)
		}
		if !pg.HasNext() || len(sessions) == 0 {
			break
		}
	}

	job.logger.Info("assignment job done", map[string]interface{}{
		"processed": report.Processed,
		"skipped":   report.Skipped,
		"errors":    report.Errors,
	})
	return report, nil
}

func (job *AssignmentJob) process(ctx context.Context, session kholle.Session, limit time.Time, report *Report) {
	first, ok := session.FirstSlot()
	if !ok {
		job.logger.Warn(fmt.Sprintf("session %d has no slot, skipped", session.ID))
		report.Skipped++
		return
	}
	if first.After(limit) {
		job.logger.Debug(fmt.Sprintf("session %d starts on %s, too far ahead", session.ID, first.Format(time.RFC3339)))
		return
	}

	assigned, err := job.svc.IsAssigned(ctx, session.ID)
	if err != nil {
		job.logger.Error(fmt.Sprintf("session %d: checking assignments", session.ID), err)
		report.Errors++
		return
	}
	if assigned {
		job.logger.Debug(fmt.Sprintf("session %d already assigned, skipped", session.ID))
		report.Skipped++
		return
	}

	job.logger.Info(fmt.Sprintf("assigning session %d (%s), first slot on %s", session.ID, session.Subject, first.Format(time.RFC3339)))
	if _, _, err = job.svc.Assign(ctx, session.ID); err != nil {
		job.logger.Error(fmt.Sprintf("session %d: assignment failed", session.ID), err)
		report.Errors++
		return
	}
	report.Processed++
}

// Scheduler runs the assignment job on a cron schedule (with seconds).
type Scheduler struct {
	cron   *cron.Cron
	job    *AssignmentJob
	logger core.Logger

	mu      sync.Mutex
	running bool
}

func New(job *AssignmentJob, schedule string, logger core.Logger) (*Scheduler, error) {
	s := &Scheduler{
		cron:   cron.New(cron.WithSeconds()),
		job:    job,
		logger: logger,
	}
	if _, err := s.cron.AddFunc(schedule, s.tick); err != nil {
		return nil, errors.Wrapf(err, "invalid assignment schedule %q", schedule)
	}
	return s, nil
}

// tick runs the job unless the previous run is still going.
func (s *Scheduler) tick() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		s.logger.Warn("assignment job still running, tick skipped")
		return
	}
	s.running = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	if _, err := s.job.Run(context.Background()); err != nil {
		s.logger.Error("assignment job failed", err)
	}
}

// Trigger runs the job immediately.
func (s *Scheduler) Trigger(ctx context.Context) (Report, error) {
	s.logger.Info("assignment job triggered manually")
	return s.job.Run(ctx)
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop stops the scheduler and waits for a running job to finish, or for ctx to be done.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
