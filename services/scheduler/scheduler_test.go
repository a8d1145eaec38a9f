package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/khollendar/core"
	"github.com/trezcool/khollendar/core/kholle"
	logsvc "github.com/trezcool/khollendar/services/logger"
	testutil "github.com/trezcool/khollendar/tests"
)

var now = time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC)

type fakeAssigner struct {
	pages    [][]kholle.Session
	assigned map[int64]bool
	failing  map[int64]bool
	calls    []int64
}

func (f *fakeAssigner) Upcoming(_ context.Context, page int) ([]kholle.Session, core.Page, error) {
	pg := core.NewPage(page, 1)
	pg.Total = len(f.pages)
	if page > len(f.pages) {
		return nil, pg, nil
	}
	return f.pages[page-1], pg, nil
}

func (f *fakeAssigner) IsAssigned(_ context.Context, id int64) (bool, error) {
	return f.assigned[id], nil
}

func (f *fakeAssigner) Assign(_ context.Context, id int64) ([]kholle.Assignment, kholle.AssignmentStats, error) {
	f.calls = append(f.calls, id)
	if f.failing[id] {
		return nil, kholle.AssignmentStats{}, errors.New("boom")
	}
	return nil, kholle.AssignmentStats{}, nil
}

func session(id int64, slots ...time.Time) kholle.Session {
	s := kholle.Session{ID: id, Subject: "Maths"}
	for _, dt := range slots {
		s.Slots = append(s.Slots, kholle.Slot{DateTime: dt})
	}
	return s
}

func TestAssignmentJob_Run(t *testing.T) {
	testutil.FreezeTime(t, now)

	// 1 is assigned, 2 has no slot, 3 starts beyond the horizon, 4 is already assigned and 5 fails
	fake := &fakeAssigner{
		pages: [][]kholle.Session{
			{session(1, now.Add(24*time.Hour))},
			{session(2)},
			{session(3, now.Add(10*24*time.Hour))},
			{session(4, now.Add(48*time.Hour))},
			{session(5, now.Add(71*time.Hour), now.Add(5*24*time.Hour))},
		},
		assigned: map[int64]bool{4: true},
		failing:  map[int64]bool{5: true},
	}
	job := NewAssignmentJob(fake, core.AssignmentConfig{Horizon: 72 * time.Hour}, logsvc.NewNopLogger())

	report, err := job.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Report{Processed: 1, Skipped: 2, Errors: 1}, report)
	assert.Equal(t, []int64{1, 5}, fake.calls)
}

func TestAssignmentJob_Run_cancelled(t *testing.T) {
	fake := &fakeAssigner{pages: [][]kholle.Session{{session(1, now)}}}
	job := NewAssignmentJob(fake, core.AssignmentConfig{Horizon: time.Hour}, logsvc.NewNopLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := job.Run(ctx)
	assert.Equal(t, context.Canceled, err)
	assert.Empty(t, fake.calls)
}

func TestAssignmentJob_Run_memory(t *testing.T) {
	testutil.FreezeTime(t, now)
	deps := testutil.NewMemoryDeps(t)
	ctx := context.Background()

	testutil.CreateUser(t, deps.UserRepo, "ada", "", false)
	testutil.CreateUser(t, deps.UserRepo, "alan", "", false)
	soon := testutil.CreateSession(t, deps.KholleRepo, "Physique", now.Add(24*time.Hour), now.Add(26*time.Hour))
	later := testutil.CreateSession(t, deps.KholleRepo, "Chimie", now.Add(20*24*time.Hour))

	job := NewAssignmentJob(deps.KholleSvc, deps.Conf.Assignment, deps.Logger)
	report, err := job.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, Report{Processed: 1}, report)

	assigned, err := deps.KholleSvc.IsAssigned(ctx, soon.ID)
	require.NoError(t, err)
	assert.True(t, assigned)
	assigned, err = deps.KholleSvc.IsAssigned(ctx, later.ID)
	require.NoError(t, err)
	assert.False(t, assigned)

	// second run: nothing left to assign
	report, err = job.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, Report{Skipped: 1}, report)
}

func TestNew(t *testing.T) {
	job := NewAssignmentJob(&fakeAssigner{}, core.AssignmentConfig{}, logsvc.NewNopLogger())

	_, err := New(job, "not a schedule", logsvc.NewNopLogger())
	assert.Error(t, err)

	s, err := New(job, "0 0 2 * * *", logsvc.NewNopLogger())
	require.NoError(t, err)
	s.Start()
	assert.NoError(t, s.Stop(context.Background()))
}

func TestScheduler_Trigger(t *testing.T) {
	testutil.FreezeTime(t, now)
	fake := &fakeAssigner{pages: [][]kholle.Session{{session(7, now.Add(time.Hour))}}}
	job := NewAssignmentJob(fake, core.AssignmentConfig{Horizon: 72 * time.Hour}, logsvc.NewNopLogger())
	s, err := New(job, "@every 1h", logsvc.NewNopLogger())
	require.NoError(t, err)

	report, err := s.Trigger(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Processed)
	assert.Equal(t, []int64{7}, fake.calls)
}
