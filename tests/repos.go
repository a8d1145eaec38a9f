package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/khollendar/core"
	"github.com/trezcool/khollendar/core/kholle"
	"github.com/trezcool/khollendar/core/user"
)

// RepositoryFactory returns empty repositories sharing one store.
type RepositoryFactory func(t *testing.T) (user.Repository, kholle.Repository)

// RunRepositoryTests checks the behaviour every storage backend must share.
func RunRepositoryTests(t *testing.T, newRepos RepositoryFactory) {
	t.Run("users", func(t *testing.T) { testUserRepository(t, newRepos) })
	t.Run("sessions", func(t *testing.T) { testSessionRepository(t, newRepos) })
	t.Run("preferences", func(t *testing.T) { testPreferenceRepository(t, newRepos) })
	t.Run("assignments", func(t *testing.T) { testAssignmentRepository(t, newRepos) })
}

var repoNow = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func testUserRepository(t *testing.T, newRepos RepositoryFactory) {
	ctx := context.Background()
	users, _ := newRepos(t)

	ada := CreateUser(t, users, "ada", "482913", false)
	bob := CreateUser(t, users, "bob", "", true)
	assert.NotZero(t, ada.ID)
	assert.True(t, ada.CodeInitialized)

	assert.Equal(t, user.ErrUsernameExists, errors.Cause(users.CheckUsernameUniqueness(ctx, "ada")))
	assert.NoError(t, users.CheckUsernameUniqueness(ctx, "carl"))
	_, err := users.CreateUser(ctx, user.User{Username: "ada", CreatedAt: repoNow})
	assert.Equal(t, user.ErrUsernameExists, errors.Cause(err))

	got, err := users.GetUserByUsername(ctx, "ada")
	require.NoError(t, err)
	assert.Equal(t, ada.ID, got.ID)
	assert.NoError(t, got.CheckCode("482913"))
	assert.True(t, got.LastLogin.IsZero())

	got.LastLogin = repoNow
	got.ClearCode()
	got, err = users.UpdateUser(ctx, got)
	require.NoError(t, err)
	assert.Equal(t, repoNow, got.LastLogin)
	assert.False(t, got.CodeInitialized)

	all, err := users.QueryAllUsers(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, ada.ID, all[0].ID)
	assert.True(t, all[1].IsAdmin)

	page, p, err := users.PaginateUsers(ctx, core.NewPage(2, 1))
	require.NoError(t, err)
	assert.Equal(t, 2, p.Total)
	require.Len(t, page, 1)
	assert.Equal(t, bob.ID, page[0].ID)

	require.NoError(t, users.DeleteUsersByID(ctx, ada.ID, bob.ID))
	n, err := users.CountUsers(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	_, err = users.GetUserByID(ctx, ada.ID)
	assert.Equal(t, user.ErrNotFound, errors.Cause(err))
	_, err = users.UpdateUser(ctx, ada)
	assert.Equal(t, user.ErrNotFound, errors.Cause(err))
}

func testSessionRepository(t *testing.T, newRepos RepositoryFactory) {
	ctx := context.Background()
	_, repo := newRepos(t)
	day := 24 * time.Hour

	upcoming := CreateSession(t, repo, "Maths", repoNow.Add(2*day), repoNow.Add(day))
	past := CreateSession(t, repo, "Physique", repoNow.Add(-day))
	CreateSession(t, repo, "Empty")

	require.Len(t, upcoming.Slots, 2)
	assert.Equal(t, repoNow.Add(day), upcoming.Slots[0].DateTime)
	assert.Equal(t, upcoming.ID, upcoming.Slots[0].SessionID)

	list, page, err := repo.UpcomingSessions(ctx, repoNow, core.NewPage(1, 10))
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total)
	require.Len(t, list, 1)
	assert.Equal(t, upcoming.ID, list[0].ID)

	list, _, err = repo.PreviousSessions(ctx, repoNow, core.NewPage(1, 10))
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, past.ID, list[0].ID)

	upcoming.Subject = "Maths 2"
	upcoming.Status = kholle.StatusRegistrationsClosed
	updated, err := repo.UpdateSession(ctx, upcoming)
	require.NoError(t, err)
	assert.Equal(t, "Maths 2", updated.Subject)
	assert.Equal(t, kholle.StatusRegistrationsClosed, updated.Status)

	s1, s2 := upcoming.Slots[0].ID, upcoming.Slots[1].ID
	require.NoError(t, repo.UpdateSlotPositions(ctx, upcoming.ID, []int64{s2, s1}))
	got, err := repo.GetSession(ctx, upcoming.ID)
	require.NoError(t, err)
	assert.Equal(t, s2, got.Slots[0].ID)
	assert.Equal(t, kholle.ErrSlotNotInSession, errors.Cause(repo.UpdateSlotPositions(ctx, past.ID, []int64{s1})))

	require.NoError(t, repo.DeleteSession(ctx, upcoming.ID))
	_, err = repo.GetSession(ctx, upcoming.ID)
	assert.Equal(t, kholle.ErrNotFound, errors.Cause(err))
	assert.Equal(t, kholle.ErrNotFound, errors.Cause(repo.DeleteSession(ctx, upcoming.ID)))
	_, err = repo.UpdateSession(ctx, upcoming)
	assert.Equal(t, kholle.ErrNotFound, errors.Cause(err))
}

func testPreferenceRepository(t *testing.T, newRepos RepositoryFactory) {
	ctx := context.Background()
	users, repo := newRepos(t)
	ada := CreateUser(t, users, "ada", "", false)
	bob := CreateUser(t, users, "bob", "", false)
	session := CreateSession(t, repo, "Maths", repoNow.Add(time.Hour), repoNow.Add(2*time.Hour))
	s1, s2 := session.Slots[0].ID, session.Slots[1].ID

	require.NoError(t, repo.ReplacePreferences(ctx, ada.ID, session.ID, []kholle.Preference{
		{UserID: ada.ID, SessionID: session.ID, SlotID: s2, Rank: 1},
		{UserID: ada.ID, SessionID: session.ID, SlotID: s1, Rank: -1, Unavailable: true},
	}))
	require.NoError(t, repo.ReplacePreferences(ctx, bob.ID, session.ID, []kholle.Preference{
		{UserID: bob.ID, SessionID: session.ID, SlotID: s1, Rank: 1},
	}))

	prefs, err := repo.QueryPreferences(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, []kholle.Preference{
		{UserID: ada.ID, SessionID: session.ID, SlotID: s1, Rank: -1, Unavailable: true},
		{UserID: ada.ID, SessionID: session.ID, SlotID: s2, Rank: 1},
		{UserID: bob.ID, SessionID: session.ID, SlotID: s1, Rank: 1},
	}, prefs)

	n, err := repo.CountRegistered(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.NoError(t, repo.ReplacePreferences(ctx, ada.ID, session.ID, []kholle.Preference{
		{UserID: ada.ID, SessionID: session.ID, SlotID: s1, Rank: 1},
	}))
	prefs, err = repo.UserPreferences(ctx, ada.ID, session.ID)
	require.NoError(t, err)
	assert.Equal(t, []kholle.Preference{{UserID: ada.ID, SessionID: session.ID, SlotID: s1, Rank: 1}}, prefs)

	require.NoError(t, repo.DeleteUserPreferences(ctx, bob.ID, session.ID))
	n, err = repo.CountRegistered(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NoError(t, users.DeleteUsersByID(ctx, ada.ID))
	prefs, err = repo.QueryPreferences(ctx, session.ID)
	require.NoError(t, err)
	assert.Empty(t, prefs, "preferences are deleted with their user")
}

func testAssignmentRepository(t *testing.T, newRepos RepositoryFactory) {
	ctx := context.Background()
	users, repo := newRepos(t)
	ada := CreateUser(t, users, "ada", "", false)
	bob := CreateUser(t, users, "bob", "", false)
	session := CreateSession(t, repo, "Maths", repoNow.Add(time.Hour), repoNow.Add(2*time.Hour))
	s1, s2 := session.Slots[0].ID, session.Slots[1].ID
	rank := 1

	saved, err := repo.ReplaceAssignments(ctx, session.ID, []kholle.Assignment{
		{UserID: ada.ID, SlotID: s1, AssignedAt: repoNow, ObtainedRank: &rank},
		{UserID: bob.ID, SlotID: s2, AssignedAt: repoNow},
	})
	require.NoError(t, err)
	require.Len(t, saved, 2)
	assert.NotZero(t, saved[0].ID)
	assert.Equal(t, session.ID, saved[0].SessionID)

	a, err := repo.UserAssignment(ctx, ada.ID, session.ID)
	require.NoError(t, err)
	require.NotNil(t, a.ObtainedRank)
	assert.Equal(t, 1, *a.ObtainedRank)
	assert.Equal(t, repoNow, a.AssignedAt)

	a.SlotID = s2
	a.ObtainedRank = nil
	a, err = repo.UpdateAssignment(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, s2, a.SlotID)
	assert.Nil(t, a.ObtainedRank)

	saved, err = repo.ReplaceAssignments(ctx, session.ID, []kholle.Assignment{{UserID: ada.ID, SlotID: s1, AssignedAt: repoNow}})
	require.NoError(t, err)
	n, err := repo.CountAssignments(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n, "assignments are replaced")

	all, err := repo.QueryAssignments(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, saved, all)

	require.NoError(t, repo.DeleteAssignment(ctx, saved[0].ID))
	_, err = repo.GetAssignment(ctx, saved[0].ID)
	assert.Equal(t, kholle.ErrAssignmentNotFound, errors.Cause(err))
	assert.Equal(t, kholle.ErrAssignmentNotFound, errors.Cause(repo.DeleteAssignment(ctx, saved[0].ID)))
	_, err = repo.UserAssignment(ctx, bob.ID, session.ID)
	assert.Equal(t, kholle.ErrAssignmentNotFound, errors.Cause(err))
}
