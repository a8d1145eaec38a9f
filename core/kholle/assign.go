package kholle

import (
	"context"
	"fmt"
	"math/rand"
	"net/mail"
	"sort"

	"github.com/pkg/errors"

	"github.com/trezcool/khollendar/core"
)

const reportTemplate = "assignment_report"

type (
	// RankCount is the number of users who obtained their Rank-th choice.
	RankCount struct {
		Rank  int
		Count int
	}

	AssignmentStats struct {
		Total             int
		Ranks             []RankCount // by Rank ascending
		WithoutPreference int         // users whose slot was none of their ranked choices
		FirstChoiceRate   float64     // percentage of users who obtained their first choice
	}

	AssignmentReport struct {
		Session Session
		Stats   AssignmentStats
		URL     string
	}
)

// maxMinAssign assigns every user to a slot, favouring the best rank for the worst served users.
// ranked holds the available choices of each user, most preferred first.
// Capacity per slot is ceil(len(users) / len(slots)); slots may overflow only when every slot is full.
func maxMinAssign(users []int64, ranked map[int64][]int64, slots []int64, rnd *rand.Rand) map[int64]int64 {
	assigned := make(map[int64]int64, len(users))
	if len(slots) == 0 {
		return assigned
	}

	capacity := (len(users) + len(slots) - 1) / len(slots)
	remaining := make(map[int64]int, len(slots))
	for _, s := range slots {
		remaining[s] = capacity
	}

	unassigned := make([]int64, len(users))
	copy(unassigned, users)
	sort.Slice(unassigned, func(i, j int) bool { return unassigned[i] < unassigned[j] })

	maxRank := 0
	for _, choices := range ranked {
		if len(choices) > maxRank {
			maxRank = len(choices)
		}
	}

	for rank := 1; rank <= maxRank && len(unassigned) > 0; rank++ {
		candidates := make(map[int64][]int64)
		for _, u := range unassigned {
			choices := ranked[u]
			if len(choices) < rank {
				continue
			}
			if slot := choices[rank-1]; remaining[slot] > 0 {
				candidates[slot] = append(candidates[slot], u)
			}
		}

		for _, slot := range slots {
			cands := candidates[slot]
			if len(cands) == 0 {
				continue
			}
			if len(cands) > remaining[slot] {
				rnd.Shuffle(len(cands), func(i, j int) { cands[i], cands[j] = cands[j], cands[i] })
				cands = cands[:remaining[slot]]
			}
			for _, u := range cands {
				assigned[u] = slot
			}
			remaining[slot] -= len(cands)
		}

		left := unassigned[:0]
		for _, u := range unassigned {
			if _, ok := assigned[u]; !ok {
				left = append(left, u)
			}
		}
		unassigned = left
	}

	// leftovers go to the emptiest slot, or a random one when all are full
	rnd.Shuffle(len(unassigned), func(i, j int) { unassigned[i], unassigned[j] = unassigned[j], unassigned[i] })
	for _, u := range unassigned {
		best := int64(-1)
		for _, slot := range slots {
			if remaining[slot] > 0 && (best < 0 || remaining[slot] > remaining[best]) {
				best = slot
			}
		}
		if best < 0 {
			best = slots[rnd.Intn(len(slots))]
		}
		assigned[u] = best
		remaining[best]--
	}
	return assigned
}

func computeStats(assignments []Assignment) AssignmentStats {
	stats := AssignmentStats{Total: len(assignments)}
	counts := make(map[int]int)
	for _, a := range assignments {
		if a.ObtainedRank == nil {
			stats.WithoutPreference++
			continue
		}
		counts[*a.ObtainedRank]++
	}
	for rank, count := range counts {
		stats.Ranks = append(stats.Ranks, RankCount{Rank: rank, Count: count})
	}
	sort.Slice(stats.Ranks, func(i, j int) bool { return stats.Ranks[i].Rank < stats.Ranks[j].Rank })
	if stats.Total > 0 {
		stats.FirstChoiceRate = float64(counts[1]) / float64(stats.Total) * 100
	}
	return stats
}

// Assign replaces the assignments of a session with a max-min fair assignment of every student,
// then publishes the results.
func (svc *Service) Assign(ctx context.Context, sessionID int64) ([]Assignment, AssignmentStats, error) {
	session, err := svc.repo.GetSession(ctx, sessionID)
	if err != nil {
		return nil, AssignmentStats{}, err
	}
	if len(session.Slots) == 0 {
		return nil, AssignmentStats{}, ErrNoSlots
	}

	allUsers, err := svc.users.QueryAll(ctx)
	if err != nil {
		return nil, AssignmentStats{}, errors.Wrap(err, "querying users")
	}
	users := make([]int64, 0, len(allUsers))
	for _, u := range allUsers {
		if !u.IsAdmin {
			users = append(users, u.ID)
		}
	}

	prefs, err := svc.repo.QueryPreferences(ctx, sessionID)
	if err != nil {
		return nil, AssignmentStats{}, errors.Wrap(err, "querying preferences")
	}
	ranked := make(map[int64][]int64)
	ranks := make(map[[2]int64]int) // {user, slot}: rank
	for user, userPrefs := range groupPreferences(prefs) {
		for _, p := range userPrefs {
			if p.Unavailable {
				continue
			}
			if _, ok := session.Slot(p.SlotID); !ok {
				continue
			}
			ranked[user] = append(ranked[user], p.SlotID)
			ranks[[2]int64{user, p.SlotID}] = p.Rank
		}
	}
	slots := slotIDs(session.SlotsByDate())

	svc.logger.Info(fmt.Sprintf(
		"assigning session %d: %d students on %d slots, %d with preferences",
		sessionID, len(users), len(slots), len(ranked),
	))

	svc.randMu.Lock()
	result := maxMinAssign(users, ranked, slots, svc.rand)
	svc.randMu.Unlock()

	now := core.NowFunc().UTC()
	assignments := make([]Assignment, 0, len(result))
	for _, u := range users {
		slot := result[u]
		a := Assignment{UserID: u, SessionID: sessionID, SlotID: slot, AssignedAt: now}
		if r, ok := ranks[[2]int64{u, slot}]; ok {
			rank := r
			a.ObtainedRank = &rank
		}
		assignments = append(assignments, a)
	}

	if assignments, err = svc.repo.ReplaceAssignments(ctx, sessionID, assignments); err != nil {
		return nil, AssignmentStats{}, errors.Wrap(err, "saving assignments")
	}
	session.Status = StatusResultsAvailable
	if session, err = svc.repo.UpdateSession(ctx, session); err != nil {
		return nil, AssignmentStats{}, errors.Wrap(err, "publishing results")
	}

	stats := computeStats(assignments)
	svc.logStats(session, stats)
	svc.sendReport(session, stats)
	return assignments, stats, nil
}

func (svc *Service) logStats(session Session, stats AssignmentStats) {
	data := map[string]interface{}{
		"session_id":         session.ID,
		"assignments":        stats.Total,
		"without_preference": stats.WithoutPreference,
		"first_choice_rate":  fmt.Sprintf("%.1f%%", stats.FirstChoiceRate),
	}
	for _, rc := range stats.Ranks {
		data[fmt.Sprintf("choice_%d", rc.Rank)] = rc.Count
	}
	svc.logger.Info(fmt.Sprintf("session %d assigned", session.ID), data)
}

func (svc *Service) sendReport(session Session, stats AssignmentStats) {
	if svc.mailSvc == nil || svc.conf.AdminEmail.Address == "" {
		return
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{svc.conf.AdminEmail},
		Subject:      fmt.Sprintf("[%s] Affectations : %s", svc.conf.AppName, session.Subject),
		TemplateName: reportTemplate,
		TemplateData: AssignmentReport{
			Session: session,
			Stats:   stats,
			URL:     fmt.Sprintf("%s/admin/kholles/%d/assignments", svc.conf.FrontendBaseURL, session.ID),
		},
	})
}

func (svc *Service) IsAssigned(ctx context.Context, sessionID int64) (bool, error) {
	n, err := svc.repo.CountAssignments(ctx, sessionID)
	if err != nil {
		return false, errors.Wrap(err, "counting assignments")
	}
	return n > 0, nil
}

func (svc *Service) Assignments(ctx context.Context, sessionID int64) ([]Assignment, error) {
	return svc.repo.QueryAssignments(ctx, sessionID)
}

// AssignmentsWithStats returns the assignments of a session along with their statistics.
func (svc *Service) AssignmentsWithStats(ctx context.Context, sessionID int64) ([]Assignment, AssignmentStats, error) {
	assignments, err := svc.repo.QueryAssignments(ctx, sessionID)
	if err != nil {
		return nil, AssignmentStats{}, err
	}
	return assignments, computeStats(assignments), nil
}

func (svc *Service) GetAssignment(ctx context.Context, id int64) (Assignment, error) {
	return svc.repo.GetAssignment(ctx, id)
}

func (svc *Service) AssignmentOf(ctx context.Context, userID, sessionID int64) (Assignment, error) {
	return svc.repo.UserAssignment(ctx, userID, sessionID)
}

func (svc *Service) DeleteAssignment(ctx context.Context, id int64) error {
	return svc.repo.DeleteAssignment(ctx, id)
}

// UpdateAssignment moves an assignment to another slot of the same session.
func (svc *Service) UpdateAssignment(ctx context.Context, id, slotID int64) (Assignment, error) {
	a, err := svc.repo.GetAssignment(ctx, id)
	if err != nil {
		return Assignment{}, err
	}
	session, err := svc.repo.GetSession(ctx, a.SessionID)
	if err != nil {
		return Assignment{}, err
	}
	if _, ok := session.Slot(slotID); !ok {
		return Assignment{}, ErrSlotNotInSession
	}

	a.SlotID = slotID
	a.ObtainedRank = nil
	prefs, err := svc.repo.UserPreferences(ctx, a.UserID, a.SessionID)
	if err != nil {
		return Assignment{}, errors.Wrap(err, "querying user preferences")
	}
	for _, p := range prefs {
		if p.SlotID == slotID && !p.Unavailable {
			rank := p.Rank
			a.ObtainedRank = &rank
		}
	}
	return svc.repo.UpdateAssignment(ctx, a)
}
