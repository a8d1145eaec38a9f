package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/trezcool/khollendar/core"
	"github.com/trezcool/khollendar/core/kholle"
)

type kholleRepository struct {
	db *DB
}

var _ kholle.Repository = (*kholleRepository)(nil) // interface compliance check

func NewKholleRepository(db *DB) *kholleRepository {
	return &kholleRepository{db: db}
}

// session must be called with the lock held.
func (repo *kholleRepository) session(id int64) (kholle.Session, bool) {
	s, ok := repo.db.sessions[id]
	if !ok {
		return kholle.Session{}, false
	}
	session := *s
	session.Slots = nil
	for _, slot := range repo.db.slots {
		if slot.SessionID == id {
			session.Slots = append(session.Slots, *slot)
		}
	}
	kholle.SortSlots(session.Slots)
	return session, true
}

// sessions must be called with the lock held.
func (repo *kholleRepository) sessions(keep func(kholle.Session) bool) []kholle.Session {
	sessions := make([]kholle.Session, 0, len(repo.db.sessions))
	for id := range repo.db.sessions {
		if s, ok := repo.session(id); ok && keep(s) {
			sessions = append(sessions, s)
		}
	}
	return sessions
}

func paginate(sessions []kholle.Session, page core.Page) ([]kholle.Session, core.Page) {
	page.Total = len(sessions)
	start, end := page.Bounds()
	return sessions[start:end], page
}

func (repo *kholleRepository) CreateSession(ctx context.Context, session kholle.Session) (kholle.Session, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	session.ID = repo.db.nextID()
	for i := range session.Slots {
		session.Slots[i].ID = repo.db.nextID()
		session.Slots[i].SessionID = session.ID
		slot := session.Slots[i]
		repo.db.slots[slot.ID] = &slot
	}
	s := session
	s.Slots = nil
	repo.db.sessions[session.ID] = &s

	created, _ := repo.session(session.ID)
	return created, nil
}

func (repo *kholleRepository) GetSession(ctx context.Context, id int64) (kholle.Session, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if s, ok := repo.session(id); ok {
		return s, nil
	}
	return kholle.Session{}, kholle.ErrNotFound
}

func (repo *kholleRepository) UpcomingSessions(ctx context.Context, now time.Time, page core.Page) ([]kholle.Session, core.Page, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	sessions := repo.sessions(func(s kholle.Session) bool { return s.IsUpcoming(now) })
	sort.Slice(sessions, func(i, j int) bool {
		a, _ := sessions[i].FirstSlot()
		b, _ := sessions[j].FirstSlot()
		if a.Equal(b) {
			return sessions[i].ID < sessions[j].ID
		}
		return a.Before(b)
	})
	sessions, page = paginate(sessions, page)
	return sessions, page, nil
}

func (repo *kholleRepository) PreviousSessions(ctx context.Context, now time.Time, page core.Page) ([]kholle.Session, core.Page, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	sessions := repo.sessions(func(s kholle.Session) bool { return len(s.Slots) > 0 && !s.IsUpcoming(now) })
	sort.Slice(sessions, func(i, j int) bool {
		a, _ := sessions[i].LastSlot()
		b, _ := sessions[j].LastSlot()
		if a.Equal(b) {
			return sessions[i].ID > sessions[j].ID
		}
		return a.After(b)
	})
	sessions, page = paginate(sessions, page)
	return sessions, page, nil
}

func (repo *kholleRepository) UpdateSession(ctx context.Context, session kholle.Session) (kholle.Session, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	s, ok := repo.db.sessions[session.ID]
	if !ok {
		return kholle.Session{}, kholle.ErrNotFound
	}
	s.Subject = session.Subject
	s.Status = session.Status
	updated, _ := repo.session(session.ID)
	return updated, nil
}

func (repo *kholleRepository) DeleteSession(ctx context.Context, id int64) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.sessions[id]; !ok {
		return kholle.ErrNotFound
	}
	delete(repo.db.sessions, id)
	for slotID, slot := range repo.db.slots {
		if slot.SessionID == id {
			delete(repo.db.slots, slotID)
		}
	}
	prefs := repo.db.preferences[:0]
	for _, p := range repo.db.preferences {
		if p.SessionID != id {
			prefs = append(prefs, p)
		}
	}
	repo.db.preferences = prefs
	for aID, a := range repo.db.assignments {
		if a.SessionID == id {
			delete(repo.db.assignments, aID)
		}
	}
	return nil
}

func (repo *kholleRepository) UpdateSlotPositions(ctx context.Context, sessionID int64, order []int64) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for pos, id := range order {
		slot, ok := repo.db.slots[id]
		if !ok || slot.SessionID != sessionID {
			return kholle.ErrSlotNotInSession
		}
		slot.Position = pos
	}
	return nil
}

func (repo *kholleRepository) ReplacePreferences(ctx context.Context, userID, sessionID int64, prefs []kholle.Preference) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	kept := repo.db.preferences[:0]
	for _, p := range repo.db.preferences {
		if p.UserID != userID || p.SessionID != sessionID {
			kept = append(kept, p)
		}
	}
	repo.db.preferences = append(kept, prefs...)
	return nil
}

// filterPreferences must be called with the lock held.
func (repo *kholleRepository) filterPreferences(keep func(kholle.Preference) bool) []kholle.Preference {
	var prefs []kholle.Preference
	for _, p := range repo.db.preferences {
		if keep(p) {
			prefs = append(prefs, p)
		}
	}
	sort.SliceStable(prefs, func(i, j int) bool {
		if prefs[i].UserID != prefs[j].UserID {
			return prefs[i].UserID < prefs[j].UserID
		}
		return prefs[i].Rank < prefs[j].Rank
	})
	return prefs
}

func (repo *kholleRepository) QueryPreferences(ctx context.Context, sessionID int64) ([]kholle.Preference, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	return repo.filterPreferences(func(p kholle.Preference) bool { return p.SessionID == sessionID }), nil
}

func (repo *kholleRepository) UserPreferences(ctx context.Context, userID, sessionID int64) ([]kholle.Preference, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	return repo.filterPreferences(func(p kholle.Preference) bool {
		return p.SessionID == sessionID && p.UserID == userID
	}), nil
}

func (repo *kholleRepository) DeleteUserPreferences(ctx context.Context, userID, sessionID int64) error {
	return repo.ReplacePreferences(ctx, userID, sessionID, nil)
}

func (repo *kholleRepository) CountRegistered(ctx context.Context, sessionID int64) (int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	users := make(map[int64]bool)
	for _, p := range repo.db.preferences {
		if p.SessionID == sessionID {
			users[p.UserID] = true
		}
	}
	return len(users), nil
}

func (repo *kholleRepository) ReplaceAssignments(ctx context.Context, sessionID int64, assignments []kholle.Assignment) ([]kholle.Assignment, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for id, a := range repo.db.assignments {
		if a.SessionID == sessionID {
			delete(repo.db.assignments, id)
		}
	}
	saved := make([]kholle.Assignment, 0, len(assignments))
	for _, a := range assignments {
		a.ID = repo.db.nextID()
		a.SessionID = sessionID
		stored := a
		repo.db.assignments[a.ID] = &stored
		saved = append(saved, a)
	}
	return saved, nil
}

func (repo *kholleRepository) QueryAssignments(ctx context.Context, sessionID int64) ([]kholle.Assignment, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var assignments []kholle.Assignment
	for _, a := range repo.db.assignments {
		if a.SessionID == sessionID {
			assignments = append(assignments, *a)
		}
	}
	sort.Slice(assignments, func(i, j int) bool { return assignments[i].ID < assignments[j].ID })
	return assignments, nil
}

func (repo *kholleRepository) GetAssignment(ctx context.Context, id int64) (kholle.Assignment, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if a, ok := repo.db.assignments[id]; ok {
		return *a, nil
	}
	return kholle.Assignment{}, kholle.ErrAssignmentNotFound
}

func (repo *kholleRepository) UserAssignment(ctx context.Context, userID, sessionID int64) (kholle.Assignment, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, a := range repo.db.assignments {
		if a.UserID == userID && a.SessionID == sessionID {
			return *a, nil
		}
	}
	return kholle.Assignment{}, kholle.ErrAssignmentNotFound
}

func (repo *kholleRepository) UpdateAssignment(ctx context.Context, assignment kholle.Assignment) (kholle.Assignment, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	a, ok := repo.db.assignments[assignment.ID]
	if !ok {
		return kholle.Assignment{}, kholle.ErrAssignmentNotFound
	}
	a.SlotID = assignment.SlotID
	a.ObtainedRank = assignment.ObtainedRank
	return *a, nil
}

func (repo *kholleRepository) DeleteAssignment(ctx context.Context, id int64) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.assignments[id]; !ok {
		return kholle.ErrAssignmentNotFound
	}
	delete(repo.db.assignments, id)
	return nil
}

func (repo *kholleRepository) CountAssignments(ctx context.Context, sessionID int64) (int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var n int
	for _, a := range repo.db.assignments {
		if a.SessionID == sessionID {
			n++
		}
	}
	return n, nil
}
