package kholle

import (
	"context"
	"sort"

	"github.com/pkg/errors"

	"github.com/trezcool/khollendar/core/user"
)

// PreferenceSummary gathers the submitted preferences of one user.
type PreferenceSummary struct {
	User        user.User
	Ranked      []Slot // most preferred first
	Unavailable []Slot
}

// SavePreferences replaces the preferences of a user: ranked slots get ranks 1..n, unavailable slots -1.
func (svc *Service) SavePreferences(ctx context.Context, userID, sessionID int64, unavailable, ranked []int64) error {
	session, err := svc.repo.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}
	if !session.IsOpen() {
		return ErrRegistrationsClosed
	}
	submitted, err := svc.HasSubmitted(ctx, userID, sessionID)
	if err != nil {
		return err
	}
	if submitted {
		return ErrPreferencesLocked
	}

	prefs := make([]Preference, 0, len(unavailable)+len(ranked))
	seen := make(map[int64]bool, len(unavailable)+len(ranked))
	add := func(slotID int64, rank int) error {
		if _, ok := session.Slot(slotID); !ok {
			return ErrSlotNotInSession
		}
		if seen[slotID] {
			return nil
		}
		seen[slotID] = true
		prefs = append(prefs, Preference{
			UserID:      userID,
			SessionID:   sessionID,
			SlotID:      slotID,
			Rank:        rank,
			Unavailable: rank < 0,
		})
		return nil
	}
	for _, id := range unavailable {
		if err = add(id, -1); err != nil {
			return err
		}
	}
	rank := 1
	for _, id := range ranked {
		if seen[id] {
			continue
		}
		if err = add(id, rank); err != nil {
			return err
		}
		rank++
	}

	if err = svc.repo.ReplacePreferences(ctx, userID, sessionID, prefs); err != nil {
		return errors.Wrap(err, "saving preferences")
	}
	return nil
}

func (svc *Service) HasSubmitted(ctx context.Context, userID, sessionID int64) (bool, error) {
	prefs, err := svc.repo.UserPreferences(ctx, userID, sessionID)
	if err != nil {
		return false, errors.Wrap(err, "querying user preferences")
	}
	return len(prefs) > 0, nil
}

func (svc *Service) RegisteredCount(ctx context.Context, sessionID int64) (int, error) {
	return svc.repo.CountRegistered(ctx, sessionID)
}

// UserPreferences returns the preferences of a user: ranked entries first, in rank order.
func (svc *Service) UserPreferences(ctx context.Context, userID, sessionID int64) ([]Preference, error) {
	prefs, err := svc.repo.UserPreferences(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	sortPreferences(prefs)
	return prefs, nil
}

// ClearPreferences lets a user submit their preferences again.
func (svc *Service) ClearPreferences(ctx context.Context, userID, sessionID int64) error {
	return svc.repo.DeleteUserPreferences(ctx, userID, sessionID)
}

// PreferenceSummaries returns the submitted preferences of a session grouped by user.
func (svc *Service) PreferenceSummaries(ctx context.Context, sessionID int64) ([]PreferenceSummary, error) {
	session, err := svc.repo.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	prefs, err := svc.repo.QueryPreferences(ctx, sessionID)
	if err != nil {
		return nil, errors.Wrap(err, "querying preferences")
	}
	users, err := svc.users.QueryAll(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "querying users")
	}

	byUser := groupPreferences(prefs)
	summaries := make([]PreferenceSummary, 0, len(byUser))
	for _, usr := range users {
		userPrefs, ok := byUser[usr.ID]
		if !ok {
			continue
		}
		summary := PreferenceSummary{User: usr}
		for _, p := range userPrefs {
			slot, ok := session.Slot(p.SlotID)
			if !ok {
				continue
			}
			if p.Unavailable {
				summary.Unavailable = append(summary.Unavailable, slot)
			} else {
				summary.Ranked = append(summary.Ranked, slot)
			}
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

// sortPreferences puts ranked entries first by rank, then unavailable ones by slot.
func sortPreferences(prefs []Preference) {
	sort.SliceStable(prefs, func(i, j int) bool {
		a, b := prefs[i], prefs[j]
		if a.Unavailable != b.Unavailable {
			return !a.Unavailable
		}
		if a.Rank != b.Rank {
			return a.Rank < b.Rank
		}
		return a.SlotID < b.SlotID
	})
}

func groupPreferences(prefs []Preference) map[int64][]Preference {
	byUser := make(map[int64][]Preference)
	for _, p := range prefs {
		byUser[p.UserID] = append(byUser[p.UserID], p)
	}
	for _, userPrefs := range byUser {
		sortPreferences(userPrefs)
	}
	return byUser
}
