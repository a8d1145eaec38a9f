package kholle

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/khollendar/core"
	"github.com/trezcool/khollendar/core/ranking"
	"github.com/trezcool/khollendar/core/user"
)

var (
	// errors
	ErrNotFound            = errors.New("kholle session not found")
	ErrSlotNotFound        = errors.New("slot not found")
	ErrAssignmentNotFound  = errors.New("assignment not found")
	ErrNoSlots             = errors.New("no slot available for this session")
	ErrPreferencesLocked   = errors.New("preferences already submitted")
	ErrRegistrationsClosed = errors.New("registrations are closed")
	ErrSlotNotInSession    = errors.New("slot does not belong to this session")
	ErrStepNotReached      = errors.New("unavailabilities must be set before ranking")
)

type (
	SessionRepository interface {
		// CreateSession inserts the session and its slots.
		CreateSession(ctx context.Context, session Session) (Session, error)
		GetSession(ctx context.Context, id int64) (Session, error)
		// UpcomingSessions returns sessions with a slot at or after now, by first slot ascending.
		UpcomingSessions(ctx context.Context, now time.Time, page core.Page) ([]Session, core.Page, error)
		// PreviousSessions returns sessions whose slots are all before now, by last slot descending.
		PreviousSessions(ctx context.Context, now time.Time, page core.Page) ([]Session, core.Page, error)
		UpdateSession(ctx context.Context, session Session) (Session, error)
		// DeleteSession cascades slots, preferences and assignments.
		DeleteSession(ctx context.Context, id int64) error
		// UpdateSlotPositions sets the position of each slot to its index in order.
		UpdateSlotPositions(ctx context.Context, sessionID int64, order []int64) error
	}

	PreferenceRepository interface {
		// ReplacePreferences atomically deletes then inserts the preferences of a user for a session.
		ReplacePreferences(ctx context.Context, userID, sessionID int64, prefs []Preference) error
		// QueryPreferences returns the preferences of a session by user id, then rank.
		QueryPreferences(ctx context.Context, sessionID int64) ([]Preference, error)
		UserPreferences(ctx context.Context, userID, sessionID int64) ([]Preference, error)
		DeleteUserPreferences(ctx context.Context, userID, sessionID int64) error
		// CountRegistered counts the distinct users with preferences for a session.
		CountRegistered(ctx context.Context, sessionID int64) (int, error)
	}

	AssignmentRepository interface {
		// ReplaceAssignments atomically deletes then inserts the assignments of a session.
		ReplaceAssignments(ctx context.Context, sessionID int64, assignments []Assignment) ([]Assignment, error)
		QueryAssignments(ctx context.Context, sessionID int64) ([]Assignment, error)
		GetAssignment(ctx context.Context, id int64) (Assignment, error)
		UserAssignment(ctx context.Context, userID, sessionID int64) (Assignment, error)
		UpdateAssignment(ctx context.Context, assignment Assignment) (Assignment, error)
		DeleteAssignment(ctx context.Context, id int64) error
		CountAssignments(ctx context.Context, sessionID int64) (int, error)
	}

	Repository interface {
		SessionRepository
		PreferenceRepository
		AssignmentRepository
	}

	// UserDirectory lists the users taking part in assignments.
	UserDirectory interface {
		QueryAll(ctx context.Context) ([]user.User, error)
	}

	Service struct {
		repo    Repository
		users   UserDirectory
		mailSvc core.EmailService
		conf    *core.Config
		logger  core.Logger

		randMu sync.Mutex
		rand   *rand.Rand
	}

	Option func(svc *Service)
)

// WithRand sets the source used to break ties during assignment.
func WithRand(r *rand.Rand) Option {
	return func(svc *Service) { svc.rand = r }
}

func NewService(
	repo Repository,
	users UserDirectory,
	mailSvc core.EmailService,
	conf *core.Config,
	logger core.Logger,
	opts ...Option,
) *Service {
	svc := &Service{
		repo:    repo,
		users:   users,
		mailSvc: mailSvc,
		conf:    conf,
		logger:  logger,
		rand:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

func (svc *Service) Create(ctx context.Context, ns NewSession) (Session, error) {
	if len(ns.Slots) == 0 {
		return Session{}, ErrNoSlots
	}
	session := Session{
		Subject:   ns.Subject,
		Status:    StatusRegistrationsOpen,
		CreatedAt: core.NowFunc().UTC(),
		Slots:     make([]Slot, 0, len(ns.Slots)),
	}
	for _, s := range ns.Slots {
		session.Slots = append(session.Slots, Slot{DateTime: s.Time.UTC()})
	}
	session.Slots = session.SlotsByDate()
	for i := range session.Slots {
		session.Slots[i].Position = i
	}

	session, err := svc.repo.CreateSession(ctx, session)
	if err != nil {
		return Session{}, errors.Wrap(err, "creating session")
	}
	svc.logger.Info("kholle session created", map[string]interface{}{"id": session.ID, "slots": len(session.Slots)})
	return session, nil
}

func (svc *Service) Get(ctx context.Context, id int64) (Session, error) {
	return svc.repo.GetSession(ctx, id)
}

func (svc *Service) Upcoming(ctx context.Context, page int) ([]Session, core.Page, error) {
	return svc.repo.UpcomingSessions(ctx, core.NowFunc().UTC(), core.NewPage(page, core.DefaultPageSize))
}

func (svc *Service) Previous(ctx context.Context, page int) ([]Session, core.Page, error) {
	return svc.repo.PreviousSessions(ctx, core.NowFunc().UTC(), core.NewPage(page, core.DefaultPageSize))
}

func (svc *Service) Patch(ctx context.Context, id int64, ps PatchSession) (Session, error) {
	session, err := svc.repo.GetSession(ctx, id)
	if err != nil {
		return Session{}, err
	}
	if ps.Subject != nil {
		session.Subject = *ps.Subject
	}
	if ps.Status != nil {
		session.Status = *ps.Status
	}
	return svc.repo.UpdateSession(ctx, session)
}

func (svc *Service) Delete(ctx context.Context, id int64) error {
	if _, err := svc.repo.GetSession(ctx, id); err != nil {
		return err
	}
	return svc.repo.DeleteSession(ctx, id)
}

// MoveSlot moves a slot one step up or down in the display order of the session.
func (svc *Service) MoveSlot(ctx context.Context, sessionID, slotID int64, kind ranking.Kind) (Session, error) {
	session, err := svc.repo.GetSession(ctx, sessionID)
	if err != nil {
		return Session{}, err
	}
	if _, ok := session.Slot(slotID); !ok {
		return Session{}, ErrSlotNotInSession
	}

	list := session.SlotIDs()
	next := ranking.Reorder(list, ranking.Intent{Subject: ranking.ID(slotID), Kind: kind})
	if next.Equal(list) {
		return session, nil
	}

	order := make([]int64, 0, len(next))
	for _, id := range next {
		order = append(order, int64(id))
	}
	if err = svc.repo.UpdateSlotPositions(ctx, sessionID, order); err != nil {
		return Session{}, errors.Wrap(err, "updating slot positions")
	}
	return svc.repo.GetSession(ctx, sessionID)
}
