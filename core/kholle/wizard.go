package kholle

import (
	"context"
	"fmt"
	"sort"

	"github.com/pkg/errors"

	"github.com/trezcool/khollendar/core"
	"github.com/trezcool/khollendar/core/ranking"
)

// Step of the preference wizard.
type Step int

const (
	StepUnavailabilities Step = iota + 1
	StepRanking
	StepConfirmation
)

type (
	// DraftKey identifies the wizard draft of one user for one session.
	DraftKey struct {
		UserID    int64
		SessionID int64
	}

	// Draft is the state of an unfinished preference wizard.
	Draft struct {
		Step        Step    `json:"step"`
		Unavailable []int64 `json:"unavailable"`
		Ranked      []int64 `json:"ranked"`
	}

	DraftStore interface {
		// GetDraft returns false when no draft exists for key.
		GetDraft(ctx context.Context, key DraftKey) (Draft, bool, error)
		SaveDraft(ctx context.Context, key DraftKey, draft Draft) error
		DeleteDraft(ctx context.Context, key DraftKey) error
	}

	// TokenProvider hands out the exclusivity token of a ranking list.
	TokenProvider interface {
		Token(key string) ranking.Token
	}

	// Move is a ranking intent received from a client.
	// PointerY, when set, is used instead of Target to compute the drop index.
	Move struct {
		SlotID   int64
		Kind     ranking.Kind
		Target   int
		PointerY *float64
	}

	WizardView struct {
		Session     Session
		Step        Step
		Locked      bool
		Slots       []Slot // all slots by date
		Unavailable map[int64]bool
		Ranking     []Slot // available slots, most preferred first
		State       ranking.RenderedState
		Submitted   []Preference // when Locked

		// set by Move
		Accepted  bool
		Animation *ranking.Animation
	}

	Wizard struct {
		svc    *Service
		drafts DraftStore
		tokens TokenProvider
		layout ranking.StackLayout
		opts   []ranking.Option
	}
)

func (k DraftKey) String() string {
	return fmt.Sprintf("%d:%d", k.UserID, k.SessionID)
}

func NewWizard(svc *Service, drafts DraftStore, tokens TokenProvider, conf core.RankingConfig, opts ...ranking.Option) *Wizard {
	return &Wizard{
		svc:    svc,
		drafts: drafts,
		tokens: tokens,
		layout: ranking.StackLayout{RowHeight: conf.RowHeight, Gap: conf.RowGap},
		opts: append([]ranking.Option{
			ranking.WithDuration(conf.AnimationDuration),
			ranking.WithEasing(conf.Easing),
		}, opts...),
	}
}

// RankingOrder returns the available slots of session sorted by date, then by their index in previous.
// Slots missing from previous go last.
func RankingOrder(session Session, unavailable, previous []int64) []Slot {
	excluded := make(map[int64]bool, len(unavailable))
	for _, id := range unavailable {
		excluded[id] = true
	}
	index := make(map[int64]int, len(previous))
	for i, id := range previous {
		if _, ok := index[id]; !ok {
			index[id] = i
		}
	}

	slots := make([]Slot, 0, len(session.Slots))
	for _, slot := range session.SlotsByDate() {
		if !excluded[slot.ID] {
			slots = append(slots, slot)
		}
	}
	if len(index) > 0 {
		pos := func(id int64) int {
			if i, ok := index[id]; ok {
				return i
			}
			return len(previous)
		}
		sort.SliceStable(slots, func(i, j int) bool { return pos(slots[i].ID) < pos(slots[j].ID) })
	}
	return slots
}

func slotIDs(slots []Slot) []int64 {
	ids := make([]int64, 0, len(slots))
	for _, s := range slots {
		ids = append(ids, s.ID)
	}
	return ids
}

func toList(ids []int64) ranking.List {
	list := make(ranking.List, 0, len(ids))
	for _, id := range ids {
		list = append(list, ranking.ID(id))
	}
	return list
}

func fromList(list ranking.List) []int64 {
	ids := make([]int64, 0, len(list))
	for _, id := range list {
		ids = append(ids, int64(id))
	}
	return ids
}

// load returns the session and the draft of the user, failing when preferences can no longer change.
func (w *Wizard) load(ctx context.Context, key DraftKey) (Session, Draft, error) {
	session, err := w.svc.Get(ctx, key.SessionID)
	if err != nil {
		return Session{}, Draft{}, err
	}
	if !session.IsOpen() {
		return Session{}, Draft{}, ErrRegistrationsClosed
	}
	submitted, err := w.svc.HasSubmitted(ctx, key.UserID, key.SessionID)
	if err != nil {
		return Session{}, Draft{}, err
	}
	if submitted {
		return Session{}, Draft{}, ErrPreferencesLocked
	}

	draft, ok, err := w.drafts.GetDraft(ctx, key)
	if err != nil {
		return Session{}, Draft{}, errors.Wrap(err, "getting draft")
	}
	if !ok || draft.Step < StepUnavailabilities {
		draft = Draft{Step: StepUnavailabilities}
	}
	return session, draft, nil
}

func (w *Wizard) view(session Session, draft Draft) WizardView {
	v := WizardView{
		Session:     session,
		Step:        draft.Step,
		Slots:       session.SlotsByDate(),
		Unavailable: make(map[int64]bool, len(draft.Unavailable)),
		Ranking:     RankingOrder(session, draft.Unavailable, draft.Ranked),
	}
	for _, id := range draft.Unavailable {
		v.Unavailable[id] = true
	}
	v.State = ranking.Sync(toList(slotIDs(v.Ranking)))
	return v
}

func (w *Wizard) save(ctx context.Context, key DraftKey, draft Draft) error {
	return errors.Wrap(w.drafts.SaveDraft(ctx, key, draft), "saving draft")
}

// View returns the current state of the wizard, or the locked view once preferences are submitted.
func (w *Wizard) View(ctx context.Context, userID, sessionID int64) (WizardView, error) {
	key := DraftKey{UserID: userID, SessionID: sessionID}
	session, draft, err := w.load(ctx, key)
	switch errors.Cause(err) {
	case nil:
		return w.view(session, draft), nil
	case ErrPreferencesLocked, ErrRegistrationsClosed:
		if session, err = w.svc.Get(ctx, sessionID); err != nil {
			return WizardView{}, err
		}
		prefs, err := w.svc.UserPreferences(ctx, userID, sessionID)
		if err != nil {
			return WizardView{}, err
		}
		return WizardView{Session: session, Locked: true, Slots: session.SlotsByDate(), Submitted: prefs}, nil
	default:
		return WizardView{}, err
	}
}

// SetUnavailable records the slots the user cannot attend and moves to the ranking step.
func (w *Wizard) SetUnavailable(ctx context.Context, userID, sessionID int64, unavailable []int64) (WizardView, error) {
	key := DraftKey{UserID: userID, SessionID: sessionID}
	session, draft, err := w.load(ctx, key)
	if err != nil {
		return WizardView{}, err
	}
	for _, id := range unavailable {
		if _, ok := session.Slot(id); !ok {
			return WizardView{}, ErrSlotNotInSession
		}
	}

	draft.Unavailable = unavailable
	draft.Ranked = slotIDs(RankingOrder(session, unavailable, draft.Ranked))
	draft.Step = StepRanking
	if err = w.save(ctx, key, draft); err != nil {
		return WizardView{}, err
	}
	return w.view(session, draft), nil
}

// Move applies a ranking intent through the ranking controller of the user's list.
// Intents rejected by the controller leave the draft untouched.
func (w *Wizard) Move(ctx context.Context, userID, sessionID int64, mv Move) (WizardView, error) {
	key := DraftKey{UserID: userID, SessionID: sessionID}
	session, draft, err := w.load(ctx, key)
	if err != nil {
		return WizardView{}, err
	}
	if draft.Step < StepRanking {
		return WizardView{}, ErrStepNotReached
	}

	order := slotIDs(RankingOrder(session, draft.Unavailable, draft.Ranked))
	recorder := ranking.NewRecorder(w.layout)
	driver := ranking.NewDriver(w.tokens.Token("ranking:"+key.String()), recorder, w.opts...)
	ctrl := ranking.NewController(toList(order), driver)

	id := ranking.ID(mv.SlotID)
	var accepted bool
	switch {
	case mv.Kind == ranking.Up:
		accepted = ctrl.OnMoveUp(id)
	case mv.Kind == ranking.Down:
		accepted = ctrl.OnMoveDown(id)
	case mv.PointerY != nil:
		accepted = ctrl.OnRelease(id, *mv.PointerY)
	default:
		accepted = ctrl.OnDrop(id, mv.Target)
	}

	if accepted {
		draft.Ranked = fromList(ctrl.List())
		if err = w.save(ctx, key, draft); err != nil {
			return WizardView{}, err
		}
	}

	v := w.view(session, draft)
	v.Accepted = accepted
	if accepted {
		v.Animation = recorder.Animation()
	}
	return v, nil
}

// SetRanking stores a complete ranking and moves to the confirmation step.
// Move and SetRanking fail with ErrStepNotReached before the unavailabilities are set.
func (w *Wizard) SetRanking(ctx context.Context, userID, sessionID int64, ranked []int64) (WizardView, error) {
	key := DraftKey{UserID: userID, SessionID: sessionID}
	session, draft, err := w.load(ctx, key)
	if err != nil {
		return WizardView{}, err
	}
	if draft.Step < StepRanking {
		return WizardView{}, ErrStepNotReached
	}
	for _, id := range ranked {
		if _, ok := session.Slot(id); !ok {
			return WizardView{}, ErrSlotNotInSession
		}
	}

	draft.Ranked = slotIDs(RankingOrder(session, draft.Unavailable, ranked))
	draft.Step = StepConfirmation
	if err = w.save(ctx, key, draft); err != nil {
		return WizardView{}, err
	}
	return w.view(session, draft), nil
}

// Back returns to the previous step.
func (w *Wizard) Back(ctx context.Context, userID, sessionID int64) (WizardView, error) {
	key := DraftKey{UserID: userID, SessionID: sessionID}
	session, draft, err := w.load(ctx, key)
	if err != nil {
		return WizardView{}, err
	}
	if draft.Step > StepUnavailabilities {
		draft.Step--
	}
	if err = w.save(ctx, key, draft); err != nil {
		return WizardView{}, err
	}
	return w.view(session, draft), nil
}

// Confirm saves the preferences of the draft and discards it.
func (w *Wizard) Confirm(ctx context.Context, userID, sessionID int64) error {
	key := DraftKey{UserID: userID, SessionID: sessionID}
	session, draft, err := w.load(ctx, key)
	if err != nil {
		return err
	}

	ranked := slotIDs(RankingOrder(session, draft.Unavailable, draft.Ranked))
	if err = w.svc.SavePreferences(ctx, userID, sessionID, draft.Unavailable, ranked); err != nil {
		return err
	}
	return errors.Wrap(w.drafts.DeleteDraft(ctx, key), "deleting draft")
}
