package kholle

import (
	"sort"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/khollendar/core"
	"github.com/trezcool/khollendar/core/ranking"
)

type Status string

const (
	StatusRegistrationsOpen   Status = "REGISTRATIONS_OPEN"
	StatusRegistrationsClosed Status = "REGISTRATIONS_CLOSED"
	StatusResultsAvailable    Status = "RESULTS_AVAILABLE"
)

var (
	Statuses = []Status{StatusRegistrationsOpen, StatusRegistrationsClosed, StatusResultsAvailable}

	statusLabels = map[Status]string{
		StatusRegistrationsOpen:   "Inscriptions ouvertes",
		StatusRegistrationsClosed: "Inscriptions fermées",
		StatusResultsAvailable:    "Résultats disponibles",
	}
)

func (s Status) Label() string {
	if label, ok := statusLabels[s]; ok {
		return label
	}
	return string(s)
}

func (s Status) IsValid() bool {
	_, ok := statusLabels[s]
	return ok
}

type Slot struct {
	ID        int64     `json:"id"`
	SessionID int64     `json:"session_id"`
	DateTime  time.Time `json:"date_time"` // UTC
	Position  int       `json:"position"`
}

type Session struct {
	ID        int64     `json:"id"`
	Subject   string    `json:"subject"`
	Status    Status    `json:"status"`
	Slots     []Slot    `json:"slots"` // by Position, then DateTime
	CreatedAt time.Time `json:"created_at"`
}

// FirstSlot returns the earliest slot time.
func (s Session) FirstSlot() (time.Time, bool) {
	var first time.Time
	for i, slot := range s.Slots {
		if i == 0 || slot.DateTime.Before(first) {
			first = slot.DateTime
		}
	}
	return first, len(s.Slots) > 0
}

// LastSlot returns the latest slot time.
func (s Session) LastSlot() (time.Time, bool) {
	var last time.Time
	for _, slot := range s.Slots {
		if slot.DateTime.After(last) {
			last = slot.DateTime
		}
	}
	return last, len(s.Slots) > 0
}

func (s Session) Slot(id int64) (Slot, bool) {
	for _, slot := range s.Slots {
		if slot.ID == id {
			return slot, true
		}
	}
	return Slot{}, false
}

// SlotIDs returns the slot ids in display order.
func (s Session) SlotIDs() ranking.List {
	ids := make(ranking.List, 0, len(s.Slots))
	for _, slot := range s.Slots {
		ids = append(ids, ranking.ID(slot.ID))
	}
	return ids
}

// SlotsByDate returns a copy of the slots sorted by date.
func (s Session) SlotsByDate() []Slot {
	slots := make([]Slot, len(s.Slots))
	copy(slots, s.Slots)
	sort.SliceStable(slots, func(i, j int) bool { return slots[i].DateTime.Before(slots[j].DateTime) })
	return slots
}

func (s Session) IsOpen() bool { return s.Status == StatusRegistrationsOpen }

// IsUpcoming reports whether some slot is at or after now.
func (s Session) IsUpcoming(now time.Time) bool {
	last, ok := s.LastSlot()
	return ok && !last.Before(now)
}

// SortSlots orders slots by Position, then DateTime.
func SortSlots(slots []Slot) {
	sort.SliceStable(slots, func(i, j int) bool {
		if slots[i].Position != slots[j].Position {
			return slots[i].Position < slots[j].Position
		}
		return slots[i].DateTime.Before(slots[j].DateTime)
	})
}

// Preference is the choice of a User for one Slot. Unavailable entries have Rank -1.
type Preference struct {
	UserID      int64 `json:"user_id"`
	SessionID   int64 `json:"session_id"`
	SlotID      int64 `json:"slot_id"`
	Rank        int   `json:"rank"`
	Unavailable bool  `json:"unavailable"`
}

type Assignment struct {
	ID           int64     `json:"id"`
	UserID       int64     `json:"user_id"`
	SessionID    int64     `json:"session_id"`
	SlotID       int64     `json:"slot_id"`
	AssignedAt   time.Time `json:"assigned_at"`
	ObtainedRank *int      `json:"obtained_rank"` // nil when no ranked choice was satisfied
}

// NewSession contains information needed to create a new Session.
type NewSession struct {
	Subject string    `form:"subject" validate:"required,notblank,max=255"`
	Slots   []NewSlot `form:"slots" validate:"required,min=1,futureslots,dive"`
}

type NewSlot struct {
	Time time.Time `form:"time" validate:"required"`
}

func (ns *NewSession) Validate(validate *validator.Validate) error {
	ns.Subject = core.CleanString(ns.Subject)
	return validate.Struct(ns)
}

// PatchSession defines what information may be provided to modify an existing Session.
type PatchSession struct {
	Subject *string `form:"subject" validate:"omitempty,notblank,max=255"`
	Status  *Status `form:"status" validate:"omitempty,slotstatus"`
}

func (ps *PatchSession) Validate(validate *validator.Validate) error {
	if ps.Subject != nil {
		subject := core.CleanString(*ps.Subject)
		ps.Subject = &subject
	}
	return validate.Struct(ps)
}
