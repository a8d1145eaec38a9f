package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/khollendar/core"
	"github.com/trezcool/khollendar/core/kholle"
)

const (
	sessionColumns    = "s.id, s.subject, s.status, s.created_at"
	slotColumns       = "id, session_id, date_time, position"
	preferenceColumns = "user_id, session_id, slot_id, rank, unavailable"
	assignmentColumns = "id, user_id, session_id, slot_id, assigned_at, obtained_rank"

	// slot bounds per session, joined to list upcoming & previous sessions
	slotBounds = `(SELECT session_id, MIN(date_time) AS first_slot, MAX(date_time) AS last_slot
		FROM kholle_slots GROUP BY session_id) b ON b.session_id = s.id`
)

type (
	sessionRow struct {
		ID        int64     `db:"id"`
		Subject   string    `db:"subject"`
		Status    string    `db:"status"`
		CreatedAt time.Time `db:"created_at"`
	}

	slotRow struct {
		ID        int64     `db:"id"`
		SessionID int64     `db:"session_id"`
		DateTime  time.Time `db:"date_time"`
		Position  int       `db:"position"`
	}

	preferenceRow struct {
		UserID      int64 `db:"user_id"`
		SessionID   int64 `db:"session_id"`
		SlotID      int64 `db:"slot_id"`
		Rank        int   `db:"rank"`
		Unavailable bool  `db:"unavailable"`
	}

	assignmentRow struct {
		ID           int64     `db:"id"`
		UserID       int64     `db:"user_id"`
		SessionID    int64     `db:"session_id"`
		SlotID       int64     `db:"slot_id"`
		AssignedAt   time.Time `db:"assigned_at"`
		ObtainedRank null.Int  `db:"obtained_rank"`
	}
)

func (r sessionRow) session(slots []kholle.Slot) kholle.Session {
	kholle.SortSlots(slots)
	return kholle.Session{
		ID:        r.ID,
		Subject:   r.Subject,
		Status:    kholle.Status(r.Status),
		Slots:     slots,
		CreatedAt: r.CreatedAt.UTC(),
	}
}

func (r slotRow) slot() kholle.Slot {
	return kholle.Slot{ID: r.ID, SessionID: r.SessionID, DateTime: r.DateTime.UTC(), Position: r.Position}
}

func (r preferenceRow) preference() kholle.Preference {
	return kholle.Preference{
		UserID:      r.UserID,
		SessionID:   r.SessionID,
		SlotID:      r.SlotID,
		Rank:        r.Rank,
		Unavailable: r.Unavailable,
	}
}

func toAssignmentRow(a kholle.Assignment) assignmentRow {
	return assignmentRow{
		ID:           a.ID,
		UserID:       a.UserID,
		SessionID:    a.SessionID,
		SlotID:       a.SlotID,
		AssignedAt:   a.AssignedAt.UTC(),
		ObtainedRank: null.IntFromPtr(a.ObtainedRank),
	}
}

func (r assignmentRow) assignment() kholle.Assignment {
	return kholle.Assignment{
		ID:           r.ID,
		UserID:       r.UserID,
		SessionID:    r.SessionID,
		SlotID:       r.SlotID,
		AssignedAt:   r.AssignedAt.UTC(),
		ObtainedRank: r.ObtainedRank.Ptr(),
	}
}

type kholleRepository struct {
	db core.DB
}

var _ kholle.Repository = (*kholleRepository)(nil) // interface compliance check

func NewKholleRepository(db core.DB) *kholleRepository {
	return &kholleRepository{db: db}
}

// withSlots loads the slots of the sessions in rows, keeping the order of rows.
func withSlots(ctx context.Context, exec core.DBExecutor, rows []sessionRow) ([]kholle.Session, error) {
	sessions := make([]kholle.Session, 0, len(rows))
	if len(rows) == 0 {
		return sessions, nil
	}

	ids := make([]int64, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.ID)
	}
	q, args, err := in(exec, "SELECT "+slotColumns+" FROM kholle_slots WHERE session_id IN (?)", ids)
	if err != nil {
		return nil, err
	}
	var slotRows []slotRow
	if err = exec.SelectContext(ctx, &slotRows, q, args...); err != nil {
		return nil, errors.Wrap(err, "selecting slots")
	}

	bySession := make(map[int64][]kholle.Slot, len(rows))
	for _, sr := range slotRows {
		bySession[sr.SessionID] = append(bySession[sr.SessionID], sr.slot())
	}
	for _, r := range rows {
		sessions = append(sessions, r.session(bySession[r.ID]))
	}
	return sessions, nil
}

func getSession(ctx context.Context, exec core.DBExecutor, id int64) (kholle.Session, error) {
	var row sessionRow
	if err := exec.GetContext(ctx, &row, "SELECT "+sessionColumns+" FROM kholle_sessions s WHERE s.id = $1", id); err != nil {
		return kholle.Session{}, trapNoRowsErr(err, kholle.ErrNotFound, "selecting session")
	}
	sessions, err := withSlots(ctx, exec, []sessionRow{row})
	if err != nil {
		return kholle.Session{}, err
	}
	return sessions[0], nil
}

func (repo *kholleRepository) CreateSession(ctx context.Context, session kholle.Session) (kholle.Session, error) {
	var created kholle.Session
	err := withTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		var id int64
		err := tx.GetContext(ctx, &id,
			"INSERT INTO kholle_sessions (subject, status, created_at) VALUES ($1, $2, $3) RETURNING id",
			session.Subject, string(session.Status), session.CreatedAt.UTC())
		if err != nil {
			return errors.Wrap(err, "inserting session")
		}
		for _, slot := range session.Slots {
			_, err = tx.ExecContext(ctx,
				"INSERT INTO kholle_slots (session_id, date_time, position) VALUES ($1, $2, $3)",
				id, slot.DateTime.UTC(), slot.Position)
			if err != nil {
				return errors.Wrap(err, "inserting slot")
			}
		}
		created, err = getSession(ctx, tx, id)
		return err
	})
	return created, err
}

func (repo *kholleRepository) GetSession(ctx context.Context, id int64) (kholle.Session, error) {
	return getSession(ctx, repo.db, id)
}

func (repo *kholleRepository) listSessions(ctx context.Context, where, order string, now time.Time, page core.Page) ([]kholle.Session, core.Page, error) {
	var total int
	err := repo.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM kholle_sessions s JOIN "+slotBounds+" WHERE "+where, now)
	if err != nil {
		return nil, page, errors.Wrap(err, "counting sessions")
	}
	page.Total = total

	var rows []sessionRow
	err = repo.db.SelectContext(ctx, &rows,
		"SELECT "+sessionColumns+" FROM kholle_sessions s JOIN "+slotBounds+
			" WHERE "+where+" ORDER BY "+order+" LIMIT $2 OFFSET $3",
		now, page.Size, page.Offset())
	if err != nil {
		return nil, page, errors.Wrap(err, "selecting sessions")
	}
	sessions, err := withSlots(ctx, repo.db, rows)
	return sessions, page, err
}

func (repo *kholleRepository) UpcomingSessions(ctx context.Context, now time.Time, page core.Page) ([]kholle.Session, core.Page, error) {
	return repo.listSessions(ctx, "b.last_slot >= $1", "b.first_slot ASC, s.id ASC", now.UTC(), page)
}

func (repo *kholleRepository) PreviousSessions(ctx context.Context, now time.Time, page core.Page) ([]kholle.Session, core.Page, error) {
	return repo.listSessions(ctx, "b.last_slot < $1", "b.last_slot DESC, s.id DESC", now.UTC(), page)
}

func (repo *kholleRepository) UpdateSession(ctx context.Context, session kholle.Session) (kholle.Session, error) {
	res, err := repo.db.ExecContext(ctx,
		"UPDATE kholle_sessions SET subject = $1, status = $2 WHERE id = $3",
		session.Subject, string(session.Status), session.ID)
	if err != nil {
		return kholle.Session{}, errors.Wrap(err, "updating session")
	}
	if err = checkAffected(res, kholle.ErrNotFound); err != nil {
		return kholle.Session{}, err
	}
	return getSession(ctx, repo.db, session.ID)
}

func (repo *kholleRepository) DeleteSession(ctx context.Context, id int64) error {
	res, err := repo.db.ExecContext(ctx, "DELETE FROM kholle_sessions WHERE id = $1", id)
	if err != nil {
		return errors.Wrap(err, "deleting session")
	}
	return checkAffected(res, kholle.ErrNotFound)
}

func (repo *kholleRepository) UpdateSlotPositions(ctx context.Context, sessionID int64, order []int64) error {
	return withTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		for pos, id := range order {
			res, err := tx.ExecContext(ctx,
				"UPDATE kholle_slots SET position = $1 WHERE id = $2 AND session_id = $3", pos, id, sessionID)
			if err != nil {
				return errors.Wrap(err, "updating slot position")
			}
			if err = checkAffected(res, kholle.ErrSlotNotInSession); err != nil {
				return err
			}
		}
		return nil
	})
}

func (repo *kholleRepository) ReplacePreferences(ctx context.Context, userID, sessionID int64, prefs []kholle.Preference) error {
	return withTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx,
			"DELETE FROM kholle_preferences WHERE user_id = $1 AND session_id = $2", userID, sessionID)
		if err != nil {
			return errors.Wrap(err, "deleting preferences")
		}
		for _, p := range prefs {
			_, err = tx.ExecContext(ctx,
				"INSERT INTO kholle_preferences ("+preferenceColumns+") VALUES ($1, $2, $3, $4, $5)",
				userID, sessionID, p.SlotID, p.Rank, p.Unavailable)
			if err != nil {
				return errors.Wrap(err, "inserting preference")
			}
		}
		return nil
	})
}

func (repo *kholleRepository) selectPreferences(ctx context.Context, where string, args ...interface{}) ([]kholle.Preference, error) {
	var rows []preferenceRow
	err := repo.db.SelectContext(ctx, &rows,
		"SELECT "+preferenceColumns+" FROM kholle_preferences WHERE "+where+" ORDER BY user_id, rank", args...)
	if err != nil {
		return nil, errors.Wrap(err, "selecting preferences")
	}
	prefs := make([]kholle.Preference, 0, len(rows))
	for _, r := range rows {
		prefs = append(prefs, r.preference())
	}
	return prefs, nil
}

func (repo *kholleRepository) QueryPreferences(ctx context.Context, sessionID int64) ([]kholle.Preference, error) {
	return repo.selectPreferences(ctx, "session_id = $1", sessionID)
}

func (repo *kholleRepository) UserPreferences(ctx context.Context, userID, sessionID int64) ([]kholle.Preference, error) {
	return repo.selectPreferences(ctx, "user_id = $1 AND session_id = $2", userID, sessionID)
}

func (repo *kholleRepository) DeleteUserPreferences(ctx context.Context, userID, sessionID int64) error {
	_, err := repo.db.ExecContext(ctx,
		"DELETE FROM kholle_preferences WHERE user_id = $1 AND session_id = $2", userID, sessionID)
	return errors.Wrap(err, "deleting preferences")
}

func (repo *kholleRepository) CountRegistered(ctx context.Context, sessionID int64) (int, error) {
	var n int
	err := repo.db.GetContext(ctx, &n,
		"SELECT COUNT(DISTINCT user_id) FROM kholle_preferences WHERE session_id = $1", sessionID)
	return n, errors.Wrap(err, "counting registered users")
}

func (repo *kholleRepository) ReplaceAssignments(ctx context.Context, sessionID int64, assignments []kholle.Assignment) ([]kholle.Assignment, error) {
	saved := make([]kholle.Assignment, 0, len(assignments))
	err := withTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM kholle_assignments WHERE session_id = $1", sessionID); err != nil {
			return errors.Wrap(err, "deleting assignments")
		}
		for _, a := range assignments {
			a.SessionID = sessionID
			q, args, err := tx.BindNamed(`
				INSERT INTO kholle_assignments (user_id, session_id, slot_id, assigned_at, obtained_rank)
				VALUES (:user_id, :session_id, :slot_id, :assigned_at, :obtained_rank)
				RETURNING `+assignmentColumns, toAssignmentRow(a))
			if err != nil {
				return errors.Wrap(err, "binding assignment")
			}
			var row assignmentRow
			if err = tx.GetContext(ctx, &row, q, args...); err != nil {
				return errors.Wrap(err, "inserting assignment")
			}
			saved = append(saved, row.assignment())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return saved, nil
}

func (repo *kholleRepository) selectAssignments(ctx context.Context, where string, args ...interface{}) ([]kholle.Assignment, error) {
	var rows []assignmentRow
	err := repo.db.SelectContext(ctx, &rows,
		"SELECT "+assignmentColumns+" FROM kholle_assignments WHERE "+where+" ORDER BY id", args...)
	if err != nil {
		return nil, errors.Wrap(err, "selecting assignments")
	}
	assignments := make([]kholle.Assignment, 0, len(rows))
	for _, r := range rows {
		assignments = append(assignments, r.assignment())
	}
	return assignments, nil
}

func (repo *kholleRepository) QueryAssignments(ctx context.Context, sessionID int64) ([]kholle.Assignment, error) {
	return repo.selectAssignments(ctx, "session_id = $1", sessionID)
}

func (repo *kholleRepository) getAssignment(ctx context.Context, where string, args ...interface{}) (kholle.Assignment, error) {
	var row assignmentRow
	err := repo.db.GetContext(ctx, &row, "SELECT "+assignmentColumns+" FROM kholle_assignments WHERE "+where, args...)
	if err != nil {
		return kholle.Assignment{}, trapNoRowsErr(err, kholle.ErrAssignmentNotFound, "selecting assignment")
	}
	return row.assignment(), nil
}

func (repo *kholleRepository) GetAssignment(ctx context.Context, id int64) (kholle.Assignment, error) {
	return repo.getAssignment(ctx, "id = $1", id)
}

func (repo *kholleRepository) UserAssignment(ctx context.Context, userID, sessionID int64) (kholle.Assignment, error) {
	return repo.getAssignment(ctx, "user_id = $1 AND session_id = $2", userID, sessionID)
}

func (repo *kholleRepository) UpdateAssignment(ctx context.Context, assignment kholle.Assignment) (kholle.Assignment, error) {
	var row assignmentRow
	err := repo.db.GetContext(ctx, &row,
		"UPDATE kholle_assignments SET slot_id = $1, obtained_rank = $2 WHERE id = $3 RETURNING "+assignmentColumns,
		assignment.SlotID, null.IntFromPtr(assignment.ObtainedRank), assignment.ID)
	if err != nil {
		return kholle.Assignment{}, trapNoRowsErr(err, kholle.ErrAssignmentNotFound, "updating assignment")
	}
	return row.assignment(), nil
}

func (repo *kholleRepository) DeleteAssignment(ctx context.Context, id int64) error {
	res, err := repo.db.ExecContext(ctx, "DELETE FROM kholle_assignments WHERE id = $1", id)
	if err != nil {
		return errors.Wrap(err, "deleting assignment")
	}
	return checkAffected(res, kholle.ErrAssignmentNotFound)
}

func (repo *kholleRepository) CountAssignments(ctx context.Context, sessionID int64) (int, error) {
	var n int
	err := repo.db.GetContext(ctx, &n, "SELECT COUNT(*) FROM kholle_assignments WHERE session_id = $1", sessionID)
	return n, errors.Wrap(err, "counting assignments")
}
