package echoapi

import (
	"context"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/khollendar/core/kholle"
	"github.com/trezcool/khollendar/services/scheduler"
)

type (
	assignmentRow struct {
		Assignment kholle.Assignment `json:"assignment"`
		Username   string            `json:"username"`
	}

	slotAssignments struct {
		Slot        kholle.Slot     `json:"slot"`
		Assignments []assignmentRow `json:"assignments"`
	}

	assignmentsView struct {
		Session kholle.Session         `json:"session"`
		Stats   kholle.AssignmentStats `json:"stats"`
		BySlot  []slotAssignments      `json:"by_slot"`
		IsAdmin bool                   `json:"-"`
	}

	preferencesView struct {
		Session   kholle.Session             `json:"session"`
		Summaries []kholle.PreferenceSummary `json:"summaries"`
	}
)

func (s *Server) registerAssignmentRoutes(jwt, admin echo.MiddlewareFunc) {
	s.app.GET("/kholles/:id/assignments", s.assignments, jwt)
	s.app.POST("/kholles/:id/assignments/trigger", s.triggerAssignment, jwt, admin)
	s.app.POST("/kholles/assignments/trigger-all", s.triggerAllAssignments, jwt, admin)

	// admin routes: middlewares are set per route, a group middleware would also catch unknown paths
	ag := s.app.Group("/admin/kholles/:id")
	ag.GET("/preferences", s.adminPreferences, jwt, admin)
	ag.DELETE("/preferences/user/:userID", s.clearUserPreferences, jwt, admin)
	ag.GET("/assignments", s.adminAssignments, jwt, admin)
	ag.PUT("/assignments/:assignmentID", s.updateAssignment, jwt, admin)
	ag.DELETE("/assignments/:assignmentID", s.destroyAssignment, jwt, admin)
}

func (s *Server) assignmentsView(ctx context.Context, sessionID int64) (assignmentsView, error) {
	session, err := s.deps.KholleSvc.Get(ctx, sessionID)
	if err != nil {
		return assignmentsView{}, err
	}
	assignments, stats, err := s.deps.KholleSvc.AssignmentsWithStats(ctx, sessionID)
	if err != nil {
		return assignmentsView{}, errors.Wrap(err, "querying assignments")
	}
	users, err := s.deps.UserSvc.QueryAll(ctx)
	if err != nil {
		return assignmentsView{}, errors.Wrap(err, "querying users")
	}
	usernames := make(map[int64]string, len(users))
	for _, u := range users {
		usernames[u.ID] = u.Username
	}

	view := assignmentsView{Session: session, Stats: stats}
	for _, slot := range session.SlotsByDate() {
		group := slotAssignments{Slot: slot}
		for _, a := range assignments {
			if a.SlotID == slot.ID {
				group.Assignments = append(group.Assignments, assignmentRow{Assignment: a, Username: usernames[a.UserID]})
			}
		}
		view.BySlot = append(view.BySlot, group)
	}
	return view, nil
}

func (s *Server) assignments(ctx echo.Context) error {
	id, err := paramID(ctx, "id")
	if err != nil {
		return err
	}
	assigned, err := s.deps.KholleSvc.IsAssigned(ctx.Request().Context(), id)
	if err != nil {
		return err
	}
	if !assigned {
		return redirect(ctx, fmt.Sprintf("/kholles/%d", id))
	}

	view, err := s.assignmentsView(ctx.Request().Context(), id)
	if err != nil {
		return err
	}
	if claims, err := getContextClaims(ctx); err == nil {
		view.IsAdmin = claims.IsAdmin
	}
	return s.renderer.renderPage(ctx, http.StatusOK, "assignments", "Affectations : "+view.Session.Subject, view)
}

func (s *Server) triggerAssignment(ctx echo.Context) error {
	id, err := paramID(ctx, "id")
	if err != nil {
		return err
	}
	if _, _, err = s.deps.KholleSvc.Assign(ctx.Request().Context(), id); err != nil {
		return err
	}
	return redirect(ctx, fmt.Sprintf("/kholles/%d/assignments", id))
}

func (s *Server) triggerAllAssignments(ctx echo.Context) error {
	report, err := s.deps.Assigner.Trigger(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "running assignment job")
	}
	return s.renderer.renderPartial(ctx, http.StatusOK, "job_report", report)
}

func (s *Server) adminPreferences(ctx echo.Context) error {
	view, err := s.preferencesView(ctx)
	if err != nil {
		return err
	}
	return s.renderer.render(ctx, "admin_preferences", "preferences_table", "Préférences : "+view.Session.Subject, view)
}

func (s *Server) preferencesView(ctx echo.Context) (preferencesView, error) {
	id, err := paramID(ctx, "id")
	if err != nil {
		return preferencesView{}, err
	}
	session, err := s.deps.KholleSvc.Get(ctx.Request().Context(), id)
	if err != nil {
		return preferencesView{}, err
	}
	summaries, err := s.deps.KholleSvc.PreferenceSummaries(ctx.Request().Context(), id)
	if err != nil {
		return preferencesView{}, err
	}
	return preferencesView{Session: session, Summaries: summaries}, nil
}

func (s *Server) clearUserPreferences(ctx echo.Context) error {
	id, err := paramID(ctx, "id")
	if err != nil {
		return err
	}
	userID, err := paramID(ctx, "userID")
	if err != nil {
		return err
	}
	if err = s.deps.KholleSvc.ClearPreferences(ctx.Request().Context(), userID, id); err != nil {
		return errors.Wrap(err, "clearing preferences")
	}
	view, err := s.preferencesView(ctx)
	if err != nil {
		return err
	}
	return s.renderer.renderPartial(ctx, http.StatusOK, "preferences_table", view)
}

func (s *Server) adminAssignments(ctx echo.Context) error {
	id, err := paramID(ctx, "id")
	if err != nil {
		return err
	}
	view, err := s.assignmentsView(ctx.Request().Context(), id)
	if err != nil {
		return err
	}
	view.IsAdmin = true
	return s.renderer.render(ctx, "admin_assignments", "assignments_table", "Affectations : "+view.Session.Subject, view)
}

// sessionAssignment returns the assignment of the path, which must belong to the session of the path.
func (s *Server) sessionAssignment(ctx echo.Context) (sessionID int64, a kholle.Assignment, err error) {
	if sessionID, err = paramID(ctx, "id"); err != nil {
		return 0, kholle.Assignment{}, err
	}
	assignmentID, err := paramID(ctx, "assignmentID")
	if err != nil {
		return 0, kholle.Assignment{}, err
	}
	if a, err = s.deps.KholleSvc.GetAssignment(ctx.Request().Context(), assignmentID); err != nil {
		return 0, kholle.Assignment{}, err
	}
	if a.SessionID != sessionID {
		return 0, kholle.Assignment{}, kholle.ErrAssignmentNotFound
	}
	return sessionID, a, nil
}

func (s *Server) updateAssignment(ctx echo.Context) error {
	sessionID, a, err := s.sessionAssignment(ctx)
	if err != nil {
		return err
	}
	slotID, err := formID(ctx, "slot_id")
	if err != nil {
		return err
	}
	if _, err = s.deps.KholleSvc.UpdateAssignment(ctx.Request().Context(), a.ID, slotID); err != nil {
		return err
	}
	return s.renderAssignmentsTable(ctx, sessionID)
}

func (s *Server) destroyAssignment(ctx echo.Context) error {
	sessionID, a, err := s.sessionAssignment(ctx)
	if err != nil {
		return err
	}
	if err = s.deps.KholleSvc.DeleteAssignment(ctx.Request().Context(), a.ID); err != nil {
		return err
	}
	return s.renderAssignmentsTable(ctx, sessionID)
}

func (s *Server) renderAssignmentsTable(ctx echo.Context, sessionID int64) error {
	view, err := s.assignmentsView(ctx.Request().Context(), sessionID)
	if err != nil {
		return err
	}
	view.IsAdmin = true
	return s.renderer.renderPartial(ctx, http.StatusOK, "assignments_table", view)
}

var _ AssignmentTrigger = (*scheduler.Scheduler)(nil) // interface compliance check

