package echoapi

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/khollendar/core"
	"github.com/trezcool/khollendar/core/kholle"
	"github.com/trezcool/khollendar/core/ranking"
)

type (
	kholleListView struct {
		Upcoming     []kholle.Session `json:"upcoming"`
		UpcomingPage core.Page        `json:"upcoming_page"`
		Previous     []kholle.Session `json:"previous"`
		PreviousPage core.Page        `json:"previous_page"`
	}

	userAssignmentView struct {
		Assignment kholle.Assignment `json:"assignment"`
		Slot       kholle.Slot       `json:"slot"`
	}

	kholleView struct {
		Session    kholle.Session      `json:"session"`
		Registered int                 `json:"registered"`
		Submitted  bool                `json:"submitted"`
		Assignment *userAssignmentView `json:"assignment,omitempty"`
		Statuses   []kholle.Status     `json:"-"`
	}

	slotInputsView struct {
		Subject string          `json:"subject"`
		Fields  []ranking.Field `json:"fields"`
		Focus   int             `json:"focus"`
		Action  string          `json:"action"`
	}
)

func (s *Server) registerKholleRoutes(jwt, admin echo.MiddlewareFunc) {
	kg := s.app.Group("/kholles")
	kg.GET("", s.queryKholles, jwt)
	kg.GET("/create", s.createKholleForm, jwt, admin)
	kg.POST("/create", s.createKholle, jwt, admin)
	kg.POST("/create/slots", s.editSlotInputs, jwt, admin)
	kg.GET("/:id", s.retrieveKholle, jwt)
	kg.PATCH("/:id", s.patchKholle, jwt, admin)
	kg.DELETE("/:id", s.destroyKholle, jwt, admin)
	kg.POST("/:id/slots/:slotID/move", s.moveSlot, jwt, admin)
}

func (s *Server) queryKholles(ctx echo.Context) error {
	rctx := ctx.Request().Context()

	upcoming, upcomingPage, err := s.deps.KholleSvc.Upcoming(rctx, queryPage(ctx, "upcoming_page"))
	if err != nil {
		return errors.Wrap(err, "querying upcoming sessions")
	}
	previous, previousPage, err := s.deps.KholleSvc.Previous(rctx, queryPage(ctx, "previous_page"))
	if err != nil {
		return errors.Wrap(err, "querying previous sessions")
	}

	view := kholleListView{
		Upcoming:     upcoming,
		UpcomingPage: upcomingPage,
		Previous:     previous,
		PreviousPage: previousPage,
	}
	return s.renderer.render(ctx, "kholles", "kholle_lists", "Khôlles", view)
}

func (s *Server) retrieveKholle(ctx echo.Context) error {
	view, err := s.kholleView(ctx)
	if err != nil {
		return err
	}
	return s.renderer.render(ctx, "kholle", "kholle_detail", view.Session.Subject, view)
}

func (s *Server) kholleView(ctx echo.Context) (kholleView, error) {
	rctx := ctx.Request().Context()
	id, err := paramID(ctx, "id")
	if err != nil {
		return kholleView{}, err
	}
	claims, err := getContextClaims(ctx)
	if err != nil {
		return kholleView{}, err
	}

	session, err := s.deps.KholleSvc.Get(rctx, id)
	if err != nil {
		return kholleView{}, err
	}
	view := kholleView{Session: session, Statuses: kholle.Statuses}
	if view.Registered, err = s.deps.KholleSvc.RegisteredCount(rctx, id); err != nil {
		return kholleView{}, errors.Wrap(err, "counting registered users")
	}
	if view.Submitted, err = s.deps.KholleSvc.HasSubmitted(rctx, claims.UserID(), id); err != nil {
		return kholleView{}, err
	}
	if session.Status == kholle.StatusResultsAvailable {
		assignment, err := s.deps.KholleSvc.AssignmentOf(rctx, claims.UserID(), id)
		switch errors.Cause(err) {
		case nil:
			slot, _ := session.Slot(assignment.SlotID)
			view.Assignment = &userAssignmentView{Assignment: assignment, Slot: slot}
		case kholle.ErrAssignmentNotFound:
		default:
			return kholleView{}, err
		}
	}
	return view, nil
}

func (s *Server) createKholleForm(ctx echo.Context) error {
	view := slotInputsView{Fields: ranking.NewInputList().Fields()}
	return s.renderer.renderPage(ctx, http.StatusOK, "kholle_create", "Nouvelle khôlle", view)
}

// editSlotInputs applies an action of the slot input list: add, remove or key.
func (s *Server) editSlotInputs(ctx echo.Context) error {
	inputs, err := slotInputs(ctx)
	if err != nil {
		return err
	}
	index, _ := strconv.Atoi(ctx.FormValue("index"))

	view := slotInputsView{Subject: ctx.FormValue("subject"), Focus: index}
	switch action := ctx.FormValue("action"); action {
	case "add":
		view.Focus = inputs.Add(index)
		view.Action = ranking.AddSlot.String()
	case "remove":
		if err = inputs.Remove(index); err != nil {
			return err
		}
		if view.Focus >= inputs.Len() {
			view.Focus = inputs.Len() - 1
		}
	case "key":
		key := ranking.Key{
			Name:  ctx.FormValue("key"),
			Shift: ctx.FormValue("shift") == "true",
			Ctrl:  ctx.FormValue("ctrl") == "true",
		}
		var act ranking.Action
		act, view.Focus = inputs.HandleKey(index, key)
		view.Action = act.String()
		if act == ranking.Submit {
			ctx.Response().Header().Set(headerHXTrigger, "slots-submit")
		}
	default:
		return core.NewFieldError("action", errors.Errorf("unknown action %q", action))
	}

	view.Fields = inputs.Fields()
	return s.renderer.renderPartial(ctx, http.StatusOK, "slot_inputs", view)
}

func (s *Server) createKholle(ctx echo.Context) error {
	inputs, err := slotInputs(ctx)
	if err != nil {
		return err
	}
	data, err := newSession(ctx.FormValue("subject"), inputs)
	if err != nil {
		return err
	}
	if err = data.Validate(s.deps.Validate); err != nil {
		return err
	}

	session, err := s.deps.KholleSvc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating session")
	}
	return redirect(ctx, fmt.Sprintf("/kholles/%d", session.ID))
}

func (s *Server) patchKholle(ctx echo.Context) error {
	id, err := paramID(ctx, "id")
	if err != nil {
		return err
	}
	params, err := ctx.FormParams()
	if err != nil {
		return errors.Wrap(err, "parsing form")
	}

	var data kholle.PatchSession
	if _, ok := params["subject"]; ok {
		subject := ctx.FormValue("subject")
		data.Subject = &subject
	}
	if _, ok := params["status"]; ok {
		status := kholle.Status(ctx.FormValue("status"))
		data.Status = &status
	}
	if err = data.Validate(s.deps.Validate); err != nil {
		return err
	}

	if _, err = s.deps.KholleSvc.Patch(ctx.Request().Context(), id, data); err != nil {
		return err
	}
	view, err := s.kholleView(ctx)
	if err != nil {
		return err
	}
	return s.renderer.renderPartial(ctx, http.StatusOK, "kholle_detail", view)
}

func (s *Server) destroyKholle(ctx echo.Context) error {
	id, err := paramID(ctx, "id")
	if err != nil {
		return err
	}
	if err = s.deps.KholleSvc.Delete(ctx.Request().Context(), id); err != nil {
		return err
	}
	return redirect(ctx, "/kholles")
}

// moveSlot moves a slot one step in the display order of its session.
func (s *Server) moveSlot(ctx echo.Context) error {
	id, err := paramID(ctx, "id")
	if err != nil {
		return err
	}
	slotID, err := paramID(ctx, "slotID")
	if err != nil {
		return err
	}
	kind, ok := ranking.ParseKind(ctx.FormValue("direction"))
	if !ok {
		return core.NewFieldError("direction", errors.New("must be up or down"))
	}

	session, err := s.deps.KholleSvc.MoveSlot(ctx.Request().Context(), id, slotID, kind)
	if err != nil {
		return err
	}
	return s.renderer.renderPartial(ctx, http.StatusOK, "slot_order", session)
}
