package echoapi

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/khollendar/core/kholle"
	"github.com/trezcool/khollendar/core/ranking"
)

type (
	rankingRow struct {
		Slot        kholle.Slot `json:"slot"`
		Rank        int         `json:"rank"`
		UpEnabled   bool        `json:"up_enabled"`
		DownEnabled bool        `json:"down_enabled"`
		Pulse       bool        `json:"pulse"`
	}

	// flipFrame is the inverted offset an item starts from before easing back into place.
	flipFrame struct {
		ID int64   `json:"id"`
		DX float64 `json:"dx"`
		DY float64 `json:"dy"`
	}

	submittedRow struct {
		Slot        kholle.Slot `json:"slot"`
		Rank        int         `json:"rank"`
		Unavailable bool        `json:"unavailable"`
	}

	wizardView struct {
		Session     kholle.Session `json:"session"`
		Step        kholle.Step    `json:"step"`
		Locked      bool           `json:"locked"`
		Slots       []kholle.Slot  `json:"slots"`
		Unavailable map[int64]bool `json:"unavailable"`
		Ranking     []rankingRow   `json:"ranking"`
		Submitted   []submittedRow `json:"submitted,omitempty"`

		// set by ranking moves
		Accepted   bool        `json:"accepted"`
		Frames     []flipFrame `json:"frames,omitempty"`
		DurationMS int64       `json:"duration_ms,omitempty"`
		Easing     string      `json:"easing,omitempty"`
	}
)

func newWizardView(v kholle.WizardView) wizardView {
	view := wizardView{
		Session:     v.Session,
		Step:        v.Step,
		Locked:      v.Locked,
		Slots:       v.Slots,
		Unavailable: v.Unavailable,
		Accepted:    v.Accepted,
	}

	pulses := make(map[ranking.ID]bool)
	if v.Animation != nil {
		for _, id := range v.Animation.Pulses {
			pulses[id] = true
		}
		for _, f := range v.Animation.Frames {
			dx, dy := f.Delta()
			view.Frames = append(view.Frames, flipFrame{ID: int64(f.ID), DX: dx, DY: dy})
		}
		view.DurationMS = v.Animation.Duration.Milliseconds()
		view.Easing = v.Animation.Easing
	}
	for i, slot := range v.Ranking {
		row := rankingRow{Slot: slot, Rank: i + 1}
		if i < len(v.State) {
			item := v.State[i]
			row.Rank, row.UpEnabled, row.DownEnabled = item.Rank, item.UpEnabled, item.DownEnabled
			row.Pulse = pulses[item.ID]
		}
		view.Ranking = append(view.Ranking, row)
	}
	for _, p := range v.Submitted {
		slot, ok := v.Session.Slot(p.SlotID)
		if !ok {
			continue
		}
		view.Submitted = append(view.Submitted, submittedRow{Slot: slot, Rank: p.Rank, Unavailable: p.Unavailable})
	}
	return view
}

func (s *Server) registerPreferenceRoutes(jwt echo.MiddlewareFunc) {
	pg := s.app.Group("/kholles/:id/preferences")
	pg.GET("", s.preferences, jwt)
	pg.POST("/unavailabilities", s.setUnavailabilities, jwt)
	pg.POST("/ranking/move", s.moveRanking, jwt)
	pg.POST("/ranking", s.setRanking, jwt)
	pg.POST("/previous", s.previousStep, jwt)
	pg.POST("/confirm", s.confirmPreferences, jwt)
}

// wizardParams returns the user and session ids of a wizard request.
func wizardParams(ctx echo.Context) (userID, sessionID int64, err error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return 0, 0, err
	}
	if sessionID, err = paramID(ctx, "id"); err != nil {
		return 0, 0, err
	}
	return claims.UserID(), sessionID, nil
}

func (s *Server) renderWizard(ctx echo.Context, v kholle.WizardView) error {
	return s.renderer.render(ctx, "preferences", "wizard", "Préférences : "+v.Session.Subject, newWizardView(v))
}

func (s *Server) preferences(ctx echo.Context) error {
	userID, sessionID, err := wizardParams(ctx)
	if err != nil {
		return err
	}
	v, err := s.deps.Wizard.View(ctx.Request().Context(), userID, sessionID)
	if err != nil {
		return err
	}
	return s.renderWizard(ctx, v)
}

func (s *Server) setUnavailabilities(ctx echo.Context) error {
	userID, sessionID, err := wizardParams(ctx)
	if err != nil {
		return err
	}
	unavailable, err := formIDs(ctx, "unavailable")
	if err != nil {
		return err
	}
	v, err := s.deps.Wizard.SetUnavailable(ctx.Request().Context(), userID, sessionID, unavailable)
	if err != nil {
		return err
	}
	return s.renderWizard(ctx, v)
}

// moveRanking applies one ranking intent and answers with the ranking list and its FLIP frames.
// Intents received while the list is animating are dropped: the unchanged list is returned.
func (s *Server) moveRanking(ctx echo.Context) error {
	userID, sessionID, err := wizardParams(ctx)
	if err != nil {
		return err
	}
	var data moveRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to moveRequest")
	}
	mv, err := data.toMove()
	if err != nil {
		return err
	}

	v, err := s.deps.Wizard.Move(ctx.Request().Context(), userID, sessionID, mv)
	if err != nil {
		return err
	}
	return s.renderer.renderPartial(ctx, http.StatusOK, "ranking", newWizardView(v))
}

func (s *Server) setRanking(ctx echo.Context) error {
	userID, sessionID, err := wizardParams(ctx)
	if err != nil {
		return err
	}
	ranked, err := formIDs(ctx, "ranked")
	if err != nil {
		return err
	}
	v, err := s.deps.Wizard.SetRanking(ctx.Request().Context(), userID, sessionID, ranked)
	if err != nil {
		return err
	}
	return s.renderWizard(ctx, v)
}

func (s *Server) previousStep(ctx echo.Context) error {
	userID, sessionID, err := wizardParams(ctx)
	if err != nil {
		return err
	}
	v, err := s.deps.Wizard.Back(ctx.Request().Context(), userID, sessionID)
	if err != nil {
		return err
	}
	return s.renderWizard(ctx, v)
}

func (s *Server) confirmPreferences(ctx echo.Context) error {
	userID, sessionID, err := wizardParams(ctx)
	if err != nil {
		return err
	}
	if err = s.deps.Wizard.Confirm(ctx.Request().Context(), userID, sessionID); err != nil {
		return err
	}
	s.deps.Logger.Info("preferences submitted", map[string]interface{}{"userId": userID, "sessionId": sessionID})
	return redirect(ctx, fmt.Sprintf("/kholles/%d", sessionID))
}
