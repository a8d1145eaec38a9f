package echoapi

import (
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/khollendar/core"
	"github.com/trezcool/khollendar/core/kholle"
	"github.com/trezcool/khollendar/core/ranking"
)

// paramID parses the path parameter name; malformed ids are not found.
func paramID(ctx echo.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(ctx.Param(name), 10, 64)
	if err != nil || id < 1 {
		return 0, errHttpNotFound
	}
	return id, nil
}

// formID parses the required form field name.
func formID(ctx echo.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(ctx.FormValue(name)), 10, 64)
	if err != nil || id < 1 {
		return 0, core.NewFieldError(name, errors.New("invalid id"))
	}
	return id, nil
}

// formIDs parses every value of the form field name, in order, skipping blanks.
func formIDs(ctx echo.Context, name string) ([]int64, error) {
	params, err := ctx.FormParams()
	if err != nil {
		return nil, errors.Wrap(err, "parsing form")
	}
	ids := make([]int64, 0, len(params[name]))
	for _, v := range params[name] {
		if v = strings.TrimSpace(v); v == "" {
			continue
		}
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, core.NewFieldError(name, errors.Errorf("invalid id %q", v))
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func queryPage(ctx echo.Context, name string) int {
	page, err := strconv.Atoi(ctx.QueryParam(name))
	if err != nil || page < 1 {
		return 1
	}
	return page
}

// moveRequest is a ranking intent posted by the ranking list.
// direction moves one step; otherwise pointer_y, then target_index, give the drop position.
type moveRequest struct {
	SlotID      int64  `form:"slot_id" json:"slot_id"`
	Direction   string `form:"direction" json:"direction"`
	TargetIndex string `form:"target_index" json:"target_index"`
	PointerY    string `form:"pointer_y" json:"pointer_y"`
}

func (req moveRequest) toMove() (kholle.Move, error) {
	if req.SlotID < 1 {
		return kholle.Move{}, core.NewFieldError("slot_id", errors.New("invalid id"))
	}
	mv := kholle.Move{SlotID: req.SlotID}
	if req.Direction != "" {
		kind, ok := ranking.ParseKind(req.Direction)
		if !ok {
			return kholle.Move{}, core.NewFieldError("direction", errors.New("must be up or down"))
		}
		mv.Kind = kind
		return mv, nil
	}

	mv.Kind = ranking.Drop
	if req.PointerY != "" {
		y, err := strconv.ParseFloat(req.PointerY, 64)
		if err != nil {
			return kholle.Move{}, core.NewFieldError("pointer_y", errors.New("must be a number"))
		}
		mv.PointerY = &y
		return mv, nil
	}
	target, err := strconv.Atoi(req.TargetIndex)
	if err != nil {
		return kholle.Move{}, core.NewFieldError("target_index", errors.New("must be an integer"))
	}
	mv.Target = target
	return mv, nil
}

// slotInputs reads the slot inputs of the session creation form.
func slotInputs(ctx echo.Context) (*ranking.InputList, error) {
	params, err := ctx.FormParams()
	if err != nil {
		return nil, errors.Wrap(err, "parsing form")
	}
	var values []string
	for i := 0; ; i++ {
		vals, ok := params[ranking.FieldName(i)]
		if !ok {
			break
		}
		var v string
		if len(vals) > 0 {
			v = strings.TrimSpace(vals[0])
		}
		values = append(values, v)
	}
	return ranking.NewInputList(values...), nil
}

// newSession builds the NewSession of the creation form; blank slot inputs are ignored.
func newSession(subject string, inputs *ranking.InputList) (kholle.NewSession, error) {
	ns := kholle.NewSession{Subject: subject}
	for i, v := range inputs.Values() {
		if v == "" {
			continue
		}
		t, err := time.ParseInLocation(inputTimeLayout, v, time.Local)
		if err != nil {
			return kholle.NewSession{}, core.NewFieldError(ranking.FieldName(i), errors.New("invalid date"))
		}
		ns.Slots = append(ns.Slots, kholle.NewSlot{Time: t.UTC()})
	}
	return ns, nil
}
