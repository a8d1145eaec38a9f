package kholle

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/khollendar/core"
)

var (
	slotStatusTag  = "slotstatus"
	slotStatusText = "invalid status"

	futureSlotsTag  = "futureslots"
	futureSlotsText = "slots must be unique and in the future"
)

// InitValidators registers the kholle validation tags.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(slotStatusTag, slotStatusValidation)
	core.RegisterCustomTranslation(validate, translator, slotStatusTag, slotStatusText)

	_ = validate.RegisterValidation(futureSlotsTag, futureSlotsValidation)
	core.RegisterCustomTranslation(validate, translator, futureSlotsTag, futureSlotsText)
}

// Custom Validators

func slotStatusValidation(fl validator.FieldLevel) bool {
	return Status(fl.Field().String()).IsValid()
}

// futureSlotsValidation checks that slot times are unique and after now.
func futureSlotsValidation(fl validator.FieldLevel) bool {
	slots, ok := fl.Field().Interface().([]NewSlot)
	if !ok {
		return false
	}
	now := core.NowFunc()
	seen := make(map[int64]bool, len(slots))
	for _, slot := range slots {
		if slot.Time.IsZero() {
			continue // reported by `required`
		}
		key := slot.Time.Unix()
		if seen[key] || !slot.Time.After(now) {
			return false
		}
		seen[key] = true
	}
	return true
}
