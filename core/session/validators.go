package session

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/trainings/core"
)

var (
	sigModeTag  = "sigmode"
	sigModeText = "signature mode must be one of GLOBAL, PER_SLOT"

	datesOrderTag  = "datesorder"
	datesOrderText = "end date cannot be before start date"
)

// InitValidators registers the session validators and their translations.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(sigModeTag, sigModeValidation)
	core.RegisterCustomTranslation(validate, translator, sigModeTag, sigModeText)

	validate.RegisterStructValidation(sessionStructValidation, NewSession{}, UpdateSession{})
	core.RegisterCustomTranslation(validate, translator, datesOrderTag, datesOrderText)
}

// Custom Validators

func sigModeValidation(fl validator.FieldLevel) bool {
	return SignatureMode(fl.Field().String()).Valid()
}

// sessionStructValidation checks that a session does not end before it starts.
func sessionStructValidation(sl validator.StructLevel) {
	switch s := sl.Current().Interface().(type) {
	case NewSession:
		if !s.StartDate.IsZero() && !s.EndDate.IsZero() && s.EndDate.Before(s.StartDate) {
			sl.ReportError(s.EndDate, "end_date", "EndDate", datesOrderTag, "")
		}
	case UpdateSession:
		if !s.StartDate.IsZero() && !s.EndDate.IsZero() && s.EndDate.Before(s.StartDate) {
			sl.ReportError(s.EndDate, "end_date", "EndDate", datesOrderTag, "")
		}
	}
}
