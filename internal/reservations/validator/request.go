package validator

import (
	"errors"
	"fmt"
	"strings"

	"roomdesk/internal/reservations/policy"
	"roomdesk/pkg/logger"
	"roomdesk/pkg/model"

	"github.com/go-playground/validator/v10"
)

// ValidationError is one field-level problem, as returned to clients.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

// ValidationErrors collects every field problem of one payload.
type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return ""
	}
	var messages []string
	for _, err := range v {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %d error(s): [%s]", len(v), strings.Join(messages, "; "))
}

// ReservationValidator checks the shape of incoming payloads before any
// booking rule is applied.
type ReservationValidator struct {
	validate          *validator.Validate
	logger            *logger.Logger
	minPasswordLength int
}

// NewReservationValidator registers the time_of_day and reservation_date
// tags on a fresh validator.
func NewReservationValidator(log *logger.Logger, minPasswordLength int) *ReservationValidator {
	v := validator.New()

	if err := v.RegisterValidation("time_of_day", validateTimeOfDay); err != nil {
		log.Fatal("Failed to register 'time_of_day' validator", "error", err)
	}
	if err := v.RegisterValidation("reservation_date", validateReservationDate); err != nil {
		log.Fatal("Failed to register 'reservation_date' validator", "error", err)
	}

	log.Debug("Reservation validator initialized successfully")

	return &ReservationValidator{
		validate:          v,
		logger:            log,
		minPasswordLength: minPasswordLength,
	}
}

func validateTimeOfDay(fl validator.FieldLevel) bool {
	_, err := policy.ParseTimeOfDay(fl.Field().String())
	return err == nil
}

func validateReservationDate(fl validator.FieldLevel) bool {
	_, err := policy.ParseDate(fl.Field().String())
	return err == nil
}

// ValidateRequest checks a create payload.
func (v *ReservationValidator) ValidateRequest(req *model.ReservationRequest) error {
	if req == nil {
		return ValidationErrors{{Field: "body", Message: "request body is required"}}
	}
	if err := v.check(req); err != nil {
		return err
	}
	return v.checkPassword(req.Password)
}

// ValidatePatch checks an edit payload. Absent fields are not checked.
func (v *ReservationValidator) ValidatePatch(patch *model.ReservationPatch) error {
	if patch == nil {
		return ValidationErrors{{Field: "body", Message: "request body is required"}}
	}
	if err := v.check(patch); err != nil {
		return err
	}
	if patch.TeamID != nil && strings.TrimSpace(*patch.TeamID) == "" {
		return ValidationErrors{{Field: "TeamID", Message: "TeamID cannot be empty"}}
	}
	return nil
}

func (v *ReservationValidator) ValidateCheck(check *model.SlotCheck) error {
	return v.check(check)
}

// checkPassword applies the minimum length rule to a new credential.
func (v *ReservationValidator) checkPassword(password string) error {
	if len([]rune(password)) < v.minPasswordLength {
		return ValidationErrors{{
			Field:   "Password",
			Message: fmt.Sprintf("Password must be at least %d characters", v.minPasswordLength),
		}}
	}
	return nil
}

func (v *ReservationValidator) check(s any) error {
	if err := v.validate.Struct(s); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return v.translateValidationErrors(validationErrs)
		}
		return err
	}
	return nil
}

func (v *ReservationValidator) translateValidationErrors(errs validator.ValidationErrors) ValidationErrors {
	var validationErrors ValidationErrors

	for _, err := range errs {
		message := err.Error()

		switch err.Tag() {
		case "required":
			message = fmt.Sprintf("%s is required", err.Field())
		case "min":
			message = fmt.Sprintf("%s must be at least %s", err.Field(), err.Param())
		case "max":
			message = fmt.Sprintf("%s must be at most %s", err.Field(), err.Param())
		case "time_of_day":
			message = fmt.Sprintf("%s must be a time of day in HH:MM format", err.Field())
		case "reservation_date":
			message = fmt.Sprintf("%s must be a date in YYYY-MM-DD format", err.Field())
		}

		validationErrors = append(validationErrors, ValidationError{
			Field:   err.Field(),
			Message: message,
		})
	}

	return validationErrors
}
