// Package validation wraps go-playground/validator with the custom tags and
// English messages used by the scheduling API.
package validation

import (
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	"github.com/pkg/errors"

	"github.com/oneany574/eduflow-calendar-hub/internal/calendar"
)

// Custom tags.
const (
	TagDate       = "date"
	TagClock      = "clock"
	TagAfterStart = "after_start"
)

var customTexts = map[string]string{
	TagDate:       "{0} must be a date formatted as YYYY-MM-DD",
	TagClock:      "{0} must be a time formatted as HH:MM",
	TagAfterStart: "{0} must be after the start time",
	"required":    "{0} is required",
}

// ErrInvalid is the cause of every ValidationError.
var ErrInvalid = errors.New("validation failed")

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string `json:"field"`
	Error string `json:"error"`
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	if e.Err == nil {
		return ""
	}
	if len(e.Fields) == 0 {
		return e.Err.Error()
	}
	msgs := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		msgs[i] = f.Error
	}
	return e.Err.Error() + ": " + strings.Join(msgs, "; ")
}

func (e *ValidationError) Unwrap() error { return e.Err }

// NewValidationError builds a ValidationError outside of struct validation.
func NewValidationError(flds ...FieldError) error {
	return &ValidationError{Err: ErrInvalid, Fields: flds}
}

// Validator validates structs and reports errors keyed by json field name.
type Validator struct {
	validate   *validator.Validate
	translator ut.Translator
}

func New() *Validator {
	validate := validator.New()
	locale := en.New()
	translator, _ := ut.New(locale, locale).GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(validate, translator)

	// Use JSON tag names for errors instead of Go struct names.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = validate.RegisterValidation(TagDate, dateValidation)
	_ = validate.RegisterValidation(TagClock, clockValidation)

	v := &Validator{validate: validate, translator: translator}
	for tag, text := range customTexts {
		v.registerTranslation(tag, text)
	}
	return v
}

// RegisterStructValidation adds a struct level check for the given types.
func (v *Validator) RegisterStructValidation(fn validator.StructLevelFunc, types ...interface{}) {
	v.validate.RegisterStructValidation(fn, types...)
}

// Struct validates s. Field failures come back as *ValidationError.
func (v *Validator) Struct(s interface{}) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	fields := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, FieldError{Field: fe.Field(), Error: fe.Translate(v.translator)})
	}
	return &ValidationError{Err: ErrInvalid, Fields: fields}
}

func (v *Validator) registerTranslation(tag, text string) {
	_ = v.validate.RegisterTranslation(
		tag, v.translator,
		func(t ut.Translator) error { return t.Add(tag, text, true) },
		func(t ut.Translator, fe validator.FieldError) string {
			s, _ := t.T(tag, fe.Field())
			return s
		},
	)
}

func dateValidation(fl validator.FieldLevel) bool {
	_, err := calendar.ParseDate(fl.Field().String())
	return err == nil
}

func clockValidation(fl validator.FieldLevel) bool {
	_, err := calendar.ParseTimeOfDay(fl.Field().String())
	return err == nil
}
