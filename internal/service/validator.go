package service

import (
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/guarderia-api/internal/models"
)

var documentNumberPattern = regexp.MustCompile(`^[A-Za-z0-9-]{3,20}$`)

// NewValidator returns a validator with the attendance tags registered.
func NewValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	_ = v.RegisterValidation("event_type", func(fl validator.FieldLevel) bool {
		return models.EventType(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("document_number", func(fl validator.FieldLevel) bool {
		return ValidDocumentNumber(fl.Field().String())
	})
	return v
}

// ValidDocumentNumber accepts 3 to 20 letters, digits or dashes after trimming.
func ValidDocumentNumber(raw string) bool {
	return documentNumberPattern.MatchString(strings.TrimSpace(raw))
}
