package utils

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/neweracoin/wfdropbackend/services"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// ValidateStruct checks s against its validate tags and reports the first
// failing field as a *services.ValidationError.
func ValidateStruct(s interface{}) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return &services.ValidationError{
			Field:  jsonPath(fe.Namespace()),
			Reason: reason(fe),
		}
	}
	return &services.ValidationError{Field: "body", Reason: err.Error()}
}

// jsonPath turns "updatePointsRequest.User.ID" into "user.id".
func jsonPath(namespace string) string {
	parts := strings.Split(namespace, ".")
	if len(parts) > 1 {
		parts = parts[1:]
	}
	return strings.ToLower(strings.Join(parts, "."))
}

func reason(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gte":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "url":
		return "must be a valid URL"
	}
	return "failed " + fe.Tag() + " check"
}
