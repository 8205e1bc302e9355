package data

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// ValidateStruct runs the struct's validate tags and folds any failures into a
// single KindValidation error, one "Field: failed on 'tag'" clause per field.
func ValidateStruct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	if _, ok := err.(*validator.InvalidValidationError); ok {
		return WrapError(KindInternal, "invalid validation target", err)
	}

	var clauses []string
	for _, fieldErr := range err.(validator.ValidationErrors) {
		clauses = append(clauses, fmt.Sprintf("%s: failed on '%s' tag", fieldErr.Field(), fieldErr.Tag()))
	}
	return NewError(KindValidation, strings.Join(clauses, "; "))
}
