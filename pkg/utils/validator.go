package utils

import (
	"context"
	"errors"
	"strings"

	"github.com/amankumarsingh77/clipflow/pkg/apperrors"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ValidateStruct runs the struct's validate tags and reports the first failure
// as an apperrors.ValidationError.
func ValidateStruct(ctx context.Context, s interface{}) error {
	err := validate.StructCtx(ctx, s)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return apperrors.NewValidation(strings.ToLower(fe.Field()), "failed on '"+fe.Tag()+"'")
	}
	return apperrors.NewValidation("", err.Error())
}
