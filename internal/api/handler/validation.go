package handler

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/saturnino-fabrica-de-software/momento/internal/domain"
	"github.com/saturnino-fabrica-de-software/momento/internal/embedding"
)

// NewValidator returns a validator with the face rules registered:
// facename (letters, digits and spaces) and unitvector (L2 norm of 1)
func NewValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("facename", validateFaceName)
	_ = v.RegisterValidation("unitvector", validateUnitVector)
	return v
}

func validateFaceName(fl validator.FieldLevel) bool {
	return domain.ValidateName(fl.Field().String()) == nil
}

func validateUnitVector(fl validator.FieldLevel) bool {
	raw, ok := fl.Field().Interface().([]float64)
	if !ok || len(raw) == 0 {
		return false
	}
	v := make([]float32, len(raw))
	for i, x := range raw {
		v[i] = float32(x)
	}
	return embedding.IsUnit(v)
}

// validationMessage flattens validator errors into one line
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}

	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fmt.Sprintf("%s failed %s", strings.ToLower(fe.Field()), fe.Tag()))
	}
	return strings.Join(parts, "; ")
}
