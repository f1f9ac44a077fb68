package handler

import (
	"github.com/go-playground/validator/v10"

	"github.com/medflow/idscan/internal/idscan/domain"
	"github.com/medflow/idscan/pkg/httputil"
)

func init() {
	custom := map[string]func(string) bool{
		"uszip":    domain.IsValidZip,
		"dob":      domain.IsValidDateOfBirth,
		"notblank": domain.IsNotBlank,
	}
	for tag, check := range custom {
		check := check
		if err := httputil.RegisterCustomValidation(tag, func(fl validator.FieldLevel) bool {
			return check(fl.Field().String())
		}); err != nil {
			panic(err)
		}
	}
}
